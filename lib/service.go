package lib

import (
	"context"

	"github.com/fiffu/bonuswatch/config"
	"github.com/fiffu/bonuswatch/lib/history"
	"github.com/fiffu/bonuswatch/lib/models"
	"github.com/fiffu/bonuswatch/lib/watcher"
	"go.uber.org/zap"
)

// Service is what the HTTP API can do with the watcher and its history.
type Service struct {
	cfg     *config.Config
	log     *zap.Logger
	store   history.Store
	watcher *watcher.Watcher
	connect watcher.ScraperFactory
}

func NewService(cfg *config.Config, log *zap.Logger, store history.Store, w *watcher.Watcher, connect watcher.ScraperFactory) *Service {
	return &Service{cfg, log, store, w, connect}
}

func (svc *Service) Notifications(ctx context.Context) (models.BonusNotifications, error) {
	return svc.store.List(ctx)
}

// Calendars scrapes the site now, without notifying anyone.
func (svc *Service) Calendars(ctx context.Context) ([]*models.Calendar, error) {
	scraper, err := svc.connect(ctx)
	if err != nil {
		return nil, err
	}
	return scraper.Calendars(ctx)
}

// TriggerRun runs a check immediately, waiting for any scheduled run to finish first.
func (svc *Service) TriggerRun(ctx context.Context) (*watcher.Report, error) {
	svc.log.Sugar().Infow("Run requested through the API")
	return svc.watcher.Run(ctx)
}

func (svc *Service) LastRun() (watcher.Report, bool) {
	return svc.watcher.LastReport()
}
