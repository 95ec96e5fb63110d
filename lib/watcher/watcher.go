// Package watcher checks the bonus calendars and notifies every configured channel
// about active bonuses that have not been announced before.
package watcher

import (
	"context"
	"sync"
	"time"

	"github.com/fiffu/bonuswatch/config"
	"github.com/fiffu/bonuswatch/lib/history"
	"github.com/fiffu/bonuswatch/lib/models"
	"github.com/fiffu/bonuswatch/senders"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const runTimeout = 10 * time.Minute

// Scraper lists the current bonus calendars.
type Scraper interface {
	Calendars(ctx context.Context) ([]*models.Calendar, error)
}

// ScraperFactory returns a logged-in Scraper. It is called once per run.
type ScraperFactory func(ctx context.Context) (Scraper, error)

type Watcher struct {
	log     *zap.Logger
	connect ScraperFactory
	store   history.Store
	senders senders.Registry

	mu            sync.Mutex
	clock         *alarmClock
	retryAttempts uint
	retryDelay    time.Duration
	now           func() time.Time

	lastMu sync.Mutex
	last   *Report
}

func NewWatcher(
	lc fx.Lifecycle,
	shutdowner fx.Shutdowner,
	log *zap.Logger,
	cfg *config.Config,
	store history.Store,
	registry senders.Registry,
	connect ScraperFactory,
) *Watcher {
	w := newWatcher(log, connect, store, registry, cfg.Watch.RetryAttempts, cfg.Watch.RetryDelay)

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if cfg.RunOnce() {
				go w.runOnce(shutdowner)
				return nil
			}
			w.Start(context.Background(), cfg.Watch.Interval)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Sugar().Info("Trying to stop watcher")
			w.Stop()
			return nil
		},
	})

	return w
}

func newWatcher(log *zap.Logger, connect ScraperFactory, store history.Store, registry senders.Registry, attempts uint, delay time.Duration) *Watcher {
	if attempts == 0 {
		attempts = 1
	}
	return &Watcher{
		log:           log,
		connect:       connect,
		store:         store,
		senders:       registry,
		retryAttempts: attempts,
		retryDelay:    delay,
		now:           time.Now,
	}
}

// Start runs a check now and then every interval, until Stop is called.
func (w *Watcher) Start(ctx context.Context, interval time.Duration) {
	w.clock = newAlarmClock(interval)
	c := w.clock.Start(ctx)

	go func() {
		for evt := range c {
			w.handleEvent(evt)
		}
	}()
}

// Stop halts the schedule and waits for a run in progress.
func (w *Watcher) Stop() {
	if w.clock != nil {
		w.clock.Stop()
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.log.Sugar().Info("Watcher stopped")
}

func (w *Watcher) handleEvent(evt wakeupEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	if _, err := w.Run(ctx); err != nil {
		w.log.Sugar().Errorw("Scheduled run failed", "scheduled_at", evt.Timestamp(), "err", err)
	}
}

func (w *Watcher) runOnce(shutdowner fx.Shutdowner) {
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	code := 0
	if _, err := w.Run(ctx); err != nil {
		w.log.Sugar().Errorw("Run failed", "err", err)
		code = 1
	}
	if err := shutdowner.Shutdown(fx.ExitCode(code)); err != nil {
		w.log.Sugar().Errorw("Failed to shut down", "err", err)
	}
}

// LastReport returns the outcome of the most recent run, if any.
func (w *Watcher) LastReport() (Report, bool) {
	w.lastMu.Lock()
	defer w.lastMu.Unlock()
	if w.last == nil {
		return Report{}, false
	}
	return *w.last, true
}

func (w *Watcher) setLastReport(r *Report) {
	w.lastMu.Lock()
	defer w.lastMu.Unlock()
	copied := *r
	w.last = &copied
}
