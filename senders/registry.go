package senders

import (
	"context"
	"net/http"

	"github.com/fiffu/bonuswatch/config"
	"github.com/fiffu/bonuswatch/lib/models"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Sender interface {
	Send(ctx context.Context, alert *models.BonusAlert) error
}

// Registry holds one sender per configured channel, keyed by channel name.
type Registry map[string]Sender

func NewSenderRegistry(lc fx.Lifecycle, log *zap.Logger, cfg *config.Config, transport http.RoundTripper) Registry {
	base := base{log, cfg, transport}
	registry := Registry{}

	if cfg.HasChannel(config.ChannelPushover) {
		push := &pushoverSender{base: base}
		lc.Append(fx.Hook{OnStart: push.connect})
		registry[config.ChannelPushover] = push
	}
	if cfg.HasChannel(config.ChannelEmail) {
		registry[config.ChannelEmail] = &mailgunSender{base}
	}
	return registry
}

type base struct {
	log       *zap.Logger
	cfg       *config.Config
	transport http.RoundTripper
}

func (b base) httpClient() *http.Client {
	return &http.Client{Transport: b.transport, Timeout: b.cfg.HTTPTimeout}
}
