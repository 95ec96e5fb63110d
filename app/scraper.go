package app

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/fiffu/bonuswatch/config"
	"github.com/fiffu/bonuswatch/lib/sazka"
	"github.com/fiffu/bonuswatch/lib/watcher"
	"go.uber.org/zap"
)

// NewScraperFactory logs in to the site with the configured account on every call.
func NewScraperFactory(cfg *config.Config, log *zap.Logger, transport http.RoundTripper) (watcher.ScraperFactory, error) {
	baseURL, err := url.Parse(cfg.Sazka.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("SAZKA_BASE_URL: %w", err)
	}
	creds := sazka.Credentials{Email: cfg.Sazka.Email, Password: cfg.Sazka.Password}
	client := &http.Client{Transport: transport, Timeout: cfg.HTTPTimeout}

	return func(ctx context.Context) (watcher.Scraper, error) {
		c, err := sazka.Connect(ctx, creds,
			sazka.WithHTTPClient(client),
			sazka.WithBaseURL(baseURL),
			sazka.WithLocation(cfg.Location()),
		)
		if err != nil {
			return nil, err
		}
		if session, ok := c.Session(); ok {
			log.Sugar().Infow("Logged in", "player_id", session.PlayerID)
		}
		return c, nil
	}, nil
}
