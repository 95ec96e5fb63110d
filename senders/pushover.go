package senders

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"github.com/fiffu/bonuswatch/lib/models"
	"github.com/fiffu/bonuswatch/lib/pushover"
)

type pushoverSender struct {
	base

	mu     sync.Mutex
	client *pushover.Client
}

// connect validates the configured token and user key once. Later calls reuse the client.
func (p *pushoverSender) connect(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client != nil {
		return nil
	}

	baseURL, err := url.Parse(p.cfg.Pushover.BaseURL)
	if err != nil {
		return fmt.Errorf("PUSHOVER_BASE_URL: %w", err)
	}
	client, err := pushover.NewClient(ctx, p.cfg.Pushover.APIToken, p.cfg.Pushover.UserKey,
		pushover.WithBaseURL(baseURL),
		pushover.WithHTTPClient(p.httpClient()),
	)
	if err != nil {
		return err
	}
	p.log.Sugar().Infow("Pushover credentials validated")
	p.client = client
	return nil
}

func (p *pushoverSender) Send(ctx context.Context, alert *models.BonusAlert) error {
	if err := p.connect(ctx); err != nil {
		return err
	}

	format := &pushFormat{alert}
	msg := &pushover.Message{
		Title:     format.Title(),
		Message:   format.Body(),
		HTML:      true,
		URL:       alert.Calendar.URL,
		Timestamp: alert.NotifiedAt.Unix(),
		Sound:     pushover.Sound(p.cfg.Pushover.Sound),
		Priority:  pushover.Priority(p.cfg.Pushover.Priority),
		Device:    p.cfg.Pushover.Device,
	}

	limits, err := p.client.SendMessage(ctx, msg)
	if err != nil {
		return err
	}

	log := p.log.Sugar()
	log.Infow("Pushover message sent",
		"bonus_id", alert.Bonus.ID,
		"limit", limits.Limit,
		"remaining", limits.Remaining,
		"reset", limits.Reset,
	)
	if limits.Limit > 0 && limits.Remaining == 0 {
		log.Warnw("Pushover monthly quota exhausted", "reset", limits.Reset)
	}
	return nil
}
