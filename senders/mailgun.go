package senders

import (
	"context"
	"time"

	"github.com/fiffu/bonuswatch/lib/models"
	"github.com/fiffu/bonuswatch/senders/email"
	"github.com/mailgun/mailgun-go/v4"
)

type mailgunSender struct {
	base
}

func (e *mailgunSender) Send(ctx context.Context, alert *models.BonusAlert) error {
	format := &email.BonusEmailFormat{BonusAlert: alert}
	id, err := e.send(ctx, format.Subject(), format.Body(), e.cfg.Mailgun.Recipient)
	if err != nil {
		return err
	}
	e.log.Sugar().Infow("Email sent", "bonus_id", alert.Bonus.ID, "mailgun_id", id)
	return nil
}

func (e *mailgunSender) send(ctx context.Context, subject, body, recipient string) (string, error) {
	mg := mailgun.NewMailgun(e.cfg.Mailgun.Domain, e.cfg.Mailgun.APIKey)
	if e.cfg.Mailgun.APIBase != "" {
		mg.SetAPIBase(e.cfg.Mailgun.APIBase)
	}
	mg.SetClient(e.httpClient())

	// Create message with empty body first.
	message := mg.NewMessage(e.cfg.Mailgun.SenderFrom, subject, "", recipient)
	// SetHtml with the payload proper. This will assign the MIME type properly.
	message.SetHtml(body)

	timeout := time.Duration(e.cfg.Mailgun.TimeoutSecs) * time.Second
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	_, id, err := mg.Send(ctx, message)
	return id, err
}
