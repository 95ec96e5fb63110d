package watcher

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sort"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"github.com/fiffu/bonuswatch/lib/models"
	"github.com/fiffu/bonuswatch/lib/pushover"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Report summarizes one check run.
type Report struct {
	RunID     string        `json:"run_id"`
	StartedAt time.Time     `json:"started_at"`
	Elapsed   time.Duration `json:"elapsed"`
	Error     string        `json:"error,omitempty"`
	runMetrics
}

// Run performs one check. Runs never overlap. A bonus is recorded in the history as soon as
// at least one channel has delivered it; bonuses no channel could deliver are retried next run.
func (w *Watcher) Run(ctx context.Context) (*Report, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	report := &Report{RunID: uuid.NewString(), StartedAt: w.now()}
	log := w.log.Sugar().With("run_id", report.RunID)

	err := w.run(ctx, report, log)
	report.Elapsed = w.now().Sub(report.StartedAt)
	if err != nil {
		report.Error = err.Error()
	}
	w.setLastReport(report)

	args := append(report.logArgs(), "elapsed_msecs", int(report.Elapsed.Milliseconds()))
	if err != nil {
		log.Errorw("Run completed with errors", append(args, "err", err)...)
		return report, err
	}
	log.Infow(fmt.Sprintf("Processed %d calendars", report.Calendars), args...)
	return report, nil
}

func (w *Watcher) run(ctx context.Context, report *Report, log *zap.SugaredLogger) error {
	scraper, err := w.connect(ctx)
	if err != nil {
		return fmt.Errorf("log in: %w", err)
	}

	notified, err := w.store.List(ctx)
	if err != nil {
		return fmt.Errorf("load history: %w", err)
	}

	calendars, err := scraper.Calendars(ctx)
	if err != nil {
		return fmt.Errorf("fetch calendars: %w", err)
	}
	report.Calendars = len(calendars)

	var failures []error
	for _, calendar := range calendars {
		for _, bonus := range calendar.ActiveBonuses() {
			report.Active++
			if notified.Contains(bonus.ID) {
				report.Skipped++
				continue
			}

			alert := &models.BonusAlert{Calendar: calendar, Bonus: bonus, NotifiedAt: w.now()}
			if err := w.deliver(ctx, alert); err != nil {
				report.Failed++
				failures = append(failures, fmt.Errorf("bonus %d: %w", bonus.ID, err))
				continue
			}

			n := models.BonusNotification{BonusID: bonus.ID, NotifiedAt: alert.NotifiedAt}
			if err := w.store.Append(ctx, n); err != nil {
				return fmt.Errorf("record bonus %d: %w", bonus.ID, err)
			}
			notified = append(notified, n)
			report.Notified++
			log.Infow("Bonus notified", "bonus_id", bonus.ID, "calendar", calendar.Title)
		}
	}

	if len(failures) > 0 {
		return fmt.Errorf("%d of %d notifications failed: %w", len(failures), report.Active-report.Skipped, errors.Join(failures...))
	}
	return nil
}

// deliver sends alert through every channel. It fails only when no channel succeeded.
func (w *Watcher) deliver(ctx context.Context, alert *models.BonusAlert) error {
	if len(w.senders) == 0 {
		return errors.New("no notification channels configured")
	}

	channels := make([]string, 0, len(w.senders))
	for name := range w.senders {
		channels = append(channels, name)
	}
	sort.Strings(channels)

	var errs []error
	delivered := 0
	for _, name := range channels {
		sender := w.senders[name]
		err := retry.Do(
			func() error { return sender.Send(ctx, alert) },
			retry.Attempts(w.retryAttempts),
			retry.Delay(w.retryDelay),
			retry.MaxDelay(time.Minute),
			retry.Context(ctx),
			retry.OnRetry(func(n uint, err error) {
				w.log.Sugar().Infow("Retrying notification after error",
					"attempt", n, "channel", name, "bonus_id", alert.Bonus.ID, "err", err)
			}),
			retry.RetryIf(isTransient),
		)
		if err != nil {
			w.log.Sugar().Errorw("Failed to send notification", "channel", name, "bonus_id", alert.Bonus.ID, "err", err)
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}
		delivered++
	}

	if delivered == 0 {
		return errors.Join(errs...)
	}
	return nil
}

// isTransient reports whether a failed send is worth repeating.
func isTransient(err error) bool {
	if pushover.IsConnectionError(err) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
