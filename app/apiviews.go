package app

import (
	"time"

	"github.com/fiffu/bonuswatch/lib/models"
	"github.com/fiffu/bonuswatch/lib/watcher"
)

type NotificationView struct {
	BonusID    int    `json:"bonus_id"`
	NotifiedAt string `json:"notified_at"`
}

func (view NotificationView) From(entity models.BonusNotification) NotificationView {
	return NotificationView{
		BonusID:    entity.BonusID,
		NotifiedAt: isoformat(entity.NotifiedAt),
	}
}

type CalendarView struct {
	Title         string      `json:"title"`
	Subtitle      string      `json:"subtitle"`
	Text          string      `json:"text"`
	URL           string      `json:"url"`
	StartDateTime string      `json:"start_datetime"`
	EndDateTime   string      `json:"end_datetime"`
	Bonuses       []BonusView `json:"bonuses"`
}

func (view CalendarView) From(entity *models.Calendar) CalendarView {
	return CalendarView{
		Title:         entity.Title,
		Subtitle:      entity.Subtitle,
		Text:          entity.Text,
		URL:           entity.URL,
		StartDateTime: isoformat(entity.StartDateTime()),
		EndDateTime:   isoformat(entity.EndDateTime()),
		Bonuses:       FromMany[*models.Bonus, BonusView](entity.Bonuses),
	}
}

type BonusView struct {
	ID            int            `json:"id"`
	Title         string         `json:"title"`
	Text          string         `json:"text"`
	ImageURL      string         `json:"image_url"`
	State         int            `json:"state"`
	Active        bool           `json:"active"`
	StartDateTime string         `json:"start_datetime"`
	EndDateTime   string         `json:"end_datetime"`
	LeftButton    *models.Button `json:"left_button"`
	RightButton   *models.Button `json:"right_button"`
}

func (view BonusView) From(entity *models.Bonus) BonusView {
	return BonusView{
		ID:            entity.ID,
		Title:         entity.Title,
		Text:          entity.Text,
		ImageURL:      entity.ImageURL,
		State:         entity.State,
		Active:        entity.IsActive(),
		StartDateTime: isoformat(entity.StartDateTime()),
		EndDateTime:   isoformat(entity.EndDateTime()),
		LeftButton:    entity.LeftButton,
		RightButton:   entity.RightButton,
	}
}

type RunView struct {
	RunID        string `json:"run_id"`
	StartedAt    string `json:"started_at"`
	ElapsedMsecs int64  `json:"elapsed_msecs"`
	Calendars    int    `json:"calendars"`
	Active       int    `json:"active"`
	Notified     int    `json:"notified"`
	Skipped      int    `json:"skipped"`
	Failed       int    `json:"failed"`
	Error        string `json:"error,omitempty"`
}

func (view RunView) From(entity *watcher.Report) RunView {
	return RunView{
		RunID:        entity.RunID,
		StartedAt:    isoformat(entity.StartedAt),
		ElapsedMsecs: entity.Elapsed.Milliseconds(),
		Calendars:    entity.Calendars,
		Active:       entity.Active,
		Notified:     entity.Notified,
		Skipped:      entity.Skipped,
		Failed:       entity.Failed,
		Error:        entity.Error,
	}
}

type Fromable[Entity any, Repr any] interface {
	From(Entity) Repr
}

func FromMany[T any, U Fromable[T, U]](elems []T) []U {
	out := make([]U, len(elems))
	for i, t := range elems {
		var u U
		out[i] = u.From(t)
	}
	return out
}

func isoformat(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
