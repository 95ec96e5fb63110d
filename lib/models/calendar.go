package models

import (
	"errors"
	"time"
)

// BonusStateActive is the only state code with a known meaning. Other codes are passed through.
const BonusStateActive = 1

// Hour of day used for a bonus's derived start time.
const bonusStartHour = 12

type Button struct {
	Type  string `json:"type"`
	Text  string `json:"text,omitempty"`
	Link  string `json:"link,omitempty"`
	Bonus string `json:"bonus,omitempty"`
}

type Bonus struct {
	ID          int     `json:"id"`
	Title       string  `json:"title"`
	Text        string  `json:"text"`
	ImageURL    string  `json:"image_url"`
	LeftButton  *Button `json:"left_button,omitempty"`
	RightButton *Button `json:"right_button,omitempty"`
	State       int     `json:"state"`

	startDateTime time.Time
	endDateTime   time.Time
}

// NewBonus derives the start time from end: noon on the same date, in end's location.
func NewBonus(id int, end time.Time) *Bonus {
	y, m, d := end.Date()
	return &Bonus{
		ID:            id,
		startDateTime: time.Date(y, m, d, bonusStartHour, 0, 0, 0, end.Location()),
		endDateTime:   end,
	}
}

func (b *Bonus) StartDateTime() time.Time { return b.startDateTime }
func (b *Bonus) EndDateTime() time.Time   { return b.endDateTime }
func (b *Bonus) IsActive() bool           { return b.State == BonusStateActive }

type Calendar struct {
	Title    string   `json:"title"`
	Subtitle string   `json:"subtitle"`
	Text     string   `json:"text"`
	URL      string   `json:"url"`
	Bonuses  []*Bonus `json:"bonuses"`

	startDateTime time.Time
	endDateTime   time.Time
}

var ErrEmptyCalendar = errors.New("calendar must contain at least one bonus")

// NewCalendar builds a calendar spanning the earliest bonus start to the latest bonus end.
func NewCalendar(title, subtitle, text, url string, bonuses []*Bonus) (*Calendar, error) {
	if len(bonuses) == 0 {
		return nil, ErrEmptyCalendar
	}

	start, end := bonuses[0].StartDateTime(), bonuses[0].EndDateTime()
	for _, b := range bonuses[1:] {
		if b.StartDateTime().Before(start) {
			start = b.StartDateTime()
		}
		if b.EndDateTime().After(end) {
			end = b.EndDateTime()
		}
	}

	return &Calendar{
		Title:         title,
		Subtitle:      subtitle,
		Text:          text,
		URL:           url,
		Bonuses:       bonuses,
		startDateTime: start,
		endDateTime:   end,
	}, nil
}

func (c *Calendar) StartDateTime() time.Time { return c.startDateTime }
func (c *Calendar) EndDateTime() time.Time   { return c.endDateTime }

// ActiveBonuses returns bonuses in calendar order whose state is active.
func (c *Calendar) ActiveBonuses() []*Bonus {
	active := make([]*Bonus, 0, len(c.Bonuses))
	for _, b := range c.Bonuses {
		if b.IsActive() {
			active = append(active, b)
		}
	}
	return active
}
