package models

import "time"

// BonusAlert is what a sender delivers: one active bonus and the calendar it belongs to.
type BonusAlert struct {
	Calendar   *Calendar
	Bonus      *Bonus
	NotifiedAt time.Time
}
