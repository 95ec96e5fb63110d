package models

import "time"

// BonusNotification records that a bonus was announced. The history is append-only.
type BonusNotification struct {
	ID         uint      `json:"-" gorm:"primaryKey"`
	BonusID    int       `json:"bonus_id" gorm:"index;not null"`
	NotifiedAt time.Time `json:"notified_at" gorm:"not null"`
}

type BonusNotifications []BonusNotification

func (BonusNotification) TableName() string {
	return "bonus_notifications"
}

// Contains reports whether a bonus id has already been notified.
func (ns BonusNotifications) Contains(bonusID int) bool {
	for _, n := range ns {
		if n.BonusID == bonusID {
			return true
		}
	}
	return false
}
