package history

import (
	"context"
	"fmt"

	"github.com/fiffu/bonuswatch/lib/models"
	"gorm.io/gorm"
)

// DBStore keeps the history in the bonus_notifications table.
type DBStore struct {
	db *gorm.DB
}

func NewDBStore(db *gorm.DB) *DBStore {
	return &DBStore{db: db}
}

func (s *DBStore) List(ctx context.Context) (models.BonusNotifications, error) {
	var list models.BonusNotifications
	if err := s.db.WithContext(ctx).Order("id").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return list, nil
}

func (s *DBStore) Append(ctx context.Context, n models.BonusNotification) error {
	n.ID = 0
	if err := s.db.WithContext(ctx).Create(&n).Error; err != nil {
		return fmt.Errorf("append notification: %w", err)
	}
	return nil
}
