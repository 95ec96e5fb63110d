// Package history persists which bonuses have already been notified.
package history

import (
	"context"

	"github.com/fiffu/bonuswatch/lib/models"
)

const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Store is an append-only log of notifications. Callers serialize writes.
type Store interface {
	List(ctx context.Context) (models.BonusNotifications, error)
	Append(ctx context.Context, n models.BonusNotification) error
}
