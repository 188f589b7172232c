package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/solvedigitale/Digitext-last/internal/models"
)

// AccountStore defines the interface for persistent storage of connected
// provider accounts. Both PostgresStore and SQLiteStore implement this
// interface.
type AccountStore interface {
	// Connection management
	Close()
	Ping(ctx context.Context) error

	// Account operations
	CreateAccount(ctx context.Context, a *models.Account) (*models.Account, error)
	GetAccountByID(ctx context.Context, id uuid.UUID) (*models.Account, error)
	ListAccounts(ctx context.Context) ([]models.Account, error)
	DeleteAccount(ctx context.Context, id uuid.UUID) (bool, error)
	CountAccounts(ctx context.Context) (int64, error)
}

// Deduper filters redelivered webhook events by provider message id.
type Deduper interface {
	// FirstDelivery records the message id and reports whether this is the
	// first time it was seen. Implementations fail open: when the backing
	// store is unreachable the event is treated as new, because dropping a
	// genuine message is worse than storing a duplicate.
	FirstDelivery(ctx context.Context, platform models.Platform, messageID string) bool
}
