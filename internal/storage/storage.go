// Package storage persists users, carts, catalog entries and feedback.
//
// Reads go through Reader. Every write happens inside InTx, which commits
// only when the callback returns nil.
package storage

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xaenox/shop-bot/internal/models"
)

// Reader is the query side of the store. Lookups by name are case-insensitive.
// Missing entities are reported as errors.ErrNotFound.
type Reader interface {
	GetUser(ctx context.Context, telegramID int64) (*models.User, error)
	GetCart(ctx context.Context, userID string) (*models.Cart, error)

	ListCategories(ctx context.Context) ([]*models.Category, error)
	GetCategoryByName(ctx context.Context, name string) (*models.Category, error)

	ListItems(ctx context.Context) ([]*models.Item, error)
	GetItemByName(ctx context.Context, name string) (*models.Item, error)

	CountFeedbacks(ctx context.Context) (int, error)
	// ListFeedbacks returns feedbacks newest first.
	ListFeedbacks(ctx context.Context, offset, limit int) ([]*models.Feedback, error)
	GetFeedback(ctx context.Context, id string) (*models.Feedback, error)
}

// Writer is available only inside a transaction.
type Writer interface {
	Reader

	CreateUser(ctx context.Context, user *models.User, cart *models.Cart) error
	CreateCategory(ctx context.Context, category *models.Category) error
	DeleteCategory(ctx context.Context, id string) error

	CreateItem(ctx context.Context, item *models.Item) error
	DeleteItem(ctx context.Context, id string) error

	AddToCart(ctx context.Context, cartID, itemID string) error
	// RemoveFromCart removes one entry of itemID and reports whether one existed.
	RemoveFromCart(ctx context.Context, cartID, itemID string) (bool, error)

	CreateFeedback(ctx context.Context, feedback *models.Feedback) error
	DeleteFeedback(ctx context.Context, id string) error
}

// Storage is the full store.
type Storage interface {
	Reader

	// InTx runs fn in a single commit-or-rollback unit.
	InTx(ctx context.Context, fn func(tx Writer) error) error

	// PromoteAdmins marks the users with the given Telegram ids as admins.
	PromoteAdmins(ctx context.Context, telegramIDs []int64) error

	Close() error
}

// DatabaseConfig selects and configures a backend.
type DatabaseConfig struct {
	Driver      string
	Host        string
	Port        int
	User        string
	Password    string
	DBName      string
	SSLMode     string
	Path        string
	DSN         string
	UseInMemory bool
}

// New opens the backend described by cfg.
func New(ctx context.Context, cfg DatabaseConfig, logger *zap.Logger) (Storage, error) {
	if cfg.UseInMemory {
		logger.Info("Using in-memory storage")
		return NewMemoryStorage(), nil
	}

	d, err := dialectFor(cfg.Driver)
	if err != nil {
		return nil, err
	}
	dsn := cfg.DSN
	if dsn == "" {
		dsn = d.dsn(cfg)
	}
	s, err := NewSQLStorage(ctx, d, dsn)
	if err != nil {
		return nil, fmt.Errorf("error opening %s storage: %w", d.name, err)
	}
	logger.Info("Connected to database", zap.String("driver", d.name))
	return s, nil
}
