package storage

import (
	"context"

	"fintrack/internal/core"
)

// Store persists the whole transaction table.
//
// Load returns every row in table order; Save replaces the stored content with rows.
type Store interface {
	Load(ctx context.Context) ([]core.Transaction, error)
	Save(ctx context.Context, rows []core.Transaction) error
}
