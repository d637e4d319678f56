// Package storage declares the contract every dataset backend satisfies.
package storage

import (
	"context"

	"github.com/patric-chuzhbe/kidneyhealth/internal/models"
)

// Storage loads and persists the whole dataset at once. Implementations keep
// no state between calls that callers could observe: every Load returns a
// fresh copy and every Save replaces what was stored before.
type Storage interface {
	Load(ctx context.Context) (*models.Dataset, error)

	Save(ctx context.Context, dataset *models.Dataset) error

	Ping(ctx context.Context) error

	Close() error
}
