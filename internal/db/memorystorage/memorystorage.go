// Package memorystorage keeps the dataset in process memory. It is used when
// no file or database is configured, and by tests.
package memorystorage

import (
	"context"

	"github.com/patric-chuzhbe/kidneyhealth/internal/models"
)

type MemoryStorage struct {
	dataset *models.Dataset
}

// New returns a storage seeded with a copy of the given datasets' users,
// or an empty one.
func New(seed ...*models.Dataset) (*MemoryStorage, error) {
	dataset := models.NewDataset()
	for _, s := range seed {
		dataset.Users = append(dataset.Users, s.Clone().Users...)
	}

	return &MemoryStorage{dataset: dataset.Normalize()}, nil
}

func (theStorage *MemoryStorage) Load(ctx context.Context) (*models.Dataset, error) {
	return theStorage.dataset.Clone(), nil
}

func (theStorage *MemoryStorage) Save(ctx context.Context, dataset *models.Dataset) error {
	theStorage.dataset = dataset.Clone().Normalize()

	return nil
}

func (theStorage *MemoryStorage) Close() error {
	return nil
}

func (theStorage *MemoryStorage) Ping(ctx context.Context) error {
	return nil
}
