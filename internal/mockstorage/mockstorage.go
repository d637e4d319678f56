// Package mockstorage provides a testify-based mock implementation
// of the dataset storage interface. It is used for unit testing the
// repository and the HTTP handlers by simulating storage behavior.
package mockstorage

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/patric-chuzhbe/kidneyhealth/internal/models"
)

// StorageMock is a testify mock that implements storage.Storage.
type StorageMock struct {
	mock.Mock
}

// Load mocks reading the whole dataset. The returned dataset is cloned so
// that callers mutating it do not change what the next expectation returns.
func (m *StorageMock) Load(ctx context.Context) (*models.Dataset, error) {
	args := m.Called(ctx)
	dataset, _ := args.Get(0).(*models.Dataset)
	if dataset != nil {
		dataset = dataset.Clone()
	}
	return dataset, args.Error(1)
}

// Save mocks persisting the whole dataset.
func (m *StorageMock) Save(ctx context.Context, dataset *models.Dataset) error {
	args := m.Called(ctx, dataset)
	return args.Error(0)
}

// Ping mocks a storage health check.
func (m *StorageMock) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// Close mocks closing the storage and releasing resources.
func (m *StorageMock) Close() error {
	args := m.Called()
	return args.Error(0)
}
