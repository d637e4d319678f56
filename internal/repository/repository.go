// Package repository implements the user and kidney operations on top of a
// dataset storage. Every call loads the whole dataset, mutates it and saves
// it back; nothing is cached between calls and nothing is locked, so two
// concurrent mutations may overwrite each other.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/thoas/go-funk"

	"github.com/patric-chuzhbe/kidneyhealth/internal/models"
)

var (
	// ErrNotFound is returned when no user has the requested id.
	ErrNotFound = errors.New("user not found")

	// ErrNoUnhealthyKidneys is returned by RemoveUnhealthyKidneys when there is nothing to remove.
	ErrNoUnhealthyKidneys = errors.New("user has no unhealthy kidneys")
)

type datasetKeeper interface {
	Load(ctx context.Context) (*models.Dataset, error)
	Save(ctx context.Context, dataset *models.Dataset) error
}

type Repository struct {
	db datasetKeeper
}

func New(db datasetKeeper) *Repository {
	return &Repository{db: db}
}

func (r *Repository) load(ctx context.Context) (*models.Dataset, error) {
	dataset, err := r.db.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("in internal/repository/repository.go/load(): error while `r.db.Load()` calling: %w", err)
	}

	return dataset.Normalize(), nil
}

func (r *Repository) save(ctx context.Context, dataset *models.Dataset) error {
	if err := r.db.Save(ctx, dataset); err != nil {
		return fmt.Errorf("in internal/repository/repository.go/save(): error while `r.db.Save()` calling: %w", err)
	}

	return nil
}

// mutateUser runs fn against the user with the given id and persists the
// dataset if fn succeeds.
func (r *Repository) mutateUser(ctx context.Context, userID int, fn func(usr *models.User) error) error {
	dataset, err := r.load(ctx)
	if err != nil {
		return err
	}

	idx := dataset.IndexOf(userID)
	if idx == -1 {
		return ErrNotFound
	}

	if err := fn(dataset.Users[idx]); err != nil {
		return err
	}

	return r.save(ctx, dataset)
}

// FindByID returns the user with the given id or ErrNotFound.
func (r *Repository) FindByID(ctx context.Context, userID int) (*models.User, error) {
	dataset, err := r.load(ctx)
	if err != nil {
		return nil, err
	}

	idx := dataset.IndexOf(userID)
	if idx == -1 {
		return nil, ErrNotFound
	}

	return dataset.Users[idx], nil
}

// Create appends a user with no kidneys. Its id is one more than the
// greatest id currently stored.
func (r *Repository) Create(ctx context.Context, name string) (*models.User, error) {
	dataset, err := r.load(ctx)
	if err != nil {
		return nil, err
	}

	usr := &models.User{
		ID:      dataset.NextUserID(),
		Name:    name,
		Kidneys: []models.Kidney{},
	}
	dataset.Users = append(dataset.Users, usr)

	if err := r.save(ctx, dataset); err != nil {
		return nil, err
	}

	return usr, nil
}

// Delete removes the user, keeping the order of the remaining ones.
func (r *Repository) Delete(ctx context.Context, userID int) error {
	dataset, err := r.load(ctx)
	if err != nil {
		return err
	}

	idx := dataset.IndexOf(userID)
	if idx == -1 {
		return ErrNotFound
	}
	dataset.Users = append(dataset.Users[:idx], dataset.Users[idx+1:]...)

	return r.save(ctx, dataset)
}

func (r *Repository) AddKidney(ctx context.Context, userID int, isHealthy bool) error {
	return r.mutateUser(ctx, userID, func(usr *models.User) error {
		usr.Kidneys = append(usr.Kidneys, models.Kidney{Healthy: isHealthy})
		return nil
	})
}

func (r *Repository) MarkAllKidneysHealthy(ctx context.Context, userID int) error {
	return r.mutateUser(ctx, userID, func(usr *models.User) error {
		for i := range usr.Kidneys {
			usr.Kidneys[i].Healthy = true
		}
		return nil
	})
}

// RemoveUnhealthyKidneys drops every unhealthy kidney of the user. When there
// are none it returns ErrNoUnhealthyKidneys and nothing is saved.
func (r *Repository) RemoveUnhealthyKidneys(ctx context.Context, userID int) error {
	return r.mutateUser(ctx, userID, func(usr *models.User) error {
		healthy := healthyKidneys(usr.Kidneys)
		if len(healthy) == len(usr.Kidneys) {
			return ErrNoUnhealthyKidneys
		}
		usr.Kidneys = healthy
		return nil
	})
}

// GetSummary looks the user up and summarizes it.
func (r *Repository) GetSummary(ctx context.Context, userID int) (models.UserSummary, error) {
	usr, err := r.FindByID(ctx, userID)
	if err != nil {
		return models.UserSummary{}, err
	}

	return Summarize(usr), nil
}

// Summarize counts the user's kidneys by health.
func Summarize(usr *models.User) models.UserSummary {
	total := len(usr.Kidneys)
	healthy := len(healthyKidneys(usr.Kidneys))

	return models.UserSummary{
		Name:                     usr.Name,
		NumberOfKidneys:          total,
		NumberOfHealthyKidneys:   healthy,
		NumberOfUnhealthyKidneys: total - healthy,
	}
}

func healthyKidneys(kidneys []models.Kidney) []models.Kidney {
	return funk.Filter(kidneys, func(kidney models.Kidney) bool {
		return kidney.Healthy
	}).([]models.Kidney)
}
