// Package models holds the persisted dataset types and the request/response
// payloads of the HTTP API.
package models

import "slices"

// Kidney is a health record of a user. It has no identity beyond its position
// in the owning user's list.
type Kidney struct {
	Healthy bool `json:"healthy"`
}

// User is a tracked person together with their kidneys.
type User struct {
	ID      int      `json:"id"`
	Name    string   `json:"name"`
	Kidneys []Kidney `json:"kidneys"`
}

// Dataset is the whole persisted collection of users.
type Dataset struct {
	Users []*User `json:"users"`
}

// NewDataset returns an empty dataset.
func NewDataset() *Dataset {
	return &Dataset{Users: []*User{}}
}

// Normalize replaces nil lists with empty ones so the dataset always
// serializes with `[]` instead of `null`.
func (d *Dataset) Normalize() *Dataset {
	if d.Users == nil {
		d.Users = []*User{}
	}
	users := d.Users[:0]
	for _, usr := range d.Users {
		if usr == nil {
			continue
		}
		if usr.Kidneys == nil {
			usr.Kidneys = []Kidney{}
		}
		users = append(users, usr)
	}
	d.Users = users

	return d
}

// Clone returns a deep copy of the dataset.
func (d *Dataset) Clone() *Dataset {
	result := &Dataset{Users: make([]*User, 0, len(d.Users))}
	for _, usr := range d.Users {
		if usr == nil {
			continue
		}
		result.Users = append(result.Users, &User{
			ID:      usr.ID,
			Name:    usr.Name,
			Kidneys: append([]Kidney{}, usr.Kidneys...),
		})
	}

	return result
}

// IndexOf returns the position of the user with the given id, or -1.
func (d *Dataset) IndexOf(userID int) int {
	return slices.IndexFunc(d.Users, func(usr *User) bool {
		return usr.ID == userID
	})
}

// NextUserID returns one more than the greatest id in use, or 1 for an empty dataset.
func (d *Dataset) NextUserID() int {
	maxID := 0
	for _, usr := range d.Users {
		if usr.ID > maxID {
			maxID = usr.ID
		}
	}

	return maxID + 1
}

// UserSummary is the derived view of a user returned by GET /user/{id}.
type UserSummary struct {
	Name                     string `json:"name"`
	NumberOfKidneys          int    `json:"numberOfKidneys"`
	NumberOfHealthyKidneys   int    `json:"numberOfHealthyKidneys"`
	NumberOfUnhealthyKidneys int    `json:"numberOfUnhealthyKidneys"`
}

type CreateUserRequest struct {
	Name string `json:"name" validate:"required"`
}

type CreateUserResponse struct {
	Msg  string `json:"msg"`
	User *User  `json:"user"`
}

// AddKidneyRequest uses a pointer so that a missing `isHealthy` can be told
// apart from an explicit false.
type AddKidneyRequest struct {
	IsHealthy *bool `json:"isHealthy" validate:"required"`
}

type MessageResponse struct {
	Msg string `json:"msg"`
}

type ErrorResponse struct {
	Msg   string `json:"msg"`
	Error string `json:"error,omitempty"`
}

const (
	StorageTypeUnknown = iota
	StorageTypePostgresql
	StorageTypeFile
	StorageTypeMemory
)
