package measurement

import (
	"context"
	"errors"
	"io"
)

var (
	ErrNotFound = errors.New("not found")
)

// UpdateFunc receives the current user collection and returns the collection
// that replaces it. Returning an error aborts the update.
type UpdateFunc func(users []User) ([]User, error)

// UserDirectory stores the user collection
type UserDirectory interface {
	ListUsers(ctx context.Context) ([]User, error)
	FindUser(ctx context.Context, id int64) (User, error)
	// SaveUsers overwrites the whole collection
	SaveUsers(ctx context.Context, users []User) error
	// UpdateUsers loads, mutates and saves the collection while holding the store lock
	UpdateUsers(ctx context.Context, fn UpdateFunc) error
}

// MeasurementStore stores measurements
type MeasurementStore interface {
	// AppendMeasurement stores m with the next free id and returns the stored copy
	AppendMeasurement(ctx context.Context, m Measurement) (Measurement, error)
	ListMeasurements(ctx context.Context, filter Filter) ([]Measurement, error)
}

// Store persists both users and measurements
type Store interface {
	UserDirectory
	MeasurementStore
	io.Closer
}
