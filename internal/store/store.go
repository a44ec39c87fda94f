// Package store holds the application's user and group directory: the data
// the messaging SDK asks the host for through its provider callbacks.
package store

import (
	"context"
	"sync"

	"imkit/internal/domain"
)

// DataSource is the app-level directory the event adapter relays from.
// Lookups of unknown ids return (nil, nil).
type DataSource interface {
	UserInfoByID(ctx context.Context, id string) (*domain.UserInfo, error)
	UserInfos(ctx context.Context) ([]domain.UserInfo, error)
	GroupMap(ctx context.Context) (map[string]domain.Group, error)

	SetPendingLocationCallback(cb domain.LocationCallback)
	// TakePendingLocationCallback returns the stored callback and clears it.
	TakePendingLocationCallback() domain.LocationCallback
}

// Writer seeds the directory.
type Writer interface {
	PutUser(ctx context.Context, u domain.UserInfo) error
	PutGroup(ctx context.Context, g domain.Group) error
}

// Store is a DataSource that can also be written to and closed.
type Store interface {
	DataSource
	Writer
	Close() error
}

// pendingLocation holds the single outstanding location-picker callback.
// It is process state, never persisted.
type pendingLocation struct {
	mu sync.Mutex
	cb domain.LocationCallback
}

func (p *pendingLocation) SetPendingLocationCallback(cb domain.LocationCallback) {
	p.mu.Lock()
	p.cb = cb
	p.mu.Unlock()
}

func (p *pendingLocation) TakePendingLocationCallback() domain.LocationCallback {
	p.mu.Lock()
	defer p.mu.Unlock()
	cb := p.cb
	p.cb = nil
	return cb
}
