package store

import (
	"context"
	"sort"
	"sync"

	"imkit/internal/domain"
)

// MemoryStore is a map-backed Store.
type MemoryStore struct {
	pendingLocation

	mu     sync.RWMutex
	users  map[string]domain.UserInfo
	groups map[string]domain.Group
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:  make(map[string]domain.UserInfo),
		groups: make(map[string]domain.Group),
	}
}

func (m *MemoryStore) UserInfoByID(_ context.Context, id string) (*domain.UserInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

// UserInfos returns every user ordered by id.
func (m *MemoryStore) UserInfos(_ context.Context) ([]domain.UserInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.UserInfo, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (m *MemoryStore) GroupMap(_ context.Context) (map[string]domain.Group, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]domain.Group, len(m.groups))
	for id, g := range m.groups {
		out[id] = g
	}
	return out, nil
}

func (m *MemoryStore) PutUser(_ context.Context, u domain.UserInfo) error {
	m.mu.Lock()
	m.users[u.UserID] = u
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) PutGroup(_ context.Context, g domain.Group) error {
	m.mu.Lock()
	m.groups[g.ID] = g
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Close() error { return nil }
