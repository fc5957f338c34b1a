// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

package cache

import (
	"context"
	"sync"
	"time"
)

// MockStore is an in-memory implementation of Store for testing
type MockStore struct {
	mu      sync.Mutex
	entries map[string]mockEntry
	now     func() time.Time
}

type mockEntry struct {
	value    []byte
	deadline time.Time
}

func NewMockStore() *MockStore {
	return &MockStore{
		entries: make(map[string]mockEntry),
		now:     time.Now,
	}
}

func (m *MockStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !e.deadline.IsZero() && m.now().After(e.deadline) {
		delete(m.entries, key)
		return nil, false, nil
	}
	return e.value, true, nil
}

func (m *MockStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := mockEntry{value: value}
	if ttl > 0 {
		e.deadline = m.now().Add(ttl)
	}
	m.entries[key] = e
	return nil
}

func (m *MockStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.entries, key)
	return nil
}
