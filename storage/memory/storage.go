/*
 * Copyright (c) 2020 Miguel Ángel Ortuño.
 * See the LICENSE file for more information.
 */

package memorystorage

import (
	"errors"
	"sync"
)

// ErrMocked will be returned by any repository method once mocked error is activated.
var ErrMocked = errors.New("memorystorage: mocked error")

type memoryStorage struct {
	mu      sync.RWMutex
	mockErr bool
}

// EnableMockedError makes the next invocations fail returning ErrMocked.
func (m *memoryStorage) EnableMockedError() {
	m.mu.Lock()
	m.mockErr = true
	m.mu.Unlock()
}

// DisableMockedError disables mocked error.
func (m *memoryStorage) DisableMockedError() {
	m.mu.Lock()
	m.mockErr = false
	m.mu.Unlock()
}

func (m *memoryStorage) inWriteLock(f func() error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.mockErr {
		return ErrMocked
	}
	return f()
}

func (m *memoryStorage) inReadLock(f func() error) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.mockErr {
		return ErrMocked
	}
	return f()
}
