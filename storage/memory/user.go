/*
 * Copyright (c) 2020 Miguel Ángel Ortuño.
 * See the LICENSE file for more information.
 */

package memorystorage

import (
	"context"

	"github.com/vireo-im/vireo/model"
)

// User represents an in-memory user storage.
type User struct {
	memoryStorage
	users map[string]*model.User
}

// NewUser returns an instance of User in-memory storage.
func NewUser() *User {
	return &User{
		users: make(map[string]*model.User),
	}
}

// UpsertUser inserts a new user entity into storage, or updates it if previously inserted.
func (m *User) UpsertUser(_ context.Context, user *model.User) error {
	return m.inWriteLock(func() error {
		m.users[user.Username] = cloneUser(user)
		return nil
	})
}

// DeleteUser deletes a user entity from storage.
func (m *User) DeleteUser(_ context.Context, username string) error {
	return m.inWriteLock(func() error {
		delete(m.users, username)
		return nil
	})
}

// FetchUser retrieves a user entity from storage.
func (m *User) FetchUser(_ context.Context, username string) (*model.User, error) {
	var user *model.User
	if err := m.inReadLock(func() error {
		if usr, ok := m.users[username]; ok {
			user = cloneUser(usr)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return user, nil
}

// UserExists tells whether or not a user exists within storage.
func (m *User) UserExists(_ context.Context, username string) (bool, error) {
	var ok bool
	if err := m.inReadLock(func() error {
		_, ok = m.users[username]
		return nil
	}); err != nil {
		return false, err
	}
	return ok, nil
}

func cloneUser(user *model.User) *model.User {
	cp := &model.User{
		Username:       user.Username,
		IterationCount: user.IterationCount,
	}
	cp.Salt = append(cp.Salt, user.Salt...)
	cp.StoredKey = append(cp.StoredKey, user.StoredKey...)
	cp.ServerKey = append(cp.ServerKey, user.ServerKey...)
	return cp
}
