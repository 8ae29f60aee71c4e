/*
 * Copyright (c) 2020 Miguel Ángel Ortuño.
 * See the LICENSE file for more information.
 */

package memorystorage

import (
	"context"

	"github.com/vireo-im/vireo/storage/repository"
)

type memoryContainer struct {
	user *User
}

// New initializes in-memory storage and returns associated container.
func New() (repository.Container, error) {
	var c memoryContainer

	c.user = NewUser()
	return &c, nil
}

func (c *memoryContainer) User() repository.User { return c.user }

func (c *memoryContainer) Close(_ context.Context) error { return nil }
