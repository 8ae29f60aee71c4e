/*
 * Copyright (c) 2020 Miguel Ángel Ortuño.
 * See the LICENSE file for more information.
 */

package storage

import (
	"fmt"

	memorystorage "github.com/vireo-im/vireo/storage/memory"
	"github.com/vireo-im/vireo/storage/mysql"
	"github.com/vireo-im/vireo/storage/pgsql"
	"github.com/vireo-im/vireo/storage/repository"
)

// New initializes the storage subsystem returning the repository container
// associated to the configured backend.
func New(config *Config) (repository.Container, error) {
	switch config.Type {
	case Memory:
		return memorystorage.New()
	case MySQL:
		return mysql.New(config.MySQL)
	case PostgreSQL:
		return pgsql.New(config.PgSQL)
	default:
		return nil, fmt.Errorf("storage: unrecognized storage type: %d", config.Type)
	}
}
