/*
 * Copyright (c) 2020 Miguel Ángel Ortuño.
 * See the LICENSE file for more information.
 */

package mysql

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"
	"github.com/vireo-im/vireo/model"
)

type mySQLUser struct {
	db *sql.DB
}

func newUser(db *sql.DB) *mySQLUser {
	return &mySQLUser{db: db}
}

// UpsertUser inserts a new user entity into storage, or updates it if previously inserted.
func (u *mySQLUser) UpsertUser(ctx context.Context, usr *model.User) error {
	q := sq.Insert("users").
		Columns("username", "salt", "stored_key", "server_key", "iteration_count").
		Values(usr.Username, usr.Salt, usr.StoredKey, usr.ServerKey, usr.IterationCount).
		Suffix("ON DUPLICATE KEY UPDATE salt = ?, stored_key = ?, server_key = ?, iteration_count = ?",
			usr.Salt, usr.StoredKey, usr.ServerKey, usr.IterationCount)

	_, err := q.RunWith(u.db).ExecContext(ctx)
	return err
}

// DeleteUser deletes a user entity from storage.
func (u *mySQLUser) DeleteUser(ctx context.Context, username string) error {
	_, err := sq.Delete("users").
		Where(sq.Eq{"username": username}).
		RunWith(u.db).ExecContext(ctx)
	return err
}

// FetchUser retrieves a user entity from storage.
func (u *mySQLUser) FetchUser(ctx context.Context, username string) (*model.User, error) {
	q := sq.Select("username", "salt", "stored_key", "server_key", "iteration_count").
		From("users").
		Where(sq.Eq{"username": username})

	var usr model.User

	err := q.RunWith(u.db).
		QueryRowContext(ctx).
		Scan(&usr.Username, &usr.Salt, &usr.StoredKey, &usr.ServerKey, &usr.IterationCount)
	switch err {
	case nil:
		return &usr, nil
	case sql.ErrNoRows:
		return nil, nil
	default:
		return nil, err
	}
}

// UserExists tells whether or not a user exists within storage.
func (u *mySQLUser) UserExists(ctx context.Context, username string) (bool, error) {
	q := sq.Select("COUNT(*)").
		From("users").
		Where(sq.Eq{"username": username})

	var count int
	err := q.RunWith(u.db).QueryRowContext(ctx).Scan(&count)
	switch err {
	case nil:
		return count > 0, nil
	default:
		return false, err
	}
}
