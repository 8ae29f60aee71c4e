/*
 * Copyright (c) 2020 Miguel Ángel Ortuño.
 * See the LICENSE file for more information.
 */

package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"crypto/subtle"
	"errors"
	"fmt"
	"hash"
	"sync"

	"github.com/vireo-im/vireo/model"
	"github.com/vireo-im/vireo/storage/repository"
	"github.com/vireo-im/vireo/util"
	"golang.org/x/crypto/pbkdf2"
	"golang.org/x/text/secure/precis"
)

const (
	saltLength            = 16
	defaultIterationCount = 4096
)

var (
	// ErrUserAlreadyExists will be returned by Store when trying to register a taken username.
	ErrUserAlreadyExists = errors.New("auth: user already exists")

	// ErrUserNotFound will be returned by Store when removing a non registered username.
	ErrUserNotFound = errors.New("auth: user not found")
)

// dummy verifier used to keep verification time uniform when the
// username is not registered.
var dummyUser = deriveUser("", "", util.RandomBytes(saltLength), defaultIterationCount)

// Store registers and verifies user credentials, keeping only salted
// verifier material in the underlying repository.
type Store struct {
	mu             sync.Mutex
	userRep        repository.User
	iterationCount int
}

// NewStore returns an initialized credential store.
func NewStore(userRep repository.User) *Store {
	return &Store{
		userRep:        userRep,
		iterationCount: defaultIterationCount,
	}
}

// RegisterUser derives verifier material from password and inserts the
// resulting user entity. ErrUserAlreadyExists is returned if username
// was previously registered.
func (s *Store) RegisterUser(ctx context.Context, username, password string) error {
	usr, err := normalizeUsername(username)
	if err != nil {
		return err
	}
	// serialize concurrent registrations: the check and the insert
	// must observe a consistent repository state
	s.mu.Lock()
	defer s.mu.Unlock()

	exists, err := s.userRep.UserExists(ctx, usr)
	if err != nil {
		return err
	}
	if exists {
		return ErrUserAlreadyExists
	}
	user := deriveUser(usr, password, util.RandomBytes(saltLength), s.iterationCount)
	return s.userRep.UpsertUser(ctx, user)
}

// RemoveUser deletes a previously registered username. ErrUserNotFound
// is returned if username was not registered.
func (s *Store) RemoveUser(ctx context.Context, username string) error {
	usr, err := normalizeUsername(username)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	exists, err := s.userRep.UserExists(ctx, usr)
	if err != nil {
		return err
	}
	if !exists {
		return ErrUserNotFound
	}
	return s.userRep.DeleteUser(ctx, usr)
}

// VerifyPassword tells whether or not password matches username
// registered credentials. A non registered username is indistinguishable
// from a wrong password.
func (s *Store) VerifyPassword(ctx context.Context, username, password string) (bool, error) {
	usr, err := normalizeUsername(username)
	if err != nil {
		return false, err
	}
	user, err := s.userRep.FetchUser(ctx, usr)
	if err != nil {
		return false, err
	}
	known := 1
	if user == nil {
		user = dummyUser
		known = 0
	}
	derived := deriveUser(user.Username, password, user.Salt, user.IterationCount)

	match := subtle.ConstantTimeCompare(derived.StoredKey, user.StoredKey)
	match &= subtle.ConstantTimeCompare(derived.ServerKey, user.ServerKey)
	return known&match == 1, nil
}

func normalizeUsername(username string) (string, error) {
	usr, err := precis.UsernameCaseMapped.String(username)
	if err != nil {
		return "", fmt.Errorf("auth: invalid username: %v", err)
	}
	return usr, nil
}

func deriveUser(username, password string, salt []byte, iterationCount int) *model.User {
	saltedPassword := SaltedPassword([]byte(password), salt, iterationCount, sha1.New)

	clientKey := keyedHash(sha1.New, saltedPassword, []byte("Client Key"))
	serverKey := keyedHash(sha1.New, saltedPassword, []byte("Server Key"))

	h := sha1.New()
	h.Write(clientKey)
	storedKey := h.Sum(nil)

	return &model.User{
		Username:       username,
		Salt:           salt,
		StoredKey:      storedKey,
		ServerKey:      serverKey,
		IterationCount: iterationCount,
	}
}

func keyedHash(h func() hash.Hash, key, b []byte) []byte {
	m := hmac.New(h, key)
	m.Write(b)
	return m.Sum(nil)
}

// SaltedPassword computes a salted password using the HMAC variant of PBKDF2.
func SaltedPassword(password, salt []byte, iterationCount int, h func() hash.Hash) []byte {
	hKeyLen := h().Size()
	return pbkdf2.Key(password, salt, iterationCount, hKeyLen, h)
}
