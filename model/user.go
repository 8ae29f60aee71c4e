/*
 * Copyright (c) 2020 Miguel Ángel Ortuño.
 * See the LICENSE file for more information.
 */

package model

// User represents a registered account entity. The plain password is
// never kept: only the salted verifier material needed to run SCRAM
// exchanges and to check offered passwords.
type User struct {
	Username       string
	Salt           []byte
	StoredKey      []byte
	ServerKey      []byte
	IterationCount int
}
