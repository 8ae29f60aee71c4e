/*
 * Copyright (c) 2020 Miguel Ángel Ortuño.
 * See the LICENSE file for more information.
 */

package util

import "crypto/rand"

// RandomBytes generates a cryptographically strong random bytes slice of length 'len'.
func RandomBytes(len int) []byte {
	b := make([]byte, len)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return b
}
