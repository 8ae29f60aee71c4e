/*
 * Copyright (c) 2020 Miguel Ángel Ortuño.
 * See the LICENSE file for more information.
 */

package stream

import (
	"context"

	"github.com/vireo-im/vireo/xmpp"
)

// InStream represents a generic incoming stream.
type InStream interface {
	ID() string

	// Disconnect closes the stream, sending a stream error element
	// in case err is not nil.
	Disconnect(ctx context.Context, err error)
}

// C2S represents an incoming client or server stream.
type C2S interface {
	InStream

	// Username returns the authenticated username, or an empty
	// string if authentication has not been completed.
	Username() string

	// Authenticated tells whether or not the stream peer has been authenticated.
	Authenticated() bool

	// SendElement writes an XML element to the stream.
	SendElement(ctx context.Context, elem xmpp.XElement)
}
