/*
 * Copyright (c) 2020 Miguel Ángel Ortuño.
 * See the LICENSE file for more information.
 */

package feature

import (
	"github.com/vireo-im/vireo/xmpp"
)

const tlsNamespace = "urn:ietf:params:xml:ns:xmpp-tls"

// StartTLS represents the stream encryption feature.
type StartTLS struct {
	required bool
}

// NewStartTLS returns a new start TLS feature instance.
func NewStartTLS(required bool) *StartTLS {
	return &StartTLS{required: required}
}

// Name returns feature unique name.
func (f *StartTLS) Name() string { return "starttls" }

// Description returns feature human-readable description.
func (f *StartTLS) Description() string { return "RFC 6120: Stream feature: StartTLS" }

// Required returns whether or not stream encryption is mandatory-to-negotiate.
func (f *StartTLS) Required() bool { return f.required }

// Element returns feature XML representation.
func (f *StartTLS) Element() xmpp.XElement {
	el := xmpp.NewElementNamespace("starttls", tlsNamespace)
	if f.required {
		el.AppendElement(xmpp.NewElementName("required"))
	}
	return el
}
