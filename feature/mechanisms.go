/*
 * Copyright (c) 2020 Miguel Ángel Ortuño.
 * See the LICENSE file for more information.
 */

package feature

import (
	"github.com/vireo-im/vireo/xmpp"
)

const saslNamespace = "urn:ietf:params:xml:ns:xmpp-sasl"

// Mechanisms represents the SASL authentication feature, advertising
// the set of mechanisms a client may authenticate with.
type Mechanisms struct {
	required   bool
	mechanisms []string
}

// NewMechanisms returns a new SASL mechanisms feature instance.
func NewMechanisms(mechanisms []string, required bool) *Mechanisms {
	return &Mechanisms{
		required:   required,
		mechanisms: mechanisms,
	}
}

// Name returns feature unique name.
func (f *Mechanisms) Name() string { return "mechanisms" }

// Description returns feature human-readable description.
func (f *Mechanisms) Description() string { return "RFC 6120: Stream feature: SASL mechanisms" }

// Required returns whether or not authentication is mandatory-to-negotiate.
func (f *Mechanisms) Required() bool { return f.required }

// MechanismNames returns the advertised mechanism name set.
func (f *Mechanisms) MechanismNames() []string {
	ret := make([]string, len(f.mechanisms))
	copy(ret, f.mechanisms)
	return ret
}

// Element returns feature XML representation.
func (f *Mechanisms) Element() xmpp.XElement {
	el := xmpp.NewElementNamespace("mechanisms", saslNamespace)
	for _, m := range f.mechanisms {
		mechanism := xmpp.NewElementName("mechanism")
		mechanism.SetText(m)
		el.AppendElement(mechanism)
	}
	if f.required {
		el.AppendElement(xmpp.NewElementName("required"))
	}
	return el
}
