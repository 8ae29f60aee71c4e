/*
 * Copyright (c) 2020 Miguel Ángel Ortuño.
 * See the LICENSE file for more information.
 */

package feature

import (
	"github.com/vireo-im/vireo/xmpp"
)

// Feature represents a negotiable stream feature advertised
// right after stream establishment.
type Feature interface {
	// Name returns feature unique name.
	Name() string

	// Description returns feature human-readable description.
	Description() string

	// Required returns whether or not the feature is mandatory-to-negotiate.
	Required() bool

	// Element returns feature XML representation as it must be
	// advertised inside the stream features element.
	Element() xmpp.XElement
}
