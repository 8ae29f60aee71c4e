/*
 * Copyright (c) 2020 Miguel Ángel Ortuño.
 * See the LICENSE file for more information.
 */

package streamerror

import (
	"github.com/vireo-im/vireo/xmpp"
)

const streamErrorNamespace = "urn:ietf:params:xml:ns:xmpp-streams"

// Error represents a "stream:error" element.
type Error struct {
	reason string
	text   string
}

var (
	// ErrBadFormat represents 'bad-format' stream error.
	ErrBadFormat = newStreamError("bad-format")

	// ErrBadNamespacePrefix represents 'bad-namespace-prefix' stream error.
	ErrBadNamespacePrefix = newStreamError("bad-namespace-prefix")

	// ErrConflict represents 'conflict' stream error.
	ErrConflict = newStreamError("conflict")

	// ErrConnectionTimeout represents 'connection-timeout' stream error.
	ErrConnectionTimeout = newStreamError("connection-timeout")

	// ErrHostUnknown represents 'host-unknown' stream error.
	ErrHostUnknown = newStreamError("host-unknown")

	// ErrImproperAddressing represents 'improper-addressing' stream error.
	ErrImproperAddressing = newStreamError("improper-addressing")

	// ErrInternalServerError represents 'internal-server-error' stream error.
	ErrInternalServerError = newStreamError("internal-server-error")

	// ErrInvalidFrom represents 'invalid-from' stream error.
	ErrInvalidFrom = newStreamError("invalid-from")

	// ErrInvalidNamespace represents 'invalid-namespace' stream error.
	ErrInvalidNamespace = newStreamError("invalid-namespace")

	// ErrInvalidXML represents 'invalid-xml' stream error.
	ErrInvalidXML = newStreamError("invalid-xml")

	// ErrNotAuthorized represents 'not-authorized' stream error.
	ErrNotAuthorized = newStreamError("not-authorized")

	// ErrNotWellFormed represents 'not-well-formed' stream error.
	ErrNotWellFormed = newStreamError("not-well-formed")

	// ErrPolicyViolation represents 'policy-violation' stream error.
	ErrPolicyViolation = newStreamError("policy-violation")

	// ErrRemoteConnectionFailed represents 'remote-connection-failed' stream error.
	ErrRemoteConnectionFailed = newStreamError("remote-connection-failed")

	// ErrReset represents 'reset' stream error.
	ErrReset = newStreamError("reset")

	// ErrResourceConstraint represents 'resource-constraint' stream error.
	ErrResourceConstraint = newStreamError("resource-constraint")

	// ErrRestrictedXML represents 'restricted-xml' stream error.
	ErrRestrictedXML = newStreamError("restricted-xml")

	// ErrSeeOtherHost represents 'see-other-host' stream error.
	ErrSeeOtherHost = newStreamError("see-other-host")

	// ErrSystemShutdown represents 'system-shutdown' stream error.
	ErrSystemShutdown = newStreamError("system-shutdown")

	// ErrUnsupportedEncoding represents 'unsupported-encoding' stream error.
	ErrUnsupportedEncoding = newStreamError("unsupported-encoding")

	// ErrUnsupportedFeature represents 'unsupported-feature' stream error.
	ErrUnsupportedFeature = newStreamError("unsupported-feature")

	// ErrUnsupportedStanzaType represents 'unsupported-stanza-type' stream error.
	ErrUnsupportedStanzaType = newStreamError("unsupported-stanza-type")

	// ErrUnsupportedVersion represents 'unsupported-version' stream error.
	ErrUnsupportedVersion = newStreamError("unsupported-version")
)

func newStreamError(reason string) *Error {
	return &Error{reason: reason}
}

// WithText returns a copy of the stream error attaching a
// human-readable text child.
func (se *Error) WithText(text string) *Error {
	return &Error{reason: se.reason, text: text}
}

// Element returns stream error XML node.
//
// Stream errors are unrecoverable: once the returned element has been
// written the stream must be closed and the underlying transport
// terminated.
func (se *Error) Element() *xmpp.Element {
	ret := xmpp.NewElementName("stream:error")
	reason := xmpp.NewElementNamespace(se.reason, streamErrorNamespace)
	ret.AppendElement(reason)
	if len(se.text) > 0 {
		text := xmpp.NewElementNamespace("text", streamErrorNamespace)
		text.SetText(se.text)
		ret.AppendElement(text)
	}
	return ret
}

// Error satisfies error interface.
func (se *Error) Error() string {
	return se.reason
}
