/*
 * Copyright (c) 2020 Miguel Ángel Ortuño.
 * See the LICENSE file for more information.
 */

package streamerror

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrorReasons(t *testing.T) {
	errs := []struct {
		err    *Error
		reason string
	}{
		{ErrBadFormat, "bad-format"},
		{ErrBadNamespacePrefix, "bad-namespace-prefix"},
		{ErrConflict, "conflict"},
		{ErrConnectionTimeout, "connection-timeout"},
		{ErrHostUnknown, "host-unknown"},
		{ErrImproperAddressing, "improper-addressing"},
		{ErrInternalServerError, "internal-server-error"},
		{ErrInvalidFrom, "invalid-from"},
		{ErrInvalidNamespace, "invalid-namespace"},
		{ErrInvalidXML, "invalid-xml"},
		{ErrNotAuthorized, "not-authorized"},
		{ErrNotWellFormed, "not-well-formed"},
		{ErrPolicyViolation, "policy-violation"},
		{ErrRemoteConnectionFailed, "remote-connection-failed"},
		{ErrReset, "reset"},
		{ErrResourceConstraint, "resource-constraint"},
		{ErrRestrictedXML, "restricted-xml"},
		{ErrSeeOtherHost, "see-other-host"},
		{ErrSystemShutdown, "system-shutdown"},
		{ErrUnsupportedEncoding, "unsupported-encoding"},
		{ErrUnsupportedFeature, "unsupported-feature"},
		{ErrUnsupportedStanzaType, "unsupported-stanza-type"},
		{ErrUnsupportedVersion, "unsupported-version"},
	}
	require.Len(t, errs, 23)

	for _, tc := range errs {
		require.Equal(t, tc.reason, tc.err.Error())

		el := tc.err.Element()
		require.Equal(t, "stream:error", el.Name())

		reason := el.Elements().All()[0]
		require.Equal(t, tc.reason, reason.Name())
		require.Equal(t, streamErrorNamespace, reason.Namespace())
	}
}

func TestErrorWithText(t *testing.T) {
	err := ErrPolicyViolation.WithText("stanza too large")

	el := err.Element()
	text := el.Elements().Child("text")
	require.NotNil(t, text)
	require.Equal(t, streamErrorNamespace, text.Namespace())
	require.Equal(t, "stanza too large", text.Text())

	// original error must not carry the text child
	require.Nil(t, ErrPolicyViolation.Element().Elements().Child("text"))
}
