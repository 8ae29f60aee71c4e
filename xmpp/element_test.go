/*
 * Copyright (c) 2020 Miguel Ángel Ortuño.
 * See the LICENSE file for more information.
 */

package xmpp

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestElement_Attributes(t *testing.T) {
	e := NewElementNamespace("presence", "jabber:client")
	e.SetID("id-1234")
	e.SetLanguage("en")
	e.SetVersion("1.0")
	e.SetFrom("ortuman@vireo.im")
	e.SetTo("noelia@vireo.im")
	e.SetType("probe")

	require.Equal(t, "presence", e.Name())
	require.Equal(t, "jabber:client", e.Namespace())
	require.Equal(t, "id-1234", e.ID())
	require.Equal(t, "en", e.Language())
	require.Equal(t, "1.0", e.Version())
	require.Equal(t, "ortuman@vireo.im", e.From())
	require.Equal(t, "noelia@vireo.im", e.To())
	require.Equal(t, "probe", e.Type())

	e.RemoveAttribute("type")
	require.Equal(t, "", e.Type())
	require.Equal(t, 6, e.Attributes().Count())
}

func TestElement_ToXML(t *testing.T) {
	e := NewElementNamespace("auth", "urn:ietf:params:xml:ns:xmpp-sasl")
	e.SetAttribute("mechanism", "PLAIN")
	e.SetText("AGp1bGlldAByMG0zMG15cjBtMzA=")

	buf := new(bytes.Buffer)
	e.ToXML(buf, true)
	require.Equal(t, `<auth xmlns='urn:ietf:params:xml:ns:xmpp-sasl' mechanism='PLAIN'>AGp1bGlldAByMG0zMG15cjBtMzA=</auth>`, buf.String())
}

func TestElement_ToXMLWithoutClosing(t *testing.T) {
	e := NewElementName("stream:stream")
	e.SetAttribute("xmlns", "jabber:client")
	e.SetAttribute("xmlns:stream", "http://etherx.jabber.org/streams")

	buf := new(bytes.Buffer)
	e.ToXML(buf, false)
	require.Equal(t, `<stream:stream xmlns='jabber:client' xmlns:stream='http://etherx.jabber.org/streams'>`, buf.String())
}

func TestElement_EmptyElementToXML(t *testing.T) {
	e := NewElementName("proceed")
	e.SetNamespace("urn:ietf:params:xml:ns:xmpp-tls")

	buf := new(bytes.Buffer)
	e.ToXML(buf, true)
	require.Equal(t, `<proceed xmlns='urn:ietf:params:xml:ns:xmpp-tls'/>`, buf.String())
}

func TestElement_TextEscaping(t *testing.T) {
	e := NewElementName("body")
	e.SetText(`5 > 3 & 2 < 4`)

	buf := new(bytes.Buffer)
	e.ToXML(buf, true)
	require.Equal(t, `<body>5 &gt; 3 &amp; 2 &lt; 4</body>`, buf.String())
}

func TestElement_SubElements(t *testing.T) {
	e := NewElementName("stream:features")
	mechanisms := NewElementNamespace("mechanisms", "urn:ietf:params:xml:ns:xmpp-sasl")
	m1 := NewElementName("mechanism")
	m1.SetText("SCRAM-SHA-1")
	m2 := NewElementName("mechanism")
	m2.SetText("SCRAM-SHA-1-PLUS")
	mechanisms.AppendElements([]XElement{m1, m2})
	e.AppendElement(mechanisms)

	require.Equal(t, 1, e.Elements().Count())
	ms := e.Elements().ChildNamespace("mechanisms", "urn:ietf:params:xml:ns:xmpp-sasl")
	require.NotNil(t, ms)
	require.Equal(t, 2, ms.Elements().Count())
	require.Equal(t, "SCRAM-SHA-1", ms.Elements().All()[0].Text())

	require.Equal(t, `<stream:features><mechanisms xmlns='urn:ietf:params:xml:ns:xmpp-sasl'><mechanism>SCRAM-SHA-1</mechanism><mechanism>SCRAM-SHA-1-PLUS</mechanism></mechanisms></stream:features>`, e.String())
}

func TestElement_Copy(t *testing.T) {
	e := NewElementNamespace("iq", "jabber:client")
	e.SetID("iq-1")
	e.AppendElement(NewElementName("query"))

	cp := NewElementFromElement(e)
	require.Equal(t, e.String(), cp.String())

	cp.SetID("iq-2")
	require.Equal(t, "iq-1", e.ID())
	require.Equal(t, "iq-2", cp.ID())
}
