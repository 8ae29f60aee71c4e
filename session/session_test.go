/*
 * Copyright (c) 2020 Miguel Ángel Ortuño.
 * See the LICENSE file for more information.
 */

package session

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/pborman/uuid"
	"github.com/stretchr/testify/require"
	"github.com/vireo-im/vireo/host"
	"github.com/vireo-im/vireo/streamerror"
	"github.com/vireo-im/vireo/transport"
	"github.com/vireo-im/vireo/xmpp"
)

type fakeTransport struct {
	rdBuf *bytes.Buffer
	wrBuf *bytes.Buffer
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{rdBuf: new(bytes.Buffer), wrBuf: new(bytes.Buffer)}
}

func (t *fakeTransport) Read(p []byte) (n int, err error)  { return t.rdBuf.Read(p) }
func (t *fakeTransport) Write(p []byte) (n int, err error) { return t.wrBuf.Write(p) }
func (t *fakeTransport) Close() error                      { return nil }
func (t *fakeTransport) Type() transport.Type              { return transport.Socket }
func (t *fakeTransport) WriteString(s string) error {
	_, err := t.wrBuf.WriteString(s)
	return err
}
func (t *fakeTransport) PeerAddress() net.Addr              { return nil }
func (t *fakeTransport) SetReadDeadline(_ time.Time) error  { return nil }
func (t *fakeTransport) SetWriteDeadline(_ time.Time) error { return nil }
func (t *fakeTransport) StartTLS(_ *tls.Config)             {}
func (t *fakeTransport) ChannelBindingBytes(transport.ChannelBindingMechanism) []byte {
	return nil
}

func setupTestHosts(hostName string) *host.Hosts {
	return host.New([]host.Config{{Name: hostName}})
}

const clientHeader = `<stream:stream xmlns:stream='http://etherx.jabber.org/streams' xmlns='jabber:client' to='vireo.im' from='peer.example' version='1.0'>`

func TestSession_Open(t *testing.T) {
	hosts := setupTestHosts("vireo.im")

	tr := newFakeTransport()
	tr.rdBuf.WriteString(clientHeader)

	sess := New(uuid.New(), &Config{Hosts: hosts, Transport: tr})
	elem, sErr := sess.Receive()
	require.Nil(t, sErr)
	require.Equal(t, "stream:stream", elem.Name())

	require.Nil(t, sess.Open(context.Background()))

	pr := xmpp.NewParser(tr.wrBuf, xmpp.SocketStream, 0)
	_, _ = pr.ParseElement() // read xml header
	resp, err := pr.ParseElement()
	require.Nil(t, err)
	require.Equal(t, "stream:stream", resp.Name())
	require.Equal(t, "jabber:client", resp.Namespace())
	require.Equal(t, "http://etherx.jabber.org/streams", resp.Attributes().Get("xmlns:stream"))
	require.Equal(t, "vireo.im", resp.From())
	require.Equal(t, "peer.example", resp.To())
	require.Equal(t, sess.StreamID(), resp.ID())
	require.Equal(t, "1.0", resp.Version())
	require.True(t, sess.Versioned())

	// open twice
	require.NotNil(t, sess.Open(context.Background()))
}

func TestSession_OpenServer(t *testing.T) {
	hosts := setupTestHosts("vireo.im")

	tr := newFakeTransport()
	tr.rdBuf.WriteString(`<stream:stream xmlns:stream='http://etherx.jabber.org/streams' xmlns='jabber:server' to='vireo.im' version='1.0'>`)

	sess := New(uuid.New(), &Config{Hosts: hosts, Transport: tr, IsServer: true})
	_, sErr := sess.Receive()
	require.Nil(t, sErr)

	require.Nil(t, sess.Open(context.Background()))

	pr := xmpp.NewParser(tr.wrBuf, xmpp.SocketStream, 0)
	_, _ = pr.ParseElement() // read xml header
	resp, err := pr.ParseElement()
	require.Nil(t, err)
	require.Equal(t, "jabber:server", resp.Namespace())
	require.Equal(t, "", resp.To()) // no destination was addressed
}

func TestSession_OpenUnversioned(t *testing.T) {
	hosts := setupTestHosts("vireo.im")

	tr := newFakeTransport()
	tr.rdBuf.WriteString(`<stream:stream xmlns:stream='http://etherx.jabber.org/streams' xmlns='jabber:client' to='vireo.im'>`)

	sess := New(uuid.New(), &Config{Hosts: hosts, Transport: tr})
	_, sErr := sess.Receive()
	require.Nil(t, sErr)
	require.False(t, sess.Versioned())

	require.Nil(t, sess.Open(context.Background()))

	pr := xmpp.NewParser(tr.wrBuf, xmpp.SocketStream, 0)
	_, _ = pr.ParseElement() // read xml header
	resp, err := pr.ParseElement()
	require.Nil(t, err)
	require.Equal(t, "", resp.Version())
}

func TestSession_OpenEchoesLanguage(t *testing.T) {
	hosts := setupTestHosts("vireo.im")

	tr := newFakeTransport()
	tr.rdBuf.WriteString(`<stream:stream xmlns:stream='http://etherx.jabber.org/streams' xmlns='jabber:client' to='vireo.im' version='1.0' xml:lang='fr'>`)

	sess := New(uuid.New(), &Config{Hosts: hosts, Transport: tr})
	_, sErr := sess.Receive()
	require.Nil(t, sErr)

	require.Nil(t, sess.Open(context.Background()))

	pr := xmpp.NewParser(tr.wrBuf, xmpp.SocketStream, 0)
	_, _ = pr.ParseElement() // read xml header
	resp, err := pr.ParseElement()
	require.Nil(t, err)
	require.Equal(t, "fr", resp.Language())
}

func TestSession_Close(t *testing.T) {
	hosts := setupTestHosts("vireo.im")

	tr := newFakeTransport()
	tr.rdBuf.WriteString(clientHeader)

	sess := New(uuid.New(), &Config{Hosts: hosts, Transport: tr})

	// close before opening
	require.NotNil(t, sess.Close(context.Background()))

	_, sErr := sess.Receive()
	require.Nil(t, sErr)
	require.Nil(t, sess.Open(context.Background()))
	tr.wrBuf.Reset()

	require.Nil(t, sess.Close(context.Background()))
	require.Equal(t, "</stream:stream>", tr.wrBuf.String())
}

func TestSession_Send(t *testing.T) {
	hosts := setupTestHosts("vireo.im")

	tr := newFakeTransport()
	sess := New(uuid.New(), &Config{Hosts: hosts, Transport: tr})

	elem := xmpp.NewElementNamespace("features", "http://etherx.jabber.org/streams")
	sess.Send(context.Background(), elem)
	require.Equal(t, elem.String(), tr.wrBuf.String())
}

func TestSession_ValidateStreamHeader(t *testing.T) {
	tcs := []struct {
		name        string
		header      string
		isServer    bool
		expectedErr error
	}{
		{
			name:        "wrong prefix binding",
			header:      `<foo:stream xmlns:foo='http://etherx.jabber.org/streams' xmlns='jabber:client' to='vireo.im' version='1.0'>`,
			expectedErr: streamerror.ErrBadNamespacePrefix,
		},
		{
			name:        "unprefixed stream element",
			header:      `<stream xmlns='jabber:client' to='vireo.im' version='1.0'>`,
			expectedErr: streamerror.ErrBadNamespacePrefix,
		},
		{
			name:        "unexpected first element",
			header:      `<message/>`,
			expectedErr: streamerror.ErrUnsupportedStanzaType,
		},
		{
			name:        "wrong stream namespace",
			header:      `<stream:stream xmlns:stream='http://etherx.jabber.org/wrong' xmlns='jabber:client' to='vireo.im' version='1.0'>`,
			expectedErr: streamerror.ErrInvalidNamespace,
		},
		{
			name:        "wrong content namespace",
			header:      `<stream:stream xmlns:stream='http://etherx.jabber.org/streams' xmlns='jabber:server' to='vireo.im' version='1.0'>`,
			expectedErr: streamerror.ErrInvalidNamespace,
		},
		{
			name:        "client namespace on server listener",
			header:      clientHeader,
			isServer:    true,
			expectedErr: streamerror.ErrInvalidNamespace,
		},
		{
			name:        "missing destination host",
			header:      `<stream:stream xmlns:stream='http://etherx.jabber.org/streams' xmlns='jabber:client' version='1.0'>`,
			expectedErr: streamerror.ErrHostUnknown,
		},
		{
			name:        "unknown destination host",
			header:      `<stream:stream xmlns:stream='http://etherx.jabber.org/streams' xmlns='jabber:client' to='unknown.org' version='1.0'>`,
			expectedErr: streamerror.ErrHostUnknown,
		},
		{
			name:        "malformed version",
			header:      `<stream:stream xmlns:stream='http://etherx.jabber.org/streams' xmlns='jabber:client' to='vireo.im' version='e.0'>`,
			expectedErr: streamerror.ErrInternalServerError,
		},
		{
			name:        "unsupported version",
			header:      `<stream:stream xmlns:stream='http://etherx.jabber.org/streams' xmlns='jabber:client' to='vireo.im' version='2.0'>`,
			expectedErr: streamerror.ErrUnsupportedVersion,
		},
	}
	for _, tc := range tcs {
		hosts := setupTestHosts("vireo.im")

		tr := newFakeTransport()
		tr.rdBuf.WriteString(tc.header)

		sess := New(uuid.New(), &Config{Hosts: hosts, Transport: tr, IsServer: tc.isServer})
		elem, sErr := sess.Receive()
		require.Nil(t, elem, tc.name)
		require.NotNil(t, sErr, tc.name)
		require.Equal(t, tc.expectedErr, sErr.UnderlyingErr, tc.name)
	}
}

func TestSession_TooLargeStanzaRead(t *testing.T) {
	hosts := setupTestHosts("vireo.im")

	tr := newFakeTransport()
	tr.rdBuf.WriteString(clientHeader)

	sess := New(uuid.New(), &Config{Hosts: hosts, Transport: tr, MaxStanzaSize: 16})
	_, sErr := sess.Receive()
	require.NotNil(t, sErr)
	require.Equal(t, streamerror.ErrPolicyViolation, sErr.UnderlyingErr)
}

func TestSession_NotWellFormedRead(t *testing.T) {
	hosts := setupTestHosts("vireo.im")

	tr := newFakeTransport()
	tr.rdBuf.WriteString(clientHeader)
	tr.rdBuf.WriteString(`<message>&malformed</message>`)

	sess := New(uuid.New(), &Config{Hosts: hosts, Transport: tr})
	_, sErr := sess.Receive()
	require.Nil(t, sErr)

	_, sErr = sess.Receive()
	require.NotNil(t, sErr)
	require.Equal(t, streamerror.ErrNotWellFormed, sErr.UnderlyingErr)
}

func TestSession_ClosedByPeer(t *testing.T) {
	hosts := setupTestHosts("vireo.im")

	tr := newFakeTransport()
	tr.rdBuf.WriteString(clientHeader)
	tr.rdBuf.WriteString(`</stream:stream>`)

	sess := New(uuid.New(), &Config{Hosts: hosts, Transport: tr})
	_, sErr := sess.Receive()
	require.Nil(t, sErr)
	require.Nil(t, sess.Open(context.Background()))
	tr.wrBuf.Reset()

	_, sErr = sess.Receive()
	require.NotNil(t, sErr)
	require.Nil(t, sErr.UnderlyingErr)

	// closing payload was sent back
	require.Equal(t, "</stream:stream>", tr.wrBuf.String())
}

func TestSession_StreamIDUniqueness(t *testing.T) {
	hosts := setupTestHosts("vireo.im")

	s1 := New(uuid.New(), &Config{Hosts: hosts, Transport: newFakeTransport()})
	s2 := New(uuid.New(), &Config{Hosts: hosts, Transport: newFakeTransport()})
	require.NotEqual(t, s1.StreamID(), s2.StreamID())
	require.True(t, len(s1.StreamID()) > 0)
}

func TestSession_ConcurrentNegotiations(t *testing.T) {
	const sessionCount = 1000

	hosts := setupTestHosts("vireo.im")

	type result struct {
		peer      string
		respTo    string
		streamID  string
		respID    string
		openError error
	}
	resCh := make(chan result, sessionCount)

	var wg sync.WaitGroup
	for i := 0; i < sessionCount; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			peer := fmt.Sprintf("peer%d.example", i)

			tr := newFakeTransport()
			tr.rdBuf.WriteString(fmt.Sprintf(`<stream:stream xmlns:stream='http://etherx.jabber.org/streams' xmlns='jabber:client' to='vireo.im' from='%s' version='1.0'>`, peer))

			sess := New(uuid.New(), &Config{Hosts: hosts, Transport: tr})
			if _, sErr := sess.Receive(); sErr != nil {
				resCh <- result{peer: peer, openError: sErr.UnderlyingErr}
				return
			}
			if err := sess.Open(context.Background()); err != nil {
				resCh <- result{peer: peer, openError: err}
				return
			}
			pr := xmpp.NewParser(tr.wrBuf, xmpp.SocketStream, 0)
			_, _ = pr.ParseElement() // read xml header
			resp, err := pr.ParseElement()
			if err != nil {
				resCh <- result{peer: peer, openError: err}
				return
			}
			resCh <- result{peer: peer, respTo: resp.To(), streamID: sess.StreamID(), respID: resp.ID()}
		}(i)
	}
	wg.Wait()
	close(resCh)

	ids := make(map[string]struct{}, sessionCount)
	for res := range resCh {
		require.Nil(t, res.openError)

		// each response addresses its own peer and carries its own id
		require.Equal(t, res.peer, res.respTo)
		require.Equal(t, res.streamID, res.respID)

		_, seen := ids[res.respID]
		require.False(t, seen)
		ids[res.respID] = struct{}{}
	}
	require.Equal(t, sessionCount, len(ids))
}
