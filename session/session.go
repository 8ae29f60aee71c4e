/*
 * Copyright (c) 2020 Miguel Ángel Ortuño.
 * See the LICENSE file for more information.
 */

package session

import (
	"context"
	stdxml "encoding/xml"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/pborman/uuid"
	"github.com/pkg/errors"
	"github.com/vireo-im/vireo/host"
	"github.com/vireo-im/vireo/log"
	"github.com/vireo-im/vireo/streamerror"
	"github.com/vireo-im/vireo/transport"
	"github.com/vireo-im/vireo/xmpp"
)

const (
	jabberClientNamespace = "jabber:client"
	jabberServerNamespace = "jabber:server"
	streamNamespace       = "http://etherx.jabber.org/streams"
)

// supportedMajorVersion is the highest stream major version the
// session is able to negotiate.
const supportedMajorVersion = 1

// Error represents a session error.
type Error struct {
	// Element returns the original incoming element that generated
	// the session error.
	Element xmpp.XElement

	// UnderlyingErr is the underlying session error.
	UnderlyingErr error
}

// A Config structure is used to configure an XMPP session.
type Config struct {
	// Hosts holds the set of serviced local domains.
	Hosts *host.Hosts

	// Transport provides the underlying session transport
	// that will be used to send and receive elements.
	Transport transport.Transport

	// MaxStanzaSize defines the maximum stanza size that
	// can be read from the session transport.
	MaxStanzaSize int

	// IsServer defines whether or not session content is qualified
	// by the server-to-server namespace.
	IsServer bool
}

// Session represents an XMPP session between two peers.
type Session struct {
	id       string
	tr       transport.Transport
	pr       *xmpp.Parser
	hosts    *host.Hosts
	isServer bool
	opened   uint32
	started  uint32

	mu          sync.RWMutex
	streamID    string
	localDomain string
	peerID      string
	lang        string
	versioned   bool
}

// New creates a new session instance.
func New(id string, config *Config) *Session {
	s := &Session{
		id:       id,
		tr:       config.Transport,
		pr:       xmpp.NewParser(config.Transport, xmpp.SocketStream, config.MaxStanzaSize),
		hosts:    config.Hosts,
		isServer: config.IsServer,
	}
	s.streamID = uuid.New()
	s.localDomain = config.Hosts.DefaultHostName()
	return s
}

// StreamID returns session stream identifier.
func (s *Session) StreamID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.streamID
}

// LocalDomain returns the local domain the stream peer addressed.
func (s *Session) LocalDomain() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.localDomain
}

// Versioned tells whether or not the received stream header carried
// a version attribute. Unversioned streams get no features element.
func (s *Session) Versioned() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.versioned
}

// Open initializes the session sending the proper response stream header.
func (s *Session) Open(ctx context.Context) error {
	if !atomic.CompareAndSwapUint32(&s.opened, 0, 1) {
		return errors.New("session already opened")
	}
	buf := &strings.Builder{}
	buf.WriteString(`<?xml version='1.0'?>`)

	ops := xmpp.NewElementName("stream:stream")
	ops.SetAttribute("xmlns", s.namespace())
	ops.SetAttribute("xmlns:stream", streamNamespace)

	s.mu.RLock()
	ops.SetAttribute("from", s.localDomain)
	if len(s.peerID) > 0 {
		ops.SetAttribute("to", s.peerID)
	}
	ops.SetAttribute("id", s.streamID)
	if s.versioned {
		ops.SetAttribute("version", "1.0")
	}
	if len(s.lang) > 0 {
		ops.SetAttribute("xml:lang", s.lang)
	}
	s.mu.RUnlock()

	ops.ToXML(buf, false)

	openStr := buf.String()
	log.Debugf("SEND(%s): %s", s.id, openStr)

	deadline, _ := ctx.Deadline()
	_ = s.tr.SetWriteDeadline(deadline)

	_, err := io.Copy(s.tr, strings.NewReader(openStr))
	return err
}

// Close closes session sending the proper closing payload.
// It's responsibility of the caller to close the underlying transport.
func (s *Session) Close(ctx context.Context) error {
	if atomic.LoadUint32(&s.opened) == 0 {
		return errors.New("session already closed")
	}
	deadline, _ := ctx.Deadline()
	_ = s.tr.SetWriteDeadline(deadline)

	return s.tr.WriteString("</stream:stream>")
}

// Send writes an XML element to the underlying session transport.
func (s *Session) Send(ctx context.Context, elem xmpp.XElement) {
	log.Debugf("SEND(%s): %v", s.id, elem)

	deadline, _ := ctx.Deadline()
	_ = s.tr.SetWriteDeadline(deadline)

	elem.ToXML(s.tr, true)
}

// Receive returns next incoming session element.
func (s *Session) Receive() (xmpp.XElement, *Error) {
	elem, err := s.pr.ParseElement()
	if err != nil {
		return nil, s.mapErrorToSessionError(err)
	} else if elem != nil {
		log.Debugf("RECV(%s): %v", s.id, elem)

		if atomic.LoadUint32(&s.started) == 0 {
			if err := s.validateStreamElement(elem); err != nil {
				return nil, err
			}
			atomic.StoreUint32(&s.started, 1)
		}
	}
	return elem, nil
}

func (s *Session) validateStreamElement(elem xmpp.XElement) *Error {
	name := elem.Name()
	switch {
	case name == "stream:stream":
		break
	case strings.HasSuffix(name, ":stream") || name == "stream":
		return &Error{UnderlyingErr: streamerror.ErrBadNamespacePrefix}
	default:
		return &Error{UnderlyingErr: streamerror.ErrUnsupportedStanzaType}
	}
	if elem.Attributes().Get("xmlns:stream") != streamNamespace {
		return &Error{UnderlyingErr: streamerror.ErrInvalidNamespace}
	}
	if elem.Namespace() != s.namespace() {
		return &Error{UnderlyingErr: streamerror.ErrInvalidNamespace}
	}
	to := elem.To()
	if len(to) == 0 || !s.hosts.IsLocalHost(to) {
		return &Error{UnderlyingErr: streamerror.ErrHostUnknown}
	}
	versioned := false
	if v := elem.Version(); len(v) > 0 {
		major, _, err := parseStreamVersion(v)
		if err != nil {
			return &Error{UnderlyingErr: streamerror.ErrInternalServerError}
		}
		if major > supportedMajorVersion {
			return &Error{UnderlyingErr: streamerror.ErrUnsupportedVersion}
		}
		versioned = true
	}
	s.mu.Lock()
	s.localDomain = to
	s.peerID = elem.From()
	s.lang = elem.Language()
	s.versioned = versioned
	s.mu.Unlock()
	return nil
}

func (s *Session) namespace() string {
	if s.isServer {
		return jabberServerNamespace
	}
	return jabberClientNamespace
}

func (s *Session) mapErrorToSessionError(err error) *Error {
	switch err {
	case nil, io.EOF, io.ErrUnexpectedEOF:
		break

	case xmpp.ErrStreamClosedByPeer:
		_ = s.Close(context.Background())

	case xmpp.ErrTooLargeStanza:
		return &Error{UnderlyingErr: streamerror.ErrPolicyViolation}

	default:
		switch e := err.(type) {
		case net.Error:
			if e.Timeout() {
				return &Error{UnderlyingErr: streamerror.ErrConnectionTimeout}
			}
			return &Error{UnderlyingErr: err}
		case *stdxml.SyntaxError:
			return &Error{UnderlyingErr: streamerror.ErrNotWellFormed}
		default:
			return &Error{UnderlyingErr: err}
		}
	}
	return &Error{}
}

func parseStreamVersion(v string) (major int, minor int, err error) {
	sp := strings.SplitN(v, ".", 2)
	if len(sp) != 2 {
		return 0, 0, errors.Errorf("session: malformed version: %s", v)
	}
	major, err = strconv.Atoi(sp[0])
	if err != nil {
		return 0, 0, errors.Errorf("session: malformed version: %s", v)
	}
	minor, err = strconv.Atoi(sp[1])
	if err != nil {
		return 0, 0, errors.Errorf("session: malformed version: %s", v)
	}
	return major, minor, nil
}
