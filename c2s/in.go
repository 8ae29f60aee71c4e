/*
 * Copyright (c) 2020 Miguel Ángel Ortuño.
 * See the LICENSE file for more information.
 */

package c2s

import (
	"context"
	"crypto/tls"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vireo-im/vireo/aliveness"
	"github.com/vireo-im/vireo/auth"
	"github.com/vireo-im/vireo/feature"
	"github.com/vireo-im/vireo/host"
	"github.com/vireo-im/vireo/log"
	"github.com/vireo-im/vireo/runqueue"
	"github.com/vireo-im/vireo/session"
	"github.com/vireo-im/vireo/storage/repository"
	"github.com/vireo-im/vireo/stream"
	"github.com/vireo-im/vireo/streamerror"
	"github.com/vireo-im/vireo/transport"
	"github.com/vireo-im/vireo/xmpp"
)

const (
	listening uint32 = iota
	connected
	negotiating
	open
	closed
)

// maxAuthFailed defines how many failed authentication attempts are
// tolerated before closing the stream.
const maxAuthFailed = 3

type streamConfig struct {
	transport      transport.Transport
	connectTimeout time.Duration
	timeout        time.Duration
	maxStanzaSize  int
	sasl           []string
	isServer       bool
	onDisconnect   func(s stream.C2S)
	onStanza       func(ctx context.Context, s stream.C2S, elem xmpp.XElement)
}

type inStream struct {
	cfg            *streamConfig
	hosts          *host.Hosts
	userRep        repository.User
	store          *auth.Store
	features       *feature.Registry
	sess           *session.Session
	id             string
	connectTm      *time.Timer
	monitor        *aliveness.Monitor
	state          uint32
	authenticators []auth.Authenticator
	activeAuth     auth.Authenticator
	authFailed     int
	runQueue       *runqueue.RunQueue

	mu            sync.RWMutex
	username      string
	secured       bool
	authenticated bool
}

func newStream(id string, config *streamConfig, hosts *host.Hosts, userRep repository.User) stream.C2S {
	s := &inStream{
		cfg:      config,
		hosts:    hosts,
		userRep:  userRep,
		store:    auth.NewStore(userRep),
		id:       id,
		runQueue: runqueue.New(id),
	}
	if config.timeout > 0 {
		s.monitor = aliveness.New(config.timeout, s.idleTimeout)
		config.transport = &monitoredTransport{Transport: config.transport, monitor: s.monitor}
	}
	s.initializeAuthenticators()
	s.initializeFeatures()

	// start stream session
	s.restartSession()

	if config.connectTimeout > 0 {
		s.connectTm = time.AfterFunc(config.connectTimeout, s.connectTimeout)
	}
	if s.monitor != nil {
		s.monitor.Reset()
	}
	go s.doRead() // start reading...

	return s
}

// ID returns stream identifier.
func (s *inStream) ID() string {
	return s.id
}

// Username returns the authenticated username.
func (s *inStream) Username() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.username
}

// Authenticated tells whether or not the stream peer has been authenticated.
func (s *inStream) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.authenticated
}

// IsSecured tells whether or not the stream transport has been secured.
func (s *inStream) IsSecured() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.secured
}

// SendElement writes an XML element to the stream.
func (s *inStream) SendElement(ctx context.Context, elem xmpp.XElement) {
	if s.getState() == closed {
		return
	}
	s.runQueue.Post(func() { s.writeElement(ctx, elem) })
}

// Disconnect closes the stream, sending a stream error element
// in case err is not nil.
func (s *inStream) Disconnect(ctx context.Context, err error) {
	if s.getState() == closed {
		return
	}
	waitCh := make(chan struct{})
	s.runQueue.Post(func() {
		s.disconnect(ctx, err)
		close(waitCh)
	})
	<-waitCh
}

func (s *inStream) initializeAuthenticators() {
	tr := s.cfg.transport
	var authenticators []auth.Authenticator
	for _, a := range s.cfg.sasl {
		switch a {
		case "plain":
			authenticators = append(authenticators, auth.NewPlain(s, s.store))

		case "scram_sha_1":
			authenticators = append(authenticators, auth.NewScram(s, tr, false, s.userRep))
			authenticators = append(authenticators, auth.NewScram(s, tr, true, s.userRep))
		}
	}
	s.authenticators = authenticators
}

func (s *inStream) initializeFeatures() {
	reg := feature.NewRegistry()
	if !s.cfg.isServer {
		_ = reg.Register(feature.NewStartTLS(true))
	}
	if len(s.authenticators) > 0 {
		var mechanisms []string
		for _, ath := range s.authenticators {
			mechanisms = append(mechanisms, ath.Mechanism())
		}
		_ = reg.Register(feature.NewMechanisms(mechanisms, true))
	}
	s.features = reg
}

func (s *inStream) connectTimeout() {
	s.runQueue.Post(func() {
		if s.getState() == closed {
			return
		}
		s.disconnect(context.Background(), streamerror.ErrConnectionTimeout)
	})
}

func (s *inStream) idleTimeout() {
	s.runQueue.Post(func() {
		if s.getState() == closed {
			return
		}
		s.disconnect(context.Background(), streamerror.ErrConnectionTimeout)
	})
}

func (s *inStream) handleElement(ctx context.Context, elem xmpp.XElement) {
	switch s.getState() {
	case listening:
		s.handleListening(ctx, elem)
	case connected:
		s.handleConnected(ctx, elem)
	case negotiating:
		s.handleNegotiating(ctx, elem)
	case open:
		s.handleOpen(ctx, elem)
	}
}

func (s *inStream) handleListening(ctx context.Context, elem xmpp.XElement) {
	// cancel connection timeout timer
	if s.connectTm != nil {
		s.connectTm.Stop()
		s.connectTm = nil
	}
	if err := s.sess.Open(ctx); err != nil {
		log.Error(err)
		s.disconnectClosingSession(ctx, false)
		return
	}
	if !s.sess.Versioned() {
		// legacy stream, nothing left to negotiate
		s.setState(connected)
		return
	}
	features := xmpp.NewElementName("stream:features")
	features.SetAttribute("xmlns:stream", streamNamespace)
	features.SetAttribute("version", "1.0")

	if !s.Authenticated() {
		features.AppendElements(s.unauthenticatedFeatures())
		s.setState(connected)
	} else {
		features.AppendElements(s.authenticatedFeatures())
		s.setState(open)
	}
	s.writeElement(ctx, features)
}

func (s *inStream) unauthenticatedFeatures() []xmpp.XElement {
	var features []xmpp.XElement

	for _, f := range s.features.Enumerate() {
		switch f.Name() {
		case "starttls":
			if !s.IsSecured() {
				features = append(features, f.Element())
			}
		case "mechanisms":
			// offer SASL over a secured channel only
			if s.IsSecured() {
				features = append(features, f.Element())
			}
		default:
			features = append(features, f.Element())
		}
	}
	return features
}

func (s *inStream) authenticatedFeatures() []xmpp.XElement {
	var features []xmpp.XElement

	for _, f := range s.features.Enumerate() {
		switch f.Name() {
		case "starttls", "mechanisms":
			break
		default:
			features = append(features, f.Element())
		}
	}
	return features
}

func (s *inStream) handleConnected(ctx context.Context, elem xmpp.XElement) {
	switch elem.Name() {
	case "starttls":
		s.proceedStartTLS(ctx, elem)

	case "auth":
		s.startAuthentication(ctx, elem)

	case "iq", "message", "presence":
		s.disconnectWithStreamError(ctx, streamerror.ErrNotAuthorized)

	default:
		s.disconnectWithStreamError(ctx, streamerror.ErrUnsupportedStanzaType)
	}
}

func (s *inStream) handleNegotiating(ctx context.Context, elem xmpp.XElement) {
	if elem.Namespace() != saslNamespace {
		s.disconnectWithStreamError(ctx, streamerror.ErrInvalidNamespace)
		return
	}
	ath := s.activeAuth
	_ = s.continueAuthentication(ctx, elem, ath)
	if ath != nil && ath.Authenticated() {
		s.finishAuthentication(ath.Username())
	}
}

func (s *inStream) handleOpen(ctx context.Context, elem xmpp.XElement) {
	if h := s.cfg.onStanza; h != nil {
		h(ctx, s, elem)
		return
	}
	log.Debugf("ignoring stanza... id: %s, name: %s", s.id, elem.Name())
}

func (s *inStream) proceedStartTLS(ctx context.Context, elem xmpp.XElement) {
	if s.IsSecured() {
		s.disconnectWithStreamError(ctx, streamerror.ErrNotAuthorized)
		return
	}
	if len(elem.Namespace()) > 0 && elem.Namespace() != tlsNamespace {
		s.disconnectWithStreamError(ctx, streamerror.ErrInvalidNamespace)
		return
	}
	s.setSecured(true)
	s.writeElement(ctx, xmpp.NewElementNamespace("proceed", tlsNamespace))

	s.cfg.transport.StartTLS(&tls.Config{Certificates: s.hosts.Certificates()})

	log.Infof("secured stream... id: %s", s.id)
	s.restartSession()
}

func (s *inStream) startAuthentication(ctx context.Context, elem xmpp.XElement) {
	if elem.Namespace() != saslNamespace {
		s.disconnectWithStreamError(ctx, streamerror.ErrInvalidNamespace)
		return
	}
	if !s.IsSecured() {
		s.disconnectWithStreamError(ctx, streamerror.ErrNotAuthorized)
		return
	}
	mechanism := elem.Attributes().Get("mechanism")
	for _, authenticator := range s.authenticators {
		if authenticator.Mechanism() == mechanism {
			if err := s.continueAuthentication(ctx, elem, authenticator); err != nil {
				return
			}
			if authenticator.Authenticated() {
				s.finishAuthentication(authenticator.Username())
			} else {
				s.activeAuth = authenticator
				s.setState(negotiating)
			}
			return
		}
	}
	// ...mechanism not found...
	failure := xmpp.NewElementNamespace("failure", saslNamespace)
	failure.AppendElement(xmpp.NewElementName("invalid-mechanism"))
	s.writeElement(ctx, failure)
}

func (s *inStream) continueAuthentication(ctx context.Context, elem xmpp.XElement, authr auth.Authenticator) error {
	err := authr.ProcessElement(ctx, elem)
	if saslErr, ok := err.(*auth.SASLError); ok {
		s.failAuthentication(ctx, saslErr.Element())
	} else if err != nil {
		log.Error(err)
		s.failAuthentication(ctx, auth.ErrSASLTemporaryAuthFailure.(*auth.SASLError).Element())
	}
	return err
}

func (s *inStream) finishAuthentication(username string) {
	if s.activeAuth != nil {
		s.activeAuth.Reset()
		s.activeAuth = nil
	}
	s.mu.Lock()
	s.username = username
	s.authenticated = true
	s.mu.Unlock()

	s.restartSession()
}

func (s *inStream) failAuthentication(ctx context.Context, elem xmpp.XElement) {
	failure := xmpp.NewElementNamespace("failure", saslNamespace)
	failure.AppendElement(elem)
	s.writeElement(ctx, failure)

	if s.activeAuth != nil {
		s.activeAuth.Reset()
		s.activeAuth = nil
	}
	s.authFailed++
	if s.authFailed >= maxAuthFailed {
		s.disconnectWithStreamError(ctx, streamerror.ErrPolicyViolation)
		return
	}
	s.setState(connected)
}

// Runs on its own goroutine
func (s *inStream) doRead() {
	elem, sErr := s.sess.Receive()
	if sErr == nil {
		s.runQueue.Post(func() { s.readElement(context.Background(), elem) })
	} else {
		s.runQueue.Post(func() {
			if s.getState() == closed {
				return
			}
			s.handleSessionError(context.Background(), sErr)
		})
	}
}

func (s *inStream) readElement(ctx context.Context, elem xmpp.XElement) {
	if elem != nil {
		s.handleElement(ctx, elem)
	}
	if s.getState() != closed {
		go s.doRead() // keep reading...
	}
}

func (s *inStream) handleSessionError(ctx context.Context, sErr *session.Error) {
	switch err := sErr.UnderlyingErr.(type) {
	case nil:
		s.disconnect(ctx, nil)
	case *streamerror.Error:
		s.disconnectWithStreamError(ctx, err)
	default:
		log.Error(err)
		s.disconnectWithStreamError(ctx, streamerror.ErrInternalServerError)
	}
}

func (s *inStream) writeElement(ctx context.Context, elem xmpp.XElement) {
	s.sess.Send(ctx, elem)
}

func (s *inStream) disconnect(ctx context.Context, err error) {
	if s.getState() == closed {
		return
	}
	switch err {
	case nil:
		s.disconnectClosingSession(ctx, true)
	default:
		if stmErr, ok := err.(*streamerror.Error); ok {
			s.disconnectWithStreamError(ctx, stmErr)
		} else {
			log.Error(err)
			s.disconnectClosingSession(ctx, false)
		}
	}
}

func (s *inStream) disconnectWithStreamError(ctx context.Context, err *streamerror.Error) {
	if s.getState() == listening {
		_ = s.sess.Open(ctx)
	}
	if err == streamerror.ErrConnectionTimeout {
		// timeout notice keeps its non-standard top-level element form
		s.writeElement(ctx, xmpp.NewElementName("connection-timeout"))
	} else {
		s.writeElement(ctx, err.Element())
	}
	s.disconnectClosingSession(ctx, true)
}

func (s *inStream) disconnectClosingSession(ctx context.Context, closeSession bool) {
	if s.connectTm != nil {
		s.connectTm.Stop()
		s.connectTm = nil
	}
	if s.monitor != nil {
		s.monitor.Stop()
	}
	if closeSession {
		_ = s.sess.Close(ctx)
	}
	// notify disconnection
	if s.cfg.onDisconnect != nil {
		s.cfg.onDisconnect(s)
	}
	s.setState(closed)
	_ = s.cfg.transport.Close()

	s.runQueue.Stop(nil) // stop processing messages
}

func (s *inStream) restartSession() {
	s.sess = session.New(s.id, &session.Config{
		Hosts:         s.hosts,
		Transport:     s.cfg.transport,
		MaxStanzaSize: s.cfg.maxStanzaSize,
		IsServer:      s.cfg.isServer,
	})
	s.setState(listening)
}

// monitoredTransport resets the stream aliveness monitor on every
// inbound byte chunk, so that a peer slowly streaming a large stanza
// is never reported as idle.
type monitoredTransport struct {
	transport.Transport
	monitor *aliveness.Monitor
}

func (t *monitoredTransport) Read(p []byte) (n int, err error) {
	n, err = t.Transport.Read(p)
	if n > 0 {
		t.monitor.Reset()
	}
	return n, err
}

func (s *inStream) setSecured(secured bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.secured = secured
}

func (s *inStream) setState(state uint32) {
	atomic.StoreUint32(&s.state, state)
}

func (s *inStream) getState() uint32 {
	return atomic.LoadUint32(&s.state)
}
