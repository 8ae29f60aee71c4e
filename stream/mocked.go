/*
 * Copyright (c) 2020 Miguel Ángel Ortuño.
 * See the LICENSE file for more information.
 */

package stream

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/vireo-im/vireo/xmpp"
)

// MockC2S represents a mocked c2s stream.
type MockC2S struct {
	id             string
	mu             sync.RWMutex
	username       string
	authenticated  bool
	isDisconnected bool
	elemCh         chan xmpp.XElement
	actorCh        chan func()
	discCh         chan error
}

// NewMockC2S returns a new mocked stream instance.
func NewMockC2S(id string) *MockC2S {
	stm := &MockC2S{
		id:      id,
		elemCh:  make(chan xmpp.XElement, 16),
		actorCh: make(chan func(), 64),
		discCh:  make(chan error, 1),
	}
	go stm.actorLoop()
	return stm
}

// ID returns mocked stream identifier.
func (m *MockC2S) ID() string {
	return m.id
}

// SetUsername sets the mocked stream username value.
func (m *MockC2S) SetUsername(username string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.username = username
}

// Username returns current mocked stream username.
func (m *MockC2S) Username() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.username
}

// SetAuthenticated sets whether or not the mocked stream
// has been authenticated.
func (m *MockC2S) SetAuthenticated(authenticated bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.authenticated = authenticated
}

// Authenticated returns whether or not the mocked stream
// has successfully authenticated.
func (m *MockC2S) Authenticated() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.authenticated
}

// IsDisconnected returns whether or not the mocked stream has been disconnected.
func (m *MockC2S) IsDisconnected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.isDisconnected
}

// SendElement sends the given XML element.
func (m *MockC2S) SendElement(_ context.Context, elem xmpp.XElement) {
	m.actorCh <- func() {
		m.sendElement(elem)
	}
}

// Disconnect disconnects mocked stream.
func (m *MockC2S) Disconnect(_ context.Context, err error) {
	waitCh := make(chan struct{})
	m.actorCh <- func() {
		m.disconnect(err)
		close(waitCh)
	}
	<-waitCh
}

// ReceiveElement waits until a new XML element is sent to
// the mocked stream and returns it.
func (m *MockC2S) ReceiveElement() xmpp.XElement {
	select {
	case e := <-m.elemCh:
		return e
	case <-time.After(time.Second * 5):
		return &xmpp.Element{}
	}
}

// WaitDisconnection waits until the mocked stream disconnects.
func (m *MockC2S) WaitDisconnection() error {
	select {
	case err := <-m.discCh:
		return err
	case <-time.After(time.Second * 5):
		return errors.New("operation timed out")
	}
}

func (m *MockC2S) actorLoop() {
	for {
		select {
		case f := <-m.actorCh:
			f()
		case <-m.discCh:
			return
		}
	}
}

func (m *MockC2S) sendElement(elem xmpp.XElement) {
	select {
	case m.elemCh <- elem:
		return
	default:
		break
	}
}

func (m *MockC2S) disconnect(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.isDisconnected {
		m.discCh <- err
		m.isDisconnected = true
	}
}
