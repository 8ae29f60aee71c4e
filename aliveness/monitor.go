/*
 * Copyright (c) 2020 Miguel Ángel Ortuño.
 * See the LICENSE file for more information.
 */

package aliveness

import (
	"sync"
	"time"
)

// Monitor supervises a stream aliveness, invoking a callback exactly
// once if no reset occurs within the configured timeout duration.
//
// A fire racing a concurrent Reset is suppressed: the last reset or
// fire to acquire the monitor lock wins.
type Monitor struct {
	timeout  time.Duration
	callback func()

	mu      sync.Mutex
	tm      *time.Timer
	gen     uint64
	stopped bool
}

// New returns an idle monitor instance.
// The countdown does not start until Reset is invoked for the first time.
func New(timeout time.Duration, callback func()) *Monitor {
	return &Monitor{
		timeout:  timeout,
		callback: callback,
	}
}

// Reset cancels any pending expiry and restarts the countdown from now.
// It is safe to invoke from the data-received path on every chunk.
func (m *Monitor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped {
		return
	}
	if m.tm != nil {
		m.tm.Stop()
	}
	m.gen++
	gen := m.gen
	m.tm = time.AfterFunc(m.timeout, func() { m.fire(gen) })
}

// Stop cancels any still-pending timer.
// Invoking Stop more than once is a no-op.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped {
		return
	}
	m.stopped = true
	if m.tm != nil {
		m.tm.Stop()
		m.tm = nil
	}
}

func (m *Monitor) fire(gen uint64) {
	m.mu.Lock()
	if m.stopped || gen != m.gen {
		// lost the race to a concurrent Reset or Stop
		m.mu.Unlock()
		return
	}
	m.stopped = true
	m.tm = nil
	m.mu.Unlock()

	m.callback()
}
