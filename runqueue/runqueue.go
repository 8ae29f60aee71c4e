/*
 * Copyright (c) 2020 Miguel Ángel Ortuño.
 * See the LICENSE file for more information.
 */

package runqueue

import (
	"sync/atomic"

	"github.com/vireo-im/vireo/log"
	"github.com/vireo-im/vireo/runqueue/mpsc"
)

const (
	idle int32 = iota
	running
)

// RunQueue serializes the execution of posted functions. Functions run
// in posting order, one at a time, on a goroutine scheduled on demand.
type RunQueue struct {
	name         string
	queue        *mpsc.Queue
	messageCount int32
	state        int32
	stopped      int32
}

// New returns an initialized run queue instance.
func New(name string) *RunQueue {
	return &RunQueue{
		name:  name,
		queue: mpsc.New(),
	}
}

// Post posts a new function to the queue.
func (m *RunQueue) Post(fn func()) {
	if atomic.LoadInt32(&m.stopped) == 1 {
		return
	}
	m.queue.Push(fn)
	atomic.AddInt32(&m.messageCount, 1)
	m.schedule()
}

// Stop stops queue processing, invoking stopCb callback as soon as all
// remaining queued functions complete. Functions posted after stopping
// are discarded.
func (m *RunQueue) Stop(stopCb func()) {
	m.Post(func() {
		atomic.StoreInt32(&m.stopped, 1)
		if stopCb != nil {
			stopCb()
		}
	})
}

func (m *RunQueue) schedule() {
	if atomic.CompareAndSwapInt32(&m.state, idle, running) {
		go m.process()
	}
}

func (m *RunQueue) process() {

process:
	m.run()

	atomic.StoreInt32(&m.state, idle)
	if atomic.LoadInt32(&m.messageCount) > 0 {
		// try setting the queue back to running
		if atomic.CompareAndSwapInt32(&m.state, idle, running) {
			goto process
		}
	}
}

func (m *RunQueue) run() {

	defer func() {
		if err := recover(); err != nil {
			log.Debugf("run queue %s panicked with error: %v", m.name, err)
		}
	}()

	for {
		if fn := m.queue.Pop(); fn != nil {
			fn.(func())()
			atomic.AddInt32(&m.messageCount, -1)
		} else {
			return
		}
	}
}
