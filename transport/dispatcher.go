// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package transport

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/blinklabs-io/goexchange/message"
)

// DefaultMaxQueuedMessages is the number of inbound messages held per peer
// while its handler is busy
const DefaultMaxQueuedMessages = 256

// DispatcherOptionFunc is a type that represents functions that modify the dispatcher config
type DispatcherOptionFunc func(*Dispatcher)

// WithLogger specifies the logger used to report dropped messages
func WithLogger(logger *slog.Logger) DispatcherOptionFunc {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// WithMaxQueuedMessages specifies how many messages are held per peer. Further
// messages from that peer are dropped until the handler catches up
func WithMaxQueuedMessages(limit int) DispatcherOptionFunc {
	return func(d *Dispatcher) {
		d.maxQueuedMessages = limit
	}
}

type event struct {
	fn        func(Handler)
	isMessage bool
}

// lane holds the pending events of one peer
type lane struct {
	queue    []event
	messages int
	running  bool
}

// Dispatcher is a Handler that queues events and delivers them to another
// Handler. Events of one peer are delivered in order from a single goroutine,
// so a peer's connected event is always handled before its first message.
// Different peers are delivered concurrently and a slow peer does not hold up
// the others. Events queued before Start are held until the handler is set
type Dispatcher struct {
	mutex             sync.Mutex
	handler           Handler
	lanes             map[PeerId]*lane
	started           bool
	stopped           bool
	dropped           uint64
	maxQueuedMessages int
	logger            *slog.Logger
	waitGroup         sync.WaitGroup
}

func NewDispatcher(options ...DispatcherOptionFunc) *Dispatcher {
	d := &Dispatcher{
		lanes:             make(map[PeerId]*lane),
		maxQueuedMessages: DefaultMaxQueuedMessages,
	}
	for _, option := range options {
		option(d)
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}
	return d
}

// Start begins delivering events to the handler. Calling it again has no effect
func (d *Dispatcher) Start(handler Handler) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	if d.started || d.stopped {
		return
	}
	d.started = true
	d.handler = handler
	for peerId, l := range d.lanes {
		d.run(peerId, l)
	}
}

// Stop discards any queued events and waits for in-flight handler calls to return
func (d *Dispatcher) Stop() {
	d.mutex.Lock()
	if d.stopped {
		d.mutex.Unlock()
		return
	}
	d.stopped = true
	d.lanes = make(map[PeerId]*lane)
	d.mutex.Unlock()
	d.waitGroup.Wait()
}

// Dropped returns the number of messages dropped because a peer's queue was full
func (d *Dispatcher) Dropped() uint64 {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return d.dropped
}

func (d *Dispatcher) ReceiveMessage(peerId PeerId, msg *message.Message) {
	d.enqueue(
		peerId,
		event{
			fn: func(h Handler) {
				h.ReceiveMessage(peerId, msg)
			},
			isMessage: true,
		},
	)
}

// ReceiveError queues the error behind the events of the peer it names, if any
func (d *Dispatcher) ReceiveError(err error) {
	var peerId PeerId
	var recvErr *ReceiveError
	if errors.As(err, &recvErr) {
		peerId = recvErr.PeerId
	}
	d.enqueue(
		peerId,
		event{
			fn: func(h Handler) {
				h.ReceiveError(err)
			},
		},
	)
}

func (d *Dispatcher) PeerConnected(peerId PeerId) {
	d.enqueue(
		peerId,
		event{
			fn: func(h Handler) {
				h.PeerConnected(peerId)
			},
		},
	)
}

func (d *Dispatcher) PeerDisconnected(peerId PeerId) {
	d.enqueue(
		peerId,
		event{
			fn: func(h Handler) {
				h.PeerDisconnected(peerId)
			},
		},
	)
}

func (d *Dispatcher) enqueue(peerId PeerId, evt event) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	if d.stopped {
		return
	}
	l, ok := d.lanes[peerId]
	if !ok {
		l = &lane{}
		d.lanes[peerId] = l
	}
	if evt.isMessage {
		// Connection events are never dropped so that peer state stays consistent
		if d.maxQueuedMessages > 0 && l.messages >= d.maxQueuedMessages {
			d.dropped++
			d.logger.Warn(
				"dropping inbound message, peer queue full",
				"component", "transport",
				"peer", peerId.String(),
			)
			return
		}
		l.messages++
	}
	l.queue = append(l.queue, evt)
	d.run(peerId, l)
}

// run must be called with the mutex held
func (d *Dispatcher) run(peerId PeerId, l *lane) {
	if !d.started || l.running || len(l.queue) == 0 {
		return
	}
	l.running = true
	d.waitGroup.Add(1)
	go d.drain(peerId, l)
}

func (d *Dispatcher) drain(peerId PeerId, l *lane) {
	defer d.waitGroup.Done()
	for {
		d.mutex.Lock()
		if d.stopped || len(l.queue) == 0 {
			l.running = false
			if d.lanes[peerId] == l && len(l.queue) == 0 {
				delete(d.lanes, peerId)
			}
			d.mutex.Unlock()
			return
		}
		evt := l.queue[0]
		l.queue[0] = event{}
		l.queue = l.queue[1:]
		if evt.isMessage {
			l.messages--
		}
		handler := d.handler
		d.mutex.Unlock()
		evt.fn(handler)
	}
}
