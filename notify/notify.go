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

// Package notify fans exchange events out to subscribers
package notify

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/blinklabs-io/goexchange/message"
	"github.com/blinklabs-io/goexchange/transport"
)

const DefaultSubscriptionSize = 100

type EventType uint8

const (
	// Every inbound message, including empty ones
	EventMessageReceived EventType = iota + 1
	// Inbound command with no registered handler
	EventCommandReceived
	// Inbound command that requests special processing by the application
	EventSpecialCommand
	// Inbound response matched to a pending transaction
	EventResponseReceived
	// Inbound response with an unknown transaction ID
	EventUnresolvedResponse
	// Pending transaction expired without a response
	EventTransactionExpired
)

func (t EventType) String() string {
	switch t {
	case EventMessageReceived:
		return "MessageReceived"
	case EventCommandReceived:
		return "CommandReceived"
	case EventSpecialCommand:
		return "SpecialCommand"
	case EventResponseReceived:
		return "ResponseReceived"
	case EventUnresolvedResponse:
		return "UnresolvedResponse"
	case EventTransactionExpired:
		return "TransactionExpired"
	default:
		return "Unknown"
	}
}

// ParseEventType returns the event type with the given name
func ParseEventType(name string) (EventType, bool) {
	for t := EventMessageReceived; t <= EventTransactionExpired; t++ {
		if t.String() == name {
			return t, true
		}
	}
	return 0, false
}

// Event is published on the bus. Only the fields relevant to the event type are set
type Event struct {
	Type     EventType
	Time     time.Time
	PeerId   transport.PeerId
	Identity string
	Message  *message.Message
	Command  *message.Command
	Response *message.Response
	// Name of the command for response and transaction events
	CommandName   string
	TransactionId string
}

// Subscription receives the events it subscribed to on its channel
type Subscription struct {
	id        uint64
	bus       *Bus
	types     map[EventType]struct{}
	eventChan chan Event
	dropped   atomic.Uint64
}

func (s *Subscription) Chan() <-chan Event {
	return s.eventChan
}

// Dropped returns the number of events dropped because the channel was full
func (s *Subscription) Dropped() uint64 {
	return s.dropped.Load()
}

// Unsubscribe removes the subscription and closes its channel
func (s *Subscription) Unsubscribe() {
	s.bus.unsubscribe(s.id)
}

func (s *Subscription) wants(t EventType) bool {
	if len(s.types) == 0 {
		return true
	}
	_, ok := s.types[t]
	return ok
}

// Bus delivers each published event at most once to every matching subscriber.
// Publishing never blocks: events for a subscriber whose channel is full are dropped
type Bus struct {
	mutex       sync.RWMutex
	subscribers map[uint64]*Subscription
	nextId      uint64
	closed      bool
	logger      *slog.Logger
}

func NewBus(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		subscribers: make(map[uint64]*Subscription),
		logger:      logger,
	}
}

// Subscribe returns a subscription for the given event types, or for all
// events if none are given. A size of 0 uses DefaultSubscriptionSize
func (b *Bus) Subscribe(size int, types ...EventType) *Subscription {
	if size <= 0 {
		size = DefaultSubscriptionSize
	}
	sub := &Subscription{
		bus:       b,
		eventChan: make(chan Event, size),
	}
	if len(types) > 0 {
		sub.types = make(map[EventType]struct{}, len(types))
		for _, t := range types {
			sub.types[t] = struct{}{}
		}
	}
	b.mutex.Lock()
	defer b.mutex.Unlock()
	if b.closed {
		close(sub.eventChan)
		return sub
	}
	b.nextId++
	sub.id = b.nextId
	b.subscribers[sub.id] = sub
	return sub
}

// Publish delivers the event to all matching subscribers
func (b *Bus) Publish(evt Event) {
	if evt.Time.IsZero() {
		evt.Time = time.Now()
	}
	b.mutex.RLock()
	defer b.mutex.RUnlock()
	for _, sub := range b.subscribers {
		if !sub.wants(evt.Type) {
			continue
		}
		select {
		case sub.eventChan <- evt:
		default:
			sub.dropped.Add(1)
			b.logger.Warn(
				"dropping event for slow subscriber",
				"component", "notify",
				"event", evt.Type.String(),
				"subscription", sub.id,
			)
		}
	}
}

// Close removes all subscriptions and closes their channels
func (b *Bus) Close() {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, sub := range b.subscribers {
		close(sub.eventChan)
		delete(b.subscribers, id)
	}
}

func (b *Bus) unsubscribe(id uint64) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	sub, ok := b.subscribers[id]
	if !ok {
		return
	}
	close(sub.eventChan)
	delete(b.subscribers, id)
}
