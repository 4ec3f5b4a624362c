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

package transport_test

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/blinklabs-io/goexchange/internal/test"
	"github.com/blinklabs-io/goexchange/message"
	"github.com/blinklabs-io/goexchange/transport"
	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
)

type orderHandler struct {
	mutex  sync.Mutex
	events []string
	done   chan struct{}
	expect int
}

func (h *orderHandler) record(evt string) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.events = append(h.events, evt)
	if len(h.events) == h.expect {
		close(h.done)
	}
}

func (h *orderHandler) ReceiveMessage(peerId transport.PeerId, _ *message.Message) {
	h.record("message:" + peerId.String())
}

func (h *orderHandler) ReceiveError(err error) {
	h.record("error:" + err.Error())
}

func (h *orderHandler) PeerConnected(peerId transport.PeerId) {
	h.record("connected:" + peerId.String())
}

func (h *orderHandler) PeerDisconnected(peerId transport.PeerId) {
	h.record("disconnected:" + peerId.String())
}

func TestDispatcherOrder(t *testing.T) {
	defer goleak.VerifyNone(t)
	handler := &orderHandler{done: make(chan struct{}), expect: 4}
	d := transport.NewDispatcher()
	// Events queued before start are delivered once started
	d.PeerConnected("p1")
	d.ReceiveMessage("p1", message.NewMessage("id"))
	d.Start(handler)
	d.ReceiveError(&transport.ReceiveError{PeerId: "p1", Err: errors.New("boom")})
	d.PeerDisconnected("p1")
	select {
	case <-handler.done:
	case <-time.After(2 * time.Second):
		t.Fatal("did not receive all events")
	}
	d.Stop()
	d.Stop()
	assert.Equal(
		t,
		[]string{
			"connected:p1",
			"message:p1",
			"error:receive from peer p1 failed: boom",
			"disconnected:p1",
		},
		handler.events,
	)
}

func TestDispatcherStopDiscards(t *testing.T) {
	defer goleak.VerifyNone(t)
	handler := &orderHandler{done: make(chan struct{}), expect: 1}
	d := transport.NewDispatcher()
	d.Stop()
	d.PeerConnected("p1")
	d.Start(handler)
	assert.Empty(t, handler.events)
}

// blockingHandler blocks messages from one peer until released
type blockingHandler struct {
	blockedPeer  transport.PeerId
	releaseChan  chan struct{}
	receivedChan chan transport.PeerId
}

func (h *blockingHandler) ReceiveMessage(peerId transport.PeerId, _ *message.Message) {
	if peerId == h.blockedPeer {
		<-h.releaseChan
	}
	h.receivedChan <- peerId
}

func (h *blockingHandler) ReceiveError(error) {}

func (h *blockingHandler) PeerConnected(transport.PeerId) {}

func (h *blockingHandler) PeerDisconnected(transport.PeerId) {}

func TestDispatcherPeersIndependent(t *testing.T) {
	defer goleak.VerifyNone(t)
	handler := &blockingHandler{
		blockedPeer:  "slow",
		releaseChan:  make(chan struct{}),
		receivedChan: make(chan transport.PeerId, 10),
	}
	d := transport.NewDispatcher()
	d.Start(handler)
	d.ReceiveMessage("slow", message.NewMessage("id"))
	d.ReceiveMessage("slow", message.NewMessage("id"))
	d.ReceiveMessage("fast", message.NewMessage("id"))
	assert.Equal(t, transport.PeerId("fast"), test.WaitFor(t, (<-chan transport.PeerId)(handler.receivedChan)))
	close(handler.releaseChan)
	assert.Equal(t, transport.PeerId("slow"), test.WaitFor(t, (<-chan transport.PeerId)(handler.receivedChan)))
	assert.Equal(t, transport.PeerId("slow"), test.WaitFor(t, (<-chan transport.PeerId)(handler.receivedChan)))
	d.Stop()
}

func TestDispatcherQueueLimit(t *testing.T) {
	defer goleak.VerifyNone(t)
	handler := &orderHandler{done: make(chan struct{}), expect: 3}
	d := transport.NewDispatcher(
		transport.WithMaxQueuedMessages(2),
		transport.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	// Nothing is delivered before Start, so the queue fills up
	d.PeerConnected("p1")
	for range 5 {
		d.ReceiveMessage("p1", message.NewMessage("id"))
	}
	assert.Equal(t, uint64(3), d.Dropped())
	d.Start(handler)
	select {
	case <-handler.done:
	case <-time.After(2 * time.Second):
		t.Fatal("did not receive all events")
	}
	d.Stop()
	assert.Equal(t, []string{"connected:p1", "message:p1", "message:p1"}, handler.events)
}
