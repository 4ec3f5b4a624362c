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

// Package memory provides an in-process transport. Messages still go through
// the wire codec, so it behaves like a network transport without sockets
package memory

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/blinklabs-io/goexchange/message"
	"github.com/blinklabs-io/goexchange/transport"
)

var ErrUnknownPeer = errors.New("unknown peer")

type linkKey struct {
	a transport.PeerId
	b transport.PeerId
}

func newLinkKey(a, b transport.PeerId) linkKey {
	if b < a {
		a, b = b, a
	}
	return linkKey{a: a, b: b}
}

// Network connects in-process transports
type Network struct {
	mutex      sync.Mutex
	transports map[transport.PeerId]*Transport
	links      map[linkKey]struct{}
	logger     *slog.Logger
}

func NewNetwork(logger *slog.Logger) *Network {
	if logger == nil {
		logger = slog.Default()
	}
	return &Network{
		transports: make(map[transport.PeerId]*Transport),
		links:      make(map[linkKey]struct{}),
		logger:     logger,
	}
}

// NewTransport returns a transport for the given peer ID attached to the network
func (n *Network) NewTransport(peerId transport.PeerId) *Transport {
	t := &Transport{
		network:    n,
		peerId:     peerId,
		dispatcher: transport.NewDispatcher(transport.WithLogger(n.logger)),
	}
	n.mutex.Lock()
	n.transports[peerId] = t
	n.mutex.Unlock()
	return t
}

// Connect links two peers. Both sides receive a connected event
func (n *Network) Connect(a, b transport.PeerId) error {
	n.mutex.Lock()
	defer n.mutex.Unlock()
	ta, ok := n.transports[a]
	if !ok {
		return ErrUnknownPeer
	}
	tb, ok := n.transports[b]
	if !ok {
		return ErrUnknownPeer
	}
	key := newLinkKey(a, b)
	if _, ok := n.links[key]; ok {
		return nil
	}
	n.links[key] = struct{}{}
	ta.dispatcher.PeerConnected(b)
	tb.dispatcher.PeerConnected(a)
	return nil
}

// Disconnect removes the link between two peers. Both sides receive a disconnected event
func (n *Network) Disconnect(a, b transport.PeerId) {
	n.mutex.Lock()
	defer n.mutex.Unlock()
	n.unlink(a, b)
}

// InjectRaw delivers raw bytes to a peer as if they were sent by another peer
func (n *Network) InjectRaw(from, to transport.PeerId, data []byte) error {
	n.mutex.Lock()
	defer n.mutex.Unlock()
	target, ok := n.transports[to]
	if !ok {
		return ErrUnknownPeer
	}
	target.receive(from, data)
	return nil
}

func (n *Network) unlink(a, b transport.PeerId) {
	key := newLinkKey(a, b)
	if _, ok := n.links[key]; !ok {
		return
	}
	delete(n.links, key)
	if t, ok := n.transports[a]; ok {
		t.dispatcher.PeerDisconnected(b)
	}
	if t, ok := n.transports[b]; ok {
		t.dispatcher.PeerDisconnected(a)
	}
}

func (n *Network) detach(peerId transport.PeerId) {
	n.mutex.Lock()
	defer n.mutex.Unlock()
	for key := range n.links {
		if key.a == peerId || key.b == peerId {
			n.unlink(key.a, key.b)
		}
	}
	delete(n.transports, peerId)
}

func (n *Network) deliver(from, to transport.PeerId, data []byte) error {
	n.mutex.Lock()
	defer n.mutex.Unlock()
	if _, ok := n.links[newLinkKey(from, to)]; !ok {
		return transport.ErrPeerNotConnected
	}
	target, ok := n.transports[to]
	if !ok {
		return transport.ErrPeerNotConnected
	}
	target.receive(from, data)
	return nil
}

// Transport is a transport.Transport attached to a Network
type Transport struct {
	network    *Network
	peerId     transport.PeerId
	dispatcher *transport.Dispatcher
	mutex      sync.Mutex
	running    bool
	stopped    bool
}

func (t *Transport) PeerId() transport.PeerId {
	return t.peerId
}

func (t *Transport) Start(handler transport.Handler) error {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	if t.stopped {
		return transport.ErrNotStarted
	}
	if t.running {
		return nil
	}
	t.running = true
	t.dispatcher.Start(handler)
	return nil
}

func (t *Transport) Stop() error {
	t.mutex.Lock()
	if t.stopped {
		t.mutex.Unlock()
		return nil
	}
	t.stopped = true
	t.running = false
	t.mutex.Unlock()
	t.dispatcher.Stop()
	t.network.detach(t.peerId)
	return nil
}

func (t *Transport) Send(ctx context.Context, peerId transport.PeerId, msg *message.Message) error {
	t.mutex.Lock()
	running := t.running
	t.mutex.Unlock()
	if !running {
		return &transport.SendError{PeerId: peerId, Err: transport.ErrNotStarted}
	}
	if err := ctx.Err(); err != nil {
		return &transport.SendError{PeerId: peerId, Err: err}
	}
	data, err := message.Encode(msg)
	if err != nil {
		return &transport.SendError{PeerId: peerId, Err: err}
	}
	if err := t.network.deliver(t.peerId, peerId, data); err != nil {
		return &transport.SendError{PeerId: peerId, Err: err}
	}
	return nil
}

func (t *Transport) receive(from transport.PeerId, data []byte) {
	msg, err := message.Decode(data)
	if err != nil {
		t.network.logger.Debug(
			"failed to decode message",
			"component", "transport",
			"peer", from.String(),
			"error", err,
		)
		t.dispatcher.ReceiveError(&transport.ReceiveError{PeerId: from, Err: err})
		return
	}
	t.dispatcher.ReceiveMessage(from, msg)
}
