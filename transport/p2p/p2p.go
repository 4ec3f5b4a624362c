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

// Package p2p implements the exchange transport on top of a libp2p host.
// Each message is written as a single framed segment on a new stream
package p2p

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/blinklabs-io/goexchange/message"
	"github.com/blinklabs-io/goexchange/transport"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/network"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/core/protocol"
	"golang.org/x/time/rate"
)

const (
	ProtocolId protocol.ID = "/exchange/1.0.0"

	DefaultStreamTimeout = 30 * time.Second
)

var ErrRateLimited = errors.New("inbound message rate limit exceeded")

type Config struct {
	Logger        *slog.Logger
	StreamTimeout time.Duration
	// RateLimit is the per-peer inbound message rate. 0 disables rate limiting
	RateLimit rate.Limit
	RateBurst int
}

// TransportOptionFunc is a type that represents functions that modify the transport config
type TransportOptionFunc func(*Config)

func NewConfig(options ...TransportOptionFunc) Config {
	c := Config{
		StreamTimeout: DefaultStreamTimeout,
	}
	for _, option := range options {
		option(&c)
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.RateLimit > 0 && c.RateBurst <= 0 {
		c.RateBurst = 1
	}
	return c
}

// WithLogger specifies the logger
func WithLogger(logger *slog.Logger) TransportOptionFunc {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithStreamTimeout specifies the deadline for writing or reading a single message
func WithStreamTimeout(timeout time.Duration) TransportOptionFunc {
	return func(c *Config) {
		c.StreamTimeout = timeout
	}
}

// WithRateLimit specifies the per-peer inbound message rate and burst
func WithRateLimit(limit rate.Limit, burst int) TransportOptionFunc {
	return func(c *Config) {
		c.RateLimit = limit
		c.RateBurst = burst
	}
}

// Transport is a transport.Transport backed by a libp2p host
type Transport struct {
	config     Config
	host       host.Host
	dispatcher *transport.Dispatcher
	notifiee   *network.NotifyBundle
	mutex      sync.Mutex
	peers      map[peer.ID]struct{}
	limiters   map[peer.ID]*rate.Limiter
	running    bool
	stopped    bool
	waitGroup  sync.WaitGroup
}

func New(h host.Host, options ...TransportOptionFunc) *Transport {
	config := NewConfig(options...)
	t := &Transport{
		config:     config,
		host:       h,
		dispatcher: transport.NewDispatcher(transport.WithLogger(config.Logger)),
		peers:      make(map[peer.ID]struct{}),
		limiters:   make(map[peer.ID]*rate.Limiter),
	}
	t.notifiee = &network.NotifyBundle{
		ConnectedF:    t.handleConnected,
		DisconnectedF: t.handleDisconnected,
	}
	return t
}

// PeerId returns the local peer ID
func (t *Transport) PeerId() transport.PeerId {
	return transport.PeerId(t.host.ID().String())
}

func (t *Transport) Start(handler transport.Handler) error {
	t.mutex.Lock()
	if t.stopped {
		t.mutex.Unlock()
		return transport.ErrNotStarted
	}
	if t.running {
		t.mutex.Unlock()
		return nil
	}
	t.running = true
	t.mutex.Unlock()
	t.dispatcher.Start(handler)
	t.host.SetStreamHandler(ProtocolId, t.handleStream)
	t.host.Network().Notify(t.notifiee)
	// Announce peers that connected before we started listening for events
	for _, peerId := range t.host.Network().Peers() {
		t.peerUp(peerId)
	}
	t.config.Logger.Info(
		"transport started",
		"component", "transport",
		"peer", t.host.ID().String(),
		"protocol", string(ProtocolId),
	)
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
	t.host.RemoveStreamHandler(ProtocolId)
	t.host.Network().StopNotify(t.notifiee)
	// Wait for in-flight inbound streams
	t.waitGroup.Wait()
	t.dispatcher.Stop()
	return nil
}

func (t *Transport) Send(ctx context.Context, peerId transport.PeerId, msg *message.Message) error {
	if !t.isRunning() {
		return &transport.SendError{PeerId: peerId, Err: transport.ErrNotStarted}
	}
	remote, err := peer.Decode(peerId.String())
	if err != nil {
		return &transport.SendError{PeerId: peerId, Err: err}
	}
	if t.host.Network().Connectedness(remote) != network.Connected {
		return &transport.SendError{PeerId: peerId, Err: transport.ErrPeerNotConnected}
	}
	data, err := message.Encode(msg)
	if err != nil {
		return &transport.SendError{PeerId: peerId, Err: err}
	}
	segment, err := transport.NewSegment(data)
	if err != nil {
		return &transport.SendError{PeerId: peerId, Err: err}
	}
	s, err := t.host.NewStream(ctx, remote, ProtocolId)
	if err != nil {
		return &transport.SendError{PeerId: peerId, Err: err}
	}
	if err := s.SetWriteDeadline(time.Now().Add(t.config.StreamTimeout)); err != nil {
		_ = s.Reset()
		return &transport.SendError{PeerId: peerId, Err: err}
	}
	if err := transport.WriteSegment(s, segment); err != nil {
		_ = s.Reset()
		return &transport.SendError{PeerId: peerId, Err: err}
	}
	return s.Close()
}

func (t *Transport) isRunning() bool {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	return t.running
}

func (t *Transport) handleStream(s network.Stream) {
	t.mutex.Lock()
	if !t.running {
		t.mutex.Unlock()
		_ = s.Reset()
		return
	}
	t.waitGroup.Add(1)
	t.mutex.Unlock()
	defer t.waitGroup.Done()

	remote := s.Conn().RemotePeer()
	peerId := transport.PeerId(remote.String())
	logger := t.config.Logger.With(
		"component", "transport",
		"peer", peerId.String(),
	)
	if err := s.SetReadDeadline(time.Now().Add(t.config.StreamTimeout)); err != nil {
		logger.Debug("failed to set read deadline", "error", err)
	}
	for {
		segment, err := transport.ReadSegment(s)
		if err != nil {
			if errors.Is(err, io.EOF) {
				_ = s.Close()
				return
			}
			_ = s.Reset()
			if errors.Is(err, network.ErrReset) {
				return
			}
			t.dispatcher.ReceiveError(&transport.ReceiveError{PeerId: peerId, Err: err})
			return
		}
		if !t.allow(remote) {
			logger.Warn("dropping inbound message", "error", ErrRateLimited)
			t.dispatcher.ReceiveError(&transport.ReceiveError{PeerId: peerId, Err: ErrRateLimited})
			continue
		}
		msg, err := message.Decode(segment.Payload)
		if err != nil {
			logger.Debug("failed to decode message", "error", err)
			t.dispatcher.ReceiveError(&transport.ReceiveError{PeerId: peerId, Err: err})
			continue
		}
		t.dispatcher.ReceiveMessage(peerId, msg)
	}
}

func (t *Transport) allow(remote peer.ID) bool {
	if t.config.RateLimit <= 0 {
		return true
	}
	t.mutex.Lock()
	limiter, ok := t.limiters[remote]
	if !ok {
		limiter = rate.NewLimiter(t.config.RateLimit, t.config.RateBurst)
		t.limiters[remote] = limiter
	}
	t.mutex.Unlock()
	return limiter.Allow()
}

func (t *Transport) handleConnected(_ network.Network, conn network.Conn) {
	t.peerUp(conn.RemotePeer())
}

func (t *Transport) handleDisconnected(n network.Network, conn network.Conn) {
	remote := conn.RemotePeer()
	// Other connections to the same peer may still be open
	if n.Connectedness(remote) == network.Connected {
		return
	}
	t.mutex.Lock()
	_, ok := t.peers[remote]
	delete(t.peers, remote)
	delete(t.limiters, remote)
	t.mutex.Unlock()
	if !ok {
		return
	}
	t.config.Logger.Debug(
		"peer disconnected",
		"component", "transport",
		"peer", remote.String(),
	)
	t.dispatcher.PeerDisconnected(transport.PeerId(remote.String()))
}

func (t *Transport) peerUp(remote peer.ID) {
	t.mutex.Lock()
	if _, ok := t.peers[remote]; ok || !t.running {
		t.mutex.Unlock()
		return
	}
	t.peers[remote] = struct{}{}
	t.mutex.Unlock()
	t.config.Logger.Debug(
		"peer connected",
		"component", "transport",
		"peer", remote.String(),
	)
	t.dispatcher.PeerConnected(transport.PeerId(remote.String()))
}
