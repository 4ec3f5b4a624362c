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

package wantlist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/blinklabs-io/goexchange/message"
	"github.com/blinklabs-io/goexchange/store"
	"github.com/blinklabs-io/goexchange/transport"
	"github.com/ipfs/go-cid"
)

const DefaultSendTimeout = 30 * time.Second

// Sender delivers messages to peers. It is normally the transport
type Sender interface {
	Send(context.Context, transport.PeerId, *message.Message) error
}

type Config struct {
	// Identity is the greeting attached to every outbound message
	Identity    string
	Store       store.Store
	Logger      *slog.Logger
	SendTimeout time.Duration
}

// ManagerOptionFunc is a type that represents functions that modify the manager config
type ManagerOptionFunc func(*Config)

func NewConfig(options ...ManagerOptionFunc) Config {
	c := Config{
		SendTimeout: DefaultSendTimeout,
	}
	for _, option := range options {
		option(&c)
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// WithIdentity specifies the greeting identity for outbound messages
func WithIdentity(identity string) ManagerOptionFunc {
	return func(c *Config) {
		c.Identity = identity
	}
}

// WithStore specifies a store used to persist the local want-list
func WithStore(s store.Store) ManagerOptionFunc {
	return func(c *Config) {
		c.Store = s
	}
}

// WithLogger specifies the logger
func WithLogger(logger *slog.Logger) ManagerOptionFunc {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithSendTimeout bounds each send. A value of 0 only uses the caller's context
func WithSendTimeout(timeout time.Duration) ManagerOptionFunc {
	return func(c *Config) {
		c.SendTimeout = timeout
	}
}

type peerState struct {
	mutex     sync.Mutex
	wantlist  *Wantlist
	connected bool
}

// Manager owns the local want-list and the per-peer state of connected peers.
// Operations on a single peer are serialized, different peers proceed in parallel
type Manager struct {
	config  Config
	sender  Sender
	mutex   sync.RWMutex
	local   *Wantlist
	peers   map[transport.PeerId]*peerState
	running bool
	loaded  bool
}

func NewManager(sender Sender, options ...ManagerOptionFunc) *Manager {
	return &Manager{
		config: NewConfig(options...),
		sender: sender,
		local:  New(),
		peers:  make(map[transport.PeerId]*peerState),
	}
}

// Start enables peer tracking. On first start the local want-list is loaded
// from the store, if one is configured. Calling Start on a running manager has no effect
func (m *Manager) Start() error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if m.running {
		return nil
	}
	if !m.loaded && m.config.Store != nil {
		if err := m.load(); err != nil {
			return fmt.Errorf("load want-list: %w", err)
		}
	}
	m.loaded = true
	m.running = true
	return nil
}

// Stop discards all peer state. Calling Stop on a stopped manager has no effect
func (m *Manager) Stop() error {
	m.mutex.Lock()
	if !m.running {
		m.mutex.Unlock()
		return nil
	}
	m.running = false
	peers := m.peers
	m.peers = make(map[transport.PeerId]*peerState)
	m.mutex.Unlock()
	for _, ps := range peers {
		ps.mutex.Lock()
		ps.connected = false
		ps.mutex.Unlock()
	}
	return nil
}

// Connected creates the peer state and sends the full local want-list to the peer
func (m *Manager) Connected(ctx context.Context, peerId transport.PeerId) error {
	m.mutex.Lock()
	if !m.running {
		m.mutex.Unlock()
		return nil
	}
	if _, ok := m.peers[peerId]; ok {
		m.mutex.Unlock()
		return nil
	}
	ps := &peerState{
		wantlist:  New(),
		connected: true,
	}
	m.peers[peerId] = ps
	entries := m.local.Entries()
	// Lock the peer before releasing the manager so that the full want-list
	// is sent ahead of any later incremental update
	ps.mutex.Lock()
	m.mutex.Unlock()
	defer ps.mutex.Unlock()
	for _, e := range entries {
		ps.wantlist.Add(e.Cid, e.Priority)
	}
	wl, err := ToMessage(entries, true, false)
	if err != nil {
		return err
	}
	msg := message.NewMessage(m.config.Identity)
	msg.Wantlist = wl
	m.config.Logger.Debug(
		"peer connected",
		"component", "wantlist",
		"peer", peerId.String(),
		"entries", len(entries),
	)
	return m.send(ctx, peerId, msg)
}

// Disconnected discards the peer state. No further messages are sent to the peer
func (m *Manager) Disconnected(peerId transport.PeerId) {
	m.mutex.Lock()
	ps, ok := m.peers[peerId]
	delete(m.peers, peerId)
	m.mutex.Unlock()
	if !ok {
		return
	}
	ps.mutex.Lock()
	ps.connected = false
	ps.mutex.Unlock()
	m.config.Logger.Debug(
		"peer disconnected",
		"component", "wantlist",
		"peer", peerId.String(),
	)
}

// SendMessage sends a message to a connected peer. It does nothing if the peer
// is not connected. Transport errors are returned to the caller
func (m *Manager) SendMessage(ctx context.Context, peerId transport.PeerId, msg *message.Message) error {
	ps := m.peer(peerId)
	if ps == nil {
		m.config.Logger.Debug(
			"not sending message to unconnected peer",
			"component", "wantlist",
			"peer", peerId.String(),
		)
		return nil
	}
	ps.mutex.Lock()
	defer ps.mutex.Unlock()
	if !ps.connected {
		return nil
	}
	return m.send(ctx, peerId, msg)
}

// Want adds CIDs to the local want-list and sends the new entries to every
// connected peer. The local want-list is left unchanged if any CID is invalid
// or the entries cannot be persisted
func (m *Manager) Want(ctx context.Context, priority int32, cids ...cid.Cid) error {
	for _, c := range cids {
		if !c.Defined() {
			return ErrInvalidCid
		}
	}
	m.mutex.Lock()
	var added []Entry
	var previous []Entry
	for _, c := range cids {
		prev, existed := m.local.Get(c)
		if !m.local.Add(c, priority) {
			continue
		}
		e, _ := m.local.Get(c)
		added = append(added, e)
		if existed {
			previous = append(previous, prev)
		}
	}
	if err := m.persistAdded(added); err != nil {
		for _, e := range added {
			m.local.Remove(e.Cid)
		}
		for _, e := range previous {
			m.local.restore(e)
		}
		m.mutex.Unlock()
		return err
	}
	peers := m.peerSnapshot()
	m.mutex.Unlock()
	if len(added) == 0 {
		return nil
	}
	var errs []error
	for peerId, ps := range peers {
		if err := m.updatePeer(ctx, peerId, ps, added, false); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Cancel removes CIDs from the local want-list and sends cancellations to the
// peers that were told about them. The local want-list is left unchanged if
// the removal cannot be persisted
func (m *Manager) Cancel(ctx context.Context, cids ...cid.Cid) error {
	m.mutex.Lock()
	var removed []Entry
	for _, c := range cids {
		e, ok := m.local.Get(c)
		if !ok {
			continue
		}
		m.local.Remove(c)
		removed = append(removed, e)
	}
	if err := m.persistRemoved(removed); err != nil {
		for _, e := range removed {
			m.local.restore(e)
		}
		m.mutex.Unlock()
		return err
	}
	peers := m.peerSnapshot()
	m.mutex.Unlock()
	if len(removed) == 0 {
		return nil
	}
	var errs []error
	for peerId, ps := range peers {
		if err := m.updatePeer(ctx, peerId, ps, removed, true); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Entries returns the local want-list
func (m *Manager) Entries() []Entry {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.local.Entries()
}

// PeerEntries returns the want-list sent to a peer. The boolean is false if the
// peer is not connected
func (m *Manager) PeerEntries(peerId transport.PeerId) ([]Entry, bool) {
	ps := m.peer(peerId)
	if ps == nil {
		return nil, false
	}
	ps.mutex.Lock()
	defer ps.mutex.Unlock()
	if !ps.connected {
		return nil, false
	}
	return ps.wantlist.Entries(), true
}

// Peers returns the connected peers, sorted
func (m *Manager) Peers() []transport.PeerId {
	m.mutex.RLock()
	ret := make([]transport.PeerId, 0, len(m.peers))
	for peerId := range m.peers {
		ret = append(ret, peerId)
	}
	m.mutex.RUnlock()
	slices.Sort(ret)
	return ret
}

// IsConnected returns true if the peer is connected
func (m *Manager) IsConnected(peerId transport.PeerId) bool {
	return m.peer(peerId) != nil
}

func (m *Manager) peer(peerId transport.PeerId) *peerState {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.peers[peerId]
}

// peerSnapshot must be called with the mutex held
func (m *Manager) peerSnapshot() map[transport.PeerId]*peerState {
	ret := make(map[transport.PeerId]*peerState, len(m.peers))
	for peerId, ps := range m.peers {
		ret[peerId] = ps
	}
	return ret
}

func (m *Manager) updatePeer(
	ctx context.Context,
	peerId transport.PeerId,
	ps *peerState,
	entries []Entry,
	cancel bool,
) error {
	ps.mutex.Lock()
	defer ps.mutex.Unlock()
	if !ps.connected {
		return nil
	}
	var changed []Entry
	for _, e := range entries {
		if cancel {
			if ps.wantlist.Remove(e.Cid) {
				changed = append(changed, e)
			}
		} else if ps.wantlist.Add(e.Cid, e.Priority) {
			changed = append(changed, e)
		}
	}
	if len(changed) == 0 {
		return nil
	}
	wl, err := ToMessage(changed, false, cancel)
	if err != nil {
		return err
	}
	msg := message.NewMessage(m.config.Identity)
	msg.Wantlist = wl
	return m.send(ctx, peerId, msg)
}

// send must be called with the peer mutex held
func (m *Manager) send(ctx context.Context, peerId transport.PeerId, msg *message.Message) error {
	if m.config.SendTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.config.SendTimeout)
		defer cancel()
	}
	if err := m.sender.Send(ctx, peerId, msg); err != nil {
		m.config.Logger.Debug(
			"failed to send message",
			"component", "wantlist",
			"peer", peerId.String(),
			"error", err,
		)
		return err
	}
	return nil
}
