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

// Package exchange implements a peer-to-peer message exchange. Peers send
// each other messages carrying batched commands and responses, correlated by
// transaction ID, along with want-lists describing the content they are
// looking for.
//
// An Exchange ties together the wire codec (package message), the pending
// transaction registry (package transaction), the per-peer want-list state
// (package wantlist), a transport (package transport) and a notification bus
// (package notify).
package exchange

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/blinklabs-io/goexchange/message"
	"github.com/blinklabs-io/goexchange/notify"
	"github.com/blinklabs-io/goexchange/store"
	"github.com/blinklabs-io/goexchange/transaction"
	"github.com/blinklabs-io/goexchange/transport"
	"github.com/blinklabs-io/goexchange/wantlist"
	"github.com/ipfs/go-cid"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	DefaultIdentity            = "anonymous"
	DefaultFragmentConcurrency = 8
)

// Exchange is the protocol orchestrator. It implements transport.Handler and
// is registered with the transport on Start
type Exchange struct {
	identity            string
	transport           transport.Transport
	engine              PolicyEngine
	store               store.Store
	logger              *slog.Logger
	transactionTTL      time.Duration
	fragmentConcurrency int
	errorChan           chan error
	promRegistry        *prometheus.Registry
	responseFunc        ResponseFunc
	commands            *CommandRegistry
	bus                 *notify.Bus
	wantlist            *wantlist.Manager
	transactions        *transaction.Registry
	metrics             *metrics
	ctx                 context.Context
	cancel              context.CancelFunc
	mutex               sync.Mutex
	running             atomic.Bool
	stopped             bool
	blocksReceived      atomic.Uint64
	dupBlocksReceived   atomic.Uint64
	dupDataReceived     atomic.Uint64
}

// NewExchange returns a new Exchange object with the specified options
func NewExchange(options ...ExchangeOptionFunc) (*Exchange, error) {
	e := &Exchange{
		identity:            DefaultIdentity,
		transactionTTL:      transaction.DefaultTTL,
		fragmentConcurrency: DefaultFragmentConcurrency,
		commands:            NewCommandRegistry(),
	}
	// Apply provided options functions
	for _, option := range options {
		option(e)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.errorChan == nil {
		e.errorChan = make(chan error, 10)
	}
	if e.promRegistry == nil {
		e.promRegistry = prometheus.NewRegistry()
	}
	m, err := newMetrics(e.promRegistry)
	if err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}
	e.metrics = m
	e.ctx, e.cancel = context.WithCancel(context.Background())
	e.bus = notify.NewBus(e.logger)
	wantlistOptions := []wantlist.ManagerOptionFunc{
		wantlist.WithIdentity(e.identity),
		wantlist.WithLogger(e.logger),
	}
	if e.store != nil {
		wantlistOptions = append(wantlistOptions, wantlist.WithStore(e.store))
	}
	e.wantlist = wantlist.NewManager(e.sender(), wantlistOptions...)
	e.transactions = transaction.NewRegistry(
		transaction.WithTTL(e.transactionTTL),
		transaction.WithLogger(e.logger),
		transaction.WithExpiredFunc(e.handleTransactionExpired),
	)
	return e, nil
}

// New is an alias to NewExchange
func New(options ...ExchangeOptionFunc) (*Exchange, error) {
	return NewExchange(options...)
}

// ErrorChan returns the channel for asynchronous errors. Errors are dropped if the channel is full
func (e *Exchange) ErrorChan() chan error {
	return e.errorChan
}

// Notifications returns the notification bus
func (e *Exchange) Notifications() *notify.Bus {
	return e.bus
}

// Commands returns the command registry
func (e *Exchange) Commands() *CommandRegistry {
	return e.commands
}

// Identity returns the identity sent in outbound greetings
func (e *Exchange) Identity() string {
	return e.identity
}

// MetricsRegistry returns the registry holding the exchange metrics
func (e *Exchange) MetricsRegistry() *prometheus.Registry {
	return e.promRegistry
}

// PendingTransactions returns the number of commands awaiting a response
func (e *Exchange) PendingTransactions() int {
	return e.transactions.Len()
}

// Start starts the want-list manager and then the transport. If the transport
// fails to start, the want-list manager is stopped again and the error is returned
func (e *Exchange) Start() error {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	if e.stopped {
		return ErrExchangeStopped
	}
	if e.running.Load() {
		return nil
	}
	if e.transport == nil {
		return ErrNoTransport
	}
	if err := e.wantlist.Start(); err != nil {
		return fmt.Errorf("start want-list manager: %w", err)
	}
	e.running.Store(true)
	if err := e.transport.Start(e); err != nil {
		e.running.Store(false)
		_ = e.wantlist.Stop()
		return fmt.Errorf("start transport: %w", err)
	}
	e.transactions.Start()
	e.logger.Info(
		"exchange started",
		"component", "exchange",
		"identity", e.identity,
	)
	return nil
}

// Stop stops the want-list manager and then the transport. The first failure
// aborts the remaining steps and is returned. Pending transactions are abandoned
// and the exchange cannot be started again
func (e *Exchange) Stop() error {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	if e.stopped {
		return nil
	}
	if !e.running.Load() {
		return nil
	}
	e.running.Store(false)
	e.stopped = true
	e.cancel()
	defer func() {
		e.transactions.Stop()
		e.transactions.Flush()
		e.bus.Close()
	}()
	if err := e.wantlist.Stop(); err != nil {
		return fmt.Errorf("stop want-list manager: %w", err)
	}
	if err := e.transport.Stop(); err != nil {
		return fmt.Errorf("stop transport: %w", err)
	}
	e.logger.Info(
		"exchange stopped",
		"component", "exchange",
	)
	return nil
}

// CreateCommand allocates a transaction ID for the named command and returns
// a message carrying the command. The message is not sent
func (e *Exchange) CreateCommand(name string, args []byte) (*message.Message, error) {
	if name == "" {
		return nil, ErrEmptyCommandName
	}
	id, err := e.transactions.Create(name)
	if err != nil {
		return nil, err
	}
	e.metrics.transactionsCreated.Inc()
	return message.NewMessage(e.identity, message.NewCommand(id, name, args)), nil
}

// SendCommand creates a command and sends it to a connected peer. It returns
// the transaction ID of the command
func (e *Exchange) SendCommand(ctx context.Context, peerId transport.PeerId, name string, args []byte) (string, error) {
	if !e.wantlist.IsConnected(peerId) {
		return "", &transport.SendError{PeerId: peerId, Err: transport.ErrPeerNotConnected}
	}
	msg, err := e.CreateCommand(name, args)
	if err != nil {
		return "", err
	}
	txId := msg.Fragments[0].TransactionId()
	if err := e.wantlist.SendMessage(ctx, peerId, msg); err != nil {
		// Nothing will answer a command that was never sent
		e.transactions.Resolve(txId)
		return "", err
	}
	return txId, nil
}

// GetWantlist returns the local want-list
func (e *Exchange) GetWantlist() []wantlist.Entry {
	return e.wantlist.Entries()
}

// WantlistForPeer returns the want-list sent to a connected peer
func (e *Exchange) WantlistForPeer(peerId transport.PeerId) ([]wantlist.Entry, bool) {
	return e.wantlist.PeerEntries(peerId)
}

// Want adds CIDs to the local want-list and tells connected peers about them
func (e *Exchange) Want(ctx context.Context, priority int32, cids ...cid.Cid) error {
	return e.wantlist.Want(ctx, priority, cids...)
}

// CancelWant removes CIDs from the local want-list and tells connected peers
func (e *Exchange) CancelWant(ctx context.Context, cids ...cid.Cid) error {
	return e.wantlist.Cancel(ctx, cids...)
}

// ConnectedPeers returns the peers currently connected through the transport
func (e *Exchange) ConnectedPeers() []transport.PeerId {
	return e.wantlist.Peers()
}

func (e *Exchange) sendError(err error) {
	select {
	case e.errorChan <- err:
	default:
		e.logger.Debug(
			"error channel full, dropping error",
			"component", "exchange",
			"error", err,
		)
	}
}

func (e *Exchange) handleTransactionExpired(txn transaction.Transaction) {
	e.metrics.transactionsExpired.Inc()
	e.bus.Publish(
		notify.Event{
			Type:          notify.EventTransactionExpired,
			CommandName:   txn.Command,
			TransactionId: txn.Id,
		},
	)
}

// sender returns the transport as a wantlist.Sender. The transport is looked
// up on each send so that a nil transport fails cleanly
func (e *Exchange) sender() wantlist.Sender {
	return senderFunc(func(ctx context.Context, peerId transport.PeerId, msg *message.Message) error {
		if e.transport == nil {
			return &transport.SendError{PeerId: peerId, Err: ErrNoTransport}
		}
		return e.transport.Send(ctx, peerId, msg)
	})
}

type senderFunc func(context.Context, transport.PeerId, *message.Message) error

func (f senderFunc) Send(ctx context.Context, peerId transport.PeerId, msg *message.Message) error {
	return f(ctx, peerId, msg)
}

var _ transport.Handler = (*Exchange)(nil)

