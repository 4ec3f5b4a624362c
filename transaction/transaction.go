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

// Package transaction tracks outbound commands by transaction ID until the
// matching response arrives or the entry expires
package transaction

import (
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

const (
	DefaultTTL = 2 * time.Minute

	// Number of fresh IDs tried before giving up on a create
	maxCreateAttempts = 16
)

var ErrIdSpaceExhausted = errors.New("unable to allocate unique transaction ID")

// Transaction is a pending outbound command
type Transaction struct {
	Id      string
	Command string
	Created time.Time
}

// Age returns the time elapsed since the transaction was created
func (t Transaction) Age() time.Duration {
	return time.Since(t.Created)
}

// ExpiredFunc is called for each transaction that expires without a response
type ExpiredFunc func(Transaction)

// IdFunc generates candidate transaction IDs
type IdFunc func() string

type Config struct {
	TTL           time.Duration
	SweepInterval time.Duration
	ExpiredFunc   ExpiredFunc
	IdFunc        IdFunc
	Logger        *slog.Logger
}

// RegistryOptionFunc is a type that represents functions that modify the registry config
type RegistryOptionFunc func(*Config)

// NewConfig returns a new registry config object with the provided options applied
func NewConfig(options ...RegistryOptionFunc) Config {
	c := Config{
		TTL:    DefaultTTL,
		IdFunc: uuid.NewString,
	}
	for _, option := range options {
		option(&c)
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = c.TTL
	}
	return c
}

// WithTTL specifies how long a transaction stays pending. A TTL of 0 disables expiry
func WithTTL(ttl time.Duration) RegistryOptionFunc {
	return func(c *Config) {
		c.TTL = ttl
	}
}

// WithSweepInterval specifies how often expired transactions are removed. It defaults to the TTL
func WithSweepInterval(interval time.Duration) RegistryOptionFunc {
	return func(c *Config) {
		c.SweepInterval = interval
	}
}

// WithExpiredFunc specifies a callback for transactions that expire
func WithExpiredFunc(expiredFunc ExpiredFunc) RegistryOptionFunc {
	return func(c *Config) {
		c.ExpiredFunc = expiredFunc
	}
}

// WithIdFunc specifies the transaction ID generator
func WithIdFunc(idFunc IdFunc) RegistryOptionFunc {
	return func(c *Config) {
		c.IdFunc = idFunc
	}
}

// WithLogger specifies the logger
func WithLogger(logger *slog.Logger) RegistryOptionFunc {
	return func(c *Config) {
		c.Logger = logger
	}
}

type entry struct {
	txn      Transaction
	resolved atomic.Bool
}

// Registry maps pending transaction IDs to the command that created them
type Registry struct {
	config       Config
	cache        *cache.Cache
	resolveMutex sync.Mutex
	expired      []Transaction
	doneChan     chan struct{}
	startOnce    sync.Once
	stopOnce     sync.Once
	waitGroup    sync.WaitGroup
}

func NewRegistry(options ...RegistryOptionFunc) *Registry {
	r := &Registry{
		config:   NewConfig(options...),
		doneChan: make(chan struct{}),
	}
	expiration := r.config.TTL
	if expiration <= 0 {
		expiration = cache.NoExpiration
	}
	// Expired entries are removed by our own sweeper, so no janitor is started
	r.cache = cache.New(expiration, 0)
	r.cache.OnEvicted(r.handleEvicted)
	return r
}

// Start runs the expiry sweeper. It is a no-op when expiry is disabled
func (r *Registry) Start() {
	r.startOnce.Do(func() {
		if r.config.TTL <= 0 {
			return
		}
		r.waitGroup.Add(1)
		go r.sweepLoop()
	})
}

// Stop halts the expiry sweeper. Pending transactions are kept
func (r *Registry) Stop() {
	r.stopOnce.Do(func() {
		close(r.doneChan)
	})
	r.waitGroup.Wait()
}

// Create registers a new pending transaction for the named command and returns its ID
func (r *Registry) Create(command string) (string, error) {
	txn := Transaction{
		Command: command,
		Created: time.Now(),
	}
	for range maxCreateAttempts {
		id := r.config.IdFunc()
		if id == "" {
			continue
		}
		txn.Id = id
		if err := r.cache.Add(id, &entry{txn: txn}, cache.DefaultExpiration); err != nil {
			r.config.Logger.Debug(
				"transaction ID collision",
				"component", "transaction",
				"transaction_id", id,
			)
			continue
		}
		return id, nil
	}
	return "", ErrIdSpaceExhausted
}

// Resolve removes and returns the pending transaction with the given ID. It
// returns false if the ID is unknown, already resolved, or expired
func (r *Registry) Resolve(id string) (Transaction, bool) {
	r.resolveMutex.Lock()
	defer r.resolveMutex.Unlock()
	val, ok := r.cache.Get(id)
	if !ok {
		return Transaction{}, false
	}
	e := val.(*entry)
	e.resolved.Store(true)
	r.cache.Delete(id)
	return e.txn, true
}

// Len returns the number of pending transactions
func (r *Registry) Len() int {
	return len(r.cache.Items())
}

// Sweep removes expired transactions and reports them to the ExpiredFunc.
// A transaction is either resolved or reported as expired, never both
func (r *Registry) Sweep() {
	r.resolveMutex.Lock()
	r.cache.DeleteExpired()
	expired := r.expired
	r.expired = nil
	r.resolveMutex.Unlock()
	for _, txn := range expired {
		r.config.Logger.Debug(
			"transaction expired",
			"component", "transaction",
			"transaction_id", txn.Id,
			"command", txn.Command,
			"age", txn.Age(),
		)
		if r.config.ExpiredFunc != nil {
			r.config.ExpiredFunc(txn)
		}
	}
}

// Flush abandons all pending transactions without reporting them as expired
func (r *Registry) Flush() {
	r.cache.Flush()
}

func (r *Registry) sweepLoop() {
	defer r.waitGroup.Done()
	ticker := time.NewTicker(r.config.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-r.doneChan:
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}

// handleEvicted is called with resolveMutex held
func (r *Registry) handleEvicted(_ string, val any) {
	e, ok := val.(*entry)
	if !ok || e.resolved.Load() {
		return
	}
	r.expired = append(r.expired, e.txn)
}
