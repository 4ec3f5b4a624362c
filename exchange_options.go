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

package exchange

import (
	"log/slog"
	"time"

	"github.com/blinklabs-io/goexchange/message"
	"github.com/blinklabs-io/goexchange/store"
	"github.com/blinklabs-io/goexchange/transaction"
	"github.com/blinklabs-io/goexchange/transport"
	"github.com/prometheus/client_golang/prometheus"
)

// ExchangeOptionFunc is a type that represents functions that modify the Exchange config
type ExchangeOptionFunc func(*Exchange)

// ResponseFunc is called for each inbound response that matches a pending transaction
type ResponseFunc func(transport.PeerId, transaction.Transaction, *message.Response)

// WithTransport specifies the transport used to reach peers
func WithTransport(t transport.Transport) ExchangeOptionFunc {
	return func(e *Exchange) {
		e.transport = t
	}
}

// WithIdentity specifies the identity sent in the greeting of every outbound message
func WithIdentity(identity string) ExchangeOptionFunc {
	return func(e *Exchange) {
		e.identity = identity
	}
}

// WithLogger specifies the logger. If none is provided, slog.Default() is used
func WithLogger(logger *slog.Logger) ExchangeOptionFunc {
	return func(e *Exchange) {
		e.logger = logger
	}
}

// WithPolicyEngine specifies the policy engine
func WithPolicyEngine(engine PolicyEngine) ExchangeOptionFunc {
	return func(e *Exchange) {
		e.engine = engine
	}
}

// WithStore specifies a store used to persist the local want-list
func WithStore(s store.Store) ExchangeOptionFunc {
	return func(e *Exchange) {
		e.store = s
	}
}

// WithTransactionTTL specifies how long an outbound command waits for a response.
// A TTL of 0 disables expiry
func WithTransactionTTL(ttl time.Duration) ExchangeOptionFunc {
	return func(e *Exchange) {
		e.transactionTTL = ttl
	}
}

// WithCommandHandler registers a handler for a command name, replacing any existing handler
func WithCommandHandler(name string, handler CommandHandlerFunc) ExchangeOptionFunc {
	return func(e *Exchange) {
		e.commands.Register(name, handler)
	}
}

// WithFragmentConcurrency limits how many fragments of a single message are
// processed at once. A value <= 0 removes the limit
func WithFragmentConcurrency(concurrency int) ExchangeOptionFunc {
	return func(e *Exchange) {
		e.fragmentConcurrency = concurrency
	}
}

// WithErrorChan specifies the error channel to use. If none is provided, one will be created
func WithErrorChan(errorChan chan error) ExchangeOptionFunc {
	return func(e *Exchange) {
		e.errorChan = errorChan
	}
}

// WithPrometheusRegistry specifies the registry for the exchange metrics. If
// none is provided, a private registry is created
func WithPrometheusRegistry(registry *prometheus.Registry) ExchangeOptionFunc {
	return func(e *Exchange) {
		e.promRegistry = registry
	}
}

// WithResponseFunc specifies a callback for responses to our commands
func WithResponseFunc(responseFunc ResponseFunc) ExchangeOptionFunc {
	return func(e *Exchange) {
		e.responseFunc = responseFunc
	}
}
