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
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "exchange"

// Label for commands without a registered handler. Names sent by peers are
// not used as label values for unknown commands to keep cardinality bounded
const unknownCommandLabel = "_unknown"

type metrics struct {
	messagesReceived    prometheus.Counter
	fragmentsReceived   *prometheus.CounterVec
	commandsReceived    *prometheus.CounterVec
	responsesReceived   *prometheus.CounterVec
	receiveErrors       prometheus.Counter
	transactionsCreated prometheus.Counter
	transactionsExpired prometheus.Counter
	blocksReceived      prometheus.Counter
	dupBlocksReceived   prometheus.Counter
	dupDataReceived     prometheus.Counter
}

func newMetrics(reg prometheus.Registerer) (*metrics, error) {
	m := &metrics{
		messagesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "messages_received_total",
			Help:      "Inbound messages, including empty ones",
		}),
		fragmentsReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "fragments_received_total",
			Help:      "Inbound fragments by type",
		}, []string{"type"}),
		commandsReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "commands_received_total",
			Help:      "Inbound commands by name",
		}, []string{"command"}),
		responsesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "responses_received_total",
			Help:      "Inbound responses by whether they matched a pending transaction",
		}, []string{"resolved"}),
		receiveErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "receive_errors_total",
			Help:      "Errors reported by the transport while receiving",
		}),
		transactionsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "transactions_created_total",
			Help:      "Outbound commands created",
		}),
		transactionsExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "transactions_expired_total",
			Help:      "Outbound commands that expired without a response",
		}),
		blocksReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "blocks_received_total",
			Help:      "Blocks received",
		}),
		dupBlocksReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "dup_blocks_received_total",
			Help:      "Duplicate blocks received",
		}),
		dupDataReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "dup_data_received_bytes_total",
			Help:      "Bytes of duplicate block data received",
		}),
	}
	collectors := []prometheus.Collector{
		m.messagesReceived,
		m.fragmentsReceived,
		m.commandsReceived,
		m.responsesReceived,
		m.receiveErrors,
		m.transactionsCreated,
		m.transactionsExpired,
		m.blocksReceived,
		m.dupBlocksReceived,
		m.dupDataReceived,
	}
	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			return nil, err
		}
	}
	return m, nil
}
