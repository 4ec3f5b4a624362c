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
	"github.com/blinklabs-io/goexchange/transport"
	"github.com/blinklabs-io/goexchange/wantlist"
)

// Stat is a snapshot of the exchange state
type Stat struct {
	Wantlist          []wantlist.Entry
	BlocksReceived    uint64
	DupBlocksReceived uint64
	DupDataReceived   uint64
	Peers             []transport.PeerId
}

// Stat returns a snapshot of the exchange state. The peer list comes from the
// policy engine, so ErrNoPolicyEngine is returned when none is configured
func (e *Exchange) Stat() (*Stat, error) {
	if e.engine == nil {
		return nil, ErrNoPolicyEngine
	}
	return &Stat{
		Wantlist:          e.wantlist.Entries(),
		BlocksReceived:    e.blocksReceived.Load(),
		DupBlocksReceived: e.dupBlocksReceived.Load(),
		DupDataReceived:   e.dupDataReceived.Load(),
		Peers:             e.engine.Peers(),
	}, nil
}

// ReceivedBlock records a block received through the content path
func (e *Exchange) ReceivedBlock(size int, duplicate bool) {
	e.blocksReceived.Add(1)
	e.metrics.blocksReceived.Inc()
	if !duplicate {
		return
	}
	e.dupBlocksReceived.Add(1)
	e.metrics.dupBlocksReceived.Inc()
	if size > 0 {
		// #nosec G115 -- size is positive
		e.dupDataReceived.Add(uint64(size))
		e.metrics.dupDataReceived.Add(float64(size))
	}
}
