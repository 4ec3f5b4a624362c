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

// PolicyEngine decides which peers the exchange serves. The exchange only
// queries it, the policy itself lives outside this module
type PolicyEngine interface {
	Peers() []transport.PeerId
}

// PeerDisconnectHandler is implemented by policy engines that track peer state
type PeerDisconnectHandler interface {
	PeerDisconnected(transport.PeerId)
}

// WantlistReceiver is implemented by policy engines that want to see the
// want-lists sent by remote peers
type WantlistReceiver interface {
	ReceiveWantlist(peerId transport.PeerId, wants []wantlist.Entry, cancels []wantlist.Entry, full bool)
}
