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

// Package transport defines the interface between the exchange and the
// overlay network that carries its messages
package transport

import (
	"context"
	"errors"
	"fmt"

	"github.com/blinklabs-io/goexchange/message"
)

var (
	ErrNotStarted       = errors.New("transport not started")
	ErrPeerNotConnected = errors.New("peer not connected")
)

// PeerId identifies a remote peer. Its format is defined by the transport
type PeerId string

func (p PeerId) String() string {
	return string(p)
}

// Handler receives inbound events from a transport
type Handler interface {
	// ReceiveMessage is called for each decoded inbound message
	ReceiveMessage(PeerId, *message.Message)
	// ReceiveError is called for decode and connection errors. The transport keeps running
	ReceiveError(error)
	PeerConnected(PeerId)
	PeerDisconnected(PeerId)
}

// Transport delivers messages to and from connected peers
type Transport interface {
	Start(Handler) error
	Stop() error
	Send(context.Context, PeerId, *message.Message) error
}

// SendError is returned when a message could not be delivered to a peer
type SendError struct {
	PeerId PeerId
	Err    error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("send to peer %s failed: %s", e.PeerId, e.Err)
}

func (e *SendError) Unwrap() error {
	return e.Err
}

// ReceiveError wraps an error encountered while receiving from a peer
type ReceiveError struct {
	PeerId PeerId
	Err    error
}

func (e *ReceiveError) Error() string {
	return fmt.Sprintf("receive from peer %s failed: %s", e.PeerId, e.Err)
}

func (e *ReceiveError) Unwrap() error {
	return e.Err
}
