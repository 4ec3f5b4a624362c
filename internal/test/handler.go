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

package test

import (
	"github.com/blinklabs-io/goexchange/message"
	"github.com/blinklabs-io/goexchange/transport"
)

type ReceivedMessage struct {
	PeerId  transport.PeerId
	Message *message.Message
}

// RecordingHandler is a transport.Handler that forwards each event to a channel
type RecordingHandler struct {
	MessageChan      chan ReceivedMessage
	ErrorChan        chan error
	ConnectedChan    chan transport.PeerId
	DisconnectedChan chan transport.PeerId
}

func NewRecordingHandler() *RecordingHandler {
	return &RecordingHandler{
		MessageChan:      make(chan ReceivedMessage, 100),
		ErrorChan:        make(chan error, 100),
		ConnectedChan:    make(chan transport.PeerId, 100),
		DisconnectedChan: make(chan transport.PeerId, 100),
	}
}

func (h *RecordingHandler) ReceiveMessage(peerId transport.PeerId, msg *message.Message) {
	h.MessageChan <- ReceivedMessage{PeerId: peerId, Message: msg}
}

func (h *RecordingHandler) ReceiveError(err error) {
	h.ErrorChan <- err
}

func (h *RecordingHandler) PeerConnected(peerId transport.PeerId) {
	h.ConnectedChan <- peerId
}

func (h *RecordingHandler) PeerDisconnected(peerId transport.PeerId) {
	h.DisconnectedChan <- peerId
}
