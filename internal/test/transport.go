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
	"context"
	"sync"

	"github.com/blinklabs-io/goexchange/message"
	"github.com/blinklabs-io/goexchange/transport"
	"github.com/stretchr/testify/mock"
)

// MockTransport is a transport.Transport backed by testify/mock. Start captures
// the handler so that tests can inject inbound events
type MockTransport struct {
	mock.Mock
	mutex   sync.Mutex
	handler transport.Handler
	sent    []ReceivedMessage
}

func (m *MockTransport) Start(handler transport.Handler) error {
	m.mutex.Lock()
	m.handler = handler
	m.mutex.Unlock()
	args := m.Called(handler)
	return args.Error(0)
}

func (m *MockTransport) Stop() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockTransport) Send(ctx context.Context, peerId transport.PeerId, msg *message.Message) error {
	m.mutex.Lock()
	m.sent = append(m.sent, ReceivedMessage{PeerId: peerId, Message: msg})
	m.mutex.Unlock()
	args := m.Called(ctx, peerId, msg)
	return args.Error(0)
}

// Handler returns the handler passed to Start
func (m *MockTransport) Handler() transport.Handler {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.handler
}

// SentMessages returns the messages passed to Send for the given peer
func (m *MockTransport) SentMessages(peerId transport.PeerId) []*message.Message {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	var ret []*message.Message
	for _, sent := range m.sent {
		if sent.PeerId == peerId {
			ret = append(ret, sent.Message)
		}
	}
	return ret
}
