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

package message

import (
	"errors"
	"fmt"

	"github.com/blinklabs-io/goexchange/cbor"
)

// Greeting identifies the sender of a message. The identity is a claim made by
// the sender and is not authenticated
type Greeting struct {
	cbor.StructAsArray
	Identity string
}

// WantlistEntry is a single want (or cancel) for a content ID
type WantlistEntry struct {
	cbor.StructAsArray
	Cid      []byte
	Priority int32
	Cancel   bool
}

// Wantlist carries the sender's want-list. When Full is set, the entries
// replace any want-list previously received from the sender
type Wantlist struct {
	cbor.StructAsArray
	Entries []WantlistEntry
	Full    bool
}

// Message is the unit exchanged between peers
type Message struct {
	Greeting Greeting
	// Fragments is nil for a message without commands or responses
	Fragments []Fragment
	// Wantlist is optional
	Wantlist *Wantlist
}

type wireMessage struct {
	cbor.StructAsArray
	Greeting  Greeting
	Fragments []cbor.RawMessage
	Wantlist  *Wantlist
}

// NewMessage returns a message with the given sender identity and fragments
func NewMessage(identity string, fragments ...Fragment) *Message {
	m := &Message{
		Greeting: Greeting{
			Identity: identity,
		},
	}
	if len(fragments) > 0 {
		m.Fragments = fragments
	}
	return m
}

// AddFragment appends a fragment to the message
func (m *Message) AddFragment(f Fragment) {
	m.Fragments = append(m.Fragments, f)
}

// IsEmpty returns true if the message carries no fragments
func (m *Message) IsEmpty() bool {
	return len(m.Fragments) == 0
}

func (m *Message) MarshalCBOR() ([]byte, error) {
	tmp := wireMessage{
		Greeting:  m.Greeting,
		Fragments: make([]cbor.RawMessage, 0, len(m.Fragments)),
		Wantlist:  m.Wantlist,
	}
	for idx, fragment := range m.Fragments {
		if fragment == nil {
			return nil, fmt.Errorf("fragment %d: nil fragment", idx)
		}
		data, err := encodeFragment(fragment)
		if err != nil {
			return nil, fmt.Errorf("fragment %d: %w", idx, err)
		}
		tmp.Fragments = append(tmp.Fragments, cbor.RawMessage(data))
	}
	return cbor.Encode(&tmp)
}

func (m *Message) UnmarshalCBOR(data []byte) error {
	var tmp wireMessage
	if _, err := cbor.Decode(data, &tmp); err != nil {
		return err
	}
	m.Greeting = tmp.Greeting
	m.Wantlist = tmp.Wantlist
	m.Fragments = nil
	if len(tmp.Fragments) > 0 {
		m.Fragments = make([]Fragment, 0, len(tmp.Fragments))
		for _, rawFragment := range tmp.Fragments {
			m.Fragments = append(m.Fragments, NewFragmentFromCbor(rawFragment))
		}
	}
	return nil
}

// Encode returns the deterministic wire encoding of a message
func Encode(m *Message) ([]byte, error) {
	if m == nil {
		return nil, errors.New("cannot encode nil message")
	}
	return cbor.Encode(m)
}

// Decode decodes a message from its wire encoding. A malformed envelope
// returns a *DecodeError. Malformed fragments do not cause an error, they are
// returned as *Unknown fragments
func Decode(data []byte) (*Message, error) {
	if len(data) == 0 {
		return nil, &DecodeError{Err: errors.New("empty data")}
	}
	var m Message
	bytesRead, err := cbor.Decode(data, &m)
	if err != nil {
		return nil, &DecodeError{Err: err}
	}
	if bytesRead < len(data) {
		return nil, &DecodeError{
			Err: fmt.Errorf("%d bytes of trailing data", len(data)-bytesRead),
		}
	}
	return &m, nil
}
