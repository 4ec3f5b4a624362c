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
	"bytes"
	"fmt"

	"github.com/blinklabs-io/goexchange/cbor"
)

// Fragment types
const (
	FragmentTypeCommand  uint8 = 1
	FragmentTypeResponse uint8 = 2
)

// Fragment is a single command or response carried in a Message
type Fragment interface {
	Type() uint8
	TransactionId() string
}

// FragmentBase is embedded by all fragment types
type FragmentBase struct {
	cbor.StructAsArray
	FragmentType uint8
}

func (f *FragmentBase) Type() uint8 {
	return f.FragmentType
}

// Command asks the remote peer to run the named command
type Command struct {
	FragmentBase
	TxId string
	Name string
	// Args is an optional opaque payload, nil when absent
	Args []byte
}

func NewCommand(txId string, name string, args []byte) *Command {
	return &Command{
		FragmentBase: FragmentBase{
			FragmentType: FragmentTypeCommand,
		},
		TxId: txId,
		Name: name,
		Args: args,
	}
}

func (c *Command) TransactionId() string {
	return c.TxId
}

// Response answers the command with the same transaction ID
type Response struct {
	FragmentBase
	TxId    string
	Payload []byte
}

func NewResponse(txId string, payload []byte) *Response {
	return &Response{
		FragmentBase: FragmentBase{
			FragmentType: FragmentTypeResponse,
		},
		TxId:    txId,
		Payload: payload,
	}
}

func (r *Response) TransactionId() string {
	return r.TxId
}

// Unknown is produced by the decoder for a fragment that could not be decoded.
// It is never constructed by senders. Raw holds the original fragment bytes,
// which are written back unchanged if the message is encoded again
type Unknown struct {
	// FragmentType is the raw type tag, or 0 if no tag could be read
	FragmentType uint8
	Raw          []byte
	Err          error
}

func (u *Unknown) Type() uint8 {
	return u.FragmentType
}

func (u *Unknown) TransactionId() string {
	return ""
}

// NewFragmentFromCbor decodes a single fragment. It never fails: anything that
// cannot be decoded into a known fragment type is returned as *Unknown
func NewFragmentFromCbor(data []byte) Fragment {
	raw := bytes.Clone(data)
	id, err := cbor.DecodeIdFromList(data)
	if err != nil {
		return &Unknown{
			Raw: raw,
			Err: fmt.Errorf("%w: %w", ErrMalformedFragment, err),
		}
	}
	if id < 0 || id > 0xff {
		return &Unknown{
			Raw: raw,
			Err: fmt.Errorf("%w: %d", ErrUnknownFragmentType, id),
		}
	}
	// #nosec G115 -- range checked above
	fragType := uint8(id)
	var ret Fragment
	switch fragType {
	case FragmentTypeCommand:
		ret = &Command{}
	case FragmentTypeResponse:
		ret = &Response{}
	default:
		return &Unknown{
			FragmentType: fragType,
			Raw:          raw,
			Err:          fmt.Errorf("%w: %d", ErrUnknownFragmentType, fragType),
		}
	}
	if _, err := cbor.Decode(data, ret); err != nil {
		return &Unknown{
			FragmentType: fragType,
			Raw:          raw,
			Err:          fmt.Errorf("%w: type %d: %w", ErrMalformedFragment, fragType, err),
		}
	}
	return ret
}

func encodeFragment(f Fragment) ([]byte, error) {
	switch v := f.(type) {
	case *Command:
		tmp := *v
		tmp.FragmentType = FragmentTypeCommand
		return cbor.Encode(&tmp)
	case *Response:
		tmp := *v
		tmp.FragmentType = FragmentTypeResponse
		return cbor.Encode(&tmp)
	case *Unknown:
		if len(v.Raw) == 0 {
			return nil, fmt.Errorf("%w: no raw data", ErrUnknownFragmentType)
		}
		return v.Raw, nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownFragmentType, f)
	}
}
