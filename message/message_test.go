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

package message_test

import (
	"errors"
	"testing"

	"github.com/blinklabs-io/goexchange/cbor"
	"github.com/blinklabs-io/goexchange/internal/test"
	"github.com/blinklabs-io/goexchange/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	testDefs := []struct {
		name string
		msg  *message.Message
	}{
		{
			name: "empty",
			msg:  message.NewMessage("0xabc"),
		},
		{
			name: "single command",
			msg: message.NewMessage(
				"0xabc",
				message.NewCommand("tx-1", "test", nil),
			),
		},
		{
			name: "command with args",
			msg: message.NewMessage(
				"0xabc",
				message.NewCommand("tx-1", "transcode", []byte(`{"hash":"Qm"}`)),
			),
		},
		{
			name: "mixed fragments",
			msg: message.NewMessage(
				"address placeholder",
				message.NewCommand("tx-1", "test", nil),
				message.NewResponse("tx-2", []byte("OK")),
				message.NewCommand("tx-3", "unknown-x", []byte("1")),
			),
		},
		{
			name: "with wantlist",
			msg: &message.Message{
				Greeting: message.Greeting{Identity: "0xabc"},
				Wantlist: &message.Wantlist{
					Entries: []message.WantlistEntry{
						{Cid: []byte{0x01, 0x55}, Priority: 10},
						{Cid: []byte{0x01, 0x56}, Priority: 1, Cancel: true},
					},
					Full: true,
				},
			},
		},
	}
	for _, testDef := range testDefs {
		t.Run(testDef.name, func(t *testing.T) {
			data, err := message.Encode(testDef.msg)
			require.NoError(t, err)
			decoded, err := message.Decode(data)
			require.NoError(t, err)
			assert.Equal(t, testDef.msg, decoded)
		})
	}
}

func TestEncodeDeterministic(t *testing.T) {
	msg := message.NewMessage(
		"0xabc",
		message.NewCommand("tx-1", "test", []byte("a")),
		message.NewResponse("tx-2", []byte("OK")),
	)
	first, err := message.Encode(msg)
	require.NoError(t, err)
	second, err := message.Encode(msg)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	// Re-encoding a decoded message yields the same bytes
	decoded, err := message.Decode(first)
	require.NoError(t, err)
	third, err := message.Encode(decoded)
	require.NoError(t, err)
	assert.Equal(t, first, third)
}

func TestEncodeSetsFragmentType(t *testing.T) {
	msg := message.NewMessage(
		"0xabc",
		&message.Command{TxId: "tx-1", Name: "test"},
	)
	data, err := message.Encode(msg)
	require.NoError(t, err)
	decoded, err := message.Decode(data)
	require.NoError(t, err)
	require.Len(t, decoded.Fragments, 1)
	cmd, ok := decoded.Fragments[0].(*message.Command)
	require.True(t, ok, "expected *message.Command, got %T", decoded.Fragments[0])
	assert.Equal(t, message.FragmentTypeCommand, cmd.Type())
	assert.Equal(t, "tx-1", cmd.TransactionId())
}

func TestDecodeIsolatesBadFragments(t *testing.T) {
	raw, err := cbor.Encode(
		[]any{
			[]any{"peer-a"},
			[]any{
				[]any{1, "tx-1", "test", nil},
				[]any{9, "tx-2"},
				"garbage",
				[]any{2, "tx-3"},
				[]any{2, "tx-4", []byte("OK")},
			},
			nil,
		},
	)
	require.NoError(t, err)
	msg, err := message.Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, "peer-a", msg.Greeting.Identity)
	require.Len(t, msg.Fragments, 5)

	assert.Equal(t, message.NewCommand("tx-1", "test", nil), msg.Fragments[0])

	unknown, ok := msg.Fragments[1].(*message.Unknown)
	require.True(t, ok)
	assert.Equal(t, uint8(9), unknown.Type())
	assert.ErrorIs(t, unknown.Err, message.ErrUnknownFragmentType)

	unknown, ok = msg.Fragments[2].(*message.Unknown)
	require.True(t, ok)
	assert.Equal(t, uint8(0), unknown.Type())
	assert.ErrorIs(t, unknown.Err, message.ErrMalformedFragment)

	unknown, ok = msg.Fragments[3].(*message.Unknown)
	require.True(t, ok)
	assert.Equal(t, message.FragmentTypeResponse, unknown.Type())
	assert.ErrorIs(t, unknown.Err, message.ErrMalformedFragment)

	assert.Equal(t, message.NewResponse("tx-4", []byte("OK")), msg.Fragments[4])

	// Unknown fragments are written back unchanged
	reencoded, err := message.Encode(msg)
	require.NoError(t, err)
	assert.Equal(t, raw, reencoded)
}

func TestDecodeError(t *testing.T) {
	testDefs := []struct {
		name    string
		cborHex string
	}{
		{name: "empty", cborHex: ""},
		{name: "not a list", cborHex: "63666f6f"},
		{name: "short envelope", cborHex: "8181636162"},
		{name: "truncated", cborHex: "8381636162"},
		{name: "trailing data", cborHex: "83816161" + "80" + "f6" + "00"},
	}
	for _, testDef := range testDefs {
		t.Run(testDef.name, func(t *testing.T) {
			_, err := message.Decode(test.DecodeHexString(testDef.cborHex))
			require.Error(t, err)
			assert.ErrorIs(t, err, message.ErrDecode)
			var decodeErr *message.DecodeError
			assert.True(t, errors.As(err, &decodeErr))
		})
	}
}

func TestEncodeNilFragment(t *testing.T) {
	msg := &message.Message{
		Fragments: []message.Fragment{nil},
	}
	_, err := message.Encode(msg)
	assert.Error(t, err)
}
