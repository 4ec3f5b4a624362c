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

package cbor_test

import (
	"encoding/hex"
	"testing"

	"github.com/blinklabs-io/goexchange/cbor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type decodeTestDefinition struct {
	CborHex   string
	Object    any
	BytesRead int
}

var decodeTests = []decodeTestDefinition{
	// Simple list of numbers
	{
		CborHex: "83010203",
		Object:  []any{uint64(1), uint64(2), uint64(3)},
	},
	// Multiple CBOR objects
	{
		CborHex:   "81018102",
		Object:    []any{uint64(1)},
		BytesRead: 2,
	},
}

func TestDecode(t *testing.T) {
	for _, test := range decodeTests {
		cborData, err := hex.DecodeString(test.CborHex)
		require.NoError(t, err, "failed to decode CBOR hex")
		var dest any
		bytesRead, err := cbor.Decode(cborData, &dest)
		require.NoError(t, err, "failed to decode CBOR")
		if test.BytesRead > 0 {
			assert.Equal(t, test.BytesRead, bytesRead)
		}
		assert.Equal(t, test.Object, dest)
	}
}

func TestDecodeIdFromList(t *testing.T) {
	testDefs := []struct {
		name    string
		cborHex string
		id      int
		wantErr bool
	}{
		{name: "small id", cborHex: "8202f6", id: 2},
		{name: "large id", cborHex: "82186463666f6f", id: 100},
		{name: "empty list", cborHex: "80", wantErr: true},
		{name: "not a list", cborHex: "63666f6f", wantErr: true},
		{name: "text first item", cborHex: "8263666f6f01", wantErr: true},
	}
	for _, test := range testDefs {
		t.Run(test.name, func(t *testing.T) {
			cborData, err := hex.DecodeString(test.cborHex)
			require.NoError(t, err)
			id, err := cbor.DecodeIdFromList(cborData)
			if test.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, test.id, id)
		})
	}
}

func TestListLength(t *testing.T) {
	length, err := cbor.ListLength([]byte{0x83, 0x01, 0x02, 0x03})
	require.NoError(t, err)
	assert.Equal(t, 3, length)
	_, err = cbor.ListLength(nil)
	assert.Error(t, err)
}
