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

type encodeTestDefinition struct {
	CborHex string
	Object  any
}

type testArrayStruct struct {
	cbor.StructAsArray
	Id   uint8
	Name string
}

var encodeTests = []encodeTestDefinition{
	// Simple list of numbers
	{
		CborHex: "83010203",
		Object:  []any{1, 2, 3},
	},
	// Map keys are sorted
	{
		CborHex: "a2016161026162",
		Object:  map[int]string{2: "b", 1: "a"},
	},
	// Struct as array
	{
		CborHex: "820163666f6f",
		Object:  testArrayStruct{Id: 1, Name: "foo"},
	},
	// Nil byte slice
	{
		CborHex: "f6",
		Object:  []byte(nil),
	},
}

func TestEncode(t *testing.T) {
	for _, test := range encodeTests {
		cborData, err := cbor.Encode(test.Object)
		require.NoError(t, err, "failed to encode object to CBOR")
		assert.Equal(t, test.CborHex, hex.EncodeToString(cborData))
	}
}

func TestEncodeDeterministic(t *testing.T) {
	obj := map[string]uint64{"zeta": 3, "alpha": 1, "mid": 2}
	first, err := cbor.Encode(obj)
	require.NoError(t, err)
	for range 10 {
		again, err := cbor.Encode(obj)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}
