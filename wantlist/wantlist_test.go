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

package wantlist_test

import (
	"testing"

	"github.com/blinklabs-io/goexchange/message"
	"github.com/blinklabs-io/goexchange/wantlist"
	"github.com/ipfs/go-cid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCid(t *testing.T, data string) cid.Cid {
	t.Helper()
	c, err := wantlist.NewCid([]byte(data))
	require.NoError(t, err)
	return c
}

func TestWantlistOrdering(t *testing.T) {
	wl := wantlist.New()
	a, b, c := testCid(t, "a"), testCid(t, "b"), testCid(t, "c")
	assert.True(t, wl.Add(a, 1))
	assert.True(t, wl.Add(b, 5))
	assert.True(t, wl.Add(c, 1))
	// Same priority again is not a change
	assert.False(t, wl.Add(a, 1))
	assert.Equal(t, 3, wl.Len())

	entries := wl.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, b, entries[0].Cid)
	assert.Equal(t, a, entries[1].Cid)
	assert.Equal(t, c, entries[2].Cid)

	// Priority change keeps insertion order for ties
	assert.True(t, wl.Add(c, 5))
	entries = wl.Entries()
	assert.Equal(t, []cid.Cid{b, c, a}, []cid.Cid{entries[0].Cid, entries[1].Cid, entries[2].Cid})

	assert.True(t, wl.Remove(b))
	assert.False(t, wl.Remove(b))
	_, ok := wl.Get(b)
	assert.False(t, ok)
	_, ok = wl.Get(a)
	assert.True(t, ok)
}

func TestMessageConversion(t *testing.T) {
	wl := wantlist.New()
	a, b := testCid(t, "a"), testCid(t, "b")
	wl.Add(a, 3)
	wl.Add(b, 7)

	wire, err := wantlist.ToMessage(wl.Entries(), true, false)
	require.NoError(t, err)
	assert.True(t, wire.Full)
	require.Len(t, wire.Entries, 2)
	assert.Equal(t, b.Bytes(), wire.Entries[0].Cid)
	assert.Equal(t, int32(7), wire.Entries[0].Priority)
	assert.False(t, wire.Entries[0].Cancel)

	wire.Entries[1].Cancel = true
	wants, cancels, err := wantlist.FromMessage(wire)
	require.NoError(t, err)
	require.Len(t, wants, 1)
	require.Len(t, cancels, 1)
	assert.Equal(t, b, wants[0].Cid)
	assert.Equal(t, int32(7), wants[0].Priority)
	assert.Equal(t, a, cancels[0].Cid)

	cancelWire, err := wantlist.ToMessage(wl.Entries(), false, true)
	require.NoError(t, err)
	for _, e := range cancelWire.Entries {
		assert.True(t, e.Cancel)
	}

	empty, err := wantlist.ToMessage(nil, true, false)
	require.NoError(t, err)
	assert.Empty(t, empty.Entries)
}

func TestFromMessageInvalidCid(t *testing.T) {
	wire := &message.Wantlist{
		Entries: []message.WantlistEntry{
			{Cid: []byte{0xff, 0xff}},
		},
	}
	_, _, err := wantlist.FromMessage(wire)
	assert.Error(t, err)
	wants, cancels, err := wantlist.FromMessage(nil)
	assert.NoError(t, err)
	assert.Nil(t, wants)
	assert.Nil(t, cancels)
}
