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

package store_test

import (
	"errors"
	"path/filepath"
	"sort"
	"testing"

	"github.com/blinklabs-io/goexchange/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStore(t *testing.T, s store.Store) {
	_, ok, err := s.Get([]byte("missing"))
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Put([]byte("a"), []byte("1")))
	require.NoError(t, s.Put([]byte("b"), []byte("2")))
	require.NoError(t, s.Put([]byte("c"), []byte("3")))
	// Overwrite
	require.NoError(t, s.Put([]byte("a"), []byte("10")))

	value, ok, err := s.Get([]byte("a"))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("10"), value)

	require.NoError(t, s.Delete([]byte("b")))
	_, ok, err = s.Get([]byte("b"))
	require.NoError(t, err)
	assert.False(t, ok)

	var keys []string
	require.NoError(t, s.ForEach(func(key []byte, _ []byte) error {
		keys = append(keys, string(key))
		return nil
	}))
	sort.Strings(keys)
	assert.Equal(t, []string{"a", "c"}, keys)

	stopErr := errors.New("stop")
	count := 0
	err = s.ForEach(func([]byte, []byte) error {
		count++
		return stopErr
	})
	assert.ErrorIs(t, err, stopErr)
	assert.Equal(t, 1, count)
}

func TestMemoryStore(t *testing.T) {
	s := store.NewMemoryStore()
	testStore(t, s)
	require.NoError(t, s.Close())
}

func TestPogrebStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wantlist.db")
	s, err := store.NewPogrebStore(path)
	require.NoError(t, err)
	testStore(t, s)
	require.NoError(t, s.Close())

	// Data survives a reopen
	s, err = store.NewPogrebStore(path)
	require.NoError(t, err)
	value, ok, err := s.Get([]byte("c"))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("3"), value)
	require.NoError(t, s.Close())
}
