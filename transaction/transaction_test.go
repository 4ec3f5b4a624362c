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

package transaction_test

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/blinklabs-io/goexchange/transaction"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestCreateDistinct(t *testing.T) {
	r := transaction.NewRegistry()
	const count = 1000
	var wg sync.WaitGroup
	var mu sync.Mutex
	ids := make(map[string]struct{}, count)
	for i := range count {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := r.Create(fmt.Sprintf("cmd-%d", i))
			assert.NoError(t, err)
			mu.Lock()
			ids[id] = struct{}{}
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Len(t, ids, count)
	assert.Equal(t, count, r.Len())
}

func TestResolve(t *testing.T) {
	r := transaction.NewRegistry()
	id, err := r.Create("test")
	require.NoError(t, err)
	txn, ok := r.Resolve(id)
	require.True(t, ok)
	assert.Equal(t, id, txn.Id)
	assert.Equal(t, "test", txn.Command)
	// A second resolve of the same ID finds nothing
	_, ok = r.Resolve(id)
	assert.False(t, ok)
	assert.Equal(t, 0, r.Len())
}

func TestResolveUnknown(t *testing.T) {
	r := transaction.NewRegistry()
	_, err := r.Create("test")
	require.NoError(t, err)
	_, ok := r.Resolve("does-not-exist")
	assert.False(t, ok)
	assert.Equal(t, 1, r.Len())
}

func TestResolveConcurrent(t *testing.T) {
	r := transaction.NewRegistry()
	id, err := r.Create("test")
	require.NoError(t, err)
	var wg sync.WaitGroup
	var mu sync.Mutex
	found := 0
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok := r.Resolve(id); ok {
				mu.Lock()
				found++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, found)
}

func TestCreateCollision(t *testing.T) {
	candidates := []string{"a", "a", "a", "b"}
	var idx int
	r := transaction.NewRegistry(
		transaction.WithIdFunc(func() string {
			ret := candidates[idx%len(candidates)]
			idx++
			return ret
		}),
	)
	first, err := r.Create("test")
	require.NoError(t, err)
	assert.Equal(t, "a", first)
	second, err := r.Create("test")
	require.NoError(t, err)
	assert.Equal(t, "b", second)
}

func TestCreateExhausted(t *testing.T) {
	r := transaction.NewRegistry(
		transaction.WithIdFunc(func() string { return "fixed" }),
	)
	_, err := r.Create("test")
	require.NoError(t, err)
	_, err = r.Create("test")
	assert.ErrorIs(t, err, transaction.ErrIdSpaceExhausted)
}

func TestExpiry(t *testing.T) {
	var expired []transaction.Transaction
	r := transaction.NewRegistry(
		transaction.WithTTL(20*time.Millisecond),
		transaction.WithExpiredFunc(func(txn transaction.Transaction) {
			expired = append(expired, txn)
		}),
	)
	expiringId, err := r.Create("expiring")
	require.NoError(t, err)
	resolvedId, err := r.Create("resolved")
	require.NoError(t, err)
	_, ok := r.Resolve(resolvedId)
	require.True(t, ok)
	time.Sleep(50 * time.Millisecond)
	_, ok = r.Resolve(expiringId)
	assert.False(t, ok, "expired transaction should not resolve")
	r.Sweep()
	require.Len(t, expired, 1)
	assert.Equal(t, expiringId, expired[0].Id)
	assert.Equal(t, "expiring", expired[0].Command)
	assert.Equal(t, 0, r.Len())
}

func TestResolveOrExpireOnce(t *testing.T) {
	var mutex sync.Mutex
	expired := make(map[string]int)
	r := transaction.NewRegistry(
		transaction.WithTTL(time.Millisecond),
		transaction.WithExpiredFunc(func(txn transaction.Transaction) {
			mutex.Lock()
			expired[txn.Id]++
			mutex.Unlock()
		}),
	)
	ids := make([]string, 200)
	for i := range ids {
		id, err := r.Create("test")
		require.NoError(t, err)
		ids[i] = id
	}
	resolved := make(map[string]bool)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for range 50 {
			r.Sweep()
		}
	}()
	for _, id := range ids {
		if _, ok := r.Resolve(id); ok {
			resolved[id] = true
		}
	}
	wg.Wait()
	time.Sleep(5 * time.Millisecond)
	r.Sweep()
	for _, id := range ids {
		count := expired[id]
		if resolved[id] {
			assert.Equal(t, 0, count, "resolved transaction %s reported as expired", id)
		} else {
			assert.Equal(t, 1, count, "transaction %s not reported exactly once", id)
		}
	}
}

func TestNoExpiry(t *testing.T) {
	r := transaction.NewRegistry(transaction.WithTTL(0))
	id, err := r.Create("test")
	require.NoError(t, err)
	time.Sleep(10 * time.Millisecond)
	r.Sweep()
	_, ok := r.Resolve(id)
	assert.True(t, ok)
}

func TestSweeper(t *testing.T) {
	defer goleak.VerifyNone(t)
	expiredChan := make(chan transaction.Transaction, 1)
	r := transaction.NewRegistry(
		transaction.WithTTL(10*time.Millisecond),
		transaction.WithSweepInterval(5*time.Millisecond),
		transaction.WithExpiredFunc(func(txn transaction.Transaction) {
			expiredChan <- txn
		}),
	)
	r.Start()
	// Start is idempotent
	r.Start()
	id, err := r.Create("test")
	require.NoError(t, err)
	select {
	case txn := <-expiredChan:
		assert.Equal(t, id, txn.Id)
	case <-time.After(2 * time.Second):
		t.Fatal("did not receive expired transaction")
	}
	r.Stop()
	// Stop is idempotent
	r.Stop()
}

func TestFlush(t *testing.T) {
	called := false
	r := transaction.NewRegistry(
		transaction.WithExpiredFunc(func(transaction.Transaction) {
			called = true
		}),
	)
	for range 5 {
		_, err := r.Create("test")
		require.NoError(t, err)
	}
	r.Flush()
	assert.Equal(t, 0, r.Len())
	assert.False(t, called)
}
