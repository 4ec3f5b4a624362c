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
	"encoding/hex"
	"fmt"
	"strings"
	"testing"
	"time"
)

// DefaultWaitTimeout bounds how long WaitFor blocks
const DefaultWaitTimeout = 5 * time.Second

// DecodeHexString is a helper function for tests that decodes hex strings. It doesn't return
// an error value, which makes it usable inline.
func DecodeHexString(hexData string) []byte {
	// Strip off any leading/trailing whitespace in hex string
	hexData = strings.TrimSpace(hexData)
	decoded, err := hex.DecodeString(hexData)
	if err != nil {
		panic(fmt.Sprintf("error decoding hex: %s", err))
	}
	return decoded
}

// WaitFor returns the next value from the channel, failing the test if none
// arrives within DefaultWaitTimeout
func WaitFor[T any](t testing.TB, ch <-chan T) T {
	t.Helper()
	select {
	case ret := <-ch:
		return ret
	case <-time.After(DefaultWaitTimeout):
		t.Fatal("did not receive expected value")
	}
	var zero T
	return zero
}

// ExpectNone fails the test if a value arrives on the channel within the given duration
func ExpectNone[T any](t testing.TB, ch <-chan T, wait time.Duration) {
	t.Helper()
	select {
	case ret := <-ch:
		t.Fatalf("received unexpected value: %v", ret)
	case <-time.After(wait):
	}
}
