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

// Package store provides the key/value storage used to persist local state
package store

// Store is a key/value store
type Store interface {
	Put(key []byte, value []byte) error
	// Get returns the value for the key. The boolean is false if the key is not present
	Get(key []byte) ([]byte, bool, error)
	Delete(key []byte) error
	// ForEach calls fn for every key/value pair. Iteration stops at the first error
	ForEach(fn func(key []byte, value []byte) error) error
	Close() error
}
