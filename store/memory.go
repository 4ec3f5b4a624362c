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

package store

import (
	"bytes"
	"sort"
	"sync"
)

// MemoryStore is a Store kept in memory
type MemoryStore struct {
	mutex sync.RWMutex
	data  map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string][]byte),
	}
}

func (s *MemoryStore) Put(key []byte, value []byte) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.data[string(key)] = bytes.Clone(value)
	return nil
}

func (s *MemoryStore) Get(key []byte) ([]byte, bool, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	value, ok := s.data[string(key)]
	if !ok {
		return nil, false, nil
	}
	return bytes.Clone(value), true, nil
}

func (s *MemoryStore) Delete(key []byte) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	delete(s.data, string(key))
	return nil
}

// ForEach iterates in key order
func (s *MemoryStore) ForEach(fn func(key []byte, value []byte) error) error {
	s.mutex.RLock()
	keys := make([]string, 0, len(s.data))
	for key := range s.data {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	values := make([][]byte, len(keys))
	for idx, key := range keys {
		values[idx] = bytes.Clone(s.data[key])
	}
	s.mutex.RUnlock()
	for idx, key := range keys {
		if err := fn([]byte(key), values[idx]); err != nil {
			return err
		}
	}
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}
