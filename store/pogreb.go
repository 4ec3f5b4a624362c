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
	"errors"
	"io"
	"log"

	"github.com/akrylysov/pogreb"
)

// PogrebStore is a Store on disk using Pogreb
type PogrebStore struct {
	db *pogreb.DB
}

// NewPogrebStore opens the database at path, creating it if it does not exist
func NewPogrebStore(path string) (*PogrebStore, error) {
	// Pogreb only offers a package level logger
	pogreb.SetLogger(log.New(io.Discard, "", 0))
	db, err := pogreb.Open(path, nil)
	if err != nil {
		return nil, err
	}
	return &PogrebStore{
		db: db,
	}, nil
}

func (s *PogrebStore) Put(key []byte, value []byte) error {
	return s.db.Put(key, value)
}

func (s *PogrebStore) Get(key []byte) ([]byte, bool, error) {
	value, err := s.db.Get(key)
	if err != nil {
		return nil, false, err
	}
	if value == nil {
		return nil, false, nil
	}
	return value, true, nil
}

func (s *PogrebStore) Delete(key []byte) error {
	return s.db.Delete(key)
}

func (s *PogrebStore) ForEach(fn func(key []byte, value []byte) error) error {
	it := s.db.Items()
	for {
		key, value, err := it.Next()
		if errors.Is(err, pogreb.ErrIterationDone) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := fn(key, value); err != nil {
			return err
		}
	}
}

func (s *PogrebStore) Close() error {
	return s.db.Close()
}
