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

package wantlist

import (
	"fmt"

	"github.com/blinklabs-io/goexchange/cbor"
	"github.com/ipfs/go-cid"
)

type storedEntry struct {
	cbor.StructAsArray
	Priority int32
}

// persistAdded must be called with the mutex held. On failure the records
// already written are restored to their previous values
func (m *Manager) persistAdded(entries []Entry) error {
	if m.config.Store == nil {
		return nil
	}
	type previous struct {
		key   []byte
		value []byte
		ok    bool
	}
	var written []previous
	undo := func() {
		for _, p := range written {
			var err error
			if p.ok {
				err = m.config.Store.Put(p.key, p.value)
			} else {
				err = m.config.Store.Delete(p.key)
			}
			if err != nil {
				m.config.Logger.Warn(
					"failed to restore stored want-list entry",
					"component", "wantlist",
					"error", err,
				)
			}
		}
	}
	for _, e := range entries {
		data, err := cbor.Encode(&storedEntry{Priority: e.Priority})
		if err != nil {
			undo()
			return err
		}
		key := e.Cid.Bytes()
		value, ok, err := m.config.Store.Get(key)
		if err != nil {
			undo()
			return fmt.Errorf("read want-list entry %s: %w", e.Cid, err)
		}
		if err := m.config.Store.Put(key, data); err != nil {
			undo()
			return fmt.Errorf("persist want-list entry %s: %w", e.Cid, err)
		}
		written = append(written, previous{key: key, value: value, ok: ok})
	}
	return nil
}

// persistRemoved must be called with the mutex held. On failure the records
// already deleted are written back
func (m *Manager) persistRemoved(entries []Entry) error {
	if m.config.Store == nil {
		return nil
	}
	for i, e := range entries {
		if err := m.config.Store.Delete(e.Cid.Bytes()); err != nil {
			if restoreErr := m.persistAdded(entries[:i]); restoreErr != nil {
				m.config.Logger.Warn(
					"failed to restore stored want-list entries",
					"component", "wantlist",
					"error", restoreErr,
				)
			}
			return fmt.Errorf("remove want-list entry %s: %w", e.Cid, err)
		}
	}
	return nil
}

// load must be called with the mutex held
func (m *Manager) load() error {
	return m.config.Store.ForEach(func(key []byte, value []byte) error {
		c, err := cid.Cast(key)
		if err != nil {
			m.config.Logger.Warn(
				"skipping stored want-list entry with invalid CID",
				"component", "wantlist",
				"error", err,
			)
			return nil
		}
		var stored storedEntry
		if _, err := cbor.Decode(value, &stored); err != nil {
			return fmt.Errorf("decode want-list entry %s: %w", c, err)
		}
		m.local.Add(c, stored.Priority)
		return nil
	})
}
