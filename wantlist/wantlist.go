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

// Package wantlist tracks outstanding interest in content, both locally and
// per connected peer
package wantlist

import (
	"sort"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

// Entry is a single want
type Entry struct {
	Cid      cid.Cid
	Priority int32
	// Insertion order, used to break priority ties
	seq uint64
}

// Wantlist is an ordered set of entries keyed by CID. It is not safe for
// concurrent use
type Wantlist struct {
	set map[cid.Cid]Entry
	seq uint64
}

func New() *Wantlist {
	return &Wantlist{
		set: make(map[cid.Cid]Entry),
	}
}

// Add adds an entry or updates its priority. It returns false if the entry
// was already present with the same priority
func (w *Wantlist) Add(c cid.Cid, priority int32) bool {
	if e, ok := w.set[c]; ok {
		if e.Priority == priority {
			return false
		}
		e.Priority = priority
		w.set[c] = e
		return true
	}
	w.seq++
	w.set[c] = Entry{
		Cid:      c,
		Priority: priority,
		seq:      w.seq,
	}
	return true
}

// Remove removes an entry. It returns false if the entry was not present
func (w *Wantlist) Remove(c cid.Cid) bool {
	if _, ok := w.set[c]; !ok {
		return false
	}
	delete(w.set, c)
	return true
}

// restore puts back an entry previously returned by Get, keeping its position
func (w *Wantlist) restore(e Entry) {
	w.set[e.Cid] = e
}

func (w *Wantlist) Get(c cid.Cid) (Entry, bool) {
	e, ok := w.set[c]
	return e, ok
}

func (w *Wantlist) Len() int {
	return len(w.set)
}

// Entries returns all entries by descending priority, then insertion order
func (w *Wantlist) Entries() []Entry {
	ret := make([]Entry, 0, len(w.set))
	for _, e := range w.set {
		ret = append(ret, e)
	}
	sort.Slice(ret, func(i, j int) bool {
		if ret[i].Priority != ret[j].Priority {
			return ret[i].Priority > ret[j].Priority
		}
		return ret[i].seq < ret[j].seq
	})
	return ret
}

// NewCid returns the CIDv1 of raw data hashed with SHA2-256
func NewCid(data []byte) (cid.Cid, error) {
	sum, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		return cid.Undef, err
	}
	return cid.NewCidV1(cid.Raw, sum), nil
}
