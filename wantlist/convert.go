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
	"errors"
	"fmt"

	"github.com/blinklabs-io/goexchange/message"
	"github.com/ipfs/go-cid"
	"github.com/jinzhu/copier"
)

var ErrInvalidCid = errors.New("invalid CID")

var (
	toWireOption = copier.Option{
		Converters: []copier.TypeConverter{
			{
				SrcType: cid.Cid{},
				DstType: []byte{},
				Fn: func(src any) (any, error) {
					c, ok := src.(cid.Cid)
					if !ok {
						return nil, fmt.Errorf("unexpected source type %T", src)
					}
					return c.Bytes(), nil
				},
			},
		},
	}
	fromWireOption = copier.Option{
		Converters: []copier.TypeConverter{
			{
				SrcType: []byte{},
				DstType: cid.Cid{},
				Fn: func(src any) (any, error) {
					data, ok := src.([]byte)
					if !ok {
						return nil, fmt.Errorf("unexpected source type %T", src)
					}
					return cid.Cast(data)
				},
			},
		},
	}
)

// ToMessage converts entries to their wire form. When cancel is set, the
// entries are marked as cancellations
func ToMessage(entries []Entry, full bool, cancel bool) (*message.Wantlist, error) {
	ret := &message.Wantlist{
		Full: full,
	}
	if len(entries) == 0 {
		return ret, nil
	}
	ret.Entries = make([]message.WantlistEntry, len(entries))
	for idx := range entries {
		if err := copier.CopyWithOption(&ret.Entries[idx], &entries[idx], toWireOption); err != nil {
			return nil, fmt.Errorf("entry %d: %w", idx, err)
		}
		ret.Entries[idx].Cancel = cancel
	}
	return ret, nil
}

// FromMessage converts a wire want-list into wanted and cancelled entries
func FromMessage(wl *message.Wantlist) (wants []Entry, cancels []Entry, err error) {
	if wl == nil {
		return nil, nil, nil
	}
	for idx := range wl.Entries {
		var e Entry
		if err := copier.CopyWithOption(&e, &wl.Entries[idx], fromWireOption); err != nil {
			return nil, nil, fmt.Errorf("entry %d: %w", idx, err)
		}
		if !e.Cid.Defined() {
			return nil, nil, fmt.Errorf("entry %d: %w", idx, ErrInvalidCid)
		}
		if wl.Entries[idx].Cancel {
			cancels = append(cancels, e)
		} else {
			wants = append(wants, e)
		}
	}
	return wants, cancels, nil
}
