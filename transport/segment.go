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

package transport

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"
)

// Maximum payload size of a single segment
const MaxSegmentPayload = 4 * 1024 * 1024

var ErrSegmentTooLarge = errors.New("segment payload too large")

// SegmentHeader frames a single encoded message on a byte stream
type SegmentHeader struct {
	Timestamp     uint32
	PayloadLength uint32
}

type Segment struct {
	SegmentHeader
	Payload []byte
}

func NewSegment(payload []byte) (*Segment, error) {
	if len(payload) > MaxSegmentPayload {
		return nil, fmt.Errorf("%w: %d bytes", ErrSegmentTooLarge, len(payload))
	}
	header := SegmentHeader{
		// #nosec G115 -- only the low 32 bits are kept
		Timestamp: uint32(time.Now().UnixNano() & 0xffffffff),
		// #nosec G115 -- bounded by MaxSegmentPayload
		PayloadLength: uint32(len(payload)),
	}
	segment := &Segment{
		SegmentHeader: header,
		Payload:       payload,
	}
	return segment, nil
}

// WriteSegment writes the segment header and payload with a single write
func WriteSegment(w io.Writer, segment *Segment) error {
	buf := bytes.NewBuffer(nil)
	if err := binary.Write(buf, binary.BigEndian, segment.SegmentHeader); err != nil {
		return err
	}
	buf.Write(segment.Payload)
	_, err := w.Write(buf.Bytes())
	return err
}

// ReadSegment reads a single segment. It returns io.EOF if the stream ends
// cleanly before a new header
func ReadSegment(r io.Reader) (*Segment, error) {
	header := SegmentHeader{}
	if err := binary.Read(r, binary.BigEndian, &header); err != nil {
		return nil, err
	}
	if header.PayloadLength > MaxSegmentPayload {
		return nil, fmt.Errorf("%w: %d bytes", ErrSegmentTooLarge, header.PayloadLength)
	}
	segment := &Segment{
		SegmentHeader: header,
		Payload:       make([]byte, header.PayloadLength),
	}
	// We use ReadFull because it guarantees to read the expected number of bytes or
	// return an error
	if _, err := io.ReadFull(r, segment.Payload); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return segment, nil
}
