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

// Package cbor provides the CBOR encoding/decoding helpers used by the
// exchange wire format.
//
// This package wraps github.com/fxamacker/cbor/v2. Encoding always uses core
// deterministic mode, so the same value produces the same bytes on every
// node.
//
// Embeddable types for struct encoding:
//   - StructAsArray: Embed to encode struct fields as CBOR array instead of map
//
// Utility types:
//   - RawMessage: Deferred decoding (like json.RawMessage)
//
// Messages on the wire are CBOR lists whose first item is a numeric type tag.
// DecodeIdFromList extracts that tag without decoding the rest of the list,
// which lets callers pick a concrete type before fully decoding.
package cbor
