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

package message

import (
	"errors"
	"fmt"
)

var (
	// ErrDecode is matched by every envelope decode failure
	ErrDecode = errors.New("message decode failed")

	// ErrUnknownFragmentType is returned for fragments with an unrecognized type tag
	ErrUnknownFragmentType = errors.New("unknown fragment type")

	// ErrMalformedFragment is returned for fragments with a known type tag that
	// do not match the expected shape
	ErrMalformedFragment = errors.New("malformed fragment")
)

// DecodeError is returned when the message envelope cannot be decoded. It
// matches both ErrDecode and the underlying cause with errors.Is
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s: %s", ErrDecode, e.Err)
}

func (e *DecodeError) Unwrap() []error {
	return []error{ErrDecode, e.Err}
}
