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

package exchange

import "errors"

var (
	// ErrNoPolicyEngine is returned by operations that need a policy engine when none is configured
	ErrNoPolicyEngine = errors.New("no policy engine configured")

	// ErrNoTransport is returned by Start when no transport is configured
	ErrNoTransport = errors.New("no transport configured")

	// ErrExchangeStopped is returned when starting an exchange that has been stopped
	ErrExchangeStopped = errors.New("exchange stopped")

	// ErrEmptyCommandName is returned when creating a command without a name
	ErrEmptyCommandName = errors.New("command name must not be empty")
)
