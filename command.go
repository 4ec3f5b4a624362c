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

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/blinklabs-io/goexchange/message"
	"github.com/blinklabs-io/goexchange/notify"
	"github.com/blinklabs-io/goexchange/transport"
)

// Built-in command names
const (
	CommandTest      = "test"
	CommandTranscode = "transcode"
)

// ResponseOK is the payload returned by the built-in commands
const ResponseOK = "OK"

// CommandContext carries information about an inbound command to its handler
type CommandContext struct {
	Exchange *Exchange
	PeerId   transport.PeerId
	// Identity is the unauthenticated identity from the message greeting
	Identity string
	Message  *message.Message
	Logger   *slog.Logger
}

// CommandHandlerFunc handles an inbound command and returns the response
// payload. A nil payload means that no response is sent
type CommandHandlerFunc func(CommandContext, *message.Command) ([]byte, error)

// CommandRegistry maps command names to handlers
type CommandRegistry struct {
	mutex    sync.RWMutex
	handlers map[string]CommandHandlerFunc
}

// NewCommandRegistry returns a registry with the built-in commands registered
func NewCommandRegistry() *CommandRegistry {
	r := &CommandRegistry{
		handlers: make(map[string]CommandHandlerFunc),
	}
	r.Register(CommandTest, handleTestCommand)
	r.Register(CommandTranscode, handleTranscodeCommand)
	return r
}

// Register adds or replaces the handler for a command name. A nil handler
// removes the command
func (r *CommandRegistry) Register(name string, handler CommandHandlerFunc) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if handler == nil {
		delete(r.handlers, name)
		return
	}
	r.handlers[name] = handler
}

func (r *CommandRegistry) Lookup(name string) (CommandHandlerFunc, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	handler, ok := r.handlers[name]
	return handler, ok
}

// Names returns the registered command names, sorted
func (r *CommandRegistry) Names() []string {
	r.mutex.RLock()
	ret := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		ret = append(ret, name)
	}
	r.mutex.RUnlock()
	sort.Strings(ret)
	return ret
}

func handleTestCommand(_ CommandContext, _ *message.Command) ([]byte, error) {
	return []byte(ResponseOK), nil
}

// The transcode work itself happens in the application, which subscribes to
// EventSpecialCommand. The command is acknowledged right away
func handleTranscodeCommand(ctx CommandContext, cmd *message.Command) ([]byte, error) {
	ctx.Exchange.Notifications().Publish(
		notify.Event{
			Type:          notify.EventSpecialCommand,
			PeerId:        ctx.PeerId,
			Identity:      ctx.Identity,
			Message:       ctx.Message,
			Command:       cmd,
			CommandName:   cmd.Name,
			TransactionId: cmd.TxId,
		},
	)
	return []byte(ResponseOK), nil
}
