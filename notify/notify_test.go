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

package notify_test

import (
	"testing"
	"time"

	"github.com/blinklabs-io/goexchange/internal/test"
	"github.com/blinklabs-io/goexchange/message"
	"github.com/blinklabs-io/goexchange/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishSubscribe(t *testing.T) {
	bus := notify.NewBus(nil)
	all := bus.Subscribe(0)
	commands := bus.Subscribe(0, notify.EventCommandReceived, notify.EventSpecialCommand)

	bus.Publish(notify.Event{
		Type:    notify.EventMessageReceived,
		PeerId:  "p1",
		Message: message.NewMessage("id"),
	})
	cmd := message.NewCommand("tx-1", "transcode", nil)
	bus.Publish(notify.Event{
		Type:    notify.EventSpecialCommand,
		PeerId:  "p1",
		Command: cmd,
	})

	evt := test.WaitFor(t, all.Chan())
	assert.Equal(t, notify.EventMessageReceived, evt.Type)
	assert.False(t, evt.Time.IsZero())
	evt = test.WaitFor(t, all.Chan())
	assert.Equal(t, notify.EventSpecialCommand, evt.Type)

	evt = test.WaitFor(t, commands.Chan())
	assert.Equal(t, notify.EventSpecialCommand, evt.Type)
	assert.Same(t, cmd, evt.Command)
	test.ExpectNone(t, commands.Chan(), 20*time.Millisecond)
}

func TestPublishDropsWhenFull(t *testing.T) {
	bus := notify.NewBus(nil)
	sub := bus.Subscribe(1)
	for range 3 {
		bus.Publish(notify.Event{Type: notify.EventMessageReceived})
	}
	assert.Equal(t, uint64(2), sub.Dropped())
	assert.Len(t, sub.Chan(), 1)
}

func TestUnsubscribe(t *testing.T) {
	bus := notify.NewBus(nil)
	sub := bus.Subscribe(1)
	sub.Unsubscribe()
	// Unsubscribe is idempotent
	sub.Unsubscribe()
	_, ok := <-sub.Chan()
	assert.False(t, ok)
	// Publishing with no subscribers is a no-op
	bus.Publish(notify.Event{Type: notify.EventMessageReceived})
}

func TestClose(t *testing.T) {
	bus := notify.NewBus(nil)
	sub := bus.Subscribe(1)
	bus.Close()
	bus.Close()
	_, ok := <-sub.Chan()
	assert.False(t, ok)
	late := bus.Subscribe(1)
	_, ok = <-late.Chan()
	require.False(t, ok)
}

func TestEventTypeString(t *testing.T) {
	assert.Equal(t, "SpecialCommand", notify.EventSpecialCommand.String())
	assert.Equal(t, "Unknown", notify.EventType(0).String())
}

func TestParseEventType(t *testing.T) {
	eventType, ok := notify.ParseEventType("SpecialCommand")
	require.True(t, ok)
	assert.Equal(t, notify.EventSpecialCommand, eventType)
	_, ok = notify.ParseEventType("Unknown")
	assert.False(t, ok)
}
