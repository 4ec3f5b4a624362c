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
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/blinklabs-io/goexchange/message"
	"github.com/blinklabs-io/goexchange/notify"
	"github.com/blinklabs-io/goexchange/transport"
	"github.com/blinklabs-io/goexchange/wantlist"
	"golang.org/x/sync/errgroup"
)

// ReceiveMessage is called by the transport for each inbound message
func (e *Exchange) ReceiveMessage(peerId transport.PeerId, msg *message.Message) {
	if !e.running.Load() {
		return
	}
	if err := e.HandleMessage(e.ctx, peerId, msg); err != nil {
		e.logger.Debug(
			"failed to handle message",
			"component", "exchange",
			"peer", peerId.String(),
			"error", err,
		)
		e.sendError(err)
	}
}

// ReceiveError is called by the transport for receive failures. They are
// counted and forwarded to the error channel
func (e *Exchange) ReceiveError(err error) {
	e.metrics.receiveErrors.Inc()
	e.logger.Warn(
		"receive error",
		"component", "exchange",
		"error", err,
	)
	e.sendError(err)
}

// PeerConnected is called by the transport when a peer connects
func (e *Exchange) PeerConnected(peerId transport.PeerId) {
	if !e.running.Load() {
		return
	}
	if err := e.wantlist.Connected(e.ctx, peerId); err != nil {
		e.sendError(fmt.Errorf("send want-list to peer %s: %w", peerId, err))
	}
}

// PeerDisconnected is called by the transport when a peer disconnects
func (e *Exchange) PeerDisconnected(peerId transport.PeerId) {
	e.wantlist.Disconnected(peerId)
	if h, ok := e.engine.(PeerDisconnectHandler); ok {
		h.PeerDisconnected(peerId)
	}
}

// HandleMessage processes an inbound message from a peer. The fragments are
// processed independently and a failing fragment does not affect the others.
// Responses produced by the commands in the message are sent back in a single
// reply. The returned error joins the fragment and send failures
func (e *Exchange) HandleMessage(ctx context.Context, peerId transport.PeerId, msg *message.Message) error {
	e.metrics.messagesReceived.Inc()
	e.bus.Publish(
		notify.Event{
			Type:     notify.EventMessageReceived,
			PeerId:   peerId,
			Identity: msg.Greeting.Identity,
			Message:  msg,
		},
	)
	var errs []error
	if msg.Wantlist != nil {
		if err := e.handleWantlist(peerId, msg.Wantlist); err != nil {
			errs = append(errs, err)
		}
	}
	if msg.IsEmpty() {
		return errors.Join(errs...)
	}
	responses := make([]*message.Response, len(msg.Fragments))
	fragmentErrs := make([]error, len(msg.Fragments))
	var g errgroup.Group
	if e.fragmentConcurrency > 0 {
		g.SetLimit(e.fragmentConcurrency)
	}
	for idx, fragment := range msg.Fragments {
		g.Go(func() error {
			resp, err := e.handleFragment(peerId, msg, fragment)
			responses[idx] = resp
			fragmentErrs[idx] = err
			return nil
		})
	}
	_ = g.Wait()
	errs = append(errs, fragmentErrs...)
	reply := message.NewMessage(e.identity)
	for _, resp := range responses {
		if resp != nil {
			reply.AddFragment(resp)
		}
	}
	if !reply.IsEmpty() {
		if err := e.wantlist.SendMessage(ctx, peerId, reply); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (e *Exchange) handleFragment(peerId transport.PeerId, msg *message.Message, fragment message.Fragment) (*message.Response, error) {
	if fragment == nil {
		return nil, message.ErrUnknownFragmentType
	}
	e.metrics.fragmentsReceived.WithLabelValues(strconv.Itoa(int(fragment.Type()))).Inc()
	switch f := fragment.(type) {
	case *message.Command:
		return e.handleCommand(peerId, msg, f)
	case *message.Response:
		e.handleResponse(peerId, msg, f)
		return nil, nil
	case *message.Unknown:
		return nil, f.Err
	default:
		return nil, fmt.Errorf("%w: %d", message.ErrUnknownFragmentType, fragment.Type())
	}
}

func (e *Exchange) handleCommand(peerId transport.PeerId, msg *message.Message, cmd *message.Command) (*message.Response, error) {
	handler, ok := e.commands.Lookup(cmd.Name)
	if !ok {
		e.metrics.commandsReceived.WithLabelValues(unknownCommandLabel).Inc()
		e.logger.Debug(
			"received unknown command",
			"component", "exchange",
			"peer", peerId.String(),
			"command", cmd.Name,
			"transaction_id", cmd.TxId,
		)
		e.bus.Publish(
			notify.Event{
				Type:          notify.EventCommandReceived,
				PeerId:        peerId,
				Identity:      msg.Greeting.Identity,
				Message:       msg,
				Command:       cmd,
				CommandName:   cmd.Name,
				TransactionId: cmd.TxId,
			},
		)
		return nil, nil
	}
	e.metrics.commandsReceived.WithLabelValues(cmd.Name).Inc()
	payload, err := handler(
		CommandContext{
			Exchange: e,
			PeerId:   peerId,
			Identity: msg.Greeting.Identity,
			Message:  msg,
			Logger:   e.logger,
		},
		cmd,
	)
	if err != nil {
		return nil, fmt.Errorf("command %s: %w", cmd.Name, err)
	}
	if payload == nil {
		return nil, nil
	}
	return message.NewResponse(cmd.TxId, payload), nil
}

func (e *Exchange) handleResponse(peerId transport.PeerId, msg *message.Message, resp *message.Response) {
	txn, ok := e.transactions.Resolve(resp.TxId)
	if !ok {
		e.metrics.responsesReceived.WithLabelValues("false").Inc()
		e.logger.Warn(
			"received response for unknown transaction",
			"component", "exchange",
			"peer", peerId.String(),
			"transaction_id", resp.TxId,
		)
		e.bus.Publish(
			notify.Event{
				Type:          notify.EventUnresolvedResponse,
				PeerId:        peerId,
				Identity:      msg.Greeting.Identity,
				Message:       msg,
				Response:      resp,
				TransactionId: resp.TxId,
			},
		)
		return
	}
	e.metrics.responsesReceived.WithLabelValues("true").Inc()
	e.logger.Debug(
		"resolved response",
		"component", "exchange",
		"peer", peerId.String(),
		"transaction_id", txn.Id,
		"command", txn.Command,
		"age", txn.Age(),
	)
	e.bus.Publish(
		notify.Event{
			Type:          notify.EventResponseReceived,
			PeerId:        peerId,
			Identity:      msg.Greeting.Identity,
			Message:       msg,
			Response:      resp,
			CommandName:   txn.Command,
			TransactionId: txn.Id,
		},
	)
	if e.responseFunc != nil {
		e.responseFunc(peerId, txn, resp)
	}
}

func (e *Exchange) handleWantlist(peerId transport.PeerId, wl *message.Wantlist) error {
	receiver, ok := e.engine.(WantlistReceiver)
	if !ok {
		return nil
	}
	wants, cancels, err := wantlist.FromMessage(wl)
	if err != nil {
		return fmt.Errorf("want-list from peer %s: %w", peerId, err)
	}
	receiver.ReceiveWantlist(peerId, wants, cancels, wl.Full)
	return nil
}
