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

package webapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	exchange "github.com/blinklabs-io/goexchange"
	"github.com/blinklabs-io/goexchange/notify"
	"github.com/blinklabs-io/goexchange/transport"
	"github.com/blinklabs-io/goexchange/wantlist"
	"github.com/gorilla/mux"
	"github.com/ipfs/go-cid"
)

const sendTimeout = 30 * time.Second

type errorResponse struct {
	Error string `json:"error"`
}

type wantlistEntry struct {
	Cid      string `json:"cid"`
	Priority int32  `json:"priority"`
}

type wantRequest struct {
	Cids     []string `json:"cids"`
	Priority int32    `json:"priority"`
}

type statResponse struct {
	Wantlist          []wantlistEntry `json:"wantlist"`
	BlocksReceived    uint64          `json:"blocksReceived"`
	DupBlocksReceived uint64          `json:"dupBlocksReceived"`
	DupDataReceived   uint64          `json:"dupDataReceived"`
	Peers             []string        `json:"peers"`
}

type commandRequest struct {
	Peer string `json:"peer"`
	Name string `json:"name"`
	// Encoded as base64 in JSON
	Args []byte `json:"args,omitempty"`
}

type commandResponse struct {
	TransactionId string `json:"transactionId"`
}

type eventMessage struct {
	Type          string    `json:"type"`
	Time          time.Time `json:"time"`
	Peer          string    `json:"peer,omitempty"`
	Identity      string    `json:"identity,omitempty"`
	Command       string    `json:"command,omitempty"`
	TransactionId string    `json:"transactionId,omitempty"`
	Payload       []byte    `json:"payload,omitempty"`
}

func newWantlistEntries(entries []wantlist.Entry) []wantlistEntry {
	ret := make([]wantlistEntry, 0, len(entries))
	for _, entry := range entries {
		ret = append(
			ret,
			wantlistEntry{
				Cid:      entry.Cid.String(),
				Priority: entry.Priority,
			},
		)
	}
	return ret
}

func newPeerStrings(peers []transport.PeerId) []string {
	ret := make([]string, 0, len(peers))
	for _, peer := range peers {
		ret = append(ret, peer.String())
	}
	return ret
}

func newEventMessage(evt notify.Event) eventMessage {
	ret := eventMessage{
		Type:          evt.Type.String(),
		Time:          evt.Time,
		Peer:          evt.PeerId.String(),
		Identity:      evt.Identity,
		Command:       evt.CommandName,
		TransactionId: evt.TransactionId,
	}
	switch {
	case evt.Command != nil:
		ret.Payload = evt.Command.Args
	case evt.Response != nil:
		ret.Payload = evt.Response.Payload
	}
	return ret
}

// GET /wantlist
func (s *Server) handleWantlistGet(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, newWantlistEntries(s.exchange.GetWantlist()))
}

// POST /wantlist with a wantRequest body
func (s *Server) handleWantlistAdd(w http.ResponseWriter, r *http.Request) {
	var req wantRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	cids := make([]cid.Cid, 0, len(req.Cids))
	for _, tmpCid := range req.Cids {
		c, err := cid.Decode(tmpCid)
		if err != nil {
			s.writeError(w, r, http.StatusBadRequest, err)
			return
		}
		cids = append(cids, c)
	}
	ctx, cancel := context.WithTimeout(r.Context(), sendTimeout)
	defer cancel()
	// The local want-list is updated even if some peers could not be told
	if err := s.exchange.Want(ctx, req.Priority, cids...); err != nil {
		s.logger.Warn(
			"failed to send want-list update",
			"component", "webapi",
			"error", err,
		)
	}
	w.WriteHeader(http.StatusNoContent)
}

// DELETE /wantlist/{cid}
func (s *Server) handleWantlistCancel(w http.ResponseWriter, r *http.Request) {
	c, err := cid.Decode(mux.Vars(r)["cid"])
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), sendTimeout)
	defer cancel()
	if err := s.exchange.CancelWant(ctx, c); err != nil {
		s.logger.Warn(
			"failed to send want-list update",
			"component", "webapi",
			"error", err,
		)
	}
	w.WriteHeader(http.StatusNoContent)
}

// GET /peers
func (s *Server) handlePeers(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, newPeerStrings(s.exchange.ConnectedPeers()))
}

// GET /stat
func (s *Server) handleStat(w http.ResponseWriter, r *http.Request) {
	stat, err := s.exchange.Stat()
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, exchange.ErrNoPolicyEngine) {
			status = http.StatusServiceUnavailable
		}
		s.writeError(w, r, status, err)
		return
	}
	s.writeJSON(
		w,
		r,
		http.StatusOK,
		statResponse{
			Wantlist:          newWantlistEntries(stat.Wantlist),
			BlocksReceived:    stat.BlocksReceived,
			DupBlocksReceived: stat.DupBlocksReceived,
			DupDataReceived:   stat.DupDataReceived,
			Peers:             newPeerStrings(stat.Peers),
		},
	)
}

// POST /command with a commandRequest body
func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	var req commandRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), sendTimeout)
	defer cancel()
	txId, err := s.exchange.SendCommand(ctx, transport.PeerId(req.Peer), req.Name, req.Args)
	if err != nil {
		status := http.StatusBadGateway
		switch {
		case errors.Is(err, exchange.ErrEmptyCommandName):
			status = http.StatusBadRequest
		case errors.Is(err, transport.ErrPeerNotConnected):
			status = http.StatusNotFound
		}
		s.writeError(w, r, status, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, commandResponse{TransactionId: txId})
}

// GET /events?type=[event type]...
//
// Upgrades to a websocket and streams notifications as JSON eventMessage
// objects. Without a type parameter all events are streamed
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	var types []notify.EventType
	for _, name := range r.URL.Query()["type"] {
		eventType, ok := notify.ParseEventType(name)
		if !ok {
			s.writeError(w, r, http.StatusBadRequest, errors.New("unknown event type: "+name))
			return
		}
		types = append(types, eventType)
	}
	// Subscribe before upgrading so that no event after the handshake is missed
	sub := s.exchange.Notifications().Subscribe(0, types...)
	defer sub.Unsubscribe()
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader has already responded
		return
	}
	defer conn.Close()
	// Inbound frames are discarded. A read error means the client went away
	closedChan := make(chan struct{})
	go func() {
		defer close(closedChan)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
	for {
		select {
		case <-closedChan:
			return
		case evt, ok := <-sub.Chan():
			if !ok {
				return
			}
			if err := conn.WriteJSON(newEventMessage(evt)); err != nil {
				s.logger.Debug(
					"failed to write event",
					"component", "webapi",
					"error", err,
				)
				return
			}
		}
	}
}
