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

// Package webapi exposes an exchange over HTTP
package webapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	exchange "github.com/blinklabs-io/goexchange"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	defaultReadHeaderTimeout = 10 * time.Second
	maxRequestBody           = 1 << 20
)

var ErrServerStarted = errors.New("server already started")

// ServerOptionFunc is a type that represents functions that modify the Server config
type ServerOptionFunc func(*Server)

// WithLogger specifies the logger to use
func WithLogger(logger *slog.Logger) ServerOptionFunc {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithListenAddress specifies the host:port the server listens on
func WithListenAddress(address string) ServerOptionFunc {
	return func(s *Server) {
		s.listenAddress = address
	}
}

// Server serves the HTTP API of an exchange
type Server struct {
	exchange      *exchange.Exchange
	router        *mux.Router
	logger        *slog.Logger
	listenAddress string
	upgrader      websocket.Upgrader
	mutex         sync.Mutex
	httpServer    *http.Server
	listener      net.Listener
	serveDone     chan struct{}
}

// New returns a new Server for the exchange with the specified options
func New(ex *exchange.Exchange, options ...ServerOptionFunc) *Server {
	s := &Server{
		exchange: ex,
		router:   mux.NewRouter(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The API is meant for local tooling
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
	for _, option := range options {
		option(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.router.HandleFunc("/wantlist", s.handleWantlistGet).Methods(http.MethodGet)
	s.router.HandleFunc("/wantlist", s.handleWantlistAdd).Methods(http.MethodPost)
	s.router.HandleFunc("/wantlist/{cid}", s.handleWantlistCancel).Methods(http.MethodDelete)
	s.router.HandleFunc("/peers", s.handlePeers).Methods(http.MethodGet)
	s.router.HandleFunc("/stat", s.handleStat).Methods(http.MethodGet)
	s.router.HandleFunc("/command", s.handleCommand).Methods(http.MethodPost)
	s.router.HandleFunc("/events", s.handleEvents).Methods(http.MethodGet)
	s.router.Handle(
		"/metrics",
		promhttp.HandlerFor(ex.MetricsRegistry(), promhttp.HandlerOpts{}),
	).Methods(http.MethodGet)
	return s
}

// Handler returns the HTTP handler for the API routes
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens on the configured address and serves the API in the background
func (s *Server) Start() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.httpServer != nil {
		return ErrServerStarted
	}
	listener, err := net.Listen("tcp", s.listenAddress)
	if err != nil {
		return err
	}
	s.listener = listener
	s.httpServer = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: defaultReadHeaderTimeout,
	}
	s.serveDone = make(chan struct{})
	go func() {
		defer close(s.serveDone)
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error(
				"API server failed",
				"component", "webapi",
				"error", err,
			)
		}
	}()
	s.logger.Info(
		"API server listening",
		"component", "webapi",
		"address", listener.Addr().String(),
	)
	return nil
}

// Addr returns the address the server listens on, or nil if it is not started
func (s *Server) Addr() net.Addr {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Stop shuts the server down, waiting for active requests until ctx is done
func (s *Server) Stop(ctx context.Context) error {
	s.mutex.Lock()
	httpServer := s.httpServer
	serveDone := s.serveDone
	s.mutex.Unlock()
	if httpServer == nil {
		return nil
	}
	err := httpServer.Shutdown(ctx)
	<-serveDone
	return err
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Debug(
			"failed to write response",
			"component", "webapi",
			"path", r.URL.Path,
			"error", err,
		)
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	s.writeJSON(w, r, status, errorResponse{Error: err.Error()})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, data any) error {
	if r.Body == nil {
		return errors.New("no data")
	}
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	decoder.DisallowUnknownFields()
	return decoder.Decode(data)
}
