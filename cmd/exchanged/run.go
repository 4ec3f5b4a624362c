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

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	exchange "github.com/blinklabs-io/goexchange"
	"github.com/blinklabs-io/goexchange/config"
	"github.com/blinklabs-io/goexchange/store"
	"github.com/blinklabs-io/goexchange/transport"
	"github.com/blinklabs-io/goexchange/transport/p2p"
	"github.com/blinklabs-io/goexchange/webapi"
	"github.com/libp2p/go-libp2p/core/crypto"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"
)

const (
	bootstrapTimeout = 30 * time.Second
	shutdownTimeout  = 10 * time.Second
)

// connectedPeers reports the connected peers as the served peers. The daemon
// serves everyone it is connected to
type connectedPeers struct {
	exchange *exchange.Exchange
}

func (c *connectedPeers) Peers() []transport.PeerId {
	return c.exchange.ConnectedPeers()
}

func newRunCommand() *cobra.Command {
	var configFile string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "run the exchange daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg)
		},
	}
	cmd.Flags().StringVarP(&configFile, "config", "c", "", "path to config file")
	return cmd
}

func run(ctx context.Context, cfg *config.Config) error {
	level, err := cfg.LogLevel()
	if err != nil {
		return err
	}
	logger := slog.New(
		slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}),
	)
	slog.SetDefault(logger)

	key, err := loadOrCreateKey(cfg.PrivateKeyFile, logger)
	if err != nil {
		return err
	}
	h, err := p2p.NewHost(
		p2p.HostConfig{
			ListenAddrs:        cfg.Listen,
			PrivateKey:         key,
			ConnMgrLow:         cfg.ConnManager.Low,
			ConnMgrHigh:        cfg.ConnManager.High,
			ConnMgrGracePeriod: cfg.ConnManager.GracePeriod,
		},
	)
	if err != nil {
		return fmt.Errorf("create host: %w", err)
	}
	defer h.Close()
	transportOptions := []p2p.TransportOptionFunc{
		p2p.WithLogger(logger),
	}
	if cfg.RateLimit.MessagesPerSecond > 0 {
		transportOptions = append(
			transportOptions,
			p2p.WithRateLimit(rate.Limit(cfg.RateLimit.MessagesPerSecond), cfg.RateLimit.Burst),
		)
	}
	tr := p2p.New(h, transportOptions...)

	engine := &connectedPeers{}
	exchangeOptions := []exchange.ExchangeOptionFunc{
		exchange.WithTransport(tr),
		exchange.WithIdentity(cfg.Identity),
		exchange.WithLogger(logger),
		exchange.WithTransactionTTL(cfg.TransactionTTL),
		exchange.WithPolicyEngine(engine),
	}
	if cfg.WantlistStore != "" {
		s, err := store.NewPogrebStore(cfg.WantlistStore)
		if err != nil {
			return fmt.Errorf("open want-list store: %w", err)
		}
		defer s.Close()
		exchangeOptions = append(exchangeOptions, exchange.WithStore(s))
	}
	ex, err := exchange.New(exchangeOptions...)
	if err != nil {
		return err
	}
	engine.exchange = ex
	if err := ex.Start(); err != nil {
		return err
	}
	defer func() {
		if err := ex.Stop(); err != nil {
			logger.Error(
				"failed to stop exchange",
				"error", err,
			)
		}
	}()
	go logErrors(ctx, logger, ex.ErrorChan())

	if cfg.Api.Listen != "" {
		api := webapi.New(
			ex,
			webapi.WithListenAddress(cfg.Api.Listen),
			webapi.WithLogger(logger),
		)
		if err := api.Start(); err != nil {
			return fmt.Errorf("start API: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := api.Stop(shutdownCtx); err != nil {
				logger.Error(
					"failed to stop API",
					"error", err,
				)
			}
		}()
	}

	for _, addr := range p2p.HostAddrs(h) {
		logger.Info(
			"listening",
			"address", addr,
		)
	}
	for _, addr := range cfg.Bootstrap {
		connectCtx, cancel := context.WithTimeout(ctx, bootstrapTimeout)
		peerId, err := p2p.Connect(connectCtx, h, addr)
		cancel()
		if err != nil {
			logger.Warn(
				"failed to connect to bootstrap peer",
				"address", addr,
				"error", err,
			)
			continue
		}
		logger.Info(
			"connected to bootstrap peer",
			"peer", peerId.String(),
		)
	}

	<-ctx.Done()
	logger.Info("shutting down")
	return nil
}

func loadOrCreateKey(path string, logger *slog.Logger) (crypto.PrivKey, error) {
	key, err := p2p.LoadKey(path)
	if err == nil {
		return key, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load key: %w", err)
	}
	key, err = p2p.GenerateKey()
	if err != nil {
		return nil, err
	}
	if err := p2p.SaveKey(path, key); err != nil {
		return nil, fmt.Errorf("save key: %w", err)
	}
	logger.Info(
		"generated new host key",
		"path", path,
	)
	return key, nil
}

func logErrors(ctx context.Context, logger *slog.Logger, errorChan <-chan error) {
	for {
		select {
		case <-ctx.Done():
			return
		case err := <-errorChan:
			logger.Warn(
				"exchange error",
				"error", err,
			)
		}
	}
}
