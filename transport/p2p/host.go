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

package p2p

import (
	"context"
	"crypto/rand"
	"fmt"
	"os"
	"time"

	"github.com/blinklabs-io/goexchange/transport"
	"github.com/libp2p/go-libp2p"
	"github.com/libp2p/go-libp2p/core/crypto"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/p2p/net/connmgr"
	tls "github.com/libp2p/go-libp2p/p2p/security/tls"
	ma "github.com/multiformats/go-multiaddr"
)

const (
	DefaultConnMgrLow         = 32
	DefaultConnMgrHigh        = 128
	DefaultConnMgrGracePeriod = time.Minute
)

// HostConfig describes the libp2p host used by the transport
type HostConfig struct {
	ListenAddrs        []string
	PrivateKey         crypto.PrivKey
	ConnMgrLow         int
	ConnMgrHigh        int
	ConnMgrGracePeriod time.Duration
}

// NewHost creates a libp2p host secured with TLS and bounded by a connection manager
func NewHost(cfg HostConfig) (host.Host, error) {
	low, high, grace := cfg.ConnMgrLow, cfg.ConnMgrHigh, cfg.ConnMgrGracePeriod
	if low <= 0 {
		low = DefaultConnMgrLow
	}
	if high <= 0 {
		high = DefaultConnMgrHigh
	}
	if grace <= 0 {
		grace = DefaultConnMgrGracePeriod
	}
	cm, err := connmgr.NewConnManager(low, high, connmgr.WithGracePeriod(grace))
	if err != nil {
		return nil, fmt.Errorf("connection manager: %w", err)
	}
	listenAddrs := make([]ma.Multiaddr, 0, len(cfg.ListenAddrs))
	for _, addr := range cfg.ListenAddrs {
		maddr, err := ma.NewMultiaddr(addr)
		if err != nil {
			return nil, fmt.Errorf("invalid listen address %q: %w", addr, err)
		}
		listenAddrs = append(listenAddrs, maddr)
	}
	options := []libp2p.Option{
		libp2p.Security(tls.ID, tls.New),
		libp2p.ConnectionManager(cm),
		libp2p.ListenAddrs(listenAddrs...),
	}
	if cfg.PrivateKey != nil {
		options = append(options, libp2p.Identity(cfg.PrivateKey))
	}
	return libp2p.New(options...)
}

// Connect dials a peer given its full multiaddr including the /p2p/ component
func Connect(ctx context.Context, h host.Host, addr string) (transport.PeerId, error) {
	maddr, err := ma.NewMultiaddr(addr)
	if err != nil {
		return "", fmt.Errorf("invalid peer address %q: %w", addr, err)
	}
	info, err := peer.AddrInfoFromP2pAddr(maddr)
	if err != nil {
		return "", fmt.Errorf("invalid peer address %q: %w", addr, err)
	}
	if err := h.Connect(ctx, *info); err != nil {
		return "", err
	}
	return transport.PeerId(info.ID.String()), nil
}

// HostAddrs returns the full multiaddrs of the host, suitable for Connect
func HostAddrs(h host.Host) []string {
	ret := make([]string, 0, len(h.Addrs()))
	for _, addr := range h.Addrs() {
		ret = append(ret, fmt.Sprintf("%s/p2p/%s", addr, h.ID()))
	}
	return ret
}

// GenerateKey returns a new Ed25519 host key
func GenerateKey() (crypto.PrivKey, error) {
	priv, _, err := crypto.GenerateEd25519Key(rand.Reader)
	return priv, err
}

// LoadKey reads a host key written by SaveKey
func LoadKey(path string) (crypto.PrivKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return crypto.UnmarshalPrivateKey(data)
}

// SaveKey writes a host key to the given path
func SaveKey(path string, key crypto.PrivKey) error {
	data, err := crypto.MarshalPrivateKey(key)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
