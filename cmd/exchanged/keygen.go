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
	"errors"
	"fmt"
	"os"

	"github.com/blinklabs-io/goexchange/transport/p2p"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/spf13/cobra"
)

func newKeygenCommand() *cobra.Command {
	var (
		outFile string
		force   bool
	)
	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "generate a host private key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !force {
				if _, err := os.Stat(outFile); err == nil {
					return fmt.Errorf("%s already exists, use --force to overwrite", outFile)
				} else if !errors.Is(err, os.ErrNotExist) {
					return err
				}
			}
			key, err := p2p.GenerateKey()
			if err != nil {
				return err
			}
			if err := p2p.SaveKey(outFile, key); err != nil {
				return err
			}
			id, err := peer.IDFromPrivateKey(key)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote key for peer %s to %s\n", id, outFile)
			return nil
		},
	}
	cmd.Flags().StringVarP(&outFile, "out", "o", "exchange.key", "output file")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing key file")
	return cmd
}
