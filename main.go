// Copyright (c) 2026 TTBT Enterprises LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/c2FmZQ/storage"
	"github.com/c2FmZQ/storage/crypto"
	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	dataDir   string
	debugMode bool
)

var rootCmd = &cobra.Command{
	Use:   "scorebook",
	Short: "Scorekeeping server for a single youth baseball game",
	Long: `Scorebook keeps the at-bat ledger, rosters and scoreboard of one
7-inning youth baseball game and serves them to a scorekeeper page and
any number of read-only viewers.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if err := godotenv.Load(); err != nil {
			log.Debug("No .env file loaded", "err", err)
		}
		if debugMode {
			log.SetLevel(log.DebugLevel)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "data", "Directory for game and roster data")
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug mode")
}

// openStorage sets up the encrypted store in dataDir. Encryption is enabled
// by SK_MASTER_KEY.
func openStorage() (*storage.Storage, crypto.MasterKey, error) {
	var masterKey crypto.MasterKey
	keyFile := filepath.Join(dataDir, "master.key")
	if passphrase := os.Getenv("SK_MASTER_KEY"); passphrase != "" {
		// Ensure data dir exists for key file
		if err := os.MkdirAll(dataDir, 0755); err != nil {
			return nil, nil, err
		}

		var err error
		masterKey, err = crypto.ReadMasterKey([]byte(passphrase), keyFile)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, nil, fmt.Errorf("failed to read master key: %w", err)
			}
			log.Info("Initializing new master encryption key...")
			masterKey, err = crypto.CreateMasterKey()
			if err != nil {
				return nil, nil, fmt.Errorf("failed to create master key: %w", err)
			}
			if err := masterKey.Save([]byte(passphrase), keyFile); err != nil {
				return nil, nil, fmt.Errorf("failed to save master key: %w", err)
			}
		} else {
			log.Info("Loaded master encryption key.")
		}
	} else {
		if _, err := os.Stat(keyFile); err == nil {
			return nil, nil, fmt.Errorf("%s exists but SK_MASTER_KEY is not set. Refusing to start in unencrypted mode to prevent data corruption or exposure", keyFile)
		}
		log.Warn("No SK_MASTER_KEY provided. Data will be stored UNENCRYPTED.")
	}

	store := storage.New(dataDir, masterKey)
	store.EnableCompression(true)
	return store, masterKey, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Error("Command failed", "err", err)
		os.Exit(1)
	}
}
