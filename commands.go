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
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/ttbt-io/scorebook/backend"
	"github.com/ttbt-io/scorebook/backend/export"
)

func init() {
	serveCmd.Flags().StringVar(&addr, "addr", ":8080", "The TCP address to listen to")
	serveCmd.Flags().StringVar(&tlsCert, "tls-cert", "", "Path to TLS certificate")
	serveCmd.Flags().StringVar(&tlsKey, "tls-key", "", "Path to TLS key")
	serveCmd.Flags().StringVar(&authCookieName, "auth-cookie-name", "scorebook_auth", "Name of the cookie containing the JWT")
	serveCmd.Flags().StringVar(&chromeURL, "chrome-url", "", "DevTools URL of a running Chrome for PDF/PNG export; a local Chrome is launched when empty")

	dumpCmd.Flags().StringVar(&rosterTeam, "roster", "", "Dump the remembered roster of this team instead of the game")

	exportCmd.Flags().StringVar(&exportFormat, "format", "text", "Output format: text, html, json, pdf or png")
	exportCmd.Flags().StringVar(&exportOut, "out", "", "Output file (default stdout)")
	exportCmd.Flags().StringVar(&chromeURL, "chrome-url", "", "DevTools URL of a running Chrome for PDF/PNG export")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(dumpCmd)
	rootCmd.AddCommand(exportCmd)
}

var (
	addr           string
	tlsCert        string
	tlsKey         string
	authCookieName string
	chromeURL      string
	rosterTeam     string
	exportFormat   string
	exportOut      string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server",
	RunE: func(cmd *cobra.Command, args []string) error {
		var cert *tls.Certificate
		if tlsCert != "" && tlsKey != "" {
			c, err := tls.LoadX509KeyPair(tlsCert, tlsKey)
			if err != nil {
				return fmt.Errorf("failed to load TLS cert/key: %w", err)
			}
			cert = &c
		}

		store, masterKey, err := openStorage()
		if err != nil {
			return err
		}

		server, err := backend.StartServer(backend.Options{
			Addr:           addr,
			Cert:           cert,
			DataDir:        dataDir,
			Debug:          debugMode,
			Storage:        store,
			MasterKey:      masterKey,
			AuthSecret:     os.Getenv("SK_AUTH_SECRET"),
			Passphrase:     os.Getenv("SK_SCOREKEEPER_PASSPHRASE"),
			AuthCookieName: authCookieName,
			ChromeURL:      chromeURL,
			Registerer:     prometheus.DefaultRegisterer,
			Gatherer:       prometheus.DefaultGatherer,
		})
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}

		// Wait for interrupt signal
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
		<-stop

		log.Info("Shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		log.Info("Gracefully stopped.")
		return nil
	},
}

var dumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Print the stored game snapshot as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, masterKey, err := openStorage()
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")

		if rosterTeam != "" {
			rs := backend.NewRosterStore(dataDir, store, masterKey)
			entries, err := rs.ListByTeam(rosterTeam)
			if err != nil {
				return err
			}
			return enc.Encode(entries)
		}
		game, err := backend.LoadOrCreateGame(backend.NewGameStore(dataDir, store))
		if err != nil {
			return err
		}
		return enc.Encode(game)
	},
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the stored game as a box score",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, _, err := openStorage()
		if err != nil {
			return err
		}
		game, err := backend.LoadOrCreateGame(backend.NewGameStore(dataDir, store))
		if err != nil {
			return err
		}

		var buf bytes.Buffer
		doc := export.Build(game)
		switch exportFormat {
		case "text":
			err = export.WriteText(&buf, doc)
		case "json":
			err = export.WriteJSON(&buf, game)
		case "html", "pdf", "png":
			err = export.WriteHTML(&buf, doc)
			if err != nil || exportFormat == "html" {
				break
			}
			r := &export.Renderer{RemoteURL: chromeURL, Debug: debugMode}
			ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
			defer cancel()
			var data []byte
			if exportFormat == "pdf" {
				data, err = r.PDF(ctx, buf.Bytes())
			} else {
				data, err = r.PNG(ctx, buf.Bytes())
			}
			buf.Reset()
			buf.Write(data)
		default:
			return fmt.Errorf("unknown format %q", exportFormat)
		}
		if err != nil {
			return err
		}

		var w io.Writer = cmd.OutOrStdout()
		if exportOut != "" {
			f, err := os.Create(exportOut)
			if err != nil {
				return err
			}
			defer f.Close()
			w = f
		}
		_, err = buf.WriteTo(w)
		return err
	},
}
