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

// Command screenshots plays a short demo game on a throwaway server and
// captures the scorebook page for the documentation.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/c2FmZQ/storage"
	"github.com/chromedp/chromedp"
	"github.com/ttbt-io/scorebook/backend"
	"github.com/ttbt-io/scorebook/tools/e2ehelpers"
)

var (
	chromeURL = flag.String("chrome-url", "", "The url of the remote debugging port")
	host      = flag.String("host", "devtest.local", "Host name under which the browser reaches this machine")
	outputDir = flag.String("output-dir", "/screenshots", "Directory to save screenshots")
)

const passphrase = "screenshots"

func main() {
	flag.Parse()

	if *chromeURL == "" {
		log.Fatal("--chrome-url must be set")
	}

	baseURL, server := startServer()
	defer server.Shutdown(context.Background())
	log.Printf("Server started at %s", baseURL)

	ctx, cancel := chromedp.NewRemoteAllocator(context.Background(), *chromeURL)
	defer cancel()

	ctx, cancel = chromedp.NewContext(ctx, chromedp.WithLogf(log.Printf))
	defer cancel()

	ctx, cancel = context.WithTimeout(ctx, 120*time.Second)
	defer cancel()

	// Ensure output dir exists
	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		log.Fatalf("Failed to create output dir: %v", err)
	}

	log.Println("Starting screenshot generation...")
	if err := generateScreenshots(ctx, baseURL); err != nil {
		debugFailure(ctx, "generate")
		log.Fatalf("Failed to generate screenshots: %v", err)
	}
	log.Println("Screenshots generated successfully.")
}

func startServer() (string, *backend.Server) {
	dataDir, err := os.MkdirTemp("", "scorebook-screenshots")
	if err != nil {
		log.Fatalf("MkdirTemp: %v", err)
	}
	l, err := net.Listen("tcp", "0.0.0.0:0")
	if err != nil {
		log.Fatalf("Listen: %v", err)
	}
	_, port, _ := net.SplitHostPort(l.Addr().String())

	server, err := backend.StartServer(backend.Options{
		Listener:   l,
		DataDir:    dataDir,
		Storage:    storage.New(dataDir, nil),
		AuthSecret: "screenshots-secret",
		Passphrase: passphrase,
		ChromeURL:  *chromeURL,
	})
	if err != nil {
		log.Fatalf("StartServer: %v", err)
	}
	return fmt.Sprintf("http://%s:%s", *host, port), server
}

func debugFailure(ctx context.Context, name string) {
	log.Printf("DEBUG: capturing failure info for %s", name)
	var htmlContent string
	if err := chromedp.Run(ctx, chromedp.OuterHTML("html", &htmlContent)); err != nil {
		log.Printf("DEBUG: Failed to capture HTML: %v", err)
	} else {
		log.Printf("DEBUG: HTML Dump for %s:\n%s", name, htmlContent)
	}
	e2ehelpers.CaptureScreenshot(ctx, filepath.Join(*outputDir, fmt.Sprintf("debug-%s.png", name)))
}

func generateScreenshots(ctx context.Context, baseURL string) error {
	if err := e2ehelpers.OpenPage(ctx, baseURL); err != nil {
		return err
	}
	if err := e2ehelpers.CaptureScreenshot(ctx, filepath.Join(*outputDir, "viewer-empty.png")); err != nil {
		return err
	}
	if err := e2ehelpers.Login(ctx, passphrase); err != nil {
		return err
	}

	if err := chromedp.Run(ctx,
		chromedp.SetValue(`#home-name`, "Tigers"),
		chromedp.SetValue(`#away-name`, "Bears"),
		chromedp.Click(`#save-names`),
		e2ehelpers.WaitForText(`#away-row`, "Bears", 5*time.Second),
	); err != nil {
		return err
	}

	roster := []struct {
		team     string
		number   int
		name     string
		position string
	}{
		{"away", 7, "Alice", "SS"},
		{"away", 12, "Bob", "1B"},
		{"away", 3, "Carol", "P"},
		{"home", 9, "Dan", "LF"},
		{"home", 5, "Eve", "C"},
	}
	for _, p := range roster {
		if err := e2ehelpers.AddPlayer(ctx, p.team, p.number, p.name, p.position); err != nil {
			return fmt.Errorf("add %s: %w", p.name, err)
		}
	}

	plays := []struct {
		number int
		result string
		runs   int
	}{
		{7, "single", 0},
		{12, "double", 1},
		{3, "strikeout", 0},
	}
	for _, p := range plays {
		if err := e2ehelpers.RecordAtBat(ctx, p.number, p.result, p.runs); err != nil {
			return fmt.Errorf("at-bat #%d: %w", p.number, err)
		}
	}
	if err := e2ehelpers.CaptureScreenshot(ctx, filepath.Join(*outputDir, "scorekeeper.png")); err != nil {
		return err
	}

	if err := chromedp.Run(ctx,
		chromedp.Navigate(baseURL+"/api/export/html"),
		chromedp.WaitVisible(`body`),
	); err != nil {
		return err
	}
	return e2ehelpers.CaptureScreenshot(ctx, filepath.Join(*outputDir, "boxscore.png"))
}
