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

// Package e2ehelpers drives the scorebook page with chromedp. It is shared by
// the browser tests and the screenshot tool.
package e2ehelpers

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

// Logger interface allows passing *testing.T or log.Printf
type Logger interface {
	Logf(format string, args ...any)
}

// CaptureScreenshot captures a screenshot and saves it to the specified filename.
func CaptureScreenshot(ctx context.Context, filename string) error {
	var buf []byte
	if err := chromedp.Run(ctx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return fmt.Errorf("failed to capture screenshot: %w", err)
	}

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		return fmt.Errorf("failed to create directory for screenshot: %w", err)
	}

	if err := os.WriteFile(filename, buf, 0644); err != nil {
		return fmt.Errorf("failed to write screenshot to file: %w", err)
	}
	log.Printf("Saved screenshot to %s", filename)
	return nil
}

// WaitForText polls sel until its text contains want.
func WaitForText(sel, want string, timeout time.Duration) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()

		timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		var got string
		for {
			select {
			case <-ticker.C:
				err := chromedp.Evaluate(fmt.Sprintf(
					`(function(sel) {
					const el = document.querySelector(sel);
					return el ? el.textContent : '';
				})(%q)`, sel), &got).Do(ctx)
				if err == nil && strings.Contains(got, want) {
					return nil
				}
			case <-timeoutCtx.Done():
				return fmt.Errorf("timeout waiting for %q in %s, last text %q: %w", want, sel, got, timeoutCtx.Err())
			}
		}
	})
}

// OpenPage loads the scorebook page with a clean cookie jar and waits for
// the first render.
func OpenPage(ctx context.Context, baseURL string) error {
	return chromedp.Run(ctx,
		network.ClearBrowserCookies(),
		chromedp.Navigate(baseURL+"/"),
		chromedp.WaitVisible(`#scoreboard`),
		WaitForText(`#inning`, "1", 5*time.Second),
	)
}

// Login enters the scorekeeper passphrase and waits for the write controls.
func Login(ctx context.Context, passphrase string) error {
	log.Print("Login: submitting passphrase")
	return chromedp.Run(ctx,
		chromedp.WaitVisible(`#passphrase`),
		chromedp.SetValue(`#passphrase`, passphrase),
		chromedp.Click(`#login`),
		chromedp.WaitVisible(`#logout`),
		chromedp.WaitVisible(`#add-player`),
	)
}

// Logout clears the session and waits for the viewer layout.
func Logout(ctx context.Context) error {
	return chromedp.Run(ctx,
		chromedp.Click(`#logout`),
		chromedp.WaitVisible(`#login`),
		chromedp.WaitNotVisible(`#add-player`),
	)
}

// AddPlayer fills the roster form. An empty name adds from roster memory.
func AddPlayer(ctx context.Context, team string, number int, name, position string) error {
	return chromedp.Run(ctx,
		chromedp.SetValue(`#add-player select[name="team"]`, team),
		chromedp.SetValue(`#add-player input[name="number"]`, strconv.Itoa(number)),
		chromedp.SetValue(`#add-player input[name="name"]`, name),
		chromedp.SetValue(`#add-player select[name="position"]`, position),
		chromedp.Click(`#add-player button[type="submit"]`),
		WaitForText(fmt.Sprintf(`.roster[data-team=%q] tbody`, team), "#"+strconv.Itoa(number), 5*time.Second),
	)
}

// RecordAtBat records result for the batter labelled "#number" in the
// at-bat form.
func RecordAtBat(ctx context.Context, number int, result string, runs int) error {
	var value string
	return chromedp.Run(ctx,
		chromedp.Evaluate(fmt.Sprintf(`(function(label) {
			for (const o of document.querySelectorAll('#batter option')) {
				if (o.textContent.startsWith(label)) return o.value;
			}
			return '';
		})(%q)`, "#"+strconv.Itoa(number)+" "), &value),
		chromedp.ActionFunc(func(ctx context.Context) error {
			if value == "" {
				return fmt.Errorf("no active batter #%d", number)
			}
			return chromedp.SetValue(`#batter`, value).Do(ctx)
		}),
		chromedp.SetValue(`#result-code`, result),
		chromedp.SetValue(`#runs`, strconv.Itoa(runs)),
		chromedp.Evaluate(`document.querySelector('#toast').textContent = ''`, nil),
		chromedp.Click(`#record`),
		WaitForText(`#toast`, "Recorded", 5*time.Second),
	)
}

// ScoreboardTotal reads the run total of team from the scoreboard.
func ScoreboardTotal(team string, total *string) chromedp.Action {
	return chromedp.Text(fmt.Sprintf(`#%s-row td:last-child`, team), total)
}

// LedgerRows counts the rows currently listed in the ledger.
func LedgerRows(n *int) chromedp.Action {
	return chromedp.Evaluate(`document.querySelectorAll('#ledger tbody tr').length`, n)
}

// Toast reads the text of the notice banner.
func Toast(text *string) chromedp.Action {
	return chromedp.Text(`#toast`, text)
}

// AcceptDialogs answers every confirm/prompt with the queued answers, in
// order. Unanswered prompts get cancelled.
func AcceptDialogs(answers ...string) chromedp.Action {
	return chromedp.Evaluate(fmt.Sprintf(`(function(answers) {
		window.confirm = () => true;
		window.prompt = () => answers.length ? answers.shift() : null;
	})(%s)`, jsStrings(answers)), nil)
}

func jsStrings(ss []string) string {
	q := make([]string, len(ss))
	for i, s := range ss {
		q[i] = strconv.Quote(s)
	}
	return "[" + strings.Join(q, ",") + "]"
}
