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

package e2e

import (
	"context"
	"fmt"
	"strings"

	"github.com/chromedp/chromedp"
	"github.com/ttbt-io/scorebook/tools/e2ehelpers"
)

var CaptureScreenshot = e2ehelpers.CaptureScreenshot
var WaitForText = e2ehelpers.WaitForText
var OpenPage = e2ehelpers.OpenPage
var Login = e2ehelpers.Login
var Logout = e2ehelpers.Logout
var AddPlayer = e2ehelpers.AddPlayer
var RecordAtBat = e2ehelpers.RecordAtBat
var ScoreboardTotal = e2ehelpers.ScoreboardTotal
var LedgerRows = e2ehelpers.LedgerRows
var Toast = e2ehelpers.Toast
var AcceptDialogs = e2ehelpers.AcceptDialogs

// OpenAsScorekeeper loads the page and logs in.
func OpenAsScorekeeper(ctx context.Context, baseURL string) error {
	if err := OpenPage(ctx, baseURL); err != nil {
		return err
	}
	return Login(ctx, testPassphrase)
}

// expectText returns an action that fails unless *got contains want.
func expectText(got *string, want string) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if !strings.Contains(*got, want) {
			return fmt.Errorf("got %q, want it to contain %q", *got, want)
		}
		return nil
	})
}

func expectInt(got *int, want int) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if *got != want {
			return fmt.Errorf("got %d, want %d", *got, want)
		}
		return nil
	})
}
