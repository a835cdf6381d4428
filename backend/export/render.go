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

package export

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// Renderer turns the HTML box score into PDF or PNG with headless Chrome.
type Renderer struct {
	// RemoteURL is the DevTools URL of a running browser. When empty, a
	// local Chrome is started for each render.
	RemoteURL string
	Debug     bool
}

func (r *Renderer) allocator(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.RemoteURL != "" {
		return chromedp.NewRemoteAllocator(ctx, r.RemoteURL)
	}
	return chromedp.NewExecAllocator(ctx, chromedp.DefaultExecAllocatorOptions[:]...)
}

// render loads html into a blank tab and runs capture on it.
func (r *Renderer) render(ctx context.Context, html []byte, capture chromedp.Action) error {
	ctx, cancel := r.allocator(ctx)
	defer cancel()

	opts := []chromedp.ContextOption{chromedp.WithErrorf(log.Errorf)}
	if r.Debug {
		opts = append(opts, chromedp.WithLogf(log.Debugf))
	}
	ctx, cancel = chromedp.NewContext(ctx, opts...)
	defer cancel()

	return chromedp.Run(ctx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(tree.Frame.ID, string(html)).Do(ctx)
		}),
		chromedp.WaitReady("body", chromedp.ByQuery),
		capture,
	)
}

// PDF prints html to a landscape PDF.
func (r *Renderer) PDF(ctx context.Context, html []byte) ([]byte, error) {
	var buf []byte
	err := r.render(ctx, html, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		buf, _, err = page.PrintToPDF().
			WithPrintBackground(true).
			WithLandscape(true).
			Do(ctx)
		return err
	}))
	if err != nil {
		return nil, fmt.Errorf("pdf export: %w", err)
	}
	return buf, nil
}

// PNG captures the whole page as a PNG image.
func (r *Renderer) PNG(ctx context.Context, html []byte) ([]byte, error) {
	var buf []byte
	// Quality 100 makes chromedp capture PNG instead of JPEG.
	if err := r.render(ctx, html, chromedp.FullScreenshot(&buf, 100)); err != nil {
		return nil, fmt.Errorf("png export: %w", err)
	}
	return buf, nil
}
