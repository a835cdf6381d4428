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

package backend

import (
	"bytes"
	"context"
	"crypto/sha256"
	"crypto/tls"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/c2FmZQ/storage"
	"github.com/c2FmZQ/storage/crypto"
	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/ttbt-io/scorebook/backend/export"
	"github.com/ttbt-io/scorebook/backend/ledger"
	"github.com/ttbt-io/scorebook/backend/search"
)

//go:embed web
var webFS embed.FS

func generateETag(data []byte) string {
	return fmt.Sprintf("\"%x\"", sha256.Sum256(data))
}

func hubBusyResponse(w http.ResponseWriter, retryAfter string) {
	w.Header().Set("Retry-After", retryAfter)
	http.Error(w, "Too Many Requests: Server is busy", http.StatusTooManyRequests)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("Failed to encode response", "err", err)
	}
}

// errorStatus maps engine and store errors to HTTP status codes.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, ledger.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ledger.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ledger.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError replies with the error as a dismissable notice.
func writeError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrHubBusy) {
		hubBusyResponse(w, retryAfterCommand)
		return
	}
	status := errorStatus(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		log.Error("Request failed", "err", err)
		msg = "Internal Server Error"
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"error":  msg,
		"notice": newNotice("error", "%s", msg),
	})
}

// DocumentRenderer turns the HTML box score into binary formats.
type DocumentRenderer interface {
	PDF(ctx context.Context, html []byte) ([]byte, error)
	PNG(ctx context.Context, html []byte) ([]byte, error)
}

// Options represent server options.
type Options struct {
	Addr        string
	Cert        *tls.Certificate
	DataDir     string
	Debug       bool
	Storage     *storage.Storage
	MasterKey   crypto.MasterKey
	GameStore   *GameStore
	RosterStore *RosterStore
	Listener    net.Listener

	// IDGenerator overrides the UUIDv7 ids of players and at-bats.
	IDGenerator ledger.IDGenerator

	// Auth Options
	AuthSecret     string
	Passphrase     string
	AuthCookieName string

	// Export Options
	ChromeURL string
	Renderer  DocumentRenderer

	// Metrics Options. A private registry is used when nil.
	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer
}

const (
	retryAfterLoad    = "2"
	retryAfterCommand = "5"

	requestTimeout = 10 * time.Second
	renderTimeout  = time.Minute
)

// Server represents the running server instance.
type Server struct {
	httpServer *http.Server
	hub        *Hub
}

// Shutdown stops accepting requests, then stops the hub and flushes
// everything dirty to disk.
func (s *Server) Shutdown(ctx context.Context) error {
	var errs []string
	if err := s.httpServer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Sprintf("http: %v", err))
	}
	if err := s.hub.Stop(); err != nil {
		errs = append(errs, fmt.Sprintf("flush: %v", err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %s", strings.Join(errs, ", "))
	}
	return nil
}

// StartServer loads the game and starts the web server.
func StartServer(opts Options) (*Server, error) {
	hub, handler, err := NewServerHandler(opts)
	if err != nil {
		return nil, err
	}

	httpServer := &http.Server{
		Addr:    opts.Addr,
		Handler: handler,
	}
	if opts.Cert != nil {
		httpServer.TLSConfig = &tls.Config{
			Certificates: []tls.Certificate{*opts.Cert},
		}
	}

	go func() {
		var err error
		switch {
		case opts.Listener != nil && opts.Cert != nil:
			log.Printf("Starting HTTPS server on provided listener %s...", opts.Listener.Addr())
			err = httpServer.ServeTLS(opts.Listener, "", "")
		case opts.Listener != nil:
			log.Printf("Starting HTTP server on provided listener %s...", opts.Listener.Addr())
			err = httpServer.Serve(opts.Listener)
		case opts.Cert != nil:
			log.Printf("Starting HTTPS server on %s...", opts.Addr)
			err = httpServer.ListenAndServeTLS("", "")
		default:
			log.Printf("Starting HTTP server on %s...", opts.Addr)
			err = httpServer.ListenAndServe()
		}
		if err != nil && !errors.Is(err, net.ErrClosed) && err != http.ErrServerClosed {
			log.Error("Server error", "err", err)
		}
	}()

	return &Server{httpServer: httpServer, hub: hub}, nil
}

// LoadOrCreateGame reads the stored snapshot, or returns a fresh game if
// there is none.
func LoadOrCreateGame(gs *GameStore) (*ledger.GameState, error) {
	g, err := gs.LoadGame(ledger.GameID)
	if err == nil {
		log.Info("Loaded stored game", "atBats", len(g.AtBatHistory), "inning", g.CurrentInning, "half", g.Half())
		return g, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		log.Info("No stored game, starting a new one")
		return ledger.NewGameState(), nil
	}
	return nil, fmt.Errorf("%w: load game: %w", ledger.ErrPersistence, err)
}

// NewServerHandler loads the game, starts its hub and returns the HTTP
// handler. The caller owns the hub and must Stop it.
func NewServerHandler(opts Options) (*Hub, http.Handler, error) {
	if opts.DataDir == "" {
		opts.DataDir = "data"
	}
	if opts.Storage == nil {
		opts.Storage = storage.New(opts.DataDir, opts.MasterKey)
	}
	gs := opts.GameStore
	if gs == nil {
		gs = NewGameStore(opts.DataDir, opts.Storage)
	}
	gs.Debug = opts.Debug
	rs := opts.RosterStore
	if rs == nil {
		rs = NewRosterStore(opts.DataDir, opts.Storage, opts.MasterKey)
	}

	reg, gath := opts.Registerer, opts.Gatherer
	if reg == nil {
		r := prometheus.NewRegistry()
		reg, gath = r, r
	}
	metrics := NewMetricsService(reg)

	static, err := fs.Sub(webFS, "web")
	if err != nil {
		return nil, nil, err
	}

	state, err := LoadOrCreateGame(gs)
	if err != nil {
		return nil, nil, err
	}
	engineOpts := []ledger.Option{ledger.WithRosterMemory(rs)}
	if opts.IDGenerator != nil {
		engineOpts = append(engineOpts, ledger.WithIDGenerator(opts.IDGenerator))
	}
	engine := ledger.New(state, engineOpts...)
	if err := engine.Verify(); err != nil {
		log.Warn("Stored stats disagree with the at-bat ledger", "err", err)
	}

	hub := NewHub(engine, gs, rs, metrics)
	hub.Start()

	renderer := opts.Renderer
	if renderer == nil {
		renderer = &export.Renderer{RemoteURL: opts.ChromeURL, Debug: opts.Debug}
	}

	auth := NewAuthenticator(opts.AuthSecret, opts.Passphrase)
	if opts.AuthCookieName != "" {
		auth.CookieName = opts.AuthCookieName
	}

	api := &apiHandlers{hub: hub, rs: rs, auth: auth, renderer: renderer}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/game", api.handleGame)
	mux.HandleFunc("/api/command", requireScorekeeper(auth, api.handleCommand))
	mux.HandleFunc("/api/ledger", api.handleLedger)
	mux.HandleFunc("/api/stats", api.handleStats)
	mux.HandleFunc("/api/active-players", api.handleActivePlayers)
	mux.HandleFunc("/api/roster-memory", api.handleRosterMemory)
	mux.HandleFunc("/api/roster-memory/update", requireScorekeeper(auth, api.handleRosterMemoryUpdate))
	mux.HandleFunc("/api/roster-memory/delete", requireScorekeeper(auth, api.handleRosterMemoryDelete))
	mux.HandleFunc("/api/export/", api.handleExport)
	mux.HandleFunc("/api/session", api.handleSession)
	mux.HandleFunc("/api/login", loginHandler(auth))
	mux.HandleFunc("/api/logout", logoutHandler(auth))
	mux.HandleFunc("/api/ws", func(w http.ResponseWriter, r *http.Request) {
		ServeWS(hub, w, r)
	})
	mux.Handle("/metrics", NewMetricsHandler(gath))

	mux.Handle("/", http.FileServerFS(static))

	var handler http.Handler = mux
	handler = jwtAuthMiddleware(auth, opts.Debug, handler)
	handler = cacheControlMiddleware(handler)
	handler = securityMiddleware(handler)
	if opts.Debug {
		handler = loggingMiddleware(handler)
	}
	return hub, handler, nil
}

type apiHandlers struct {
	hub      *Hub
	rs       *RosterStore
	auth     *Authenticator
	renderer DocumentRenderer
}

func (a *apiHandlers) snapshot(r *http.Request) (*ledger.GameState, error) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	resp, err := a.hub.Do(ctx, HubRequest{Type: ReqTypeSnapshot})
	if err != nil {
		return nil, err
	}
	return resp.State, nil
}

func (a *apiHandlers) handleGame(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	g, err := a.snapshot(r)
	if errors.Is(err, ErrHubBusy) {
		hubBusyResponse(w, retryAfterLoad)
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	data, err := json.Marshal(g)
	if err != nil {
		writeError(w, err)
		return
	}

	etag := generateETag(data)
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

func (a *apiHandlers) handleCommand(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1048576))
	if err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	cmd, err := ParseCommand(body)
	if err != nil {
		writeError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	resp, err := a.hub.Do(ctx, HubRequest{Type: ReqTypeCommand, Command: cmd})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, resp.Reply)
}

func (a *apiHandlers) handleLedger(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	g, err := a.snapshot(r)
	if err != nil {
		writeError(w, err)
		return
	}
	q := search.Parse(r.URL.Query().Get("q"))
	writeJSON(w, map[string]any{
		"entries": search.Apply(q, g.Ledger()),
		"total":   len(g.AtBatHistory),
	})
}

// statLine is a player with the derived batting average.
type statLine struct {
	ledger.Player
	Average string `json:"average"`
}

func (a *apiHandlers) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	g, err := a.snapshot(r)
	if err != nil {
		writeError(w, err)
		return
	}
	lines := func(players []ledger.Player) []statLine {
		out := make([]statLine, 0, len(players))
		for _, p := range players {
			out = append(out, statLine{Player: p, Average: p.Stats.AverageString()})
		}
		return out
	}
	writeJSON(w, map[string]any{
		"home": lines(g.HomePlayers),
		"away": lines(g.AwayPlayers),
	})
}

func (a *apiHandlers) handleActivePlayers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	resp, err := a.hub.Do(ctx, HubRequest{Type: ReqTypeActive, Team: ledger.Team(r.URL.Query().Get("team"))})
	if err != nil {
		writeError(w, err)
		return
	}
	players := resp.Players
	if players == nil {
		players = []ledger.Player{}
	}
	writeJSON(w, players)
}

type rosterMemoryRequest struct {
	TeamName  string `json:"teamName"`
	Number    int    `json:"number"`
	OldNumber int    `json:"oldNumber"`
	Name      string `json:"name"`
}

func decodeRosterMemoryRequest(w http.ResponseWriter, r *http.Request) (rosterMemoryRequest, error) {
	var req rosterMemoryRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&req); err != nil {
		return req, fmt.Errorf("%w: malformed request", ledger.ErrValidation)
	}
	if err := validateStringLen(req.TeamName, maxTeamNameLen, "team name"); err != nil {
		return req, err
	}
	if err := validateStringLen(req.Name, maxNameLen, "name"); err != nil {
		return req, err
	}
	return req, nil
}

func (a *apiHandlers) handleRosterMemory(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		team := r.URL.Query().Get("team")
		if strings.TrimSpace(team) == "" {
			writeError(w, fmt.Errorf("%w: team is required", ledger.ErrValidation))
			return
		}
		entries, err := a.rs.ListByTeam(team)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, entries)
	case http.MethodPost:
		if !a.auth.canWrite(r) {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		req, err := decodeRosterMemoryRequest(w, r)
		if err != nil {
			writeError(w, err)
			return
		}
		if err := a.rs.Upsert(req.TeamName, req.Number, req.Name); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, map[string]any{"notice": newNotice("success", "Remembered #%d %s", req.Number, req.Name)})
	default:
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
	}
}

func (a *apiHandlers) handleRosterMemoryUpdate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	req, err := decodeRosterMemoryRequest(w, r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := a.rs.Update(req.TeamName, req.OldNumber, req.Name, req.Number); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]any{"notice": newNotice("success", "Updated #%d %s", req.Number, req.Name)})
}

func (a *apiHandlers) handleRosterMemoryDelete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	req, err := decodeRosterMemoryRequest(w, r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := a.rs.Delete(req.TeamName, req.Number); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]any{"notice": newNotice("success", "Forgot #%d", req.Number)})
}

var exportTypes = map[string]string{
	"json": "application/json",
	"text": "text/plain; charset=utf-8",
	"html": "text/html; charset=utf-8",
	"pdf":  "application/pdf",
	"png":  "image/png",
}

var exportExtensions = map[string]string{
	"json": "json",
	"text": "txt",
	"html": "html",
	"pdf":  "pdf",
	"png":  "png",
}

func (a *apiHandlers) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	format := strings.TrimPrefix(r.URL.Path, "/api/export/")
	contentType, ok := exportTypes[format]
	if !ok {
		http.Error(w, "Unknown export format", http.StatusNotFound)
		return
	}
	g, err := a.snapshot(r)
	if err != nil {
		writeError(w, err)
		return
	}
	data, err := a.render(r.Context(), format, g)
	if err != nil {
		log.Error("Export failed", "format", format, "err", err)
		http.Error(w, "Export failed", http.StatusBadGateway)
		return
	}

	name := "scorebook"
	if g.Date != "" {
		name += "-" + g.Date
	}
	w.Header().Set("Content-Type", contentType)
	if r.URL.Query().Get("download") != "" {
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name+"."+exportExtensions[format]))
	}
	w.Write(data)
}

func (a *apiHandlers) render(ctx context.Context, format string, g *ledger.GameState) ([]byte, error) {
	var buf bytes.Buffer
	switch format {
	case "json":
		err := export.WriteJSON(&buf, g)
		return buf.Bytes(), err
	case "text":
		err := export.WriteText(&buf, export.Build(g))
		return buf.Bytes(), err
	}

	if err := export.WriteHTML(&buf, export.Build(g)); err != nil {
		return nil, err
	}
	if format == "html" {
		return buf.Bytes(), nil
	}

	ctx, cancel := context.WithTimeout(ctx, renderTimeout)
	defer cancel()
	if format == "pdf" {
		return a.renderer.PDF(ctx, buf.Bytes())
	}
	return a.renderer.PNG(ctx, buf.Bytes())
}

func (a *apiHandlers) handleSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, map[string]any{
		"authEnabled": a.auth.Enabled(),
		"canWrite":    a.auth.canWrite(r),
	})
}

// cacheControlMiddleware keeps API responses out of shared caches.
func cacheControlMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/") || r.URL.Path == "/metrics" {
			w.Header().Set("Cache-Control", "private, no-cache, no-transform")
		} else {
			w.Header().Set("Cache-Control", "public, max-age=300, proxy-revalidate, no-transform")
		}
		next.ServeHTTP(w, r)
	})
}

// securityMiddleware adds HTTP security headers to responses.
func securityMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self'; style-src 'self' 'unsafe-inline'; img-src 'self' data: blob:")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs the method and URL path of every incoming HTTP request.
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Debug("Received request", "method", r.Method, "path", r.URL.Path)
		next.ServeHTTP(w, r)
	})
}
