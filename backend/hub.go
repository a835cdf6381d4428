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
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/ttbt-io/scorebook/backend/ledger"
)

const (
	// noticeDismissAfter is how long the page shows a command notice.
	noticeDismissAfter = 3 * time.Second

	defaultFlushInterval = time.Second
)

// HubRequest types
const (
	ReqTypeCommand  = "COMMAND"
	ReqTypeSnapshot = "SNAPSHOT"
	ReqTypeActive   = "ACTIVE_PLAYERS"
)

// HubRequest represents a request to the Hub
type HubRequest struct {
	Type    string
	Command Command     // For ReqTypeCommand
	Team    ledger.Team // For ReqTypeActive
	Reply   chan HubResponse
}

// HubResponse represents a response from the Hub
type HubResponse struct {
	Reply   CommandReply
	State   *ledger.GameState
	Players []ledger.Player
	Error   error
}

// Notice is the transient message the page shows after a command.
type Notice struct {
	Level          string `json:"level"` // "success" or "error"
	Message        string `json:"message"`
	DismissAfterMs int64  `json:"dismissAfterMs"`
}

func newNotice(level, format string, args ...any) Notice {
	return Notice{
		Level:          level,
		Message:        fmt.Sprintf(format, args...),
		DismissAfterMs: noticeDismissAfter.Milliseconds(),
	}
}

// CommandReply is the body of a successful POST /api/command.
type CommandReply struct {
	ID     string              `json:"id,omitempty"`
	Type   string              `json:"type"`
	Notice Notice              `json:"notice"`
	Player *ledger.Player      `json:"player,omitempty"`
	AtBat  *ledger.AtBatRecord `json:"atBat,omitempty"`
	State  *ledger.GameState   `json:"state"`
}

// Hub owns the engine. Every command runs to completion on the hub
// goroutine, so the engine never sees concurrent calls.
type Hub struct {
	engine  *ledger.Engine
	gs      *GameStore
	rs      *RosterStore
	metrics Metrics

	// Registered viewers.
	clients map[*wsClient]bool

	// Inbound requests
	requests chan HubRequest

	// Register requests from the clients.
	register chan *wsClient

	// Unregister requests from clients.
	unregister chan *wsClient

	flushInterval time.Duration
	quit          chan struct{}
	done          chan struct{}
	flushDone     chan struct{}
}

// NewHub creates a hub for engine. rs may be nil.
func NewHub(engine *ledger.Engine, gs *GameStore, rs *RosterStore, metrics Metrics) *Hub {
	return &Hub{
		engine:        engine,
		gs:            gs,
		rs:            rs,
		metrics:       metrics,
		clients:       make(map[*wsClient]bool),
		requests:      make(chan HubRequest, 64),
		register:      make(chan *wsClient),
		unregister:    make(chan *wsClient),
		flushInterval: defaultFlushInterval,
		quit:          make(chan struct{}),
		done:          make(chan struct{}),
		flushDone:     make(chan struct{}),
	}
}

// Start launches the hub and the background flusher.
func (h *Hub) Start() {
	go h.run()
	go h.flushLoop()
}

// Stop ends both goroutines and writes everything dirty to disk.
func (h *Hub) Stop() error {
	close(h.quit)
	<-h.done
	<-h.flushDone
	return h.flush()
}

func (h *Hub) run() {
	defer close(h.done)
	for {
		select {
		case client := <-h.register:
			h.clients[client] = true
			h.metrics.SetViewers(len(h.clients))
			client.sendJSON(Message{Type: MsgTypeSnapshot, State: h.engine.Snapshot()})
		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				h.dropClient(client)
				h.metrics.SetViewers(len(h.clients))
			}
		case req := <-h.requests:
			switch req.Type {
			case ReqTypeCommand:
				h.handleCommand(req)
			case ReqTypeSnapshot:
				req.Reply <- HubResponse{State: h.engine.Snapshot()}
			case ReqTypeActive:
				if !req.Team.Valid() {
					req.Reply <- HubResponse{Error: fmt.Errorf("%w: invalid team %q", ledger.ErrValidation, req.Team)}
					continue
				}
				req.Reply <- HubResponse{Players: h.engine.ActivePlayers(req.Team)}
			default:
				req.Reply <- HubResponse{Error: fmt.Errorf("unknown request type: %s", req.Type)}
			}
		case <-h.quit:
			for client := range h.clients {
				h.dropClient(client)
			}
			h.metrics.SetViewers(0)
			return
		}
	}
}

func (h *Hub) flushLoop() {
	defer close(h.flushDone)
	ticker := time.NewTicker(h.flushInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			h.flush()
		case <-h.quit:
			return
		}
	}
}

// flush writes dirty snapshots and rosters. Failures are logged and counted;
// the next successful flush writes the latest state. A failure in one store
// does not hold back the other.
func (h *Hub) flush() error {
	var errs []error
	dirty := h.gs.IsDirty(ledger.GameID)
	if err := h.gs.FlushAll(); err != nil {
		log.Error("snapshot flush failed", "err", err)
		h.metrics.IncPersistFailures()
		errs = append(errs, err)
	} else if dirty {
		h.metrics.IncFlushes()
	}
	if h.rs != nil {
		if err := h.rs.FlushAll(); err != nil {
			log.Error("roster memory flush failed", "err", err)
			h.metrics.IncPersistFailures()
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ledger.ErrPersistence, errors.Join(errs...))
	}
	return nil
}

// Submit queues req without blocking. It reports false when the hub's
// queue is full.
func (h *Hub) Submit(req HubRequest) bool {
	select {
	case h.requests <- req:
		return true
	default:
		return false
	}
}

// ErrHubBusy is returned by Do when the request queue is full.
var ErrHubBusy = errors.New("hub busy")

// Do submits a request and waits for its response.
func (h *Hub) Do(ctx context.Context, req HubRequest) (HubResponse, error) {
	req.Reply = make(chan HubResponse, 1)
	if !h.Submit(req) {
		return HubResponse{}, ErrHubBusy
	}
	select {
	case resp := <-req.Reply:
		return resp, resp.Error
	case <-ctx.Done():
		return HubResponse{}, ctx.Err()
	}
}

func (h *Hub) handleCommand(req HubRequest) {
	start := time.Now()
	reply, err := h.execute(req.Command)
	outcome := "ok"
	if err != nil {
		outcome = errorOutcome(err)
	}
	h.metrics.ObserveCommand(req.Command.Type, outcome, time.Since(start))
	if err != nil {
		log.Debug("command rejected", "type", req.Command.Type, "err", err)
		req.Reply <- HubResponse{Error: err}
		return
	}

	state := h.engine.Snapshot()
	if err := h.gs.SaveGameInMemory(state, false); err != nil {
		log.Error("snapshot cache update failed", "err", err)
		h.metrics.IncPersistFailures()
	}
	h.broadcast(Message{Type: MsgTypeSnapshot, State: state})

	reply.ID = req.Command.ID
	reply.Type = req.Command.Type
	reply.State = state
	req.Reply <- HubResponse{Reply: reply, State: state}
}

func errorOutcome(err error) string {
	switch {
	case errors.Is(err, ledger.ErrValidation):
		return "invalid"
	case errors.Is(err, ledger.ErrConflict):
		return "conflict"
	case errors.Is(err, ledger.ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}

// execute applies one command to the engine.
func (h *Hub) execute(cmd Command) (CommandReply, error) {
	e := h.engine
	ok := func(format string, args ...any) CommandReply {
		return CommandReply{Notice: newNotice("success", format, args...)}
	}

	switch cmd.Type {
	case CmdAddPlayer:
		p, err := decodePayload[playerPayload](cmd.Payload)
		if err != nil {
			return CommandReply{}, err
		}
		player, err := e.AddPlayer(p.Team, p.Name, p.Number, p.Position)
		if err != nil {
			return CommandReply{}, err
		}
		r := ok("Added #%d %s", player.Number, player.Name)
		r.Player = &player
		return r, nil

	case CmdAddPlayerFromMemory:
		p, err := decodePayload[playerPayload](cmd.Payload)
		if err != nil {
			return CommandReply{}, err
		}
		player, err := e.AddPlayerFromMemory(p.Team, p.Number)
		if err != nil {
			return CommandReply{}, err
		}
		r := ok("Added #%d %s", player.Number, player.Name)
		r.Player = &player
		return r, nil

	case CmdEditPlayer:
		p, err := decodePayload[playerPayload](cmd.Payload)
		if err != nil {
			return CommandReply{}, err
		}
		player, err := e.EditPlayer(p.Team, p.PlayerID, p.Name, p.Number, p.Position)
		if err != nil {
			return CommandReply{}, err
		}
		r := ok("Updated #%d %s", player.Number, player.Name)
		r.Player = &player
		return r, nil

	case CmdDeletePlayer:
		p, err := decodePayload[playerPayload](cmd.Payload)
		if err != nil {
			return CommandReply{}, err
		}
		if err := e.DeletePlayer(p.Team, p.PlayerID); err != nil {
			return CommandReply{}, err
		}
		return ok("Player deleted"), nil

	case CmdSubstitute:
		p, err := decodePayload[substitutePayload](cmd.Payload)
		if err != nil {
			return CommandReply{}, err
		}
		player, err := e.SubstitutePlayer(p.Team, p.OutPlayerID, p.Name, p.Number, p.Position)
		if err != nil {
			return CommandReply{}, err
		}
		r := ok("#%d %s is in", player.Number, player.Name)
		r.Player = &player
		return r, nil

	case CmdRecordAtBat:
		p, err := decodePayload[atBatPayload](cmd.Payload)
		if err != nil {
			return CommandReply{}, err
		}
		rec, err := e.RecordAtBat(p.Team, p.PlayerID, p.Result, p.Runs)
		if err != nil {
			return CommandReply{}, err
		}
		r := ok("Recorded %s", rec.Result.Text())
		r.AtBat = &rec
		return r, nil

	case CmdEditAtBat:
		p, err := decodePayload[atBatPayload](cmd.Payload)
		if err != nil {
			return CommandReply{}, err
		}
		rec, err := e.EditAtBat(p.AtBatID, p.Result, p.Runs)
		if err != nil {
			return CommandReply{}, err
		}
		r := ok("At-bat changed to %s", rec.Result.Text())
		r.AtBat = &rec
		return r, nil

	case CmdDeleteAtBat:
		p, err := decodePayload[atBatPayload](cmd.Payload)
		if err != nil {
			return CommandReply{}, err
		}
		if err := e.DeleteAtBat(p.AtBatID); err != nil {
			return CommandReply{}, err
		}
		return ok("At-bat deleted"), nil

	case CmdClearHistory:
		e.ClearHistory()
		return ok("History cleared"), nil

	case CmdAddOut:
		e.AddOut()
		return ok("Out recorded"), nil

	case CmdResetOuts:
		e.ResetOuts()
		return ok("Outs reset"), nil

	case CmdChangeInning:
		e.ChangeInning()
		return ok("Side retired"), nil

	case CmdToggleBase:
		p, err := decodePayload[baseTogglePayload](cmd.Payload)
		if err != nil {
			return CommandReply{}, err
		}
		if err := e.ToggleBase(p.Base); err != nil {
			return CommandReply{}, err
		}
		return ok("Base %d toggled", p.Base), nil

	case CmdSetInning:
		p, err := decodePayload[inningPayload](cmd.Payload)
		if err != nil {
			return CommandReply{}, err
		}
		if err := e.SetInning(p.Inning, p.IsTop); err != nil {
			return CommandReply{}, err
		}
		return ok("Inning set"), nil

	case CmdSetInningScore:
		p, err := decodePayload[inningScorePayload](cmd.Payload)
		if err != nil {
			return CommandReply{}, err
		}
		if err := e.SetInningScore(p.Team, p.Inning, p.Runs); err != nil {
			return CommandReply{}, err
		}
		return ok("Score updated"), nil

	case CmdSetTeamNames:
		p, err := decodePayload[teamNamesPayload](cmd.Payload)
		if err != nil {
			return CommandReply{}, err
		}
		e.SetTeamNames(p.Home, p.Away)
		return ok("Team names saved"), nil

	case CmdUpdateMetadata:
		p, err := decodePayload[ledger.Metadata](cmd.Payload)
		if err != nil {
			return CommandReply{}, err
		}
		if err := e.UpdateMetadata(p); err != nil {
			return CommandReply{}, err
		}
		return ok("Game info saved"), nil

	case CmdResetGame:
		e.Reset()
		if err := h.gs.DeleteGame(ledger.GameID); err != nil {
			log.Error("failed to delete stored game", "err", err)
			h.metrics.IncPersistFailures()
		}
		return ok("New game started"), nil

	default:
		return CommandReply{}, fmt.Errorf("%w: unknown command type: %s", ledger.ErrValidation, cmd.Type)
	}
}

func (h *Hub) broadcast(msg Message) {
	for client := range h.clients {
		if !client.sendJSON(msg) {
			h.dropClient(client)
		}
	}
	h.metrics.SetViewers(len(h.clients))
}

// dropClient forgets client and tells its write pump to hang up. Only the
// run goroutine calls it, so done is closed at most once.
func (h *Hub) dropClient(client *wsClient) {
	delete(h.clients, client)
	close(client.done)
}
