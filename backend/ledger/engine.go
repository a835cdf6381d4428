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

package ledger

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// RosterMemory remembers player names per team name across games.
// Lookup returns an error wrapping ErrNotFound for unknown entries.
type RosterMemory interface {
	Upsert(teamName string, number int, name string) error
	Lookup(teamName string, number int) (string, error)
}

// Option configures an Engine.
type Option func(*Engine)

// WithIDGenerator replaces the default UUIDGenerator.
func WithIDGenerator(g IDGenerator) Option {
	return func(e *Engine) {
		e.ids = g
	}
}

// WithClock replaces time.Now for substitution timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// WithRosterMemory sets the store that AddPlayer writes through to.
func WithRosterMemory(m RosterMemory) Option {
	return func(e *Engine) {
		e.memory = m
	}
}

// Engine owns a GameState and applies every mutation to it. Each method
// either succeeds completely or returns an error and leaves the state
// untouched. An Engine is not safe for concurrent use.
type Engine struct {
	state  *GameState
	ids    IDGenerator
	now    func() time.Time
	memory RosterMemory
}

// New returns an engine for state, or for a fresh game if state is nil.
func New(state *GameState, opts ...Option) *Engine {
	if state == nil {
		state = NewGameState()
	}
	state.Normalize()
	e := &Engine{
		state: state,
		ids:   UUIDGenerator{},
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Snapshot returns a deep copy of the current state.
func (e *Engine) Snapshot() *GameState {
	return e.state.Clone()
}

func (e *Engine) roster(t Team) *[]Player {
	if t == Home {
		return &e.state.HomePlayers
	}
	return &e.state.AwayPlayers
}

func (e *Engine) indexOf(t Team, id string) (int, error) {
	if !t.Valid() {
		return -1, fmt.Errorf("%w: unknown team %q", ErrValidation, t)
	}
	for i, p := range *e.roster(t) {
		if p.ID == id {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: player %s on %s team", ErrNotFound, id, t)
}

// player returns a pointer into whichever roster holds id.
func (e *Engine) player(id string) *Player {
	for _, t := range []Team{Home, Away} {
		r := *e.roster(t)
		for i := range r {
			if r[i].ID == id {
				return &r[i]
			}
		}
	}
	return nil
}

func validatePlayer(name string, number int, pos Position) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%w: player name is required", ErrValidation)
	}
	if number < 0 || number > 99 {
		return "", fmt.Errorf("%w: number %d is outside 0-99", ErrValidation, number)
	}
	if !pos.Valid() {
		return "", fmt.Errorf("%w: unknown position %q", ErrValidation, pos)
	}
	return name, nil
}

// checkUnique scans the active players of t, skipping exclude.
func (e *Engine) checkUnique(t Team, number int, pos Position, exclude string) error {
	for _, p := range *e.roster(t) {
		if !p.IsActive || p.ID == exclude {
			continue
		}
		if p.Number == number {
			return fmt.Errorf("%w: number %d is already in use by %s", ErrConflict, number, p.Name)
		}
		if pos != PositionNone && p.Position == pos {
			return fmt.Errorf("%w: position %s is already taken by %s", ErrConflict, pos.FullName(), p.Name)
		}
	}
	return nil
}

// AddPlayer appends an active player with zero stats to t's roster and
// records the name in roster memory.
func (e *Engine) AddPlayer(t Team, name string, number int, pos Position) (Player, error) {
	if !t.Valid() {
		return Player{}, fmt.Errorf("%w: unknown team %q", ErrValidation, t)
	}
	name, err := validatePlayer(name, number, pos)
	if err != nil {
		return Player{}, err
	}
	if err := e.checkUnique(t, number, pos, ""); err != nil {
		return Player{}, err
	}
	p := Player{
		ID:       e.ids.NewID(),
		Name:     name,
		Number:   number,
		Position: pos,
		Team:     t,
		IsActive: true,
	}
	r := e.roster(t)
	*r = append(*r, p)

	if e.memory != nil {
		teamName := e.state.TeamName(t)
		if err := e.memory.Upsert(teamName, number, name); err != nil {
			log.Warn("roster memory upsert failed", "team", teamName, "number", number, "err", err)
		}
	}
	return p, nil
}

// AddPlayerFromMemory adds the remembered player with the given number
// to t, without a position.
func (e *Engine) AddPlayerFromMemory(t Team, number int) (Player, error) {
	if !t.Valid() {
		return Player{}, fmt.Errorf("%w: unknown team %q", ErrValidation, t)
	}
	if e.memory == nil {
		return Player{}, fmt.Errorf("%w: roster memory is not configured", ErrNotFound)
	}
	name, err := e.memory.Lookup(e.state.TeamName(t), number)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Player{}, err
		}
		return Player{}, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return e.AddPlayer(t, name, number, PositionNone)
}

// EditPlayer changes name, number and position in place. Ledger records
// refer to players by id and are not touched.
func (e *Engine) EditPlayer(t Team, id, name string, number int, pos Position) (Player, error) {
	idx, err := e.indexOf(t, id)
	if err != nil {
		return Player{}, err
	}
	name, err = validatePlayer(name, number, pos)
	if err != nil {
		return Player{}, err
	}
	if err := e.checkUnique(t, number, pos, id); err != nil {
		return Player{}, err
	}
	p := &(*e.roster(t))[idx]
	p.Name = name
	p.Number = number
	p.Position = pos
	return *p, nil
}

// DeletePlayer removes the player and every ledger record that refers to
// it. The score grid keeps the runs those records posted.
func (e *Engine) DeletePlayer(t Team, id string) error {
	idx, err := e.indexOf(t, id)
	if err != nil {
		return err
	}
	r := e.roster(t)
	*r = slices.Delete(*r, idx, idx+1)
	e.state.AtBatHistory = slices.DeleteFunc(e.state.AtBatHistory, func(rec AtBatRecord) bool {
		return rec.PlayerID == id
	})
	return nil
}

// SubstitutePlayer retires outID and brings in a new active player. The
// retired player keeps its stats and ledger records.
func (e *Engine) SubstitutePlayer(t Team, outID, name string, number int, pos Position) (Player, error) {
	idx, err := e.indexOf(t, outID)
	if err != nil {
		return Player{}, err
	}
	r := e.roster(t)
	out := (*r)[idx]
	if !out.IsActive {
		return Player{}, fmt.Errorf("%w: %s has already been substituted", ErrValidation, out.Name)
	}
	name, err = validatePlayer(name, number, pos)
	if err != nil {
		return Player{}, err
	}
	if err := e.checkUnique(t, number, pos, outID); err != nil {
		return Player{}, err
	}

	(*r)[idx].IsActive = false
	in := Player{
		ID:       e.ids.NewID(),
		Name:     name,
		Number:   number,
		Position: pos,
		Team:     t,
		IsActive: true,
	}
	*r = append(*r, in)

	e.state.SubstitutionHistory = append(e.state.SubstitutionHistory, SubstitutionRecord{
		Inning:    e.state.CurrentInning,
		Half:      e.state.Half(),
		Team:      e.state.TeamName(t),
		OutPlayer: out.Label(),
		InPlayer:  in.Label(),
		Position:  string(pos),
		Timestamp: e.now(),
	})
	return in, nil
}

// ActivePlayers returns the batter-select list of t, ordered by number.
func (e *Engine) ActivePlayers(t Team) []Player {
	var out []Player
	for _, p := range *e.roster(t) {
		if p.IsActive {
			out = append(out, p)
		}
	}
	slices.SortFunc(out, func(a, b Player) int {
		return cmp.Compare(a.Number, b.Number)
	})
	return out
}

func validateOutcome(r Result, runs int) error {
	if r == "" {
		return fmt.Errorf("%w: result is required", ErrValidation)
	}
	if !r.Valid() {
		return fmt.Errorf("%w: unknown result %q", ErrValidation, r)
	}
	if runs < 0 {
		return fmt.Errorf("%w: runs must not be negative", ErrValidation)
	}
	return nil
}

// addRuns adjusts one score cell, never going below zero.
func (e *Engine) addRuns(t Team, inning, delta int) {
	if inning < 1 || inning > Innings || delta == 0 {
		return
	}
	grid := &e.state.AwayScore
	if t == Home {
		grid = &e.state.HomeScore
	}
	grid[inning-1] = max(grid[inning-1]+delta, 0)
}

// apply adds (mult=+1) or removes (mult=-1) the effect of rec on its
// player's stats and on the score cell it was posted to.
func (e *Engine) apply(rec AtBatRecord, mult int) {
	team := rec.Team
	if p := e.player(rec.PlayerID); p != nil {
		p.Stats = applyEffect(p.Stats, rec.Result, rec.Runs, mult)
		if !team.Valid() {
			team = p.Team
		}
	}
	if team.Valid() {
		e.addRuns(team, rec.Inning, mult*rec.Runs)
	}
}

// RecordAtBat appends an at-bat for playerID batting for t in the current
// half-inning. Out-causing results advance the outs count.
func (e *Engine) RecordAtBat(t Team, playerID string, r Result, runs int) (AtBatRecord, error) {
	if !t.Valid() {
		return AtBatRecord{}, fmt.Errorf("%w: unknown team %q", ErrValidation, t)
	}
	if playerID == "" {
		return AtBatRecord{}, fmt.Errorf("%w: batter is required", ErrValidation)
	}
	if err := validateOutcome(r, runs); err != nil {
		return AtBatRecord{}, err
	}
	p := e.player(playerID)
	if p == nil {
		return AtBatRecord{}, fmt.Errorf("%w: unknown batter %s", ErrValidation, playerID)
	}
	if p.Team != t {
		return AtBatRecord{}, fmt.Errorf("%w: %s does not play for the %s team", ErrValidation, p.Name, t)
	}
	if !p.IsActive {
		return AtBatRecord{}, fmt.Errorf("%w: %s has been substituted out", ErrValidation, p.Name)
	}

	rec := AtBatRecord{
		ID:       e.ids.NewID(),
		PlayerID: playerID,
		Team:     t,
		Result:   r,
		Runs:     runs,
		Inning:   e.state.CurrentInning,
		IsTop:    e.state.IsTop,
	}
	e.apply(rec, 1)
	e.state.AtBatHistory = append(e.state.AtBatHistory, rec)

	if r.IsOut() {
		e.AddOut()
	}
	return rec, nil
}

func (e *Engine) recordIndex(id string) (int, error) {
	i := slices.IndexFunc(e.state.AtBatHistory, func(rec AtBatRecord) bool {
		return rec.ID == id
	})
	if i < 0 {
		return -1, fmt.Errorf("%w: at-bat %s", ErrNotFound, id)
	}
	return i, nil
}

// EditAtBat replaces the result and runs of a recorded at-bat. The old
// effect is reversed and the new one applied at the record's own inning.
// The outs count and inning are not changed.
func (e *Engine) EditAtBat(id string, r Result, runs int) (AtBatRecord, error) {
	i, err := e.recordIndex(id)
	if err != nil {
		return AtBatRecord{}, err
	}
	if err := validateOutcome(r, runs); err != nil {
		return AtBatRecord{}, err
	}
	rec := &e.state.AtBatHistory[i]
	e.apply(*rec, -1)
	rec.Result = r
	rec.Runs = runs
	e.apply(*rec, 1)
	return *rec, nil
}

// DeleteAtBat reverses the effect of a record and removes it. Outs and
// inning advanced by the record stay where they are.
func (e *Engine) DeleteAtBat(id string) error {
	i, err := e.recordIndex(id)
	if err != nil {
		return err
	}
	e.apply(e.state.AtBatHistory[i], -1)
	e.state.AtBatHistory = slices.Delete(e.state.AtBatHistory, i, i+1)
	return nil
}

// ClearHistory empties the ledger and zeroes every player's stats. Runs
// already on the scoreboard stay.
func (e *Engine) ClearHistory() {
	e.state.AtBatHistory = make([]AtBatRecord, 0)
	for _, t := range []Team{Home, Away} {
		r := *e.roster(t)
		for i := range r {
			r[i].Stats = Stats{}
		}
	}
}

// AddOut records one out. The third out ends the half-inning.
func (e *Engine) AddOut() {
	if e.state.Outs < 2 {
		e.state.Outs++
		return
	}
	e.ChangeInning()
}

// ResetOuts sets outs to zero and changes nothing else.
func (e *Engine) ResetOuts() {
	e.state.Outs = 0
}

// ChangeInning ends the current half-inning: outs and bases are cleared
// and the half flips. The inning advances after the bottom half, up to 7.
func (e *Engine) ChangeInning() {
	if e.state.IsTop {
		e.state.IsTop = false
	} else {
		e.state.IsTop = true
		if e.state.CurrentInning < Innings {
			e.state.CurrentInning++
		}
	}
	e.state.Outs = 0
	e.state.Bases = [3]bool{}
}

// ToggleBase flips occupancy of base 1, 2 or 3.
func (e *Engine) ToggleBase(base int) error {
	if base < 1 || base > 3 {
		return fmt.Errorf("%w: base %d", ErrValidation, base)
	}
	e.state.Bases[base-1] = !e.state.Bases[base-1]
	return nil
}

// SetInning moves the game clock by hand. Outs and bases are kept.
func (e *Engine) SetInning(inning int, isTop bool) error {
	if inning < 1 || inning > Innings {
		return fmt.Errorf("%w: inning %d is outside 1-%d", ErrValidation, inning, Innings)
	}
	e.state.CurrentInning = inning
	e.state.IsTop = isTop
	return nil
}

// SetInningScore overwrites one cell of the score grid.
func (e *Engine) SetInningScore(t Team, inning, runs int) error {
	if !t.Valid() {
		return fmt.Errorf("%w: unknown team %q", ErrValidation, t)
	}
	if inning < 1 || inning > Innings {
		return fmt.Errorf("%w: inning %d is outside 1-%d", ErrValidation, inning, Innings)
	}
	if runs < 0 {
		return fmt.Errorf("%w: runs must not be negative", ErrValidation)
	}
	if t == Home {
		e.state.HomeScore[inning-1] = runs
	} else {
		e.state.AwayScore[inning-1] = runs
	}
	return nil
}

// SetTeamNames renames both teams. Blank names fall back to the defaults.
func (e *Engine) SetTeamNames(home, away string) {
	home = strings.TrimSpace(home)
	away = strings.TrimSpace(away)
	if home == "" {
		home = DefaultHomeTeamName
	}
	if away == "" {
		away = DefaultAwayTeamName
	}
	e.state.HomeTeamName = home
	e.state.AwayTeamName = away
}

// Metadata is the descriptive part of a game.
type Metadata struct {
	Date     string `json:"date"`
	Location string `json:"location"`
	Status   string `json:"status"`
	Result   string `json:"result"`
}

// UpdateMetadata replaces date, location, status and result.
func (e *Engine) UpdateMetadata(m Metadata) error {
	switch m.Status {
	case "":
		m.Status = StatusOngoing
	case StatusOngoing, StatusFinished:
	default:
		return fmt.Errorf("%w: unknown status %q", ErrValidation, m.Status)
	}
	switch m.Result {
	case "", GameResultHomeWin, GameResultAwayWin, GameResultDraw:
	default:
		return fmt.Errorf("%w: unknown result %q", ErrValidation, m.Result)
	}
	e.state.Date = strings.TrimSpace(m.Date)
	e.state.Location = strings.TrimSpace(m.Location)
	e.state.Status = m.Status
	e.state.Result = m.Result
	return nil
}

// Reset discards the game and starts a fresh one.
func (e *Engine) Reset() {
	*e.state = *NewGameState()
}

// Verify checks that every player's stats equal a replay of the ledger.
func (e *Engine) Verify() error {
	want := ReplayStats(e.state.AtBatHistory)
	for _, t := range []Team{Home, Away} {
		for _, p := range *e.roster(t) {
			if got := p.Stats; got != want[p.ID] {
				return fmt.Errorf("player %s (%s): stats %+v, ledger replay %+v", p.ID, p.Label(), got, want[p.ID])
			}
		}
	}
	return nil
}
