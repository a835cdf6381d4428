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

// Package ledger implements the game state of a single 7-inning youth
// baseball game: rosters, the at-bat ledger with its reversible stat
// accounting, the substitution log and the inning/outs state machine.
package ledger

import (
	"fmt"
	"time"
)

const (
	// GameID is the id of the single persisted game record.
	GameID = "current_game"

	// Innings is the fixed length of the score grid.
	Innings = 7

	// SchemaVersion is the version of the GameState wire layout.
	SchemaVersion = 1

	DefaultHomeTeamName = "Home Team"
	DefaultAwayTeamName = "Away Team"
)

// Team identifies one side of the game.
type Team string

const (
	Home Team = "home"
	Away Team = "away"
)

// Valid reports whether t is home or away.
func (t Team) Valid() bool {
	return t == Home || t == Away
}

// Other returns the opposing team.
func (t Team) Other() Team {
	if t == Home {
		return Away
	}
	return Home
}

// Half of an inning.
const (
	HalfTop    = "top"
	HalfBottom = "bottom"
)

// Game status values.
const (
	StatusOngoing  = "ongoing"
	StatusFinished = "finished"
)

// Game result values. An empty result means unset.
const (
	GameResultHomeWin = "home-win"
	GameResultAwayWin = "away-win"
	GameResultDraw    = "draw"
)

// Position is a fielding position. The zero value means unset.
type Position string

const (
	PositionNone    Position = ""
	PositionPitcher Position = "P"
	PositionCatcher Position = "C"
	PositionFirst   Position = "1B"
	PositionSecond  Position = "2B"
	PositionThird   Position = "3B"
	PositionShort   Position = "SS"
	PositionLeft    Position = "LF"
	PositionCenter  Position = "CF"
	PositionRight   Position = "RF"
	PositionDH      Position = "DH"
)

var positionNames = map[Position]string{
	PositionPitcher: "Pitcher",
	PositionCatcher: "Catcher",
	PositionFirst:   "First Base",
	PositionSecond:  "Second Base",
	PositionThird:   "Third Base",
	PositionShort:   "Shortstop",
	PositionLeft:    "Left Field",
	PositionCenter:  "Center Field",
	PositionRight:   "Right Field",
	PositionDH:      "Designated Hitter",
}

// Valid reports whether p is unset or one of the known positions.
func (p Position) Valid() bool {
	if p == PositionNone {
		return true
	}
	_, ok := positionNames[p]
	return ok
}

// FullName returns the long display name, or "Unspecified" when unset.
func (p Position) FullName() string {
	if n, ok := positionNames[p]; ok {
		return n
	}
	return "Unspecified"
}

// Stats are the aggregate batting counters of a player.
type Stats struct {
	AtBats     int `json:"atBats"`
	Hits       int `json:"hits"`
	Doubles    int `json:"doubles"`
	Triples    int `json:"triples"`
	HomeRuns   int `json:"homeRuns"`
	Walks      int `json:"walks"`
	Strikeouts int `json:"strikeouts"`
	RBIs       int `json:"rbis"`
}

// Average is hits per at-bat, 0 when the player has no at-bats.
func (s Stats) Average() float64 {
	if s.AtBats == 0 {
		return 0
	}
	return float64(s.Hits) / float64(s.AtBats)
}

// AverageString formats the batting average the way box scores do: ".333".
func (s Stats) AverageString() string {
	avg := fmt.Sprintf("%.3f", s.Average())
	if avg[0] == '0' {
		return avg[1:]
	}
	return avg
}

// Player is a roster entry.
type Player struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Number   int      `json:"number"`
	Position Position `json:"position"`
	Team     Team     `json:"team"`
	IsActive bool     `json:"isActive"`
	Stats    Stats    `json:"stats"`
}

// Label is the "number name" form used in logs and exports.
func (p Player) Label() string {
	return fmt.Sprintf("%d %s", p.Number, p.Name)
}

// AtBatRecord is one entry of the at-bat ledger.
type AtBatRecord struct {
	ID       string `json:"id"`
	PlayerID string `json:"playerId"`
	Team     Team   `json:"battingTeam"`
	Result   Result `json:"result"`
	Runs     int    `json:"runs"`
	Inning   int    `json:"inning"`
	IsTop    bool   `json:"isTop"`
}

// Half returns "top" or "bottom".
func (r AtBatRecord) Half() string {
	if r.IsTop {
		return HalfTop
	}
	return HalfBottom
}

// SubstitutionRecord is an append-only audit entry.
type SubstitutionRecord struct {
	Inning    int       `json:"inning"`
	Half      string    `json:"half"`
	Team      string    `json:"team"`
	OutPlayer string    `json:"outPlayer"`
	InPlayer  string    `json:"inPlayer"`
	Position  string    `json:"position"`
	Timestamp time.Time `json:"timestamp"`
}

// GameState is the whole game. It is persisted as a single snapshot.
type GameState struct {
	ID            string `json:"id"`
	SchemaVersion int    `json:"schemaVersion"`

	HomeTeamName string       `json:"homeTeamName"`
	AwayTeamName string       `json:"awayTeamName"`
	HomeScore    [Innings]int `json:"homeScore"`
	AwayScore    [Innings]int `json:"awayScore"`

	CurrentInning int     `json:"currentInning"`
	IsTop         bool    `json:"isTop"`
	Outs          int     `json:"outs"`
	Bases         [3]bool `json:"bases"`

	AtBatHistory        []AtBatRecord        `json:"atBatHistory"`
	SubstitutionHistory []SubstitutionRecord `json:"substitutionHistory"`

	Date     string `json:"date"`
	Location string `json:"location"`
	Status   string `json:"status"`
	Result   string `json:"result"`

	HomePlayers []Player `json:"homePlayers"`
	AwayPlayers []Player `json:"awayPlayers"`
}

// NewGameState returns the initial state: inning 1, top, no outs, bases empty.
func NewGameState() *GameState {
	g := &GameState{}
	g.Normalize()
	return g
}

// Normalize fills zero values left by older or partial snapshots.
func (g *GameState) Normalize() {
	if g.ID == "" {
		g.ID = GameID
	}
	if g.SchemaVersion == 0 {
		g.SchemaVersion = SchemaVersion
	}
	if g.HomeTeamName == "" {
		g.HomeTeamName = DefaultHomeTeamName
	}
	if g.AwayTeamName == "" {
		g.AwayTeamName = DefaultAwayTeamName
	}
	if g.CurrentInning < 1 || g.CurrentInning > Innings {
		g.CurrentInning = 1
		g.IsTop = true
	}
	if g.Status == "" {
		g.Status = StatusOngoing
	}
	if g.AtBatHistory == nil {
		g.AtBatHistory = make([]AtBatRecord, 0)
	}
	if g.SubstitutionHistory == nil {
		g.SubstitutionHistory = make([]SubstitutionRecord, 0)
	}
	if g.HomePlayers == nil {
		g.HomePlayers = make([]Player, 0)
	}
	if g.AwayPlayers == nil {
		g.AwayPlayers = make([]Player, 0)
	}
}

// Half returns the current half as "top" or "bottom".
func (g *GameState) Half() string {
	if g.IsTop {
		return HalfTop
	}
	return HalfBottom
}

// BattingTeam is away in the top half and home in the bottom half.
func (g *GameState) BattingTeam() Team {
	if g.IsTop {
		return Away
	}
	return Home
}

// TeamName returns the display name of t.
func (g *GameState) TeamName(t Team) string {
	if t == Home {
		return g.HomeTeamName
	}
	return g.AwayTeamName
}

// Score returns the per-inning runs of t.
func (g *GameState) Score(t Team) [Innings]int {
	if t == Home {
		return g.HomeScore
	}
	return g.AwayScore
}

// Total returns the sum of t's per-inning runs.
func (g *GameState) Total(t Team) int {
	var n int
	for _, r := range g.Score(t) {
		n += r
	}
	return n
}

// Players returns the roster of t.
func (g *GameState) Players(t Team) []Player {
	if t == Home {
		return g.HomePlayers
	}
	return g.AwayPlayers
}

// FindPlayer looks a player up in both rosters.
func (g *GameState) FindPlayer(id string) (Player, bool) {
	for _, p := range g.HomePlayers {
		if p.ID == id {
			return p, true
		}
	}
	for _, p := range g.AwayPlayers {
		if p.ID == id {
			return p, true
		}
	}
	return Player{}, false
}

// Clone returns a deep copy of g.
func (g *GameState) Clone() *GameState {
	c := *g
	c.AtBatHistory = append(make([]AtBatRecord, 0, len(g.AtBatHistory)), g.AtBatHistory...)
	c.SubstitutionHistory = append(make([]SubstitutionRecord, 0, len(g.SubstitutionHistory)), g.SubstitutionHistory...)
	c.HomePlayers = append(make([]Player, 0, len(g.HomePlayers)), g.HomePlayers...)
	c.AwayPlayers = append(make([]Player, 0, len(g.AwayPlayers)), g.AwayPlayers...)
	return &c
}
