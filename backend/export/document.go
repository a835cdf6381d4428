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

// Package export renders a game snapshot as a box score: plain text,
// HTML, JSON, and PDF or PNG through headless Chrome. Exports are
// projections of a snapshot and never change it.
package export

import (
	"fmt"
	"strings"

	"github.com/ttbt-io/scorebook/backend/ledger"
)

// TeamLine is one row of the line score.
type TeamLine struct {
	Name    string
	Innings [ledger.Innings]int
	Total   int
}

// BattingLine is one row of a team's batting table.
type BattingLine struct {
	Number   int
	Name     string
	Position string
	Active   bool
	Stats    ledger.Stats
	Average  string
}

// Play is one ledger entry as printed.
type Play struct {
	Half     string // "Top" or "Bottom"
	Inning   int
	TeamName string
	Number   int
	Name     string
	Result   string
	Runs     int
}

// Substitution is one substitution log entry as printed.
type Substitution struct {
	Half     string
	Inning   int
	TeamName string
	Out      string
	In       string
	Position string
}

// Document is everything an export shows.
type Document struct {
	Title     string
	Date      string
	Location  string
	Status    string
	Situation string

	Away TeamLine
	Home TeamLine

	AwayBatting []BattingLine
	HomeBatting []BattingLine

	Plays         []Play
	Substitutions []Substitution
}

// Build projects a snapshot into a Document.
func Build(g *ledger.GameState) Document {
	d := Document{
		Title:     fmt.Sprintf("%s at %s", g.AwayTeamName, g.HomeTeamName),
		Date:      g.Date,
		Location:  g.Location,
		Status:    statusText(g),
		Situation: situation(g),
		Away:      TeamLine{Name: g.AwayTeamName, Innings: g.AwayScore, Total: g.Total(ledger.Away)},
		Home:      TeamLine{Name: g.HomeTeamName, Innings: g.HomeScore, Total: g.Total(ledger.Home)},
	}
	d.AwayBatting = batting(g.AwayPlayers)
	d.HomeBatting = batting(g.HomePlayers)

	for _, e := range g.Ledger() {
		d.Plays = append(d.Plays, Play{
			Half:     halfTitle(e.Half()),
			Inning:   e.Inning,
			TeamName: e.TeamName,
			Number:   e.PlayerNumber,
			Name:     e.PlayerName,
			Result:   e.ResultText,
			Runs:     e.Runs,
		})
	}
	for _, s := range g.SubstitutionHistory {
		d.Substitutions = append(d.Substitutions, Substitution{
			Half:     halfTitle(s.Half),
			Inning:   s.Inning,
			TeamName: s.Team,
			Out:      s.OutPlayer,
			In:       s.InPlayer,
			Position: s.Position,
		})
	}
	return d
}

func batting(players []ledger.Player) []BattingLine {
	out := make([]BattingLine, 0, len(players))
	for _, p := range players {
		out = append(out, BattingLine{
			Number:   p.Number,
			Name:     p.Name,
			Position: string(p.Position),
			Active:   p.IsActive,
			Stats:    p.Stats,
			Average:  p.Stats.AverageString(),
		})
	}
	return out
}

func halfTitle(h string) string {
	if h == ledger.HalfTop {
		return "Top"
	}
	return "Bottom"
}

func statusText(g *ledger.GameState) string {
	if g.Status != ledger.StatusFinished {
		return "In progress"
	}
	switch g.Result {
	case ledger.GameResultHomeWin:
		return fmt.Sprintf("Final, %s win", g.HomeTeamName)
	case ledger.GameResultAwayWin:
		return fmt.Sprintf("Final, %s win", g.AwayTeamName)
	case ledger.GameResultDraw:
		return "Final, draw"
	}
	return "Final"
}

var baseNames = [3]string{"1st", "2nd", "3rd"}

func situation(g *ledger.GameState) string {
	outs := "outs"
	if g.Outs == 1 {
		outs = "out"
	}
	var runners []string
	for i, on := range g.Bases {
		if on {
			runners = append(runners, baseNames[i])
		}
	}
	bases := "bases empty"
	if len(runners) > 0 {
		bases = "runners on " + strings.Join(runners, ", ")
	}
	return fmt.Sprintf("%s %d, %d %s, %s", halfTitle(g.Half()), g.CurrentInning, g.Outs, outs, bases)
}
