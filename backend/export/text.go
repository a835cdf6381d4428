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
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/ttbt-io/scorebook/backend/ledger"
)

// WriteText writes d as a fixed-width plain text box score.
func WriteText(w io.Writer, d Document) error {
	var b strings.Builder

	fmt.Fprintln(&b, d.Title)
	var meta []string
	for _, s := range []string{d.Date, d.Location, d.Status} {
		if s != "" {
			meta = append(meta, s)
		}
	}
	fmt.Fprintln(&b, strings.Join(meta, " | "))
	fmt.Fprintln(&b)

	fmt.Fprintf(&b, "%-16s", "Team")
	for i := 1; i <= ledger.Innings; i++ {
		fmt.Fprintf(&b, "%3d", i)
	}
	fmt.Fprintf(&b, "%4s\n", "R")
	for _, t := range []TeamLine{d.Away, d.Home} {
		fmt.Fprintf(&b, "%-16.16s", t.Name)
		for _, r := range t.Innings {
			fmt.Fprintf(&b, "%3d", r)
		}
		fmt.Fprintf(&b, "%4d\n", t.Total)
	}
	fmt.Fprintln(&b)
	fmt.Fprintln(&b, d.Situation)

	writeBatting(&b, d.Away.Name, d.AwayBatting)
	writeBatting(&b, d.Home.Name, d.HomeBatting)

	fmt.Fprintln(&b)
	fmt.Fprintln(&b, "Plays")
	if len(d.Plays) == 0 {
		fmt.Fprintln(&b, "  (none)")
	}
	for i, p := range d.Plays {
		fmt.Fprintf(&b, "%3d. %s %d  %s  #%d %s: %s%s\n", i+1, p.Half, p.Inning, p.TeamName, p.Number, p.Name, p.Result, runsText(p.Runs))
	}

	fmt.Fprintln(&b)
	fmt.Fprintln(&b, "Substitutions")
	if len(d.Substitutions) == 0 {
		fmt.Fprintln(&b, "  (none)")
	}
	for _, s := range d.Substitutions {
		pos := ""
		if s.Position != "" {
			pos = " (" + s.Position + ")"
		}
		fmt.Fprintf(&b, "  %s %d  %s: %s -> %s%s\n", s.Half, s.Inning, s.TeamName, s.Out, s.In, pos)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func writeBatting(b *strings.Builder, team string, lines []BattingLine) {
	fmt.Fprintln(b)
	fmt.Fprintf(b, "%s batting\n", team)
	fmt.Fprintf(b, "%3s %-20s %-3s %3s %3s %3s %3s %3s %3s %3s %3s %5s\n",
		"#", "Player", "Pos", "AB", "H", "2B", "3B", "HR", "BB", "SO", "RBI", "AVG")
	if len(lines) == 0 {
		fmt.Fprintln(b, "  (no players)")
		return
	}
	for _, l := range lines {
		name := l.Name
		if !l.Active {
			name += " (out)"
		}
		s := l.Stats
		fmt.Fprintf(b, "%3d %-20.20s %-3s %3d %3d %3d %3d %3d %3d %3d %3d %5s\n",
			l.Number, name, l.Position, s.AtBats, s.Hits, s.Doubles, s.Triples, s.HomeRuns, s.Walks, s.Strikeouts, s.RBIs, l.Average)
	}
}

func runsText(n int) string {
	switch n {
	case 0:
		return ""
	case 1:
		return ", 1 run"
	}
	return fmt.Sprintf(", %d runs", n)
}

// WriteJSON writes the raw snapshot, indented.
func WriteJSON(w io.Writer, g *ledger.GameState) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(g)
}
