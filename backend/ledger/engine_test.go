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
	"errors"
	"fmt"
	"math/rand/v2"
	"reflect"
	"testing"
	"time"
)

var testTime = time.Date(2026, 5, 10, 10, 30, 0, 0, time.UTC)

func newTestEngine(opts ...Option) *Engine {
	opts = append([]Option{
		WithIDGenerator(NewSequenceGenerator("id")),
		WithClock(func() time.Time { return testTime }),
	}, opts...)
	return New(nil, opts...)
}

func mustAdd(t *testing.T, e *Engine, team Team, name string, number int, pos Position) Player {
	t.Helper()
	p, err := e.AddPlayer(team, name, number, pos)
	if err != nil {
		t.Fatalf("AddPlayer(%s, %q, %d): %v", team, name, number, err)
	}
	return p
}

func mustRecord(t *testing.T, e *Engine, team Team, id string, r Result, runs int) AtBatRecord {
	t.Helper()
	rec, err := e.RecordAtBat(team, id, r, runs)
	if err != nil {
		t.Fatalf("RecordAtBat(%s, %s, %s, %d): %v", team, id, r, runs, err)
	}
	return rec
}

func statsOf(t *testing.T, e *Engine, id string) Stats {
	t.Helper()
	p, ok := e.Snapshot().FindPlayer(id)
	if !ok {
		t.Fatalf("player %s not found", id)
	}
	return p.Stats
}

func TestInitialState(t *testing.T) {
	g := newTestEngine().Snapshot()
	if g.ID != GameID || g.CurrentInning != 1 || !g.IsTop || g.Outs != 0 || g.Bases != [3]bool{} {
		t.Errorf("unexpected initial state: %+v", g)
	}
	if g.HomeTeamName != DefaultHomeTeamName || g.AwayTeamName != DefaultAwayTeamName {
		t.Errorf("team names = %q/%q", g.HomeTeamName, g.AwayTeamName)
	}
	if g.Status != StatusOngoing {
		t.Errorf("status = %q", g.Status)
	}
	if g.BattingTeam() != Away {
		t.Errorf("batting team = %s, want away", g.BattingTeam())
	}
}

func TestBasicAtBat(t *testing.T) {
	e := newTestEngine()
	tanaka := mustAdd(t, e, Home, "Tanaka", 4, PositionShort)
	mustRecord(t, e, Home, tanaka.ID, ResultDouble, 1)

	want := Stats{AtBats: 1, Hits: 1, Doubles: 1, RBIs: 1}
	if got := statsOf(t, e, tanaka.ID); got != want {
		t.Errorf("stats = %+v, want %+v", got, want)
	}
	g := e.Snapshot()
	if g.HomeScore[g.CurrentInning-1] != 1 {
		t.Errorf("home score = %v", g.HomeScore)
	}
	if g.Total(Home) != 1 || g.Total(Away) != 0 {
		t.Errorf("totals = %d-%d", g.Total(Home), g.Total(Away))
	}
	if len(g.AtBatHistory) != 1 || g.AtBatHistory[0].Inning != 1 || !g.AtBatHistory[0].IsTop {
		t.Errorf("history = %+v", g.AtBatHistory)
	}
}

func TestStrikeoutAdvancesOuts(t *testing.T) {
	e := newTestEngine()
	x := mustAdd(t, e, Away, "Ito", 7, PositionNone)
	e.AddOut()
	e.AddOut()
	if err := e.ToggleBase(2); err != nil {
		t.Fatalf("ToggleBase: %v", err)
	}
	mustRecord(t, e, Away, x.ID, ResultStrikeout, 0)

	g := e.Snapshot()
	if g.Outs != 0 || g.IsTop || g.CurrentInning != 1 || g.Bases != [3]bool{} {
		t.Errorf("state after third out: inning=%d top=%v outs=%d bases=%v", g.CurrentInning, g.IsTop, g.Outs, g.Bases)
	}
	if got := statsOf(t, e, x.ID).Strikeouts; got != 1 {
		t.Errorf("strikeouts = %d, want 1", got)
	}
}

func TestEditAtBat(t *testing.T) {
	e := newTestEngine()
	a := mustAdd(t, e, Away, "Sato", 1, PositionPitcher)
	if err := e.SetInning(3, true); err != nil {
		t.Fatal(err)
	}
	rec := mustRecord(t, e, Away, a.ID, ResultSingle, 0)
	before := e.Snapshot().AwayScore[2]

	edited, err := e.EditAtBat(rec.ID, ResultHomerun, 2)
	if err != nil {
		t.Fatalf("EditAtBat: %v", err)
	}
	if edited.Inning != 3 || edited.Result != ResultHomerun || edited.Runs != 2 {
		t.Errorf("edited = %+v", edited)
	}
	want := Stats{AtBats: 1, Hits: 1, HomeRuns: 1, RBIs: 2}
	if got := statsOf(t, e, a.ID); got != want {
		t.Errorf("stats = %+v, want %+v", got, want)
	}
	if got := e.Snapshot().AwayScore[2]; got != before+2 {
		t.Errorf("away score inning 3 = %d, want %d", got, before+2)
	}
}

func TestEditAtBatKeepsOriginalInning(t *testing.T) {
	e := newTestEngine()
	a := mustAdd(t, e, Home, "Kato", 9, PositionNone)
	if err := e.SetInning(2, false); err != nil {
		t.Fatal(err)
	}
	rec := mustRecord(t, e, Home, a.ID, ResultWalk, 1)
	if err := e.SetInning(5, false); err != nil {
		t.Fatal(err)
	}
	if _, err := e.EditAtBat(rec.ID, ResultTriple, 3); err != nil {
		t.Fatal(err)
	}
	g := e.Snapshot()
	if g.HomeScore[1] != 3 || g.HomeScore[4] != 0 {
		t.Errorf("home score = %v", g.HomeScore)
	}
	if g.Outs != 0 {
		t.Errorf("outs = %d", g.Outs)
	}
}

func TestDeleteAtBat(t *testing.T) {
	e := newTestEngine()
	a := mustAdd(t, e, Away, "Mori", 3, PositionNone)
	mustRecord(t, e, Away, a.ID, ResultSingle, 1)
	rec := mustRecord(t, e, Away, a.ID, ResultFlyout, 1)

	if err := e.DeleteAtBat(rec.ID); err != nil {
		t.Fatalf("DeleteAtBat: %v", err)
	}
	g := e.Snapshot()
	if len(g.AtBatHistory) != 1 {
		t.Fatalf("history len = %d", len(g.AtBatHistory))
	}
	if want := (Stats{AtBats: 1, Hits: 1, RBIs: 1}); statsOf(t, e, a.ID) != want {
		t.Errorf("stats = %+v, want %+v", statsOf(t, e, a.ID), want)
	}
	if g.AwayScore[0] != 1 {
		t.Errorf("away score = %v", g.AwayScore)
	}
	// The out recorded by the flyout stays.
	if g.Outs != 1 {
		t.Errorf("outs = %d, want 1", g.Outs)
	}
	if err := e.DeleteAtBat(rec.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete: %v, want ErrNotFound", err)
	}
}

func TestDeleteAtBatDoesNotRewindInning(t *testing.T) {
	e := newTestEngine()
	a := mustAdd(t, e, Away, "Mori", 3, PositionNone)
	e.AddOut()
	e.AddOut()
	rec := mustRecord(t, e, Away, a.ID, ResultGroundout, 0)
	if err := e.DeleteAtBat(rec.ID); err != nil {
		t.Fatal(err)
	}
	g := e.Snapshot()
	if g.IsTop || g.Outs != 0 {
		t.Errorf("top=%v outs=%d, want bottom with 0 outs", g.IsTop, g.Outs)
	}
}

func TestSubstitutionPreservesHistory(t *testing.T) {
	e := newTestEngine()
	b := mustAdd(t, e, Home, "Suzuki", 10, PositionCenter)
	mustAdd(t, e, Home, "Abe", 2, PositionCatcher)
	mustRecord(t, e, Home, b.ID, ResultTriple, 2)
	if err := e.SetInning(4, false); err != nil {
		t.Fatal(err)
	}

	in, err := e.SubstitutePlayer(Home, b.ID, "Ono", 11, PositionCenter)
	if err != nil {
		t.Fatalf("SubstitutePlayer: %v", err)
	}
	g := e.Snapshot()
	out, _ := g.FindPlayer(b.ID)
	if out.IsActive {
		t.Error("outgoing player is still active")
	}
	if want := (Stats{AtBats: 1, Hits: 1, Triples: 1, RBIs: 2}); out.Stats != want {
		t.Errorf("outgoing stats = %+v, want %+v", out.Stats, want)
	}
	if len(g.AtBatHistory) != 1 || g.AtBatHistory[0].PlayerID != b.ID {
		t.Errorf("history = %+v", g.AtBatHistory)
	}
	if len(g.HomePlayers) != 3 {
		t.Errorf("roster len = %d, want 3", len(g.HomePlayers))
	}
	for _, p := range e.ActivePlayers(Home) {
		if p.ID == b.ID {
			t.Error("substituted player is in the batter list")
		}
	}
	if got := e.ActivePlayers(Home); len(got) != 2 || got[0].Number != 2 || got[1].ID != in.ID {
		t.Errorf("active players = %+v", got)
	}

	want := SubstitutionRecord{
		Inning:    4,
		Half:      HalfBottom,
		Team:      DefaultHomeTeamName,
		OutPlayer: "10 Suzuki",
		InPlayer:  "11 Ono",
		Position:  "CF",
		Timestamp: testTime,
	}
	if len(g.SubstitutionHistory) != 1 || g.SubstitutionHistory[0] != want {
		t.Errorf("substitutions = %+v, want %+v", g.SubstitutionHistory, want)
	}

	if _, err := e.RecordAtBat(Home, b.ID, ResultSingle, 0); !errors.Is(err, ErrValidation) {
		t.Errorf("at-bat for substituted player: %v, want ErrValidation", err)
	}
	if _, err := e.SubstitutePlayer(Home, b.ID, "Ueda", 12, PositionNone); !errors.Is(err, ErrValidation) {
		t.Errorf("substituting an inactive player: %v, want ErrValidation", err)
	}
}

func TestSubstitutionMayReuseOutgoingNumber(t *testing.T) {
	e := newTestEngine()
	b := mustAdd(t, e, Away, "Suzuki", 10, PositionLeft)
	if _, err := e.SubstitutePlayer(Away, b.ID, "Ono", 10, PositionLeft); err != nil {
		t.Fatalf("SubstitutePlayer: %v", err)
	}
	if _, err := e.AddPlayer(Away, "Goto", 10, PositionNone); !errors.Is(err, ErrConflict) {
		t.Errorf("AddPlayer with the substitute's number: %v, want ErrConflict", err)
	}
}

func TestUniqueness(t *testing.T) {
	e := newTestEngine()
	a := mustAdd(t, e, Home, "Tanaka", 4, PositionShort)
	b := mustAdd(t, e, Home, "Abe", 5, PositionNone)
	mustAdd(t, e, Away, "Tanaka", 4, PositionShort)

	tests := []struct {
		name string
		fn   func() error
		want error
	}{
		{"duplicate number", func() error { _, err := e.AddPlayer(Home, "X", 4, PositionNone); return err }, ErrConflict},
		{"duplicate position", func() error { _, err := e.AddPlayer(Home, "X", 6, PositionShort); return err }, ErrConflict},
		{"edit into number", func() error { _, err := e.EditPlayer(Home, b.ID, "Abe", 4, PositionNone); return err }, ErrConflict},
		{"edit into position", func() error { _, err := e.EditPlayer(Home, b.ID, "Abe", 5, PositionShort); return err }, ErrConflict},
		{"edit self", func() error { _, err := e.EditPlayer(Home, a.ID, "Tanaka K.", 4, PositionShort); return err }, nil},
		{"empty name", func() error { _, err := e.AddPlayer(Home, "  ", 8, PositionNone); return err }, ErrValidation},
		{"number too big", func() error { _, err := e.AddPlayer(Home, "X", 100, PositionNone); return err }, ErrValidation},
		{"negative number", func() error { _, err := e.AddPlayer(Home, "X", -1, PositionNone); return err }, ErrValidation},
		{"bad position", func() error { _, err := e.AddPlayer(Home, "X", 8, "XX"); return err }, ErrValidation},
		{"bad team", func() error { _, err := e.AddPlayer("visitors", "X", 8, PositionNone); return err }, ErrValidation},
		{"edit unknown", func() error { _, err := e.EditPlayer(Home, "nope", "X", 8, PositionNone); return err }, ErrNotFound},
		{"edit wrong team", func() error { _, err := e.EditPlayer(Away, a.ID, "X", 8, PositionNone); return err }, ErrNotFound},
		{"delete unknown", func() error { return e.DeletePlayer(Home, "nope") }, ErrNotFound},
		{"substitute into number", func() error { _, err := e.SubstitutePlayer(Home, a.ID, "X", 5, PositionNone); return err }, ErrConflict},
		{"substitute unknown", func() error { _, err := e.SubstitutePlayer(Home, "nope", "X", 9, PositionNone); return err }, ErrNotFound},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			before := e.Snapshot()
			err := tc.fn()
			if tc.want == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
			if after := e.Snapshot(); !reflect.DeepEqual(before, after) {
				t.Errorf("state changed on error")
			}
		})
	}
	assertUnique(t, e.Snapshot())
}

func assertUnique(t *testing.T, g *GameState) {
	t.Helper()
	for _, team := range []Team{Home, Away} {
		numbers := map[int]string{}
		positions := map[Position]string{}
		for _, p := range g.Players(team) {
			if !p.IsActive {
				continue
			}
			if other, ok := numbers[p.Number]; ok {
				t.Errorf("%s: number %d shared by %s and %s", team, p.Number, other, p.ID)
			}
			numbers[p.Number] = p.ID
			if p.Position == PositionNone {
				continue
			}
			if other, ok := positions[p.Position]; ok {
				t.Errorf("%s: position %s shared by %s and %s", team, p.Position, other, p.ID)
			}
			positions[p.Position] = p.ID
		}
	}
}

func TestRecordAtBatValidation(t *testing.T) {
	e := newTestEngine()
	a := mustAdd(t, e, Home, "Tanaka", 4, PositionNone)

	tests := []struct {
		name   string
		team   Team
		player string
		result Result
		runs   int
	}{
		{"missing player", Home, "", ResultSingle, 0},
		{"unknown player", Home, "nope", ResultSingle, 0},
		{"missing result", Home, a.ID, "", 0},
		{"unknown result", Home, a.ID, "bunt", 0},
		{"negative runs", Home, a.ID, ResultSingle, -1},
		{"wrong team", Away, a.ID, ResultSingle, 0},
		{"bad team", "", a.ID, ResultSingle, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			before := e.Snapshot()
			if _, err := e.RecordAtBat(tc.team, tc.player, tc.result, tc.runs); !errors.Is(err, ErrValidation) {
				t.Fatalf("err = %v, want ErrValidation", err)
			}
			if after := e.Snapshot(); !reflect.DeepEqual(before, after) {
				t.Errorf("state changed on error")
			}
		})
	}

	rec := mustRecord(t, e, Home, a.ID, ResultSingle, 0)
	if _, err := e.EditAtBat("nope", ResultSingle, 0); !errors.Is(err, ErrNotFound) {
		t.Errorf("EditAtBat unknown: %v", err)
	}
	if _, err := e.EditAtBat(rec.ID, "bunt", 0); !errors.Is(err, ErrValidation) {
		t.Errorf("EditAtBat bad result: %v", err)
	}
	if _, err := e.EditAtBat(rec.ID, ResultSingle, -2); !errors.Is(err, ErrValidation) {
		t.Errorf("EditAtBat negative runs: %v", err)
	}
	if err := e.Verify(); err != nil {
		t.Error(err)
	}
}

func TestOutsTransition(t *testing.T) {
	tests := []struct {
		name       string
		inning     int
		isTop      bool
		wantInning int
		wantTop    bool
	}{
		{"top to bottom", 1, true, 1, false},
		{"bottom to next top", 1, false, 2, true},
		{"top of seventh", 7, true, 7, false},
		{"bottom of seventh saturates", 7, false, 7, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			e := newTestEngine()
			if err := e.SetInning(tc.inning, tc.isTop); err != nil {
				t.Fatal(err)
			}
			for _, b := range []int{1, 3} {
				if err := e.ToggleBase(b); err != nil {
					t.Fatal(err)
				}
			}
			for i := 1; i <= 2; i++ {
				e.AddOut()
				if g := e.Snapshot(); g.Outs != i {
					t.Fatalf("after %d outs: outs = %d", i, g.Outs)
				}
			}
			e.AddOut()
			g := e.Snapshot()
			if g.Outs != 0 || g.Bases != [3]bool{} {
				t.Errorf("outs=%d bases=%v", g.Outs, g.Bases)
			}
			if g.CurrentInning != tc.wantInning || g.IsTop != tc.wantTop {
				t.Errorf("inning=%d top=%v, want %d %v", g.CurrentInning, g.IsTop, tc.wantInning, tc.wantTop)
			}
		})
	}
}

func TestResetOutsAndToggleBase(t *testing.T) {
	e := newTestEngine()
	e.AddOut()
	e.AddOut()
	if err := e.ToggleBase(2); err != nil {
		t.Fatal(err)
	}
	e.ResetOuts()
	g := e.Snapshot()
	if g.Outs != 0 || g.Bases != [3]bool{false, true, false} || !g.IsTop || g.CurrentInning != 1 {
		t.Errorf("state = outs %d bases %v top %v inning %d", g.Outs, g.Bases, g.IsTop, g.CurrentInning)
	}
	if err := e.ToggleBase(2); err != nil {
		t.Fatal(err)
	}
	if e.Snapshot().Bases[1] {
		t.Error("second toggle did not clear the base")
	}
	for _, b := range []int{0, 4} {
		if err := e.ToggleBase(b); !errors.Is(err, ErrValidation) {
			t.Errorf("ToggleBase(%d) = %v, want ErrValidation", b, err)
		}
	}
}

func TestDeletePlayerCascades(t *testing.T) {
	e := newTestEngine()
	a := mustAdd(t, e, Away, "Sato", 1, PositionNone)
	b := mustAdd(t, e, Away, "Kimura", 2, PositionNone)
	mustRecord(t, e, Away, a.ID, ResultHomerun, 1)
	mustRecord(t, e, Away, b.ID, ResultDouble, 2)
	mustRecord(t, e, Away, a.ID, ResultWalk, 0)

	if err := e.DeletePlayer(Away, a.ID); err != nil {
		t.Fatalf("DeletePlayer: %v", err)
	}
	g := e.Snapshot()
	if _, ok := g.FindPlayer(a.ID); ok {
		t.Error("deleted player still on roster")
	}
	if len(g.AtBatHistory) != 1 || g.AtBatHistory[0].PlayerID != b.ID {
		t.Errorf("history = %+v", g.AtBatHistory)
	}
	if g.AwayScore[0] != 3 {
		t.Errorf("away score = %v, runs must not be reversed", g.AwayScore)
	}
	if want := (Stats{AtBats: 1, Hits: 1, Doubles: 1, RBIs: 2}); statsOf(t, e, b.ID) != want {
		t.Errorf("other player's stats = %+v", statsOf(t, e, b.ID))
	}
	if err := e.Verify(); err != nil {
		t.Error(err)
	}
}

func TestClearHistory(t *testing.T) {
	e := newTestEngine()
	a := mustAdd(t, e, Home, "Sato", 1, PositionNone)
	b := mustAdd(t, e, Away, "Kimura", 2, PositionNone)
	mustRecord(t, e, Home, a.ID, ResultSingle, 2)
	mustRecord(t, e, Away, b.ID, ResultStrikeout, 0)
	scoreBefore := e.Snapshot().HomeScore

	e.ClearHistory()
	g := e.Snapshot()
	if len(g.AtBatHistory) != 0 {
		t.Errorf("history len = %d", len(g.AtBatHistory))
	}
	for _, p := range append(g.HomePlayers, g.AwayPlayers...) {
		if p.Stats != (Stats{}) {
			t.Errorf("%s stats = %+v", p.Name, p.Stats)
		}
	}
	if g.HomeScore != scoreBefore {
		t.Errorf("home score = %v, want %v", g.HomeScore, scoreBefore)
	}
}

func TestReplayInvariant(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	e := newTestEngine()
	for i := range 9 {
		mustAdd(t, e, Home, fmt.Sprintf("H%d", i), i+1, PositionNone)
		mustAdd(t, e, Away, fmt.Sprintf("A%d", i), i+20, PositionNone)
	}
	next := 50

	for step := range 2000 {
		g := e.Snapshot()
		switch op := rng.IntN(10); {
		case op < 5:
			team := Team([]Team{Home, Away}[rng.IntN(2)])
			active := e.ActivePlayers(team)
			p := active[rng.IntN(len(active))]
			r := Results[rng.IntN(len(Results))]
			if _, err := e.RecordAtBat(team, p.ID, r, rng.IntN(4)); err != nil {
				t.Fatalf("step %d: RecordAtBat: %v", step, err)
			}
		case op < 7 && len(g.AtBatHistory) > 0:
			rec := g.AtBatHistory[rng.IntN(len(g.AtBatHistory))]
			r := Results[rng.IntN(len(Results))]
			if _, err := e.EditAtBat(rec.ID, r, rng.IntN(4)); err != nil {
				t.Fatalf("step %d: EditAtBat: %v", step, err)
			}
		case op < 9 && len(g.AtBatHistory) > 0:
			rec := g.AtBatHistory[rng.IntN(len(g.AtBatHistory))]
			if err := e.DeleteAtBat(rec.ID); err != nil {
				t.Fatalf("step %d: DeleteAtBat: %v", step, err)
			}
		case op == 9:
			team := Team([]Team{Home, Away}[rng.IntN(2)])
			active := e.ActivePlayers(team)
			p := active[rng.IntN(len(active))]
			next++
			if _, err := e.SubstitutePlayer(team, p.ID, fmt.Sprintf("S%d", next), next%100, PositionNone); err != nil && !errors.Is(err, ErrConflict) {
				t.Fatalf("step %d: SubstitutePlayer: %v", step, err)
			}
		}

		if err := e.Verify(); err != nil {
			t.Fatalf("step %d: %v", step, err)
		}
		assertScoreMatchesLedger(t, e.Snapshot())
		assertUnique(t, e.Snapshot())
	}
}

// assertScoreMatchesLedger holds as long as no cell was overwritten by hand
// and no player was deleted.
func assertScoreMatchesLedger(t *testing.T, g *GameState) {
	t.Helper()
	var home, away [Innings]int
	for _, rec := range g.AtBatHistory {
		if rec.Team == Home {
			home[rec.Inning-1] += rec.Runs
		} else {
			away[rec.Inning-1] += rec.Runs
		}
	}
	if home != g.HomeScore || away != g.AwayScore {
		t.Fatalf("score %v/%v, ledger %v/%v", g.HomeScore, g.AwayScore, home, away)
	}
}

func TestManualCorrections(t *testing.T) {
	e := newTestEngine()
	if err := e.SetInningScore(Away, 2, 5); err != nil {
		t.Fatal(err)
	}
	if err := e.SetInningScore(Home, 8, 1); !errors.Is(err, ErrValidation) {
		t.Errorf("inning 8: %v", err)
	}
	if err := e.SetInningScore(Home, 1, -1); !errors.Is(err, ErrValidation) {
		t.Errorf("negative runs: %v", err)
	}
	if err := e.SetInning(0, true); !errors.Is(err, ErrValidation) {
		t.Errorf("inning 0: %v", err)
	}
	e.SetTeamNames("  Hawks ", "")
	if err := e.UpdateMetadata(Metadata{Date: "2026-05-10", Location: "Field 2", Status: StatusFinished, Result: GameResultAwayWin}); err != nil {
		t.Fatal(err)
	}
	if err := e.UpdateMetadata(Metadata{Status: "paused"}); !errors.Is(err, ErrValidation) {
		t.Errorf("bad status: %v", err)
	}
	if err := e.UpdateMetadata(Metadata{Result: "forfeit"}); !errors.Is(err, ErrValidation) {
		t.Errorf("bad result: %v", err)
	}

	g := e.Snapshot()
	if g.AwayScore[1] != 5 || g.Total(Away) != 5 {
		t.Errorf("away score = %v", g.AwayScore)
	}
	if g.HomeTeamName != "Hawks" || g.AwayTeamName != DefaultAwayTeamName {
		t.Errorf("names = %q/%q", g.HomeTeamName, g.AwayTeamName)
	}
	if g.Date != "2026-05-10" || g.Location != "Field 2" || g.Status != StatusFinished || g.Result != GameResultAwayWin {
		t.Errorf("metadata = %q %q %q %q", g.Date, g.Location, g.Status, g.Result)
	}

	e.ChangeInning()
	if g := e.Snapshot(); g.IsTop {
		t.Error("ChangeInning did not flip the half")
	}

	e.Reset()
	if g := e.Snapshot(); !reflect.DeepEqual(g, NewGameState()) {
		t.Errorf("after Reset: %+v", g)
	}
}

func TestScoreReversalClampsAtZero(t *testing.T) {
	e := newTestEngine()
	a := mustAdd(t, e, Home, "Sato", 1, PositionNone)
	rec := mustRecord(t, e, Home, a.ID, ResultHomerun, 3)
	if err := e.SetInningScore(Home, 1, 1); err != nil {
		t.Fatal(err)
	}
	if err := e.DeleteAtBat(rec.ID); err != nil {
		t.Fatal(err)
	}
	if got := e.Snapshot().HomeScore[0]; got != 0 {
		t.Errorf("home score inning 1 = %d, want 0", got)
	}
}

type fakeMemory struct {
	entries map[string]string
	err     error
}

func (m *fakeMemory) key(team string, number int) string {
	return fmt.Sprintf("%s/%d", team, number)
}

func (m *fakeMemory) Upsert(team string, number int, name string) error {
	if m.err != nil {
		return m.err
	}
	m.entries[m.key(team, number)] = name
	return nil
}

func (m *fakeMemory) Lookup(team string, number int) (string, error) {
	name, ok := m.entries[m.key(team, number)]
	if !ok {
		return "", fmt.Errorf("%w: %s #%d", ErrNotFound, team, number)
	}
	return name, nil
}

func TestRosterMemory(t *testing.T) {
	mem := &fakeMemory{entries: map[string]string{}}
	e := newTestEngine(WithRosterMemory(mem))
	e.SetTeamNames("Hawks", "Owls")
	mustAdd(t, e, Home, "Tanaka", 4, PositionShort)

	if got := mem.entries["Hawks/4"]; got != "Tanaka" {
		t.Errorf("memory = %v", mem.entries)
	}

	e.Reset()
	e.SetTeamNames("Hawks", "Owls")
	p, err := e.AddPlayerFromMemory(Home, 4)
	if err != nil {
		t.Fatalf("AddPlayerFromMemory: %v", err)
	}
	if p.Name != "Tanaka" || p.Number != 4 || p.Position != PositionNone || !p.IsActive {
		t.Errorf("player = %+v", p)
	}
	if _, err := e.AddPlayerFromMemory(Home, 4); !errors.Is(err, ErrConflict) {
		t.Errorf("adding twice: %v, want ErrConflict", err)
	}
	if _, err := e.AddPlayerFromMemory(Away, 4); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown entry: %v, want ErrNotFound", err)
	}

	mem.err = errors.New("disk full")
	if _, err := e.AddPlayer(Home, "Abe", 5, PositionNone); err != nil {
		t.Errorf("AddPlayer must not fail when memory fails: %v", err)
	}
}

func TestLedgerView(t *testing.T) {
	e := newTestEngine()
	e.SetTeamNames("Hawks", "Owls")
	a := mustAdd(t, e, Home, "Tanaka", 4, PositionNone)
	mustRecord(t, e, Home, a.ID, ResultDouble, 1)
	if _, err := e.EditPlayer(Home, a.ID, "Tanaka K.", 14, PositionNone); err != nil {
		t.Fatal(err)
	}
	entries := e.Snapshot().Ledger()
	if len(entries) != 1 {
		t.Fatalf("entries = %+v", entries)
	}
	got := entries[0]
	if got.PlayerName != "Tanaka K." || got.PlayerNumber != 14 || got.TeamName != "Hawks" || got.ResultText != "Double" {
		t.Errorf("entry = %+v", got)
	}
}

func TestSequenceGenerator(t *testing.T) {
	g := NewSequenceGenerator("ab")
	if a, b := g.NewID(), g.NewID(); a != "ab-000001" || b != "ab-000002" {
		t.Errorf("ids = %s, %s", a, b)
	}
}

func TestUUIDGeneratorIsOrdered(t *testing.T) {
	var g UUIDGenerator
	prev := g.NewID()
	for range 1000 {
		id := g.NewID()
		if id <= prev {
			t.Fatalf("%s not after %s", id, prev)
		}
		prev = id
	}
}
