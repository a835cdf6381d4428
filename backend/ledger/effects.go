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

// Result is an at-bat outcome code.
type Result string

const (
	ResultSingle             Result = "single"
	ResultDouble             Result = "double"
	ResultTriple             Result = "triple"
	ResultHomerun            Result = "homerun"
	ResultRunningHomerun     Result = "runningHomerun"
	ResultWalk               Result = "walk"
	ResultHitByPitch         Result = "hbp"
	ResultStrikeout          Result = "strikeout"
	ResultStrikeoutWildPitch Result = "strikeoutWildPitch"
	ResultGroundout          Result = "groundout"
	ResultFlyout             Result = "flyout"
	ResultError              Result = "error"
)

// Results lists every outcome in display order.
var Results = []Result{
	ResultSingle,
	ResultDouble,
	ResultTriple,
	ResultHomerun,
	ResultRunningHomerun,
	ResultWalk,
	ResultHitByPitch,
	ResultStrikeout,
	ResultStrikeoutWildPitch,
	ResultGroundout,
	ResultFlyout,
	ResultError,
}

// effect is the contribution of one outcome to a player's Stats.
type effect struct {
	atBat      bool
	hit        bool
	doubles    int
	triples    int
	homeRuns   int
	walks      int
	strikeouts int
	out        bool
	label      string
}

var effects = map[Result]effect{
	ResultSingle:             {atBat: true, hit: true, label: "Single"},
	ResultDouble:             {atBat: true, hit: true, doubles: 1, label: "Double"},
	ResultTriple:             {atBat: true, hit: true, triples: 1, label: "Triple"},
	ResultHomerun:            {atBat: true, hit: true, homeRuns: 1, label: "Home Run"},
	ResultRunningHomerun:     {atBat: true, hit: true, homeRuns: 1, label: "Inside-the-Park Home Run"},
	ResultWalk:               {walks: 1, label: "Walk"},
	ResultHitByPitch:         {walks: 1, label: "Hit by Pitch"},
	ResultStrikeout:          {atBat: true, strikeouts: 1, out: true, label: "Strikeout"},
	ResultStrikeoutWildPitch: {atBat: true, strikeouts: 1, out: true, label: "Strikeout (Wild Pitch)"},
	ResultGroundout:          {atBat: true, out: true, label: "Groundout"},
	ResultFlyout:             {atBat: true, out: true, label: "Flyout"},
	ResultError:              {atBat: true, label: "Reached on Error"},
}

// Valid reports whether r is a known outcome.
func (r Result) Valid() bool {
	_, ok := effects[r]
	return ok
}

// IsHit reports whether r counts as a hit.
func (r Result) IsHit() bool {
	return effects[r].hit
}

// IsOut reports whether r forces an out.
func (r Result) IsOut() bool {
	return effects[r].out
}

// IsWalk reports whether r puts the batter on without an at-bat.
func (r Result) IsWalk() bool {
	return effects[r].walks > 0
}

// Text is the display name of r.
func (r Result) Text() string {
	if e, ok := effects[r]; ok {
		return e.label
	}
	return string(r)
}

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}

// applyEffect adds (mult=+1) or removes (mult=-1) the contribution of one
// at-bat to s. Unknown results only contribute runs.
func applyEffect(s Stats, r Result, runs, mult int) Stats {
	e := effects[r]
	s.AtBats += mult * b2i(e.atBat)
	s.Hits += mult * b2i(e.hit)
	s.Doubles += mult * e.doubles
	s.Triples += mult * e.triples
	s.HomeRuns += mult * e.homeRuns
	s.Walks += mult * e.walks
	s.Strikeouts += mult * e.strikeouts
	s.RBIs += mult * runs
	return s
}

// ApplyEffect returns s with one at-bat of r and runs added.
func ApplyEffect(s Stats, r Result, runs int) Stats {
	return applyEffect(s, r, runs, 1)
}

// ReverseEffect undoes ApplyEffect.
func ReverseEffect(s Stats, r Result, runs int) Stats {
	return applyEffect(s, r, runs, -1)
}

// ReplayStats folds the effect table over the ledger from empty and returns
// the stats of every player referenced by at least one record.
func ReplayStats(history []AtBatRecord) map[string]Stats {
	out := make(map[string]Stats)
	for _, rec := range history {
		out[rec.PlayerID] = ApplyEffect(out[rec.PlayerID], rec.Result, rec.Runs)
	}
	return out
}
