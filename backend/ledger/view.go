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

// LedgerEntry is an at-bat joined with its batter.
type LedgerEntry struct {
	AtBatRecord
	PlayerName   string `json:"playerName"`
	PlayerNumber int    `json:"playerNumber"`
	TeamName     string `json:"teamName"`
	ResultText   string `json:"resultText"`
}

// Ledger returns the at-bat history in chronological order with player
// names resolved at read time, so renames show up in old records.
func (g *GameState) Ledger() []LedgerEntry {
	out := make([]LedgerEntry, 0, len(g.AtBatHistory))
	for _, rec := range g.AtBatHistory {
		p, ok := g.FindPlayer(rec.PlayerID)
		if !ok {
			continue
		}
		team := rec.Team
		if !team.Valid() {
			team = p.Team
		}
		out = append(out, LedgerEntry{
			AtBatRecord:  rec,
			PlayerName:   p.Name,
			PlayerNumber: p.Number,
			TeamName:     g.TeamName(team),
			ResultText:   rec.Result.Text(),
		})
	}
	return out
}
