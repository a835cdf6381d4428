package search

import (
	"strconv"
	"strings"

	"github.com/ttbt-io/scorebook/backend/ledger"
)

// Match reports whether e satisfies every filter and every free-text word
// of q. Filters with unknown keys match nothing.
func Match(q Query, e ledger.LedgerEntry) bool {
	for _, f := range q.Filters {
		if !matchFilter(f, e) {
			return false
		}
	}
	for _, word := range q.FreeText {
		if !matchText(word, e) {
			return false
		}
	}
	return true
}

// Apply returns the entries that match q, in their original order.
func Apply(q Query, entries []ledger.LedgerEntry) []ledger.LedgerEntry {
	out := make([]ledger.LedgerEntry, 0, len(entries))
	for _, e := range entries {
		if Match(q, e) {
			out = append(out, e)
		}
	}
	return out
}

func matchFilter(f Filter, e ledger.LedgerEntry) bool {
	switch f.Key {
	case "player":
		if n, err := strconv.Atoi(f.Value); err == nil && f.Operator == OpEqual {
			return e.PlayerNumber == n
		}
		return f.Operator == OpEqual && containsFold(e.PlayerName, f.Value)
	case "team":
		if f.Operator != OpEqual {
			return false
		}
		if t := ledger.Team(strings.ToLower(f.Value)); t.Valid() {
			return e.Team == t
		}
		return containsFold(e.TeamName, f.Value)
	case "inning":
		return compareInt(e.Inning, f)
	case "runs":
		return compareInt(e.Runs, f)
	case "half":
		return f.Operator == OpEqual && strings.EqualFold(e.Half(), f.Value)
	case "result":
		return f.Operator == OpEqual && matchResult(e.Result, f.Value)
	default:
		return false
	}
}

func matchResult(r ledger.Result, v string) bool {
	switch strings.ToLower(v) {
	case "hit":
		return r.IsHit()
	case "out":
		return r.IsOut()
	case "walk":
		return r.IsWalk()
	}
	return strings.EqualFold(string(r), v) || strings.EqualFold(r.Text(), v)
}

func compareInt(got int, f Filter) bool {
	want, err := strconv.Atoi(f.Value)
	if err != nil {
		return false
	}
	switch f.Operator {
	case OpEqual:
		return got == want
	case OpGreater:
		return got > want
	case OpGreaterOrEqual:
		return got >= want
	case OpLess:
		return got < want
	case OpLessOrEqual:
		return got <= want
	case OpRange:
		hi, err := strconv.Atoi(f.MaxValue)
		if err != nil {
			return false
		}
		return got >= want && got <= hi
	}
	return false
}

func matchText(word string, e ledger.LedgerEntry) bool {
	return containsFold(e.PlayerName, word) ||
		containsFold(e.TeamName, word) ||
		containsFold(e.ResultText, word)
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
