// Package search parses and evaluates ledger queries such as
// `player:7 inning:3..5 result:hit`.
package search

import (
	"strings"
	"unicode"
)

// Operator defines the type of comparison.
type Operator string

const (
	OpEqual          Operator = "="
	OpGreater        Operator = ">"
	OpGreaterOrEqual Operator = ">="
	OpLess           Operator = "<"
	OpLessOrEqual    Operator = "<="
	OpRange          Operator = ".." // inning:3..5
)

// prefixOps is checked in order, so two-character operators come first.
var prefixOps = []Operator{OpGreaterOrEqual, OpLessOrEqual, OpGreater, OpLess}

// Filter is one key:value criterion.
type Filter struct {
	Key      string   // e.g. "player", "inning", "result"
	Value    string   // e.g. "Alice", "3", "hit"
	MaxValue string   // Used only for OpRange
	Operator Operator // e.g. "=", ">="
}

// Query represents the parsed search query.
type Query struct {
	Filters  []Filter
	FreeText []string
}

// IsEmpty reports whether q matches everything.
func (q Query) IsEmpty() bool {
	return len(q.Filters) == 0 && len(q.FreeText) == 0
}

// Parse parses a query string. Tokens are separated by whitespace; quotes
// group words (player:"Ann Lee"). A token is a filter when it has the form
// key:value with a non-empty key and value and no further unquoted colon.
// Anything else is free text.
func Parse(input string) Query {
	q := Query{
		Filters:  make([]Filter, 0),
		FreeText: make([]string, 0),
	}

	for _, token := range tokenize(input) {
		f, ok := parseFilter(token)
		if !ok {
			q.FreeText = append(q.FreeText, removeQuotes(token))
			continue
		}
		q.Filters = append(q.Filters, f)
	}
	return q
}

func parseFilter(token string) (Filter, bool) {
	key, val, found := strings.Cut(token, ":")
	if !found {
		return Filter{}, false
	}
	key = strings.ToLower(strings.TrimSpace(key))
	val = strings.TrimSpace(val)
	if key == "" || val == "" {
		return Filter{}, false
	}
	if strings.Contains(val, ":") && !strings.HasPrefix(val, "\"") && !strings.HasPrefix(val, "'") {
		return Filter{}, false
	}

	if lo, hi, ok := strings.Cut(val, ".."); ok {
		return Filter{Key: key, Value: removeQuotes(lo), MaxValue: removeQuotes(hi), Operator: OpRange}, true
	}
	for _, op := range prefixOps {
		if rest, ok := strings.CutPrefix(val, string(op)); ok {
			return Filter{Key: key, Value: removeQuotes(rest), Operator: op}, true
		}
	}
	return Filter{Key: key, Value: removeQuotes(val), Operator: OpEqual}, true
}

// tokenize splits the string by spaces, respecting quotes.
func tokenize(input string) []string {
	var tokens []string
	var currentToken strings.Builder
	inQuote := false
	quoteChar := rune(0)

	for _, r := range input {
		switch {
		case inQuote:
			if r == quoteChar {
				inQuote = false
			}
			currentToken.WriteRune(r)
		case unicode.IsSpace(r):
			if currentToken.Len() > 0 {
				tokens = append(tokens, currentToken.String())
				currentToken.Reset()
			}
		case r == '"' || r == '\'':
			inQuote = true
			quoteChar = r
			currentToken.WriteRune(r)
		default:
			currentToken.WriteRune(r)
		}
	}
	if currentToken.Len() > 0 {
		tokens = append(tokens, currentToken.String())
	}
	return tokens
}

func removeQuotes(s string) string {
	if len(s) >= 2 {
		first := s[0]
		last := s[len(s)-1]
		if (first == '"' && last == '"') || (first == '\'' && last == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
