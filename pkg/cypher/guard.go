// Package cypher cleans up model-generated Cypher and enforces that only
// read queries ever reach the database.
package cypher

import (
	"fmt"
	"strings"
	"unicode"
)

// ReadOnlyError reports a query rejected for containing a write clause
type ReadOnlyError struct {
	Clause string
	Query  string
}

func (e *ReadOnlyError) Error() string {
	return fmt.Sprintf("cypher: query contains write clause %s", e.Clause)
}

// writeClauses are keywords that mutate the graph. SET also covers
// REMOVE-style property updates; LOAD covers LOAD CSV.
var writeClauses = map[string]struct{}{
	"CREATE":  {},
	"MERGE":   {},
	"DELETE":  {},
	"DETACH":  {},
	"SET":     {},
	"REMOVE":  {},
	"DROP":    {},
	"LOAD":    {},
	"FOREACH": {},
}

// Sanitize strips markdown fences and stray decoration from model output,
// leaving bare Cypher.
func Sanitize(raw string) string {
	query := strings.TrimSpace(raw)

	if strings.HasPrefix(query, "```") {
		query = strings.TrimPrefix(query, "```")
		// Language tag on the opening fence
		if idx := strings.IndexByte(query, '\n'); idx >= 0 {
			firstLine := strings.TrimSpace(query[:idx])
			if firstLine == "cypher" || firstLine == "sql" || firstLine == "" {
				query = query[idx+1:]
			}
		}
		query = strings.TrimSuffix(strings.TrimSpace(query), "```")
	}

	query = strings.TrimSpace(query)
	query = strings.TrimSuffix(query, ";")
	return strings.TrimSpace(query)
}

// EnsureReadOnly rejects queries containing write clauses. Keywords inside
// string literals, backtick identifiers and comments are ignored.
func EnsureReadOnly(query string) error {
	for _, word := range keywords(query) {
		if _, forbidden := writeClauses[word]; forbidden {
			return &ReadOnlyError{Clause: word, Query: query}
		}
	}
	return nil
}

// keywords extracts upper-cased bare words from a query, skipping quoted
// strings, backtick identifiers and comments.
func keywords(query string) []string {
	var words []string
	var current strings.Builder
	runes := []rune(query)

	flush := func() {
		if current.Len() > 0 {
			words = append(words, strings.ToUpper(current.String()))
			current.Reset()
		}
	}

	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case r == '\'' || r == '"' || r == '`':
			flush()
			i = skipDelimited(runes, i, r)
		case r == '/' && i+1 < len(runes) && runes[i+1] == '/':
			flush()
			for i < len(runes) && runes[i] != '\n' {
				i++
			}
		case r == '/' && i+1 < len(runes) && runes[i+1] == '*':
			flush()
			i += 2
			for i+1 < len(runes) && !(runes[i] == '*' && runes[i+1] == '/') {
				i++
			}
			i++
		case unicode.IsLetter(r) || r == '_':
			current.WriteRune(r)
		default:
			flush()
		}
	}
	flush()
	return words
}

// skipDelimited returns the index of the closing delimiter, honoring
// backslash escapes inside single and double quotes.
func skipDelimited(runes []rune, start int, delim rune) int {
	for i := start + 1; i < len(runes); i++ {
		if runes[i] == '\\' && delim != '`' {
			i++
			continue
		}
		if runes[i] == delim {
			return i
		}
	}
	return len(runes) - 1
}
