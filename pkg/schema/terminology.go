package schema

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Terminology maps domain terms to their canonical definitions. It is
// read-only reference data, loaded once per process.
type Terminology struct {
	Terms map[string]TermEntry `yaml:"terms"`
}

// TermEntry is the definition and synonyms of a single domain term
type TermEntry struct {
	Definition string   `yaml:"definition"`
	Synonyms   []string `yaml:"synonyms,omitempty"`
}

// LoadTerminology reads a terminology YAML file. A missing path returns an
// empty terminology rather than an error; vocabulary is optional context.
func LoadTerminology(path string) (*Terminology, error) {
	if path == "" {
		return &Terminology{Terms: map[string]TermEntry{}}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading terminology file: %w", err)
	}

	var terminology Terminology
	if err := yaml.Unmarshal(data, &terminology); err != nil {
		return nil, fmt.Errorf("parsing terminology file: %w", err)
	}
	if terminology.Terms == nil {
		terminology.Terms = map[string]TermEntry{}
	}

	return &terminology, nil
}

// AsText renders the terminology as a prompt-ready block, one term per line
func (t *Terminology) AsText() string {
	if t == nil || len(t.Terms) == 0 {
		return ""
	}

	terms := make([]string, 0, len(t.Terms))
	for term := range t.Terms {
		terms = append(terms, term)
	}
	sort.Strings(terms)

	var b strings.Builder
	for _, term := range terms {
		entry := t.Terms[term]
		b.WriteString(term)
		b.WriteString(": ")
		b.WriteString(entry.Definition)
		if len(entry.Synonyms) > 0 {
			b.WriteString(" (also: ")
			b.WriteString(strings.Join(entry.Synonyms, ", "))
			b.WriteString(")")
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
