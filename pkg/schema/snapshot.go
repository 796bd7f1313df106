package schema

import (
	"fmt"
	"sort"
	"strings"
)

// Property is one typed property of a node label or relationship type
type Property struct {
	Name string
	Type string
}

// Relationship is one (start)-[type]->(end) triple observed in the graph
type Relationship struct {
	Start string
	Type  string
	End   string
}

// Snapshot is an immutable description of the graph's labels, relationship
// types and their properties. A Snapshot is never mutated after capture; the
// cache replaces it wholesale on refresh.
type Snapshot struct {
	NodeProps     map[string][]Property
	RelProps      map[string][]Property
	Relationships []Relationship
}

// Empty reports whether the snapshot carries no schema information
func (s *Snapshot) Empty() bool {
	return s == nil || (len(s.NodeProps) == 0 && len(s.RelProps) == 0 && len(s.Relationships) == 0)
}

// Formatted renders the snapshot as the multi-line block injected into
// generation prompts:
//
//	Node properties:
//	Person {name: STRING, age: INTEGER}
//	Relationship properties:
//	KNOWS {since: DATE}
//	The relationships:
//	(:Person)-[:KNOWS]->(:Person)
func (s *Snapshot) Formatted() string {
	if s == nil {
		return ""
	}

	formatProps := func(props []Property) string {
		parts := make([]string, 0, len(props))
		for _, p := range props {
			parts = append(parts, fmt.Sprintf("%s: %s", p.Name, p.Type))
		}
		return strings.Join(parts, ", ")
	}

	nodeLines := make([]string, 0, len(s.NodeProps))
	for _, label := range sortedKeys(s.NodeProps) {
		nodeLines = append(nodeLines, fmt.Sprintf("%s {%s}", label, formatProps(s.NodeProps[label])))
	}

	relLines := make([]string, 0, len(s.RelProps))
	for _, relType := range sortedKeys(s.RelProps) {
		relLines = append(relLines, fmt.Sprintf("%s {%s}", relType, formatProps(s.RelProps[relType])))
	}

	topology := make([]string, 0, len(s.Relationships))
	for _, rel := range s.Relationships {
		topology = append(topology, fmt.Sprintf("(:%s)-[:%s]->(:%s)", rel.Start, rel.Type, rel.End))
	}

	return strings.Join([]string{
		"Node properties:",
		strings.Join(nodeLines, "\n"),
		"Relationship properties:",
		strings.Join(relLines, "\n"),
		"The relationships:",
		strings.Join(topology, "\n"),
	}, "\n")
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
