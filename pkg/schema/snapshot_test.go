package schema

import "testing"

func TestFormatted(t *testing.T) {
	snapshot := &Snapshot{
		NodeProps: map[string][]Property{
			"Person":  {{Name: "name", Type: "STRING"}, {Name: "age", Type: "INTEGER"}},
			"Company": {{Name: "name", Type: "STRING"}},
		},
		RelProps: map[string][]Property{
			"KNOWS": {{Name: "since", Type: "DATE"}},
		},
		Relationships: []Relationship{
			{Start: "Person", Type: "KNOWS", End: "Person"},
			{Start: "Person", Type: "WORKS_AT", End: "Company"},
		},
	}

	want := `Node properties:
Company {name: STRING}
Person {name: STRING, age: INTEGER}
Relationship properties:
KNOWS {since: DATE}
The relationships:
(:Person)-[:KNOWS]->(:Person)
(:Person)-[:WORKS_AT]->(:Company)`

	if got := snapshot.Formatted(); got != want {
		t.Errorf("Formatted() =\n%s\nwant:\n%s", got, want)
	}
}

func TestEmpty(t *testing.T) {
	var nilSnapshot *Snapshot
	if !nilSnapshot.Empty() {
		t.Error("nil snapshot should be empty")
	}
	if !(&Snapshot{}).Empty() {
		t.Error("zero snapshot should be empty")
	}
	populated := &Snapshot{NodeProps: map[string][]Property{"Person": nil}}
	if populated.Empty() {
		t.Error("populated snapshot should not be empty")
	}
}
