package schema

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/tagus/graphmind/pkg/logging"
)

// fakeExecutor answers schema introspection queries from canned rows
type fakeExecutor struct {
	apocAvailable bool
	queries       []string
	err           error
}

func (f *fakeExecutor) ExecuteQuery(_ context.Context, query string, _ map[string]any, _ string) ([]map[string]any, error) {
	f.queries = append(f.queries, query)
	if f.err != nil {
		return nil, f.err
	}

	if strings.Contains(query, "apoc.meta.data") {
		if !f.apocAvailable {
			return nil, errors.New("Neo.ClientError.Procedure.ProcedureNotFound: There is no procedure with the name `apoc.meta.data`")
		}
		switch {
		case strings.Contains(query, "RETURN nodeLabel"):
			return []map[string]any{
				{
					"nodeLabel": "Person",
					"properties": []any{
						map[string]any{"property": "name", "type": "STRING"},
						map[string]any{"property": "ssn", "type": "STRING"},
					},
				},
			}, nil
		case strings.Contains(query, "RETURN relType"):
			return []map[string]any{
				{
					"relType": "KNOWS",
					"properties": []any{
						map[string]any{"property": "since", "type": "DATE"},
					},
				},
			}, nil
		default:
			return []map[string]any{
				{"start": "Person", "type": "KNOWS", "end": "Person"},
			}, nil
		}
	}

	// Built-in fallback procedures
	switch {
	case strings.Contains(query, "nodeTypeProperties"):
		return []map[string]any{
			{"nodeType": ":`Person`", "propertyName": "name", "propertyTypes": []any{"String"}},
		}, nil
	case strings.Contains(query, "relTypeProperties"):
		return []map[string]any{
			{"relType": ":`KNOWS`", "propertyName": "since", "propertyTypes": []any{"Date"}},
		}, nil
	default:
		return []map[string]any{
			{"start": "Person", "type": "KNOWS", "end": "Person"},
		}, nil
	}
}

func TestRefreshViaAPOC(t *testing.T) {
	executor := &fakeExecutor{apocAvailable: true}
	cache := NewCache(executor, "", WithLogger(logging.NoOp()))

	snapshot, err := cache.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	props := snapshot.NodeProps["Person"]
	if len(props) != 2 || props[0].Name != "name" {
		t.Errorf("Person props = %v", props)
	}
	if len(snapshot.Relationships) != 1 || snapshot.Relationships[0].Type != "KNOWS" {
		t.Errorf("relationships = %v", snapshot.Relationships)
	}
}

func TestRefreshFallsBackToBuiltin(t *testing.T) {
	executor := &fakeExecutor{apocAvailable: false}
	cache := NewCache(executor, "", WithLogger(logging.NoOp()))

	snapshot, err := cache.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	props := snapshot.NodeProps["Person"]
	if len(props) != 1 || props[0].Name != "name" || props[0].Type != "String" {
		t.Errorf("Person props = %v", props)
	}
}

func TestExcludedProperties(t *testing.T) {
	executor := &fakeExecutor{apocAvailable: true}
	cache := NewCache(executor, "",
		WithExcludedProperties(map[string][]string{"Person": {"ssn"}}),
		WithLogger(logging.NoOp()),
	)

	snapshot, err := cache.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	for _, p := range snapshot.NodeProps["Person"] {
		if p.Name == "ssn" {
			t.Error("excluded property leaked into the snapshot")
		}
	}
	if strings.Contains(snapshot.Formatted(), "ssn") {
		t.Error("excluded property leaked into the formatted schema")
	}
}

func TestGetUsesCache(t *testing.T) {
	executor := &fakeExecutor{apocAvailable: true}
	cache := NewCache(executor, "", WithLogger(logging.NoOp()))

	if _, err := cache.Get(context.Background()); err != nil {
		t.Fatalf("first Get: %v", err)
	}
	introspections := len(executor.queries)

	if _, err := cache.Get(context.Background()); err != nil {
		t.Fatalf("second Get: %v", err)
	}
	if len(executor.queries) != introspections {
		t.Error("second Get hit the database")
	}
}

func TestRefreshUnavailable(t *testing.T) {
	executor := &fakeExecutor{err: errors.New("connection refused")}
	cache := NewCache(executor, "", WithLogger(logging.NoOp()))

	_, err := cache.Refresh(context.Background())
	if !errors.Is(err, ErrSchemaUnavailable) {
		t.Errorf("error = %v, want ErrSchemaUnavailable", err)
	}
}
