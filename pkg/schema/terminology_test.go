package schema

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadTerminology(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "terminology.yaml")
	content := `terms:
  colleague:
    definition: a person connected by WORKS_WITH
    synonyms: [coworker, peer]
  account:
    definition: a Person node with a UserID
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	terminology, err := LoadTerminology(path)
	if err != nil {
		t.Fatalf("LoadTerminology: %v", err)
	}

	want := "account: a Person node with a UserID\n" +
		"colleague: a person connected by WORKS_WITH (also: coworker, peer)"
	if got := terminology.AsText(); got != want {
		t.Errorf("AsText() = %q, want %q", got, want)
	}
}

func TestLoadTerminologyEmptyPath(t *testing.T) {
	terminology, err := LoadTerminology("")
	if err != nil {
		t.Fatalf("LoadTerminology: %v", err)
	}
	if terminology.AsText() != "" {
		t.Errorf("AsText() = %q, want empty", terminology.AsText())
	}
}

func TestLoadTerminologyMissingFile(t *testing.T) {
	if _, err := LoadTerminology("/nonexistent/terminology.yaml"); err == nil {
		t.Error("expected error for missing file")
	}
}
