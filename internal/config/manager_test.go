package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeMap(t *testing.T, dir, name string, doc MapDoc) {
	t.Helper()
	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, name+".json"), data, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func openMap(w, h int) MapDoc {
	objects := make([][]int, h)
	for y := range objects {
		row := make([]int, w)
		for x := range row {
			row[x] = -1
		}
		objects[y] = row
	}
	return MapDoc{ID: "m", Name: "m", Width: w, Height: h, Objects: objects}
}

func TestManagerLoadMapCaches(t *testing.T) {
	dir := t.TempDir()
	writeMap(t, dir, "town", openMap(4, 4))

	m, err := NewManager(dir, EngineConfig{})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	doc, err := m.LoadMap("town")
	if err != nil {
		t.Fatalf("LoadMap: %v", err)
	}
	if doc.Width != 4 || doc.Height != 4 {
		t.Fatalf("unexpected dims: %+v", doc)
	}

	// Mutate the file on disk; the cached value should not change.
	writeMap(t, dir, "town", openMap(9, 9))
	doc2, err := m.LoadMap("town")
	if err != nil {
		t.Fatalf("LoadMap again: %v", err)
	}
	if doc2.Width != 4 {
		t.Fatalf("expected cached doc, got width %d", doc2.Width)
	}
}

func TestManagerDefaultFallsBackToMinimal(t *testing.T) {
	dir := t.TempDir()
	m, err := NewManager(dir, EngineConfig{})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	if m.Default() == nil {
		t.Fatal("expected a minimal default map")
	}
	if m.Default().Width != 5 {
		t.Fatalf("unexpected default width %d", m.Default().Width)
	}
}

func TestMapDocValidateRejectsRaggedGrid(t *testing.T) {
	doc := MapDoc{ID: "m", Width: 3, Height: 2, Objects: [][]int{{-1, -1, -1}, {-1, -1}}}
	if err := doc.Validate(); err == nil {
		t.Fatal("expected ragged grid to fail validation")
	}
}

func TestMapDocValidateRejectsAllBlocked(t *testing.T) {
	doc := MapDoc{ID: "m", Width: 2, Height: 2, Objects: [][]int{{1, 1}, {1, 1}}}
	if err := doc.Validate(); err == nil {
		t.Fatal("expected fully-blocked grid to fail validation")
	}
}

func TestMapDocGridBlocksNonWalkable(t *testing.T) {
	doc := MapDoc{ID: "m", Width: 3, Height: 1, Objects: [][]int{{-1, 1, -1}}}
	grid := doc.Grid()
	if grid.Walkable[0][1] {
		t.Fatal("expected center cell blocked")
	}
	if !grid.Walkable[0][0] || !grid.Walkable[0][2] {
		t.Fatal("expected side cells walkable")
	}
}

func TestEngineConfigMergeOverridesOnlyNonZero(t *testing.T) {
	cfg := Defaults().merge(EngineConfig{MaxConversationMessages: 20})
	if cfg.MaxConversationMessages != 20 {
		t.Fatalf("override not applied: %d", cfg.MaxConversationMessages)
	}
	if cfg.Tick != 16*time.Millisecond {
		t.Fatalf("unrelated default clobbered: %v", cfg.Tick)
	}
}
