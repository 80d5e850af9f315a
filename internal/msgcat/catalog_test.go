package msgcat

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestEmbeddedMessagesRender(t *testing.T) {
	c, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got, err := c.Render("replay.kings", map[string]string{"WhiteKing": "(7, 4)", "BlackKing": "(0, 4)"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if got != "White king: (7, 4)\nBlack king: (0, 4)" {
		t.Fatalf("kings = %q", got)
	}
	for _, key := range []string{"replay.ply_header", "replay.done", "replay.aborted", "verify.ok", "api.not_found"} {
		if !c.Has(key) {
			t.Fatalf("missing embedded key %s", key)
		}
	}
}

func TestMissingDataFieldIsAnError(t *testing.T) {
	c, _ := New("")
	if _, err := c.Render("replay.kings", map[string]string{"WhiteKing": "(7, 4)"}); err == nil {
		t.Fatalf("expected missingkey error")
	}
	if got := c.RenderOr("no.such.key", nil, "fallback"); got != "fallback" {
		t.Fatalf("RenderOr = %q", got)
	}
	var nilCat *Catalog
	if got := nilCat.RenderOr("replay.done", nil, "x"); got != "x" {
		t.Fatalf("nil catalog RenderOr = %q", got)
	}
}

func TestOverrideDirectory(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.yaml"), []byte("replay:\n  result: \"final {{.Result}}\"\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	c, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got, _ := c.Render("replay.result", map[string]string{"Result": "1-0"})
	if got != "final 1-0" {
		t.Fatalf("override not applied: %q", got)
	}
	if !c.Has("replay.done") {
		t.Fatalf("embedded keys lost after override")
	}
}

func TestDuplicateOverrideKeysRejected(t *testing.T) {
	dir := t.TempDir()
	body := []byte("verify:\n  ok: \"fine\"\n")
	_ = os.WriteFile(filepath.Join(dir, "a.yaml"), body, 0o644)
	_ = os.WriteFile(filepath.Join(dir, "b.yml"), body, 0o644)
	if _, err := New(dir); err == nil || !strings.Contains(err.Error(), "duplicate override key") {
		t.Fatalf("expected duplicate key error, got %v", err)
	}
}

func TestNonStringLeafRejected(t *testing.T) {
	if _, err := parseYAMLToFlat([]byte("replay:\n  plies: 3\n")); err == nil {
		t.Fatalf("expected error for integer leaf")
	}
}
