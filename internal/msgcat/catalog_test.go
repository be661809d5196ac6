package msgcat

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestEmbeddedDefaults(t *testing.T) {
	c, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got, err := c.Render("status.checkmate", map[string]any{"Winner": "Black"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if got != "Checkmate. Black wins" {
		t.Fatalf("got %q", got)
	}
	if !c.Has("pgn.replay_failed") {
		t.Fatalf("expected pgn.replay_failed")
	}
}

func TestRenderMissingKeyAndField(t *testing.T) {
	c, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := c.Render("no.such.key", nil); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := c.Render("status.to_move", map[string]any{}); err == nil {
		t.Fatalf("expected error for missing field")
	}
	if got := c.RenderOr("status.to_move", map[string]any{}, "fallback"); got != "fallback" {
		t.Fatalf("RenderOr = %q", got)
	}
}

func TestOverrideDir(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	write("a.yaml", "status:\n  to_move: \"{{.Side}} plays\"\n")
	write("b.yml", "custom:\n  hello: \"hi {{.Name}}\"\n")
	write("notes.txt", "ignored: true\n")

	c, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got, _ := c.Render("status.to_move", map[string]any{"Side": "White"})
	if got != "White plays" {
		t.Fatalf("override not applied: %q", got)
	}
	if got, _ := c.Render("custom.hello", map[string]any{"Name": "Ann"}); got != "hi Ann" {
		t.Fatalf("custom key: %q", got)
	}
	if got, _ := c.Render("status.check", map[string]any{"Side": "Black"}); got != "Black is in check" {
		t.Fatalf("default lost: %q", got)
	}
}

func TestOverrideDuplicateKeys(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.yaml", "b.yaml"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("move:\n  played: \"x\"\n"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	_, err := New(dir)
	if err == nil || !strings.Contains(err.Error(), "duplicate override key") {
		t.Fatalf("expected duplicate key error, got %v", err)
	}
}

func TestNonStringLeafRejected(t *testing.T) {
	if _, err := parseYAMLToFlat([]byte("status:\n  count: 3\n")); err == nil {
		t.Fatalf("expected error for int leaf")
	}
}

func TestKeysSorted(t *testing.T) {
	c, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	keys := c.Keys()
	for i := 1; i < len(keys); i++ {
		if keys[i-1] > keys[i] {
			t.Fatalf("keys not sorted at %d: %v", i, keys)
		}
	}
}
