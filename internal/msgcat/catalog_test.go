package msgcat

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// every key the bot renders, with representative data
var renderCases = []struct {
	key  string
	data any
}{
	{"persona.reply", map[string]any{"Reply": "hello"}},
	{"persona.fallback_empty", nil},
	{"persona.fallback_error", nil},
	{"progress.levelup", map[string]any{"Level": 2}},
	{"progress.profile", map[string]any{"Level": 1, "Experience": 47}},
	{"game.prompt", map[string]any{"Prefix": "."}},
	{"game.guess_usage", map[string]any{"Prefix": "."}},
	{"game.guess_correct", nil},
	{"game.guess_wrong", map[string]any{"Number": 7}},
	{"game.no_active", map[string]any{"Prefix": "."}},
	{"media.viewonce_caption", nil},
	{"media.toimage_caption", nil},
	{"group.tagall_header", nil},
	{"group.muted", nil},
	{"group.unmuted", nil},
	{"group.action_failed", map[string]any{"Action": "mute"}},
	{"group.action_partial", map[string]any{"Failed": 1, "Total": 3}},
	{"group.welcome", map[string]any{"Name": "Mika"}},
	{"group.farewell", map[string]any{"Name": "Mika"}},
}

func TestEmbeddedCatalogRendersEveryKey(t *testing.T) {
	cat, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for _, tc := range renderCases {
		out, err := cat.Render(tc.key, tc.data)
		if err != nil {
			t.Errorf("Render(%s): %v", tc.key, err)
			continue
		}
		if strings.TrimSpace(out) == "" {
			t.Errorf("Render(%s): empty output", tc.key)
		}
	}
}

func TestRenderUnknownKey(t *testing.T) {
	cat, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := cat.Render("nope.missing", nil); err == nil {
		t.Fatal("expected error for unknown key")
	}
}

func TestOverrideDirReplacesValue(t *testing.T) {
	dir := t.TempDir()
	override := "persona:\n  reply: \"override {{.Reply}}\"\n"
	if err := os.WriteFile(filepath.Join(dir, "10-local.yaml"), []byte(override), 0o644); err != nil {
		t.Fatal(err)
	}

	cat, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	out, err := cat.Render("persona.reply", map[string]any{"Reply": "hi"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if out != "override hi" {
		t.Fatalf("got %q", out)
	}

	// untouched keys keep their embedded defaults
	if _, err := cat.Render("group.muted", nil); err != nil {
		t.Fatalf("default key lost after override: %v", err)
	}
}

func TestOverrideDirRejectsDuplicateKeys(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.yaml", "b.yaml"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("persona:\n  reply: \"x\"\n"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := New(dir); err == nil {
		t.Fatal("expected duplicate key error")
	}
}
