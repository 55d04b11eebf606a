package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/swtk/swt/internal/layout"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.PingInterval() != 300*time.Second {
		t.Fatalf("unexpected ping interval %v", cfg.PingInterval())
	}
	schemes, err := cfg.LayoutSchemes()
	if err != nil {
		t.Fatalf("schemes: %v", err)
	}
	if schemes.Selected.Bg != (layout.Color{R: 0x00, G: 0x55, B: 0x77}) {
		t.Fatalf("unexpected selected bg %+v", schemes.Selected.Bg)
	}
}

func TestParseOverridesDefaults(t *testing.T) {
	data := []byte(`
borderPx: 4
pingIntervalSec: 10
schemes:
  normal:
    border: "#073642"
    bg: "#002936"
    fg: "#93a1a1"
  selected:
    border: "#cb4b16"
    bg: "#073642"
    fg: "#93a1a1"
keys:
  - ctrl+q quit
  - key: alt+Tab
    action: select
    arg: "+1"
`)
	cfg, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.BorderPx != 4 || cfg.PingIntervalSec != 10 {
		t.Fatalf("unexpected overrides: %+v", cfg)
	}
	if cfg.WindowSize != (Size{Width: 640, Height: 480}) {
		t.Fatalf("expected default window size to survive, got %+v", cfg.WindowSize)
	}
	want := []KeyConfig{
		{Key: "ctrl+q", Action: "quit"},
		{Key: "alt+Tab", Action: "select", Arg: "+1"},
	}
	if diff := cmp.Diff(want, cfg.Keys); diff != "" {
		t.Fatalf("keys mismatch (-want +got):\n%s", diff)
	}
}

func TestParseKeepsDefaultKeysWhenOmitted(t *testing.T) {
	cfg, err := Parse([]byte("borderPx: 1\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if diff := cmp.Diff(DefaultKeys(), cfg.Keys); diff != "" {
		t.Fatalf("expected default keys (-want +got):\n%s", diff)
	}
}

func TestParseRejectsInvalidValues(t *testing.T) {
	data := []byte(`
borderPx: -1
pingIntervalSec: 0
schemes:
  normal:
    bg: "not-a-color"
keys:
  - key: ""
    action: quit
`)
	_, err := Parse(data)
	if err == nil {
		t.Fatalf("expected validation error")
	}
	for _, fragment := range []string{"borderPx", "pingIntervalSec", "schemes.normal", "keys[0]"} {
		if !strings.Contains(err.Error(), fragment) {
			t.Fatalf("expected error to mention %s, got %v", fragment, err)
		}
	}
}

func TestParseRejectsMalformedCompactKey(t *testing.T) {
	if _, err := Parse([]byte("keys:\n  - ctrl+q\n")); err == nil {
		t.Fatalf("expected compact key without action to fail")
	}
}

func TestLoadReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("font: fixed\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Font != "fixed" {
		t.Fatalf("unexpected font %q", cfg.Font)
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected missing file to fail")
	}
}
