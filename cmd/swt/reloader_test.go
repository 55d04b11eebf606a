package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/swtk/swt/internal/config"
	"github.com/swtk/swt/internal/util"
)

type recordingTarget struct {
	applied []*config.Config
}

func (r *recordingTarget) Reload(_ context.Context, cfg *config.Config) error {
	r.applied = append(r.applied, cfg)
	return nil
}

func TestReloadLogsDiffOnFailureAndKeepsPreviousConfig(t *testing.T) {
	initial := "borderPx: 2\npingIntervalSec: 300\n"
	bad := "borderPx: -1\npingIntervalSec: 300\n"

	path := filepath.Join(t.TempDir(), "swt.yaml")
	if err := os.WriteFile(path, []byte(initial), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := config.Parse([]byte(initial))
	if err != nil {
		t.Fatalf("parse initial config: %v", err)
	}

	var logs bytes.Buffer
	logger := util.NewLoggerWithWriter(util.LevelDebug, &logs)
	target := &recordingTarget{}
	reloader := newConfigReloader(path, logger, target, cfg, []byte(initial))

	if err := os.WriteFile(path, []byte(bad), 0o600); err != nil {
		t.Fatalf("write bad config: %v", err)
	}
	if err := reloader.Reload(context.Background(), "test"); err == nil {
		t.Fatalf("expected reload to fail")
	}
	if len(target.applied) != 0 {
		t.Fatalf("expected rejected config not to be applied")
	}
	if reloader.lastConfig != cfg {
		t.Fatalf("expected previous config to be kept")
	}
	out := logs.String()
	if !strings.Contains(out, "config change rejected") || !strings.Contains(out, "borderPx: -1") {
		t.Fatalf("expected diff in logs, got %q", out)
	}
}

func TestReloadRejectsBadBindings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "swt.yaml")
	if err := os.WriteFile(path, []byte("keys:\n  - ctrl+q explode\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	target := &recordingTarget{}
	reloader := newConfigReloader(path, util.Discard(), target, config.Default(), nil)
	if err := reloader.Reload(context.Background(), "test"); err == nil {
		t.Fatalf("expected unknown action to be rejected")
	}
	if len(target.applied) != 0 {
		t.Fatalf("expected nothing applied")
	}
}

func TestReloadAppliesChangesOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "swt.yaml")
	if err := os.WriteFile(path, []byte("borderPx: 4\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	target := &recordingTarget{}
	reloader := newConfigReloader(path, util.Discard(), target, config.Default(), nil)

	if err := reloader.Reload(context.Background(), "test"); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if err := reloader.Reload(context.Background(), "test again"); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if len(target.applied) != 1 || target.applied[0].BorderPx != 4 {
		t.Fatalf("expected one applied reload with borderPx 4, got %d", len(target.applied))
	}
}
