package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestReadScriptSkipsBlankAndComments(t *testing.T) {
	path := filepath.Join(t.TempDir(), "script.txt")
	body := "# build a window\nwindow demo\n\nadd demo text hello;dump\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write script: %v", err)
	}
	lines, err := readScript(path, []string{"noop"})
	if err != nil {
		t.Fatalf("readScript: %v", err)
	}
	want := []string{"window demo", "add demo text hello;dump", "noop"}
	if diff := cmp.Diff(want, lines); diff != "" {
		t.Fatalf("unexpected script (-want +got):\n%s", diff)
	}
}

func TestReadScriptArgsOnly(t *testing.T) {
	lines, err := readScript("", []string{"window a", "dump"})
	if err != nil {
		t.Fatalf("readScript: %v", err)
	}
	if diff := cmp.Diff([]string{"window a", "dump"}, lines); diff != "" {
		t.Fatalf("unexpected script (-want +got):\n%s", diff)
	}
}
