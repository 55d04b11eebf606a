package state

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/swtk/swt/internal/display"
	"github.com/swtk/swt/internal/display/displaytest"
	"github.com/swtk/swt/internal/layout"
	"github.com/swtk/swt/internal/util"
)

func newTestRegistry(t *testing.T) (*Registry, *displaytest.Conn) {
	t.Helper()
	conn := displaytest.New()
	reg := NewRegistry(conn, util.Discard(), Options{
		Border: 2,
		Size:   layout.Rect{Width: 400, Height: 300},
	})
	return reg, conn
}

func mustCreate(t *testing.T, reg *Registry, name string, mode layout.Mode) *Window {
	t.Helper()
	w, err := reg.CreateWindow(name, name+" window", mode)
	if err != nil {
		t.Fatalf("create %s: %v", name, err)
	}
	return w
}

func TestCreateWindowRegistersOnce(t *testing.T) {
	reg, conn := newTestRegistry(t)
	w := mustCreate(t, reg, "foo", layout.Horizontal)

	if reg.Len() != 1 {
		t.Fatalf("expected one window, got %d", reg.Len())
	}
	if w.Selected != -1 {
		t.Fatalf("expected empty window to have no selection, got %d", w.Selected)
	}
	created := conn.Created()
	want := []display.WindowSpec{{Name: "foo", Title: "foo window", Size: layout.Rect{Width: 400, Height: 300}}}
	if diff := cmp.Diff(want, created); diff != "" {
		t.Fatalf("create spec mismatch (-want +got):\n%s", diff)
	}
	surface := conn.Surface(w.Handle)
	if surface == nil || surface.Width != 1024 || surface.Height != 768 {
		t.Fatalf("expected a screen sized surface, got %+v", surface)
	}
}

func TestFindByNameReturnsFirstMatch(t *testing.T) {
	reg, _ := newTestRegistry(t)
	first := mustCreate(t, reg, "dup", layout.Horizontal)
	second := mustCreate(t, reg, "dup", layout.Vertical)

	got, ok := reg.FindByName("dup")
	if !ok || got != first {
		t.Fatalf("expected first window, got %+v", got)
	}
	if got, ok := reg.FindByHandle(second.Handle); !ok || got != second {
		t.Fatalf("expected second window reachable by handle")
	}
	if _, ok := reg.FindByName("missing"); ok {
		t.Fatalf("expected lookup of unknown name to fail")
	}
}

func TestAddRegionLaysOutAndRedraws(t *testing.T) {
	reg, conn := newTestRegistry(t)
	w := mustCreate(t, reg, "foo", layout.Vertical)

	reg.AddRegion(w, "one")
	reg.AddRegion(w, "two")

	if len(w.Regions) != 2 {
		t.Fatalf("expected 2 regions, got %d", len(w.Regions))
	}
	if w.Selected != 0 {
		t.Fatalf("expected selection to start at 0, got %d", w.Selected)
	}
	want := []layout.Rect{
		{X: 2, Y: 2, Width: 196, Height: 296},
		{X: 202, Y: 2, Width: 196, Height: 296},
	}
	got := []layout.Rect{w.Regions[0].Rect, w.Regions[1].Rect}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("region rects mismatch (-want +got):\n%s", diff)
	}
	surface := conn.Surface(w.Handle)
	if surface.Maps() != 2 {
		t.Fatalf("expected a redraw per add, got %d", surface.Maps())
	}
	if diff := cmp.Diff([]string{"one", "two"}, surface.Texts()); diff != "" {
		t.Fatalf("drawn labels mismatch (-want +got):\n%s", diff)
	}
}

func TestResizeRecomputes(t *testing.T) {
	reg, _ := newTestRegistry(t)
	w := mustCreate(t, reg, "foo", layout.Horizontal)
	reg.AddRegion(w, "a")
	reg.Resize(w, 100, 50)
	if got := w.Regions[0].Rect; got != (layout.Rect{X: 2, Y: 2, Width: 96, Height: 46}) {
		t.Fatalf("unexpected rect after resize: %+v", got)
	}
}

func TestDestroyWindowPositions(t *testing.T) {
	for _, victim := range []int{0, 1, 2} {
		reg, conn := newTestRegistry(t)
		var windows []*Window
		for _, name := range []string{"a", "b", "c"} {
			windows = append(windows, mustCreate(t, reg, name, layout.Horizontal))
		}
		target := windows[victim]
		if !reg.DestroyWindow(target.Handle) {
			t.Fatalf("victim %d: expected destroy to succeed", victim)
		}
		if !conn.Surface(target.Handle).Freed() {
			t.Fatalf("victim %d: expected surface to be freed", victim)
		}
		var names []string
		for _, w := range reg.Windows() {
			names = append(names, w.Name)
		}
		want := []string{"a", "b", "c"}
		want = append(want[:victim:victim], want[victim+1:]...)
		if diff := cmp.Diff(want, names); diff != "" {
			t.Fatalf("victim %d: order mismatch (-want +got):\n%s", victim, diff)
		}
	}
}

func TestDestroyUnknownHandleIsNoop(t *testing.T) {
	reg, _ := newTestRegistry(t)
	mustCreate(t, reg, "a", layout.Horizontal)
	if reg.DestroyWindow(display.Handle(42)) {
		t.Fatalf("expected unknown handle to be ignored")
	}
	if reg.Len() != 1 {
		t.Fatalf("expected registry to be unchanged")
	}
}

func TestDestroyFocusedClearsFocus(t *testing.T) {
	reg, _ := newTestRegistry(t)
	w := mustCreate(t, reg, "a", layout.Horizontal)
	reg.Focus(w.Handle)
	reg.DestroyWindow(w.Handle)
	if _, ok := reg.Focused(); ok {
		t.Fatalf("expected focus to be cleared with the window")
	}
	if reg.ToggleSelection(1) {
		t.Fatalf("expected toggle without focus to be a no-op")
	}
}

func TestToggleSelectionWrapsBothWays(t *testing.T) {
	reg, _ := newTestRegistry(t)
	w := mustCreate(t, reg, "a", layout.Horizontal)
	reg.Focus(w.Handle)

	if reg.ToggleSelection(1) {
		t.Fatalf("expected toggle on empty window to be a no-op")
	}

	const n = 5
	for i := 0; i < n; i++ {
		reg.AddRegion(w, "r")
	}
	for start := 0; start < n; start++ {
		w.Selected = start
		seen := map[int]bool{}
		for i := 0; i < n; i++ {
			reg.ToggleSelection(1)
			seen[w.Selected] = true
		}
		if w.Selected != start {
			t.Fatalf("forward: expected to return to %d after %d steps, got %d", start, n, w.Selected)
		}
		if len(seen) != n {
			t.Fatalf("forward: expected to visit all %d regions, visited %d", n, len(seen))
		}
		for i := 0; i < n; i++ {
			reg.ToggleSelection(-1)
		}
		if w.Selected != start {
			t.Fatalf("backward: expected to return to %d, got %d", start, w.Selected)
		}
	}

	w.Selected = 0
	reg.ToggleSelection(-1)
	if w.Selected != n-1 {
		t.Fatalf("expected wrap from 0 to %d, got %d", n-1, w.Selected)
	}
}

func TestCreateWindowTruncatesName(t *testing.T) {
	reg, _ := newTestRegistry(t)
	long := strings.Repeat("é", 200)
	w, err := reg.CreateWindow(long, long, layout.Horizontal)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(w.Name) > MaxNameLen || len(w.Name) != 254 {
		t.Fatalf("expected name cut to 254 bytes on a rune boundary, got %d", len(w.Name))
	}
	if _, ok := reg.FindByName(long); !ok {
		t.Fatalf("expected lookup by the untruncated name to match")
	}
}

func TestCloseReleasesEverything(t *testing.T) {
	reg, conn := newTestRegistry(t)
	a := mustCreate(t, reg, "a", layout.Horizontal)
	b := mustCreate(t, reg, "b", layout.Horizontal)
	reg.Close()
	if reg.Len() != 0 {
		t.Fatalf("expected empty registry after close")
	}
	if !conn.Surface(a.Handle).Freed() || !conn.Surface(b.Handle).Freed() {
		t.Fatalf("expected all surfaces freed")
	}
}
