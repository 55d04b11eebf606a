package term

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/google/go-cmp/cmp"

	"github.com/swtk/swt/internal/display"
	"github.com/swtk/swt/internal/layout"
	"github.com/swtk/swt/internal/util"
)

type fakeScreen struct {
	mu      sync.Mutex
	width   int
	height  int
	content map[[2]int]rune
	wakes   int
}

func newFakeScreen(width, height int) *fakeScreen {
	return &fakeScreen{width: width, height: height, content: make(map[[2]int]rune)}
}

func (f *fakeScreen) Size() (int, int) { return f.width, f.height }

func (f *fakeScreen) SetContent(x, y int, mainc rune, _ []rune, _ tcell.Style) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.content[[2]int{x, y}] = mainc
}

func (f *fakeScreen) Show() {}

func (f *fakeScreen) Clear() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.content = make(map[[2]int]rune)
}

func (f *fakeScreen) PollEvent() tcell.Event { return nil }

func (f *fakeScreen) PostEvent(ev tcell.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.wakes++
	return nil
}

func (f *fakeScreen) Fini() {}

func (f *fakeScreen) row(y, from, to int) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]rune, 0, to-from)
	for x := from; x < to; x++ {
		if r, ok := f.content[[2]int{x, y}]; ok {
			out = append(out, r)
		}
	}
	return string(out)
}

func TestCreateWindowTilesColumns(t *testing.T) {
	scr := newFakeScreen(80, 24)
	c := newConn(scr, util.Discard())

	first, err := c.CreateWindow(display.WindowSpec{Name: "a", Title: "alpha"})
	if err != nil {
		t.Fatalf("CreateWindow: %v", err)
	}
	second, err := c.CreateWindow(display.WindowSpec{Name: "b", Title: "beta"})
	if err != nil {
		t.Fatalf("CreateWindow: %v", err)
	}

	want := []display.Event{
		display.FocusEvent{Window: second},
		display.ConfigureEvent{Window: first, Width: 40, Height: 23},
		display.ConfigureEvent{Window: second, Width: 40, Height: 23},
		display.ExposeEvent{Window: first, Last: true},
		display.ExposeEvent{Window: second, Last: true},
	}
	batches := c.takePending()
	if len(batches) != 2 || scr.wakes != 2 {
		t.Fatalf("expected two queued batches and wake-ups, got %d and %d", len(batches), scr.wakes)
	}
	if diff := cmp.Diff(want, batches[1]); diff != "" {
		t.Fatalf("unexpected events (-want +got):\n%s", diff)
	}
	if got := scr.row(0, 40, 45); got != "beta " {
		t.Fatalf("expected title bar for second window, got %q", got)
	}
}

func TestCreateManyWindowsWhilePumpIsBusy(t *testing.T) {
	scr := tcell.NewSimulationScreen("")
	if err := scr.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	scr.SetSize(400, 24)
	c := newConn(scr, util.Discard())
	ctx, cancel := context.WithCancel(context.Background())
	defer c.Close()
	defer cancel()

	events, err := c.Events(ctx)
	if err != nil {
		t.Fatalf("Events: %v", err)
	}
	// Nothing reads events while the windows are created, so every
	// notification has to wait in the connection.
	const n = 50
	for i := 0; i < n; i++ {
		if _, err := c.CreateWindow(display.WindowSpec{Name: "w", Title: "w"}); err != nil {
			t.Fatalf("CreateWindow #%d: %v", i+1, err)
		}
	}

	var focused []display.Handle
	timeout := time.After(2 * time.Second)
	for len(focused) < n {
		select {
		case batch, ok := <-events:
			if !ok {
				t.Fatalf("events closed after %d windows", len(focused))
			}
			if f, ok := batch[0].(display.FocusEvent); ok {
				focused = append(focused, f.Window)
			}
		case <-timeout:
			t.Fatalf("received %d of %d creation batches", len(focused), n)
		}
	}
	for i, h := range focused {
		if h != display.Handle(i+1) {
			t.Fatalf("creation batch %d focused window %d", i, h)
		}
	}
}

func TestSurfaceBlitsIntoClientArea(t *testing.T) {
	scr := newFakeScreen(40, 10)
	c := newConn(scr, util.Discard())
	h, err := c.CreateWindow(display.WindowSpec{Name: "a", Title: "alpha"})
	if err != nil {
		t.Fatalf("CreateWindow: %v", err)
	}
	s, err := c.NewSurface(h, 40, 10)
	if err != nil {
		t.Fatalf("NewSurface: %v", err)
	}

	region := layout.Rect{X: 0, Y: 0, Width: 10, Height: 3}
	s.Fill(region, layout.Color{})
	s.Outline(region, layout.Color{R: 0xff})
	s.Text(region, "hello world", layout.Color{R: 0xff}, layout.Color{})
	if err := s.Map(layout.Rect{Width: 40, Height: 9}); err != nil {
		t.Fatalf("Map: %v", err)
	}

	if got := scr.row(1, 0, 10); got != "┌────────┐" {
		t.Fatalf("unexpected top border %q", got)
	}
	if got := scr.row(2, 0, 10); got != "│hello w…│" {
		t.Fatalf("unexpected text row %q", got)
	}

	s.Free()
	if err := s.Map(layout.Rect{Width: 1, Height: 1}); err == nil {
		t.Fatalf("expected Map after Free to fail")
	}
}

func TestClickFocusesWindow(t *testing.T) {
	scr := newFakeScreen(80, 24)
	c := newConn(scr, util.Discard())
	first, _ := c.CreateWindow(display.WindowSpec{Title: "a"})
	second, _ := c.CreateWindow(display.WindowSpec{Title: "b"})

	got := c.click(5, 5, tcell.Button1, 0)
	want := []display.Event{
		display.FocusEvent{Window: first},
		display.ButtonEvent{Window: first, Button: 1},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected click events (-want +got):\n%s", diff)
	}
	if got := c.click(5, 5, tcell.Button1, 0); got != nil {
		t.Fatalf("expected a held button not to repeat, got %v", got)
	}
	c.click(5, 5, tcell.ButtonNone, 0)
	got = c.click(50, 5, tcell.WheelDown, display.ModCtrl)
	want = []display.Event{display.ButtonEvent{Window: second, Mods: display.ModCtrl, Button: 5}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected wheel events (-want +got):\n%s", diff)
	}
}

func TestDestroyWindowMovesFocus(t *testing.T) {
	scr := newFakeScreen(80, 24)
	c := newConn(scr, util.Discard())
	first, _ := c.CreateWindow(display.WindowSpec{Title: "a"})
	second, _ := c.CreateWindow(display.WindowSpec{Title: "b"})

	if err := c.DestroyWindow(second); err != nil {
		t.Fatalf("DestroyWindow: %v", err)
	}
	want := []display.Event{
		display.DestroyEvent{Window: second},
		display.FocusEvent{Window: first},
		display.ConfigureEvent{Window: first, Width: 80, Height: 23},
		display.ExposeEvent{Window: first, Last: true},
	}
	batches := c.takePending()
	if diff := cmp.Diff(want, batches[len(batches)-1]); diff != "" {
		t.Fatalf("unexpected events (-want +got):\n%s", diff)
	}
	if err := c.DestroyWindow(second); err == nil {
		t.Fatalf("expected unknown window to fail")
	}
}

func TestTranslateKey(t *testing.T) {
	tests := []struct {
		ev   *tcell.EventKey
		key  string
		mods display.Modifier
	}{
		{tcell.NewEventKey(tcell.KeyCtrlQ, 0, tcell.ModCtrl), "q", display.ModCtrl},
		{tcell.NewEventKey(tcell.KeyRune, 'j', tcell.ModNone), "j", 0},
		{tcell.NewEventKey(tcell.KeyTab, 0, tcell.ModNone), "Tab", 0},
		{tcell.NewEventKey(tcell.KeyRune, 'k', tcell.ModAlt), "k", display.ModAlt},
	}
	for _, tt := range tests {
		key, mods, ok := translateKey(tt.ev)
		if !ok || key != tt.key || mods != tt.mods {
			t.Fatalf("translateKey(%v) = %q %v %v, want %q %v", tt.ev.Name(), key, mods, ok, tt.key, tt.mods)
		}
	}
}
