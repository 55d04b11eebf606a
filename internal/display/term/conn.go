// Package term implements the windowing connection on a terminal. Windows
// tile the screen as columns, each with a one-line title bar; clicking a
// window focuses it.
package term

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/gdamore/tcell/v2"

	"github.com/swtk/swt/internal/display"
	"github.com/swtk/swt/internal/layout"
	"github.com/swtk/swt/internal/util"
)

// screen is the subset of tcell.Screen the connection drives.
type screen interface {
	Size() (int, int)
	SetContent(x, y int, mainc rune, combc []rune, style tcell.Style)
	Show()
	Clear()
	PollEvent() tcell.Event
	PostEvent(ev tcell.Event) error
	Fini()
}

type window struct {
	handle display.Handle
	title  string
	tile   layout.Rect
	// surface is the last surface allocated for the window, if any.
	surface *Surface
}

// Conn tiles toolkit windows on a terminal screen.
type Conn struct {
	mu      sync.Mutex
	scr     screen
	logger  *util.Logger
	next    display.Handle
	windows []*window
	focused display.Handle
	buttons tcell.ButtonMask
	// pending holds window-system batches not yet handed to the pump.
	pending [][]display.Event
}

// Open initialises the controlling terminal.
func Open(logger *util.Logger) (*Conn, error) {
	scr, err := tcell.NewScreen()
	if err != nil {
		return nil, fmt.Errorf("create terminal screen: %w", err)
	}
	if err := scr.Init(); err != nil {
		return nil, fmt.Errorf("init terminal screen: %w", err)
	}
	scr.EnableMouse()
	return newConn(scr, logger), nil
}

func newConn(scr screen, logger *util.Logger) *Conn {
	return &Conn{scr: scr, logger: logger, next: 1}
}

func (c *Conn) Screen() layout.Rect {
	w, h := c.scr.Size()
	return layout.Rect{Width: w, Height: h}
}

// CreateWindow adds a column and focuses it. The requested size is
// superseded by the tile, reported through a Configure event.
func (c *Conn) CreateWindow(spec display.WindowSpec) (display.Handle, error) {
	c.mu.Lock()
	h := c.next
	c.next++
	c.windows = append(c.windows, &window{handle: h, title: spec.Title})
	c.focused = h
	c.pending = append(c.pending, append([]display.Event{display.FocusEvent{Window: h}}, c.retileLocked()...))
	c.mu.Unlock()
	c.wake()
	return h, nil
}

func (c *Conn) NewSurface(h display.Handle, width, height int) (display.Surface, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	w := c.find(h)
	if w == nil {
		return nil, fmt.Errorf("unknown window %d", h)
	}
	s := newSurface(c, h, width, height)
	w.surface = s
	return s, nil
}

// DestroyWindow removes the column and reports it destroyed. Focus moves to
// the first remaining window.
func (c *Conn) DestroyWindow(h display.Handle) error {
	c.mu.Lock()
	idx := slices.IndexFunc(c.windows, func(w *window) bool { return w.handle == h })
	if idx < 0 {
		c.mu.Unlock()
		return fmt.Errorf("unknown window %d", h)
	}
	c.windows = slices.Delete(c.windows, idx, idx+1)
	batch := []display.Event{display.DestroyEvent{Window: h}}
	if c.focused == h {
		c.focused = 0
		if len(c.windows) > 0 {
			c.focused = c.windows[0].handle
			batch = append(batch, display.FocusEvent{Window: c.focused})
		}
	}
	c.scr.Clear()
	c.pending = append(c.pending, append(batch, c.retileLocked()...))
	c.mu.Unlock()
	c.wake()
	return nil
}

// Events pumps window-system batches and terminal input until the screen is
// finalised. Batches queued by window operations go out before the next
// terminal event is read.
func (c *Conn) Events(ctx context.Context) (<-chan []display.Event, error) {
	out := make(chan []display.Event)
	go func() {
		defer close(out)
		for {
			for _, batch := range c.takePending() {
				select {
				case out <- batch:
				case <-ctx.Done():
					return
				}
			}
			ev := c.scr.PollEvent()
			if ev == nil {
				c.logger.Debugf("terminal screen finalised")
				return
			}
			batch := c.translate(ev)
			if len(batch) == 0 {
				continue
			}
			select {
			case out <- batch:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (c *Conn) Close() error {
	c.scr.Fini()
	return nil
}

// wake unblocks a pump waiting in PollEvent. A full queue already holds a
// wake-up, so the error is dropped.
func (c *Conn) wake() {
	_ = c.scr.PostEvent(tcell.NewEventInterrupt(nil))
}

func (c *Conn) takePending() [][]display.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	batches := c.pending
	c.pending = nil
	return batches
}

func (c *Conn) translate(ev tcell.Event) []display.Event {
	switch e := ev.(type) {
	case *tcell.EventInterrupt:
		return nil
	case *tcell.EventResize:
		c.mu.Lock()
		defer c.mu.Unlock()
		c.scr.Clear()
		return c.retileLocked()
	case *tcell.EventKey:
		key, mods, ok := translateKey(e)
		if !ok {
			return nil
		}
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.focused == 0 {
			return nil
		}
		return []display.Event{display.KeyEvent{Window: c.focused, Mods: mods, Key: key}}
	case *tcell.EventMouse:
		x, y := e.Position()
		return c.click(x, y, e.Buttons(), modifiers(e.Modifiers()))
	}
	return nil
}

// click reports newly pressed buttons. A primary press on an unfocused
// window focuses it first.
func (c *Conn) click(x, y int, buttons tcell.ButtonMask, mods display.Modifier) []display.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	pressed := buttons &^ c.buttons
	c.buttons = buttons
	if pressed == 0 {
		return nil
	}
	var target *window
	for _, w := range c.windows {
		if w.tile.HasPoint(x, y) {
			target = w
			break
		}
	}
	if target == nil {
		return nil
	}
	var batch []display.Event
	if pressed&tcell.Button1 != 0 && c.focused != target.handle {
		c.focused = target.handle
		batch = append(batch, display.FocusEvent{Window: target.handle})
		c.drawTitlesLocked()
	}
	for _, b := range buttonOrder {
		if pressed&b.mask != 0 {
			batch = append(batch, display.ButtonEvent{Window: target.handle, Mods: mods, Button: b.number})
		}
	}
	return batch
}

// retileLocked splits the screen into one column per window and returns
// the resulting configure and expose events.
func (c *Conn) retileLocked() []display.Event {
	tiles := layout.Recompute(c.Screen(), layout.Vertical, len(c.windows), 0)
	batch := make([]display.Event, 0, 2*len(c.windows))
	for i, w := range c.windows {
		w.tile = tiles[i]
		client := clientArea(w.tile)
		batch = append(batch, display.ConfigureEvent{Window: w.handle, Width: client.Width, Height: client.Height})
	}
	for _, w := range c.windows {
		batch = append(batch, display.ExposeEvent{Window: w.handle, Last: true})
	}
	c.drawTitlesLocked()
	return batch
}

func (c *Conn) drawTitlesLocked() {
	for _, w := range c.windows {
		style := tcell.StyleDefault.Reverse(true)
		if w.handle == c.focused {
			style = style.Bold(true)
		}
		drawLine(c.scr, w.tile.X, w.tile.Y, w.tile.Width, w.title, style)
	}
	c.scr.Show()
}

// blit copies a surface to its window's client area.
func (c *Conn) blit(s *Surface, r layout.Rect) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	w := c.find(s.handle)
	if w == nil {
		return fmt.Errorf("window %d is not mapped", s.handle)
	}
	client := clientArea(w.tile)
	for y := r.Y; y < r.Y+r.Height && y < client.Height && y < s.height; y++ {
		for x := r.X; x < r.X+r.Width && x < client.Width && x < s.width; x++ {
			cell := s.cells[y*s.width+x]
			c.scr.SetContent(client.X+x, client.Y+y, cell.r, nil, cell.style)
		}
	}
	c.scr.Show()
	return nil
}

func (c *Conn) find(h display.Handle) *window {
	for _, w := range c.windows {
		if w.handle == h {
			return w
		}
	}
	return nil
}

// clientArea is the tile below its title bar.
func clientArea(tile layout.Rect) layout.Rect {
	client := tile
	if client.Height > 0 {
		client.Y++
		client.Height--
	}
	return client
}

var _ display.Conn = (*Conn)(nil)
