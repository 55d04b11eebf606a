// Package displaytest provides an in-memory display.Conn for tests.
package displaytest

import (
	"context"
	"fmt"
	"sync"

	"github.com/swtk/swt/internal/display"
	"github.com/swtk/swt/internal/layout"
)

// Conn records everything the engine asks of the windowing system and lets
// tests inject event batches.
type Conn struct {
	mu        sync.Mutex
	screen    layout.Rect
	next      display.Handle
	created   []display.WindowSpec
	handles   []display.Handle
	destroyed []display.Handle
	surfaces  map[display.Handle]*Surface
	events    chan []display.Event
	closed    bool

	// FailCreate makes CreateWindow fail when set.
	FailCreate error
}

// New returns a fake connection with a 1024x768 screen.
func New() *Conn {
	return &Conn{
		screen:   layout.Rect{Width: 1024, Height: 768},
		next:     0x200001,
		surfaces: make(map[display.Handle]*Surface),
		events:   make(chan []display.Event, 16),
	}
}

func (c *Conn) Screen() layout.Rect { return c.screen }

func (c *Conn) CreateWindow(spec display.WindowSpec) (display.Handle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.FailCreate != nil {
		return 0, c.FailCreate
	}
	h := c.next
	c.next++
	c.created = append(c.created, spec)
	c.handles = append(c.handles, h)
	return h, nil
}

func (c *Conn) NewSurface(h display.Handle, width, height int) (display.Surface, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := &Surface{Width: width, Height: height}
	c.surfaces[h] = s
	return s, nil
}

func (c *Conn) DestroyWindow(h display.Handle) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, known := range c.handles {
		if known == h {
			c.destroyed = append(c.destroyed, h)
			return nil
		}
	}
	return fmt.Errorf("unknown window %#x", uint32(h))
}

func (c *Conn) Events(ctx context.Context) (<-chan []display.Event, error) {
	return c.events, nil
}

func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

// Push queues one batch of events.
func (c *Conn) Push(batch ...display.Event) {
	c.events <- batch
}

// Pending returns how many pushed batches the consumer has not received yet.
func (c *Conn) Pending() int {
	return len(c.events)
}

// Created returns the specs passed to CreateWindow, in order.
func (c *Conn) Created() []display.WindowSpec {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]display.WindowSpec(nil), c.created...)
}

// Handles returns the handles handed out, in order.
func (c *Conn) Handles() []display.Handle {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]display.Handle(nil), c.handles...)
}

// DestroyRequests returns handles passed to DestroyWindow.
func (c *Conn) DestroyRequests() []display.Handle {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]display.Handle(nil), c.destroyed...)
}

// Surface returns the last surface allocated for h.
func (c *Conn) Surface(h display.Handle) *Surface {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.surfaces[h]
}

// Closed reports whether Close was called.
func (c *Conn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Surface counts paint calls and remembers the last texts drawn.
type Surface struct {
	mu     sync.Mutex
	Width  int
	Height int
	maps   int
	texts  []string
	frame  []string
	freed  bool
}

func (s *Surface) Fill(layout.Rect, layout.Color)    {}
func (s *Surface) Outline(layout.Rect, layout.Color) {}

func (s *Surface) Text(_ layout.Rect, text string, _, _ layout.Color) {
	s.mu.Lock()
	s.frame = append(s.frame, text)
	s.mu.Unlock()
}

func (s *Surface) Map(layout.Rect) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.freed {
		return fmt.Errorf("surface freed")
	}
	s.maps++
	s.texts = s.frame
	s.frame = nil
	return nil
}

func (s *Surface) Free() {
	s.mu.Lock()
	s.freed = true
	s.mu.Unlock()
}

// Maps returns how many frames were mapped.
func (s *Surface) Maps() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.maps
}

// Texts returns the labels drawn in the last mapped frame.
func (s *Surface) Texts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.texts...)
}

// Freed reports whether Free was called.
func (s *Surface) Freed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.freed
}

var _ display.Conn = (*Conn)(nil)
