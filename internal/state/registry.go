package state

import (
	"fmt"
	"unicode/utf8"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/swtk/swt/internal/display"
	"github.com/swtk/swt/internal/layout"
	"github.com/swtk/swt/internal/util"
)

// MaxNameLen bounds window names and titles in bytes. Longer input is cut at
// the last rune boundary that fits.
const MaxNameLen = 255

// Region is a text cell inside a window.
type Region struct {
	Label string
	Rect  layout.Rect
}

// Window is a top-level surface and the regions it owns.
type Window struct {
	id       uint64
	Handle   display.Handle
	Name     string
	Title    string
	Mode     layout.Mode
	Bounds   layout.Rect
	Regions  []*Region
	Selected int

	surface display.Surface
	schemes layout.Schemes
}

// Labels returns the region labels in order.
func (w *Window) Labels() []string {
	labels := make([]string, len(w.Regions))
	for i, r := range w.Regions {
		labels[i] = r.Label
	}
	return labels
}

// Options tunes new windows.
type Options struct {
	Border  int
	Size    layout.Rect
	Schemes layout.Schemes
}

// Registry owns every live window. It is not safe for concurrent use; the
// engine loop is its only caller.
type Registry struct {
	conn    display.Conn
	logger  *util.Logger
	opts    Options
	nextID  uint64
	windows *orderedmap.OrderedMap[uint64, *Window]

	focused    display.Handle
	hasFocused bool
}

// NewRegistry creates an empty registry drawing through conn.
func NewRegistry(conn display.Conn, logger *util.Logger, opts Options) *Registry {
	if opts.Size.Width <= 0 || opts.Size.Height <= 0 {
		opts.Size = layout.Rect{Width: 640, Height: 480}
	}
	return &Registry{
		conn:    conn,
		logger:  logger,
		opts:    opts,
		windows: orderedmap.New[uint64, *Window](),
	}
}

// Len returns the number of live windows.
func (r *Registry) Len() int {
	return r.windows.Len()
}

// Windows returns the live windows in creation order.
func (r *Registry) Windows() []*Window {
	out := make([]*Window, 0, r.windows.Len())
	for pair := r.windows.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Value)
	}
	return out
}

// CreateWindow creates, maps and registers a new empty window.
func (r *Registry) CreateWindow(name, title string, mode layout.Mode) (*Window, error) {
	name = Truncate(name, MaxNameLen)
	title = Truncate(title, MaxNameLen)
	bounds := layout.Rect{Width: r.opts.Size.Width, Height: r.opts.Size.Height}
	handle, err := r.conn.CreateWindow(display.WindowSpec{Name: name, Title: title, Size: bounds})
	if err != nil {
		return nil, fmt.Errorf("create window %q: %w", name, err)
	}
	screen := r.conn.Screen()
	surface, err := r.conn.NewSurface(handle, screen.Width, screen.Height)
	if err != nil {
		return nil, fmt.Errorf("create surface for %q: %w", name, err)
	}
	r.nextID++
	w := &Window{
		id:       r.nextID,
		Handle:   handle,
		Name:     name,
		Title:    title,
		Mode:     mode,
		Bounds:   bounds,
		Selected: -1,
		surface:  surface,
		schemes:  r.opts.Schemes,
	}
	r.windows.Set(w.id, w)
	r.recompute(w)
	r.logger.Debugf("created window %q handle=%d mode=%s", name, handle, mode)
	return w, nil
}

// FindByHandle resolves a native handle to its window.
func (r *Registry) FindByHandle(h display.Handle) (*Window, bool) {
	for pair := r.windows.Oldest(); pair != nil; pair = pair.Next() {
		if pair.Value.Handle == h {
			return pair.Value, true
		}
	}
	return nil, false
}

// FindByName returns the first window created with name. Later windows that
// share the name are only reachable by handle.
func (r *Registry) FindByName(name string) (*Window, bool) {
	name = Truncate(name, MaxNameLen)
	for pair := r.windows.Oldest(); pair != nil; pair = pair.Next() {
		if pair.Value.Name == name {
			return pair.Value, true
		}
	}
	return nil, false
}

// AddRegion appends a text region to w, lays the window out again and redraws.
func (r *Registry) AddRegion(w *Window, label string) *Region {
	region := &Region{Label: label}
	w.Regions = append(w.Regions, region)
	if w.Selected < 0 {
		w.Selected = 0
	}
	r.recompute(w)
	r.Redraw(w)
	return region
}

// Resize records a new window size, recomputes the layout and redraws.
func (r *Registry) Resize(w *Window, width, height int) {
	w.Bounds.Width = width
	w.Bounds.Height = height
	r.recompute(w)
	r.Redraw(w)
}

// DestroyWindow drops the window with handle h and releases its resources.
// Unknown handles are ignored.
func (r *Registry) DestroyWindow(h display.Handle) bool {
	w, ok := r.FindByHandle(h)
	if !ok {
		return false
	}
	r.windows.Delete(w.id)
	r.release(w)
	if r.hasFocused && r.focused == h {
		r.hasFocused = false
		r.focused = 0
	}
	r.logger.Debugf("destroyed window %q handle=%d", w.Name, h)
	return true
}

// Focus records h as the focused window.
func (r *Registry) Focus(h display.Handle) {
	r.focused = h
	r.hasFocused = true
}

// Focused returns the focused window, if it is still live.
func (r *Registry) Focused() (*Window, bool) {
	if !r.hasFocused {
		return nil, false
	}
	return r.FindByHandle(r.focused)
}

// ToggleSelection moves the focused window's selection by dir (+1 or -1),
// wrapping at both ends.
func (r *Registry) ToggleSelection(dir int) bool {
	w, ok := r.Focused()
	if !ok {
		return false
	}
	n := len(w.Regions)
	if n == 0 {
		return false
	}
	next := w.Selected + dir
	switch {
	case next >= n:
		next = 0
	case next < 0:
		next = n - 1
	}
	w.Selected = next
	r.Redraw(w)
	return true
}

// SetSchemes replaces the color schemes of every window and repaints them.
func (r *Registry) SetSchemes(schemes layout.Schemes) {
	r.opts.Schemes = schemes
	for pair := r.windows.Oldest(); pair != nil; pair = pair.Next() {
		pair.Value.schemes = schemes
		r.Redraw(pair.Value)
	}
}

// Redraw paints w from its current layout.
func (r *Registry) Redraw(w *Window) {
	plan := layout.PaintWindow(w.Bounds, regionRects(w), w.Labels(), w.Selected, w.schemes)
	if err := plan.Execute(w.surface); err != nil {
		r.logger.Warnf("redraw %q: %v", w.Name, err)
	}
}

// Close releases every window.
func (r *Registry) Close() {
	for pair := r.windows.Oldest(); pair != nil; pair = pair.Next() {
		r.release(pair.Value)
	}
	r.windows = orderedmap.New[uint64, *Window]()
	r.hasFocused = false
}

func (r *Registry) recompute(w *Window) {
	rects := layout.Recompute(w.Bounds, w.Mode, len(w.Regions), r.opts.Border)
	for i, rect := range rects {
		w.Regions[i].Rect = rect
	}
}

func (r *Registry) release(w *Window) {
	if w.surface != nil {
		w.surface.Free()
		w.surface = nil
	}
}

func regionRects(w *Window) []layout.Rect {
	rects := make([]layout.Rect, len(w.Regions))
	for i, region := range w.Regions {
		rects[i] = region.Rect
	}
	return rects
}

// Truncate cuts s to at most max bytes without splitting a rune.
func Truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
