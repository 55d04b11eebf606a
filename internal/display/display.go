// Package display defines the windowing connection the engine drives and the
// native events it consumes. Backends live in subpackages.
package display

import (
	"context"
	"fmt"

	"github.com/swtk/swt/internal/layout"
)

// ClassName is the static class hint every window carries.
const ClassName = "swt"

// Handle is the opaque native identifier of a window.
type Handle uint32

// WindowSpec describes a window to create and map.
type WindowSpec struct {
	Name  string
	Title string
	Size  layout.Rect
}

// Surface is a rendering surface owned by one window. It bundles the backend's
// drawable, font, and cursor resources and is released with Free.
type Surface interface {
	layout.Surface
	Free()
}

// Conn is the single persistent connection to the windowing system.
type Conn interface {
	// Screen returns the physical display size.
	Screen() layout.Rect
	// CreateWindow creates and maps a native window with class hint and title set.
	CreateWindow(spec WindowSpec) (Handle, error)
	// NewSurface allocates a rendering surface of the given size for h.
	NewSurface(h Handle, width, height int) (Surface, error)
	// DestroyWindow asks the windowing system to close h. The caller learns of
	// the removal through a Destroy event.
	DestroyWindow(h Handle) error
	// Events streams batches of pending events until ctx is done. Every batch
	// holds everything that was queued when it was drained.
	Events(ctx context.Context) (<-chan []Event, error)
	Close() error
}

// Kind tags an Event variant.
type Kind int

const (
	KindFocus Kind = iota
	KindDestroy
	KindConfigure
	KindExpose
	KindKey
	KindButton
)

var kindNames = [...]string{
	KindFocus:     "focus",
	KindDestroy:   "destroy",
	KindConfigure: "configure",
	KindExpose:    "expose",
	KindKey:       "key",
	KindButton:    "button",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Event is a native event targeting a window.
type Event interface {
	Kind() Kind
	Target() Handle
}

// Modifier is a bitmask of held modifier keys.
type Modifier uint8

const (
	ModShift Modifier = 1 << iota
	ModCtrl
	ModAlt
	ModSuper
)

// FocusEvent reports that a window received input focus.
type FocusEvent struct{ Window Handle }

// DestroyEvent reports that a native window is gone.
type DestroyEvent struct{ Window Handle }

// ConfigureEvent reports a new window size.
type ConfigureEvent struct {
	Window        Handle
	Width, Height int
}

// ExposeEvent asks for a repaint. Last is set on the final expose of a series.
type ExposeEvent struct {
	Window Handle
	Last   bool
}

// KeyEvent is a key press, Key being the keysym name ("q", "Tab").
type KeyEvent struct {
	Window Handle
	Mods   Modifier
	Key    string
}

// ButtonEvent is a pointer button press, Button counting from 1.
type ButtonEvent struct {
	Window Handle
	Mods   Modifier
	Button int
}

func (FocusEvent) Kind() Kind     { return KindFocus }
func (DestroyEvent) Kind() Kind   { return KindDestroy }
func (ConfigureEvent) Kind() Kind { return KindConfigure }
func (ExposeEvent) Kind() Kind    { return KindExpose }
func (KeyEvent) Kind() Kind       { return KindKey }
func (ButtonEvent) Kind() Kind    { return KindButton }

func (e FocusEvent) Target() Handle     { return e.Window }
func (e DestroyEvent) Target() Handle   { return e.Window }
func (e ConfigureEvent) Target() Handle { return e.Window }
func (e ExposeEvent) Target() Handle    { return e.Window }
func (e KeyEvent) Target() Handle       { return e.Window }
func (e ButtonEvent) Target() Handle    { return e.Window }
