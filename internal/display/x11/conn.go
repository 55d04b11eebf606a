// Package x11 implements the windowing connection on the X protocol.
package x11

import (
	"context"
	"fmt"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/icccm"
	"github.com/BurntSushi/xgbutil/keybind"

	"github.com/swtk/swt/internal/display"
	"github.com/swtk/swt/internal/layout"
	"github.com/swtk/swt/internal/util"
)

const (
	fallbackFont = "fixed"
	cursorFont   = "cursor"
	// XC_left_ptr in the standard cursor font.
	cursorLeftPtr = 68
)

const eventMask = xproto.EventMaskExposure |
	xproto.EventMaskKeyPress |
	xproto.EventMaskButtonPress |
	xproto.EventMaskStructureNotify |
	xproto.EventMaskFocusChange

// Conn is an X11 display connection with a loaded core font and cursor.
type Conn struct {
	xu     *xgbutil.XUtil
	screen *xproto.ScreenInfo
	logger *util.Logger

	font      xproto.Font
	ascent    int
	descent   int
	charWidth int
	cursor    xproto.Cursor
}

// Open connects to $DISPLAY and loads fontName, falling back to "fixed".
func Open(fontName string, logger *util.Logger) (*Conn, error) {
	xu, err := xgbutil.NewConn()
	if err != nil {
		return nil, fmt.Errorf("connect to X display: %w", err)
	}
	keybind.Initialize(xu)
	c := &Conn{xu: xu, screen: xu.Screen(), logger: logger}
	if err := c.openFont(fontName); err != nil {
		xu.Conn().Close()
		return nil, err
	}
	if err := c.createCursor(); err != nil {
		xu.Conn().Close()
		return nil, err
	}
	logger.Infof("connected to X display (%dx%d)", c.screen.WidthInPixels, c.screen.HeightInPixels)
	return c, nil
}

func (c *Conn) openFont(name string) error {
	conn := c.xu.Conn()
	for _, candidate := range []string{name, fallbackFont} {
		if candidate == "" {
			continue
		}
		fid, err := xproto.NewFontId(conn)
		if err != nil {
			return fmt.Errorf("allocate font id: %w", err)
		}
		if err := xproto.OpenFontChecked(conn, fid, uint16(len(candidate)), candidate).Check(); err != nil {
			c.logger.Warnf("cannot load font %q: %v", candidate, err)
			continue
		}
		info, err := xproto.QueryFont(conn, xproto.Fontable(fid)).Reply()
		if err != nil {
			return fmt.Errorf("query font %q: %w", candidate, err)
		}
		c.font = fid
		c.ascent = int(info.FontAscent)
		c.descent = int(info.FontDescent)
		c.charWidth = int(info.MaxBounds.CharacterWidth)
		if c.charWidth <= 0 {
			c.charWidth = 1
		}
		return nil
	}
	return fmt.Errorf("no usable font (tried %q and %q)", name, fallbackFont)
}

func (c *Conn) createCursor() error {
	conn := c.xu.Conn()
	fid, err := xproto.NewFontId(conn)
	if err != nil {
		return fmt.Errorf("allocate cursor font id: %w", err)
	}
	if err := xproto.OpenFontChecked(conn, fid, uint16(len(cursorFont)), cursorFont).Check(); err != nil {
		return fmt.Errorf("open cursor font: %w", err)
	}
	defer xproto.CloseFont(conn, fid)
	cid, err := xproto.NewCursorId(conn)
	if err != nil {
		return fmt.Errorf("allocate cursor id: %w", err)
	}
	err = xproto.CreateGlyphCursorChecked(conn, cid, fid, fid, cursorLeftPtr, cursorLeftPtr+1,
		0, 0, 0, 0xffff, 0xffff, 0xffff).Check()
	if err != nil {
		return fmt.Errorf("create cursor: %w", err)
	}
	c.cursor = cid
	return nil
}

func (c *Conn) Screen() layout.Rect {
	return layout.Rect{Width: int(c.screen.WidthInPixels), Height: int(c.screen.HeightInPixels)}
}

// CreateWindow creates a top-level window, sets its class hint and titles,
// and maps it.
func (c *Conn) CreateWindow(spec display.WindowSpec) (display.Handle, error) {
	conn := c.xu.Conn()
	wid, err := xproto.NewWindowId(conn)
	if err != nil {
		return 0, fmt.Errorf("allocate window id: %w", err)
	}
	err = xproto.CreateWindowChecked(conn, c.screen.RootDepth, wid, c.screen.Root,
		int16(spec.Size.X), int16(spec.Size.Y), uint16(spec.Size.Width), uint16(spec.Size.Height), 0,
		xproto.WindowClassInputOutput, c.screen.RootVisual,
		xproto.CwBackPixel|xproto.CwEventMask|xproto.CwCursor,
		[]uint32{c.screen.BlackPixel, eventMask, uint32(c.cursor)}).Check()
	if err != nil {
		return 0, fmt.Errorf("create window: %w", err)
	}
	if err := icccm.WmClassSet(c.xu, wid, &icccm.WmClass{Instance: display.ClassName, Class: spec.Name}); err != nil {
		c.logger.Warnf("set WM_CLASS on %d: %v", wid, err)
	}
	if err := icccm.WmNameSet(c.xu, wid, spec.Title); err != nil {
		c.logger.Warnf("set WM_NAME on %d: %v", wid, err)
	}
	if err := ewmh.WmNameSet(c.xu, wid, spec.Title); err != nil {
		c.logger.Debugf("set _NET_WM_NAME on %d: %v", wid, err)
	}
	if err := xproto.MapWindowChecked(conn, wid).Check(); err != nil {
		return 0, fmt.Errorf("map window: %w", err)
	}
	return display.Handle(wid), nil
}

// NewSurface allocates an offscreen pixmap and graphics context for h.
func (c *Conn) NewSurface(h display.Handle, width, height int) (display.Surface, error) {
	conn := c.xu.Conn()
	pid, err := xproto.NewPixmapId(conn)
	if err != nil {
		return nil, fmt.Errorf("allocate pixmap id: %w", err)
	}
	err = xproto.CreatePixmapChecked(conn, c.screen.RootDepth, pid, xproto.Drawable(h), uint16(width), uint16(height)).Check()
	if err != nil {
		return nil, fmt.Errorf("create pixmap: %w", err)
	}
	gid, err := xproto.NewGcontextId(conn)
	if err != nil {
		xproto.FreePixmap(conn, pid)
		return nil, fmt.Errorf("allocate gc id: %w", err)
	}
	err = xproto.CreateGCChecked(conn, gid, xproto.Drawable(pid),
		xproto.GcForeground|xproto.GcBackground|xproto.GcLineWidth|xproto.GcFont|xproto.GcGraphicsExposures,
		[]uint32{c.screen.WhitePixel, c.screen.BlackPixel, 1, uint32(c.font), 0}).Check()
	if err != nil {
		xproto.FreePixmap(conn, pid)
		return nil, fmt.Errorf("create gc: %w", err)
	}
	return &surface{conn: c, window: xproto.Window(h), pixmap: pid, gc: gid}, nil
}

func (c *Conn) DestroyWindow(h display.Handle) error {
	if err := xproto.DestroyWindowChecked(c.xu.Conn(), xproto.Window(h)).Check(); err != nil {
		return fmt.Errorf("destroy window %d: %w", h, err)
	}
	return nil
}

// Events pumps the X event queue. Each batch is one blocking wait followed by
// everything already queued behind it.
func (c *Conn) Events(ctx context.Context) (<-chan []display.Event, error) {
	out := make(chan []display.Event)
	conn := c.xu.Conn()
	lookup := func(state uint16, code xproto.Keycode) string {
		return keybind.LookupString(c.xu, state, code)
	}
	go func() {
		defer close(out)
		for {
			ev, xerr := conn.WaitForEvent()
			if ev == nil && xerr == nil {
				c.logger.Debugf("X connection closed")
				return
			}
			var batch []display.Event
			for ev != nil || xerr != nil {
				if xerr != nil {
					c.logger.Warnf("X error: %v", xerr)
				} else if de, ok := translate(ev, lookup); ok {
					batch = append(batch, de)
				}
				ev, xerr = conn.PollForEvent()
			}
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
	conn := c.xu.Conn()
	if c.cursor != 0 {
		xproto.FreeCursor(conn, c.cursor)
	}
	if c.font != 0 {
		xproto.CloseFont(conn, c.font)
	}
	conn.Close()
	return nil
}

var _ display.Conn = (*Conn)(nil)
