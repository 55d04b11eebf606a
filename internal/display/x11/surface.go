package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/xproto"

	"github.com/swtk/swt/internal/layout"
)

// surface paints into a pixmap and copies it to its window on Map.
type surface struct {
	conn   *Conn
	window xproto.Window
	pixmap xproto.Pixmap
	gc     xproto.Gcontext
	freed  bool
}

func (s *surface) Fill(r layout.Rect, col layout.Color) {
	if s.freed || r.Width <= 0 || r.Height <= 0 {
		return
	}
	conn := s.conn.xu.Conn()
	xproto.ChangeGC(conn, s.gc, xproto.GcForeground, []uint32{col.Pixel()})
	xproto.PolyFillRectangle(conn, xproto.Drawable(s.pixmap), s.gc, []xproto.Rectangle{xrect(r)})
}

func (s *surface) Outline(r layout.Rect, col layout.Color) {
	if s.freed || r.Width <= 1 || r.Height <= 1 {
		return
	}
	conn := s.conn.xu.Conn()
	xproto.ChangeGC(conn, s.gc, xproto.GcForeground, []uint32{col.Pixel()})
	// The protocol outlines width+1 by height+1 pixels.
	r.Width--
	r.Height--
	xproto.PolyRectangle(conn, xproto.Drawable(s.pixmap), s.gc, []xproto.Rectangle{xrect(r)})
}

func (s *surface) Text(r layout.Rect, text string, fg, bg layout.Color) {
	if s.freed || text == "" {
		return
	}
	lineHeight := s.conn.ascent + s.conn.descent
	pad := lineHeight / 2
	glyphs := clipLatin1(text, (r.Width-2*pad)/s.conn.charWidth)
	if len(glyphs) == 0 {
		return
	}
	conn := s.conn.xu.Conn()
	xproto.ChangeGC(conn, s.gc, xproto.GcForeground|xproto.GcBackground, []uint32{fg.Pixel(), bg.Pixel()})
	x := r.X + pad
	y := r.Y + (r.Height-lineHeight)/2 + s.conn.ascent
	xproto.ImageText8(conn, byte(len(glyphs)), xproto.Drawable(s.pixmap), s.gc, int16(x), int16(y), string(glyphs))
}

func (s *surface) Map(r layout.Rect) error {
	if s.freed {
		return fmt.Errorf("surface for window %d already released", s.window)
	}
	err := xproto.CopyAreaChecked(s.conn.xu.Conn(), xproto.Drawable(s.pixmap), xproto.Drawable(s.window), s.gc,
		int16(r.X), int16(r.Y), int16(r.X), int16(r.Y), uint16(r.Width), uint16(r.Height)).Check()
	if err != nil {
		return fmt.Errorf("copy to window %d: %w", s.window, err)
	}
	return nil
}

func (s *surface) Free() {
	if s.freed {
		return
	}
	s.freed = true
	conn := s.conn.xu.Conn()
	xproto.FreeGC(conn, s.gc)
	xproto.FreePixmap(conn, s.pixmap)
}

func xrect(r layout.Rect) xproto.Rectangle {
	return xproto.Rectangle{X: int16(r.X), Y: int16(r.Y), Width: uint16(r.Width), Height: uint16(r.Height)}
}

// clipLatin1 converts text to core font bytes, replacing runes outside
// Latin-1 with '?', and keeps at most max glyphs (255 at most).
func clipLatin1(text string, max int) []byte {
	if max > 255 {
		max = 255
	}
	if max <= 0 {
		return nil
	}
	out := make([]byte, 0, min(len(text), max))
	for _, r := range text {
		if len(out) == max {
			break
		}
		if r > 0xff {
			r = '?'
		}
		out = append(out, byte(r))
	}
	return out
}
