package term

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"

	"github.com/swtk/swt/internal/display"
	"github.com/swtk/swt/internal/layout"
)

type cell struct {
	r     rune
	style tcell.Style
}

// Surface is an offscreen cell buffer, one cell per layout unit.
type Surface struct {
	conn   *Conn
	handle display.Handle
	width  int
	height int
	cells  []cell
	freed  bool
}

func newSurface(c *Conn, h display.Handle, width, height int) *Surface {
	s := &Surface{conn: c, handle: h, width: width, height: height, cells: make([]cell, width*height)}
	for i := range s.cells {
		s.cells[i] = cell{r: ' ', style: tcell.StyleDefault}
	}
	return s
}

func (s *Surface) at(x, y int) *cell {
	if s.freed || x < 0 || y < 0 || x >= s.width || y >= s.height {
		return nil
	}
	return &s.cells[y*s.width+x]
}

func (s *Surface) Fill(r layout.Rect, col layout.Color) {
	style := tcell.StyleDefault.Background(tcellColor(col))
	for y := r.Y; y < r.Y+r.Height; y++ {
		for x := r.X; x < r.X+r.Width; x++ {
			if c := s.at(x, y); c != nil {
				*c = cell{r: ' ', style: style}
			}
		}
	}
}

func (s *Surface) Outline(r layout.Rect, col layout.Color) {
	if r.Width < 2 || r.Height < 2 {
		return
	}
	fg := tcellColor(col)
	set := func(x, y int, ch rune) {
		if c := s.at(x, y); c != nil {
			c.r = ch
			c.style = c.style.Foreground(fg)
		}
	}
	right, bottom := r.X+r.Width-1, r.Y+r.Height-1
	for x := r.X + 1; x < right; x++ {
		set(x, r.Y, tcell.RuneHLine)
		set(x, bottom, tcell.RuneHLine)
	}
	for y := r.Y + 1; y < bottom; y++ {
		set(r.X, y, tcell.RuneVLine)
		set(right, y, tcell.RuneVLine)
	}
	set(r.X, r.Y, tcell.RuneULCorner)
	set(right, r.Y, tcell.RuneURCorner)
	set(r.X, bottom, tcell.RuneLLCorner)
	set(right, bottom, tcell.RuneLRCorner)
}

// Text writes text on the middle row of r, clipped to the inner width.
func (s *Surface) Text(r layout.Rect, text string, fg, bg layout.Color) {
	inner := r.Width - 2
	if inner <= 0 || r.Height <= 0 {
		return
	}
	style := tcell.StyleDefault.Foreground(tcellColor(fg)).Background(tcellColor(bg))
	text = runewidth.Truncate(text, inner, "…")
	x, y := r.X+1, r.Y+r.Height/2
	for _, ch := range text {
		w := runewidth.RuneWidth(ch)
		if c := s.at(x, y); c != nil {
			*c = cell{r: ch, style: style}
		}
		for i := 1; i < w; i++ {
			if c := s.at(x+i, y); c != nil {
				*c = cell{r: 0, style: style}
			}
		}
		x += max(w, 1)
	}
}

func (s *Surface) Map(r layout.Rect) error {
	if s.freed {
		return fmt.Errorf("surface for window %d already released", s.handle)
	}
	return s.conn.blit(s, r)
}

func (s *Surface) Free() {
	s.freed = true
	s.cells = nil
}

// Row returns the runes of row y, for inspection.
func (s *Surface) Row(y int) string {
	if s.freed || y < 0 || y >= s.height {
		return ""
	}
	out := make([]rune, 0, s.width)
	for _, c := range s.cells[y*s.width : (y+1)*s.width] {
		if c.r != 0 {
			out = append(out, c.r)
		}
	}
	return string(out)
}

func drawLine(scr screen, x, y, width int, text string, style tcell.Style) {
	text = runewidth.Truncate(text, width, "…")
	col := 0
	for _, ch := range text {
		scr.SetContent(x+col, y, ch, nil, style)
		col += max(runewidth.RuneWidth(ch), 1)
	}
	for ; col < width; col++ {
		scr.SetContent(x+col, y, ' ', nil, style)
	}
}

func tcellColor(c layout.Color) tcell.Color {
	return tcell.NewRGBColor(int32(c.R), int32(c.G), int32(c.B))
}
