package layout

// Rect is a region in window-local pixels.
type Rect struct {
	X      int
	Y      int
	Width  int
	Height int
}

// Mode selects how a window stacks its regions.
type Mode int

const (
	// Horizontal stacks regions as full-width bands, top to bottom.
	Horizontal Mode = iota
	// Vertical places regions as full-height columns, left to right.
	Vertical
)

func (m Mode) String() string {
	if m == Vertical {
		return "vertical"
	}
	return "horizontal"
}

// Recompute divides bounds into n equal slots along the mode's axis and returns
// one rectangle per slot, each inset by border on all sides. Integer division
// truncates and the last slot absorbs no remainder.
func Recompute(bounds Rect, mode Mode, n int, border int) []Rect {
	if n <= 0 {
		return nil
	}
	rects := make([]Rect, n)
	switch mode {
	case Vertical:
		step := bounds.Width / n
		for i := range rects {
			rects[i] = Inset(Rect{
				X:      bounds.X + i*step,
				Y:      bounds.Y,
				Width:  step,
				Height: bounds.Height,
			}, border)
		}
	default:
		step := bounds.Height / n
		for i := range rects {
			rects[i] = Inset(Rect{
				X:      bounds.X,
				Y:      bounds.Y + i*step,
				Width:  bounds.Width,
				Height: step,
			}, border)
		}
	}
	return rects
}

// Inset shrinks r by d on every side, clamping the size at zero.
func Inset(r Rect, d int) Rect {
	r.X += d
	r.Y += d
	r.Width -= d * 2
	r.Height -= d * 2
	if r.Width < 0 {
		r.Width = 0
	}
	if r.Height < 0 {
		r.Height = 0
	}
	return r
}

// Contains reports whether inner lies entirely within outer.
func Contains(outer, inner Rect) bool {
	return inner.X >= outer.X && inner.Y >= outer.Y &&
		inner.X+inner.Width <= outer.X+outer.Width &&
		inner.Y+inner.Height <= outer.Y+outer.Height
}

// Overlaps reports whether a and b share any pixel.
func Overlaps(a, b Rect) bool {
	if a.Width == 0 || a.Height == 0 || b.Width == 0 || b.Height == 0 {
		return false
	}
	return a.X < b.X+b.Width && b.X < a.X+a.Width &&
		a.Y < b.Y+b.Height && b.Y < a.Y+a.Height
}

// HasPoint reports whether (x, y) falls inside r.
func (r Rect) HasPoint(x, y int) bool {
	return x >= r.X && y >= r.Y && x < r.X+r.Width && y < r.Y+r.Height
}
