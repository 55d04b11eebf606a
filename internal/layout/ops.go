package layout

import "fmt"

// Color is an opaque 24-bit RGB value.
type Color struct {
	R, G, B uint8
}

// Hex renders the color as #rrggbb.
func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// Pixel packs the color as 0xRRGGBB, the layout TrueColor visuals expect.
func (c Color) Pixel() uint32 {
	return uint32(c.R)<<16 | uint32(c.G)<<8 | uint32(c.B)
}

// Scheme is a border/background/foreground triple.
type Scheme struct {
	Border Color
	Bg     Color
	Fg     Color
}

// Schemes holds the two static schemes a window paints with.
type Schemes struct {
	Normal   Scheme
	Selected Scheme
}

// Surface is the rendering capability a window paints into.
type Surface interface {
	Fill(r Rect, c Color)
	Outline(r Rect, c Color)
	Text(r Rect, text string, fg, bg Color)
	// Map copies the painted area to the native window.
	Map(r Rect) error
}

// OpKind enumerates paint operations.
type OpKind int

const (
	OpFill OpKind = iota
	OpOutline
	OpText
)

// Op is a single paint operation.
type Op struct {
	Kind OpKind
	Rect Rect
	Text string
	Fg   Color
	Bg   Color
}

// Plan is an ordered list of paint operations followed by a map of Bounds.
type Plan struct {
	Bounds Rect
	Ops    []Op
}

// Add appends an operation.
func (p *Plan) Add(op Op) {
	p.Ops = append(p.Ops, op)
}

// Merge appends the operations of other.
func (p *Plan) Merge(other Plan) {
	p.Ops = append(p.Ops, other.Ops...)
}

// PaintRegion draws one text cell with the given scheme.
func PaintRegion(r Rect, label string, s Scheme) Plan {
	var p Plan
	p.Add(Op{Kind: OpFill, Rect: r, Bg: s.Bg})
	p.Add(Op{Kind: OpOutline, Rect: r, Fg: s.Border})
	p.Add(Op{Kind: OpText, Rect: r, Text: label, Fg: s.Fg, Bg: s.Bg})
	return p
}

// PaintWindow clears bounds and draws every region, using the selected scheme
// for the region at index selected.
func PaintWindow(bounds Rect, rects []Rect, labels []string, selected int, schemes Schemes) Plan {
	p := Plan{Bounds: bounds}
	p.Add(Op{Kind: OpFill, Rect: bounds, Bg: schemes.Normal.Bg})
	for i, r := range rects {
		scheme := schemes.Normal
		if i == selected {
			scheme = schemes.Selected
		}
		label := ""
		if i < len(labels) {
			label = labels[i]
		}
		p.Merge(PaintRegion(r, label, scheme))
	}
	return p
}

// Execute applies the plan to s and maps the result.
func (p Plan) Execute(s Surface) error {
	if s == nil {
		return fmt.Errorf("paint: no surface")
	}
	for _, op := range p.Ops {
		switch op.Kind {
		case OpFill:
			s.Fill(op.Rect, op.Bg)
		case OpOutline:
			s.Outline(op.Rect, op.Fg)
		case OpText:
			s.Text(op.Rect, op.Text, op.Fg, op.Bg)
		}
	}
	if err := s.Map(p.Bounds); err != nil {
		return fmt.Errorf("map %dx%d: %w", p.Bounds.Width, p.Bounds.Height, err)
	}
	return nil
}
