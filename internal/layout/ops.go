package layout

// Color is an sRGB colour.
type Color struct {
	R, G, B uint8
}

// Align controls horizontal text anchoring relative to Text.X.
type Align uint8

const (
	AlignLeft Align = iota
	AlignCenter
	AlignRight
)

// Layer tells which part of the page an operation belongs to.
type Layer uint8

const (
	LayerBody Layer = iota
	LayerHeader
	LayerFooter
)

func (l Layer) String() string {
	switch l {
	case LayerHeader:
		return "header"
	case LayerFooter:
		return "footer"
	default:
		return "body"
	}
}

// Meta is attached to every draw operation. Section is the tag of the report
// section that emitted a body operation and is empty for headers and footers.
type Meta struct {
	Layer   Layer
	Section string
}

// Attrs returns the operation metadata.
func (m Meta) Attrs() Meta { return m }

// Op is a single draw operation: Text, Rect, Line or Circle.
type Op interface {
	Attrs() Meta
}

// Text draws a single line of text whose baseline sits at Y.
type Text struct {
	Meta
	X, Y  float64
	Value string
	Size  float64
	Bold  bool
	Align Align
	Color Color
}

// Rect draws a filled rectangle. A positive Radius rounds the corners.
type Rect struct {
	Meta
	X, Y, W, H float64
	Radius     float64
	Fill       Color
}

// Line draws a straight stroke.
type Line struct {
	Meta
	X1, Y1, X2, Y2 float64
	Width          float64
	Color          Color
}

// Circle draws a filled circle centred on X, Y.
type Circle struct {
	Meta
	X, Y, R float64
	Fill    Color
}

// Page is an ordered, append-only list of draw operations.
type Page struct {
	Number int
	Ops    []Op
}

// Add appends an operation to the page.
func (p *Page) Add(op Op) { p.Ops = append(p.Ops, op) }

// Document is the finished layout: pages in order plus descriptive metadata
// a backend may embed.
type Document struct {
	Title    string
	Subject  string
	Author   string
	Geometry Geometry
	Pages    []*Page
}

// PageCount returns the number of pages.
func (d *Document) PageCount() int { return len(d.Pages) }
