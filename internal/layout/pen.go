package layout

// TextStyle groups the font attributes of a Text operation.
type TextStyle struct {
	Size  float64
	Bold  bool
	Color Color
	Align Align
}

// Pen appends operations to one page, stamping each with the same Meta.
// Header and footer hooks receive a Pen bound to their layer.
type Pen struct {
	page *Page
	meta Meta
}

// Page returns the page the pen draws on.
func (p *Pen) Page() *Page { return p.page }

// Text draws one line of text with its baseline at y.
func (p *Pen) Text(x, y float64, value string, st TextStyle) {
	if st.Size == 0 {
		st.Size = DefaultFontSize
	}
	p.page.Add(Text{Meta: p.meta, X: x, Y: y, Value: value, Size: st.Size, Bold: st.Bold, Align: st.Align, Color: st.Color})
}

// Rect draws a filled rectangle.
func (p *Pen) Rect(x, y, w, h float64, fill Color) {
	p.page.Add(Rect{Meta: p.meta, X: x, Y: y, W: w, H: h, Fill: fill})
}

// Panel draws a filled rectangle with rounded corners.
func (p *Pen) Panel(x, y, w, h, radius float64, fill Color) {
	p.page.Add(Rect{Meta: p.meta, X: x, Y: y, W: w, H: h, Radius: radius, Fill: fill})
}

// Line draws a stroke from (x1, y1) to (x2, y2).
func (p *Pen) Line(x1, y1, x2, y2, width float64, c Color) {
	p.page.Add(Line{Meta: p.meta, X1: x1, Y1: y1, X2: x2, Y2: y2, Width: width, Color: c})
}

// Circle draws a filled circle.
func (p *Pen) Circle(x, y, r float64, fill Color) {
	p.page.Add(Circle{Meta: p.meta, X: x, Y: y, R: r, Fill: fill})
}
