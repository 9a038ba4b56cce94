package layout

import (
	"fmt"
	"math"
	"sort"
)

// Palette used by the built-in primitives.
var (
	ColorPrimary     = Color{37, 99, 235}
	ColorTextDark    = Color{31, 41, 55}
	ColorTextMuted   = Color{107, 114, 128}
	ColorWhite       = Color{255, 255, 255}
	ColorBand        = Color{239, 246, 255}
	ColorTableHeader = Color{30, 64, 175}
	ColorTableAlt    = Color{243, 244, 246}
	ColorCard        = Color{249, 250, 251}
	ColorRule        = Color{209, 213, 219}

	ColorExcellent = Color{22, 163, 74}
	ColorGood      = Color{37, 99, 235}
	ColorFair      = Color{217, 119, 6}
	ColorStarting  = Color{220, 38, 38}
)

// State is the build phase of a Canvas.
type State uint8

const (
	StateInitial State = iota
	StateHeaderDrawn
	StateBuildingSections
	StateFooterPass
	StateDone
)

func (s State) String() string {
	switch s {
	case StateInitial:
		return "initial"
	case StateHeaderDrawn:
		return "header-drawn"
	case StateBuildingSections:
		return "building-sections"
	case StateFooterPass:
		return "footer-pass"
	case StateDone:
		return "done"
	}
	return fmt.Sprintf("state(%d)", uint8(s))
}

// HeaderFunc draws the running header of a freshly created page.
type HeaderFunc func(pen *Pen, page int, g Geometry)

// FooterFunc draws the footer of one page once the page total is known.
type FooterFunc func(pen *Pen, page, total int, g Geometry)

// Canvas drives one document build. It owns the cursor and the page list,
// draws the running header on every page as it is created and renders
// primitives in call order. A Canvas is single use and not safe for
// concurrent use.
type Canvas struct {
	geom    Geometry
	measure Measurer
	header  HeaderFunc
	doc     *Document
	cursor  *Cursor
	section string
	state   State
}

// NewCanvas validates the geometry, creates page 1 and draws its header.
func NewCanvas(geom Geometry, m Measurer, header HeaderFunc) (*Canvas, error) {
	if err := geom.Validate(); err != nil {
		return nil, err
	}
	c := &Canvas{
		geom:    geom,
		measure: m,
		header:  header,
		doc:     &Document{Geometry: geom},
		state:   StateInitial,
	}
	c.cursor = NewCursor(geom, c.startPage)
	c.startPage(1)
	c.state = StateHeaderDrawn
	return c, nil
}

// Document returns the document under construction.
func (c *Canvas) Document() *Document { return c.doc }

// State returns the current build phase.
func (c *Canvas) State() State { return c.state }

// Page returns the current page number.
func (c *Canvas) Page() int { return c.cursor.Page() }

// Y returns the cursor position on the current page.
func (c *Canvas) Y() float64 { return c.cursor.Y() }

// Geometry returns the page geometry.
func (c *Canvas) Geometry() Geometry { return c.geom }

func (c *Canvas) startPage(n int) {
	p := &Page{Number: n}
	c.doc.Pages = append(c.doc.Pages, p)
	if c.header != nil {
		c.header(&Pen{page: p, meta: Meta{Layer: LayerHeader}}, n, c.geom)
	}
}

func (c *Canvas) body() *Pen {
	return &Pen{page: c.doc.Pages[len(c.doc.Pages)-1], meta: Meta{Layer: LayerBody, Section: c.section}}
}

// RenderSection draws a section header followed by the section body. Sections
// whose body has nothing to draw are skipped entirely, header included.
func (c *Canvas) RenderSection(s Section) {
	if s.Empty() {
		return
	}
	prev := c.section
	c.section = s.Key
	defer func() { c.section = prev }()

	if s.Title != "" {
		c.keepWithNext(s.Body)
		c.Render(SectionHeader{Title: s.Title, Icon: s.Icon})
	}
	for _, p := range s.Body {
		c.Render(p)
	}
}

// keepWithNext breaks the page before a section header when the header and
// the leading block of body would not fit together.
func (c *Canvas) keepWithNext(body []Primitive) {
	for _, p := range body {
		if p.isEmpty() {
			continue
		}
		need := SectionHeaderAdvance + leadHeight(p)
		if need > SectionHeaderReserve {
			c.cursor.EnsureSpace(math.Min(need, c.geom.ContentHeight()))
		}
		return
	}
}

// leadHeight is the space the first unbreakable part of p needs.
func leadHeight(p Primitive) float64 {
	switch p := p.(type) {
	case Table:
		h := tableHeight(p)
		if p.Title != "" {
			h += SectionHeaderAdvance
		}
		return h
	case ScoreCard:
		return ScoreCardHeight
	case RecordCard:
		return RecordCardHeight
	case Paragraph, BulletList, TwoColumn:
		return LineReserve
	}
	return 0
}

func tableHeight(t Table) float64 {
	return tableHeaderHeight + float64(min(len(t.Rows), MaxTableRows))*tableRowHeight
}

// Render draws one primitive. It panics when called after Finish.
func (c *Canvas) Render(p Primitive) {
	switch c.state {
	case StateFooterPass, StateDone:
		panic("layout: render on a finished canvas")
	case StateHeaderDrawn:
		c.state = StateBuildingSections
	}

	switch p := p.(type) {
	case SectionHeader:
		c.sectionHeader(p)
	case Paragraph:
		c.paragraph(p)
	case BulletList:
		c.bulletList(p)
	case Table:
		c.table(p)
	case ScoreCard:
		c.scoreCard(p)
	case TwoColumn:
		c.twoColumn(p)
	case RecordCard:
		c.recordCard(p)
	case Spacer:
		c.spacer(p)
	default:
		panic(fmt.Sprintf("layout: unknown primitive %T", p))
	}
}

// Finish runs the footer pass over every page and returns the document. The
// canvas cannot be used afterwards.
func (c *Canvas) Finish(footer FooterFunc) *Document {
	if c.state == StateFooterPass || c.state == StateDone {
		panic("layout: canvas already finished")
	}
	c.state = StateFooterPass
	total := len(c.doc.Pages)
	if footer != nil {
		for _, p := range c.doc.Pages {
			footer(&Pen{page: p, meta: Meta{Layer: LayerFooter}}, p.Number, total, c.geom)
		}
	}
	c.state = StateDone
	return c.doc
}

func (c *Canvas) sectionHeader(h SectionHeader) {
	if h.Title == "" {
		return
	}
	c.cursor.EnsureSpace(SectionHeaderReserve)
	y := c.cursor.Y()
	x := c.geom.Margin
	pen := c.body()

	pen.Panel(x, y, c.geom.ContentWidth(), sectionBandHeight, 2, ColorBand)
	titleX := x + 4
	if h.Icon != "" {
		pen.Circle(x+7, y+sectionBandHeight/2, 4, ColorPrimary)
		pen.Text(x+7, y+sectionBandHeight/2+1.2, h.Icon, TextStyle{Size: 7, Bold: true, Color: ColorWhite, Align: AlignCenter})
		titleX = x + 14
	}
	pen.Text(titleX, y+8, h.Title, TextStyle{Size: 13, Bold: true, Color: ColorTextDark})
	c.cursor.Advance(SectionHeaderAdvance)
}

func (c *Canvas) paragraph(p Paragraph) {
	size := p.Size
	if size == 0 {
		size = DefaultFontSize
	}
	color := ColorTextDark
	if p.Color != nil {
		color = *p.Color
	}
	x := c.geom.Margin + p.Indent
	lines := Wrap(c.measure, p.Text, size, p.Bold, c.geom.ContentWidth()-p.Indent)
	for _, line := range lines {
		c.cursor.EnsureSpace(LineReserve)
		c.body().Text(x, c.cursor.Y(), line, TextStyle{Size: size, Bold: p.Bold, Color: color})
		c.cursor.Advance(LineHeight(size))
	}
}

func (c *Canvas) bulletList(l BulletList) {
	size := l.Size
	if size == 0 {
		size = DefaultFontSize
	}
	x := c.geom.Margin + l.Indent
	width := c.geom.ContentWidth() - l.Indent - bulletGap
	for _, item := range l.Items {
		for i, line := range Wrap(c.measure, item, size, false, width) {
			c.cursor.EnsureSpace(LineReserve)
			pen := c.body()
			y := c.cursor.Y()
			if i == 0 {
				pen.Circle(x+2, y-0.8, 0.8, ColorPrimary)
			}
			pen.Text(x+bulletGap, y, line, TextStyle{Size: size, Color: ColorTextDark})
			c.cursor.Advance(LineHeight(size))
		}
		c.cursor.Advance(1)
	}
}

func (c *Canvas) table(t Table) {
	if len(t.Rows) == 0 {
		return
	}
	height := tableHeight(t)
	if t.Title != "" {
		c.cursor.EnsureSpace(SectionHeaderAdvance + height)
		c.sectionHeader(SectionHeader{Title: t.Title, Icon: t.Icon})
	}

	cols := len(t.Columns)
	for _, row := range t.Rows {
		cols = max(cols, len(row))
	}
	rows := t.Rows[:min(len(t.Rows), MaxTableRows)]

	c.cursor.EnsureSpace(height)
	pen := c.body()
	x := c.geom.Margin
	y := c.cursor.Y()
	width := c.geom.ContentWidth()
	colW := width / float64(cols)

	pen.Rect(x, y, width, tableHeaderHeight, ColorTableHeader)
	for i, label := range t.Columns {
		pen.Text(x+float64(i)*colW+2, y+5.5, label, TextStyle{Size: 9, Bold: true, Color: ColorWhite})
	}
	y += tableHeaderHeight

	for r, row := range rows {
		if r%2 == 1 {
			pen.Rect(x, y, width, tableRowHeight, ColorTableAlt)
		}
		for i := 0; i < cols; i++ {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			if cell == "" {
				continue
			}
			pen.Text(x+float64(i)*colW+2, y+5, TruncateCell(cell), TextStyle{Size: 9, Color: ColorTextDark})
		}
		y += tableRowHeight
	}
	c.cursor.Advance(height + tableGap)
}

func (c *Canvas) scoreCard(s ScoreCard) {
	c.cursor.EnsureSpace(ScoreCardHeight)
	pen := c.body()
	x := c.geom.Margin
	y := c.cursor.Y()
	width := c.geom.ContentWidth()
	score := math.Max(0, math.Min(10, s.Score))
	label := ScoreLabel(score)

	pen.Panel(x, y, width, ScoreCardHeight-5, 3, scoreColor(label))
	caption := s.Caption
	if caption == "" {
		caption = "Health Score"
	}
	pen.Text(x+8, y+10, caption, TextStyle{Size: 11, Bold: true, Color: ColorWhite})
	pen.Text(x+8, y+27, fmt.Sprintf("%.1f / 10", score), TextStyle{Size: 24, Bold: true, Color: ColorWhite})
	pen.Text(x+width-8, y+27, label, TextStyle{Size: 14, Bold: true, Color: ColorWhite, Align: AlignRight})
	c.cursor.Advance(ScoreCardHeight)
}

func scoreColor(label string) Color {
	switch label {
	case "Excellent":
		return ColorExcellent
	case "Good":
		return ColorGood
	case "Fair":
		return ColorFair
	default:
		return ColorStarting
	}
}

type placedLine struct {
	x, dy, h float64
	text     string
	style    TextStyle
}

// column lays out fields relative to the column top and returns the lines and
// the total height.
func (c *Canvas) column(fields []Field, x, width float64) ([]placedLine, float64) {
	var out []placedLine
	h := 0.0
	for _, f := range fields {
		out = append(out, placedLine{x: x, dy: h, h: fieldLabelHeight, text: f.Label, style: TextStyle{Size: fieldLabelSize, Bold: true, Color: ColorTextMuted}})
		h += fieldLabelHeight
		for _, line := range Wrap(c.measure, f.Value, DefaultFontSize, false, width) {
			out = append(out, placedLine{x: x, dy: h, h: BodyLineHeight, text: line, style: TextStyle{Size: DefaultFontSize, Color: ColorTextDark}})
			h += BodyLineHeight
		}
		h += fieldGap
	}
	return out, h
}

// twoColumn keeps the block on one page when it fits. A taller block flows
// line by line in top-to-bottom order across both columns, so each page
// break shifts the two columns together.
func (c *Canvas) twoColumn(t TwoColumn) {
	colW := (c.geom.ContentWidth() - columnGap) / 2
	left, leftH := c.column(t.Left, c.geom.Margin, colW)
	right, rightH := c.column(t.Right, c.geom.Margin+colW+columnGap, colW)
	height := math.Max(leftH, rightH)

	lines := append(left, right...)
	sort.SliceStable(lines, func(i, j int) bool { return lines[i].dy < lines[j].dy })

	c.cursor.EnsureSpace(math.Min(height, c.geom.ContentHeight()))
	done := 0.0
	for _, l := range lines {
		c.cursor.Advance(l.dy - done)
		done = l.dy
		c.cursor.EnsureSpace(l.h)
		c.body().Text(l.x, c.cursor.Y(), l.text, l.style)
	}
	c.cursor.Advance(height - done)
}

func (c *Canvas) recordCard(r RecordCard) {
	c.cursor.EnsureSpace(RecordCardHeight)
	pen := c.body()
	x := c.geom.Margin
	y := c.cursor.Y()
	width := c.geom.ContentWidth()
	textW := width - 10

	pen.Panel(x, y, width, RecordCardHeight-4, 2, ColorCard)
	pen.Rect(x, y, 1.5, RecordCardHeight-4, ColorPrimary)

	dy := 7.0
	line := func(s string, st TextStyle) {
		if s == "" {
			return
		}
		pen.Text(x+5, y+dy, fitLine(c.measure, s, st, textW), st)
		dy += 5
	}
	line(r.Title, TextStyle{Size: 11, Bold: true, Color: ColorTextDark})
	meta := r.Type
	if r.Date != "" {
		if meta != "" {
			meta += "  |  "
		}
		meta += r.Date
	}
	line(meta, TextStyle{Size: 9, Color: ColorTextMuted})
	line(r.Provider, TextStyle{Size: 9, Color: ColorTextMuted})
	line(r.Description, TextStyle{Size: 9, Color: ColorTextDark})
	if r.Attachment != "" {
		line("Attachment: "+r.Attachment, TextStyle{Size: 8, Color: ColorPrimary})
	}
	c.cursor.Advance(RecordCardHeight)
}

// fitLine returns the first wrapped line of s, marked with an ellipsis when
// more text was cut.
func fitLine(m Measurer, s string, st TextStyle, width float64) string {
	lines := Wrap(m, s, st.Size, st.Bold, width)
	switch len(lines) {
	case 0:
		return ""
	case 1:
		return lines[0]
	}
	return lines[0] + "…"
}

func (c *Canvas) spacer(s Spacer) {
	c.cursor.EnsureSpace(s.Height)
	c.cursor.Advance(s.Height)
}
