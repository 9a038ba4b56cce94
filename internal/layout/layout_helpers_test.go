package layout

import (
	"fmt"
	"strings"
)

// fixedMeasurer gives every rune the same width: size*0.2 mm.
type fixedMeasurer struct{}

func (fixedMeasurer) TextWidth(s string, size float64, _ bool) float64 {
	return float64(len([]rune(s))) * size * 0.2
}

func newTestCanvas(t interface{ Fatalf(string, ...any) }) *Canvas {
	c, err := NewCanvas(A4(), fixedMeasurer{}, RunningHeader("Test Report", "sub"))
	if err != nil {
		t.Fatalf("NewCanvas: %v", err)
	}
	return c
}

func texts(p *Page, layer Layer) []Text {
	var out []Text
	for _, op := range p.Ops {
		if tx, ok := op.(Text); ok && tx.Layer == layer {
			out = append(out, tx)
		}
	}
	return out
}

func allTexts(d *Document, layer Layer) []Text {
	var out []Text
	for _, p := range d.Pages {
		out = append(out, texts(p, layer)...)
	}
	return out
}

func countPrefix(ts []Text, prefix string) int {
	n := 0
	for _, tx := range ts {
		if strings.HasPrefix(tx.Value, prefix) {
			n++
		}
	}
	return n
}

// bandViolations lists body operations that leave the content area. Text is
// measured at its baseline and a circle at its lowest point.
func bandViolations(d *Document) []string {
	top, bottom := d.Geometry.ContentTop(), d.Geometry.ContentBottom()
	var out []string
	check := func(page int, op Op, lo, hi float64) {
		if lo < top || hi > bottom {
			out = append(out, fmt.Sprintf("page %d: %T spans %.1f..%.1f", page, op, lo, hi))
		}
	}
	for _, p := range d.Pages {
		for _, op := range p.Ops {
			if op.Attrs().Layer != LayerBody {
				continue
			}
			switch o := op.(type) {
			case Text:
				check(p.Number, o, o.Y, o.Y)
			case Rect:
				check(p.Number, o, o.Y, o.Y+o.H)
			case Circle:
				check(p.Number, o, o.Y+o.R, o.Y+o.R)
			case Line:
				check(p.Number, o, min(o.Y1, o.Y2), max(o.Y1, o.Y2))
			}
		}
	}
	return out
}
