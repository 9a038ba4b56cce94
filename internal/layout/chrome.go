package layout

import "fmt"

// RunningHeader returns a HeaderFunc drawing a coloured title band with a
// right-aligned subtitle. The band stays well above Geometry.HeaderBand so the
// first baseline on the page never collides with it.
func RunningHeader(title, subtitle string) HeaderFunc {
	return func(pen *Pen, _ int, g Geometry) {
		bandH := g.HeaderBand - 15
		if bandH < 8 {
			bandH = 8
		}
		pen.Rect(0, 0, g.PageWidth, bandH, ColorPrimary)
		pen.Text(g.Margin, bandH/2+2, title, TextStyle{Size: 16, Bold: true, Color: ColorWhite})
		if subtitle != "" {
			pen.Text(g.PageWidth-g.Margin, bandH/2+2, subtitle, TextStyle{Size: 9, Color: ColorWhite, Align: AlignRight})
		}
	}
}

// PageFooter returns a FooterFunc stamping a rule, "Page N of M" and an
// attribution line inside the footer band.
func PageFooter(attribution string) FooterFunc {
	return func(pen *Pen, page, total int, g Geometry) {
		top := g.ContentBottom() + 5
		pen.Line(g.Margin, top, g.PageWidth-g.Margin, top, 0.3, ColorRule)
		pen.Text(g.PageWidth/2, top+6, FooterLabel(page, total), TextStyle{Size: 8, Color: ColorTextMuted, Align: AlignCenter})
		if attribution != "" {
			pen.Text(g.PageWidth/2, top+11, attribution, TextStyle{Size: 7, Color: ColorTextMuted, Align: AlignCenter})
		}
	}
}

// FooterLabel is the page stamp text drawn by PageFooter.
func FooterLabel(page, total int) string {
	return fmt.Sprintf("Page %d of %d", page, total)
}
