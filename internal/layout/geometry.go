// Package layout is a small single-column flow layout engine. It places
// content primitives onto fixed-size pages, breaking to a new page when the
// next primitive does not fit above the footer band, and records every draw as
// a device-independent operation so any backend (PDF, raster, test recorder)
// can replay the result.
package layout

import (
	"errors"
	"fmt"
)

// ErrInvalidGeometry is returned when page geometry cannot hold any content.
var ErrInvalidGeometry = errors.New("layout: invalid page geometry")

// Geometry describes the physical page and its reserved bands. All values are
// in millimetres.
type Geometry struct {
	PageWidth  float64 `json:"page_width" yaml:"page_width"`
	PageHeight float64 `json:"page_height" yaml:"page_height"`
	Margin     float64 `json:"margin" yaml:"margin"`
	HeaderBand float64 `json:"header_band" yaml:"header_band"`
	FooterBand float64 `json:"footer_band" yaml:"footer_band"`
}

// A4 returns the default portrait A4 geometry used for health reports.
func A4() Geometry {
	return Geometry{
		PageWidth:  210,
		PageHeight: 297,
		Margin:     20,
		HeaderBand: 40,
		FooterBand: 25,
	}
}

// ContentWidth is the usable width between the left and right margins.
func (g Geometry) ContentWidth() float64 { return g.PageWidth - 2*g.Margin }

// ContentTop is the y offset where content starts on every page.
func (g Geometry) ContentTop() float64 { return g.HeaderBand }

// ContentBottom is the lowest y offset content may reach before the footer band.
func (g Geometry) ContentBottom() float64 { return g.PageHeight - g.FooterBand }

// ContentHeight is the vertical space between the header and footer bands.
func (g Geometry) ContentHeight() float64 { return g.ContentBottom() - g.ContentTop() }

// Validate checks that the bands leave room for content and keep the cursor
// inside the margins.
func (g Geometry) Validate() error {
	switch {
	case g.PageWidth <= 0 || g.PageHeight <= 0:
		return fmt.Errorf("%w: page size %.1fx%.1f", ErrInvalidGeometry, g.PageWidth, g.PageHeight)
	case g.Margin < 0:
		return fmt.Errorf("%w: negative margin", ErrInvalidGeometry)
	case g.ContentWidth() <= 0:
		return fmt.Errorf("%w: margins leave no content width", ErrInvalidGeometry)
	case g.HeaderBand < g.Margin:
		return fmt.Errorf("%w: header band %.1f is inside the top margin", ErrInvalidGeometry, g.HeaderBand)
	case g.FooterBand < g.Margin:
		return fmt.Errorf("%w: footer band %.1f is inside the bottom margin", ErrInvalidGeometry, g.FooterBand)
	case g.ContentTop() >= g.ContentBottom():
		return fmt.Errorf("%w: header and footer bands overlap", ErrInvalidGeometry)
	}
	return nil
}
