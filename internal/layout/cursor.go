package layout

// Cursor tracks the current page and vertical position during a build.
// y only grows within a page and resets to the content top on a new page.
type Cursor struct {
	geom      Geometry
	page      int
	y         float64
	onNewPage func(page int)
}

// NewCursor starts on page 1 at the content top. onNewPage is called after
// every page break with the new page number.
func NewCursor(geom Geometry, onNewPage func(page int)) *Cursor {
	return &Cursor{
		geom:      geom,
		page:      1,
		y:         geom.ContentTop(),
		onNewPage: onNewPage,
	}
}

// Page returns the current 1-based page number.
func (c *Cursor) Page() int { return c.page }

// Y returns the current vertical offset from the page top.
func (c *Cursor) Y() float64 { return c.y }

// Remaining is the vertical space left above the footer band.
func (c *Cursor) Remaining() float64 { return c.geom.ContentBottom() - c.y }

// AtTop reports whether nothing has been placed on the current page yet.
func (c *Cursor) AtTop() bool { return c.y == c.geom.ContentTop() }

// EnsureSpace starts a new page when required units no longer fit above the
// footer band. A fresh page never breaks again, so oversize requests overflow
// instead of producing blank pages. It reports whether a break happened.
func (c *Cursor) EnsureSpace(required float64) bool {
	if c.y+required <= c.geom.ContentBottom() || c.AtTop() {
		return false
	}
	c.page++
	c.y = c.geom.ContentTop()
	if c.onNewPage != nil {
		c.onNewPage(c.page)
	}
	return true
}

// Advance moves the cursor down. It never moves up and never past the bottom
// margin.
func (c *Cursor) Advance(dy float64) {
	if dy <= 0 {
		return
	}
	c.y += dy
	if limit := c.geom.PageHeight - c.geom.Margin; c.y > limit {
		c.y = limit
	}
}
