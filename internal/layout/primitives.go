package layout

import "strings"

// Layout constants shared by every primitive. Units are millimetres.
const (
	BodyLineHeight  = 6.0
	LargeLineHeight = 8.0
	// LineReserve is the space every text line asks EnsureSpace for.
	LineReserve = 8.0

	SectionHeaderReserve = 25.0
	SectionHeaderAdvance = 20.0
	ScoreCardHeight      = 40.0
	RecordCardHeight     = 35.0

	MaxTableRows = 10
	MaxCellRunes = 15

	DefaultFontSize = 10.0
)

const (
	sectionBandHeight = 12.0
	tableHeaderHeight = 8.0
	tableRowHeight    = 7.0
	tableGap          = 5.0
	bulletGap         = 6.0
	columnGap         = 10.0
	fieldLabelSize    = 8.0
	fieldLabelHeight  = 4.5
	fieldGap          = 2.0
)

// LineHeight returns the vertical increment for one line at the given size.
func LineHeight(size float64) float64 {
	if size > 11 {
		return LargeLineHeight
	}
	return BodyLineHeight
}

// Primitive is one of the content primitives understood by Canvas.Render:
// SectionHeader, Paragraph, BulletList, Table, ScoreCard, TwoColumn,
// RecordCard or Spacer.
type Primitive interface {
	isEmpty() bool
}

// SectionHeader draws a shaded band with an optional icon tag and a title.
type SectionHeader struct {
	Title string
	Icon  string
}

// Paragraph draws wrapped text. Size defaults to DefaultFontSize.
type Paragraph struct {
	Text   string
	Size   float64
	Indent float64
	Bold   bool
	Color  *Color
}

// BulletList draws one bullet and a wrapped paragraph per item.
type BulletList struct {
	Items  []string
	Size   float64
	Indent float64
}

// Table draws a header row and at most MaxTableRows rows. Rows past the cap
// are dropped. A non-empty Title is drawn as a section header first.
type Table struct {
	Title   string
	Icon    string
	Columns []string
	Rows    [][]string
}

// ScoreCard draws the fixed-height composite score panel.
type ScoreCard struct {
	Score   float64
	Caption string
}

// Field is a labelled value in a TwoColumn block.
type Field struct {
	Label string
	Value string
}

// TwoColumn lays out two independently wrapped field columns side by side.
type TwoColumn struct {
	Left  []Field
	Right []Field
}

// RecordCard is the fixed-height summary card of one medical record.
type RecordCard struct {
	Title       string
	Type        string
	Date        string
	Provider    string
	Description string
	Attachment  string
}

// Spacer adds vertical space.
type Spacer struct {
	Height float64
}

func (h SectionHeader) isEmpty() bool { return h.Title == "" }
func (p Paragraph) isEmpty() bool     { return strings.TrimSpace(p.Text) == "" }
func (l BulletList) isEmpty() bool    { return len(l.Items) == 0 }
func (t Table) isEmpty() bool         { return len(t.Rows) == 0 }
func (ScoreCard) isEmpty() bool       { return false }
func (t TwoColumn) isEmpty() bool     { return len(t.Left) == 0 && len(t.Right) == 0 }
func (r RecordCard) isEmpty() bool    { return false }
func (s Spacer) isEmpty() bool        { return s.Height <= 0 }

// Section groups primitives under one tag. Key tags every body operation the
// section draws; Title, when set, is drawn as a SectionHeader first.
type Section struct {
	Key   string
	Title string
	Icon  string
	Body  []Primitive
}

// Empty reports whether the section has nothing to draw besides its header.
func (s Section) Empty() bool {
	for _, p := range s.Body {
		if !p.isEmpty() {
			return false
		}
	}
	return true
}

// ScoreLabel maps a composite score to its qualitative label.
func ScoreLabel(score float64) string {
	switch {
	case score >= 8:
		return "Excellent"
	case score >= 6:
		return "Good"
	case score >= 4:
		return "Fair"
	default:
		return "Getting Started"
	}
}
