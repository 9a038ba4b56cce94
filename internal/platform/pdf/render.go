// Package pdf replays layout documents onto go-pdf/fpdf.
package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/ehr/healthreport/internal/layout"
)

// ContentType is the MIME type of rendered output.
const ContentType = "application/pdf"

// ErrEmptyDocument is returned for a nil document or one without pages.
var ErrEmptyDocument = errors.New("pdf: document has no pages")

// Renderer converts layout documents to PDF bytes. It is safe for
// concurrent use; each call works on its own fpdf instance.
type Renderer struct {
	creator  string
	compress bool
	now      func() time.Time
}

// NewRenderer creates a Renderer stamping creator into the PDF metadata.
func NewRenderer(creator string) *Renderer {
	return &Renderer{creator: creator, compress: true, now: time.Now}
}

// Render produces the PDF for doc.
func (r *Renderer) Render(doc *layout.Document) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.Write(&buf, doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write renders doc to w.
func (r *Renderer) Write(w io.Writer, doc *layout.Document) error {
	if doc == nil || len(doc.Pages) == 0 {
		return ErrEmptyDocument
	}
	g := doc.Geometry

	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "mm",
		Size:           fpdf.SizeType{Wd: g.PageWidth, Ht: g.PageHeight},
	})
	pdf.SetCompression(r.compress)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetMargins(g.Margin, g.HeaderBand, g.Margin)
	pdf.SetCatalogSort(true)
	created := r.now()
	pdf.SetCreationDate(created)
	pdf.SetModificationDate(created)
	pdf.SetTitle(doc.Title, true)
	pdf.SetSubject(doc.Subject, true)
	pdf.SetAuthor(doc.Author, true)
	if r.creator != "" {
		pdf.SetCreator(r.creator, true)
	}
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	for _, page := range doc.Pages {
		pdf.AddPage()
		for _, op := range page.Ops {
			draw(pdf, tr, op)
		}
		if err := pdf.Error(); err != nil {
			return fmt.Errorf("pdf: page %d: %w", page.Number, err)
		}
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("pdf: output: %w", err)
	}
	return nil
}

func draw(pdf *fpdf.Fpdf, tr func(string) string, op layout.Op) {
	switch op := op.(type) {
	case layout.Text:
		style := ""
		if op.Bold {
			style = "B"
		}
		pdf.SetFont(layout.FontFamily, style, op.Size)
		pdf.SetTextColor(int(op.Color.R), int(op.Color.G), int(op.Color.B))
		s := tr(op.Value)
		x := op.X
		switch op.Align {
		case layout.AlignCenter:
			x -= pdf.GetStringWidth(s) / 2
		case layout.AlignRight:
			x -= pdf.GetStringWidth(s)
		}
		pdf.Text(x, op.Y, s)
	case layout.Rect:
		pdf.SetFillColor(int(op.Fill.R), int(op.Fill.G), int(op.Fill.B))
		if op.Radius > 0 {
			pdf.RoundedRect(op.X, op.Y, op.W, op.H, op.Radius, "1234", "F")
		} else {
			pdf.Rect(op.X, op.Y, op.W, op.H, "F")
		}
	case layout.Line:
		pdf.SetDrawColor(int(op.Color.R), int(op.Color.G), int(op.Color.B))
		pdf.SetLineWidth(op.Width)
		pdf.Line(op.X1, op.Y1, op.X2, op.Y2)
	case layout.Circle:
		pdf.SetFillColor(int(op.Fill.R), int(op.Fill.G), int(op.Fill.B))
		pdf.Circle(op.X, op.Y, op.R, "F")
	}
}
