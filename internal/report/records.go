package report

import (
	"fmt"

	"github.com/ehr/healthreport/internal/layout"
)

// RecordBuilder builds medical record documents: one record per document or
// a combined listing of many.
type RecordBuilder struct {
	opts Options
}

// NewRecordBuilder creates a RecordBuilder.
func NewRecordBuilder(opts Options) *RecordBuilder {
	return &RecordBuilder{opts: opts.withDefaults()}
}

func (b *RecordBuilder) canvas(title, patientName string) (*layout.Canvas, error) {
	subtitle := ""
	if patientName != "" {
		subtitle = "Patient: " + patientName
	}
	c, err := layout.NewCanvas(b.opts.Geometry, b.opts.Measurer, layout.RunningHeader(title, subtitle))
	if err != nil {
		return nil, fmt.Errorf("report: %w", err)
	}
	return c, nil
}

func (b *RecordBuilder) finish(c *layout.Canvas, title, subject string) *layout.Document {
	doc := c.Finish(layout.PageFooter(b.opts.Attribution))
	doc.Title = title
	doc.Subject = subject
	doc.Author = b.opts.Attribution
	return doc
}

// BuildSingleRecord lays out one medical record with its full description.
func (b *RecordBuilder) BuildSingleRecord(rec MedicalRecord, patientName string) (*layout.Document, error) {
	c, err := b.canvas("Medical Record", patientName)
	if err != nil {
		return nil, err
	}
	title := orDefault(rec.Title, "Untitled record")

	c.RenderSection(layout.Section{Key: "record", Title: title, Icon: "Mr", Body: []layout.Primitive{
		layout.TwoColumn{
			Left: []layout.Field{
				{Label: "Type", Value: orDefault(tag(rec.Type), NotProvided)},
				{Label: "Date", Value: dateOr(rec.RecordDate, NotProvided)},
			},
			Right: []layout.Field{
				{Label: "Doctor", Value: orDefault(rec.Doctor, NotProvided)},
				{Label: "Facility", Value: orDefault(rec.Facility, NotProvided)},
			},
		},
	}})
	c.RenderSection(layout.Section{Key: "description", Title: "Description", Body: []layout.Primitive{
		layout.Paragraph{Text: rec.Description},
	}})
	c.RenderSection(layout.Section{Key: "attachment", Title: "Attachment", Body: []layout.Primitive{
		layout.Paragraph{Text: labelled("File", attachmentLabel(rec))},
	}})
	c.Render(layout.Paragraph{
		Text:  "Generated " + b.opts.Now().Format(dateTimeLayout),
		Size:  8,
		Color: &layout.ColorTextMuted,
	})

	return b.finish(c, title, "Medical record for "+orDefault(patientName, "patient")), nil
}

// BuildCombinedRecords lists every record as a fixed-height card. An empty
// list yields a one-page document saying so.
func (b *RecordBuilder) BuildCombinedRecords(records []MedicalRecord, patientName string) (*layout.Document, error) {
	c, err := b.canvas("Medical Records", patientName)
	if err != nil {
		return nil, err
	}

	summary := "No medical records on file."
	if n := len(records); n > 0 {
		summary = fmt.Sprintf("%d medical %s, generated %s.", n, plural(n, "record", "records"), b.opts.Now().Format(dateLayout))
	}
	c.Render(layout.Paragraph{Text: summary, Color: &layout.ColorTextMuted})
	c.Render(layout.Spacer{Height: 4})

	for _, r := range records {
		c.Render(recordCard(r))
	}

	return b.finish(c, "Medical Records", "Medical records for "+orDefault(patientName, "patient")), nil
}
