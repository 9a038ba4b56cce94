// Package report assembles health report documents from a Data snapshot.
//
// Builder produces the main multi-section report; RecordBuilder produces
// documents for one or many medical records. Both hold only immutable
// options and may be shared; every build runs on its own layout.Canvas.
package report

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ehr/healthreport/internal/layout"
	"github.com/ehr/healthreport/internal/score"
)

// ErrNilData is returned when a build is requested without a snapshot.
var ErrNilData = errors.New("report: data is nil")

// Disclaimer is printed at the end of every main report.
const Disclaimer = "This report is generated from self-reported and device-synced data for " +
	"informational purposes only. It is not a medical diagnosis and does not replace " +
	"the advice of a qualified healthcare professional. Always consult your doctor " +
	"before making changes to medication, diet or exercise."

// Options configures the builders. Zero fields take the defaults from
// DefaultOptions.
type Options struct {
	Geometry    layout.Geometry
	Measurer    layout.Measurer
	Title       string
	Attribution string
	// Now anchors the symptom window and the generation stamp.
	Now func() time.Time
}

const (
	defaultTitle       = "Health Report"
	defaultAttribution = "Generated by Health Report Service"
)

// DefaultOptions returns A4 geometry with fpdf font metrics.
func DefaultOptions() Options {
	return Options{
		Geometry:    layout.A4(),
		Measurer:    layout.NewFontMetrics(),
		Title:       defaultTitle,
		Attribution: defaultAttribution,
		Now:         time.Now,
	}
}

func (o Options) withDefaults() Options {
	if o.Geometry == (layout.Geometry{}) {
		o.Geometry = layout.A4()
	}
	if o.Measurer == nil {
		o.Measurer = layout.NewFontMetrics()
	}
	if o.Title == "" {
		o.Title = defaultTitle
	}
	if o.Attribution == "" {
		o.Attribution = defaultAttribution
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Builder builds the main health report.
type Builder struct {
	opts Options
}

// NewBuilder creates a Builder.
func NewBuilder(opts Options) *Builder {
	return &Builder{opts: opts.withDefaults()}
}

// BuildMainReport lays out the full report: score card, patient details,
// clinical sections, trends and the closing disclaimer. Sections without
// data are left out.
func (b *Builder) BuildMainReport(data *Data) (*layout.Document, error) {
	if data == nil {
		return nil, ErrNilData
	}
	now := b.opts.Now()

	result := score.Compute(data.ScoreInputs(), now)
	value := result.Value
	if v, ok := score.Parse(data.HealthScore); ok {
		value = v
	}

	generated, ok := formatDateTime(data.GeneratedAt)
	if !ok {
		generated = now.Format(dateTimeLayout)
	}

	canvas, err := layout.NewCanvas(b.opts.Geometry, b.opts.Measurer,
		layout.RunningHeader(b.opts.Title, "Generated "+generated))
	if err != nil {
		return nil, fmt.Errorf("report: %w", err)
	}
	for _, s := range mainSections(data, value, result) {
		canvas.RenderSection(s)
	}

	doc := canvas.Finish(layout.PageFooter(b.opts.Attribution))
	doc.Title = b.opts.Title
	doc.Subject = "Health report for " + orDefault(data.Patient.Name, "patient")
	doc.Author = b.opts.Attribution
	return doc, nil
}

func mainSections(d *Data, value float64, result score.Result) []layout.Section {
	return []layout.Section{
		scoreSection(value, result),
		patientSection(d),
		{Key: "conditions", Title: "Medical Conditions", Icon: "Dx", Body: []layout.Primitive{layout.BulletList{Items: nonEmpty(d.Patient.Conditions)}}},
		{Key: "allergies", Title: "Allergies", Icon: "!", Body: []layout.Primitive{layout.BulletList{Items: nonEmpty(d.Patient.Allergies)}}},
		medicationsSection(d.Medications),
		symptomsSection(d.Symptoms),
		metricsSection(d.Metrics),
		activitiesSection(d.Activities),
		appointmentsSection(d.Appointments),
		recordsSection(d.MedicalRecords),
		trendsSection(d),
		recommendationsSection(d.Recommendations),
		sourcesSection(d),
		{Key: "disclaimer", Title: "Medical Disclaimer", Icon: "i", Body: []layout.Primitive{
			layout.Paragraph{Text: Disclaimer, Size: 9, Color: &layout.ColorTextMuted},
		}},
	}
}

func scoreSection(value float64, r score.Result) layout.Section {
	names := make([]string, 0, len(r.Factors))
	for _, f := range r.Factors {
		names = append(names, f.Name)
	}
	note := "Based on " + strings.Join(names, ", ") + " over the last 7 days."
	if r.Fallback {
		note = "Not enough recent data; showing the default score."
	}
	return layout.Section{Key: "score", Body: []layout.Primitive{
		layout.ScoreCard{Score: value, Caption: "Overall Health Score"},
		layout.Paragraph{Text: note, Size: 9, Color: &layout.ColorTextMuted},
		layout.Spacer{Height: 4},
	}}
}

func patientSection(d *Data) layout.Section {
	p := d.Patient
	age := NotProvided
	if p.Age != nil {
		age = fmt.Sprintf("%d years", *p.Age)
	}
	height, weight, bmi := NotProvided, NotProvided, NotAvailable
	if p.HeightCm != nil {
		height = number(*p.HeightCm) + " cm"
	}
	if p.WeightKg != nil {
		weight = number(*p.WeightKg) + " kg"
	}
	if v, ok := p.BMI(); ok {
		bmi = fmt.Sprintf("%.1f", v)
	}

	return layout.Section{Key: "patient", Title: "Patient Information", Icon: "ID", Body: []layout.Primitive{
		layout.TwoColumn{
			Left: []layout.Field{
				{Label: "Name", Value: orDefault(p.Name, NotProvided)},
				{Label: "Date of Birth", Value: dateOr(p.DateOfBirth, NotProvided)},
				{Label: "Age", Value: age},
				{Label: "Gender", Value: orDefault(tag(p.Gender), NotProvided)},
				{Label: "Patient ID", Value: orDefault(p.MaskedIdentifier(d.ShowFullIdentifier), NotProvided)},
			},
			Right: []layout.Field{
				{Label: "Height", Value: height},
				{Label: "Weight", Value: weight},
				{Label: "BMI", Value: bmi},
				{Label: "Email", Value: orDefault(p.Email, NotProvided)},
				{Label: "Phone", Value: orDefault(p.Phone, NotProvided)},
			},
		},
		layout.TwoColumn{
			Left:  []layout.Field{{Label: "Address", Value: orDefault(p.Address, NotProvided)}},
			Right: []layout.Field{{Label: "Emergency Contact", Value: orDefault(p.EmergencyContact, NotProvided)}},
		},
	}}
}

func medicationsSection(meds []Medication) layout.Section {
	s := layout.Section{Key: "medications", Title: "Current Medications", Icon: "Rx"}
	if len(meds) == 0 {
		return s
	}

	rows := make([][]string, 0, len(meds))
	for _, m := range meds {
		status := "Inactive"
		if m.Active {
			status = "Active"
		}
		rows = append(rows, []string{orDefault(m.Name, NotProvided), orDefault(m.Dosage, NotAvailable), orDefault(m.Frequency, NotAvailable), status})
	}
	s.Body = append(s.Body, layout.Table{Columns: []string{"Medication", "Dosage", "Frequency", "Status"}, Rows: rows})

	for _, m := range meds {
		s.Body = append(s.Body, layout.Paragraph{Text: orDefault(m.Name, NotProvided), Bold: true})
		detail := joinNonEmpty("  |  ",
			labelled("Prescribed by", m.Prescriber),
			labelled("Started", dateOr(m.StartDate, "")),
			labelled("Ends", dateOr(m.EndDate, "")),
		)
		if detail == "" {
			detail = "No prescription details recorded."
		}
		s.Body = append(s.Body, layout.Paragraph{Text: detail, Size: 9, Indent: 4, Color: &layout.ColorTextMuted})
		if notes := strings.TrimSpace(m.Notes); notes != "" {
			s.Body = append(s.Body, layout.Paragraph{Text: notes, Size: 9, Indent: 4})
		}
	}
	return s
}

func labelled(label, value string) string {
	if strings.TrimSpace(value) == "" {
		return ""
	}
	return label + ": " + value
}

func symptomsSection(symptoms []Symptom) layout.Section {
	rows := make([][]string, 0, len(symptoms))
	for _, s := range symptoms {
		rows = append(rows, []string{
			dateOr(s.LoggedAt, UnknownDate),
			orDefault(s.Name, NotProvided),
			severity(s.Severity),
			orDefault(strings.Join(nonEmpty(s.Triggers), ", "), NotAvailable),
		})
	}
	return layout.Section{Key: "symptoms", Title: "Recent Symptoms", Icon: "Sx", Body: []layout.Primitive{
		layout.Table{Columns: []string{"Date", "Symptom", "Severity", "Triggers"}, Rows: rows},
	}}
}

func metricsSection(metrics []Metric) layout.Section {
	rows := make([][]string, 0, len(metrics))
	for _, m := range metrics {
		rows = append(rows, []string{
			dateOr(m.RecordedAt, UnknownDate),
			orDefault(tag(m.Type), NotProvided),
			metricValue(m),
			orDefault(m.Unit, NotAvailable),
		})
	}
	return layout.Section{Key: "metrics", Title: "Health Metrics", Icon: "Hx", Body: []layout.Primitive{
		layout.Table{Columns: []string{"Date", "Metric", "Value", "Unit"}, Rows: rows},
	}}
}

func activitiesSection(sessions []ActivitySession) layout.Section {
	items := make([]string, 0, len(sessions))
	for _, a := range sessions {
		parts := []string{fmt.Sprintf("%s min", number(a.DurationMin))}
		if a.DistanceKm != nil {
			parts = append(parts, number(*a.DistanceKm)+" km")
		}
		if a.Calories != nil {
			parts = append(parts, number(*a.Calories)+" kcal")
		}
		if a.Steps != nil {
			parts = append(parts, number(float64(*a.Steps))+" steps")
		}
		item := orDefault(tag(a.Type), "Activity") + ": " + strings.Join(parts, ", ")
		if d, ok := formatDate(a.StartedAt); ok {
			item += " (" + d + ")"
		}
		items = append(items, item)
	}
	return layout.Section{Key: "activities", Title: "Activity Sessions", Icon: "Ax", Body: []layout.Primitive{
		layout.BulletList{Items: items},
	}}
}

func appointmentsSection(appts []Appointment) layout.Section {
	rows := make([][]string, 0, len(appts))
	for _, a := range appts {
		rows = append(rows, []string{
			dateOr(a.ScheduledAt, UnknownDate),
			orDefault(a.Title, NotProvided),
			orDefault(a.Doctor, NotAvailable),
			orDefault(a.Location, NotAvailable),
			orDefault(tag(a.Status), NotAvailable),
		})
	}
	return layout.Section{Key: "appointments", Title: "Appointments", Icon: "Ap", Body: []layout.Primitive{
		layout.Table{Columns: []string{"Date", "Title", "Doctor", "Location", "Status"}, Rows: rows},
	}}
}

func recordsSection(records []MedicalRecord) layout.Section {
	s := layout.Section{Key: "records", Title: "Medical Records", Icon: "Mr"}
	for _, r := range records {
		s.Body = append(s.Body, recordCard(r))
	}
	return s
}

func recordCard(r MedicalRecord) layout.RecordCard {
	return layout.RecordCard{
		Title:       orDefault(r.Title, "Untitled record"),
		Type:        tag(r.Type),
		Date:        dateOr(r.RecordDate, ""),
		Provider:    provider(r.Doctor, r.Facility),
		Description: r.Description,
		Attachment:  attachmentLabel(r),
	}
}

func recommendationsSection(recs []Recommendation) layout.Section {
	s := layout.Section{Key: "recommendations", Title: "Recommendations", Icon: "AI"}
	for _, r := range recs {
		title := strings.TrimSpace(r.Title)
		if title == "" {
			continue
		}
		if p := tag(r.Priority); p != "" {
			title = fmt.Sprintf("[%s] %s", p, title)
		}
		s.Body = append(s.Body, layout.Paragraph{Text: title, Bold: true})
		if desc := strings.TrimSpace(r.Description); desc != "" {
			s.Body = append(s.Body, layout.Paragraph{Text: desc, Size: 9, Indent: 4})
		}
	}
	return s
}

func sourcesSection(d *Data) layout.Section {
	var items []string
	count := func(label string, n int) {
		if n > 0 {
			items = append(items, fmt.Sprintf("%s: %s %s", label, number(float64(n)), plural(n, "entry", "entries")))
		}
	}
	count("Symptoms", len(d.Symptoms))
	count("Medications", len(d.Medications))
	count("Appointments", len(d.Appointments))
	count("Health metrics", len(d.Metrics))
	count("Water intake", len(d.WaterIntake))
	count("Nutrition", len(d.Nutrition))
	count("Activity sessions", len(d.Activities))
	count("Medication logs", len(d.MedicationLogs))
	count("Medical records", len(d.MedicalRecords))
	for _, src := range nonEmpty(d.DataSources) {
		items = append(items, "Source: "+src)
	}
	return layout.Section{Key: "sources", Title: "Data Sources", Icon: "Ds", Body: []layout.Primitive{
		layout.BulletList{Items: items, Size: 9},
	}}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

func nonEmpty(items []string) []string {
	var out []string
	for _, s := range items {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
