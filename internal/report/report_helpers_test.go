package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/ehr/healthreport/internal/layout"
)

var testNow = time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

// monoMeasurer gives every rune the same width so wrapping is predictable.
type monoMeasurer struct{}

func (monoMeasurer) TextWidth(s string, size float64, _ bool) float64 {
	return float64(len([]rune(s))) * size * 0.2
}

func testOptions() Options {
	return Options{
		Geometry:    layout.A4(),
		Measurer:    monoMeasurer{},
		Title:       "Health Report",
		Attribution: "Test attribution",
		Now:         func() time.Time { return testNow },
	}
}

func ago(days int) string {
	return testNow.AddDate(0, 0, -days).Format(time.RFC3339)
}

func ptr[T any](v T) *T { return &v }

func fullData() *Data {
	d := &Data{
		Patient: Patient{
			Name:             "Jane Doe",
			DateOfBirth:      "1985-04-12",
			Age:              ptr(41),
			Gender:           "female",
			Identifier:       "123456789",
			HeightCm:         ptr(170.0),
			WeightKg:         ptr(65.0),
			Conditions:       []string{"Asthma", "Hypertension"},
			Allergies:        []string{"Penicillin"},
			Email:            "jane@example.com",
			Phone:            "+1 555 0100",
			Address:          "12 Elm Street, Springfield",
			EmergencyContact: "John Doe, +1 555 0101",
		},
		Medications: []Medication{
			{Name: "Lisinopril", Dosage: "10mg", Frequency: "Daily", Prescriber: "Dr. Smith", StartDate: "2026-01-05", Active: true},
			{Name: "Salbutamol", Dosage: "100mcg", Frequency: "As needed", Active: true},
		},
		Symptoms: []Symptom{
			{Name: "Headache", Severity: 4, Triggers: []string{"stress"}, LoggedAt: ago(0)},
			{Name: "Cough", Severity: 2, LoggedAt: ago(2)},
			{Name: "Fatigue", Severity: 5, LoggedAt: ago(5)},
		},
		Appointments: []Appointment{
			{Title: "Annual checkup", Doctor: "Dr. Smith", Location: "City Clinic", Status: "scheduled", ScheduledAt: "2026-11-02T09:30:00Z"},
		},
		WaterIntake: []WaterIntake{
			{AmountML: 1800, LoggedAt: ago(0)},
			{AmountML: 1800, LoggedAt: ago(1)},
			{AmountML: 1800, LoggedAt: ago(2)},
		},
		Nutrition: []NutritionEntry{
			{MealType: "breakfast", Food: "Oatmeal", Calories: 350, LoggedAt: ago(0)},
			{MealType: "dinner", Food: "Salmon", Calories: 650, LoggedAt: ago(0)},
		},
		Activities: []ActivitySession{
			{Type: "running", DurationMin: 30, DistanceKm: ptr(5.2), Calories: ptr(320.0), StartedAt: ago(1)},
		},
		MedicationLogs: []MedicationLog{
			{Medication: "Lisinopril", Status: "taken", LoggedAt: ago(0)},
			{Medication: "Lisinopril", Status: "missed", LoggedAt: ago(1)},
		},
		MedicalRecords: []MedicalRecord{
			{ID: "r1", Title: "Blood panel", Type: "lab_result", Description: "Complete blood count, all values in range.", Doctor: "Dr. Smith", Facility: "City Lab", RecordDate: "2026-09-30", FileName: "cbc.pdf", FileSize: 2_000_000},
		},
		Recommendations: []Recommendation{
			{Title: "Increase water intake", Description: "Aim for 2 litres per day.", Priority: "high"},
		},
		DataSources: []string{"Apple Health", "Manual entry"},
		GeneratedAt: "2026-10-18T12:00:00Z",
	}
	for i := 0; i < 7; i++ {
		d.Metrics = append(d.Metrics, Metric{Type: "steps", Value: 8000, Unit: "steps", RecordedAt: ago(i)})
	}
	d.Metrics = append(d.Metrics, Metric{Type: "blood_pressure", Value: 120, Unit: "mmHg", Extra: map[string]any{"diastolic": 80.0}, RecordedAt: ago(1)})
	return d
}

func build(t interface{ Fatalf(string, ...any) }, d *Data) *layout.Document {
	doc, err := NewBuilder(testOptions()).BuildMainReport(d)
	if err != nil {
		t.Fatalf("BuildMainReport: %v", err)
	}
	return doc
}

func sectionOps(doc *layout.Document, key string) []layout.Op {
	var out []layout.Op
	for _, p := range doc.Pages {
		for _, op := range p.Ops {
			if m := op.Attrs(); m.Layer == layout.LayerBody && m.Section == key {
				out = append(out, op)
			}
		}
	}
	return out
}

func sectionTexts(doc *layout.Document, key string) []string {
	var out []string
	for _, op := range sectionOps(doc, key) {
		if tx, ok := op.(layout.Text); ok {
			out = append(out, tx.Value)
		}
	}
	return out
}

func layerTexts(doc *layout.Document, layer layout.Layer) []string {
	var out []string
	for _, p := range doc.Pages {
		for _, op := range p.Ops {
			if tx, ok := op.(layout.Text); ok && tx.Layer == layer {
				out = append(out, tx.Value)
			}
		}
	}
	return out
}

func contains(texts []string, want string) bool {
	for _, s := range texts {
		if s == want {
			return true
		}
	}
	return false
}

func containsPrefix(texts []string, prefix string) bool {
	for _, s := range texts {
		if strings.HasPrefix(s, prefix) {
			return true
		}
	}
	return false
}

func numbered(prefix string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("%s %02d", prefix, i)
	}
	return out
}

// bandViolations lists body operations drawn outside the content area. Text
// is measured at its baseline and a circle at its lowest point.
func bandViolations(doc *layout.Document) []string {
	top, bottom := doc.Geometry.ContentTop(), doc.Geometry.ContentBottom()
	var out []string
	for _, p := range doc.Pages {
		for _, op := range p.Ops {
			m := op.Attrs()
			if m.Layer != layout.LayerBody {
				continue
			}
			var lo, hi float64
			switch o := op.(type) {
			case layout.Text:
				lo, hi = o.Y, o.Y
			case layout.Rect:
				lo, hi = o.Y, o.Y+o.H
			case layout.Circle:
				lo, hi = o.Y+o.R, o.Y+o.R
			case layout.Line:
				lo, hi = min(o.Y1, o.Y2), max(o.Y1, o.Y2)
			}
			if lo < top || hi > bottom {
				out = append(out, fmt.Sprintf("page %d, section %s: %T spans %.1f..%.1f", p.Number, m.Section, op, lo, hi))
			}
		}
	}
	return out
}

// long repeats a phrase into free text that wraps over many lines.
func long(phrase string, n int) string {
	return strings.TrimSpace(strings.Repeat(phrase+" ", n))
}
