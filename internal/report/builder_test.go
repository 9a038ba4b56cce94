package report

import (
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/ehr/healthreport/internal/layout"
)

func TestBuildMainReport_NilData(t *testing.T) {
	_, err := NewBuilder(testOptions()).BuildMainReport(nil)
	if !errors.Is(err, ErrNilData) {
		t.Errorf("err = %v, want ErrNilData", err)
	}
}

func TestBuildMainReport_InvalidGeometry(t *testing.T) {
	opts := testOptions()
	opts.Geometry = layout.Geometry{PageWidth: 100, PageHeight: 50, Margin: 20, HeaderBand: 40, FooterBand: 25}
	_, err := NewBuilder(opts).BuildMainReport(fullData())
	if !errors.Is(err, layout.ErrInvalidGeometry) {
		t.Errorf("err = %v, want ErrInvalidGeometry", err)
	}
}

func TestBuildMainReport_SectionOrder(t *testing.T) {
	doc := build(t, fullData())

	want := []string{
		"score", "patient", "conditions", "allergies", "medications", "symptoms",
		"metrics", "activities", "appointments", "records", "trends",
		"recommendations", "sources", "disclaimer",
	}
	var got []string
	seen := map[string]bool{}
	for _, p := range doc.Pages {
		for _, op := range p.Ops {
			m := op.Attrs()
			if m.Layer != layout.LayerBody || seen[m.Section] {
				continue
			}
			seen[m.Section] = true
			got = append(got, m.Section)
		}
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("section order = %v\nwant %v", got, want)
	}
}

func TestBuildMainReport_ComputesScore(t *testing.T) {
	doc := build(t, fullData())
	if !contains(sectionTexts(doc, "score"), "8.2 / 10") {
		t.Errorf("score texts = %v, want 8.2 / 10", sectionTexts(doc, "score"))
	}
}

func TestBuildMainReport_SuppliedScoreWins(t *testing.T) {
	d := fullData()
	d.HealthScore = "6.5"
	doc := build(t, d)
	texts := sectionTexts(doc, "score")
	if !contains(texts, "6.5 / 10") || !contains(texts, "Good") {
		t.Errorf("score texts = %v, want 6.5 / 10 and Good", texts)
	}

	d.HealthScore = "eleven"
	doc = build(t, d)
	if !contains(sectionTexts(doc, "score"), "8.2 / 10") {
		t.Error("an invalid supplied score must fall back to the computed one")
	}
}

func TestBuildMainReport_SuppressesEmptySections(t *testing.T) {
	tests := []struct {
		section string
		mutate  func(d *Data)
	}{
		{"conditions", func(d *Data) { d.Patient.Conditions = nil }},
		{"conditions", func(d *Data) { d.Patient.Conditions = []string{" ", ""} }},
		{"allergies", func(d *Data) { d.Patient.Allergies = nil }},
		{"medications", func(d *Data) { d.Medications = nil }},
		{"symptoms", func(d *Data) { d.Symptoms = nil }},
		{"metrics", func(d *Data) { d.Metrics = nil }},
		{"activities", func(d *Data) { d.Activities = nil }},
		{"appointments", func(d *Data) { d.Appointments = nil }},
		{"records", func(d *Data) { d.MedicalRecords = nil }},
		{"recommendations", func(d *Data) { d.Recommendations = nil }},
		{"recommendations", func(d *Data) { d.Recommendations = []Recommendation{{Title: "  "}} }},
		{"trends", func(d *Data) { *d = Data{Patient: d.Patient} }},
		{"sources", func(d *Data) { *d = Data{Patient: d.Patient} }},
	}
	for _, tt := range tests {
		t.Run(tt.section, func(t *testing.T) {
			d := fullData()
			if ops := sectionOps(build(t, d), tt.section); len(ops) == 0 {
				t.Fatalf("section %q missing from the full report", tt.section)
			}

			tt.mutate(d)
			doc := build(t, d)
			if ops := sectionOps(doc, tt.section); len(ops) != 0 {
				t.Errorf("empty section %q drew %d ops", tt.section, len(ops))
			}
		})
	}
}

func TestBuildMainReport_MinimalData(t *testing.T) {
	doc := build(t, &Data{})

	for _, key := range []string{"score", "patient", "disclaimer"} {
		if len(sectionOps(doc, key)) == 0 {
			t.Errorf("section %q missing", key)
		}
	}
	patient := sectionTexts(doc, "patient")
	if !contains(patient, NotProvided) || !contains(patient, NotAvailable) {
		t.Errorf("patient texts = %v, want placeholders", patient)
	}
	if doc.PageCount() != 1 {
		t.Errorf("pages = %d, want 1", doc.PageCount())
	}
}

func TestBuildMainReport_FifteenSymptomsRenderTen(t *testing.T) {
	d := fullData()
	d.Symptoms = nil
	for _, name := range numbered("Headache", 15) {
		d.Symptoms = append(d.Symptoms, Symptom{Name: name, Severity: 3, LoggedAt: ago(1)})
	}
	doc := build(t, d)

	texts := sectionTexts(doc, "symptoms")
	rows, headers := 0, 0
	for _, s := range texts {
		if strings.HasPrefix(s, "Headache") {
			rows++
		}
		if s == "Recent Symptoms" {
			headers++
		}
	}
	if rows != 10 {
		t.Errorf("symptom rows = %d, want 10", rows)
	}
	if headers != 1 {
		t.Errorf("symptom headers = %d, want 1", headers)
	}
}

func TestBuildMainReport_MasksIdentifier(t *testing.T) {
	d := fullData()
	doc := build(t, d)
	texts := sectionTexts(doc, "patient")
	if !contains(texts, "*****6789") || contains(texts, "123456789") {
		t.Errorf("patient texts = %v, want masked identifier", texts)
	}

	d.ShowFullIdentifier = true
	doc = build(t, d)
	if !contains(sectionTexts(doc, "patient"), "123456789") {
		t.Error("expected full identifier when ShowFullIdentifier is set")
	}
}

func TestBuildMainReport_PatientFields(t *testing.T) {
	doc := build(t, fullData())
	texts := sectionTexts(doc, "patient")
	for _, want := range []string{"Jane Doe", "Apr 12, 1985", "41 years", "Female", "170 cm", "65 kg", "22.5"} {
		if !contains(texts, want) {
			t.Errorf("patient section missing %q", want)
		}
	}
}

func TestBuildMainReport_MalformedTimestampsAreIsolated(t *testing.T) {
	d := fullData()
	d.Symptoms = append(d.Symptoms, Symptom{Name: "Dizziness", Severity: 6, LoggedAt: "last tuesday"})
	d.MedicalRecords[0].RecordDate = "30/09/2026"
	d.Activities[0].StartedAt = ""

	doc := build(t, d)
	symptoms := sectionTexts(doc, "symptoms")
	if !contains(symptoms, UnknownDate) || !contains(symptoms, "Dizziness") {
		t.Errorf("symptom texts = %v, want the undated row with a placeholder", symptoms)
	}
	if !contains(sectionTexts(doc, "records"), "Lab Result") {
		t.Error("record with a bad date should still render its type line without a date")
	}
	if !contains(sectionTexts(doc, "activities"), "Running: 30 min, 5.2 km, 320 kcal") {
		t.Errorf("activity texts = %v", sectionTexts(doc, "activities"))
	}
}

func TestBuildMainReport_MetricsTable(t *testing.T) {
	doc := build(t, fullData())
	texts := sectionTexts(doc, "metrics")
	for _, want := range []string{"Blood Pressure", "120/80", "mmHg", "8,000", "Oct 18, 2026"} {
		if !contains(texts, want) {
			t.Errorf("metrics section missing %q", want)
		}
	}
}

func TestBuildMainReport_Trends(t *testing.T) {
	doc := build(t, fullData())
	texts := sectionTexts(doc, "trends")
	for _, want := range []string{
		"Average steps: 8,000 per day (7 readings)",
		"Average water intake: 1.8 L per day over 3 days",
		"Average calories: 1,000 kcal per day",
		"Medication adherence: 50% (1 of 2 doses taken)",
	} {
		if !contains(texts, want) {
			t.Errorf("trends section missing %q; got %v", want, texts)
		}
	}
}

func TestBuildMainReport_SourcesAndRecommendations(t *testing.T) {
	doc := build(t, fullData())
	sources := sectionTexts(doc, "sources")
	for _, want := range []string{"Symptoms: 3 entries", "Appointments: 1 entry", "Source: Apple Health"} {
		if !contains(sources, want) {
			t.Errorf("sources section missing %q", want)
		}
	}
	if !contains(sectionTexts(doc, "recommendations"), "[High] Increase water intake") {
		t.Error("expected prioritised recommendation title")
	}
}

func TestBuildMainReport_FooterAndHeaderOnEveryPage(t *testing.T) {
	d := fullData()
	for i := 0; i < 25; i++ {
		d.MedicalRecords = append(d.MedicalRecords, MedicalRecord{Title: "Follow-up note", Type: "note", RecordDate: ago(i)})
	}
	doc := build(t, d)
	if doc.PageCount() < 2 {
		t.Fatalf("pages = %d, want at least 3", doc.PageCount())
	}

	stamps := 0
	for _, s := range layerTexts(doc, layout.LayerFooter) {
		if strings.HasPrefix(s, "Page ") {
			stamps++
		}
	}
	if stamps != doc.PageCount() {
		t.Errorf("footer stamps = %d, want %d", stamps, doc.PageCount())
	}
	headers := 0
	for _, s := range layerTexts(doc, layout.LayerHeader) {
		if s == "Health Report" {
			headers++
		}
	}
	if headers != doc.PageCount() {
		t.Errorf("running headers = %d, want %d", headers, doc.PageCount())
	}
	if !contains(layerTexts(doc, layout.LayerFooter), "Test attribution") {
		t.Error("expected attribution line in the footer")
	}
}

func TestBuildMainReport_Metadata(t *testing.T) {
	doc := build(t, fullData())
	if doc.Title != "Health Report" {
		t.Errorf("Title = %q, want %q", doc.Title, "Health Report")
	}
	if doc.Subject != "Health report for Jane Doe" {
		t.Errorf("Subject = %q", doc.Subject)
	}
	if !contains(layerTexts(doc, layout.LayerHeader), "Generated Oct 18, 2026 12:00") {
		t.Errorf("header texts = %v", layerTexts(doc, layout.LayerHeader))
	}
}

func TestBuildMainReport_DoesNotMutateInput(t *testing.T) {
	d := fullData()
	// Oldest first so any in-place sort would show up.
	for i, j := 0, len(d.Metrics)-1; i < j; i, j = i+1, j-1 {
		d.Metrics[i], d.Metrics[j] = d.Metrics[j], d.Metrics[i]
	}
	want := fullData()
	for i, j := 0, len(want.Metrics)-1; i < j; i, j = i+1, j-1 {
		want.Metrics[i], want.Metrics[j] = want.Metrics[j], want.Metrics[i]
	}

	build(t, d)
	if !reflect.DeepEqual(d, want) {
		t.Error("BuildMainReport modified its input")
	}
}

func TestBuilder_Reusable(t *testing.T) {
	b := NewBuilder(testOptions())
	first, err := b.BuildMainReport(fullData())
	if err != nil {
		t.Fatal(err)
	}
	second, err := b.BuildMainReport(fullData())
	if err != nil {
		t.Fatal(err)
	}
	if first == second || !reflect.DeepEqual(first, second) {
		t.Error("two builds of the same data should be equal but distinct documents")
	}
}

func TestBuilder_ConcurrentBuilds(t *testing.T) {
	b := NewBuilder(testOptions())
	want, err := b.BuildMainReport(fullData())
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 20; i++ {
				doc, err := b.BuildMainReport(fullData())
				if err != nil {
					errs <- err
					return
				}
				if !reflect.DeepEqual(doc, want) {
					errs <- errors.New("concurrent build differs from a sequential one")
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func oversizedData() *Data {
	d := fullData()
	p := &d.Patient
	p.Address = long("Apartment 12B, Long Street Lane", 60)
	p.EmergencyContact = long("John Doe (brother), call after 6pm,", 30)
	p.Email = strings.Repeat("jane.doe", 20) + "@example.com"
	p.Conditions = []string{long("Chronic obstructive pulmonary disease", 25), "Asthma"}
	p.Allergies = []string{long("Penicillin and related beta-lactam antibiotics", 20)}
	for i := range d.Medications {
		d.Medications[i].Prescriber = long("Dr. Alexandra Montgomery-Smith", 10)
		d.Medications[i].Notes = long("Take with food and plenty of water.", 40)
	}
	d.Symptoms[0].Notes = long("Worse in the afternoon.", 30)
	d.Symptoms[0].Triggers = []string{long("bright light", 20)}
	d.Appointments[0].Notes = long("Bring previous lab results.", 30)
	d.Appointments[0].Location = long("City Clinic, Building C", 10)
	d.MedicalRecords[0].Description = long("Complete blood count, all values in range.", 30)
	d.Recommendations[0].Description = long("Aim for 2 litres per day.", 60)
	d.DataSources = []string{long("Apple Health export", 30), "Manual entry"}
	return d
}

func TestBuildMainReport_BodyStaysInsideContentArea(t *testing.T) {
	doc := build(t, oversizedData())

	if doc.PageCount() < 2 {
		t.Fatalf("pages = %d, expected oversized text to span several pages", doc.PageCount())
	}
	if v := bandViolations(doc); len(v) > 0 {
		t.Errorf("%d body ops outside the content area:\n%s", len(v), strings.Join(v, "\n"))
	}
}

func TestBuildMainReport_LongAddressKeepsEveryLine(t *testing.T) {
	d := oversizedData()
	doc := build(t, d)

	colW := (layout.A4().ContentWidth() - 10) / 2
	lines := layout.Wrap(monoMeasurer{}, d.Patient.Address, layout.DefaultFontSize, false, colW)
	if len(lines) < 40 {
		t.Fatalf("test setup: address wraps to %d lines", len(lines))
	}
	wrapped := map[string]bool{}
	for _, l := range lines {
		wrapped[l] = true
	}
	drawn := 0
	for _, s := range sectionTexts(doc, "patient") {
		if wrapped[s] {
			drawn++
		}
	}
	if drawn != len(lines) {
		t.Errorf("address lines drawn = %d, want %d", drawn, len(lines))
	}
}

func TestBuildMainReport_EveryMedicationHasDetails(t *testing.T) {
	d := fullData()
	d.Medications = nil
	for _, name := range numbered("Med", 12) {
		d.Medications = append(d.Medications, Medication{Name: name, Dosage: "5mg", Prescriber: "Dr. Smith", Active: true})
	}
	doc := build(t, d)

	texts := sectionTexts(doc, "medications")
	count := func(want string) int {
		n := 0
		for _, s := range texts {
			if s == want {
				n++
			}
		}
		return n
	}
	// The first ten appear in the table and in their detail block.
	if n := count("Med 00"); n != 2 {
		t.Errorf("Med 00 drawn %d times, want 2", n)
	}
	// Past the table cap only the detail block remains.
	if n := count("Med 11"); n != 1 {
		t.Errorf("Med 11 drawn %d times, want 1", n)
	}
	if n := count("Prescribed by: Dr. Smith"); n != 12 {
		t.Errorf("detail lines = %d, want 12", n)
	}
}
