// Package healthreport assembles patient snapshots from the database and
// turns them into archived PDF documents: the main health report, a single
// medical record and the combined records listing.
package healthreport

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ehr/healthreport/internal/layout"
	"github.com/ehr/healthreport/internal/platform/docstore"
	"github.com/ehr/healthreport/internal/platform/metrics"
	"github.com/ehr/healthreport/internal/platform/pdf"
	"github.com/ehr/healthreport/internal/report"
	"github.com/ehr/healthreport/internal/score"
)

// ErrNoSource is returned by patient lookups when no database is configured.
var ErrNoSource = errors.New("no snapshot source configured")

// SnapshotOptions control what a snapshot includes.
type SnapshotOptions struct {
	ShowFullIdentifier bool
	// Since limits time-series collections to entries at or after it.
	Since time.Time
}

// Config wires a Service. Store and Metrics are optional.
type Config struct {
	Report  report.Options
	Creator string
	Store   docstore.Store
	Metrics *metrics.Metrics
	Logger  zerolog.Logger
}

// Generated is a rendered document and its archive metadata. Metadata.ID is
// empty when the document could not be archived.
type Generated struct {
	Metadata docstore.Metadata
	Content  []byte
}

type Service struct {
	repo     Repository
	reports  *report.Builder
	records  *report.RecordBuilder
	renderer *pdf.Renderer
	store    docstore.Store
	metrics  *metrics.Metrics
	logger   zerolog.Logger
	now      func() time.Time
}

// NewService creates a Service. repo may be nil, in which case only
// RenderMain works.
func NewService(repo Repository, cfg Config) *Service {
	now := cfg.Report.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		repo:     repo,
		reports:  report.NewBuilder(cfg.Report),
		records:  report.NewRecordBuilder(cfg.Report),
		renderer: pdf.NewRenderer(cfg.Creator),
		store:    cfg.Store,
		metrics:  cfg.Metrics,
		logger:   cfg.Logger.With().Str("component", "healthreport").Logger(),
		now:      now,
	}
}

// Snapshot gathers everything the main report needs for one patient. The
// health score is computed here and stored on the snapshot.
func (s *Service) Snapshot(ctx context.Context, patientID uuid.UUID, opts SnapshotOptions) (*report.Data, error) {
	if s.repo == nil {
		return nil, ErrNoSource
	}
	patient, err := s.repo.GetPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	d := &report.Data{
		Patient:            *patient,
		GeneratedAt:        now.UTC().Format(time.RFC3339),
		ShowFullIdentifier: opts.ShowFullIdentifier,
	}
	if d.Patient.Age == nil {
		d.Patient.Age = ageOn(d.Patient.DateOfBirth, now)
	}

	since := opts.Since
	steps := []struct {
		name string
		load func() error
	}{
		{"symptoms", func() (err error) { d.Symptoms, err = s.repo.ListSymptoms(ctx, patientID, since); return }},
		{"medications", func() (err error) { d.Medications, err = s.repo.ListMedications(ctx, patientID); return }},
		{"appointments", func() (err error) { d.Appointments, err = s.repo.ListAppointments(ctx, patientID, since); return }},
		{"metrics", func() (err error) { d.Metrics, err = s.repo.ListMetrics(ctx, patientID, since); return }},
		{"water intake", func() (err error) { d.WaterIntake, err = s.repo.ListWaterIntake(ctx, patientID, since); return }},
		{"nutrition", func() (err error) { d.Nutrition, err = s.repo.ListNutrition(ctx, patientID, since); return }},
		{"activities", func() (err error) { d.Activities, err = s.repo.ListActivities(ctx, patientID, since); return }},
		{"medication logs", func() (err error) { d.MedicationLogs, err = s.repo.ListMedicationLogs(ctx, patientID, since); return }},
		{"medical records", func() (err error) { d.MedicalRecords, err = s.repo.ListMedicalRecords(ctx, patientID); return }},
		{"recommendations", func() (err error) { d.Recommendations, err = s.repo.ListRecommendations(ctx, patientID); return }},
	}
	for _, step := range steps {
		if err := step.load(); err != nil {
			return nil, fmt.Errorf("list %s: %w", step.name, err)
		}
	}

	d.DataSources = dataSources(d)
	d.HealthScore = score.Compute(d.ScoreInputs(), now).String()
	return d, nil
}

func dataSources(d *report.Data) []string {
	var out []string
	if len(d.Symptoms)+len(d.WaterIntake)+len(d.Nutrition)+len(d.MedicationLogs) > 0 {
		out = append(out, "Patient-reported tracking")
	}
	if len(d.Metrics)+len(d.Activities) > 0 {
		out = append(out, "Connected devices and manual entries")
	}
	if len(d.MedicalRecords) > 0 {
		out = append(out, "Uploaded medical records")
	}
	return out
}

// ageOn returns completed years between dob and now, or nil when dob is
// missing, unreadable or in the future.
func ageOn(dob string, now time.Time) *int {
	born, ok := score.ParseTime(dob)
	if !ok || born.After(now) {
		return nil
	}
	age := now.Year() - born.Year()
	if now.Month() < born.Month() || (now.Month() == born.Month() && now.Day() < born.Day()) {
		age--
	}
	return &age
}

// Score computes the health score breakdown for a patient.
func (s *Service) Score(ctx context.Context, patientID uuid.UUID) (score.Result, error) {
	d, err := s.Snapshot(ctx, patientID, SnapshotOptions{})
	if err != nil {
		return score.Result{}, err
	}
	return score.Compute(d.ScoreInputs(), s.now()), nil
}

// MainReport builds, renders and archives the main report for a patient.
func (s *Service) MainReport(ctx context.Context, patientID uuid.UUID, opts SnapshotOptions, requestedBy string) (*Generated, error) {
	d, err := s.Snapshot(ctx, patientID, opts)
	if err != nil {
		return nil, err
	}
	return s.RenderMain(ctx, d, patientID.String(), requestedBy)
}

// RenderMain builds, renders and archives a main report from a snapshot
// supplied by the caller.
func (s *Service) RenderMain(ctx context.Context, d *report.Data, patientID, requestedBy string) (*Generated, error) {
	if d == nil {
		return nil, report.ErrNilData
	}
	meta := docstore.Metadata{
		Kind:      docstore.KindMainReport,
		PatientID: patientID,
		FileName:  fileName("health-report", d.Patient.Name, s.now()),
		CreatedBy: requestedBy,
	}
	return s.generate(ctx, meta, func() (*layout.Document, error) {
		return s.reports.BuildMainReport(d)
	})
}

// SingleRecord renders one medical record of a patient.
func (s *Service) SingleRecord(ctx context.Context, patientID, recordID uuid.UUID, requestedBy string) (*Generated, error) {
	if s.repo == nil {
		return nil, ErrNoSource
	}
	patient, err := s.repo.GetPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	rec, err := s.repo.GetMedicalRecord(ctx, patientID, recordID)
	if err != nil {
		return nil, err
	}
	meta := docstore.Metadata{
		Kind:      docstore.KindSingleRecord,
		PatientID: patientID.String(),
		RecordID:  recordID.String(),
		FileName:  fileName("medical-record", rec.Title, s.now()),
		CreatedBy: requestedBy,
	}
	return s.generate(ctx, meta, func() (*layout.Document, error) {
		return s.records.BuildSingleRecord(*rec, patient.Name)
	})
}

// CombinedRecords renders every medical record of a patient into one
// document.
func (s *Service) CombinedRecords(ctx context.Context, patientID uuid.UUID, requestedBy string) (*Generated, error) {
	if s.repo == nil {
		return nil, ErrNoSource
	}
	patient, err := s.repo.GetPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	records, err := s.repo.ListMedicalRecords(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("list medical records: %w", err)
	}
	meta := docstore.Metadata{
		Kind:      docstore.KindCombinedRecords,
		PatientID: patientID.String(),
		FileName:  fileName("medical-records", patient.Name, s.now()),
		CreatedBy: requestedBy,
	}
	return s.generate(ctx, meta, func() (*layout.Document, error) {
		return s.records.BuildCombinedRecords(records, patient.Name)
	})
}

func (s *Service) generate(ctx context.Context, meta docstore.Metadata, build func() (*layout.Document, error)) (*Generated, error) {
	kind := string(meta.Kind)
	start := time.Now()

	doc, err := build()
	if err != nil {
		s.observeFailure(kind)
		return nil, fmt.Errorf("build %s: %w", kind, err)
	}
	content, err := s.renderer.Render(doc)
	if err != nil {
		s.observeFailure(kind)
		return nil, fmt.Errorf("render %s: %w", kind, err)
	}
	elapsed := time.Since(start)

	meta.Pages = doc.PageCount()
	meta.ContentType = pdf.ContentType
	meta.Size = int64(len(content))

	if s.store != nil {
		stored, err := s.store.Put(ctx, meta, content)
		if err != nil {
			s.logger.Warn().Err(err).Str("kind", kind).Msg("document not archived")
		} else {
			meta = *stored
		}
	}

	if s.metrics != nil {
		s.metrics.ObserveBuild(kind, meta.Pages, len(content), elapsed)
		if s.store != nil {
			s.metrics.ArchivedDocuments.Set(float64(s.store.Len()))
		}
	}

	s.logger.Info().
		Str("kind", kind).
		Str("document_id", meta.ID).
		Str("patient_id", meta.PatientID).
		Int("pages", meta.Pages).
		Int("bytes", len(content)).
		Dur("duration", elapsed).
		Msg("document generated")

	return &Generated{Metadata: meta, Content: content}, nil
}

func (s *Service) observeFailure(kind string) {
	if s.metrics != nil {
		s.metrics.ObserveFailure(kind)
	}
}

// fileName builds "prefix-subject-2006-01-02.pdf" with subject reduced to
// lowercase ASCII letters, digits and dashes.
func fileName(prefix, subject string, now time.Time) string {
	parts := []string{prefix}
	if slug := slugify(subject); slug != "" {
		parts = append(parts, slug)
	}
	parts = append(parts, now.Format("2006-01-02"))
	return strings.Join(parts, "-") + ".pdf"
}

func slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
			dash = false
		case b.Len() > 0 && !dash:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
