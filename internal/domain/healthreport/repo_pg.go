package healthreport

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ehr/healthreport/internal/report"
)

const dateLayout = "2006-01-02"

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func stamp(t time.Time) string { return t.UTC().Format(time.RFC3339) }

func date(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(dateLayout)
}

func sinceArg(since time.Time) *time.Time {
	if since.IsZero() {
		return nil
	}
	return &since
}

// collect scans every row with scan and closes rows.
func collect[T any](rows pgx.Rows, err error, scan func(pgx.Row) (T, error)) ([]T, error) {
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []T
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *repoPG) GetPatient(ctx context.Context, id uuid.UUID) (*report.Patient, error) {
	var (
		p   report.Patient
		dob *time.Time
	)
	err := r.pool.QueryRow(ctx, `
		SELECT name, date_of_birth, COALESCE(gender, ''), COALESCE(identifier, ''),
			height_cm::float8, weight_kg::float8, conditions, allergies,
			COALESCE(email, ''), COALESCE(phone, ''), COALESCE(address, ''),
			COALESCE(emergency_contact, '')
		FROM patients WHERE id = $1`, id).
		Scan(&p.Name, &dob, &p.Gender, &p.Identifier, &p.HeightCm, &p.WeightKg,
			&p.Conditions, &p.Allergies, &p.Email, &p.Phone, &p.Address, &p.EmergencyContact)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("patient %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get patient: %w", err)
	}
	p.DateOfBirth = date(dob)
	return &p, nil
}

func (r *repoPG) ListSymptoms(ctx context.Context, patientID uuid.UUID, since time.Time) ([]report.Symptom, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT name, severity, triggers, COALESCE(notes, ''), logged_at
		FROM symptoms
		WHERE patient_id = $1 AND ($2::timestamptz IS NULL OR logged_at >= $2)
		ORDER BY logged_at DESC`, patientID, sinceArg(since))
	return collect(rows, err, func(row pgx.Row) (report.Symptom, error) {
		var (
			s  report.Symptom
			at time.Time
		)
		err := row.Scan(&s.Name, &s.Severity, &s.Triggers, &s.Notes, &at)
		s.LoggedAt = stamp(at)
		return s, err
	})
}

func (r *repoPG) ListMedications(ctx context.Context, patientID uuid.UUID) ([]report.Medication, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT name, COALESCE(dosage, ''), COALESCE(frequency, ''), COALESCE(prescriber, ''),
			start_date, end_date, COALESCE(notes, ''), active
		FROM medications
		WHERE patient_id = $1
		ORDER BY active DESC, created_at DESC`, patientID)
	return collect(rows, err, func(row pgx.Row) (report.Medication, error) {
		var (
			m          report.Medication
			start, end *time.Time
		)
		err := row.Scan(&m.Name, &m.Dosage, &m.Frequency, &m.Prescriber, &start, &end, &m.Notes, &m.Active)
		m.StartDate, m.EndDate = date(start), date(end)
		return m, err
	})
}

func (r *repoPG) ListAppointments(ctx context.Context, patientID uuid.UUID, since time.Time) ([]report.Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT title, COALESCE(doctor, ''), COALESCE(location, ''), status, COALESCE(notes, ''), scheduled_at
		FROM appointments
		WHERE patient_id = $1 AND ($2::timestamptz IS NULL OR scheduled_at >= $2)
		ORDER BY scheduled_at DESC`, patientID, sinceArg(since))
	return collect(rows, err, func(row pgx.Row) (report.Appointment, error) {
		var (
			a  report.Appointment
			at time.Time
		)
		err := row.Scan(&a.Title, &a.Doctor, &a.Location, &a.Status, &a.Notes, &at)
		a.ScheduledAt = stamp(at)
		return a, err
	})
}

func (r *repoPG) ListMetrics(ctx context.Context, patientID uuid.UUID, since time.Time) ([]report.Metric, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT metric_type, value, COALESCE(unit, ''), additional_data, recorded_at
		FROM health_metrics
		WHERE patient_id = $1 AND ($2::timestamptz IS NULL OR recorded_at >= $2)
		ORDER BY recorded_at DESC`, patientID, sinceArg(since))
	return collect(rows, err, func(row pgx.Row) (report.Metric, error) {
		var (
			m  report.Metric
			at time.Time
		)
		err := row.Scan(&m.Type, &m.Value, &m.Unit, &m.Extra, &at)
		m.RecordedAt = stamp(at)
		return m, err
	})
}

func (r *repoPG) ListWaterIntake(ctx context.Context, patientID uuid.UUID, since time.Time) ([]report.WaterIntake, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT amount_ml, logged_at
		FROM water_intake
		WHERE patient_id = $1 AND ($2::timestamptz IS NULL OR logged_at >= $2)
		ORDER BY logged_at DESC`, patientID, sinceArg(since))
	return collect(rows, err, func(row pgx.Row) (report.WaterIntake, error) {
		var (
			w  report.WaterIntake
			at time.Time
		)
		err := row.Scan(&w.AmountML, &at)
		w.LoggedAt = stamp(at)
		return w, err
	})
}

func (r *repoPG) ListNutrition(ctx context.Context, patientID uuid.UUID, since time.Time) ([]report.NutritionEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT COALESCE(meal_type, ''), food, calories, logged_at
		FROM nutrition_entries
		WHERE patient_id = $1 AND ($2::timestamptz IS NULL OR logged_at >= $2)
		ORDER BY logged_at DESC`, patientID, sinceArg(since))
	return collect(rows, err, func(row pgx.Row) (report.NutritionEntry, error) {
		var (
			n  report.NutritionEntry
			at time.Time
		)
		err := row.Scan(&n.MealType, &n.Food, &n.Calories, &at)
		n.LoggedAt = stamp(at)
		return n, err
	})
}

func (r *repoPG) ListActivities(ctx context.Context, patientID uuid.UUID, since time.Time) ([]report.ActivitySession, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT activity_type, duration_min, distance_km, calories, steps, started_at
		FROM activity_sessions
		WHERE patient_id = $1 AND ($2::timestamptz IS NULL OR started_at >= $2)
		ORDER BY started_at DESC`, patientID, sinceArg(since))
	return collect(rows, err, func(row pgx.Row) (report.ActivitySession, error) {
		var (
			a  report.ActivitySession
			at time.Time
		)
		err := row.Scan(&a.Type, &a.DurationMin, &a.DistanceKm, &a.Calories, &a.Steps, &at)
		a.StartedAt = stamp(at)
		return a, err
	})
}

func (r *repoPG) ListMedicationLogs(ctx context.Context, patientID uuid.UUID, since time.Time) ([]report.MedicationLog, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT m.name, l.status, l.logged_at
		FROM medication_logs l
		JOIN medications m ON m.id = l.medication_id
		WHERE m.patient_id = $1 AND ($2::timestamptz IS NULL OR l.logged_at >= $2)
		ORDER BY l.logged_at DESC`, patientID, sinceArg(since))
	return collect(rows, err, func(row pgx.Row) (report.MedicationLog, error) {
		var (
			l  report.MedicationLog
			at time.Time
		)
		err := row.Scan(&l.Medication, &l.Status, &at)
		l.LoggedAt = stamp(at)
		return l, err
	})
}

const recordCols = `id, title, COALESCE(record_type, ''), COALESCE(description, ''),
	COALESCE(doctor, ''), COALESCE(facility, ''), record_date,
	COALESCE(file_name, ''), COALESCE(file_size, 0), COALESCE(file_ref, '')`

func scanRecord(row pgx.Row) (report.MedicalRecord, error) {
	var (
		rec report.MedicalRecord
		id  uuid.UUID
		at  *time.Time
	)
	err := row.Scan(&id, &rec.Title, &rec.Type, &rec.Description, &rec.Doctor, &rec.Facility,
		&at, &rec.FileName, &rec.FileSize, &rec.FileRef)
	rec.ID = id.String()
	rec.RecordDate = date(at)
	return rec, err
}

func (r *repoPG) ListMedicalRecords(ctx context.Context, patientID uuid.UUID) ([]report.MedicalRecord, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+recordCols+` FROM medical_records
		WHERE patient_id = $1 ORDER BY record_date DESC NULLS LAST, created_at DESC`, patientID)
	return collect(rows, err, scanRecord)
}

func (r *repoPG) GetMedicalRecord(ctx context.Context, patientID, recordID uuid.UUID) (*report.MedicalRecord, error) {
	rec, err := scanRecord(r.pool.QueryRow(ctx, `SELECT `+recordCols+` FROM medical_records
		WHERE id = $1 AND patient_id = $2`, recordID, patientID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("medical record %s: %w", recordID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get medical record: %w", err)
	}
	return &rec, nil
}

func (r *repoPG) ListRecommendations(ctx context.Context, patientID uuid.UUID) ([]report.Recommendation, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT title, COALESCE(description, ''), priority
		FROM recommendations
		WHERE patient_id = $1
		ORDER BY CASE priority WHEN 'high' THEN 0 WHEN 'medium' THEN 1 ELSE 2 END, created_at DESC`, patientID)
	return collect(rows, err, func(row pgx.Row) (report.Recommendation, error) {
		var rec report.Recommendation
		err := row.Scan(&rec.Title, &rec.Description, &rec.Priority)
		return rec, err
	})
}
