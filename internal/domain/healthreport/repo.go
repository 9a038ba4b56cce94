package healthreport

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/ehr/healthreport/internal/report"
)

var ErrNotFound = errors.New("not found")

// Repository reads the per-patient health data a report is built from.
// List methods return newest first; a zero since disables the time filter.
type Repository interface {
	GetPatient(ctx context.Context, id uuid.UUID) (*report.Patient, error)
	ListSymptoms(ctx context.Context, patientID uuid.UUID, since time.Time) ([]report.Symptom, error)
	ListMedications(ctx context.Context, patientID uuid.UUID) ([]report.Medication, error)
	ListAppointments(ctx context.Context, patientID uuid.UUID, since time.Time) ([]report.Appointment, error)
	ListMetrics(ctx context.Context, patientID uuid.UUID, since time.Time) ([]report.Metric, error)
	ListWaterIntake(ctx context.Context, patientID uuid.UUID, since time.Time) ([]report.WaterIntake, error)
	ListNutrition(ctx context.Context, patientID uuid.UUID, since time.Time) ([]report.NutritionEntry, error)
	ListActivities(ctx context.Context, patientID uuid.UUID, since time.Time) ([]report.ActivitySession, error)
	ListMedicationLogs(ctx context.Context, patientID uuid.UUID, since time.Time) ([]report.MedicationLog, error)
	ListMedicalRecords(ctx context.Context, patientID uuid.UUID) ([]report.MedicalRecord, error)
	GetMedicalRecord(ctx context.Context, patientID, recordID uuid.UUID) (*report.MedicalRecord, error)
	ListRecommendations(ctx context.Context, patientID uuid.UUID) ([]report.Recommendation, error)
}
