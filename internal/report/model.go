package report

import (
	"strings"

	"github.com/ehr/healthreport/internal/score"
)

// Data is the read-only snapshot a report is built from. Collections are
// expected newest first and are never modified by the builders. Timestamps
// are strings; anything score.ParseTime cannot read is treated as undated.
type Data struct {
	Patient            Patient           `json:"patient" yaml:"patient"`
	HealthScore        string            `json:"health_score,omitempty" yaml:"health_score,omitempty"`
	Symptoms           []Symptom         `json:"symptoms,omitempty" yaml:"symptoms,omitempty"`
	Medications        []Medication      `json:"medications,omitempty" yaml:"medications,omitempty"`
	Appointments       []Appointment     `json:"appointments,omitempty" yaml:"appointments,omitempty"`
	Metrics            []Metric          `json:"metrics,omitempty" yaml:"metrics,omitempty"`
	WaterIntake        []WaterIntake     `json:"water_intake,omitempty" yaml:"water_intake,omitempty"`
	Nutrition          []NutritionEntry  `json:"nutrition,omitempty" yaml:"nutrition,omitempty"`
	Activities         []ActivitySession `json:"activities,omitempty" yaml:"activities,omitempty"`
	MedicationLogs     []MedicationLog   `json:"medication_logs,omitempty" yaml:"medication_logs,omitempty"`
	MedicalRecords     []MedicalRecord   `json:"medical_records,omitempty" yaml:"medical_records,omitempty"`
	Recommendations    []Recommendation  `json:"recommendations,omitempty" yaml:"recommendations,omitempty"`
	DataSources        []string          `json:"data_sources,omitempty" yaml:"data_sources,omitempty"`
	GeneratedAt        string            `json:"generated_at,omitempty" yaml:"generated_at,omitempty"`
	ShowFullIdentifier bool              `json:"show_full_identifier,omitempty" yaml:"show_full_identifier,omitempty"`
}

// Patient holds demographics and contact details. Optional numbers are
// pointers so "absent" and zero stay distinct.
type Patient struct {
	Name             string   `json:"name" yaml:"name"`
	DateOfBirth      string   `json:"date_of_birth,omitempty" yaml:"date_of_birth,omitempty"`
	Age              *int     `json:"age,omitempty" yaml:"age,omitempty"`
	Gender           string   `json:"gender,omitempty" yaml:"gender,omitempty"`
	Identifier       string   `json:"identifier,omitempty" yaml:"identifier,omitempty"`
	HeightCm         *float64 `json:"height_cm,omitempty" yaml:"height_cm,omitempty"`
	WeightKg         *float64 `json:"weight_kg,omitempty" yaml:"weight_kg,omitempty"`
	Conditions       []string `json:"conditions,omitempty" yaml:"conditions,omitempty"`
	Allergies        []string `json:"allergies,omitempty" yaml:"allergies,omitempty"`
	Email            string   `json:"email,omitempty" yaml:"email,omitempty"`
	Phone            string   `json:"phone,omitempty" yaml:"phone,omitempty"`
	Address          string   `json:"address,omitempty" yaml:"address,omitempty"`
	EmergencyContact string   `json:"emergency_contact,omitempty" yaml:"emergency_contact,omitempty"`
}

// Symptom is one logged symptom with a severity from 1 to 10.
type Symptom struct {
	Name     string   `json:"name" yaml:"name"`
	Severity int      `json:"severity" yaml:"severity"`
	Triggers []string `json:"triggers,omitempty" yaml:"triggers,omitempty"`
	Notes    string   `json:"notes,omitempty" yaml:"notes,omitempty"`
	LoggedAt string   `json:"logged_at" yaml:"logged_at"`
}

// Medication is a prescription. Only active ones count toward the score.
type Medication struct {
	Name       string `json:"name" yaml:"name"`
	Dosage     string `json:"dosage,omitempty" yaml:"dosage,omitempty"`
	Frequency  string `json:"frequency,omitempty" yaml:"frequency,omitempty"`
	Prescriber string `json:"prescriber,omitempty" yaml:"prescriber,omitempty"`
	StartDate  string `json:"start_date,omitempty" yaml:"start_date,omitempty"`
	EndDate    string `json:"end_date,omitempty" yaml:"end_date,omitempty"`
	Notes      string `json:"notes,omitempty" yaml:"notes,omitempty"`
	Active     bool   `json:"active" yaml:"active"`
}

// Appointment is a visit and its scheduling status.
type Appointment struct {
	Title       string `json:"title" yaml:"title"`
	Doctor      string `json:"doctor,omitempty" yaml:"doctor,omitempty"`
	Location    string `json:"location,omitempty" yaml:"location,omitempty"`
	Status      string `json:"status,omitempty" yaml:"status,omitempty"`
	Notes       string `json:"notes,omitempty" yaml:"notes,omitempty"`
	ScheduledAt string `json:"scheduled_at" yaml:"scheduled_at"`
}

// Metric is one vital-sign or activity reading. Extra carries structured
// detail, for example "diastolic" for blood pressure.
type Metric struct {
	Type       string         `json:"type" yaml:"type"`
	Value      float64        `json:"value" yaml:"value"`
	Unit       string         `json:"unit,omitempty" yaml:"unit,omitempty"`
	Extra      map[string]any `json:"additional_data,omitempty" yaml:"additional_data,omitempty"`
	RecordedAt string         `json:"recorded_at" yaml:"recorded_at"`
}

// WaterIntake is one logged drink in millilitres.
type WaterIntake struct {
	AmountML float64 `json:"amount_ml" yaml:"amount_ml"`
	LoggedAt string  `json:"logged_at" yaml:"logged_at"`
}

// NutritionEntry is one logged meal or snack.
type NutritionEntry struct {
	MealType string  `json:"meal_type,omitempty" yaml:"meal_type,omitempty"`
	Food     string  `json:"food" yaml:"food"`
	Calories float64 `json:"calories" yaml:"calories"`
	LoggedAt string  `json:"logged_at" yaml:"logged_at"`
}

// ActivitySession is one exercise session. Distance, calories and steps are
// optional.
type ActivitySession struct {
	Type        string   `json:"type" yaml:"type"`
	DurationMin float64  `json:"duration_min" yaml:"duration_min"`
	DistanceKm  *float64 `json:"distance_km,omitempty" yaml:"distance_km,omitempty"`
	Calories    *float64 `json:"calories,omitempty" yaml:"calories,omitempty"`
	Steps       *int     `json:"steps,omitempty" yaml:"steps,omitempty"`
	StartedAt   string   `json:"started_at" yaml:"started_at"`
}

// MedicationLog records one scheduled dose: taken, skipped or missed.
type MedicationLog struct {
	Medication string `json:"medication" yaml:"medication"`
	Status     string `json:"status" yaml:"status"`
	LoggedAt   string `json:"logged_at" yaml:"logged_at"`
}

// MedicalRecord is the metadata of an uploaded document. The file itself is
// never embedded; only its name and size are printed.
type MedicalRecord struct {
	ID          string `json:"id,omitempty" yaml:"id,omitempty"`
	Title       string `json:"title" yaml:"title"`
	Type        string `json:"type,omitempty" yaml:"type,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Doctor      string `json:"doctor,omitempty" yaml:"doctor,omitempty"`
	Facility    string `json:"facility,omitempty" yaml:"facility,omitempty"`
	RecordDate  string `json:"record_date,omitempty" yaml:"record_date,omitempty"`
	FileName    string `json:"file_name,omitempty" yaml:"file_name,omitempty"`
	FileSize    int64  `json:"file_size,omitempty" yaml:"file_size,omitempty"`
	FileRef     string `json:"file_ref,omitempty" yaml:"file_ref,omitempty"`
}

// Recommendation is a care suggestion shown near the end of the report.
type Recommendation struct {
	Title       string `json:"title" yaml:"title"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Priority    string `json:"priority,omitempty" yaml:"priority,omitempty"`
}

// ScoreInputs extracts the score calculator inputs from the snapshot.
func (d *Data) ScoreInputs() score.Inputs {
	var in score.Inputs
	for _, m := range d.Metrics {
		if strings.EqualFold(m.Type, score.StepsMetric) {
			in.Steps = append(in.Steps, score.Reading{Value: m.Value, At: m.RecordedAt})
		}
	}
	for _, w := range d.WaterIntake {
		in.Water = append(in.Water, score.Reading{Value: w.AmountML, At: w.LoggedAt})
	}
	for _, s := range d.Symptoms {
		in.SymptomTimes = append(in.SymptomTimes, s.LoggedAt)
	}
	for _, m := range d.Medications {
		if m.Active {
			in.ActiveMedications++
		}
	}
	return in
}

// BMI returns weight / height² when both are known and positive.
func (p Patient) BMI() (float64, bool) {
	if p.HeightCm == nil || p.WeightKg == nil || *p.HeightCm <= 0 || *p.WeightKg <= 0 {
		return 0, false
	}
	m := *p.HeightCm / 100
	return *p.WeightKg / (m * m), true
}

// MaskedIdentifier hides all but the last four characters of the identifier
// unless full is set. Identifiers of four characters or fewer are unchanged.
func (p Patient) MaskedIdentifier(full bool) string {
	id := []rune(strings.TrimSpace(p.Identifier))
	if full || len(id) <= 4 {
		return string(id)
	}
	return strings.Repeat("*", len(id)-4) + string(id[len(id)-4:])
}
