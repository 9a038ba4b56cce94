package report

import (
	"fmt"
	"strings"

	"github.com/ehr/healthreport/internal/layout"
	"github.com/ehr/healthreport/internal/score"
)

// Trends are the derived averages and counts printed in the summary section.
// Averages are nil when there was nothing to average.
type Trends struct {
	StepsPerDay       *float64 `json:"steps_per_day,omitempty"`
	StepReadings      int      `json:"step_readings"`
	WaterLitersPerDay *float64 `json:"water_liters_per_day,omitempty"`
	WaterDays         int      `json:"water_days"`
	CaloriesPerDay    *float64 `json:"calories_per_day,omitempty"`
	SymptomCount      int      `json:"symptom_count"`
	ActiveMedications int      `json:"active_medications"`
	DosesTaken        int      `json:"doses_taken"`
	DosesLogged       int      `json:"doses_logged"`
	ActivityCount     int      `json:"activity_count"`
}

// ComputeTrends summarises the snapshot. Water and calories are totalled per
// calendar day before averaging; undated entries are left out of those
// averages.
func ComputeTrends(d *Data) Trends {
	var t Trends

	sum := 0.0
	for _, m := range d.Metrics {
		if strings.EqualFold(m.Type, score.StepsMetric) {
			sum += m.Value
			t.StepReadings++
		}
	}
	if t.StepReadings > 0 {
		v := sum / float64(t.StepReadings)
		t.StepsPerDay = &v
	}

	water := map[string]float64{}
	for _, w := range d.WaterIntake {
		if day, ok := dayKey(w.LoggedAt); ok {
			water[day] += w.AmountML
		}
	}
	if avg, ok := dailyMean(water); ok {
		v := avg / 1000
		t.WaterLitersPerDay = &v
		t.WaterDays = len(water)
	}

	calories := map[string]float64{}
	for _, n := range d.Nutrition {
		if day, ok := dayKey(n.LoggedAt); ok {
			calories[day] += n.Calories
		}
	}
	if avg, ok := dailyMean(calories); ok {
		t.CaloriesPerDay = &avg
	}

	for _, l := range d.MedicationLogs {
		t.DosesLogged++
		if strings.EqualFold(strings.TrimSpace(l.Status), "taken") {
			t.DosesTaken++
		}
	}
	for _, m := range d.Medications {
		if m.Active {
			t.ActiveMedications++
		}
	}
	t.SymptomCount = len(d.Symptoms)
	t.ActivityCount = len(d.Activities)
	return t
}

func dailyMean(days map[string]float64) (float64, bool) {
	if len(days) == 0 {
		return 0, false
	}
	sum := 0.0
	for _, v := range days {
		sum += v
	}
	return sum / float64(len(days)), true
}

// Lines renders the trends as summary sentences, skipping absent figures.
func (t Trends) Lines() []string {
	var out []string
	if t.StepsPerDay != nil {
		out = append(out, fmt.Sprintf("Average steps: %s per day (%d %s)", number(float64(int64(*t.StepsPerDay+0.5))), t.StepReadings, plural(t.StepReadings, "reading", "readings")))
	}
	if t.WaterLitersPerDay != nil {
		out = append(out, fmt.Sprintf("Average water intake: %.1f L per day over %d %s", *t.WaterLitersPerDay, t.WaterDays, plural(t.WaterDays, "day", "days")))
	}
	if t.CaloriesPerDay != nil {
		out = append(out, fmt.Sprintf("Average calories: %s kcal per day", number(float64(int64(*t.CaloriesPerDay+0.5)))))
	}
	if t.SymptomCount > 0 {
		out = append(out, fmt.Sprintf("Symptoms logged: %d", t.SymptomCount))
	}
	if t.ActivityCount > 0 {
		out = append(out, fmt.Sprintf("Activity sessions: %d", t.ActivityCount))
	}
	if t.ActiveMedications > 0 {
		out = append(out, fmt.Sprintf("Active medications: %d", t.ActiveMedications))
	}
	if t.DosesLogged > 0 {
		out = append(out, fmt.Sprintf("Medication adherence: %d%% (%d of %d doses taken)", t.DosesTaken*100/t.DosesLogged, t.DosesTaken, t.DosesLogged))
	}
	return out
}

func trendsSection(d *Data) layout.Section {
	return layout.Section{Key: "trends", Title: "Health Trends Summary", Icon: "Tr", Body: []layout.Primitive{
		layout.BulletList{Items: ComputeTrends(d).Lines()},
	}}
}
