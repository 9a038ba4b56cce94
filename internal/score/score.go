// Package score derives the composite health score shown on reports.
//
// The score is a factor-normalised mean of up to four terms, each worth at
// most 25 points: recent step counts, recent water intake, symptom burden over
// the last week and the presence of active medication. Step and water terms
// only count when readings exist; the symptom term always counts.
package score

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	// Window is how many of the most recent readings feed the steps and
	// water terms.
	Window = 7
	// SymptomWindow is how far back symptoms count towards the burden term.
	SymptomWindow = 7 * 24 * time.Hour

	// Fallback is returned when no factor contributed at all.
	Fallback = 8.5
	// Max is the upper bound of the score.
	Max = 10.0

	termCap         = 25.0
	stepsTarget     = 10000.0
	waterTargetML   = 2000.0
	symptomPenalty  = 2.0
	medicationBonus = 20.0
	pointsPerUnit   = 2.5
)

// StepsMetric is the metric type tag carrying daily step counts.
const StepsMetric = "steps"

// Reading is a timestamped numeric sample.
type Reading struct {
	Value float64
	At    string
}

// Inputs are the collections the score is computed from. Timestamps are
// strings in any layout accepted by ParseTime; readings with unparseable
// timestamps sort after every dated reading.
type Inputs struct {
	Steps             []Reading
	Water             []Reading
	SymptomTimes      []string
	ActiveMedications int
}

// Factor is one contributing term of the score.
type Factor struct {
	Name    string  `json:"name" yaml:"name"`
	Points  float64 `json:"points" yaml:"points"`
	Samples int     `json:"samples" yaml:"samples"`
}

// Result is a computed score with the terms that produced it.
type Result struct {
	Value    float64  `json:"value" yaml:"value"`
	Raw      float64  `json:"raw" yaml:"raw"`
	Factors  []Factor `json:"factors" yaml:"factors"`
	Fallback bool     `json:"fallback" yaml:"fallback"`
}

// String renders the score with one decimal place.
func (r Result) String() string { return Format(r.Value) }

// Format renders a score value with one decimal place.
func Format(v float64) string { return fmt.Sprintf("%.1f", v) }

// Compute derives the score as of now. Inputs are never modified.
func Compute(in Inputs, now time.Time) Result {
	var factors []Factor

	if recent := mostRecent(in.Steps, Window); len(recent) > 0 {
		avg := mean(recent)
		factors = append(factors, Factor{Name: "steps", Points: capTerm(avg / stepsTarget * termCap), Samples: len(recent)})
	}
	if recent := mostRecent(in.Water, Window); len(recent) > 0 {
		avg := mean(recent)
		factors = append(factors, Factor{Name: "water", Points: capTerm(avg / waterTargetML * termCap), Samples: len(recent)})
	}

	n := countSince(in.SymptomTimes, now.Add(-SymptomWindow), now)
	factors = append(factors, Factor{Name: "symptoms", Points: capTerm(termCap - symptomPenalty*float64(n)), Samples: n})

	if in.ActiveMedications > 0 {
		factors = append(factors, Factor{Name: "medications", Points: medicationBonus, Samples: in.ActiveMedications})
	}

	raw := 0.0
	for _, f := range factors {
		raw += f.Points
	}
	value, fallback := composite(raw, len(factors))
	return Result{Value: value, Raw: raw, Factors: factors, Fallback: fallback}
}

// composite normalises the raw sum over the factor count. With no factors it
// returns Fallback.
func composite(raw float64, factors int) (float64, bool) {
	if factors == 0 {
		return Fallback, true
	}
	v := math.Min(Max, raw/(float64(factors)*pointsPerUnit))
	v = math.Max(0, v)
	return math.Round(v*10) / 10, false
}

// Parse reads a score string such as "8.2" and reports whether it is a valid
// score in [0, 10].
func Parse(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, false
	}
	if math.IsNaN(v) || v < 0 || v > Max {
		return 0, false
	}
	return v, true
}

func capTerm(v float64) float64 {
	return math.Max(0, math.Min(termCap, v))
}

func mean(rs []Reading) float64 {
	sum := 0.0
	for _, r := range rs {
		sum += r.Value
	}
	return sum / float64(len(rs))
}

// mostRecent returns up to n finite readings, newest first, from a sorted
// copy. NaN and infinite values are dropped before selection.
func mostRecent(rs []Reading, n int) []Reading {
	type dated struct {
		r  Reading
		t  time.Time
		ok bool
	}
	ds := make([]dated, 0, len(rs))
	for _, r := range rs {
		if math.IsNaN(r.Value) || math.IsInf(r.Value, 0) {
			continue
		}
		t, ok := ParseTime(r.At)
		ds = append(ds, dated{r: r, t: t, ok: ok})
	}
	if len(ds) == 0 {
		return nil
	}
	sort.SliceStable(ds, func(i, j int) bool {
		if ds[i].ok != ds[j].ok {
			return ds[i].ok
		}
		return ds[i].t.After(ds[j].t)
	})

	out := make([]Reading, 0, min(n, len(ds)))
	for _, d := range ds[:min(n, len(ds))] {
		out = append(out, d.r)
	}
	return out
}

func countSince(times []string, from, to time.Time) int {
	n := 0
	for _, s := range times {
		t, ok := ParseTime(s)
		if !ok {
			continue
		}
		if !t.Before(from) && !t.After(to) {
			n++
		}
	}
	return n
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTime parses the timestamp layouts found in health data exports.
func ParseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
