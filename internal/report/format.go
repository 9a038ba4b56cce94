package report

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/ehr/healthreport/internal/score"
)

// Placeholders for absent values.
const (
	NotProvided  = "Not provided"
	NotAvailable = "N/A"
	UnknownDate  = "Unknown date"
)

const (
	dateLayout     = "Jan 2, 2006"
	dateTimeLayout = "Jan 2, 2006 15:04"
)

func orDefault(s, def string) string {
	if s = strings.TrimSpace(s); s == "" {
		return def
	}
	return s
}

// formatDate renders a timestamp as a calendar date. ok is false when the
// value is missing or unparseable.
func formatDate(s string) (string, bool) {
	t, ok := score.ParseTime(s)
	if !ok {
		return "", false
	}
	return t.Format(dateLayout), true
}

func dateOr(s, def string) string {
	if d, ok := formatDate(s); ok {
		return d
	}
	return def
}

func formatDateTime(s string) (string, bool) {
	t, ok := score.ParseTime(s)
	if !ok {
		return "", false
	}
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 {
		return t.Format(dateLayout), true
	}
	return t.Format(dateTimeLayout), true
}

// tag turns a type tag such as "blood_pressure" into "Blood Pressure".
func tag(s string) string {
	s = strings.TrimSpace(strings.NewReplacer("_", " ", "-", " ").Replace(s))
	if s == "" {
		return ""
	}
	// Casers are stateful and must not be shared between builds.
	return cases.Title(language.English).String(s)
}

// number renders v without a trailing ".0" and with thousands separators.
func number(v float64) string {
	if v == float64(int64(v)) {
		return humanize.Comma(int64(v))
	}
	return humanize.CommafWithDigits(v, 1)
}

// metricValue renders a metric value. Blood pressure readings carrying a
// diastolic value print as "120/80".
func metricValue(m Metric) string {
	if d, ok := extraNumber(m.Extra, "diastolic"); ok {
		return number(m.Value) + "/" + number(d)
	}
	return number(m.Value)
}

func extraNumber(extra map[string]any, key string) (float64, bool) {
	v, ok := extra[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}

func severity(n int) string {
	if n <= 0 {
		return NotAvailable
	}
	return fmt.Sprintf("%d/10", min(n, 10))
}

func fileSize(n int64) string {
	if n <= 0 {
		return ""
	}
	return humanize.Bytes(uint64(n))
}

func attachmentLabel(r MedicalRecord) string {
	if strings.TrimSpace(r.FileName) == "" {
		return ""
	}
	if size := fileSize(r.FileSize); size != "" {
		return fmt.Sprintf("%s (%s)", r.FileName, size)
	}
	return r.FileName
}

func provider(doctor, facility string) string {
	doctor, facility = strings.TrimSpace(doctor), strings.TrimSpace(facility)
	switch {
	case doctor != "" && facility != "":
		return doctor + ", " + facility
	case doctor != "":
		return doctor
	}
	return facility
}

func joinNonEmpty(sep string, parts ...string) string {
	out := parts[:0:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, sep)
}

func dayKey(s string) (string, bool) {
	t, ok := score.ParseTime(s)
	if !ok {
		return "", false
	}
	return t.Format(time.DateOnly), true
}
