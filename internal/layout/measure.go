package layout

import (
	"strings"
	"sync"

	"github.com/go-pdf/fpdf"
)

// FontFamily is the core PDF font every backend is expected to draw with.
const FontFamily = "Helvetica"

// Measurer reports the rendered width of a string.
type Measurer interface {
	TextWidth(s string, size float64, bold bool) float64
}

// FontMetrics measures text with the Helvetica core-font tables shipped with
// fpdf, so measured widths match what the PDF backend draws. It is safe for
// concurrent use.
type FontMetrics struct {
	mu  sync.Mutex
	pdf *fpdf.Fpdf
	tr  func(string) string
}

// NewFontMetrics returns a measurer in millimetres.
func NewFontMetrics() *FontMetrics {
	pdf := fpdf.New("P", "mm", "A4", "")
	return &FontMetrics{
		pdf: pdf,
		tr:  pdf.UnicodeTranslatorFromDescriptor(""),
	}
}

// TextWidth implements Measurer.
func (m *FontMetrics) TextWidth(s string, size float64, bold bool) float64 {
	style := ""
	if bold {
		style = "B"
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.pdf.SetFont(FontFamily, style, size)
	return m.pdf.GetStringWidth(m.tr(s))
}

// Wrap breaks text into lines no wider than width using greedy word wrapping.
// Explicit newlines always start a new line and blank lines are kept. Words
// wider than the line are split between characters. Empty text yields no lines.
func Wrap(m Measurer, text string, size float64, bold bool, width float64) []string {
	text = strings.TrimSpace(strings.ReplaceAll(text, "\r\n", "\n"))
	if text == "" {
		return nil
	}
	if width <= 0 {
		return strings.Split(text, "\n")
	}

	fits := func(s string) bool { return m.TextWidth(s, size, bold) <= width }

	var lines []string
	for _, para := range strings.Split(text, "\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			lines = append(lines, "")
			continue
		}

		cur := ""
		for _, w := range words {
			if !fits(w) {
				if cur != "" {
					lines = append(lines, cur)
				}
				chunks := splitWord(w, fits)
				lines = append(lines, chunks[:len(chunks)-1]...)
				cur = chunks[len(chunks)-1]
				continue
			}
			if cur == "" {
				cur = w
				continue
			}
			if candidate := cur + " " + w; fits(candidate) {
				cur = candidate
			} else {
				lines = append(lines, cur)
				cur = w
			}
		}
		lines = append(lines, cur)
	}
	return lines
}

// splitWord cuts an overlong word into chunks that each fit; every chunk holds
// at least one rune so the loop always terminates.
func splitWord(w string, fits func(string) bool) []string {
	var chunks []string
	runes := []rune(w)
	start := 0
	for start < len(runes) {
		end := start + 1
		for end < len(runes) && fits(string(runes[start:end+1])) {
			end++
		}
		chunks = append(chunks, string(runes[start:end]))
		start = end
	}
	return chunks
}

// TruncateCell shortens s to MaxCellRunes runes followed by an ellipsis.
// Strings at or below the limit are returned unchanged.
func TruncateCell(s string) string {
	runes := []rune(s)
	if len(runes) <= MaxCellRunes {
		return s
	}
	return string(runes[:MaxCellRunes]) + "…"
}
