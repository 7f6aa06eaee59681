package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/copyleftdev/sablcheck/internal/failure"
	"github.com/copyleftdev/sablcheck/internal/scenario"
)

// Version tags the JSON document layout.
const Version = "1"

var (
	passStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)
	failStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	dimStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	warnStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
)

// Printer renders scenario results for a terminal.
type Printer struct {
	w io.Writer
	// Color enables ANSI styling.
	Color bool
	// Snapshots prints the DOM snapshot under each failure.
	Snapshots bool
}

func NewPrinter(w io.Writer, color bool) *Printer {
	return &Printer{w: w, Color: color}
}

func (p *Printer) style(s lipgloss.Style, text string) string {
	if !p.Color {
		return text
	}
	return s.Render(text)
}

// Line is the one-line summary of res, without styling.
func Line(res scenario.Result) string {
	if res.Passed() {
		return fmt.Sprintf("PASS %s (%d steps, %s)", res.ScenarioID, res.Steps, FormatDuration(res.Duration()))
	}
	return "FAIL " + failureText(res)
}

func failureText(res scenario.Result) string {
	var b strings.Builder
	b.WriteString(res.ScenarioID)
	if res.FailedStep != failure.NoStep {
		fmt.Fprintf(&b, " step %d", res.FailedStep)
	}
	b.WriteString(": ")
	kind := res.Kind
	if kind == "" {
		kind = failure.BrowserError
	}
	b.WriteString(string(kind))
	if res.Reason != "" {
		b.WriteString(": ")
		b.WriteString(res.Reason)
	}
	if a := res.LastArtifact(); a != "" {
		fmt.Fprintf(&b, " [%s]", a)
	}
	return b.String()
}

// FormatDuration rounds d to a tenth of a second, or to milliseconds below
// one second.
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return d.Round(100 * time.Millisecond).String()
}

// Print writes one line per result followed by a tally. Warnings are listed
// under the scenario that produced them.
func (p *Printer) Print(results []scenario.Result) error {
	passed := 0
	for _, res := range results {
		var line string
		if res.Passed() {
			passed++
			line = p.style(passStyle, "PASS") + " " + res.ScenarioID + " " +
				p.style(dimStyle, fmt.Sprintf("(%d steps, %s)", res.Steps, FormatDuration(res.Duration())))
		} else {
			line = p.style(failStyle, "FAIL") + " " + failureText(res)
		}
		if _, err := fmt.Fprintln(p.w, line); err != nil {
			return err
		}
		for _, w := range res.Warnings {
			if _, err := fmt.Fprintln(p.w, "     "+p.style(warnStyle, "warning: "+w)); err != nil {
				return err
			}
		}
		if p.Snapshots && !res.Passed() && res.DOMSnapshot != "" {
			if _, err := fmt.Fprintf(p.w, "     dom:\n%s\n", indent(res.DOMSnapshot, "       ")); err != nil {
				return err
			}
		}
	}

	tally := fmt.Sprintf("%d scenarios: %d passed, %d failed", len(results), passed, len(results)-passed)
	if passed == len(results) {
		tally = p.style(passStyle, tally)
	} else {
		tally = p.style(failStyle, tally)
	}
	_, err := fmt.Fprintf(p.w, "\n%s\n", tally)
	return err
}

func indent(s, prefix string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, l := range lines {
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n")
}

// Document is the machine-readable form of a batch of results.
type Document struct {
	Version   string            `json:"version"`
	Generated time.Time         `json:"generated"`
	Total     int               `json:"total"`
	Passed    int               `json:"passed"`
	Failed    int               `json:"failed"`
	Results   []scenario.Result `json:"results"`
}

func NewDocument(results []scenario.Result, now time.Time) Document {
	doc := Document{
		Version:   Version,
		Generated: now.UTC(),
		Total:     len(results),
		Results:   results,
	}
	if doc.Results == nil {
		doc.Results = []scenario.Result{}
	}
	for _, r := range results {
		if r.Passed() {
			doc.Passed++
		}
	}
	doc.Failed = doc.Total - doc.Passed
	return doc
}

// WriteJSON encodes results as an indented Document.
func WriteJSON(w io.Writer, results []scenario.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(NewDocument(results, time.Now()))
}

// AllPassed reports whether every result passed. An empty batch passes.
func AllPassed(results []scenario.Result) bool {
	for _, r := range results {
		if !r.Passed() {
			return false
		}
	}
	return true
}
