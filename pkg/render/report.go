// Package render turns validation reports and trips into their two
// user-facing forms: a styled terminal report and a self-contained
// HTML itinerary.
package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/tripweaver/tripweaver/pkg/issue"
)

const (
	glyphPass = "✓"
	glyphFail = "✗"
)

var (
	colorGreen  = lipgloss.Color("42")
	colorRed    = lipgloss.Color("196")
	colorYellow = lipgloss.Color("214")
	colorBlue   = lipgloss.Color("39")
	colorDim    = lipgloss.Color("240")

	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("51")).Padding(0, 1)

	passStyle = lipgloss.NewStyle().Foreground(colorGreen).Bold(true)
	failStyle = lipgloss.NewStyle().Foreground(colorRed).Bold(true)

	severityStyles = map[issue.Severity]lipgloss.Style{
		issue.High:   lipgloss.NewStyle().Foreground(colorRed).Bold(true),
		issue.Medium: lipgloss.NewStyle().Foreground(colorYellow),
		issue.Low:    lipgloss.NewStyle().Foreground(colorBlue),
		issue.Info:   lipgloss.NewStyle().Faint(true),
	}

	headerRowStyle = lipgloss.NewStyle().Bold(true).Foreground(colorDim)
)

// column caps keep one issue on one line even with long messages.
const (
	maxLabelWidth   = 36
	maxFieldWidth   = 28
	maxMessageWidth = 72
)

// Report writes the styled validation report. Labels routinely carry
// CJK text, so column widths are measured in display cells, not runes.
func Report(w io.Writer, r *issue.Report) {
	fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("Validation report: %s", r.Trip)))

	if r.Pass() {
		fmt.Fprintln(w, passStyle.Render(fmt.Sprintf("%s PASS", glyphPass)), summaryLine(r))
	} else {
		fmt.Fprintln(w, failStyle.Render(fmt.Sprintf("%s FAIL", glyphFail)), summaryLine(r))
	}
	if len(r.Issues) == 0 {
		return
	}
	fmt.Fprintln(w)

	rows := r.BySeverity()
	headers := []string{"SEVERITY", "AGENT", "DAY", "LABEL", "FIELD", "MESSAGE"}
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = runewidth.StringWidth(h)
	}
	cells := make([][]string, len(rows))
	for i, is := range rows {
		day := ""
		if is.Day > 0 {
			day = fmt.Sprintf("%d", is.Day)
		}
		cells[i] = []string{
			string(is.Severity),
			is.Agent,
			day,
			runewidth.Truncate(is.Label, maxLabelWidth, "…"),
			runewidth.Truncate(is.Field, maxFieldWidth, "…"),
			runewidth.Truncate(is.Message, maxMessageWidth, "…"),
		}
		for c, v := range cells[i] {
			if cw := runewidth.StringWidth(v); cw > widths[c] {
				widths[c] = cw
			}
		}
	}

	var head strings.Builder
	for c, h := range headers {
		head.WriteString(runewidth.FillRight(h, widths[c]+2))
	}
	fmt.Fprintln(w, headerRowStyle.Render(strings.TrimRight(head.String(), " ")))

	for i, row := range cells {
		style := severityStyles[rows[i].Severity]
		var line strings.Builder
		for c, v := range row {
			line.WriteString(runewidth.FillRight(v, widths[c]+2))
		}
		fmt.Fprintln(w, style.Render(strings.TrimRight(line.String(), " ")))
	}
}

func summaryLine(r *issue.Report) string {
	return fmt.Sprintf("%d issue(s): %d HIGH, %d MEDIUM, %d LOW, %d INFO",
		len(r.Issues), r.Count(issue.High), r.Count(issue.Medium), r.Count(issue.Low), r.Count(issue.Info))
}
