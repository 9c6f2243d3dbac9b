package render

import (
	"bytes"
	"fmt"
	"html/template"
	"sort"
	"strings"

	"github.com/tripweaver/tripweaver/pkg/issue"
	"github.com/tripweaver/tripweaver/pkg/trip"
)

// RenderGateError is returned when an itinerary render is refused
// because the trip still carries HIGH issues.
type RenderGateError struct {
	Report *issue.Report
}

func (e *RenderGateError) Error() string {
	return fmt.Sprintf("render refused: %d HIGH issue(s) outstanding", e.Report.Count(issue.High))
}

// itineraryDay is the per-day view model fed to the template.
type itineraryDay struct {
	Num      int
	Date     string
	Location string
	Sections []itinerarySection
	Timeline []timelineRow
	Budget   []budgetRow
}

type itinerarySection struct {
	Agent string
	Items []itineraryItem
}

type itineraryItem struct {
	Name     string
	Local    string
	Cost     string
	Location string
}

type timelineRow struct {
	Name  string
	Start string
	End   string
}

type budgetRow struct {
	Category string
	Amount   float64
}

// Itinerary renders the trip to one self-contained HTML document. The
// report gates the render: any HIGH issue refuses it, because a broken
// plan must not reach the traveler looking finished.
func Itinerary(t *trip.Trip, r *issue.Report) ([]byte, error) {
	if !r.Pass() {
		return nil, &RenderGateError{Report: r}
	}

	days := buildDays(t)
	var buf bytes.Buffer
	err := itineraryTmpl.Execute(&buf, struct {
		Trip string
		Days []itineraryDay
	}{Trip: t.Name, Days: days})
	if err != nil {
		return nil, fmt.Errorf("render itinerary: %w", err)
	}
	return buf.Bytes(), nil
}

func buildDays(t *trip.Trip) []itineraryDay {
	var days []itineraryDay
	for _, n := range t.DayNumbers() {
		d := itineraryDay{Num: n}
		for _, agent := range trip.AgentNames {
			f, ok := t.Files[agent]
			if !ok {
				continue
			}
			entry := f.Day(n)
			if entry == nil {
				continue
			}
			if d.Date == "" {
				d.Date, _ = trip.DayDate(entry)
			}
			if d.Location == "" {
				d.Location = trip.DayLocation(entry)
			}
			switch agent {
			case "timeline":
				d.Timeline = timelineRows(f, n)
			case "budget":
				d.Budget = budgetRows(entry)
			default:
				if sec := sectionFor(f, n); len(sec.Items) > 0 {
					d.Sections = append(d.Sections, sec)
				}
			}
		}
		days = append(days, d)
	}
	return days
}

func sectionFor(f *trip.File, day int) itinerarySection {
	sec := itinerarySection{Agent: f.Agent}
	for _, it := range trip.ExtractItems(f) {
		if it.Day != day {
			continue
		}
		name, _ := it.Data["name_base"].(string)
		if name == "" {
			if from, _ := it.Data["from_base"].(string); from != "" {
				to, _ := it.Data["to_base"].(string)
				name = from + " to " + to
			} else {
				name = it.Field
			}
		}
		local, _ := it.Data["name_local"].(string)
		loc, _ := it.Data["location_base"].(string)
		cost := ""
		if c, ok := trip.NumberValue(it.Data["cost"]); ok && c > 0 {
			cur, _ := it.Data["currency_local"].(string)
			cost = fmt.Sprintf("%.0f %s", c, cur)
		}
		sec.Items = append(sec.Items, itineraryItem{Name: name, Local: local, Cost: cost, Location: loc})
	}
	return sec
}

func timelineRows(f *trip.File, day int) []timelineRow {
	var rows []timelineRow
	for _, it := range trip.ExtractItemsFor(f, "timeline_activity") {
		if it.Day != day {
			continue
		}
		start, _ := it.Data["start_time"].(string)
		end, _ := it.Data["end_time"].(string)
		name := strings.TrimPrefix(it.Field, "timeline.")
		rows = append(rows, timelineRow{Name: name, Start: start, End: end})
	}
	sort.Slice(rows, func(a, b int) bool { return rows[a].Start < rows[b].Start })
	return rows
}

func budgetRows(entry map[string]any) []budgetRow {
	b, ok := entry["budget"].(map[string]any)
	if !ok {
		return nil
	}
	keys := make([]string, 0, len(b))
	for k := range b {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var rows []budgetRow
	for _, k := range keys {
		if k == "currency_local" || k == "notes" {
			continue
		}
		if v, isNum := trip.NumberValue(b[k]); isNum {
			rows = append(rows, budgetRow{Category: k, Amount: v})
		}
	}
	return rows
}

var itineraryTmpl = template.Must(template.New("itinerary").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Trip}}</title>
<style>
  body { font-family: -apple-system, "Segoe UI", sans-serif; margin: 2rem auto; max-width: 56rem; color: #222; }
  h1 { border-bottom: 3px solid #1a73e8; padding-bottom: .3rem; }
  .day { margin: 2rem 0; padding: 1rem 1.4rem; border: 1px solid #ddd; border-radius: 8px; }
  .day h2 { margin-top: 0; color: #1a73e8; }
  .meta { color: #666; font-size: .9rem; }
  h3 { margin-bottom: .3rem; text-transform: capitalize; }
  table { border-collapse: collapse; width: 100%; }
  td, th { padding: .25rem .6rem; text-align: left; border-bottom: 1px solid #eee; }
  .local { color: #666; }
  .cost { white-space: nowrap; }
</style>
</head>
<body>
<h1>{{.Trip}}</h1>
{{range .Days}}
<section class="day">
  <h2>Day {{.Num}}</h2>
  <p class="meta">{{.Date}}{{if .Location}} · {{.Location}}{{end}}</p>
  {{range .Sections}}
  <h3>{{.Agent}}</h3>
  <table>
    {{range .Items}}
    <tr>
      <td>{{.Name}}{{if .Local}} <span class="local">{{.Local}}</span>{{end}}</td>
      <td>{{.Location}}</td>
      <td class="cost">{{.Cost}}</td>
    </tr>
    {{end}}
  </table>
  {{end}}
  {{if .Timeline}}
  <h3>timeline</h3>
  <table>
    {{range .Timeline}}<tr><td>{{.Start}}–{{.End}}</td><td>{{.Name}}</td></tr>
    {{end}}
  </table>
  {{end}}
  {{if .Budget}}
  <h3>budget</h3>
  <table>
    {{range .Budget}}<tr><td>{{.Category}}</td><td class="cost">{{printf "%.0f" .Amount}}</td></tr>
    {{end}}
  </table>
  {{end}}
</section>
{{end}}
</body>
</html>
`))
