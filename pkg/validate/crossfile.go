package validate

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tripweaver/tripweaver/pkg/issue"
	"github.com/tripweaver/tripweaver/pkg/trip"
)

// checkDaySet verifies the day-number set invariants. Day numbers must
// be unique within one file, and every loaded file must carry the same
// set of days as the rest of the trip. A file with no days at all is
// left to the envelope pass.
func (p *Pipeline) checkDaySet(t *trip.Trip) []issue.Issue {
	var issues []issue.Issue
	union := make(map[int]bool)
	perFile := make(map[string]map[int]bool)
	for _, f := range p.files(t) {
		seen := make(map[int]bool)
		for _, d := range f.Days() {
			n := trip.DayNum(d)
			if n < 1 {
				continue
			}
			if seen[n] {
				issues = append(issues, issue.Issue{
					Severity: issue.High, Category: issue.Structure,
					Agent: f.Agent, Trip: t.Name, Day: n, Field: "data.days",
					Message: fmt.Sprintf("day %d appears more than once", n),
				})
				continue
			}
			seen[n] = true
			union[n] = true
		}
		perFile[f.Agent] = seen
	}

	for _, f := range p.files(t) {
		seen := perFile[f.Agent]
		if len(seen) == 0 {
			continue
		}
		var missing []int
		for n := range union {
			if !seen[n] {
				missing = append(missing, n)
			}
		}
		sort.Ints(missing)
		for _, n := range missing {
			issues = append(issues, issue.Issue{
				Severity: issue.High, Category: issue.CrossAgent,
				Agent: f.Agent, Trip: t.Name, Day: n, Field: "data.days",
				Message: fmt.Sprintf("day %d is present in other files but missing here", n),
			})
		}
	}
	return issues
}

// checkDates verifies that every file carrying a given day number
// reports the same date. A null date is HIGH on its own. An empty
// string is permitted only while every file leaves the day undated
// (bucket-list trips); once any file dates the day, an empty date is a
// mismatch like any other.
func (p *Pipeline) checkDates(t *trip.Trip) []issue.Issue {
	var issues []issue.Issue
	for _, n := range t.DayNumbers() {
		dates := make(map[string]string)
		var undated []string
		for _, f := range p.files(t) {
			d := f.Day(n)
			if d == nil {
				continue
			}
			date, ok := trip.DayDate(d)
			if !ok {
				issues = append(issues, issue.Issue{
					Severity: issue.High, Category: issue.CrossAgent,
					Agent: f.Agent, Trip: t.Name, Day: n, Field: "date",
					Message: fmt.Sprintf("day %d has a null date", n),
				})
				continue
			}
			if date == "" {
				undated = append(undated, f.Agent)
				continue
			}
			dates[f.Agent] = date
		}
		consensus, count := majority(dates)
		if count > 0 {
			sort.Strings(undated)
			for _, agent := range undated {
				issues = append(issues, issue.Issue{
					Severity: issue.High, Category: issue.CrossAgent,
					Agent: agent, Trip: t.Name, Day: n, Field: "date",
					Message: fmt.Sprintf("day %d has an empty date while other files date it %q", n, consensus),
				})
			}
		}
		if count == 0 || count == len(dates) {
			continue
		}
		for _, agent := range sortedAgents(dates) {
			if dates[agent] != consensus {
				issues = append(issues, issue.Issue{
					Severity: issue.High, Category: issue.CrossAgent,
					Agent: agent, Trip: t.Name, Day: n, Field: "date",
					Message: fmt.Sprintf("day %d date %q disagrees with consensus %q (%d file(s))", n, dates[agent], consensus, count),
				})
			}
		}
	}
	return issues
}

// checkLocations computes a per-day consensus location. On travel days
// the transportation file's location_change is authoritative: other
// files should name the destination (or origin) city, and the combined
// "From / To" form is tolerated with a nudge. On ordinary days a
// simple majority wins and dissenters are flagged.
func (p *Pipeline) checkLocations(t *trip.Trip) []issue.Issue {
	var issues []issue.Issue
	for _, n := range t.DayNumbers() {
		locs := make(map[string]string)
		for _, f := range p.files(t) {
			d := f.Day(n)
			if d == nil {
				continue
			}
			if loc := trip.DayLocation(d); loc != "" {
				locs[f.Agent] = loc
			}
		}

		from, to := locationChange(t, n)
		if to != "" {
			for _, agent := range sortedAgents(locs) {
				loc := locs[agent]
				switch {
				case loc == to || loc == from:
					// single-city form, consistent with the change
				case isCombinedLocation(loc, from, to):
					issues = append(issues, issue.Issue{
						Severity: issue.Medium, Category: issue.CrossAgent,
						Agent: agent, Trip: t.Name, Day: n, Field: "location",
						Message: fmt.Sprintf("day %d uses combined location %q; prefer the single destination city %q", n, loc, to),
					})
				default:
					issues = append(issues, issue.Issue{
						Severity: issue.Medium, Category: issue.CrossAgent,
						Agent: agent, Trip: t.Name, Day: n, Field: "location",
						Message: fmt.Sprintf("day %d location %q disagrees with the transportation change %q -> %q", n, loc, from, to),
					})
				}
			}
			continue
		}

		consensus, count := majority(locs)
		if count < 2 {
			continue
		}
		for _, agent := range sortedAgents(locs) {
			if locs[agent] != consensus {
				issues = append(issues, issue.Issue{
					Severity: issue.Medium, Category: issue.CrossAgent,
					Agent: agent, Trip: t.Name, Day: n, Field: "location",
					Message: fmt.Sprintf("day %d location %q disagrees with consensus %q", n, locs[agent], consensus),
				})
			}
		}
	}
	return issues
}

// locationChange returns the from/to cities of the transportation
// file's location_change for a day, or empty strings.
func locationChange(t *trip.Trip, day int) (from, to string) {
	tf, ok := t.Files["transportation"]
	if !ok {
		return "", ""
	}
	d := tf.Day(day)
	if d == nil {
		return "", ""
	}
	lc, ok := d["location_change"].(map[string]any)
	if !ok {
		return "", ""
	}
	from, _ = lc["from_base"].(string)
	to, _ = lc["to_base"].(string)
	return from, to
}

// isCombinedLocation reports whether loc is the "From / To" form of the
// day's location change.
func isCombinedLocation(loc, from, to string) bool {
	for _, sep := range []string{" / ", "/", " - ", " -> "} {
		parts := strings.SplitN(loc, sep, 2)
		if len(parts) == 2 &&
			strings.TrimSpace(parts[0]) == from &&
			strings.TrimSpace(parts[1]) == to {
			return true
		}
	}
	return false
}

// majority returns the most frequent value (ties broken lexically for
// a stable report) and how many agents agree on it.
func majority(values map[string]string) (string, int) {
	counts := make(map[string]int)
	for _, v := range values {
		counts[v]++
	}
	best, bestCount := "", 0
	keys := make([]string, 0, len(counts))
	for v := range counts {
		keys = append(keys, v)
	}
	sort.Strings(keys)
	for _, v := range keys {
		if counts[v] > bestCount {
			best, bestCount = v, counts[v]
		}
	}
	return best, bestCount
}
