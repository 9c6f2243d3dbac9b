package validate

import (
	"fmt"
	"strings"

	"github.com/tripweaver/tripweaver/pkg/issue"
	"github.com/tripweaver/tripweaver/pkg/times"
	"github.com/tripweaver/tripweaver/pkg/trip"
)

// smallHoursLimit marks how late "the night before" extends: when an
// activity crosses midnight, anything else starting before 06:00 is
// competing with it for the same night.
const smallHoursLimit = 6 * 60

// activity is one timeline entry with its resolved interval.
type activity struct {
	item     trip.Item
	interval times.Interval
	crosses  bool
}

// checkTimeline verifies per-activity time sanity and per-day
// non-overlap. An absent end_time is derived from duration_minutes;
// activities with no usable times at all are skipped here, since the
// schema pass already reports them.
func (p *Pipeline) checkTimeline(t *trip.Trip) []issue.Issue {
	f, ok := t.Files["timeline"]
	if !ok {
		return nil
	}
	var issues []issue.Issue

	byDay := make(map[int][]activity)
	var dayOrder []int
	for _, it := range trip.ExtractItemsFor(f, "timeline_activity") {
		start, _ := it.Data["start_time"].(string)
		if !times.Valid(start) {
			continue
		}
		end, _ := it.Data["end_time"].(string)
		crosses, _ := it.Data["crosses_midnight"].(bool)
		if !times.Valid(end) {
			dur, ok := trip.NumberValue(it.Data["duration_minutes"])
			if !ok {
				continue
			}
			derived, wraps, err := times.EndTime(start, int(dur))
			if err != nil {
				continue
			}
			end = derived
			crosses = crosses || wraps
		}
		s, _ := times.ToMinutes(start)
		e, _ := times.ToMinutes(end)
		if e < s && !crosses {
			issues = append(issues, issue.Issue{
				Severity: issue.Medium, Category: issue.Semantic,
				Agent: "timeline", Trip: t.Name, Day: it.Day, Label: it.Label, Field: it.Field,
				Message: fmt.Sprintf("end_time %q is before start_time %q but the entry is not marked crosses_midnight", end, start),
			})
		}
		iv, err := times.NewInterval(start, end, crosses)
		if err != nil {
			continue
		}
		if _, seen := byDay[it.Day]; !seen {
			dayOrder = append(dayOrder, it.Day)
		}
		byDay[it.Day] = append(byDay[it.Day], activity{item: it, interval: iv, crosses: crosses || e < s})
	}

	for _, day := range dayOrder {
		issues = append(issues, p.checkDayOverlaps(t.Name, byDay[day])...)
	}
	return issues
}

// checkDayOverlaps flags overlapping pairs within one day, then flags
// small-hours activities that share a night with a crossing one even
// when the raw intervals do not touch.
func (p *Pipeline) checkDayOverlaps(tripName string, acts []activity) []issue.Issue {
	var issues []issue.Issue

	intentional := func(a activity) bool {
		return p.Config.OverlapIntentional(a.item.Label)
	}

	for i := 0; i < len(acts); i++ {
		for j := i + 1; j < len(acts); j++ {
			a, b := acts[i], acts[j]
			if !a.interval.Overlaps(b.interval) {
				continue
			}
			if intentional(a) || intentional(b) {
				continue
			}
			issues = append(issues, issue.Issue{
				Severity: issue.Medium, Category: issue.Semantic,
				Agent: "timeline", Trip: tripName, Day: a.item.Day,
				Label: a.item.Label, Field: a.item.Field,
				Message: fmt.Sprintf("overlaps %s (%s-%s vs %s-%s)",
					activityName(b.item),
					times.FromMinutes(a.interval.Start), times.FromMinutes(a.interval.End),
					times.FromMinutes(b.interval.Start), times.FromMinutes(b.interval.End)),
			})
		}
	}

	// A crossing activity owns the night; other entries in the small
	// hours of the same day-entry collide with it in real time even
	// though their listed intervals sit on the previous morning.
	flagged := make(map[string]bool)
	for _, c := range acts {
		if !c.crosses {
			continue
		}
		for _, a := range acts {
			if a.item.Field == c.item.Field || a.crosses {
				continue
			}
			if a.interval.Start >= smallHoursLimit {
				continue
			}
			if a.interval.Overlaps(c.interval) {
				continue // already reported as a plain overlap
			}
			if intentional(a) || intentional(c) {
				continue
			}
			if flagged[a.item.Field] {
				continue
			}
			flagged[a.item.Field] = true
			issues = append(issues, issue.Issue{
				Severity: issue.Medium, Category: issue.Semantic,
				Agent: "timeline", Trip: tripName, Day: a.item.Day,
				Label: a.item.Label, Field: a.item.Field,
				Message: fmt.Sprintf("starts at %s in the small hours while %s crosses midnight the same night",
					times.FromMinutes(a.interval.Start), activityName(c.item)),
			})
		}
	}
	return issues
}

func activityName(it trip.Item) string {
	return strings.TrimPrefix(it.Field, "timeline.")
}

// checkTravelSegments verifies that every travel segment's type_base is
// one of the schema-declared transport types.
func (p *Pipeline) checkTravelSegments(t *trip.Trip) []issue.Issue {
	f, ok := t.Files["timeline"]
	if !ok {
		return nil
	}
	var issues []issue.Issue
	for _, it := range trip.ExtractItemsFor(f, "travel_segment") {
		tb, _ := it.Data["type_base"].(string)
		if tb == "" || p.Registry.IsTransportType(tb) {
			continue
		}
		issues = append(issues, issue.Issue{
			Severity: issue.Medium, Category: issue.Format,
			Agent: "timeline", Trip: t.Name, Day: it.Day, Label: it.Label,
			Field:   it.Field + ".type_base",
			Message: fmt.Sprintf("unknown transport type %q (valid: %s)", tb, strings.Join(p.Registry.TransportTypes(), ", ")),
		})
	}
	return issues
}
