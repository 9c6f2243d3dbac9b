package render

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/tripweaver/tripweaver/pkg/issue"
	"github.com/tripweaver/tripweaver/pkg/trip"
)

func sampleTrip() *trip.Trip {
	day := map[string]any{
		"day": float64(1), "date": "2026-04-01", "location": "Tokyo",
		"attractions": []any{map[string]any{
			"name_base":      "Senso-ji",
			"name_local":     "浅草寺",
			"cost":           float64(500),
			"currency_local": "JPY",
		}},
	}
	tl := map[string]any{
		"day": float64(1), "date": "2026-04-01", "location": "Tokyo",
		"timeline": map[string]any{
			"temple visit": map[string]any{"start_time": "09:00", "end_time": "11:00"},
		},
	}
	return &trip.Trip{
		Name: "tokyo-2026",
		Files: map[string]*trip.File{
			"attractions": trip.FromRaw("attractions", map[string]any{
				"agent": "attractions", "status": "complete",
				"data": map[string]any{"days": []any{day}},
			}),
			"timeline": trip.FromRaw("timeline", map[string]any{
				"agent": "timeline", "status": "complete",
				"data": map[string]any{"days": []any{tl}},
			}),
		},
	}
}

func TestReportOutput(t *testing.T) {
	r := issue.NewReport("tokyo-2026", []issue.Issue{
		{Severity: issue.High, Category: issue.Presence, Agent: "meals", Day: 1, Label: "Day 1 (2026-04-01) breakfast: 築地朝食", Field: "breakfast.name_local", Message: "name_local is missing or empty"},
		{Severity: issue.Info, Category: issue.Legacy, Agent: "shopping", Message: "legacy field \"currency\"; use \"currency_local\""},
	})
	var buf bytes.Buffer
	Report(&buf, r)
	out := buf.String()
	for _, want := range []string{"FAIL", "1 HIGH", "meals", "breakfast.name_local", "築地朝食", "SEVERITY"} {
		if !strings.Contains(out, want) {
			t.Errorf("report output missing %q:\n%s", want, out)
		}
	}
}

func TestReportPass(t *testing.T) {
	var buf bytes.Buffer
	Report(&buf, issue.NewReport("tokyo-2026", nil))
	if !strings.Contains(buf.String(), "PASS") {
		t.Errorf("clean report should say PASS:\n%s", buf.String())
	}
}

func TestItineraryGate(t *testing.T) {
	r := issue.NewReport("tokyo-2026", []issue.Issue{
		{Severity: issue.High, Category: issue.Structure, Agent: "meals", Message: "data.days is missing or empty"},
	})
	_, err := Itinerary(sampleTrip(), r)
	var gateErr *RenderGateError
	if !errors.As(err, &gateErr) {
		t.Fatalf("want *RenderGateError, got %v", err)
	}
}

func TestItineraryOutput(t *testing.T) {
	html, err := Itinerary(sampleTrip(), issue.NewReport("tokyo-2026", nil))
	if err != nil {
		t.Fatalf("Itinerary: %v", err)
	}
	out := string(html)
	for _, want := range []string{"tokyo-2026", "Day 1", "Senso-ji", "浅草寺", "500 JPY", "temple visit", "09:00"} {
		if !strings.Contains(out, want) {
			t.Errorf("itinerary missing %q", want)
		}
	}
	if !strings.HasPrefix(out, "<!DOCTYPE html>") {
		t.Error("itinerary should be a complete HTML document")
	}
}
