package skeleton

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/tripweaver/tripweaver/pkg/modlog"
	"github.com/tripweaver/tripweaver/pkg/registry"
	"github.com/tripweaver/tripweaver/pkg/trip"
)

func testRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg, err := registry.Load("../../schemas")
	if err != nil {
		t.Fatalf("registry.Load: %v", err)
	}
	return reg
}

func TestGenerate(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "kyoto-2026")
	start, _ := time.Parse("2006-01-02", "2026-04-01")
	err := Generate(dir, testRegistry(t), Options{Destination: "Kyoto", Start: start, Days: 3})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	for _, agent := range trip.AgentNames {
		f, err := trip.Load(dir, agent)
		if err != nil {
			t.Fatalf("load %s: %v", agent, err)
		}
		if f.Status != "skeleton" {
			t.Errorf("%s status = %q, want skeleton", agent, f.Status)
		}
		days := f.Days()
		if len(days) != 3 {
			t.Fatalf("%s has %d days, want 3", agent, len(days))
		}
		if date, _ := trip.DayDate(days[1]); date != "2026-04-02" {
			t.Errorf("%s day 2 date = %q", agent, date)
		}
		if loc := trip.DayLocation(days[0]); loc != "Kyoto" {
			t.Errorf("%s location = %q", agent, loc)
		}
	}

	entries, err := modlog.Read(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != len(trip.AgentNames) {
		t.Errorf("want one modlog entry per agent, got %d", len(entries))
	}
}

func TestGenerateBucketList(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "someday-lisbon")
	if err := Generate(dir, testRegistry(t), Options{Destination: "Lisbon", Days: 2, BucketList: true}); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	f, err := trip.Load(dir, "attractions")
	if err != nil {
		t.Fatal(err)
	}
	for _, d := range f.Days() {
		if date, _ := trip.DayDate(d); date != "" {
			t.Errorf("bucket-list day should have empty date, got %q", date)
		}
	}
}

func TestGenerateDoesNotClobber(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "trip")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	existing := []byte(`{"agent": "meals", "status": "complete", "data": {"days": []}}`)
	if err := os.WriteFile(filepath.Join(dir, "meals.json"), existing, 0o644); err != nil {
		t.Fatal(err)
	}
	start, _ := time.Parse("2006-01-02", "2026-04-01")
	if err := Generate(dir, testRegistry(t), Options{Destination: "Kyoto", Start: start, Days: 1}); err != nil {
		t.Fatal(err)
	}
	data, _ := os.ReadFile(filepath.Join(dir, "meals.json"))
	if !strings.Contains(string(data), `"complete"`) {
		t.Error("existing agent file must not be overwritten")
	}
}

func TestGenerateValidation(t *testing.T) {
	reg := testRegistry(t)
	if err := Generate(t.TempDir(), reg, Options{Destination: "", Days: 1}); err == nil {
		t.Error("want error for empty destination")
	}
	if err := Generate(t.TempDir(), reg, Options{Destination: "Kyoto", Days: 0, BucketList: true}); err == nil {
		t.Error("want error for zero days")
	}
	if err := Generate(t.TempDir(), reg, Options{Destination: "Kyoto", Days: 2}); err == nil {
		t.Error("want error for missing start date on a dated trip")
	}
}

func TestGenerateBudgetTracksSchema(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "kyoto-2026")
	reg := testRegistry(t)
	start, _ := time.Parse("2006-01-02", "2026-04-01")
	if err := Generate(dir, reg, Options{Destination: "Kyoto", Start: start, Days: 1}); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	f, err := trip.Load(dir, "budget")
	if err != nil {
		t.Fatal(err)
	}
	b, ok := f.Days()[0]["budget"].(map[string]any)
	if !ok {
		t.Fatal("budget day should carry a budget map")
	}
	for _, cat := range reg.BudgetCategories() {
		if _, present := b[cat]; !present {
			t.Errorf("budget skeleton missing schema category %q", cat)
		}
	}
	if _, present := b["total"]; !present {
		t.Error("budget skeleton missing total")
	}
	if len(b) != len(reg.BudgetCategories())+1 {
		t.Errorf("budget skeleton carries extra keys: %v", b)
	}
}
