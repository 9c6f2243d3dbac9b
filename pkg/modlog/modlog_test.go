package modlog

import (
	"testing"
)

func TestAppendAndRead(t *testing.T) {
	dir := t.TempDir()

	entries, err := Read(dir)
	if err != nil {
		t.Fatalf("Read empty: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("fresh trip should have no entries, got %d", len(entries))
	}

	if err := Append(dir, Entry{Agent: "meals", Action: "save", Days: []int{1, 2}}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := Append(dir, Entry{Agent: "budget", Action: "save-merge", Days: []int{3}}); err != nil {
		t.Fatalf("Append: %v", err)
	}

	entries, err = Read(dir)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("want 2 entries, got %d", len(entries))
	}
	if entries[0].Agent != "meals" || entries[1].Agent != "budget" {
		t.Errorf("entries out of order: %+v", entries)
	}
	if entries[0].ID == "" || entries[0].ID == entries[1].ID {
		t.Error("entries should carry distinct generated IDs")
	}
	if entries[0].Timestamp.IsZero() {
		t.Error("timestamp should be filled in")
	}
}
