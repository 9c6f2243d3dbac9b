package times

import "testing"

func TestFromMinutesWrapsAtMidnight(t *testing.T) {
	cases := []struct {
		in   int
		want string
	}{
		{0, "00:00"},
		{90, "01:30"},
		{1439, "23:59"},
		{1440, "00:00"},
		{1620, "03:00"},
		{2880, "00:00"},
	}
	for _, c := range cases {
		if got := FromMinutes(c.in); got != c.want {
			t.Errorf("FromMinutes(%d) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestToMinutesRejectsBadInput(t *testing.T) {
	for _, bad := range []string{"", "9:00:00", "24:00", "12:60", "noon", "12-30"} {
		if _, err := ToMinutes(bad); err == nil {
			t.Errorf("ToMinutes(%q): expected error", bad)
		}
	}
	got, err := ToMinutes("23:59")
	if err != nil || got != 1439 {
		t.Errorf("ToMinutes(23:59) = %d, %v", got, err)
	}
}

func TestEndTimeCrossesMidnight(t *testing.T) {
	end, crosses, err := EndTime("23:00", 240)
	if err != nil {
		t.Fatal(err)
	}
	if end != "03:00" || !crosses {
		t.Errorf("EndTime(23:00, 240) = %q, %v; want 03:00, true", end, crosses)
	}

	end, crosses, err = EndTime("09:30", 90)
	if err != nil {
		t.Fatal(err)
	}
	if end != "11:00" || crosses {
		t.Errorf("EndTime(09:30, 90) = %q, %v; want 11:00, false", end, crosses)
	}
}

func TestIntervalSplit(t *testing.T) {
	iv, err := NewInterval("23:00", "03:00", true)
	if err != nil {
		t.Fatal(err)
	}
	halves := iv.Split()
	if len(halves) != 2 {
		t.Fatalf("crossing interval split into %d parts, want 2", len(halves))
	}
	if halves[0].Start != 1380 || halves[0].End != 1440 {
		t.Errorf("first half = %+v, want [1380,1440)", halves[0])
	}
	if halves[1].Start != 0 || halves[1].End != 180 {
		t.Errorf("second half = %+v, want [0,180)", halves[1])
	}

	plain, _ := NewInterval("09:00", "10:00", false)
	if got := plain.Split(); len(got) != 1 {
		t.Errorf("non-crossing interval split into %d parts, want 1", len(got))
	}
}

// A 23:00+240min activity must conflict with both a same-evening slot and an
// early-morning slot on the wrapped side.
func TestCrossMidnightOverlaps(t *testing.T) {
	late, err := NewInterval("23:00", "03:00", true)
	if err != nil {
		t.Fatal(err)
	}

	earlyMorning, _ := NewInterval("02:00", "02:30", false)
	if !late.Overlaps(earlyMorning) {
		t.Error("23:00-03:00 should overlap 02:00-02:30")
	}

	afterEnd, _ := NewInterval("04:00", "05:00", false)
	if late.Overlaps(afterEnd) {
		t.Error("23:00-03:00 should not overlap 04:00-05:00")
	}

	evening, _ := NewInterval("22:00", "23:30", false)
	if !late.Overlaps(evening) {
		t.Error("23:00-03:00 should overlap 22:00-23:30")
	}
}

func TestValid(t *testing.T) {
	for _, good := range []string{"00:00", "09:15", "23:59"} {
		if !Valid(good) {
			t.Errorf("Valid(%q) = false", good)
		}
	}
	for _, bad := range []string{"24:00", "7:00", "12:5", ""} {
		if Valid(bad) {
			t.Errorf("Valid(%q) = true", bad)
		}
	}
}
