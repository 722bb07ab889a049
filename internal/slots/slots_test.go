package slots

import (
	"testing"
	"time"
)

func mustGenerate(t *testing.T, clubID, courtID int64, day string, openHour, closeHour, slotMinutes int) []Slot {
	t.Helper()

	parsed, err := ParseDay(day)
	if err != nil {
		t.Fatalf("parse day: %v", err)
	}
	grid, err := Generate(clubID, courtID, parsed, openHour, closeHour, slotMinutes)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	return grid
}

func TestKeyDeterministic(t *testing.T) {
	start := time.Date(2026, 2, 15, 13, 0, 0, 0, time.UTC)
	end := start.Add(90 * time.Minute)

	first := Key(1, 2, start, end)
	second := Key(1, 2, start, end)
	if first != second {
		t.Fatalf("key not deterministic: %s != %s", first, second)
	}

	// Same instant expressed in another zone must produce the same key.
	inZone := Key(1, 2, start.In(Zone()), end.In(Zone()))
	if first != inZone {
		t.Fatalf("key depends on representation: %s != %s", first, inZone)
	}

	if Key(1, 3, start, end) == first {
		t.Fatal("key ignores court id")
	}
	if Key(2, 2, start, end) == first {
		t.Fatal("key ignores club id")
	}
}

func TestGenerateDropsTrailingPartialSlot(t *testing.T) {
	// 9-23 is a 14h window; 90 minutes divides it 9.33 times. The 22:30-23:00
	// remainder must be dropped, never emitted truncated.
	grid := mustGenerate(t, 1, 1, "2026-02-15", 9, 23, 90)

	if len(grid) != 9 {
		t.Fatalf("expected 9 slots, got %d", len(grid))
	}

	first := grid[0].Start.In(Zone())
	if first.Hour() != 9 || first.Minute() != 0 {
		t.Fatalf("first slot starts at %s", first.Format("15:04"))
	}

	last := grid[len(grid)-1]
	lastEnd := last.End.In(Zone())
	if lastEnd.Hour() != 22 || lastEnd.Minute() != 30 {
		t.Fatalf("last slot ends at %s", lastEnd.Format("15:04"))
	}
	if last.Label != "21:00 - 22:30" {
		t.Fatalf("last slot label: %s", last.Label)
	}
}

func TestGenerateOrderingAndContiguity(t *testing.T) {
	grid := mustGenerate(t, 1, 1, "2026-02-15", 9, 23, 90)

	for i := 1; i < len(grid); i++ {
		if !grid[i].Start.After(grid[i-1].Start) {
			t.Fatalf("slot %d does not start after slot %d", i, i-1)
		}
		if !grid[i].Start.Equal(grid[i-1].End) {
			t.Fatalf("gap or overlap between slot %d and %d", i-1, i)
		}
	}

	for i, slot := range grid {
		if slot.Index != i+1 {
			t.Fatalf("slot %d has index %d", i, slot.Index)
		}
		if slot.End.Sub(slot.Start) != 90*time.Minute {
			t.Fatalf("slot %d duration: %s", i, slot.End.Sub(slot.Start))
		}
	}
}

func TestGenerateExactDivision(t *testing.T) {
	// A 12h window divides evenly into eight 90-minute slots.
	grid := mustGenerate(t, 1, 1, "2026-02-15", 9, 21, 90)

	if len(grid) != 8 {
		t.Fatalf("expected 8 slots, got %d", len(grid))
	}
	lastEnd := grid[len(grid)-1].End.In(Zone())
	if lastEnd.Hour() != 21 || lastEnd.Minute() != 0 {
		t.Fatalf("last slot ends at %s", lastEnd.Format("15:04"))
	}
}

func TestGenerateUTCConversion(t *testing.T) {
	// In February, Europe/Paris is UTC+1: a 09:00 wall-clock start is the
	// 08:00 UTC instant.
	grid := mustGenerate(t, 1, 1, "2026-02-15", 9, 23, 90)

	want := time.Date(2026, 2, 15, 8, 0, 0, 0, time.UTC)
	if !grid[0].Start.Equal(want) {
		t.Fatalf("first slot start %s, want %s", grid[0].Start, want)
	}
	if grid[0].Label != "09:00 - 10:30" {
		t.Fatalf("first slot label: %s", grid[0].Label)
	}
}

func TestGenerateHandlesSummerTime(t *testing.T) {
	// In July, Europe/Paris is UTC+2. The offset must come from the zone's
	// rules, not a fixed constant.
	grid := mustGenerate(t, 1, 1, "2026-07-15", 9, 23, 90)

	want := time.Date(2026, 7, 15, 7, 0, 0, 0, time.UTC)
	if !grid[0].Start.Equal(want) {
		t.Fatalf("first slot start %s, want %s", grid[0].Start, want)
	}
}

func TestGenerateRejectsInvalidInput(t *testing.T) {
	day, err := ParseDay("2026-02-15")
	if err != nil {
		t.Fatalf("parse day: %v", err)
	}

	if _, err := Generate(1, 1, day, 23, 9, 90); err == nil {
		t.Fatal("expected error for open >= close")
	}
	if _, err := Generate(1, 1, day, 9, 23, 0); err == nil {
		t.Fatal("expected error for zero slot duration")
	}
	if _, err := Generate(1, 1, day, -1, 23, 90); err == nil {
		t.Fatal("expected error for negative open hour")
	}
}

func TestParseDayRejectsMalformedDates(t *testing.T) {
	for _, raw := range []string{"", "15/02/2026", "2026-2-15", "2026-02-15T10:00", "yesterday"} {
		if _, err := ParseDay(raw); err == nil {
			t.Fatalf("expected error for %q", raw)
		}
	}
}
