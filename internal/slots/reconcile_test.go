package slots

import (
	"testing"
	"time"

	"github.com/padelhq/courtbook/internal/db/store"
)

func bookingFor(slot Slot, id int64, status string) store.Booking {
	return store.Booking{
		ID:        id,
		ClubID:    slot.ClubID,
		CourtID:   slot.CourtID,
		UserID:    42,
		SlotStart: slot.Start,
		SlotEnd:   slot.End,
		Status:    status,
	}
}

func TestReconcileEmptyBookings(t *testing.T) {
	grid := mustGenerate(t, 1, 1, "2026-02-15", 9, 23, 90)

	view := Reconcile(grid, nil)
	if len(view) != len(grid) {
		t.Fatalf("view length %d, want %d", len(view), len(grid))
	}
	for i, entry := range view {
		if entry.Status != StatusFree {
			t.Fatalf("slot %d status %s, want free", i, entry.Status)
		}
		if entry.BookingID != nil {
			t.Fatalf("slot %d carries booking id %d", i, *entry.BookingID)
		}
	}

	free, reserved := Counts(view)
	if free != 9 || reserved != 0 {
		t.Fatalf("counts: free=%d reserved=%d", free, reserved)
	}
}

func TestReconcileExampleScenario(t *testing.T) {
	// One booking at 14:00-15:30 wall clock: that slot is reserved with the
	// booking id, the other eight stay free.
	grid := mustGenerate(t, 1, 1, "2026-02-15", 9, 23, 90)

	start := time.Date(2026, 2, 15, 14, 0, 0, 0, Zone())
	booking := store.Booking{
		ID:        7,
		ClubID:    1,
		CourtID:   1,
		UserID:    42,
		SlotStart: start.UTC(),
		SlotEnd:   start.Add(90 * time.Minute).UTC(),
		Status:    store.BookingStatusReserved,
	}

	view := Reconcile(grid, []store.Booking{booking})
	free, reserved := Counts(view)
	if free != 8 || reserved != 1 {
		t.Fatalf("counts: free=%d reserved=%d", free, reserved)
	}

	for _, entry := range view {
		if entry.Label == "14:00 - 15:30" {
			if entry.Status != StatusReserved {
				t.Fatalf("14:00 slot status %s", entry.Status)
			}
			if entry.BookingID == nil || *entry.BookingID != 7 {
				t.Fatalf("14:00 slot booking id %v", entry.BookingID)
			}
			continue
		}
		if entry.Status != StatusFree {
			t.Fatalf("slot %s status %s", entry.Label, entry.Status)
		}
	}
}

func TestReconcileCancelledBookingNeverReserves(t *testing.T) {
	grid := mustGenerate(t, 1, 1, "2026-02-15", 9, 23, 90)

	view := Reconcile(grid, []store.Booking{bookingFor(grid[3], 9, store.BookingStatusCancelled)})
	for _, entry := range view {
		if entry.Status != StatusFree {
			t.Fatalf("slot %s reserved by cancelled booking", entry.Label)
		}
	}
}

func TestReconcileConfirmedBookingReserves(t *testing.T) {
	grid := mustGenerate(t, 1, 1, "2026-02-15", 9, 23, 90)

	view := Reconcile(grid, []store.Booking{bookingFor(grid[0], 3, store.BookingStatusConfirmed)})
	if view[0].Status != StatusReserved {
		t.Fatalf("slot status %s", view[0].Status)
	}
}

func TestReconcileRequiresExactInstantMatch(t *testing.T) {
	// A booking shifted off the grid boundary matches nothing. This mirrors
	// the exact-equality contract: drifted rows show as free rather than
	// snapping to the nearest slot.
	grid := mustGenerate(t, 1, 1, "2026-02-15", 9, 23, 90)

	drifted := bookingFor(grid[2], 5, store.BookingStatusReserved)
	drifted.SlotStart = drifted.SlotStart.Add(time.Hour)
	drifted.SlotEnd = drifted.SlotEnd.Add(time.Hour)

	view := Reconcile(grid, []store.Booking{drifted})
	for _, entry := range view {
		if entry.Status != StatusFree {
			t.Fatalf("drifted booking reserved slot %s", entry.Label)
		}
	}
}

func TestReconcileIgnoresOtherCourt(t *testing.T) {
	grid := mustGenerate(t, 1, 1, "2026-02-15", 9, 23, 90)

	other := bookingFor(grid[4], 11, store.BookingStatusReserved)
	other.CourtID = 2

	view := Reconcile(grid, []store.Booking{other})
	if view[4].Status != StatusFree {
		t.Fatal("booking on another court reserved this grid")
	}
}
