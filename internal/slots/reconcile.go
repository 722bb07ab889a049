package slots

import (
	"github.com/padelhq/courtbook/internal/db/store"
)

const (
	StatusFree     = "free"
	StatusReserved = "reserved"
)

// SlotAvailability is a generated slot annotated with its booking state.
// Computed per request, never persisted.
type SlotAvailability struct {
	Slot
	Status    string `json:"status"`
	BookingID *int64 `json:"booking_id,omitempty"`
}

// Reconcile tags each slot free or reserved by matching bookings against the
// slot grid. Matching is by exact instant equality: a booking's key is
// recomputed from its own stored start/end with the same derivation as the
// generator, so a booking whose interval does not land exactly on a grid
// boundary will not mark any slot. Cancelled bookings never reserve a slot,
// even if the caller forgot to filter them out.
func Reconcile(grid []Slot, bookings []store.Booking) []SlotAvailability {
	byKey := make(map[string]store.Booking, len(bookings))
	for _, booking := range bookings {
		if booking.Status == store.BookingStatusCancelled {
			continue
		}
		byKey[Key(booking.ClubID, booking.CourtID, booking.SlotStart, booking.SlotEnd)] = booking
	}

	view := make([]SlotAvailability, 0, len(grid))
	for _, slot := range grid {
		entry := SlotAvailability{Slot: slot, Status: StatusFree}
		if booking, ok := byKey[slot.Key]; ok {
			entry.Status = StatusReserved
			id := booking.ID
			entry.BookingID = &id
		}
		view = append(view, entry)
	}
	return view
}

// Counts sums free and reserved entries of a reconciled view.
func Counts(view []SlotAvailability) (free, reserved int) {
	for _, entry := range view {
		if entry.Status == StatusReserved {
			reserved++
		} else {
			free++
		}
	}
	return free, reserved
}
