package store

import (
	"database/sql"
	"time"
)

// Booking statuses. A (court_id, slot_start) pair is unique while the booking
// is in an active status; the partial unique index in the schema is the only
// concurrency primitive the service relies on.
const (
	BookingStatusReserved  = "reserved"
	BookingStatusConfirmed = "confirmed"
	BookingStatusCancelled = "cancelled"
)

type Club struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	City        string    `json:"city"`
	OpeningHour int64     `json:"opening_hour"`
	ClosingHour int64     `json:"closing_hour"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
}

type Court struct {
	ID         int64     `json:"id"`
	ClubID     int64     `json:"club_id"`
	Name       string    `json:"name"`
	PriceCents int64     `json:"price_cents"`
	Active     bool      `json:"active"`
	CreatedAt  time.Time `json:"created_at"`
}

type Booking struct {
	ID          int64          `json:"id"`
	ClubID      int64          `json:"club_id"`
	CourtID     int64          `json:"court_id"`
	UserID      int64          `json:"user_id"`
	SlotStart   time.Time      `json:"slot_start"`
	SlotEnd     time.Time      `json:"slot_end"`
	Status      string         `json:"status"`
	PlayerName  sql.NullString `json:"player_name"`
	PlayerEmail sql.NullString `json:"player_email"`
	PlayerPhone sql.NullString `json:"player_phone"`
	CancelledAt sql.NullTime   `json:"cancelled_at"`
	CancelledBy sql.NullInt64  `json:"cancelled_by"`
	CreatedAt   time.Time      `json:"created_at"`
}

type ClubInvite struct {
	ID        int64          `json:"id"`
	ClubID    int64          `json:"club_id"`
	Token     string         `json:"token"`
	Email     sql.NullString `json:"email"`
	ExpiresAt time.Time      `json:"expires_at"`
	UsedAt    sql.NullTime   `json:"used_at"`
	UsedBy    sql.NullInt64  `json:"used_by"`
	CreatedAt time.Time      `json:"created_at"`
}

type ClubStaff struct {
	ClubID    int64     `json:"club_id"`
	UserID    int64     `json:"user_id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}
