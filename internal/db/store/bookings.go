package store

import (
	"context"
	"database/sql"
	"time"
)

const bookingColumns = `id, club_id, court_id, user_id, slot_start, slot_end, status,
	player_name, player_email, player_phone, cancelled_at, cancelled_by, created_at`

func scanBooking(row interface{ Scan(...any) error }) (Booking, error) {
	var b Booking
	err := row.Scan(
		&b.ID, &b.ClubID, &b.CourtID, &b.UserID, &b.SlotStart, &b.SlotEnd, &b.Status,
		&b.PlayerName, &b.PlayerEmail, &b.PlayerPhone, &b.CancelledAt, &b.CancelledBy, &b.CreatedAt,
	)
	return b, err
}

type CreateBookingParams struct {
	ClubID      int64
	CourtID     int64
	UserID      int64
	SlotStart   time.Time
	SlotEnd     time.Time
	PlayerName  sql.NullString
	PlayerEmail sql.NullString
	PlayerPhone sql.NullString
}

// CreateBooking inserts a reserved booking. The partial unique index on
// (court_id, slot_start) over non-cancelled rows makes this the authoritative
// conflict check: callers classify the constraint violation, they never
// check-then-insert.
func (q *Queries) CreateBooking(ctx context.Context, arg CreateBookingParams) (Booking, error) {
	row := q.db.QueryRowContext(ctx,
		`INSERT INTO bookings (club_id, court_id, user_id, slot_start, slot_end, status,
			player_name, player_email, player_phone)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 RETURNING `+bookingColumns,
		arg.ClubID, arg.CourtID, arg.UserID,
		arg.SlotStart.UTC(), arg.SlotEnd.UTC(), BookingStatusReserved,
		arg.PlayerName, arg.PlayerEmail, arg.PlayerPhone)
	return scanBooking(row)
}

func (q *Queries) GetBookingByID(ctx context.Context, id int64) (Booking, error) {
	row := q.db.QueryRowContext(ctx,
		"SELECT "+bookingColumns+" FROM bookings WHERE id = ?", id)
	return scanBooking(row)
}

type ListActiveBookingsForCourtParams struct {
	CourtID int64
	From    time.Time
	To      time.Time
}

// ListActiveBookingsForCourt returns non-cancelled bookings whose slot starts
// inside [From, To).
func (q *Queries) ListActiveBookingsForCourt(ctx context.Context, arg ListActiveBookingsForCourtParams) ([]Booking, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings
		 WHERE court_id = ? AND status != ? AND slot_start >= ? AND slot_start < ?
		 ORDER BY slot_start`,
		arg.CourtID, BookingStatusCancelled, arg.From.UTC(), arg.To.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []Booking
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, booking)
	}
	return bookings, rows.Err()
}

type ListActiveBookingsForClubParams struct {
	ClubID int64
	From   time.Time
	To     time.Time
}

func (q *Queries) ListActiveBookingsForClub(ctx context.Context, arg ListActiveBookingsForClubParams) ([]Booking, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings
		 WHERE club_id = ? AND status != ? AND slot_start >= ? AND slot_start < ?
		 ORDER BY slot_start`,
		arg.ClubID, BookingStatusCancelled, arg.From.UTC(), arg.To.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []Booking
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, booking)
	}
	return bookings, rows.Err()
}

type CancelBookingParams struct {
	ID          int64
	CancelledBy int64
	CancelledAt time.Time
}

// CancelBooking transitions a booking to cancelled. The status guard in the
// WHERE clause keeps the transition idempotent at the storage layer: a second
// cancel matches zero rows and cancelled_at is never overwritten.
func (q *Queries) CancelBooking(ctx context.Context, arg CancelBookingParams) (Booking, error) {
	row := q.db.QueryRowContext(ctx,
		`UPDATE bookings
		 SET status = ?, cancelled_at = ?, cancelled_by = ?
		 WHERE id = ? AND status != ?
		 RETURNING `+bookingColumns,
		BookingStatusCancelled, arg.CancelledAt.UTC(), arg.CancelledBy,
		arg.ID, BookingStatusCancelled)
	return scanBooking(row)
}
