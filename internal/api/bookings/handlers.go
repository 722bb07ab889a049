// internal/api/bookings/handlers.go
package bookings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/nyaruka/phonenumbers"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/padelhq/courtbook/internal/api/apiutil"
	"github.com/padelhq/courtbook/internal/api/authz"
	appdb "github.com/padelhq/courtbook/internal/db"
	"github.com/padelhq/courtbook/internal/db/store"
	"github.com/padelhq/courtbook/internal/email"
	"github.com/padelhq/courtbook/internal/ratelimit"
	"github.com/padelhq/courtbook/internal/slots"
)

var (
	queries     *store.Queries
	limiter     *ratelimit.Limiter
	sender      email.Sender
	staffSender string
	slotMinutes int
	initOnce    sync.Once
)

const (
	bookingQueryTimeout = 5 * time.Second
	defaultPhoneRegion  = "FR"
)

// Deps are the collaborators the booking handlers need at startup.
type Deps struct {
	DB          *appdb.DB
	Limiter     *ratelimit.Limiter
	Sender      email.Sender
	StaffSender string
	SlotMinutes int
}

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(deps Deps) {
	if deps.DB == nil {
		return
	}
	initOnce.Do(func() {
		queries = deps.DB.Queries
		limiter = deps.Limiter
		sender = deps.Sender
		staffSender = deps.StaffSender
		slotMinutes = deps.SlotMinutes
	})
}

type createBookingRequest struct {
	ClubID      int64  `json:"clubId"`
	CourtID     int64  `json:"courtId"`
	BookingDate string `json:"bookingDate"`
	SlotID      int    `json:"slotId"`
	UserID      int64  `json:"userId"`
	PlayerName  string `json:"playerName,omitempty"`
	PlayerEmail string `json:"playerEmail,omitempty"`
	PlayerPhone string `json:"playerPhone,omitempty"`
}

type cancelBookingRequest struct {
	CancelledBy int64 `json:"cancelledBy"`
}

type bookingResponse struct {
	ID          int64   `json:"id"`
	ClubID      int64   `json:"club_id"`
	CourtID     int64   `json:"court_id"`
	UserID      int64   `json:"user_id"`
	SlotStart   string  `json:"slot_start"`
	SlotEnd     string  `json:"slot_end"`
	Status      string  `json:"status"`
	CancelledAt *string `json:"cancelledAt,omitempty"`
	CancelledBy *int64  `json:"cancelledBy,omitempty"`
	CreatedAt   string  `json:"created_at"`
}

func newBookingResponse(b store.Booking) bookingResponse {
	response := bookingResponse{
		ID:        b.ID,
		ClubID:    b.ClubID,
		CourtID:   b.CourtID,
		UserID:    b.UserID,
		SlotStart: b.SlotStart.UTC().Format(time.RFC3339),
		SlotEnd:   b.SlotEnd.UTC().Format(time.RFC3339),
		Status:    b.Status,
		CreatedAt: b.CreatedAt.UTC().Format(time.RFC3339),
	}
	if b.CancelledAt.Valid {
		cancelledAt := b.CancelledAt.Time.UTC().Format(time.RFC3339)
		response.CancelledAt = &cancelledAt
	}
	if b.CancelledBy.Valid {
		cancelledBy := b.CancelledBy.Int64
		response.CancelledBy = &cancelledBy
	}
	return response
}

// POST /api/v1/bookings
func HandleBookingCreate(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	q := loadQueries()
	if q == nil {
		logger.Error().Msg("Database queries not initialized")
		apiutil.WriteError(w, http.StatusInternalServerError, apiutil.CodeInternal, "Internal Server Error")
		return
	}

	var req createBookingRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, apiutil.CodeValidation, err.Error())
		return
	}
	if err := validateCreateRequest(&req); err != nil {
		var fieldErr apiutil.FieldError
		code := apiutil.CodeValidation
		if errors.As(err, &fieldErr) {
			switch fieldErr.Field {
			case "bookingDate":
				code = apiutil.CodeInvalidDate
			case "slotId":
				code = apiutil.CodeInvalidSlot
			}
		}
		apiutil.WriteError(w, http.StatusBadRequest, code, err.Error())
		return
	}

	if limiter != nil {
		ip := ratelimit.GetClientIP(r, false)
		if result := limiter.CheckBookingCreate(req.UserID, ip); !result.Allowed {
			ratelimit.LogRateLimitExceeded(req.UserID, ip, result.Reason)
			w.Header().Set("Retry-After", fmt.Sprintf("%d", int(result.RetryAfter.Seconds())+1))
			apiutil.WriteError(w, http.StatusTooManyRequests, apiutil.CodeRateLimited, "Too many booking attempts")
			return
		}
		limiter.RecordBookingCreate(req.UserID, ip)
	}

	ctx, cancel := context.WithTimeout(r.Context(), bookingQueryTimeout)
	defer cancel()

	club, court, err := loadActiveClubCourt(ctx, q, req.ClubID, req.CourtID)
	if err != nil {
		writeHandlerError(w, logger, err, "Failed to load club or court")
		return
	}

	day, err := slots.ParseDay(req.BookingDate)
	if err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, apiutil.CodeInvalidDate, err.Error())
		return
	}

	grid, err := slots.Generate(req.ClubID, req.CourtID, day, int(club.OpeningHour), int(club.ClosingHour), slotMinutes)
	if err != nil {
		logger.Error().Err(err).Int64("club_id", req.ClubID).Msg("Failed to generate slot grid")
		apiutil.WriteError(w, http.StatusInternalServerError, apiutil.CodeInternal, "Failed to generate slots")
		return
	}
	if req.SlotID > len(grid) {
		apiutil.WriteError(w, http.StatusBadRequest, apiutil.CodeInvalidSlot,
			fmt.Sprintf("slotId must be between 1 and %d", len(grid)))
		return
	}
	slot := grid[req.SlotID-1]

	if !slot.Start.After(time.Now()) {
		apiutil.WriteError(w, http.StatusBadRequest, apiutil.CodePastBooking, "Cannot book a slot in the past")
		return
	}

	created, err := q.CreateBooking(ctx, store.CreateBookingParams{
		ClubID:      req.ClubID,
		CourtID:     req.CourtID,
		UserID:      req.UserID,
		SlotStart:   slot.Start,
		SlotEnd:     slot.End,
		PlayerName:  apiutil.ToNullString(strings.TrimSpace(req.PlayerName)),
		PlayerEmail: apiutil.ToNullString(strings.TrimSpace(req.PlayerEmail)),
		PlayerPhone: apiutil.ToNullString(strings.TrimSpace(req.PlayerPhone)),
	})
	if err != nil {
		// The unique index is the authoritative conflict check: losing the
		// race surfaces here, never via check-then-insert.
		if apiutil.IsUniqueConstraintViolation(err) {
			apiutil.WriteError(w, http.StatusConflict, apiutil.CodeSlotConflict, "Slot already booked")
			return
		}
		if apiutil.IsForeignKeyViolation(err) {
			apiutil.WriteError(w, http.StatusNotFound, apiutil.CodeNotFound, "Club or court not found")
			return
		}
		logger.Error().Err(err).Int64("court_id", req.CourtID).Msg("Failed to create booking")
		apiutil.WriteError(w, http.StatusInternalServerError, apiutil.CodeBookingError, "Failed to create booking")
		return
	}

	sendBookingEmails(ctx, q, club, court, created, logger)

	logger.Info().
		Int64("booking_id", created.ID).
		Int64("court_id", created.CourtID).
		Time("slot_start", created.SlotStart).
		Msg("Booking created")

	if err := apiutil.WriteJSON(w, http.StatusCreated, map[string]any{"booking": newBookingResponse(created)}); err != nil {
		logger.Error().Err(err).Int64("booking_id", created.ID).Msg("Failed to write booking response")
	}
}

// POST /api/v1/bookings/{id}/cancel
func HandleBookingCancel(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	q := loadQueries()
	if q == nil {
		logger.Error().Msg("Database queries not initialized")
		apiutil.WriteError(w, http.StatusInternalServerError, apiutil.CodeInternal, "Internal Server Error")
		return
	}

	bookingID, err := apiutil.IDFromPath(r, "id")
	if err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, apiutil.CodeValidation, "Invalid booking ID")
		return
	}

	var req cancelBookingRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, apiutil.CodeValidation, err.Error())
		return
	}
	if req.CancelledBy <= 0 {
		apiutil.WriteError(w, http.StatusBadRequest, apiutil.CodeValidation, "cancelledBy is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), bookingQueryTimeout)
	defer cancel()

	booking, err := q.GetBookingByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			apiutil.WriteError(w, http.StatusNotFound, apiutil.CodeBookingNotFound, "Booking not found")
			return
		}
		logger.Error().Err(err).Int64("booking_id", bookingID).Msg("Failed to fetch booking")
		apiutil.WriteError(w, http.StatusInternalServerError, apiutil.CodeInternal, "Failed to fetch booking")
		return
	}

	if booking.Status == store.BookingStatusCancelled {
		apiutil.WriteError(w, http.StatusBadRequest, apiutil.CodeAlreadyCancelled, "Booking is already cancelled")
		return
	}

	if req.CancelledBy != booking.UserID {
		isStaff, err := q.IsClubStaff(ctx, store.IsClubStaffParams{ClubID: booking.ClubID, UserID: req.CancelledBy})
		if err != nil {
			logger.Error().Err(err).Int64("booking_id", bookingID).Msg("Failed to check staff membership")
			apiutil.WriteError(w, http.StatusInternalServerError, apiutil.CodeInternal, "Failed to authorize cancellation")
			return
		}
		if !isStaff {
			apiutil.WriteError(w, http.StatusForbidden, apiutil.CodeCancelForbidden, "Only the booking owner or club staff can cancel")
			return
		}
	}

	cancelled, err := q.CancelBooking(ctx, store.CancelBookingParams{
		ID:          bookingID,
		CancelledBy: req.CancelledBy,
		CancelledAt: time.Now(),
	})
	if err != nil {
		// The guarded UPDATE matched nothing: a concurrent cancel won the
		// race between our status read and the write.
		if errors.Is(err, sql.ErrNoRows) {
			apiutil.WriteError(w, http.StatusBadRequest, apiutil.CodeAlreadyCancelled, "Booking is already cancelled")
			return
		}
		logger.Error().Err(err).Int64("booking_id", bookingID).Msg("Failed to cancel booking")
		apiutil.WriteError(w, http.StatusInternalServerError, apiutil.CodeInternal, "Failed to cancel booking")
		return
	}

	sendCancellationEmail(ctx, q, cancelled, logger)

	logger.Info().
		Int64("booking_id", cancelled.ID).
		Int64("cancelled_by", req.CancelledBy).
		Msg("Booking cancelled")

	if err := apiutil.WriteJSON(w, http.StatusOK, map[string]any{"booking": newBookingResponse(cancelled)}); err != nil {
		logger.Error().Err(err).Int64("booking_id", cancelled.ID).Msg("Failed to write cancel response")
	}
}

// GET /api/v1/bookings/{id}
func HandleBookingGet(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	q := loadQueries()
	if q == nil {
		logger.Error().Msg("Database queries not initialized")
		apiutil.WriteError(w, http.StatusInternalServerError, apiutil.CodeInternal, "Internal Server Error")
		return
	}

	bookingID, err := apiutil.IDFromPath(r, "id")
	if err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, apiutil.CodeValidation, "Invalid booking ID")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), bookingQueryTimeout)
	defer cancel()

	booking, err := q.GetBookingByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			apiutil.WriteError(w, http.StatusNotFound, apiutil.CodeBookingNotFound, "Booking not found")
			return
		}
		logger.Error().Err(err).Int64("booking_id", bookingID).Msg("Failed to fetch booking")
		apiutil.WriteError(w, http.StatusInternalServerError, apiutil.CodeInternal, "Failed to fetch booking")
		return
	}

	session := authz.SessionFromContext(r.Context())
	if session == nil || (session.UserID != booking.UserID && !isStaffOf(ctx, q, booking.ClubID, session.UserID, logger)) {
		apiutil.WriteError(w, http.StatusForbidden, apiutil.CodeCancelForbidden, "Not allowed to view this booking")
		return
	}

	if err := apiutil.WriteJSON(w, http.StatusOK, map[string]any{"booking": newBookingResponse(booking)}); err != nil {
		logger.Error().Err(err).Int64("booking_id", booking.ID).Msg("Failed to write booking response")
	}
}

func isStaffOf(ctx context.Context, q *store.Queries, clubID, userID int64, logger *zerolog.Logger) bool {
	isStaff, err := q.IsClubStaff(ctx, store.IsClubStaffParams{ClubID: clubID, UserID: userID})
	if err != nil {
		logger.Error().Err(err).Int64("club_id", clubID).Msg("Failed to check staff membership")
		return false
	}
	return isStaff
}

func validateCreateRequest(req *createBookingRequest) error {
	if req.ClubID <= 0 {
		return apiutil.FieldError{Field: "clubId", Reason: "must be a positive integer"}
	}
	if req.CourtID <= 0 {
		return apiutil.FieldError{Field: "courtId", Reason: "must be a positive integer"}
	}
	if req.UserID <= 0 {
		return apiutil.FieldError{Field: "userId", Reason: "must be a positive integer"}
	}
	if req.SlotID <= 0 {
		return apiutil.FieldError{Field: "slotId", Reason: "must be a positive integer"}
	}
	if strings.TrimSpace(req.BookingDate) == "" {
		return apiutil.FieldError{Field: "bookingDate", Reason: "is required"}
	}
	if _, err := slots.ParseDay(req.BookingDate); err != nil {
		return apiutil.FieldError{Field: "bookingDate", Reason: "must be YYYY-MM-DD"}
	}
	if phone := strings.TrimSpace(req.PlayerPhone); phone != "" {
		parsed, err := phonenumbers.Parse(phone, defaultPhoneRegion)
		if err != nil || !phonenumbers.IsValidNumber(parsed) {
			return apiutil.FieldError{Field: "playerPhone", Reason: "must be a valid phone number"}
		}
	}
	return nil
}

func loadActiveClubCourt(ctx context.Context, q *store.Queries, clubID, courtID int64) (store.Club, store.Court, error) {
	club, err := q.GetClubByID(ctx, clubID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.Club{}, store.Court{}, apiutil.HandlerError{
				Status: http.StatusNotFound, Code: apiutil.CodeNotFound, Message: "Club not found", Err: err}
		}
		return store.Club{}, store.Court{}, err
	}
	if !club.Active {
		return store.Club{}, store.Court{}, apiutil.HandlerError{
			Status: http.StatusNotFound, Code: apiutil.CodeNotFound, Message: "Club not found"}
	}

	court, err := q.GetCourtByID(ctx, courtID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.Club{}, store.Court{}, apiutil.HandlerError{
				Status: http.StatusNotFound, Code: apiutil.CodeNotFound, Message: "Court not found", Err: err}
		}
		return store.Club{}, store.Court{}, err
	}
	if court.ClubID != clubID || !court.Active {
		return store.Club{}, store.Court{}, apiutil.HandlerError{
			Status: http.StatusNotFound, Code: apiutil.CodeNotFound, Message: "Court not found"}
	}

	return club, court, nil
}

func writeHandlerError(w http.ResponseWriter, logger *zerolog.Logger, err error, fallback string) {
	var herr apiutil.HandlerError
	if errors.As(err, &herr) {
		apiutil.WriteError(w, herr.Status, herr.Code, herr.Message)
		return
	}
	logger.Error().Err(err).Msg(fallback)
	apiutil.WriteError(w, http.StatusInternalServerError, apiutil.CodeInternal, fallback)
}

func sendBookingEmails(ctx context.Context, q *store.Queries, club store.Club, court store.Court, booking store.Booking, logger *zerolog.Logger) {
	if sender == nil {
		return
	}

	date, timeRange := email.FormatDateTimeRange(booking.SlotStart, booking.SlotEnd, slots.Zone())
	details := email.BookingDetails{
		ClubName:  club.Name,
		CourtName: court.Name,
		Date:      date,
		TimeRange: timeRange,
		Price:     apiutil.FormatPriceCents(court.PriceCents),
	}

	if booking.PlayerEmail.Valid {
		email.SendPlayerEmail(sender, booking.PlayerEmail.String, email.BuildBookingConfirmation(details), logger)
	}

	staffEmails, err := q.ListClubStaffEmails(ctx, club.ID)
	if err != nil {
		logger.Warn().Err(err).Int64("club_id", club.ID).Msg("Failed to load staff emails for booking alert")
		return
	}
	playerName := ""
	if booking.PlayerName.Valid {
		playerName = booking.PlayerName.String
	}
	alert := email.BuildStaffBookingAlert(details, playerName)
	go func() {
		notifyCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if failed := email.NotifyClubStaff(notifyCtx, sender, staffEmails, alert, staffSender, logger); failed > 0 {
			logger.Warn().Int("failed", failed).Int64("club_id", club.ID).Msg("Some staff alerts failed to send")
		}
	}()
}

func sendCancellationEmail(ctx context.Context, q *store.Queries, booking store.Booking, logger *zerolog.Logger) {
	if sender == nil || !booking.PlayerEmail.Valid {
		return
	}

	club, clubErr := q.GetClubByID(ctx, booking.ClubID)
	court, courtErr := q.GetCourtByID(ctx, booking.CourtID)
	if clubErr != nil || courtErr != nil {
		logger.Warn().Int64("booking_id", booking.ID).Msg("Failed to load club or court for cancellation email")
		return
	}

	date, timeRange := email.FormatDateTimeRange(booking.SlotStart, booking.SlotEnd, slots.Zone())
	message := email.BuildBookingCancellation(email.CancellationDetails{
		ClubName:  club.Name,
		CourtName: court.Name,
		Date:      date,
		TimeRange: timeRange,
	})
	email.SendPlayerEmail(sender, booking.PlayerEmail.String, message, logger)
}

func loadQueries() *store.Queries {
	return queries
}
