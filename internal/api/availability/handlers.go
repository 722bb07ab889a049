// internal/api/availability/handlers.go
package availability

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/padelhq/courtbook/internal/api/apiutil"
	appdb "github.com/padelhq/courtbook/internal/db"
	"github.com/padelhq/courtbook/internal/db/store"
	"github.com/padelhq/courtbook/internal/slots"
)

var (
	queries     *store.Queries
	slotMinutes int
	initOnce    sync.Once
)

const availabilityQueryTimeout = 5 * time.Second

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(database *appdb.DB, configuredSlotMinutes int) {
	if database == nil {
		return
	}
	initOnce.Do(func() {
		queries = database.Queries
		slotMinutes = configuredSlotMinutes
	})
}

type slotEntry struct {
	SlotID    string `json:"slot_id"`
	SlotIndex int    `json:"slot_index"`
	StartAt   string `json:"start_at"`
	EndAt     string `json:"end_at"`
	Label     string `json:"label"`
	Status    string `json:"status"`
	BookingID *int64 `json:"booking_id,omitempty"`
}

type availabilityMeta struct {
	TotalSlots    int `json:"totalSlots"`
	FreeSlots     int `json:"freeSlots"`
	ReservedSlots int `json:"reservedSlots"`
	SlotDuration  int `json:"slotDuration"`
	OpeningHour   int `json:"openingHour"`
	ClosingHour   int `json:"closingHour"`
}

type availabilityDebug struct {
	BookingsFetchFailed bool `json:"bookingsFetchFailed"`
}

type availabilityResponse struct {
	Slots []slotEntry        `json:"slots"`
	Meta  availabilityMeta   `json:"meta"`
	Debug *availabilityDebug `json:"debug,omitempty"`
}

// GET /api/v1/availability?club_id=...&court_id=...&date=YYYY-MM-DD
func HandleAvailability(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	q := loadQueries()
	if q == nil {
		logger.Error().Msg("Database queries not initialized")
		apiutil.WriteError(w, http.StatusInternalServerError, apiutil.CodeInternal, "Internal Server Error")
		return
	}

	clubID, err := apiutil.ClubIDFromQuery(r)
	if err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, apiutil.CodeValidation, err.Error())
		return
	}
	courtID, err := apiutil.ParsePositiveInt64Field(r.URL.Query().Get("court_id"), "court_id")
	if err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, apiutil.CodeValidation, err.Error())
		return
	}
	day, err := slots.ParseDay(r.URL.Query().Get("date"))
	if err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, apiutil.CodeInvalidDate, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), availabilityQueryTimeout)
	defer cancel()

	club, err := q.GetClubByID(ctx, clubID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			apiutil.WriteError(w, http.StatusNotFound, apiutil.CodeNotFound, "Club not found")
			return
		}
		logger.Error().Err(err).Int64("club_id", clubID).Msg("Failed to load club")
		apiutil.WriteError(w, http.StatusInternalServerError, apiutil.CodeInternal, "Failed to load club")
		return
	}
	if !club.Active {
		apiutil.WriteError(w, http.StatusNotFound, apiutil.CodeNotFound, "Club not found")
		return
	}

	court, err := q.GetCourtByID(ctx, courtID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			apiutil.WriteError(w, http.StatusNotFound, apiutil.CodeNotFound, "Court not found")
			return
		}
		logger.Error().Err(err).Int64("court_id", courtID).Msg("Failed to load court")
		apiutil.WriteError(w, http.StatusInternalServerError, apiutil.CodeInternal, "Failed to load court")
		return
	}
	if court.ClubID != clubID || !court.Active {
		apiutil.WriteError(w, http.StatusNotFound, apiutil.CodeNotFound, "Court not found")
		return
	}

	grid, err := slots.Generate(clubID, courtID, day, int(club.OpeningHour), int(club.ClosingHour), slotMinutes)
	if err != nil {
		logger.Error().Err(err).Int64("club_id", clubID).Msg("Failed to generate slot grid")
		apiutil.WriteError(w, http.StatusInternalServerError, apiutil.CodeInternal, "Failed to generate slots")
		return
	}

	// A failed booking fetch degrades to an optimistic all-free view with a
	// visible warning flag, it never fails the request.
	fetchFailed := false
	bookings, err := q.ListActiveBookingsForCourt(ctx, store.ListActiveBookingsForCourtParams{
		CourtID: courtID,
		From:    dayStart(grid),
		To:      dayEnd(grid),
	})
	if err != nil {
		logger.Warn().Err(err).Int64("court_id", courtID).Msg("Bookings fetch failed, returning optimistic availability")
		fetchFailed = true
		bookings = nil
	}

	view := slots.Reconcile(grid, bookings)
	response := buildResponse(view, club, fetchFailed)

	if err := apiutil.WriteJSON(w, http.StatusOK, response); err != nil {
		logger.Error().Err(err).Int64("court_id", courtID).Msg("Failed to write availability response")
	}
}

func buildResponse(view []slots.SlotAvailability, club store.Club, fetchFailed bool) availabilityResponse {
	entries := make([]slotEntry, 0, len(view))
	for _, entry := range view {
		entries = append(entries, slotEntry{
			SlotID:    entry.Key,
			SlotIndex: entry.Index,
			StartAt:   entry.Start.Format(time.RFC3339),
			EndAt:     entry.End.Format(time.RFC3339),
			Label:     entry.Label,
			Status:    entry.Status,
			BookingID: entry.BookingID,
		})
	}

	free, reserved := slots.Counts(view)
	response := availabilityResponse{
		Slots: entries,
		Meta: availabilityMeta{
			TotalSlots:    len(view),
			FreeSlots:     free,
			ReservedSlots: reserved,
			SlotDuration:  slotMinutes,
			OpeningHour:   int(club.OpeningHour),
			ClosingHour:   int(club.ClosingHour),
		},
	}
	if fetchFailed {
		response.Debug = &availabilityDebug{BookingsFetchFailed: true}
	}
	return response
}

func dayStart(grid []slots.Slot) time.Time {
	if len(grid) == 0 {
		return time.Time{}
	}
	return grid[0].Start
}

func dayEnd(grid []slots.Slot) time.Time {
	if len(grid) == 0 {
		return time.Time{}
	}
	return grid[len(grid)-1].End
}

func loadQueries() *store.Queries {
	return queries
}
