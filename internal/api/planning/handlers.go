// internal/api/planning/handlers.go
package planning

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/padelhq/courtbook/internal/api/apiutil"
	"github.com/padelhq/courtbook/internal/api/authz"
	appdb "github.com/padelhq/courtbook/internal/db"
	"github.com/padelhq/courtbook/internal/db/store"
	"github.com/padelhq/courtbook/internal/slots"
)

var (
	queries     *store.Queries
	slotMinutes int
	initOnce    sync.Once
)

const planningQueryTimeout = 10 * time.Second

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

type courtPlanning struct {
	CourtID       int64       `json:"court_id"`
	CourtName     string      `json:"court_name"`
	Slots         []slotEntry `json:"slots"`
	FreeSlots     int         `json:"freeSlots"`
	ReservedSlots int         `json:"reservedSlots"`
}

type dayPlanning struct {
	Date   string          `json:"date"`
	Courts []courtPlanning `json:"courts"`
}

type planningMeta struct {
	TotalSlots    int `json:"totalSlots"`
	FreeSlots     int `json:"freeSlots"`
	ReservedSlots int `json:"reservedSlots"`
}

type planningResponse struct {
	ClubID int64         `json:"club_id"`
	View   string        `json:"view"`
	Days   []dayPlanning `json:"days"`
	Meta   planningMeta  `json:"meta"`
	Debug  *struct {
		BookingsFetchFailed bool `json:"bookingsFetchFailed"`
	} `json:"debug,omitempty"`
}

// GET /api/v1/club/planning?club_id=...&date=YYYY-MM-DD&view=day|week
func HandlePlanning(w http.ResponseWriter, r *http.Request) {
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

	view := strings.TrimSpace(r.URL.Query().Get("view"))
	if view == "" {
		view = "day"
	}
	if view != "day" && view != "week" {
		apiutil.WriteError(w, http.StatusBadRequest, apiutil.CodeValidation, "view must be day or week")
		return
	}

	day, err := slots.ParseDay(r.URL.Query().Get("date"))
	if err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, apiutil.CodeInvalidDate, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), planningQueryTimeout)
	defer cancel()

	if err := authz.RequireClubStaff(ctx, q, clubID); err != nil {
		switch {
		case errors.Is(err, authz.ErrUnauthenticated):
			apiutil.WriteError(w, http.StatusUnauthorized, apiutil.CodeStaffOnly, "Authentication required")
		case errors.Is(err, authz.ErrForbidden):
			apiutil.WriteError(w, http.StatusForbidden, apiutil.CodeStaffOnly, "Club staff only")
		default:
			logger.Error().Err(err).Int64("club_id", clubID).Msg("Failed to authorize planning request")
			apiutil.WriteError(w, http.StatusInternalServerError, apiutil.CodeInternal, "Failed to authorize request")
		}
		return
	}

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

	courts, err := q.ListActiveCourtsByClub(ctx, clubID)
	if err != nil {
		logger.Error().Err(err).Int64("club_id", clubID).Msg("Failed to load courts")
		apiutil.WriteError(w, http.StatusInternalServerError, apiutil.CodeInternal, "Failed to load courts")
		return
	}

	days := 1
	if view == "week" {
		days = 7
	}

	response := planningResponse{ClubID: clubID, View: view}
	fetchFailed := false

	for offset := 0; offset < days; offset++ {
		current := day.AddDate(0, 0, offset)
		entry := dayPlanning{Date: current.Format("2006-01-02")}

		for _, court := range courts {
			grid, err := slots.Generate(clubID, court.ID, current, int(club.OpeningHour), int(club.ClosingHour), slotMinutes)
			if err != nil {
				logger.Error().Err(err).Int64("court_id", court.ID).Msg("Failed to generate slot grid")
				apiutil.WriteError(w, http.StatusInternalServerError, apiutil.CodeInternal, "Failed to generate slots")
				return
			}
			if len(grid) == 0 {
				continue
			}

			bookings, err := q.ListActiveBookingsForCourt(ctx, store.ListActiveBookingsForCourtParams{
				CourtID: court.ID,
				From:    grid[0].Start,
				To:      grid[len(grid)-1].End,
			})
			if err != nil {
				logger.Warn().Err(err).Int64("court_id", court.ID).Msg("Bookings fetch failed for planning, showing optimistic view")
				fetchFailed = true
				bookings = nil
			}

			reconciled := slots.Reconcile(grid, bookings)
			free, reserved := slots.Counts(reconciled)

			courtEntry := courtPlanning{
				CourtID:       court.ID,
				CourtName:     court.Name,
				Slots:         toSlotEntries(reconciled),
				FreeSlots:     free,
				ReservedSlots: reserved,
			}
			entry.Courts = append(entry.Courts, courtEntry)

			response.Meta.TotalSlots += len(reconciled)
			response.Meta.FreeSlots += free
			response.Meta.ReservedSlots += reserved
		}

		response.Days = append(response.Days, entry)
	}

	if fetchFailed {
		response.Debug = &struct {
			BookingsFetchFailed bool `json:"bookingsFetchFailed"`
		}{BookingsFetchFailed: true}
	}

	if err := apiutil.WriteJSON(w, http.StatusOK, response); err != nil {
		logger.Error().Err(err).Int64("club_id", clubID).Msg("Failed to write planning response")
	}
}

func toSlotEntries(view []slots.SlotAvailability) []slotEntry {
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
	return entries
}

func loadQueries() *store.Queries {
	return queries
}
