// internal/api/clubs/handlers.go
package clubs

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/padelhq/courtbook/internal/api/apiutil"
	"github.com/padelhq/courtbook/internal/api/authz"
	"github.com/padelhq/courtbook/internal/db/store"
)

var (
	queries  *store.Queries
	initOnce sync.Once
)

const clubsQueryTimeout = 5 * time.Second

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(q *store.Queries) {
	if q == nil {
		return
	}
	initOnce.Do(func() {
		queries = q
	})
}

type updateHoursRequest struct {
	OpeningHour int64 `json:"openingHour"`
	ClosingHour int64 `json:"closingHour"`
}

// GET /api/v1/clubs?city=...
func HandleClubsList(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	q := loadQueries()
	if q == nil {
		logger.Error().Msg("Database queries not initialized")
		apiutil.WriteError(w, http.StatusInternalServerError, apiutil.CodeInternal, "Internal Server Error")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), clubsQueryTimeout)
	defer cancel()

	clubs, err := q.ListClubs(ctx, r.URL.Query().Get("city"))
	if err != nil {
		logger.Error().Err(err).Msg("Failed to list clubs")
		apiutil.WriteError(w, http.StatusInternalServerError, apiutil.CodeInternal, "Failed to list clubs")
		return
	}

	if err := apiutil.WriteJSON(w, http.StatusOK, map[string]any{"clubs": clubs}); err != nil {
		logger.Error().Err(err).Msg("Failed to write clubs response")
	}
}

// GET /api/v1/clubs/{id}
func HandleClubGet(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	q := loadQueries()
	if q == nil {
		logger.Error().Msg("Database queries not initialized")
		apiutil.WriteError(w, http.StatusInternalServerError, apiutil.CodeInternal, "Internal Server Error")
		return
	}

	clubID, err := apiutil.IDFromPath(r, "id")
	if err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, apiutil.CodeValidation, "Invalid club ID")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), clubsQueryTimeout)
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

	if err := apiutil.WriteJSON(w, http.StatusOK, map[string]any{"club": club}); err != nil {
		logger.Error().Err(err).Int64("club_id", clubID).Msg("Failed to write club response")
	}
}

// PUT /api/v1/clubs/{id}/hours
func HandleClubHoursUpdate(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	q := loadQueries()
	if q == nil {
		logger.Error().Msg("Database queries not initialized")
		apiutil.WriteError(w, http.StatusInternalServerError, apiutil.CodeInternal, "Internal Server Error")
		return
	}

	clubID, err := apiutil.IDFromPath(r, "id")
	if err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, apiutil.CodeValidation, "Invalid club ID")
		return
	}

	var req updateHoursRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, apiutil.CodeValidation, err.Error())
		return
	}
	if req.OpeningHour < 0 || req.ClosingHour > 24 || req.OpeningHour >= req.ClosingHour {
		apiutil.WriteError(w, http.StatusBadRequest, apiutil.CodeValidation, "openingHour must be before closingHour within 0-24")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), clubsQueryTimeout)
	defer cancel()

	if !requireStaff(ctx, w, q, clubID, logger) {
		return
	}

	club, err := q.UpdateClubHours(ctx, store.UpdateClubHoursParams{
		ID:          clubID,
		OpeningHour: req.OpeningHour,
		ClosingHour: req.ClosingHour,
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			apiutil.WriteError(w, http.StatusNotFound, apiutil.CodeNotFound, "Club not found")
			return
		}
		logger.Error().Err(err).Int64("club_id", clubID).Msg("Failed to update club hours")
		apiutil.WriteError(w, http.StatusInternalServerError, apiutil.CodeInternal, "Failed to update club hours")
		return
	}

	logger.Info().
		Int64("club_id", clubID).
		Int64("opening_hour", club.OpeningHour).
		Int64("closing_hour", club.ClosingHour).
		Msg("Club hours updated")

	if err := apiutil.WriteJSON(w, http.StatusOK, map[string]any{"club": club}); err != nil {
		logger.Error().Err(err).Int64("club_id", clubID).Msg("Failed to write club response")
	}
}

func requireStaff(ctx context.Context, w http.ResponseWriter, q *store.Queries, clubID int64, logger *zerolog.Logger) bool {
	if err := authz.RequireClubStaff(ctx, q, clubID); err != nil {
		switch {
		case errors.Is(err, authz.ErrUnauthenticated):
			apiutil.WriteError(w, http.StatusUnauthorized, apiutil.CodeStaffOnly, "Authentication required")
		case errors.Is(err, authz.ErrForbidden):
			apiutil.WriteError(w, http.StatusForbidden, apiutil.CodeStaffOnly, "Club staff only")
		default:
			logger.Error().Err(err).Int64("club_id", clubID).Msg("Failed to authorize request")
			apiutil.WriteError(w, http.StatusInternalServerError, apiutil.CodeInternal, "Failed to authorize request")
		}
		return false
	}
	return true
}

func loadQueries() *store.Queries {
	return queries
}
