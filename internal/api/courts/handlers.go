// internal/api/courts/handlers.go
package courts

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"
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

const courtsQueryTimeout = 5 * time.Second

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(q *store.Queries) {
	if q == nil {
		return
	}
	initOnce.Do(func() {
		queries = q
	})
}

type createCourtRequest struct {
	ClubID     int64  `json:"clubId"`
	Name       string `json:"name"`
	PriceCents int64  `json:"priceCents"`
}

type updateCourtRequest struct {
	Name       string `json:"name"`
	PriceCents int64  `json:"priceCents"`
	Active     bool   `json:"active"`
}

// GET /api/v1/courts?club_id=...
func HandleCourtsList(w http.ResponseWriter, r *http.Request) {
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

	ctx, cancel := context.WithTimeout(r.Context(), courtsQueryTimeout)
	defer cancel()

	courts, err := q.ListCourtsByClub(ctx, clubID)
	if err != nil {
		logger.Error().Err(err).Int64("club_id", clubID).Msg("Failed to list courts")
		apiutil.WriteError(w, http.StatusInternalServerError, apiutil.CodeInternal, "Failed to list courts")
		return
	}

	if err := apiutil.WriteJSON(w, http.StatusOK, map[string]any{"courts": courts}); err != nil {
		logger.Error().Err(err).Int64("club_id", clubID).Msg("Failed to write courts response")
	}
}

// POST /api/v1/courts
func HandleCourtCreate(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	q := loadQueries()
	if q == nil {
		logger.Error().Msg("Database queries not initialized")
		apiutil.WriteError(w, http.StatusInternalServerError, apiutil.CodeInternal, "Internal Server Error")
		return
	}

	var req createCourtRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, apiutil.CodeValidation, err.Error())
		return
	}
	if req.ClubID <= 0 {
		apiutil.WriteError(w, http.StatusBadRequest, apiutil.CodeValidation, "clubId must be a positive integer")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		apiutil.WriteError(w, http.StatusBadRequest, apiutil.CodeValidation, "name is required")
		return
	}
	if req.PriceCents < 0 {
		apiutil.WriteError(w, http.StatusBadRequest, apiutil.CodeValidation, "priceCents must be 0 or greater")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), courtsQueryTimeout)
	defer cancel()

	if !requireStaff(ctx, w, q, req.ClubID, logger) {
		return
	}

	court, err := q.CreateCourt(ctx, store.CreateCourtParams{
		ClubID:     req.ClubID,
		Name:       strings.TrimSpace(req.Name),
		PriceCents: req.PriceCents,
	})
	if err != nil {
		if apiutil.IsUniqueConstraintViolation(err) {
			apiutil.WriteError(w, http.StatusConflict, apiutil.CodeValidation, "A court with this name already exists")
			return
		}
		if apiutil.IsForeignKeyViolation(err) {
			apiutil.WriteError(w, http.StatusNotFound, apiutil.CodeNotFound, "Club not found")
			return
		}
		logger.Error().Err(err).Int64("club_id", req.ClubID).Msg("Failed to create court")
		apiutil.WriteError(w, http.StatusInternalServerError, apiutil.CodeInternal, "Failed to create court")
		return
	}

	logger.Info().Int64("court_id", court.ID).Int64("club_id", court.ClubID).Msg("Court created")

	if err := apiutil.WriteJSON(w, http.StatusCreated, map[string]any{"court": court}); err != nil {
		logger.Error().Err(err).Int64("court_id", court.ID).Msg("Failed to write court response")
	}
}

// PUT /api/v1/courts/{id}
func HandleCourtUpdate(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	q := loadQueries()
	if q == nil {
		logger.Error().Msg("Database queries not initialized")
		apiutil.WriteError(w, http.StatusInternalServerError, apiutil.CodeInternal, "Internal Server Error")
		return
	}

	courtID, err := apiutil.IDFromPath(r, "id")
	if err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, apiutil.CodeValidation, "Invalid court ID")
		return
	}

	var req updateCourtRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, apiutil.CodeValidation, err.Error())
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		apiutil.WriteError(w, http.StatusBadRequest, apiutil.CodeValidation, "name is required")
		return
	}
	if req.PriceCents < 0 {
		apiutil.WriteError(w, http.StatusBadRequest, apiutil.CodeValidation, "priceCents must be 0 or greater")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), courtsQueryTimeout)
	defer cancel()

	existing, err := q.GetCourtByID(ctx, courtID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			apiutil.WriteError(w, http.StatusNotFound, apiutil.CodeNotFound, "Court not found")
			return
		}
		logger.Error().Err(err).Int64("court_id", courtID).Msg("Failed to fetch court")
		apiutil.WriteError(w, http.StatusInternalServerError, apiutil.CodeInternal, "Failed to fetch court")
		return
	}

	if !requireStaff(ctx, w, q, existing.ClubID, logger) {
		return
	}

	court, err := q.UpdateCourt(ctx, store.UpdateCourtParams{
		ID:         courtID,
		Name:       strings.TrimSpace(req.Name),
		PriceCents: req.PriceCents,
		Active:     req.Active,
	})
	if err != nil {
		if apiutil.IsUniqueConstraintViolation(err) {
			apiutil.WriteError(w, http.StatusConflict, apiutil.CodeValidation, "A court with this name already exists")
			return
		}
		logger.Error().Err(err).Int64("court_id", courtID).Msg("Failed to update court")
		apiutil.WriteError(w, http.StatusInternalServerError, apiutil.CodeInternal, "Failed to update court")
		return
	}

	if err := apiutil.WriteJSON(w, http.StatusOK, map[string]any{"court": court}); err != nil {
		logger.Error().Err(err).Int64("court_id", court.ID).Msg("Failed to write court response")
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
