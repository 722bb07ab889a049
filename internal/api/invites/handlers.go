// internal/api/invites/handlers.go
package invites

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/padelhq/courtbook/internal/api/apiutil"
	"github.com/padelhq/courtbook/internal/api/authz"
	appdb "github.com/padelhq/courtbook/internal/db"
	"github.com/padelhq/courtbook/internal/db/store"
)

var (
	queries  *store.Queries
	database *appdb.DB
	initOnce sync.Once
)

const (
	inviteQueryTimeout    = 5 * time.Second
	defaultInviteValidity = 7 * 24 * time.Hour
)

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(db *appdb.DB) {
	if db == nil {
		return
	}
	initOnce.Do(func() {
		database = db
		queries = db.Queries
	})
}

type createInviteRequest struct {
	ClubID        int64  `json:"clubId"`
	Email         string `json:"email,omitempty"`
	ExpiresInDays int    `json:"expiresInDays,omitempty"`
}

type redeemInviteRequest struct {
	Token string `json:"token"`
	Email string `json:"email,omitempty"`
}

// POST /api/v1/invites
func HandleInviteCreate(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	q := loadQueries()
	if q == nil {
		logger.Error().Msg("Database queries not initialized")
		apiutil.WriteError(w, http.StatusInternalServerError, apiutil.CodeInternal, "Internal Server Error")
		return
	}

	var req createInviteRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, apiutil.CodeValidation, err.Error())
		return
	}
	if req.ClubID <= 0 {
		apiutil.WriteError(w, http.StatusBadRequest, apiutil.CodeValidation, "clubId must be a positive integer")
		return
	}
	if req.ExpiresInDays < 0 {
		apiutil.WriteError(w, http.StatusBadRequest, apiutil.CodeValidation, "expiresInDays must be 0 or greater")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), inviteQueryTimeout)
	defer cancel()

	if !requireStaff(ctx, w, q, req.ClubID, logger) {
		return
	}

	validity := defaultInviteValidity
	if req.ExpiresInDays > 0 {
		validity = time.Duration(req.ExpiresInDays) * 24 * time.Hour
	}

	invite, err := q.CreateClubInvite(ctx, store.CreateClubInviteParams{
		ClubID:    req.ClubID,
		Token:     uuid.New().String(),
		Email:     apiutil.ToNullString(strings.TrimSpace(req.Email)),
		ExpiresAt: time.Now().Add(validity),
	})
	if err != nil {
		if apiutil.IsForeignKeyViolation(err) {
			apiutil.WriteError(w, http.StatusNotFound, apiutil.CodeNotFound, "Club not found")
			return
		}
		logger.Error().Err(err).Int64("club_id", req.ClubID).Msg("Failed to create invite")
		apiutil.WriteError(w, http.StatusInternalServerError, apiutil.CodeInternal, "Failed to create invite")
		return
	}

	logger.Info().Int64("invite_id", invite.ID).Int64("club_id", invite.ClubID).Msg("Club invite created")

	if err := apiutil.WriteJSON(w, http.StatusCreated, map[string]any{"invite": invite}); err != nil {
		logger.Error().Err(err).Int64("invite_id", invite.ID).Msg("Failed to write invite response")
	}
}

// GET /api/v1/invites/validate?token=...
func HandleInviteValidate(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	q := loadQueries()
	if q == nil {
		logger.Error().Msg("Database queries not initialized")
		apiutil.WriteError(w, http.StatusInternalServerError, apiutil.CodeInternal, "Internal Server Error")
		return
	}

	token := strings.TrimSpace(r.URL.Query().Get("token"))
	if token == "" {
		apiutil.WriteError(w, http.StatusBadRequest, apiutil.CodeValidation, "token is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), inviteQueryTimeout)
	defer cancel()

	invite, err := q.GetClubInviteByToken(ctx, token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			apiutil.WriteError(w, http.StatusNotFound, apiutil.CodeInviteInvalid, "Invite not found")
			return
		}
		logger.Error().Err(err).Msg("Failed to load invite")
		apiutil.WriteError(w, http.StatusInternalServerError, apiutil.CodeInternal, "Failed to load invite")
		return
	}

	valid := !invite.UsedAt.Valid && invite.ExpiresAt.After(time.Now())
	response := map[string]any{
		"valid":   valid,
		"club_id": invite.ClubID,
		"used":    invite.UsedAt.Valid,
		"expired": !invite.ExpiresAt.After(time.Now()),
	}
	if err := apiutil.WriteJSON(w, http.StatusOK, response); err != nil {
		logger.Error().Err(err).Msg("Failed to write invite validation response")
	}
}

// POST /api/v1/invites/redeem
func HandleInviteRedeem(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	q := loadQueries()
	db := database
	if q == nil || db == nil {
		logger.Error().Msg("Database queries not initialized")
		apiutil.WriteError(w, http.StatusInternalServerError, apiutil.CodeInternal, "Internal Server Error")
		return
	}

	session := authz.SessionFromContext(r.Context())
	if session == nil {
		apiutil.WriteError(w, http.StatusUnauthorized, apiutil.CodeStaffOnly, "Authentication required")
		return
	}

	var req redeemInviteRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, apiutil.CodeValidation, err.Error())
		return
	}
	if strings.TrimSpace(req.Token) == "" {
		apiutil.WriteError(w, http.StatusBadRequest, apiutil.CodeValidation, "token is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), inviteQueryTimeout)
	defer cancel()

	// The redeem UPDATE and the staff insert commit together: an invite is
	// never burned without the membership it grants.
	var redeemed store.ClubInvite
	err := db.RunInTx(ctx, func(txdb *appdb.DB) error {
		qtx := txdb.Queries

		invite, err := qtx.RedeemClubInvite(ctx, store.RedeemClubInviteParams{
			Token:  strings.TrimSpace(req.Token),
			UsedBy: session.UserID,
			Now:    time.Now(),
		})
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apiutil.HandlerError{
					Status: http.StatusConflict, Code: apiutil.CodeInviteInvalid,
					Message: "Invite is invalid, expired, or already used", Err: err}
			}
			return err
		}

		email := strings.TrimSpace(req.Email)
		if email == "" && invite.Email.Valid {
			email = invite.Email.String
		}
		if err := qtx.AddClubStaff(ctx, store.AddClubStaffParams{
			ClubID: invite.ClubID,
			UserID: session.UserID,
			Email:  email,
			Role:   "staff",
		}); err != nil {
			return err
		}

		redeemed = invite
		return nil
	})
	if err != nil {
		var herr apiutil.HandlerError
		if errors.As(err, &herr) {
			apiutil.WriteError(w, herr.Status, herr.Code, herr.Message)
			return
		}
		logger.Error().Err(err).Msg("Failed to redeem invite")
		apiutil.WriteError(w, http.StatusInternalServerError, apiutil.CodeInternal, "Failed to redeem invite")
		return
	}

	logger.Info().
		Int64("invite_id", redeemed.ID).
		Int64("club_id", redeemed.ClubID).
		Int64("user_id", session.UserID).
		Msg("Club invite redeemed")

	response := map[string]any{
		"club_id": redeemed.ClubID,
		"user_id": session.UserID,
		"role":    "staff",
	}
	if err := apiutil.WriteJSON(w, http.StatusOK, response); err != nil {
		logger.Error().Err(err).Msg("Failed to write redeem response")
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
