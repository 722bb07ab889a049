// Package authz carries the request session and club staff checks. Identity
// itself comes from the external auth layer; this service only resolves the
// forwarded user id into an explicit session object on the request context.
package authz

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/padelhq/courtbook/internal/db/store"
)

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
)

// Session is the per-request identity resolved from the auth proxy.
type Session struct {
	UserID int64
}

type contextKey struct{ name string }

var sessionKey = contextKey{"session"}

func ContextWithSession(ctx context.Context, session *Session) context.Context {
	return context.WithValue(ctx, sessionKey, session)
}

func SessionFromContext(ctx context.Context) *Session {
	session, _ := ctx.Value(sessionKey).(*Session)
	return session
}

// SessionFromRequest reads the user id the auth proxy forwards. A missing or
// malformed header yields no session, not an error; handlers that need
// identity enforce it themselves.
func SessionFromRequest(r *http.Request) *Session {
	raw := strings.TrimSpace(r.Header.Get("X-User-ID"))
	if raw == "" {
		return nil
	}
	userID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || userID <= 0 {
		return nil
	}
	return &Session{UserID: userID}
}

// RequireClubStaff checks that the current session belongs to staff of the
// given club. Membership is a database lookup, the local analog of the
// original is_club_staff check.
func RequireClubStaff(ctx context.Context, q *store.Queries, clubID int64) error {
	session := SessionFromContext(ctx)
	if session == nil {
		return ErrUnauthenticated
	}
	isStaff, err := q.IsClubStaff(ctx, store.IsClubStaffParams{ClubID: clubID, UserID: session.UserID})
	if err != nil {
		return err
	}
	if !isStaff {
		return ErrForbidden
	}
	return nil
}
