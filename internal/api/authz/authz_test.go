package authz_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/padelhq/courtbook/internal/api/authz"
	"github.com/padelhq/courtbook/internal/db/store"
	"github.com/padelhq/courtbook/internal/testutil"
)

func TestSessionFromRequest(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   int64
	}{
		{name: "valid id", header: "42", want: 42},
		{name: "missing header", header: "", want: 0},
		{name: "not a number", header: "abc", want: 0},
		{name: "zero", header: "0", want: 0},
		{name: "negative", header: "-5", want: 0},
		{name: "whitespace padded", header: "  42  ", want: 42},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("X-User-ID", tt.header)
			}
			session := authz.SessionFromRequest(req)
			if tt.want == 0 {
				if session != nil {
					t.Errorf("expected no session, got %+v", session)
				}
				return
			}
			if session == nil || session.UserID != tt.want {
				t.Errorf("expected user id %d, got %+v", tt.want, session)
			}
		})
	}
}

func TestSessionContextRoundTrip(t *testing.T) {
	ctx := context.Background()
	if got := authz.SessionFromContext(ctx); got != nil {
		t.Errorf("empty context must yield no session, got %+v", got)
	}

	ctx = authz.ContextWithSession(ctx, &authz.Session{UserID: 42})
	if got := authz.SessionFromContext(ctx); got == nil || got.UserID != 42 {
		t.Errorf("expected session with user 42, got %+v", got)
	}
}

func TestRequireClubStaff(t *testing.T) {
	database := testutil.NewTestDB(t)
	ctx := context.Background()

	club, err := database.Queries.CreateClub(ctx, store.CreateClubParams{
		Name: "Padel Central", City: "Paris", OpeningHour: 9, ClosingHour: 23,
	})
	if err != nil {
		t.Fatalf("create club: %v", err)
	}
	if err := database.Queries.AddClubStaff(ctx, store.AddClubStaffParams{
		ClubID: club.ID, UserID: 7, Email: "manager@club.example", Role: "manager",
	}); err != nil {
		t.Fatalf("add staff: %v", err)
	}

	if err := authz.RequireClubStaff(ctx, database.Queries, club.ID); !errors.Is(err, authz.ErrUnauthenticated) {
		t.Errorf("no session: expected ErrUnauthenticated, got %v", err)
	}

	memberCtx := authz.ContextWithSession(ctx, &authz.Session{UserID: 7})
	if err := authz.RequireClubStaff(memberCtx, database.Queries, club.ID); err != nil {
		t.Errorf("staff member: expected nil, got %v", err)
	}

	strangerCtx := authz.ContextWithSession(ctx, &authz.Session{UserID: 999})
	if err := authz.RequireClubStaff(strangerCtx, database.Queries, club.ID); !errors.Is(err, authz.ErrForbidden) {
		t.Errorf("stranger: expected ErrForbidden, got %v", err)
	}
}
