package bookings

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/padelhq/courtbook/internal/api/apiutil"
	"github.com/padelhq/courtbook/internal/api/authz"
	appdb "github.com/padelhq/courtbook/internal/db"
	"github.com/padelhq/courtbook/internal/db/store"
	"github.com/padelhq/courtbook/internal/slots"
	"github.com/padelhq/courtbook/internal/testutil"
)

func setupTest(t *testing.T) (*appdb.DB, store.Club, store.Court) {
	t.Helper()

	database := testutil.NewTestDB(t)

	// Reset package state so each test wires its own database.
	queries = nil
	limiter = nil
	sender = nil
	staffSender = ""
	slotMinutes = 0
	initOnce = sync.Once{}
	InitHandlers(Deps{DB: database, SlotMinutes: 90})

	ctx := context.Background()
	club, err := database.Queries.CreateClub(ctx, store.CreateClubParams{
		Name: "Padel Central", City: "Paris", OpeningHour: 9, ClosingHour: 23,
	})
	if err != nil {
		t.Fatalf("create club: %v", err)
	}
	court, err := database.Queries.CreateCourt(ctx, store.CreateCourtParams{
		ClubID: club.ID, Name: "Court 1", PriceCents: 4000,
	})
	if err != nil {
		t.Fatalf("create court: %v", err)
	}
	return database, club, court
}

// futureDate returns a day far enough ahead that every slot on it is bookable.
func futureDate() string {
	return time.Now().In(slots.Zone()).AddDate(0, 0, 7).Format("2006-01-02")
}

func createPayload(clubID, courtID, userID int64, date string, slotID int) string {
	return fmt.Sprintf(`{"clubId":%d,"courtId":%d,"userId":%d,"bookingDate":%q,"slotId":%d}`,
		clubID, courtID, userID, date, slotID)
}

func postBookingCreate(t *testing.T, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	HandleBookingCreate(w, req)
	return w
}

func postBookingCancel(t *testing.T, bookingID int64, cancelledBy int64) *httptest.ResponseRecorder {
	t.Helper()
	body := fmt.Sprintf(`{"cancelledBy":%d}`, cancelledBy)
	req := httptest.NewRequest(http.MethodPost,
		fmt.Sprintf("/api/v1/bookings/%d/cancel", bookingID), strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.SetPathValue("id", fmt.Sprintf("%d", bookingID))
	w := httptest.NewRecorder()
	HandleBookingCancel(w, req)
	return w
}

func decodeBooking(t *testing.T, w *httptest.ResponseRecorder) bookingResponse {
	t.Helper()
	var resp struct {
		Booking bookingResponse `json:"booking"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode booking response: %v", err)
	}
	return resp.Booking
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) apiutil.ErrorResponse {
	t.Helper()
	var resp apiutil.ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	return resp
}

func TestHandleBookingCreate(t *testing.T) {
	_, club, court := setupTest(t)

	w := postBookingCreate(t, createPayload(club.ID, court.ID, 42, futureDate(), 3))
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	booking := decodeBooking(t, w)
	if booking.Status != store.BookingStatusReserved {
		t.Errorf("expected status reserved, got %s", booking.Status)
	}
	if booking.ClubID != club.ID || booking.CourtID != court.ID || booking.UserID != 42 {
		t.Errorf("unexpected booking identity: %+v", booking)
	}
	if booking.CancelledAt != nil {
		t.Error("new booking must not carry cancelledAt")
	}
}

func TestHandleBookingCreateDuplicateSlot(t *testing.T) {
	_, club, court := setupTest(t)
	date := futureDate()

	if w := postBookingCreate(t, createPayload(club.ID, court.ID, 42, date, 3)); w.Code != http.StatusCreated {
		t.Fatalf("first booking failed: %d %s", w.Code, w.Body.String())
	}

	w := postBookingCreate(t, createPayload(club.ID, court.ID, 77, date, 3))
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate slot, got %d: %s", w.Code, w.Body.String())
	}
	if resp := decodeError(t, w); resp.Code != apiutil.CodeSlotConflict {
		t.Errorf("expected code %s, got %s", apiutil.CodeSlotConflict, resp.Code)
	}
}

func TestHandleBookingCreateConcurrentSameSlot(t *testing.T) {
	_, club, court := setupTest(t)
	date := futureDate()

	results := make(chan int, 2)
	var wg sync.WaitGroup
	for _, userID := range []int64{42, 77} {
		wg.Add(1)
		go func(uid int64) {
			defer wg.Done()
			w := postBookingCreate(t, createPayload(club.ID, court.ID, uid, date, 5))
			results <- w.Code
		}(userID)
	}
	wg.Wait()
	close(results)

	var created, conflicted int
	for code := range results {
		switch code {
		case http.StatusCreated:
			created++
		case http.StatusConflict:
			conflicted++
		default:
			t.Errorf("unexpected status %d", code)
		}
	}
	if created != 1 || conflicted != 1 {
		t.Errorf("expected exactly one winner and one conflict, got %d created / %d conflicted", created, conflicted)
	}
}

func TestHandleBookingCreateOtherCourtSameSlot(t *testing.T) {
	database, club, court := setupTest(t)
	date := futureDate()

	otherCourt, err := database.Queries.CreateCourt(context.Background(), store.CreateCourtParams{
		ClubID: club.ID, Name: "Court 2", PriceCents: 4000,
	})
	if err != nil {
		t.Fatalf("create court: %v", err)
	}

	if w := postBookingCreate(t, createPayload(club.ID, court.ID, 42, date, 3)); w.Code != http.StatusCreated {
		t.Fatalf("first booking failed: %d %s", w.Code, w.Body.String())
	}
	if w := postBookingCreate(t, createPayload(club.ID, otherCourt.ID, 42, date, 3)); w.Code != http.StatusCreated {
		t.Fatalf("same slot on another court must succeed: %d %s", w.Code, w.Body.String())
	}
}

func TestHandleBookingCreateValidation(t *testing.T) {
	_, club, court := setupTest(t)
	date := futureDate()

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantCode   string
	}{
		{
			name:       "malformed date",
			body:       createPayload(club.ID, court.ID, 42, "15-02-2026", 3),
			wantStatus: http.StatusBadRequest,
			wantCode:   apiutil.CodeInvalidDate,
		},
		{
			name:       "slot id zero",
			body:       createPayload(club.ID, court.ID, 42, date, 0),
			wantStatus: http.StatusBadRequest,
			wantCode:   apiutil.CodeInvalidSlot,
		},
		{
			name:       "slot id beyond grid",
			body:       createPayload(club.ID, court.ID, 42, date, 99),
			wantStatus: http.StatusBadRequest,
			wantCode:   apiutil.CodeInvalidSlot,
		},
		{
			name:       "missing user",
			body:       fmt.Sprintf(`{"clubId":%d,"courtId":%d,"bookingDate":%q,"slotId":3}`, club.ID, court.ID, date),
			wantStatus: http.StatusBadRequest,
			wantCode:   apiutil.CodeValidation,
		},
		{
			name:       "unknown field rejected",
			body:       fmt.Sprintf(`{"clubId":%d,"courtId":%d,"userId":42,"bookingDate":%q,"slotId":3,"extra":true}`, club.ID, court.ID, date),
			wantStatus: http.StatusBadRequest,
			wantCode:   apiutil.CodeValidation,
		},
		{
			name: "invalid phone",
			body: fmt.Sprintf(`{"clubId":%d,"courtId":%d,"userId":42,"bookingDate":%q,"slotId":3,"playerPhone":"not-a-phone"}`,
				club.ID, court.ID, date),
			wantStatus: http.StatusBadRequest,
			wantCode:   apiutil.CodeValidation,
		},
		{
			name:       "unknown court",
			body:       createPayload(club.ID, 9999, 42, date, 3),
			wantStatus: http.StatusNotFound,
			wantCode:   apiutil.CodeNotFound,
		},
		{
			name:       "unknown club",
			body:       createPayload(9999, court.ID, 42, date, 3),
			wantStatus: http.StatusNotFound,
			wantCode:   apiutil.CodeNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postBookingCreate(t, tt.body)
			if w.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d: %s", tt.wantStatus, w.Code, w.Body.String())
			}
			if resp := decodeError(t, w); resp.Code != tt.wantCode {
				t.Errorf("expected code %s, got %s", tt.wantCode, resp.Code)
			}
		})
	}
}

func TestHandleBookingCreatePastSlot(t *testing.T) {
	_, club, court := setupTest(t)

	yesterday := time.Now().In(slots.Zone()).AddDate(0, 0, -1).Format("2006-01-02")
	w := postBookingCreate(t, createPayload(club.ID, court.ID, 42, yesterday, 1))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for past slot, got %d: %s", w.Code, w.Body.String())
	}
	if resp := decodeError(t, w); resp.Code != apiutil.CodePastBooking {
		t.Errorf("expected code %s, got %s", apiutil.CodePastBooking, resp.Code)
	}
}

func TestHandleBookingCancelByOwner(t *testing.T) {
	_, club, court := setupTest(t)

	created := decodeBooking(t, postBookingCreate(t, createPayload(club.ID, court.ID, 42, futureDate(), 3)))

	w := postBookingCancel(t, created.ID, 42)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	cancelled := decodeBooking(t, w)
	if cancelled.Status != store.BookingStatusCancelled {
		t.Errorf("expected status cancelled, got %s", cancelled.Status)
	}
	if cancelled.CancelledAt == nil {
		t.Error("expected cancelledAt to be set")
	}
	if cancelled.CancelledBy == nil || *cancelled.CancelledBy != 42 {
		t.Errorf("expected cancelledBy 42, got %v", cancelled.CancelledBy)
	}
}

func TestHandleBookingCancelIdempotent(t *testing.T) {
	_, club, court := setupTest(t)

	created := decodeBooking(t, postBookingCreate(t, createPayload(club.ID, court.ID, 42, futureDate(), 3)))
	if w := postBookingCancel(t, created.ID, 42); w.Code != http.StatusOK {
		t.Fatalf("first cancel failed: %d %s", w.Code, w.Body.String())
	}

	w := postBookingCancel(t, created.ID, 42)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for second cancel, got %d: %s", w.Code, w.Body.String())
	}
	if resp := decodeError(t, w); resp.Code != apiutil.CodeAlreadyCancelled {
		t.Errorf("expected code %s, got %s", apiutil.CodeAlreadyCancelled, resp.Code)
	}
}

func TestHandleBookingCancelForbiddenForStranger(t *testing.T) {
	_, club, court := setupTest(t)

	created := decodeBooking(t, postBookingCreate(t, createPayload(club.ID, court.ID, 42, futureDate(), 3)))

	w := postBookingCancel(t, created.ID, 999)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d: %s", w.Code, w.Body.String())
	}
	if resp := decodeError(t, w); resp.Code != apiutil.CodeCancelForbidden {
		t.Errorf("expected code %s, got %s", apiutil.CodeCancelForbidden, resp.Code)
	}
}

func TestHandleBookingCancelByStaff(t *testing.T) {
	database, club, court := setupTest(t)

	if err := database.Queries.AddClubStaff(context.Background(), store.AddClubStaffParams{
		ClubID: club.ID, UserID: 7, Email: "manager@club.example", Role: "manager",
	}); err != nil {
		t.Fatalf("add staff: %v", err)
	}

	created := decodeBooking(t, postBookingCreate(t, createPayload(club.ID, court.ID, 42, futureDate(), 3)))

	w := postBookingCancel(t, created.ID, 7)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for staff cancel, got %d: %s", w.Code, w.Body.String())
	}
	cancelled := decodeBooking(t, w)
	if cancelled.CancelledBy == nil || *cancelled.CancelledBy != 7 {
		t.Errorf("expected cancelledBy 7, got %v", cancelled.CancelledBy)
	}
}

func TestHandleBookingCancelUnknownBooking(t *testing.T) {
	setupTest(t)

	w := postBookingCancel(t, 9999, 42)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", w.Code, w.Body.String())
	}
	if resp := decodeError(t, w); resp.Code != apiutil.CodeBookingNotFound {
		t.Errorf("expected code %s, got %s", apiutil.CodeBookingNotFound, resp.Code)
	}
}

func TestSlotRebookableAfterCancellation(t *testing.T) {
	_, club, court := setupTest(t)
	date := futureDate()

	created := decodeBooking(t, postBookingCreate(t, createPayload(club.ID, court.ID, 42, date, 3)))
	if w := postBookingCancel(t, created.ID, 42); w.Code != http.StatusOK {
		t.Fatalf("cancel failed: %d %s", w.Code, w.Body.String())
	}

	w := postBookingCreate(t, createPayload(club.ID, court.ID, 77, date, 3))
	if w.Code != http.StatusCreated {
		t.Fatalf("slot must be rebookable after cancellation, got %d: %s", w.Code, w.Body.String())
	}
}

func TestHandleBookingGet(t *testing.T) {
	_, club, court := setupTest(t)

	created := decodeBooking(t, postBookingCreate(t, createPayload(club.ID, court.ID, 42, futureDate(), 3)))

	get := func(t *testing.T, session *authz.Session) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/v1/bookings/%d", created.ID), nil)
		req.SetPathValue("id", fmt.Sprintf("%d", created.ID))
		if session != nil {
			req = req.WithContext(authz.ContextWithSession(req.Context(), session))
		}
		w := httptest.NewRecorder()
		HandleBookingGet(w, req)
		return w
	}

	if w := get(t, &authz.Session{UserID: 42}); w.Code != http.StatusOK {
		t.Errorf("owner fetch: expected 200, got %d", w.Code)
	}
	if w := get(t, &authz.Session{UserID: 999}); w.Code != http.StatusForbidden {
		t.Errorf("stranger fetch: expected 403, got %d", w.Code)
	}
	if w := get(t, nil); w.Code != http.StatusForbidden {
		t.Errorf("anonymous fetch: expected 403, got %d", w.Code)
	}
}
