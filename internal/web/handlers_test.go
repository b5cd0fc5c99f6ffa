package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tavolo/internal/bookingapi"
	"tavolo/internal/config"
	"tavolo/internal/models"
	"tavolo/internal/session"
	"tavolo/internal/web/rowstate"
)

// fakeAPI is an httptest stand-in for the remote booking API. Counters let
// tests assert which endpoints were (not) reached.
type fakeAPI struct {
	srv *httptest.Server

	bookings map[string]*models.Booking
	reasons  []models.CancellationReason

	cancelCalls atomic.Int64
	updateCalls atomic.Int64
	reasonsFail  bool
	bookingsFail bool
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()
	f := &fakeAPI{
		bookings: map[string]*models.Booking{},
		reasons: []models.CancellationReason{
			{ID: 1, Reason: "Customer request"},
			{ID: 2, Reason: "Restaurant closure"},
		},
	}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /AvailabilitySearch", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"available_slots": []models.Slot{
				{Time: "19:00:00", Available: true, MaxPartySize: 4, CurrentBookings: 2},
				{Time: "19:30:00", Available: false, MaxPartySize: 4, CurrentBookings: 4},
			},
		})
	})
	mux.HandleFunc("GET /Booking/{ref}", func(w http.ResponseWriter, r *http.Request) {
		b, ok := f.bookings[r.PathValue("ref")]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(map[string]string{"detail": "Booking not found"})
			return
		}
		_ = json.NewEncoder(w).Encode(b)
	})
	mux.HandleFunc("PATCH /Booking/{ref}", func(w http.ResponseWriter, r *http.Request) {
		f.updateCalls.Add(1)
		_ = json.NewEncoder(w).Encode(map[string]string{"updated_at": "2026-09-01T10:00:00Z"})
	})
	mux.HandleFunc("POST /Booking/{ref}/Cancel", func(w http.ResponseWriter, r *http.Request) {
		f.cancelCalls.Add(1)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"cancelled_at": "2026-09-01T10:00:00Z",
			"message":      "Booking cancelled",
		})
	})
	mux.HandleFunc("GET /CancellationReasons", func(w http.ResponseWriter, r *http.Request) {
		if f.reasonsFail {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(f.reasons)
	})
	mux.HandleFunc("GET /Bookings", func(w http.ResponseWriter, r *http.Request) {
		if f.bookingsFail {
			w.WriteHeader(http.StatusBadGateway)
			_ = json.NewEncoder(w).Encode(map[string]string{"detail": "Upstream booking system is down"})
			return
		}
		if r.Header.Get("Authorization") == "" {
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{"detail": "Not authenticated"})
			return
		}
		list := make([]*models.Booking, 0, len(f.bookings))
		for _, b := range f.bookings {
			list = append(list, b)
		}
		_ = json.NewEncoder(w).Encode(list)
	})

	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

type testEnv struct {
	e        *echo.Echo
	server   *Server
	sessions *session.Store
	api      *fakeAPI
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	api := newFakeAPI(t)

	cfg := &config.Config{}
	cfg.API.BaseURL = api.srv.URL
	cfg.API.MicrositeName = "TheHungryUnicorn"
	cfg.API.ChannelCode = "ONLINE"
	cfg.Session.GuardGraceMillis = 10

	creds := session.NewFileStore(filepath.Join(t.TempDir(), "credential"))
	client := bookingapi.New(cfg.API.BaseURL, creds, 0)
	sessions := session.NewStore(client)

	srv := NewServer(cfg, client, sessions, nil, zerolog.Nop())
	e := echo.New()
	srv.RegisterRoutes(e)

	return &testEnv{e: e, server: srv, sessions: sessions, api: api}
}

func (env *testEnv) get(path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)
	return rec
}

func (env *testEnv) postForm(path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)
	return rec
}

func confirmedBooking(ref, email string) *models.Booking {
	return &models.Booking{
		Reference: ref,
		VisitDate: "2026-09-12",
		VisitTime: "19:00:00",
		PartySize: 2,
		Status:    models.StatusConfirmed,
		Customer:  &models.Customer{FirstName: "Jane", Surname: "Doe", Email: email},
	}
}

func TestGuard_RedirectsWithoutCredential(t *testing.T) {
	env := newTestEnv(t)

	rec := env.get("/dashboard")
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
	assert.NotContains(t, rec.Body.String(), "All bookings")
}

func TestGuard_RendersDashboardWithCredential(t *testing.T) {
	env := newTestEnv(t)
	env.api.bookings["ABC1234"] = confirmedBooking("ABC1234", "a@x.com")
	require.NoError(t, env.sessions.Login(t.Context(), "tok"))

	rec := env.get("/dashboard")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "All bookings")
	assert.Contains(t, rec.Body.String(), "ABC1234")
}

func TestLookup_CaseInsensitiveEmailMatch(t *testing.T) {
	env := newTestEnv(t)
	env.api.bookings["ABC1234"] = confirmedBooking("ABC1234", "a@x.com")

	rec := env.postForm("/lookup", url.Values{"ref": {"ABC1234"}, "email": {"B@X.com"}})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Booking not found for that email.")

	rec = env.postForm("/lookup", url.Values{"ref": {"ABC1234"}, "email": {"A@X.com"}})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/booking/ABC1234", rec.Header().Get("Location"))
}

func TestLookup_WrongEmailDoesNotNavigate(t *testing.T) {
	env := newTestEnv(t)
	env.api.bookings["ABC1234"] = confirmedBooking("ABC1234", "a@x.com")

	rec := env.postForm("/lookup", url.Values{"ref": {"ABC1234"}, "email": {"wrong@x.com"}})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Location"))
	assert.Contains(t, rec.Body.String(), "Booking not found for that email.")
}

func TestCancel_WithoutReasonNeverIssuesRequest(t *testing.T) {
	env := newTestEnv(t)
	env.api.bookings["ABC1234"] = confirmedBooking("ABC1234", "a@x.com")

	rec := env.postForm("/booking/ABC1234/cancel", url.Values{"reason": {""}})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Contains(t, rec.Header().Get("Location"), url.QueryEscape("Please choose a reason"))
	assert.Equal(t, int64(0), env.api.cancelCalls.Load())
}

func TestCancel_WithReason(t *testing.T) {
	env := newTestEnv(t)
	env.api.bookings["ABC1234"] = confirmedBooking("ABC1234", "a@x.com")

	rec := env.postForm("/booking/ABC1234/cancel", url.Values{"reason": {"2"}})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Contains(t, rec.Header().Get("Location"), "/booking/ABC1234?msg=")
	assert.Equal(t, int64(1), env.api.cancelCalls.Load())
}

func TestCancel_BusyRowRejectsDuplicate(t *testing.T) {
	env := newTestEnv(t)
	env.api.bookings["ABC1234"] = confirmedBooking("ABC1234", "a@x.com")
	env.api.bookings["XYZ9999"] = confirmedBooking("XYZ9999", "b@x.com")

	require.True(t, env.server.rows.Begin("ABC1234", rowstate.StateCancelling))
	defer env.server.rows.End("ABC1234")

	rec := env.postForm("/booking/ABC1234/cancel", url.Values{"reason": {"1"}})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Contains(t, rec.Header().Get("Location"), url.QueryEscape("already in progress"))
	assert.Equal(t, int64(0), env.api.cancelCalls.Load())

	// A different booking is unaffected by the busy row.
	rec = env.postForm("/booking/XYZ9999/cancel", url.Values{"reason": {"1"}})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, int64(1), env.api.cancelCalls.Load())
}

func TestAvailability_OnlyBookableSlotsOfferBooking(t *testing.T) {
	env := newTestEnv(t)

	rec := env.get("/availability?date=2026-09-12&partySize=2")
	assert.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, "19:00:00")
	assert.Contains(t, body, "19:30:00")
	assert.Contains(t, body, "/book?date=2026-09-12&amp;time=19:00:00")
	assert.NotContains(t, body, "time=19:30:00", "full slot must not be a booking target")
	assert.Contains(t, body, "No seats left")
}

func TestAvailability_MissingDateFailsLocally(t *testing.T) {
	env := newTestEnv(t)

	rec := env.get("/availability?partySize=2")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Please pick a date first")
}

func TestDetails_CancelledBookingHidesControls(t *testing.T) {
	env := newTestEnv(t)
	b := confirmedBooking("DEF5678", "a@x.com")
	b.Status = models.StatusCancelled
	env.api.bookings["DEF5678"] = b

	rec := env.get("/booking/DEF5678")
	assert.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, "This booking is already cancelled.")
	assert.NotContains(t, body, "/booking/DEF5678/modify")
	assert.NotContains(t, body, "/booking/DEF5678/cancel")
}

func TestDetails_LoadFailureRedirectsBackToLookup(t *testing.T) {
	env := newTestEnv(t)

	rec := env.get("/booking/NOPE")
	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Booking not found")
	assert.Contains(t, body, `http-equiv="refresh"`)
	assert.Contains(t, body, "/lookup")
}

func TestDetails_ReasonsFailureIsNonFatal(t *testing.T) {
	env := newTestEnv(t)
	env.api.bookings["ABC1234"] = confirmedBooking("ABC1234", "a@x.com")
	env.api.reasonsFail = true

	rec := env.get("/booking/ABC1234")
	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "ABC1234")
	assert.Contains(t, body, "Cancellation reasons are unavailable right now.")
}

func TestModify_UnchangedFormSendsNothing(t *testing.T) {
	env := newTestEnv(t)
	env.api.bookings["ABC1234"] = confirmedBooking("ABC1234", "a@x.com")

	rec := env.postForm("/booking/ABC1234/modify", url.Values{
		"date":  {"2026-09-12"},
		"time":  {"19:00:00"},
		"party": {"2"},
		"notes": {""},
	})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Contains(t, rec.Header().Get("Location"), url.QueryEscape("Nothing to update"))
	assert.Equal(t, int64(0), env.api.updateCalls.Load())
}

func TestModify_ChangedDateIssuesUpdate(t *testing.T) {
	env := newTestEnv(t)
	env.api.bookings["ABC1234"] = confirmedBooking("ABC1234", "a@x.com")

	rec := env.postForm("/booking/ABC1234/modify", url.Values{
		"date":  {"2026-09-13"},
		"time":  {"19:00:00"},
		"party": {"2"},
		"notes": {""},
	})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Contains(t, rec.Header().Get("Location"), url.QueryEscape("Booking updated"))
	assert.Equal(t, int64(1), env.api.updateCalls.Load())
}

func TestModify_CancelledBookingRejected(t *testing.T) {
	env := newTestEnv(t)
	b := confirmedBooking("DEF5678", "a@x.com")
	b.Status = models.StatusCancelled
	env.api.bookings["DEF5678"] = b

	rec := env.postForm("/booking/DEF5678/modify", url.Values{"date": {"2026-09-14"}})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Contains(t, rec.Header().Get("Location"), url.QueryEscape("already cancelled"))
	assert.Equal(t, int64(0), env.api.updateCalls.Load())
}

func TestLogin_TokenQueryAutoLogsIn(t *testing.T) {
	env := newTestEnv(t)

	rec := env.get("/login?token=magic-tok")
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/dashboard", rec.Header().Get("Location"))
	assert.Equal(t, "magic-tok", env.sessions.Token())
}

func TestLogin_FormThenLogout(t *testing.T) {
	env := newTestEnv(t)

	rec := env.postForm("/login", url.Values{"token": {"tok-1"}})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/dashboard", rec.Header().Get("Location"))
	assert.True(t, env.sessions.Authenticated())

	rec = env.postForm("/logout", url.Values{})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
	assert.False(t, env.sessions.Authenticated())

	// Protected page is gone again.
	rec = env.get("/dashboard")
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
}

func TestLogin_EmptyTokenFailsLocally(t *testing.T) {
	env := newTestEnv(t)

	rec := env.postForm("/login", url.Values{"token": {""}})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Please paste an API token")
	assert.False(t, env.sessions.Authenticated())
}

func TestBookForm_MissingParamsRedirectHome(t *testing.T) {
	env := newTestEnv(t)

	rec := env.get("/book?date=2026-09-12&time=19:00:00")
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	rec = env.get("/book?date=2026-09-12&time=19:00:00&partySize=2")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Confirm booking")
}

func TestDashboard_ErrorDetailShownVerbatim(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.sessions.Login(t.Context(), "tok"))
	env.api.bookingsFail = true

	rec := env.get("/dashboard")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Upstream booking system is down")
}
