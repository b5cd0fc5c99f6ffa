package web

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"tavolo/internal/bookingapi"
	"tavolo/internal/metrics"
	"tavolo/internal/models"
)

func (s *Server) handleHome(c echo.Context) error {
	metrics.IncPageView("home")
	return c.Render(http.StatusOK, "home.html", s.page("Tavolo", c))
}

type availabilityData struct {
	page
	Date      string
	PartySize int
	Searched  bool
	Slots     []models.Slot
}

func (s *Server) handleAvailability(c echo.Context) error {
	metrics.IncPageView("availability")

	data := availabilityData{
		page:      s.page("Check availability", c),
		Date:      c.QueryParam("date"),
		PartySize: 2,
	}
	if v, err := strconv.Atoi(c.QueryParam("partySize")); err == nil && v > 0 {
		data.PartySize = v
	}

	submitted := c.QueryParams().Has("date") || c.QueryParams().Has("partySize")
	if !submitted {
		return c.Render(http.StatusOK, "availability.html", data)
	}

	if data.Date == "" {
		data.Error = "Please pick a date first"
		return c.Render(http.StatusOK, "availability.html", data)
	}

	slots, err := s.client.SearchAvailability(c.Request().Context(), data.Date, data.PartySize, s.cfg.API.ChannelCode)
	metrics.IncAPIRequest("availability_search", err)
	if err != nil {
		data.Error = bookingapi.Detail(err, "Failed to load slots")
		return c.Render(http.StatusOK, "availability.html", data)
	}

	data.Searched = true
	data.Slots = slots
	return c.Render(http.StatusOK, "availability.html", data)
}

type bookData struct {
	page
	Date      string
	Time      string
	PartySize string

	CustomerTitle   string
	FirstName       string
	Surname         string
	Email           string
	Mobile          string
	SpecialRequests string
	Titles          []string
}

var customerTitles = []string{"Mr", "Mrs", "Ms", "Dr"}

func (s *Server) handleBookForm(c echo.Context) error {
	metrics.IncPageView("book")

	date, visitTime, party := c.QueryParam("date"), c.QueryParam("time"), c.QueryParam("partySize")
	if date == "" || visitTime == "" || party == "" {
		return c.Redirect(http.StatusSeeOther, "/")
	}

	return c.Render(http.StatusOK, "book.html", bookData{
		page:          s.page("Confirm booking", c),
		Date:          date,
		Time:          visitTime,
		PartySize:     party,
		CustomerTitle: customerTitles[0],
		Titles:        customerTitles,
	})
}

func (s *Server) handleBookSubmit(c echo.Context) error {
	data := bookData{
		page:            s.page("Confirm booking", c),
		Date:            c.FormValue("date"),
		Time:            c.FormValue("time"),
		PartySize:       c.FormValue("partySize"),
		CustomerTitle:   c.FormValue("title"),
		FirstName:       strings.TrimSpace(c.FormValue("firstName")),
		Surname:         strings.TrimSpace(c.FormValue("surname")),
		Email:           strings.TrimSpace(c.FormValue("email")),
		Mobile:          strings.TrimSpace(c.FormValue("mobile")),
		SpecialRequests: c.FormValue("specialRequests"),
		Titles:          customerTitles,
	}
	if data.Date == "" || data.Time == "" || data.PartySize == "" {
		return c.Redirect(http.StatusSeeOther, "/")
	}

	party, err := strconv.Atoi(data.PartySize)
	if err != nil || party <= 0 {
		return c.Redirect(http.StatusSeeOther, "/")
	}

	// Local validation: nothing goes over the wire with these missing.
	if data.FirstName == "" || data.Surname == "" || data.Email == "" {
		data.Error = "Please fill in your name and email"
		return c.Render(http.StatusOK, "book.html", data)
	}

	ref, err := s.client.CreateBooking(c.Request().Context(), bookingapi.CreateBookingRequest{
		VisitDate:       data.Date,
		VisitTime:       data.Time,
		PartySize:       party,
		Title:           data.CustomerTitle,
		FirstName:       data.FirstName,
		Surname:         data.Surname,
		Email:           data.Email,
		Mobile:          data.Mobile,
		SpecialRequests: data.SpecialRequests,
	}, s.cfg.API.ChannelCode)
	metrics.IncAPIRequest("create_booking", err)
	if err != nil {
		data.Error = bookingapi.Detail(err, "Booking failed")
		return c.Render(http.StatusOK, "book.html", data)
	}

	metrics.IncBookingCreated()
	s.notifier.BookingCreated(&models.Booking{
		Reference: ref,
		VisitDate: data.Date,
		VisitTime: data.Time,
		PartySize: party,
		Customer:  &models.Customer{FirstName: data.FirstName, Surname: data.Surname, Email: data.Email},
	})
	return c.Redirect(http.StatusSeeOther, "/booking/"+url.PathEscape(ref))
}

type lookupData struct {
	page
	Ref   string
	Email string
}

func (s *Server) handleLookupForm(c echo.Context) error {
	metrics.IncPageView("lookup")
	return c.Render(http.StatusOK, "lookup.html", lookupData{page: s.page("Find your booking", c)})
}

func (s *Server) handleLookupSubmit(c echo.Context) error {
	data := lookupData{
		page:  s.page("Find your booking", c),
		Ref:   strings.TrimSpace(c.FormValue("ref")),
		Email: strings.TrimSpace(c.FormValue("email")),
	}
	if data.Ref == "" || data.Email == "" {
		data.Error = "Please enter your booking reference and email"
		return c.Render(http.StatusOK, "lookup.html", data)
	}

	booking, err := s.client.GetBooking(c.Request().Context(), data.Ref)
	metrics.IncAPIRequest("get_booking", err)
	if err != nil {
		data.Error = bookingapi.Detail(err, "Lookup failed")
		return c.Render(http.StatusOK, "lookup.html", data)
	}

	// Mismatch reads as not-found on purpose: the page must not reveal
	// whether the reference exists.
	if !booking.EmailMatches(data.Email) {
		data.Error = "Booking not found for that email."
		return c.Render(http.StatusOK, "lookup.html", data)
	}

	return c.Redirect(http.StatusSeeOther, "/booking/"+url.PathEscape(data.Ref))
}

type detailsData struct {
	page
	Booking *models.Booking
	Reasons []models.CancellationReason
	Busy    bool
}

type lookupFailedData struct {
	page
	RedirectTo string
}

func (s *Server) handleDetails(c echo.Context) error {
	metrics.IncPageView("details")
	ref := c.Param("ref")

	booking, err := s.client.GetBooking(c.Request().Context(), ref)
	metrics.IncAPIRequest("get_booking", err)
	if err != nil {
		// Show the failure, then send the visitor back to the lookup page
		// after a moment to read it.
		return c.Render(http.StatusOK, "lookup_failed.html", lookupFailedData{
			page:       page{Title: "Booking not found", Error: bookingapi.Detail(err, "Failed to load booking"), Authenticated: s.sessions.Authenticated()},
			RedirectTo: "/lookup",
		})
	}

	data := detailsData{
		page:    s.page("Booking "+booking.Reference, c),
		Booking: booking,
		Busy:    s.rows.Get(ref).Busy(),
	}

	if booking.CanCancel() {
		reasons, rerr := s.client.CancellationReasons(c.Request().Context())
		metrics.IncAPIRequest("cancellation_reasons", rerr)
		if rerr != nil {
			// Non-fatal: the page still renders, just flag the gap.
			data.Warning = "Cancellation reasons are unavailable right now."
		}
		data.Reasons = reasons
	}

	return c.Render(http.StatusOK, "details.html", data)
}

func (s *Server) handleModify(c echo.Context) error {
	ref := c.Param("ref")
	return s.modifyBooking(c, ref, "/booking/"+url.PathEscape(ref))
}

func (s *Server) handleCancel(c echo.Context) error {
	ref := c.Param("ref")
	return s.cancelBooking(c, ref, "/booking/"+url.PathEscape(ref))
}

type loginData struct {
	page
}

func (s *Server) handleLoginPage(c echo.Context) error {
	metrics.IncPageView("login")

	// A token in the URL logs in immediately, for links handed out by the
	// booking platform.
	if urlToken := c.QueryParam("token"); urlToken != "" {
		if err := s.sessions.Login(c.Request().Context(), urlToken); err != nil {
			s.logger.Error().Err(err).Msg("auto-login failed")
			return c.Render(http.StatusOK, "login.html", loginData{page: page{Title: "Owner login", Error: "Login failed"}})
		}
		return c.Redirect(http.StatusSeeOther, "/dashboard")
	}

	if s.sessions.Authenticated() {
		return c.Redirect(http.StatusSeeOther, "/dashboard")
	}

	return c.Render(http.StatusOK, "login.html", loginData{page: s.page("Owner login", c)})
}

func (s *Server) handleLogin(c echo.Context) error {
	data := loginData{page: s.page("Owner login", c)}

	if !s.loginLimiter.Allow() {
		data.Error = "Too many login attempts, try again shortly"
		return c.Render(http.StatusTooManyRequests, "login.html", data)
	}

	token := strings.TrimSpace(c.FormValue("token"))
	if token == "" {
		data.Error = "Please paste an API token"
		return c.Render(http.StatusOK, "login.html", data)
	}

	if err := s.sessions.Login(c.Request().Context(), token); err != nil {
		s.logger.Error().Err(err).Msg("login failed")
		data.Error = "Login failed"
		return c.Render(http.StatusOK, "login.html", data)
	}
	return c.Redirect(http.StatusSeeOther, "/dashboard")
}

func (s *Server) handleLogout(c echo.Context) error {
	if err := s.sessions.Logout(c.Request().Context()); err != nil {
		s.logger.Error().Err(err).Msg("logout failed")
	}
	return c.Redirect(http.StatusSeeOther, "/")
}
