package web

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/labstack/echo/v4"

	"tavolo/internal/bookingapi"
	"tavolo/internal/metrics"
	"tavolo/internal/web/rowstate"
)

func redirectWithError(c echo.Context, to, msg string) error {
	return c.Redirect(http.StatusSeeOther, to+"?err="+url.QueryEscape(msg))
}

func redirectWithMessage(c echo.Context, to, msg string) error {
	return c.Redirect(http.StatusSeeOther, to+"?msg="+url.QueryEscape(msg))
}

// modifyBooking applies the submitted edit form to a booking and bounces
// back to the given page. Only fields that actually changed are sent; a
// zero or missing party size means "unchanged", never "set to zero".
func (s *Server) modifyBooking(c echo.Context, ref, returnTo string) error {
	if ref == "" {
		return c.Redirect(http.StatusSeeOther, returnTo)
	}
	if !s.rows.Begin(ref, rowstate.StateSaving) {
		return redirectWithError(c, returnTo, "An update for this booking is already in progress")
	}
	defer s.rows.End(ref)

	ctx := c.Request().Context()
	booking, err := s.client.GetBooking(ctx, ref)
	metrics.IncAPIRequest("get_booking", err)
	if err != nil {
		return redirectWithError(c, returnTo, bookingapi.Detail(err, "Failed to load booking"))
	}
	if !booking.CanModify() {
		return redirectWithError(c, returnTo, "This booking is already cancelled")
	}

	patch := bookingapi.BookingPatch{}
	if date := c.FormValue("date"); date != "" && date != booking.VisitDate {
		patch.VisitDate = date
	}
	if visitTime := c.FormValue("time"); visitTime != "" && visitTime != booking.VisitTime {
		patch.VisitTime = visitTime
	}
	if party, perr := strconv.Atoi(c.FormValue("party")); perr == nil && party > 0 && party != booking.PartySize {
		patch.PartySize = party
	}
	notes := c.FormValue("notes")
	if notes != booking.SpecialRequests {
		patch.SpecialRequests = &notes
	}

	if patch.IsEmpty() {
		return redirectWithMessage(c, returnTo, "Nothing to update")
	}

	_, err = s.client.UpdateBooking(ctx, ref, patch)
	metrics.IncAPIRequest("update_booking", err)
	if err != nil {
		return redirectWithError(c, returnTo, bookingapi.Detail(err, "Update failed"))
	}
	return redirectWithMessage(c, returnTo, "Booking updated")
}

// cancelBooking cancels a booking with the selected reason and bounces back
// to the given page. A missing reason fails locally before any request is
// issued.
func (s *Server) cancelBooking(c echo.Context, ref, returnTo string) error {
	if ref == "" {
		return c.Redirect(http.StatusSeeOther, returnTo)
	}

	reasonStr := c.FormValue("reason")
	if reasonStr == "" {
		return redirectWithError(c, returnTo, "Please choose a reason")
	}
	reasonID, err := strconv.ParseInt(reasonStr, 10, 64)
	if err != nil {
		return redirectWithError(c, returnTo, "Please choose a reason")
	}

	if !s.rows.Begin(ref, rowstate.StateCancelling) {
		return redirectWithError(c, returnTo, "A cancellation for this booking is already in progress")
	}
	defer s.rows.End(ref)

	resp, err := s.client.CancelBooking(c.Request().Context(), s.cfg.API.MicrositeName, ref, reasonID)
	metrics.IncAPIRequest("cancel_booking", err)
	if err != nil {
		return redirectWithError(c, returnTo, bookingapi.Detail(err, "Cancellation failed"))
	}

	metrics.IncBookingCancelled()
	s.notifier.BookingCancelled(ref, resp.Message)

	msg := resp.Message
	if msg == "" {
		msg = "Booking cancelled"
	}
	return redirectWithMessage(c, returnTo, msg)
}
