package web

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"tavolo/internal/bookingapi"
	"tavolo/internal/export"
	"tavolo/internal/metrics"
	"tavolo/internal/models"
	"tavolo/internal/web/rowstate"
)

type dashboardRow struct {
	Booking models.Booking
	State   rowstate.State
}

type dashboardData struct {
	page
	Rows    []dashboardRow
	Reasons []models.CancellationReason
}

func (s *Server) handleDashboard(c echo.Context) error {
	metrics.IncPageView("dashboard")
	ctx := c.Request().Context()
	data := dashboardData{page: s.page("All bookings", c)}

	bookings, err := s.client.ListBookings(ctx)
	metrics.IncAPIRequest("list_bookings", err)
	if err != nil {
		data.Error = bookingapi.Detail(err, "Failed to load bookings")
		return c.Render(http.StatusOK, "dashboard.html", data)
	}

	reasons, rerr := s.client.CancellationReasons(ctx)
	metrics.IncAPIRequest("cancellation_reasons", rerr)
	if rerr != nil {
		data.Warning = "Cancellation reasons are unavailable right now."
	}
	data.Reasons = reasons

	data.Rows = make([]dashboardRow, 0, len(bookings))
	for _, b := range bookings {
		data.Rows = append(data.Rows, dashboardRow{
			Booking: b,
			State:   s.rows.Get(b.Reference),
		})
	}
	return c.Render(http.StatusOK, "dashboard.html", data)
}

func (s *Server) handleDashboardCancel(c echo.Context) error {
	return s.cancelBooking(c, c.FormValue("ref"), "/dashboard")
}

func (s *Server) handleDashboardUpdate(c echo.Context) error {
	return s.modifyBooking(c, c.FormValue("ref"), "/dashboard")
}

func (s *Server) handleExport(c echo.Context) error {
	bookings, err := s.client.ListBookings(c.Request().Context())
	metrics.IncAPIRequest("list_bookings", err)
	if err != nil {
		return redirectWithError(c, "/dashboard", bookingapi.Detail(err, "Export failed"))
	}

	filename := "bookings-" + time.Now().Format("2006-01-02") + ".xlsx"
	c.Response().Header().Set(echo.HeaderContentType,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	c.Response().WriteHeader(http.StatusOK)
	return export.WriteBookings(c.Response(), bookings)
}
