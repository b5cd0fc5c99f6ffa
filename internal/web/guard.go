package web

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// Guard gates the dashboard. It holds for a short grace interval so session
// initialization can finish, then checks for a persisted credential and
// either lets the request through or redirects to the login page.
//
// Presence only: an expired or malformed token still passes here. Validity
// is enforced by the remote API on every request, which keeps route changes
// free of extra round trips.
func (s *Server) Guard(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		select {
		case <-s.sessions.Ready():
		case <-time.After(s.cfg.GuardGrace()):
		case <-c.Request().Context().Done():
			return c.Request().Context().Err()
		}

		if !s.sessions.Authenticated() {
			return c.Redirect(http.StatusSeeOther, "/login")
		}
		return next(c)
	}
}
