// Package web serves the customer and owner facing pages. Every page is a
// thin view over the remote booking API: it renders a form, forwards the
// submission, and shows the result. No business logic lives here.
package web

import (
	"embed"
	"html/template"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"tavolo/internal/bookingapi"
	"tavolo/internal/config"
	"tavolo/internal/notify"
	"tavolo/internal/session"
	"tavolo/internal/web/rowstate"
)

//go:embed templates/*.html
var templatesFS embed.FS

// Server holds the dependencies shared by all page handlers.
type Server struct {
	cfg      *config.Config
	client   *bookingapi.Client
	sessions *session.Store
	rows     *rowstate.Tracker
	notifier notify.Notifier
	logger   zerolog.Logger

	loginLimiter *rate.Limiter
}

// NewServer wires the page handlers to their collaborators.
func NewServer(cfg *config.Config, client *bookingapi.Client, sessions *session.Store, notifier notify.Notifier, logger zerolog.Logger) *Server {
	perMinute := cfg.Login.RatePerMinute
	if perMinute <= 0 {
		perMinute = 10
	}
	burst := cfg.Login.Burst
	if burst <= 0 {
		burst = 5
	}
	if notifier == nil {
		notifier = notify.Noop{}
	}
	return &Server{
		cfg:          cfg,
		client:       client,
		sessions:     sessions,
		rows:         rowstate.NewTracker(),
		notifier:     notifier,
		logger:       logger,
		loginLimiter: rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), burst),
	}
}

type renderer struct {
	templates *template.Template
}

func (r *renderer) Render(w io.Writer, name string, data interface{}, _ echo.Context) error {
	return r.templates.ExecuteTemplate(w, name, data)
}

// RegisterRoutes attaches all page routes to the Echo instance. The
// dashboard group is wrapped by the route guard; every other page is
// public.
func (s *Server) RegisterRoutes(e *echo.Echo) {
	e.Renderer = &renderer{
		templates: template.Must(template.ParseFS(templatesFS, "templates/*.html")),
	}

	e.GET("/", s.handleHome)
	e.GET("/availability", s.handleAvailability)
	e.GET("/book", s.handleBookForm)
	e.POST("/book", s.handleBookSubmit)
	e.GET("/lookup", s.handleLookupForm)
	e.POST("/lookup", s.handleLookupSubmit)
	e.GET("/booking/:ref", s.handleDetails)
	e.POST("/booking/:ref/modify", s.handleModify)
	e.POST("/booking/:ref/cancel", s.handleCancel)

	e.GET("/login", s.handleLoginPage)
	e.POST("/login", s.handleLogin)
	e.POST("/logout", s.handleLogout)

	dash := e.Group("/dashboard", s.Guard)
	dash.GET("", s.handleDashboard)
	dash.POST("/cancel", s.handleDashboardCancel)
	dash.POST("/update", s.handleDashboardUpdate)
	dash.GET("/export.xlsx", s.handleExport)

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
}

// page carries the fields every template needs; page-specific data structs
// embed it.
type page struct {
	Title         string
	Authenticated bool
	Error         string
	Warning       string
	Message       string
}

func (s *Server) page(title string, c echo.Context) page {
	return page{
		Title:         title,
		Authenticated: s.sessions.Authenticated(),
		Error:         c.QueryParam("err"),
		Message:       c.QueryParam("msg"),
	}
}
