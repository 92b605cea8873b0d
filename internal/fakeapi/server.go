// Package fakeapi serves the portal REST contract from an in-memory dataset.
// Tests mount it with httptest; the devserver command runs it on a port.
package fakeapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/infokelas/kelas/internal/api"
)

// Recorded is one request seen by the server.
type Recorded struct {
	Method string
	Path   string
	Query  string
	Header http.Header
}

type failure struct {
	status  int
	message string
	times   int
}

// Server is the API double.
type Server struct {
	app *echo.Echo

	mu       sync.Mutex
	data     Dataset
	tokens   map[string]int    // Token to user ID.
	otps     map[string]string // Identifier to pending OTP.
	requests []Recorded
	failures map[string]*failure // "METHOD /path" to injected failure.
	now      func() time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithDataset replaces the seed data.
func WithDataset(d Dataset) Option {
	return func(s *Server) { s.data = d }
}

// WithClock sets the clock used for "today" schedules.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// WithRequestLog writes an access log line per request to w.
func WithRequestLog(w io.Writer) Option {
	return func(s *Server) {
		s.app.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{Output: w}))
	}
}

// New creates a Server over Seed() unless WithDataset is given.
func New(opts ...Option) *Server {
	s := &Server{
		app:      echo.New(),
		data:     Seed(),
		tokens:   make(map[string]int),
		otps:     make(map[string]string),
		failures: make(map[string]*failure),
		now:      time.Now,
	}
	s.app.HideBanner = true
	s.app.HidePort = true
	s.app.Logger.SetLevel(log.OFF)
	s.app.HTTPErrorHandler = errorHandler

	for _, opt := range opts {
		opt(s)
	}
	for _, acc := range s.data.Accounts {
		if acc.Token != "" {
			s.tokens[acc.Token] = acc.User.ID
		}
	}
	if s.data.Memberships == nil {
		s.data.Memberships = make(map[int][]int)
	}
	s.setup()
	return s
}

func (s *Server) setup() {
	s.app.Pre(middleware.RemoveTrailingSlash())
	s.app.Use(middleware.Recover())
	s.app.Use(middleware.RequestID())
	s.app.Use(s.record)
	s.app.Use(s.injectFailures)

	g := s.app.Group("/api")
	g.POST("/login", s.login)
	g.POST("/forgot-password", s.forgotPassword)
	g.POST("/reset-password", s.resetPassword)

	ag := g.Group("", s.authenticate)
	ag.POST("/logout", s.logout)
	ag.GET("/profile", s.profile)
	ag.POST("/profile/update", s.updateProfile)
	ag.GET("/my-classrooms", s.myClassrooms)
	ag.POST("/join-class", s.joinClass)
	ag.GET("/classrooms/:id", s.classroom)
	ag.GET("/classrooms/:id/subjects", s.classroomSubjects)
	ag.GET("/classrooms/:id/assignments", s.classroomAssignments)
	ag.GET("/classrooms/:id/materials", s.classroomMaterials)
	ag.GET("/schedules", s.schedules)
	ag.GET("/materials", s.subjectMaterials)
	ag.GET("/materials/:id", s.material)
	ag.GET("/assignments", s.subjectAssignments)
	ag.GET("/assignments/:id", s.assignment)
	ag.GET("/announcements", s.announcements)
}

// ServeHTTP lets tests mount the server with httptest.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.app.ServeHTTP(w, r)
}

// Start listens on addr until Shutdown.
func (s *Server) Start(addr string) error {
	if err := s.app.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("fakeapi: %w", err)
	}
	return nil
}

// Shutdown stops a started server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

// Hits counts requests for method and path (path without the /api prefix).
func (s *Server) Hits(method, path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.requests {
		if r.Method == method && r.Path == path {
			n++
		}
	}
	return n
}

// Requests returns a copy of everything recorded so far.
func (s *Server) Requests() []Recorded {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Recorded(nil), s.requests...)
}

// FailNext makes the next times requests to method and path fail with status.
func (s *Server) FailNext(method, path string, status int, message string, times int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[method+" "+path] = &failure{status: status, message: message, times: times}
}

// Revoke invalidates a token, as if it expired server-side.
func (s *Server) Revoke(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, token)
}

// AddAnnouncement publishes a as the newest announcement.
func (s *Server) AddAnnouncement(a api.Announcement) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.Announcements = append([]api.Announcement{a}, s.data.Announcements...)
}

// --- middleware ---

func trimAPI(path string) string {
	return strings.TrimPrefix(path, "/api")
}

func (s *Server) record(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		r := c.Request()
		s.mu.Lock()
		s.requests = append(s.requests, Recorded{
			Method: r.Method,
			Path:   trimAPI(r.URL.Path),
			Query:  r.URL.RawQuery,
			Header: r.Header.Clone(),
		})
		s.mu.Unlock()
		return next(c)
	}
}

func (s *Server) injectFailures(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		key := c.Request().Method + " " + trimAPI(c.Request().URL.Path)
		s.mu.Lock()
		f, ok := s.failures[key]
		if ok {
			f.times--
			if f.times <= 0 {
				delete(s.failures, key)
			}
		}
		s.mu.Unlock()
		if ok {
			return echo.NewHTTPError(f.status, f.message)
		}
		return next(c)
	}
}

const userKey = "user"

var (
	errUnauthenticated = echo.NewHTTPError(http.StatusUnauthorized, "Unauthenticated.")
	errArchived        = echo.NewHTTPError(http.StatusForbidden, "Akun Anda telah diarsipkan.")
)

func (s *Server) authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token, ok := strings.CutPrefix(c.Request().Header.Get(echo.HeaderAuthorization), "Bearer ")
		if !ok || token == "" {
			return errUnauthenticated
		}
		s.mu.Lock()
		id, found := s.tokens[token]
		acc, accFound := s.accountByID(id)
		s.mu.Unlock()
		if !found || !accFound {
			return errUnauthenticated
		}
		if acc.Archived {
			return errArchived
		}
		c.Set(userKey, id)
		c.Set("token", token)
		return next(c)
	}
}

// errorHandler renders every error in the portal's {"message"} shape.
func errorHandler(err error, c echo.Context) {
	code := http.StatusInternalServerError
	message := http.StatusText(code)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		message = fmt.Sprint(he.Message)
	}
	if c.Response().Committed {
		return
	}
	if err := c.JSON(code, echo.Map{"message": message}); err != nil {
		c.Logger().Error(err)
	}
}

func respond(c echo.Context, message string, data any) error {
	return c.JSON(http.StatusOK, echo.Map{"message": message, "data": data})
}

func invalid(message string) error {
	return echo.NewHTTPError(http.StatusUnprocessableEntity, message)
}

func notFound(message string) error {
	return echo.NewHTTPError(http.StatusNotFound, message)
}
