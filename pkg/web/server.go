// Package web provides the tour control dashboard: a JSON API over the
// session, the gallery and the GPS tracker, plus a live status feed.
package web

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/teslashibe/go-vrtour/internal/log"
	"github.com/teslashibe/go-vrtour/pkg/gallery"
	"github.com/teslashibe/go-vrtour/pkg/geo"
	"github.com/teslashibe/go-vrtour/pkg/headset"
	"github.com/teslashibe/go-vrtour/pkg/hub"
	"github.com/teslashibe/go-vrtour/pkg/session"
	"github.com/teslashibe/go-vrtour/pkg/tour"
)

// maxEvents bounds the event log kept for /api/events.
const maxEvents = 200

// Event is a selection milestone shown on the dashboard
type Event struct {
	Time     string `json:"time"`
	Type     string `json:"type"` // selected, arrived
	Location string `json:"location"`
}

// Options wires optional components into the server. Nil components disable
// their routes.
type Options struct {
	Gallery  *gallery.Gallery
	GPS      *geo.Tracker
	Headsets *headset.Hub
	// StaticDir is served at / when set
	StaticDir string
	// Debug logs every request
	Debug bool
}

// Server is the web dashboard server
type Server struct {
	app     *fiber.App
	addr    string
	session *session.Session
	opts    Options
	logger  *slog.Logger

	// curve name as last set through PUT /api/config for curveTour;
	// gaze.Config only holds the function
	curveMu   sync.RWMutex
	curve     string
	curveTour *tour.Tour

	events   []Event
	eventsMu sync.RWMutex

	statusHub *hub.Hub
}

// NewServer creates the dashboard server for sess, listening on addr when run
func NewServer(addr string, sess *session.Session, opts Options) *Server {
	s := &Server{
		addr:      addr,
		session:   sess,
		opts:      opts,
		logger:    log.Component("web"),
		events:    make([]Event, 0, maxEvents),
		statusHub: hub.New("status"),
	}

	app := fiber.New(fiber.Config{
		AppName:               "VR Tour Dashboard",
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	app.Use(cors.New())
	if opts.Debug {
		app.Use(logger.New())
	}

	if opts.StaticDir != "" {
		app.Static("/", opts.StaticDir)
	}

	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/locations", s.handleListLocations)
	api.Post("/locations/:index/jump", s.handleJump)
	api.Post("/locations/:index/tween", s.handleTween)
	api.Post("/gaze", s.handleSetGaze)
	api.Delete("/gaze", s.handleClearGaze)
	api.Post("/look", s.handleLook)
	api.Post("/reset", s.handleReset)
	api.Get("/config", s.handleGetConfig)
	api.Put("/config", s.handlePutConfig)
	api.Get("/events", s.handleEvents)

	if opts.Gallery != nil {
		api.Get("/gallery", s.handleGallery)
		api.Post("/gallery/next", s.handleGalleryNext)
		api.Post("/gallery/prev", s.handleGalleryPrev)
		api.Post("/gallery/probe", s.handleGalleryProbe)
	}
	if opts.GPS != nil {
		api.Get("/gps", s.handleGetGPS)
		api.Post("/gps", s.handlePostGPS)
	}

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	if opts.Headsets != nil {
		opts.Headsets.RegisterRoutes(app)
		opts.Headsets.RegisterAPIRoutes(api)
	}

	app.Use("/ws/status", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/status", websocket.New(s.handleStatusWS))

	s.app = app
	return s
}

// App exposes the fiber app, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// SetLogger replaces the server logger. Call before Run.
func (s *Server) SetLogger(l *slog.Logger) {
	s.logger = l
	s.statusHub.SetLogger(l)
}

// Run serves until ctx is cancelled, then shuts the listener and the status
// hub down.
func (s *Server) Run(ctx context.Context) error {
	go s.statusHub.Run()
	defer s.statusHub.Stop()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("dashboard listening", "addr", s.addr)
		errCh <- s.app.Listen(s.addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		if err := s.app.ShutdownWithTimeout(5 * time.Second); err != nil {
			return err
		}
		<-errCh
		return nil
	}
}

// Publish forwards a snapshot to status clients and records milestones.
// Server implements session.Sink.
func (s *Server) Publish(snap session.Snapshot) {
	switch {
	case snap.Selected:
		s.addEvent("selected", snap.Target)
	case snap.Arrived:
		s.addEvent("arrived", snap.Location)
	}
	if s.statusHub.ClientCount() == 0 {
		return
	}
	if err := s.statusHub.BroadcastEvent("state", snap); err != nil {
		s.logger.Warn("state broadcast failed", "error", err)
	}
}

func (s *Server) addEvent(kind, location string) {
	e := Event{
		Time:     time.Now().Format("15:04:05"),
		Type:     kind,
		Location: location,
	}

	s.eventsMu.Lock()
	s.events = append(s.events, e)
	if len(s.events) > maxEvents {
		s.events = s.events[1:]
	}
	s.eventsMu.Unlock()

	if s.statusHub.ClientCount() > 0 {
		s.statusHub.BroadcastEvent("event", e)
	}
}

// currentCurve returns the curve name in effect. A tour reload discards the
// name set through the API.
func (s *Server) currentCurve() string {
	t := s.session.Tour()
	s.curveMu.RLock()
	defer s.curveMu.RUnlock()
	if s.curveTour == t && s.curve != "" {
		return s.curve
	}
	return curveName(t)
}

func (s *Server) setCurve(name string) {
	t := s.session.Tour()
	s.curveMu.Lock()
	s.curve = name
	s.curveTour = t
	s.curveMu.Unlock()
}

func curveName(t *tour.Tour) string {
	st := t.Settings
	if len(st.Keys) > 0 {
		return "custom"
	}
	if st.Curve == "" {
		return "ease-in-out"
	}
	return st.Curve
}
