package web

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-vrtour/pkg/easing"
	"github.com/teslashibe/go-vrtour/pkg/gallery"
	"github.com/teslashibe/go-vrtour/pkg/gaze"
	"github.com/teslashibe/go-vrtour/pkg/geo"
	"github.com/teslashibe/go-vrtour/pkg/hub"
	"github.com/teslashibe/go-vrtour/pkg/pose"
	"github.com/teslashibe/go-vrtour/pkg/protocol"
	"github.com/teslashibe/go-vrtour/pkg/session"
	"github.com/teslashibe/go-vrtour/pkg/tour"
)

// StatusResponse is returned by GET /api/status
type StatusResponse struct {
	Tour     string           `json:"tour"`
	Hit      string           `json:"hit,omitempty"`
	Snapshot session.Snapshot `json:"snapshot"`
}

// LocationInfo describes one tour location
type LocationInfo struct {
	Index   int       `json:"index"`
	ID      string    `json:"id"`
	Name    string    `json:"name"`
	Pose    pose.Pose `json:"pose"`
	Current bool      `json:"current"`
}

// ConfigBody is the JSON form of the selection configuration
type ConfigBody struct {
	DwellThreshold float64 `json:"dwell_threshold"`
	TweenSpeed     float64 `json:"tween_speed"`
	Curve          string  `json:"curve"`
}

// GazeRequest is the request body for POST /api/gaze
type GazeRequest struct {
	Target string `json:"target"`
}

// ProbeRequest is the request body for POST /api/gallery/probe
type ProbeRequest struct {
	U float64 `json:"u"`
	V float64 `json:"v"`
}

func jsonError(c *fiber.Ctx, err error) error {
	return c.Status(statusFor(err)).JSON(fiber.Map{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, tour.ErrIndexOutOfRange), errors.Is(err, gallery.ErrIndexOutOfRange):
		return fiber.StatusNotFound
	case errors.Is(err, session.ErrAlreadyThere):
		return fiber.StatusConflict
	case errors.Is(err, gaze.ErrInvalidConfig), errors.Is(err, easing.ErrUnknownCurve):
		return fiber.StatusBadRequest
	case errors.Is(err, gallery.ErrMaskNotSampleable):
		return fiber.StatusUnprocessableEntity
	default:
		return fiber.StatusInternalServerError
	}
}

// handleStatus returns the latest session snapshot
func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(StatusResponse{
		Tour:     s.session.Tour().Name,
		Hit:      s.session.Hit(),
		Snapshot: s.session.Snapshot(),
	})
}

// handleListLocations returns the tour locations in order
func (s *Server) handleListLocations(c *fiber.Ctx) error {
	t := s.session.Tour()
	at := s.session.Snapshot().Location

	infos := make([]LocationInfo, 0, t.Len())
	for i, loc := range t.Locations {
		infos = append(infos, LocationInfo{
			Index:   i,
			ID:      loc.ID,
			Name:    loc.Name,
			Pose:    loc.Pose,
			Current: loc.ID == at,
		})
	}
	return c.JSON(infos)
}

// handleJump teleports to a location
func (s *Server) handleJump(c *fiber.Ctx) error {
	index, err := c.ParamsInt("index")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "index must be an integer"})
	}
	if err := s.session.Jump(index); err != nil {
		return jsonError(c, err)
	}
	return c.JSON(s.session.Snapshot())
}

// handleTween starts a move to a location, bypassing the dwell
func (s *Server) handleTween(c *fiber.Ctx) error {
	index, err := c.ParamsInt("index")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "index must be an integer"})
	}
	if err := s.session.TweenTo(index); err != nil {
		return jsonError(c, err)
	}
	return c.JSON(s.session.Snapshot())
}

// handleSetGaze latches a raycast hit, for driving the session without a
// headset
func (s *Server) handleSetGaze(c *fiber.Ctx) error {
	var req GazeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	s.session.SetHit(req.Target)
	return c.JSON(fiber.Map{"hit": req.Target})
}

// handleClearGaze latches "nothing hit"
func (s *Server) handleClearGaze(c *fiber.Ctx) error {
	s.session.ClearHit()
	return c.SendStatus(fiber.StatusNoContent)
}

// handleLook applies look input to the viewer rig
func (s *Server) handleLook(c *fiber.Ctx) error {
	var req protocol.LookData
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	if req.Absolute {
		s.session.SetView(req.Yaw, req.Pitch)
	} else {
		s.session.Look(req.DX, req.DY)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// handleReset cancels any dwell or tween
func (s *Server) handleReset(c *fiber.Ctx) error {
	s.session.Reset()
	return c.JSON(s.session.Snapshot())
}

// handleGetConfig returns the selection configuration
func (s *Server) handleGetConfig(c *fiber.Ctx) error {
	cfg := s.session.Config()
	return c.JSON(ConfigBody{
		DwellThreshold: cfg.DwellThreshold,
		TweenSpeed:     cfg.TweenSpeed,
		Curve:          s.currentCurve(),
	})
}

// handlePutConfig replaces the selection configuration. Zero fields keep
// their current value.
func (s *Server) handlePutConfig(c *fiber.Ctx) error {
	var req ConfigBody
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	cfg := s.session.Config()
	if req.DwellThreshold != 0 {
		cfg.DwellThreshold = req.DwellThreshold
	}
	if req.TweenSpeed != 0 {
		cfg.TweenSpeed = req.TweenSpeed
	}
	if req.Curve != "" {
		curve, err := easing.ByName(req.Curve)
		if err != nil {
			return jsonError(c, err)
		}
		cfg.Curve = curve
	}
	if err := s.session.SetConfig(cfg); err != nil {
		return jsonError(c, err)
	}
	if req.Curve != "" {
		s.setCurve(req.Curve)
	}

	return s.handleGetConfig(c)
}

// handleEvents returns recent selection events
func (s *Server) handleEvents(c *fiber.Ctx) error {
	s.eventsMu.RLock()
	defer s.eventsMu.RUnlock()
	return c.JSON(s.events)
}

// handleGallery returns the carousel items and the shown index
func (s *Server) handleGallery(c *fiber.Ctx) error {
	_, index := s.opts.Gallery.Current()
	return c.JSON(fiber.Map{
		"index": index,
		"items": s.opts.Gallery.Items(),
	})
}

func (s *Server) handleGalleryNext(c *fiber.Ctx) error {
	return s.galleryShown(c, s.opts.Gallery.Next())
}

func (s *Server) handleGalleryPrev(c *fiber.Ctx) error {
	return s.galleryShown(c, s.opts.Gallery.Prev())
}

func (s *Server) galleryShown(c *fiber.Ctx, m gallery.Media) error {
	_, index := s.opts.Gallery.Current()
	if s.statusHub.ClientCount() > 0 {
		s.statusHub.BroadcastEvent("gallery", fiber.Map{"index": index, "media": m})
	}
	return c.JSON(fiber.Map{"index": index, "media": m})
}

// handleGalleryProbe looks up the hotspot under a texture coordinate
func (s *Server) handleGalleryProbe(c *fiber.Ctx) error {
	var req ProbeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	h, found, err := s.opts.Gallery.Probe(req.U, req.V)
	if err != nil {
		return jsonError(c, err)
	}
	if !found {
		return c.JSON(fiber.Map{"found": false})
	}
	return c.JSON(fiber.Map{"found": true, "hotspot": h})
}

// handleGetGPS returns the movement between the last two fixes
func (s *Server) handleGetGPS(c *fiber.Ctx) error {
	if _, ok := s.opts.GPS.Current(); !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "no fix yet"})
	}
	return c.JSON(s.opts.GPS.Fix())
}

// handlePostGPS records a fix
func (s *Server) handlePostGPS(c *fiber.Ctx) error {
	var req geo.Coord
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(s.opts.GPS.Update(req))
}

// handleStatusWS streams snapshots and events to a dashboard
func (s *Server) handleStatusWS(c *websocket.Conn) {
	// Send current status before the pumps take over the connection
	if err := c.WriteJSON(hub.Event{Type: "state", Data: s.session.Snapshot()}); err != nil {
		return
	}
	client := hub.NewClient(s.statusHub, c)
	client.Run()
}
