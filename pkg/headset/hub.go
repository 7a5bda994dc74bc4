// Package headset provides the WebSocket hub for headset connections.
package headset

import (
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/teslashibe/go-vrtour/internal/log"
	"github.com/teslashibe/go-vrtour/pkg/metrics"
	"github.com/teslashibe/go-vrtour/pkg/pose"
	"github.com/teslashibe/go-vrtour/pkg/protocol"
	"github.com/teslashibe/go-vrtour/pkg/session"
)

const (
	// writeWait is how long to wait for a write to complete
	writeWait = 10 * time.Second

	// pingPeriod is how often idle headsets are pinged
	pingPeriod = 30 * time.Second

	// sendBuffer is how many messages may queue before a headset is dropped
	sendBuffer = 64
)

// ErrSlowHeadset is returned by Send when the headset's queue is full. The
// connection is closed.
var ErrSlowHeadset = errors.New("headset: send queue full")

// ErrClosed is returned by Send after the connection has closed.
var ErrClosed = errors.New("headset: connection closed")

// Connection represents a connected headset
type Connection struct {
	ID        string
	Conn      *websocket.Conn
	Connected time.Time
	LastSeen  time.Time

	mu        sync.Mutex
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func newConnection(id string, c *websocket.Conn) *Connection {
	now := time.Now()
	return &Connection{
		ID:        id,
		Conn:      c,
		Connected: now,
		LastSeen:  now,
		send:      make(chan []byte, sendBuffer),
		done:      make(chan struct{}),
	}
}

// Send queues a message for the headset without blocking. A headset whose
// queue is full is disconnected and ErrSlowHeadset returned.
func (c *Connection) Send(msg *protocol.Message) error {
	data, err := msg.Bytes()
	if err != nil {
		return err
	}

	select {
	case <-c.done:
		return ErrClosed
	default:
	}

	select {
	case c.send <- data:
		return nil
	default:
		c.close()
		return ErrSlowHeadset
	}
}

// close stops the write pump and closes the socket, which also ends the
// read loop. Safe to call more than once.
func (c *Connection) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.Conn.Close()
	})
}

// writePump is the only goroutine that writes to the connection
func (c *Connection) writePump(exited chan<- struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		close(exited)
	}()

	for {
		select {
		case data := <-c.send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.close()
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}

		case <-c.done:
			return
		}
	}
}

// Hub manages WebSocket connections from headsets
type Hub struct {
	mu       sync.RWMutex
	headsets map[string]*Connection
	logger   *slog.Logger

	// Callbacks
	onGaze     func(headsetID string, gaze *protocol.GazeData)
	onLook     func(headsetID string, look *protocol.LookData)
	onShortcut func(headsetID string, sc *protocol.ShortcutData)
	onGPS      func(headsetID string, fix *protocol.GPSData)

	// Stats
	messagesReceived atomic.Uint64
	messagesSent     atomic.Uint64
	gazeReceived     atomic.Uint64
	dropped          atomic.Uint64
}

// NewHub creates a new headset hub
func NewHub() *Hub {
	return &Hub{
		headsets: make(map[string]*Connection),
		logger:   log.Component("headset"),
	}
}

// SetLogger replaces the hub logger.
func (h *Hub) SetLogger(l *slog.Logger) {
	h.mu.Lock()
	h.logger = l
	h.mu.Unlock()
}

// OnGaze sets the callback for raycast hits
func (h *Hub) OnGaze(callback func(headsetID string, gaze *protocol.GazeData)) {
	h.mu.Lock()
	h.onGaze = callback
	h.mu.Unlock()
}

// OnLook sets the callback for look input
func (h *Hub) OnLook(callback func(headsetID string, look *protocol.LookData)) {
	h.mu.Lock()
	h.onLook = callback
	h.mu.Unlock()
}

// OnShortcut sets the callback for digit shortcuts
func (h *Hub) OnShortcut(callback func(headsetID string, sc *protocol.ShortcutData)) {
	h.mu.Lock()
	h.onShortcut = callback
	h.mu.Unlock()
}

// OnGPS sets the callback for device location fixes
func (h *Hub) OnGPS(callback func(headsetID string, fix *protocol.GPSData)) {
	h.mu.Lock()
	h.onGPS = callback
	h.mu.Unlock()
}

// RegisterRoutes registers WebSocket routes on a Fiber app
func (h *Hub) RegisterRoutes(app *fiber.App) {
	app.Use("/ws/headset", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("allowed", true)
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/headset", websocket.New(h.handleHeadset))
	app.Get("/ws/headset/:id", websocket.New(h.handleHeadset))
}

// handleHeadset handles a headset WebSocket connection
func (h *Hub) handleHeadset(c *websocket.Conn) {
	headsetID := c.Params("id")
	if headsetID == "" {
		headsetID = uuid.NewString()
	}

	conn := newConnection(headsetID, c)
	exited := make(chan struct{})
	go conn.writePump(exited)

	h.mu.Lock()
	h.headsets[headsetID] = conn
	count := len(h.headsets)
	logger := h.logger
	h.mu.Unlock()
	metrics.HeadsetsConnected.Set(float64(count))
	logger.Info("headset connected", "headset", headsetID, "total", count)

	defer func() {
		conn.close()
		<-exited

		h.mu.Lock()
		// A reconnect under the same ID may already have replaced us.
		if h.headsets[headsetID] == conn {
			delete(h.headsets, headsetID)
		}
		count := len(h.headsets)
		h.mu.Unlock()
		metrics.HeadsetsConnected.Set(float64(count))
		logger.Info("headset disconnected", "headset", headsetID, "total", count)
	}()

	for {
		_, data, err := c.ReadMessage()
		if err != nil {
			logger.Debug("headset read error", "headset", headsetID, "error", err)
			return
		}

		conn.mu.Lock()
		conn.LastSeen = time.Now()
		conn.mu.Unlock()

		h.messagesReceived.Add(1)
		h.handleMessage(headsetID, data)
	}
}

// handleMessage processes an incoming message from a headset
func (h *Hub) handleMessage(headsetID string, data []byte) {
	h.mu.RLock()
	logger := h.logger
	gazeCb := h.onGaze
	lookCb := h.onLook
	shortcutCb := h.onShortcut
	gpsCb := h.onGPS
	h.mu.RUnlock()

	msg, err := protocol.ParseMessage(data)
	if err != nil {
		logger.Warn("parse error", "headset", headsetID, "error", err)
		return
	}

	switch msg.Type {
	case protocol.TypeGaze:
		h.gazeReceived.Add(1)
		if gazeCb != nil {
			if g, err := msg.GetGazeData(); err == nil {
				gazeCb(headsetID, g)
			}
		}

	case protocol.TypeLook:
		if lookCb != nil {
			if l, err := msg.GetLookData(); err == nil {
				lookCb(headsetID, l)
			}
		}

	case protocol.TypeShortcut:
		if shortcutCb != nil {
			if sc, err := msg.GetShortcutData(); err == nil {
				shortcutCb(headsetID, sc)
			}
		}

	case protocol.TypeGPS:
		if gpsCb != nil {
			if fix, err := msg.GetGPSData(); err == nil {
				gpsCb(headsetID, fix)
			}
		}

	case protocol.TypePing:
		id := ""
		if p, err := msg.GetPingData(); err == nil {
			id = p.ID
		}
		if err := h.SendPong(headsetID, id, msg.Timestamp); err != nil {
			logger.Debug("pong failed", "headset", headsetID, "error", err)
		}

	default:
		logger.Debug("ignoring message", "headset", headsetID, "type", msg.Type)
	}
}

// SendPong sends a pong response to a headset
func (h *Hub) SendPong(headsetID, id string, pingTS int64) error {
	msg, err := protocol.NewPongMessage(id, pingTS, time.Now().UnixMilli())
	if err != nil {
		return err
	}
	return h.sendTo(headsetID, msg)
}

// SendPose sends the actor pose to one headset
func (h *Hub) SendPose(headsetID, location string, p pose.Pose) error {
	msg, err := protocol.NewPoseMessage(location, p)
	if err != nil {
		return err
	}
	return h.sendTo(headsetID, msg)
}

// sendTo sends a message to a specific headset
func (h *Hub) sendTo(headsetID string, msg *protocol.Message) error {
	h.mu.RLock()
	conn, ok := h.headsets[headsetID]
	h.mu.RUnlock()

	if !ok {
		return fiber.NewError(fiber.StatusNotFound, "headset not connected")
	}

	if err := conn.Send(msg); err != nil {
		h.sendFailed(conn, err)
		return err
	}
	h.messagesSent.Add(1)
	return nil
}

// Broadcast sends a message to all connected headsets
func (h *Hub) Broadcast(msg *protocol.Message) {
	h.mu.RLock()
	conns := make([]*Connection, 0, len(h.headsets))
	for _, c := range h.headsets {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	for _, c := range conns {
		if err := c.Send(msg); err != nil {
			h.sendFailed(c, err)
			continue
		}
		h.messagesSent.Add(1)
	}
}

func (h *Hub) sendFailed(c *Connection, err error) {
	h.mu.RLock()
	logger := h.logger
	h.mu.RUnlock()

	if errors.Is(err, ErrSlowHeadset) {
		h.dropped.Add(1)
		logger.Warn("dropped slow headset", "headset", c.ID)
		return
	}
	logger.Debug("send error", "headset", c.ID, "error", err)
}

// Publish broadcasts a session snapshot as a state message. Hub implements
// session.Sink.
func (h *Hub) Publish(snap session.Snapshot) {
	if h.HeadsetCount() == 0 {
		return
	}
	msg, err := protocol.NewStateMessage(StateFromSnapshot(snap))
	if err != nil {
		return
	}
	h.Broadcast(msg)
}

// StateFromSnapshot converts a session snapshot to its wire form.
func StateFromSnapshot(snap session.Snapshot) protocol.StateData {
	return protocol.StateData{
		Tick:          snap.Tick,
		State:         snap.State,
		DwellProgress: snap.DwellProgress,
		Indicator:     snap.Indicator,
		Pose:          snap.Pose,
		Target:        snap.Target,
		Location:      snap.Location,
		Selected:      snap.Selected,
		Arrived:       snap.Arrived,
	}
}

// GetHeadset returns a headset connection by ID
func (h *Hub) GetHeadset(headsetID string) *Connection {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.headsets[headsetID]
}

// HeadsetCount returns the number of connected headsets
func (h *Hub) HeadsetCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.headsets)
}

// Stats contains hub statistics
type Stats struct {
	HeadsetCount     int    `json:"headset_count"`
	MessagesReceived uint64 `json:"messages_received"`
	MessagesSent     uint64 `json:"messages_sent"`
	GazeReceived     uint64 `json:"gaze_received"`
	Dropped          uint64 `json:"dropped"`
}

// GetStats returns hub statistics
func (h *Hub) GetStats() Stats {
	return Stats{
		HeadsetCount:     h.HeadsetCount(),
		MessagesReceived: h.messagesReceived.Load(),
		MessagesSent:     h.messagesSent.Load(),
		GazeReceived:     h.gazeReceived.Load(),
		Dropped:          h.dropped.Load(),
	}
}

// Info contains info about a connected headset
type Info struct {
	ID        string    `json:"id"`
	Connected time.Time `json:"connected"`
	LastSeen  time.Time `json:"last_seen"`
}

// GetInfos returns info about all connected headsets
func (h *Hub) GetInfos() []Info {
	h.mu.RLock()
	defer h.mu.RUnlock()

	infos := make([]Info, 0, len(h.headsets))
	for _, c := range h.headsets {
		c.mu.Lock()
		infos = append(infos, Info{
			ID:        c.ID,
			Connected: c.Connected,
			LastSeen:  c.LastSeen,
		})
		c.mu.Unlock()
	}
	return infos
}

// RegisterAPIRoutes registers API routes for headset management
func (h *Hub) RegisterAPIRoutes(api fiber.Router) {
	headsets := api.Group("/headsets")

	headsets.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"headsets": h.GetInfos(),
			"count":    h.HeadsetCount(),
		})
	})

	headsets.Get("/stats", func(c *fiber.Ctx) error {
		return c.JSON(h.GetStats())
	})

	// Push a pose to one headset, e.g. to resync after a reconnect
	headsets.Post("/:id/pose", func(c *fiber.Ctx) error {
		var cmd struct {
			Location string    `json:"location"`
			Pose     pose.Pose `json:"pose"`
		}
		if err := c.BodyParser(&cmd); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}

		if err := h.SendPose(c.Params("id"), cmd.Location, cmd.Pose); err != nil {
			if ferr, ok := err.(*fiber.Error); ok {
				return c.Status(ferr.Code).JSON(fiber.Map{"error": ferr.Message})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		}

		return c.JSON(fiber.Map{"status": "sent"})
	})
}
