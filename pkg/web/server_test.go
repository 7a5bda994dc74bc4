package web

import (
	"context"
	"encoding/json"
	"image"
	"image/color"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-vrtour/internal/log"
	"github.com/teslashibe/go-vrtour/pkg/gallery"
	"github.com/teslashibe/go-vrtour/pkg/gaze"
	"github.com/teslashibe/go-vrtour/pkg/geo"
	"github.com/teslashibe/go-vrtour/pkg/session"
	"github.com/teslashibe/go-vrtour/pkg/tour"
)

const testTour = `
name: museum
settings:
  dwell_threshold: 1
  tween_speed: 2
  curve: linear
locations:
  - id: lobby
    name: Lobby
    pose: {position: [0, 0, 0]}
  - id: hall
    name: Great Hall
    pose: {position: [4, 0, 0]}
`

func newTestGallery(t *testing.T) *gallery.Gallery {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 1))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	img.Set(1, 0, color.RGBA{G: 255, A: 255})

	red, _ := gallery.ParseColor("#ff0000")
	g, err := gallery.New([]gallery.Media{
		{
			Path:     "pano.jpg",
			Kind:     gallery.KindImage,
			Mask:     gallery.NewImageMask("pano-mask.png", img),
			Hotspots: []gallery.Hotspot{{Label: "door", Color: red}},
		},
		{Path: "walk.mp4", Kind: gallery.KindVideo, Mask: gallery.NewVideoMask("walk-mask.mp4")},
	})
	require.NoError(t, err)
	return g
}

func newTestServer(t *testing.T, addr string) (*Server, *session.Session) {
	t.Helper()
	tr, err := tour.Parse([]byte(testTour))
	require.NoError(t, err)

	sess, err := session.New(tr, session.DefaultConfig())
	require.NoError(t, err)
	sess.SetLogger(log.Discard())

	s := NewServer(addr, sess, Options{
		Gallery: newTestGallery(t),
		GPS:     &geo.Tracker{},
	})
	s.SetLogger(log.Discard())
	sess.AddSink(s)
	return s, sess
}

func do(t *testing.T, app *fiber.App, method, path, body string) (int, string) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(data)
}

func TestStatusAndLocations(t *testing.T) {
	s, _ := newTestServer(t, "")

	code, body := do(t, s.App(), "GET", "/api/status", "")
	require.Equal(t, http.StatusOK, code)

	var status StatusResponse
	require.NoError(t, json.Unmarshal([]byte(body), &status))
	assert.Equal(t, "museum", status.Tour)
	assert.Equal(t, "lobby", status.Snapshot.Location)
	assert.Equal(t, gaze.Idle, status.Snapshot.State)

	code, body = do(t, s.App(), "GET", "/api/locations", "")
	require.Equal(t, http.StatusOK, code)

	var locs []LocationInfo
	require.NoError(t, json.Unmarshal([]byte(body), &locs))
	require.Len(t, locs, 2)
	assert.True(t, locs[0].Current)
	assert.Equal(t, "Great Hall", locs[1].Name)
	assert.Equal(t, 1, locs[1].Index)
}

func TestJumpAndTween(t *testing.T) {
	s, sess := newTestServer(t, "")

	tests := []struct {
		name   string
		path   string
		status int
	}{
		{"tween to current", "/api/locations/0/tween", http.StatusConflict},
		{"jump out of range", "/api/locations/7/jump", http.StatusNotFound},
		{"bad index", "/api/locations/x/jump", http.StatusBadRequest},
		{"jump", "/api/locations/1/jump", http.StatusOK},
		{"tween back", "/api/locations/0/tween", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := do(t, s.App(), "POST", tt.path, "")
			assert.Equal(t, tt.status, code, body)
		})
	}

	snap := sess.Snapshot()
	assert.Equal(t, gaze.Tweening, snap.State)
	assert.Equal(t, "lobby", snap.Target)
}

func TestGazeRoutes(t *testing.T) {
	s, sess := newTestServer(t, "")

	code, _ := do(t, s.App(), "POST", "/api/gaze", `{"target":"hall"}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "hall", sess.Hit())

	// Three half-second ticks pass the 1s threshold.
	for i := 0; i < 3; i++ {
		sess.Step(0.5)
	}
	assert.Equal(t, gaze.Tweening, sess.Snapshot().State)
	code, body := do(t, s.App(), "GET", "/api/events", "")
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, `"type":"selected"`)
	assert.Contains(t, body, `"location":"hall"`)

	code, _ = do(t, s.App(), "DELETE", "/api/gaze", "")
	assert.Equal(t, http.StatusNoContent, code)
	assert.Empty(t, sess.Hit())

	code, _ = do(t, s.App(), "POST", "/api/reset", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, gaze.Idle, sess.Snapshot().State)
}

func TestLookRoute(t *testing.T) {
	s, sess := newTestServer(t, "")

	code, _ := do(t, s.App(), "POST", "/api/look", `{"yaw":-90,"pitch":80,"absolute":true}`)
	require.Equal(t, http.StatusNoContent, code)

	snap := sess.Step(0.1)
	fwd := snap.View.Forward()
	assert.Greater(t, fwd[0], 0.0, "expected view turned toward +X")
	assert.InDelta(t, 0.7071, fwd[1], 1e-3, "expected pitch clamped to 45")
}

func TestConfigRoutes(t *testing.T) {
	s, sess := newTestServer(t, "")

	code, body := do(t, s.App(), "GET", "/api/config", "")
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"dwell_threshold":1,"tween_speed":2,"curve":"linear"}`, body)

	code, body = do(t, s.App(), "PUT", "/api/config", `{"dwell_threshold":0.5,"curve":"ease-out"}`)
	require.Equal(t, http.StatusOK, code, body)
	assert.JSONEq(t, `{"dwell_threshold":0.5,"tween_speed":2,"curve":"ease-out"}`, body)
	assert.Equal(t, 0.5, sess.Config().DwellThreshold)

	code, _ = do(t, s.App(), "PUT", "/api/config", `{"curve":"bouncy"}`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = do(t, s.App(), "PUT", "/api/config", `{"tween_speed":-1}`)
	assert.Equal(t, http.StatusBadRequest, code)

	// A reload brings the tour's own settings back.
	tr, err := tour.Parse([]byte(testTour))
	require.NoError(t, err)
	_, err = sess.ReloadTour(tr)
	require.NoError(t, err)
	_, body = do(t, s.App(), "GET", "/api/config", "")
	assert.JSONEq(t, `{"dwell_threshold":1,"tween_speed":2,"curve":"linear"}`, body)
}

func TestGalleryRoutes(t *testing.T) {
	s, _ := newTestServer(t, "")

	code, body := do(t, s.App(), "GET", "/api/gallery", "")
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, `"index":0`)
	assert.Contains(t, body, "pano.jpg")

	code, body = do(t, s.App(), "POST", "/api/gallery/probe", `{"u":0.1,"v":0.5}`)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, `"found":true`)
	assert.Contains(t, body, `"door"`)

	code, body = do(t, s.App(), "POST", "/api/gallery/probe", `{"u":0.9,"v":0.5}`)
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"found":false}`, body)

	code, body = do(t, s.App(), "POST", "/api/gallery/next", "")
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "walk.mp4")

	code, _ = do(t, s.App(), "POST", "/api/gallery/probe", `{"u":0.5,"v":0.5}`)
	assert.Equal(t, http.StatusUnprocessableEntity, code)

	code, body = do(t, s.App(), "POST", "/api/gallery/prev", "")
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, `"index":0`)
}

func TestGPSRoutes(t *testing.T) {
	s, _ := newTestServer(t, "")

	code, _ := do(t, s.App(), "GET", "/api/gps", "")
	assert.Equal(t, http.StatusNotFound, code)

	do(t, s.App(), "POST", "/api/gps", `{"lat":0,"lon":0}`)
	code, body := do(t, s.App(), "POST", "/api/gps", `{"lat":0,"lon":1}`)
	require.Equal(t, http.StatusOK, code)

	var fix geo.Fix
	require.NoError(t, json.Unmarshal([]byte(body), &fix))
	assert.InDelta(t, 111195, fix.Distance, 10)
	// Direction points back along the way travelled.
	assert.InDelta(t, 270, fix.Direction, 1e-6)
}

func TestDisabledRoutes(t *testing.T) {
	tr, err := tour.Parse([]byte(testTour))
	require.NoError(t, err)
	sess, err := session.New(tr, session.DefaultConfig())
	require.NoError(t, err)

	s := NewServer("", sess, Options{})
	code, _ := do(t, s.App(), "GET", "/api/gallery", "")
	assert.Equal(t, http.StatusNotFound, code)
	code, _ = do(t, s.App(), "GET", "/api/gps", "")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestMetricsEndpoint(t *testing.T) {
	s, _ := newTestServer(t, "")

	code, body := do(t, s.App(), "GET", "/metrics", "")
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "vrtour_arrivals_total")
}

func TestStatusWebSocket(t *testing.T) {
	s, sess := newTestServer(t, ":18190")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	time.Sleep(100 * time.Millisecond)

	ws, _, err := websocket.DefaultDialer.Dial("ws://localhost:18190/ws/status", nil)
	require.NoError(t, err)

	read := func() map[string]any {
		ws.SetReadDeadline(time.Now().Add(2 * time.Second))
		var ev map[string]any
		require.NoError(t, ws.ReadJSON(&ev))
		return ev
	}

	first := read()
	assert.Equal(t, "state", first["type"])

	// Wait for the client to be registered before publishing.
	deadline := time.Now().Add(2 * time.Second)
	for s.statusHub.ClientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	sess.Step(0.1)
	next := read()
	assert.Equal(t, "state", next["type"])

	ws.Close()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}
}
