// gazeprobe: headset simulator for a running vrtour server
// Connects as a headset, holds a gaze target or presses a shortcut, and
// prints state changes until the actor arrives or the timeout expires.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/websocket"

	"github.com/teslashibe/go-vrtour/internal/httpc"
	"github.com/teslashibe/go-vrtour/internal/log"
	"github.com/teslashibe/go-vrtour/pkg/protocol"
	"github.com/teslashibe/go-vrtour/pkg/web"
)

var (
	server   = flag.String("server", "localhost:8080", "vrtour host:port")
	id       = flag.String("id", "gazeprobe", "Headset ID")
	target   = flag.String("target", "", "Location ID to look at")
	shortcut = flag.Int("shortcut", 0, "Digit shortcut to press (1-9)")
	timeout  = flag.Duration("timeout", 30*time.Second, "Give up after this long")
)

func main() {
	flag.Parse()
	log.Init("info")

	if *target == "" && *shortcut == 0 {
		fmt.Fprintln(os.Stderr, "Error: one of -target or -shortcut is required")
		fmt.Fprintln(os.Stderr, "Usage: gazeprobe -server localhost:8080 -target hall")
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	if err := run(ctx); err != nil {
		log.Error("gazeprobe failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	var status web.StatusResponse
	if err := httpc.GetJSON(ctx, "http://"+*server+"/api/status", &status); err != nil {
		return fmt.Errorf("server status: %w", err)
	}
	fmt.Printf("tour %q, at %q (%s)\n", status.Tour, status.Snapshot.Location, status.Snapshot.State)

	u := url.URL{Scheme: "ws", Host: *server, Path: "/ws/headset/" + *id}
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", u.String(), err)
	}
	defer ws.Close()

	// Unblock the read loop on timeout or signal
	go func() {
		<-ctx.Done()
		ws.Close()
	}()

	var msg *protocol.Message
	if *target != "" {
		msg, err = protocol.NewGazeMessage(*target)
	} else {
		msg, err = protocol.NewShortcutMessage(*shortcut)
	}
	if err != nil {
		return err
	}
	if err := send(ws, msg); err != nil {
		return err
	}
	if ping, err := protocol.NewPingMessage(*id); err == nil {
		send(ws, ping)
	}

	return watch(ctx, ws)
}

// watch prints state transitions until arrival.
func watch(ctx context.Context, ws *websocket.Conn) error {
	var last protocol.StateData
	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return fmt.Errorf("no arrival: %w", ctx.Err())
			}
			return err
		}
		msg, err := protocol.ParseMessage(data)
		if err != nil {
			continue
		}

		switch msg.Type {
		case protocol.TypePong:
			if p, err := msg.GetPongData(); err == nil {
				fmt.Printf("latency %dms\n", p.LatencyMs)
			}

		case protocol.TypeState:
			st, err := msg.GetStateData()
			if err != nil {
				continue
			}
			if st.State != last.State || st.Target != last.Target {
				fmt.Printf("%-9s target=%q progress=%.2f\n", st.State, st.Target, st.DwellProgress)
			}
			last = *st
			if st.Arrived {
				fmt.Printf("arrived at %q: %s\n", st.Location, st.Pose)
				// Stop holding the gaze on the way out.
				if clear, err := protocol.NewGazeMessage(""); err == nil {
					send(ws, clear)
				}
				return nil
			}
		}
	}
}

func send(ws *websocket.Conn, msg *protocol.Message) error {
	data, err := msg.Bytes()
	if err != nil {
		return err
	}
	return ws.WriteMessage(websocket.TextMessage, data)
}
