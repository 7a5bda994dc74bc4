// vrtour: gaze dwell-to-select tour server
// Drives the selection session, accepts headset connections and serves the
// control dashboard.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/teslashibe/go-vrtour/internal/config"
	"github.com/teslashibe/go-vrtour/internal/log"
	"github.com/teslashibe/go-vrtour/pkg/gallery"
	"github.com/teslashibe/go-vrtour/pkg/geo"
	"github.com/teslashibe/go-vrtour/pkg/headset"
	"github.com/teslashibe/go-vrtour/pkg/protocol"
	"github.com/teslashibe/go-vrtour/pkg/session"
	"github.com/teslashibe/go-vrtour/pkg/tour"
	"github.com/teslashibe/go-vrtour/pkg/web"
)

var (
	port        = flag.String("port", config.Port(), "HTTP server port")
	tourFile    = flag.String("tour", config.TourFile(), "Tour YAML file")
	galleryFile = flag.String("gallery", config.GalleryFile(), "Gallery manifest YAML (optional)")
	tickHz      = flag.Float64("tick-hz", config.TickHz(), "Session update rate")
	logLevel    = flag.String("log-level", config.LogLevel(), "Log level (debug, info, warn, error)")
	staticDir   = flag.String("static", "", "Directory served at / (optional)")
	watch       = flag.Bool("watch", true, "Reload the tour when the file changes")
	debug       = flag.Bool("debug", false, "Log every HTTP request")
)

func main() {
	flag.Parse()
	log.Init(*logLevel)

	if err := run(); err != nil {
		log.Error("vrtour failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	holder, err := config.LoadHolder(*tourFile)
	if err != nil {
		return err
	}

	opts := web.Options{
		GPS:       &geo.Tracker{},
		Headsets:  headset.NewHub(),
		StaticDir: *staticDir,
		Debug:     *debug,
	}
	if *galleryFile != "" {
		g, err := gallery.LoadManifest(*galleryFile)
		if err != nil {
			return err
		}
		opts.Gallery = g
		log.Info("gallery loaded", "items", g.Len())
	}

	cfg := session.DefaultConfig()
	cfg.TickHz = *tickHz
	sess, err := session.New(holder.Get(), cfg)
	if err != nil {
		return err
	}

	wireHeadsets(opts.Headsets, sess, opts.GPS)

	server := web.NewServer(":"+*port, sess, opts)
	sess.AddSink(server)
	sess.AddSink(opts.Headsets)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("vrtour starting",
		"tour", holder.Get().Name,
		"locations", holder.Get().Len(),
		"dashboard", fmt.Sprintf("http://localhost:%s", *port),
		"headsets", fmt.Sprintf("ws://localhost:%s/ws/headset", *port),
	)

	if err := serve(ctx, sess, server, holder, *watch); err != nil {
		return err
	}
	log.Info("vrtour stopped")
	return nil
}

// serve runs the session, the HTTP server and, when watch is set, the tour
// reloader until ctx is cancelled or one of them fails. The watcher starts
// first so a failure there returns before anything else is running.
func serve(ctx context.Context, sess *session.Session, server *web.Server, holder *config.Holder, watch bool) error {
	var reloads chan *tour.Tour
	if watch {
		reloads = make(chan *tour.Tour, 1)
		holder.RegisterListener(reloads)
		if err := holder.StartWatcher(ctx); err != nil {
			return err
		}
		defer holder.Stop()
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return sess.Run(ctx) })
	g.Go(func() error { return server.Run(ctx) })
	if reloads != nil {
		g.Go(func() error { return applyReloads(ctx, sess, reloads) })
	}
	return g.Wait()
}

// wireHeadsets routes headset input into the session. All headsets share
// one session: the latest hit from any of them wins.
func wireHeadsets(h *headset.Hub, sess *session.Session, gps *geo.Tracker) {
	logger := log.Component("vrtour")

	h.OnGaze(func(id string, g *protocol.GazeData) {
		sess.SetHit(g.Target)
	})

	h.OnLook(func(id string, l *protocol.LookData) {
		if l.Absolute {
			sess.SetView(l.Yaw, l.Pitch)
			return
		}
		sess.Look(l.DX, l.DY)
	})

	h.OnShortcut(func(id string, sc *protocol.ShortcutData) {
		if err := sess.Shortcut(sc.Digit); err != nil {
			logger.Debug("shortcut ignored", "headset", id, "digit", sc.Digit, "error", err)
		}
	})

	h.OnGPS(func(id string, fix *protocol.GPSData) {
		f := gps.Update(geo.Coord{Lat: fix.Lat, Lon: fix.Lon})
		logger.Debug("gps fix", "headset", id, "distance_m", f.Distance, "direction_deg", f.Direction)
	})
}

func applyReloads(ctx context.Context, sess *session.Session, reloads <-chan *tour.Tour) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case t := <-reloads:
			applied, err := sess.ReloadTour(t)
			if err != nil {
				log.Warn("reloaded tour rejected", "tour", t.Name, "error", err)
				continue
			}
			log.Info("reloaded tour queued", "tour", t.Name, "applied", applied)
		}
	}
}
