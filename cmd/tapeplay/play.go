package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/progrium/tapeplay/channel"
	"github.com/progrium/tapeplay/config"
	"github.com/progrium/tapeplay/ffmpeg"
	"github.com/progrium/tapeplay/heartbeat"
	"github.com/progrium/tapeplay/media"
	"github.com/progrium/tapeplay/player"
	"github.com/progrium/tapeplay/protocol"
	"github.com/progrium/tapeplay/server"
	"github.com/rs/xid"
	"tractor.dev/toolkit-go/engine/cli"
)

func playCmd() *cli.Command {
	cfg := config.Load()
	var transport, form string

	cmd := &cli.Command{
		Usage: "play <video-url>",
		Short: "play a video under remote control and report its end time",
		Args:  cli.MinArgs(1),
		Run: func(ctx *cli.Context, args []string) {
			cfg.VideoURL = args[0]
			cfg.Transport = config.Transport(transport)
			cfg.Form = protocol.Form(form)
			if err := cfg.Validate(); err != nil {
				log.Fatal("config:", err)
			}
			if err := runPlayer(cfg); err != nil {
				log.Fatal(err)
			}
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&cfg.PosterURL, "poster", cfg.PosterURL, "poster image shown while paused")
	flags.StringVar(&cfg.VideoID, "id", cfg.VideoID, "video id reported to the coordinator")
	flags.StringVar(&cfg.Output, "output", cfg.Output, "where ffmpeg streams the video")
	flags.StringVar(&cfg.CoordinatorURL, "coordinator", cfg.CoordinatorURL, "coordinator base url")
	flags.StringVar(&form, "form", string(cfg.Form), "heartbeat form: current or legacy")
	flags.DurationVar(&cfg.TickInterval, "tick", cfg.TickInterval, "heartbeat interval")
	flags.DurationVar(&cfg.ReportTimeout, "report-timeout", cfg.ReportTimeout, "give up on a heartbeat after this long")
	flags.Float64Var(&cfg.SeekEpsilon, "seek-epsilon", cfg.SeekEpsilon, "ignore scrubs closer than this many seconds")
	flags.StringVar(&transport, "transport", string(cfg.Transport), "controller transport: websocket, relay or room")
	flags.StringVar(&cfg.Listen, "listen", cfg.Listen, "http listen address")
	flags.StringVar(&cfg.MessagingPath, "path", cfg.MessagingPath, "websocket path controllers connect to")
	flags.StringVar(&cfg.RouterURL, "router", cfg.RouterURL, "proxy /router/ to this messaging router")
	flags.StringVar(&cfg.HubURL, "hub", cfg.HubURL, "relay hub url")
	flags.StringVar(&cfg.Room.Room, "room", cfg.Room.Room, "livekit room name")
	return cmd
}

func runPlayer(cfg config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	src, err := media.ResolveSource(cfg.VideoURL)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", cfg.VideoURL, err)
	}

	surface := ffmpeg.NewSurface(cfg.Output)
	defer surface.Close()

	mux := http.NewServeMux()
	ch, err := newChannel(cfg, mux)
	if err != nil {
		return err
	}

	reporter := &heartbeat.Reporter{
		Surface:     surface,
		Coordinator: heartbeat.NewHTTPCoordinator(cfg.CoordinatorURL, cfg.Form),
		Progress:    ch,
		Form:        cfg.Form,
		ID:          cfg.VideoID,
		Timeout:     cfg.ReportTimeout,
	}
	sess := player.NewSession(surface, ch, reporter)
	sess.Interval = cfg.TickInterval
	sess.Controller.SeekEpsilon = cfg.SeekEpsilon
	sess.Load(src, cfg.PosterURL)

	if cfg.RouterURL != "" {
		proxy, err := server.ProxyRouter(cfg.RouterURL)
		if err != nil {
			return fmt.Errorf("router: %w", err)
		}
		mux.Handle("/router/", http.StripPrefix("/router", proxy))
	}

	l, err := server.Listen(ctx, cfg.Listen, cfg.NgrokToken)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	srv := &http.Server{Handler: mux}
	go func() {
		if err := srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Println("http:", err)
		}
	}()
	defer srv.Close()

	serviceURL := server.ServiceURL(l, cfg.ServiceURL)
	if cfg.Transport == config.TransportWebsocket {
		log.Println("controllers:", server.WebsocketURL(serviceURL, cfg.MessagingPath))
	}
	log.Println("playing", cfg.VideoURL, "id", cfg.VideoID, "via", cfg.Transport)

	err = sess.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func newChannel(cfg config.Config, mux *http.ServeMux) (channel.Channel, error) {
	switch cfg.Transport {
	case config.TransportRelay:
		id := cfg.VideoID
		if id == "" {
			id = xid.New().String()
		}
		return channel.NewRelay(cfg.HubURL, id)
	case config.TransportRoom:
		return channel.NewRoom(cfg.Room, "player-"+xid.New().String()), nil
	default:
		return channel.NewWebsocket(mux, cfg.MessagingPath), nil
	}
}
