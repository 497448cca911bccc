// Package config holds the player daemon's settings.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/progrium/tapeplay/channel"
	"github.com/progrium/tapeplay/protocol"
)

type Transport string

const (
	TransportWebsocket Transport = "websocket"
	TransportRelay     Transport = "relay"
	TransportRoom      Transport = "room"
)

type Config struct {
	// Video
	VideoURL  string
	PosterURL string
	VideoID   string
	// Output is where the ffmpeg surface streams to, e.g. an rtmp url.
	Output string

	// Coordinator
	CoordinatorURL string
	Form           protocol.Form
	TickInterval   time.Duration
	ReportTimeout  time.Duration

	// Control
	SeekEpsilon   float64
	Transport     Transport
	Listen        string
	MessagingPath string
	RouterURL     string
	HubURL        string
	Room          channel.RoomInfo

	NgrokToken string
	ServiceURL string
}

func Default() Config {
	return Config{
		Output:         "rtmp://localhost:1935/live/kiosk",
		CoordinatorURL: "http://localhost:8000",
		Form:           protocol.FormCurrent,
		TickInterval:   500 * time.Millisecond,
		ReportTimeout:  2 * time.Second,
		SeekEpsilon:    5,
		Transport:      TransportWebsocket,
		Listen:         ":8081",
		MessagingPath:  "/messaging",
		Room: channel.RoomInfo{
			URL:  "ws://localhost:7880",
			Room: "kiosk",
		},
	}
}

// FromEnv overlays settings found in the environment.
func FromEnv(c Config) Config {
	set := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	set(&c.CoordinatorURL, "FT_CONTROLLER_URL")
	set(&c.NgrokToken, "NGROK_TOKEN")
	set(&c.ServiceURL, "SERVICE_URL")
	set(&c.Room.URL, "LIVEKIT_URL")
	set(&c.Room.APIKey, "LIVEKIT_API_KEY")
	set(&c.Room.APISecret, "LIVEKIT_API_SECRET")
	return c
}

// Load returns the defaults overlaid with the environment.
func Load() Config {
	return FromEnv(Default())
}

// Validate checks the config and fills in a video id for the current
// heartbeat form when none was given.
func (c *Config) Validate() error {
	if c.VideoURL == "" {
		return errors.New("no video url")
	}
	if _, err := protocol.ParseForm(string(c.Form)); err != nil {
		return err
	}
	if c.Form == protocol.FormCurrent && c.VideoID == "" {
		c.VideoID = uuid.NewString()
	}
	if c.TickInterval <= 0 {
		return fmt.Errorf("tick interval must be positive, got %s", c.TickInterval)
	}
	if c.SeekEpsilon < 0 {
		return fmt.Errorf("seek epsilon must not be negative, got %v", c.SeekEpsilon)
	}
	if _, err := url.ParseRequestURI(c.CoordinatorURL); err != nil {
		return fmt.Errorf("coordinator url: %w", err)
	}
	switch c.Transport {
	case TransportWebsocket:
	case TransportRelay:
		if c.HubURL == "" {
			return errors.New("relay transport needs a hub url")
		}
	case TransportRoom:
		if c.Room.APIKey == "" || c.Room.APISecret == "" {
			return errors.New("room transport needs LIVEKIT_API_KEY and LIVEKIT_API_SECRET")
		}
	default:
		return fmt.Errorf("unknown transport %q", c.Transport)
	}
	return nil
}
