package main

import (
	"fmt"
	"log"
	"net/url"
	"strconv"
	"strings"

	"github.com/progrium/tapeplay/ffmpeg"
	"github.com/progrium/tapeplay/protocol"
	"golang.org/x/net/websocket"
	"tractor.dev/toolkit-go/engine/cli"
)

func remoteCmd() *cli.Command {
	var watch bool
	cmd := &cli.Command{
		Usage: "remote <player-url> <toggle|scrub|seek|jump|fwd|back> [arg]",
		Short: "send a control message to a player",
		Args:  cli.MinArgs(2),
		Run: func(ctx *cli.Context, args []string) {
			c := remoteCmds()[args[1]]
			if c == nil {
				log.Fatalf("unknown command: %s", args[1])
			}
			msg, err := c(args[2:])
			if err != nil {
				log.Fatal(err)
			}

			ws, err := dialPlayer(args[0])
			if err != nil {
				log.Fatal("dial:", err)
			}
			defer ws.Close()

			data, err := protocol.EncodeInbound(msg)
			if err != nil {
				log.Fatal(err)
			}
			if err := websocket.Message.Send(ws, string(data)); err != nil {
				log.Fatal("send:", err)
			}
			if watch || args[1] == "toggle" {
				monitorPlayer(ws, watch)
			}
		},
	}
	cmd.Flags().BoolVar(&watch, "watch", false, "keep printing player state and progress")
	return cmd
}

func remoteCmds() map[string]func([]string) (protocol.Inbound, error) {
	toggle := func(args []string) (protocol.Inbound, error) {
		return protocol.Toggle{}, nil
	}
	scrub := func(args []string) (protocol.Inbound, error) {
		if len(args) == 0 {
			return nil, fmt.Errorf("scrub needs a position like 0.5 or 50%%")
		}
		progress, err := parseProgress(args[0])
		if err != nil {
			return nil, err
		}
		return protocol.Scrub{Progress: progress}, nil
	}
	jump := func(args []string) (protocol.Inbound, error) {
		delta := "10"
		if len(args) > 0 {
			delta = args[0]
		}
		secs, err := parseDelta(delta)
		if err != nil {
			return nil, err
		}
		return protocol.Jump{Delta: secs}, nil
	}
	back := func(args []string) (protocol.Inbound, error) {
		msg, err := jump(args)
		if err != nil {
			return nil, err
		}
		j := msg.(protocol.Jump)
		if j.Delta > 0 {
			j.Delta = -j.Delta
		}
		return j, nil
	}
	return map[string]func([]string) (protocol.Inbound, error){
		"toggle":  toggle,
		"scrub":   scrub,
		"seek":    scrub,
		"jump":    jump,
		"fwd":     jump,
		"forward": jump,
		"back":    back,
	}
}

// parseProgress accepts a fraction ("0.25") or a percentage ("25%").
func parseProgress(s string) (float64, error) {
	scale := 1.0
	num := s
	if p, ok := strings.CutSuffix(s, "%"); ok {
		scale, num = 100, p
	}
	v, err := strconv.ParseFloat(num, 64)
	v /= scale
	if err != nil || v < 0 || v > 1 {
		return 0, fmt.Errorf("invalid progress: %s", s)
	}
	return v, nil
}

// parseDelta accepts signed seconds ("-10", "2.5") or a signed timestamp ("-01:30").
func parseDelta(s string) (float64, error) {
	sign := 1.0
	if rest, ok := strings.CutPrefix(s, "-"); ok {
		sign, s = -1, rest
	} else {
		s = strings.TrimPrefix(s, "+")
	}
	if strings.Contains(s, ":") {
		ms, err := ffmpeg.ParseTimeToMs(s)
		if err != nil {
			return 0, err
		}
		return sign * float64(ms) / 1000, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid delta: %s", s)
	}
	return sign * v, nil
}

func dialPlayer(playerURL string) (*websocket.Conn, error) {
	u, err := url.Parse(playerURL)
	if err != nil {
		return nil, err
	}
	origin := *u
	origin.Path = ""
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "wss":
		origin.Scheme = "https"
	default:
		origin.Scheme = "http"
	}
	if u.Path == "" {
		u.Path = "/messaging"
	}
	return websocket.Dial(u.String(), "", origin.String())
}

// monitorPlayer prints player messages. Without watch it returns after the
// first state message.
func monitorPlayer(ws *websocket.Conn, watch bool) {
	for {
		var data []byte
		if err := websocket.Message.Receive(ws, &data); err != nil {
			log.Println("player:", err)
			return
		}
		msg, err := protocol.DecodeOutbound(data)
		if err != nil {
			log.Println("player:", err)
			continue
		}
		switch m := msg.(type) {
		case protocol.StateChanged:
			fmt.Println("STATE:", m.State)
			if !watch {
				return
			}
		case protocol.Progress:
			if watch {
				pos := int(m.Progress * m.Duration * 1000)
				fmt.Printf("TIME: %s / %s\n", ffmpeg.FormatTimeMs(pos), ffmpeg.FormatTimeMs(int(m.Duration*1000)))
			}
		}
	}
}
