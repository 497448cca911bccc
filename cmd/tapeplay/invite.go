package main

import (
	"fmt"
	"log"
	"net/url"
	"time"

	"github.com/progrium/tapeplay/channel"
	"github.com/progrium/tapeplay/config"
	"github.com/rs/xid"
	"tractor.dev/toolkit-go/engine/cli"
)

func inviteCmd() *cli.Command {
	cfg := config.Load()
	var validFor time.Duration
	cmd := &cli.Command{
		Usage:  "invite [identity]",
		Short:  "issue a controller token for the room transport",
		Hidden: true,
		Run: func(ctx *cli.Context, args []string) {
			identity := "controller-" + xid.New().String()
			if len(args) > 0 {
				identity = args[0]
			}
			token, err := channel.Invite(cfg.Room, identity, validFor)
			if err != nil {
				log.Fatal("invite:", err)
			}
			fmt.Println(token)
			meetURL := "https://meet.livekit.io/custom?liveKitUrl=%s&token=%s"
			fmt.Printf(meetURL+"\n", url.QueryEscape(cfg.Room.URL), token)
		},
	}
	cmd.Flags().StringVar(&cfg.Room.Room, "room", cfg.Room.Room, "livekit room name")
	cmd.Flags().DurationVar(&validFor, "valid-for", 3*time.Hour, "token lifetime")
	return cmd
}
