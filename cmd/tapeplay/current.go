package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/progrium/tapeplay/config"
	"github.com/progrium/tapeplay/heartbeat"
	"tractor.dev/toolkit-go/engine/cli"
)

func currentCmd() *cli.Command {
	cfg := config.Load()
	cmd := &cli.Command{
		Usage: "current",
		Short: "show what the coordinator thinks is playing",
		Run: func(ctx *cli.Context, args []string) {
			c := heartbeat.NewHTTPCoordinator(cfg.CoordinatorURL, cfg.Form)
			reqCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			cur, err := c.Current(reqCtx)
			if err != nil {
				log.Fatal("current:", err)
			}
			if cur == nil {
				fmt.Println("nothing playing")
				return
			}
			fmt.Println("ID:", cur.ID)
			if ends, ok := cur.Ends(); ok {
				fmt.Println("ENDS:", ends.Format(time.RFC3339), "in", time.Until(ends).Round(time.Second))
			}
			if cur.Lock != nil && cur.Lock != false {
				fmt.Println("LOCK:", cur.Lock)
			}
		},
	}
	cmd.Flags().StringVar(&cfg.CoordinatorURL, "coordinator", cfg.CoordinatorURL, "coordinator base url")
	return cmd
}
