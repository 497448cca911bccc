package main

import (
	"context"
	"log"
	"os"

	"tractor.dev/toolkit-go/engine/cli"
)

var Version = "dev"

func main() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	root := &cli.Command{
		Version: Version,
		Usage:   "tapeplay",
	}

	root.AddCommand(playCmd())
	root.AddCommand(remoteCmd())
	root.AddCommand(currentCmd())
	root.AddCommand(inviteCmd())

	if err := cli.Execute(context.Background(), root, os.Args[1:]); err != nil {
		log.Fatal(err)
	}
}
