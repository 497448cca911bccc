package player

import (
	"log"

	"github.com/progrium/tapeplay/channel"
	"github.com/progrium/tapeplay/media"
)

// Lifecycle resumes playback whenever a controller goes away, so a display
// is never left paused with nobody able to unpause it.
type Lifecycle struct {
	Surface media.Surface
}

func (l *Lifecycle) HandleConnection(conn channel.Connection) {
	log.Println("player: controller", conn.ID())
	conn.OnClose(func() {
		log.Println("player: controller", conn.ID(), "closed, resuming")
		l.Surface.Play()
	})
}
