package player

import (
	"log"
	"math"

	"github.com/progrium/tapeplay/media"
	"github.com/progrium/tapeplay/protocol"
)

// DefaultSeekEpsilon is how far, in seconds, a scrub target must be from the
// current position before it causes a seek. Redundant or slightly stale
// scrubs inside this window are dropped.
const DefaultSeekEpsilon = 5.0

// Sender delivers outbound messages to controllers.
type Sender interface {
	Send(msg protocol.Outbound) error
}

// Controller applies controller messages to a media surface. It keeps no
// playback state of its own; everything is read from the surface when needed.
type Controller struct {
	Surface     media.Surface
	Out         Sender
	SeekEpsilon float64
}

func NewController(surface media.Surface, out Sender) *Controller {
	return &Controller{
		Surface:     surface,
		Out:         out,
		SeekEpsilon: DefaultSeekEpsilon,
	}
}

func (c *Controller) HandleMessage(msg protocol.Inbound) {
	switch m := msg.(type) {
	case protocol.Toggle:
		c.toggle()
	case protocol.Scrub:
		c.scrub(m.Progress)
	case protocol.Jump:
		c.jump(m.Delta)
	}
}

func (c *Controller) toggle() {
	state := protocol.StatePaused
	if c.Surface.Paused() {
		c.Surface.Play()
		state = protocol.StatePlaying
	} else {
		c.Surface.Pause()
	}
	log.Println("player:", state)
	c.send(protocol.StateChanged{State: state})
}

func (c *Controller) scrub(progress float64) {
	duration := c.Surface.Duration()
	if !media.Known(duration) || math.IsNaN(progress) {
		return
	}
	target := duration * math.Max(0, math.Min(progress, 1))
	current := c.Surface.CurrentTime()
	if media.Known(current) && math.Abs(current-target) <= c.SeekEpsilon {
		return
	}
	c.Surface.SetCurrentTime(target)
}

func (c *Controller) jump(delta float64) {
	if !media.Known(c.Surface.Duration()) || !media.Known(delta) {
		return
	}
	current := c.Surface.CurrentTime()
	if !media.Known(current) {
		return
	}
	c.Surface.SetCurrentTime(current + delta)
}

// HandleEnded tells controllers the surface stopped on its own at the end of
// the video.
func (c *Controller) HandleEnded() {
	log.Println("player: ended")
	c.send(protocol.StateChanged{State: protocol.StatePaused})
}

func (c *Controller) send(msg protocol.Outbound) {
	if c.Out == nil {
		return
	}
	if err := c.Out.Send(msg); err != nil {
		log.Println("player: send:", err)
	}
}
