// Package heartbeat tells the coordinator when the current video will end.
package heartbeat

import (
	"context"
	"log"
	"time"

	"github.com/progrium/tapeplay/media"
	"github.com/progrium/tapeplay/protocol"
)

const DefaultTimeout = 2 * time.Second

// Coordinator receives projected end times.
type Coordinator interface {
	Report(ctx context.Context, hb protocol.Heartbeat) error
}

// Sender delivers outbound messages to controllers.
type Sender interface {
	Send(msg protocol.Outbound) error
}

// Reporter samples the surface once per tick. Reports are fire-and-forget:
// a lost report is replaced by the next tick, so nothing is retried or queued
// and no tick waits on an earlier one.
type Reporter struct {
	Surface     media.Surface
	Coordinator Coordinator
	// Progress, if set, also receives a Progress message every tick.
	Progress Sender
	Form     protocol.Form
	ID       string
	Timeout  time.Duration
}

// Tick reports the projected end time as of now. It reports nothing while
// the current time or duration is unknown or zero.
func (r *Reporter) Tick(ctx context.Context, now time.Time) (protocol.Heartbeat, bool) {
	current := r.Surface.CurrentTime()
	duration := r.Surface.Duration()
	if !media.Known(current) || !media.Known(duration) || current == 0 || duration == 0 {
		return protocol.Heartbeat{}, false
	}

	hb := protocol.NewHeartbeat(r.Form, r.ID, now, duration-current)
	if r.Coordinator != nil {
		go r.deliver(ctx, hb)
	}
	if r.Progress != nil {
		msg := protocol.Progress{Progress: current / duration, Duration: duration}
		if err := r.Progress.Send(msg); err != nil {
			log.Println("heartbeat: progress:", err)
		}
	}
	return hb, true
}

func (r *Reporter) deliver(ctx context.Context, hb protocol.Heartbeat) {
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := r.Coordinator.Report(ctx, hb); err != nil && ctx.Err() == nil {
		log.Println("heartbeat:", err)
	}
}
