package player

import (
	"context"
	"log"
	"sync/atomic"
	"time"

	"github.com/progrium/tapeplay/channel"
	"github.com/progrium/tapeplay/heartbeat"
	"github.com/progrium/tapeplay/media"
	"github.com/progrium/tapeplay/protocol"
)

const DefaultTickInterval = 500 * time.Millisecond

// Session wires a surface, a channel and a reporter onto one Loop. The
// channel's callbacks arrive on its own goroutines and are re-posted to the
// loop, so the surface is only ever driven from one place.
type Session struct {
	Surface    media.Surface
	Channel    channel.Channel
	Controller *Controller
	Lifecycle  *Lifecycle
	Reporter   *heartbeat.Reporter
	Interval   time.Duration

	loop *Loop
}

func NewSession(surface media.Surface, ch channel.Channel, reporter *heartbeat.Reporter) *Session {
	return &Session{
		Surface:    surface,
		Channel:    ch,
		Controller: NewController(surface, ch),
		Lifecycle:  &Lifecycle{Surface: surface},
		Reporter:   reporter,
		Interval:   DefaultTickInterval,
		loop:       NewLoop(),
	}
}

// Load sets the source and poster and starts playing once the session runs.
func (s *Session) Load(src, poster string) {
	s.loop.Post(func() {
		s.Surface.SetSrc(src)
		if poster != "" {
			s.Surface.SetPoster(poster)
		}
		s.Surface.Play()
		log.Println("player: loaded", src)
	})
}

// Post runs fn on the session loop.
func (s *Session) Post(fn func()) bool {
	return s.loop.Post(fn)
}

// Run mounts the channel and processes events until ctx is done. The ticker
// and the channel are torn down before it returns.
func (s *Session) Run(ctx context.Context) error {
	s.Channel.OnMessage(func(msg protocol.Inbound) {
		s.loop.Post(func() { s.Controller.HandleMessage(msg) })
	})
	s.Channel.OnConnection(func(c channel.Connection) {
		lc := &loopConn{Connection: c, loop: s.loop}
		s.loop.Post(func() { s.Lifecycle.HandleConnection(lc) })
	})
	if e, ok := s.Surface.(interface{ OnEnded(func()) }); ok {
		e.OnEnded(func() {
			s.loop.Post(s.Controller.HandleEnded)
		})
	}

	if err := s.Channel.Mount(); err != nil {
		return err
	}
	defer s.Channel.Close()

	interval := s.Interval
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	return s.loop.Run(ctx, interval, func(now time.Time) {
		if s.Reporter != nil {
			s.Reporter.Tick(ctx, now)
		}
	})
}

// loopConn moves a connection's close listeners onto the loop.
type loopConn struct {
	channel.Connection
	loop *Loop
}

func (c *loopConn) OnClose(fn func()) {
	var registering atomic.Bool
	registering.Store(true)
	c.Connection.OnClose(func() {
		if registering.Load() {
			// may be running on the loop itself, which must not block on its own queue
			go c.loop.Post(fn)
			return
		}
		c.loop.Post(fn)
	})
	registering.Store(false)
}
