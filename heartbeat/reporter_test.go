package heartbeat

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/progrium/tapeplay/media/mediatest"
	"github.com/progrium/tapeplay/protocol"
	. "github.com/smartystreets/goconvey/convey"
)

type fakeCoordinator struct {
	reports chan protocol.Heartbeat
	block   chan struct{}
	err     error
}

func newFakeCoordinator() *fakeCoordinator {
	return &fakeCoordinator{reports: make(chan protocol.Heartbeat, 16)}
}

func (f *fakeCoordinator) Report(ctx context.Context, hb protocol.Heartbeat) error {
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	f.reports <- hb
	return f.err
}

func (f *fakeCoordinator) next() (protocol.Heartbeat, bool) {
	select {
	case hb := <-f.reports:
		return hb, true
	case <-time.After(time.Second):
		return protocol.Heartbeat{}, false
	}
}

type recorder struct {
	sent []protocol.Outbound
	err  error
}

func (r *recorder) Send(msg protocol.Outbound) error {
	r.sent = append(r.sent, msg)
	return r.err
}

func TestReporter(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1000, 0)

	Convey("Given a surface at 30s of 120s", t, func() {
		surface := mediatest.Loaded(30, 120, false)
		coord := newFakeCoordinator()
		progress := &recorder{}
		r := &Reporter{
			Surface:     surface,
			Coordinator: coord,
			Progress:    progress,
			Form:        protocol.FormLegacy,
		}

		Convey("A tick reports now plus the remaining time", func() {
			hb, ok := r.Tick(ctx, now)
			So(ok, ShouldBeTrue)
			So(hb.EndTime, ShouldEqual, 1090)

			got, ok := coord.next()
			So(ok, ShouldBeTrue)
			So(got, ShouldResemble, protocol.Heartbeat{EndTime: 1090})

			So(progress.sent, ShouldResemble, []protocol.Outbound{protocol.Progress{Progress: 0.25, Duration: 120}})
		})

		Convey("The current form keys by id in milliseconds", func() {
			r.Form = protocol.FormCurrent
			r.ID = "intro"
			hb, ok := r.Tick(ctx, now)
			So(ok, ShouldBeTrue)
			So(hb, ShouldResemble, protocol.Heartbeat{ID: "intro", EndTime: 1090000})
		})

		Convey("A seek between ticks is reflected in the next report", func() {
			surface.Current = 10
			surface.Length = 100
			hb, _ := r.Tick(ctx, now)
			So(hb.EndTime, ShouldEqual, 1090)

			surface.SetCurrentTime(50)
			hb, _ = r.Tick(ctx, now)
			So(hb.EndTime, ShouldEqual, 1050)
		})

		Convey("Nothing is reported while the duration is unknown", func() {
			surface.Length = math.NaN()
			_, ok := r.Tick(ctx, now)
			So(ok, ShouldBeFalse)
			So(progress.sent, ShouldBeEmpty)
			So(coord.reports, ShouldBeEmpty)
		})

		Convey("Nothing is reported while the current time is unknown or zero", func() {
			surface.Current = math.NaN()
			_, ok := r.Tick(ctx, now)
			So(ok, ShouldBeFalse)

			surface.Current = 0
			_, ok = r.Tick(ctx, now)
			So(ok, ShouldBeFalse)
			So(coord.reports, ShouldBeEmpty)
		})

		Convey("A slow coordinator never holds up the next tick", func() {
			coord.block = make(chan struct{})
			start := time.Now()
			for i := 0; i < 3; i++ {
				_, ok := r.Tick(ctx, now.Add(time.Duration(i)*500*time.Millisecond))
				So(ok, ShouldBeTrue)
			}
			So(time.Since(start), ShouldBeLessThan, 100*time.Millisecond)
			So(progress.sent, ShouldHaveLength, 3)

			close(coord.block)
			for i := 0; i < 3; i++ {
				_, ok := coord.next()
				So(ok, ShouldBeTrue)
			}
		})

		Convey("Failures are dropped without retry", func() {
			coord.err = errors.New("503 Service Unavailable")
			progress.err = errors.New("no controllers")
			_, ok := r.Tick(ctx, now)
			So(ok, ShouldBeTrue)
			_, ok = coord.next()
			So(ok, ShouldBeTrue)
			So(coord.reports, ShouldBeEmpty)
		})

		Convey("Without a progress sender only the coordinator hears about it", func() {
			r.Progress = nil
			_, ok := r.Tick(ctx, now)
			So(ok, ShouldBeTrue)
			So(progress.sent, ShouldBeEmpty)
		})
	})
}
