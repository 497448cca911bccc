package player

import (
	"context"
	"sync"
	"time"
)

// Loop runs posted events and a periodic tick on a single goroutine. Events
// run one at a time, to completion, in the order they were posted, and a tick
// never interleaves with an event.
type Loop struct {
	events chan func()
	done   chan struct{}
	once   sync.Once
}

func NewLoop() *Loop {
	return &Loop{
		events: make(chan func(), 64),
		done:   make(chan struct{}),
	}
}

// Post queues fn to run on the loop. It blocks while the queue is full and
// returns false once the loop has stopped.
func (l *Loop) Post(fn func()) bool {
	select {
	case <-l.done:
		return false
	default:
	}
	select {
	case l.events <- fn:
		return true
	case <-l.done:
		return false
	}
}

// Run processes events and calls tick every interval until ctx is done.
func (l *Loop) Run(ctx context.Context, interval time.Duration, tick func(now time.Time)) error {
	defer l.once.Do(func() { close(l.done) })

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case fn := <-l.events:
			fn()
		case now := <-ticker.C:
			if tick != nil {
				tick(now)
			}
		}
	}
}

// Done is closed when Run returns.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}
