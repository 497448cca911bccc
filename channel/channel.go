// Package channel connects the player to its remote controllers.
package channel

import (
	"sync"

	"github.com/progrium/tapeplay/protocol"
)

// Channel is a bidirectional message transport between the player and any
// number of remote controllers. Listeners are called from the transport's
// own goroutines, in delivery order per connection.
type Channel interface {
	// Mount establishes or attaches the transport.
	Mount() error
	// Send delivers msg to every connected controller.
	Send(msg protocol.Outbound) error
	OnMessage(fn func(protocol.Inbound))
	OnConnection(fn func(Connection))
	Close() error
}

// Connection is one controller attached to a Channel.
type Connection interface {
	ID() string
	// OnClose registers fn to run when the controller disconnects. If the
	// connection is already closed fn runs right away.
	OnClose(fn func())
}

type listeners struct {
	mu           sync.Mutex
	onMessage    []func(protocol.Inbound)
	onConnection []func(Connection)
}

func (l *listeners) OnMessage(fn func(protocol.Inbound)) {
	l.mu.Lock()
	l.onMessage = append(l.onMessage, fn)
	l.mu.Unlock()
}

func (l *listeners) OnConnection(fn func(Connection)) {
	l.mu.Lock()
	l.onConnection = append(l.onConnection, fn)
	l.mu.Unlock()
}

func (l *listeners) message(msg protocol.Inbound) {
	l.mu.Lock()
	fns := append(([]func(protocol.Inbound))(nil), l.onMessage...)
	l.mu.Unlock()
	for _, fn := range fns {
		fn(msg)
	}
}

func (l *listeners) connection(c Connection) {
	l.mu.Lock()
	fns := append(([]func(Connection))(nil), l.onConnection...)
	l.mu.Unlock()
	for _, fn := range fns {
		fn(c)
	}
}

type conn struct {
	id string

	mu      sync.Mutex
	closed  bool
	onClose []func()
}

func newConn(id string) *conn {
	return &conn{id: id}
}

func (c *conn) ID() string {
	return c.id
}

func (c *conn) OnClose(fn func()) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		fn()
		return
	}
	c.onClose = append(c.onClose, fn)
	c.mu.Unlock()
}

func (c *conn) close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	fns := c.onClose
	c.onClose = nil
	c.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}
