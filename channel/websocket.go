package channel

import (
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"

	"github.com/progrium/tapeplay/protocol"
	"github.com/rs/xid"
	"golang.org/x/net/websocket"
)

// Websocket serves controllers over a websocket endpoint on an http.ServeMux.
// Each inbound text frame is one JSON message.
type Websocket struct {
	Path string

	mux *http.ServeMux
	listeners

	mu     sync.Mutex
	conns  map[*wsConn]struct{}
	closed bool
}

type wsConn struct {
	*conn
	ws *websocket.Conn
	wm sync.Mutex
}

func NewWebsocket(mux *http.ServeMux, path string) *Websocket {
	return &Websocket{
		Path:  path,
		mux:   mux,
		conns: make(map[*wsConn]struct{}),
	}
}

// Mount registers the endpoint on the mux.
func (w *Websocket) Mount() error {
	if w.mux == nil {
		return errors.New("websocket channel has no mux")
	}
	w.mux.Handle(w.Path, w)
	return nil
}

func (w *Websocket) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	s := websocket.Server{
		// controllers are browsers on arbitrary origins
		Handshake: func(*websocket.Config, *http.Request) error { return nil },
		Handler:   w.serve,
	}
	s.ServeHTTP(rw, r)
}

func (w *Websocket) serve(ws *websocket.Conn) {
	c := &wsConn{conn: newConn(xid.New().String()), ws: ws}

	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		ws.Close()
		return
	}
	w.conns[c] = struct{}{}
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		delete(w.conns, c)
		w.mu.Unlock()
		ws.Close()
		c.close()
	}()

	log.Println("channel: controller connected", c.id, ws.Request().RemoteAddr)
	w.connection(c)

	for {
		var data []byte
		if err := websocket.Message.Receive(ws, &data); err != nil {
			if err != io.EOF {
				log.Println("channel:", c.id, err)
			}
			log.Println("channel: controller disconnected", c.id)
			return
		}
		msg, err := protocol.Decode(data)
		if err != nil {
			log.Println("channel:", c.id, err)
			continue
		}
		w.message(msg)
	}
}

// Send broadcasts msg to all connected controllers. A failed write closes
// that controller's connection.
func (w *Websocket) Send(msg protocol.Outbound) error {
	data, err := protocol.Encode(msg)
	if err != nil {
		return err
	}
	w.mu.Lock()
	conns := make([]*wsConn, 0, len(w.conns))
	for c := range w.conns {
		conns = append(conns, c)
	}
	w.mu.Unlock()

	var errs []error
	for _, c := range conns {
		c.wm.Lock()
		err := websocket.Message.Send(c.ws, string(data))
		c.wm.Unlock()
		if err != nil {
			errs = append(errs, fmt.Errorf("send %s: %w", c.id, err))
			c.ws.Close()
		}
	}
	return errors.Join(errs...)
}

// Connections is the number of attached controllers.
func (w *Websocket) Connections() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.conns)
}

func (w *Websocket) Close() error {
	w.mu.Lock()
	w.closed = true
	conns := make([]*wsConn, 0, len(w.conns))
	for c := range w.conns {
		conns = append(conns, c)
	}
	w.mu.Unlock()
	for _, c := range conns {
		c.ws.Close()
	}
	return nil
}
