package channel

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/url"
	"strings"
	"sync"

	"github.com/progrium/tapeplay/protocol"
	"golang.org/x/net/websocket"
	"tractor.dev/toolkit-go/duplex/codec"
	"tractor.dev/toolkit-go/duplex/mux"
	"tractor.dev/toolkit-go/duplex/rpc"
)

// Envelope is what a relay hub streams to an attached player.
type Envelope struct {
	Conn  string
	Event string
	Data  []byte
}

const (
	EventOpen    = "open"
	EventMessage = "message"
	EventClose   = "close"
)

// Relay attaches the player to a hub that fans controller connections in
// over a single duplex rpc session. The hub owns the controller sockets; the
// player only sees envelopes.
type Relay struct {
	HubURL   url.URL
	PlayerID string

	listeners

	rpc   *rpc.Client
	mu    sync.Mutex
	conns map[string]*conn
}

func NewRelay(hubURL, playerID string) (*Relay, error) {
	u, err := url.Parse(hubURL)
	if err != nil {
		return nil, err
	}
	if u.Scheme == "http" {
		u.Scheme = "ws"
	}
	if u.Scheme == "https" {
		u.Scheme = "wss"
	}
	if !strings.HasPrefix(u.Scheme, "ws") {
		return nil, fmt.Errorf("invalid scheme: %s", u.Scheme)
	}
	u.Path = ""
	return &Relay{
		HubURL:   *u,
		PlayerID: playerID,
		conns:    make(map[string]*conn),
	}, nil
}

func dialRPC(baseURL url.URL) (*rpc.Client, error) {
	rpcURL := baseURL
	rpcURL.Path = "/player/rpc"

	originURL := baseURL
	originURL.Path = ""
	if originURL.Scheme == "wss" {
		originURL.Scheme = "https"
	} else {
		originURL.Scheme = "http"
	}

	ws, err := websocket.Dial(rpcURL.String(), "", originURL.String())
	if err != nil {
		return nil, err
	}
	ws.PayloadType = websocket.BinaryFrame
	return rpc.NewClient(mux.New(ws), codec.CBORCodec{}), nil
}

// Mount dials the hub and starts receiving envelopes for this player.
func (r *Relay) Mount() error {
	client, err := dialRPC(r.HubURL)
	if err != nil {
		return fmt.Errorf("dial hub: %w", err)
	}
	resp, err := client.Call(context.Background(), "player.attach", r.PlayerID)
	if err != nil {
		client.Close()
		return fmt.Errorf("attach: %w", err)
	}
	if !resp.Continue() {
		client.Close()
		return errors.New("hub does not stream controllers")
	}

	r.mu.Lock()
	r.rpc = client
	r.mu.Unlock()

	go func() {
		defer r.closeAll()
		for {
			var env Envelope
			if err := resp.Receive(&env); err != nil {
				if err != io.EOF {
					log.Println("relay:", err)
				}
				return
			}
			r.handle(env)
		}
	}()
	return nil
}

func (r *Relay) handle(env Envelope) {
	switch env.Event {
	case EventOpen:
		c := newConn(env.Conn)
		r.mu.Lock()
		r.conns[env.Conn] = c
		r.mu.Unlock()
		log.Println("relay: controller connected", env.Conn)
		r.connection(c)
	case EventClose:
		r.mu.Lock()
		c := r.conns[env.Conn]
		delete(r.conns, env.Conn)
		r.mu.Unlock()
		if c != nil {
			log.Println("relay: controller disconnected", env.Conn)
			c.close()
		}
	case EventMessage:
		msg, err := protocol.Decode(env.Data)
		if err != nil {
			log.Println("relay:", env.Conn, err)
			return
		}
		r.message(msg)
	default:
		log.Println("relay: unknown event", env.Event)
	}
}

// closeAll closes every controller when the hub session ends.
func (r *Relay) closeAll() {
	r.mu.Lock()
	conns := r.conns
	r.conns = make(map[string]*conn)
	r.mu.Unlock()
	for _, c := range conns {
		c.close()
	}
}

func (r *Relay) Send(msg protocol.Outbound) error {
	data, err := protocol.Encode(msg)
	if err != nil {
		return err
	}
	r.mu.Lock()
	client := r.rpc
	r.mu.Unlock()
	if client == nil {
		return errors.New("relay not mounted")
	}
	_, err = client.Call(context.Background(), "player.send", Envelope{Conn: r.PlayerID, Event: EventMessage, Data: data})
	return err
}

func (r *Relay) Close() error {
	r.mu.Lock()
	client := r.rpc
	r.rpc = nil
	r.mu.Unlock()
	if client == nil {
		return nil
	}
	return client.Close()
}
