package channel

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/progrium/tapeplay/protocol"
	. "github.com/smartystreets/goconvey/convey"
	"golang.org/x/net/websocket"
)

func dial(srv *httptest.Server, path string) (*websocket.Conn, error) {
	u := "ws" + strings.TrimPrefix(srv.URL, "http") + path
	return websocket.Dial(u, "", srv.URL)
}

func TestWebsocket(t *testing.T) {
	Convey("Given a mounted websocket channel", t, func() {
		mux := http.NewServeMux()
		ch := NewWebsocket(mux, "/messaging")
		So(ch.Mount(), ShouldBeNil)
		srv := httptest.NewServer(mux)
		defer srv.Close()
		defer ch.Close()

		messages := make(chan protocol.Inbound, 4)
		conns := make(chan Connection, 1)
		ch.OnMessage(func(m protocol.Inbound) { messages <- m })
		ch.OnConnection(func(c Connection) { conns <- c })

		ws, err := dial(srv, "/messaging")
		So(err, ShouldBeNil)
		defer ws.Close()

		var c Connection
		select {
		case c = <-conns:
		case <-time.After(time.Second):
		}
		So(c, ShouldNotBeNil)
		So(c.ID(), ShouldNotBeEmpty)

		Convey("Inbound frames are decoded in order", func() {
			So(websocket.Message.Send(ws, `{"type":"scrub","progress":0.5}`), ShouldBeNil)
			So(websocket.Message.Send(ws, `not json`), ShouldBeNil)
			So(websocket.Message.Send(ws, `{"type":"toggle"}`), ShouldBeNil)

			So(<-messages, ShouldResemble, protocol.Scrub{Progress: 0.5})
			So(<-messages, ShouldResemble, protocol.Toggle{})
		})

		Convey("Outbound messages reach the controller", func() {
			So(ch.Send(protocol.StateChanged{State: protocol.StatePlaying}), ShouldBeNil)
			var got string
			So(websocket.Message.Receive(ws, &got), ShouldBeNil)
			So(got, ShouldEqual, `{"type":"state","state":"playing"}`)
		})

		Convey("Disconnecting fires close listeners", func() {
			closed := make(chan struct{})
			c.OnClose(func() { close(closed) })
			ws.Close()

			select {
			case <-closed:
			case <-time.After(time.Second):
				t.Fatal("close listener not called")
			}

			Convey("A listener added after close runs immediately", func() {
				late := false
				c.OnClose(func() { late = true })
				So(late, ShouldBeTrue)
			})
		})
	})

	Convey("Mounting without a mux fails", t, func() {
		So(NewWebsocket(nil, "/messaging").Mount(), ShouldNotBeNil)
	})
}

func TestRelayEnvelopes(t *testing.T) {
	Convey("Given a relay receiving hub envelopes", t, func() {
		r, err := NewRelay("https://hub.example.com/some/path", "kiosk-1")
		So(err, ShouldBeNil)
		So(r.HubURL.Scheme, ShouldEqual, "wss")
		So(r.HubURL.Path, ShouldEqual, "")

		var got []protocol.Inbound
		var opened []Connection
		r.OnMessage(func(m protocol.Inbound) { got = append(got, m) })
		r.OnConnection(func(c Connection) { opened = append(opened, c) })

		r.handle(Envelope{Conn: "c1", Event: EventOpen})
		So(opened, ShouldHaveLength, 1)
		So(opened[0].ID(), ShouldEqual, "c1")

		closed := 0
		opened[0].OnClose(func() { closed++ })

		r.handle(Envelope{Conn: "c1", Event: EventMessage, Data: []byte(`{"type":"jump","delta":-5}`)})
		r.handle(Envelope{Conn: "c1", Event: EventMessage, Data: []byte(`{"type":"rewind"}`)})
		So(got, ShouldResemble, []protocol.Inbound{protocol.Jump{Delta: -5}, protocol.Unknown{Type: "rewind"}})

		Convey("A close envelope closes the connection once", func() {
			r.handle(Envelope{Conn: "c1", Event: EventClose})
			r.handle(Envelope{Conn: "c1", Event: EventClose})
			So(closed, ShouldEqual, 1)
		})

		Convey("Losing the hub closes every connection", func() {
			r.closeAll()
			So(closed, ShouldEqual, 1)
		})

		Convey("Sending before mount fails", func() {
			So(r.Send(protocol.StateChanged{State: protocol.StatePaused}), ShouldNotBeNil)
		})
	})

	Convey("Non-web hub URLs are rejected", t, func() {
		_, err := NewRelay("ftp://hub", "kiosk-1")
		So(err, ShouldNotBeNil)
	})
}

func TestInvite(t *testing.T) {
	Convey("Controllers get a signed join token", t, func() {
		token, err := Invite(RoomInfo{APIKey: "devkey", APISecret: "0123456789abcdef0123456789abcdef", Room: "kiosk"}, "controller-1", time.Hour)
		So(err, ShouldBeNil)
		So(strings.Count(token, "."), ShouldEqual, 2)
	})
}
