package channel

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/livekit/protocol/auth"
	lkp "github.com/livekit/protocol/livekit"
	lksdk "github.com/livekit/server-sdk-go/v2"
	"github.com/progrium/tapeplay/protocol"
)

// RoomInfo locates a LiveKit room and the credentials to join it.
type RoomInfo struct {
	URL       string
	APIKey    string
	APISecret string
	Room      string
}

// Room carries controller messages as LiveKit user data packets. Every remote
// participant in the room is a controller connection.
type Room struct {
	RoomInfo
	Identity string

	listeners

	mu    sync.Mutex
	room  *lksdk.Room
	conns map[string]*conn
}

func NewRoom(info RoomInfo, identity string) *Room {
	return &Room{
		RoomInfo: info,
		Identity: identity,
		conns:    make(map[string]*conn),
	}
}

func (r *Room) Mount() error {
	room, err := lksdk.ConnectToRoom(r.URL, lksdk.ConnectInfo{
		APIKey:              r.APIKey,
		APISecret:           r.APISecret,
		RoomName:            r.Room,
		ParticipantIdentity: r.Identity,
	}, &lksdk.RoomCallback{
		ParticipantCallback: lksdk.ParticipantCallback{
			OnDataPacket: r.onDataPacket,
		},
		OnParticipantConnected:    r.onParticipantConnected,
		OnParticipantDisconnected: r.onParticipantDisconnected,
		OnDisconnected:            r.closeAll,
	})
	if err != nil {
		return fmt.Errorf("join room %s: %w", r.Room, err)
	}
	r.mu.Lock()
	r.room = room
	r.mu.Unlock()
	for _, p := range room.GetRemoteParticipants() {
		r.onParticipantConnected(p)
	}
	return nil
}

func (r *Room) onParticipantConnected(p *lksdk.RemoteParticipant) {
	r.mu.Lock()
	if _, ok := r.conns[p.Identity()]; ok {
		r.mu.Unlock()
		return
	}
	c := newConn(p.Identity())
	r.conns[c.id] = c
	r.mu.Unlock()
	log.Println("room: controller connected", c.id)
	r.connection(c)
}

func (r *Room) onParticipantDisconnected(p *lksdk.RemoteParticipant) {
	r.mu.Lock()
	c := r.conns[p.Identity()]
	delete(r.conns, p.Identity())
	r.mu.Unlock()
	if c != nil {
		log.Println("room: controller disconnected", c.id)
		c.close()
	}
}

func (r *Room) onDataPacket(data lksdk.DataPacket, params lksdk.DataReceiveParams) {
	user, ok := data.ToProto().Value.(*lkp.DataPacket_User)
	if !ok {
		return
	}
	msg, err := protocol.Decode(user.User.Payload)
	if err != nil {
		log.Println("room:", params.SenderIdentity, err)
		return
	}
	r.message(msg)
}

func (r *Room) closeAll() {
	r.mu.Lock()
	conns := r.conns
	r.conns = make(map[string]*conn)
	r.mu.Unlock()
	for _, c := range conns {
		c.close()
	}
}

func (r *Room) Send(msg protocol.Outbound) error {
	data, err := protocol.Encode(msg)
	if err != nil {
		return err
	}
	r.mu.Lock()
	room := r.room
	r.mu.Unlock()
	if room == nil {
		return fmt.Errorf("room %s not joined", r.Room)
	}
	return room.LocalParticipant.PublishDataPacket(lksdk.UserData(data), lksdk.WithDataPublishReliable(true))
}

func (r *Room) Close() error {
	r.mu.Lock()
	room := r.room
	r.room = nil
	r.mu.Unlock()
	if room != nil {
		room.Disconnect()
	}
	r.closeAll()
	return nil
}

// Invite issues a join token for a controller in the room.
func Invite(info RoomInfo, identity string, validFor time.Duration) (string, error) {
	at := auth.NewAccessToken(info.APIKey, info.APISecret)
	grant := &auth.VideoGrant{
		RoomJoin: true,
		Room:     info.Room,
	}
	at.AddGrant(grant).
		SetIdentity(identity).
		SetValidFor(validFor)
	return at.ToJWT()
}
