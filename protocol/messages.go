package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

var ErrMissingType = errors.New("message has no type")

// Inbound is a control message sent by a remote controller to the player.
type Inbound interface {
	isInbound()
}

// Toggle flips between playing and paused.
type Toggle struct{}

// Scrub seeks to an absolute position given as a fraction of the duration.
type Scrub struct {
	Progress float64
}

// Jump seeks relative to the current position, in seconds.
type Jump struct {
	Delta float64
}

// Unknown is any message whose type this player does not understand.
// It is decoded rather than rejected so newer controllers never break older players.
type Unknown struct {
	Type string
}

func (Toggle) isInbound()  {}
func (Scrub) isInbound()   {}
func (Jump) isInbound()    {}
func (Unknown) isInbound() {}

// Outbound is a message sent by the player to its controllers.
type Outbound interface {
	isOutbound()
}

type State string

const (
	StatePlaying State = "playing"
	StatePaused  State = "paused"
)

// StateChanged reports the play state after a toggle or a natural end.
type StateChanged struct {
	State State
}

// Progress reports the playback position as a fraction of the duration.
type Progress struct {
	Progress float64
	Duration float64
}

func (StateChanged) isOutbound() {}
func (Progress) isOutbound()     {}

const (
	TypeToggle   = "toggle"
	TypeScrub    = "scrub"
	TypeJump     = "jump"
	TypeState    = "state"
	TypeProgress = "progress"
)

type wireMessage struct {
	Type     string   `json:"type"`
	Progress *float64 `json:"progress,omitempty"`
	Delta    *float64 `json:"delta,omitempty"`
	State    State    `json:"state,omitempty"`
	Duration *float64 `json:"duration,omitempty"`
}

// Decode parses an inbound wire message. Unrecognized types decode to Unknown.
func Decode(data []byte) (Inbound, error) {
	var m wireMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode message: %w", err)
	}
	switch m.Type {
	case "":
		return nil, ErrMissingType
	case TypeToggle:
		return Toggle{}, nil
	case TypeScrub:
		if m.Progress == nil {
			return nil, fmt.Errorf("scrub message has no progress")
		}
		return Scrub{Progress: *m.Progress}, nil
	case TypeJump:
		if m.Delta == nil {
			return nil, fmt.Errorf("jump message has no delta")
		}
		return Jump{Delta: *m.Delta}, nil
	default:
		return Unknown{Type: m.Type}, nil
	}
}

// Encode serializes an outbound message to its wire form.
func Encode(msg Outbound) ([]byte, error) {
	switch m := msg.(type) {
	case StateChanged:
		return json.Marshal(wireMessage{Type: TypeState, State: m.State})
	case Progress:
		return json.Marshal(wireMessage{Type: TypeProgress, Progress: &m.Progress, Duration: &m.Duration})
	default:
		return nil, fmt.Errorf("unsupported outbound message %T", msg)
	}
}

// EncodeInbound serializes a controller message. Used by controller-side tooling.
func EncodeInbound(msg Inbound) ([]byte, error) {
	switch m := msg.(type) {
	case Toggle:
		return json.Marshal(wireMessage{Type: TypeToggle})
	case Scrub:
		return json.Marshal(wireMessage{Type: TypeScrub, Progress: &m.Progress})
	case Jump:
		return json.Marshal(wireMessage{Type: TypeJump, Delta: &m.Delta})
	case Unknown:
		return json.Marshal(wireMessage{Type: m.Type})
	default:
		return nil, fmt.Errorf("unsupported inbound message %T", msg)
	}
}

// DecodeOutbound parses a player message. Unrecognized types return nil and no error.
func DecodeOutbound(data []byte) (Outbound, error) {
	var m wireMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode message: %w", err)
	}
	switch m.Type {
	case "":
		return nil, ErrMissingType
	case TypeState:
		return StateChanged{State: m.State}, nil
	case TypeProgress:
		var p Progress
		if m.Progress != nil {
			p.Progress = *m.Progress
		}
		if m.Duration != nil {
			p.Duration = *m.Duration
		}
		return p, nil
	default:
		return nil, nil
	}
}
