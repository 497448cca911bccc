package protocol

import (
	"fmt"
	"math"
	"time"
)

// Form selects which coordinator contract a heartbeat follows.
type Form string

const (
	// FormCurrent keys the report by video id and carries epoch milliseconds.
	FormCurrent Form = "current"
	// FormLegacy is the single-session form carrying epoch seconds and no id.
	FormLegacy Form = "legacy"
)

func ParseForm(s string) (Form, error) {
	switch Form(s) {
	case FormCurrent, FormLegacy:
		return Form(s), nil
	}
	return "", fmt.Errorf("unknown heartbeat form %q", s)
}

// Path is the coordinator endpoint path for the form.
func (f Form) Path() string {
	if f == FormLegacy {
		return "/current-app"
	}
	return "/current"
}

// Heartbeat is the body of a coordinator PATCH.
type Heartbeat struct {
	ID      string `json:"id,omitempty"`
	EndTime int64  `json:"end_time"`
}

// NewHeartbeat projects the end of playback as now plus the remaining seconds.
func NewHeartbeat(form Form, id string, now time.Time, remaining float64) Heartbeat {
	end := float64(now.UnixMilli())/1000 + remaining
	if form == FormLegacy {
		return Heartbeat{EndTime: int64(math.Floor(end))}
	}
	return Heartbeat{ID: id, EndTime: int64(math.Floor(end * 1000))}
}

// Current is the part of the coordinator's current experience this player reads.
type Current struct {
	ID      string `json:"id"`
	EndTime *int64 `json:"end_time,omitempty"`
	Lock    any    `json:"lock,omitempty"`
}

// Ends returns the projected end of the current experience, if one has been reported.
func (c Current) Ends() (time.Time, bool) {
	if c.EndTime == nil {
		return time.Time{}, false
	}
	return time.UnixMilli(*c.EndTime), true
}
