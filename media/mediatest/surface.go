// Package mediatest provides an in-memory media.Surface for tests.
package mediatest

import (
	"math"

	"github.com/progrium/tapeplay/media"
)

// Surface is a media.Surface whose clock only moves when told to.
type Surface struct {
	Src    string
	Poster string

	Current  float64
	Length   float64
	IsPaused bool

	// Seeks records every accepted SetCurrentTime target after clamping.
	Seeks  []float64
	Plays  int
	Pauses int
}

// New returns a paused surface with unknown time and duration.
func New() *Surface {
	return &Surface{
		Current:  math.NaN(),
		Length:   math.NaN(),
		IsPaused: true,
	}
}

// Loaded returns a surface whose metadata is available.
func Loaded(current, duration float64, paused bool) *Surface {
	return &Surface{
		Current:  current,
		Length:   duration,
		IsPaused: paused,
	}
}

func (s *Surface) Play() {
	s.Plays++
	s.IsPaused = false
}

func (s *Surface) Pause() {
	s.Pauses++
	s.IsPaused = true
}

func (s *Surface) Paused() bool         { return s.IsPaused }
func (s *Surface) CurrentTime() float64 { return s.Current }
func (s *Surface) Duration() float64    { return s.Length }

func (s *Surface) SetCurrentTime(t float64) {
	if !media.Known(s.Length) || math.IsNaN(t) {
		return
	}
	t = media.Clamp(t, s.Length)
	s.Current = t
	s.Seeks = append(s.Seeks, t)
}

func (s *Surface) SetSrc(src string) {
	s.Src = src
	s.Current = math.NaN()
	s.Length = math.NaN()
}

func (s *Surface) SetPoster(poster string) { s.Poster = poster }

// Advance moves the clock forward as if playing for d seconds.
func (s *Surface) Advance(d float64) {
	if !media.Known(s.Current) {
		s.Current = 0
	}
	s.Current = media.Clamp(s.Current+d, s.Length)
}
