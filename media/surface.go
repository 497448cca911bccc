// Package media defines the controllable playback resource the player drives.
package media

import "math"

// Surface is a controllable media resource. Times are in seconds.
// CurrentTime and Duration return NaN while they are unknown, typically
// before the resource's metadata has loaded. Surfaces ignore seeks while
// the duration is unknown and clamp seeks to [0, Duration].
type Surface interface {
	Play()
	Pause()
	Paused() bool
	CurrentTime() float64
	SetCurrentTime(t float64)
	Duration() float64
	SetSrc(src string)
	SetPoster(poster string)
}

// Known reports whether a time read from a Surface is usable.
func Known(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Clamp bounds t to [0, duration].
func Clamp(t, duration float64) float64 {
	if t < 0 {
		return 0
	}
	if t > duration {
		return duration
	}
	return t
}
