package ffmpeg

import (
	"log"
	"math"
	"sync"
)

type streamer interface {
	Start(filename string, seekMs int, output string) (int, error)
	Stop() error
	Shutdown() error
	updates() <-chan Update
	stopped() <-chan struct{}
}

// Surface is a media surface that plays its source by streaming it in
// realtime to Output with ffmpeg. Pausing stops the process; playing or
// seeking while playing restarts it at the current position.
type Surface struct {
	Output string

	stream streamer
	probe  func(src string) (int, error)

	mu       sync.Mutex
	src      string
	poster   string
	duration float64
	position float64
	paused   bool
	run      int
	onEnded  func()
}

func NewSurface(output string) *Surface {
	return newSurface(output, NewRunner(), FileDurationMs)
}

func newSurface(output string, stream streamer, probe func(string) (int, error)) *Surface {
	s := &Surface{
		Output:   output,
		stream:   stream,
		probe:    probe,
		duration: math.NaN(),
		position: math.NaN(),
		paused:   true,
		run:      -1,
	}
	go s.watch()
	return s
}

// OnEnded registers fn to be called when playback reaches the end of the source
// on its own. It is called from the surface's own goroutine.
func (s *Surface) OnEnded(fn func()) {
	s.mu.Lock()
	s.onEnded = fn
	s.mu.Unlock()
}

func (s *Surface) Close() error {
	return s.stream.Shutdown()
}

func (s *Surface) watch() {
	for {
		var update Update
		select {
		case update = <-s.stream.updates():
		case <-s.stream.stopped():
			return
		}
		s.mu.Lock()
		if update.Run != s.run {
			s.mu.Unlock()
			continue
		}
		if posMs, ok := update.PositionMs(); ok {
			s.position = float64(posMs) / 1000
			if known(s.duration) && s.position > s.duration {
				s.position = s.duration
			}
		}
		if update.Exited && !update.End {
			if update.Err != nil {
				log.Println("ffmpeg: exited:", update.Err)
			} else {
				log.Println("ffmpeg: exited before the end of", s.src)
			}
			s.paused = true
			s.run = -1
			s.mu.Unlock()
			continue
		}
		var ended func()
		if update.End {
			s.paused = true
			s.run = -1
			if known(s.duration) {
				s.position = s.duration
			}
			ended = s.onEnded
		}
		s.mu.Unlock()

		if ended != nil {
			ended()
		}
	}
}

func (s *Surface) Play() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.src == "" || !s.paused {
		return
	}
	start := s.position
	if !known(start) || (known(s.duration) && start >= s.duration) {
		start = 0
	}
	if err := s.start(start); err != nil {
		log.Println("ffmpeg: play:", err)
		return
	}
	s.position = start
	s.paused = false
}

func (s *Surface) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.paused {
		return
	}
	if err := s.stream.Stop(); err != nil {
		log.Println("ffmpeg: pause:", err)
	}
	s.run = -1
	s.paused = true
}

func (s *Surface) Paused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}

func (s *Surface) CurrentTime() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.position
}

func (s *Surface) Duration() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.duration
}

// SetCurrentTime seeks. It is ignored until the duration has been probed.
func (s *Surface) SetCurrentTime(t float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !known(s.duration) || math.IsNaN(t) {
		return
	}
	t = math.Max(0, math.Min(t, s.duration))
	s.position = t
	if s.paused {
		return
	}
	if err := s.start(t); err != nil {
		log.Println("ffmpeg: seek:", err)
		s.run = -1
		s.paused = true
	}
}

// SetSrc loads a new source. Playback stops and time and duration become
// unknown until ffprobe has read the source's metadata.
func (s *Surface) SetSrc(src string) {
	s.mu.Lock()
	if err := s.stream.Stop(); err != nil {
		log.Println("ffmpeg: stop:", err)
	}
	s.src = src
	s.duration = math.NaN()
	s.position = math.NaN()
	s.paused = true
	s.run = -1
	s.mu.Unlock()

	if src == "" {
		return
	}
	go s.loadMetadata(src)
}

func (s *Surface) loadMetadata(src string) {
	durMs, err := s.probe(src)
	if err != nil {
		log.Println("ffprobe:", src, err)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.src != src {
		return
	}
	s.duration = float64(durMs) / 1000
	if !known(s.position) {
		s.position = 0
	}
	log.Println("ffmpeg: loaded", src, FormatTimeMs(durMs))
}

func (s *Surface) SetPoster(poster string) {
	s.mu.Lock()
	s.poster = poster
	s.mu.Unlock()
}

func (s *Surface) Poster() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.poster
}

// start must be called with s.mu held.
func (s *Surface) start(at float64) error {
	run, err := s.stream.Start(s.src, int(at*1000), s.Output)
	if err != nil {
		return err
	}
	s.run = run
	return nil
}

func known(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
