package ffmpeg

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
)

// Runner owns at most one ffmpeg streaming process at a time.
type Runner struct {
	Process *exec.Cmd
	Run     int
	Updates chan Update

	done chan struct{}
	sync.Mutex
}

func NewRunner() *Runner {
	return &Runner{
		Updates: make(chan Update),
		done:    make(chan struct{}),
	}
}

// Update is one ffmpeg progress block. End is set when ffmpeg reached the
// end of its input rather than being stopped. Exited is the last update of
// every run, sent once the process is gone, with Err holding its exit error.
type Update struct {
	Run      int
	SeekMs   int
	Progress Progress
	End      bool
	Exited   bool
	Err      error
}

type Progress map[string]string

// PositionMs is the stream position the update reports, or false if ffmpeg
// has not produced output yet.
func (u Update) PositionMs() (int, bool) {
	out := u.Progress["out_time"]
	if out == "" || out == "N/A" || strings.HasPrefix(out, "-") {
		return 0, false
	}
	ms, err := ParseTimeToMs(out)
	if err != nil {
		return 0, false
	}
	return u.SeekMs + ms, true
}

// Shutdown stops the current process and releases anyone waiting on Updates.
func (r *Runner) Shutdown() error {
	r.Lock()
	select {
	case <-r.done:
	default:
		close(r.done)
	}
	r.Unlock()
	return r.Stop()
}

func (r *Runner) Stop() error {
	r.Lock()
	defer r.Unlock()
	if r.Process == nil {
		return nil
	}
	err := kill(r.Process)
	r.Process = nil
	return err
}

// kill stops cmd. A process that already exited is not an error.
func kill(cmd *exec.Cmd) error {
	err := cmd.Process.Kill()
	if errors.Is(err, os.ErrProcessDone) {
		return nil
	}
	return err
}

// Start replaces any running process with one streaming filename from
// seekMs to output. It returns the run number tagged on its updates.
func (r *Runner) Start(filename string, seekMs int, output string) (int, error) {
	r.Lock()
	defer r.Unlock()
	if r.Process != nil {
		if err := kill(r.Process); err != nil {
			return 0, err
		}
		r.Process = nil
	}
	run := r.Run
	cmd, err := r.streamFile(filename, seekMs, output, run)
	if err != nil {
		return 0, err
	}
	r.Process = cmd
	r.Run++
	return run, nil
}

func (r *Runner) updates() <-chan Update {
	return r.Updates
}

func (r *Runner) stopped() <-chan struct{} {
	return r.done
}

func (r *Runner) streamFile(filename string, seekMs int, output string, run int) (*exec.Cmd, error) {
	cmd := exec.Command("ffmpeg",
		"-nostats",
		"-progress", "pipe:1",
		"-loglevel", "quiet",
		"-re",
		"-ss", formatSeek(seekMs),
		"-i", filename,
		"-c:v", "libx264",
		"-c:a", "aac",
		"-b:a", "160k",
		"-b:v", "3M",
		"-preset", "veryfast",
		"-f", "flv",
		output)
	cmd.Stderr = os.Stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, err
	}

	send := func(u Update) bool {
		select {
		case r.Updates <- u:
			return true
		case <-r.done:
			return false
		}
	}
	go func() {
		scanProgress(stdout, func(p Progress, end bool) bool {
			return send(Update{Run: run, SeekMs: seekMs, Progress: p, End: end})
		})
		err := cmd.Wait()

		r.Lock()
		if r.Process == cmd {
			r.Process = nil
		}
		r.Unlock()
		send(Update{Run: run, SeekMs: seekMs, Exited: true, Err: err})
	}()

	return cmd, nil
}

// scanProgress splits ffmpeg's -progress output into key=value blocks, each
// terminated by a progress=continue or progress=end line.
func scanProgress(r io.Reader, emit func(p Progress, end bool) bool) {
	scanner := bufio.NewScanner(r)
	current := make(Progress)

	for scanner.Scan() {
		key, value, ok := strings.Cut(scanner.Text(), "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		current[key] = value

		if key != "progress" {
			continue
		}
		end := value == "end"
		if !emit(current, end) || end {
			return
		}
		current = make(Progress)
	}
}

func MergeAV(videoFilename, audioFilename, outputFilename, title string) error {
	cmd := exec.Command("ffmpeg", "-y", "-i", videoFilename, "-i", audioFilename, "-metadata", "title="+title, "-c", "copy", "-shortest", outputFilename)
	return cmd.Run()
}

func FileTitle(filename string) (string, error) {
	format, err := ProbeFormat(filename)
	if err != nil {
		return "", err
	}
	tags, ok := format["tags"].(map[string]any)
	if !ok {
		return "", nil
	}
	title, ok := tags["title"].(string)
	if !ok {
		return "", nil
	}
	return title, nil
}

func FileDurationMs(filename string) (int, error) {
	format, err := ProbeFormat(filename)
	if err != nil {
		return 0, err
	}

	duration, ok := format["duration"].(string)
	if !ok {
		return 0, fmt.Errorf("no duration for %s", filename)
	}
	secs, err := strconv.ParseFloat(duration, 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", duration, err)
	}
	return int(secs * 1000), nil
}

func ProbeFormat(filename string) (map[string]any, error) {
	cmd := exec.Command("ffprobe", "-i", filename, "-show_format", "-v", "quiet", "-of", "json")
	output, err := cmd.Output()
	if err != nil {
		return nil, err
	}

	var probe struct {
		Format map[string]any `json:"format"`
	}
	if err := json.Unmarshal(output, &probe); err != nil {
		return nil, err
	}
	if probe.Format == nil {
		return nil, fmt.Errorf("ffprobe: no format for %s", filename)
	}
	return probe.Format, nil
}

// FormatTimeMs takes milliseconds and returns a string in mm:ss or hh:mm:ss format.
func FormatTimeMs(ms int) string {
	if ms < 0 {
		ms = 0
	}
	seconds := ms / 1000
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60

	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}

func formatSeek(ms int) string {
	return fmt.Sprintf("%d.%03d", ms/1000, ms%1000)
}

// ParseTimeToMs parses "mm:ss", "hh:mm:ss" or "hh:mm:ss.ffffff" into milliseconds.
func ParseTimeToMs(timeStr string) (int, error) {
	parts := strings.Split(timeStr, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid time format: %s", timeStr)
	}
	var h, m int
	var err error
	if len(parts) == 3 {
		if h, err = strconv.Atoi(parts[0]); err != nil {
			return 0, fmt.Errorf("invalid time format: %s", timeStr)
		}
		parts = parts[1:]
	}
	if m, err = strconv.Atoi(parts[0]); err != nil {
		return 0, fmt.Errorf("invalid time format: %s", timeStr)
	}
	s, err := strconv.ParseFloat(parts[1], 64)
	if err != nil || s < 0 {
		return 0, fmt.Errorf("invalid time format: %s", timeStr)
	}
	return (h*3600+m*60)*1000 + int(s*1000), nil
}
