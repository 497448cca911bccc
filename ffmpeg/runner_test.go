package ffmpeg

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

// fakeFFmpeg puts an ffmpeg on PATH that runs script. $STATE is a scratch
// directory the script can use to count its runs.
func fakeFFmpeg(t *testing.T, script string) {
	dir := t.TempDir()
	state := t.TempDir()
	body := "#!/bin/sh\nSTATE='" + state + "'\n" + script
	if err := os.WriteFile(filepath.Join(dir, "ffmpeg"), []byte(body), 0o755); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PATH", dir+string(os.PathListSeparator)+os.Getenv("PATH"))
}

func probe120(string) (int, error) { return 120000, nil }

func TestRunnerSurface(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("needs a shell script ffmpeg")
	}

	Convey("Given a real runner whose first ffmpeg reaches the end", t, func() {
		fakeFFmpeg(t, `
if [ -f "$STATE/ran" ]; then
  exec sleep 30
fi
touch "$STATE/ran"
echo out_time=00:01:59.000000
echo progress=continue
echo out_time=00:02:00.000000
echo progress=end
`)
		s := newSurface("out.flv", NewRunner(), probe120)
		defer s.Close()
		ended := make(chan struct{}, 1)
		s.OnEnded(func() { ended <- struct{}{} })

		s.SetSrc("/videos/intro.mp4")
		So(waitFor(func() bool { return s.Duration() == 120 }), ShouldBeTrue)

		s.Play()
		So(s.Paused(), ShouldBeFalse)

		var gotEnd bool
		select {
		case <-ended:
			gotEnd = true
		case <-time.After(5 * time.Second):
		}
		So(gotEnd, ShouldBeTrue)
		So(s.Paused(), ShouldBeTrue)

		Convey("Playing again starts a new stream", func() {
			// let the finished process be reaped first
			time.Sleep(50 * time.Millisecond)
			s.Play()
			So(s.Paused(), ShouldBeFalse)
			So(s.CurrentTime(), ShouldEqual, 0)
		})
	})

	Convey("Given a real runner whose first ffmpeg dies early", t, func() {
		fakeFFmpeg(t, `
if [ -f "$STATE/ran" ]; then
  exec sleep 30
fi
touch "$STATE/ran"
echo out_time=00:00:30.000000
echo progress=continue
exit 1
`)
		s := newSurface("out.flv", NewRunner(), probe120)
		defer s.Close()

		s.SetSrc("/videos/intro.mp4")
		So(waitFor(func() bool { return s.Duration() == 120 }), ShouldBeTrue)

		s.Play()
		So(waitFor(func() bool { return s.Paused() }), ShouldBeTrue)
		So(s.CurrentTime(), ShouldEqual, 30)

		Convey("Playing again resumes from the last position", func() {
			s.Play()
			So(s.Paused(), ShouldBeFalse)
			So(s.CurrentTime(), ShouldEqual, 30)
		})
	})
}
