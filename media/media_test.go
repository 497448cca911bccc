package media

import (
	"math"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestKnown(t *testing.T) {
	Convey("NaN and infinities are unknown, zero is known", t, func() {
		So(Known(math.NaN()), ShouldBeFalse)
		So(Known(math.Inf(1)), ShouldBeFalse)
		So(Known(0), ShouldBeTrue)
		So(Known(12.5), ShouldBeTrue)
	})
}

func TestClamp(t *testing.T) {
	Convey("Seeks are bounded by the resource", t, func() {
		So(Clamp(-3, 100), ShouldEqual, 0)
		So(Clamp(130, 100), ShouldEqual, 100)
		So(Clamp(42, 100), ShouldEqual, 42)
	})
}

func TestDetectYouTubeURL(t *testing.T) {
	Convey("Given candidate source URLs", t, func() {
		id, ok := DetectYouTubeURL("https://www.youtube.com/watch?v=lSqnqSSXTUI&list=RD")
		So(ok, ShouldBeTrue)
		So(id, ShouldEqual, "lSqnqSSXTUI")

		id, ok = DetectYouTubeURL("https://youtu.be/abc123")
		So(ok, ShouldBeTrue)
		So(id, ShouldEqual, "abc123")

		id, ok = DetectYouTubeURL("https://youtube.com/shorts/xyz")
		So(ok, ShouldBeTrue)
		So(id, ShouldEqual, "xyz")

		_, ok = DetectYouTubeURL("file:///srv/videos/intro.mp4")
		So(ok, ShouldBeFalse)
	})

	Convey("Non-YouTube sources resolve to themselves", t, func() {
		src, err := ResolveSource("/srv/videos/intro.mp4")
		So(err, ShouldBeNil)
		So(src, ShouldEqual, "/srv/videos/intro.mp4")
	})
}
