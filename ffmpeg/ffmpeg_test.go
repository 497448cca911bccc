package ffmpeg

import (
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestParseTimeToMs(t *testing.T) {
	Convey("Given ffmpeg and user supplied timestamps", t, func() {
		ms, err := ParseTimeToMs("00:00:01.166833")
		So(err, ShouldBeNil)
		So(ms, ShouldEqual, 1166)

		ms, err = ParseTimeToMs("01:02:03")
		So(err, ShouldBeNil)
		So(ms, ShouldEqual, 3723000)

		ms, err = ParseTimeToMs("02:30")
		So(err, ShouldBeNil)
		So(ms, ShouldEqual, 150000)

		_, err = ParseTimeToMs("N/A")
		So(err, ShouldNotBeNil)

		_, err = ParseTimeToMs("aa:bb")
		So(err, ShouldNotBeNil)
	})
}

func TestFormatTimeMs(t *testing.T) {
	Convey("Times format as mm:ss until they pass an hour", t, func() {
		So(FormatTimeMs(0), ShouldEqual, "00:00")
		So(FormatTimeMs(95000), ShouldEqual, "01:35")
		So(FormatTimeMs(3723000), ShouldEqual, "01:02:03")
		So(FormatTimeMs(-5), ShouldEqual, "00:00")
	})

	Convey("Seek offsets keep millisecond precision", t, func() {
		So(formatSeek(12345), ShouldEqual, "12.345")
		So(formatSeek(7), ShouldEqual, "0.007")
	})
}

func TestScanProgress(t *testing.T) {
	Convey("Given two progress blocks ending the stream", t, func() {
		out := strings.Join([]string{
			"frame=10",
			"out_time=N/A",
			"progress=continue",
			"frame=20",
			"out_time=00:00:02.500000",
			"progress=continue",
			"out_time=00:00:03.000000",
			"progress=end",
			"frame=99",
		}, "\n")

		var blocks []Progress
		var ends []bool
		scanProgress(strings.NewReader(out), func(p Progress, end bool) bool {
			blocks = append(blocks, p)
			ends = append(ends, end)
			return true
		})

		So(blocks, ShouldHaveLength, 3)
		So(ends, ShouldResemble, []bool{false, false, true})
		So(blocks[1]["frame"], ShouldEqual, "20")
		So(blocks[0]["frame"], ShouldEqual, "10")

		Convey("Positions are offset by the seek the run started at", func() {
			_, ok := Update{Progress: blocks[0]}.PositionMs()
			So(ok, ShouldBeFalse)

			pos, ok := Update{SeekMs: 60000, Progress: blocks[1]}.PositionMs()
			So(ok, ShouldBeTrue)
			So(pos, ShouldEqual, 62500)
		})

		Convey("A negative position at stream start is not known yet", func() {
			_, ok := Update{SeekMs: 60000, Progress: Progress{"out_time": "-00:00:00.023000"}}.PositionMs()
			So(ok, ShouldBeFalse)
		})
	})

	Convey("Scanning stops when the consumer goes away", t, func() {
		calls := 0
		scanProgress(strings.NewReader("progress=continue\nprogress=continue\n"), func(Progress, bool) bool {
			calls++
			return false
		})
		So(calls, ShouldEqual, 1)
	})
}
