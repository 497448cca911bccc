package media

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/kkdai/youtube/v2"
	"github.com/progrium/tapeplay/ffmpeg"
)

// ResolveSource turns a source URL into something the ffmpeg surface can open.
// YouTube links are downloaded into the temp dir; anything else is returned as is.
func ResolveSource(src string) (string, error) {
	if _, ok := DetectYouTubeURL(src); !ok {
		return src, nil
	}
	return DownloadYouTubeVideo(src)
}

func DownloadYouTubeVideo(url string) (string, error) {
	videoID, ok := DetectYouTubeURL(url)
	if !ok {
		return "", fmt.Errorf("invalid YouTube URL: %s", url)
	}
	client := youtube.Client{}

	video, err := client.GetVideo(videoID)
	if err != nil {
		return "", err
	}

	outputFilename := filepath.Join(os.TempDir(), videoID+".mp4")
	if _, err := os.Stat(outputFilename); err == nil {
		log.Println("youtube: using cached", outputFilename)
		return outputFilename, nil
	}

	vformats := video.Formats.Type("video").AudioChannels(0)
	if len(vformats) == 0 {
		return "", fmt.Errorf("no video formats for %s", videoID)
	}
	idx := 0
	for i, format := range vformats {
		if strings.Contains(format.Quality, "1080") {
			idx = i
		}
	}
	aformats := video.Formats.Type("audio")
	if len(aformats) == 0 {
		return "", fmt.Errorf("no audio formats for %s", videoID)
	}

	log.Println("youtube: downloading", videoID, vformats[idx].Quality)
	vstream, _, err := client.GetStream(video, &vformats[idx])
	if err != nil {
		return "", err
	}
	defer vstream.Close()

	astream, _, err := client.GetStream(video, &aformats[0])
	if err != nil {
		return "", err
	}
	defer astream.Close()

	videoFilename := filepath.Join(os.TempDir(), videoID+".video.mp4")
	audioFilename := filepath.Join(os.TempDir(), videoID+".audio.mp4")
	defer os.Remove(videoFilename)
	defer os.Remove(audioFilename)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	wg.Add(2)
	go func() {
		defer wg.Done()
		errs[0] = saveStream(videoFilename, vstream)
	}()
	go func() {
		defer wg.Done()
		errs[1] = saveStream(audioFilename, astream)
	}()
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return "", err
		}
	}

	if err := ffmpeg.MergeAV(videoFilename, audioFilename, outputFilename, video.Title); err != nil {
		return "", fmt.Errorf("merge: %w", err)
	}
	return outputFilename, nil
}

func saveStream(filename string, r io.Reader) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := io.Copy(f, r); err != nil {
		return fmt.Errorf("download %s: %w", filepath.Base(filename), err)
	}
	return nil
}

// DetectYouTubeURL returns the video id of a YouTube watch, short or shorts link.
func DetectYouTubeURL(s string) (string, bool) {
	if !strings.HasPrefix(s, "https://www.youtube.com/") &&
		!strings.HasPrefix(s, "https://youtu.be/") &&
		!strings.HasPrefix(s, "https://youtube.com") {
		return "", false
	}
	s = strings.ReplaceAll(s, "https://www.youtube.com/watch?v=", "")
	s = strings.ReplaceAll(s, "https://youtu.be/", "")
	s = strings.ReplaceAll(s, "https://www.youtube.com/shorts/", "")
	s = strings.ReplaceAll(s, "https://youtube.com/shorts/", "")
	if i := strings.IndexAny(s, "&?"); i >= 0 {
		s = s[:i]
	}
	return s, s != ""
}
