package extract

import (
	"strings"

	"github.com/ytget/yt-web/internal/model"
)

// Format selectors
const (
	FormatBest      = "best"
	FormatBestAudio = "bestaudio/best"
	AudioCodecMP3   = "mp3"
	ThumbnailJPG    = "jpg"
	MergeOutputMP4  = "mp4"
	BitrateSuffix   = "kbps"
)

// videoHeights maps a quality selector to its height ceiling
var videoHeights = map[string]string{
	"2160p": "2160",
	"1080p": "1080",
	"720p":  "720",
	"480p":  "480",
	"360p":  "360",
}

// Options are the extractor settings for one download
type Options struct {
	Format            string // format selector
	MergeOutputFormat string
	ExtractAudio      bool
	AudioFormat       string
	AudioQuality      string // bitrate in kbps, without suffix
	WriteThumbnail    bool
	ConvertThumbnails string
	SkipDownload      bool
	CookieFile        string // empty means unauthenticated
	OutputTemplate    string
}

// BuildOptions returns the extractor options for a format and quality selector
func BuildOptions(format model.Format, quality, outputTemplate, cookieFile string) Options {
	opts := Options{
		OutputTemplate: outputTemplate,
		CookieFile:     cookieFile,
	}

	switch format {
	case model.FormatMP3:
		opts.Format = FormatBestAudio
		opts.ExtractAudio = true
		opts.AudioFormat = AudioCodecMP3
		opts.AudioQuality = AudioBitrate(quality)
	case model.FormatJPG:
		opts.Format = FormatBest
		opts.WriteThumbnail = true
		opts.ConvertThumbnails = ThumbnailJPG
		opts.SkipDownload = true
	default:
		opts.Format = VideoSelector(quality)
		opts.MergeOutputFormat = MergeOutputMP4
	}

	return opts
}

// VideoSelector returns the video+audio selector capped at the quality's
// height, or the best single file for unknown qualities
func VideoSelector(quality string) string {
	height, ok := videoHeights[strings.TrimSpace(quality)]
	if !ok {
		return FormatBest
	}
	return "bestvideo[height<=" + height + "]+bestaudio/best"
}

// AudioBitrate strips the kbps suffix from an audio quality selector
func AudioBitrate(quality string) string {
	q := strings.TrimSpace(quality)
	if strings.HasSuffix(strings.ToLower(q), BitrateSuffix) {
		q = q[:len(q)-len(BitrateSuffix)]
	}
	return strings.TrimSpace(q)
}
