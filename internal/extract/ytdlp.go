package extract

import (
	"bufio"
	"context"
	"encoding/json"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/lrstanley/go-ytdlp"
	"github.com/pkg/errors"

	"github.com/ytget/yt-web/internal/model"
)

// Defaults for the yt-dlp backed extractor
const (
	DefaultProgressInterval = 500 * time.Millisecond
	DefaultPlatform         = "Web"
)

// YTDLP runs downloads through the yt-dlp executable
type YTDLP struct {
	progressInterval time.Duration
}

// NewYTDLP creates an extractor that reports progress every interval
func NewYTDLP(interval time.Duration) *YTDLP {
	if interval <= 0 {
		interval = DefaultProgressInterval
	}
	return &YTDLP{progressInterval: interval}
}

// Install makes sure a yt-dlp executable is available, downloading it if needed
func Install(ctx context.Context) error {
	resolved, err := ytdlp.Install(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "install yt-dlp")
	}
	log.Printf("Using yt-dlp %s at %s", resolved.Version, resolved.Executable)
	return nil
}

// Info queries metadata without downloading
func (y *YTDLP) Info(ctx context.Context, url string) (*model.MediaInfo, error) {
	result, err := ytdlp.New().
		Quiet().
		NoWarnings().
		NoPlaylist().
		SkipDownload().
		DumpSingleJSON().
		Run(ctx, url)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return parseInfo([]byte(result.Stdout))
}

// Download runs one extraction with the given options
func (y *YTDLP) Download(ctx context.Context, url string, opts Options, onProgress ProgressFunc) (*Result, error) {
	dl := y.command(opts)

	var (
		titleMu sync.Mutex
		title   string
	)
	dl.ProgressFunc(y.progressInterval, func(update ytdlp.ProgressUpdate) {
		if update.Info != nil && update.Info.Title != nil && *update.Info.Title != "" {
			titleMu.Lock()
			title = *update.Info.Title
			titleMu.Unlock()
		}
		if onProgress != nil {
			// go-ytdlp already falls back to total_bytes_estimate in TotalBytes
			onProgress(Progress{
				Phase:           Phase(update.Status),
				DownloadedBytes: int64(update.DownloadedBytes),
				TotalBytes:      int64(update.TotalBytes),
			})
		}
	})

	result, err := dl.Run(ctx, url)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	titleMu.Lock()
	res := &Result{Title: title}
	titleMu.Unlock()

	if res.Title == "" {
		if info, err := result.GetExtractedInfo(); err == nil && len(info) > 0 && info[0].Title != nil {
			res.Title = *info[0].Title
		}
	}
	if res.Title == "" {
		if info, err := lastInfoLine(result.Stdout); err == nil {
			res.Title = info.Title
		}
	}
	return res, nil
}

// command maps Options onto yt-dlp flags
func (y *YTDLP) command(opts Options) *ytdlp.Command {
	dl := ytdlp.New().
		NoPlaylist().
		NoWarnings().
		ForceOverwrites().
		DumpJSON().
		NoSimulate().
		Output(opts.OutputTemplate)

	if opts.Format != "" {
		dl.Format(opts.Format)
	}
	if opts.MergeOutputFormat != "" {
		dl.MergeOutputFormat(opts.MergeOutputFormat)
	}
	if opts.ExtractAudio {
		dl.ExtractAudio()
		if opts.AudioFormat != "" {
			dl.AudioFormat(opts.AudioFormat)
		}
		if opts.AudioQuality != "" {
			dl.AudioQuality(audioQualityFlag(opts.AudioQuality))
		}
	}
	if opts.WriteThumbnail {
		dl.WriteThumbnail()
		if opts.ConvertThumbnails != "" {
			dl.ConvertThumbnails(opts.ConvertThumbnails)
		}
	}
	if opts.SkipDownload {
		dl.SkipDownload()
	}
	if opts.CookieFile != "" {
		dl.Cookies(opts.CookieFile)
	}
	return dl
}

// audioQualityFlag turns a plain bitrate into yt-dlp's "<n>K" notation.
// Values 0-10 are VBR levels and pass through.
func audioQualityFlag(bitrate string) string {
	for _, r := range bitrate {
		if r < '0' || r > '9' {
			return bitrate
		}
	}
	if len(bitrate) <= 1 || bitrate == "10" {
		return bitrate
	}
	return bitrate + "K"
}

// infoJSON is the subset of yt-dlp's info dict used for previews
type infoJSON struct {
	Title          string   `json:"title"`
	DurationString string   `json:"duration_string"`
	ViewCount      *float64 `json:"view_count"`
	Thumbnail      string   `json:"thumbnail"`
	ExtractorKey   string   `json:"extractor_key"`
}

func parseInfo(data []byte) (*model.MediaInfo, error) {
	var raw infoJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(err, "decode yt-dlp metadata")
	}
	return raw.toMediaInfo(), nil
}

func (i *infoJSON) toMediaInfo() *model.MediaInfo {
	info := &model.MediaInfo{
		Title:     i.Title,
		Duration:  i.DurationString,
		Thumbnail: i.Thumbnail,
		Platform:  i.ExtractorKey,
	}
	if i.ViewCount != nil {
		info.Views = int64(*i.ViewCount)
	}
	if info.Platform == "" {
		info.Platform = DefaultPlatform
	}
	return info
}

// lastInfoLine returns the last JSON object line in yt-dlp output
func lastInfoLine(output string) (*model.MediaInfo, error) {
	var found *model.MediaInfo
	scanner := bufio.NewScanner(strings.NewReader(output))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "{") {
			continue
		}
		if info, err := parseInfo([]byte(line)); err == nil {
			found = info
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "scan yt-dlp output")
	}
	if found == nil {
		return nil, errors.New("no metadata in yt-dlp output")
	}
	return found, nil
}
