package extract

import (
	"context"

	"github.com/ytget/yt-web/internal/model"
)

// Extractor defines the contract consumed from the extraction collaborator.
type Extractor interface {
	// Info queries metadata only; nothing is downloaded.
	Info(ctx context.Context, url string) (*model.MediaInfo, error)

	// Download fetches and transforms url according to opts, writing under
	// opts.OutputTemplate. onProgress may be called from another goroutine.
	Download(ctx context.Context, url string, opts Options, onProgress ProgressFunc) (*Result, error)
}

// Phase is the transfer sub-phase reported with a progress event
type Phase string

const (
	PhaseDownloading Phase = "downloading"
	PhaseFinished    Phase = "finished" // transfer ended, post-processing may follow
)

// Progress is one periodic transfer event
type Progress struct {
	Phase           Phase
	DownloadedBytes int64
	TotalBytes      int64 // exact size, or the estimate when only that is known; 0 when unknown
}

// ProgressFunc receives progress events
type ProgressFunc func(Progress)

// Result is what the collaborator reports after a successful download
type Result struct {
	Title string
}
