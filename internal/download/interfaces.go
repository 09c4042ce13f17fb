package download

import (
	"context"

	"github.com/ytget/yt-web/internal/model"
)

// Downloader defines the interface for the download service.
type Downloader interface {
	// Submit registers a task and starts it in the background. It never blocks on the work.
	Submit(req model.Request) (*Job, error)

	// GetTask returns the task snapshot, or the unknown sentinel
	GetTask(id string) model.Task

	// Close stops accepting tasks and waits for running ones
	Close(ctx context.Context) error
}

// Recorder receives every task once it reaches a terminal state
type Recorder interface {
	Record(ctx context.Context, task model.Task) error
}
