package model

import (
	"strings"
	"time"
)

// Format selects what the extraction produces
type Format string

const (
	FormatMP4 Format = "mp4" // video with audio merged into mp4
	FormatMP3 Format = "mp3" // audio only, transcoded to mp3
	FormatJPG Format = "jpg" // thumbnail only, no media download
)

// Request defaults
const (
	DefaultFormat  = FormatMP4
	DefaultQuality = "1080p"
	DefaultTitle   = "video"
)

// ParseFormat maps user input to a Format. Anything unrecognised is a video download.
func ParseFormat(s string) Format {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatMP3:
		return FormatMP3
	case FormatJPG:
		return FormatJPG
	default:
		return FormatMP4
	}
}

// Ext returns the file extension expected for the format
func (f Format) Ext() string {
	switch f {
	case FormatMP3:
		return "mp3"
	case FormatJPG:
		return "jpg"
	default:
		return "mp4"
	}
}

// Request is a single download submission
type Request struct {
	URL     string `json:"url"`
	Format  Format `json:"format"`
	Quality string `json:"quality"`
}

// WithDefaults fills empty fields the same way the web form leaves them
func (r Request) WithDefaults() Request {
	if r.Format == "" {
		r.Format = DefaultFormat
	} else {
		r.Format = ParseFormat(string(r.Format))
	}
	if strings.TrimSpace(r.Quality) == "" {
		r.Quality = DefaultQuality
	}
	return r
}

// Task is a snapshot of one download task
type Task struct {
	ID         string     `json:"-"`
	URL        string     `json:"-"`
	Format     Format     `json:"-"`
	Quality    string     `json:"-"`
	Status     TaskStatus `json:"status"`
	Progress   int        `json:"progress"` // 0 to 100
	Filename   string     `json:"filename,omitempty"`
	Title      string     `json:"title,omitempty"`
	Error      string     `json:"error,omitempty"`
	CreatedAt  time.Time  `json:"-"`
	StartedAt  time.Time  `json:"-"`
	FinishedAt time.Time  `json:"-"`
}

// UnknownTask is returned for identifiers that were never registered or were evicted
func UnknownTask(id string) Task {
	return Task{ID: id, Status: TaskStatusUnknown}
}

// MediaInfo is the metadata preview for a URL
type MediaInfo struct {
	Title     string `json:"title"`
	Duration  string `json:"duration"`
	Views     int64  `json:"views"`
	Thumbnail string `json:"thumbnail"`
	Platform  string `json:"platform"`
}
