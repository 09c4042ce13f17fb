// Package extract is the boundary to the media extraction collaborator.
// It turns a requested format and quality into extractor options, defines
// the progress events the collaborator emits, and ships an implementation
// backed by yt-dlp (via github.com/lrstanley/go-ytdlp).
package extract
