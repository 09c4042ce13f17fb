package download

import "github.com/ytget/yt-web/internal/extract"

// Percent converts a byte count into 0-100. Without a total the percentage is 0.
func Percent(downloaded, total int64) int {
	if total <= 0 || downloaded <= 0 {
		return 0
	}

	percent := float64(downloaded) / float64(total) * 100
	if percent > 100 {
		return 100
	}
	return int(percent)
}

// progressHook writes collaborator progress events into the task record
func (s *Service) progressHook(taskID string) extract.ProgressFunc {
	return func(p extract.Progress) {
		var percent int
		switch p.Phase {
		case extract.PhaseDownloading:
			percent = Percent(p.DownloadedBytes, p.TotalBytes)
		case extract.PhaseFinished:
			percent = 100
		default:
			return
		}
		// a late event after the task finished is refused by the registry
		_ = s.registry.SetProgress(taskID, percent)
	}
}
