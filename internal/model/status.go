package model

// TaskStatus represents the status of a download task
type TaskStatus string

const (
	// TaskStatusPending means the task is registered but no worker picked it up yet
	TaskStatusPending TaskStatus = "pending"

	// TaskStatusDownloading means the extraction is in progress
	TaskStatusDownloading TaskStatus = "downloading"

	// TaskStatusDone means the task finished and its file is on disk
	TaskStatusDone TaskStatus = "done"

	// TaskStatusError means the task failed with an error
	TaskStatusError TaskStatus = "error"

	// TaskStatusUnknown is reported for identifiers the registry does not hold
	TaskStatusUnknown TaskStatus = "unknown"
)

// String returns the string representation of TaskStatus
func (ts TaskStatus) String() string {
	return string(ts)
}

// IsFinished returns true if the task is in a terminal state (done or error)
func (ts TaskStatus) IsFinished() bool {
	return ts == TaskStatusDone || ts == TaskStatusError
}
