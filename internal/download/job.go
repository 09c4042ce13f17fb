package download

import "context"

// Job is the handle for one submitted task
type Job struct {
	ID   string
	done chan struct{}
}

func newJob(id string) *Job {
	return &Job{ID: id, done: make(chan struct{})}
}

// Done is closed once the task reached done or error
func (j *Job) Done() <-chan struct{} {
	return j.done
}

// Wait blocks until the task finished or ctx is done
func (j *Job) Wait(ctx context.Context) error {
	select {
	case <-j.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
