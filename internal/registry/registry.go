// Package registry holds the process-wide table of download tasks. Every
// record has exactly one writer (the job that owns it) and any number of
// readers; each write replaces the whole record under the lock so readers
// only ever see complete snapshots.
package registry

import (
	"log"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/ytget/yt-web/internal/model"
)

var (
	// ErrExists is returned when a task identifier is registered twice
	ErrExists = errors.New("task already exists")

	// ErrNotFound is returned when updating an identifier the registry does not hold
	ErrNotFound = errors.New("task not found")

	// ErrTerminal is returned when updating a task that already reached done or error
	ErrTerminal = errors.New("task already finished")
)

// Registry maps task identifiers to their latest snapshot
type Registry struct {
	mu     sync.RWMutex
	tasks  map[string]*model.Task
	timers map[string]*time.Timer
	ttl    time.Duration
	now    func() time.Time
}

// Option configures a Registry
type Option func(*Registry)

// WithTTL evicts finished tasks ttl after they reach a terminal state.
// Zero keeps them for the lifetime of the process.
func WithTTL(ttl time.Duration) Option {
	return func(r *Registry) {
		r.ttl = ttl
	}
}

// WithClock overrides the time source used for timestamps
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		r.now = now
	}
}

// New creates an empty registry
func New(opts ...Option) *Registry {
	r := &Registry{
		tasks:  make(map[string]*model.Task),
		timers: make(map[string]*time.Timer),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Create inserts a pending record for id
func (r *Registry) Create(id string, req model.Request) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tasks[id]; exists {
		return errors.Wrapf(ErrExists, "id %s", id)
	}

	r.tasks[id] = &model.Task{
		ID:        id,
		URL:       req.URL,
		Format:    req.Format,
		Quality:   req.Quality,
		Status:    model.TaskStatusPending,
		Progress:  0,
		CreatedAt: r.now(),
	}
	return nil
}

// Get returns a copy of the record, or the unknown sentinel if absent
func (r *Registry) Get(id string) model.Task {
	task, ok := r.Lookup(id)
	if !ok {
		return model.UnknownTask(id)
	}
	return task
}

// Lookup returns a copy of the record and whether it exists
func (r *Registry) Lookup(id string) (model.Task, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	task, ok := r.tasks[id]
	if !ok {
		return model.Task{}, false
	}
	return *task, true
}

// Update applies fn to a copy of the record and stores the result in one step.
// Terminal records are never modified.
func (r *Registry) Update(id string, fn func(*model.Task)) (model.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.tasks[id]
	if !ok {
		return model.Task{}, errors.Wrapf(ErrNotFound, "id %s", id)
	}
	if current.Status.IsFinished() {
		return *current, errors.Wrapf(ErrTerminal, "id %s status %s", id, current.Status)
	}

	next := *current
	fn(&next)
	next.ID = current.ID
	r.normalize(current, &next)

	r.tasks[id] = &next
	if next.Status.IsFinished() {
		r.scheduleEviction(id)
	}
	return next, nil
}

// SetProgress records a download percentage. Lower values than the current
// one are ignored.
func (r *Registry) SetProgress(id string, percent int) error {
	_, err := r.Update(id, func(t *model.Task) {
		t.Progress = percent
	})
	return err
}

// Len returns the number of tracked tasks
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tasks)
}

// Close stops pending eviction timers. Records stay readable.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, timer := range r.timers {
		timer.Stop()
		delete(r.timers, id)
	}
}

func (r *Registry) normalize(prev, next *model.Task) {
	if next.Progress < 0 {
		next.Progress = 0
	}
	if next.Progress > 100 {
		next.Progress = 100
	}
	if prev.Status == model.TaskStatusDownloading && next.Status == model.TaskStatusDownloading &&
		next.Progress < prev.Progress {
		next.Progress = prev.Progress
	}

	if next.Status == model.TaskStatusDownloading && prev.Status != model.TaskStatusDownloading && next.StartedAt.IsZero() {
		next.StartedAt = r.now()
	}
	if next.Status.IsFinished() && next.FinishedAt.IsZero() {
		next.FinishedAt = r.now()
	}

	// filename and title belong to done, error text belongs to error
	if next.Status != model.TaskStatusDone {
		next.Filename = ""
		next.Title = ""
	}
	if next.Status != model.TaskStatusError {
		next.Error = ""
	}
}

// scheduleEviction expects r.mu to be held
func (r *Registry) scheduleEviction(id string) {
	if r.ttl <= 0 {
		return
	}
	if old, ok := r.timers[id]; ok {
		old.Stop()
	}
	r.timers[id] = time.AfterFunc(r.ttl, func() {
		r.evict(id)
	})
}

func (r *Registry) evict(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if task, ok := r.tasks[id]; ok && task.Status.IsFinished() {
		delete(r.tasks, id)
		log.Printf("Task %s evicted from registry", id)
	}
	delete(r.timers, id)
}
