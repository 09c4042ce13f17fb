package download

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/ytget/yt-web/internal/extract"
	"github.com/ytget/yt-web/internal/model"
	"github.com/ytget/yt-web/internal/platform"
	"github.com/ytget/yt-web/internal/registry"
)

// Concurrency limits
const (
	DefaultMaxParallel = 2
	MaxParallelLimit   = 10
)

var (
	// ErrClosed is returned by Submit after Close
	ErrClosed = errors.New("download service is closed")

	// ErrStopped is recorded for tasks that never got a slot before shutdown
	ErrStopped = errors.New("service stopped")
)

// Options configure a Service
type Options struct {
	DownloadDir string
	CookieFile  string // attached when the file exists at job start
	MaxParallel int
	Recorder    Recorder // optional
}

// Service handles download operations
type Service struct {
	registry    *registry.Registry
	extractor   extract.Extractor
	downloadDir string
	cookieFile  string
	maxParallel int
	slots       chan struct{}
	recorder    Recorder

	ctx    context.Context // cancelled by Close, releases tasks still waiting for a slot
	cancel context.CancelFunc

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewService creates a new download service
func NewService(reg *registry.Registry, extractor extract.Extractor, opts Options) *Service {
	maxParallel := opts.MaxParallel
	if maxParallel < 1 {
		maxParallel = DefaultMaxParallel
	}
	if maxParallel > MaxParallelLimit {
		maxParallel = MaxParallelLimit
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		registry:    reg,
		extractor:   extractor,
		downloadDir: opts.DownloadDir,
		cookieFile:  opts.CookieFile,
		maxParallel: maxParallel,
		slots:       make(chan struct{}, maxParallel),
		recorder:    opts.Recorder,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Submit adds a new download task
func (s *Service) Submit(req model.Request) (*Job, error) {
	req = req.WithDefaults()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrClosed
	}

	id := generateTaskID()
	if err := s.registry.Create(id, req); err != nil {
		return nil, err
	}

	job := newJob(id)
	s.wg.Add(1)
	go s.run(job, req)

	log.Printf("Task %s submitted: url=%s format=%s quality=%s", id, req.URL, req.Format, req.Quality)
	return job, nil
}

// GetTask returns a task by ID
func (s *Service) GetTask(id string) model.Task {
	return s.registry.Get(id)
}

// Close stops accepting tasks, releases queued ones and waits for running
// downloads until ctx expires
func (s *Service) Close(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "waiting for running downloads")
	}
}

// run waits for a slot and executes the task
func (s *Service) run(job *Job, req model.Request) {
	defer s.wg.Done()
	defer close(job.done)

	select {
	case s.slots <- struct{}{}:
	case <-s.ctx.Done():
		s.fail(job.ID, ErrStopped)
		return
	}
	defer func() { <-s.slots }()

	s.execute(job.ID, req)
}

// execute performs one extraction. Every failure, including a panic, ends
// as an error status on the task.
func (s *Service) execute(id string, req model.Request) {
	defer func() {
		if r := recover(); r != nil {
			s.fail(id, fmt.Errorf("panic: %v", r))
		}
	}()

	if _, err := s.registry.Update(id, func(t *model.Task) {
		t.Status = model.TaskStatusDownloading
		t.Progress = 0
	}); err != nil {
		log.Printf("Task %s could not start: %v", id, err)
		return
	}
	log.Printf("Task %s downloading", id)

	opts := extract.BuildOptions(
		req.Format,
		req.Quality,
		platform.OutputTemplate(s.downloadDir, id),
		platform.CookieFile(s.cookieFile),
	)

	// no cancellation: a started task runs until the extractor returns
	result, err := s.extractor.Download(context.Background(), req.URL, opts, s.progressHook(id))
	if err != nil {
		s.fail(id, err)
		return
	}

	path, err := platform.ResolveOutputPath(s.downloadDir, id, req.Format.Ext())
	if err != nil {
		s.fail(id, err)
		return
	}

	title := model.DefaultTitle
	if result != nil && result.Title != "" {
		title = result.Title
	}

	s.finish(id, func(t *model.Task) {
		t.Status = model.TaskStatusDone
		t.Progress = 100
		t.Filename = path
		t.Title = title
	})
	log.Printf("Task %s finished: %s", id, path)
}

func (s *Service) fail(id string, err error) {
	msg := err.Error()
	if msg == "" {
		msg = "download failed"
	}
	log.Printf("Task %s failed: %v", id, err)

	s.finish(id, func(t *model.Task) {
		t.Status = model.TaskStatusError
		t.Error = msg
	})
}

// finish applies the terminal update and hands the record to the recorder
func (s *Service) finish(id string, fn func(*model.Task)) {
	task, err := s.registry.Update(id, fn)
	if err != nil {
		log.Printf("Task %s final update rejected: %v", id, err)
		return
	}

	if s.recorder != nil {
		if err := s.recorder.Record(context.Background(), task); err != nil {
			log.Printf("Task %s history write failed: %v", id, err)
		}
	}
}

// generateTaskID generates a random UUID v4 task identifier
func generateTaskID() string {
	return uuid.NewString()
}
