package registry

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ytget/yt-web/internal/model"
)

func newRequest() model.Request {
	return model.Request{URL: "https://example.com/video", Format: model.FormatMP4, Quality: "720p"}
}

func TestCreateAndGet(t *testing.T) {
	r := New()

	if err := r.Create("task-1", newRequest()); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	task := r.Get("task-1")
	if task.Status != model.TaskStatusPending {
		t.Errorf("Expected status pending, got %s", task.Status)
	}
	if task.Progress != 0 {
		t.Errorf("Expected progress 0, got %d", task.Progress)
	}
	if task.URL != "https://example.com/video" {
		t.Errorf("Expected URL to be kept, got %q", task.URL)
	}
	if task.CreatedAt.IsZero() {
		t.Error("Expected CreatedAt to be set")
	}
}

func TestCreateDuplicate(t *testing.T) {
	r := New()

	if err := r.Create("task-1", newRequest()); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	err := r.Create("task-1", newRequest())
	if !errors.Is(err, ErrExists) {
		t.Errorf("Expected ErrExists, got %v", err)
	}
}

func TestGetUnknown(t *testing.T) {
	r := New()

	task := r.Get("missing")
	if task.Status != model.TaskStatusUnknown {
		t.Errorf("Expected status unknown, got %s", task.Status)
	}

	if _, ok := r.Lookup("missing"); ok {
		t.Error("Expected Lookup to report missing task")
	}
}

func TestUpdateMissing(t *testing.T) {
	r := New()

	_, err := r.Update("missing", func(t *model.Task) { t.Progress = 10 })
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestUpdateMerge(t *testing.T) {
	r := New()
	_ = r.Create("task-1", newRequest())

	task, err := r.Update("task-1", func(t *model.Task) {
		t.Status = model.TaskStatusDownloading
		t.Progress = 40
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if task.Status != model.TaskStatusDownloading || task.Progress != 40 {
		t.Errorf("Unexpected task after update: %+v", task)
	}
	if task.StartedAt.IsZero() {
		t.Error("Expected StartedAt to be set on downloading")
	}
	if task.URL != "https://example.com/video" {
		t.Errorf("Expected untouched fields to survive, got URL %q", task.URL)
	}
}

func TestProgressMonotonic(t *testing.T) {
	r := New()
	_ = r.Create("task-1", newRequest())
	_, _ = r.Update("task-1", func(t *model.Task) { t.Status = model.TaskStatusDownloading })

	steps := []struct {
		set      int
		expected int
	}{
		{10, 10},
		{55, 55},
		{20, 55},
		{100, 100},
		{150, 100},
	}

	for _, step := range steps {
		if err := r.SetProgress("task-1", step.set); err != nil {
			t.Fatalf("SetProgress(%d) error: %v", step.set, err)
		}
		if got := r.Get("task-1").Progress; got != step.expected {
			t.Errorf("SetProgress(%d): progress = %d, expected %d", step.set, got, step.expected)
		}
	}
}

func TestTerminalIsImmutable(t *testing.T) {
	r := New()
	_ = r.Create("task-1", newRequest())
	_, _ = r.Update("task-1", func(t *model.Task) { t.Status = model.TaskStatusDownloading })
	_, err := r.Update("task-1", func(t *model.Task) {
		t.Status = model.TaskStatusError
		t.Error = "boom"
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	_, err = r.Update("task-1", func(t *model.Task) {
		t.Status = model.TaskStatusDone
		t.Filename = "downloads/task-1.mp4"
	})
	if !errors.Is(err, ErrTerminal) {
		t.Errorf("Expected ErrTerminal, got %v", err)
	}

	task := r.Get("task-1")
	if task.Status != model.TaskStatusError || task.Error != "boom" {
		t.Errorf("Expected error record to stay unchanged, got %+v", task)
	}
	if task.FinishedAt.IsZero() {
		t.Error("Expected FinishedAt to be set")
	}
}

func TestTimestamps(t *testing.T) {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	clock := func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}
	r := New(WithClock(clock))

	_ = r.Create("task-1", newRequest())
	_, _ = r.Update("task-1", func(t *model.Task) { t.Status = model.TaskStatusDownloading })
	_ = r.SetProgress("task-1", 40)
	task, _ := r.Update("task-1", func(t *model.Task) {
		t.Status = model.TaskStatusDone
		t.Filename = "downloads/task-1.mp4"
	})

	tests := []struct {
		name     string
		got      time.Time
		expected time.Time
	}{
		{"CreatedAt", task.CreatedAt, base.Add(1 * time.Minute)},
		{"StartedAt", task.StartedAt, base.Add(2 * time.Minute)},
		{"FinishedAt", task.FinishedAt, base.Add(3 * time.Minute)},
	}
	for _, test := range tests {
		if !test.got.Equal(test.expected) {
			t.Errorf("%s = %v, expected %v", test.name, test.got, test.expected)
		}
	}
}

func TestFieldsFollowStatus(t *testing.T) {
	r := New()
	_ = r.Create("task-1", newRequest())

	task, _ := r.Update("task-1", func(t *model.Task) {
		t.Status = model.TaskStatusDownloading
		t.Filename = "early.mp4"
		t.Error = "not yet"
	})
	if task.Filename != "" || task.Error != "" {
		t.Errorf("Expected filename and error to be cleared while downloading, got %+v", task)
	}

	task, _ = r.Update("task-1", func(t *model.Task) {
		t.Status = model.TaskStatusDone
		t.Filename = "downloads/task-1.mp4"
		t.Title = "Clip"
	})
	if task.Filename != "downloads/task-1.mp4" || task.Title != "Clip" {
		t.Errorf("Expected filename and title on done, got %+v", task)
	}
}

func TestEvictionAfterTTL(t *testing.T) {
	r := New(WithTTL(20 * time.Millisecond))
	defer r.Close()

	_ = r.Create("finished", newRequest())
	_ = r.Create("running", newRequest())
	_, _ = r.Update("running", func(t *model.Task) { t.Status = model.TaskStatusDownloading })
	_, _ = r.Update("finished", func(t *model.Task) {
		t.Status = model.TaskStatusError
		t.Error = "failed"
	})

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, ok := r.Lookup("finished"); !ok {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	if _, ok := r.Lookup("finished"); ok {
		t.Error("Expected finished task to be evicted")
	}
	if _, ok := r.Lookup("running"); !ok {
		t.Error("Expected running task to stay")
	}
}

func TestNoEvictionByDefault(t *testing.T) {
	r := New()
	_ = r.Create("task-1", newRequest())
	_, _ = r.Update("task-1", func(t *model.Task) { t.Status = model.TaskStatusError; t.Error = "x" })

	time.Sleep(30 * time.Millisecond)
	if r.Len() != 1 {
		t.Errorf("Expected task to be kept, registry has %d", r.Len())
	}
}

func TestConcurrentReadersAndWriters(t *testing.T) {
	r := New()
	const tasks = 20

	for i := range tasks {
		id := fmt.Sprintf("task-%d", i)
		_ = r.Create(id, newRequest())
		_, _ = r.Update(id, func(t *model.Task) { t.Status = model.TaskStatusDownloading })
	}

	var wg sync.WaitGroup
	for i := range tasks {
		id := fmt.Sprintf("task-%d", i)

		// one writer per key
		wg.Add(1)
		go func() {
			defer wg.Done()
			for p := 0; p <= 100; p++ {
				_ = r.SetProgress(id, p)
			}
		}()

		// many readers
		for range 3 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				last := 0
				for range 200 {
					task := r.Get(id)
					if task.Progress < last {
						t.Errorf("Progress went backwards for %s: %d -> %d", id, last, task.Progress)
						return
					}
					last = task.Progress
				}
			}()
		}
	}
	wg.Wait()

	for i := range tasks {
		if got := r.Get(fmt.Sprintf("task-%d", i)).Progress; got != 100 {
			t.Errorf("Expected final progress 100, got %d", got)
		}
	}
}
