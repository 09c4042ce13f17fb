package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "yt-web.toml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

func TestDefault(t *testing.T) {
	s := Default()

	if s.Addr != DefaultAddr {
		t.Errorf("Expected addr %s, got %s", DefaultAddr, s.Addr)
	}
	if s.DownloadDir != DefaultDownloadDir {
		t.Errorf("Expected download dir %s, got %s", DefaultDownloadDir, s.DownloadDir)
	}
	if s.CookieFile != DefaultCookieFile {
		t.Errorf("Expected cookie file %s, got %s", DefaultCookieFile, s.CookieFile)
	}
	if s.MaxParallel != DefaultMaxParallel {
		t.Errorf("Expected max parallel %d, got %d", DefaultMaxParallel, s.MaxParallel)
	}
	if err := s.Validate(); err != nil {
		t.Errorf("Expected defaults to validate, got %v", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if s.Addr != DefaultAddr {
		t.Errorf("Expected defaults, got %+v", s)
	}
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
addr = "127.0.0.1:9000"
download_dir = "/srv/media"
max_parallel = 4
task_ttl = "30m"
history_db = "/srv/history.db"
debug = true
`)

	s, err := Load(path)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if s.Addr != "127.0.0.1:9000" || s.DownloadDir != "/srv/media" || s.MaxParallel != 4 {
		t.Errorf("Unexpected settings: %+v", s)
	}
	if s.CookieFile != DefaultCookieFile {
		t.Errorf("Expected unset keys to keep defaults, got cookie file %q", s.CookieFile)
	}
	if !s.Debug || s.HistoryDB != "/srv/history.db" {
		t.Errorf("Unexpected settings: %+v", s)
	}

	ttl, err := s.GetTaskTTL()
	if err != nil || ttl != 30*time.Minute {
		t.Errorf("Expected ttl 30m, got %v (%v)", ttl, err)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []string{
		`addr = `,
		`task_ttl = "soon"`,
		`progress_interval = "-1s"`,
		`addr = ""`,
	}

	for _, content := range tests {
		if _, err := Load(writeConfig(t, content)); err == nil {
			t.Errorf("Expected error for config %q", content)
		}
	}
}

func TestMaxParallelDownloads(t *testing.T) {
	s := Default()

	s.SetMaxParallelDownloads(5)
	if s.MaxParallel != 5 {
		t.Errorf("Expected max parallel 5, got %d", s.MaxParallel)
	}

	s.SetMaxParallelDownloads(0) // Should be clamped to 1
	if s.MaxParallel != 1 {
		t.Error("Max parallel should be clamped to minimum 1")
	}

	s.SetMaxParallelDownloads(15) // Should be clamped to 10
	if s.MaxParallel != 10 {
		t.Error("Max parallel should be clamped to maximum 10")
	}
}

func TestProgressInterval(t *testing.T) {
	s := Default()

	interval, err := s.GetProgressInterval()
	if err != nil || interval != 500*time.Millisecond {
		t.Errorf("Expected default interval 500ms, got %v (%v)", interval, err)
	}

	s.ProgressInterval = ""
	if interval, _ := s.GetProgressInterval(); interval != 500*time.Millisecond {
		t.Errorf("Expected empty interval to fall back to default, got %v", interval)
	}
}

func TestTaskTTL_Default(t *testing.T) {
	ttl, err := Default().GetTaskTTL()
	if err != nil || ttl != 0 {
		t.Errorf("Expected no eviction by default, got %v (%v)", ttl, err)
	}
}
