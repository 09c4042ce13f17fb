// Package config loads service settings: built-in defaults, overridden by a
// TOML file, overridden by command line flags.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
)

// Default values
const (
	DefaultAddr             = ":8080"
	DefaultDownloadDir      = "downloads"
	DefaultCookieFile       = "cookies.txt"
	DefaultMaxParallel      = 2
	DefaultProgressInterval = "500ms"
	DefaultConfigFile       = "yt-web.toml"

	MinParallel = 1
	MaxParallel = 10
)

// Settings holds all service configuration
type Settings struct {
	Addr             string `toml:"addr"`
	DownloadDir      string `toml:"download_dir"`
	CookieFile       string `toml:"cookie_file"`
	MaxParallel      int    `toml:"max_parallel"`
	TaskTTL          string `toml:"task_ttl"` // empty keeps finished tasks forever
	ProgressInterval string `toml:"progress_interval"`
	HistoryDB        string `toml:"history_db"` // empty disables the archive
	InstallYTDLP     bool   `toml:"install_ytdlp"`
	Debug            bool   `toml:"debug"`
}

// Default returns the default configuration
func Default() *Settings {
	return &Settings{
		Addr:             DefaultAddr,
		DownloadDir:      DefaultDownloadDir,
		CookieFile:       DefaultCookieFile,
		MaxParallel:      DefaultMaxParallel,
		ProgressInterval: DefaultProgressInterval,
	}
}

// Load reads the TOML file at path over the defaults.
// A missing file is not an error.
func Load(path string) (*Settings, error) {
	s := Default()
	if path == "" {
		return s, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, errors.Wrap(err, "reading config")
	}

	if err := toml.Unmarshal(data, s); err != nil {
		return nil, errors.Wrapf(err, "parsing config %s", path)
	}

	if err := s.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}
	return s, nil
}

// Validate checks values and clamps the parallelism
func (s *Settings) Validate() error {
	if strings.TrimSpace(s.Addr) == "" {
		return errors.New("addr cannot be empty")
	}
	if strings.TrimSpace(s.DownloadDir) == "" {
		return errors.New("download_dir cannot be empty")
	}
	s.SetMaxParallelDownloads(s.MaxParallel)

	if _, err := s.GetTaskTTL(); err != nil {
		return err
	}
	if _, err := s.GetProgressInterval(); err != nil {
		return err
	}
	return nil
}

// SetMaxParallelDownloads sets the maximum number of parallel downloads
func (s *Settings) SetMaxParallelDownloads(count int) {
	if count < MinParallel {
		count = MinParallel
	}
	if count > MaxParallel {
		count = MaxParallel
	}
	s.MaxParallel = count
}

// GetTaskTTL returns how long finished tasks stay in memory, 0 meaning forever
func (s *Settings) GetTaskTTL() (time.Duration, error) {
	if strings.TrimSpace(s.TaskTTL) == "" {
		return 0, nil
	}
	ttl, err := time.ParseDuration(s.TaskTTL)
	if err != nil {
		return 0, errors.Wrapf(err, "task_ttl %q", s.TaskTTL)
	}
	if ttl < 0 {
		return 0, errors.Errorf("task_ttl %q must not be negative", s.TaskTTL)
	}
	return ttl, nil
}

// GetProgressInterval returns how often the extractor reports progress
func (s *Settings) GetProgressInterval() (time.Duration, error) {
	if strings.TrimSpace(s.ProgressInterval) == "" {
		return time.ParseDuration(DefaultProgressInterval)
	}
	interval, err := time.ParseDuration(s.ProgressInterval)
	if err != nil {
		return 0, errors.Wrapf(err, "progress_interval %q", s.ProgressInterval)
	}
	if interval <= 0 {
		return 0, errors.Errorf("progress_interval %q must be positive", s.ProgressInterval)
	}
	return interval, nil
}
