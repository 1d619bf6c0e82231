package chat

import (
	"fmt"
	"time"

	"github.com/iyunix/go-juri/internal/services/completion"
)

type Config struct {
	// Periodic write-back of the whole collection; zero disables it.
	AutosaveInterval time.Duration

	// Bound on every store call made by the controller
	PersistTimeout time.Duration

	// Attachments are checked against this before anything is mutated
	Files completion.FilePolicy

	// Clock is used for message and conversation timestamps.
	Clock func() time.Time
}

func (c *Config) Validate() error {
	if c.AutosaveInterval < 0 {
		return fmt.Errorf("autosave_interval cannot be negative")
	}
	if c.PersistTimeout <= 0 {
		return fmt.Errorf("persist_timeout must be positive")
	}
	if c.Files.MaxFileSize <= 0 {
		return fmt.Errorf("max_file_size must be positive")
	}
	if len(c.Files.AllowedExtensions) == 0 {
		return fmt.Errorf("at least one allowed extension is required")
	}
	return nil
}

func DefaultConfig() *Config {
	return &Config{
		AutosaveInterval: 30 * time.Second,
		PersistTimeout:   5 * time.Second,
		Files:            completion.DefaultFilePolicy(),
		Clock:            func() time.Time { return time.Now().UTC() },
	}
}
