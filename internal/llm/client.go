// Package llm abstracts the language-model backend used for follow-up
// question generation.
package llm

import (
	"context"
	"time"
)

// Client generates a single text completion for a prompt.
type Client interface {
	Complete(ctx context.Context, prompt string) (string, error)
	Model() string
}

// Config carries the connection settings shared by client constructors.
type Config struct {
	APIKey  string
	BaseURL string
	// Timeout is in seconds. Zero means the constructor default.
	Timeout int
}

func (c Config) timeout(fallback time.Duration) time.Duration {
	if c.Timeout > 0 {
		return time.Duration(c.Timeout) * time.Second
	}
	return fallback
}
