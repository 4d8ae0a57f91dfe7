package swr

import (
	"bytes"
	"fmt"
	"os"

	toml "github.com/pelletier/go-toml/v2"
)

// Config holds the renderer's tuning knobs. The zero value of any field
// selects its default, so a partial TOML file or a zero Config is valid.
type Config struct {
	// Workers is the number of worker goroutines running batch tasks.
	// Defaults to GOMAXPROCS.
	Workers int `toml:"workers"`

	// DrawCallPoolSize bounds the number of in-flight draws. Submission
	// blocks when the pool is exhausted. Defaults to 16.
	DrawCallPoolSize int `toml:"draw_call_pool_size"`

	// BatchPoolSize bounds the number of in-flight batches across all
	// draws. Defaults to 64.
	BatchPoolSize int `toml:"batch_pool_size"`
}

// Default pool capacities. Submission applies back-pressure when they are
// exhausted, bounding the renderer's working set.
const (
	defaultDrawCallPoolSize = 16
	defaultBatchPoolSize    = 64
)

// DefaultConfig returns a Config with every field at its default.
func DefaultConfig() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	if c.DrawCallPoolSize <= 0 {
		c.DrawCallPoolSize = defaultDrawCallPoolSize
	}
	if c.BatchPoolSize <= 0 {
		c.BatchPoolSize = defaultBatchPoolSize
	}
	// Workers <= 0 is handled by the worker pool itself (GOMAXPROCS).
}

// LoadConfig reads a TOML config file. Missing fields fall back to their
// defaults. Unknown keys are rejected so typos fail loudly instead of
// silently running with defaults.
func LoadConfig(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("swr: reading config: %w", err)
	}

	c := &Config{}
	dec := toml.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(c); err != nil {
		return nil, fmt.Errorf("swr: parsing config %s: %w", path, err)
	}

	c.applyDefaults()
	return c, nil
}
