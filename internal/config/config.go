// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load layers a YAML file and PLAYVIEW_ env vars over the defaults.
// - Validation and provider errors wrap this package's sentinel errors.
package config

import (
	"fmt"
	"net/url"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// BackendURL is the base URL of the play data backend.
	BackendURL string `koanf:"backend_url"`

	// BackendTimeoutMS bounds each backend request.
	BackendTimeoutMS int `koanf:"backend_timeout_ms"`

	// FieldImage is a file path or http(s) URL of the field background.
	FieldImage string `koanf:"field_image"`

	// RefreshHz is the display refresh rate; playback advances one frame per tick.
	RefreshHz int `koanf:"refresh_hz"`

	// FrameQueueSize bounds the rendered snapshot queue.
	FrameQueueSize int `koanf:"frame_queue_size"`

	// EncoderWorkers sets the number of PNG encoding workers.
	EncoderWorkers int `koanf:"encoder_workers"`

	// ViewerBuffer bounds the outgoing messages buffered per websocket viewer.
	ViewerBuffer int `koanf:"viewer_buffer"`

	// CachePath enables the SQLite play cache when set.
	CachePath string `koanf:"cache_path"`

	// CacheTTLSeconds expires cached plays; 0 keeps them forever.
	CacheTTLSeconds int `koanf:"cache_ttl_s"`

	// NATSURL enables publishing playback events when set.
	NATSURL string `koanf:"nats_url"`

	// NATSSubject is the subject prefix for playback events.
	NATSSubject string `koanf:"nats_subject"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:         "info",
		LogFormat:        "text",
		Addr:             ":9080",
		BackendURL:       "http://localhost:5001",
		BackendTimeoutMS: 10_000,
		FieldImage:       "static/images/football_field.png",
		RefreshHz:        60,
		FrameQueueSize:   64,
		EncoderWorkers:   1,
		ViewerBuffer:     8,
		NATSSubject:      "playview.playback",
	}
}

// BackendTimeout returns BackendTimeoutMS as a duration.
func (c *Config) BackendTimeout() time.Duration {
	return time.Duration(c.BackendTimeoutMS) * time.Millisecond
}

// CacheTTL returns CacheTTLSeconds as a duration.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

// Validate reports the first invalid setting, wrapped in ErrInvalidConfig.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.BackendURL == "":
		return fmt.Errorf("%w: backend_url must not be empty", ErrInvalidConfig)
	case c.BackendTimeoutMS <= 0:
		return fmt.Errorf("%w: backend_timeout_ms must be positive", ErrInvalidConfig)
	case c.RefreshHz <= 0:
		return fmt.Errorf("%w: refresh_hz must be positive", ErrInvalidConfig)
	case c.FrameQueueSize <= 0:
		return fmt.Errorf("%w: frame_queue_size must be positive", ErrInvalidConfig)
	case c.EncoderWorkers <= 0:
		return fmt.Errorf("%w: encoder_workers must be positive", ErrInvalidConfig)
	case c.ViewerBuffer <= 0:
		return fmt.Errorf("%w: viewer_buffer must be positive", ErrInvalidConfig)
	case c.CacheTTLSeconds < 0:
		return fmt.Errorf("%w: cache_ttl_s must not be negative", ErrInvalidConfig)
	}
	u, err := url.Parse(c.BackendURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: backend_url %q is not an http(s) URL", ErrInvalidConfig, c.BackendURL)
	}
	return nil
}
