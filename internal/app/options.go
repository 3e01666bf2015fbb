package service

import (
	"time"

	"github.com/okian/playview/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithBackend sets the backend base URL and per-request timeout.
func WithBackend(baseURL string, timeout time.Duration) Option {
	return func(s *Service) {
		if baseURL != "" {
			s.backendURL = baseURL
		}
		if timeout > 0 {
			s.backendTimeout = timeout
		}
	}
}

// WithFieldImage sets the file path or URL of the field background.
func WithFieldImage(location string) Option {
	return func(s *Service) {
		s.fieldImage = location
	}
}

// WithRefreshHz sets the refresh rate that drives playback.
func WithRefreshHz(hz int) Option {
	return func(s *Service) {
		if hz > 0 {
			s.refreshHz = hz
		}
	}
}

// WithQueueSize sets the capacity of the frame queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithEncoderWorkers sets the number of PNG encoding workers.
func WithEncoderWorkers(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.encoderWorkers = count
		}
	}
}

// WithViewerBuffer sets the outgoing buffer per websocket viewer.
func WithViewerBuffer(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.viewerBuffer = n
		}
	}
}

// WithCache enables the SQLite play cache at path. A zero ttl never expires.
func WithCache(path string, ttl time.Duration) Option {
	return func(s *Service) {
		s.cachePath = path
		s.cacheTTL = ttl
	}
}

// WithNATS publishes playback events to url under subject.
func WithNATS(url, subject string) Option {
	return func(s *Service) {
		s.natsURL = url
		if subject != "" {
			s.natsSubject = subject
		}
	}
}
