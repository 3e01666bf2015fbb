package render

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg" // decoders for field images
	_ "image/png"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/playview/pkg/logger"
	"github.com/okian/playview/pkg/metrics"
)

const defaultResourceTimeout = 30 * time.Second

// Backdrop is what the renderer polls for the field image.
type Backdrop interface {
	Ready() bool
	Image() image.Image
}

// Background is an asynchronously loaded field image. Ready flips to true once
// the image is decoded; a failed load leaves it false for good.
type Background struct {
	ready atomic.Bool
	once  sync.Once
	done  chan struct{}

	mu      sync.Mutex
	img     image.Image
	err     error
	waiters []func()

	client *http.Client
	logger logger.Logger
}

// BackgroundOption configures a Background.
type BackgroundOption func(*Background)

// WithHTTPClient sets the client used for http(s) locations.
func WithHTTPClient(c *http.Client) BackgroundOption {
	return func(b *Background) {
		if c != nil {
			b.client = c
		}
	}
}

// WithLogger sets the logger used to report load failures.
func WithLogger(l logger.Logger) BackgroundOption {
	return func(b *Background) {
		if l != nil {
			b.logger = l
		}
	}
}

// NewBackground returns an unloaded background.
func NewBackground(opts ...BackgroundOption) *Background {
	b := &Background{
		done:   make(chan struct{}),
		client: &http.Client{Timeout: defaultResourceTimeout},
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.logger == nil {
		b.logger = logger.Get().Named("background")
	}
	metrics.UpdateBackgroundReady(false)
	return b
}

// NewStaticBackground returns a background that is ready with img.
func NewStaticBackground(img image.Image) *Background {
	b := &Background{done: make(chan struct{}), client: http.DefaultClient}
	b.once.Do(func() { b.finish(img, nil) })
	return b
}

// Load starts loading location (a file path or an http(s) URL) in the
// background. Only the first call has an effect.
func (b *Background) Load(ctx context.Context, location string) {
	b.once.Do(func() {
		go func() {
			img, err := b.fetch(ctx, location)
			if err != nil {
				err = &ResourceLoadError{Location: location, Err: err}
				metrics.RecordResourceLoadError()
				metrics.RecordErrorByComponent("background", "resource_load")
				b.logger.Error(ctx, "field image failed to load; using fallback fill",
					logger.String("location", location), logger.Error(err))
			} else {
				b.logger.Info(ctx, "field image loaded", logger.String("location", location))
			}
			b.finish(img, err)
		}()
	})
}

func (b *Background) fetch(ctx context.Context, location string) (image.Image, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return nil, ErrEmptyLocation
	}

	var r io.ReadCloser
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
		if err != nil {
			return nil, err
		}
		resp, err := b.client.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusOK {
			_ = resp.Body.Close()
			return nil, fmt.Errorf("%w: %s", ErrResourceStatus, strconv.Itoa(resp.StatusCode))
		}
		r = resp.Body
	} else {
		f, err := os.Open(location)
		if err != nil {
			return nil, err
		}
		r = f
	}
	defer func() { _ = r.Close() }()

	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return img, nil
}

func (b *Background) finish(img image.Image, err error) {
	b.mu.Lock()
	b.img, b.err = img, err
	if err == nil && img != nil {
		b.ready.Store(true)
	}
	waiters := b.waiters
	b.waiters = nil
	close(b.done)
	b.mu.Unlock()

	metrics.UpdateBackgroundReady(b.ready.Load())
	for _, fn := range waiters {
		fn()
	}
}

// Ready reports whether the image has been decoded.
func (b *Background) Ready() bool { return b.ready.Load() }

// Image returns the decoded image, nil until Ready.
func (b *Background) Image() image.Image {
	if !b.ready.Load() {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.img
}

// Err returns the load failure, if any, once Done is closed.
func (b *Background) Err() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.err
}

// Done is closed when loading has finished, successfully or not.
func (b *Background) Done() <-chan struct{} { return b.done }

// OnReady registers fn to run once loading finishes, successfully or not.
// If loading already finished, fn runs immediately on the caller's goroutine.
func (b *Background) OnReady(fn func()) {
	b.mu.Lock()
	select {
	case <-b.done:
		b.mu.Unlock()
		fn()
		return
	default:
	}
	b.waiters = append(b.waiters, fn)
	b.mu.Unlock()
}
