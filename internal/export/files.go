package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/okian/playview/internal/domain/model"
)

// File permission constants.
const (
	directoryPermission = 0o750
	filePermission      = 0o640
)

// FrameName returns the file name of the frame at index.
func FrameName(index int) string {
	return fmt.Sprintf("frame_%05d.png", index)
}

// filePublisher writes encoded frames into a directory.
type filePublisher struct {
	dir     string
	written atomic.Int64
}

func newFilePublisher(dir string) (*filePublisher, error) {
	if err := os.MkdirAll(dir, directoryPermission); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	return &filePublisher{dir: dir}, nil
}

func (p *filePublisher) Publish(_ context.Context, f model.EncodedFrame) error {
	path := filepath.Join(p.dir, FrameName(f.Position.Index))
	if err := os.WriteFile(path, f.PNG, filePermission); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	p.written.Add(1)
	return nil
}

func (p *filePublisher) Written() int { return int(p.written.Load()) }
