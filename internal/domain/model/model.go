// Package model contains domain models passed between layers.
package model

import (
	"errors"
	"image"
)

// ErrNoFrame is returned when no frame has been rendered yet.
var ErrNoFrame = errors.New("no frame rendered yet")

// Position is what the UI shows about the current frame: slider value,
// slider range and the frame counter text.
type Position struct {
	Index       int    `json:"index"`       // 0 <= Index < Count
	Count       int    `json:"count"`       // number of frames in the loaded play
	FrameID     int64  `json:"frameId"`     // identifier of the frame at Index
	LastFrameID int64  `json:"lastFrameId"` // identifier of the last frame
	Event       string `json:"event,omitempty"`
}

// Last reports whether the position is the final frame.
func (p Position) Last() bool { return p.Count > 0 && p.Index == p.Count-1 }

// Controls is the enablement and play/pause state of the playback controls.
type Controls struct {
	Enabled bool `json:"enabled"`
	Running bool `json:"running"`
}

// Snapshot is a rendered frame leaving the control path for encoding.
// Image is a private copy owned by the receiver.
type Snapshot struct {
	Seq      uint64
	Position Position
	Image    *image.RGBA
}

// EncodedFrame is a snapshot after PNG encoding.
type EncodedFrame struct {
	Seq      uint64
	Position Position
	PNG      []byte
}
