// Package tracking holds position samples and the frame index built from them.
package tracking

import "slices"

// BallTag is the entity tag carried by ball samples.
const BallTag = "football"

// Sample is one player or ball position at one instant. Immutable once received.
type Sample struct {
	FrameID int64   // frame identifier, not necessarily contiguous or zero based
	Club    string  // entity tag: team abbreviation or BallTag
	X       float64 // field units along the long axis, 0..120
	Y       float64 // field units along the short axis, 0..53.3

	Jersey    int
	HasJersey bool

	NFLID       int64
	DisplayName string
	Event       string // e.g. "ball_snap", empty for most frames
}

// IsBall reports whether the sample tracks the ball.
func (s Sample) IsBall() bool { return s.Club == BallTag }

// Frame is every sample sharing one frame identifier, in arrival order.
type Frame []Sample

// Event returns the first non-empty event tag in the frame.
func (f Frame) Event() string {
	for _, s := range f {
		if s.Event != "" {
			return s.Event
		}
	}
	return ""
}

// FrameIndex is the ordered, deduplicated set of frame identifiers of one play
// together with the samples of each frame.
//
// Invariant: ids is strictly increasing and holds exactly the keys of frames.
type FrameIndex struct {
	ids    []int64
	frames map[int64]Frame
}

// Build groups samples by frame identifier and sorts the identifiers numerically.
// Zero samples yield an empty index.
func Build(samples []Sample) FrameIndex {
	frames := make(map[int64]Frame)
	ids := make([]int64, 0)
	for _, s := range samples {
		if _, ok := frames[s.FrameID]; !ok {
			ids = append(ids, s.FrameID)
		}
		frames[s.FrameID] = append(frames[s.FrameID], s)
	}
	slices.Sort(ids)
	return FrameIndex{ids: ids, frames: frames}
}

// Len returns the number of distinct frames.
func (x FrameIndex) Len() int { return len(x.ids) }

// Empty reports whether the index has no playable content.
func (x FrameIndex) Empty() bool { return len(x.ids) == 0 }

// ID returns the frame identifier at position i. i must be in [0, Len()).
func (x FrameIndex) ID(i int) int64 { return x.ids[i] }

// At returns the identifier and samples at position i. i must be in [0, Len()).
func (x FrameIndex) At(i int) (int64, Frame) {
	id := x.ids[i]
	return id, x.frames[id]
}

// Frame returns the samples of frame id.
func (x FrameIndex) Frame(id int64) (Frame, bool) {
	f, ok := x.frames[id]
	return f, ok
}

// Last returns the highest frame identifier, or false for an empty index.
func (x FrameIndex) Last() (int64, bool) {
	if len(x.ids) == 0 {
		return 0, false
	}
	return x.ids[len(x.ids)-1], true
}

// IDs returns a copy of the ordered identifiers.
func (x FrameIndex) IDs() []int64 { return slices.Clone(x.ids) }
