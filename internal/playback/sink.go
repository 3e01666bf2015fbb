package playback

import (
	"context"

	"github.com/okian/playview/internal/domain/model"
)

// Sink reflects controller state to the outside world. Sinks are called with
// the controller lock held and must not call back into the controller.
type Sink interface {
	// Position is called after every render with the position just drawn.
	Position(ctx context.Context, pos model.Position)
	Status(ctx context.Context, status string)
	Controls(ctx context.Context, controls model.Controls)
}

// Sinks fans out to several sinks in order.
type Sinks []Sink

func (s Sinks) Position(ctx context.Context, pos model.Position) {
	for _, sink := range s {
		sink.Position(ctx, pos)
	}
}

func (s Sinks) Status(ctx context.Context, status string) {
	for _, sink := range s {
		sink.Status(ctx, status)
	}
}

func (s Sinks) Controls(ctx context.Context, controls model.Controls) {
	for _, sink := range s {
		sink.Controls(ctx, controls)
	}
}
