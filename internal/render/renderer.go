package render

import (
	"strconv"

	"github.com/okian/playview/internal/domain/play"
	"github.com/okian/playview/internal/domain/tracking"
)

// EntityRadius is the drawn radius of every sample, in surface units.
const EntityRadius = 6.0

// Renderer draws frames onto a surface over an optional backdrop.
type Renderer struct {
	surface  Surface
	backdrop Backdrop
}

// NewRenderer returns a renderer drawing onto surface. backdrop may be nil.
func NewRenderer(surface Surface, backdrop Backdrop) *Renderer {
	return &Renderer{surface: surface, backdrop: backdrop}
}

// Surface returns the drawing target.
func (r *Renderer) Surface() Surface { return r.surface }

// Render replaces the surface contents with the background followed by one
// marker per sample, in sample order. An empty frame draws only the background.
func (r *Renderer) Render(frame tracking.Frame, md play.Metadata) {
	r.background()

	w, h := r.surface.Size()
	for _, s := range frame {
		role := RoleOf(s.Club, md)
		x, y := Project(s.X, s.Y, md.Direction, w, h)
		r.surface.Circle(x, y, EntityRadius, role.Color(), colorStroke)
		if role != RoleBall && s.HasJersey {
			r.surface.Text(strconv.Itoa(s.Jersey), x, y, colorJersey)
		}
	}
}

// RenderBackground draws only the background, used when a play has no frames.
func (r *Renderer) RenderBackground() {
	r.background()
}

func (r *Renderer) background() {
	r.surface.Clear()
	if r.backdrop != nil && r.backdrop.Ready() {
		if img := r.backdrop.Image(); img != nil {
			r.surface.DrawImage(img)
			return
		}
	}
	r.surface.Fill(FieldColor())
}

// Project maps field coordinates onto a w×h surface. Plays moving left are
// mirrored so the offense always drives toward the right.
func Project(x, y float64, dir play.Direction, w, h int) (float64, float64) {
	if dir == play.Left {
		x = FieldLength - x
	}
	return x * (float64(w) / FieldLength), y * (float64(h) / FieldWidth)
}
