// Package render paints frames of a play onto a fixed-size drawing surface.
package render

import (
	"image"
	"image/color"
	"math"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Surface and field geometry.
const (
	SurfaceWidth  = 1000
	SurfaceHeight = 533

	FieldLength = 120.0 // field units along x, end zones included
	FieldWidth  = 53.3  // field units along y

	strokeWidth = 1.0
)

// Surface is a fixed-size drawing target with the primitives the renderer needs.
type Surface interface {
	Size() (width, height int)
	Clear()
	Fill(c color.Color)
	// DrawImage draws src scaled to cover the whole surface.
	DrawImage(src image.Image)
	// Circle draws a filled circle with a 1 unit outline centered on its edge.
	Circle(cx, cy, r float64, fill, stroke color.Color)
	// Text draws s centered on (cx, cy) in a small bold face.
	Text(s string, cx, cy float64, c color.Color)
}

// ImageSurface implements Surface on an in-memory RGBA image.
type ImageSurface struct {
	img  *image.RGBA
	face font.Face
}

// NewImageSurface allocates a surface of the given size.
func NewImageSurface(width, height int) *ImageSurface {
	return &ImageSurface{
		img:  image.NewRGBA(image.Rect(0, 0, width, height)),
		face: basicfont.Face7x13,
	}
}

// NewFieldSurface allocates a surface with the standard field dimensions.
func NewFieldSurface() *ImageSurface {
	return NewImageSurface(SurfaceWidth, SurfaceHeight)
}

func (s *ImageSurface) Size() (int, int) {
	b := s.img.Bounds()
	return b.Dx(), b.Dy()
}

func (s *ImageSurface) Clear() {
	xdraw.Draw(s.img, s.img.Bounds(), image.Transparent, image.Point{}, xdraw.Src)
}

func (s *ImageSurface) Fill(c color.Color) {
	xdraw.Draw(s.img, s.img.Bounds(), image.NewUniform(c), image.Point{}, xdraw.Src)
}

func (s *ImageSurface) DrawImage(src image.Image) {
	xdraw.ApproxBiLinear.Scale(s.img, s.img.Bounds(), src, src.Bounds(), xdraw.Over, nil)
}

func (s *ImageSurface) Circle(cx, cy, r float64, fill, stroke color.Color) {
	outer := r + strokeWidth/2
	inner := r - strokeWidth/2

	b := s.img.Bounds()
	x0 := max(b.Min.X, int(math.Floor(cx-outer)))
	x1 := min(b.Max.X, int(math.Ceil(cx+outer))+1)
	y0 := max(b.Min.Y, int(math.Floor(cy-outer)))
	y1 := min(b.Max.Y, int(math.Ceil(cy+outer))+1)

	fc := color.RGBAModel.Convert(fill).(color.RGBA)
	sc := color.RGBAModel.Convert(stroke).(color.RGBA)
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			d := math.Hypot(float64(x)+0.5-cx, float64(y)+0.5-cy)
			switch {
			case d <= inner:
				s.img.SetRGBA(x, y, fc)
			case d <= outer:
				s.img.SetRGBA(x, y, sc)
			}
		}
	}
}

func (s *ImageSurface) Text(text string, cx, cy float64, c color.Color) {
	d := font.Drawer{Dst: s.img, Src: image.NewUniform(c), Face: s.face}
	m := s.face.Metrics()

	// The face has no bold variant; a one pixel overstrike widens the glyphs.
	width := d.MeasureString(text) + fixed.I(1)
	x := fixed.Int26_6(cx*64) - width/2
	y := fixed.Int26_6(cy*64) + (m.Ascent-m.Descent)/2
	for _, dx := range []fixed.Int26_6{0, fixed.I(1)} {
		d.Dot = fixed.Point26_6{X: x + dx, Y: y}
		d.DrawString(text)
	}
}

// Image exposes the backing image. Callers must not retain it across renders.
func (s *ImageSurface) Image() *image.RGBA { return s.img }

// Snapshot returns a deep copy of the current surface contents.
func (s *ImageSurface) Snapshot() *image.RGBA {
	cp := image.NewRGBA(s.img.Bounds())
	copy(cp.Pix, s.img.Pix)
	return cp
}
