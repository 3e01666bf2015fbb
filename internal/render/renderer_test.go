package render

import (
	"fmt"
	"image"
	"image/color"
	"testing"

	"github.com/okian/playview/internal/domain/play"
	"github.com/okian/playview/internal/domain/tracking"
	. "github.com/smartystreets/goconvey/convey"
)

type recordingSurface struct {
	w, h  int
	calls []string
}

func (s *recordingSurface) Size() (int, int)          { return s.w, s.h }
func (s *recordingSurface) Clear()                    { s.calls = append(s.calls, "clear") }
func (s *recordingSurface) Fill(c color.Color)        { s.calls = append(s.calls, "fill "+hex(c)) }
func (s *recordingSurface) DrawImage(src image.Image) { s.calls = append(s.calls, "image") }

func (s *recordingSurface) Circle(cx, cy, r float64, fill, stroke color.Color) {
	s.calls = append(s.calls, fmt.Sprintf("circle %.1f,%.1f r%.0f %s/%s", cx, cy, r, hex(fill), hex(stroke)))
}

func (s *recordingSurface) Text(text string, cx, cy float64, c color.Color) {
	s.calls = append(s.calls, fmt.Sprintf("text %s %.1f,%.1f %s", text, cx, cy, hex(c)))
}

func hex(c color.Color) string {
	rgba := color.RGBAModel.Convert(c).(color.RGBA)
	return fmt.Sprintf("#%02x%02x%02x", rgba.R, rgba.G, rgba.B)
}

type fakeBackdrop struct {
	ready bool
	img   image.Image
}

func (b fakeBackdrop) Ready() bool        { return b.ready }
func (b fakeBackdrop) Image() image.Image { return b.img }

func testMetadata(dir play.Direction) play.Metadata {
	return play.Metadata{GameID: 1, PlayID: 2, PossessionTeam: "KC", DefensiveTeam: "BUF", Direction: dir}
}

func TestRoleOf(t *testing.T) {
	Convey("Given a play between KC and BUF", t, func() {
		md := testMetadata(play.Right)

		Convey("Then tags resolve to roles", func() {
			So(RoleOf("KC", md), ShouldEqual, RolePossession)
			So(RoleOf("BUF", md), ShouldEqual, RoleDefense)
			So(RoleOf(tracking.BallTag, md), ShouldEqual, RoleBall)
			So(RoleOf("", md), ShouldEqual, RoleUnknown)
			So(RoleOf("NYJ", md), ShouldEqual, RoleUnknown)
		})

		Convey("Then the ball sentinel wins over team tags", func() {
			md.PossessionTeam = tracking.BallTag
			So(RoleOf(tracking.BallTag, md), ShouldEqual, RoleBall)
		})

		Convey("Then defense wins when both teams share a tag", func() {
			md.PossessionTeam = "BUF"
			So(RoleOf("BUF", md), ShouldEqual, RoleDefense)
		})

		Convey("Then each role has its own color", func() {
			So(hex(RolePossession.Color()), ShouldEqual, "#007bff")
			So(hex(RoleDefense.Color()), ShouldEqual, "#dc3545")
			So(hex(RoleBall.Color()), ShouldEqual, "#a52a2a")
			So(hex(RoleUnknown.Color()), ShouldEqual, "#6c757d")
			So(RoleBall.String(), ShouldEqual, "ball")
		})
	})
}

func TestProject(t *testing.T) {
	Convey("Given the standard surface", t, func() {
		Convey("When the play moves right", func() {
			x, y := Project(60, 26.65, play.Right, SurfaceWidth, SurfaceHeight)
			So(x, ShouldAlmostEqual, 500, 0.001)
			So(y, ShouldAlmostEqual, 266.5, 0.001)
		})

		Convey("When the play moves left", func() {
			left, _ := Project(10, 0, play.Left, SurfaceWidth, SurfaceHeight)
			right, _ := Project(110, 0, play.Right, SurfaceWidth, SurfaceHeight)

			Convey("Then x is mirrored about the field length", func() {
				So(left, ShouldAlmostEqual, right, 0.001)
			})
		})

		Convey("When the sample sits on the corners", func() {
			x, y := Project(FieldLength, FieldWidth, play.Right, SurfaceWidth, SurfaceHeight)
			So(x, ShouldAlmostEqual, SurfaceWidth, 0.001)
			So(y, ShouldAlmostEqual, SurfaceHeight, 0.001)
		})
	})
}

func TestRendererCalls(t *testing.T) {
	Convey("Given a renderer over a recording surface", t, func() {
		surface := &recordingSurface{w: 1200, h: 533}
		frame := tracking.Frame{
			{FrameID: 1, Club: "KC", X: 10, Y: 0, Jersey: 15, HasJersey: true},
			{FrameID: 1, Club: "BUF", X: 20, Y: 53.3, Jersey: 0, HasJersey: true},
			{FrameID: 1, Club: tracking.BallTag, X: 30, Y: 10, Jersey: 9, HasJersey: true},
			{FrameID: 1, Club: "XYZ", X: 40, Y: 0},
		}

		Convey("When the background is not ready", func() {
			r := NewRenderer(surface, fakeBackdrop{})
			r.Render(frame, testMetadata(play.Right))

			Convey("Then the fallback fill is drawn first and entities follow in order", func() {
				So(surface.calls, ShouldResemble, []string{
					"clear",
					"fill #468d4d",
					"circle 100.0,0.0 r6 #007bff/#000000",
					"text 15 100.0,0.0 #ffffff",
					"circle 200.0,533.0 r6 #dc3545/#000000",
					"text 0 200.0,533.0 #ffffff",
					"circle 300.0,100.0 r6 #a52a2a/#000000",
					"circle 400.0,0.0 r6 #6c757d/#000000",
				})
			})
		})

		Convey("When the background is ready", func() {
			r := NewRenderer(surface, fakeBackdrop{ready: true, img: image.NewRGBA(image.Rect(0, 0, 4, 4))})
			r.Render(nil, testMetadata(play.Right))

			Convey("Then only the scaled image is drawn", func() {
				So(surface.calls, ShouldResemble, []string{"clear", "image"})
			})
		})

		Convey("When there is no backdrop at all", func() {
			r := NewRenderer(surface, nil)
			r.RenderBackground()
			So(surface.calls, ShouldResemble, []string{"clear", "fill #468d4d"})
		})

		Convey("When the play moves left", func() {
			r := NewRenderer(surface, nil)
			r.Render(tracking.Frame{{Club: "KC", X: 10, Y: 0}}, testMetadata(play.Left))
			So(surface.calls[2], ShouldEqual, "circle 1100.0,0.0 r6 #007bff/#000000")
		})
	})
}

func TestRendererPixels(t *testing.T) {
	Convey("Given a renderer over an image surface", t, func() {
		surface := NewFieldSurface()
		r := NewRenderer(surface, nil)

		Convey("When drawing an unknown tag", func() {
			r.Render(tracking.Frame{{Club: "NYJ", X: 60, Y: 26.65}}, testMetadata(play.Right))
			img := surface.Image()

			Convey("Then the marker center carries the unknown color", func() {
				So(hex(img.At(497, 266)), ShouldEqual, "#6c757d")
			})

			Convey("Then the marker edge carries the outline", func() {
				So(hex(img.At(500, 260)), ShouldEqual, "#000000")
			})

			Convey("Then the rest of the surface is the fallback fill", func() {
				So(hex(img.At(5, 5)), ShouldEqual, "#468d4d")
			})
		})

		Convey("When drawing over a ready background", func() {
			bg := image.NewUniform(color.RGBA{R: 10, G: 20, B: 30, A: 255})
			src := image.NewRGBA(image.Rect(0, 0, 8, 8))
			for y := 0; y < 8; y++ {
				for x := 0; x < 8; x++ {
					src.Set(x, y, bg.C)
				}
			}
			r = NewRenderer(surface, NewStaticBackground(src))
			r.Render(nil, testMetadata(play.Right))

			Convey("Then the image covers the whole surface", func() {
				So(hex(surface.Image().At(0, 0)), ShouldEqual, "#0a141e")
				So(hex(surface.Image().At(SurfaceWidth-1, SurfaceHeight-1)), ShouldEqual, "#0a141e")
			})
		})

		Convey("When a jersey number is drawn", func() {
			r.Render(tracking.Frame{{Club: "KC", X: 60, Y: 26.65, Jersey: 8, HasJersey: true}}, testMetadata(play.Right))

			Convey("Then white pixels appear inside the marker", func() {
				var white int
				img := surface.Image()
				for y := 260; y < 273; y++ {
					for x := 494; x < 507; x++ {
						if hex(img.At(x, y)) == "#ffffff" {
							white++
						}
					}
				}
				So(white, ShouldBeGreaterThan, 0)
			})
		})

		Convey("When a snapshot is taken", func() {
			r.RenderBackground()
			snap := surface.Snapshot()
			r.Render(tracking.Frame{{Club: "KC", X: 0.5, Y: 0.5}}, testMetadata(play.Right))

			Convey("Then later renders do not change it", func() {
				So(hex(snap.At(4, 4)), ShouldEqual, "#468d4d")
				So(hex(surface.Image().At(4, 4)), ShouldNotEqual, "#468d4d")
			})
		})
	})
}
