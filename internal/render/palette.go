package render

import (
	"image/color"

	"github.com/okian/playview/internal/domain/play"
	"github.com/okian/playview/internal/domain/tracking"
)

// Role is the closed set of things a sample can be drawn as.
type Role int

const (
	RoleUnknown Role = iota
	RolePossession
	RoleDefense
	RoleBall
)

var (
	colorPossession = color.RGBA{R: 0x00, G: 0x7b, B: 0xff, A: 0xff}
	colorDefense    = color.RGBA{R: 0xdc, G: 0x35, B: 0x45, A: 0xff}
	colorBall       = color.RGBA{R: 0xa5, G: 0x2a, B: 0x2a, A: 0xff}
	colorUnknown    = color.RGBA{R: 0x6c, G: 0x75, B: 0x7d, A: 0xff}

	colorField  = color.RGBA{R: 0x46, G: 0x8d, B: 0x4d, A: 0xff}
	colorStroke = color.RGBA{A: 0xff}
	colorJersey = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
)

// RoleOf classifies an entity tag against the play's teams. The ball sentinel
// wins over team tags, defense over possession; anything else is RoleUnknown.
func RoleOf(tag string, md play.Metadata) Role {
	switch {
	case tag == tracking.BallTag:
		return RoleBall
	case tag == "":
		return RoleUnknown
	case tag == md.DefensiveTeam:
		return RoleDefense
	case tag == md.PossessionTeam:
		return RolePossession
	default:
		return RoleUnknown
	}
}

// Color returns the fill color for the role.
func (r Role) Color() color.RGBA {
	switch r {
	case RolePossession:
		return colorPossession
	case RoleDefense:
		return colorDefense
	case RoleBall:
		return colorBall
	default:
		return colorUnknown
	}
}

func (r Role) String() string {
	switch r {
	case RolePossession:
		return "possession"
	case RoleDefense:
		return "defense"
	case RoleBall:
		return "ball"
	default:
		return "unknown"
	}
}

// FieldColor is the fill used while the background image is unavailable.
func FieldColor() color.RGBA { return colorField }
