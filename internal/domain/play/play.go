// Package play contains the static description of a play and the search
// shapes exchanged with the backend.
package play

import (
	"strings"

	"github.com/okian/playview/internal/domain/tracking"
)

// Direction is the orientation of the offense on the field.
type Direction int

const (
	// Right is the canonical orientation; coordinates are drawn as sampled.
	Right Direction = iota
	// Left is the reversed orientation; horizontal coordinates are mirrored.
	Left
)

// ParseDirection maps the backend's playDirection value. Anything but "left"
// is treated as Right, matching how the data is produced.
func ParseDirection(s string) Direction {
	if strings.EqualFold(strings.TrimSpace(s), "left") {
		return Left
	}
	return Right
}

func (d Direction) String() string {
	if d == Left {
		return "left"
	}
	return "right"
}

// MarshalText implements encoding.TextMarshaler.
func (d Direction) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Direction) UnmarshalText(b []byte) error {
	*d = ParseDirection(string(b))
	return nil
}

// Metadata holds the static attributes of a loaded play.
type Metadata struct {
	GameID         int64     `json:"gameId"`
	PlayID         int64     `json:"playId"`
	PossessionTeam string    `json:"possessionTeam"`
	DefensiveTeam  string    `json:"defensiveTeam"`
	Direction      Direction `json:"playDirection"`
	Description    string    `json:"playDescription"`

	// Opaque model outputs supplied by the backend; nil when absent.
	PredictedYards *float64 `json:"predictedYardsGained,omitempty"`
	ActualYards    *float64 `json:"prePenaltyYardsGained,omitempty"`
}

// Play is a play's metadata plus its raw, unordered tracking samples.
type Play struct {
	Metadata
	Samples []tracking.Sample
}

// Key identifies a play.
type Key struct {
	GameID int64
	PlayID int64
}

// Valid reports whether both identifiers are positive.
func (k Key) Valid() bool { return k.GameID > 0 && k.PlayID > 0 }

// Key returns the play's identifier pair.
func (m Metadata) Key() Key { return Key{GameID: m.GameID, PlayID: m.PlayID} }

// Summary is one search result row.
type Summary struct {
	GameID         int64    `json:"gameId"`
	PlayID         int64    `json:"playId"`
	Description    string   `json:"playDescription"`
	DisplayName    string   `json:"displayName,omitempty"`
	ActualYards    *float64 `json:"prePenaltyYardsGained"`
	PredictedYards *float64 `json:"predictedYardsGained"`
}

// Filters lists the options offered by the search form.
type Filters struct {
	Players []string `json:"players"`
	Teams   []string `json:"teams"`
}

// SearchQuery narrows a search; zero values are omitted.
type SearchQuery struct {
	PlayerName string
	Team       string
	Down       int
}
