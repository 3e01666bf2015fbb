package backend

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/okian/playview/internal/domain/play"
	"github.com/okian/playview/internal/domain/tracking"
)

// number decodes a JSON value the backend may send as a number, a numeric
// string or null.
type number struct {
	v     float64
	valid bool
}

func (n *number) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	*n = number{}
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	var f float64
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return nil
		}
		f = v
	} else if err := json.Unmarshal(b, &f); err != nil {
		return nil
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	*n = number{v: f, valid: true}
	return nil
}

func (n number) int64() int64 { return int64(math.Round(n.v)) }

func (n number) ptr() *float64 {
	if !n.valid {
		return nil
	}
	v := n.v
	return &v
}

// text decodes a JSON string that may be null or a bare number.
type text string

func (t *text) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0 || bytes.Equal(b, []byte("null")):
		*t = ""
	case b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*t = text(s)
	default:
		*t = text(b)
	}
	return nil
}

type playDataResponse struct {
	PlayInfo     playInfo      `json:"playInfo"`
	TrackingData []trackingRow `json:"trackingData"`
}

type playInfo struct {
	GameID         number `json:"gameId"`
	PlayID         number `json:"playId"`
	PossessionTeam text   `json:"possessionTeam"`
	DefensiveTeam  text   `json:"defensiveTeam"`
	PlayDirection  text   `json:"playDirection"`
	Description    text   `json:"playDescription"`
	Predicted      number `json:"predictedYardsGained"`
	Actual         number `json:"prePenaltyYardsGained"`
}

type trackingRow struct {
	FrameID     number `json:"frameId"`
	Club        text   `json:"club"`
	X           number `json:"x"`
	Y           number `json:"y"`
	Jersey      number `json:"jerseyNumber"`
	NFLID       number `json:"nflId"`
	DisplayName text   `json:"displayName"`
	Event       text   `json:"event"`
}

type summaryRow struct {
	GameID      number `json:"gameId"`
	PlayID      number `json:"playId"`
	Description text   `json:"playDescription"`
	DisplayName text   `json:"displayName"`
	Actual      number `json:"prePenaltyYardsGained"`
	Predicted   number `json:"predictedYardsGained"`
}

type errorBody struct {
	Error string `json:"error"`
}

func (r playDataResponse) toPlay(key play.Key) play.Play {
	md := play.Metadata{
		GameID:         key.GameID,
		PlayID:         key.PlayID,
		PossessionTeam: string(r.PlayInfo.PossessionTeam),
		DefensiveTeam:  string(r.PlayInfo.DefensiveTeam),
		Direction:      play.ParseDirection(string(r.PlayInfo.PlayDirection)),
		Description:    string(r.PlayInfo.Description),
		PredictedYards: r.PlayInfo.Predicted.ptr(),
		ActualYards:    r.PlayInfo.Actual.ptr(),
	}
	if r.PlayInfo.GameID.valid {
		md.GameID = r.PlayInfo.GameID.int64()
	}
	if r.PlayInfo.PlayID.valid {
		md.PlayID = r.PlayInfo.PlayID.int64()
	}

	samples := make([]tracking.Sample, 0, len(r.TrackingData))
	for _, row := range r.TrackingData {
		if s, ok := row.sample(); ok {
			samples = append(samples, s)
		}
	}
	return play.Play{Metadata: md, Samples: samples}
}

// sample converts a row, dropping rows without a frame or coordinates.
func (row trackingRow) sample() (tracking.Sample, bool) {
	if !row.FrameID.valid || !row.X.valid || !row.Y.valid {
		return tracking.Sample{}, false
	}
	s := tracking.Sample{
		FrameID:     row.FrameID.int64(),
		Club:        string(row.Club),
		X:           row.X.v,
		Y:           row.Y.v,
		DisplayName: string(row.DisplayName),
		Event:       string(row.Event),
	}
	if row.Jersey.valid {
		s.Jersey = int(row.Jersey.int64())
		s.HasJersey = true
	}
	if row.NFLID.valid {
		s.NFLID = row.NFLID.int64()
	}
	return s, true
}

func (row summaryRow) summary() play.Summary {
	return play.Summary{
		GameID:         row.GameID.int64(),
		PlayID:         row.PlayID.int64(),
		Description:    string(row.Description),
		DisplayName:    string(row.DisplayName),
		ActualYards:    row.Actual.ptr(),
		PredictedYards: row.Predicted.ptr(),
	}
}
