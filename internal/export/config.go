package export

import "time"

// Config holds configuration for one export.
type Config struct {
	BaseURL    string        // Base URL of the play data backend
	GameID     int64         // Game to export
	PlayID     int64         // Play to export
	OutDir     string        // Directory the PNG frames are written to
	FieldImage string        // Field background file or URL; empty uses the plain fill
	Workers    int           // Number of PNG encoding workers
	Timeout    time.Duration // Backend and background request timeout
}

// Stats holds export statistics.
type Stats struct {
	Frames        int
	FramesWritten int
	StartTime     time.Time
	EndTime       time.Time
	Duration      time.Duration
}
