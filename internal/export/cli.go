package export

import "os"

// ShowHelp prints usage information for the exporter.
func ShowHelp() {
	os.Stdout.WriteString(`playview frame exporter
=======================

Renders every frame of one play to numbered PNG files.

Usage:
  go run ./cmd/render-play -game ID -play ID [options]

Options:
  -url string
        Base URL of the play data backend (default "http://localhost:5001")
  -game int
        Game id of the play to export
  -play int
        Play id of the play to export
  -out string
        Directory the PNG frames are written to (default "frames")
  -field string
        Field background file or URL, empty for the plain fill
        (default "static/images/football_field.png")
  -workers int
        Number of PNG encoding workers (default CPU cores)
  -timeout duration
        Backend request timeout (default 30s)
  -verbose
        Enable verbose logging
  -help
        Show this help message

Examples:
  # Export one play into ./frames
  go run ./cmd/render-play -game 2022091100 -play 55

  # Turn the frames into a video
  ffmpeg -framerate 10 -i frames/frame_%05d.png play.mp4
`)
}
