package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/okian/playview/internal/export"
	"github.com/okian/playview/pkg/logger"
)

// Default configuration constants.
const (
	defaultTimeout       = 30 * time.Second
	defaultExportTimeout = 10 * time.Minute
)

func main() {
	var (
		baseURL    = flag.String("url", "http://localhost:5001", "Base URL of the play data backend")
		gameID     = flag.Int64("game", 0, "Game id of the play to export")
		playID     = flag.Int64("play", 0, "Play id of the play to export")
		outDir     = flag.String("out", "frames", "Directory the PNG frames are written to")
		fieldImage = flag.String("field", "static/images/football_field.png", "Field background file or URL (empty for the plain fill)")
		workers    = flag.Int("workers", runtime.NumCPU(), "Number of PNG encoding workers")
		timeout    = flag.Duration("timeout", defaultTimeout, "Backend request timeout")
		verbose    = flag.Bool("verbose", false, "Enable verbose logging")
		help       = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		export.ShowHelp()
		return
	}

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	if *verbose {
		_ = logger.SetLevelString("debug")
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultExportTimeout)
	defer cancel()

	config := &export.Config{
		BaseURL:    *baseURL,
		GameID:     *gameID,
		PlayID:     *playID,
		OutDir:     *outDir,
		FieldImage: *fieldImage,
		Workers:    *workers,
		Timeout:    *timeout,
	}

	if _, err := export.Run(ctx, config); err != nil {
		os.Stderr.WriteString("Export failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}
