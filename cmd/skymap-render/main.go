package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/skymap/internal/snapshot"
	"github.com/okian/skymap/pkg/logger"
)

// Default configuration constants.
const (
	defaultSize          = 800
	defaultRenderTimeout = time.Minute
)

var errUsage = errors.New("usage")

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		if !errors.Is(err, errUsage) {
			os.Stderr.WriteString("Render failed: " + err.Error() + "\n")
		}
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("skymap-render", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	var (
		fields       = fs.String("fields", "", "Field footprint FeatureCollection")
		localization = fs.String("localization", "", "Localization FeatureCollection")
		width        = fs.Float64("width", defaultSize, "Width in pixels")
		height       = fs.Float64("height", defaultSize, "Height in pixels")
		rotate       = fs.String("rotate", "", "View centre as lon,lat")
		zoom         = fs.Float64("zoom", 1, "Zoom relative to the fitted scale")
		format       = fs.String("format", snapshot.FormatSVG, "svg or png")
		out          = fs.String("out", "", "Output file")
		logLevel     = fs.String("log-level", "info", "Log level")
		help         = fs.Bool("help", false, "Show help")
	)
	if err := fs.Parse(args); err != nil {
		snapshot.ShowHelp(stdout)
		return errors.Join(errUsage, err)
	}
	if *help {
		snapshot.ShowHelp(stdout)
		return nil
	}

	if err := logger.Init(logger.WithOutput(os.Stderr)); err != nil {
		return err
	}
	if err := logger.SetLevelString(*logLevel); err != nil {
		return err
	}

	cfg := &snapshot.Config{
		FieldsPath:       *fields,
		LocalizationPath: *localization,
		Width:            *width,
		Height:           *height,
		Zoom:             *zoom,
		Format:           *format,
		OutputPath:       *out,
	}
	if *rotate != "" {
		c, err := snapshot.ParseCenter(*rotate)
		if err != nil {
			return err
		}
		cfg.Center = c
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, defaultRenderTimeout)
	defer cancel()

	return snapshot.Run(ctx, cfg)
}
