// Package snapshot renders a sky map once, without a server, to an SVG or
// PNG file.
package snapshot

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/okian/skymap/internal/adapters/catalog"
	"github.com/okian/skymap/internal/domain/model"
	"github.com/okian/skymap/internal/domain/render"
	"github.com/okian/skymap/internal/domain/skymap"
	"github.com/okian/skymap/pkg/logger"
)

const (
	directoryPermission = 0o750
	filePermission      = 0o644
)

// Run loads the catalogs, positions the map and writes the scene.
func Run(ctx context.Context, cfg *Config, opts ...skymap.Option) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	log := logger.Get().Named("snapshot")

	fields, err := catalog.LoadFields(cfg.FieldsPath)
	if err != nil {
		return fmt.Errorf("load fields: %w", err)
	}

	vp := skymap.NewViewport(model.Size{Width: cfg.Width, Height: cfg.Height})
	m := skymap.Attach(ctx, vp, fields, append([]skymap.Option{skymap.WithLogger(log)}, opts...)...)

	if cfg.LocalizationPath != "" {
		fc, err := catalog.LoadLocalization(cfg.LocalizationPath)
		if err != nil {
			return fmt.Errorf("load localization: %w", err)
		}
		if err := m.Localization(ctx, fc); err != nil {
			return fmt.Errorf("apply localization: %w", err)
		}
	}
	if cfg.Center != nil {
		if err := m.Recenter(ctx, cfg.Center.Lon, cfg.Center.Lat); err != nil {
			return fmt.Errorf("recenter: %w", err)
		}
	}
	if cfg.Zoom != 1 {
		if err := vp.Dispatch(ctx, model.Gesture{Kind: model.GesturePinch, Scale: cfg.Zoom}); err != nil {
			return fmt.Errorf("zoom: %w", err)
		}
	}

	if err := write(cfg, m.Scene()); err != nil {
		return err
	}

	state := m.State()
	log.Info(ctx, "snapshot written",
		logger.String("path", cfg.OutputPath),
		logger.String("format", cfg.Format),
		logger.Int("fields", len(fields)),
		logger.Int("contours", len(m.Contours())),
		logger.Float64("lambda", state.Rotation.Lambda),
		logger.Float64("phi", state.Rotation.Phi),
		logger.Float64("scale", state.Scale),
	)
	return nil
}

func write(cfg *Config, scene render.Scene) (err error) {
	if dir := filepath.Dir(cfg.OutputPath); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("%w: %w", ErrWrite, err)
		}
	}
	f, err := os.OpenFile(cfg.OutputPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, filePermission)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("%w: %w", ErrWrite, cerr)
		}
	}()

	bw := bufio.NewWriter(f)
	switch cfg.Format {
	case FormatPNG:
		err = render.WritePNG(bw, scene)
	default:
		err = render.WriteSVG(bw, scene)
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	return nil
}
