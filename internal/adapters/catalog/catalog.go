// Package catalog loads field footprints and localization contours from
// GeoJSON FeatureCollection files.
package catalog

import (
	"fmt"
	"os"

	"github.com/paulmach/orb/geojson"

	"github.com/okian/skymap/internal/domain/model"
)

// LoadFields reads a field footprint collection. An empty path yields no fields.
func LoadFields(path string) ([]model.Field, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRead, err)
	}
	fields, err := model.DecodeFields(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return fields, nil
}

// LoadLocalization reads a localization collection. An empty path yields nil.
func LoadLocalization(path string) (*geojson.FeatureCollection, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRead, err)
	}
	fc, err := DecodeLocalization(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return fc, nil
}

// DecodeLocalization parses a localization FeatureCollection. The first
// feature is expected to be the most likely position.
func DecodeLocalization(data []byte) (*geojson.FeatureCollection, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return fc, nil
}
