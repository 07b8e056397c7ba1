package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Field is a telescope pointing footprint drawn on the map.
type Field struct {
	Geometry orb.Geometry
	Meta     FieldMeta
}

// FieldMeta is the metadata shown in a field's tooltip.
// RA and Dec are degrees; NaN when absent.
type FieldMeta struct {
	Telescope string  `json:"telescope"`
	FieldID   FieldID `json:"field_id"`
	RA        float64 `json:"ra"`
	Dec       float64 `json:"dec"`
	Depth     Depth   `json:"depth"`
}

// UnmarshalJSON decodes metadata leniently. Missing, null or wrongly typed
// coordinates are NaN, a telescope or field id that is neither a string nor a
// number is empty, and a depth that is not an object has no bands.
func (m *FieldMeta) UnmarshalJSON(data []byte) error {
	*m = FieldMeta{RA: math.NaN(), Dec: math.NaN()}
	var props map[string]json.RawMessage
	if err := json.Unmarshal(data, &props); err != nil {
		return nil //nolint:nilerr // malformed metadata degrades the tooltip only
	}
	m.Telescope = text(props["telescope"])
	m.FieldID = FieldID(text(props["field_id"]))
	m.RA = number(props["ra"])
	m.Dec = number(props["dec"])
	if raw, ok := props["depth"]; ok {
		if err := m.Depth.UnmarshalJSON(raw); err != nil {
			m.Depth = nil
		}
	}
	return nil
}

// FieldID is a field identifier given either as a JSON string or number.
type FieldID string

// UnmarshalJSON keeps numbers in their literal form. Other values decode as
// an empty id.
func (id *FieldID) UnmarshalJSON(data []byte) error {
	*id = FieldID(text(data))
	return nil
}

// value decodes one JSON value with numbers kept as json.Number.
func value(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil
	}
	return v
}

func text(raw json.RawMessage) string {
	switch v := value(raw).(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	}
	return ""
}

func number(raw json.RawMessage) float64 {
	return numberOf(value(raw))
}

func numberOf(v any) float64 {
	n, ok := v.(json.Number)
	if !ok {
		return math.NaN()
	}
	f, err := n.Float64()
	if err != nil {
		return math.NaN()
	}
	return f
}

// Band is one filter's limiting magnitude.
type Band struct {
	Name string
	Mag  float64
}

// Depth lists limiting magnitudes per band in the order they were given.
type Depth []Band

// UnmarshalJSON walks the object tokens to keep key order. Magnitudes that
// are not numbers decode as NaN, and anything but an object has no bands.
func (d *Depth) UnmarshalJSON(data []byte) error {
	*d = nil
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil
	}

	var out Depth
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, _ := tok.(string)

		var v any
		if err := dec.Decode(&v); err != nil {
			return fmt.Errorf("depth %q: %w", name, err)
		}
		out = append(out, Band{Name: name, Mag: numberOf(v)})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*d = out
	return nil
}

// MarshalJSON writes the bands back as an ordered object.
func (d Depth) MarshalJSON() ([]byte, error) {
	var b strings.Builder
	b.WriteByte('{')
	for i, band := range d {
		if i > 0 {
			b.WriteByte(',')
		}
		name, err := json.Marshal(band.Name)
		if err != nil {
			return nil, err
		}
		b.Write(name)
		b.WriteByte(':')
		if math.IsNaN(band.Mag) || math.IsInf(band.Mag, 0) {
			b.WriteString("null")
			continue
		}
		mag, err := json.Marshal(band.Mag)
		if err != nil {
			return nil, err
		}
		b.Write(mag)
	}
	b.WriteByte('}')
	return []byte(b.String()), nil
}

type rawFeature struct {
	Geometry   *geojson.Geometry `json:"geometry"`
	Properties json.RawMessage   `json:"properties"`
}

// DecodeFields decodes a GeoJSON FeatureCollection of field footprints.
// Features without geometry are skipped. Malformed properties never fail the
// collection; see FieldMeta.UnmarshalJSON.
func DecodeFields(data []byte) ([]Field, error) {
	var fc struct {
		Type     string       `json:"type"`
		Features []rawFeature `json:"features"`
	}
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	if fc.Type != "" && fc.Type != "FeatureCollection" {
		return nil, fmt.Errorf("%w: unexpected type %q", ErrDecode, fc.Type)
	}

	fields := make([]Field, 0, len(fc.Features))
	for _, f := range fc.Features {
		if f.Geometry == nil {
			continue
		}
		geom := f.Geometry.Geometry()
		if geom == nil {
			continue
		}
		var meta FieldMeta
		// lenient: never fails on well-formed JSON
		_ = meta.UnmarshalJSON(f.Properties)
		fields = append(fields, Field{Geometry: geom, Meta: meta})
	}
	return fields, nil
}
