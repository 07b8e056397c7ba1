// Package model contains domain models passed between layers.
package model

import "math"

// Size is the pixel size of the container hosting a map.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Empty reports whether either dimension is non-positive.
func (s Size) Empty() bool {
	return !(s.Width > 0) || !(s.Height > 0)
}

// Rotation is the projection's three-axis rotation in degrees.
// Lambda and Phi move the view centre; Gamma is the roll.
type Rotation struct {
	Lambda float64 `json:"lambda"`
	Phi    float64 `json:"phi"`
	Gamma  float64 `json:"gamma"`
}

// State is the projection state shared by every layer of a map.
type State struct {
	Rotation  Rotation   `json:"rotation"`
	Scale     float64    `json:"scale"`
	Translate [2]float64 `json:"translate"`
}

// Center returns the celestial coordinate [lon, lat] at the centre of the view.
func (s State) Center() [2]float64 {
	return [2]float64{normalizeLon(-s.Rotation.Lambda), -s.Rotation.Phi}
}

func normalizeLon(lon float64) float64 {
	lon = math.Mod(lon+180, 360)
	if lon < 0 {
		lon += 360
	}
	return lon - 180
}
