// Copyright 2018 Brian Starkey <stark3y@gmail.com>
package model

import (
	"math"

	"github.com/usedbytes/mission/props"
)

// Coord is a geodetic position in degrees.
type Coord struct {
	Lat, Lon float64
}

func (c Coord) IsNaN() bool {
	return math.IsNaN(c.Lat) || math.IsNaN(c.Lon)
}

// Fix is a position with altitude, as reported by the GPS.
type Fix struct {
	Coord
	Alt float64
}

// CoordAt reads latitude_deg/longitude_deg from a store node.
func CoordAt(n *props.Node) Coord {
	return Coord{
		Lat: n.GetFloat("latitude_deg"),
		Lon: n.GetFloat("longitude_deg"),
	}
}

// FixAt reads latitude_deg/longitude_deg/altitude_m from a store node.
func FixAt(n *props.Node) Fix {
	return Fix{
		Coord: CoordAt(n),
		Alt: n.GetFloat("altitude_m"),
	}
}

// Store writes the fix into latitude_deg/longitude_deg/altitude_m of n.
func (f Fix) Store(n *props.Node) {
	n.SetFloat("latitude_deg", f.Lat)
	n.SetFloat("longitude_deg", f.Lon)
	n.SetFloat("altitude_m", f.Alt)
}

// NormaliseDeg wraps an angle into [0, 360).
func NormaliseDeg(deg float64) float64 {
	deg = math.Mod(deg, 360.0)
	if deg < 0 {
		deg += 360.0
	}
	// -0.0 and the rounding of tiny negative values
	if deg >= 360.0 || deg == 0 {
		return 0.0
	}

	return deg
}

// CourseTo returns the course and distance from c to dst.
func (c Coord) CourseTo(dst Coord) (courseDeg, distM float64) {
	courseDeg, _, distM = Inverse(c.Lat, c.Lon, dst.Lat, dst.Lon)
	return courseDeg, distM
}
