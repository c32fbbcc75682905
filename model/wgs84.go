// Copyright 2018 Brian Starkey <stark3y@gmail.com>
package model

import (
	"github.com/tidwall/geodesic"
)

// WGS84 semi-major axis, meters.
const EquatorialRadius = 6378137.0

// Inverse solves the inverse geodesic problem on the WGS84 ellipsoid. It
// returns the initial course from point 1 to point 2, the reciprocal course
// from point 2 back to point 1, both in [0, 360), and the distance in
// meters.
//
// Coincident points give a course of 0 and a distance of 0.
func Inverse(lat1, lon1, lat2, lon2 float64) (courseDeg, reverseDeg, distM float64) {
	if lat1 == lat2 && lon1 == lon2 {
		return 0.0, 0.0, 0.0
	}

	var azi1, azi2 float64
	geodesic.WGS84.Inverse(lat1, lon1, lat2, lon2, &distM, &azi1, &azi2)

	// azi2 is the forward azimuth at point 2
	return NormaliseDeg(azi1), NormaliseDeg(azi2 + 180.0), distM
}
