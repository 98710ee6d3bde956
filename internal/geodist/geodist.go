// Package geodist provides the spatial proximity helpers used by
// deduplication and viewport math.
package geodist

import (
	"math"

	"github.com/twpayne/go-geom"

	"github.com/envirowatch/envirowatch/internal/model"
)

const earthRadiusM = 6371000.0

// WithinDegrees reports whether two points are within tol degrees of each
// other on both axes. Dedup runs in degree space, matching the tolerance the
// providers report positions at.
func WithinDegrees(a, b model.Coordinate, tol float64) bool {
	return math.Abs(a.Lat-b.Lat) <= tol && math.Abs(a.Lng-b.Lng) <= tol
}

// HaversineMeters returns the great-circle distance between two points.
func HaversineMeters(a, b model.Coordinate) float64 {
	latA := a.Lat * math.Pi / 180
	latB := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(latA)*math.Cos(latB)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusM * math.Asin(math.Sqrt(h))
}

// Point converts a coordinate to a go-geom XY point (lng/lat order).
func Point(c model.Coordinate) *geom.Point {
	return geom.NewPointFlat(geom.XY, []float64{c.Lng, c.Lat})
}

// BoundsOf returns the bounding box covering all the given coordinates,
// or nil for an empty input.
func BoundsOf(coords []model.Coordinate) *geom.Bounds {
	if len(coords) == 0 {
		return nil
	}
	b := geom.NewBounds(geom.XY)
	for _, c := range coords {
		b.Extend(Point(c))
	}
	return b
}
