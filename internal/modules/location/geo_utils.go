// Package location holds the geographic primitives of the marketplace: great-circle
// distance, the restricted-zone service area, and provider position tracking.
package location

import (
	"fmt"
	"math"

	"errandhub/internal/types"
)

// earthRadiusMiles is fixed; results are never rounded here, callers round for display.
const earthRadiusMiles = 3958.8

const (
	metersPerMile     = 1609.34
	kilometersPerMile = 1.60934
)

type Unit string

const (
	Miles      Unit = "miles"
	Kilometers Unit = "kilometers"
	Meters     Unit = "meters"
)

var ErrInvalidCoordinate = fmt.Errorf("%w: invalid coordinate", types.ErrValidation)

// ParseUnit maps user input to a Unit. The empty string means miles.
func ParseUnit(s string) (Unit, error) {
	switch Unit(s) {
	case "", Miles:
		return Miles, nil
	case Kilometers:
		return Kilometers, nil
	case Meters:
		return Meters, nil
	}
	return "", fmt.Errorf("%w: unknown distance unit %q", types.ErrValidation, s)
}

// ValidateCoordinate fails with ErrInvalidCoordinate when lat is outside [-90, 90]
// or lng outside [-180, 180].
func ValidateCoordinate(lat, lng float64) error {
	if math.IsNaN(lat) || math.IsNaN(lng) || lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return fmt.Errorf("%w (%v, %v)", ErrInvalidCoordinate, lat, lng)
	}
	return nil
}

// Distance returns the haversine great-circle distance between two points in the
// requested unit.
func Distance(lat1, lng1, lat2, lng2 float64, unit Unit) (float64, error) {
	if err := ValidateCoordinate(lat1, lng1); err != nil {
		return 0, err
	}
	if err := ValidateCoordinate(lat2, lng2); err != nil {
		return 0, err
	}
	if unit == "" {
		unit = Miles
	}
	return Convert(haversineMiles(lat1, lng1, lat2, lng2), unit), nil
}

// DistanceBetween is Distance for two points.
func DistanceBetween(a, b types.Point, unit Unit) (float64, error) {
	return Distance(a.Lat, a.Lng, b.Lat, b.Lng, unit)
}

// Convert converts a distance in miles to unit.
func Convert(miles float64, unit Unit) float64 {
	switch unit {
	case Meters:
		return miles * metersPerMile
	case Kilometers:
		return miles * kilometersPerMile
	default:
		return miles
	}
}

// WithinRadius reports whether point lies within radiusMiles of center.
func WithinRadius(center, point types.Point, radiusMiles float64) (bool, error) {
	d, err := DistanceBetween(center, point, Miles)
	if err != nil {
		return false, err
	}
	return d <= radiusMiles, nil
}

// BoundingBox is a rough lat/lng envelope used to prefilter storage queries before
// the exact haversine check.
type BoundingBox struct {
	MinLat float64
	MaxLat float64
	MinLng float64
	MaxLng float64
}

func (b BoundingBox) Contains(p types.Point) bool {
	return p.Lat >= b.MinLat && p.Lat <= b.MaxLat && p.Lng >= b.MinLng && p.Lng <= b.MaxLng
}

// BoundingBoxFor returns an envelope around center that contains every point within
// radiusMiles. Near the poles the longitude span widens to the full range.
func BoundingBoxFor(center types.Point, radiusMiles float64) BoundingBox {
	// one degree of latitude is ~69.05 miles everywhere
	latDelta := radiusMiles / (earthRadiusMiles * math.Pi / 180)
	box := BoundingBox{
		MinLat: math.Max(center.Lat-latDelta, -90),
		MaxLat: math.Min(center.Lat+latDelta, 90),
		MinLng: -180,
		MaxLng: 180,
	}
	cosLat := math.Cos(degreesToRadians(center.Lat))
	if cosLat > 1e-6 {
		lngDelta := latDelta / cosLat
		if lngDelta < 180 && center.Lng-lngDelta >= -180 && center.Lng+lngDelta <= 180 {
			box.MinLng = center.Lng - lngDelta
			box.MaxLng = center.Lng + lngDelta
		}
	}
	return box
}

func haversineMiles(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := degreesToRadians(lat2 - lat1)
	dLng := degreesToRadians(lng2 - lng1)

	rLat1 := degreesToRadians(lat1)
	rLat2 := degreesToRadians(lat2)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rLat1)*math.Cos(rLat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusMiles * c
}

func degreesToRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}
