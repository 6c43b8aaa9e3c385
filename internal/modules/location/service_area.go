package location

import (
	"fmt"
	"math"

	"errandhub/internal/types"
)

// RestrictedZone is a populated area where requests may not be picked up.
type RestrictedZone struct {
	Name        string      `yaml:"name" json:"name"`
	Center      types.Point `yaml:"center" json:"center"`
	RadiusMiles float64     `yaml:"radius_miles" json:"radius_miles"`
	Population  int         `yaml:"population" json:"population"`
}

// AreaCheck is the result of validating a coordinate against the service area.
// DistanceToRestrictedArea is in miles from the nearest qualifying zone center and
// is nil when no zone qualifies.
type AreaCheck struct {
	IsValid                  bool     `json:"is_valid"`
	DistanceToRestrictedArea *float64 `json:"distance_to_restricted_area,omitempty"`
	NearestRestrictedCity    string   `json:"nearest_restricted_city,omitempty"`
	Message                  string   `json:"message"`
}

// ServiceArea classifies coordinates as serviceable or restricted. It is immutable
// after construction and safe for concurrent use.
type ServiceArea struct {
	zones               []RestrictedZone
	populationThreshold int
}

func NewServiceArea(zones []RestrictedZone, populationThreshold int) *ServiceArea {
	cp := make([]RestrictedZone, len(zones))
	copy(cp, zones)
	return &ServiceArea{zones: cp, populationThreshold: populationThreshold}
}

// Validate reports whether (lat, lng) may host a pickup. A coordinate is invalid
// when it lies within the radius of a zone whose population exceeds the threshold;
// when several zones match, the nearest one is reported.
func (a *ServiceArea) Validate(lat, lng float64) (AreaCheck, error) {
	if err := ValidateCoordinate(lat, lng); err != nil {
		return AreaCheck{}, err
	}

	nearest := -1
	nearestDist := math.Inf(1)
	restricting := -1
	restrictingDist := math.Inf(1)

	for i, z := range a.zones {
		if z.Population <= a.populationThreshold {
			continue
		}
		d := haversineMiles(lat, lng, z.Center.Lat, z.Center.Lng)
		if d < nearestDist {
			nearest, nearestDist = i, d
		}
		if d <= z.RadiusMiles && d < restrictingDist {
			restricting, restrictingDist = i, d
		}
	}

	if restricting >= 0 {
		z := a.zones[restricting]
		dist := restrictingDist
		return AreaCheck{
			IsValid:                  false,
			DistanceToRestrictedArea: &dist,
			NearestRestrictedCity:    z.Name,
			Message: fmt.Sprintf("service is not available within %.0f miles of %s (%.1f miles away)",
				z.RadiusMiles, z.Name, dist),
		}, nil
	}

	check := AreaCheck{IsValid: true, Message: "location is within the service area"}
	if nearest >= 0 {
		dist := nearestDist
		check.DistanceToRestrictedArea = &dist
		check.NearestRestrictedCity = a.zones[nearest].Name
		check.Message = fmt.Sprintf("location is within the service area (%.1f miles from %s)",
			dist, a.zones[nearest].Name)
	}
	return check, nil
}

// Allows is Validate reduced to a yes/no; invalid coordinates are never allowed.
func (a *ServiceArea) Allows(p types.Point) bool {
	check, err := a.Validate(p.Lat, p.Lng)
	return err == nil && check.IsValid
}

// DefaultPopulationThreshold and DefaultZones describe the largest US metros; the
// marketplace serves the areas around them.
const (
	DefaultPopulationThreshold = 1_000_000
	defaultZoneRadiusMiles     = 15.0
)

func DefaultZones() []RestrictedZone {
	cities := []struct {
		name       string
		lat, lng   float64
		population int
	}{
		{"New York", 40.7128, -74.0060, 8_336_817},
		{"Los Angeles", 34.0522, -118.2437, 3_979_576},
		{"Chicago", 41.8781, -87.6298, 2_693_976},
		{"Houston", 29.7604, -95.3698, 2_320_268},
		{"Phoenix", 33.4484, -112.0740, 1_680_992},
		{"Philadelphia", 39.9526, -75.1652, 1_584_064},
		{"San Antonio", 29.4241, -98.4936, 1_547_253},
		{"San Diego", 32.7157, -117.1611, 1_423_851},
		{"Dallas", 32.7767, -96.7970, 1_343_573},
		{"San Jose", 37.3382, -121.8863, 1_021_795},
	}
	zones := make([]RestrictedZone, 0, len(cities))
	for _, c := range cities {
		zones = append(zones, RestrictedZone{
			Name:        c.name,
			Center:      types.Point{Lat: c.lat, Lng: c.lng},
			RadiusMiles: defaultZoneRadiusMiles,
			Population:  c.population,
		})
	}
	return zones
}
