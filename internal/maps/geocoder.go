package maps

import (
	"context"
	"fmt"
	"strings"

	"googlemaps.github.io/maps"

	"errandhub/internal/types"
)

// geocodeClient is implemented by *maps.Client.
type geocodeClient interface {
	Geocode(ctx context.Context, r *maps.GeocodingRequest) ([]maps.GeocodingResult, error)
}

// Geocoder resolves free-form addresses through the Google Maps Geocoding API.
type Geocoder struct {
	client geocodeClient
	region string
}

// NewGeocoder creates a Geocoder with the given API key. region biases results
// (ccTLD, e.g. "us"); empty means no bias.
func NewGeocoder(apiKey, region string) (*Geocoder, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &Geocoder{client: client, region: region}, nil
}

// Geocode returns the coordinate of the best match for address. An address
// with no match is a validation error.
func (g *Geocoder) Geocode(ctx context.Context, address string) (types.Point, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return types.Point{}, fmt.Errorf("%w: address required", types.ErrValidation)
	}
	results, err := g.client.Geocode(ctx, &maps.GeocodingRequest{
		Address: address,
		Region:  g.region,
	})
	if err != nil {
		return types.Point{}, fmt.Errorf("maps api error: %w", err)
	}
	if len(results) == 0 {
		return types.Point{}, fmt.Errorf("%w: no location found for %q", types.ErrValidation, address)
	}
	loc := results[0].Geometry.Location
	return types.Point{Lat: loc.Lat, Lng: loc.Lng}, nil
}
