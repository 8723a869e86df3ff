package maps

import (
	"context"
	"fmt"

	"googlemaps.github.io/maps"
)

// maxGeocodeResults caps what we hand back to callers; booking creation only
// ever uses the top match.
const maxGeocodeResults = 5

type GoogleMapsProvider struct {
	client *maps.Client
}

func NewGoogleMapsProvider(apiKey string) (*GoogleMapsProvider, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("google maps client: %w", err)
	}
	return &GoogleMapsProvider{client: client}, nil
}

func (g *GoogleMapsProvider) Geocode(ctx context.Context, address string) (*GeocodeResponse, error) {
	resp, err := g.client.Geocode(ctx, &maps.GeocodingRequest{Address: address})
	if err != nil {
		return nil, fmt.Errorf("geocode %q: %w", address, err)
	}
	return toResponse(resp), nil
}

func (g *GoogleMapsProvider) ReverseGeocode(ctx context.Context, lat, lng float64) (*GeocodeResponse, error) {
	resp, err := g.client.ReverseGeocode(ctx, &maps.GeocodingRequest{
		LatLng: &maps.LatLng{Lat: lat, Lng: lng},
	})
	if err != nil {
		return nil, fmt.Errorf("reverse geocode %.6f,%.6f: %w", lat, lng, err)
	}
	return toResponse(resp), nil
}

func toResponse(raw []maps.GeocodingResult) *GeocodeResponse {
	if len(raw) > maxGeocodeResults {
		raw = raw[:maxGeocodeResults]
	}

	results := make([]GeocodeResult, 0, len(raw))
	for _, r := range raw {
		results = append(results, GeocodeResult{
			PlaceID: r.PlaceID,
			Address: r.FormattedAddress,
			Coordinates: Location{
				Latitude:  r.Geometry.Location.Lat,
				Longitude: r.Geometry.Location.Lng,
			},
			Types: r.Types,
		})
	}
	return &GeocodeResponse{Results: results}
}
