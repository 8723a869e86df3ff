// Package maps resolves street addresses for bookings. Customers often type a
// pickup address with no pin drop; the geocoder turns it into coordinates the
// dispatch search can use. Distance itself is computed in-process, not here.
package maps

import "context"

type MapsProvider interface {
	// Geocode resolves a free-form address. Results come best match first.
	Geocode(ctx context.Context, address string) (*GeocodeResponse, error)
	// ReverseGeocode names a coordinate pair, used to label driver
	// positions on timeline entries.
	ReverseGeocode(ctx context.Context, lat, lng float64) (*GeocodeResponse, error)
}

type GeocodeResponse struct {
	Results []GeocodeResult `json:"results"`
}

type GeocodeResult struct {
	PlaceID     string   `json:"place_id"`
	Address     string   `json:"formatted_address"`
	Coordinates Location `json:"geometry"`
	Types       []string `json:"types"`
}

type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}
