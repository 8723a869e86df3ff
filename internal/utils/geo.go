package utils

// IsValidCoordinates reports whether the pair is a plottable WGS84 position.
// Driver location pings and booking endpoints are rejected when this fails.
func IsValidCoordinates(lat, lng float64) bool {
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}

// NormalizeCoordinates wraps longitude into [-180, 180] and clamps latitude.
// GPS units occasionally report 360-offset longitudes after a cold fix.
func NormalizeCoordinates(lat, lng float64) (float64, float64) {
	if lat > 90 {
		lat = 90
	} else if lat < -90 {
		lat = -90
	}

	for lng > 180 {
		lng -= 360
	}
	for lng < -180 {
		lng += 360
	}

	return lat, lng
}
