package utils

import (
	"math"
)

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

// CalculateDistance returns the great-circle distance in kilometers. Haversine
// is accurate enough at city scale for fares and candidate search.
func CalculateDistance(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLon := toRadians(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)

	return EarthRadiusKM * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

func IsWithinRadius(centerLat, centerLon, pointLat, pointLon, radiusKM float64) bool {
	return CalculateDistance(centerLat, centerLon, pointLat, pointLon) <= radiusKM
}

// RoundFare rounds to the nearest whole currency unit, half up.
func RoundFare(amount float64) float64 {
	return math.Floor(amount + 0.5)
}
