package utils

import (
	"math"
	"testing"
)

func TestCalculateDistanceKnownPair(t *testing.T) {
	// Bengaluru MG Road to Hebbal, roughly 7.1km great-circle.
	got := CalculateDistance(12.9716, 77.5946, 13.0358, 77.5970)
	if math.Abs(got-7.14) > 0.1 {
		t.Errorf("distance = %v, want about 7.14", got)
	}
}

func TestCalculateDistanceZeroForSamePoint(t *testing.T) {
	if got := CalculateDistance(12.9716, 77.5946, 12.9716, 77.5946); got != 0 {
		t.Errorf("distance = %v, want 0", got)
	}
}

func TestCalculateDistanceSymmetric(t *testing.T) {
	forward := CalculateDistance(12.9716, 77.5946, 19.0760, 72.8777)
	backward := CalculateDistance(19.0760, 72.8777, 12.9716, 77.5946)
	if math.Abs(forward-backward) > 1e-9 {
		t.Errorf("asymmetric distance: %v vs %v", forward, backward)
	}
}

func TestIsWithinRadius(t *testing.T) {
	if !IsWithinRadius(12.9716, 77.5946, 12.9750, 77.5946, 1) {
		t.Error("point 0.4km away reported outside 1km radius")
	}
	if IsWithinRadius(12.9716, 77.5946, 13.0358, 77.5970, 5) {
		t.Error("point 7km away reported inside 5km radius")
	}
}

func TestRoundFareHalfUp(t *testing.T) {
	cases := []struct {
		in   float64
		want float64
	}{
		{448.5, 449},
		{448.49, 448},
		{345.0, 345},
		{0.5, 1},
		{0.49, 0},
	}
	for _, c := range cases {
		if got := RoundFare(c.in); got != c.want {
			t.Errorf("RoundFare(%v) = %v, want %v", c.in, got, c.want)
		}
	}
}
