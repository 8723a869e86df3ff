package services

import (
	"sort"

	"gocargo/internal/models"
)

// RankingService orders nearby driver candidates best-first for a booking.
type RankingService interface {
	Rank(candidates []*DriverCandidate, cargoSize models.CargoSize) []*DriverCandidate
}

type rankingService struct{}

func NewRankingService() RankingService {
	return &rankingService{}
}

// Rank filters candidates to those able to carry the cargo size and orders
// them by composite score. When no candidate is capable, the full set is
// returned ordered by distance alone: a degraded match beats no match.
func (s *rankingService) Rank(candidates []*DriverCandidate, cargoSize models.CargoSize) []*DriverCandidate {
	capable := make([]*DriverCandidate, 0, len(candidates))
	for _, c := range candidates {
		if c.Driver.CanCarry(cargoSize) {
			capable = append(capable, c)
		}
	}

	if len(capable) == 0 {
		fallback := make([]*DriverCandidate, len(candidates))
		copy(fallback, candidates)
		sort.Slice(fallback, func(i, j int) bool {
			if fallback[i].DistanceKM != fallback[j].DistanceKM {
				return fallback[i].DistanceKM < fallback[j].DistanceKM
			}
			return fallback[i].Driver.ID.Hex() < fallback[j].Driver.ID.Hex()
		})
		return fallback
	}

	sort.Slice(capable, func(i, j int) bool {
		si, sj := Score(capable[i]), Score(capable[j])
		if si != sj {
			return si > sj
		}
		return capable[i].Driver.ID.Hex() < capable[j].Driver.ID.Hex()
	})

	return capable
}

// Score is the weighted composite used to order capable candidates. Each
// component is normalized to a 0-100 scale before weighting.
func Score(c *DriverCandidate) float64 {
	ratingScore := c.Driver.Rating * 20

	distanceScore := 100 - c.DistanceKM*10
	if distanceScore < 0 {
		distanceScore = 0
	}

	experienceScore := float64(c.Driver.CompletedDeliveries)
	if experienceScore > 100 {
		experienceScore = 100
	}

	return 0.4*ratingScore + 0.4*distanceScore + 0.2*experienceScore
}
