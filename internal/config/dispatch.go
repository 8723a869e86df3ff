package config

import (
	"time"
)

type DispatchConfig struct {
	SearchRadiusKM    float64       `yaml:"search_radius_km"`
	BroadcastRadiusKM float64       `yaml:"broadcast_radius_km"`
	MaxCandidates     int           `yaml:"max_candidates"`
	LocationFreshness time.Duration `yaml:"location_freshness"`
	DriverShare       float64       `yaml:"driver_share"`
}

func loadDispatchConfig() *DispatchConfig {
	return &DispatchConfig{
		SearchRadiusKM:    getEnvAsFloat64("DISPATCH_SEARCH_RADIUS_KM", 10.0),
		BroadcastRadiusKM: getEnvAsFloat64("DISPATCH_BROADCAST_RADIUS_KM", 15.0),
		MaxCandidates:     getEnvAsInt("DISPATCH_MAX_CANDIDATES", 50),
		LocationFreshness: getEnvAsDuration("DISPATCH_LOCATION_FRESHNESS", 10*time.Minute),
		DriverShare:       getEnvAsFloat64("DISPATCH_DRIVER_SHARE", 0.70),
	}
}
