package models

import (
	"time"
)

// Location is a GeoJSON point. Coordinates are [longitude, latitude] so the
// document can carry a 2dsphere index.
type Location struct {
	Type        string    `json:"type" bson:"type" default:"Point"`
	Coordinates []float64 `json:"coordinates" bson:"coordinates" validate:"required,len=2"`
	Address     string    `json:"address" bson:"address"`
	City        string    `json:"city" bson:"city"`
	PostalCode  string    `json:"postal_code" bson:"postal_code"`
	PlaceID     string    `json:"place_id" bson:"place_id"`
	Timestamp   time.Time `json:"timestamp" bson:"timestamp"`
}

func NewLocation(lat, lng float64, address string) Location {
	return Location{
		Type:        "Point",
		Coordinates: []float64{lng, lat},
		Address:     address,
		Timestamp:   time.Now(),
	}
}

func (l Location) Latitude() float64 {
	if len(l.Coordinates) >= 2 {
		return l.Coordinates[1]
	}
	return 0
}

func (l Location) Longitude() float64 {
	if len(l.Coordinates) >= 1 {
		return l.Coordinates[0]
	}
	return 0
}
