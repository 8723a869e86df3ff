package validators

type LocationUpdateRequest struct {
	Latitude  float64 `json:"latitude" validate:"min=-90,max=90"`
	Longitude float64 `json:"longitude" validate:"min=-180,max=180"`
	Address   string  `json:"address" validate:"omitempty,max=255"`
}

type AvailabilityRequest struct {
	Online bool `json:"online"`
}
