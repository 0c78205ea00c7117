package model

// Beacon is a client-side performance measurement (web vitals)
type Beacon struct {
	ID     string  `json:"id"`
	Name   string  `json:"name" binding:"required"`
	Value  float64 `json:"value"`
	Rating string  `json:"rating"`
	Path   string  `json:"path"`
}
