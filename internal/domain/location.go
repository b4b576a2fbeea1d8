package domain

import (
	"fmt"
	"math"
	"strings"
)

// Location is a geocoded place. Several candidates may share a Name; Country
// and State are carried for display only.
type Location struct {
	Name      string  `json:"name"`
	Country   string  `json:"country,omitempty"`
	State     string  `json:"state,omitempty"`
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
}

// Validate checks that the coordinates are finite and within WGS-84 bounds.
func (l Location) Validate() error {
	if math.IsNaN(l.Latitude) || l.Latitude < -90 || l.Latitude > 90 {
		return fmt.Errorf("latitude %v out of range [-90,90]", l.Latitude)
	}
	if math.IsNaN(l.Longitude) || l.Longitude < -180 || l.Longitude > 180 {
		return fmt.Errorf("longitude %v out of range [-180,180]", l.Longitude)
	}
	return nil
}

// DisplayName joins the non-empty name parts, e.g. "Portland, Oregon, US".
func (l Location) DisplayName() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{l.Name, l.State, l.Country} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}
