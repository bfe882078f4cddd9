package model

import (
	"fmt"
	"strings"
)

// LocationKind tells how a Location is addressed.
type LocationKind string

const (
	LocationAddress     LocationKind = "address"
	LocationCoordinates LocationKind = "coordinates"
)

// Coordinates is a WGS84 position.
type Coordinates struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lng float64 `json:"lng" yaml:"lng"`
}

// Location is where a block takes place. It is only ever used as a lookup
// key for travel durations and is never modified once attached to a block.
type Location struct {
	Kind        LocationKind `json:"kind" yaml:"kind"`
	Address     string       `json:"address,omitempty" yaml:"address,omitempty"`
	Coordinates *Coordinates `json:"coordinates,omitempty" yaml:"coordinates,omitempty"`
	Label       string       `json:"label,omitempty" yaml:"label,omitempty"`
}

// HasCoordinates reports whether the location carries a usable position.
func (l Location) HasCoordinates() bool { return l.Coordinates != nil }

// Key returns the cache key of the location: coordinates when present,
// otherwise the normalised address.
func (l Location) Key() string {
	if l.Coordinates != nil {
		return fmt.Sprintf("%.6f,%.6f", l.Coordinates.Lat, l.Coordinates.Lng)
	}
	return strings.ToLower(strings.Join(strings.Fields(l.Address), " "))
}

// Query returns the string sent to a distance provider.
func (l Location) Query() string {
	if l.Coordinates != nil {
		return fmt.Sprintf("%.6f,%.6f", l.Coordinates.Lat, l.Coordinates.Lng)
	}
	return strings.TrimSpace(l.Address)
}

// Validate checks that the location can be used as a lookup key.
func (l Location) Validate() error {
	switch l.Kind {
	case LocationCoordinates:
		if l.Coordinates == nil {
			return fmt.Errorf("coordinates location without coordinates")
		}
		if l.Coordinates.Lat < -90 || l.Coordinates.Lat > 90 || l.Coordinates.Lng < -180 || l.Coordinates.Lng > 180 {
			return fmt.Errorf("coordinates out of range: %v,%v", l.Coordinates.Lat, l.Coordinates.Lng)
		}
	case LocationAddress:
		if strings.TrimSpace(l.Address) == "" {
			return fmt.Errorf("address location without address")
		}
	default:
		return fmt.Errorf("unknown location kind %q", l.Kind)
	}
	return nil
}

// TravelMode selects how travel durations are estimated.
type TravelMode string

const (
	// TravelNormal disables travel accounting.
	TravelNormal    TravelMode = "normal"
	TravelDriving   TravelMode = "driving"
	TravelTransit   TravelMode = "transit"
	TravelWalking   TravelMode = "walking"
	TravelBicycling TravelMode = "bicycling"
)

// TravelModes lists the modes understood by distance providers.
var TravelModes = []TravelMode{TravelDriving, TravelTransit, TravelWalking, TravelBicycling}

// ParseTravelMode parses a mode name. An empty string means TravelNormal.
func ParseTravelMode(s string) (TravelMode, error) {
	switch m := TravelMode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return TravelNormal, nil
	case TravelNormal, TravelDriving, TravelTransit, TravelWalking, TravelBicycling:
		return m, nil
	default:
		return "", fmt.Errorf("unknown travel mode %q", s)
	}
}
