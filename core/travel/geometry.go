package travel

import (
	"math"

	"github.com/kilianp07/blockplan/core/model"
)

const earthRadiusKm = 6371.0

// DefaultSpeeds are the assumed average speeds in km/h per mode.
var DefaultSpeeds = map[model.TravelMode]float64{
	model.TravelDriving:   40,
	model.TravelTransit:   25,
	model.TravelBicycling: 15,
	model.TravelWalking:   5,
}

// HaversineKm returns the great-circle distance between two points.
func HaversineKm(a, b model.Coordinates) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKm * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// estimateMinutes converts a distance to minutes at speedKmh, rounded to the
// nearest ten minutes.
func estimateMinutes(km, speedKmh float64) int {
	if km <= 0 {
		return 0
	}
	return int(math.Round(km/speedKmh*60/10)) * 10
}
