package geo

import (
	"math"

	"github.com/paulmach/orb"
	orbgeo "github.com/paulmach/orb/geo"
)

// NominalBusSpeedKmh is the crow-flies speed used for coarse travel estimates
const NominalBusSpeedKmh = 22.0

// Haversine calculates the distance between two points in meters
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	return orbgeo.DistanceHaversine(orb.Point{lon1, lat1}, orb.Point{lon2, lat2})
}

// Distance returns the haversine distance between two orb points in meters
func Distance(a, b orb.Point) float64 {
	return orbgeo.DistanceHaversine(a, b)
}

// BusMinutes converts a crow-flies distance to minutes at the nominal bus speed
func BusMinutes(lat1, lon1, lat2, lon2 float64) float64 {
	km := Haversine(lat1, lon1, lat2, lon2) / 1000
	return km / NominalBusSpeedKmh * 60
}

// SquaredDistance is the squared coordinate-space distance. It is only
// meaningful for ranking nearby points against each other.
func SquaredDistance(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := lat1 - lat2
	dLon := lon1 - lon2
	return dLat*dLat + dLon*dLon
}

// Centroid returns the arithmetic mean of the given (lat, lng) pairs
func Centroid(lats, lngs []float64) (float64, float64) {
	if len(lats) == 0 || len(lats) != len(lngs) {
		return 0, 0
	}
	var sumLat, sumLng float64
	for i := range lats {
		sumLat += lats[i]
		sumLng += lngs[i]
	}
	n := float64(len(lats))
	return sumLat / n, sumLng / n
}

// LineLengthKm returns the length of a polyline through the given points
func LineLengthKm(points []orb.Point) float64 {
	var total float64
	for i := 1; i < len(points); i++ {
		total += orbgeo.DistanceHaversine(points[i-1], points[i])
	}
	return total / 1000
}

// BoundAround returns the bounding box covering radiusM meters around a point
func BoundAround(center orb.Point, radiusM float64) orb.Bound {
	return orbgeo.NewBoundAroundPoint(center, radiusM)
}

// InBound reports whether the point lies in the bound (edges inclusive)
func InBound(b orb.Bound, lat, lng float64) bool {
	return lat >= b.Min.Lat() && lat <= b.Max.Lat() &&
		lng >= b.Min.Lon() && lng <= b.Max.Lon()
}

// Round rounds to the given number of decimals
func Round(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}
