package service

import "math"

const earthRadiusMeters = 6371000

// Distance returns the great-circle distance in meters between two points given in
// decimal degrees (haversine).
func Distance(latA, lonA, latB, lonB float64) float64 {
	dLat := toRad(latB - latA)
	dLon := toRad(lonB - lonA)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(latA))*math.Cos(toRad(latB))*math.Sin(dLon/2)*math.Sin(dLon/2)

	// floating-point overshoot at coincident or antipodal inputs
	a = math.Max(0, math.Min(1, a))

	return earthRadiusMeters * 2 * math.Asin(math.Sqrt(a))
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
