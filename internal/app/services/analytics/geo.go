// Package analytics holds the stateless calculators behind risk scoring, ETA
// prediction, anomaly checks and chain-of-custody verification.
package analytics

import "math"

const earthRadiusKm = 6371.0

// Point is a latitude/longitude pair in degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Haversine returns the great-circle distance in kilometres.
func Haversine(lat1, lng1, lat2, lng2 float64) float64 {
	phi1 := radians(lat1)
	phi2 := radians(lat2)
	dPhi := radians(lat2 - lat1)
	dLambda := radians(lng2 - lng1)

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// SegmentDistance returns the distance in kilometres from p to the segment
// a-b. The closest point is found on a local equirectangular plane centred on
// p; the reported distance is the haversine distance to that point.
func SegmentDistance(p, a, b Point) float64 {
	kx := radians(1) * earthRadiusKm * math.Cos(radians(p.Lat))
	ky := radians(1) * earthRadiusKm

	ax, ay := (a.Lng-p.Lng)*kx, (a.Lat-p.Lat)*ky
	bx, by := (b.Lng-p.Lng)*kx, (b.Lat-p.Lat)*ky
	dx, dy := bx-ax, by-ay

	lenSq := dx*dx + dy*dy
	if lenSq == 0 {
		return Haversine(p.Lat, p.Lng, a.Lat, a.Lng)
	}
	t := clamp(-(ax*dx+ay*dy)/lenSq, 0, 1)
	closest := Point{
		Lat: a.Lat + t*(b.Lat-a.Lat),
		Lng: a.Lng + t*(b.Lng-a.Lng),
	}
	return Haversine(p.Lat, p.Lng, closest.Lat, closest.Lng)
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// Round rounds v to the given number of decimal places.
func Round(v float64, places int) float64 {
	p := math.Pow10(places)
	return math.Round(v*p) / p
}
