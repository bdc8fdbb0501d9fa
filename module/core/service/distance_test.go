package service

import (
	"math"
	"testing"
)

func TestDistance_SamePoint(t *testing.T) {
	points := [][2]float64{
		{0, 0},
		{40, -74},
		{-6.2088, 106.8456},
		{90, 180},
		{-90, -180},
	}
	for _, p := range points {
		if d := Distance(p[0], p[1], p[0], p[1]); d != 0 {
			t.Errorf("distance(%v, %v) = %f, want 0", p, p, d)
		}
	}
}

func TestDistance_Symmetric(t *testing.T) {
	pairs := [][4]float64{
		{40, -74, 40.001, -74.002},
		{-6.2088, 106.8456, -6.2100, 106.8456},
		{51.5, -0.12, -33.86, 151.2},
		{0, 0, 0, 180},
		{89.9, 10, -89.9, -170},
	}
	for _, p := range pairs {
		ab := Distance(p[0], p[1], p[2], p[3])
		ba := Distance(p[2], p[3], p[0], p[1])
		if ab != ba {
			t.Errorf("distance not symmetric for %v: %f != %f", p, ab, ba)
		}
	}
}

func TestDistance_Known(t *testing.T) {
	// one degree of latitude on a 6371km sphere
	want := 2 * math.Pi * earthRadiusMeters / 360
	if d := Distance(0, 0, 1, 0); math.Abs(d-want) > 0.001 {
		t.Errorf("expected %f, got %f", want, d)
	}

	// roughly 133m between these two points
	d := Distance(-6.2088, 106.8456, -6.2100, 106.8456)
	if d < 100 || d > 200 {
		t.Errorf("expected ~133m, got %f", d)
	}
}

func TestDistance_Antipodal(t *testing.T) {
	d := Distance(0, 0, 0, 180)
	want := math.Pi * earthRadiusMeters
	if math.IsNaN(d) || math.Abs(d-want) > 0.001 {
		t.Errorf("expected %f, got %f", want, d)
	}
}
