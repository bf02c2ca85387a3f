/*
Package game
File: mechanics.go
Description:
    Contains the "Physics" and random helper functions.
    Distances, interpolation and clamping are consumed by the tick engine,
    the snapshot builder and the station picker. They hold no state.
*/

package game

import (
	"math"
	"math/rand"
)

// Point is a 2D world coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Distance computes the Euclidean distance between two world coordinates.
func Distance(a, b Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// Lerp linearly interpolates between a and b at t.
func Lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

// LerpPoint interpolates both coordinates of a segment at t.
func LerpPoint(a, b Point, t float64) Point {
	return Point{X: Lerp(a.X, b.X, t), Y: Lerp(a.Y, b.Y, t)}
}

// Clamp bounds value to [lo, hi].
func Clamp(value, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, value))
}

// PickStationExcluding returns a uniformly random station whose ID differs
// from excludedID. The second result is false when no candidate exists.
func PickStationExcluding(rng *rand.Rand, stations []Station, excludedID string) (Station, bool) {
	candidates := 0
	for _, s := range stations {
		if s.ID != excludedID {
			candidates++
		}
	}
	if candidates == 0 {
		return Station{}, false
	}

	// Walk to the n-th eligible station instead of allocating a filtered slice.
	n := rng.Intn(candidates)
	for _, s := range stations {
		if s.ID == excludedID {
			continue
		}
		if n == 0 {
			return s, true
		}
		n--
	}
	return Station{}, false
}

// FindStationNear returns the first station within radius of (x, y).
func FindStationNear(stations []Station, x, y, radius float64) (Station, bool) {
	radiusSq := radius * radius
	for _, s := range stations {
		dx := s.X - x
		dy := s.Y - y
		if dx*dx+dy*dy <= radiusSq {
			return s, true
		}
	}
	return Station{}, false
}
