// Package geo provides geometric primitives for zone evaluation and
// privacy-preserving coarse location handling.
package geo

// Point is an immutable geographic coordinate.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Polygon is an ordered sequence of vertices. The closing edge from the last
// vertex back to the first is implicit.
type Polygon []Point
