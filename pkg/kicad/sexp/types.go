// Package sexp provides shared scanning infrastructure for KiCad's
// S-expression based files. It holds the block scanner used by the layout
// extractors, the error kinds shared by every parser and a few small value
// types common to layout and symbol data.
package sexp

// Position represents a 2D coordinate in millimeters.
// KiCad 6+ files already store millimeters, so no unit conversion happens.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// PositionAngle combines position with rotation in degrees
type PositionAngle struct {
	Position
	Angle float64 `json:"angle"`
}

// Size represents dimensions
type Size struct {
	Width  float64 `json:"width"`  // Width in mm
	Height float64 `json:"height"` // Height in mm
}

// Vec3 is an (xyz ...) triple as used by 3D model offset, scale and rotation.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// BoundingBox represents a rectangular boundary
type BoundingBox struct {
	Min Position `json:"min"` // Minimum (top-left) corner
	Max Position `json:"max"` // Maximum (bottom-right) corner
}

// NewBoundingBox creates an empty bounding box
func NewBoundingBox() BoundingBox {
	return BoundingBox{
		Min: Position{X: 1e9, Y: 1e9},   // Start with very large values
		Max: Position{X: -1e9, Y: -1e9}, // Start with very small values
	}
}

// IsEmpty checks if the bounding box is empty
func (bb BoundingBox) IsEmpty() bool {
	return bb.Min.X > bb.Max.X || bb.Min.Y > bb.Max.Y
}

// Expand expands the bounding box to include a position
func (bb *BoundingBox) Expand(pos Position) {
	if pos.X < bb.Min.X {
		bb.Min.X = pos.X
	}
	if pos.Y < bb.Min.Y {
		bb.Min.Y = pos.Y
	}
	if pos.X > bb.Max.X {
		bb.Max.X = pos.X
	}
	if pos.Y > bb.Max.Y {
		bb.Max.Y = pos.Y
	}
}

// ExpandBox expands to include another bounding box
func (bb *BoundingBox) ExpandBox(other BoundingBox) {
	if !other.IsEmpty() {
		bb.Expand(other.Min)
		bb.Expand(other.Max)
	}
}

// Contains checks if a position is within the bounding box
func (bb BoundingBox) Contains(pos Position) bool {
	return pos.X >= bb.Min.X && pos.X <= bb.Max.X &&
		pos.Y >= bb.Min.Y && pos.Y <= bb.Max.Y
}

// Width returns the width of the bounding box
func (bb BoundingBox) Width() float64 {
	return bb.Max.X - bb.Min.X
}

// Height returns the height of the bounding box
func (bb BoundingBox) Height() float64 {
	return bb.Max.Y - bb.Min.Y
}

// Center returns the center point of the bounding box
func (bb BoundingBox) Center() Position {
	return Position{
		X: (bb.Min.X + bb.Max.X) / 2.0,
		Y: (bb.Min.Y + bb.Max.Y) / 2.0,
	}
}
