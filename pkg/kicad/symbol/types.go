// Package symbol parses KiCad symbol libraries (.kicad_sym) into symbol
// definitions with their properties, pins, graphics and units.
package symbol

import (
	"github.com/OpenTraceLab/kiparse/pkg/kicad/sexp"
)

// Re-export shared types from sexp package for convenience
type Position = sexp.Position
type PositionAngle = sexp.PositionAngle

// Library is a parsed symbol library file
type Library struct {
	Version          int            `json:"version"`
	Generator        string         `json:"generator"`
	GeneratorVersion string         `json:"generator_version,omitempty"`
	Symbols          []Symbol       `json:"symbols"`
	Warnings         []sexp.Warning `json:"-"`
}

// Symbol represents a library symbol definition
type Symbol struct {
	Name        string     `json:"name"`              // Library-unique name (e.g., "R")
	Extends     string     `json:"extends,omitempty"` // Parent symbol for derived symbols
	Description string     `json:"description,omitempty"`
	Keywords    string     `json:"keywords,omitempty"`
	Datasheet   string     `json:"datasheet,omitempty"`
	Properties  []Property `json:"properties"` // Source order
	Pins        []Pin      `json:"pins,omitempty"`
	Graphics    []Graphic  `json:"graphics,omitempty"`
	Units       []Unit     `json:"units,omitempty"`
	PinNames    PinNames   `json:"pin_names"`
	PinNumbers  bool       `json:"pin_numbers"` // Pin numbers visible
	InBOM       bool       `json:"in_bom"`
	OnBoard     bool       `json:"on_board"`
	Power       bool       `json:"power,omitempty"`
	Offset      int        `json:"-"`

	unitName string // (unit_name ...) of a sub-symbol, moved into Unit
}

// Property is one (property "Key" "Value" ...) entry
type Property struct {
	Key      string        `json:"key"`
	Value    string        `json:"value"`
	ID       int           `json:"id,omitempty"` // Only written by KiCad 6 and 7
	Position PositionAngle `json:"position"`
	Hidden   bool          `json:"hidden,omitempty"`
}

// PinNames holds the (pin_names ...) display settings
type PinNames struct {
	Offset float64 `json:"offset"`
	Hidden bool    `json:"hidden,omitempty"`
}

// Unit is a sub-symbol: one gate unit and body style of a symbol.
// Unit 0 holds items common to every unit, style 0 items common to every
// body style.
type Unit struct {
	Name     string    `json:"name"` // e.g. "LM358_1_1"
	Unit     int       `json:"unit"`
	Style    int       `json:"style"`
	UnitName string    `json:"unit_name,omitempty"` // KiCad 8 display name
	Pins     []Pin     `json:"pins,omitempty"`
	Graphics []Graphic `json:"graphics,omitempty"`
}

// Orientation is the direction a pin points from its connection point
type Orientation string

const (
	OrientationRight Orientation = "right"
	OrientationUp    Orientation = "up"
	OrientationLeft  Orientation = "left"
	OrientationDown  Orientation = "down"
)

// OrientationFromAngle maps a pin angle in degrees to its orientation.
// Angles are snapped to the nearest quarter turn.
func OrientationFromAngle(deg float64) Orientation {
	quarter := int(sexp.NormalizeDegrees(deg+45) / 90)
	return [...]Orientation{OrientationRight, OrientationUp, OrientationLeft, OrientationDown}[quarter%4]
}

// Pin represents a symbol pin
type Pin struct {
	Name        string      `json:"name"`   // "~" when unnamed
	Number      string      `json:"number"`
	Type        string      `json:"type"`   // Electrical type (input, output, passive, ...)
	Shape       string      `json:"shape"`  // Graphical style (line, inverted, clock, ...)
	Position    Position    `json:"position"`
	Orientation Orientation `json:"orientation"`
	Length      float64     `json:"length"`
	Hidden      bool        `json:"hidden,omitempty"`
	Alternates  []Alternate `json:"alternates,omitempty"`
	Offset      int         `json:"-"`
}

// Alternate represents an alternate pin function
type Alternate struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Shape string `json:"shape"`
}

// GraphicKind names the drawing primitive of a Graphic
type GraphicKind string

const (
	GraphicPolyline  GraphicKind = "polyline"
	GraphicCircle    GraphicKind = "circle"
	GraphicArc       GraphicKind = "arc"
	GraphicRectangle GraphicKind = "rectangle"
	GraphicText      GraphicKind = "text"
	GraphicBezier    GraphicKind = "bezier"
)

// Graphic is a drawing primitive of a symbol body. Only the fields that
// belong to its Kind are set.
type Graphic struct {
	Kind     GraphicKind   `json:"kind"`
	Points   []Position    `json:"points,omitempty"` // polyline, bezier
	Start    Position      `json:"start"`            // rectangle, arc
	Mid      Position      `json:"mid"`              // arc
	End      Position      `json:"end"`              // rectangle, arc
	Center   Position      `json:"center"`           // circle
	Radius   float64       `json:"radius,omitempty"` // circle
	Text     string        `json:"text,omitempty"`
	Position PositionAngle `json:"position"` // text
	Stroke   Stroke        `json:"stroke"`
	Fill     string        `json:"fill,omitempty"` // none, outline, background, color
}

// Stroke style of a graphic
type Stroke struct {
	Width float64 `json:"width"`
	Type  string  `json:"type,omitempty"`
}

// Property returns the value of the first property named key
func (s *Symbol) Property(key string) (string, bool) {
	for _, p := range s.Properties {
		if p.Key == key {
			return p.Value, true
		}
	}
	return "", false
}

// Reference returns the designator prefix ("R", "U", "#PWR")
func (s *Symbol) Reference() string {
	ref, _ := s.Property("Reference")
	return ref
}

// AllPins returns the symbol's own pins followed by the pins of every unit
func (s *Symbol) AllPins() []Pin {
	pins := append([]Pin(nil), s.Pins...)
	for _, u := range s.Units {
		pins = append(pins, u.Pins...)
	}
	return pins
}

// UnitCount returns the number of gate units, ignoring the shared unit 0
func (s *Symbol) UnitCount() int {
	seen := make(map[int]bool)
	for _, u := range s.Units {
		if u.Unit > 0 {
			seen[u.Unit] = true
		}
	}
	return max(len(seen), 1)
}

// Lookup returns the symbol with the given name
func (l *Library) Lookup(name string) (*Symbol, bool) {
	for i := range l.Symbols {
		if l.Symbols[i].Name == name {
			return &l.Symbols[i], true
		}
	}
	return nil, false
}
