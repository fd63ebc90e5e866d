package pcb

import (
	"slices"

	"github.com/OpenTraceLab/kiparse/pkg/kicad/sexp"
)

// Shared types (aliases to sexp package)
type Position = sexp.Position
type PositionAngle = sexp.PositionAngle
type Size = sexp.Size
type Vec3 = sexp.Vec3
type BoundingBox = sexp.BoundingBox

// Re-export BoundingBox constructor
var NewBoundingBox = sexp.NewBoundingBox

// DefaultOutlineLayer is the layer whose graphics describe the board edge
const DefaultOutlineLayer = "Edge.Cuts"

// Net represents an electrical net
type Net struct {
	Number int    `json:"number"` // Net number (ordinal)
	Name   string `json:"name"`   // Net name
}

// NetMap provides efficient lookup of nets by number or name
type NetMap struct {
	byNumber map[int]Net
	byName   map[string]Net
}

// NewNetMap creates a NetMap from a slice of nets
func NewNetMap(nets []Net) *NetMap {
	nm := &NetMap{
		byNumber: make(map[int]Net, len(nets)),
		byName:   make(map[string]Net, len(nets)),
	}

	for _, net := range nets {
		nm.byNumber[net.Number] = net
		// Only index non-empty names
		if net.Name != "" {
			nm.byName[net.Name] = net
		}
	}

	return nm
}

// GetByName retrieves a net by its name (e.g., "GND", "+5V")
func (nm *NetMap) GetByName(name string) (Net, bool) {
	net, ok := nm.byName[name]
	return net, ok
}

// GetByNumber retrieves a net by its number
func (nm *NetMap) GetByNumber(num int) (Net, bool) {
	net, ok := nm.byNumber[num]
	return net, ok
}

// Len returns the number of declared nets
func (nm *NetMap) Len() int {
	return len(nm.byNumber)
}

// Names returns all non-empty net names in sorted order
func (nm *NetMap) Names() []string {
	names := make([]string, 0, len(nm.byName))
	for name := range nm.byName {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// IsUnconnected checks if a net number represents an unconnected net
// In KiCad, net 0 is reserved for unconnected pins
func (nm *NetMap) IsUnconnected(num int) bool {
	return num == 0
}

// Extraction holds the records decoded for one element kind together with
// the number of blocks that were located but could not be decoded.
type Extraction[T any] struct {
	Items    []T            `json:"items"`
	Failed   int            `json:"failed"`
	Warnings []sexp.Warning `json:"warnings,omitempty"`
}

// fail records one block that was skipped
func (e *Extraction[T]) fail(tag string, offset int, err error) {
	e.Failed++
	e.Warnings = append(e.Warnings, sexp.Warning{Tag: tag, Offset: offset, Err: err})
}

// Property is a footprint property in source order
type Property struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Footprint represents a placed component
type Footprint struct {
	Reference  string     `json:"reference"`         // Reference designator (e.g., "R1")
	Library    string     `json:"library,omitempty"` // Library name
	Name       string     `json:"name"`              // Footprint name
	Value      string     `json:"value,omitempty"`   // Component value
	Position   Position   `json:"position"`          // Placement in mm
	Rotation   float64    `json:"rotation"`          // Degrees in [0, 360)
	Layer      string     `json:"layer,omitempty"`   // Layer (F.Cu or B.Cu typically)
	Properties []Property `json:"properties,omitempty"`
	Pads       []Pad      `json:"pads,omitempty"`
	Models     []ModelRef `json:"models,omitempty"`
	Locked     bool       `json:"locked,omitempty"`
	UUID       string     `json:"uuid,omitempty"`
	Offset     int        `json:"-"` // Byte offset of the block in the source
}

// FullName returns the "library:name" identifier as written in the file
func (fp *Footprint) FullName() string {
	if fp.Library == "" {
		return fp.Name
	}
	return fp.Library + ":" + fp.Name
}

// Property returns the first property with the given key
func (fp *Footprint) Property(key string) (string, bool) {
	for _, p := range fp.Properties {
		if p.Key == key {
			return p.Value, true
		}
	}
	return "", false
}

// PropertyMap returns the properties keyed by name. When a key repeats the
// first occurrence wins, matching Property.
func (fp *Footprint) PropertyMap() map[string]string {
	m := make(map[string]string, len(fp.Properties))
	for _, p := range fp.Properties {
		if _, ok := m[p.Key]; !ok {
			m[p.Key] = p.Value
		}
	}
	return m
}

// IsBackSide reports whether the footprint is placed on the bottom side
func (fp *Footprint) IsBackSide() bool {
	return len(fp.Layer) >= 2 && fp.Layer[:2] == "B."
}

// Pad represents a footprint pad
type Pad struct {
	Number   string        `json:"number"`          // Pad number/name
	Type     string        `json:"type"`            // Pad type (thru_hole, smd, etc.)
	Shape    string        `json:"shape"`           // Pad shape (circle, rect, oval, etc.)
	Position PositionAngle `json:"position"`        // Relative to the footprint
	Size     Size          `json:"size"`            // Pad size
	Drill    float64       `json:"drill,omitempty"` // Drill diameter (0 for SMD)
	Layers   []string      `json:"layers,omitempty"`
	Net      int           `json:"net,omitempty"`
	NetName  string        `json:"net_name,omitempty"`
}

// Track represents a copper track segment or arc
type Track struct {
	Kind    string    `json:"kind"` // "segment" or "arc"
	Start   Position  `json:"start"`
	Mid     *Position `json:"mid,omitempty"` // Arcs only
	End     Position  `json:"end"`
	Width   float64   `json:"width"` // Track width in mm
	Layer   string    `json:"layer"`
	Net     int       `json:"net,omitempty"`
	NetName string    `json:"net_name,omitempty"`
	Locked  bool      `json:"locked,omitempty"`
	Offset  int       `json:"-"`
}

// Via represents a via
type Via struct {
	Position Position `json:"position"`
	Size     float64  `json:"size"`  // Via diameter
	Drill    float64  `json:"drill"` // Drill diameter
	Layers   []string `json:"layers"`
	Type     string   `json:"type,omitempty"` // "blind", "micro" or empty for through vias
	Net      int      `json:"net,omitempty"`
	NetName  string   `json:"net_name,omitempty"`
	Locked   bool     `json:"locked,omitempty"`
	Offset   int      `json:"-"`
}

// Zone represents a copper zone outline
type Zone struct {
	Net      int        `json:"net,omitempty"`
	NetName  string     `json:"net_name,omitempty"`
	Name     string     `json:"name,omitempty"`
	Layers   []string   `json:"layers"`
	Priority int        `json:"priority,omitempty"`
	Outline  []Position `json:"outline"` // Zone outline polygon
	Offset   int        `json:"-"`
}

// BoardOutline is the extent of the graphics drawn on the outline layer
type BoardOutline struct {
	MinX     float64 `json:"min_x"`
	MinY     float64 `json:"min_y"`
	MaxX     float64 `json:"max_x"`
	MaxY     float64 `json:"max_y"`
	Width    float64 `json:"width_mm"`
	Height   float64 `json:"height_mm"`
	Segments int     `json:"segments"` // Number of outline graphics contributing
}

// Area returns the bounding rectangle area in mm²
func (o *BoardOutline) Area() float64 {
	return o.Width * o.Height
}

// OutlineExtraction is the result of ExtractBoardOutline. Outline is nil
// when no graphic on the outline layer could be decoded.
type OutlineExtraction struct {
	Outline  *BoardOutline  `json:"outline"`
	Failed   int            `json:"failed"`
	Warnings []sexp.Warning `json:"warnings,omitempty"`
}

// ModelType classifies a 3D model by file extension
type ModelType string

const (
	ModelWRL   ModelType = "wrl"
	ModelSTEP  ModelType = "step"
	ModelIGES  ModelType = "iges"
	ModelOther ModelType = "other"
)

// ModelRef is a 3D model attached to a footprint
type ModelRef struct {
	Reference string    `json:"reference"` // Enclosing footprint reference
	Footprint string    `json:"footprint"` // Enclosing footprint library:name
	Path      string    `json:"path"`      // Forward-slash separated
	Type      ModelType `json:"type"`
	Offset    Vec3      `json:"offset"`
	Scale     Vec3      `json:"scale"`
	Rotate    Vec3      `json:"rotate"`
	Hidden    bool      `json:"hidden,omitempty"`
}

// FootprintRef identifies a footprint without carrying its full record
type FootprintRef struct {
	Reference string `json:"reference"`
	Footprint string `json:"footprint"`
}

// ModelExtraction is the result of ExtractModels
type ModelExtraction struct {
	Extraction[ModelRef]
	Footprints int            `json:"footprints"` // Footprints examined
	Uncovered  []FootprintRef `json:"uncovered"`  // Footprints with no model
}

// Coverage returns the percentage of footprints that carry at least one model
func (m *ModelExtraction) Coverage() float64 {
	if m.Footprints == 0 {
		return 0
	}
	covered := m.Footprints - len(m.Uncovered)
	return float64(covered) / float64(m.Footprints) * 100
}
