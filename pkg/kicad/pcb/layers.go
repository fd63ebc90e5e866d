package pcb

import (
	"encoding/json"
	"fmt"
	"iter"
	"slices"

	"github.com/OpenTraceLab/kiparse/pkg/kicad/sexp"
)

// LayerType classifies a layer. The set is closed: any type token the
// parser does not recognise maps to LayerUnknown.
type LayerType string

const (
	LayerSignal  LayerType = "signal"
	LayerPower   LayerType = "power"
	LayerMixed   LayerType = "mixed"
	LayerUser    LayerType = "user"
	LayerUnknown LayerType = "unknown"
)

// ClassifyLayerType maps a type token from the layers block onto LayerType
func ClassifyLayerType(token string) LayerType {
	switch LayerType(token) {
	case LayerSignal, LayerPower, LayerMixed, LayerUser:
		return LayerType(token)
	}
	return LayerUnknown
}

// IsCopper reports whether the layer type carries copper
func (t LayerType) IsCopper() bool {
	return t == LayerSignal || t == LayerPower || t == LayerMixed
}

// Layer represents a PCB layer
type Layer struct {
	ID       int       `json:"id"`                  // Layer number (ordinal)
	Name     string    `json:"name"`                // Canonical name (e.g., "F.Cu", "B.SilkS")
	Type     LayerType `json:"layer_type"`          // Classified layer type
	UserName string    `json:"user_name,omitempty"` // Display name set by the user
}

// DisplayName returns the user name when set, else the canonical name
func (l Layer) DisplayName() string {
	if l.UserName != "" {
		return l.UserName
	}
	return l.Name
}

// LayerTable is the ordered layer stack of a board.
// Order is the order of the source file, which is the physical stack order.
type LayerTable struct {
	layers   []Layer
	byID     map[int]int
	byName   map[string]int
	Warnings []sexp.Warning // Entries that were skipped
}

func newLayerTable() *LayerTable {
	return &LayerTable{
		byID:   make(map[int]int),
		byName: make(map[string]int),
	}
}

// add appends a layer; duplicate ids are rejected
func (t *LayerTable) add(l Layer) bool {
	if _, dup := t.byID[l.ID]; dup {
		return false
	}
	t.byID[l.ID] = len(t.layers)
	if _, dup := t.byName[l.Name]; !dup {
		t.byName[l.Name] = len(t.layers)
	}
	t.layers = append(t.layers, l)
	return true
}

// Len returns the number of layers
func (t *LayerTable) Len() int {
	return len(t.layers)
}

// Get retrieves a layer by its id
func (t *LayerTable) Get(id int) (Layer, bool) {
	i, ok := t.byID[id]
	if !ok {
		return Layer{}, false
	}
	return t.layers[i], true
}

// ByName retrieves a layer by its canonical name (e.g., "F.Cu")
func (t *LayerTable) ByName(name string) (Layer, bool) {
	i, ok := t.byName[name]
	if !ok {
		return Layer{}, false
	}
	return t.layers[i], true
}

// Layers returns a copy of the layers in stack order
func (t *LayerTable) Layers() []Layer {
	return slices.Clone(t.layers)
}

// CopperLayers returns the copper layers in stack order
func (t *LayerTable) CopperLayers() []Layer {
	var out []Layer
	for _, l := range t.layers {
		if l.Type.IsCopper() {
			out = append(out, l)
		}
	}
	return out
}

// All iterates over the layers in stack order, yielding position and layer
func (t *LayerTable) All() iter.Seq2[int, Layer] {
	return func(yield func(int, Layer) bool) {
		for i, l := range t.layers {
			if !yield(i, l) {
				return
			}
		}
	}
}

// MarshalJSON renders the table as an ordered array
func (t *LayerTable) MarshalJSON() ([]byte, error) {
	if t.layers == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(t.layers)
}

// ParseLayersOnly decodes the top-level (layers ...) block of a board file
// without touching the rest of the document.
// Expected format: (layers (0 "F.Cu" signal) (31 "B.Cu" signal "Bottom") ...)
//
// A missing block fails with sexp.ErrMissingSection. Entries that do not
// decode, and entries repeating an earlier id, are skipped and recorded in
// Warnings. If nothing decodes the call fails with sexp.ErrEmptySection.
func ParseLayersOnly(text string) (*LayerTable, error) {
	span, found := sexp.FindTopLevel(text, "layers")
	if !found {
		return nil, sexp.NewError(sexp.ErrMissingSection, "layers", -1)
	}

	table := newLayerTable()
	for entry := range sexp.Children(text, span) {
		layer, err := decodeLayer(entry.Text(text))
		if err != nil {
			table.Warnings = append(table.Warnings, sexp.Warning{Tag: "layers", Offset: entry.Start, Err: err})
			continue
		}
		if !table.add(layer) {
			table.Warnings = append(table.Warnings, sexp.Warning{
				Tag:    "layers",
				Offset: entry.Start,
				Err:    fmt.Errorf("duplicate layer id %d (%s)", layer.ID, layer.Name),
			})
		}
	}

	if table.Len() == 0 {
		return nil, sexp.NewError(sexp.ErrEmptySection, "layers", span.Start)
	}
	return table, nil
}

// decodeLayer parses one (id "name" type ["user name"]) entry
func decodeLayer(entry string) (Layer, error) {
	m := layerEntryPattern().FindStringSubmatch(entry)
	if m == nil {
		return Layer{}, fmt.Errorf("malformed layer entry %q", preview(entry))
	}

	id, err := sexp.ParseInt(m[1])
	if err != nil {
		return Layer{}, fmt.Errorf("failed to parse layer id: %w", err)
	}

	layer := Layer{
		ID:   id,
		Name: atomValue(m[2]),
		Type: ClassifyLayerType(atomValue(m[3])),
	}
	if m[4] != "" {
		layer.UserName = atomValue(m[4])
	}
	if layer.Name == "" {
		return Layer{}, sexp.NewError(sexp.ErrMissingRequiredField, "name", -1)
	}
	return layer, nil
}
