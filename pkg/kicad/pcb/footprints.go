package pcb

import (
	"fmt"
	"strings"

	"github.com/OpenTraceLab/kiparse/pkg/kicad/sexp"
)

// footprintTags are the heads of placed components; module is the pre-6.0 name
var footprintTags = []string{"footprint", "module"}

// ExtractFootprints decodes every placed footprint of the board.
// A footprint without an (at ...) position or a Reference designator is
// counted in Failed; pads and models that fail to decode only add warnings.
// Duplicate reference designators are kept as separate records.
func (p *DetailParser) ExtractFootprints() Extraction[Footprint] {
	var res Extraction[Footprint]
	for b := range sexp.IterBlocks(p.text, sexp.Whole(p.text), footprintTags...) {
		fp, warnings, err := p.decodeFootprint(newNode(p.text, b))
		if err != nil {
			res.fail(b.Tag, b.Start, err)
			continue
		}
		res.Items = append(res.Items, fp)
		res.Warnings = append(res.Warnings, warnings...)
	}
	return res
}

// decodeFootprint extracts a footprint (component) definition
// Expected format: (footprint "library:name" (layer "layer") (at x y [angle]) (property "Reference" "R1") ...)
func (p *DetailParser) decodeFootprint(n node) (Footprint, []sexp.Warning, error) {
	fp := Footprint{Offset: n.span.Start}

	ident, err := decodeIdentity(n)
	if err != nil {
		return Footprint{}, nil, err
	}
	fp.Reference = ident.Reference
	fp.Library, fp.Name = splitLibraryName(ident.Footprint)

	// Parse position (at x y [angle])
	at, ok, err := n.pointAngle("at")
	if err != nil {
		return Footprint{}, nil, err
	}
	if !ok {
		return Footprint{}, nil, sexp.NewError(sexp.ErrMissingRequiredField, "at", n.span.Start)
	}
	fp.Position = at.Position
	fp.Rotation = sexp.NormalizeDegrees(at.Angle)

	fp.Layer, _ = n.value("layer")
	fp.UUID = footprintUUID(n)
	fp.Locked = n.locked()
	fp.Properties = decodeProperties(n)
	if v, ok := fp.Property("Value"); ok {
		fp.Value = v
	}

	var warnings []sexp.Warning
	for _, padNode := range n.children("pad") {
		pad, err := p.decodePad(padNode)
		if err != nil {
			warnings = append(warnings, sexp.Warning{Tag: "pad", Offset: padNode.span.Start, Err: err})
			continue
		}
		fp.Pads = append(fp.Pads, pad)
	}

	for _, modelNode := range n.children("model") {
		model, err := decodeModel(modelNode, ident)
		if err != nil {
			warnings = append(warnings, sexp.Warning{Tag: "model", Offset: modelNode.span.Start, Err: err})
			continue
		}
		fp.Models = append(fp.Models, model)
	}

	return fp, warnings, nil
}

// decodeIdentity reads the library:name header and the reference designator,
// the two fields that identify a footprint. The reference comes from the
// "Reference" property (KiCad 7+) or from (fp_text reference ...) (KiCad 6).
func decodeIdentity(n node) (FootprintRef, error) {
	args := n.args()
	if len(args) == 0 || args[0] == "" {
		return FootprintRef{}, sexp.NewError(sexp.ErrMissingRequiredField, "footprint name", n.span.Start)
	}
	ref := FootprintRef{Footprint: args[0]}

	for _, prop := range n.children("property") {
		m := propertyPattern().FindStringSubmatch(prop.raw())
		if m != nil && atomValue(m[1]) == "Reference" {
			ref.Reference = atomValue(m[2])
			break
		}
	}
	if ref.Reference == "" {
		for _, text := range n.children("fp_text") {
			m := fpTextPattern().FindStringSubmatch(text.raw())
			if m != nil && m[1] == "reference" {
				ref.Reference = atomValue(m[2])
				break
			}
		}
	}
	if ref.Reference == "" {
		return FootprintRef{}, sexp.NewError(sexp.ErrMissingRequiredField, "Reference", n.span.Start)
	}
	return ref, nil
}

// decodeProperties returns the property list in source order. Legacy
// fp_text reference/value entries are folded in when no property with the
// same key exists.
func decodeProperties(n node) []Property {
	var props []Property
	seen := make(map[string]bool)
	for _, prop := range n.children("property") {
		m := propertyPattern().FindStringSubmatch(prop.raw())
		if m == nil {
			continue
		}
		key := atomValue(m[1])
		props = append(props, Property{Key: key, Value: atomValue(m[2])})
		seen[key] = true
	}

	for _, text := range n.children("fp_text") {
		m := fpTextPattern().FindStringSubmatch(text.raw())
		if m == nil {
			continue
		}
		var key string
		switch m[1] {
		case "reference":
			key = "Reference"
		case "value":
			key = "Value"
		default:
			continue
		}
		if !seen[key] {
			props = append(props, Property{Key: key, Value: atomValue(m[2])})
			seen[key] = true
		}
	}
	return props
}

// footprintUUID reads (uuid ...) or the KiCad 6 (tstamp ...) spelling
func footprintUUID(n node) string {
	if id, ok := n.value("uuid"); ok {
		return id
	}
	id, _ := n.value("tstamp")
	return id
}

// splitLibraryName splits "Resistor_SMD:R_0603_1608Metric" at the first colon
func splitLibraryName(full string) (library, name string) {
	if i := strings.IndexByte(full, ':'); i > 0 {
		return full[:i], full[i+1:]
	}
	return "", full
}

// decodePad extracts a pad definition from a footprint
// Expected format: (pad "number" type shape (at x y [angle]) (size w h) (layers ...) (net n) ...)
func (p *DetailParser) decodePad(n node) (Pad, error) {
	args := n.args()
	if len(args) < 3 {
		return Pad{}, fmt.Errorf("expected pad number, type and shape, got %d values", len(args))
	}
	pad := Pad{
		Number: args[0],
		Type:   args[1],
		Shape:  args[2],
	}

	at, ok, err := n.pointAngle("at")
	if err != nil {
		return Pad{}, err
	}
	if !ok {
		return Pad{}, sexp.NewError(sexp.ErrMissingRequiredField, "at", n.span.Start)
	}
	pad.Position = at

	if size, ok := n.child("size"); ok {
		pa, err := decodeCoord(size.raw())
		if err != nil {
			return Pad{}, fmt.Errorf("failed to parse size: %w", err)
		}
		pad.Size = Size{Width: pa.X, Height: pa.Y}
	}

	// Drill can be (drill d), (drill oval w h) or (drill d (offset x y))
	if drill, ok := n.child("drill"); ok {
		for _, a := range drill.args() {
			if a == "oval" {
				continue
			}
			d, err := sexp.ParseNumber(a)
			if err != nil {
				return Pad{}, fmt.Errorf("failed to parse drill: %w", err)
			}
			pad.Drill = d
			break
		}
	}

	pad.Layers = n.layers()
	pad.Net, pad.NetName = n.net(p.nets)
	return pad, nil
}
