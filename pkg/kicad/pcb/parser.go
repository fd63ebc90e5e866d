package pcb

import (
	"fmt"
	"os"
	"unicode/utf8"

	"github.com/OpenTraceLab/kiparse/pkg/kicad/sexp"
)

// Minimum KiCad version whose layout the extractors target (6.0 = 20211014).
// Older files are still scanned; fields they spell differently are absent.
const MinSupportedVersion = 20211014

// DetailOption configures a DetailParser
type DetailOption func(*DetailParser)

// WithOutlineLayer selects the layer whose graphics form the board outline
func WithOutlineLayer(name string) DetailOption {
	return func(p *DetailParser) {
		if name != "" {
			p.outlineLayer = name
		}
	}
}

// DetailParser extracts typed records from a board file held in memory.
// Each Extract method scans the text independently; the parser keeps no
// state between calls, so calls may run in any order or concurrently.
type DetailParser struct {
	text         string
	outlineLayer string
	nets         *NetMap
}

// NewDetailParser creates a parser over the given board text
func NewDetailParser(text string, opts ...DetailOption) *DetailParser {
	p := &DetailParser{
		text:         text,
		outlineLayer: DefaultOutlineLayer,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.nets = NewNetMap(parseNets(text))
	return p
}

// ReadFile loads a board or library file and checks that it is UTF-8.
// Everything past this point works on the in-memory text.
func ReadFile(filename string) (string, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%s: input is not valid UTF-8", filename)
	}
	return string(data), nil
}

// Nets returns the net declarations found at the top level of the board
func (p *DetailParser) Nets() *NetMap {
	return p.nets
}

// OutlineLayer returns the layer used by ExtractBoardOutline
func (p *DetailParser) OutlineLayer() string {
	return p.outlineLayer
}

// parseNets extracts net definitions from the root node
// Expected format: (net 0 "") (net 1 "GND") (net 2 "+5V") ...
// Each net is a direct child of the board root; pad and track (net N)
// references are deeper and never mistaken for declarations.
func parseNets(text string) []Net {
	span, ok := rootSpan(text)
	if !ok {
		return nil
	}
	var nets []Net
	for b := range sexp.Children(text, span, "net") {
		args := newNode(text, b).args()
		if len(args) == 0 {
			continue
		}
		num, err := sexp.ParseInt(args[0])
		if err != nil {
			continue
		}
		net := Net{Number: num}
		if len(args) > 1 {
			net.Name = args[1]
		}
		nets = append(nets, net)
	}
	return nets
}

// rootSpan locates the first list of the document, which may be unterminated
func rootSpan(text string) (sexp.Span, bool) {
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '(':
			return sexp.Span{Start: i, End: len(text)}, true
		case '"':
			return sexp.Span{}, false
		}
	}
	return sexp.Span{}, false
}

// Header carries the version stamp of a board file
type Header struct {
	Version   int    `json:"version"`
	Generator string `json:"generator"`
}

// ParseHeader extracts version and generator information from the root node
// Expected format: (kicad_pcb (version 20221018) (generator pcbnew) ...)
// Absent fields are left zero; "unknown" is used for a missing generator.
func ParseHeader(text string) Header {
	h := Header{Generator: "unknown"}
	span, ok := rootSpan(text)
	if !ok {
		return h
	}
	root := node{text: text, span: span}

	if v, ok := root.value("version"); ok {
		if ver, err := sexp.ParseInt(v); err == nil {
			h.Version = ver
		}
	}

	// Format: (host pcbnew "(6.0.0)") in older files, (generator "pcbnew") since
	if gen, ok := root.value("generator"); ok {
		h.Generator = gen
	} else if host, ok := root.value("host"); ok {
		h.Generator = host
	}
	return h
}

// ExtractTracks decodes every (segment ...) and (arc ...) block.
// Expected format: (segment (start x y) (end x y) (width w) (layer "F.Cu") (net n))
func (p *DetailParser) ExtractTracks() Extraction[Track] {
	var res Extraction[Track]
	// pts is matched only so that polygon arcs inside it are never visited
	for b := range sexp.IterBlocks(p.text, sexp.Whole(p.text), "segment", "arc", "pts") {
		if b.Tag == "pts" {
			continue
		}
		track, err := p.decodeTrack(newNode(p.text, b))
		if err != nil {
			res.fail(b.Tag, b.Start, err)
			continue
		}
		res.Items = append(res.Items, track)
	}
	return res
}

func (p *DetailParser) decodeTrack(n node) (Track, error) {
	track := Track{Kind: n.tag, Offset: n.span.Start}

	start, ok, err := n.point("start")
	if err != nil {
		return Track{}, err
	}
	if !ok {
		return Track{}, sexp.NewError(sexp.ErrMissingRequiredField, "start", n.span.Start)
	}
	track.Start = start

	end, ok, err := n.point("end")
	if err != nil {
		return Track{}, err
	}
	if !ok {
		return Track{}, sexp.NewError(sexp.ErrMissingRequiredField, "end", n.span.Start)
	}
	track.End = end

	if n.tag == "arc" {
		mid, ok, err := n.point("mid")
		if err != nil {
			return Track{}, err
		}
		if !ok {
			return Track{}, sexp.NewError(sexp.ErrMissingRequiredField, "mid", n.span.Start)
		}
		track.Mid = &mid
	}

	width, ok, err := n.scalar("width")
	if err != nil {
		return Track{}, err
	}
	if !ok {
		return Track{}, sexp.NewError(sexp.ErrMissingRequiredField, "width", n.span.Start)
	}
	track.Width = width

	track.Layer, _ = n.value("layer")
	track.Net, track.NetName = n.net(p.nets)
	track.Locked = n.locked()
	return track, nil
}

// ExtractVias decodes every (via ...) block.
// Expected format: (via [blind|micro] (at x y) (size d) (drill d) (layers "F.Cu" "B.Cu") (net n))
func (p *DetailParser) ExtractVias() Extraction[Via] {
	var res Extraction[Via]
	for b := range sexp.IterBlocks(p.text, sexp.Whole(p.text), "via") {
		via, err := p.decodeVia(newNode(p.text, b))
		if err != nil {
			res.fail(b.Tag, b.Start, err)
			continue
		}
		res.Items = append(res.Items, via)
	}
	return res
}

func (p *DetailParser) decodeVia(n node) (Via, error) {
	via := Via{Offset: n.span.Start}

	pos, ok, err := n.point("at")
	if err != nil {
		return Via{}, err
	}
	if !ok {
		return Via{}, sexp.NewError(sexp.ErrMissingRequiredField, "at", n.span.Start)
	}
	via.Position = pos

	size, ok, err := n.scalar("size")
	if err != nil {
		return Via{}, err
	}
	if !ok {
		return Via{}, sexp.NewError(sexp.ErrMissingRequiredField, "size", n.span.Start)
	}
	via.Size = size

	// Drill is optional; the board default applies when it is absent
	drill, _, err := n.scalar("drill")
	if err != nil {
		return Via{}, err
	}
	via.Drill = drill

	via.Layers = n.layers()
	for _, flag := range []string{"blind", "micro"} {
		if n.hasFlag(flag) {
			via.Type = flag
		}
	}
	via.Net, via.NetName = n.net(p.nets)
	via.Locked = n.locked()
	return via, nil
}

// ExtractZones decodes every (zone ...) block's net, layers and outline.
// Filled polygons are not decoded.
func (p *DetailParser) ExtractZones() Extraction[Zone] {
	var res Extraction[Zone]
	for b := range sexp.IterBlocks(p.text, sexp.Whole(p.text), "zone") {
		zone, err := p.decodeZone(newNode(p.text, b))
		if err != nil {
			res.fail(b.Tag, b.Start, err)
			continue
		}
		res.Items = append(res.Items, zone)
	}
	return res
}

func (p *DetailParser) decodeZone(n node) (Zone, error) {
	zone := Zone{Offset: n.span.Start}

	zone.Net, zone.NetName = n.net(p.nets)
	// KiCad 6 writes the name separately as (net_name "GND")
	if name, ok := n.value("net_name"); ok && zone.NetName == "" {
		zone.NetName = name
	}
	zone.Name, _ = n.value("name")

	// Multi-layer zones use (layers ...), single-layer ones (layer ...)
	zone.Layers = n.layers()
	if len(zone.Layers) == 0 {
		if layer, ok := n.value("layer"); ok {
			zone.Layers = []string{layer}
		}
	}

	if prio, ok := n.value("priority"); ok {
		v, err := sexp.ParseInt(prio)
		if err != nil {
			return Zone{}, fmt.Errorf("failed to parse priority: %w", err)
		}
		zone.Priority = v
	}

	poly, ok := n.child("polygon")
	if !ok {
		return Zone{}, sexp.NewError(sexp.ErrMissingRequiredField, "polygon", n.span.Start)
	}
	outline, err := poly.points()
	if err != nil {
		return Zone{}, err
	}
	zone.Outline = outline
	if len(zone.Outline) == 0 {
		return Zone{}, sexp.NewError(sexp.ErrMissingRequiredField, "pts", poly.span.Start)
	}
	return zone, nil
}
