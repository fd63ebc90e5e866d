package pcb

import (
	"fmt"

	"github.com/OpenTraceLab/kiparse/pkg/kicad/sexp"
)

// node is one located block of the document. The helpers below decode its
// direct sub-tags with the patterns from patterns.go, so the cost of decoding
// a record is bounded by the size of its own block.
type node struct {
	text string // whole document
	span sexp.Span
	tag  string
}

func newNode(text string, b sexp.Block) node {
	return node{text: text, span: b.Span, tag: b.Tag}
}

// raw returns the text of the block itself
func (n node) raw() string {
	return n.span.Text(n.text)
}

// child finds the first direct sub-block with the given head
func (n node) child(tag string) (node, bool) {
	span, ok := sexp.FindChild(n.text, n.span, tag)
	if !ok {
		return node{}, false
	}
	return node{text: n.text, span: span, tag: tag}, true
}

// children iterates over direct sub-blocks with one of the given heads
func (n node) children(tags ...string) []node {
	var out []node
	for b := range sexp.Children(n.text, n.span, tags...) {
		out = append(out, newNode(n.text, b))
	}
	return out
}

// args returns the direct atom arguments after the head, in order,
// skipping nested lists. Quoted arguments are unquoted.
func (n node) args() []string {
	end := min(n.span.End, len(n.text))
	i := n.span.Start + 1
	head := sexp.HeadAt(n.text, n.span.Start, end)
	i = skipSpace(n.text, i, end) + len(head)

	var out []string
	for {
		i = skipSpace(n.text, i, end)
		if i >= end {
			return out
		}
		switch n.text[i] {
		case ')':
			return out
		case '(':
			next, ok := sexp.MatchClose(n.text, i, end)
			if !ok {
				return out
			}
			i = next
		default:
			loc := argPattern().FindStringIndex(n.text[i:end])
			if loc == nil {
				return out
			}
			out = append(out, atomValue(n.text[i:i+loc[1]]))
			i += loc[1]
		}
	}
}

// hasFlag reports whether a bare atom appears among the direct arguments,
// as in (footprint "X" locked ...) or (segment ... locked).
func (n node) hasFlag(flag string) bool {
	for _, a := range n.args() {
		if a == flag {
			return true
		}
	}
	return false
}

// isYes reports whether (tag yes) is a direct child, as written by KiCad 7+
func (n node) isYes(tag string) bool {
	c, ok := n.child(tag)
	if !ok {
		return false
	}
	args := c.args()
	return len(args) == 0 || args[0] == "yes"
}

// locked covers both the bare flag and the (locked yes) form
func (n node) locked() bool {
	return n.hasFlag("locked") || n.isYes("locked")
}

// value decodes the first argument of the sub-tag (e.g. (layer "F.Cu")).
// The boolean is false when the sub-tag is absent.
func (n node) value(tag string) (string, bool) {
	c, ok := n.child(tag)
	if !ok {
		return "", false
	}
	m := valuePattern().FindStringSubmatch(c.raw())
	if m == nil {
		return "", false
	}
	return atomValue(m[1]), true
}

// scalar decodes a numeric sub-tag such as (width 0.25).
// Absent gives ok=false; present but non-numeric gives an error.
func (n node) scalar(tag string) (float64, bool, error) {
	s, ok := n.value(tag)
	if !ok {
		return 0, false, nil
	}
	v, err := sexp.ParseNumber(s)
	if err != nil {
		return 0, true, fmt.Errorf("failed to parse %s: %w", tag, err)
	}
	return v, true, nil
}

// point decodes (tag x y). Absent gives ok=false.
func (n node) point(tag string) (Position, bool, error) {
	pa, ok, err := n.pointAngle(tag)
	return pa.Position, ok, err
}

// pointAngle decodes (tag x y [angle]); a missing angle is 0
func (n node) pointAngle(tag string) (PositionAngle, bool, error) {
	c, ok := n.child(tag)
	if !ok {
		return PositionAngle{}, false, nil
	}
	pa, err := decodeCoord(c.raw())
	if err != nil {
		return PositionAngle{}, true, fmt.Errorf("failed to parse %s: %w", tag, err)
	}
	return pa, true, nil
}

// decodeCoord applies coordPattern to one coordinate block
func decodeCoord(block string) (PositionAngle, error) {
	m := coordPattern().FindStringSubmatch(block)
	if m == nil {
		return PositionAngle{}, fmt.Errorf("malformed coordinate %q", preview(block))
	}
	x, err := sexp.ParseNumber(m[1])
	if err != nil {
		return PositionAngle{}, err
	}
	y, err := sexp.ParseNumber(m[2])
	if err != nil {
		return PositionAngle{}, err
	}
	pa := PositionAngle{Position: Position{X: x, Y: y}}
	if m[3] != "" {
		angle, err := sexp.ParseNumber(m[3])
		if err != nil {
			return PositionAngle{}, err
		}
		pa.Angle = angle
	}
	return pa, nil
}

// vec3 decodes (tag (xyz x y z)) as used in model offset/scale/rotate.
// The legacy (at (xyz ...)) spelling of offset is read by the caller.
func (n node) vec3(tag string) (Vec3, bool, error) {
	c, ok := n.child(tag)
	if !ok {
		return Vec3{}, false, nil
	}
	xyz, ok := c.child("xyz")
	if !ok {
		return Vec3{}, true, sexp.NewError(sexp.ErrMissingRequiredField, tag+".xyz", c.span.Start)
	}
	args := xyz.args()
	if len(args) < 3 {
		return Vec3{}, true, fmt.Errorf("failed to parse %s: expected 3 values, got %d", tag, len(args))
	}
	var v [3]float64
	for i := range v {
		f, err := sexp.ParseNumber(args[i])
		if err != nil {
			return Vec3{}, true, fmt.Errorf("failed to parse %s: %w", tag, err)
		}
		v[i] = f
	}
	return Vec3{X: v[0], Y: v[1], Z: v[2]}, true, nil
}

// layers decodes (layers "F.Cu" "F.Mask" ...)
func (n node) layers() []string {
	c, ok := n.child("layers")
	if !ok {
		return nil
	}
	return c.args()
}

// points decodes (pts (xy x y) ...). Arc entries inside pts contribute
// their start, mid and end points.
func (n node) points() ([]Position, error) {
	pts, ok := n.child("pts")
	if !ok {
		return nil, nil
	}
	var out []Position
	for _, c := range pts.children("xy", "arc") {
		if c.tag == "xy" {
			pa, err := decodeCoord(c.raw())
			if err != nil {
				return nil, fmt.Errorf("failed to parse xy: %w", err)
			}
			out = append(out, pa.Position)
			continue
		}
		for _, key := range []string{"start", "mid", "end"} {
			p, ok, err := c.point(key)
			if err != nil {
				return nil, err
			}
			if ok {
				out = append(out, p)
			}
		}
	}
	return out, nil
}

// net decodes (net N ["name"]) or the KiCad 9 (net "name") form and
// resolves the missing half through the board's net declarations.
func (n node) net(nets *NetMap) (int, string) {
	c, ok := n.child("net")
	if !ok {
		return 0, ""
	}
	args := c.args()
	if len(args) == 0 {
		return 0, ""
	}

	num, err := sexp.ParseInt(args[0])
	if err != nil {
		// Name-only form
		name := args[0]
		if net, ok := nets.GetByName(name); ok {
			return net.Number, name
		}
		return 0, name
	}

	name := ""
	if len(args) > 1 {
		name = args[1]
	} else if net, ok := nets.GetByNumber(num); ok {
		name = net.Name
	}
	return num, name
}

func skipSpace(text string, i, end int) int {
	for i < end {
		switch text[i] {
		case ' ', '\t', '\n', '\r', '\f', '\v':
			i++
		default:
			return i
		}
	}
	return i
}
