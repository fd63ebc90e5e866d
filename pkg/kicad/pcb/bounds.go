package pcb

import (
	"math"

	"github.com/OpenTraceLab/kiparse/pkg/kicad/sexp"
)

// outlineTags are the board-level graphics that can describe the edge
var outlineTags = []string{"gr_line", "gr_rect", "gr_poly", "gr_arc", "gr_circle"}

// ExtractBoardOutline computes the extent of every graphic drawn on the
// outline layer (Edge.Cuts unless configured otherwise). Graphics on other
// layers are ignored. Outline is nil when no outline graphic decodes.
func (p *DetailParser) ExtractBoardOutline() OutlineExtraction {
	var res OutlineExtraction
	bbox := NewBoundingBox()
	segments := 0

	for b := range sexp.IterBlocks(p.text, sexp.Whole(p.text), outlineTags...) {
		n := newNode(p.text, b)
		if layer, _ := n.value("layer"); layer != p.outlineLayer {
			continue
		}
		box, err := graphicBounds(n)
		if err != nil {
			res.Failed++
			res.Warnings = append(res.Warnings, sexp.Warning{Tag: b.Tag, Offset: b.Start, Err: err})
			continue
		}
		bbox.ExpandBox(box)
		segments++
	}

	if segments == 0 || bbox.IsEmpty() {
		return res
	}
	res.Outline = &BoardOutline{
		MinX:     bbox.Min.X,
		MinY:     bbox.Min.Y,
		MaxX:     bbox.Max.X,
		MaxY:     bbox.Max.Y,
		Width:    bbox.Width(),
		Height:   bbox.Height(),
		Segments: segments,
	}
	return res
}

// graphicBounds returns the bounding box of one outline graphic
func graphicBounds(n node) (BoundingBox, error) {
	bbox := NewBoundingBox()

	switch n.tag {
	case "gr_line", "gr_rect":
		start, end, err := startEnd(n)
		if err != nil {
			return bbox, err
		}
		bbox.Expand(start)
		bbox.Expand(end)

	case "gr_circle":
		// (gr_circle (center x y) (end x y)); end is a point on the circle
		center, ok, err := n.point("center")
		if err != nil {
			return bbox, err
		}
		if !ok {
			return bbox, sexp.NewError(sexp.ErrMissingRequiredField, "center", n.span.Start)
		}
		end, ok, err := n.point("end")
		if err != nil {
			return bbox, err
		}
		if !ok {
			return bbox, sexp.NewError(sexp.ErrMissingRequiredField, "end", n.span.Start)
		}
		radius := math.Hypot(end.X-center.X, end.Y-center.Y)
		bbox.Expand(Position{X: center.X - radius, Y: center.Y - radius})
		bbox.Expand(Position{X: center.X + radius, Y: center.Y + radius})

	case "gr_arc":
		start, end, err := startEnd(n)
		if err != nil {
			return bbox, err
		}
		mid, ok, err := n.point("mid")
		if err != nil {
			return bbox, err
		}
		if !ok {
			// Pre-6.0 arcs carry (start center) (end start) (angle a); the
			// chord endpoints are used as an approximation.
			bbox.Expand(start)
			bbox.Expand(end)
			return bbox, nil
		}
		return arcBounds(start, mid, end), nil

	case "gr_poly":
		pts, err := n.points()
		if err != nil {
			return bbox, err
		}
		if len(pts) == 0 {
			return bbox, sexp.NewError(sexp.ErrMissingRequiredField, "pts", n.span.Start)
		}
		for _, pt := range pts {
			bbox.Expand(pt)
		}
	}
	return bbox, nil
}

func startEnd(n node) (Position, Position, error) {
	start, ok, err := n.point("start")
	if err != nil {
		return Position{}, Position{}, err
	}
	if !ok {
		return Position{}, Position{}, sexp.NewError(sexp.ErrMissingRequiredField, "start", n.span.Start)
	}
	end, ok, err := n.point("end")
	if err != nil {
		return Position{}, Position{}, err
	}
	if !ok {
		return Position{}, Position{}, sexp.NewError(sexp.ErrMissingRequiredField, "end", n.span.Start)
	}
	return start, end, nil
}

// arcBounds returns the exact bounding box of the arc through start, mid
// and end, including any axis extreme the arc sweeps past.
func arcBounds(start, mid, end Position) BoundingBox {
	bbox := NewBoundingBox()
	bbox.Expand(start)
	bbox.Expand(mid)
	bbox.Expand(end)

	center, radius, ok := circumcircle(start, mid, end)
	if !ok {
		return bbox // collinear: a straight segment
	}

	a0 := math.Atan2(start.Y-center.Y, start.X-center.X)
	am := math.Atan2(mid.Y-center.Y, mid.X-center.X)
	a1 := math.Atan2(end.Y-center.Y, end.X-center.X)
	for k := 0; k < 4; k++ {
		theta := float64(k) * math.Pi / 2
		if angleBetween(a0, am, a1, theta) {
			bbox.Expand(Position{
				X: center.X + radius*math.Cos(theta),
				Y: center.Y + radius*math.Sin(theta),
			})
		}
	}
	return bbox
}

// circumcircle returns the circle through three points
func circumcircle(a, b, c Position) (Position, float64, bool) {
	d := 2 * (a.X*(b.Y-c.Y) + b.X*(c.Y-a.Y) + c.X*(a.Y-b.Y))
	if math.Abs(d) < 1e-12 {
		return Position{}, 0, false
	}
	a2 := a.X*a.X + a.Y*a.Y
	b2 := b.X*b.X + b.Y*b.Y
	c2 := c.X*c.X + c.Y*c.Y
	center := Position{
		X: (a2*(b.Y-c.Y) + b2*(c.Y-a.Y) + c2*(a.Y-b.Y)) / d,
		Y: (a2*(c.X-b.X) + b2*(a.X-c.X) + c2*(b.X-a.X)) / d,
	}
	return center, math.Hypot(a.X-center.X, a.Y-center.Y), true
}

// ccwDelta returns the counter-clockwise angle from one direction to another
// in [0, 2π).
func ccwDelta(from, to float64) float64 {
	d := math.Mod(to-from, 2*math.Pi)
	if d < 0 {
		d += 2 * math.Pi
	}
	return d
}

// angleBetween reports whether theta lies on the sweep from a0 to a1 that
// passes through am.
func angleBetween(a0, am, a1, theta float64) bool {
	sweep := ccwDelta(a0, a1)
	if ccwDelta(a0, am) <= sweep {
		return ccwDelta(a0, theta) <= sweep
	}
	// the arc runs clockwise from a0 to a1
	return ccwDelta(a1, theta) <= 2*math.Pi-sweep
}

// BoundingBox calculates the bounding box of a footprint
// Includes all pads with their positions relative to footprint position
func (fp *Footprint) BoundingBox() BoundingBox {
	bbox := NewBoundingBox()

	for _, pad := range fp.Pads {
		absPos := fp.TransformPosition(pad.Position.Position)

		// Expand by pad size (approximate as rectangle)
		halfWidth := pad.Size.Width / 2.0
		halfHeight := pad.Size.Height / 2.0

		bbox.Expand(Position{X: absPos.X - halfWidth, Y: absPos.Y - halfHeight})
		bbox.Expand(Position{X: absPos.X + halfWidth, Y: absPos.Y + halfHeight})
	}

	// If no pads, at least include footprint position
	if len(fp.Pads) == 0 {
		bbox.Expand(fp.Position)
	}

	return bbox
}

// TransformPosition maps a footprint-relative position to board coordinates
func (fp *Footprint) TransformPosition(rel Position) Position {
	x, y := rel.X, rel.Y

	// KiCad's Y axis points down, so a positive rotation is clockwise on screen
	if fp.Rotation != 0 {
		angleRad := -fp.Rotation * math.Pi / 180.0
		cos := math.Cos(angleRad)
		sin := math.Sin(angleRad)
		x, y = x*cos-y*sin, x*sin+y*cos
	}

	return Position{X: x + fp.Position.X, Y: y + fp.Position.Y}
}

// Length returns the track length in mm; arcs are measured along the curve
func (t *Track) Length() float64 {
	chord := math.Hypot(t.End.X-t.Start.X, t.End.Y-t.Start.Y)
	if t.Mid == nil {
		return chord
	}
	center, radius, ok := circumcircle(t.Start, *t.Mid, t.End)
	if !ok {
		return chord
	}
	a0 := math.Atan2(t.Start.Y-center.Y, t.Start.X-center.X)
	am := math.Atan2(t.Mid.Y-center.Y, t.Mid.X-center.X)
	a1 := math.Atan2(t.End.Y-center.Y, t.End.X-center.X)
	sweep := ccwDelta(a0, a1)
	if ccwDelta(a0, am) > sweep {
		sweep = 2*math.Pi - sweep
	}
	return radius * sweep
}
