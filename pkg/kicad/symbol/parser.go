package symbol

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"sync"

	"github.com/OpenTraceLab/kiparse/pkg/kicad/sexp"
	"github.com/OpenTraceLab/kiparse/pkg/kicad/sexp/kicadsexp"
)

// unitSuffix matches sub-symbol names: <base>_<unit>_<style>
var unitSuffix = sync.OnceValue(func() *regexp.Regexp {
	return regexp.MustCompile(`^(.+)_([0-9]+)_([0-9]+)$`)
})

// ParseSymbolLib parses a symbol library and returns its symbols
func ParseSymbolLib(text string) ([]Symbol, error) {
	lib, err := ParseLibrary(text)
	if err != nil {
		return nil, err
	}
	return lib.Symbols, nil
}

// ParseLibrary parses a symbol library. The text is either a
// (kicad_symbol_lib ...) document or a bare sequence of (symbol ...) blocks.
//
// Unknown constructs are skipped. The parse fails only when the delimiters
// do not balance, when a pin or property has no name, or when the text
// cannot be tokenized. Unparsable numbers are reported in Warnings.
func ParseLibrary(text string) (*Library, error) {
	tokens, err := kicadsexp.Tokenize(text)
	if err != nil {
		return nil, err
	}

	p := &parser{cur: kicadsexp.NewCursor(tokens, len(text))}
	lib := &Library{}

	for !p.cur.Done() {
		tok, _ := p.cur.Peek()
		switch tok.Type {
		case kicadsexp.TokenClose:
			return nil, sexp.NewError(sexp.ErrUnbalancedDelimiters, ")", tok.Offset)
		case kicadsexp.TokenOpen:
			head, offset, _ := p.cur.EnterList()
			switch head {
			case "kicad_symbol_lib":
				err = p.parseLibraryBody(lib)
			case "symbol":
				var sym Symbol
				var ok bool
				if sym, ok, err = p.parseSymbol(offset); ok {
					lib.Symbols = append(lib.Symbols, sym)
				}
			default:
				err = p.skip()
			}
			if err != nil {
				return nil, err
			}
		default:
			// stray top-level atom
			p.cur.Next()
		}
	}

	lib.Symbols = groupUnits(lib.Symbols)
	lib.Warnings = p.warnings
	return lib, nil
}

// parser holds the token cursor and collects soft failures
type parser struct {
	cur      *kicadsexp.Cursor
	warnings []sexp.Warning
}

func (p *parser) warn(tag string, offset int, err error) {
	p.warnings = append(p.warnings, sexp.Warning{Tag: tag, Offset: offset, Err: err})
}

// skip consumes the rest of the current list, whatever it contains
func (p *parser) skip() error {
	return p.cur.SkipBlock()
}

// body walks the remainder of the current list. Each nested list is handed
// to fn right after its head has been consumed; fn must consume it through
// its closing ')'. Bare atoms found between nested lists are returned as
// flags. The closing ')' of the current list is consumed.
func (p *parser) body(fn func(head string, offset int) error) ([]string, error) {
	var flags []string
	for {
		tok, ok := p.cur.Peek()
		if !ok {
			return flags, sexp.NewError(sexp.ErrUnbalancedDelimiters, "", p.cur.Offset())
		}
		switch tok.Type {
		case kicadsexp.TokenClose:
			p.cur.Next()
			return flags, nil
		case kicadsexp.TokenOpen:
			head, offset, _ := p.cur.EnterList()
			if err := fn(head, offset); err != nil {
				return flags, err
			}
		default:
			p.cur.Next()
			flags = append(flags, tok.Value)
		}
	}
}

// values consumes the positional values of the current list and the rest of
// it, nested lists included.
func (p *parser) values() ([]string, error) {
	vals := tokenValues(p.cur.Values())
	return vals, p.skip()
}

func tokenValues(tokens []kicadsexp.Token) []string {
	vals := make([]string, len(tokens))
	for i, t := range tokens {
		vals[i] = t.Value
	}
	return vals
}

func (p *parser) parseLibraryBody(lib *Library) error {
	_, err := p.body(func(head string, offset int) error {
		switch head {
		case "version":
			vals, err := p.values()
			if err != nil {
				return err
			}
			if len(vals) > 0 {
				v, err := sexp.ParseInt(vals[0])
				if err != nil {
					p.warn(head, offset, err)
					return nil
				}
				lib.Version = v
			}
			return nil
		case "generator":
			vals, err := p.values()
			if len(vals) > 0 {
				lib.Generator = vals[0]
			}
			return err
		case "generator_version":
			vals, err := p.values()
			if len(vals) > 0 {
				lib.GeneratorVersion = vals[0]
			}
			return err
		case "symbol":
			sym, ok, err := p.parseSymbol(offset)
			if ok {
				lib.Symbols = append(lib.Symbols, sym)
			}
			return err
		}
		return p.skip()
	})
	return err
}

// parseSymbol parses a symbol definition
// Expected format: (symbol "name" (property ...) (pin ...) (symbol "name_1_1" ...) ...)
// A symbol without a name is skipped with a warning and ok=false.
func (p *parser) parseSymbol(offset int) (Symbol, bool, error) {
	sym := Symbol{
		InBOM:      true,
		OnBoard:    true,
		PinNumbers: true,
		Offset:     offset,
	}
	vals := p.cur.Values()
	if len(vals) == 0 || vals[0].Value == "" {
		p.warn("symbol", offset, sexp.NewError(sexp.ErrMissingRequiredField, "symbol name", offset))
		return Symbol{}, false, p.skip()
	}
	sym.Name = vals[0].Value

	_, err := p.body(func(head string, offset int) error {
		switch head {
		case "extends":
			vals, err := p.values()
			if len(vals) > 0 {
				sym.Extends = vals[0]
			}
			return err
		case "property":
			prop, err := p.parseProperty(offset)
			if err != nil {
				return err
			}
			sym.Properties = append(sym.Properties, prop)
			return nil
		case "pin":
			pin, err := p.parsePin(offset)
			if err != nil {
				return err
			}
			sym.Pins = append(sym.Pins, pin)
			return nil
		case "symbol":
			sub, ok, err := p.parseSymbol(offset)
			if ok {
				sym.Units = append(sym.Units, sub.asUnit())
			}
			return err
		case "polyline", "circle", "arc", "rectangle", "text", "bezier":
			g, err := p.parseGraphic(GraphicKind(head), offset)
			if err != nil {
				return err
			}
			sym.Graphics = append(sym.Graphics, g)
			return nil
		case "pin_names":
			return p.parsePinNames(&sym.PinNames, offset)
		case "pin_numbers":
			flags, err := p.body(func(head string, _ int) error {
				if head == "hide" {
					sym.PinNumbers = !p.yes()
					return nil
				}
				return p.skip()
			})
			if slices.Contains(flags, "hide") {
				sym.PinNumbers = false
			}
			return err
		case "in_bom":
			sym.InBOM = p.yes()
			return nil
		case "on_board":
			sym.OnBoard = p.yes()
			return nil
		case "power":
			sym.Power = true
			return p.skip()
		case "unit_name":
			vals, err := p.values()
			if len(vals) > 0 {
				sym.unitName = vals[0]
			}
			return err
		}
		return p.skip()
	})
	if err != nil {
		return Symbol{}, false, err
	}

	sym.Description = firstProperty(&sym, "Description", "ki_description")
	sym.Keywords = firstProperty(&sym, "ki_keywords")
	sym.Datasheet = firstProperty(&sym, "Datasheet")
	return sym, true, nil
}

// asUnit converts a nested symbol into a unit of its parent
func (s *Symbol) asUnit() Unit {
	u := Unit{Name: s.Name, UnitName: s.unitName, Pins: s.Pins, Graphics: s.Graphics}
	if m := unitSuffix().FindStringSubmatch(s.Name); m != nil {
		u.Unit, _ = strconv.Atoi(m[2])
		u.Style, _ = strconv.Atoi(m[3])
	}
	// a sub-symbol's own sub-symbols are flattened into it
	for _, nested := range s.Units {
		u.Pins = append(u.Pins, nested.Pins...)
		u.Graphics = append(u.Graphics, nested.Graphics...)
	}
	return u
}

func firstProperty(s *Symbol, keys ...string) string {
	for _, k := range keys {
		if v, ok := s.Property(k); ok {
			return v
		}
	}
	return ""
}

// yes consumes a (tag yes|no) list whose head has been read and reports
// whether it said yes. A bare (tag) counts as yes.
func (p *parser) yes() bool {
	vals, err := p.values()
	if err != nil {
		return false
	}
	return len(vals) == 0 || vals[0] == "yes"
}

// parsePinNames handles (pin_names [(offset n)] [hide]) and (hide yes)
func (p *parser) parsePinNames(pn *PinNames, offset int) error {
	flags, err := p.body(func(head string, off int) error {
		switch head {
		case "offset":
			vals, err := p.values()
			if err != nil {
				return err
			}
			if len(vals) > 0 {
				p.number(head, off, vals[0], &pn.Offset)
			}
			return nil
		case "hide":
			pn.Hidden = p.yes()
			return nil
		}
		return p.skip()
	})
	if slices.Contains(flags, "hide") {
		pn.Hidden = true
	}
	return err
}

// parseProperty parses a property definition
// Expected format: (property "Key" "Value" [(id n)] (at x y angle) (effects ...))
func (p *parser) parseProperty(offset int) (Property, error) {
	vals := tokenValues(p.cur.Values())
	if len(vals) == 0 || vals[0] == "" {
		return Property{}, sexp.NewError(sexp.ErrMissingRequiredField, "property name", offset)
	}
	prop := Property{Key: vals[0]}
	if len(vals) > 1 {
		prop.Value = vals[1]
	}

	_, err := p.body(func(head string, off int) error {
		switch head {
		case "id":
			vals, err := p.values()
			if err != nil {
				return err
			}
			if len(vals) > 0 {
				id, err := sexp.ParseInt(vals[0])
				if err != nil {
					p.warn(head, off, err)
					return nil
				}
				prop.ID = id
			}
			return nil
		case "at":
			return p.parseAt(&prop.Position, off)
		case "effects":
			hidden, err := p.parseEffects()
			prop.Hidden = prop.Hidden || hidden
			return err
		case "hide":
			prop.Hidden = p.yes()
			return nil
		}
		return p.skip()
	})
	return prop, err
}

// parseEffects consumes an (effects ...) list and reports whether it hides
// its text, either by a bare hide flag or by (hide yes).
func (p *parser) parseEffects() (bool, error) {
	hidden := false
	flags, err := p.body(func(head string, _ int) error {
		if head == "hide" {
			hidden = p.yes()
			return nil
		}
		return p.skip()
	})
	return hidden || slices.Contains(flags, "hide"), err
}

// parsePin parses a pin definition
// Expected format: (pin type shape [hide] (at x y angle) (length l) (name "n" ...) (number "1" ...) (alternate ...))
func (p *parser) parsePin(offset int) (Pin, error) {
	pin := Pin{Offset: offset}
	vals := tokenValues(p.cur.Values())
	if len(vals) > 0 {
		pin.Type = vals[0]
	}
	if len(vals) > 1 {
		pin.Shape = vals[1]
	}
	hasName := false

	flags, err := p.body(func(head string, off int) error {
		switch head {
		case "at":
			var at PositionAngle
			if err := p.parseAt(&at, off); err != nil {
				return err
			}
			pin.Position = at.Position
			pin.Orientation = OrientationFromAngle(at.Angle)
			return nil
		case "length":
			vals, err := p.values()
			if err != nil {
				return err
			}
			if len(vals) > 0 {
				p.number(head, off, vals[0], &pin.Length)
			}
			return nil
		case "name":
			name := p.cur.Values()
			if len(name) > 0 {
				pin.Name = name[0].Value
				hasName = true
			}
			return p.skip()
		case "number":
			num := p.cur.Values()
			if len(num) > 0 {
				pin.Number = num[0].Value
			}
			return p.skip()
		case "alternate":
			vals, err := p.values()
			if err != nil {
				return err
			}
			alt := Alternate{}
			for i, v := range vals {
				switch i {
				case 0:
					alt.Name = v
				case 1:
					alt.Type = v
				case 2:
					alt.Shape = v
				}
			}
			pin.Alternates = append(pin.Alternates, alt)
			return nil
		case "hide":
			pin.Hidden = p.yes()
			return nil
		}
		return p.skip()
	})
	if err != nil {
		return Pin{}, err
	}
	if !hasName {
		return Pin{}, sexp.NewError(sexp.ErrMissingRequiredField, "pin name", offset)
	}
	if len(pin.Orientation) == 0 {
		pin.Orientation = OrientationRight
	}
	if slices.Contains(vals[min(2, len(vals)):], "hide") || slices.Contains(flags, "hide") {
		pin.Hidden = true
	}
	return pin, nil
}

// parseAt decodes (at x y [angle]). Unparsable numbers become warnings and
// leave dst unchanged.
func (p *parser) parseAt(dst *PositionAngle, offset int) error {
	vals, err := p.values()
	if err != nil {
		return err
	}
	if len(vals) < 2 {
		p.warn("at", offset, fmt.Errorf("expected x and y, got %d values", len(vals)))
		return nil
	}
	var at PositionAngle
	ok := p.number("at", offset, vals[0], &at.X) && p.number("at", offset, vals[1], &at.Y)
	if len(vals) > 2 {
		ok = ok && p.number("at", offset, vals[2], &at.Angle)
	}
	if ok {
		*dst = at
	}
	return nil
}

// number parses s into dst. A bad literal is recorded as a warning against
// tag and leaves dst untouched.
func (p *parser) number(tag string, offset int, s string, dst *float64) bool {
	v, err := sexp.ParseNumber(s)
	if err != nil {
		p.warn(tag, offset, err)
		return false
	}
	*dst = v
	return true
}

// point decodes (tag x y) as used by start, mid, end, center and xy
func (p *parser) point(tag string, offset int, dst *Position) error {
	vals, err := p.values()
	if err != nil {
		return err
	}
	if len(vals) < 2 {
		p.warn(tag, offset, fmt.Errorf("expected x and y, got %d values", len(vals)))
		return nil
	}
	var pt Position
	if p.number(tag, offset, vals[0], &pt.X) && p.number(tag, offset, vals[1], &pt.Y) {
		*dst = pt
	}
	return nil
}

// parseGraphic parses a drawing primitive of the given kind
// Expected format: (rectangle (start x y) (end x y) (stroke ...) (fill ...)),
// (polyline (pts (xy x y) ...) ...), (text "t" (at x y a) (effects ...)) etc.
func (p *parser) parseGraphic(kind GraphicKind, offset int) (Graphic, error) {
	g := Graphic{Kind: kind}
	if kind == GraphicText {
		if vals := p.cur.Values(); len(vals) > 0 {
			g.Text = vals[0].Value
		}
	}

	_, err := p.body(func(head string, off int) error {
		switch head {
		case "start":
			return p.point(head, off, &g.Start)
		case "mid":
			return p.point(head, off, &g.Mid)
		case "end":
			return p.point(head, off, &g.End)
		case "center":
			return p.point(head, off, &g.Center)
		case "radius":
			vals, err := p.values()
			if err != nil {
				return err
			}
			if len(vals) > 0 {
				p.number(head, off, vals[0], &g.Radius)
			}
			return nil
		case "at":
			return p.parseAt(&g.Position, off)
		case "pts":
			pts, err := p.parsePoints()
			g.Points = pts
			return err
		case "stroke":
			return p.parseStroke(&g.Stroke)
		case "fill":
			return p.parseFill(&g.Fill)
		case "effects":
			_, err := p.parseEffects()
			return err
		}
		return p.skip()
	})
	return g, err
}

// parsePoints decodes (pts (xy x y) ...)
func (p *parser) parsePoints() ([]Position, error) {
	var pts []Position
	_, err := p.body(func(head string, off int) error {
		if head != "xy" {
			return p.skip()
		}
		var pt Position
		n := len(p.warnings)
		if err := p.point(head, off, &pt); err != nil {
			return err
		}
		if len(p.warnings) == n {
			pts = append(pts, pt)
		}
		return nil
	})
	return pts, err
}

// parseStroke decodes (stroke (width w) (type t) [(color ...)])
func (p *parser) parseStroke(s *Stroke) error {
	_, err := p.body(func(head string, off int) error {
		switch head {
		case "width":
			vals, err := p.values()
			if err != nil {
				return err
			}
			if len(vals) > 0 {
				p.number(head, off, vals[0], &s.Width)
			}
			return nil
		case "type":
			vals, err := p.values()
			if len(vals) > 0 {
				s.Type = vals[0]
			}
			return err
		}
		return p.skip()
	})
	return err
}

// parseFill decodes (fill (type t) [(color ...)])
func (p *parser) parseFill(fill *string) error {
	_, err := p.body(func(head string, _ int) error {
		if head == "type" {
			vals, err := p.values()
			if len(vals) > 0 {
				*fill = vals[0]
			}
			return err
		}
		return p.skip()
	})
	return err
}

// groupUnits folds top-level symbols named <base>_<unit>_<style> into the
// symbol named <base> when the library defines one. Everything else keeps
// its position.
func groupUnits(symbols []Symbol) []Symbol {
	index := make(map[string]int, len(symbols))
	for i, s := range symbols {
		if _, dup := index[s.Name]; !dup {
			index[s.Name] = i
		}
	}

	parentOf := make([]int, len(symbols))
	for i, s := range symbols {
		parentOf[i] = -1
		m := unitSuffix().FindStringSubmatch(s.Name)
		if m == nil {
			continue
		}
		if base, ok := index[m[1]]; ok && base != i {
			parentOf[i] = base
		}
	}

	out := make([]Symbol, 0, len(symbols))
	pos := make(map[int]int, len(symbols))
	for i, s := range symbols {
		if parentOf[i] >= 0 {
			continue
		}
		pos[i] = len(out)
		out = append(out, s)
	}
	for i, s := range symbols {
		base := parentOf[i]
		if base < 0 {
			continue
		}
		// chains such as A_1_1_2_1 resolve through the first base that stays
		for parentOf[base] >= 0 {
			base = parentOf[base]
		}
		parent := &out[pos[base]]
		parent.Units = append(parent.Units, s.asUnit())
	}
	return out
}
