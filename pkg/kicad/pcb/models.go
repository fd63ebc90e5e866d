package pcb

import (
	"path"
	"strings"

	"github.com/OpenTraceLab/kiparse/pkg/kicad/sexp"
)

// ExtractModels decodes the 3D model references of every footprint.
// Each model is attributed to the footprint block that encloses it.
// Footprints without any decodable model are listed in Uncovered; a
// footprint whose identity cannot be read counts once in Failed, as does
// every model block that fails to decode.
func (p *DetailParser) ExtractModels() ModelExtraction {
	var res ModelExtraction
	for b := range sexp.IterBlocks(p.text, sexp.Whole(p.text), footprintTags...) {
		fp := newNode(p.text, b)
		ident, err := decodeIdentity(fp)
		if err != nil {
			res.fail(b.Tag, b.Start, err)
			continue
		}
		res.Footprints++

		found := 0
		for m := range sexp.IterBlocks(p.text, fp.span, "model") {
			model, err := decodeModel(newNode(p.text, m), ident)
			if err != nil {
				res.fail(m.Tag, m.Start, err)
				continue
			}
			res.Items = append(res.Items, model)
			found++
		}
		if found == 0 {
			res.Uncovered = append(res.Uncovered, ident)
		}
	}
	return res
}

// decodeModel parses one model block
// Expected format: (model "path" [hide] (offset (xyz x y z)) (scale (xyz x y z)) (rotate (xyz x y z)))
func decodeModel(n node, owner FootprintRef) (ModelRef, error) {
	args := n.args()
	if len(args) == 0 || args[0] == "" {
		return ModelRef{}, sexp.NewError(sexp.ErrMissingRequiredField, "model path", n.span.Start)
	}

	model := ModelRef{
		Reference: owner.Reference,
		Footprint: owner.Footprint,
		Path:      NormalizeModelPath(args[0]),
		Scale:     Vec3{X: 1, Y: 1, Z: 1},
	}
	model.Type = ClassifyModel(model.Path)
	for _, a := range args[1:] {
		if a == "hide" {
			model.Hidden = true
		}
	}
	if n.isYes("hide") {
		model.Hidden = true
	}

	var err error
	var ok bool
	if model.Offset, ok, err = n.vec3("offset"); err != nil {
		return ModelRef{}, err
	} else if !ok {
		// KiCad 5 wrote the offset as (at (xyz ...)) in inches
		if model.Offset, _, err = n.vec3("at"); err != nil {
			return ModelRef{}, err
		}
	}
	if scale, ok, err := n.vec3("scale"); err != nil {
		return ModelRef{}, err
	} else if ok {
		model.Scale = scale
	}
	if model.Rotate, _, err = n.vec3("rotate"); err != nil {
		return ModelRef{}, err
	}
	return model, nil
}

// NormalizeModelPath converts backslash separators to forward slashes and
// removes empty and "." segments. ".." segments are kept as written since
// the path is usually relative to an unexpanded variable such as
// ${KIPRJMOD}.
func NormalizeModelPath(p string) string {
	p = strings.ReplaceAll(p, `\`, "/")
	if p == "" {
		return p
	}
	segs := strings.Split(p, "/")
	kept := make([]string, 0, len(segs))
	for i, seg := range segs {
		if seg == "." || (seg == "" && i > 0) {
			continue
		}
		kept = append(kept, seg)
	}
	out := strings.Join(kept, "/")
	if out == "" {
		if segs[0] == "" {
			return "/"
		}
		return "."
	}
	return out
}

// ClassifyModel maps a model path to its ModelType by extension
func ClassifyModel(p string) ModelType {
	switch strings.ToLower(path.Ext(p)) {
	case ".wrl", ".vrml":
		return ModelWRL
	case ".step", ".stp":
		return ModelSTEP
	case ".iges", ".igs":
		return ModelIGES
	}
	return ModelOther
}

// ModelLibrary returns the library directory of a model path, taken from
// the segment before "3dshapes" (e.g. "Resistor_SMD" for
// ".../Resistor_SMD.3dshapes/R_0603.wrl"). Unknown layouts yield "".
func ModelLibrary(p string) string {
	dir := path.Base(path.Dir(p))
	if lib, ok := strings.CutSuffix(dir, ".3dshapes"); ok {
		return lib
	}
	return ""
}
