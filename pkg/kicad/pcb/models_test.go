package pcb

import (
	"errors"
	"testing"

	"github.com/OpenTraceLab/kiparse/pkg/kicad/sexp"
)

func TestExtractModels(t *testing.T) {
	res := NewDetailParser(testBoard).ExtractModels()

	if res.Failed != 0 {
		t.Fatalf("Failed = %d: %v", res.Failed, res.Warnings)
	}
	if res.Footprints != 2 {
		t.Errorf("Footprints = %d, want 2", res.Footprints)
	}
	if len(res.Items) != 1 {
		t.Fatalf("got %d models, want 1", len(res.Items))
	}

	m := res.Items[0]
	if m.Reference != "R1" || m.Footprint != "Resistor_SMD:R_0603_1608Metric" {
		t.Errorf("owner = %q %q", m.Reference, m.Footprint)
	}
	if m.Path != "${KICAD6_3DMODEL_DIR}/Resistor_SMD.3dshapes/R_0603_1608Metric.wrl" {
		t.Errorf("Path = %q", m.Path)
	}
	if m.Type != ModelWRL || m.Scale != (Vec3{X: 1, Y: 1, Z: 1}) || m.Hidden {
		t.Errorf("model = %+v", m)
	}
	if got := ModelLibrary(m.Path); got != "Resistor_SMD" {
		t.Errorf("ModelLibrary() = %q", got)
	}

	if len(res.Uncovered) != 1 || res.Uncovered[0].Reference != "Q1" {
		t.Errorf("Uncovered = %+v", res.Uncovered)
	}
	if res.Coverage() != 50 {
		t.Errorf("Coverage() = %v, want 50", res.Coverage())
	}
}

func TestDecodeModelVariants(t *testing.T) {
	input := `(kicad_pcb
  (footprint "Connector:USB" (at 0 0) (property "Reference" "J1")
    (model "C:\\libs\\conn\\.\\USB_C.STEP" hide
      (offset (xyz 0.5 -1 0)) (rotate (xyz 0 0 180)))
    (model "${KIPRJMOD}/3d/usb.wrl" (hide yes) (scale (xyz 2 2 2)))
    (model "legacy.igs" (at (xyz 0.1 0.2 0)))
    (model "broken.step" (offset (xyz 1 x 3))))
)`
	res := NewDetailParser(input).ExtractModels()

	if len(res.Items) != 3 {
		t.Fatalf("got %d models, want 3: %v", len(res.Items), res.Warnings)
	}
	if res.Failed != 1 || len(res.Warnings) != 1 || !errors.Is(res.Warnings[0].Err, sexp.ErrInvalidNumber) {
		t.Errorf("Failed = %d, warnings = %v", res.Failed, res.Warnings)
	}

	step := res.Items[0]
	if step.Path != "C:/libs/conn/USB_C.STEP" || step.Type != ModelSTEP || !step.Hidden {
		t.Errorf("step model = %+v", step)
	}
	if step.Offset != (Vec3{X: 0.5, Y: -1}) || step.Rotate.Z != 180 {
		t.Errorf("step transform = %+v %+v", step.Offset, step.Rotate)
	}

	wrl := res.Items[1]
	if !wrl.Hidden || wrl.Scale != (Vec3{X: 2, Y: 2, Z: 2}) {
		t.Errorf("wrl model = %+v", wrl)
	}

	igs := res.Items[2]
	if igs.Type != ModelIGES || igs.Offset != (Vec3{X: 0.1, Y: 0.2}) {
		t.Errorf("legacy model = %+v", igs)
	}

	if len(res.Uncovered) != 0 || res.Coverage() != 100 {
		t.Errorf("coverage = %v, uncovered = %v", res.Coverage(), res.Uncovered)
	}
}

func TestClassifyModel(t *testing.T) {
	tests := map[string]ModelType{
		"a/b/c.wrl":  ModelWRL,
		"a/b/c.VRML": ModelWRL,
		"c.step":     ModelSTEP,
		"c.stp":      ModelSTEP,
		"c.iges":     ModelIGES,
		"c.IGS":      ModelIGES,
		"c.obj":      ModelOther,
		"noext":      ModelOther,
	}
	for p, want := range tests {
		if got := ClassifyModel(p); got != want {
			t.Errorf("ClassifyModel(%q) = %q, want %q", p, got, want)
		}
	}
}

func TestNormalizeModelPath(t *testing.T) {
	tests := []struct{ in, want string }{
		{`${KICAD8_3DMODEL_DIR}\Package_SO.3dshapes\SOIC-8.step`, "${KICAD8_3DMODEL_DIR}/Package_SO.3dshapes/SOIC-8.step"},
		{"models//./a.wrl", "models/a.wrl"},
		{"${KIPRJMOD}/../3d/conn.step", "${KIPRJMOD}/../3d/conn.step"},
		{`${KIPRJMOD}\..\lib\x.wrl`, "${KIPRJMOD}/../lib/x.wrl"},
		{"./a/../b.stp", "a/../b.stp"},
		{"/opt/kicad//3d/x.step", "/opt/kicad/3d/x.step"},
		{".", "."},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeModelPath(tt.in); got != tt.want {
			t.Errorf("NormalizeModelPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
	if got := ModelLibrary("flat.wrl"); got != "" {
		t.Errorf("ModelLibrary(flat) = %q", got)
	}
}
