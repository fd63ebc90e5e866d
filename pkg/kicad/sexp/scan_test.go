package sexp

import (
	"errors"
	"testing"
)

func TestFindBlock(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		start  int
		tag    string
		want   string
		wantOK bool
	}{
		{
			name:   "simple",
			text:   `(kicad_pcb (layers (0 "F.Cu" signal)))`,
			tag:    "layers",
			want:   `(layers (0 "F.Cu" signal))`,
			wantOK: true,
		},
		{
			name:   "quoted paren does not count",
			text:   `(footprint "A (rev1)" (at 1 2))`,
			tag:    "footprint",
			want:   `(footprint "A (rev1)" (at 1 2))`,
			wantOK: true,
		},
		{
			name:   "escaped quote inside string",
			text:   `(x (property "Value" "a\")b") (at 3 4))`,
			tag:    "at",
			want:   `(at 3 4)`,
			wantOK: true,
		},
		{
			name:   "head inside string is ignored",
			text:   `(title "(at 9 9)") (at 1 1)`,
			tag:    "at",
			want:   `(at 1 1)`,
			wantOK: true,
		},
		{
			name:   "whitespace before head",
			text:   "(  \n at 5 6)",
			tag:    "at",
			want:   "(  \n at 5 6)",
			wantOK: true,
		},
		{
			name: "prefix of a longer head does not match",
			text: `(layers_extra 1)`,
			tag:  "layers",
		},
		{
			name: "unterminated",
			text: `(kicad_pcb (layers (0 "F.Cu" signal)`,
			tag:  "layers",
		},
		{
			name: "absent",
			text: `(kicad_pcb (version 1))`,
			tag:  "layers",
		},
		{
			name:   "start offset skips earlier block",
			text:   `(at 1 1) (at 2 2)`,
			start:  1,
			tag:    "at",
			want:   `(at 2 2)`,
			wantOK: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			span, ok := FindBlock(tt.text, tt.start, tt.tag)
			if ok != tt.wantOK {
				t.Fatalf("FindBlock() ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && span.Text(tt.text) != tt.want {
				t.Errorf("FindBlock() = %q, want %q", span.Text(tt.text), tt.want)
			}
		})
	}
}

func TestIterBlocks(t *testing.T) {
	text := `(kicad_pcb
  (segment (start 0 0) (end 1 1))
  (footprint "R" (at 0 0) (segment (start 9 9)))
  (arc (start 0 0) (mid 1 0) (end 2 2))
  (segment (start 5 5)
)`
	seq := IterBlocks(text, Whole(text), "segment", "arc")

	var got []string
	for b := range seq {
		got = append(got, b.Tag)
	}
	// footprint is not a requested tag, so the segment nested in it is found.
	// The root is left unterminated on purpose.
	want := []string{"segment", "segment", "arc", "segment"}
	if len(got) != len(want) {
		t.Fatalf("IterBlocks() tags = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("tag[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	// restartable
	count := 0
	for range seq {
		count++
	}
	if count != len(want) {
		t.Errorf("second iteration yielded %d blocks, want %d", count, len(want))
	}
}

func TestIterBlocksNonOverlapping(t *testing.T) {
	text := `(footprint "A" (footprint "B"))(footprint "C")`
	var got []string
	for b := range IterBlocks(text, Whole(text), "footprint") {
		got = append(got, b.Text(text))
	}
	if len(got) != 2 {
		t.Fatalf("got %d blocks, want 2: %q", len(got), got)
	}
	if got[0] != `(footprint "A" (footprint "B"))` {
		t.Errorf("first block = %q", got[0])
	}
}

func TestIterBlocksEarlyStop(t *testing.T) {
	text := `(a)(a)(a)`
	n := 0
	for range IterBlocks(text, Whole(text), "a") {
		n++
		break
	}
	if n != 1 {
		t.Errorf("n = %d, want 1", n)
	}
}

func TestChildren(t *testing.T) {
	text := `(footprint "R1" (at 1 2) (pad "1" smd rect (at 0 0)) (model "x.wrl")) (at 9 9)`
	root, ok := FindBlock(text, 0, "footprint")
	if !ok {
		t.Fatal("footprint not found")
	}

	var tags []string
	for b := range Children(text, root) {
		tags = append(tags, b.Tag)
	}
	want := []string{"at", "pad", "model"}
	if len(tags) != len(want) {
		t.Fatalf("Children() = %v, want %v", tags, want)
	}
	for i := range want {
		if tags[i] != want[i] {
			t.Errorf("child[%d] = %q, want %q", i, tags[i], want[i])
		}
	}

	at, ok := FindChild(text, root, "at")
	if !ok || at.Text(text) != "(at 1 2)" {
		t.Errorf("FindChild(at) = %q, %v", at.Text(text), ok)
	}
}

func TestChildrenUnterminatedParent(t *testing.T) {
	text := `(kicad_pcb (version 20221018) (layers (0 "F.Cu" signal)) (net 0 ""`
	var tags []string
	for b := range Children(text, Whole(text)) {
		tags = append(tags, b.Tag)
	}
	if len(tags) != 2 || tags[0] != "version" || tags[1] != "layers" {
		t.Errorf("Children() = %v, want [version layers]", tags)
	}
}

func TestFindTopLevel(t *testing.T) {
	text := `(kicad_pcb
  (footprint "R" (pad "1" thru_hole circle (layers "*.Cu")))
  (layers (0 "F.Cu" signal))
`
	span, ok := FindTopLevel(text, "layers")
	if !ok {
		t.Fatal("FindTopLevel() did not find layers")
	}
	if got := span.Text(text); got != `(layers (0 "F.Cu" signal))` {
		t.Errorf("FindTopLevel() = %q", got)
	}

	if _, ok := FindTopLevel(`(kicad_pcb (footprint "R" (layers "F.Cu")))`, "layers"); ok {
		t.Error("nested layers block must not be reported as top level")
	}

	if span, ok := FindTopLevel(`(layers (0 "F.Cu" signal))`, "layers"); !ok || span.Start != 0 {
		t.Errorf("root block not reported: %v %v", span, ok)
	}
}

func TestSkipString(t *testing.T) {
	text := `"a\"b" rest`
	end, ok := SkipString(text, 0)
	if !ok || text[:end] != `"a\"b"` {
		t.Errorf("SkipString() = %d, %v", end, ok)
	}
	if _, ok := SkipString(`"never closed`, 0); ok {
		t.Error("SkipString() on unterminated string returned ok")
	}
}

func TestUnquote(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{`plain`, "plain"},
		{`a\"b`, `a"b`},
		{`back\\slash`, `back\slash`},
		{`line\nbreak`, "line\nbreak"},
		{`tab\there`, "tab\there"},
		{`keep\q`, "keepq"},
		{`trailing\`, `trailing\`},
	}
	for _, tt := range tests {
		if got := Unquote(tt.in); got != tt.want {
			t.Errorf("Unquote(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{"1.5", 1.5, false},
		{"-0.25", -0.25, false},
		{"+3", 3, false},
		{".5", 0.5, false},
		{"10.", 10, false},
		{"1e-3", 0.001, false},
		{"0x10", 0, true},
		{"Inf", 0, true},
		{"NaN", 0, true},
		{"abc", 0, true},
		{"", 0, true},
		{"1_000", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseNumber(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidNumber) {
					t.Errorf("ParseNumber(%q) err = %v, want ErrInvalidNumber", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseNumber(%q) unexpected error: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseNumber(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeDegrees(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0, 0},
		{90, 90},
		{360, 0},
		{-90, 270},
		{450, 90},
		{-360, 0},
	}
	for _, tt := range tests {
		if got := NormalizeDegrees(tt.in); got != tt.want {
			t.Errorf("NormalizeDegrees(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseErrorIs(t *testing.T) {
	err := error(NewError(ErrMissingSection, "layers", -1))
	if !errors.Is(err, ErrMissingSection) {
		t.Error("errors.Is(ParseError, ErrMissingSection) = false")
	}
	if errors.Is(err, ErrEmptySection) {
		t.Error("errors.Is(ParseError, ErrEmptySection) = true")
	}
	if got := err.Error(); got != `missing section "layers"` {
		t.Errorf("Error() = %q", got)
	}
	var pe *ParseError
	if !errors.As(err, &pe) || pe.Subject != "layers" {
		t.Errorf("errors.As failed: %v", pe)
	}
}
