package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OpenTraceLab/kiparse/internal/cache"
	"github.com/OpenTraceLab/kiparse/pkg/kicad/sexp"
)

const boardFixture = `(kicad_pcb (version 20221018) (generator pcbnew)
  (layers
    (0 "F.Cu" signal)
    (31 "B.Cu" signal)
    (44 "Edge.Cuts" user)
    (49 "F.Fab" user "Fabrication")
  )
  (net 0 "")
  (net 1 "GND")
  (net 2 "+5V")
  (footprint "Resistor_SMD:R_0603" (layer "F.Cu") (at 10 20 90)
    (property "Reference" "R10") (property "Value" "1k")
    (pad "1" smd rect (at 0 0) (size 1 1) (layers "F.Cu") (net 1 "GND")))
  (footprint "Resistor_SMD:R_0603" (layer "F.Cu") (at 12 20)
    (property "Reference" "R2") (property "Value" "2k2"))
  (footprint "Resistor_SMD:R_0603" (layer "F.Cu") (at 14 20)
    (property "Reference" "R1") (property "Value" "10k")
    (pad "1" smd rect (at 0 0) (size 1 1) (layers "F.Cu") (net 2 "+5V"))
    (model "${KICAD6_3DMODEL_DIR}/Resistor_SMD.3dshapes/R_0603.wrl"))
  (footprint "Capacitor_SMD:C_0603" (layer "B.Cu") (at 16 20 180)
    (property "Reference" "C1") (property "Value" "100n"))
  (gr_line (start 0 0) (end 40 0) (layer "Edge.Cuts") (width 0.1))
  (gr_line (start 40 0) (end 40 30) (layer "Edge.Cuts") (width 0.1))
  (gr_line (start 40 30) (end 0 30) (layer "Edge.Cuts") (width 0.1))
  (gr_line (start 0 30) (end 0 0) (layer "Edge.Cuts") (width 0.1))
  (segment (start 10 20) (end 14 20) (width 0.25) (layer "F.Cu") (net 1))
  (via (at 14 20) (size 0.8) (drill 0.4) (layers "F.Cu" "B.Cu") (net 1))
)
`

const libraryFixture = `(kicad_symbol_lib (version 20231120) (generator "kicad_symbol_editor")
  (symbol "R" (in_bom yes) (on_board yes)
    (property "Reference" "R" (at 0 0 0))
    (property "Description" "Resistor" (at 0 0 0))
    (symbol "R_1_1"
      (pin passive line (at 0 3.81 270) (length 1.27) (name "~") (number "1"))
      (pin passive line (at 0 -3.81 90) (length 1.27) (name "~") (number "2"))))
  (symbol "LM358" (property "Reference" "U" (at 0 0 0))
    (symbol "LM358_1_1" (pin output line (at 7.62 0 180) (length 2.54) (name "OUT") (number "1")))
    (symbol "LM358_2_1" (pin output line (at 7.62 0 180) (length 2.54) (name "OUT") (number "7"))))
)
`

// writeFixture writes content to a fresh temp dir and returns its path
func writeFixture(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// runKpx executes the root command with fresh flag state
func runKpx(ctx context.Context, args ...string) (stdout, stderr string, err error) {
	// Reset flags to prevent accumulation between tests
	verbose = false
	jsonOutput = false
	configPath = ""
	cachePath = ""
	watchMode = false

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)

	err = rootCmd.ExecuteContext(ctx)
	return out.String(), errOut.String(), err
}

func TestReportsE2E(t *testing.T) {
	board := writeFixture(t, "demo.kicad_pcb", boardFixture)
	library := writeFixture(t, "demo.kicad_sym", libraryFixture)

	tests := []struct {
		name        string
		args        []string
		wantContain []string
	}{
		{
			name: "layers",
			args: []string{"layers", board},
			wantContain: []string{
				"KiCad PCB Layer Information",
				"Total layers: 4",
				"Edge.Cuts",
				"Fabrication",
			},
		},
		{
			name: "details",
			args: []string{"details", board},
			wantContain: []string{
				"KiCad PCB Analysis",
				"Version: 20221018 (pcbnew)",
				"Signal layers: 2",
				"Complexity: Simple",
				"Width:  40.00 mm (1575 mils)",
				"Height: 30.00 mm (1181 mils)",
				"Area:   1200.00 mm² (1.86 sq in)",
				"Components: 4",
				"Vias: 1",
				"Nets: 3",
			},
		},
		{
			name: "3d",
			args: []string{"3d", board},
			wantContain: []string{
				"Total components: 4",
				"With 3D models: 1 (25.0%)",
				"wrl: 1",
				"Resistor_SMD: 1",
				"Missing 3D models:",
			},
		},
		{
			name: "symbols",
			args: []string{"symbols", library},
			wantContain: []string{
				"Total symbols: 2",
				"Resistor",
				"LM358",
			},
		},
		{
			name:        "nets",
			args:        []string{"nets", board},
			wantContain: []string{"Board: 2 nets", "GND", "+5V"},
		},
		{
			name: "net details",
			args: []string{"nets", board, "GND"},
			wantContain: []string{
				"Net: GND (number 1)",
				"Pads (1):",
				"Tracks (1):",
				"Vias (1):",
			},
		},
		{
			name:        "inspect",
			args:        []string{"inspect", library},
			wantContain: []string{"Root: kicad_symbol_lib", "Balanced: yes", "QuotedString"},
		},
		{
			name:        "schema",
			args:        []string{"schema", "footprint"},
			wantContain: []string{`"reference"`, `"properties"`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output, _, err := runKpx(context.Background(), tt.args...)
			require.NoError(t, err)

			for _, want := range tt.wantContain {
				assert.Contains(t, output, want)
			}
		})
	}
}

func TestPositionsNaturalOrder(t *testing.T) {
	board := writeFixture(t, "demo.kicad_pcb", boardFixture)

	output, _, err := runKpx(context.Background(), "positions", board)
	require.NoError(t, err)

	assert.Contains(t, output, "Total components: 4")
	order := []string{"C1", "R1", "R2", "R10"}
	last := -1
	for _, ref := range order {
		idx := strings.Index(output, ref+" ")
		require.GreaterOrEqual(t, idx, 0, "missing %s", ref)
		assert.Greater(t, idx, last, "%s out of order", ref)
		last = idx
	}
	assert.Contains(t, output, "bottom")
}

func TestJSONOutput(t *testing.T) {
	board := writeFixture(t, "demo.kicad_pcb", boardFixture)

	t.Run("layers", func(t *testing.T) {
		output, _, err := runKpx(context.Background(), "layers", "--json", board)
		require.NoError(t, err)

		var layers []map[string]any
		require.NoError(t, json.Unmarshal([]byte(output), &layers))
		require.Len(t, layers, 4)
		assert.Equal(t, "F.Cu", layers[0]["name"])
		assert.Equal(t, "Fabrication", layers[3]["user_name"])
	})

	t.Run("positions", func(t *testing.T) {
		output, _, err := runKpx(context.Background(), "positions", "-j", board)
		require.NoError(t, err)

		var p Placements
		require.NoError(t, json.Unmarshal([]byte(output), &p))
		assert.Equal(t, 4, p.ComponentCount)
		assert.Equal(t, "C1", p.Components[0].Reference)
		assert.Equal(t, "bottom", p.Components[0].Side)
		assert.Equal(t, 180.0, p.Components[0].Rotation)
	})

	t.Run("3d", func(t *testing.T) {
		output, _, err := runKpx(context.Background(), "3d", "--json", board)
		require.NoError(t, err)

		var c ModelCoverage
		require.NoError(t, json.Unmarshal([]byte(output), &c))
		assert.Equal(t, 4, c.TotalComponents)
		assert.Equal(t, 1, c.WithModels)
		assert.Equal(t, 25.0, c.CoveragePercent)
		assert.Equal(t, map[string]int{"wrl": 1}, c.ModelTypes)
		assert.Len(t, c.Uncovered, 3)
	})

	t.Run("details", func(t *testing.T) {
		output, _, err := runKpx(context.Background(), "details", "--json", board)
		require.NoError(t, err)

		var d BoardDetails
		require.NoError(t, json.Unmarshal([]byte(output), &d))
		require.NotNil(t, d.BoardSize)
		assert.Equal(t, 40.0, d.BoardSize.WidthMM)
		assert.Equal(t, 30.0, d.BoardSize.HeightMM)
		assert.Equal(t, map[string]int{"R": 3, "C": 1}, d.Summary)
		assert.InDelta(t, 4.0, d.TrackLengthMM, 1e-9)
	})
}

func TestConfigDiscovery(t *testing.T) {
	board := writeFixture(t, "demo.kicad_pcb", boardFixture)
	conf := filepath.Join(filepath.Dir(board), ".kpx.toml")
	require.NoError(t, os.WriteFile(conf, []byte("only_references = \"^R\"\nformat = \"json\"\n"), 0644))

	output, _, err := runKpx(context.Background(), "positions", board)
	require.NoError(t, err)

	var p Placements
	require.NoError(t, json.Unmarshal([]byte(output), &p))
	assert.Equal(t, 3, p.ComponentCount)
	for _, c := range p.Components {
		assert.True(t, strings.HasPrefix(c.Reference, "R"), c.Reference)
	}

	t.Run("explicit config wins", func(t *testing.T) {
		other := filepath.Join(t.TempDir(), "other.yaml")
		require.NoError(t, os.WriteFile(other, []byte("format: table\n"), 0644))

		output, _, err := runKpx(context.Background(), "positions", "--config", other, board)
		require.NoError(t, err)
		assert.Contains(t, output, "Total components: 4")
	})

	t.Run("invalid config", func(t *testing.T) {
		bad := filepath.Join(t.TempDir(), "bad.toml")
		require.NoError(t, os.WriteFile(bad, []byte("format = \"xml\"\n"), 0644))

		_, _, err := runKpx(context.Background(), "positions", "--config", bad, board)
		assert.Error(t, err)
	})
}

func TestCache(t *testing.T) {
	board := writeFixture(t, "demo.kicad_pcb", boardFixture)
	db := filepath.Join(t.TempDir(), "kpx.db")

	first, _, err := runKpx(context.Background(), "details", "--json", "--cache", db, board)
	require.NoError(t, err)

	second, stderr, err := runKpx(context.Background(), "details", "--json", "--cache", db, "--verbose", board)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Contains(t, stderr, "cache hit")

	// Net name is part of the key
	_, _, err = runKpx(context.Background(), "nets", "--json", "--cache", db, board)
	require.NoError(t, err)
	gnd, _, err := runKpx(context.Background(), "nets", "--json", "--cache", db, board, "GND")
	require.NoError(t, err)
	assert.Contains(t, gnd, `"pads"`)

	store, err := cache.Open(db)
	require.NoError(t, err)
	defer store.Close()

	n, err := store.Len("details")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	n, err = store.Len("nets")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestWatchReruns(t *testing.T) {
	board := writeFixture(t, "demo.kicad_pcb", boardFixture)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		time.Sleep(150 * time.Millisecond)
		os.WriteFile(board, []byte(boardFixture+"\n"), 0644)
		time.Sleep(800 * time.Millisecond)
		cancel()
	}()

	output, _, err := runKpx(ctx, "layers", "--watch", board)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(output, "KiCad PCB Layer Information"))
}

func TestErrors(t *testing.T) {
	board := writeFixture(t, "demo.kicad_pcb", boardFixture)
	library := writeFixture(t, "demo.kicad_sym", libraryFixture)

	t.Run("wrong extension", func(t *testing.T) {
		_, _, err := runKpx(context.Background(), "layers", library)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "requires a .kicad_pcb file")

		_, _, err = runKpx(context.Background(), "symbols", board)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "requires a .kicad_sym file")
	})

	t.Run("invalid UTF-8", func(t *testing.T) {
		path := writeFixture(t, "bad.kicad_pcb", "(kicad_pcb (layers (0 \"F.Cu\xff\" signal)))")
		_, _, err := runKpx(context.Background(), "layers", path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not valid UTF-8")
	})

	t.Run("missing layers section", func(t *testing.T) {
		path := writeFixture(t, "empty.kicad_pcb", "(kicad_pcb (version 20221018))")
		_, _, err := runKpx(context.Background(), "details", path)
		require.Error(t, err)
		assert.True(t, errors.Is(err, sexp.ErrMissingSection), err)
	})

	t.Run("unbalanced library", func(t *testing.T) {
		path := writeFixture(t, "broken.kicad_sym", `(kicad_symbol_lib (symbol "R" (property "Reference" "R")`)
		_, _, err := runKpx(context.Background(), "symbols", path)
		require.Error(t, err)
		assert.True(t, errors.Is(err, sexp.ErrUnbalancedDelimiters), err)
	})

	t.Run("unknown net", func(t *testing.T) {
		_, _, err := runKpx(context.Background(), "nets", board, "VCC")
		assert.Error(t, err)
	})

	t.Run("unknown schema record", func(t *testing.T) {
		_, _, err := runKpx(context.Background(), "schema", "widget")
		assert.Error(t, err)
	})
}
