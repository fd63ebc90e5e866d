package cmd

import (
	"fmt"
	"io"
	"maps"
	"slices"

	"github.com/OpenTraceLab/kiparse/internal/config"
	"github.com/OpenTraceLab/kiparse/internal/output"
	"github.com/OpenTraceLab/kiparse/pkg/kicad/pcb"
	"github.com/spf13/cobra"
)

var modelsCmd = &cobra.Command{
	Use:     "3d <board_file>",
	Aliases: []string{"models"},
	Short:   "Analyze 3D model coverage",
	Long: `Reports how many footprints carry a 3D model, the model file types in
use and which components have none.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runReport(cmd, args[0], extBoard, reportModels)
	},
}

func init() {
	rootCmd.AddCommand(modelsCmd)
}

// ModelCoverage is the JSON form of the 3d report
type ModelCoverage struct {
	TotalComponents int                `json:"total_components"`
	WithModels      int                `json:"with_3d_models"`
	WithoutModels   int                `json:"without_3d_models"`
	CoveragePercent float64            `json:"coverage_percent"`
	ModelTypes      map[string]int     `json:"model_types"`
	Libraries       map[string]int     `json:"libraries,omitempty"`
	Uncovered       []pcb.FootprintRef `json:"uncovered"`
}

func newModelCoverage(res pcb.ModelExtraction) ModelCoverage {
	c := ModelCoverage{
		TotalComponents: res.Footprints,
		WithoutModels:   len(res.Uncovered),
		CoveragePercent: res.Coverage(),
		ModelTypes:      make(map[string]int),
		Libraries:       make(map[string]int),
		Uncovered:       res.Uncovered,
	}
	c.WithModels = c.TotalComponents - c.WithoutModels
	if c.Uncovered == nil {
		c.Uncovered = []pcb.FootprintRef{}
	}

	for _, m := range res.Items {
		c.ModelTypes[string(m.Type)]++
		if lib := pcb.ModelLibrary(m.Path); lib != "" {
			c.Libraries[lib]++
		}
	}
	return c
}

func reportModels(w io.Writer, text string) error {
	res := pcb.NewDetailParser(text).ExtractModels()
	logWarnings("model", res.Warnings)

	c := newModelCoverage(res)
	if cfg.Format == config.FormatJSON {
		return output.WriteJSON(w, c)
	}

	heading(w, "3D Model Coverage Analysis")
	fmt.Fprintf(w, "Total components: %d\n", c.TotalComponents)
	fmt.Fprintf(w, "With 3D models: %d (%.1f%%)\n", c.WithModels, c.CoveragePercent)
	fmt.Fprintf(w, "Without 3D models: %d (%.1f%%)\n", c.WithoutModels, 100-c.CoveragePercent)

	if len(c.ModelTypes) > 0 {
		fmt.Fprintln(w, "\nModel Types:")
		for _, typ := range slices.Sorted(maps.Keys(c.ModelTypes)) {
			fmt.Fprintf(w, "  %s: %d\n", typ, c.ModelTypes[typ])
		}
	}

	if len(c.Libraries) > 0 {
		fmt.Fprintln(w, "\nModel Libraries:")
		for _, lib := range slices.Sorted(maps.Keys(c.Libraries)) {
			fmt.Fprintf(w, "  %s: %d\n", lib, c.Libraries[lib])
		}
	}

	if len(c.Uncovered) > 0 {
		uncovered := slices.Clone(c.Uncovered)
		slices.SortStableFunc(uncovered, func(a, b pcb.FootprintRef) int {
			return pcb.CompareReferences(a.Reference, b.Reference)
		})

		fmt.Fprintln(w, "\nMissing 3D models:")
		t := output.NewTable(w, "Reference", "Footprint")
		for _, u := range uncovered {
			t.Row(u.Reference, u.Footprint)
		}
		return t.Flush()
	}
	return nil
}
