package cmd

import (
	"fmt"
	"io"

	"github.com/OpenTraceLab/kiparse/internal/config"
	"github.com/OpenTraceLab/kiparse/internal/output"
	"github.com/OpenTraceLab/kiparse/pkg/kicad/pcb"
	"github.com/spf13/cobra"
)

var positionsCmd = &cobra.Command{
	Use:   "positions <board_file>",
	Short: "Extract component positions",
	Long: `Lists every placed footprint with its reference, position, rotation,
side and footprint name, in natural reference order (R1, R2, R10).

The only_references config setting restricts the list to matching
reference designators.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runReport(cmd, args[0], extBoard, reportPositions)
	},
}

func init() {
	rootCmd.AddCommand(positionsCmd)
}

// Placement is one row of the positions report
type Placement struct {
	Reference string  `json:"reference"`
	Footprint string  `json:"footprint"`
	Value     string  `json:"value,omitempty"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Rotation  float64 `json:"rotation"`
	Side      string  `json:"side"` // "top" or "bottom"
}

// Placements is the JSON form of the positions report
type Placements struct {
	ComponentCount int         `json:"component_count"`
	Components     []Placement `json:"components"`
}

func collectPlacements(fps []pcb.Footprint) Placements {
	pcb.SortFootprints(fps)

	p := Placements{Components: []Placement{}}
	for _, fp := range fps {
		if !cfg.ShouldReport(fp.Reference) {
			continue
		}
		side := "top"
		if fp.IsBackSide() {
			side = "bottom"
		}
		p.Components = append(p.Components, Placement{
			Reference: fp.Reference,
			Footprint: fp.FullName(),
			Value:     fp.Value,
			X:         fp.Position.X,
			Y:         fp.Position.Y,
			Rotation:  fp.Rotation,
			Side:      side,
		})
	}
	p.ComponentCount = len(p.Components)
	return p
}

func reportPositions(w io.Writer, text string) error {
	res := pcb.NewDetailParser(text).ExtractFootprints()
	logWarnings("footprint", res.Warnings)

	p := collectPlacements(res.Items)
	if cfg.Format == config.FormatJSON {
		return output.WriteJSON(w, p)
	}

	heading(w, "Component Positions")
	fmt.Fprintf(w, "Total components: %d\n", p.ComponentCount)
	if p.ComponentCount == 0 {
		return nil
	}

	fmt.Fprintln(w)
	t := output.NewTable(w, "Reference", "X (mm)", "Y (mm)", "Rotation", "Side", "Footprint")
	for _, c := range p.Components {
		t.Row(c.Reference, c.X, c.Y, fmt.Sprintf("%.0f°", c.Rotation), c.Side, c.Footprint)
	}
	return t.Flush()
}
