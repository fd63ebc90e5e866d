package cmd

import (
	"fmt"
	"slices"
	"strings"

	"github.com/OpenTraceLab/kiparse/internal/output"
	"github.com/OpenTraceLab/kiparse/pkg/kicad/pcb"
	"github.com/OpenTraceLab/kiparse/pkg/kicad/symbol"
	"github.com/spf13/cobra"
)

// Records whose JSON form can be described with schema
var schemaRecords = map[string]any{
	"layer":     pcb.Layer{},
	"footprint": pcb.Footprint{},
	"track":     pcb.Track{},
	"via":       pcb.Via{},
	"zone":      pcb.Zone{},
	"outline":   pcb.BoardOutline{},
	"model":     pcb.ModelRef{},
	"details":   BoardDetails{},
	"positions": Placements{},
	"coverage":  ModelCoverage{},
	"net":       NetSummary{},
	"structure": Structure{},
	"symbol":    symbol.Symbol{},
	"library":   symbol.Library{},
}

var schemaCmd = &cobra.Command{
	Use:   "schema <record>",
	Short: "Print the JSON Schema of an output record",
	Long: `Prints the JSON Schema describing the --json output of a record type.

Records: ` + strings.Join(schemaNames(), ", "),
	Args:      cobra.ExactArgs(1),
	ValidArgs: schemaNames(),
	RunE: func(cmd *cobra.Command, args []string) error {
		v, ok := schemaRecords[args[0]]
		if !ok {
			return fmt.Errorf("unknown record %q (want one of: %s)", args[0], strings.Join(schemaNames(), ", "))
		}
		data, err := output.Schema(v)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return err
	},
}

func init() {
	rootCmd.AddCommand(schemaCmd)
}

func schemaNames() []string {
	names := make([]string, 0, len(schemaRecords))
	for name := range schemaRecords {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
