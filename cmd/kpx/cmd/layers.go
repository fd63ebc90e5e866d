package cmd

import (
	"fmt"
	"io"

	"github.com/OpenTraceLab/kiparse/internal/config"
	"github.com/OpenTraceLab/kiparse/internal/output"
	"github.com/OpenTraceLab/kiparse/pkg/kicad/pcb"
	"github.com/spf13/cobra"
)

var layersCmd = &cobra.Command{
	Use:   "layers <board_file>",
	Short: "Extract layer information",
	Long: `Lists the layer stack of a board in physical order with its KiCad id,
canonical name, type and user-assigned name.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runReport(cmd, args[0], extBoard, reportLayers)
	},
}

func init() {
	rootCmd.AddCommand(layersCmd)
}

func reportLayers(w io.Writer, text string) error {
	table, err := pcb.ParseLayersOnly(text)
	if err != nil {
		return fmt.Errorf("error parsing layers: %w", err)
	}
	logWarnings("layer", table.Warnings)

	if cfg.Format == config.FormatJSON {
		return output.WriteJSON(w, table)
	}

	heading(w, "KiCad PCB Layer Information")
	fmt.Fprintf(w, "Total layers: %d\n\n", table.Len())

	t := output.NewTable(w, "ID", "Name", "Type", "User Name")
	for _, layer := range table.All() {
		var userName any
		if layer.UserName != "" {
			userName = layer.UserName
		}
		t.Row(layer.ID, layer.Name, layer.Type, userName)
	}
	return t.Flush()
}
