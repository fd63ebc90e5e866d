package cmd

import (
	"fmt"
	"io"

	"github.com/OpenTraceLab/kiparse/internal/config"
	"github.com/OpenTraceLab/kiparse/internal/output"
	"github.com/OpenTraceLab/kiparse/pkg/kicad/symbol"
	"github.com/spf13/cobra"
)

var symbolsCmd = &cobra.Command{
	Use:   "symbols <library_file>",
	Short: "Parse symbol libraries",
	Long: `Lists the symbols of a KiCad symbol library with their reference
prefix, unit and pin counts and description.

With --json the full symbol definitions are printed, including
properties, pins, graphics and units.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runReport(cmd, args[0], extLibrary, reportSymbols)
	},
}

func init() {
	rootCmd.AddCommand(symbolsCmd)
}

func reportSymbols(w io.Writer, text string) error {
	lib, err := symbol.ParseLibrary(text)
	if err != nil {
		return fmt.Errorf("error parsing symbol library: %w", err)
	}
	logWarnings("symbol", lib.Warnings)

	if cfg.Format == config.FormatJSON {
		symbols := lib.Symbols
		if symbols == nil {
			symbols = []symbol.Symbol{}
		}
		return output.WriteJSON(w, symbols)
	}

	heading(w, "Symbol Library Analysis")
	if lib.Version != 0 {
		fmt.Fprintf(w, "Version: %d (%s)\n", lib.Version, lib.Generator)
	}
	fmt.Fprintf(w, "Total symbols: %d\n", len(lib.Symbols))
	if len(lib.Symbols) == 0 {
		return nil
	}

	fmt.Fprintln(w)
	t := output.NewTable(w, "Symbol", "Reference", "Units", "Pins", "Description")
	for i := range lib.Symbols {
		s := &lib.Symbols[i]
		var desc any
		if s.Description != "" {
			desc = s.Description
		}
		name := s.Name
		if s.Extends != "" {
			name += " (" + s.Extends + ")"
		}
		t.Row(name, s.Reference(), s.UnitCount(), len(s.AllPins()), desc)
	}
	return t.Flush()
}
