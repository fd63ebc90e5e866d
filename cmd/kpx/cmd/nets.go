package cmd

import (
	"fmt"
	"io"

	"github.com/OpenTraceLab/kiparse/internal/config"
	"github.com/OpenTraceLab/kiparse/internal/output"
	"github.com/OpenTraceLab/kiparse/pkg/kicad/pcb"
	"github.com/spf13/cobra"
)

var netsCmd = &cobra.Command{
	Use:   "nets <board_file> [net_name]",
	Short: "Show PCB net information",
	Long: `Display information about nets in a PCB file.

Without net_name: Lists all nets with pad/track/via counts
With net_name: Shows detailed information for that specific net`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runReport(cmd, args[0], extBoard, func(w io.Writer, text string) error {
			doc, err := pcb.ParseDocument(text, pcb.WithOutlineLayer(cfg.OutlineLayer))
			if err != nil {
				return fmt.Errorf("error parsing board: %w", err)
			}
			logDocumentWarnings(doc)

			// If net name provided, show details for that net
			if len(args) >= 2 {
				return showNetDetails(w, doc, args[1])
			}
			return listAllNets(w, doc)
		})
	},
}

func init() {
	rootCmd.AddCommand(netsCmd)
}

// NetSummary is one row of the nets listing
type NetSummary struct {
	Name   string `json:"name"`
	Number int    `json:"number"`
	Pads   int    `json:"pads"`
	Tracks int    `json:"tracks"`
	Vias   int    `json:"vias"`
}

func listAllNets(w io.Writer, doc *pcb.Document) error {
	var nets []NetSummary
	for _, name := range doc.Nets.Names() {
		net, _ := doc.Nets.GetByName(name)
		nets = append(nets, NetSummary{
			Name:   name,
			Number: net.Number,
			Pads:   len(doc.GetNetPads(name)),
			Tracks: len(doc.GetNetTracks(name)),
			Vias:   len(doc.GetNetVias(name)),
		})
	}

	if cfg.Format == config.FormatJSON {
		if nets == nil {
			nets = []NetSummary{}
		}
		return output.WriteJSON(w, nets)
	}

	fmt.Fprintf(w, "Board: %d nets\n\n", len(nets))
	t := output.NewTable(w, "Net Name", "Pads", "Tracks", "Vias")
	for _, n := range nets {
		t.Row(n.Name, n.Pads, n.Tracks, n.Vias)
	}
	return t.Flush()
}

func showNetDetails(w io.Writer, doc *pcb.Document, netName string) error {
	info := doc.GetNetInfo(netName)
	if info == nil {
		return fmt.Errorf("net '%s' not found", netName)
	}

	if cfg.Format == config.FormatJSON {
		return output.WriteJSON(w, info)
	}

	fmt.Fprintf(w, "Net: %s (number %d)\n\n", info.Net.Name, info.Net.Number)

	// Show pads
	fmt.Fprintf(w, "Pads (%d):\n", len(info.Pads))
	for _, pad := range info.Pads {
		fmt.Fprintf(w, "  Pad %-4s: %s %.2f×%.2f mm at (%.2f, %.2f)\n",
			pad.Number, pad.Shape,
			pad.Size.Width, pad.Size.Height,
			pad.Position.X, pad.Position.Y)
	}

	// Show tracks
	fmt.Fprintf(w, "\nTracks (%d):\n", len(info.Tracks))
	for i, track := range info.Tracks {
		fmt.Fprintf(w, "  Track %d: %.2f mm wide on %s from (%.2f, %.2f) to (%.2f, %.2f)\n",
			i+1, track.Width, track.Layer,
			track.Start.X, track.Start.Y,
			track.End.X, track.End.Y)
	}

	// Show vias
	fmt.Fprintf(w, "\nVias (%d):\n", len(info.Vias))
	for i, via := range info.Vias {
		fmt.Fprintf(w, "  Via %d: %.2f mm diameter, %.2f mm drill at (%.2f, %.2f)\n",
			i+1, via.Size, via.Drill,
			via.Position.X, via.Position.Y)
	}

	return nil
}
