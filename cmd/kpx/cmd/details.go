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

var detailsCmd = &cobra.Command{
	Use:   "details <board_file>",
	Short: "Get detailed PCB information",
	Long: `Summarises a board: layer counts, board dimensions from the outline
layer, component, track and via counts, component density and a coarse
complexity class.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runReport(cmd, args[0], extBoard, reportDetails)
	},
}

func init() {
	rootCmd.AddCommand(detailsCmd)
}

// BoardDetails is the JSON form of the details report
type BoardDetails struct {
	Version       int            `json:"version,omitempty"`
	Generator     string         `json:"generator,omitempty"`
	Layers        int            `json:"layers"`
	SignalLayers  int            `json:"signal_layers"`
	CopperLayers  int            `json:"copper_layers"`
	FileSizeKB    float64        `json:"file_size_kb"`
	Complexity    pcb.Complexity `json:"complexity"`
	BoardSize     *BoardSize     `json:"board_size,omitempty"`
	Components    int            `json:"components"`
	Tracks        int            `json:"tracks"`
	Vias          int            `json:"vias"`
	Zones         int            `json:"zones"`
	Nets          int            `json:"nets"`
	TrackLengthMM float64        `json:"track_length_mm"`
	Density       float64        `json:"density_per_sq_in,omitempty"` // Components per square inch
	Summary       map[string]int `json:"component_summary"`
	Skipped       int            `json:"skipped_blocks"`
}

// BoardSize is the outline extent in metric and imperial units
type BoardSize struct {
	WidthMM    float64 `json:"width_mm"`
	HeightMM   float64 `json:"height_mm"`
	WidthMils  float64 `json:"width_mils"`
	HeightMils float64 `json:"height_mils"`
	AreaMM2    float64 `json:"area_mm2"`
	AreaSqIn   float64 `json:"area_sq_in"`
}

func newBoardDetails(doc *pcb.Document, fileSize int) BoardDetails {
	d := BoardDetails{
		Version:       doc.Version,
		Generator:     doc.Generator,
		Layers:        doc.Layers.Len(),
		CopperLayers:  len(doc.Layers.CopperLayers()),
		FileSizeKB:    float64(fileSize) / 1024,
		Complexity:    doc.Complexity(),
		Components:    len(doc.Footprints.Items),
		Tracks:        len(doc.Tracks.Items),
		Vias:          len(doc.Vias.Items),
		Zones:         len(doc.Zones.Items),
		Nets:          doc.Nets.Len(),
		TrackLengthMM: doc.TotalTrackLength(),
		Summary:       doc.ComponentSummary(),
		Skipped:       doc.Failed(),
	}

	for _, l := range doc.Layers.All() {
		if l.Type == pcb.LayerSignal {
			d.SignalLayers++
		}
	}

	if o := doc.Outline.Outline; o != nil && o.Width > 0 && o.Height > 0 {
		d.BoardSize = &BoardSize{
			WidthMM:    o.Width,
			HeightMM:   o.Height,
			WidthMils:  pcb.MMToMils(o.Width),
			HeightMils: pcb.MMToMils(o.Height),
			AreaMM2:    o.Area(),
			AreaSqIn:   pcb.MM2ToSqIn(o.Area()),
		}
		if d.Components > 0 {
			d.Density = float64(d.Components) / d.BoardSize.AreaSqIn
		}
	}
	return d
}

func reportDetails(w io.Writer, text string) error {
	doc, err := pcb.ParseDocument(text, pcb.WithOutlineLayer(cfg.OutlineLayer))
	if err != nil {
		return fmt.Errorf("error parsing board: %w", err)
	}
	logDocumentWarnings(doc)

	d := newBoardDetails(doc, len(text))
	if cfg.Format == config.FormatJSON {
		return output.WriteJSON(w, d)
	}

	heading(w, "KiCad PCB Analysis")
	if d.Version != 0 {
		fmt.Fprintf(w, "Version: %d (%s)\n", d.Version, d.Generator)
	}
	fmt.Fprintf(w, "Layers: %d\n", d.Layers)
	fmt.Fprintf(w, "Signal layers: %d\n", d.SignalLayers)
	fmt.Fprintf(w, "Copper layers: %d\n", d.CopperLayers)
	fmt.Fprintf(w, "File size: %.2f KB\n", d.FileSizeKB)
	fmt.Fprintf(w, "Complexity: %s\n", d.Complexity)

	if s := d.BoardSize; s != nil {
		fmt.Fprintln(w, "\nBoard Dimensions:")
		fmt.Fprintf(w, "  Width:  %.2f mm (%.0f mils)\n", s.WidthMM, s.WidthMils)
		fmt.Fprintf(w, "  Height: %.2f mm (%.0f mils)\n", s.HeightMM, s.HeightMils)
		fmt.Fprintf(w, "  Area:   %.2f mm² (%.2f sq in)\n", s.AreaMM2, s.AreaSqIn)
	}

	fmt.Fprintln(w, "\nBoard Statistics:")
	fmt.Fprintf(w, "  Components: %d\n", d.Components)
	fmt.Fprintf(w, "  Tracks: %d (%.2f mm)\n", d.Tracks, d.TrackLengthMM)
	fmt.Fprintf(w, "  Vias: %d\n", d.Vias)
	fmt.Fprintf(w, "  Zones: %d\n", d.Zones)
	fmt.Fprintf(w, "  Nets: %d\n", d.Nets)
	if d.Density > 0 {
		fmt.Fprintf(w, "  Density: %.1f components/sq inch\n", d.Density)
	}
	if d.Skipped > 0 {
		fmt.Fprintf(w, "  Skipped blocks: %d\n", d.Skipped)
	}

	if len(d.Summary) > 0 {
		fmt.Fprintln(w, "\nComponents by prefix:")
		for _, prefix := range slices.Sorted(maps.Keys(d.Summary)) {
			fmt.Fprintf(w, "  %-6s %d\n", prefix, d.Summary[prefix])
		}
	}
	return nil
}

func logDocumentWarnings(doc *pcb.Document) {
	logWarnings("layer", doc.Layers.Warnings)
	logWarnings("footprint", doc.Footprints.Warnings)
	logWarnings("track", doc.Tracks.Warnings)
	logWarnings("via", doc.Vias.Warnings)
	logWarnings("zone", doc.Zones.Warnings)
	logWarnings("outline", doc.Outline.Warnings)
	logWarnings("model", doc.Models.Warnings)
}
