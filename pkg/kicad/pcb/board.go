package pcb

// Document is the partial model of a board: the layer table plus every
// element kind the detail extractors decode. Fields the extractors do not
// recognise are absent, never an error.
type Document struct {
	Header
	Layers     *LayerTable           `json:"layers"`
	Nets       *NetMap               `json:"-"`
	Footprints Extraction[Footprint] `json:"footprints"`
	Tracks     Extraction[Track]     `json:"tracks"`
	Vias       Extraction[Via]       `json:"vias"`
	Zones      Extraction[Zone]      `json:"zones"`
	Outline    OutlineExtraction     `json:"outline"`
	Models     ModelExtraction       `json:"models"`
}

// ParseDocument runs the layer parser followed by every detail extractor
// over the same text. Only a layer-table failure is returned as an error;
// per-record problems are counted inside each extraction.
func ParseDocument(text string, opts ...DetailOption) (*Document, error) {
	layers, err := ParseLayersOnly(text)
	if err != nil {
		return nil, err
	}

	p := NewDetailParser(text, opts...)
	return &Document{
		Header:     ParseHeader(text),
		Layers:     layers,
		Nets:       p.Nets(),
		Footprints: p.ExtractFootprints(),
		Tracks:     p.ExtractTracks(),
		Vias:       p.ExtractVias(),
		Zones:      p.ExtractZones(),
		Outline:    p.ExtractBoardOutline(),
		Models:     p.ExtractModels(),
	}, nil
}

// Failed returns the number of blocks skipped across all extractions
func (d *Document) Failed() int {
	return d.Footprints.Failed + d.Tracks.Failed + d.Vias.Failed +
		d.Zones.Failed + d.Outline.Failed + d.Models.Failed
}

// ComponentSummary counts footprints per reference prefix (R, C, U, ...)
func (d *Document) ComponentSummary() map[string]int {
	return SummarizeComponents(d.Footprints.Items)
}

// Complexity classifies the board by component and track count
func (d *Document) Complexity() Complexity {
	return EstimateComplexity(len(d.Footprints.Items), len(d.Tracks.Items))
}

// TotalTrackLength returns the summed length of all tracks in mm
func (d *Document) TotalTrackLength() float64 {
	total := 0.0
	for i := range d.Tracks.Items {
		total += d.Tracks.Items[i].Length()
	}
	return total
}

// ComponentSummary counts footprints per reference prefix (R, C, U, ...)
func (p *DetailParser) ComponentSummary() map[string]int {
	return SummarizeComponents(p.ExtractFootprints().Items)
}

// SummarizeComponents counts footprints per reference prefix
func SummarizeComponents(fps []Footprint) map[string]int {
	summary := make(map[string]int)
	for _, fp := range fps {
		summary[ReferencePrefix(fp.Reference)]++
	}
	return summary
}

// Complexity is a coarse size class of a board
type Complexity string

const (
	ComplexitySimple      Complexity = "Simple"
	ComplexityModerate    Complexity = "Moderate"
	ComplexityComplex     Complexity = "Complex"
	ComplexityVeryComplex Complexity = "Very Complex"
)

// EstimateComplexity classifies a board from its footprint and track
// counts. Each count is graded on its own scale (footprints 10/100/500,
// tracks 50/500/2000) and the higher grade wins.
func EstimateComplexity(footprints, tracks int) Complexity {
	grades := []Complexity{ComplexitySimple, ComplexityModerate, ComplexityComplex, ComplexityVeryComplex}
	grade := func(n int, limits [3]int) int {
		for i, limit := range limits {
			if n <= limit {
				return i
			}
		}
		return len(limits)
	}
	return grades[max(grade(footprints, [3]int{10, 100, 500}), grade(tracks, [3]int{50, 500, 2000}))]
}

// NetInfo contains information about a net and its connections
type NetInfo struct {
	Net    Net     `json:"net"`
	Pads   []Pad   `json:"pads"`
	Tracks []Track `json:"tracks"`
	Vias   []Via   `json:"vias"`
}

// GetNetPads returns all pads connected to a specific net
func (d *Document) GetNetPads(netName string) []Pad {
	var pads []Pad
	for _, fp := range d.Footprints.Items {
		for _, pad := range fp.Pads {
			if pad.NetName == netName {
				pads = append(pads, pad)
			}
		}
	}
	return pads
}

// GetNetTracks returns all tracks connected to a specific net
func (d *Document) GetNetTracks(netName string) []Track {
	var tracks []Track
	for _, track := range d.Tracks.Items {
		if track.NetName == netName {
			tracks = append(tracks, track)
		}
	}
	return tracks
}

// GetNetVias returns all vias connected to a specific net
func (d *Document) GetNetVias(netName string) []Via {
	var vias []Via
	for _, via := range d.Vias.Items {
		if via.NetName == netName {
			vias = append(vias, via)
		}
	}
	return vias
}

// GetNetInfo returns everything attached to a named net, or nil when
// nothing references it.
func (d *Document) GetNetInfo(netName string) *NetInfo {
	if netName == "" {
		return nil
	}
	info := &NetInfo{
		Net:    Net{Name: netName},
		Pads:   d.GetNetPads(netName),
		Tracks: d.GetNetTracks(netName),
		Vias:   d.GetNetVias(netName),
	}
	switch {
	case len(info.Pads) > 0:
		info.Net.Number = info.Pads[0].Net
	case len(info.Tracks) > 0:
		info.Net.Number = info.Tracks[0].Net
	case len(info.Vias) > 0:
		info.Net.Number = info.Vias[0].Net
	default:
		return nil
	}
	return info
}

// BoundingBox returns the board outline when one exists, otherwise the
// extent of tracks, vias and footprint pads.
func (d *Document) BoundingBox() BoundingBox {
	bbox := NewBoundingBox()
	if o := d.Outline.Outline; o != nil {
		bbox.Expand(Position{X: o.MinX, Y: o.MinY})
		bbox.Expand(Position{X: o.MaxX, Y: o.MaxY})
		return bbox
	}

	for _, track := range d.Tracks.Items {
		bbox.Expand(track.Start)
		bbox.Expand(track.End)
	}

	for _, via := range d.Vias.Items {
		// Vias have a size, so expand by radius
		radius := via.Size / 2.0
		bbox.Expand(Position{X: via.Position.X - radius, Y: via.Position.Y - radius})
		bbox.Expand(Position{X: via.Position.X + radius, Y: via.Position.Y + radius})
	}

	for i := range d.Footprints.Items {
		bbox.ExpandBox(d.Footprints.Items[i].BoundingBox())
	}
	return bbox
}
