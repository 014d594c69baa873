package stormdag

import (
	"fmt"
	"sort"
	"strings"
)

// QualityKind says whether water-quality records hold loads or concentrations.
type QualityKind int

// Quality kinds. Concentrations are multiplied by the node volume on loading.
const (
	LoadKind QualityKind = iota
	ConcentrationKind
)

// UnitLabel is the label carrying the volume unit of nodes and edges.
const UnitLabel = "unit"

// WaterQuality is one tidy record of a pollutant at a subcatchment.
// Unit is a load unit such as "lbs/mgal"; its denominator must be the network's volume unit.
type WaterQuality struct {
	Subcatchment string  `json:"subcatchment"`
	Pollutant    string  `json:"pollutant"`
	Value        float64 `json:"value"`
	Unit         string  `json:"unit"`
}

// Pollutants returns the distinct pollutants in first-seen order.
func Pollutants(recs []WaterQuality) []string {
	seen := map[string]bool{}
	var out []string
	for _, r := range recs {
		if !seen[r.Pollutant] {
			seen[r.Pollutant] = true
			out = append(out, r.Pollutant)
		}
	}
	return out
}

// ApplyWaterQuality stores source loads on subcatchment nodes. Concentrations are
// converted with the node's source volume. An empty pollutants list keeps all.
func ApplyWaterQuality(g *Network, recs []WaterQuality, kind QualityKind, pollutants []string) error {
	keep := map[string]bool{}
	for _, p := range pollutants {
		keep[p] = true
	}
	selected := make([]WaterQuality, 0, len(recs))
	for _, r := range recs {
		if len(keep) == 0 || keep[r.Pollutant] {
			selected = append(selected, r)
		}
	}
	if err := CheckUnits(g, selected); err != nil {
		return err
	}

	for _, r := range selected {
		n, ok := g.Node(r.Subcatchment)
		if !ok {
			return fmt.Errorf("%w: subcatchment %s", ErrNodeNotFound, r.Subcatchment)
		}
		load := r.Value
		if kind == ConcentrationKind {
			load = r.Value * n.Volume
		}
		n.setLoad(r.Pollutant, load)
	}
	return nil
}

// CheckUnits verifies that nodes and edges share one volume unit, that every load
// unit is expressed per that volume unit, and that each pollutant has one unit.
func CheckUnits(g *Network, recs []WaterQuality) error {
	volUnits := map[string]bool{}
	for _, n := range g.Nodes() {
		if u, ok := n.Labels[UnitLabel]; ok {
			volUnits[u] = true
		}
	}
	for _, e := range g.Edges() {
		if u, ok := e.Labels[UnitLabel]; ok {
			volUnits[u] = true
		}
	}
	if len(volUnits) > 1 {
		return fmt.Errorf("%w: only one volume unit supported, found %s", ErrUnitMismatch, joinKeys(volUnits))
	}

	loadVolUnits := map[string]bool{}
	byPollutant := map[string]string{}
	for _, r := range recs {
		if r.Unit == "" {
			continue
		}
		if prev, ok := byPollutant[r.Pollutant]; ok && prev != r.Unit {
			return fmt.Errorf("%w: pollutant %s has units %s and %s", ErrUnitMismatch, r.Pollutant, prev, r.Unit)
		}
		byPollutant[r.Pollutant] = r.Unit
		parts := strings.Split(r.Unit, "/")
		loadVolUnits[parts[len(parts)-1]] = true
	}
	if len(loadVolUnits) > 1 {
		return fmt.Errorf("%w: only one load volume unit supported, found %s", ErrUnitMismatch, joinKeys(loadVolUnits))
	}
	for lu := range loadVolUnits {
		for vu := range volUnits {
			if lu != vu {
				return fmt.Errorf("%w: load volume unit %s does not match volume unit %s", ErrUnitMismatch, lu, vu)
			}
		}
	}
	return nil
}

func joinKeys(m map[string]bool) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return strings.Join(keys, ", ")
}
