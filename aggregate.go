package stormdag

import "fmt"

// Direction selects which edges of a node are aggregated.
type Direction int

// Edge directions relative to the aggregated node.
const (
	Incoming Direction = iota
	Outgoing
	Both
)

// String returns the lower-case direction name.
func (d Direction) String() string {
	switch d {
	case Incoming:
		return "incoming"
	case Outgoing:
		return "outgoing"
	case Both:
		return "both"
	}
	return fmt.Sprintf("Direction(%d)", int(d))
}

// Attr reads a numeric attribute from an edge; the bool reports presence.
type Attr func(e *Edge) (float64, bool)

// VolumeAttr selects the carried volume.
func VolumeAttr() Attr {
	return func(e *Edge) (float64, bool) { return e.Volume, true }
}

// LoadAttr selects the carried load of one pollutant.
func LoadAttr(name string) Attr {
	return func(e *Edge) (float64, bool) { return e.Load(name) }
}

// ExtraAttr selects a pass-through numeric attribute.
func ExtraAttr(name string) Attr {
	return func(e *Edge) (float64, bool) {
		v, ok := e.Extra[name]
		return v, ok
	}
}

// Filter narrows aggregation by substring flags tested against a string label.
// Include keeps edges matching at least one flag; Exclude then drops any match.
// With neither list set the filter is inert.
type Filter struct {
	Attribute string
	Include   []string
	Exclude   []string
}

// SumEdges sums attr across the edges of node in direction dir. Missing values
// count as zero. A filter whose label is missing on an edge fails with
// ErrMissingAttribute.
func SumEdges(g Graph, node string, attr Attr, dir Direction, f *Filter) (float64, error) {
	total := 0.
	for _, e := range selectEdges(g, node, dir) {
		if f != nil && f.Attribute != "" {
			key, ok := e.Labels[f.Attribute]
			if !ok {
				return 0, fmt.Errorf("%w: %q on edge %s -> %s", ErrMissingAttribute, f.Attribute, e.From, e.To)
			}
			if f.Include != nil && !MatchAny(key, f.Include) {
				continue
			}
			if f.Exclude != nil && MatchAny(key, f.Exclude) {
				continue
			}
		}
		if v, ok := attr(e); ok {
			total += v
		}
	}
	return total, nil
}

// SumEdgesWhere is SumEdges with a precomputed predicate in place of flag matching.
// A nil predicate selects every edge.
func SumEdgesWhere(g Graph, node string, attr Attr, dir Direction, keep func(*Edge) bool) float64 {
	total := 0.
	for _, e := range selectEdges(g, node, dir) {
		if keep != nil && !keep(e) {
			continue
		}
		if v, ok := attr(e); ok {
			total += v
		}
	}
	return total
}

func selectEdges(g Graph, node string, dir Direction) []*Edge {
	switch dir {
	case Incoming:
		return g.EdgesIn(node)
	case Outgoing:
		return g.EdgesOut(node)
	default:
		in, out := g.EdgesIn(node), g.EdgesOut(node)
		all := make([]*Edge, 0, len(in)+len(out))
		all = append(all, in...)
		return append(all, out...)
	}
}
