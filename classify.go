package stormdag

import "strings"

// EdgeFlags is the behaviour of a link, derived once from its identifier.
type EdgeFlags struct {
	Treated       bool `json:"treated"`
	VolumeReduced bool `json:"volume_reduced"`
}

// Classify matches an edge identifier against the configured flag sets.
func Classify(name string, cfg Config) EdgeFlags {
	return EdgeFlags{
		Treated:       MatchAny(name, cfg.TreatedFlags),
		VolumeReduced: MatchAny(name, cfg.VolumeReducedFlags),
	}
}

// IsOutfall reports whether a node id carries one of the outfall flags.
func IsOutfall(id string, cfg Config) bool {
	return MatchAny(id, cfg.OutfallFlags)
}

// MatchAny reports whether any flag is a substring of s.
func MatchAny(s string, flags []string) bool {
	for _, f := range flags {
		if strings.Contains(s, f) {
			return true
		}
	}
	return false
}

// Classify recomputes the flags of every edge from its identifier.
func (g *Network) Classify(cfg Config) {
	classifyEdges(g.edges, cfg)
}

func classifyEdges(edges []*Edge, cfg Config) {
	for _, e := range edges {
		e.Flags = Classify(e.Name(cfg.NameAttribute), cfg)
	}
}
