package stormdag

import "fmt"

// DiagnosticKind names a recoverable condition met during a solve.
type DiagnosticKind string

// DiagEdgeLoadOverwrite is raised when a solve replaces a load an edge already carried.
const DiagEdgeLoadOverwrite DiagnosticKind = "edge_load_overwrite"

// Diagnostic reports a recoverable condition. For load overwrites Previous is the
// value the edge carried and Value the one written over it, after treatment.
// PctDiff compares Previous with the untreated load conc_in × volume.
type Diagnostic struct {
	Kind     DiagnosticKind `json:"kind"`
	Edge     string         `json:"edge"`
	From     string         `json:"from"`
	To       string         `json:"to"`
	Key      int            `json:"key"`
	Load     string         `json:"load"`
	Previous float64        `json:"previous"`
	Value    float64        `json:"value"`
	PctDiff  float64        `json:"pct_diff"`
}

// String renders the diagnostic as a one-line warning.
func (d Diagnostic) String() string {
	switch d.Kind {
	case DiagEdgeLoadOverwrite:
		return fmt.Sprintf("overwriting load data at edge: %s for load %s (%.3f -> %.3f, %.2f%%)",
			d.Edge, d.Load, d.Previous, d.Value, d.PctDiff)
	}
	return string(d.Kind)
}

// Diagnostics is the ordered list of conditions reported by one solve.
type Diagnostics []Diagnostic

// Count returns how many diagnostics have the given kind.
func (ds Diagnostics) Count(kind DiagnosticKind) int {
	n := 0
	for _, d := range ds {
		if d.Kind == kind {
			n++
		}
	}
	return n
}

// Observer receives each diagnostic as it is raised.
type Observer func(Diagnostic)
