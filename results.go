package stormdag

import "sort"

// Row types.
const (
	RowNode = "node"
	RowLink = "link"
)

// Row is one line of the result table: a node or a link.
type Row struct {
	ID     string             `json:"id"`
	Type   string             `json:"type"`
	From   string             `json:"from"`
	To     []string           `json:"to"`
	Values map[string]float64 `json:"values"`
	Labels map[string]string  `json:"labels,omitempty"`
}

// Table is the flattened result of a solve, sorted by row id.
// Ids are not unique: a node and a link may share one.
type Table struct {
	Rows []Row `json:"rows"`
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.Rows) }

// Count returns the number of rows of the given type.
func (t *Table) Count(typ string) int {
	n := 0
	for _, r := range t.Rows {
		if r.Type == typ {
			n++
		}
	}
	return n
}

// Lookup returns every row with the given id.
func (t *Table) Lookup(id string) []Row {
	i := sort.Search(len(t.Rows), func(i int) bool { return t.Rows[i].ID >= id })
	var rows []Row
	for ; i < len(t.Rows) && t.Rows[i].ID == id; i++ {
		rows = append(rows, t.Rows[i])
	}
	return rows
}

// Clone returns a deep copy of t.
func (t *Table) Clone() *Table {
	if t == nil {
		return nil
	}
	c := &Table{Rows: make([]Row, len(t.Rows))}
	for i, r := range t.Rows {
		r.To = append([]string(nil), r.To...)
		if r.Values != nil {
			vals := make(map[string]float64, len(r.Values))
			for k, v := range r.Values {
				vals[k] = v
			}
			r.Values = vals
		}
		r.Labels = copyLabels(r.Labels)
		c.Rows[i] = r
	}
	return c
}

// Columns returns the sorted union of value and label column names.
func (t *Table) Columns() []string {
	seen := map[string]bool{}
	for _, r := range t.Rows {
		for k := range r.Values {
			seen[k] = true
		}
		for k := range r.Labels {
			seen[k] = true
		}
	}
	cols := make([]string, 0, len(seen))
	for k := range seen {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	return cols
}

// Assemble flattens node and edge attributes of g into one table: node rows
// first, then link rows, stably sorted by id.
func Assemble(g Graph, cfg Config) *Table {
	nodes, edges := g.Nodes(), g.Edges()
	rows := make([]Row, 0, len(nodes)+len(edges))

	for _, n := range nodes {
		rows = append(rows, Row{
			ID:     n.ID,
			Type:   RowNode,
			From:   n.ID,
			To:     g.Successors(n.ID),
			Values: nodeValues(n, cfg),
			Labels: copyLabels(n.Labels),
		})
	}
	for _, e := range edges {
		rows = append(rows, Row{
			ID:     e.label(cfg.NameAttribute),
			Type:   RowLink,
			From:   e.From,
			To:     []string{e.To},
			Values: edgeValues(e, cfg),
			Labels: copyLabels(e.Labels),
		})
	}

	sort.SliceStable(rows, func(i, j int) bool { return rows[i].ID < rows[j].ID })
	return &Table{Rows: rows}
}

func nodeValues(n *Node, cfg Config) map[string]float64 {
	vol := cfg.VolumeAttribute
	v := make(map[string]float64, len(n.Extra)+len(n.Loads)+16)
	for k, x := range n.Extra {
		v[k] = x
	}
	if n.HasVolume {
		v[vol] = n.Volume
	}
	if n.ExpectedVolume != nil {
		v[checkAttr(vol)] = *n.ExpectedVolume
	}
	for k, x := range n.Loads {
		v[k] = x
	}

	r := n.Result
	if r == nil {
		return v
	}
	v[vol+"_pct_diff"] = r.PctVolumeDiff
	if b := r.Volume; b != nil {
		v[vol+"_out"] = b.Out
		v[vol+"_reduced"] = b.Reduced
		v[vol+"_treated"] = b.Treated
		v[vol+"_pct_treated"] = b.PctTreated
		v[vol+"_pct_reduced"] = b.PctReduced
		v[vol+"_capture"] = b.Captured
		v[vol+"_pct_capture"] = b.PctCaptured
	}
	for k, lb := range r.Loads {
		v[k] = lb.In
		v[k+"_conc"] = lb.Concentration
		v[k+"_out"] = lb.Out
		v[k+"_reduced"] = lb.Reduced
		if lb.PctReduced != nil {
			v[k+"_pct_reduced"] = *lb.PctReduced
		}
	}
	return v
}

func edgeValues(e *Edge, cfg Config) map[string]float64 {
	v := make(map[string]float64, len(e.Extra)+len(e.Loads)+1)
	for k, x := range e.Extra {
		v[k] = x
	}
	v[cfg.VolumeAttribute] = e.Volume
	for k, x := range e.Loads {
		v[k] = x
	}
	return v
}

func copyLabels(m map[string]string) map[string]string {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
