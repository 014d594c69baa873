package stormdag

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"github.com/google/uuid"
)

// DAG is the JSON document form of a drainage network, as uploaded and stored.
type DAG struct {
	ID    string    `json:"id"`
	Nodes []DAGNode `json:"nodes"`
	Edges []DAGEdge `json:"edges"`
}

// DAGNode is a network element. Data holds its attributes as a JSON object,
// e.g. {"volume": 100, "load": 10, "xtype": "subcatchments"}.
type DAGNode struct {
	ID   string          `json:"id"`
	Data json.RawMessage `json:"data,omitempty"`
}

// DAGEdge is a conveyance link between two nodes.
// ID is a storage identity; the link identifier used for flag matching lives in Data.
type DAGEdge struct {
	ID         string          `json:"id,omitempty"`
	FromNodeID string          `json:"from_node_id"`
	ToNodeID   string          `json:"to_node_id"`
	Data       json.RawMessage `json:"data,omitempty"`
}

// AssignIDs fills in a uuid for the document and for every edge without an id.
func (d *DAG) AssignIDs() {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	for i := range d.Edges {
		if d.Edges[i].ID == "" {
			d.Edges[i].ID = uuid.NewString()
		}
	}
}

// Validate checks that node and edge ids are unique, every edge joins known
// nodes, and the edges form no cycle.
func (d *DAG) Validate() error {
	g := NewNetwork()
	for _, n := range d.Nodes {
		if err := g.AddNode(&Node{ID: n.ID}); err != nil {
			return err
		}
	}
	seen := make(map[string]bool, len(d.Edges))
	for _, e := range d.Edges {
		if e.ID != "" {
			if seen[e.ID] {
				return fmt.Errorf("%w: %s", ErrDuplicateEdge, e.ID)
			}
			seen[e.ID] = true
		}
		if _, err := g.AddEdge(&Edge{From: e.FromNodeID, To: e.ToNodeID}); err != nil {
			return err
		}
	}
	_, err := TopologicalOrder(g)
	return err
}

// Clone returns a copy that shares no slices with d.
func (d *DAG) Clone() *DAG {
	c := &DAG{ID: d.ID}
	c.Nodes = make([]DAGNode, len(d.Nodes))
	for i, n := range d.Nodes {
		c.Nodes[i] = DAGNode{ID: n.ID, Data: append(json.RawMessage(nil), n.Data...)}
	}
	c.Edges = make([]DAGEdge, len(d.Edges))
	for i, e := range d.Edges {
		e.Data = append(json.RawMessage(nil), e.Data...)
		c.Edges[i] = e
	}
	return c
}

// Build converts a document into a Network, reading the attributes named by cfg
// into typed fields and classifying every edge.
func Build(d *DAG, cfg Config) (*Network, error) {
	loads := make(map[string]bool, len(cfg.LoadAttributes))
	for _, l := range cfg.LoadAttributes {
		loads[l] = true
	}
	check := checkAttr(cfg.VolumeAttribute)

	n := NewNetwork()
	for _, dn := range d.Nodes {
		attrs, err := decodeAttrs(dn.Data)
		if err != nil {
			return nil, fmt.Errorf("stormdag: node %s: %w", dn.ID, err)
		}
		node := &Node{ID: dn.ID}
		for _, k := range sortedKeys(attrs) {
			v := attrs[k]
			f, isNum := v.(float64)
			switch {
			case isNum && k == cfg.VolumeAttribute:
				node.Volume, node.HasVolume = f, true
			case isNum && k == check:
				node.ExpectedVolume = &f
			case isNum && loads[k]:
				node.setLoad(k, f)
			default:
				node.setAttr(k, v)
			}
		}
		if err := n.AddNode(node); err != nil {
			return nil, err
		}
	}

	for _, de := range d.Edges {
		attrs, err := decodeAttrs(de.Data)
		if err != nil {
			return nil, fmt.Errorf("stormdag: edge %s: %w", de.ID, err)
		}
		edge := &Edge{ID: de.ID, From: de.FromNodeID, To: de.ToNodeID}
		for _, k := range sortedKeys(attrs) {
			v := attrs[k]
			f, isNum := v.(float64)
			switch {
			case isNum && k == cfg.VolumeAttribute:
				edge.Volume = f
			case isNum && loads[k]:
				edge.setLoad(k, f)
			case k == cfg.NameAttribute:
				// The link identifier is a label whatever its JSON type.
				if name, ok := labelValue(v); ok {
					edge.setLabel(k, name)
				}
			default:
				edge.setAttr(k, v)
			}
		}
		edge.Flags = Classify(edge.Name(cfg.NameAttribute), cfg)
		if _, err := n.AddEdge(edge); err != nil {
			return nil, err
		}
	}

	return n, nil
}

// docID is a document identifier. JSON integers are accepted and rendered as strings.
type docID string

func (id *docID) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = docID(s)
		return nil
	}
	if string(b) == "null" {
		*id = ""
		return nil
	}
	if n, err := strconv.ParseInt(string(b), 10, 64); err == nil {
		*id = docID(strconv.FormatInt(n, 10))
		return nil
	}
	return fmt.Errorf("stormdag: id %s is neither a string nor an integer", b)
}

// UnmarshalJSON accepts string or integer node ids.
func (n *DAGNode) UnmarshalJSON(b []byte) error {
	var doc struct {
		ID   docID           `json:"id"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(b, &doc); err != nil {
		return err
	}
	*n = DAGNode{ID: string(doc.ID), Data: doc.Data}
	return nil
}

// UnmarshalJSON accepts string or integer edge and endpoint ids.
func (e *DAGEdge) UnmarshalJSON(b []byte) error {
	var doc struct {
		ID         docID           `json:"id"`
		FromNodeID docID           `json:"from_node_id"`
		ToNodeID   docID           `json:"to_node_id"`
		Data       json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(b, &doc); err != nil {
		return err
	}
	*e = DAGEdge{
		ID:         string(doc.ID),
		FromNodeID: string(doc.FromNodeID),
		ToNodeID:   string(doc.ToNodeID),
		Data:       doc.Data,
	}
	return nil
}

func decodeAttrs(raw json.RawMessage) (map[string]any, error) {
	attrs := map[string]any{}
	if len(raw) == 0 || string(raw) == "null" {
		return attrs, nil
	}
	if err := json.Unmarshal(raw, &attrs); err != nil {
		return nil, fmt.Errorf("decode data: %w", err)
	}
	return attrs, nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// labelValue renders non-numeric attribute values as strings.
func labelValue(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, true
	case bool:
		return strconv.FormatBool(x), true
	case nil:
		return "", false
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return "", false
		}
		return string(b), true
	}
}
