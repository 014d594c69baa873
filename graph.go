package stormdag

import (
	"fmt"
	"strings"
)

// Graph is the read/write surface the engine and assembler need from a network.
type Graph interface {
	Nodes() []*Node
	Node(id string) (*Node, bool)
	Edges() []*Edge
	EdgesIn(id string) []*Edge
	EdgesOut(id string) []*Edge
	Successors(id string) []string
	Predecessors(id string) []string
}

// Node is a network element: subcatchment, junction, BMP device or outfall.
type Node struct {
	ID string

	// Volume is the source volume before a solve and the inflow volume after it.
	Volume    float64
	HasVolume bool

	// ExpectedVolume is an external reference used only for the percent-difference check.
	ExpectedVolume *float64

	// Loads holds source loads per pollutant; after a solve, the inflow load.
	Loads map[string]float64

	Labels map[string]string
	Extra  map[string]float64

	Result *NodeResult
}

func (n *Node) setLoad(k string, v float64) {
	if n.Loads == nil {
		n.Loads = map[string]float64{}
	}
	n.Loads[k] = v
}

func (n *Node) setAttr(k string, v any) {
	if f, ok := v.(float64); ok {
		if n.Extra == nil {
			n.Extra = map[string]float64{}
		}
		n.Extra[k] = f
		return
	}
	if s, ok := labelValue(v); ok {
		if n.Labels == nil {
			n.Labels = map[string]string{}
		}
		n.Labels[k] = s
	}
}

// NodeResult is what a solve computes for one node.
type NodeResult struct {
	VolumeIn      float64
	PctVolumeDiff float64

	// Flowing is false when no volume reached the node; nothing else is set then.
	Flowing bool
	Outfall bool

	// Volume is nil when the node is not flowing or no pollutant is tracked.
	Volume *VolumeBalance

	// Loads is keyed by pollutant.
	Loads map[string]*LoadBalance
}

// VolumeBalance is the outflow-side volume accounting of a node.
type VolumeBalance struct {
	Out         float64
	Reduced     float64
	Treated     float64
	Captured    float64
	PctReduced  float64
	PctTreated  float64
	PctCaptured float64
}

// LoadBalance is the accounting of one pollutant at a node.
type LoadBalance struct {
	In            float64
	Concentration float64
	Out           float64
	Reduced       float64

	// PctReduced is only defined when In > 0.
	PctReduced *float64
}

// Edge is a conveyance link. Key tells parallel edges between the same pair apart.
type Edge struct {
	ID   string
	From string
	To   string
	Key  int

	Volume float64

	// Loads holds carried loads; a present key means the edge already carries a value.
	Loads map[string]float64

	Labels map[string]string
	Extra  map[string]float64

	Flags EdgeFlags
}

// Name returns the identifier stored under the given label, or "".
func (e *Edge) Name(attr string) string {
	return e.Labels[attr]
}

// Load returns the carried load for a pollutant and whether one is set.
func (e *Edge) Load(k string) (float64, bool) {
	v, ok := e.Loads[k]
	return v, ok
}

func (e *Edge) setLoad(k string, v float64) {
	if e.Loads == nil {
		e.Loads = map[string]float64{}
	}
	e.Loads[k] = v
}

func (e *Edge) setAttr(k string, v any) {
	if f, ok := v.(float64); ok {
		if e.Extra == nil {
			e.Extra = map[string]float64{}
		}
		e.Extra[k] = f
		return
	}
	if s, ok := labelValue(v); ok {
		e.setLabel(k, s)
	}
}

func (e *Edge) setLabel(k, v string) {
	if e.Labels == nil {
		e.Labels = map[string]string{}
	}
	e.Labels[k] = v
}

// label returns the edge identifier used as its row id, falling back to the storage id.
func (e *Edge) label(attr string) string {
	if s, ok := e.Labels[attr]; ok {
		return s
	}
	return e.ID
}

// Network is an owned directed multigraph of nodes and edges.
// Nodes and edges keep their insertion order.
type Network struct {
	nodes []*Node
	index map[string]*Node
	edges []*Edge
	out   map[string][]*Edge
	in    map[string][]*Edge
}

// NewNetwork creates an empty network.
func NewNetwork() *Network {
	return &Network{
		index: map[string]*Node{},
		out:   map[string][]*Edge{},
		in:    map[string][]*Edge{},
	}
}

// AddNode inserts a node. Returns ErrDuplicateNode if the id is taken.
func (g *Network) AddNode(n *Node) error {
	if _, ok := g.index[n.ID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateNode, n.ID)
	}
	g.nodes = append(g.nodes, n)
	g.index[n.ID] = n
	return nil
}

// AddEdge inserts an edge between two existing nodes and returns its multi-edge key.
func (g *Network) AddEdge(e *Edge) (int, error) {
	if _, ok := g.index[e.From]; !ok {
		return 0, fmt.Errorf("%w: %s", ErrNodeNotFound, e.From)
	}
	if _, ok := g.index[e.To]; !ok {
		return 0, fmt.Errorf("%w: %s", ErrNodeNotFound, e.To)
	}
	key := 0
	for _, x := range g.out[e.From] {
		if x.To == e.To {
			key++
		}
	}
	e.Key = key
	g.edges = append(g.edges, e)
	g.out[e.From] = append(g.out[e.From], e)
	g.in[e.To] = append(g.in[e.To], e)
	return key, nil
}

// Nodes returns the nodes in insertion order.
func (g *Network) Nodes() []*Node { return g.nodes }

// Edges returns the edges in insertion order.
func (g *Network) Edges() []*Edge { return g.edges }

// Node looks a node up by id.
func (g *Network) Node(id string) (*Node, bool) {
	n, ok := g.index[id]
	return n, ok
}

// EdgesIn returns the edges arriving at a node.
func (g *Network) EdgesIn(id string) []*Edge { return g.in[id] }

// EdgesOut returns the edges leaving a node.
func (g *Network) EdgesOut(id string) []*Edge { return g.out[id] }

// Successors returns the distinct downstream neighbours of a node.
func (g *Network) Successors(id string) []string {
	return distinct(g.out[id], func(e *Edge) string { return e.To })
}

// Predecessors returns the distinct upstream neighbours of a node.
func (g *Network) Predecessors(id string) []string {
	return distinct(g.in[id], func(e *Edge) string { return e.From })
}

func distinct(edges []*Edge, end func(*Edge) string) []string {
	seen := make(map[string]bool, len(edges))
	ids := make([]string, 0, len(edges))
	for _, e := range edges {
		id := end(e)
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids
}

// TopologicalOrder returns the nodes so that every node follows all of its
// predecessors. Ties are broken by insertion order. A cycle yields ErrCycleDetected.
func TopologicalOrder(g Graph) ([]*Node, error) {
	nodes := g.Nodes()
	indeg := make(map[string]int, len(nodes))
	for _, n := range nodes {
		indeg[n.ID] = len(g.EdgesIn(n.ID))
	}

	queue := make([]*Node, 0, len(nodes))
	for _, n := range nodes {
		if indeg[n.ID] == 0 {
			queue = append(queue, n)
		}
	}

	order := make([]*Node, 0, len(nodes))
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		order = append(order, n)
		for _, e := range g.EdgesOut(n.ID) {
			indeg[e.To]--
			if indeg[e.To] == 0 {
				next, _ := g.Node(e.To)
				queue = append(queue, next)
			}
		}
	}

	if len(order) < len(nodes) {
		var stuck []string
		for _, n := range nodes {
			if indeg[n.ID] > 0 {
				stuck = append(stuck, n.ID)
			}
		}
		return nil, fmt.Errorf("%w: unresolved nodes %s", ErrCycleDetected, strings.Join(stuck, ", "))
	}
	return order, nil
}
