// Package memory implements stormdag.Store in process memory.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/meikuraledutech/stormdag"
)

// MemStore keeps networks and solutions in maps. It is safe for concurrent use.
type MemStore struct {
	mu       sync.RWMutex
	networks map[string]*stormdag.DAG
	results  map[string]*stormdag.Solution
}

// New creates an empty MemStore.
func New() *MemStore {
	return &MemStore{
		networks: map[string]*stormdag.DAG{},
		results:  map[string]*stormdag.Solution{},
	}
}

// CreateSchema is a no-op; the maps exist from New.
func (s *MemStore) CreateSchema(ctx context.Context) error { return nil }

// DropSchema forgets everything.
func (s *MemStore) DropSchema(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.networks = map[string]*stormdag.DAG{}
	s.results = map[string]*stormdag.Solution{}
	return nil
}

// CreateNetwork stores a validated copy of d, replacing any network with the
// same id and its solution.
func (s *MemStore) CreateNetwork(ctx context.Context, d *stormdag.DAG) (*stormdag.DAG, error) {
	d.AssignIDs()
	if err := d.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.networks[d.ID] = d.Clone()
	delete(s.results, d.ID)
	return d, nil
}

// GetNetwork returns nil, nil if the network does not exist.
func (s *MemStore) GetNetwork(ctx context.Context, networkID string) (*stormdag.DAG, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.networks[networkID]
	if !ok {
		return nil, nil
	}
	return d.Clone(), nil
}

// DeleteNetwork removes a network and its solution.
// No error if the network doesn't exist.
func (s *MemStore) DeleteNetwork(ctx context.Context, networkID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.networks, networkID)
	delete(s.results, networkID)
	return nil
}

// ── Nodes ─────────────────────────────────────────────────────────────

// AddNode appends a node to an existing network.
// Returns ErrDuplicateNode if the id is already used in that network.
func (s *MemStore) AddNode(ctx context.Context, networkID string, node *stormdag.DAGNode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.networks[networkID]
	if !ok {
		return stormdag.ErrNetworkNotFound
	}
	if nodeIndex(d, node.ID) >= 0 {
		return fmt.Errorf("%w: %s", stormdag.ErrDuplicateNode, node.ID)
	}
	d.Nodes = append(d.Nodes, stormdag.DAGNode{ID: node.ID, Data: clone(node.Data)})
	return nil
}

// GetNode returns nil, nil if the node is not in the network.
func (s *MemStore) GetNode(ctx context.Context, networkID, nodeID string) (*stormdag.DAGNode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.networks[networkID]
	if !ok {
		return nil, nil
	}
	i := nodeIndex(d, nodeID)
	if i < 0 {
		return nil, nil
	}
	return &stormdag.DAGNode{ID: nodeID, Data: clone(d.Nodes[i].Data)}, nil
}

// UpdateNode replaces the data of an existing node.
// Returns ErrNodeNotFound if the node doesn't exist.
func (s *MemStore) UpdateNode(ctx context.Context, networkID string, node *stormdag.DAGNode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.networks[networkID]
	if !ok {
		return stormdag.ErrNodeNotFound
	}
	i := nodeIndex(d, node.ID)
	if i < 0 {
		return fmt.Errorf("%w: %s", stormdag.ErrNodeNotFound, node.ID)
	}
	d.Nodes[i].Data = clone(node.Data)
	return nil
}

// DeleteNode removes a node and every edge touching it.
// No error if the node doesn't exist.
func (s *MemStore) DeleteNode(ctx context.Context, networkID, nodeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.networks[networkID]
	if !ok {
		return nil
	}
	i := nodeIndex(d, nodeID)
	if i < 0 {
		return nil
	}
	d.Nodes = append(d.Nodes[:i:i], d.Nodes[i+1:]...)
	edges := d.Edges[:0:0]
	for _, e := range d.Edges {
		if e.FromNodeID != nodeID && e.ToNodeID != nodeID {
			edges = append(edges, e)
		}
	}
	d.Edges = edges
	return nil
}

// ListNodes returns an empty slice (not nil) if none found.
func (s *MemStore) ListNodes(ctx context.Context, networkID string) ([]stormdag.DAGNode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	nodes := []stormdag.DAGNode{}
	if d, ok := s.networks[networkID]; ok {
		nodes = append(nodes, d.Clone().Nodes...)
	}
	return nodes, nil
}

// ── Edges ─────────────────────────────────────────────────────────────

// AddEdge appends an edge after checking it keeps the network acyclic.
// If edge.ID is empty, a UUID is auto-generated.
func (s *MemStore) AddEdge(ctx context.Context, networkID string, edge *stormdag.DAGEdge) (string, error) {
	if edge.ID == "" {
		edge.ID = uuid.NewString()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.networks[networkID]
	if !ok {
		return "", stormdag.ErrNetworkNotFound
	}
	next := d.Clone()
	next.Edges = append(next.Edges, *edge)
	if err := next.Validate(); err != nil {
		return "", err
	}
	s.networks[networkID] = next
	return edge.ID, nil
}

// GetEdge returns nil, nil if the edge is not in the network.
func (s *MemStore) GetEdge(ctx context.Context, networkID, edgeID string) (*stormdag.DAGEdge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.networks[networkID]
	if !ok {
		return nil, nil
	}
	i := edgeIndex(d, edgeID)
	if i < 0 {
		return nil, nil
	}
	e := d.Edges[i]
	e.Data = clone(e.Data)
	return &e, nil
}

// UpdateEdge replaces the endpoints and data of an existing edge.
// Validates that the update does not create a cycle.
// Returns ErrEdgeNotFound if the edge doesn't exist.
func (s *MemStore) UpdateEdge(ctx context.Context, networkID string, edge *stormdag.DAGEdge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.networks[networkID]
	if !ok {
		return stormdag.ErrEdgeNotFound
	}
	i := edgeIndex(d, edge.ID)
	if i < 0 {
		return fmt.Errorf("%w: %s", stormdag.ErrEdgeNotFound, edge.ID)
	}
	next := d.Clone()
	next.Edges[i] = stormdag.DAGEdge{
		ID:         edge.ID,
		FromNodeID: edge.FromNodeID,
		ToNodeID:   edge.ToNodeID,
		Data:       clone(edge.Data),
	}
	if err := next.Validate(); err != nil {
		return err
	}
	s.networks[networkID] = next
	return nil
}

// DeleteEdge removes an edge. No error if the edge doesn't exist.
func (s *MemStore) DeleteEdge(ctx context.Context, networkID, edgeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.networks[networkID]
	if !ok {
		return nil
	}
	if i := edgeIndex(d, edgeID); i >= 0 {
		d.Edges = append(d.Edges[:i:i], d.Edges[i+1:]...)
	}
	return nil
}

// ListEdges returns an empty slice (not nil) if none found.
func (s *MemStore) ListEdges(ctx context.Context, networkID string) ([]stormdag.DAGEdge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	edges := []stormdag.DAGEdge{}
	if d, ok := s.networks[networkID]; ok {
		edges = append(edges, d.Clone().Edges...)
	}
	return edges, nil
}

// ── Results ───────────────────────────────────────────────────────────

// SaveResults stores a copy of the solution, replacing the previous one.
// Returns ErrNetworkNotFound if the network doesn't exist.
func (s *MemStore) SaveResults(ctx context.Context, sol *stormdag.Solution) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.networks[sol.NetworkID]; !ok {
		return stormdag.ErrNetworkNotFound
	}
	s.results[sol.NetworkID] = sol.Clone()
	return nil
}

// GetResults returns nil, nil if the network was never solved.
func (s *MemStore) GetResults(ctx context.Context, networkID string) (*stormdag.Solution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sol, ok := s.results[networkID]
	if !ok {
		return nil, nil
	}
	return sol.Clone(), nil
}

func nodeIndex(d *stormdag.DAG, id string) int {
	for i, n := range d.Nodes {
		if n.ID == id {
			return i
		}
	}
	return -1
}

func edgeIndex(d *stormdag.DAG, id string) int {
	for i, e := range d.Edges {
		if e.ID == id {
			return i
		}
	}
	return -1
}

func clone(raw []byte) []byte {
	if raw == nil {
		return nil
	}
	return append([]byte(nil), raw...)
}

var _ stormdag.Store = (*MemStore)(nil)
