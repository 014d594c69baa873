package stormdag

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors returned by the engine and the stores.
var (
	ErrCycleDetected    = errors.New("stormdag: cycle detected, network is not acyclic")
	ErrNodeNotFound     = errors.New("stormdag: node not found")
	ErrEdgeNotFound     = errors.New("stormdag: edge not found")
	ErrDuplicateNode    = errors.New("stormdag: duplicate node")
	ErrDuplicateEdge    = errors.New("stormdag: duplicate edge")
	ErrNetworkNotFound  = errors.New("stormdag: network not found")
	ErrMissingAttribute = errors.New("stormdag: edge is missing filter attribute")
	ErrInvalidConfig    = errors.New("stormdag: invalid config")
	ErrUnitMismatch     = errors.New("stormdag: unit mismatch")
	ErrNotSolved        = errors.New("stormdag: network has not been solved")
)

// Solution is a solved network as persisted by a Store.
type Solution struct {
	NetworkID   string      `json:"network_id"`
	Config      Config      `json:"config"`
	Table       *Table      `json:"table"`
	Diagnostics Diagnostics `json:"diagnostics"`
	SolvedAt    time.Time   `json:"solved_at"`
}

// Clone returns a copy that shares no table rows or diagnostics with s.
func (s *Solution) Clone() *Solution {
	c := *s
	c.Config = s.Config.Clone()
	c.Table = s.Table.Clone()
	c.Diagnostics = append(Diagnostics(nil), s.Diagnostics...)
	return &c
}

// Store defines the contract for persisting network documents and their solutions.
type Store interface {
	// Schema
	CreateSchema(ctx context.Context) error
	DropSchema(ctx context.Context) error

	// Network (bulk operations)
	CreateNetwork(ctx context.Context, d *DAG) (*DAG, error)
	GetNetwork(ctx context.Context, networkID string) (*DAG, error)
	DeleteNetwork(ctx context.Context, networkID string) error

	// Nodes
	AddNode(ctx context.Context, networkID string, node *DAGNode) error
	GetNode(ctx context.Context, networkID, nodeID string) (*DAGNode, error)
	UpdateNode(ctx context.Context, networkID string, node *DAGNode) error
	DeleteNode(ctx context.Context, networkID, nodeID string) error
	ListNodes(ctx context.Context, networkID string) ([]DAGNode, error)

	// Edges
	AddEdge(ctx context.Context, networkID string, edge *DAGEdge) (string, error)
	GetEdge(ctx context.Context, networkID, edgeID string) (*DAGEdge, error)
	UpdateEdge(ctx context.Context, networkID string, edge *DAGEdge) error
	DeleteEdge(ctx context.Context, networkID, edgeID string) error
	ListEdges(ctx context.Context, networkID string) ([]DAGEdge, error)

	// Results
	SaveResults(ctx context.Context, s *Solution) error
	GetResults(ctx context.Context, networkID string) (*Solution, error)
}
