package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/meikuraledutech/stormdag"
)

// AddEdge inserts a single edge into a network.
// If edge.ID is empty, a UUID is auto-generated.
// Validates that adding this edge does not create a cycle.
func (s *PGStore) AddEdge(ctx context.Context, networkID string, edge *stormdag.DAGEdge) (string, error) {
	if edge.ID == "" {
		edge.ID = uuid.NewString()
	}

	d, err := s.GetNetwork(ctx, networkID)
	if err != nil {
		return "", err
	}
	if d == nil {
		return "", stormdag.ErrNetworkNotFound
	}
	d.Edges = append(d.Edges, *edge)
	if err := d.Validate(); err != nil {
		return "", err
	}

	_, err = s.db.Exec(ctx,
		`INSERT INTO network_edges (network_id, id, from_node_id, to_node_id, data) VALUES ($1, $2, $3, $4, $5)`,
		networkID, edge.ID, edge.FromNodeID, edge.ToNodeID, jsonb(edge.Data),
	)
	if err != nil {
		if dup := asDuplicate(err, edge.ID); dup != nil {
			return "", dup
		}
		return "", fmt.Errorf("stormdag: insert edge: %w", err)
	}

	return edge.ID, nil
}

// GetEdge fetches a single edge of a network.
// Returns nil, nil if not found.
func (s *PGStore) GetEdge(ctx context.Context, networkID, edgeID string) (*stormdag.DAGEdge, error) {
	var e stormdag.DAGEdge
	err := s.db.QueryRow(ctx,
		`SELECT id, from_node_id, to_node_id, data FROM network_edges WHERE network_id = $1 AND id = $2`,
		networkID, edgeID,
	).Scan(&e.ID, &e.FromNodeID, &e.ToNodeID, &e.Data)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("stormdag: get edge: %w", err)
	}
	return &e, nil
}

// UpdateEdge replaces the endpoints and data of an existing edge.
// Validates that the update does not create a cycle.
// Returns ErrEdgeNotFound if the edge doesn't exist.
func (s *PGStore) UpdateEdge(ctx context.Context, networkID string, edge *stormdag.DAGEdge) error {
	d, err := s.GetNetwork(ctx, networkID)
	if err != nil {
		return err
	}
	found := false
	if d != nil {
		for i, e := range d.Edges {
			if e.ID == edge.ID {
				d.Edges[i] = *edge
				found = true
				break
			}
		}
	}
	if !found {
		return fmt.Errorf("%w: %s", stormdag.ErrEdgeNotFound, edge.ID)
	}
	if err := d.Validate(); err != nil {
		return err
	}

	ct, err := s.db.Exec(ctx,
		`UPDATE network_edges SET from_node_id = $1, to_node_id = $2, data = $3 WHERE network_id = $4 AND id = $5`,
		edge.FromNodeID, edge.ToNodeID, jsonb(edge.Data), networkID, edge.ID,
	)
	if err != nil {
		return fmt.Errorf("stormdag: update edge: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", stormdag.ErrEdgeNotFound, edge.ID)
	}
	return nil
}

// DeleteEdge deletes an edge of a network.
// No error if the edge doesn't exist.
func (s *PGStore) DeleteEdge(ctx context.Context, networkID, edgeID string) error {
	_, err := s.db.Exec(ctx,
		`DELETE FROM network_edges WHERE network_id = $1 AND id = $2`, networkID, edgeID)
	if err != nil {
		return fmt.Errorf("stormdag: delete edge: %w", err)
	}
	return nil
}

// ListEdges returns all edges for a networkID in insertion order.
// Returns an empty slice (not nil) if none found.
func (s *PGStore) ListEdges(ctx context.Context, networkID string) ([]stormdag.DAGEdge, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, from_node_id, to_node_id, data FROM network_edges WHERE network_id = $1 ORDER BY seq`, networkID)
	if err != nil {
		return nil, fmt.Errorf("stormdag: list edges: %w", err)
	}
	defer rows.Close()

	edges := []stormdag.DAGEdge{}
	for rows.Next() {
		var e stormdag.DAGEdge
		if err := rows.Scan(&e.ID, &e.FromNodeID, &e.ToNodeID, &e.Data); err != nil {
			return nil, fmt.Errorf("stormdag: scan edge: %w", err)
		}
		edges = append(edges, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("stormdag: rows edges: %w", err)
	}

	return edges, nil
}
