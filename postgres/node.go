package postgres

import (
	"context"
	"fmt"

	"github.com/meikuraledutech/stormdag"
)

// AddNode inserts a single node into a network.
// Returns ErrDuplicateNode if the ID is already used in that network.
func (s *PGStore) AddNode(ctx context.Context, networkID string, node *stormdag.DAGNode) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO network_nodes (network_id, id, data) VALUES ($1, $2, $3)`,
		networkID, node.ID, jsonb(node.Data),
	)
	if err != nil {
		if dup := asDuplicate(err, node.ID); dup != nil {
			return dup
		}
		return fmt.Errorf("stormdag: insert node: %w", err)
	}
	return nil
}

// GetNode fetches a single node of a network.
// Returns nil, nil if not found.
func (s *PGStore) GetNode(ctx context.Context, networkID, nodeID string) (*stormdag.DAGNode, error) {
	var n stormdag.DAGNode
	err := s.db.QueryRow(ctx,
		`SELECT id, data FROM network_nodes WHERE network_id = $1 AND id = $2`, networkID, nodeID,
	).Scan(&n.ID, &n.Data)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("stormdag: get node: %w", err)
	}
	return &n, nil
}

// UpdateNode replaces the data of an existing node.
// Returns ErrNodeNotFound if the node doesn't exist.
func (s *PGStore) UpdateNode(ctx context.Context, networkID string, node *stormdag.DAGNode) error {
	ct, err := s.db.Exec(ctx,
		`UPDATE network_nodes SET data = $1 WHERE network_id = $2 AND id = $3`,
		jsonb(node.Data), networkID, node.ID,
	)
	if err != nil {
		return fmt.Errorf("stormdag: update node: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", stormdag.ErrNodeNotFound, node.ID)
	}
	return nil
}

// DeleteNode deletes a node of a network.
// Associated edges are cascade-deleted by the DB.
// No error if the node doesn't exist.
func (s *PGStore) DeleteNode(ctx context.Context, networkID, nodeID string) error {
	_, err := s.db.Exec(ctx,
		`DELETE FROM network_nodes WHERE network_id = $1 AND id = $2`, networkID, nodeID)
	if err != nil {
		return fmt.Errorf("stormdag: delete node: %w", err)
	}
	return nil
}

// ListNodes returns all nodes for a networkID in insertion order.
// Returns an empty slice (not nil) if none found.
func (s *PGStore) ListNodes(ctx context.Context, networkID string) ([]stormdag.DAGNode, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, data FROM network_nodes WHERE network_id = $1 ORDER BY seq`, networkID)
	if err != nil {
		return nil, fmt.Errorf("stormdag: list nodes: %w", err)
	}
	defer rows.Close()

	nodes := []stormdag.DAGNode{}
	for rows.Next() {
		var n stormdag.DAGNode
		if err := rows.Scan(&n.ID, &n.Data); err != nil {
			return nil, fmt.Errorf("stormdag: scan node: %w", err)
		}
		nodes = append(nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("stormdag: rows nodes: %w", err)
	}

	return nodes, nil
}
