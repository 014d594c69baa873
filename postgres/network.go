package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/meikuraledutech/stormdag"
)

// CreateNetwork saves a full network (nodes + edges) in one transaction.
// The network and edges without IDs get auto-generated UUIDs.
// Replaces any network stored under the same ID, dropping its solution.
func (s *PGStore) CreateNetwork(ctx context.Context, d *stormdag.DAG) (*stormdag.DAG, error) {
	d.AssignIDs()
	if err := d.Validate(); err != nil {
		return nil, err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("stormdag: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := deleteNetwork(ctx, tx, d.ID); err != nil {
		return nil, err
	}

	for _, n := range d.Nodes {
		if _, err := tx.Exec(ctx,
			`INSERT INTO network_nodes (network_id, id, data) VALUES ($1, $2, $3)`,
			d.ID, n.ID, jsonb(n.Data),
		); err != nil {
			if dup := asDuplicate(err, n.ID); dup != nil {
				return nil, dup
			}
			return nil, fmt.Errorf("stormdag: insert node %s: %w", n.ID, err)
		}
	}

	for _, e := range d.Edges {
		if _, err := tx.Exec(ctx,
			`INSERT INTO network_edges (network_id, id, from_node_id, to_node_id, data) VALUES ($1, $2, $3, $4, $5)`,
			d.ID, e.ID, e.FromNodeID, e.ToNodeID, jsonb(e.Data),
		); err != nil {
			if dup := asDuplicate(err, e.ID); dup != nil {
				return nil, dup
			}
			return nil, fmt.Errorf("stormdag: insert edge %s: %w", e.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("stormdag: commit: %w", err)
	}
	return d, nil
}

// GetNetwork retrieves a full network by its ID.
// Returns nil, nil if no nodes exist for the networkID.
func (s *PGStore) GetNetwork(ctx context.Context, networkID string) (*stormdag.DAG, error) {
	nodes, err := s.ListNodes(ctx, networkID)
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, nil
	}
	edges, err := s.ListEdges(ctx, networkID)
	if err != nil {
		return nil, err
	}
	return &stormdag.DAG{ID: networkID, Nodes: nodes, Edges: edges}, nil
}

// DeleteNetwork removes all nodes, edges and the solution for a networkID.
// No error if the networkID doesn't exist.
func (s *PGStore) DeleteNetwork(ctx context.Context, networkID string) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("stormdag: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := deleteNetwork(ctx, tx, networkID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func deleteNetwork(ctx context.Context, tx pgx.Tx, networkID string) error {
	for _, table := range []string{"network_results", "network_edges", "network_nodes"} {
		if _, err := tx.Exec(ctx, `DELETE FROM `+table+` WHERE network_id = $1`, networkID); err != nil {
			return fmt.Errorf("stormdag: delete %s: %w", table, err)
		}
	}
	return nil
}

// jsonb maps an absent data object to an empty one.
func jsonb(raw []byte) []byte {
	if len(raw) == 0 {
		return []byte(`{}`)
	}
	return raw
}
