package postgres

import "context"

// Rows are ordered by seq, not created_at: a bulk insert shares one transaction timestamp.
const schemaSQL = `
CREATE TABLE IF NOT EXISTS network_nodes (
    seq        BIGSERIAL,
    network_id TEXT NOT NULL,
    id         TEXT NOT NULL,
    data       JSONB NOT NULL DEFAULT '{}',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (network_id, id)
);

CREATE TABLE IF NOT EXISTS network_edges (
    seq          BIGSERIAL,
    network_id   TEXT NOT NULL,
    id           TEXT NOT NULL,
    from_node_id TEXT NOT NULL,
    to_node_id   TEXT NOT NULL,
    data         JSONB NOT NULL DEFAULT '{}',
    created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (network_id, id),
    FOREIGN KEY (network_id, from_node_id) REFERENCES network_nodes(network_id, id) ON DELETE CASCADE,
    FOREIGN KEY (network_id, to_node_id)   REFERENCES network_nodes(network_id, id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS network_results (
    network_id  TEXT PRIMARY KEY,
    config      JSONB NOT NULL,
    result      JSONB NOT NULL,
    diagnostics JSONB NOT NULL DEFAULT '[]',
    solved_at   TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_network_edges_from       ON network_edges(network_id, from_node_id);
CREATE INDEX IF NOT EXISTS idx_network_edges_to         ON network_edges(network_id, to_node_id);
`

// CreateSchema creates the network tables if they don't exist.
func (s *PGStore) CreateSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, schemaSQL)
	return err
}

// DropSchema drops the network tables.
func (s *PGStore) DropSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `DROP TABLE IF EXISTS network_results, network_edges, network_nodes CASCADE;`)
	return err
}
