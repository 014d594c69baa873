package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/meikuraledutech/stormdag"
)

// SaveResults stores the solution of a network, replacing the previous one.
func (s *PGStore) SaveResults(ctx context.Context, sol *stormdag.Solution) error {
	cfg, err := json.Marshal(sol.Config)
	if err != nil {
		return fmt.Errorf("stormdag: encode config: %w", err)
	}
	table, err := json.Marshal(sol.Table)
	if err != nil {
		return fmt.Errorf("stormdag: encode table: %w", err)
	}
	diags := sol.Diagnostics
	if diags == nil {
		diags = stormdag.Diagnostics{}
	}
	diagJSON, err := json.Marshal(diags)
	if err != nil {
		return fmt.Errorf("stormdag: encode diagnostics: %w", err)
	}

	var exists bool
	if err := s.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM network_nodes WHERE network_id = $1)`, sol.NetworkID,
	).Scan(&exists); err != nil {
		return fmt.Errorf("stormdag: find network: %w", err)
	}
	if !exists {
		return stormdag.ErrNetworkNotFound
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO network_results (network_id, config, result, diagnostics, solved_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (network_id) DO UPDATE
		SET config = EXCLUDED.config, result = EXCLUDED.result,
		    diagnostics = EXCLUDED.diagnostics, solved_at = EXCLUDED.solved_at`,
		sol.NetworkID, cfg, table, diagJSON, sol.SolvedAt,
	)
	if err != nil {
		return fmt.Errorf("stormdag: save results: %w", err)
	}
	return nil
}

// GetResults fetches the last solution of a network.
// Returns nil, nil if the network was never solved.
func (s *PGStore) GetResults(ctx context.Context, networkID string) (*stormdag.Solution, error) {
	sol := &stormdag.Solution{NetworkID: networkID}
	var cfg, table, diags []byte
	err := s.db.QueryRow(ctx,
		`SELECT config, result, diagnostics, solved_at FROM network_results WHERE network_id = $1`, networkID,
	).Scan(&cfg, &table, &diags, &sol.SolvedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("stormdag: get results: %w", err)
	}

	if err := json.Unmarshal(cfg, &sol.Config); err != nil {
		return nil, fmt.Errorf("stormdag: decode config: %w", err)
	}
	if err := json.Unmarshal(table, &sol.Table); err != nil {
		return nil, fmt.Errorf("stormdag: decode table: %w", err)
	}
	if err := json.Unmarshal(diags, &sol.Diagnostics); err != nil {
		return nil, fmt.Errorf("stormdag: decode diagnostics: %w", err)
	}
	return sol, nil
}
