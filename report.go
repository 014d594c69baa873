package stormdag

import "time"

// Report owns a network and its config, runs solves over it, and memoizes the
// result table. It is not safe for concurrent use.
type Report struct {
	g   *Network
	cfg Config
	obs Observer

	solved   bool
	solvedAt time.Time
	diags    Diagnostics
	table    *Table
}

// ReportOption configures a Report.
type ReportOption func(*Report)

// WithObserver delivers diagnostics to fn as they are raised.
func WithObserver(fn Observer) ReportOption {
	return func(r *Report) { r.obs = fn }
}

// NewReport wraps a populated network.
func NewReport(g *Network, cfg Config, opts ...ReportOption) *Report {
	r := &Report{g: g, cfg: cfg}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Solve propagates volumes and loads and drops any cached table. Solving twice
// without rebuilding the network is not idempotent.
func (r *Report) Solve() error {
	diags, err := PropagateWith(r.g, r.cfg, r.obs)
	if err != nil {
		return err
	}
	r.Invalidate()
	r.solved = true
	r.solvedAt = time.Now().UTC()
	r.diags = diags
	return nil
}

// Results returns the result table, solving first if needed. The table is
// computed once and reused until Invalidate or the next Solve.
func (r *Report) Results() (*Table, error) {
	if !r.solved {
		if err := r.Solve(); err != nil {
			return nil, err
		}
	}
	if r.table == nil {
		r.table = Assemble(r.g, r.cfg)
	}
	return r.table, nil
}

// Invalidate drops the cached table.
func (r *Report) Invalidate() { r.table = nil }

// Diagnostics returns what the last solve reported.
func (r *Report) Diagnostics() Diagnostics { return r.diags }

// Network returns the annotated network.
func (r *Report) Network() *Network { return r.g }

// Solution packages the last solve for persistence.
func (r *Report) Solution(networkID string) (*Solution, error) {
	if !r.solved {
		return nil, ErrNotSolved
	}
	t, err := r.Results()
	if err != nil {
		return nil, err
	}
	return &Solution{
		NetworkID:   networkID,
		Config:      r.cfg,
		Table:       t,
		Diagnostics: r.diags,
		SolvedAt:    r.solvedAt,
	}, nil
}
