package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/meikuraledutech/stormdag"
	"github.com/meikuraledutech/stormdag/internal/logging"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd(os.Stderr).Execute(); err != nil {
		os.Exit(1)
	}
}

type solveOptions struct {
	network    string
	config     string
	quality    string
	kind       string
	pollutants []string
	full       bool
}

func newRootCmd(logOut io.Writer) *cobra.Command {
	var logLevel string
	root := &cobra.Command{
		Use:          "stormdag",
		Short:        "Route stormwater volume and pollutant loads through a drainage network",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")

	logger := func() logging.Logger {
		return logging.New(logging.Config{Level: logLevel, Format: "text", Output: logOut})
	}

	var opts solveOptions
	solve := &cobra.Command{
		Use:   "solve",
		Short: "Solve a network document and print the result table as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSolve(cmd.Context(), cmd.OutOrStdout(), logger(), opts)
		},
	}
	solve.Flags().StringVarP(&opts.network, "network", "n", "", "Path to the network JSON document")
	solve.Flags().StringVarP(&opts.config, "config", "c", "", "Path to a YAML config file")
	solve.Flags().StringVarP(&opts.quality, "quality", "q", "", "Path to a JSON array of water-quality records")
	solve.Flags().StringVar(&opts.kind, "kind", "load", "Water-quality value kind (load or concentration)")
	solve.Flags().StringSliceVar(&opts.pollutants, "pollutants", nil, "Pollutants to keep from the water-quality records")
	solve.Flags().BoolVar(&opts.full, "full", false, "Print the whole solution, including config and diagnostics")
	_ = solve.MarkFlagRequired("network")

	var network string
	validate := &cobra.Command{
		Use:   "validate",
		Short: "Check a network document is a well-formed DAG",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := readNetwork(network)
			if err != nil {
				return err
			}
			if err := d.Validate(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok: %d nodes, %d edges\n", len(d.Nodes), len(d.Edges))
			return nil
		},
	}
	validate.Flags().StringVarP(&network, "network", "n", "", "Path to the network JSON document")
	_ = validate.MarkFlagRequired("network")

	root.AddCommand(solve, validate)
	return root
}

func runSolve(ctx context.Context, out io.Writer, log logging.Logger, opts solveOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := stormdag.DefaultConfig()
	if opts.config != "" {
		var err error
		if cfg, err = stormdag.LoadConfig(opts.config); err != nil {
			return err
		}
	}

	var kind stormdag.QualityKind
	switch opts.kind {
	case "load":
		kind = stormdag.LoadKind
	case "concentration":
		kind = stormdag.ConcentrationKind
	default:
		return fmt.Errorf("unknown --kind %q", opts.kind)
	}

	var recs []stormdag.WaterQuality
	if opts.quality != "" {
		data, err := os.ReadFile(opts.quality)
		if err != nil {
			return fmt.Errorf("reading quality file: %w", err)
		}
		if err := json.Unmarshal(data, &recs); err != nil {
			return fmt.Errorf("parsing quality file: %w", err)
		}
		cfg.LoadAttributes = opts.pollutants
		if len(cfg.LoadAttributes) == 0 {
			cfg.LoadAttributes = stormdag.Pollutants(recs)
		}
	}

	d, err := readNetwork(opts.network)
	if err != nil {
		return err
	}
	d.AssignIDs()
	g, err := stormdag.Build(d, cfg)
	if err != nil {
		return err
	}
	if opts.quality != "" {
		if err := stormdag.ApplyWaterQuality(g, recs, kind, opts.pollutants); err != nil {
			return err
		}
	}

	log = log.With(logging.String("network", d.ID))
	r := stormdag.NewReport(g, cfg, stormdag.WithObserver(logging.Observer(ctx, log)))
	if err := r.Solve(); err != nil {
		return err
	}
	sol, err := r.Solution(d.ID)
	if err != nil {
		return err
	}
	log.Info(ctx, "network solved", logging.Int("rows", sol.Table.Len()))

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if opts.full {
		return enc.Encode(sol)
	}
	return enc.Encode(sol.Table)
}

func readNetwork(path string) (*stormdag.DAG, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading network file: %w", err)
	}
	var d stormdag.DAG
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("parsing network file: %w", err)
	}
	return &d, nil
}
