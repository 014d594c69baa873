package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/meikuraledutech/stormdag"
	"github.com/meikuraledutech/stormdag/memory"
	"github.com/meikuraledutech/stormdag/postgres"
)

func main() {
	ctx := context.Background()

	// Postgres when DATABASE_URL is set, otherwise the in-memory store.
	var store stormdag.Store = memory.New()
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		pool, err := pgxpool.New(ctx, dbURL)
		if err != nil {
			log.Fatalf("connect: %v", err)
		}
		defer pool.Close()
		store = postgres.New(pool)
	}

	// 1. Create tables
	if err := store.CreateSchema(ctx); err != nil {
		log.Fatalf("schema: %v", err)
	}
	fmt.Println("schema created")

	// ── Upload a subcatchment → junction → outfall chain ──────────────
	chain := &stormdag.DAG{
		ID: "chain",
		Nodes: []stormdag.DAGNode{
			{ID: "A", Data: json.RawMessage(`{"volume": 100, "load": 10}`)},
			{ID: "B"},
			{ID: "OF1"},
		},
		Edges: []stormdag.DAGEdge{
			{FromNodeID: "A", ToNodeID: "B", Data: json.RawMessage(`{"id": "P1", "volume": 100}`)},
			{FromNodeID: "B", ToNodeID: "OF1", Data: json.RawMessage(`{"id": "P2-TR", "volume": 100}`)},
		},
	}
	created, err := store.CreateNetwork(ctx, chain)
	if err != nil {
		log.Fatalf("create network: %v", err)
	}
	fmt.Printf("network created: %d nodes, %d edges\n", len(created.Nodes), len(created.Edges))

	// ── Add an infiltration link from B to a second outfall ───────────
	if err := store.AddNode(ctx, "chain", &stormdag.DAGNode{ID: "OF2"}); err != nil {
		log.Fatalf("add node: %v", err)
	}
	edgeID, err := store.AddEdge(ctx, "chain", &stormdag.DAGEdge{
		FromNodeID: "B",
		ToNodeID:   "OF2",
		Data:       json.RawMessage(`{"id": "W1-INF", "volume": 20}`),
	})
	if err != nil {
		log.Fatalf("add edge: %v", err)
	}
	fmt.Printf("added edge: %s\n", edgeID)

	// ── Solve ─────────────────────────────────────────────────────────
	d, err := store.GetNetwork(ctx, "chain")
	if err != nil {
		log.Fatalf("get network: %v", err)
	}
	cfg := stormdag.DefaultConfig()
	g, err := stormdag.Build(d, cfg)
	if err != nil {
		log.Fatalf("build: %v", err)
	}
	report := stormdag.NewReport(g, cfg, stormdag.WithObserver(func(diag stormdag.Diagnostic) {
		fmt.Println("warning:", diag)
	}))
	if err := report.Solve(); err != nil {
		log.Fatalf("solve: %v", err)
	}
	sol, err := report.Solution("chain")
	if err != nil {
		log.Fatalf("solution: %v", err)
	}
	if err := store.SaveResults(ctx, sol); err != nil {
		log.Fatalf("save results: %v", err)
	}
	fmt.Println("\nresults:")
	printJSON(sol.Table)

	// ── Cleanup ───────────────────────────────────────────────────────
	if err := store.DeleteNetwork(ctx, "chain"); err != nil {
		log.Fatalf("delete: %v", err)
	}
	fmt.Println("\nnetwork deleted")
}

func printJSON(v any) {
	out, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(out))
}
