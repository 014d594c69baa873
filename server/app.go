package main

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/meikuraledutech/stormdag"
	"github.com/meikuraledutech/stormdag/internal/logging"
)

// solveRequest is the optional body of POST /networks/:id/solve.
// Config is decoded over the server default.
type solveRequest struct {
	Config  json.RawMessage `json:"config,omitempty"`
	Quality *qualityRequest `json:"quality,omitempty"`
}

// qualityRequest attaches source loads or concentrations to subcatchments.
type qualityRequest struct {
	Kind       string                  `json:"kind"` // load or concentration
	Pollutants []string                `json:"pollutants,omitempty"`
	Records    []stormdag.WaterQuality `json:"records"`
}

type api struct {
	store   stormdag.Store
	cfg     stormdag.Config
	log     logging.Logger
	metrics *solveMetrics
}

func newApp(store stormdag.Store, cfg stormdag.Config, log logging.Logger, metrics *solveMetrics) *fiber.App {
	a := &api{store: store, cfg: cfg, log: log, metrics: metrics}
	app := fiber.New()

	// ── Schema ────────────────────────────────────────────────────────
	app.Post("/schema", func(c fiber.Ctx) error {
		if err := store.CreateSchema(c.Context()); err != nil {
			return fail(c, 500, err)
		}
		return c.JSON(fiber.Map{"message": "schema created"})
	})
	app.Delete("/schema", func(c fiber.Ctx) error {
		if err := store.DropSchema(c.Context()); err != nil {
			return fail(c, 500, err)
		}
		return c.JSON(fiber.Map{"message": "schema dropped"})
	})

	// ── Networks ──────────────────────────────────────────────────────
	app.Post("/networks", a.createNetwork)
	app.Get("/networks/:id", a.getNetwork)
	app.Delete("/networks/:id", func(c fiber.Ctx) error {
		if err := store.DeleteNetwork(c.Context(), c.Params("id")); err != nil {
			return fail(c, 500, err)
		}
		return c.SendStatus(204)
	})

	// ── Nodes and edges ───────────────────────────────────────────────
	app.Post("/networks/:id/nodes", a.addNode)
	app.Post("/networks/:id/edges", a.addEdge)
	app.Get("/networks/:id/nodes", func(c fiber.Ctx) error {
		nodes, err := store.ListNodes(c.Context(), c.Params("id"))
		if err != nil {
			return fail(c, 500, err)
		}
		return c.JSON(nodes)
	})
	app.Get("/networks/:id/edges", func(c fiber.Ctx) error {
		edges, err := store.ListEdges(c.Context(), c.Params("id"))
		if err != nil {
			return fail(c, 500, err)
		}
		return c.JSON(edges)
	})
	app.Get("/networks/:id/nodes/:node", a.getNode)
	app.Put("/networks/:id/nodes/:node", a.updateNode)
	app.Delete("/networks/:id/nodes/:node", func(c fiber.Ctx) error {
		if err := store.DeleteNode(c.Context(), c.Params("id"), c.Params("node")); err != nil {
			return fail(c, 500, err)
		}
		return c.SendStatus(204)
	})
	app.Get("/networks/:id/edges/:edge", a.getEdge)
	app.Put("/networks/:id/edges/:edge", a.updateEdge)
	app.Delete("/networks/:id/edges/:edge", func(c fiber.Ctx) error {
		if err := store.DeleteEdge(c.Context(), c.Params("id"), c.Params("edge")); err != nil {
			return fail(c, 500, err)
		}
		return c.SendStatus(204)
	})

	// ── Solve ─────────────────────────────────────────────────────────
	app.Post("/networks/:id/solve", a.solve)
	app.Get("/networks/:id/results", func(c fiber.Ctx) error {
		sol, err := store.GetResults(c.Context(), c.Params("id"))
		if err != nil {
			return fail(c, 500, err)
		}
		if sol == nil {
			return c.Status(404).JSON(fiber.Map{"error": "network not solved"})
		}
		return c.JSON(sol)
	})

	if metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))
	}
	return app
}

func (a *api) createNetwork(c fiber.Ctx) error {
	var d stormdag.DAG
	if err := c.Bind().JSON(&d); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
	}
	created, err := a.store.CreateNetwork(c.Context(), &d)
	if err != nil {
		return fail(c, statusFor(err), err)
	}
	a.log.Info(c.Context(), "network created",
		logging.String("network", created.ID),
		logging.Int("nodes", len(created.Nodes)),
		logging.Int("edges", len(created.Edges)))
	return c.Status(201).JSON(created)
}

func (a *api) getNetwork(c fiber.Ctx) error {
	d, err := a.store.GetNetwork(c.Context(), c.Params("id"))
	if err != nil {
		return fail(c, 500, err)
	}
	if d == nil {
		return c.Status(404).JSON(fiber.Map{"error": "network not found"})
	}
	return c.JSON(d)
}

func (a *api) addNode(c fiber.Ctx) error {
	var node stormdag.DAGNode
	if err := c.Bind().JSON(&node); err != nil || node.ID == "" {
		return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
	}
	if err := a.store.AddNode(c.Context(), c.Params("id"), &node); err != nil {
		return fail(c, statusFor(err), err)
	}
	return c.Status(201).JSON(fiber.Map{"id": node.ID})
}

func (a *api) addEdge(c fiber.Ctx) error {
	var edge stormdag.DAGEdge
	if err := c.Bind().JSON(&edge); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
	}
	id, err := a.store.AddEdge(c.Context(), c.Params("id"), &edge)
	if err != nil {
		return fail(c, statusFor(err), err)
	}
	return c.Status(201).JSON(fiber.Map{"id": id})
}

func (a *api) getNode(c fiber.Ctx) error {
	n, err := a.store.GetNode(c.Context(), c.Params("id"), c.Params("node"))
	if err != nil {
		return fail(c, 500, err)
	}
	if n == nil {
		return c.Status(404).JSON(fiber.Map{"error": "node not found"})
	}
	return c.JSON(n)
}

func (a *api) updateNode(c fiber.Ctx) error {
	var node stormdag.DAGNode
	if err := c.Bind().JSON(&node); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
	}
	node.ID = c.Params("node")
	err := a.store.UpdateNode(c.Context(), c.Params("id"), &node)
	if errors.Is(err, stormdag.ErrNodeNotFound) {
		return c.Status(404).JSON(fiber.Map{"error": "node not found"})
	}
	if err != nil {
		return fail(c, statusFor(err), err)
	}
	return c.SendStatus(204)
}

func (a *api) getEdge(c fiber.Ctx) error {
	e, err := a.store.GetEdge(c.Context(), c.Params("id"), c.Params("edge"))
	if err != nil {
		return fail(c, 500, err)
	}
	if e == nil {
		return c.Status(404).JSON(fiber.Map{"error": "edge not found"})
	}
	return c.JSON(e)
}

// updateEdge rewires or relabels a link, e.g. renaming it to add a treatment flag.
func (a *api) updateEdge(c fiber.Ctx) error {
	var edge stormdag.DAGEdge
	if err := c.Bind().JSON(&edge); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
	}
	edge.ID = c.Params("edge")
	if err := a.store.UpdateEdge(c.Context(), c.Params("id"), &edge); err != nil {
		return fail(c, statusFor(err), err)
	}
	return c.SendStatus(204)
}

func (a *api) solve(c fiber.Ctx) error {
	start := time.Now()
	var req solveRequest
	if len(c.Body()) > 0 {
		if err := json.Unmarshal(c.Body(), &req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
		}
	}

	sol, err := a.solveNetwork(c.Context(), c.Params("id"), req)
	if a.metrics != nil {
		a.metrics.Duration.Observe(time.Since(start).Seconds())
	}
	if err != nil {
		a.count("error")
		if errors.Is(err, stormdag.ErrNetworkNotFound) {
			return c.Status(404).JSON(fiber.Map{"error": "network not found"})
		}
		return fail(c, statusFor(err), err)
	}

	a.count("ok")
	if a.metrics != nil {
		a.metrics.Rows.Observe(float64(sol.Table.Len()))
		for _, d := range sol.Diagnostics {
			a.metrics.Diagnostics.WithLabelValues(string(d.Kind)).Inc()
		}
	}
	return c.JSON(sol)
}

// solveNetwork builds the stored network under the request config, solves it
// and persists the solution.
func (a *api) solveNetwork(ctx context.Context, id string, req solveRequest) (*stormdag.Solution, error) {
	cfg := a.cfg.Clone()
	if len(req.Config) > 0 {
		if err := json.Unmarshal(req.Config, &cfg); err != nil {
			return nil, errors.Join(stormdag.ErrInvalidConfig, err)
		}
	}
	if q := req.Quality; q != nil {
		cfg.LoadAttributes = q.Pollutants
		if len(cfg.LoadAttributes) == 0 {
			cfg.LoadAttributes = stormdag.Pollutants(q.Records)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	d, err := a.store.GetNetwork(ctx, id)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, stormdag.ErrNetworkNotFound
	}
	g, err := stormdag.Build(d, cfg)
	if err != nil {
		return nil, err
	}
	if q := req.Quality; q != nil {
		kind := stormdag.LoadKind
		if q.Kind == "concentration" {
			kind = stormdag.ConcentrationKind
		}
		if err := stormdag.ApplyWaterQuality(g, q.Records, kind, q.Pollutants); err != nil {
			return nil, err
		}
	}

	log := a.log.With(logging.String("network", id))
	r := stormdag.NewReport(g, cfg, stormdag.WithObserver(logging.Observer(ctx, log)))
	if err := r.Solve(); err != nil {
		return nil, err
	}
	sol, err := r.Solution(id)
	if err != nil {
		return nil, err
	}
	if err := a.store.SaveResults(ctx, sol); err != nil {
		return nil, err
	}
	log.Info(ctx, "network solved",
		logging.Int("rows", sol.Table.Len()),
		logging.Int("diagnostics", len(sol.Diagnostics)))
	return sol, nil
}

func (a *api) count(outcome string) {
	if a.metrics != nil {
		a.metrics.Solves.WithLabelValues(outcome).Inc()
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, stormdag.ErrCycleDetected),
		errors.Is(err, stormdag.ErrInvalidConfig),
		errors.Is(err, stormdag.ErrUnitMismatch),
		errors.Is(err, stormdag.ErrNodeNotFound),
		errors.Is(err, stormdag.ErrDuplicateNode),
		errors.Is(err, stormdag.ErrDuplicateEdge):
		return 422
	case errors.Is(err, stormdag.ErrNetworkNotFound),
		errors.Is(err, stormdag.ErrEdgeNotFound):
		return 404
	}
	return 500
}

func fail(c fiber.Ctx, status int, err error) error {
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}
