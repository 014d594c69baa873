package memory

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/meikuraledutech/stormdag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample() *stormdag.DAG {
	return &stormdag.DAG{
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
}

func TestMemStoreNetworkLifecycle(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.CreateSchema(ctx))

	created, err := s.CreateNetwork(ctx, sample())
	require.NoError(t, err)
	for _, e := range created.Edges {
		assert.NotEmpty(t, e.ID)
	}

	got, err := s.GetNetwork(ctx, "chain")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Len(t, got.Nodes, 3)
	assert.Equal(t, created.Edges[0].ID, got.Edges[0].ID)

	// callers cannot reach into the stored copy
	got.Nodes[0].ID = "changed"
	again, _ := s.GetNetwork(ctx, "chain")
	assert.Equal(t, "A", again.Nodes[0].ID)

	require.NoError(t, s.AddNode(ctx, "chain", &stormdag.DAGNode{ID: "C"}))
	assert.True(t, errors.Is(s.AddNode(ctx, "chain", &stormdag.DAGNode{ID: "C"}), stormdag.ErrDuplicateNode))

	id, err := s.AddEdge(ctx, "chain", &stormdag.DAGEdge{FromNodeID: "OF1", ToNodeID: "C"})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	_, err = s.AddEdge(ctx, "chain", &stormdag.DAGEdge{FromNodeID: "C", ToNodeID: "A"})
	assert.True(t, errors.Is(err, stormdag.ErrCycleDetected))

	edges, err := s.ListEdges(ctx, "chain")
	require.NoError(t, err)
	assert.Len(t, edges, 3)
	nodes, err := s.ListNodes(ctx, "missing")
	require.NoError(t, err)
	assert.NotNil(t, nodes)
	assert.Empty(t, nodes)

	require.NoError(t, s.DeleteNetwork(ctx, "chain"))
	got, err = s.GetNetwork(ctx, "chain")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMemStoreRejectsCycles(t *testing.T) {
	d := sample()
	d.Edges = append(d.Edges, stormdag.DAGEdge{FromNodeID: "OF1", ToNodeID: "A"})
	_, err := New().CreateNetwork(context.Background(), d)
	assert.True(t, errors.Is(err, stormdag.ErrCycleDetected))
}

func TestMemStoreResults(t *testing.T) {
	ctx := context.Background()
	s := New()

	d, err := s.CreateNetwork(ctx, sample())
	require.NoError(t, err)

	g, err := stormdag.Build(d, stormdag.DefaultConfig())
	require.NoError(t, err)
	r := stormdag.NewReport(g, stormdag.DefaultConfig())
	require.NoError(t, r.Solve())
	sol, err := r.Solution(d.ID)
	require.NoError(t, err)

	got, err := s.GetResults(ctx, d.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, s.SaveResults(ctx, sol))
	got, err = s.GetResults(ctx, d.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 5, got.Table.Len())

	assert.True(t, errors.Is(s.SaveResults(ctx, &stormdag.Solution{NetworkID: "nope"}), stormdag.ErrNetworkNotFound))

	// re-creating a network drops its stale solution
	_, err = s.CreateNetwork(ctx, sample())
	require.NoError(t, err)
	got, err = s.GetResults(ctx, d.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMemStoreItemEdits(t *testing.T) {
	ctx := context.Background()
	s := New()
	d := sample()
	d.Edges[0].ID = "e1"
	d.Edges[1].ID = "e2"
	_, err := s.CreateNetwork(ctx, d)
	require.NoError(t, err)

	t.Run("nodes", func(t *testing.T) {
		n, err := s.GetNode(ctx, "chain", "A")
		require.NoError(t, err)
		require.NotNil(t, n)
		assert.JSONEq(t, `{"volume": 100, "load": 10}`, string(n.Data))

		require.NoError(t, s.UpdateNode(ctx, "chain", &stormdag.DAGNode{ID: "A", Data: json.RawMessage(`{"volume": 50}`)}))
		n, _ = s.GetNode(ctx, "chain", "A")
		assert.JSONEq(t, `{"volume": 50}`, string(n.Data))

		err = s.UpdateNode(ctx, "chain", &stormdag.DAGNode{ID: "Z"})
		assert.True(t, errors.Is(err, stormdag.ErrNodeNotFound))
		n, err = s.GetNode(ctx, "chain", "Z")
		require.NoError(t, err)
		assert.Nil(t, n)
	})

	t.Run("edges", func(t *testing.T) {
		e, err := s.GetEdge(ctx, "chain", "e2")
		require.NoError(t, err)
		require.NotNil(t, e)
		assert.Equal(t, "OF1", e.ToNodeID)

		renamed := &stormdag.DAGEdge{ID: "e1", FromNodeID: "A", ToNodeID: "B", Data: json.RawMessage(`{"id": "P1-TR", "volume": 100}`)}
		require.NoError(t, s.UpdateEdge(ctx, "chain", renamed))
		e, _ = s.GetEdge(ctx, "chain", "e1")
		assert.JSONEq(t, `{"id": "P1-TR", "volume": 100}`, string(e.Data))

		err = s.UpdateEdge(ctx, "chain", &stormdag.DAGEdge{ID: "e2", FromNodeID: "B", ToNodeID: "A"})
		assert.True(t, errors.Is(err, stormdag.ErrCycleDetected))
		e, _ = s.GetEdge(ctx, "chain", "e2")
		assert.Equal(t, "OF1", e.ToNodeID, "rejected update leaves the edge alone")

		err = s.UpdateEdge(ctx, "chain", &stormdag.DAGEdge{ID: "nope", FromNodeID: "A", ToNodeID: "B"})
		assert.True(t, errors.Is(err, stormdag.ErrEdgeNotFound))

		_, err = s.AddEdge(ctx, "chain", &stormdag.DAGEdge{ID: "e1", FromNodeID: "A", ToNodeID: "OF1"})
		assert.True(t, errors.Is(err, stormdag.ErrDuplicateEdge))

		require.NoError(t, s.DeleteEdge(ctx, "chain", "e2"))
		require.NoError(t, s.DeleteEdge(ctx, "chain", "e2"))
		edges, _ := s.ListEdges(ctx, "chain")
		assert.Len(t, edges, 1)
	})

	t.Run("deleting a node drops its edges", func(t *testing.T) {
		require.NoError(t, s.DeleteNode(ctx, "chain", "B"))
		nodes, _ := s.ListNodes(ctx, "chain")
		assert.Len(t, nodes, 2)
		edges, _ := s.ListEdges(ctx, "chain")
		assert.Empty(t, edges)
	})
}

func TestMemStoreEdgeIDsAreScopedByNetwork(t *testing.T) {
	ctx := context.Background()
	s := New()
	for _, id := range []string{"n1", "n2"} {
		d := sample()
		d.ID = id
		d.Edges[0].ID = "e1"
		_, err := s.CreateNetwork(ctx, d)
		require.NoError(t, err, id)
	}
	require.NoError(t, s.DeleteEdge(ctx, "n1", "e1"))
	e, err := s.GetEdge(ctx, "n2", "e1")
	require.NoError(t, err)
	assert.NotNil(t, e)

	d := sample()
	d.Edges[0].ID = "e1"
	d.Edges[1].ID = "e1"
	_, err = s.CreateNetwork(ctx, d)
	assert.True(t, errors.Is(err, stormdag.ErrDuplicateEdge))
}

func TestMemStoreResultsAreCopied(t *testing.T) {
	ctx := context.Background()
	s := New()
	d, err := s.CreateNetwork(ctx, sample())
	require.NoError(t, err)

	sol := &stormdag.Solution{
		NetworkID:   d.ID,
		Config:      stormdag.DefaultConfig(),
		Table:       &stormdag.Table{Rows: []stormdag.Row{{ID: "A", Type: stormdag.RowNode, Values: map[string]float64{"volume": 100}}}},
		Diagnostics: stormdag.Diagnostics{{Kind: stormdag.DiagEdgeLoadOverwrite, Edge: "P1"}},
	}
	require.NoError(t, s.SaveResults(ctx, sol))
	sol.Table.Rows[0].Values["volume"] = -1
	sol.Diagnostics[0].Edge = "changed"

	got, err := s.GetResults(ctx, d.ID)
	require.NoError(t, err)
	got.Table.Rows[0].ID = "changed"
	got.Config.LoadAttributes[0] = "changed"

	again, _ := s.GetResults(ctx, d.ID)
	assert.Equal(t, 100., again.Table.Rows[0].Values["volume"])
	assert.Equal(t, "A", again.Table.Rows[0].ID)
	assert.Equal(t, "P1", again.Diagnostics[0].Edge)
	assert.Equal(t, []string{"load"}, again.Config.LoadAttributes)
}
