package stormdag

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const eps = 1e-9

// chain is A -> B -> OF1 with a treated second link.
func chain(t *testing.T) *netBuilder {
	t.Helper()
	b := newNet(t)
	b.source("A", 100, map[string]float64{"load": 10})
	b.node("B")
	b.node("OF1")
	b.link("P1", "A", "B", 100)
	b.link("P2-TR", "B", "OF1", 100)
	return b
}

func result(t *testing.T, g *Network, id string) *NodeResult {
	t.Helper()
	n, ok := g.Node(id)
	require.True(t, ok)
	require.NotNil(t, n.Result)
	return n.Result
}

func TestPropagateChain(t *testing.T) {
	b := chain(t)
	diags, err := Propagate(b.g, DefaultConfig())
	require.NoError(t, err)
	assert.Empty(t, diags)

	a := result(t, b.g, "A")
	assert.Equal(t, 100., a.VolumeIn)
	assert.InDelta(t, 10, a.Loads["load"].In, eps)
	assert.InDelta(t, 0.1, a.Loads["load"].Concentration, eps)

	ab := b.g.EdgesOut("A")[0]
	l, _ := ab.Load("load")
	assert.InDelta(t, 10, l, eps)

	bRes := result(t, b.g, "B")
	assert.Equal(t, 100., bRes.VolumeIn)
	assert.InDelta(t, 10, bRes.Loads["load"].In, eps)
	bof := b.g.EdgesOut("B")[0]
	l, _ = bof.Load("load")
	assert.InDelta(t, 3, l, eps)
	assert.InDelta(t, 3, bRes.Loads["load"].Out, eps)
	assert.InDelta(t, 7, bRes.Loads["load"].Reduced, eps)
	require.NotNil(t, bRes.Loads["load"].PctReduced)
	assert.InDelta(t, 70, *bRes.Loads["load"].PctReduced, eps)
	require.NotNil(t, bRes.Volume)
	assert.Equal(t, 100., bRes.Volume.Out)
	assert.Equal(t, 100., bRes.Volume.Treated)
	assert.Equal(t, 100., bRes.Volume.PctTreated)
	assert.Equal(t, 100., bRes.Volume.Captured)

	of := result(t, b.g, "OF1")
	assert.True(t, of.Outfall)
	assert.InDelta(t, 3, of.Loads["load"].In, eps)
	assert.InDelta(t, 3, of.Loads["load"].Out, eps)
	assert.Equal(t, 100., of.Volume.Out)
	assert.Equal(t, 0., of.Volume.Treated)
}

func TestPropagateConservation(t *testing.T) {
	b := newNet(t)
	b.source("S1", 60, map[string]float64{"load": 6, "tp": 1.2})
	b.source("S2", 40, map[string]float64{"load": 2})
	b.node("J1")
	b.node("D1")
	b.node("D2")
	b.link("^S1", "S1", "J1", 60)
	b.link("^S2", "S2", "J1", 40)
	b.link("C1", "J1", "D1", 25)
	b.link("C2", "J1", "D2", 75)

	cfg := DefaultConfig()
	cfg.LoadAttributes = []string{"load", "tp"}
	_, err := Propagate(b.g, cfg)
	require.NoError(t, err)

	j := result(t, b.g, "J1")
	assert.Equal(t, 100., j.VolumeIn)
	assert.Equal(t, j.VolumeIn, j.Volume.Out)
	assert.Equal(t, 0., j.Volume.Reduced)
	assert.Equal(t, 0., j.Volume.Captured)
	for _, k := range cfg.LoadAttributes {
		lb := j.Loads[k]
		assert.InDelta(t, lb.In, lb.Out, eps, k)
		assert.InDelta(t, 0, lb.Reduced, eps, k)
	}
	assert.InDelta(t, 8, j.Loads["load"].In, eps)
	assert.InDelta(t, 1.2, j.Loads["tp"].In, eps)
}

func TestPropagateTreatment(t *testing.T) {
	for _, eff := range []float64{0, 0.25, 0.7, 1} {
		b := chain(t)
		cfg := DefaultConfig()
		cfg.RemovalEfficiency = eff
		_, err := Propagate(b.g, cfg)
		require.NoError(t, err)

		conc := result(t, b.g, "B").Loads["load"].Concentration
		e := b.g.EdgesOut("B")[0]
		got, _ := e.Load("load")
		assert.Equal(t, (1-eff)*conc*e.Volume, got, "efficiency %v", eff)
	}

	t.Run("disabled", func(t *testing.T) {
		b := chain(t)
		cfg := DefaultConfig()
		cfg.TreatmentEnabled = false
		_, err := Propagate(b.g, cfg)
		require.NoError(t, err)
		got, _ := b.g.EdgesOut("B")[0].Load("load")
		assert.InDelta(t, 10, got, eps)
	})
}

func TestPropagateVolumeReduction(t *testing.T) {
	b := newNet(t)
	b.source("S1", 100, map[string]float64{"load": 20})
	b.node("BMP")
	b.node("GW")
	b.link("P-INF", "S1", "GW", 40)
	b.link("P-TR", "S1", "BMP", 60)

	_, err := Propagate(b.g, DefaultConfig())
	require.NoError(t, err)

	r := result(t, b.g, "S1")
	assert.Equal(t, 60., r.Volume.Out)
	assert.Equal(t, 40., r.Volume.Reduced)
	assert.InDelta(t, 40, r.Volume.PctReduced, eps)
	assert.Equal(t, 60., r.Volume.Treated)
	assert.Equal(t, 100., r.Volume.Captured)
	assert.Equal(t, 100., r.Volume.PctCaptured)

	// 0.2 * 40 infiltrated untreated, 0.3 * 0.2 * 60 treated.
	assert.InDelta(t, 8+3.6, r.Loads["load"].Out, eps)
	assert.InDelta(t, 20-11.6, r.Loads["load"].Reduced, eps)
}

func TestPropagateOutfall(t *testing.T) {
	b := newNet(t)
	b.source("OF-7", 50, map[string]float64{"load": 5})
	b.node("X")
	b.node("Y")
	b.link("P-TR", "OF-7", "X", 30)
	b.link("P-INF", "OF-7", "Y", 20)

	_, err := Propagate(b.g, DefaultConfig())
	require.NoError(t, err)

	r := result(t, b.g, "OF-7")
	assert.True(t, r.Outfall)
	assert.Equal(t, r.Loads["load"].In, r.Loads["load"].Out)
	assert.Equal(t, r.VolumeIn, r.Volume.Out)
	assert.Equal(t, 0., r.Volume.Treated)
	assert.Equal(t, 0., r.Volume.Captured)
}

func TestPropagateDryNode(t *testing.T) {
	b := newNet(t)
	b.node("DRY")
	b.node("D")
	b.link("C1", "DRY", "D", 0)

	_, err := Propagate(b.g, DefaultConfig())
	require.NoError(t, err)

	r := result(t, b.g, "DRY")
	assert.False(t, r.Flowing)
	assert.Nil(t, r.Volume)
	assert.Empty(t, r.Loads)
	assert.Equal(t, 0., r.PctVolumeDiff)
	_, carried := b.g.EdgesOut("DRY")[0].Load("load")
	assert.False(t, carried)
}

func TestPropagateZeroLoad(t *testing.T) {
	b := newNet(t)
	b.source("S1", 100, map[string]float64{"load": 4})
	b.node("D")
	b.link("P-INF", "S1", "D", 100)

	cfg := DefaultConfig()
	cfg.LoadAttributes = []string{"load", "tp"}
	_, err := Propagate(b.g, cfg)
	require.NoError(t, err)

	r := result(t, b.g, "S1")
	tp := r.Loads["tp"]
	assert.Equal(t, 0., tp.In)
	assert.Equal(t, 0., tp.Out)
	assert.Nil(t, tp.PctReduced)
	require.NotNil(t, r.Loads["load"].PctReduced)

	// The last pollutant carries no load, so no volume is counted as leaving.
	assert.Equal(t, 100., r.Volume.Out)
	assert.Equal(t, 0., r.Volume.Reduced)
}

func TestPropagateExpectedVolume(t *testing.T) {
	b := newNet(t)
	b.source("S1", 100, nil)
	j := b.node("J1")
	expected := 125.
	j.ExpectedVolume = &expected
	b.link("^S1", "S1", "J1", 100)

	_, err := Propagate(b.g, DefaultConfig())
	require.NoError(t, err)
	assert.InDelta(t, 20, result(t, b.g, "J1").PctVolumeDiff, eps)
	assert.Equal(t, 0., result(t, b.g, "S1").PctVolumeDiff)
}

func TestPropagateOverwriteWarning(t *testing.T) {
	b := chain(t)
	b.g.EdgesOut("A")[0].setLoad("load", 12)

	var seen []Diagnostic
	diags, err := PropagateWith(b.g, DefaultConfig(), func(d Diagnostic) { seen = append(seen, d) })
	require.NoError(t, err)

	require.Len(t, diags, 1)
	assert.Equal(t, diags, Diagnostics(seen))
	d := diags[0]
	assert.Equal(t, DiagEdgeLoadOverwrite, d.Kind)
	assert.Equal(t, "P1", d.Edge)
	assert.Equal(t, "load", d.Load)
	assert.Equal(t, 12., d.Previous)
	assert.InDelta(t, 10, d.Value, eps)
	assert.InDelta(t, 100*(12-10)/12., d.PctDiff, eps)
	assert.Equal(t, 1, diags.Count(DiagEdgeLoadOverwrite))
	assert.Contains(t, d.String(), "P1")
}

func TestPropagateOverwriteOnTreatedLink(t *testing.T) {
	b := chain(t)
	b.g.EdgesOut("B")[0].setLoad("load", 5)

	diags, err := Propagate(b.g, DefaultConfig())
	require.NoError(t, err)
	require.Len(t, diags, 1)

	// Value is what the edge now carries; the difference is against the untreated load.
	d := diags[0]
	assert.Equal(t, "P2-TR", d.Edge)
	assert.InDelta(t, 3, d.Value, eps)
	assert.InDelta(t, 100*(5-10)/5., d.PctDiff, eps)
}

func TestPropagateClassifiesFromConfig(t *testing.T) {
	t.Run("unclassified network", func(t *testing.T) {
		b := newNet(t)
		b.source("A", 100, map[string]float64{"load": 10})
		b.node("OF1")
		e := b.link("P2-TR", "A", "OF1", 100)

		_, err := Propagate(b.g, DefaultConfig())
		require.NoError(t, err)
		assert.True(t, e.Flags.Treated)
		got, _ := e.Load("load")
		assert.InDelta(t, 3, got, eps)
	})

	t.Run("config differs from build", func(t *testing.T) {
		d := &DAG{
			Nodes: []DAGNode{
				{ID: "A", Data: json.RawMessage(`{"volume": 100, "load": 10}`)},
				{ID: "OF1"},
			},
			Edges: []DAGEdge{
				{FromNodeID: "A", ToNodeID: "OF1", Data: json.RawMessage(`{"id": "P2-BMP", "volume": 100}`)},
			},
		}
		g, err := Build(d, DefaultConfig())
		require.NoError(t, err)
		e := g.Edges()[0]
		require.False(t, e.Flags.Treated)

		cfg := DefaultConfig()
		cfg.TreatedFlags = []string{"BMP"}
		cfg.VolumeReducedFlags = []string{"P2"}
		_, err = Propagate(g, cfg)
		require.NoError(t, err)

		assert.Equal(t, EdgeFlags{Treated: true, VolumeReduced: true}, e.Flags)
		got, _ := e.Load("load")
		assert.InDelta(t, 3, got, eps)
		a := result(t, g, "A")
		assert.Equal(t, 0., a.Volume.Out)
		assert.Equal(t, 100., a.Volume.Reduced)
	})
}

func TestPropagateCycleLeavesGraphUntouched(t *testing.T) {
	b := newNet(t)
	s := b.source("S", 10, map[string]float64{"load": 1})
	b.node("A")
	b.node("B")
	b.link("P0", "S", "A", 10)
	b.link("P1", "A", "B", 10)
	loop := b.link("P2", "B", "A", 10)

	_, err := Propagate(b.g, DefaultConfig())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCycleDetected))

	assert.Nil(t, s.Result)
	assert.Equal(t, 10., s.Volume)
	for _, n := range b.g.Nodes() {
		assert.Nil(t, n.Result, n.ID)
	}
	_, carried := loop.Load("load")
	assert.False(t, carried)
}

func TestReportCycleLeavesFlagsUntouched(t *testing.T) {
	b := newNet(t)
	b.node("A")
	b.node("B")
	fwd := b.link("P1-TR", "A", "B", 10)
	back := b.link("P2-INF", "B", "A", 10)

	err := NewReport(b.g, DefaultConfig()).Solve()
	assert.True(t, errors.Is(err, ErrCycleDetected))
	assert.Equal(t, EdgeFlags{}, fwd.Flags)
	assert.Equal(t, EdgeFlags{}, back.Flags)
}

func TestPropagateInvalidConfig(t *testing.T) {
	b := chain(t)
	cfg := DefaultConfig()
	cfg.RemovalEfficiency = 1.5
	_, err := Propagate(b.g, cfg)
	assert.True(t, errors.Is(err, ErrInvalidConfig))
}

func TestPropagateResultsAreFinite(t *testing.T) {
	b := newNet(t)
	b.source("S1", 0, map[string]float64{"load": 5})
	b.source("S2", 10, map[string]float64{"load": 0})
	b.node("D")
	b.link("^S1", "S1", "D", 0)
	b.link("^S2", "S2", "D", 10)

	_, err := Propagate(b.g, DefaultConfig())
	require.NoError(t, err)

	tbl := Assemble(b.g, DefaultConfig())
	for _, r := range tbl.Rows {
		for k, v := range r.Values {
			assert.False(t, math.IsNaN(v) || math.IsInf(v, 0), "%s %s = %v", r.ID, k, v)
		}
	}
}
