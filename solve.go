package stormdag

// Propagate routes volume and pollutant loads through g in topological order,
// writing a NodeResult onto every node and concentration-derived loads onto
// outgoing edges. Edge flags are derived from cfg. A cycle or invalid config
// fails before anything is mutated.
func Propagate(g Graph, cfg Config) (Diagnostics, error) {
	return PropagateWith(g, cfg, nil)
}

// PropagateWith is Propagate with an observer notified of each diagnostic.
func PropagateWith(g Graph, cfg Config, obs Observer) (Diagnostics, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	order, err := TopologicalOrder(g)
	if err != nil {
		return nil, err
	}
	classifyEdges(g.Edges(), cfg)

	s := &solver{g: g, cfg: cfg, obs: obs}
	for _, n := range order {
		s.node(n)
	}
	return s.diags, nil
}

type solver struct {
	g     Graph
	cfg   Config
	obs   Observer
	diags Diagnostics
}

func (s *solver) node(n *Node) {
	vIn := SumEdgesWhere(s.g, n.ID, VolumeAttr(), Incoming, nil)
	if n.HasVolume {
		vIn += n.Volume
	}
	// From here on the node volume is what arrives at the node.
	n.Volume, n.HasVolume = vIn, true

	expected := 0.
	if n.ExpectedVolume != nil {
		expected = *n.ExpectedVolume
	}

	res := &NodeResult{
		VolumeIn:      vIn,
		PctVolumeDiff: SafeDivide(expected-vIn, expected) * 100,
		Flowing:       vIn != 0,
		Outfall:       IsOutfall(n.ID, s.cfg),
		Loads:         make(map[string]*LoadBalance, len(s.cfg.LoadAttributes)),
	}
	n.Result = res
	if !res.Flowing {
		return
	}

	// Outflow volume does not depend on the pollutant, only on whether any load
	// is moving; the last pollutant processed decides which balance is kept.
	still := volumeBalance(vIn, vIn, 0)
	moving := still
	if !res.Outfall {
		out := SumEdgesWhere(s.g, n.ID, VolumeAttr(), Outgoing, func(e *Edge) bool { return !e.Flags.VolumeReduced })
		treated := SumEdgesWhere(s.g, n.ID, VolumeAttr(), Outgoing, func(e *Edge) bool { return e.Flags.Treated })
		moving = volumeBalance(vIn, out, treated)
	}

	for _, k := range s.cfg.LoadAttributes {
		lIn := SumEdgesWhere(s.g, n.ID, LoadAttr(k), Incoming, nil) + n.Loads[k]
		conc := SafeDivide(lIn, vIn)
		n.setLoad(k, lIn)

		lb := &LoadBalance{In: lIn, Concentration: conc, Out: lIn}
		vb := still
		if lIn > 0 {
			for _, e := range s.g.EdgesOut(n.ID) {
				s.writeLoad(e, k, conc)
			}
			if !res.Outfall {
				lb.Out = SumEdgesWhere(s.g, n.ID, LoadAttr(k), Outgoing, nil)
			}
			vb = moving
		}
		lb.Reduced = lIn - lb.Out
		if lIn > 0 {
			pct := 100 * SafeDivide(lb.Reduced, lIn)
			lb.PctReduced = &pct
		}
		res.Loads[k] = lb
		res.Volume = &vb
	}
}

// writeLoad sets an outgoing edge's load from the node concentration, applying
// treatment on flagged links. Replacing a value the edge already had is reported.
func (s *solver) writeLoad(e *Edge, k string, conc float64) {
	untreated := conc * e.Volume
	load := untreated
	if s.cfg.TreatmentEnabled && e.Flags.Treated {
		load = (1 - s.cfg.RemovalEfficiency) * untreated
	}
	if prev, ok := e.Load(k); ok {
		s.report(Diagnostic{
			Kind:     DiagEdgeLoadOverwrite,
			Edge:     e.label(s.cfg.NameAttribute),
			From:     e.From,
			To:       e.To,
			Key:      e.Key,
			Load:     k,
			Previous: prev,
			Value:    load,
			PctDiff:  SafeDivide(prev-untreated, prev) * 100,
		})
	}
	e.setLoad(k, load)
}

func (s *solver) report(d Diagnostic) {
	s.diags = append(s.diags, d)
	if s.obs != nil {
		s.obs(d)
	}
}

func volumeBalance(in, out, treated float64) VolumeBalance {
	reduced := in - out
	return VolumeBalance{
		Out:         out,
		Reduced:     reduced,
		Treated:     treated,
		Captured:    treated + reduced,
		PctReduced:  100 * SafeDivide(reduced, in),
		PctTreated:  100 * SafeDivide(treated, in),
		PctCaptured: 100 * SafeDivide(treated+reduced, in),
	}
}
