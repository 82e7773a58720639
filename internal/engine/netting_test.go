package engine

import (
	"errors"
	"math"
	"testing"
)

func mustGraph(t *testing.T, m [][]float64) *ObligationGraph {
	t.Helper()
	g, err := NewGraph(m)
	if err != nil {
		t.Fatalf("graph: %v", err)
	}
	return g
}

func TestNewGraphRejectsMalformedInput(t *testing.T) {
	cases := []struct {
		name string
		m    [][]float64
	}{
		{"non-square", [][]float64{{0, 1}, {1, 0, 2}}},
		{"negative weight", [][]float64{{0, -1}, {0, 0}}},
		{"self obligation", [][]float64{{1, 0}, {0, 0}}},
	}
	for _, tc := range cases {
		_, err := NewGraph(tc.m)
		if err == nil {
			t.Fatalf("%s: expected validation error", tc.name)
		}
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("%s: expected *ValidationError, got %T", tc.name, err)
		}
	}
}

func TestBilateralOffset(t *testing.T) {
	g := mustGraph(t, [][]float64{
		{0, 10},
		{4, 0},
	})
	res := NewNettingEngine(0).Net(g)
	if got := res.Weight(0, 1); got != 6 {
		t.Fatalf("A→B = %v, want 6", got)
	}
	if got := res.Weight(1, 0); got != 0 {
		t.Fatalf("B→A = %v, want 0", got)
	}
}

func TestThreeEntityScenarioFullyCancels(t *testing.T) {
	// A owes B 10, B owes A 4, B owes C 6, C owes A 6.
	// Bilateral offset leaves A→B = 6; the cycle A→B→C→A of 6s cancels fully.
	g := mustGraph(t, [][]float64{
		{0, 10, 0},
		{4, 0, 6},
		{6, 0, 0},
	})
	if got := g.RawLoad(); got != 26 {
		t.Fatalf("raw load = %v, want 26", got)
	}

	res := NewNettingEngine(0).Net(g)
	if got := res.RawLoad(); got != 0 {
		t.Fatalf("net load = %v, want 0", got)
	}
	for i := 0; i < 3; i++ {
		if got := res.NetPosition(i); got != 0 {
			t.Fatalf("entity %d net position = %v, want 0", i, got)
		}
	}
}

func TestNetPositionPreserved(t *testing.T) {
	m := [][]float64{
		{0, 12, 3, 0, 7},
		{5, 0, 0, 9, 0},
		{0, 4, 0, 2, 1},
		{8, 0, 6, 0, 0},
		{0, 3, 0, 5, 0},
	}
	g := mustGraph(t, m)
	res := NewNettingEngine(0).Net(g)

	for i := 0; i < g.Size(); i++ {
		before := g.NetPosition(i)
		after := res.NetPosition(i)
		if math.Abs(before-after) > 1e-9 {
			t.Fatalf("entity %d: net position %v → %v", i, before, after)
		}
	}
	if res.RawLoad() > g.RawLoad() {
		t.Fatalf("net load %v exceeds raw load %v", res.RawLoad(), g.RawLoad())
	}
}

func TestNettingIdempotent(t *testing.T) {
	g := mustGraph(t, [][]float64{
		{0, 12, 3, 0},
		{5, 0, 0, 9},
		{0, 4, 0, 2},
		{8, 0, 6, 0},
	})
	e := NewNettingEngine(0)
	once := e.Net(g)
	twice := e.Net(once)
	for i := 0; i < once.Size(); i++ {
		for j := 0; j < once.Size(); j++ {
			if once.Weight(i, j) != twice.Weight(i, j) {
				t.Fatalf("[%d][%d] changed on renetting: %v → %v", i, j, once.Weight(i, j), twice.Weight(i, j))
			}
		}
	}
}

func TestNettingNoRedundancyIsNoop(t *testing.T) {
	// acyclic, one-directional: nothing to offset or cancel
	g := mustGraph(t, [][]float64{
		{0, 5, 0},
		{0, 0, 3},
		{0, 0, 0},
	})
	res := NewNettingEngine(0).Net(g)
	if res.RawLoad() != g.RawLoad() {
		t.Fatalf("net load %v, want %v", res.RawLoad(), g.RawLoad())
	}
}

func TestSubEpsilonWeightsSurviveNetting(t *testing.T) {
	// acyclic edge far below the dust floor, untouched by cancellation
	tiny := 1e-12
	g := mustGraph(t, [][]float64{
		{0, tiny, 0},
		{0, 0, 3},
		{0, 0, 0},
	})
	res := NewNettingEngine(0).Net(g)
	if got := res.Weight(0, 1); got != tiny {
		t.Fatalf("A→B = %v, want %v", got, tiny)
	}
	for i := 0; i < 3; i++ {
		if g.NetPosition(i) != res.NetPosition(i) {
			t.Fatalf("entity %d net position %v → %v", i, g.NetPosition(i), res.NetPosition(i))
		}
	}
}

func TestNettingDeterministic(t *testing.T) {
	m := [][]float64{
		{0, 6, 6, 0},
		{0, 0, 6, 6},
		{6, 0, 0, 6},
		{6, 6, 0, 0},
	}
	a := NewNettingEngine(0).Net(mustGraph(t, m))
	b := NewNettingEngine(0).Net(mustGraph(t, m))
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			if a.Weight(i, j) != b.Weight(i, j) {
				t.Fatalf("non-deterministic residual at [%d][%d]", i, j)
			}
		}
	}
}

func TestZeroDiagonalInvariant(t *testing.T) {
	g := mustGraph(t, [][]float64{
		{0, 7, 2},
		{3, 0, 5},
		{4, 1, 0},
	})
	res := NewNettingEngine(0).Net(g)
	for i := 0; i < 3; i++ {
		if g.Weight(i, i) != 0 || res.Weight(i, i) != 0 {
			t.Fatalf("diagonal entry %d non-zero", i)
		}
	}
}

func TestEmptyMatrix(t *testing.T) {
	g := mustGraph(t, [][]float64{
		{0, 0},
		{0, 0},
	})
	res := NewNettingEngine(0).Net(g)
	if g.RawLoad() != 0 || res.RawLoad() != 0 {
		t.Fatalf("loads should be zero")
	}
}

func TestDenseGraphTerminates(t *testing.T) {
	const n = 12
	m := make([][]float64, n)
	for i := range m {
		m[i] = make([]float64, n)
		for j := range m[i] {
			if i != j {
				m[i][j] = float64((i*7+j*3)%11) + 1
			}
		}
	}
	g := mustGraph(t, m)
	res := NewNettingEngine(0).Net(g)
	if res.RawLoad() >= g.RawLoad() {
		t.Fatalf("dense graph did not reduce: %v >= %v", res.RawLoad(), g.RawLoad())
	}
	// a fully netted graph has no positive-weight cycles left
	if c := findCycle(res.Matrix()); c != nil {
		t.Fatalf("residual still has cycle %v", c)
	}
}
