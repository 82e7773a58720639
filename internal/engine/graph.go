package engine

import "fmt"

// weightEps is the floor below which a residual weight is treated as zero.
const weightEps = 1e-9

// ValidationError reports a malformed obligation matrix. It is fatal to the
// horizon being computed but never silently corrected.
type ValidationError struct {
	Reason string
	Row    int
	Col    int
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("obligation matrix invalid at [%d][%d]: %s", e.Row, e.Col, e.Reason)
}

// ObligationGraph is an immutable snapshot of gross bilateral obligations
// among n entities for one horizon. Entities are dense integer indices; the
// matrix entry m[i][j] is the amount entity i owes entity j.
type ObligationGraph struct {
	n int
	m [][]float64
}

// NewGraph validates and copies a gross obligation matrix. The matrix must be
// square with a zero diagonal and non-negative weights.
func NewGraph(matrix [][]float64) (*ObligationGraph, error) {
	n := len(matrix)
	for i, row := range matrix {
		if len(row) != n {
			return nil, &ValidationError{Reason: fmt.Sprintf("row length %d, want %d", len(row), n), Row: i, Col: len(row)}
		}
		for j, w := range row {
			if w < 0 {
				return nil, &ValidationError{Reason: fmt.Sprintf("negative weight %v", w), Row: i, Col: j}
			}
			if i == j && w != 0 {
				return nil, &ValidationError{Reason: "self-obligation on diagonal", Row: i, Col: j}
			}
		}
	}

	m := make([][]float64, n)
	for i := range matrix {
		m[i] = append([]float64(nil), matrix[i]...)
	}
	return &ObligationGraph{n: n, m: m}, nil
}

// Size returns the number of entities.
func (g *ObligationGraph) Size() int { return g.n }

// Weight returns the obligation from i to j.
func (g *ObligationGraph) Weight(i, j int) float64 { return g.m[i][j] }

// Matrix returns a defensive copy of the obligation matrix.
func (g *ObligationGraph) Matrix() [][]float64 {
	out := make([][]float64, g.n)
	for i := range g.m {
		out[i] = append([]float64(nil), g.m[i]...)
	}
	return out
}

// RawLoad is the sum of all obligation weights.
func (g *ObligationGraph) RawLoad() float64 {
	var total float64
	for i := range g.m {
		for j := range g.m[i] {
			total += g.m[i][j]
		}
	}
	return total
}

// Outflow is the total amount entity i owes.
func (g *ObligationGraph) Outflow(i int) float64 {
	var total float64
	for j := range g.m[i] {
		total += g.m[i][j]
	}
	return total
}

// Inflow is the total amount owed to entity i.
func (g *ObligationGraph) Inflow(i int) float64 {
	var total float64
	for j := range g.m {
		total += g.m[j][i]
	}
	return total
}

// NetPosition is Outflow(i) − Inflow(i); invariant across netting.
func (g *ObligationGraph) NetPosition(i int) float64 {
	return g.Outflow(i) - g.Inflow(i)
}
