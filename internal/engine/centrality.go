package engine

import "math"

// CentralityScorer computes normalized systemic-importance scores over the
// residual graph by iterated authority scoring: an entity is important in
// proportion to the weighted importance of its counterparties.
type CentralityScorer struct {
	tolerance float64
	maxIters  int
}

// NewCentralityScorer builds a scorer with the given L∞ convergence tolerance
// and iteration cap.
func NewCentralityScorer(tolerance float64, maxIters int) *CentralityScorer {
	if tolerance <= 0 {
		tolerance = 1e-9
	}
	if maxIters <= 0 {
		maxIters = 100
	}
	return &CentralityScorer{tolerance: tolerance, maxIters: maxIters}
}

// Scores returns per-entity hub scores in [0,1] with the top entity at 1
// whenever any entity has residual degree, plus whether the iteration
// converged within the cap. Hitting the cap is not an error: the last iterate
// is returned and the caller records the condition.
func (s *CentralityScorer) Scores(g *ObligationGraph) ([]float64, bool) {
	n := g.Size()
	if n == 0 {
		return nil, true
	}

	score := make([]float64, n)
	for i := range score {
		score[i] = 1.0 / float64(n)
	}
	next := make([]float64, n)

	for iter := 0; iter < s.maxIters; iter++ {
		var max float64
		for i := 0; i < n; i++ {
			var sum float64
			for j := 0; j < n; j++ {
				if j == i {
					continue
				}
				sum += (g.Weight(j, i) + g.Weight(i, j)) * score[j]
			}
			next[i] = sum
			if sum > max {
				max = sum
			}
		}

		if max == 0 {
			// no residual degree anywhere; all scores collapse to zero
			for i := range score {
				score[i] = 0
			}
			return score, true
		}

		var delta float64
		for i := 0; i < n; i++ {
			next[i] /= max
			if d := math.Abs(next[i] - score[i]); d > delta {
				delta = d
			}
		}
		score, next = next, score

		if delta < s.tolerance {
			return score, true
		}
	}
	return score, false
}
