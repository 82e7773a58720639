package engine

// ContagionResult is the outcome of one shock simulation.
type ContagionResult struct {
	Stability float64 // cascade loss over seed shock; 0 with no seed shock
	IsStable  bool
	Defaults  int  // entities defaulted beyond the seed set
	Converged bool // false when the pass cap was hit before a fixed point
}

// ContagionSimulator propagates a shock through the residual graph. Seed
// entities (the highest hub-score ones) are marked stressed and their
// outgoing obligations become losses for their creditors; an entity defaults
// once cumulative losses exceed its capital buffer and re-propagates its own
// obligations. The stability index is the ratio of cascade-amplified losses
// to the initial shock.
type ContagionSimulator struct {
	seedThreshold      float64
	stabilityThreshold float64
	maxPasses          int
}

// NewContagionSimulator builds a simulator. seedThreshold selects the seed
// set by hub score; stabilityThreshold classifies stable vs cascading;
// maxPasses bounds the fixed-point loop.
func NewContagionSimulator(seedThreshold, stabilityThreshold float64, maxPasses int) *ContagionSimulator {
	if seedThreshold <= 0 {
		seedThreshold = 0.7
	}
	if stabilityThreshold <= 0 {
		stabilityThreshold = 1.0
	}
	if maxPasses <= 0 {
		maxPasses = 1000
	}
	return &ContagionSimulator{
		seedThreshold:      seedThreshold,
		stabilityThreshold: stabilityThreshold,
		maxPasses:          maxPasses,
	}
}

// Run simulates the cascade on residual graph g with the given hub scores and
// risk factors. A risk factor near 1 means a thin capital buffer.
func (s *ContagionSimulator) Run(g *ObligationGraph, hubScores, riskFactors []float64) ContagionResult {
	n := g.Size()
	if n == 0 {
		return ContagionResult{Stability: 0, IsStable: true, Converged: true}
	}

	seeds := s.seedSet(hubScores)
	var initialShock float64
	for _, i := range seeds {
		initialShock += g.Outflow(i)
	}
	if initialShock == 0 {
		// nothing to propagate; an empty or isolated seed set is trivially stable
		return ContagionResult{Stability: 0, IsStable: true, Converged: true}
	}

	// capital buffer shrinks as risk factor grows, scaled by total exposure
	buffer := make([]float64, n)
	for i := 0; i < n; i++ {
		buffer[i] = (1 - riskFactors[i]) * (g.Inflow(i) + g.Outflow(i))
	}

	defaulted := make([]bool, n)
	loss := make([]float64, n)
	for _, i := range seeds {
		defaulted[i] = true
	}

	propagate := func(src int) {
		out := g.Outflow(src)
		if out == 0 {
			return
		}
		for j := 0; j < n; j++ {
			if w := g.Weight(src, j); w > 0 {
				loss[j] += w
			}
		}
	}
	for _, i := range seeds {
		propagate(i)
	}

	var cascadeLoss float64
	cascaded := 0
	converged := false
	for pass := 0; pass < s.maxPasses; pass++ {
		newDefault := false
		for i := 0; i < n; i++ {
			if defaulted[i] || loss[i] <= buffer[i] {
				continue
			}
			defaulted[i] = true
			cascaded++
			cascadeLoss += g.Outflow(i)
			propagate(i)
			newDefault = true
		}
		if !newDefault {
			converged = true
			break
		}
	}

	stability := cascadeLoss / initialShock
	return ContagionResult{
		Stability: stability,
		IsStable:  stability < s.stabilityThreshold,
		Defaults:  cascaded,
		Converged: converged,
	}
}

// seedSet is every entity at or above the hub-score threshold; when none
// qualify but scores exist, the single top-scored entity seeds the shock.
func (s *ContagionSimulator) seedSet(hubScores []float64) []int {
	var seeds []int
	best, bestScore := -1, 0.0
	for i, h := range hubScores {
		if h >= s.seedThreshold {
			seeds = append(seeds, i)
		}
		if h > bestScore {
			best, bestScore = i, h
		}
	}
	if len(seeds) == 0 && best >= 0 {
		seeds = []int{best}
	}
	return seeds
}
