package engine

// Buffers holds the two settlement sizing add-ons computed from residual
// outflows and per-entity risk factors.
type Buffers struct {
	RiskBuffer      float64 // expected-loss style: Σ risk_factor[i] × outflow[i]
	WorstCaseBuffer float64 // full default of the riskiest participants
}

// RiskBufferCalculator sizes risk buffers over a residual graph.
type RiskBufferCalculator struct {
	highRiskThreshold float64
}

// NewRiskBufferCalculator builds a calculator. Entities whose risk factor
// exceeds highRiskThreshold form the worst-case default set; when none do,
// the single riskiest entity is assumed to default fully.
func NewRiskBufferCalculator(highRiskThreshold float64) *RiskBufferCalculator {
	if highRiskThreshold <= 0 {
		highRiskThreshold = 0.7
	}
	return &RiskBufferCalculator{highRiskThreshold: highRiskThreshold}
}

// Compute returns both buffers for residual graph g.
func (c *RiskBufferCalculator) Compute(g *ObligationGraph, riskFactors []float64) Buffers {
	n := g.Size()
	if n == 0 {
		return Buffers{}
	}

	var riskBuffer float64
	outflow := make([]float64, n)
	for i := 0; i < n; i++ {
		outflow[i] = g.Outflow(i)
		riskBuffer += riskFactors[i] * outflow[i]
	}

	var worstCase float64
	riskiest, riskiestRF := -1, -1.0
	for i := 0; i < n; i++ {
		if riskFactors[i] > c.highRiskThreshold {
			worstCase += outflow[i]
		}
		if riskFactors[i] > riskiestRF {
			riskiest, riskiestRF = i, riskFactors[i]
		}
	}
	if worstCase == 0 && riskiest >= 0 {
		worstCase = outflow[riskiest]
	}
	// the worst case assumes full defaults and can never undercut the
	// probability-weighted buffer
	if worstCase < riskBuffer {
		worstCase = riskBuffer
	}

	return Buffers{RiskBuffer: riskBuffer, WorstCaseBuffer: worstCase}
}
