package engine

// NettingEngine reduces a gross obligation graph to a residual one with the
// same per-entity net positions: a bilateral offset pass followed by repeated
// cancellation of positive-weight cycles.
type NettingEngine struct {
	maxCycles int
}

// NewNettingEngine creates a netting engine. maxCycles bounds the cycle
// cancellation loop; valid inputs terminate well before the bound since each
// cancellation zeroes at least one edge.
func NewNettingEngine(maxCycles int) *NettingEngine {
	if maxCycles <= 0 {
		maxCycles = 10000
	}
	return &NettingEngine{maxCycles: maxCycles}
}

// Net produces the residual graph. The input graph is left untouched.
func (e *NettingEngine) Net(g *ObligationGraph) *ObligationGraph {
	n := g.Size()
	m := g.Matrix()

	// Bilateral offset: collapse each pair's opposing obligations into one
	// net directed weight. Exact; loses no net position.
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if m[i][j] >= m[j][i] {
				m[i][j] -= m[j][i]
				m[j][i] = 0
			} else {
				m[j][i] -= m[i][j]
				m[i][j] = 0
			}
		}
	}

	// Multilateral cycle cancellation: cancel the minimum weight around every
	// remaining positive-weight cycle. Each pass removes at least one edge.
	// Dust below weightEps is flushed per edge inside cancelCycle; edges the
	// cancellation never touches keep their exact gross weight.
	for iter := 0; iter < e.maxCycles; iter++ {
		cycle := findCycle(m)
		if cycle == nil {
			break
		}
		cancelCycle(m, cycle)
	}

	res, _ := NewGraph(m)
	return res
}

// findCycle runs a DFS over the positive-weight subgraph and returns the first
// directed cycle found as a node index sequence, or nil. Nodes and successors
// are visited in ascending index order so the result is deterministic.
func findCycle(m [][]float64) []int {
	n := len(m)
	const (
		white = 0 // unvisited
		gray  = 1 // on the current DFS path
		black = 2 // fully explored
	)
	color := make([]int, n)
	parent := make([]int, n)
	for i := range parent {
		parent[i] = -1
	}

	var cycle []int
	var dfs func(u int) bool
	dfs = func(u int) bool {
		color[u] = gray
		for v := 0; v < n; v++ {
			if m[u][v] <= weightEps {
				continue
			}
			switch color[v] {
			case white:
				parent[v] = u
				if dfs(v) {
					return true
				}
			case gray:
				// back edge u→v closes a cycle v … u
				cycle = []int{v}
				for x := u; x != v; x = parent[x] {
					cycle = append(cycle, x)
				}
				// reverse into path order v → … → u
				for l, r := 1, len(cycle)-1; l < r; l, r = l+1, r-1 {
					cycle[l], cycle[r] = cycle[r], cycle[l]
				}
				return true
			}
		}
		color[u] = black
		return false
	}

	for u := 0; u < n; u++ {
		if color[u] == white && dfs(u) {
			return cycle
		}
	}
	return nil
}

// cancelCycle subtracts the minimum weight along the cycle from every edge in
// it, zeroing at least one edge while leaving all net positions unchanged.
func cancelCycle(m [][]float64, cycle []int) {
	k := len(cycle)
	delta := m[cycle[k-1]][cycle[0]]
	for i := 0; i < k-1; i++ {
		if w := m[cycle[i]][cycle[i+1]]; w < delta {
			delta = w
		}
	}
	for i := 0; i < k; i++ {
		u, v := cycle[i], cycle[(i+1)%k]
		m[u][v] -= delta
		if m[u][v] <= weightEps {
			m[u][v] = 0
		}
	}
}
