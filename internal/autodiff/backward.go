package autodiff

import "fmt"

// Accumulator supplies the additive structure of a gradient type.
type Accumulator[G any] interface {
	// Zero returns the additive identity, used for nodes that received no
	// contribution.
	Zero() G

	// Add returns a + b. It must not modify its arguments.
	Add(a, b G) G
}

// Float64 is the Accumulator for scalar gradients.
var Float64 Accumulator[float64] = float64Accumulator{}

// Dense is the Accumulator for []float64 gradients.
// A nil or empty slice is the zero vector and adds as a no-op.
var Dense Accumulator[[]float64] = denseAccumulator{}

type float64Accumulator struct{}

func (float64Accumulator) Zero() float64 { return 0 }

func (float64Accumulator) Add(a, b float64) float64 { return a + b }

type denseAccumulator struct{}

func (denseAccumulator) Zero() []float64 { return nil }

func (denseAccumulator) Add(a, b []float64) []float64 {
	switch {
	case len(a) == 0:
		return append([]float64(nil), b...)
	case len(b) == 0:
		return append([]float64(nil), a...)
	case len(a) != len(b):
		panic(fmt.Sprintf("autodiff: dense gradient length mismatch: %d vs %d", len(a), len(b)))
	}

	out := make([]float64, len(a))
	for i := range a {
		out[i] = a[i] + b[i]
	}
	return out
}

// Backpropagate pushes seed (the derivative of the final output with respect
// to root) back through the graph and calls AccumulateDerivative exactly once
// on every reachable tracked leaf.
//
// Algorithm:
//  1. Order the tracked subgraph root first (TopologicalSort)
//  2. Seed the running map with {root: seed}
//  3. Visit nodes in order: leaves receive their total, other nodes apply
//     their chain rule and add each partial into the input's running total
//
// Because every consumer of a node precedes it in the order, a node's total is
// complete by the time it is consumed.
//
// Panics with a *GraphError on a malformed graph.
func Backpropagate[G any](root Variable[G], seed G, acc Accumulator[G]) {
	NewEngine(acc).Backpropagate(root, seed)
}
