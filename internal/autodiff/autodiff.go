// Package autodiff implements reverse-mode automatic differentiation over a
// dynamically built computation graph.
//
// Architecture:
//   - Variable: a graph node (leaf, derived or constant), generic over the
//     gradient type G (float64 for scalars, []float64 for dense vectors)
//   - History: provenance of a derived Variable (Function, Context, inputs)
//   - Context: values stashed during the forward pass for the backward rule
//   - TopologicalSort: root-first ordering of the reachable, tracked subgraph
//   - Backpropagate: single reverse sweep that sums contributions per node and
//     routes totals into leaf accumulation sinks
//
// Usage:
//
//	x := scalar.New(5)
//	y := scalar.Mul(scalar.Add(x, scalar.Constant(1)), scalar.Constant(2))
//	autodiff.Backpropagate[float64](y, 1.0, autodiff.Float64)
//	fmt.Println(x.Derivative()) // 2
//
// The engine is single-threaded. Graphs may be built concurrently (ids come
// from an atomic counter), but a backward pass must not run concurrently with
// mutation of the graph it walks.
package autodiff

import "sync/atomic"

// Variable is a node of the computation graph.
//
// Concrete scalar and tensor types implement it; the engine never inspects
// values, it only routes gradients of type G between nodes.
type Variable[G any] interface {
	// ID returns the process-unique identity assigned at construction.
	ID() uint64

	// IsLeaf reports whether the variable has no recorded producing operation.
	IsLeaf() bool

	// IsConstant reports whether the variable is excluded from gradient tracking.
	// Constants are pruned from traversal even when structurally reachable.
	IsConstant() bool

	// History returns the provenance record, or nil.
	History() *History[G]

	// Parents returns the ordered inputs recorded in the History (empty for leaves).
	Parents() []Variable[G]

	// ChainRule maps the gradient flowing into this node to one Partial per parent.
	ChainRule(dOutput G) []Partial[G]

	// AccumulateDerivative adds d into the variable's running derivative.
	// Only meaningful for leaves.
	AccumulateDerivative(d G)
}

// Partial is the local gradient contribution to one input of a node.
type Partial[G any] struct {
	Input Variable[G]
	Grad  G
}

var variableCount atomic.Uint64

// NextID returns a fresh variable id. Ids start at 1 and never repeat within
// the process.
func NextID() uint64 {
	return variableCount.Add(1)
}
