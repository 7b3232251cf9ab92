// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package autodiff provides reverse-mode automatic differentiation over
// computation graphs of variables.
//
// Every derived variable carries a History naming the Function that produced
// it, the inputs it consumed and the Context saved during the forward pass.
// Backpropagate orders the graph topologically and pushes a seed derivative
// from the output back to every leaf.
//
// Example:
//
//	import (
//	    "github.com/born-ml/autograd/autodiff"
//	    "github.com/born-ml/autograd/scalar"
//	)
//
//	func main() {
//	    x := scalar.New(2)
//	    y := scalar.Mul(x, scalar.Exp(x))
//	    autodiff.Backpropagate(y, 1.0, autodiff.Float64)
//	    fmt.Println(x.Derivative()) // e² + 2e²
//	}
package autodiff

import (
	"log/slog"

	"github.com/born-ml/autograd/internal/autodiff"
)

// Variable is a node in a computation graph.
type Variable[G any] = autodiff.Variable[G]

// Partial pairs an input variable with the derivative flowing into it.
type Partial[G any] = autodiff.Partial[G]

// History records how a derived variable was produced.
type History[G any] = autodiff.History[G]

// Context stores values saved during the forward pass for use in Backward.
type Context[G any] = autodiff.Context[G]

// Function is the backward half of a differentiable operation.
type Function[G any] = autodiff.Function[G]

// Accumulator sums gradient contributions of type G.
type Accumulator[G any] = autodiff.Accumulator[G]

// Engine runs backward passes with optional observer and logger.
type Engine[G any] = autodiff.Engine[G]

// Observer receives callbacks during a backward pass.
type Observer = autodiff.Observer

// Option configures an Engine.
type Option = autodiff.Option

// GraphError describes a violated graph precondition.
type GraphError = autodiff.GraphError

// Graph precondition kinds, matched with errors.Is.
var (
	ErrCycle         = autodiff.ErrCycle
	ErrArityMismatch = autodiff.ErrArityMismatch
	ErrDanglingInput = autodiff.ErrDanglingInput
	ErrLeafChainRule = autodiff.ErrLeafChainRule
)

// Built-in accumulators.
var (
	// Float64 sums scalar gradients.
	Float64 = autodiff.Float64

	// Dense sums []float64 gradients elementwise; nil is zero.
	Dense = autodiff.Dense
)

// DefaultEpsilon is the step used by Derivative.
const DefaultEpsilon = autodiff.DefaultEpsilon

// NextID returns a fresh, process-unique variable id.
func NextID() uint64 {
	return autodiff.NextID()
}

// NewHistory records that fn produced a value from inputs.
func NewHistory[G any](fn Function[G], ctx *Context[G], inputs ...Variable[G]) *History[G] {
	return autodiff.NewHistory(fn, ctx, inputs...)
}

// NewContext creates a forward-pass context.
func NewContext[G any](noGrad bool) *Context[G] {
	return autodiff.NewContext[G](noGrad)
}

// WithObserver attaches an Observer to an Engine.
func WithObserver(o Observer) Option {
	return autodiff.WithObserver(o)
}

// WithLogger sets the logger used for debug output.
func WithLogger(l *slog.Logger) Option {
	return autodiff.WithLogger(l)
}

// NewEngine creates an engine summing contributions with acc.
func NewEngine[G any](acc Accumulator[G], opts ...Option) *Engine[G] {
	return autodiff.NewEngine(acc, opts...)
}

// TopologicalSort returns the non-constant variables reachable from root,
// each appearing before all of its inputs.
func TopologicalSort[G any](root Variable[G]) []Variable[G] {
	return autodiff.TopologicalSort(root)
}

// Backpropagate pushes seed from root back to every leaf it depends on.
func Backpropagate[G any](root Variable[G], seed G, acc Accumulator[G]) {
	autodiff.Backpropagate(root, seed, acc)
}

// CentralDifference estimates ∂f/∂vals[arg] with a symmetric step of epsilon.
func CentralDifference(f func(...float64) float64, arg int, epsilon float64, vals ...float64) float64 {
	return autodiff.CentralDifference(f, arg, epsilon, vals...)
}

// Derivative is CentralDifference with DefaultEpsilon.
func Derivative(f func(...float64) float64, arg int, vals ...float64) float64 {
	return autodiff.Derivative(f, arg, vals...)
}
