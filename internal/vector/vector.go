// Package vector provides a dense []float64 Variable for the autodiff engine.
//
// It exists to exercise the engine with a non-scalar gradient type. Shapes
// are one-dimensional and operations require equal lengths; there is no
// broadcasting.
package vector

import (
	"fmt"
	"slices"

	"github.com/born-ml/autograd/internal/autodiff"
)

// Vector is a dense float64 vector node in the computation graph.
type Vector struct {
	id      uint64
	data    []float64
	history *autodiff.History[[]float64]
	grad    []float64
}

// New creates a tracked leaf holding a copy of data.
func New(data ...float64) *Vector {
	return &Vector{
		id:      autodiff.NextID(),
		data:    slices.Clone(data),
		history: autodiff.NewHistory[[]float64](nil, nil),
	}
}

// Constant creates a vector excluded from gradient tracking.
func Constant(data ...float64) *Vector {
	return &Vector{
		id:   autodiff.NextID(),
		data: slices.Clone(data),
	}
}

// Len returns the number of elements.
func (v *Vector) Len() int { return len(v.data) }

// Data returns a copy of the forward values.
func (v *Vector) Data() []float64 { return slices.Clone(v.data) }

// Grad returns a copy of the accumulated gradient. Before any backward pass
// it is a zero vector of matching length.
func (v *Vector) Grad() []float64 {
	if v.grad == nil {
		return make([]float64, len(v.data))
	}
	return slices.Clone(v.grad)
}

// ZeroGrad clears the accumulated gradient.
func (v *Vector) ZeroGrad() { v.grad = nil }

// ID implements autodiff.Variable.
func (v *Vector) ID() uint64 { return v.id }

// IsLeaf implements autodiff.Variable.
func (v *Vector) IsLeaf() bool { return v.history.IsLeaf() }

// IsConstant implements autodiff.Variable.
func (v *Vector) IsConstant() bool { return v.history == nil }

// History implements autodiff.Variable.
func (v *Vector) History() *autodiff.History[[]float64] { return v.history }

// Parents implements autodiff.Variable.
func (v *Vector) Parents() []autodiff.Variable[[]float64] { return v.history.Inputs() }

// ChainRule implements autodiff.Variable.
func (v *Vector) ChainRule(dOutput []float64) []autodiff.Partial[[]float64] {
	return v.history.ChainRule(dOutput)
}

// AccumulateDerivative implements autodiff.Variable.
func (v *Vector) AccumulateDerivative(d []float64) {
	if !v.IsLeaf() {
		panic(fmt.Sprintf("vector: gradient accumulated on derived variable %d", v.id))
	}
	v.grad = autodiff.Dense.Add(v.grad, d)
}

// Backward runs backpropagation from v seeded with ones.
func (v *Vector) Backward() {
	seed := make([]float64, len(v.data))
	for i := range seed {
		seed[i] = 1
	}
	v.BackwardWith(seed)
}

// BackwardWith runs backpropagation from v with the given seed.
func (v *Vector) BackwardWith(seed []float64) {
	if len(seed) != len(v.data) {
		panic(fmt.Sprintf("vector: seed length %d does not match vector length %d", len(seed), len(v.data)))
	}
	autodiff.Backpropagate[[]float64](v, seed, autodiff.Dense)
}

// String implements fmt.Stringer.
func (v *Vector) String() string {
	return fmt.Sprintf("Vector(%v)", v.data)
}
