// Package scalar provides a float64 Variable for the autodiff engine.
//
// A Scalar is one of three kinds:
//   - tracked leaf: created with New, has an empty History, collects derivatives
//   - derived: produced by Apply, has a History pointing at its inputs
//   - constant: created with Constant (or derived only from constants), has no
//     History and is skipped by the backward pass
//
// Example:
//
//	x := scalar.New(5)
//	z := scalar.Mul(scalar.Add(x, scalar.Constant(1)), scalar.Constant(2))
//	z.Backward()
//	x.Derivative() // 2
package scalar

import (
	"fmt"

	"github.com/born-ml/autograd/internal/autodiff"
)

// Scalar is a float64 node in the computation graph.
type Scalar struct {
	id         uint64
	value      float64
	history    *autodiff.History[float64]
	derivative float64
}

// New creates a tracked leaf.
func New(v float64) *Scalar {
	return &Scalar{
		id:      autodiff.NextID(),
		value:   v,
		history: autodiff.NewHistory[float64](nil, nil),
	}
}

// Constant creates a value excluded from gradient tracking.
func Constant(v float64) *Scalar {
	return &Scalar{
		id:    autodiff.NextID(),
		value: v,
	}
}

// NewSlice creates one tracked leaf per value.
func NewSlice(vals ...float64) []*Scalar {
	out := make([]*Scalar, len(vals))
	for i, v := range vals {
		out[i] = New(v)
	}
	return out
}

// ConstantSlice creates one constant per value.
func ConstantSlice(vals ...float64) []*Scalar {
	out := make([]*Scalar, len(vals))
	for i, v := range vals {
		out[i] = Constant(v)
	}
	return out
}

// ID implements autodiff.Variable.
func (s *Scalar) ID() uint64 { return s.id }

// Value returns the forward value.
func (s *Scalar) Value() float64 { return s.value }

// Derivative returns the derivative accumulated so far (leaves only).
func (s *Scalar) Derivative() float64 { return s.derivative }

// ZeroGrad resets the accumulated derivative.
func (s *Scalar) ZeroGrad() { s.derivative = 0 }

// IsLeaf implements autodiff.Variable.
func (s *Scalar) IsLeaf() bool { return s.history.IsLeaf() }

// IsConstant implements autodiff.Variable.
func (s *Scalar) IsConstant() bool { return s.history == nil }

// History implements autodiff.Variable.
func (s *Scalar) History() *autodiff.History[float64] { return s.history }

// Parents implements autodiff.Variable.
func (s *Scalar) Parents() []autodiff.Variable[float64] { return s.history.Inputs() }

// ChainRule implements autodiff.Variable.
func (s *Scalar) ChainRule(dOutput float64) []autodiff.Partial[float64] {
	return s.history.ChainRule(dOutput)
}

// AccumulateDerivative implements autodiff.Variable.
func (s *Scalar) AccumulateDerivative(d float64) {
	if !s.IsLeaf() {
		panic(fmt.Sprintf("scalar: derivative accumulated on derived variable %d", s.id))
	}
	s.derivative += d
}

// Backward runs backpropagation from s with seed 1.0.
func (s *Scalar) Backward() {
	s.BackwardWith(1.0)
}

// BackwardWith runs backpropagation from s with the given seed.
func (s *Scalar) BackwardWith(seed float64) {
	autodiff.Backpropagate[float64](s, seed, autodiff.Float64)
}

// String implements fmt.Stringer.
func (s *Scalar) String() string {
	return fmt.Sprintf("Scalar(%g)", s.value)
}

// Values extracts the forward values of xs.
func Values(xs []*Scalar) []float64 {
	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = x.value
	}
	return out
}
