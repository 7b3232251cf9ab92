package scalar

import "github.com/born-ml/autograd/internal/autodiff"

// Function is a differentiable operation on float64 values.
//
// Forward computes the result and may stash intermediates in ctx;
// Backward (from autodiff.Function) reads them back.
type Function interface {
	autodiff.Function[float64]

	Forward(ctx *autodiff.Context[float64], inputs ...float64) float64
}

// Apply evaluates fn on inputs and records the History of the result.
//
// When every input is constant the Context is created with noGrad, nothing is
// saved and the result is itself a Constant.
func Apply(fn Function, inputs ...*Scalar) *Scalar {
	vals := make([]float64, len(inputs))
	needGrad := false
	for i, in := range inputs {
		vals[i] = in.value
		if !in.IsConstant() {
			needGrad = true
		}
	}

	ctx := autodiff.NewContext[float64](!needGrad)
	out := fn.Forward(ctx, vals...)
	if !needGrad {
		return Constant(out)
	}

	vars := make([]autodiff.Variable[float64], len(inputs))
	for i, in := range inputs {
		vars[i] = in
	}

	return &Scalar{
		id:      autodiff.NextID(),
		value:   out,
		history: autodiff.NewHistory[float64](fn, ctx, vars...),
	}
}
