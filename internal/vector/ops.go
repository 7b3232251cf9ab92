package vector

import (
	"fmt"
	"math"

	"github.com/born-ml/autograd/internal/autodiff"
	"github.com/born-ml/autograd/internal/parallel"
)

// kernels partitions elementwise work for long vectors.
var kernels = parallel.DefaultConfig()

// Function is a differentiable operation on dense vectors.
type Function interface {
	autodiff.Function[[]float64]

	Forward(ctx *autodiff.Context[[]float64], inputs ...[]float64) []float64
}

// Apply evaluates fn on inputs and records the History of the result.
// All-constant inputs produce a Constant with nothing saved.
func Apply(fn Function, inputs ...*Vector) *Vector {
	vals := make([][]float64, len(inputs))
	needGrad := false
	for i, in := range inputs {
		vals[i] = in.data
		if !in.IsConstant() {
			needGrad = true
		}
	}

	ctx := autodiff.NewContext[[]float64](!needGrad)
	out := fn.Forward(ctx, vals...)
	if !needGrad {
		return &Vector{id: autodiff.NextID(), data: out}
	}

	vars := make([]autodiff.Variable[[]float64], len(inputs))
	for i, in := range inputs {
		vars[i] = in
	}

	return &Vector{
		id:      autodiff.NextID(),
		data:    out,
		history: autodiff.NewHistory[[]float64](fn, ctx, vars...),
	}
}

// Add returns the element-wise sum a + b.
func Add(a, b *Vector) *Vector {
	mustMatch("add", a, b)
	return Apply(addFn{}, a, b)
}

// Mul returns the element-wise product a * b.
func Mul(a, b *Vector) *Vector {
	mustMatch("mul", a, b)
	return Apply(mulFn{}, a, b)
}

// Scale returns c * a.
func Scale(a *Vector, c float64) *Vector {
	return Apply(scaleFn{c: c}, a)
}

// Sum reduces a to a single-element vector.
func Sum(a *Vector) *Vector {
	return Apply(sumFn{n: a.Len()}, a)
}

// Dot returns the single-element vector Σ a_i * b_i.
func Dot(a, b *Vector) *Vector {
	return Sum(Mul(a, b))
}

// Tanh applies tanh element-wise.
func Tanh(a *Vector) *Vector {
	return Apply(tanhFn{}, a)
}

// ReLU applies max(0, x) element-wise.
func ReLU(a *Vector) *Vector {
	return Apply(reluFn{}, a)
}

func mustMatch(op string, a, b *Vector) {
	if a.Len() != b.Len() {
		panic(fmt.Sprintf("vector: %s length mismatch: %d vs %d", op, a.Len(), b.Len()))
	}
}

func mapValues(x []float64, f func(float64) float64) []float64 {
	return parallel.Map(x, kernels, f)
}

func zipValues(a, b []float64, f func(x, y float64) float64) []float64 {
	return parallel.Zip(a, b, kernels, f)
}

func mul(x, y float64) float64 { return x * y }

type addFn struct{}

func (addFn) Name() string { return "vector.add" }

func (addFn) Forward(_ *autodiff.Context[[]float64], in ...[]float64) []float64 {
	return zipValues(in[0], in[1], func(x, y float64) float64 { return x + y })
}

// Backward hands each input its own copy so accumulation never aliases.
func (addFn) Backward(_ *autodiff.Context[[]float64], d []float64) [][]float64 {
	return [][]float64{append([]float64(nil), d...), append([]float64(nil), d...)}
}

// mulFn: grad_a = d * b, grad_b = d * a.
type mulFn struct{}

func (mulFn) Name() string { return "vector.mul" }

func (mulFn) Forward(ctx *autodiff.Context[[]float64], in ...[]float64) []float64 {
	ctx.SaveForBackward(in[0], in[1])
	return zipValues(in[0], in[1], mul)
}

func (mulFn) Backward(ctx *autodiff.Context[[]float64], d []float64) [][]float64 {
	saved := ctx.SavedValues()
	a, b := saved[0], saved[1]
	return [][]float64{zipValues(d, b, mul), zipValues(d, a, mul)}
}

type scaleFn struct {
	c float64
}

func (scaleFn) Name() string { return "vector.scale" }

func (f scaleFn) Forward(_ *autodiff.Context[[]float64], in ...[]float64) []float64 {
	return mapValues(in[0], func(x float64) float64 { return f.c * x })
}

func (f scaleFn) Backward(_ *autodiff.Context[[]float64], d []float64) [][]float64 {
	return [][]float64{mapValues(d, func(x float64) float64 { return f.c * x })}
}

// sumFn broadcasts the single output gradient back over n elements.
type sumFn struct {
	n int
}

func (sumFn) Name() string { return "vector.sum" }

func (sumFn) Forward(_ *autodiff.Context[[]float64], in ...[]float64) []float64 {
	var total float64
	for _, v := range in[0] {
		total += v
	}
	return []float64{total}
}

func (f sumFn) Backward(_ *autodiff.Context[[]float64], d []float64) [][]float64 {
	grad := make([]float64, f.n)
	for i := range grad {
		grad[i] = d[0]
	}
	return [][]float64{grad}
}

// tanhFn: d(tanh x)/dx = 1 - tanh²(x), computed from the saved output.
type tanhFn struct{}

func (tanhFn) Name() string { return "vector.tanh" }

func (tanhFn) Forward(ctx *autodiff.Context[[]float64], in ...[]float64) []float64 {
	out := mapValues(in[0], math.Tanh)
	ctx.SaveForBackward(out)
	return out
}

func (tanhFn) Backward(ctx *autodiff.Context[[]float64], d []float64) [][]float64 {
	out := ctx.SavedValues()[0]
	return [][]float64{zipValues(d, out, func(g, y float64) float64 { return g * (1 - y*y) })}
}

type reluFn struct{}

func (reluFn) Name() string { return "vector.relu" }

func (reluFn) Forward(ctx *autodiff.Context[[]float64], in ...[]float64) []float64 {
	ctx.SaveForBackward(in[0])
	return mapValues(in[0], func(x float64) float64 { return math.Max(0, x) })
}

func (reluFn) Backward(ctx *autodiff.Context[[]float64], d []float64) [][]float64 {
	x := ctx.SavedValues()[0]
	return [][]float64{zipValues(d, x, func(g, v float64) float64 {
		if v > 0 {
			return g
		}
		return 0
	})}
}
