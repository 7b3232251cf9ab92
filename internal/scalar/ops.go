package scalar

import (
	"math"

	"github.com/born-ml/autograd/internal/autodiff"
)

// Add returns a + b.
func Add(a, b *Scalar) *Scalar { return Apply(addFn{}, a, b) }

// Sub returns a - b.
func Sub(a, b *Scalar) *Scalar { return Apply(subFn{}, a, b) }

// Neg returns -a.
func Neg(a *Scalar) *Scalar { return Apply(negFn{}, a) }

// Mul returns a * b.
func Mul(a, b *Scalar) *Scalar { return Apply(mulFn{}, a, b) }

// Div returns a / b.
func Div(a, b *Scalar) *Scalar { return Apply(divFn{}, a, b) }

// Inv returns 1 / a.
func Inv(a *Scalar) *Scalar { return Apply(invFn{}, a) }

// Log returns the natural logarithm of a.
func Log(a *Scalar) *Scalar { return Apply(logFn{}, a) }

// Exp returns e^a.
func Exp(a *Scalar) *Scalar { return Apply(expFn{}, a) }

// Sigmoid returns 1 / (1 + e^-a).
func Sigmoid(a *Scalar) *Scalar { return Apply(sigmoidFn{}, a) }

// ReLU returns max(0, a).
func ReLU(a *Scalar) *Scalar { return Apply(reluFn{}, a) }

// Pow returns a^n for an integer exponent.
func Pow(a *Scalar, n int) *Scalar { return Apply(powFn{n: n}, a) }

// LT returns 1 if a < b, else 0. Its derivative is zero everywhere.
func LT(a, b *Scalar) *Scalar { return Apply(ltFn{}, a, b) }

// EQ returns 1 if a == b, else 0. Its derivative is zero everywhere.
func EQ(a, b *Scalar) *Scalar { return Apply(eqFn{}, a, b) }

// addFn: d(a+b)/da = d(a+b)/db = 1.
type addFn struct{}

func (addFn) Name() string { return "add" }

func (addFn) Forward(_ *autodiff.Context[float64], in ...float64) float64 {
	return in[0] + in[1]
}

func (addFn) Backward(_ *autodiff.Context[float64], d float64) []float64 {
	return []float64{d, d}
}

type subFn struct{}

func (subFn) Name() string { return "sub" }

func (subFn) Forward(_ *autodiff.Context[float64], in ...float64) float64 {
	return in[0] - in[1]
}

func (subFn) Backward(_ *autodiff.Context[float64], d float64) []float64 {
	return []float64{d, -d}
}

type negFn struct{}

func (negFn) Name() string { return "neg" }

func (negFn) Forward(_ *autodiff.Context[float64], in ...float64) float64 {
	return -in[0]
}

func (negFn) Backward(_ *autodiff.Context[float64], d float64) []float64 {
	return []float64{-d}
}

// mulFn: d(a*b)/da = b, d(a*b)/db = a.
type mulFn struct{}

func (mulFn) Name() string { return "mul" }

func (mulFn) Forward(ctx *autodiff.Context[float64], in ...float64) float64 {
	ctx.SaveForBackward(in[0], in[1])
	return in[0] * in[1]
}

func (mulFn) Backward(ctx *autodiff.Context[float64], d float64) []float64 {
	saved := ctx.SavedValues()
	a, b := saved[0], saved[1]
	return []float64{d * b, d * a}
}

// divFn: d(a/b)/da = 1/b, d(a/b)/db = -a/b².
type divFn struct{}

func (divFn) Name() string { return "div" }

func (divFn) Forward(ctx *autodiff.Context[float64], in ...float64) float64 {
	ctx.SaveForBackward(in[0], in[1])
	return in[0] / in[1]
}

func (divFn) Backward(ctx *autodiff.Context[float64], d float64) []float64 {
	saved := ctx.SavedValues()
	a, b := saved[0], saved[1]
	return []float64{d / b, -d * a / (b * b)}
}

// invFn: d(1/a)/da = -1/a².
type invFn struct{}

func (invFn) Name() string { return "inv" }

func (invFn) Forward(ctx *autodiff.Context[float64], in ...float64) float64 {
	ctx.SaveForBackward(in[0])
	return 1 / in[0]
}

func (invFn) Backward(ctx *autodiff.Context[float64], d float64) []float64 {
	a := ctx.SavedValues()[0]
	return []float64{-d / (a * a)}
}

// logFn: d(log a)/da = 1/a. Inputs must be positive.
type logFn struct{}

func (logFn) Name() string { return "log" }

func (logFn) Forward(ctx *autodiff.Context[float64], in ...float64) float64 {
	ctx.SaveForBackward(in[0])
	return math.Log(in[0])
}

func (logFn) Backward(ctx *autodiff.Context[float64], d float64) []float64 {
	a := ctx.SavedValues()[0]
	return []float64{d / a}
}

// expFn saves its output since d(e^a)/da = e^a.
type expFn struct{}

func (expFn) Name() string { return "exp" }

func (expFn) Forward(ctx *autodiff.Context[float64], in ...float64) float64 {
	out := math.Exp(in[0])
	ctx.SaveForBackward(out)
	return out
}

func (expFn) Backward(ctx *autodiff.Context[float64], d float64) []float64 {
	out := ctx.SavedValues()[0]
	return []float64{d * out}
}

// sigmoidFn: dσ/da = σ(a)(1 - σ(a)).
type sigmoidFn struct{}

func (sigmoidFn) Name() string { return "sigmoid" }

func (sigmoidFn) Forward(ctx *autodiff.Context[float64], in ...float64) float64 {
	out := sigmoid(in[0])
	ctx.SaveForBackward(out)
	return out
}

func (sigmoidFn) Backward(ctx *autodiff.Context[float64], d float64) []float64 {
	s := ctx.SavedValues()[0]
	return []float64{d * s * (1 - s)}
}

// sigmoid avoids overflow of e^-x for large negative x.
func sigmoid(x float64) float64 {
	if x >= 0 {
		return 1 / (1 + math.Exp(-x))
	}
	e := math.Exp(x)
	return e / (1 + e)
}

// reluFn passes the gradient where the input was strictly positive.
type reluFn struct{}

func (reluFn) Name() string { return "relu" }

func (reluFn) Forward(ctx *autodiff.Context[float64], in ...float64) float64 {
	ctx.SaveForBackward(in[0])
	return math.Max(0, in[0])
}

func (reluFn) Backward(ctx *autodiff.Context[float64], d float64) []float64 {
	if ctx.SavedValues()[0] > 0 {
		return []float64{d}
	}
	return []float64{0}
}

// powFn: d(a^n)/da = n·a^(n-1).
type powFn struct {
	n int
}

func (powFn) Name() string { return "pow" }

func (f powFn) Forward(ctx *autodiff.Context[float64], in ...float64) float64 {
	ctx.SaveForBackward(in[0])
	return math.Pow(in[0], float64(f.n))
}

func (f powFn) Backward(ctx *autodiff.Context[float64], d float64) []float64 {
	if f.n == 0 {
		return []float64{0}
	}
	a := ctx.SavedValues()[0]
	return []float64{d * float64(f.n) * math.Pow(a, float64(f.n-1))}
}

type ltFn struct{}

func (ltFn) Name() string { return "lt" }

func (ltFn) Forward(_ *autodiff.Context[float64], in ...float64) float64 {
	if in[0] < in[1] {
		return 1
	}
	return 0
}

func (ltFn) Backward(_ *autodiff.Context[float64], _ float64) []float64 {
	return []float64{0, 0}
}

type eqFn struct{}

func (eqFn) Name() string { return "eq" }

func (eqFn) Forward(_ *autodiff.Context[float64], in ...float64) float64 {
	if in[0] == in[1] {
		return 1
	}
	return 0
}

func (eqFn) Backward(_ *autodiff.Context[float64], _ float64) []float64 {
	return []float64{0, 0}
}
