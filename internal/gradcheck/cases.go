package gradcheck

import (
	"sort"

	"github.com/born-ml/autograd/internal/scalar"
)

// Case is a scalar function of Arity arguments expressed as a graph builder.
//
// The same builder serves both sides of a check: on tracked leaves it yields
// the analytic derivatives, on constants it is the plain numeric function.
type Case struct {
	Name  string
	Arity int
	Build func(xs []*scalar.Scalar) *scalar.Scalar
}

// Eval evaluates the case on plain values without recording any graph.
func (c Case) Eval(vals ...float64) float64 {
	return c.Build(scalar.ConstantSlice(vals...)).Value()
}

var builtins = map[string]Case{}

func register(c Case) {
	builtins[c.Name] = c
}

// Lookup returns the built-in case with the given name.
func Lookup(name string) (Case, bool) {
	c, ok := builtins[name]
	return c, ok
}

// Names returns the built-in case names in sorted order.
func Names() []string {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func init() {
	register(Case{Name: "square", Arity: 1, Build: func(x []*scalar.Scalar) *scalar.Scalar {
		return scalar.Mul(x[0], x[0])
	}})
	register(Case{Name: "cube", Arity: 1, Build: func(x []*scalar.Scalar) *scalar.Scalar {
		return scalar.Pow(x[0], 3)
	}})
	register(Case{Name: "sigmoid", Arity: 1, Build: func(x []*scalar.Scalar) *scalar.Scalar {
		return scalar.Sigmoid(x[0])
	}})
	register(Case{Name: "log", Arity: 1, Build: func(x []*scalar.Scalar) *scalar.Scalar {
		return scalar.Log(x[0])
	}})
	register(Case{Name: "exp", Arity: 1, Build: func(x []*scalar.Scalar) *scalar.Scalar {
		return scalar.Exp(x[0])
	}})
	register(Case{Name: "relu", Arity: 1, Build: func(x []*scalar.Scalar) *scalar.Scalar {
		return scalar.ReLU(x[0])
	}})

	// (x + 2) * 3
	register(Case{Name: "composite", Arity: 1, Build: func(x []*scalar.Scalar) *scalar.Scalar {
		return scalar.Mul(scalar.Add(x[0], scalar.Constant(2)), scalar.Constant(3))
	}})

	// x³ - 2x² + x
	register(Case{Name: "polynomial", Arity: 1, Build: func(x []*scalar.Scalar) *scalar.Scalar {
		x2 := scalar.Mul(x[0], x[0])
		x3 := scalar.Mul(x2, x[0])
		return scalar.Add(scalar.Sub(x3, scalar.Mul(scalar.Constant(2), x2)), x[0])
	}})

	// σ(x) · e^x: both factors depend on x.
	register(Case{Name: "diamond", Arity: 1, Build: func(x []*scalar.Scalar) *scalar.Scalar {
		return scalar.Mul(scalar.Sigmoid(x[0]), scalar.Exp(x[0]))
	}})

	register(Case{Name: "product", Arity: 2, Build: func(x []*scalar.Scalar) *scalar.Scalar {
		return scalar.Mul(x[0], x[1])
	}})
	register(Case{Name: "ratio", Arity: 2, Build: func(x []*scalar.Scalar) *scalar.Scalar {
		return scalar.Div(x[0], x[1])
	}})

	// σ(x·y + log z) - x/z
	register(Case{Name: "mixed", Arity: 3, Build: func(x []*scalar.Scalar) *scalar.Scalar {
		inner := scalar.Add(scalar.Mul(x[0], x[1]), scalar.Log(x[2]))
		return scalar.Sub(scalar.Sigmoid(inner), scalar.Div(x[0], x[2]))
	}})
}
