package autodiff

import (
	"fmt"
	"slices"
)

// DefaultEpsilon is the step used by Derivative.
const DefaultEpsilon = 1e-6

// CentralDifference approximates ∂f/∂x_arg at vals with the symmetric
// finite difference
//
//	(f(..., x_arg + ε, ...) - f(..., x_arg - ε, ...)) / 2ε
//
// f is evaluated exactly twice and vals is not modified. The truncation error
// is O(ε²) for smooth f. An epsilon of zero is not clamped: the result is NaN
// or ±Inf.
//
// Panics if arg is not a valid index into vals.
func CentralDifference(f func(...float64) float64, arg int, epsilon float64, vals ...float64) float64 {
	if arg < 0 || arg >= len(vals) {
		panic(fmt.Sprintf("autodiff: central difference arg %d out of range for %d values", arg, len(vals)))
	}

	plus := slices.Clone(vals)
	minus := slices.Clone(vals)
	plus[arg] += epsilon
	minus[arg] -= epsilon

	return (f(plus...) - f(minus...)) / (2 * epsilon)
}

// Derivative is CentralDifference with DefaultEpsilon.
func Derivative(f func(...float64) float64, arg int, vals ...float64) float64 {
	return CentralDifference(f, arg, DefaultEpsilon, vals...)
}
