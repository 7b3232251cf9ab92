// Package gradcheck cross-validates analytic gradients from the autodiff
// engine against central finite differences.
//
// A check builds a Case on tracked scalar leaves, runs one backward pass, and
// compares every leaf derivative with autodiff.CentralDifference applied to
// the same Case evaluated on constants. Suites of checks are described in
// YAML and run concurrently, each check on its own graph.
package gradcheck

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/born-ml/autograd/internal/autodiff"
	"github.com/born-ml/autograd/internal/scalar"
)

// ErrArity is returned when a point does not match the case's arity.
var ErrArity = errors.New("point does not match function arity")

// Options controls the finite-difference step and the comparison tolerance.
// An argument passes when |analytic - numerical| <= Atol + Rtol*|numerical|.
type Options struct {
	Epsilon float64 `yaml:"epsilon" validate:"gt=0"`
	Atol    float64 `yaml:"atol" validate:"gte=0"`
	Rtol    float64 `yaml:"rtol" validate:"gte=0"`
}

// DefaultOptions returns the default step and tolerances.
func DefaultOptions() Options {
	return Options{
		Epsilon: autodiff.DefaultEpsilon,
		Atol:    1e-2,
		Rtol:    1e-2,
	}
}

// ArgResult is the comparison for one argument of a check.
type ArgResult struct {
	Arg       int     `json:"arg" yaml:"arg"`
	Analytic  float64 `json:"analytic" yaml:"analytic"`
	Numerical float64 `json:"numerical" yaml:"numerical"`
	AbsErr    float64 `json:"abs_err" yaml:"abs_err"`
	RelErr    float64 `json:"rel_err" yaml:"rel_err"`
	Pass      bool    `json:"pass" yaml:"pass"`
}

// Result is the outcome of checking one case at one point.
type Result struct {
	Function string      `json:"function" yaml:"function"`
	Point    []float64   `json:"point" yaml:"point"`
	Value    float64     `json:"value" yaml:"value"`
	Args     []ArgResult `json:"args" yaml:"args"`
	Pass     bool        `json:"pass" yaml:"pass"`
}

// ResultObserver is notified of every completed check. An autodiff.Observer
// passed to WithObserver that also implements ResultObserver receives both.
type ResultObserver interface {
	CheckCompleted(function string, passed bool)
}

// Runner executes checks with shared instrumentation.
//
// Thread Safety: safe for concurrent use; every check builds its own graph.
type Runner struct {
	logger   *slog.Logger
	observer autodiff.Observer
	results  ResultObserver
	tracer   trace.Tracer
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithLogger sets the logger. If nil, slog.Default() is used.
func WithLogger(l *slog.Logger) RunnerOption {
	return func(r *Runner) { r.logger = l }
}

// WithObserver instruments every backward pass.
func WithObserver(o autodiff.Observer) RunnerOption {
	return func(r *Runner) {
		r.observer = o
		if ro, ok := o.(ResultObserver); ok {
			r.results = ro
		}
	}
}

// WithTracerProvider sets the provider for spans. Defaults to the global provider.
func WithTracerProvider(tp trace.TracerProvider) RunnerOption {
	return func(r *Runner) { r.tracer = tp.Tracer(tracerName) }
}

const tracerName = "born.gradcheck"

// NewRunner creates a Runner.
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	if r.tracer == nil {
		r.tracer = otel.Tracer(tracerName)
	}
	return r
}

// Check compares analytic and numerical derivatives of c at point.
//
// Graph precondition violations raised while building or differentiating the
// case are returned as errors rather than crashing the caller.
func (r *Runner) Check(c Case, point []float64, opts Options) (res Result, err error) {
	if len(point) != c.Arity {
		return Result{}, fmt.Errorf("%s: %w: got %d values, want %d", c.Name, ErrArity, len(point), c.Arity)
	}

	defer func() {
		if p := recover(); p != nil {
			if perr, ok := p.(error); ok {
				err = fmt.Errorf("%s at %v: %w", c.Name, point, perr)
			} else {
				err = fmt.Errorf("%s at %v: %v", c.Name, point, p)
			}
		}
	}()

	leaves := scalar.NewSlice(point...)
	out := c.Build(leaves)

	engine := autodiff.NewEngine(autodiff.Float64,
		autodiff.WithObserver(r.observer),
		autodiff.WithLogger(r.logger),
	)
	engine.Backpropagate(out, 1.0)

	res = Result{
		Function: c.Name,
		Point:    append([]float64(nil), point...),
		Value:    out.Value(),
		Args:     make([]ArgResult, len(point)),
		Pass:     true,
	}
	for i, leaf := range leaves {
		numerical := autodiff.CentralDifference(c.Eval, i, opts.Epsilon, point...)
		res.Args[i] = compare(i, leaf.Derivative(), numerical, opts)
		if !res.Args[i].Pass {
			res.Pass = false
		}
	}

	if r.results != nil {
		r.results.CheckCompleted(c.Name, res.Pass)
	}
	return res, nil
}

func compare(arg int, analytic, numerical float64, opts Options) ArgResult {
	absErr := math.Abs(analytic - numerical)
	relErr := 0.0
	if numerical != 0 {
		relErr = absErr / math.Abs(numerical)
	}
	return ArgResult{
		Arg:       arg,
		Analytic:  analytic,
		Numerical: numerical,
		AbsErr:    absErr,
		RelErr:    relErr,
		Pass:      absErr <= opts.Atol+opts.Rtol*math.Abs(numerical),
	}
}
