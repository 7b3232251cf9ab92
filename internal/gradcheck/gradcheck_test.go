package gradcheck

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/born-ml/autograd/internal/autodiff"
	"github.com/born-ml/autograd/internal/scalar"
)

func TestBuiltins_Registered(t *testing.T) {
	names := Names()

	assert.Contains(t, names, "square")
	assert.Contains(t, names, "mixed")
	assert.IsIncreasing(t, names)

	c, ok := Lookup("product")
	require.True(t, ok)
	assert.Equal(t, 2, c.Arity)
	assert.Equal(t, 6.0, c.Eval(2, 3))

	_, ok = Lookup("nope")
	assert.False(t, ok)
}

func TestCheck_Square(t *testing.T) {
	c, _ := Lookup("square")

	res, err := NewRunner().Check(c, []float64{3}, DefaultOptions())

	require.NoError(t, err)
	assert.True(t, res.Pass)
	assert.Equal(t, 9.0, res.Value)
	require.Len(t, res.Args, 1)
	assert.Equal(t, 6.0, res.Args[0].Analytic)
	assert.InDelta(t, 6.0, res.Args[0].Numerical, 1e-4)
}

func TestCheck_AllBuiltinsPass(t *testing.T) {
	r := NewRunner()
	suite := BuiltinSuite()

	for _, spec := range suite.Checks {
		c, _ := Lookup(spec.Function)
		for _, p := range spec.Points {
			res, err := r.Check(c, p, Options{Epsilon: 1e-6, Atol: 1e-5, Rtol: 1e-4})
			require.NoError(t, err)
			assert.True(t, res.Pass, "%s at %v: %+v", spec.Function, p, res.Args)
		}
	}
}

func TestCheck_DetectsWrongGradient(t *testing.T) {
	// Backward claims d/dx = 1 for x², which is wrong away from 0.5.
	c := Case{Name: "broken", Arity: 1, Build: func(x []*scalar.Scalar) *scalar.Scalar {
		return scalar.Apply(brokenSquare{}, x[0])
	}}

	res, err := NewRunner().Check(c, []float64{4}, DefaultOptions())

	require.NoError(t, err)
	assert.False(t, res.Pass)
	assert.Equal(t, 1.0, res.Args[0].Analytic)
	assert.InDelta(t, 8.0, res.Args[0].Numerical, 1e-4)
	assert.InDelta(t, 7.0/8.0, res.Args[0].RelErr, 1e-4)
}

type brokenSquare struct{}

func (brokenSquare) Name() string { return "broken_square" }

func (brokenSquare) Forward(_ *autodiff.Context[float64], in ...float64) float64 {
	return in[0] * in[0]
}

func (brokenSquare) Backward(_ *autodiff.Context[float64], d float64) []float64 {
	return []float64{d}
}

func TestCheck_ArityMismatch(t *testing.T) {
	c, _ := Lookup("product")

	_, err := NewRunner().Check(c, []float64{1}, DefaultOptions())

	assert.ErrorIs(t, err, ErrArity)
}

func TestCheck_GraphViolationBecomesError(t *testing.T) {
	c := Case{Name: "bad_arity", Arity: 1, Build: func(x []*scalar.Scalar) *scalar.Scalar {
		return scalar.Apply(tooManyGrads{}, x[0])
	}}

	_, err := NewRunner().Check(c, []float64{1}, DefaultOptions())

	require.Error(t, err)
	assert.ErrorIs(t, err, autodiff.ErrArityMismatch)
}

type tooManyGrads struct{}

func (tooManyGrads) Name() string { return "too_many" }

func (tooManyGrads) Forward(_ *autodiff.Context[float64], in ...float64) float64 { return in[0] }

func (tooManyGrads) Backward(_ *autodiff.Context[float64], d float64) []float64 {
	return []float64{d, d}
}

const suiteYAML = `
name: smoke
concurrency: 2
defaults:
  atol: 1.0e-5
checks:
  - function: square
    points: [[3.0], [-1.5]]
  - function: mixed
    points: [[0.5, -1.0, 2.0]]
    rtol: 1.0e-3
`

func TestParseSuite(t *testing.T) {
	s, err := ParseSuite([]byte(suiteYAML))
	require.NoError(t, err)

	assert.Equal(t, "smoke", s.Name)
	assert.Equal(t, 2, s.Concurrency)
	assert.Equal(t, autodiff.DefaultEpsilon, s.Defaults.Epsilon, "unset defaults keep their values")
	assert.Equal(t, 1e-5, s.Defaults.Atol)
	require.Len(t, s.Checks, 2)

	opts := s.Checks[1].options(s.Defaults)
	assert.Equal(t, 1e-5, opts.Atol)
	assert.Equal(t, 1e-3, opts.Rtol)
}

func TestParseSuite_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"no checks", "name: x\n"},
		{"zero concurrency", "name: x\nconcurrency: 0\nchecks: [{function: square, points: [[1]]}]\n"},
		{"bad epsilon", "name: x\nchecks: [{function: square, points: [[1]], epsilon: -1}]\n"},
		{"unknown function", "name: x\nchecks: [{function: nope, points: [[1]]}]\n"},
		{"wrong arity", "name: x\nchecks: [{function: product, points: [[1]]}]\n"},
		{"not yaml", "name: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSuite([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoadSuite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "suite.yaml")
	require.NoError(t, os.WriteFile(path, []byte(suiteYAML), 0o600))

	s, err := LoadSuite(path)
	require.NoError(t, err)
	assert.Equal(t, "smoke", s.Name)

	_, err = LoadSuite(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

// countingObserver implements autodiff.Observer and ResultObserver.
type countingObserver struct {
	mu        sync.Mutex
	passes    int
	completed map[string]int
}

func (o *countingObserver) Sorted(uint64, int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.passes++
}

func (o *countingObserver) ChainRule(uint64, string, int) {}

func (o *countingObserver) Accumulated(uint64) {}

func (o *countingObserver) CheckCompleted(function string, _ bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.completed == nil {
		o.completed = make(map[string]int)
	}
	o.completed[function]++
}

func TestRun_Suite(t *testing.T) {
	s, err := ParseSuite([]byte(suiteYAML))
	require.NoError(t, err)

	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	obs := &countingObserver{}
	r := NewRunner(WithObserver(obs), WithTracerProvider(tp))

	report, err := r.Run(context.Background(), s)
	require.NoError(t, err)

	assert.True(t, report.Passed())
	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, "smoke", report.Suite)
	require.Len(t, report.Results, 3)
	assert.Equal(t, "square", report.Results[0].Function)
	assert.Equal(t, []float64{-1.5}, report.Results[1].Point)
	assert.Equal(t, "mixed", report.Results[2].Function)

	assert.Equal(t, 3, obs.passes)
	assert.Equal(t, map[string]int{"square": 2, "mixed": 1}, obs.completed)

	spans := recorder.Ended()
	names := make(map[string]int)
	for _, sp := range spans {
		names[sp.Name()]++
	}
	assert.Equal(t, 1, names["gradcheck.Run"])
	assert.Equal(t, 3, names["gradcheck.Check"])
}

func TestRun_BuiltinSuite(t *testing.T) {
	report, err := NewRunner().Run(context.Background(), BuiltinSuite())

	require.NoError(t, err)
	assert.True(t, report.Passed(), "failed: %d", report.Failed)
}

func TestRun_ReportsFailures(t *testing.T) {
	s := DefaultSuite()
	s.Defaults = Options{Epsilon: 0.5, Atol: 0, Rtol: 0}
	// Central difference on x³ with a large step is off by ε².
	s.Checks = []CheckSpec{{Function: "cube", Points: [][]float64{{2}}}}

	report, err := NewRunner().Run(context.Background(), s)

	require.NoError(t, err)
	assert.False(t, report.Passed())
	assert.Equal(t, 1, report.Failed)
	assert.InDelta(t, 0.25, report.Results[0].Args[0].AbsErr, 1e-9)
}

func TestRun_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewRunner().Run(ctx, BuiltinSuite())

	assert.True(t, errors.Is(err, context.Canceled))
}

func TestRun_InvalidSuite(t *testing.T) {
	_, err := NewRunner().Run(context.Background(), Suite{Name: "empty", Concurrency: 1})

	assert.Error(t, err)
}
