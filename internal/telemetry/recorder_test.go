package telemetry

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/autograd/internal/autodiff"
	"github.com/born-ml/autograd/internal/scalar"
)

// Compile-time interface check.
var _ autodiff.Observer = (*Recorder)(nil)

func TestRecorder_BackwardPass(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec := NewRecorder(reg)

	// d = σ(x) · e^x
	x := scalar.New(0.3)
	d := scalar.Mul(scalar.Sigmoid(x), scalar.Exp(x))

	autodiff.NewEngine(autodiff.Float64, autodiff.WithObserver(rec)).Backpropagate(d, 1.0)

	assert.Equal(t, 1.0, testutil.ToFloat64(rec.passes))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.accumulation))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.chainRules.WithLabelValues("mul")))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.chainRules.WithLabelValues("sigmoid")))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.chainRules.WithLabelValues("exp")))

	count, err := testutil.GatherAndCount(reg, "autograd_sorted_nodes")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestRecorder_CheckCompleted(t *testing.T) {
	rec := NewRecorder(nil)

	rec.CheckCompleted("square", true)
	rec.CheckCompleted("square", true)
	rec.CheckCompleted("log", false)

	assert.Equal(t, 2.0, testutil.ToFloat64(rec.checks.WithLabelValues("square", "true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.checks.WithLabelValues("log", "false")))
}

func TestNewRecorder_DuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewRecorder(reg)

	assert.Panics(t, func() { NewRecorder(reg) })
}
