package autodiff_test

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/born-ml/autograd/internal/autodiff"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// y = x + 1; z = 2y → dz/dx = 2.
func TestBackpropagate_LinearChain(t *testing.T) {
	x := leaf("x")
	y := derived("y", []float64{1}, x)
	z := derived("z", []float64{2}, y)

	autodiff.Backpropagate[float64](z, 1.0, autodiff.Float64)

	assert.Equal(t, []float64{2}, x.accumulated)
	assert.Equal(t, 1, y.chainCalls)
	assert.Equal(t, 1, z.chainCalls)
}

func TestBackpropagate_BareLeaf(t *testing.T) {
	x := leaf("x")

	autodiff.Backpropagate[float64](x, 3.0, autodiff.Float64)

	assert.Equal(t, []float64{3}, x.accumulated)
	assert.Zero(t, x.chainCalls)
}

// d = a(b(x), c(x)) with b = 2x, c = 5x, d = 3b + 7c → ∂d/∂x = 6 + 35.
func TestBackpropagate_DiamondSumsPaths(t *testing.T) {
	x := leaf("x")
	b := derived("b", []float64{2}, x)
	c := derived("c", []float64{5}, x)
	d := derived("d", []float64{3, 7}, b, c)

	autodiff.Backpropagate[float64](d, 1.0, autodiff.Float64)

	// Exactly one accumulation carrying the full total.
	assert.Equal(t, []float64{41}, x.accumulated)
	assert.Equal(t, 1, b.chainCalls)
	assert.Equal(t, 1, c.chainCalls)
}

func TestBackpropagate_SameInputTwice(t *testing.T) {
	x := leaf("x")
	y := derived("y", []float64{3, 4}, x, x)

	autodiff.Backpropagate[float64](y, 1.0, autodiff.Float64)

	assert.Equal(t, []float64{7}, x.accumulated)
}

func TestBackpropagate_AdditiveAcrossCalls(t *testing.T) {
	build := func() (*node, *node, *node) {
		x, w := leaf("x"), leaf("w")
		h := derived("h", []float64{2, -1}, x, w)
		out := derived("out", []float64{3, 0.5}, h, x)
		return out, x, w
	}

	out, x, w := build()
	autodiff.Backpropagate[float64](out, 1.5, autodiff.Float64)
	autodiff.Backpropagate[float64](out, -4.0, autodiff.Float64)

	out1, x1, w1 := build()
	autodiff.Backpropagate[float64](out1, 1.5, autodiff.Float64)
	out2, x2, w2 := build()
	autodiff.Backpropagate[float64](out2, -4.0, autodiff.Float64)

	assert.InDelta(t, x1.total()+x2.total(), x.total(), 1e-12)
	assert.InDelta(t, w1.total()+w2.total(), w.total(), 1e-12)
	assert.Len(t, x.accumulated, 2)
}

func TestBackpropagate_ConstantsNeverTouched(t *testing.T) {
	x := leaf("x")
	hidden := leaf("hidden")
	frozen := derived("frozen", []float64{1}, hidden)
	frozen.constant = true
	c := constant("c")
	y := derived("y", []float64{2, 3, 4}, x, frozen, c)

	autodiff.Backpropagate[float64](y, 1.0, autodiff.Float64)

	assert.Equal(t, []float64{2}, x.accumulated)
	assert.Zero(t, frozen.chainCalls)
	assert.Empty(t, frozen.accumulated)
	assert.Empty(t, c.accumulated)
	assert.Empty(t, hidden.accumulated)
}

func TestBackpropagate_ConstantRootIsNoop(t *testing.T) {
	c := constant("c")

	autodiff.Backpropagate[float64](c, 1.0, autodiff.Float64)

	assert.Empty(t, c.accumulated)
}

func TestBackpropagate_ArityMismatchPanics(t *testing.T) {
	x, y := leaf("x"), leaf("y")
	z := derived("z", []float64{1, 1}, x, y)
	z.partials = func(d float64) []autodiff.Partial[float64] {
		return []autodiff.Partial[float64]{{Input: x, Grad: d}}
	}

	gerr := recoverGraphError(t, func() { autodiff.Backpropagate[float64](z, 1.0, autodiff.Float64) })

	assert.ErrorIs(t, gerr, autodiff.ErrArityMismatch)
	assert.Equal(t, z.ID(), gerr.NodeID)
}

func TestBackpropagate_DanglingInputPanics(t *testing.T) {
	x, stranger := leaf("x"), leaf("stranger")
	z := derived("z", []float64{1}, x)
	z.partials = func(d float64) []autodiff.Partial[float64] {
		return []autodiff.Partial[float64]{{Input: stranger, Grad: d}}
	}

	gerr := recoverGraphError(t, func() { autodiff.Backpropagate[float64](z, 1.0, autodiff.Float64) })

	assert.ErrorIs(t, gerr, autodiff.ErrDanglingInput)
}

// recordingObserver counts engine callbacks.
type recordingObserver struct {
	sorted      int
	chainRules  map[string]int
	accumulated []uint64
}

func (o *recordingObserver) Sorted(_ uint64, nodes int) { o.sorted = nodes }

func (o *recordingObserver) ChainRule(_ uint64, fn string, _ int) {
	if o.chainRules == nil {
		o.chainRules = make(map[string]int)
	}
	o.chainRules[fn]++
}

func (o *recordingObserver) Accumulated(id uint64) { o.accumulated = append(o.accumulated, id) }

func TestEngine_Observer(t *testing.T) {
	x := leaf("x")
	b := derived("b", []float64{2}, x)
	c := derived("c", []float64{5}, x)
	d := derived("d", []float64{1, 1}, b, c)

	obs := &recordingObserver{}
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	engine := autodiff.NewEngine(autodiff.Float64, autodiff.WithObserver(obs), autodiff.WithLogger(logger))
	engine.Backpropagate(d, 1.0)

	assert.Equal(t, 4, obs.sorted)
	assert.Equal(t, map[string]int{"b": 1, "c": 1, "d": 1}, obs.chainRules)
	assert.Equal(t, []uint64{x.ID()}, obs.accumulated)
	assert.Contains(t, buf.String(), "backward pass")
	assert.Contains(t, buf.String(), "nodes=4")
}

func TestNewEngine_RequiresAccumulator(t *testing.T) {
	assert.Panics(t, func() { autodiff.NewEngine[float64](nil) })
}

func TestDense_Add(t *testing.T) {
	a := []float64{1, 2}
	b := []float64{10, 20}

	sum := autodiff.Dense.Add(a, b)

	assert.Equal(t, []float64{11, 22}, sum)
	assert.Equal(t, []float64{1, 2}, a, "inputs must not be modified")
	assert.Equal(t, []float64{1, 2}, autodiff.Dense.Add(nil, a))
	assert.Equal(t, []float64{1, 2}, autodiff.Dense.Add(a, autodiff.Dense.Zero()))
	assert.Panics(t, func() { autodiff.Dense.Add(a, []float64{1}) })
}

func TestBackpropagate_DenseGradients(t *testing.T) {
	x := &denseNode{id: autodiff.NextID(), history: autodiff.NewHistory[[]float64](nil, nil)}
	y := &denseNode{
		id:      autodiff.NextID(),
		history: autodiff.NewHistory[[]float64](doubleFn{}, nil, x, x),
	}

	autodiff.Backpropagate[[]float64](y, []float64{1, 2}, autodiff.Dense)

	require.Len(t, x.accumulated, 1)
	assert.Equal(t, []float64{4, 8}, x.accumulated[0])
}

type doubleFn struct{}

func (doubleFn) Name() string { return "double" }

func (doubleFn) Backward(_ *autodiff.Context[[]float64], d []float64) [][]float64 {
	g := make([]float64, len(d))
	for i, v := range d {
		g[i] = 2 * v
	}
	return [][]float64{g, g}
}

type denseNode struct {
	id          uint64
	history     *autodiff.History[[]float64]
	accumulated [][]float64
}

func (n *denseNode) ID() uint64 { return n.id }
func (n *denseNode) IsLeaf() bool { return n.history.IsLeaf() }
func (n *denseNode) IsConstant() bool { return n.history == nil }
func (n *denseNode) History() *autodiff.History[[]float64] { return n.history }
func (n *denseNode) Parents() []autodiff.Variable[[]float64] { return n.history.Inputs() }

func (n *denseNode) ChainRule(d []float64) []autodiff.Partial[[]float64] {
	return n.history.ChainRule(d)
}

func (n *denseNode) AccumulateDerivative(d []float64) {
	n.accumulated = append(n.accumulated, d)
}
