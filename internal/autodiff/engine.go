package autodiff

import (
	"fmt"
	"log/slog"
)

// Observer receives callbacks during a backward pass.
// Implementations must be cheap; they run inline with the traversal.
type Observer interface {
	// Sorted is called once per pass with the size of the topological order.
	Sorted(rootID uint64, nodes int)

	// ChainRule is called after a derived node applied its local chain rule.
	ChainRule(nodeID uint64, fn string, partials int)

	// Accumulated is called after a leaf received its total derivative.
	Accumulated(leafID uint64)
}

// Engine runs backward passes for one gradient type.
//
// Usage:
//
//	engine := autodiff.NewEngine(autodiff.Float64, autodiff.WithLogger(logger))
//	engine.Backpropagate(loss, 1.0)
//
// An Engine holds no per-pass state and may be reused; each Backpropagate
// call allocates its own gradient map.
type Engine[G any] struct {
	acc      Accumulator[G]
	observer Observer
	logger   *slog.Logger
}

// Option configures an Engine.
type Option func(*engineOptions)

type engineOptions struct {
	observer Observer
	logger   *slog.Logger
}

// WithObserver attaches an Observer to the engine.
func WithObserver(o Observer) Option {
	return func(opts *engineOptions) {
		opts.observer = o
	}
}

// WithLogger sets the logger used for debug output. If nil, slog.Default() is used.
func WithLogger(l *slog.Logger) Option {
	return func(opts *engineOptions) {
		opts.logger = l
	}
}

// NewEngine creates an engine using acc to sum gradient contributions.
func NewEngine[G any](acc Accumulator[G], opts ...Option) *Engine[G] {
	if acc == nil {
		panic("autodiff: NewEngine requires an Accumulator")
	}

	var o engineOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	return &Engine[G]{
		acc:      acc,
		observer: o.observer,
		logger:   o.logger,
	}
}

// TopologicalSort orders the tracked subgraph under root and reports the size
// to the observer. See the package-level TopologicalSort.
func (e *Engine[G]) TopologicalSort(root Variable[G]) []Variable[G] {
	order := TopologicalSort(root)
	if e.observer != nil && root != nil {
		e.observer.Sorted(root.ID(), len(order))
	}
	return order
}

// Backpropagate runs one backward pass from root with the given seed.
// See the package-level Backpropagate for the contract.
func (e *Engine[G]) Backpropagate(root Variable[G], seed G) {
	order := e.TopologicalSort(root)
	if len(order) == 0 {
		return
	}

	e.logger.Debug("backward pass",
		slog.Uint64("root", root.ID()),
		slog.Int("nodes", len(order)),
	)

	// Running total per variable id.
	derivs := make(map[uint64]G, len(order))
	derivs[root.ID()] = seed

	for _, node := range order {
		id := node.ID()
		d, ok := derivs[id]
		if !ok {
			d = e.acc.Zero()
		}
		// Every consumer has been processed; the entry is final.
		delete(derivs, id)

		if node.IsLeaf() {
			node.AccumulateDerivative(d)
			if e.observer != nil {
				e.observer.Accumulated(id)
			}
			continue
		}

		e.propagate(node, d, derivs)
	}
}

// propagate applies node's chain rule and adds each partial into derivs.
func (e *Engine[G]) propagate(node Variable[G], d G, derivs map[uint64]G) {
	parents := node.Parents()
	partials := node.ChainRule(d)

	if len(partials) != len(parents) {
		panic(&GraphError{
			Kind:   ErrArityMismatch,
			NodeID: node.ID(),
			Detail: fmt.Sprintf("%d partials for %d parents", len(partials), len(parents)),
		})
	}

	for i, p := range partials {
		if p.Input == nil || p.Input.ID() != parents[i].ID() {
			panic(&GraphError{
				Kind:   ErrDanglingInput,
				NodeID: node.ID(),
				Detail: fmt.Sprintf("partial %d does not match parent %d", i, parents[i].ID()),
			})
		}
		if p.Input.IsConstant() {
			continue
		}

		inputID := p.Input.ID()
		if cur, ok := derivs[inputID]; ok {
			derivs[inputID] = e.acc.Add(cur, p.Grad)
		} else {
			derivs[inputID] = p.Grad
		}
	}

	if e.observer != nil {
		e.observer.ChainRule(node.ID(), functionName(node), len(partials))
	}
}

func functionName[G any](v Variable[G]) string {
	if fn := v.History().Function(); fn != nil {
		return fn.Name()
	}
	return "unknown"
}
