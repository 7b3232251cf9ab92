package autodiff

import (
	"fmt"
	"slices"
)

// Function is the backward half of a differentiable operation.
//
// The forward half is owned by the concrete variable packages since its
// signature depends on the value representation.
type Function[G any] interface {
	// Name identifies the operation (used in errors, logs and metrics).
	Name() string

	// Backward returns one gradient per input given the output gradient and
	// whatever the forward pass saved in ctx.
	Backward(ctx *Context[G], dOutput G) []G
}

// History records how a derived Variable was produced.
// It is immutable after construction and owned by exactly one Variable.
type History[G any] struct {
	fn     Function[G]
	ctx    *Context[G]
	inputs []Variable[G]
}

// NewHistory creates a provenance record. A nil fn marks a tracked leaf.
func NewHistory[G any](fn Function[G], ctx *Context[G], inputs ...Variable[G]) *History[G] {
	if ctx == nil {
		ctx = NewContext[G](false)
	}
	return &History[G]{
		fn:     fn,
		ctx:    ctx,
		inputs: slices.Clone(inputs),
	}
}

// Function returns the producing operation, or nil for a leaf record.
func (h *History[G]) Function() Function[G] {
	if h == nil {
		return nil
	}
	return h.fn
}

// Context returns the scratch record of the producing invocation.
func (h *History[G]) Context() *Context[G] {
	if h == nil {
		return nil
	}
	return h.ctx
}

// Inputs returns the ordered input variables. The slice must not be modified.
func (h *History[G]) Inputs() []Variable[G] {
	if h == nil {
		return nil
	}
	return h.inputs
}

// IsLeaf reports whether the record describes an original input.
func (h *History[G]) IsLeaf() bool {
	return h == nil || h.fn == nil
}

// ChainRule applies the producing operation's backward rule and pairs each
// gradient with its input. Concrete variables delegate their ChainRule here.
//
// Panics with a *GraphError if called on a leaf record or if the backward rule
// returns a different number of gradients than there are inputs.
func (h *History[G]) ChainRule(dOutput G) []Partial[G] {
	if h.IsLeaf() {
		panic(&GraphError{Kind: ErrLeafChainRule, Detail: "chain rule requested on a leaf history"})
	}

	grads := h.fn.Backward(h.ctx, dOutput)
	if len(grads) != len(h.inputs) {
		panic(&GraphError{
			Kind:   ErrArityMismatch,
			Detail: fmt.Sprintf("%s returned %d gradients for %d inputs", h.fn.Name(), len(grads), len(h.inputs)),
		})
	}

	partials := make([]Partial[G], len(grads))
	for i, g := range grads {
		partials[i] = Partial[G]{Input: h.inputs[i], Grad: g}
	}
	return partials
}

// Context is per-invocation scratch space filled during the forward pass and
// read by the matching backward rule.
type Context[G any] struct {
	noGrad bool
	saved  []G
}

// NewContext creates a Context. With noGrad set, SaveForBackward discards
// everything so gradient-free subgraphs retain no intermediates.
func NewContext[G any](noGrad bool) *Context[G] {
	return &Context[G]{noGrad: noGrad}
}

// NoGrad reports whether gradient tracking was disabled at creation.
func (c *Context[G]) NoGrad() bool {
	return c.noGrad
}

// SaveForBackward stores values for the backward pass, replacing anything
// saved before. It is a no-op when the context was created with noGrad.
func (c *Context[G]) SaveForBackward(values ...G) {
	if c.noGrad {
		return
	}
	c.saved = slices.Clone(values)
}

// SavedValues returns the last saved sequence (empty if nothing was saved).
func (c *Context[G]) SavedValues() []G {
	return slices.Clone(c.saved)
}
