package autodiff

import "slices"

// Visitation states for the depth-first walk.
const (
	unvisited uint8 = iota
	onStack
	finished
)

// sortFrame is one level of the explicit DFS stack.
type sortFrame[G any] struct {
	node    Variable[G]
	parents []Variable[G]
	next    int
}

// TopologicalSort returns every non-constant variable reachable from root,
// root first, with each variable placed before all of the variables it
// depends on. Shared subgraphs appear once.
//
// Constants are never visited, so a constant root yields an empty order.
// The walk uses an explicit stack, so graph depth is bounded by memory rather
// than by the goroutine stack.
//
// Panics with a *GraphError (ErrCycle) if the graph is not acyclic.
func TopologicalSort[G any](root Variable[G]) []Variable[G] {
	if root == nil || root.IsConstant() {
		return nil
	}

	state := make(map[uint64]uint8)
	order := make([]Variable[G], 0, 16)

	stack := []sortFrame[G]{{node: root, parents: parentsOf(root)}}
	state[root.ID()] = onStack

	for len(stack) > 0 {
		top := &stack[len(stack)-1]

		if top.next < len(top.parents) {
			parent := top.parents[top.next]
			top.next++

			if parent.IsConstant() {
				continue
			}
			switch state[parent.ID()] {
			case finished:
				continue
			case onStack:
				panic(&GraphError{
					Kind:   ErrCycle,
					NodeID: parent.ID(),
					Detail: "variable reached again while its own inputs are being visited",
				})
			}

			state[parent.ID()] = onStack
			stack = append(stack, sortFrame[G]{node: parent, parents: parentsOf(parent)})
			continue
		}

		// All parents emitted: post-order append.
		state[top.node.ID()] = finished
		order = append(order, top.node)
		stack = stack[:len(stack)-1]
	}

	slices.Reverse(order)
	return order
}

// parentsOf returns the inputs to descend into. Leaves have none even if a
// custom implementation reports parents.
func parentsOf[G any](v Variable[G]) []Variable[G] {
	if v.IsLeaf() {
		return nil
	}
	return v.Parents()
}
