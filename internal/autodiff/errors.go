package autodiff

import (
	"errors"
	"fmt"
)

// Graph precondition violations. They are raised as panics carrying a
// *GraphError because a malformed graph is a programming error, not a
// recoverable condition. Use errors.Is on the recovered value to tell them apart.
var (
	ErrCycle         = errors.New("computation graph contains a cycle")
	ErrArityMismatch = errors.New("chain rule arity does not match parents")
	ErrDanglingInput = errors.New("chain rule references a variable that is not a parent")
	ErrLeafChainRule = errors.New("chain rule called on a leaf")
)

// GraphError describes a malformed computation graph.
type GraphError struct {
	Kind   error  // One of the Err* sentinels above
	NodeID uint64 // Variable at which the violation was detected (0 if unknown)
	Detail string // Additional details
}

// Error implements the error interface.
func (e *GraphError) Error() string {
	if e.NodeID != 0 {
		return fmt.Sprintf("autodiff: %v at variable %d: %s", e.Kind, e.NodeID, e.Detail)
	}
	return fmt.Sprintf("autodiff: %v: %s", e.Kind, e.Detail)
}

// Unwrap returns the sentinel kind.
func (e *GraphError) Unwrap() error {
	return e.Kind
}
