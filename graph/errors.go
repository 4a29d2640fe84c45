package graph

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidGraph is returned by Compile when the graph definition is not executable.
	ErrInvalidGraph = errors.New("invalid graph")

	// ErrEntryPointNotSet is returned when the entry point of the graph is not set.
	ErrEntryPointNotSet = errors.New("entry point not set")

	// ErrNodeNotFound is returned when an edge references a node that was never added.
	ErrNodeNotFound = errors.New("node not found")

	// ErrNoOutgoingEdge is returned when a node has no outgoing edge.
	ErrNoOutgoingEdge = errors.New("no outgoing edge found for node")

	// ErrStepBoundExceeded is returned when a run does not reach END within the step bound.
	ErrStepBoundExceeded = errors.New("step bound exceeded")

	// ErrUnknownRoute is returned when a router produces a label missing from its mapping.
	ErrUnknownRoute = errors.New("unknown route")
)

// NodeError reports a fatal failure inside a node.
type NodeError struct {
	Node string
	Step int
	Err  error
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("error in node %s (step %d): %v", e.Node, e.Step, e.Err)
}

func (e *NodeError) Unwrap() error { return e.Err }

// StepBoundError is returned when the next batch of nodes would exceed the step bound.
type StepBoundError struct {
	Bound   int
	Steps   int
	Pending []string
}

func (e *StepBoundError) Error() string {
	return fmt.Sprintf("step bound of %d exceeded after %d node applications (pending: %v)", e.Bound, e.Steps, e.Pending)
}

func (e *StepBoundError) Is(target error) bool { return target == ErrStepBoundExceeded }

// UnknownRouteError is returned when a router's label is not in the conditional edge's mapping.
type UnknownRouteError struct {
	Node   string
	Router string
	Label  string
}

func (e *UnknownRouteError) Error() string {
	return fmt.Sprintf("router %s after node %s returned unmapped label %q", e.Router, e.Node, e.Label)
}

func (e *UnknownRouteError) Is(target error) bool { return target == ErrUnknownRoute }
