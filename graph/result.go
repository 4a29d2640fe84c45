package graph

import (
	"context"
	"errors"
)

// BestEffortFunc is the body of a best-effort node.
type BestEffortFunc func(ctx context.Context, state State) Result

// Result is the outcome of a best-effort node: either a successful update or a
// failure reason with the placeholder update to merge in its place.
type Result struct {
	update Update
	reason error
}

// Success wraps a successful update.
func Success(update Update) Result {
	return Result{update: update}
}

// Failure reports that the node could not do its work. placeholder may be nil,
// in which case the node contributes nothing.
func Failure(reason error, placeholder Update) Result {
	if reason == nil {
		reason = errors.New("unspecified failure")
	}
	return Result{update: placeholder, reason: reason}
}

// Failed reports whether the result is a failure.
func (r Result) Failed() bool { return r.reason != nil }

// Reason returns the failure reason, or nil on success.
func (r Result) Reason() error { return r.reason }

// Update returns the update to merge: the real one on success, the placeholder on failure.
func (r Result) Update() Update { return r.update }
