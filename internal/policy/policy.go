// Package policy is the syntax-free veto point between risk evaluation and
// the explanation gate. Engines decide from intent, target path, and diff
// hash only; they never see content, so a policy decision cannot leak the
// proposed change.
package policy

import "context"

// Plan is the minimal description of a pending change given to engines.
type Plan struct {
	Intent   string
	File     string
	DiffHash string
}

// Decision is an engine's verdict. Reason is surfaced to the caller when
// Block is set.
type Decision struct {
	Block  bool
	Reason string
}

// Engine chooses whether a planned change may proceed.
type Engine interface {
	Choose(ctx context.Context, plan Plan) (Decision, error)
}

// AllowAll is the default engine: every plan proceeds.
type AllowAll struct{}

func (AllowAll) Choose(context.Context, Plan) (Decision, error) {
	return Decision{}, nil
}

// Static returns a fixed decision. Used in tests and for hard lockdowns.
type Static struct {
	Decision Decision
	Err      error
}

func (s Static) Choose(context.Context, Plan) (Decision, error) {
	return s.Decision, s.Err
}
