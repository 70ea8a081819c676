// Package risk scores a proposed change before the policy and explanation
// gates run. The default engine is deliberately permissive: it produces a
// neutral assessment and recommends allowing, leaving vetoes to policy and
// the explanation gate. Alternative engines plug in through the Engine
// interface.
package risk

import (
	"context"
	"strings"

	"github.com/selfgate-project/selfgate/pkg/model"
)

// Context carries everything an engine may inspect about a pending change.
type Context struct {
	FilePath        string
	CurrentContent  string
	ProposedContent string
	Author          string
	Intent          string
	Explanation     *model.Explanation
}

// Engine evaluates a change and returns an assessment. A returned error
// aborts the change; an assessment with RecommendAllow=false rejects it
// with the assessment's reasoning.
type Engine interface {
	Evaluate(ctx context.Context, rc Context) (model.Assessment, error)
}

// Permissive is the default engine. It emits mid-scale affect values and
// always recommends allowing.
type Permissive struct{}

func (Permissive) Evaluate(_ context.Context, rc Context) (model.Assessment, error) {
	return model.Assessment{
		Valence:            0,
		Arousal:            0.5,
		Novelty:            0.5,
		ExplanationQuality: explanationQuality(rc.Explanation),
		SelfAwareness:      0.5,
		EpistemicRisk:      0.5,
		RecommendAllow:     true,
		Reasoning:          "permissive engine: no veto conditions configured",
	}, nil
}

// Static always returns a fixed assessment. Used to exercise the rejection
// path without a real scoring backend.
type Static struct {
	Assessment model.Assessment
	Err        error
}

func (s Static) Evaluate(context.Context, Context) (model.Assessment, error) {
	return s.Assessment, s.Err
}

// explanationQuality is a coarse 0..1 signal: present and substantive
// explanations score higher. Not a gate; the gate package enforces minima.
func explanationQuality(e *model.Explanation) float64 {
	if e == nil {
		return 0
	}
	q := 0.25
	if len(strings.Fields(e.Why)) >= 15 {
		q += 0.25
	}
	if e.Risk != "" && e.Backout != "" {
		q += 0.25
	}
	if e.Tests != "" {
		q += 0.25
	}
	return q
}
