package model

import (
	"fmt"
	"path/filepath"
)

// Report is the durable audit record of a single applied change. Once
// persisted it is immutable and content-addressed by its hashes. Field
// names and JSON layout are a stable contract for external tooling.
type Report struct {
	TS         int64       `json:"ts"`
	File       string      `json:"file"`
	Intent     string      `json:"intent"`
	Author     string      `json:"author"`
	OldSHA256  string      `json:"old_sha256"`
	NewSHA256  string      `json:"new_sha256"`
	DiffSHA256 string      `json:"diff_sha256"`
	ASTDelta   SymbolDelta `json:"ast_delta"`
	Diff       string      `json:"diff"`

	Explanation       Explanation `json:"explanation"`
	ExplanationErrors []string    `json:"explanation_errors"`

	Assessment Assessment `json:"assessment"`

	// Signature block, present only when signing is configured.
	Signature string `json:"signature,omitempty"`
	PubkeyID  string `json:"pubkey_id,omitempty"`
	SigAlg    string `json:"sig_alg,omitempty"`

	// Snapshot encryption metadata, present only when the snapshot was
	// stored as AES-256-GCM ciphertext.
	KeyID string `json:"key_id,omitempty"`
	Nonce string `json:"nonce,omitempty"`
	Tag   string `json:"tag,omitempty"`

	// PrevHash chains this report to its predecessor in the relational
	// mirror. It is not part of the file-based report document.
	PrevHash string `json:"-"`
}

// ID derives the report identifier: <ts>_<base filename>_<first 12 hex of
// diff hash>. Lexically sortable, unique while writes are serialized.
func (r *Report) ID() string {
	diff12 := r.DiffSHA256
	if len(diff12) > 12 {
		diff12 = diff12[:12]
	}
	return fmt.Sprintf("%d_%s_%s", r.TS, filepath.Base(r.File), diff12)
}

// SymbolDelta is the heuristically detected set of added and removed
// top-level definitions between two content versions. Call tracking is
// reserved in the format but not populated.
type SymbolDelta struct {
	AddedDefs    []string `json:"added_defs"`
	RemovedDefs  []string `json:"removed_defs"`
	AddedCalls   []string `json:"added_calls"`
	RemovedCalls []string `json:"removed_calls"`
}

// NewSymbolDelta returns a delta with non-nil slices so the JSON form
// always carries arrays, never null.
func NewSymbolDelta(added, removed []string) SymbolDelta {
	if added == nil {
		added = []string{}
	}
	if removed == nil {
		removed = []string{}
	}
	return SymbolDelta{
		AddedDefs:    added,
		RemovedDefs:  removed,
		AddedCalls:   []string{},
		RemovedCalls: []string{},
	}
}

// Empty reports whether no definitions were added or removed.
func (d SymbolDelta) Empty() bool {
	return len(d.AddedDefs) == 0 && len(d.RemovedDefs) == 0
}

// Changed returns all added and removed definition names.
func (d SymbolDelta) Changed() []string {
	out := make([]string, 0, len(d.AddedDefs)+len(d.RemovedDefs))
	out = append(out, d.AddedDefs...)
	out = append(out, d.RemovedDefs...)
	return out
}

// Assessment is the risk engine's evaluation, copied verbatim onto the
// report. The engine itself is an external collaborator.
type Assessment struct {
	Valence            float64 `json:"valence"`
	Arousal            float64 `json:"arousal"`
	Novelty            float64 `json:"novelty"`
	ExplanationQuality float64 `json:"explanation_quality"`
	SelfAwareness      float64 `json:"self_awareness"`
	EpistemicRisk      float64 `json:"epistemic_risk"`
	RecommendAllow     bool    `json:"recommend_allow"`
	Reasoning          string  `json:"reasoning"`
}
