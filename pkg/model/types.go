// Package model defines the shared data types of the change pipeline.
package model

// ChangeRequest is the ephemeral input to one apply call. It is owned by
// the caller and never persisted as such.
type ChangeRequest struct {
	// Path is relative to the sandbox root.
	Path string
	// NewContent is the full proposed file content.
	NewContent string
	Author     string
	Intent     string
	// Explanation is optional; nil triggers the deterministic explainer.
	Explanation *Explanation
}

// ApplyResult is returned on a successful apply.
type ApplyResult struct {
	ReportID string `json:"report_id"`
	// SnapshotPath is empty when the target file did not previously exist.
	SnapshotPath string `json:"snapshot_path"`
	NewSHA256    string `json:"new_sha256"`
}
