package model

// Explanation is the structured justification accompanying a change.
// The change gate enforces minimum word counts on the text fields and a
// touched-symbol overlap with the report's symbol delta.
type Explanation struct {
	Why            string   `json:"why"`
	Risk           string   `json:"risk"`
	Backout        string   `json:"backout"`
	Tests          string   `json:"tests"`
	TouchedSymbols []string `json:"touched_symbols"`

	Provenance *Provenance `json:"provenance,omitempty"`
}

// Provenance records how an explanation was produced.
type Provenance struct {
	Mode     string `json:"mode"`     // "rule" for the deterministic explainer
	Provider string `json:"provider"` // "none" when no external provider was used
	Model    string `json:"model"`
}
