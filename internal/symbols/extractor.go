// Package symbols extracts top-level definition names from source text.
// The extractor is a capability interface so stronger parsers can be
// substituted without touching the auditor or the gate.
package symbols

import (
	"fmt"
	"sort"
)

// Extractor returns the definition names found in one file's content.
// Implementations must be deterministic; report arrays are derived from
// the output.
type Extractor interface {
	// Extract returns the set of definition names in content. path is
	// advisory; engines may use its extension to pick a grammar.
	Extract(path string, content string) []string
}

// New selects an extractor engine by name.
func New(engine string) (Extractor, error) {
	switch engine {
	case "", "regex":
		return NewRegexExtractor(), nil
	case "treesitter":
		return NewTreeSitterExtractor(), nil
	default:
		return nil, fmt.Errorf("symbols: unknown engine %q", engine)
	}
}

// Delta computes the added and removed definition names between two
// contents, each list sorted for stable report output.
func Delta(e Extractor, path, oldContent, newContent string) (added, removed []string) {
	oldSet := toSet(e.Extract(path, oldContent))
	newSet := toSet(e.Extract(path, newContent))

	for name := range newSet {
		if _, ok := oldSet[name]; !ok {
			added = append(added, name)
		}
	}
	for name := range oldSet {
		if _, ok := newSet[name]; !ok {
			removed = append(removed, name)
		}
	}
	sort.Strings(added)
	sort.Strings(removed)
	return added, removed
}

func toSet(names []string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set
}
