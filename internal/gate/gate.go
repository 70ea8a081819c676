// Package gate validates that a structured explanation is specific enough
// to justify a code change. The error strings it produces are recorded on
// reports, so they are part of the audit format.
package gate

import "github.com/selfgate-project/selfgate/pkg/model"

// Mode is the enforcement mode for explanation validation.
type Mode string

const (
	// ModeStrict aborts the pipeline on any validation error.
	ModeStrict Mode = "strict"
	// ModeAdvisory records errors on the report but lets the write proceed.
	ModeAdvisory Mode = "advisory"
	// ModeOff skips validation entirely.
	ModeOff Mode = "off"
)

// ParseMode maps a configuration string to a Mode, defaulting to strict.
func ParseMode(s string) Mode {
	switch Mode(s) {
	case ModeAdvisory, ModeOff:
		return Mode(s)
	default:
		return ModeStrict
	}
}

// Minimum word counts for the required text fields.
var fieldMinima = []struct {
	name string
	min  int
	get  func(model.Explanation) string
}{
	{"why", 15, func(e model.Explanation) string { return e.Why }},
	{"risk", 5, func(e model.Explanation) string { return e.Risk }},
	{"backout", 5, func(e model.Explanation) string { return e.Backout }},
	{"tests", 1, func(e model.Explanation) string { return e.Tests }},
}

// Validate checks the explanation against the minimum-content rules and the
// symbol delta. The returned slice lists every failure; empty means valid.
//
// Error strings: "missing:<field>" for an absent field, "<field>_too_short"
// for one below its word minimum, "missing:touched_symbols" for an absent
// symbol list, and "symbols_mismatch" when the delta is non-empty but no
// delta name appears in touched_symbols.
func Validate(expl model.Explanation, delta model.SymbolDelta) []string {
	var errs []string

	for _, f := range fieldMinima {
		value := f.get(expl)
		if value == "" {
			errs = append(errs, "missing:"+f.name)
			continue
		}
		if wordCount(value) < f.min {
			errs = append(errs, f.name+"_too_short")
		}
	}

	if expl.TouchedSymbols == nil {
		errs = append(errs, "missing:touched_symbols")
	}

	if changed := delta.Changed(); len(changed) > 0 {
		touched := make(map[string]struct{}, len(expl.TouchedSymbols))
		for _, s := range expl.TouchedSymbols {
			touched[s] = struct{}{}
		}
		match := false
		for _, c := range changed {
			if _, ok := touched[c]; ok {
				match = true
				break
			}
		}
		if !match {
			errs = append(errs, "symbols_mismatch")
		}
	}

	return errs
}

// wordCount counts maximal runs of alphanumeric characters.
func wordCount(s string) int {
	count := 0
	inWord := false
	for _, r := range s {
		alnum := (r >= '0' && r <= '9') || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		if alnum && !inWord {
			count++
		}
		inWord = alnum
	}
	return count
}
