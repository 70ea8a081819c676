package symbols

import (
	"regexp"
	"sort"
	"strings"
)

// Declaration-heuristic patterns, tried in order per line. These cover Go
// functions/methods/types, Python-style def/class, and C-like
// return-type-name-parens definitions.
var (
	goFuncRe  = regexp.MustCompile(`^\s*func\s+(?:\([^)]*\)\s*)?([A-Za-z_][A-Za-z0-9_]*)\s*[\(\[]`)
	goTypeRe  = regexp.MustCompile(`^\s*type\s+([A-Za-z_][A-Za-z0-9_]*)\b`)
	defLikeRe = regexp.MustCompile(`^\s*(?:def|class)\s+([A-Za-z_][A-Za-z0-9_]*)\b`)
	cFuncRe   = regexp.MustCompile(`^\s*(?:inline\s+)?(?:static\s+)?(?:virtual\s+)?(?:\w+\s+)+([A-Za-z_][A-Za-z0-9_]*)\s*\([^;]*\)\s*(?:const)?\s*\{`)
)

// RegexExtractor is the default declaration-heuristic scanner. It pattern
// matches function- and type-definition-looking lines; it is coarse on
// purpose and only feeds the symbol delta, never compilation.
type RegexExtractor struct{}

// NewRegexExtractor returns the default extractor.
func NewRegexExtractor() *RegexExtractor {
	return &RegexExtractor{}
}

// Extract returns the sorted, de-duplicated definition names in content.
func (e *RegexExtractor) Extract(_ string, content string) []string {
	seen := make(map[string]struct{})
	for _, line := range strings.Split(content, "\n") {
		name := matchDefinition(line)
		if name != "" {
			seen[name] = struct{}{}
		}
	}
	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func matchDefinition(line string) string {
	for _, re := range []*regexp.Regexp{goFuncRe, goTypeRe, defLikeRe, cFuncRe} {
		if m := re.FindStringSubmatch(line); m != nil {
			return m[1]
		}
	}
	return ""
}
