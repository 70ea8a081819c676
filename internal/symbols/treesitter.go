package symbols

import (
	"context"
	"path/filepath"
	"sort"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
)

// TreeSitterExtractor parses Go sources with a real grammar and falls back
// to the regex heuristic for everything else. The tree-sitter parser is not
// safe for concurrent use, so calls are serialized.
type TreeSitterExtractor struct {
	mu       sync.Mutex
	parser   *sitter.Parser
	fallback *RegexExtractor
}

// NewTreeSitterExtractor builds an extractor with the Go grammar loaded.
func NewTreeSitterExtractor() *TreeSitterExtractor {
	parser := sitter.NewParser()
	parser.SetLanguage(golang.GetLanguage())
	return &TreeSitterExtractor{
		parser:   parser,
		fallback: NewRegexExtractor(),
	}
}

// Extract returns the sorted definition names in content. Non-Go files and
// parse failures go through the regex fallback so the auditor always gets
// an answer.
func (e *TreeSitterExtractor) Extract(path string, content string) []string {
	if filepath.Ext(path) != ".go" {
		return e.fallback.Extract(path, content)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	src := []byte(content)
	tree, err := e.parser.ParseCtx(context.Background(), nil, src)
	if err != nil || tree == nil {
		return e.fallback.Extract(path, content)
	}
	defer tree.Close()

	seen := make(map[string]struct{})
	collectGoDefs(tree.RootNode(), src, seen)

	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func collectGoDefs(node *sitter.Node, src []byte, seen map[string]struct{}) {
	switch node.Type() {
	case "function_declaration", "method_declaration":
		if name := node.ChildByFieldName("name"); name != nil {
			seen[name.Content(src)] = struct{}{}
		}
	case "type_spec":
		if name := node.ChildByFieldName("name"); name != nil {
			seen[name.Content(src)] = struct{}{}
		}
	}
	for i := 0; i < int(node.NamedChildCount()); i++ {
		collectGoDefs(node.NamedChild(i), src, seen)
	}
}
