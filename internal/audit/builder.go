// Package audit builds, signs and persists change reports. A report is
// written twice: the authoritative JSON document under the change-log
// directory, and a best-effort row in a relational mirror that chains
// records by hash for tamper evidence.
package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/selfgate-project/selfgate/internal/diff"
	"github.com/selfgate-project/selfgate/internal/symbols"
	"github.com/selfgate-project/selfgate/pkg/model"
)

// BuildReport assembles the content-addressed core of a report: hashes of
// both versions, the line diff and its hash, the symbol delta, and the
// timestamp that anchors the report ID. Explanation, assessment and
// signature fields are filled in by later pipeline stages.
func BuildReport(ex symbols.Extractor, path, oldContent, newContent, author, intent string) *model.Report {
	d := diff.Compute(oldContent, newContent, path)
	added, removed := symbols.Delta(ex, path, oldContent, newContent)

	return &model.Report{
		TS:         time.Now().Unix(),
		File:       path,
		Intent:     intent,
		Author:     author,
		OldSHA256:  hashHex(oldContent),
		NewSHA256:  hashHex(newContent),
		DiffSHA256: hashHex(d),
		ASTDelta:   model.NewSymbolDelta(added, removed),
		Diff:       d,
	}
}

func hashHex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
