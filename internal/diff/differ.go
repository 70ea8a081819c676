// Package diff computes the positional line diff recorded on audit reports.
//
// This is deliberately not a minimal-edit diff: lines at the same index are
// compared directly and tail insertions or deletions are emitted as pure
// additions or removals. The byte-exact output is hashed into diff_sha256,
// so the format here is a persistence contract, not a presentation choice.
package diff

import "strings"

// Compute returns the diff text between old and new content, prefixed with
// "--- a/<path>" and "+++ b/<path>" headers. Unchanged lines are omitted.
func Compute(oldContent, newContent, path string) string {
	oldLines := splitLines(oldContent)
	newLines := splitLines(newContent)

	var b strings.Builder
	b.WriteString("--- a/")
	b.WriteString(path)
	b.WriteString("\n+++ b/")
	b.WriteString(path)
	b.WriteByte('\n')

	max := len(oldLines)
	if len(newLines) > max {
		max = len(newLines)
	}
	for i := 0; i < max; i++ {
		hasOld := i < len(oldLines)
		hasNew := i < len(newLines)
		switch {
		case hasOld && hasNew:
			if oldLines[i] == newLines[i] {
				continue
			}
			b.WriteByte('-')
			b.WriteString(oldLines[i])
			b.WriteByte('\n')
			b.WriteByte('+')
			b.WriteString(newLines[i])
			b.WriteByte('\n')
		case hasOld:
			b.WriteByte('-')
			b.WriteString(oldLines[i])
			b.WriteByte('\n')
		case hasNew:
			b.WriteByte('+')
			b.WriteString(newLines[i])
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// splitLines splits on newlines, ignores carriage returns, and keeps the
// final line even when empty, so trailing-newline differences are visible.
func splitLines(text string) []string {
	var lines []string
	var current strings.Builder
	for _, c := range text {
		switch c {
		case '\n':
			lines = append(lines, current.String())
			current.Reset()
		case '\r':
			// ignore
		default:
			current.WriteRune(c)
		}
	}
	lines = append(lines, current.String())
	return lines
}
