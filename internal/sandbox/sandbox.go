// Package sandbox validates that a candidate path cannot escape the allowed
// root, by lexical rules first and by symlink inspection second. On Linux a
// final openat2 resolution closes the validation-to-use window.
package sandbox

import (
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/selfgate-project/selfgate/pkg/errclass"
)

// Sandbox confines writes to a single canonical root directory.
type Sandbox struct {
	root string // canonical absolute path
}

// New resolves root to its canonical form. An empty root means the current
// working directory.
func New(root string) (*Sandbox, error) {
	if root == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, errclass.ErrSandboxViolation.WithMessagef("resolve working directory: %v", err)
		}
		root = cwd
	}
	canonical, err := filepath.EvalSymlinks(root)
	if err != nil {
		return nil, errclass.ErrSandboxViolation.WithMessagef("cannot resolve allowed root %s: %v", root, err)
	}
	abs, err := filepath.Abs(canonical)
	if err != nil {
		return nil, errclass.ErrSandboxViolation.WithMessagef("cannot absolutize allowed root %s: %v", canonical, err)
	}
	return &Sandbox{root: abs}, nil
}

// Root returns the canonical allowed root.
func (s *Sandbox) Root() string {
	return s.root
}

// Resolve validates rel against the sandbox rules, in order, and returns the
// absolute target path. Every violation is an E_SANDBOX_VIOLATION.
func (s *Sandbox) Resolve(rel string) (string, error) {
	if rel == "" {
		return "", errclass.ErrSandboxViolation.WithMessage("path must not be empty")
	}
	if filepath.IsAbs(rel) {
		return "", errclass.ErrSandboxViolation.WithMessagef("absolute paths are not allowed: %s", rel)
	}

	rel = norm.NFC.String(filepath.ToSlash(rel))
	parts := strings.Split(rel, "/")
	for _, part := range parts {
		if part == "." || part == ".." {
			return "", errclass.ErrSandboxViolation.WithMessagef("traversal components are not allowed: %s", rel)
		}
		if part == "" {
			return "", errclass.ErrSandboxViolation.WithMessagef("empty path component: %s", rel)
		}
	}

	full := filepath.Join(s.root, filepath.FromSlash(rel))
	if !strings.HasPrefix(full+string(filepath.Separator), s.root+string(filepath.Separator)) {
		return "", errclass.ErrSandboxViolation.WithMessagef("path escapes allowed root: %s", rel)
	}

	// No component beneath the root may be a symlink, even to a target
	// inside the sandbox. A benign-looking alias today can be repointed
	// outside tomorrow.
	cur := s.root
	for _, part := range parts {
		cur = filepath.Join(cur, part)
		info, err := os.Lstat(cur)
		if err != nil {
			if os.IsNotExist(err) {
				break // remaining components do not exist yet
			}
			return "", errclass.ErrSandboxViolation.WithMessagef("inspect %s: %v", cur, err)
		}
		if info.Mode()&os.ModeSymlink != 0 {
			return "", errclass.ErrSandboxViolation.WithMessagef("symlinks are not permitted in target path: %s", cur)
		}
	}

	if err := s.resolveBeneath(rel); err != nil {
		return "", err
	}
	return full, nil
}
