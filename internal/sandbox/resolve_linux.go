//go:build linux

package sandbox

import (
	"errors"
	"path/filepath"

	"golang.org/x/sys/unix"

	"github.com/selfgate-project/selfgate/pkg/errclass"
)

// resolveBeneath re-resolves rel through openat2 with RESOLVE_BENEATH and
// RESOLVE_NO_SYMLINKS, anchored at the root's descriptor. This closes the
// window between the lexical checks and the eventual write: the kernel
// refuses any resolution that leaves the root or follows a symlink.
func (s *Sandbox) resolveBeneath(rel string) error {
	dirfd, err := unix.Open(s.root, unix.O_PATH|unix.O_CLOEXEC, 0)
	if err != nil {
		return errclass.ErrSandboxViolation.WithMessagef("open allowed root %s: %v", s.root, err)
	}
	defer unix.Close(dirfd)

	how := &unix.OpenHow{
		Flags:   unix.O_PATH | unix.O_CLOEXEC,
		Resolve: unix.RESOLVE_BENEATH | unix.RESOLVE_NO_SYMLINKS,
	}
	fd, err := unix.Openat2(dirfd, filepath.FromSlash(rel), how)
	if err == nil {
		unix.Close(fd)
		return nil
	}
	switch {
	case errors.Is(err, unix.ENOENT):
		// Target (or an ancestor) does not exist yet; the lexical and
		// symlink checks already vouch for the path shape.
		return nil
	case errors.Is(err, unix.ENOSYS), errors.Is(err, unix.E2BIG), errors.Is(err, unix.EINVAL):
		// Kernel without openat2 support; lexical checks stand alone.
		return nil
	default:
		return errclass.ErrSandboxViolation.WithMessagef("openat2 resolution failed for %s: %v", rel, err)
	}
}
