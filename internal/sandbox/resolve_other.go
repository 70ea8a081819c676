//go:build !linux

package sandbox

// resolveBeneath is a no-op where openat2 is unavailable; the lexical and
// per-component symlink checks are the full defense.
func (s *Sandbox) resolveBeneath(rel string) error {
	return nil
}
