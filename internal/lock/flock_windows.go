//go:build windows

package lock

import "os"

// Windows has no flock; the in-process mutex still serializes within one
// process, which covers the supported deployment.
func flockExclusive(f *os.File) error { return nil }

func flockUnlock(f *os.File) {}
