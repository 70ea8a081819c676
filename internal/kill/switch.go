// Package kill implements the process-wide halt switch. State lives in the
// environment and on the filesystem, not in-process, so every process on the
// host sharing the sentinel path sees the same answer. It is the cheapest
// check in the pipeline and always runs first.
package kill

import (
	"fmt"
	"os"

	"github.com/selfgate-project/selfgate/pkg/config"
	"github.com/selfgate-project/selfgate/pkg/errclass"
)

// Switch checks and controls the halt state through a sentinel file.
type Switch struct {
	sentinelPath string
}

// New creates a switch for the given sentinel path. Empty falls back to the
// default "KILL_SWITCH" in the working directory.
func New(sentinelPath string) *Switch {
	if sentinelPath == "" {
		sentinelPath = "KILL_SWITCH"
	}
	return &Switch{sentinelPath: sentinelPath}
}

// SentinelPath returns the configured sentinel file path.
func (s *Switch) SentinelPath() string {
	return s.sentinelPath
}

// IsTripped reports whether the system is halted. The SELFGATE_EVOLVE
// environment variable set to "off" trips the switch regardless of the
// sentinel file; otherwise the sentinel's existence decides. The
// environment is consulted live, not snapshotted, so an operator export
// takes effect on the next operation.
func (s *Switch) IsTripped() bool {
	if os.Getenv(config.EnvEvolve) == "off" {
		return true
	}
	_, err := os.Stat(s.sentinelPath)
	return err == nil
}

// RequireAlive returns ErrHalted when the switch is tripped.
func (s *Switch) RequireAlive() error {
	if s.IsTripped() {
		return errclass.ErrHalted.WithMessage("service disabled by kill switch")
	}
	return nil
}

// Trip creates the sentinel file. The contents are irrelevant; a short
// marker helps an operator understand why the file exists.
func (s *Switch) Trip() error {
	if err := os.WriteFile(s.sentinelPath, []byte("halt\n"), 0o644); err != nil {
		return fmt.Errorf("trip kill switch: %w", err)
	}
	return nil
}

// Reset removes the sentinel file. Resetting an untripped switch is a no-op.
func (s *Switch) Reset() error {
	if err := os.Remove(s.sentinelPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("reset kill switch: %w", err)
	}
	return nil
}
