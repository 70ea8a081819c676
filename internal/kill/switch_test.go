package kill_test

import (
	"path/filepath"
	"testing"

	"github.com/selfgate-project/selfgate/internal/kill"
	"github.com/selfgate-project/selfgate/pkg/config"
	"github.com/selfgate-project/selfgate/pkg/errclass"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSwitch(t *testing.T) *kill.Switch {
	t.Helper()
	return kill.New(filepath.Join(t.TempDir(), "KILL_SWITCH"))
}

func TestSwitch_DefaultNotTripped(t *testing.T) {
	s := newSwitch(t)
	assert.False(t, s.IsTripped())
	assert.NoError(t, s.RequireAlive())
}

func TestSwitch_TripAndReset(t *testing.T) {
	s := newSwitch(t)

	require.NoError(t, s.Trip())
	assert.True(t, s.IsTripped())
	assert.ErrorIs(t, s.RequireAlive(), errclass.ErrHalted)

	require.NoError(t, s.Reset())
	assert.False(t, s.IsTripped())
	assert.NoError(t, s.RequireAlive())
}

func TestSwitch_ResetIdempotent(t *testing.T) {
	s := newSwitch(t)
	assert.NoError(t, s.Reset())
	assert.NoError(t, s.Reset())
}

func TestSwitch_EnvOverrideTrips(t *testing.T) {
	s := newSwitch(t)
	t.Setenv(config.EnvEvolve, "off")

	assert.True(t, s.IsTripped())
	assert.ErrorIs(t, s.RequireAlive(), errclass.ErrHalted)
}

func TestSwitch_EnvOverrideOnlyOffTrips(t *testing.T) {
	s := newSwitch(t)
	t.Setenv(config.EnvEvolve, "on")
	assert.False(t, s.IsTripped())
}

func TestSwitch_VisibleAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "KILL_SWITCH")
	a := kill.New(path)
	b := kill.New(path)

	require.NoError(t, a.Trip())
	assert.True(t, b.IsTripped(), "sentinel state must be shared")
}
