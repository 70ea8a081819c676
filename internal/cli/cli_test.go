package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExplanationFromFlagsNilWhenUnset(t *testing.T) {
	applyWhy, applyRisk, applyBackout, applyTests, applyTouched = "", "", "", "", nil
	require.Nil(t, explanationFromFlags())
}

func TestExplanationFromFlagsAssembled(t *testing.T) {
	applyWhy = "because the handler leaks descriptors on every early return path in the loop"
	applyRisk = "low risk error paths only"
	applyBackout = "restore the snapshot taken beforehand"
	applyTests = "go test ./..."
	applyTouched = []string{"Handle"}
	t.Cleanup(func() {
		applyWhy, applyRisk, applyBackout, applyTests, applyTouched = "", "", "", "", nil
	})

	e := explanationFromFlags()
	require.NotNil(t, e)
	assert.Equal(t, []string{"Handle"}, e.TouchedSymbols)
	assert.NotEmpty(t, e.Why)
}

func TestRunDoctorCleanDirectory(t *testing.T) {
	result := runDoctor(t.TempDir())
	require.True(t, result.Healthy, "findings: %v", result.Findings)
	// Unsigned setup yields an informational finding, never an error.
	for _, f := range result.Findings {
		assert.NotEqual(t, "error", f.Severity, f.Description)
	}
}

func TestRunDoctorBadSigningKey(t *testing.T) {
	dir := t.TempDir()
	cfgDir := filepath.Join(dir, ".selfgate")
	require.NoError(t, os.MkdirAll(cfgDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(cfgDir, "config.yaml"),
		[]byte("signing_key_hex: not-hex\n"), 0o644))

	result := runDoctor(dir)
	require.False(t, result.Healthy)

	found := false
	for _, f := range result.Findings {
		if f.Category == "signing_key" && f.Severity == "error" {
			found = true
		}
	}
	require.True(t, found, "findings: %v", result.Findings)
}

func TestRootCommandWiring(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"apply", "kill", "history", "show", "verify", "doctor"} {
		assert.True(t, names[want], "missing command %s", want)
	}
}
