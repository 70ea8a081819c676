package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/selfgate-project/selfgate/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := config.Default()
	assert.Equal(t, filepath.Join("logs", "changes"), cfg.ChangeLogDir)
	assert.Equal(t, "KILL_SWITCH", cfg.KillSwitchPath)
	assert.Equal(t, "strict", cfg.ExplainPolicy)
	assert.True(t, cfg.RequireExplanation)
	assert.False(t, cfg.AutoExplain)
	assert.Equal(t, "regex", cfg.SymbolEngine)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := config.Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "strict", cfg.ExplainPolicy)
}

func TestLoad_FileValues(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".selfgate"), 0o755))
	yaml := "explain_policy: advisory\nchange_log_dir: audit\nauto_explain: true\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".selfgate", "config.yaml"), []byte(yaml), 0o644))

	cfg, err := config.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "advisory", cfg.ExplainPolicy)
	assert.Equal(t, "audit", cfg.ChangeLogDir)
	assert.True(t, cfg.AutoExplain)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".selfgate"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".selfgate", "config.yaml"),
		[]byte("explain_policy: advisory\n"), 0o644))

	t.Setenv(config.EnvExplainPolicy, "OFF")
	t.Setenv(config.EnvRequireExplanation, "off")
	t.Setenv(config.EnvUseSQLite, "1")

	cfg, err := config.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "off", cfg.ExplainPolicy)
	assert.False(t, cfg.RequireExplanation)
	assert.True(t, cfg.UseSQLite)
}

func TestValidate_UnknownPolicyDegradesToStrict(t *testing.T) {
	cfg := config.Default()
	cfg.ExplainPolicy = "lenient"
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "strict", cfg.ExplainPolicy)
}

func TestValidate_UnknownSymbolEngineFails(t *testing.T) {
	cfg := config.Default()
	cfg.SymbolEngine = "clang"
	assert.Error(t, cfg.Validate())
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.ChangeLogDir = "changelog"
	cfg.UseSQLite = true
	require.NoError(t, config.Save(dir, cfg))

	loaded, err := config.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "changelog", loaded.ChangeLogDir)
	assert.True(t, loaded.UseSQLite)
}
