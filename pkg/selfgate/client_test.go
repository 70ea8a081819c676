package selfgate

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/selfgate-project/selfgate/pkg/config"
	"github.com/selfgate-project/selfgate/pkg/errclass"
	"github.com/selfgate-project/selfgate/pkg/logging"
	"github.com/selfgate-project/selfgate/pkg/model"
)

func newTestClient(t *testing.T, mutate func(*config.Config)) (*Client, *config.Config) {
	t.Helper()
	cfg := config.Default()
	cfg.AllowedRoot = t.TempDir()
	cfg.ChangeLogDir = filepath.Join(t.TempDir(), "changes")
	cfg.KillSwitchPath = filepath.Join(t.TempDir(), "KILL_SWITCH")
	if mutate != nil {
		mutate(cfg)
	}
	c, err := OpenWithConfig(cfg, Options{Logger: logging.Nop()})
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c, cfg
}

func TestClientApplyAndReport(t *testing.T) {
	c, cfg := newTestClient(t, nil)

	res, err := c.Apply(context.Background(), model.ChangeRequest{
		Path:       "main.go",
		NewContent: "package main\n\nfunc main() {}\n",
		Author:     "tester",
		Intent:     "create the entry point with an empty main for the new tool",
	})
	require.NoError(t, err)

	r, err := c.Report(res.ReportID)
	require.NoError(t, err)
	require.Equal(t, "main.go", r.File)

	got, err := os.ReadFile(filepath.Join(cfg.AllowedRoot, "main.go"))
	require.NoError(t, err)
	require.Equal(t, "package main\n\nfunc main() {}\n", string(got))
}

func TestClientKillReviveCycle(t *testing.T) {
	c, _ := newTestClient(t, nil)

	require.False(t, c.Halted())
	require.NoError(t, c.Kill())
	require.True(t, c.Halted())

	_, err := c.Apply(context.Background(), model.ChangeRequest{
		Path:       "halted.go",
		NewContent: "x\n",
		Author:     "tester",
		Intent:     "must not land while the switch is tripped at all",
	})
	require.ErrorIs(t, err, errclass.ErrHalted)

	require.NoError(t, c.Revive())
	require.False(t, c.Halted())
}

func TestClientHistoryFallback(t *testing.T) {
	c, _ := newTestClient(t, nil)

	for _, content := range []string{"v1\n", "v2\n"} {
		_, err := c.Apply(context.Background(), model.ChangeRequest{
			Path:       "h.go",
			NewContent: content,
			Author:     "tester",
			Intent:     "iterate on the helper file contents for history coverage",
		})
		require.NoError(t, err)
	}
	_, err := c.Apply(context.Background(), model.ChangeRequest{
		Path:       "other.go",
		NewContent: "o\n",
		Author:     "tester",
		Intent:     "add an unrelated file to prove history filtering works",
	})
	require.NoError(t, err)

	ids, err := c.History("h.go", 0)
	require.NoError(t, err)
	require.Len(t, ids, 2)

	ids, err = c.History("", 1)
	require.NoError(t, err)
	require.Len(t, ids, 1)
}

func TestClientVerify(t *testing.T) {
	c, _ := newTestClient(t, func(cfg *config.Config) {
		cfg.UseSQLite = true
		cfg.SigningKeyHex = "9d61b19deffd5a60ba844af492ec2cc44449c5697b326919703bac031cae7f60"
	})

	_, err := c.Apply(context.Background(), model.ChangeRequest{
		Path:       "v.go",
		NewContent: "package v\n",
		Author:     "tester",
		Intent:     "seed the change log with one signed mirrored report",
	})
	require.NoError(t, err)

	res, err := c.Verify(context.Background())
	require.NoError(t, err)
	require.True(t, res.OK(), "issues: %v", res.Issues)
	require.Equal(t, 1, res.ReportsChecked)
	require.Equal(t, 1, res.ChainLength)
}
