package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/selfgate-project/selfgate/internal/audit"
	"github.com/selfgate-project/selfgate/internal/lock"
	"github.com/selfgate-project/selfgate/internal/snapshot"
	"github.com/selfgate-project/selfgate/pkg/config"
)

// Finding is one doctor diagnostic.
type Finding struct {
	Severity    string `json:"severity"` // "error", "warning", "info"
	Category    string `json:"category"`
	Description string `json:"description"`
}

// DoctorResult summarizes a health check run.
type DoctorResult struct {
	Healthy  bool      `json:"healthy"`
	Findings []Finding `json:"findings"`
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check change-pipeline health",
	Long: `Check change-pipeline health.

Validates the configuration, the change-log directory, the configured
keys and the relational mirror, and reports a stale lock holder if one
is recorded.`,
	Run: func(cmd *cobra.Command, args []string) {
		cwd, err := os.Getwd()
		if err != nil {
			fmtErr("cannot get current directory: %v", err)
			os.Exit(1)
		}
		result := runDoctor(cwd)

		if jsonOutput {
			outputJSON(result)
			if !result.Healthy {
				os.Exit(1)
			}
			return
		}

		if len(result.Findings) == 0 {
			fmt.Println("Pipeline is healthy.")
			return
		}
		fmt.Printf("Findings (%d):\n", len(result.Findings))
		for _, f := range result.Findings {
			fmt.Printf("  [%s] %s: %s\n", f.Severity, f.Category, f.Description)
		}
		if !result.Healthy {
			os.Exit(1)
		}
	},
}

func runDoctor(dir string) *DoctorResult {
	result := &DoctorResult{Healthy: true, Findings: []Finding{}}
	report := func(severity, category, format string, args ...any) {
		result.Findings = append(result.Findings, Finding{
			Severity:    severity,
			Category:    category,
			Description: fmt.Sprintf(format, args...),
		})
		if severity == "error" {
			result.Healthy = false
		}
	}

	cfg, err := config.Load(dir)
	if err != nil {
		report("error", "config", "%v", err)
		return result
	}

	root := cfg.AllowedRoot
	if root == "" {
		root = dir
	}
	if info, err := os.Stat(root); err != nil {
		report("error", "allowed_root", "cannot stat %s: %v", root, err)
	} else if !info.IsDir() {
		report("error", "allowed_root", "%s is not a directory", root)
	}

	checkChangeLogDir(cfg, report)

	if _, err := audit.NewSigner(cfg.SigningKeyHex); err != nil {
		report("error", "signing_key", "%v", err)
	} else if cfg.SigningKeyHex == "" {
		report("info", "signing_key", "signing disabled, reports will be unsigned")
	}

	if _, err := snapshot.NewStore(filepath.Join(cfg.ChangeLogDir, "snapshots"), cfg.SnapshotKeyHex, cfg.SnapshotKeyID); err != nil {
		report("error", "snapshot_key", "%v", err)
	}

	if os.Getenv(config.EnvEvolve) == "off" {
		report("warning", "kill_switch", "evolution halted by environment")
	}
	if _, err := os.Stat(cfg.KillSwitchPath); err == nil {
		report("warning", "kill_switch", "sentinel present at %s", cfg.KillSwitchPath)
	}

	return result
}

func checkChangeLogDir(cfg *config.Config, report func(severity, category, format string, args ...any)) {
	info, err := os.Stat(cfg.ChangeLogDir)
	if os.IsNotExist(err) {
		report("info", "change_log", "%s does not exist yet, will be created on first apply", cfg.ChangeLogDir)
		return
	}
	if err != nil {
		report("error", "change_log", "cannot stat %s: %v", cfg.ChangeLogDir, err)
		return
	}
	if !info.IsDir() {
		report("error", "change_log", "%s is not a directory", cfg.ChangeLogDir)
		return
	}

	if holder := lock.ReadHolderInfo(cfg.ChangeLogDir); holder != nil && !processAlive(holder.PID) {
		report("warning", "lock", "lock file last held by dead process %d (since %s); the flock was released with it", holder.PID, holder.AcquiredAt.Format("2006-01-02 15:04:05"))
	}

	if cfg.UseSQLite {
		m, err := audit.OpenMirror(cfg.ChangeLogDir)
		if err != nil {
			report("error", "mirror", "%v", err)
			return
		}
		defer m.Close()
		chain, err := m.Chain()
		if err != nil {
			report("error", "mirror", "%v", err)
			return
		}
		prev := ""
		for _, row := range chain {
			if row.PrevHash != prev {
				report("error", "mirror", "hash chain broken at %s", row.ID)
				break
			}
			prev = row.RecordHash
		}
	}
}

// processAlive reports whether pid exists. Signal 0 checks for the process
// without delivering anything.
func processAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}
