package cli

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

var killCmd = &cobra.Command{
	Use:   "kill",
	Short: "Inspect and control the kill switch",
}

var killTripCmd = &cobra.Command{
	Use:   "trip",
	Short: "Trip the kill switch; all applies fail until reset",
	Run: func(cmd *cobra.Command, args []string) {
		c := openClient()
		defer c.Close()
		if err := c.Kill(); err != nil {
			fmtErr("trip: %v", err)
			os.Exit(1)
		}
		if jsonOutput {
			outputJSON(map[string]bool{"halted": true})
			return
		}
		fmt.Println("kill switch tripped")
	},
}

var killResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Remove the kill-switch sentinel",
	Long: `Remove the kill-switch sentinel.

An environment-level halt (SELFGATE_EVOLVE=off) cannot be reset from
here; unset the variable instead.`,
	Run: func(cmd *cobra.Command, args []string) {
		c := openClient()
		defer c.Close()
		if err := c.Revive(); err != nil {
			fmtErr("reset: %v", err)
			os.Exit(1)
		}
		if c.Halted() {
			fmtErr("sentinel removed but the environment still halts evolution")
			os.Exit(1)
		}
		if jsonOutput {
			outputJSON(map[string]bool{"halted": false})
			return
		}
		fmt.Println("kill switch reset")
	},
}

var killStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether the kill switch is tripped",
	Run: func(cmd *cobra.Command, args []string) {
		c := openClient()
		defer c.Close()
		halted := c.Halted()
		if jsonOutput {
			outputJSON(map[string]bool{"halted": halted})
			return
		}
		if halted {
			fmt.Println("HALTED")
			os.Exit(1)
		}
		fmt.Println("alive")
	},
}

var killWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the kill-switch sentinel and report transitions",
	Long: `Watch the kill-switch sentinel and report transitions.

Blocks until interrupted. Prints a line whenever the sentinel file
appears or disappears. Useful under a supervisor that must react to a
halt without polling.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c := openClient()
		defer c.Close()

		sentinel := c.Config().KillSwitchPath
		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			return fmt.Errorf("watch: %w", err)
		}
		defer watcher.Close()

		// Watch the parent directory: the sentinel itself may not exist yet.
		dir := filepath.Dir(sentinel)
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(sigCh)

		fmt.Printf("watching %s (halted=%v)\n", sentinel, c.Halted())
		base := filepath.Base(sentinel)
		for {
			select {
			case ev, ok := <-watcher.Events:
				if !ok {
					return nil
				}
				if filepath.Base(ev.Name) != base {
					continue
				}
				switch {
				case ev.Op.Has(fsnotify.Create):
					fmt.Println("HALTED: sentinel created")
				case ev.Op.Has(fsnotify.Remove), ev.Op.Has(fsnotify.Rename):
					fmt.Println("alive: sentinel removed")
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return nil
				}
				fmtErr("watch: %v", err)
			case <-sigCh:
				return nil
			case <-cmd.Context().Done():
				return nil
			}
		}
	},
}

func init() {
	killCmd.AddCommand(killTripCmd)
	killCmd.AddCommand(killResetCmd)
	killCmd.AddCommand(killStatusCmd)
	killCmd.AddCommand(killWatchCmd)
	rootCmd.AddCommand(killCmd)
}
