package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/hpckit/gpulease/internal/config"
	"github.com/hpckit/gpulease/internal/gpu"
	"github.com/hpckit/gpulease/internal/lease"
	"github.com/hpckit/gpulease/internal/runner"
)

var (
	runGroup   string
	runShare   int
	runWait    time.Duration
	runLockDir string
)

var runCmd = &cobra.Command{
	Use:   "run [flags] -- command [args...]",
	Short: "Run a command with GPU admission control",
	Long: `Run wraps a command: if the device is free (or shared within the
same group below the cap) the command sees the GPU; otherwise it runs
on the CPU. The command's exit code becomes gpulease's exit code.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runGroup, "group", "g", "", "claim group label (default from config)")
	runCmd.Flags().IntVarP(&runShare, "share", "n", 0, "max concurrent holders within the group (default from config)")
	runCmd.Flags().DurationVarP(&runWait, "wait", "w", 0, "how long to wait for a slot before falling back to the CPU")
	runCmd.Flags().StringVar(&runLockDir, "lock-dir", "", "shared lock directory (default from config)")

	// Flags after the first positional argument belong to the wrapped
	// command, not to gpulease.
	runCmd.Flags().SetInterspersed(false)
}

// ExitError carries a wrapped command's exit code to main.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("command exited with code %d", e.Code)
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	applyRunOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	log, err := buildLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Close() //nolint:errcheck

	registry, err := lease.NewRegistry(cfg.ResolveLockDir(),
		lease.WithRefreshInterval(cfg.Lock.RefreshInterval()),
		lease.WithLogger(log))
	if err != nil {
		return err
	}

	querier := gpu.NewTool(cfg.Device.Tool, cfg.Device.QueryTimeout(), log)
	policy := gpu.Policy{
		Denylist:         cfg.Device.Denylist,
		MinFreeMemoryMiB: cfg.Device.MinFreeMemoryMiB,
	}

	r := runner.New(registry, querier, policy, cfg.Lock.Group, cfg.Lock.MaxPerGroup, runWait, log)

	code, err := r.Run(cmd.Context(), args[0], args[1:]...)
	if err != nil {
		return err
	}
	if code != 0 {
		return &ExitError{Code: code}
	}
	return nil
}

func applyRunOverrides(cfg *config.Config) {
	if runGroup != "" {
		cfg.Lock.Group = runGroup
	}
	if runShare > 0 {
		cfg.Lock.MaxPerGroup = runShare
	}
	if runLockDir != "" {
		cfg.Lock.Dir = runLockDir
	}
}
