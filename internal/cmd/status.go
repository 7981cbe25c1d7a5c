package cmd

import (
	"context"
	"fmt"
	"sort"

	"github.com/charmbracelet/lipgloss"
	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/hpckit/gpulease/internal/config"
	"github.com/hpckit/gpulease/internal/gpu"
	"github.com/hpckit/gpulease/internal/lease"
)

var statusLockDir string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show current claims and device state",
	Long: `Display the live claims in the shared lock directory, grouped by
claim group, plus the state of the local device. Reading the status
also evicts abandoned claims, so it doubles as a cleanup pass.`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().StringVar(&statusLockDir, "lock-dir", "", "shared lock directory (default from config)")
}

var (
	statusTitleStyle = lipgloss.NewStyle().Bold(true)
	statusDimStyle   = lipgloss.NewStyle().Faint(true)
	statusFreeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	statusBusyStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
)

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if statusLockDir != "" {
		cfg.Lock.Dir = statusLockDir
	}

	registry, err := lease.NewRegistry(cfg.ResolveLockDir(),
		lease.WithRefreshInterval(cfg.Lock.RefreshInterval()))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, statusTitleStyle.Render("gpulease status"))
	fmt.Fprintln(out, statusDimStyle.Render("lock directory: "+registry.Dir()))

	counts := registry.Scan()
	if len(counts) == 0 {
		fmt.Fprintln(out, statusFreeStyle.Render("no live claims, device is free"))
	} else {
		total := lo.Sum(lo.Values(counts))
		fmt.Fprintln(out, statusBusyStyle.Render(fmt.Sprintf("%d live claim(s):", total)))
		groups := lo.Keys(counts)
		sort.Strings(groups)
		for _, group := range groups {
			fmt.Fprintf(out, "  %s: %d\n", group, counts[group])
		}
	}

	querier := gpu.NewTool(cfg.Device.Tool, cfg.Device.QueryTimeout(), nil)
	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Device.QueryTimeout())
	defer cancel()

	dev, found := querier.Query(ctx)
	if !found {
		fmt.Fprintln(out, statusDimStyle.Render("device: not detected"))
		return nil
	}
	policy := gpu.Policy{
		Denylist:         cfg.Device.Denylist,
		MinFreeMemoryMiB: cfg.Device.MinFreeMemoryMiB,
	}
	eligible := "eligible"
	if !policy.Eligible(dev) {
		eligible = "not eligible"
	}
	fmt.Fprintf(out, "device: [%d] %s, %d MiB free (%s)\n",
		dev.Index, dev.Name, dev.FreeMemoryMiB, eligible)
	return nil
}
