package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hpckit/gpulease/internal/config"
	"github.com/hpckit/gpulease/internal/gridsearch"
)

var gridCmd = &cobra.Command{
	Use:   "grid <spec.yaml>",
	Short: "Expand a parameter grid into configuration files",
	Long: `Grid reads a YAML grid specification and writes one configuration
file per point in the parameter grid, substituting $NAME$ placeholders
in the template. Each file gets a YAML sidecar recording the values
used, and $CFG_INDEX$ numbers the configurations.`,
	Args: cobra.ExactArgs(1),
	RunE: runGrid,
}

func init() {
	rootCmd.AddCommand(gridCmd)
}

func runGrid(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log, err := buildLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Close() //nolint:errcheck

	spec, err := gridsearch.LoadSpec(args[0])
	if err != nil {
		return err
	}
	search, err := gridsearch.New(spec, log)
	if err != nil {
		return err
	}

	n, err := search.Generate()
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %d configuration(s)\n", n)
	return nil
}
