package benchmarks

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"sfneuman.com/goril/experiment"
	"sfneuman.com/goril/gridworld"
)

var (
	gridRows int
	gridCols int
)

// GridworldCommand returns the subcommand comparing all imitation
// methods on a gridworld navigation task.
func GridworldCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   "gridworld",
		Short: "Compare imitation methods on a gridworld",
		RunE: func(cmd *cobra.Command, args []string) error {
			model, err := gridworld.New(gridRows, gridCols, gridCols-1,
				gridRows-1, -0.1, 1.0, 0.9)
			if err != nil {
				return err
			}

			runner := experiment.NewRunner(model, []experiment.Method{
				experiment.Syed(),
				experiment.ChebyshevSampled(),
				experiment.NaiveBC(),
				experiment.GAIL(horizon),
			}, experiment.Config{
				EpisodeCounts: episodes,
				Horizon:       horizon,
				Runs:          runs,
				Seed:          seed,
			})

			results, err := runner.Run(cmd.OutOrStdout())
			if err != nil {
				return err
			}

			if err := os.MkdirAll(saveDir, 0755); err != nil {
				return err
			}
			dataPath := filepath.Join(saveDir, "gridworld.json")
			if err := experiment.Save(results, dataPath); err != nil {
				return err
			}
			plotPath := filepath.Join(saveDir, "gridworld.png")
			if err := experiment.Plot(model, results, plotPath); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "wrote %v and %v\n", dataPath,
				plotPath)
			return nil
		},
	}
	command.Flags().IntVar(&gridRows, "rows", 4, "Gridworld rows")
	command.Flags().IntVar(&gridCols, "cols", 4, "Gridworld columns")
	return command
}
