// Package benchmarks wires the imitation-method comparison experiments
// into a command line interface.
package benchmarks

import "github.com/spf13/cobra"

var (
	episodes []int
	horizon  int
	runs     int
	seed     uint64
	saveDir  string
)

// GetRootCommand returns the root command line parser with the
// benchmark subcommands registered.
func GetRootCommand() *cobra.Command {
	rootCommand := &cobra.Command{
		Use:   "goril",
		Short: "Compare robust imitation-learning methods on finite MDPs",
	}
	rootCommand.PersistentFlags().IntSliceVarP(&episodes, "episodes", "e",
		[]int{1, 2, 5, 10, 20}, "Expert episode counts to sweep")
	rootCommand.PersistentFlags().IntVar(&horizon, "horizon", 50,
		"Horizon of each demonstration trajectory")
	rootCommand.PersistentFlags().IntVar(&runs, "runs", 1,
		"Number of reseeded experiment runs")
	rootCommand.PersistentFlags().Uint64Var(&seed, "seed", 42,
		"Base random seed")
	rootCommand.PersistentFlags().StringVarP(&saveDir, "save", "s", "results",
		"Directory for result data and plots")
	rootCommand.AddCommand(GridworldCommand())
	return rootCommand
}
