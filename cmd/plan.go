package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilianp07/blockplan/app"
)

var maxResults int

var searchCmd = &cobra.Command{
	Use:   "search <pool-file>",
	Short: "List the largest non-overlapping combinations of a pool",
	Args:  cobra.ExactArgs(1),
	RunE:  runSearch,
}

var optimizeCmd = &cobra.Command{
	Use:   "optimize <pool-file>",
	Short: "Select blocks by category priority, honouring pinned blocks",
	Args:  cobra.ExactArgs(1),
	RunE:  runOptimize,
}

func init() {
	searchCmd.Flags().IntVarP(&maxResults, "max", "n", 0, "maximum combinations to return (0 uses the configured default)")
	rootCmd.AddCommand(searchCmd, optimizeCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	in, err := app.LoadInput(args[0])
	if err != nil {
		return err
	}
	if maxResults > 0 {
		in.MaxResults = maxResults
	}
	svc, closeFn, err := newService(cmd)
	if err != nil {
		return err
	}
	defer closeFn()

	res, err := svc.Search(cmd.Context(), in)
	if err != nil {
		return err
	}
	if !res.Exhaustive() {
		fmt.Fprintf(cmd.ErrOrStderr(), "search stopped early (%s) after %d iterations\n", res.Stop, res.Iterations)
	}
	return printJSON(cmd.OutOrStdout(), res)
}

func runOptimize(cmd *cobra.Command, args []string) error {
	in, err := app.LoadInput(args[0])
	if err != nil {
		return err
	}
	svc, closeFn, err := newService(cmd)
	if err != nil {
		return err
	}
	defer closeFn()

	out, err := svc.Optimize(cmd.Context(), in)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), out)
}
