package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Remove weak causal edges and orphaned graph nodes",
		Run:   runPrune,
	}

	cmd.Flags().Float64("min-strength", 0.2, "Remove edges with strength below this")

	RootCmd.AddCommand(cmd)
}

func runPrune(cmd *cobra.Command, args []string) {
	minStrength, _ := cmd.Flags().GetFloat64("min-strength")

	t, err := openSystem()
	if err != nil {
		exitErr("open store", err)
	}
	defer t.Close()

	edges, nodes, err := t.PruneGraph(cmd.Context(), minStrength)
	if err != nil {
		exitErr("prune", err)
	}
	fmt.Printf("pruned %d edges, %d nodes\n", edges, nodes)
}
