package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "edges <id>",
		Short: "Show causal edges incident to a memory",
		Args:  cobra.ExactArgs(1),
		Run:   runEdges,
	}

	cmd.Flags().Bool("evidence", false, "Include supporting evidence from durable storage")

	RootCmd.AddCommand(cmd)
}

func runEdges(cmd *cobra.Command, args []string) {
	withEvidence, _ := cmd.Flags().GetBool("evidence")

	t, err := openSystem()
	if err != nil {
		exitErr("open store", err)
	}
	defer t.Close()

	if withEvidence {
		edges, err := t.CausalEdgesWithEvidence(cmd.Context(), args[0])
		if err != nil {
			exitErr("edges", err)
		}
		b, _ := json.MarshalIndent(edges, "", "  ")
		fmt.Println(string(b))
		return
	}

	edges := t.CausalEdges(args[0])
	b, _ := json.MarshalIndent(edges, "", "  ")
	fmt.Println(string(b))
}
