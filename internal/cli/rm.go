package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "rm <id>",
		Short: "Hard-delete a memory and its causal edges",
		Long:  "Hard-delete a memory. Incident edges are removed with events recorded; the ledger keeps the trail.",
		Args:  cobra.ExactArgs(1),
		Run:   runRm,
	}

	RootCmd.AddCommand(cmd)
}

func runRm(cmd *cobra.Command, args []string) {
	t, err := openSystem()
	if err != nil {
		exitErr("open store", err)
	}
	defer t.Close()

	if err := t.DeleteMemory(cmd.Context(), args[0]); err != nil {
		exitErr("rm", err)
	}
	fmt.Printf("deleted %s\n", args[0])
}
