package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	archiveCmd := &cobra.Command{
		Use:   "archive <id>",
		Short: "Soft-delete a memory (reversible)",
		Args:  cobra.ExactArgs(1),
		Run:   runArchive,
	}
	unarchiveCmd := &cobra.Command{
		Use:   "unarchive <id>",
		Short: "Restore an archived memory",
		Args:  cobra.ExactArgs(1),
		Run:   runUnarchive,
	}

	RootCmd.AddCommand(archiveCmd)
	RootCmd.AddCommand(unarchiveCmd)
}

func runArchive(cmd *cobra.Command, args []string) {
	t, err := openSystem()
	if err != nil {
		exitErr("open store", err)
	}
	defer t.Close()

	if err := t.ArchiveMemory(cmd.Context(), args[0]); err != nil {
		exitErr("archive", err)
	}
	fmt.Printf("archived %s\n", args[0])
}

func runUnarchive(cmd *cobra.Command, args []string) {
	t, err := openSystem()
	if err != nil {
		exitErr("open store", err)
	}
	defer t.Close()

	if err := t.UnarchiveMemory(cmd.Context(), args[0]); err != nil {
		exitErr("unarchive", err)
	}
	fmt.Printf("unarchived %s\n", args[0])
}
