package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	archiveEventsCmd := &cobra.Command{
		Use:   "archive-events",
		Short: "Move old events into the frozen archive table",
		Long:  "Move events recorded before --before into the archive table, after verifying affected streams still replay.",
		Run:   runArchiveEvents,
	}
	archiveEventsCmd.Flags().String("before", "", "Cutoff, RFC 3339 (required)")
	archiveEventsCmd.MarkFlagRequired("before")

	rotateAuditCmd := &cobra.Command{
		Use:   "rotate-audit",
		Short: "Delete old audit entries",
		Run:   runRotateAudit,
	}
	rotateAuditCmd.Flags().String("before", "", "Cutoff, RFC 3339 (required)")
	rotateAuditCmd.MarkFlagRequired("before")

	RootCmd.AddCommand(archiveEventsCmd)
	RootCmd.AddCommand(rotateAuditCmd)
}

func runArchiveEvents(cmd *cobra.Command, args []string) {
	beforeStr, _ := cmd.Flags().GetString("before")
	cutoff, err := parseTime(beforeStr)
	if err != nil {
		exitErr("archive-events", err)
	}

	t, err := openSystem()
	if err != nil {
		exitErr("open store", err)
	}
	defer t.Close()

	moved, err := t.ArchiveEvents(cmd.Context(), cutoff)
	if err != nil {
		exitErr("archive-events", err)
	}
	fmt.Printf("archived %d events\n", moved)
}

func runRotateAudit(cmd *cobra.Command, args []string) {
	beforeStr, _ := cmd.Flags().GetString("before")
	cutoff, err := parseTime(beforeStr)
	if err != nil {
		exitErr("rotate-audit", err)
	}

	t, err := openSystem()
	if err != nil {
		exitErr("open store", err)
	}
	defer t.Close()

	removed, err := t.RotateAudit(cmd.Context(), cutoff)
	if err != nil {
		exitErr("rotate-audit", err)
	}
	fmt.Printf("removed %d audit entries\n", removed)
}
