package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Retrieve a memory",
		Args:  cobra.ExactArgs(1),
		Run:   runGet,
	}

	cmd.Flags().Bool("events", false, "Include the memory's event stream")
	cmd.Flags().Bool("revisions", false, "Include the content-revision history")

	RootCmd.AddCommand(cmd)
}

func runGet(cmd *cobra.Command, args []string) {
	withEvents, _ := cmd.Flags().GetBool("events")
	withRevisions, _ := cmd.Flags().GetBool("revisions")

	t, err := openSystem()
	if err != nil {
		exitErr("open store", err)
	}
	defer t.Close()

	rec, err := t.GetMemory(cmd.Context(), args[0])
	if err != nil {
		exitErr("get", err)
	}

	out := map[string]interface{}{"memory": rec}
	if withEvents {
		events, err := t.Events(cmd.Context(), args[0], nil)
		if err != nil {
			exitErr("get events", err)
		}
		out["events"] = events
	}
	if withRevisions {
		revisions, err := t.Revisions(cmd.Context(), args[0])
		if err != nil {
			exitErr("get revisions", err)
		}
		out["revisions"] = revisions
	}

	if !withEvents && !withRevisions {
		b, _ := json.MarshalIndent(rec, "", "  ")
		fmt.Println(string(b))
		return
	}
	b, _ := json.MarshalIndent(out, "", "  ")
	fmt.Println(string(b))
}
