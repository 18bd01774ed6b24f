package cli

import (
	"encoding/json"
	"fmt"

	"github.com/dan-solli/tempora/pkg/tempora"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List memories of one type",
		Run:   runList,
	}

	cmd.Flags().StringP("type", "T", "", "Type: fact, decision, insight, code_pattern, incident, convention (required)")
	cmd.MarkFlagRequired("type")

	RootCmd.AddCommand(cmd)
}

func runList(cmd *cobra.Command, args []string) {
	memType, _ := cmd.Flags().GetString("type")

	t, err := openSystem()
	if err != nil {
		exitErr("open store", err)
	}
	defer t.Close()

	records, err := t.ListMemoriesByType(cmd.Context(), tempora.MemoryType(memType))
	if err != nil {
		exitErr("list", err)
	}

	b, _ := json.MarshalIndent(records, "", "  ")
	fmt.Println(string(b))
}
