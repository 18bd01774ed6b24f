package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dan-solli/tempora/pkg/tempora"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "asof",
		Short: "Bitemporal point query",
		Long:  "Answer: what did we believe at --system about what was true at --valid. Both default to now.",
		Run:   runAsOf,
	}

	cmd.Flags().String("valid", "now", "Valid time, RFC 3339 or 'now'")
	cmd.Flags().String("system", "now", "System time, RFC 3339 or 'now'")
	cmd.Flags().StringP("type", "T", "", "Comma-separated type filter")
	cmd.Flags().StringP("tags", "t", "", "Comma-separated tag filter (any match)")
	cmd.Flags().String("files", "", "Comma-separated linked-file filter (all required)")

	RootCmd.AddCommand(cmd)
}

func runAsOf(cmd *cobra.Command, args []string) {
	validStr, _ := cmd.Flags().GetString("valid")
	systemStr, _ := cmd.Flags().GetString("system")

	validTime, err := parseTime(validStr)
	if err != nil {
		exitErr("asof", err)
	}
	systemTime, err := parseTime(systemStr)
	if err != nil {
		exitErr("asof", err)
	}

	t, err := openSystem()
	if err != nil {
		exitErr("open store", err)
	}
	defer t.Close()

	result, err := t.AsOf(cmd.Context(), validTime, systemTime, filterFromFlags(cmd))
	if err != nil {
		exitErr("asof", err)
	}

	for _, f := range result.Failures {
		fmt.Fprintf(os.Stderr, "warning: replay failed for %s: %v\n", f.MemoryID, f.Err)
	}

	b, _ := json.MarshalIndent(result.Memories, "", "  ")
	fmt.Println(string(b))
}

func filterFromFlags(cmd *cobra.Command) *tempora.Filter {
	typesStr, _ := cmd.Flags().GetString("type")
	tagsStr, _ := cmd.Flags().GetString("tags")
	filesStr, _ := cmd.Flags().GetString("files")

	if typesStr == "" && tagsStr == "" && filesStr == "" {
		return nil
	}

	filter := &tempora.Filter{
		Tags:        splitList(tagsStr),
		LinkedFiles: splitList(filesStr),
	}
	for _, s := range splitList(typesStr) {
		filter.Types = append(filter.Types, tempora.MemoryType(s))
	}
	return filter
}
