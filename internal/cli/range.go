package cli

import (
	"encoding/json"
	"fmt"

	"github.com/dan-solli/tempora/pkg/tempora"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "range",
		Short: "Valid-time range query",
		Long:  "Return memories whose validity window relates to [--from, --to) per --mode.",
		Run:   runRange,
	}

	cmd.Flags().String("from", "", "Window start, RFC 3339 (required)")
	cmd.Flags().String("to", "", "Window end, RFC 3339, exclusive (required)")
	cmd.Flags().StringP("mode", "m", "overlaps", "Interval relation: overlaps, contains, started_during, ended_during")
	cmd.Flags().StringP("type", "T", "", "Comma-separated type filter")
	cmd.Flags().StringP("tags", "t", "", "Comma-separated tag filter (any match)")
	cmd.Flags().String("files", "", "Comma-separated linked-file filter (all required)")

	cmd.MarkFlagRequired("from")
	cmd.MarkFlagRequired("to")

	RootCmd.AddCommand(cmd)
}

func runRange(cmd *cobra.Command, args []string) {
	fromStr, _ := cmd.Flags().GetString("from")
	toStr, _ := cmd.Flags().GetString("to")
	mode, _ := cmd.Flags().GetString("mode")

	from, err := parseTime(fromStr)
	if err != nil {
		exitErr("range", err)
	}
	to, err := parseTime(toStr)
	if err != nil {
		exitErr("range", err)
	}

	t, err := openSystem()
	if err != nil {
		exitErr("open store", err)
	}
	defer t.Close()

	records, err := t.Range(cmd.Context(), from, to, tempora.RangeMode(mode), filterFromFlags(cmd))
	if err != nil {
		exitErr("range", err)
	}

	b, _ := json.MarshalIndent(records, "", "  ")
	fmt.Println(string(b))
}
