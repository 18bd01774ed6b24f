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
		Use:   "traverse <id>",
		Short: "Walk the causal graph from a memory",
		Long:  "Breadth-first traversal of the causal graph. --dir forward follows effects, inverse follows causes. --at reconstructs the graph at a past system time first.",
		Args:  cobra.ExactArgs(1),
		Run:   runTraverse,
	}

	cmd.Flags().String("dir", "forward", "Direction: forward (effects) or inverse (causes)")
	cmd.Flags().Int("depth", 3, "Maximum traversal depth")
	cmd.Flags().String("at", "", "Reconstruct the graph at this system time, RFC 3339")

	RootCmd.AddCommand(cmd)
}

func runTraverse(cmd *cobra.Command, args []string) {
	dirStr, _ := cmd.Flags().GetString("dir")
	depth, _ := cmd.Flags().GetInt("depth")
	atStr, _ := cmd.Flags().GetString("at")

	dir := tempora.Direction(dirStr)
	if dir != tempora.DirectionForward && dir != tempora.DirectionInverse {
		exitErr("traverse", fmt.Errorf("invalid direction %q", dirStr))
	}

	t, err := openSystem()
	if err != nil {
		exitErr("open store", err)
	}
	defer t.Close()

	var results []tempora.TraversalResult
	if atStr != "" {
		asOf, err := parseTime(atStr)
		if err != nil {
			exitErr("traverse", err)
		}
		res, fails, err := t.TraverseAt(cmd.Context(), asOf, args[0], dir, depth)
		if err != nil {
			exitErr("traverse", err)
		}
		for _, f := range fails {
			fmt.Fprintf(os.Stderr, "warning: replay failed for %s: %v\n", f.MemoryID, f.Err)
		}
		results = res
	} else {
		results = t.Traverse(args[0], dir, depth)
	}

	b, _ := json.MarshalIndent(results, "", "  ")
	fmt.Println(string(b))
}
