package cli

import (
	"fmt"
	"time"

	"github.com/dan-solli/tempora/pkg/tempora"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "link <source-id> <target-id>",
		Short: "Create or remove a causal edge between memories",
		Long:  "Create a directed causal edge source -> target. Fails if the edge would close a cycle.",
		Args:  cobra.ExactArgs(2),
		Run:   runLink,
	}

	cmd.Flags().StringP("rel", "r", "caused", "Relation: caused, enabled, contradicts, supersedes")
	cmd.Flags().Float64("strength", 1.0, "Edge strength in [0, 1]")
	cmd.Flags().String("evidence", "", "Free-text evidence supporting the relation")
	cmd.Flags().Bool("rm", false, "Remove the edge instead")

	RootCmd.AddCommand(cmd)
}

func runLink(cmd *cobra.Command, args []string) {
	rel, _ := cmd.Flags().GetString("rel")
	strength, _ := cmd.Flags().GetFloat64("strength")
	evidenceText, _ := cmd.Flags().GetString("evidence")
	rm, _ := cmd.Flags().GetBool("rm")

	t, err := openSystem()
	if err != nil {
		exitErr("open store", err)
	}
	defer t.Close()

	source, target := args[0], args[1]

	if rm {
		existed, err := t.UnlinkCausal(cmd.Context(), source, target)
		if err != nil {
			exitErr("unlink", err)
		}
		if !existed {
			fmt.Printf("no edge %s -> %s\n", source, target)
			return
		}
		fmt.Printf("unlinked %s -> %s\n", source, target)
		return
	}

	var evidence []tempora.Evidence
	if evidenceText != "" {
		evidence = append(evidence, tempora.Evidence{
			Description: evidenceText,
			Source:      "cli",
			Timestamp:   time.Now().UTC(),
		})
	}

	if err := t.LinkCausal(cmd.Context(), source, target, rel, strength, evidence); err != nil {
		exitErr("link", err)
	}
	fmt.Printf("linked %s -[%s %.2f]-> %s\n", source, rel, strength, target)
}
