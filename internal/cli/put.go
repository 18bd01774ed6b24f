package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dan-solli/tempora/pkg/tempora"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "put [content]",
		Short: "Store a memory",
		Long:  "Store a memory. Content is a JSON payload, given as a positional arg or piped via stdin.",
		Run:   runPut,
	}

	cmd.Flags().String("id", "", "Memory id (default: generated UUID)")
	cmd.Flags().StringP("type", "T", "fact", "Type: fact, decision, insight, code_pattern, incident, convention")
	cmd.Flags().StringP("summary", "s", "", "Short summary (required)")
	cmd.Flags().String("valid-from", "", "Valid-time start, RFC 3339 (default: now)")
	cmd.Flags().String("valid-until", "", "Valid-time end, RFC 3339, exclusive")
	cmd.Flags().Float64("confidence", 1.0, "Confidence in [0, 1]")
	cmd.Flags().String("importance", "medium", "Importance: low, medium, high, critical")
	cmd.Flags().StringP("tags", "t", "", "Comma-separated tags")
	cmd.Flags().String("files", "", "Comma-separated linked file paths")
	cmd.Flags().String("supersedes", "", "Id of an older memory this one replaces")

	cmd.MarkFlagRequired("summary")

	RootCmd.AddCommand(cmd)
}

func runPut(cmd *cobra.Command, args []string) {
	id, _ := cmd.Flags().GetString("id")
	memType, _ := cmd.Flags().GetString("type")
	summary, _ := cmd.Flags().GetString("summary")
	validFrom, _ := cmd.Flags().GetString("valid-from")
	validUntil, _ := cmd.Flags().GetString("valid-until")
	confidence, _ := cmd.Flags().GetFloat64("confidence")
	importance, _ := cmd.Flags().GetString("importance")
	tagsStr, _ := cmd.Flags().GetString("tags")
	filesStr, _ := cmd.Flags().GetString("files")
	supersedes, _ := cmd.Flags().GetString("supersedes")

	var content string
	if len(args) > 0 {
		content = strings.Join(args, " ")
	} else {
		stat, _ := os.Stdin.Stat()
		if (stat.Mode() & os.ModeCharDevice) == 0 {
			b, err := io.ReadAll(os.Stdin)
			if err != nil {
				exitErr("read stdin", err)
			}
			content = string(b)
		}
	}

	vt, err := parseTime(validFrom)
	if err != nil {
		exitErr("put", err)
	}
	var vu *time.Time
	if validUntil != "" {
		u, err := parseTime(validUntil)
		if err != nil {
			exitErr("put", err)
		}
		vu = &u
	}

	imp, err := parseImportance(importance)
	if err != nil {
		exitErr("put", err)
	}

	input := tempora.MemoryInput{
		ID:          id,
		Type:        tempora.MemoryType(memType),
		Summary:     summary,
		ValidTime:   vt,
		ValidUntil:  vu,
		Confidence:  confidence,
		Importance:  imp,
		Tags:        splitList(tagsStr),
		LinkedFiles: splitList(filesStr),
		Supersedes:  supersedes,
	}
	if strings.TrimSpace(content) != "" {
		input.Content = json.RawMessage(strings.TrimSpace(content))
	}

	t, err := openSystem()
	if err != nil {
		exitErr("open store", err)
	}
	defer t.Close()

	rec, err := t.PutMemory(cmd.Context(), input)
	if err != nil {
		exitErr("put", err)
	}

	b, _ := json.Marshal(rec)
	fmt.Println(string(b))
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

func parseImportance(s string) (tempora.Importance, error) {
	switch s {
	case "low":
		return tempora.ImportanceLow, nil
	case "", "medium":
		return tempora.ImportanceMedium, nil
	case "high":
		return tempora.ImportanceHigh, nil
	case "critical":
		return tempora.ImportanceCritical, nil
	}
	return 0, fmt.Errorf("invalid importance %q", s)
}
