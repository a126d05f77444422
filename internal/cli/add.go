package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/memdigest/internal/model"
	"github.com/rcliao/memdigest/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "add [content]",
		Short: "Store a memory",
		Long:  "Store a memory. Content can be a positional arg or piped via stdin.",
		Run:   runAdd,
	}

	cmd.Flags().IntP("importance", "i", model.DefaultImportance, "Importance, 1 (lowest) to 10 (highest)")
	cmd.Flags().StringP("tags", "t", "", "Comma-separated tags")
	cmd.Flags().String("meta", "", "JSON object metadata")

	RootCmd.AddCommand(cmd)
}

// readContent returns the positional args joined, or stdin when it is piped.
func readContent(args []string) string {
	if len(args) > 0 {
		return strings.Join(args, " ")
	}
	stat, _ := os.Stdin.Stat()
	if (stat.Mode() & os.ModeCharDevice) == 0 {
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			exitErr("read stdin", err)
		}
		return string(b)
	}
	return ""
}

func runAdd(cmd *cobra.Command, args []string) {
	importance, _ := cmd.Flags().GetInt("importance")
	tagsStr, _ := cmd.Flags().GetString("tags")
	meta, _ := cmd.Flags().GetString("meta")

	content := readContent(args)
	if strings.TrimSpace(content) == "" {
		exitErr("add", fmt.Errorf("content is required (positional arg or stdin)"))
	}

	svc, owner := setup(cmd)
	defer svc.Close()

	m, err := svc.AddMemory(cmd.Context(), store.CreateParams{
		Owner:      owner,
		Content:    content,
		Importance: &importance,
		Tags:       model.ParseTags(tagsStr),
		Metadata:   model.Metadata(meta),
	})
	if err != nil {
		exitErr("add", err)
	}

	if err := encode(cmd.OutOrStdout(), formatFlag, m); err != nil {
		exitErr("output", err)
	}
}
