package cli

import (
	"github.com/spf13/cobra"

	"github.com/rcliao/memdigest/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update fields of a memory",
		Long:  "Update a memory. Only the flags given are changed; the memory moves to the front of the list.",
		Args:  cobra.ExactArgs(1),
		Run:   runUpdate,
	}

	addPatchFlags(cmd)

	RootCmd.AddCommand(cmd)
}

func addPatchFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("content", "c", "", "New content")
	cmd.Flags().IntP("importance", "i", 0, "New importance, 1 to 10")
	cmd.Flags().StringP("tags", "t", "", "Replace tags (comma-separated, empty clears)")
	cmd.Flags().String("meta", "", "Replace metadata (JSON object, empty clears)")
}

// patchFromFlags builds a patch from the flags that were set.
func patchFromFlags(cmd *cobra.Command) model.Patch {
	var p model.Patch
	flags := cmd.Flags()
	if flags.Changed("content") {
		v, _ := flags.GetString("content")
		p.Content = &v
	}
	if flags.Changed("importance") {
		v, _ := flags.GetInt("importance")
		p.Importance = &v
	}
	if flags.Changed("tags") {
		v, _ := flags.GetString("tags")
		tags := model.ParseTags(v)
		p.Tags = &tags
	}
	if flags.Changed("meta") {
		v, _ := flags.GetString("meta")
		meta := model.Metadata(v)
		p.Metadata = &meta
	}
	return p
}

func runUpdate(cmd *cobra.Command, args []string) {
	patch := patchFromFlags(cmd)

	svc, owner := setup(cmd)
	defer svc.Close()

	m, err := svc.UpdateMemory(cmd.Context(), owner, args[0], patch)
	if err != nil {
		exitErr("update", err)
	}

	if err := encode(cmd.OutOrStdout(), formatFlag, m); err != nil {
		exitErr("output", err)
	}
}
