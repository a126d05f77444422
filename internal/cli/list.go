package cli

import (
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List memories, most recently updated first",
		Run:   runList,
	}

	cmd.Flags().IntP("min-importance", "m", 0, "Only show memories at or above this importance")
	cmd.Flags().IntP("limit", "l", 0, "Max results (0 for all)")

	RootCmd.AddCommand(cmd)
}

func runList(cmd *cobra.Command, args []string) {
	minImportance, _ := cmd.Flags().GetInt("min-importance")
	limit, _ := cmd.Flags().GetInt("limit")

	svc, owner := setup(cmd)
	defer svc.Close()

	memories, err := svc.ListMemories(cmd.Context(), owner)
	if err != nil {
		exitErr("list", err)
	}

	filtered := memories[:0]
	for _, m := range memories {
		if m.Importance >= minImportance {
			filtered = append(filtered, m)
		}
	}
	if limit > 0 && len(filtered) > limit {
		filtered = filtered[:limit]
	}

	if err := encode(cmd.OutOrStdout(), formatFlag, filtered); err != nil {
		exitErr("output", err)
	}
}
