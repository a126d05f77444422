package cli

import (
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the owner's memories",
		Long:  "Export the owner's memories as JSON (default) or YAML with -f yaml, most recent first.",
		Run:   runExport,
	}

	RootCmd.AddCommand(cmd)
}

func runExport(cmd *cobra.Command, args []string) {
	svc, owner := setup(cmd)
	defer svc.Close()

	memories, err := svc.ListMemories(cmd.Context(), owner)
	if err != nil {
		exitErr("export", err)
	}

	format := formatFlag
	if format == "text" {
		format = "json"
	}
	if err := encode(cmd.OutOrStdout(), format, memories); err != nil {
		exitErr("output", err)
	}
}
