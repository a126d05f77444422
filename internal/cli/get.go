package cli

import (
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Retrieve a memory",
		Args:  cobra.ExactArgs(1),
		Run:   runGet,
	}

	RootCmd.AddCommand(cmd)
}

func runGet(cmd *cobra.Command, args []string) {
	svc, owner := setup(cmd)
	defer svc.Close()

	m, err := svc.GetMemory(cmd.Context(), owner, args[0])
	if err != nil {
		exitErr("get", err)
	}

	if err := encode(cmd.OutOrStdout(), formatFlag, m); err != nil {
		exitErr("output", err)
	}
}
