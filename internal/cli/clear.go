package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete all memories of the owner",
		Run:   runClear,
	}

	cmd.Flags().Bool("yes", false, "Confirm deleting every memory of the owner")

	RootCmd.AddCommand(cmd)
}

func runClear(cmd *cobra.Command, args []string) {
	if yes, _ := cmd.Flags().GetBool("yes"); !yes {
		exitErr("clear", errors.New("refusing to clear without --yes"))
	}

	svc, owner := setup(cmd)
	defer svc.Close()

	n, err := svc.ClearMemories(cmd.Context(), owner)
	if err != nil {
		exitErr("clear", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), `{"deleted":%d}`+"\n", n)
}
