package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "digest",
		Short: "Print the owner's memory digest",
		Long:  "Print the formatted block of memories that replaces the placeholder in prompt templates.",
		Run:   runDigest,
	}

	RootCmd.AddCommand(cmd)
}

func runDigest(cmd *cobra.Command, args []string) {
	svc, owner := setup(cmd)
	defer svc.Close()

	text, err := svc.Digest(cmd.Context(), owner)
	if err != nil {
		exitErr("digest", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), text)
}
