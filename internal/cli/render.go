package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "render [template-file]",
		Short: "Expand a prompt template with the owner's memories",
		Long:  "Replace every placeholder (default {{USER_MEMORIES}}) in a template read from a file or stdin.",
		Args:  cobra.MaximumNArgs(1),
		Run:   runRender,
	}

	RootCmd.AddCommand(cmd)
}

func runRender(cmd *cobra.Command, args []string) {
	var (
		data []byte
		err  error
	)
	if len(args) == 1 {
		data, err = os.ReadFile(args[0])
	} else {
		data, err = io.ReadAll(os.Stdin)
	}
	if err != nil {
		exitErr("read template", err)
	}

	svc, owner := setup(cmd)
	defer svc.Close()

	text, err := svc.Expand(cmd.Context(), owner, string(data))
	if err != nil {
		exitErr("render", err)
	}

	fmt.Fprint(cmd.OutOrStdout(), text)
}
