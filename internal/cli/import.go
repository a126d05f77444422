package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Import memories from JSON or YAML",
		Long:  "Import memories (file or stdin) in the format produced by export. Every record gets a new ID under the current owner; nothing is imported if any record is invalid.",
		Args:  cobra.MaximumNArgs(1),
		Run:   runImport,
	}

	RootCmd.AddCommand(cmd)
}

func runImport(cmd *cobra.Command, args []string) {
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
		exitErr("read input", err)
	}

	memories, err := decodeMemories(data)
	if err != nil {
		exitErr("import", err)
	}

	svc, owner := setup(cmd)
	defer svc.Close()

	imported, err := svc.ImportMemories(cmd.Context(), owner, memories)
	if err != nil {
		exitErr("import", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), `{"ok":true,"imported":%d}`+"\n", imported)
}
