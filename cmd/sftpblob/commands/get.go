package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var getCmd = &cobra.Command{
	Use:   "get <path/blob> [local-file]",
	Short: "Download a blob",
	Long: `Download a blob to a local file, or to stdout when no file is given.

Examples:
  sftpblob -c prod.yaml get releases/v2/app.tar.gz ./app.tar.gz
  sftpblob -c prod.yaml get releases/v2/checksums.txt`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, name, err := splitBlobArg(args[0])
		if err != nil {
			return err
		}

		store, err := buildStore(cmd)
		if err != nil {
			return err
		}
		defer store.Close()

		container, err := store.Container(cmd.Context(), path)
		if err != nil {
			return err
		}

		r, err := container.Open(cmd.Context(), name)
		if err != nil {
			return err
		}
		defer r.Close()

		var w io.Writer = os.Stdout
		if len(args) == 2 {
			f, err := os.Create(args[1])
			if err != nil {
				return err
			}
			defer f.Close()
			w = f
		}

		n, err := io.Copy(w, r)
		if err != nil {
			return fmt.Errorf("download %s: %w", args[0], err)
		}
		if len(args) == 2 {
			fmt.Fprintf(os.Stderr, "downloaded %s (%d bytes)\n", args[0], n)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(getCmd)
}
