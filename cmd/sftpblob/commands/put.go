package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var putCmd = &cobra.Command{
	Use:   "put <local-file> <path/blob>",
	Short: "Upload a blob",
	Long: `Upload a local file as a blob, creating the container path as needed.
An existing blob with the same name is replaced.

Examples:
  sftpblob -c prod.yaml put ./app.tar.gz releases/v2/app.tar.gz`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, name, err := splitBlobArg(args[1])
		if err != nil {
			return err
		}

		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		store, err := buildStore(cmd)
		if err != nil {
			return err
		}
		defer store.Close()

		container, err := store.Container(cmd.Context(), path)
		if err != nil {
			return err
		}

		w, err := container.Create(cmd.Context(), name)
		if err != nil {
			return err
		}

		n, err := io.Copy(w, f)
		if err != nil {
			_ = w.Close()
			return fmt.Errorf("upload %s: %w", args[1], err)
		}
		if err := w.Close(); err != nil {
			return fmt.Errorf("upload %s: %w", args[1], err)
		}

		fmt.Fprintf(os.Stderr, "uploaded %s (%d bytes)\n", args[1], n)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(putCmd)
}
