package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/meigma/sftpblob"
)

var rmCmd = &cobra.Command{
	Use:   "rm <path/blob>",
	Short: "Delete a blob",
	Args:  cobra.ExactArgs(1),
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

		if !container.Delete(cmd.Context(), name) {
			return fmt.Errorf("blob %s was not deleted", args[0])
		}
		return nil
	},
}

var rmpathCmd = &cobra.Command{
	Use:   "rmpath <path>",
	Short: "Remove an empty container directory",
	Long: `Remove the directory behind a container path. The directory must be
empty; delete its blobs first.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := buildStore(cmd)
		if err != nil {
			return err
		}
		defer store.Close()

		return store.DeletePath(cmd.Context(), sftpblob.ParsePath(args[0]))
	},
}

func init() {
	rootCmd.AddCommand(rmCmd)
	rootCmd.AddCommand(rmpathCmd)
}
