package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var restoreRepo string

var restoreCmd = &cobra.Command{
	Use:   "restore <name> <dir>",
	Short: "Restore a snapshot into a local directory",
	Long: `Download a snapshot's files into a local directory, verifying each
file against the digest recorded in the manifest.

Examples:
  sftpblob -c prod.yaml restore nightly /var/lib/app`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, store, err := buildRepository(cmd, restoreRepo)
		if err != nil {
			return err
		}
		defer store.Close()

		if err := repo.Restore(cmd.Context(), args[0], args[1]); err != nil {
			return err
		}

		fmt.Printf("snapshot %s restored to %s\n", args[0], args[1])
		return nil
	},
}

func init() {
	restoreCmd.Flags().StringVar(&restoreRepo, "repo", "", "repository path inside the store")
	rootCmd.AddCommand(restoreCmd)
}
