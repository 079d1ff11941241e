package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/meigma/sftpblob/repository"
)

var (
	snapRepo      string
	snapChunkSize int64
	snapCompress  bool
	snapStreams   int
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Manage directory snapshots",
	Long: `Create, list, and delete snapshots of local directories.

A snapshot uploads every file under a directory to the repository
container and records a manifest, so the directory can be rebuilt
later with 'sftpblob restore'.

Examples:
  sftpblob -c prod.yaml snapshot create nightly /var/lib/app
  sftpblob -c prod.yaml snapshot create nightly /var/lib/app --compress --chunk-size 104857600
  sftpblob -c prod.yaml snapshot list
  sftpblob -c prod.yaml snapshot delete nightly`,
}

var snapshotCreateCmd = &cobra.Command{
	Use:   "create <name> <dir>",
	Short: "Snapshot a local directory",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := []repository.Option{
			repository.WithCompression(snapCompress),
			repository.WithConcurrentStreams(snapStreams),
		}
		if snapChunkSize > 0 {
			opts = append(opts, repository.WithChunkSize(snapChunkSize))
		}

		repo, store, err := buildRepository(cmd, snapRepo, opts...)
		if err != nil {
			return err
		}
		defer store.Close()

		m, err := repo.Snapshot(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}

		fmt.Printf("snapshot %s created (%d files)\n", m.Name, len(m.Files))
		return nil
	},
}

var snapshotListCmd = &cobra.Command{
	Use:   "list",
	Short: "List snapshots",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, store, err := buildRepository(cmd, snapRepo)
		if err != nil {
			return err
		}
		defer store.Close()

		names, err := repo.Snapshots(cmd.Context())
		if err != nil {
			return err
		}
		for _, name := range names {
			fmt.Println(name)
		}
		return nil
	},
}

var snapshotDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a snapshot and its data",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, store, err := buildRepository(cmd, snapRepo)
		if err != nil {
			return err
		}
		defer store.Close()

		return repo.DeleteSnapshot(cmd.Context(), args[0])
	},
}

func init() {
	snapshotCmd.PersistentFlags().StringVar(&snapRepo, "repo", "", "repository path inside the store")
	snapshotCreateCmd.Flags().Int64Var(&snapChunkSize, "chunk-size", 0, "split files into chunks of this many bytes")
	snapshotCreateCmd.Flags().BoolVar(&snapCompress, "compress", false, "compress file data with zstd")
	snapshotCreateCmd.Flags().IntVar(&snapStreams, "streams", repository.DefaultConcurrentStreams, "concurrent transfer streams")

	snapshotCmd.AddCommand(snapshotCreateCmd)
	snapshotCmd.AddCommand(snapshotListCmd)
	snapshotCmd.AddCommand(snapshotDeleteCmd)
	rootCmd.AddCommand(snapshotCmd)
}
