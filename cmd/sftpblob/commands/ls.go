package commands

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/meigma/sftpblob"
)

var lsCmd = &cobra.Command{
	Use:   "ls [path]",
	Short: "List blobs in a container",
	Long: `List the blobs stored directly under a container path.

Examples:
  sftpblob -c prod.yaml ls
  sftpblob -c prod.yaml ls releases/v2`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := buildStore(cmd)
		if err != nil {
			return err
		}
		defer store.Close()

		arg := ""
		if len(args) == 1 {
			arg = args[0]
		}

		container, err := store.Container(cmd.Context(), sftpblob.ParsePath(arg))
		if err != nil {
			return err
		}

		blobs, err := container.List(cmd.Context())
		if err != nil {
			return err
		}

		names := make([]string, 0, len(blobs))
		for name := range blobs {
			names = append(names, name)
		}
		slices.Sort(names)

		for _, name := range names {
			fmt.Printf("%12d  %s\n", blobs[name].Size, name)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(lsCmd)
}
