// Package main provides the sftpblob CLI tool.
//
// Usage:
//
//	sftpblob [flags] <command> [args]
//
// Commands:
//
//	ls        - List blobs in a container
//	get       - Download a blob
//	put       - Upload a blob
//	rm        - Delete a blob
//	rmpath    - Remove an empty container directory
//	snapshot  - Manage directory snapshots
//	restore   - Restore a snapshot into a local directory
//
// Connection settings come from flags or a YAML config file
// (see 'sftpblob --help').
package main

import (
	"fmt"
	"os"

	"github.com/meigma/sftpblob/cmd/sftpblob/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
