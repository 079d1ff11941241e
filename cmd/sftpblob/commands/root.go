package commands

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"

	"github.com/meigma/sftpblob"
	"github.com/meigma/sftpblob/repository"
)

var (
	// Global flags
	configPath string
	verbose    bool

	flagHost       string
	flagPort       int
	flagUser       string
	flagPassword   string
	flagKey        string
	flagPassphrase string
	flagKnownHosts string
	flagLocation   string
)

var rootCmd = &cobra.Command{
	Use:   "sftpblob",
	Short: "Blob storage over SFTP",
	Long: `sftpblob - manage blobs and snapshots on an SFTP server.

Connection settings may be given as flags or in a YAML config file:

  host: backup.example.com
  port: 22
  user: backup
  password: secret          # or private_key: ~/.ssh/id_ed25519
  known_hosts: ~/.ssh/known_hosts
  location: /srv/blobs

Flags override config file values.

Examples:
  sftpblob --config prod.yaml ls releases/v2
  sftpblob --host backup.example.com --user backup --key ~/.ssh/id_ed25519 \
      put ./app.tar.gz releases/v2/app.tar.gz
  sftpblob --config prod.yaml snapshot create nightly /var/lib/app`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&configPath, "config", "c", "", "path to YAML config file")
	pf.BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	pf.StringVar(&flagHost, "host", "", "SFTP server host")
	pf.IntVar(&flagPort, "port", 0, "SFTP server port (default 22)")
	pf.StringVar(&flagUser, "user", "", "login user")
	pf.StringVar(&flagPassword, "password", "", "login password")
	pf.StringVar(&flagKey, "key", "", "path to private key file")
	pf.StringVar(&flagPassphrase, "passphrase", "", "private key passphrase")
	pf.StringVar(&flagKnownHosts, "known-hosts", "", "path to known_hosts file")
	pf.StringVar(&flagLocation, "location", "", "remote base directory (default server home)")
}

// settings mirrors the YAML config file schema.
type settings struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	User       string `yaml:"user"`
	Password   string `yaml:"password"`
	PrivateKey string `yaml:"private_key"`
	Passphrase string `yaml:"passphrase"`
	KnownHosts string `yaml:"known_hosts"`
	Location   string `yaml:"location"`
}

// loadSettings merges the config file (if any) with command line flags.
// Flags win over file values.
func loadSettings(cmd *cobra.Command) (settings, error) {
	var s settings

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return s, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &s); err != nil {
			return s, fmt.Errorf("parse config %s: %w", configPath, err)
		}
	}

	flags := cmd.Flags()
	if flags.Changed("host") {
		s.Host = flagHost
	}
	if flags.Changed("port") {
		s.Port = flagPort
	}
	if flags.Changed("user") {
		s.User = flagUser
	}
	if flags.Changed("password") {
		s.Password = flagPassword
	}
	if flags.Changed("key") {
		s.PrivateKey = flagKey
	}
	if flags.Changed("passphrase") {
		s.Passphrase = flagPassphrase
	}
	if flags.Changed("known-hosts") {
		s.KnownHosts = flagKnownHosts
	}
	if flags.Changed("location") {
		s.Location = flagLocation
	}

	return s, nil
}

// buildStore connects to the server described by the merged settings.
func buildStore(cmd *cobra.Command) (*sftpblob.Store, error) {
	s, err := loadSettings(cmd)
	if err != nil {
		return nil, err
	}

	var opts []sftpblob.Option
	if verbose {
		opts = append(opts, sftpblob.WithLogger(newLogger()))
	}

	return sftpblob.New(sftpblob.Config{
		Host:                 s.Host,
		Port:                 s.Port,
		User:                 s.User,
		Password:             s.Password,
		PrivateKeyPath:       s.PrivateKey,
		PrivateKeyPassphrase: s.Passphrase,
		KnownHostsPath:       s.KnownHosts,
		Location:             s.Location,
	}, opts...)
}

// buildRepository opens a snapshot repository rooted at repoPath.
// The caller owns the returned store and must close it.
func buildRepository(cmd *cobra.Command, repoPath string, opts ...repository.Option) (*repository.Repository, *sftpblob.Store, error) {
	store, err := buildStore(cmd)
	if err != nil {
		return nil, nil, err
	}

	if verbose {
		opts = append(opts, repository.WithLogger(newLogger()))
	}

	repo, err := repository.New(cmd.Context(), store, sftpblob.ParsePath(repoPath), opts...)
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}
	return repo, store, nil
}

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

// splitBlobArg splits "a/b/name" into the container path "a/b" and the
// blob name "name".
func splitBlobArg(arg string) (sftpblob.BlobPath, string, error) {
	segs := sftpblob.ParsePath(arg).Segments()
	if len(segs) == 0 {
		return sftpblob.BlobPath{}, "", fmt.Errorf("invalid blob path %q", arg)
	}

	path := sftpblob.RootPath()
	for _, seg := range segs[:len(segs)-1] {
		path = path.Add(seg)
	}
	return path, segs[len(segs)-1], nil
}
