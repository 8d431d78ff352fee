// Package cli provides the command-line interface for s3tool.
package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/s3tool/s3tool"
	"github.com/s3tool/s3tool/s3types"
)

// Version information - injected via LDFLAGS at release builds.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

var (
	// Global flags
	cfgFile string
	verbose bool

	// Global logger shared by all commands
	logger = logrus.New()
)

// NewRootCmd creates the root command with all subcommands attached.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "s3tool",
		Short: "Chunked, parallel, optionally encrypted S3 transfers",
		Long: `s3tool ` + Version + ` - Built: ` + BuildTime + `
Moves files to and from S3-compatible object stores as chunked, parallel
multipart transfers, with optional client-side envelope encryption.

Objects are addressed as s3://bucket/key URIs. Configuration is read from
flags, S3TOOL_* environment variables, and an optional config file, in that
order of precedence.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if verbose {
				logger.SetLevel(logrus.DebugLevel)
			}
			return initConfig(cmd)
		},
	}

	rootCmd.Version = Version + " (" + BuildTime + ")"

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&cfgFile, "config", "c", "", "path to configuration file (YAML format)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "verbose output (shows debug messages)")
	flags.String("endpoint", "", "custom S3 endpoint URL (for S3-compatible stores)")
	flags.String("region", "", "AWS region (default: credential chain)")
	flags.Bool("path-style", false, "use path-style addressing instead of virtual-hosted")
	flags.Int("retry", 0, "total attempt budget per request, first attempt included (default 10, max 50)")
	flags.Bool("retry-client-errors", false, "retry 4xx service errors too")
	flags.Int64("chunk-size", 0, "plaintext chunk size in bytes (default 5 MiB)")
	flags.String("key-dir", "", "directory holding encryption key pairs (default ~/.s3lib-keys)")
	flags.Int("http-concurrency", 0, "maximum concurrent requests to the service (default 10)")
	flags.Int("task-concurrency", 0, "maximum concurrent part workers (default 50)")

	rootCmd.AddCommand(newUploadCmd())
	rootCmd.AddCommand(newDownloadCmd())
	rootCmd.AddCommand(newCopyCmd())
	rootCmd.AddCommand(newLsCmd())
	rootCmd.AddCommand(newLsBucketsCmd())
	rootCmd.AddCommand(newRmCmd())
	rootCmd.AddCommand(newExistsCmd())
	rootCmd.AddCommand(newDuCmd())
	rootCmd.AddCommand(newListPendingUploadsCmd())
	rootCmd.AddCommand(newAbortPendingUploadCmd())
	rootCmd.AddCommand(newAddEncryptedKeyCmd())
	rootCmd.AddCommand(newRemoveEncryptedKeyCmd())
	rootCmd.AddCommand(newKeygenCmd())

	return rootCmd
}

// initConfig wires flags, environment, and the optional config file into one
// viper instance. Flags win over environment, environment over file.
func initConfig(cmd *cobra.Command) error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".s3tool")
	}

	viper.SetEnvPrefix("S3TOOL")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("reading config file: %w", err)
		}
	} else {
		logger.WithField("file", viper.ConfigFileUsed()).Debug("using config file")
	}

	return viper.BindPFlags(cmd.Root().PersistentFlags())
}

// newClient builds the library client from the resolved configuration.
func newClient() (*s3tool.Client, error) {
	opts := []s3types.Option{
		s3tool.WithLogger(logger),
	}
	if v := viper.GetString("endpoint"); v != "" {
		opts = append(opts, s3tool.WithEndpoint(v))
	}
	if v := viper.GetString("region"); v != "" {
		opts = append(opts, s3tool.WithRegion(v))
	}
	if viper.GetBool("path-style") {
		opts = append(opts, s3tool.WithForcePathStyle(true))
	}
	if v := viper.GetInt("retry"); v > 0 {
		opts = append(opts, s3tool.WithMaxRetries(v))
	}
	if viper.GetBool("retry-client-errors") {
		opts = append(opts, s3tool.WithRetryClientErrors(true))
	}
	if v := viper.GetInt64("chunk-size"); v > 0 {
		opts = append(opts, s3tool.WithChunkSize(v))
	}
	if v := viper.GetString("key-dir"); v != "" {
		opts = append(opts, s3tool.WithKeyDir(v))
	}
	if v := viper.GetInt("http-concurrency"); v > 0 {
		opts = append(opts, s3tool.WithHTTPConcurrency(v))
	}
	if v := viper.GetInt("task-concurrency"); v > 0 {
		opts = append(opts, s3tool.WithTaskConcurrency(v))
	}
	return s3tool.New(opts...)
}
