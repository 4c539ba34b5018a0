// Command gitfat tracks large files outside git's own object store,
// syncing them on demand via rsync. See the subcommand help text for
// usage; `gitfat init` wires the clean/smudge filters into the current
// repository's git config.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gitfat-go/gitfat/pkg/fatutil/errs"
	"github.com/gitfat-go/gitfat/pkg/fatutil/logger"
)

var (
	Version   = "0.1.0-dev"
	BuildTime = "unknown"
	CommitSHA = "unknown"
)

var verbose bool

func main() {
	rootCmd := &cobra.Command{
		Use:     "git-fat",
		Short:   "Track large files outside git's object store",
		Long:    banner(),
		Version: fmt.Sprintf("%s (built: %s, commit: %s)", Version, BuildTime, CommitSHA),
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogging()
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(newInitCmd())
	rootCmd.AddCommand(newFilterCleanCmd())
	rootCmd.AddCommand(newFilterSmudgeCmd())
	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newPushCmd())
	rootCmd.AddCommand(newPullCmd())
	rootCmd.AddCommand(newCheckoutCmd())
	rootCmd.AddCommand(newGCCmd())
	rootCmd.AddCommand(newVerifyCmd())
	rootCmd.AddCommand(newFindCmd())
	rootCmd.AddCommand(newIndexFilterCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if coder, ok := err.(errs.ExitCoder); ok {
			os.Exit(coder.ExitCode())
		}
		os.Exit(1)
	}
}

func banner() string {
	return `
  git-fat — large files live outside the repository, fetched on demand.

  Get started with: git-fat init
  Check status with: git-fat status
  Need help? Run:    git-fat --help
`
}

func setupLogging() {
	level := logger.LevelInfo
	if verbose || os.Getenv("GIT_FAT_VERBOSE") != "" {
		level = logger.LevelDebug
	}
	logger.Default = logger.New(logger.Config{
		Level:  level,
		Format: logger.FormatText,
		Output: os.Stderr,
	})
}
