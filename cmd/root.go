package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	commonerrors "github.com/deploymenttheory/go-disk-defrag/internal/common/errors"
	"github.com/deploymenttheory/go-disk-defrag/internal/config"
	"github.com/deploymenttheory/go-disk-defrag/internal/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Exit statuses
const (
	ExitOK      = 0
	ExitFailure = 1
	ExitUsage   = 2
)

// Version is the application version
var Version = "0.1.0"

var cfgFile string

// flagKeys binds command-line flags to configuration keys
var flagKeys = map[string]string{
	"debug":                  "debug",
	"quiet":                  "quiet",
	"log-format":             "log_format",
	"log-file":               "log_file",
	"output":                 "defrag.output",
	"rebuild-inode-freelist": "defrag.rebuild_inode_freelist",
	"verify":                 "verify.expected",
	"fail-on-mismatch":       "verify.fail_on_mismatch",
	"digest":                 "verify.digest",
	"report":                 "report.path",
	"report-format":          "report.format",
}

// rootCmd represents the base CLI command
var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "defrag [flags] <input-image>",
		Short: "Defragment a Unix-style filesystem image",
		Long: `defrag rewrites a filesystem image so that every file occupies one
contiguous run of data blocks, files ordered by inode index, with all
remaining blocks chained into an ascending free list.

The input image is never modified. The result is written to the output
path (default "disk_defrag") only after every stage has succeeded.
Images ending in .xz, .bz2 or .gz are decompressed on load and the
output is compressed the same way when its name carries one of those
extensions.`,
		Args:              exactlyOneImage,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: loadSettings,
		RunE:              runDefrag,
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is search in standard locations)")
	root.PersistentFlags().Bool("debug", false, "Enable debug logging")
	root.PersistentFlags().BoolP("quiet", "q", false, "Only print warnings and errors")
	root.PersistentFlags().String("log-format", "human", "Log format: json or human")
	root.PersistentFlags().String("log-file", "", "Also write logs to this file")
	root.PersistentFlags().String("report", "", "Write a layout report to this path")
	root.PersistentFlags().String("report-format", "", "Report format: json, yaml or plist (default from extension)")

	root.Flags().StringP("output", "o", config.DefaultOutput, "Path of the defragmented image")
	root.Flags().String("verify", "", "Compare the output with this expected image")
	root.Flags().Bool("fail-on-mismatch", false, "Exit with failure when verification finds a difference")
	root.Flags().String("digest", "blake2b", "Digest reported by verification: blake2b or sha256")
	root.Flags().Bool("rebuild-inode-freelist", false, "Also rebuild the free inode list in ascending order")

	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return commonerrors.NewDefragError(commonerrors.ErrUsage, "flags", "", err.Error())
	})

	root.AddCommand(newInspectCmd())
	root.AddCommand(newWorkflowCmd())
	root.AddCommand(newVersionCmd())
	return root
}

// Execute runs the root command and returns the process exit status
func Execute() int {
	return execute(rootCmd, os.Args[1:], os.Stdout, os.Stderr)
}

func execute(root *cobra.Command, args []string, stdout, stderr io.Writer) int {
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.Execute()
	if err == nil {
		return ExitOK
	}

	fmt.Fprintf(stderr, "Error: %v\n", err)
	if commonerrors.IsUsageError(err) {
		fmt.Fprintln(stderr, root.UsageString())
		return ExitUsage
	}
	return ExitFailure
}

// exactlyOneImage requires the input image argument
func exactlyOneImage(cmd *cobra.Command, args []string) error {
	if len(args) != 1 {
		return commonerrors.NewDefragError(commonerrors.ErrUsage, cmd.Name(), "",
			fmt.Sprintf("expected one input image, got %d arguments", len(args)))
	}
	return nil
}

// loadSettings layers flags over the config file and environment, then
// re-initialises logging from the result
func loadSettings(cmd *cobra.Command, args []string) error {
	// If config file was explicitly specified via flag, reload from it
	if cmd.Flags().Changed("config") && cfgFile != "" {
		if err := config.Reload(cfgFile); err != nil {
			return err
		}
	}

	// Root flags first so every key is bound to this command tree, even for subcommands
	v := config.Viper()
	bind := func(f *pflag.Flag) {
		if key, ok := flagKeys[f.Name]; ok {
			_ = v.BindPFlag(key, f)
		}
	}
	cmd.Root().Flags().VisitAll(bind)
	cmd.Flags().VisitAll(bind)

	if err := config.Refresh(); err != nil {
		if errors.Is(err, commonerrors.ErrConfigInvalid) {
			return commonerrors.NewDefragError(commonerrors.ErrUsage, "config", "", err.Error())
		}
		return err
	}

	return logger.InitLogger(logger.LoggerConfig{
		Debug:     config.Instance.Debug,
		Quiet:     config.Instance.Quiet,
		LogFormat: config.Instance.LogFormat,
		LogFile:   config.Instance.LogFile,
	})
}

// newVersionCmd shows the application version
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s v%s\n", config.AppName, Version)
		},
	}
}
