package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/TFMV/lstree/internal/mockfs"
	lstree "github.com/TFMV/lstree/internal/walk"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	version = "0.1.0"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "lstree [options] [path]",
	Short: "Print a snapshot of a directory tree",
	Long: `lstree walks a directory tree concurrently and prints it as a nested
structure. Unreadable files and directories are reported in place instead of
aborting the walk; every list and stat call is bounded by a timeout.`,
	Version: version,
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "."
		if len(args) > 0 {
			path = args[0]
		}
		return runList(cmd.Context(), cmd.OutOrStdout(), path)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default is $HOME/.lstree.yaml)")
	rootCmd.PersistentFlags().Duration("timeout", lstree.DefaultTimeout, "Timeout for each list and stat call")
	rootCmd.PersistentFlags().String("backend", "os", "Filesystem backend (os|afero|mock)")
	rootCmd.PersistentFlags().Bool("normalize", false, "NFC-normalize entry names")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().Bool("silent", false, "Disable all logging except errors")
	rootCmd.PersistentFlags().String("format", "json", "Output format (json|text)")
	rootCmd.Flags().Bool("progress", false, "Show progress updates on stderr")

	// Bind flags to viper
	viper.BindPFlag("timeout", rootCmd.PersistentFlags().Lookup("timeout"))
	viper.BindPFlag("backend", rootCmd.PersistentFlags().Lookup("backend"))
	viper.BindPFlag("normalize", rootCmd.PersistentFlags().Lookup("normalize"))
	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag("silent", rootCmd.PersistentFlags().Lookup("silent"))
	viper.BindPFlag("format", rootCmd.PersistentFlags().Lookup("format"))
	viper.BindPFlag("progress", rootCmd.Flags().Lookup("progress"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else if home, err := os.UserHomeDir(); err == nil {
		// Search config in home directory with name ".lstree" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".lstree")
	}

	viper.SetEnvPrefix("lstree")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// optionsFromConfig builds walk options from flags, environment and config file.
func optionsFromConfig() (lstree.Options, error) {
	opts := lstree.Options{
		Timeout:   viper.GetDuration("timeout"),
		Normalize: viper.GetBool("normalize"),
	}
	if opts.Timeout <= 0 {
		return opts, fmt.Errorf("invalid timeout: %s", viper.GetString("timeout"))
	}

	src, err := newSource(viper.GetString("backend"), opts.Timeout)
	if err != nil {
		return opts, err
	}
	opts.Source = src

	// Set log level
	if viper.GetBool("verbose") {
		opts.LogLevel = lstree.LogLevelDebug
	} else if viper.GetBool("silent") {
		opts.LogLevel = lstree.LogLevelError
	} else {
		opts.LogLevel = lstree.LogLevelWarn
	}
	return opts, nil
}

// newSource selects a filesystem backend by name.
func newSource(backend string, timeout time.Duration) (lstree.Source, error) {
	switch backend {
	case "os":
		return lstree.NewOSSource(), nil
	case "afero":
		return lstree.NewAferoSource(afero.NewReadOnlyFs(afero.NewOsFs())), nil
	case "mock":
		return mockfs.Fixture(timeout), nil
	default:
		return nil, fmt.Errorf("invalid backend: %s", backend)
	}
}

func runList(ctx context.Context, out io.Writer, root string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	opts, err := optionsFromConfig()
	if err != nil {
		return err
	}
	if viper.GetString("backend") == "mock" {
		// The mock tree only exists under "/"; "." is the default argument.
		if root != "/" && root != "." {
			return fmt.Errorf("mock backend only serves \"/\", got %q", root)
		}
		root = "/"
	}

	if viper.GetBool("progress") {
		opts.Progress = func(stats lstree.Stats) {
			fmt.Fprintf(os.Stderr, "\rListed: %d dirs, %d entries, %d errors, %d timeouts",
				stats.DirsListed, stats.EntriesStatted, stats.ListErrors+stats.StatErrors, stats.Timeouts)
		}
	}

	tree, err := lstree.List(ctx, root, opts)
	if opts.Progress != nil {
		fmt.Fprintln(os.Stderr)
	}
	if err != nil {
		return err
	}
	return writeTree(out, tree, viper.GetString("format"))
}

// writeTree prints tree in the requested format.
func writeTree(out io.Writer, tree lstree.Tree, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(tree)
	case "text":
		return lstree.RenderText(out, tree)
	default:
		return fmt.Errorf("invalid format: %s", format)
	}
}
