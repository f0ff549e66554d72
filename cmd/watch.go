package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	lstree "github.com/TFMV/lstree/internal/walk"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
)

var (
	// Watch command options
	watchEvents   []string
	watchDebounce time.Duration
	watchTimeout  time.Duration
)

// watchCmd represents the watch command
var watchCmd = &cobra.Command{
	Use:   "watch [path]",
	Short: "Print a new tree snapshot whenever the directory changes",
	Long: `Watch a directory tree and print a fresh snapshot after every change.

Examples:
  lstree watch /path/to/watch
  lstree watch --events=create,delete --format=text /path/to/watch
  lstree watch --debounce=500ms --watch-timeout=1h /path/to/watch`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		watchDir := "."
		if len(args) > 0 {
			watchDir = args[0]
		}
		return runWatch(cmd.Context(), watchDir)
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().StringSliceVar(&watchEvents, "events", []string{}, "Events that trigger a snapshot (create, modify, delete, rename, chmod)")
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", lstree.DefaultDebounce, "Quiet period before re-listing")
	watchCmd.Flags().DurationVar(&watchTimeout, "watch-timeout", 0, "Duration to watch before exiting (e.g., 1h, 30m)")
}

func runWatch(ctx context.Context, root string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if viper.GetString("backend") == "mock" {
		return fmt.Errorf("watch needs a local filesystem backend")
	}

	opts, err := optionsFromConfig()
	if err != nil {
		return err
	}

	var events []lstree.WatchEvent
	for _, e := range watchEvents {
		ev, err := lstree.ParseWatchEvent(strings.ToLower(e))
		if err != nil {
			return err
		}
		events = append(events, ev)
	}

	wopts := lstree.WatchOptions{
		Events:   events,
		Debounce: watchDebounce,
		Timeout:  watchTimeout,
	}
	format := viper.GetString("format")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	eg, ctx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(sigCh)
		select {
		case <-sigCh:
			cancel()
		case <-ctx.Done():
		}
		return nil
	})

	eg.Go(func() error {
		defer cancel()
		fmt.Fprintf(os.Stderr, "Watching %s for changes...\n", root)
		fmt.Fprintln(os.Stderr, "Press Ctrl+C to exit.")
		return lstree.Watch(ctx, root, opts, wopts, func(ctx context.Context, result lstree.WatchResult) error {
			if result.Error != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", result.Error)
				return nil
			}
			if result.Event != lstree.EventInitial {
				fmt.Fprintf(os.Stderr, "%s: %s\n", strings.ToUpper(string(result.Event)), result.Path)
			}
			return writeTree(os.Stdout, result.Tree, format)
		})
	})

	return eg.Wait()
}
