package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	log "github.com/cantara/bragi/sbragi"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/allyunion/homosphere/internal/config"
)

// newWatchCmd creates the "watch" subcommand for rebuilding on config changes.
func newWatchCmd(flags *globalFlags) *cobra.Command {
	var (
		debounce     time.Duration
		outputFormat string
		outputFile   string
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Rebuild the template when the project file changes",
		Long: `Watch monitors the project file and rebuilds the template on every change.

The watch command:
- Monitors the directory holding the project file, so editors that replace
  the file on save are handled
- Rebuilds after each change, reporting config errors without exiting
- Debounces rapid changes to avoid excessive rebuilds

Examples:
    homosphere watch -o vpc.json
    homosphere watch --config network/homosphere.yaml --format yaml -o vpc.yaml
    homosphere watch --debounce 1s`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, flags, watchOptions{
				debounce: debounce,
				overrides: config.Overrides{
					Format: outputFormat,
					Output: outputFile,
				},
			})
		},
	}

	cmd.Flags().DurationVar(&debounce, "debounce", 500*time.Millisecond, "Debounce duration for rapid changes")
	cmd.Flags().StringVarP(&outputFormat, "format", "f", "", "Output format: json or yaml (default: json)")
	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")

	return cmd
}

type watchOptions struct {
	debounce  time.Duration
	overrides config.Overrides
}

// runWatch rebuilds the template whenever the project file is written.
func runWatch(cmd *cobra.Command, flags *globalFlags, opts watchOptions) error {
	path, err := filepath.Abs(flags.configFile)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", flags.configFile, err)
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("nothing to watch: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() {
		_ = watcher.Close()
	}()

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(path), err)
	}

	status := cmd.ErrOrStderr()
	fmt.Fprintf(status, "Watching: %s\n", path)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	rebuild := func() {
		cfg, err := loadConfig(cmd, flags, opts.overrides)
		if err == nil {
			err = runBuild(cmd.Context(), cmd.OutOrStdout(), cfg, false)
		}
		reportRebuild(status, err)
	}

	fmt.Fprintln(status, "Running initial build...")
	rebuild()

	var debounceTimer *time.Timer
	rebuildChan := make(chan struct{}, 1)

	fmt.Fprintln(status, "\nWatching for changes... (Ctrl+C to stop)")

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !isConfigEvent(event, path) {
				continue
			}

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(opts.debounce, func() {
				select {
				case rebuildChan <- struct{}{}:
				default:
				}
			})

		case <-rebuildChan:
			fmt.Fprintf(status, "\n[%s] Change detected, rebuilding...\n", time.Now().Format("15:04:05"))
			rebuild()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.WithError(err).Error("watch error", "path", path)

		case <-cmd.Context().Done():
			return nil

		case <-sigChan:
			fmt.Fprintln(status, "\nStopping watch...")
			return nil
		}
	}
}

// isConfigEvent reports whether event writes or replaces the file at path.
func isConfigEvent(event fsnotify.Event, path string) bool {
	if filepath.Clean(event.Name) != path {
		return false
	}
	return event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0
}

func reportRebuild(w io.Writer, err error) {
	if err != nil {
		log.WithError(err).Error("rebuild failed")
		fmt.Fprintf(w, "Build failed: %v\n", err)
		return
	}
	fmt.Fprintln(w, "Build successful")
}
