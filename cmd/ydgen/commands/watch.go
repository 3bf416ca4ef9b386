package commands

import (
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/fsnotify/fsnotify"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/WhisperCapital/go-yd/internal/common"
)

var debounce time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Regenerate whenever the config or the declaration dump changes",
	Long: `Generate once, then watch the config file and the declaration dump and
regenerate after they change. A failed run is reported and the previous
output is left in place.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().DurationVar(&debounce, "debounce", 300*time.Millisecond, "quiet period before regenerating")
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadInputs()
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "creating file watcher")
	}
	defer watcher.Close()

	// watch directories: editors replace files rather than writing in place
	targets := map[string]bool{}
	for _, p := range []string{configPath, cfg.Declarations} {
		if p == "" {
			continue
		}
		abs, err := filepath.Abs(p)
		if err != nil {
			return errors.Wrapf(err, "resolving %s", p)
		}
		targets[abs] = true
	}
	dirs := map[string]bool{}
	for t := range targets {
		dirs[filepath.Dir(t)] = true
	}
	for _, dir := range common.SortedKeys(dirs) {
		if err := watcher.Add(dir); err != nil {
			return errors.Wrapf(err, "watching %s", dir)
		}
	}

	regenerate := func() {
		cfg, files, err := generate()
		if err == nil {
			err = common.WriteFiles(cfg.Output, files)
		}
		if err != nil {
			pterm.Error.Printf("Generation failed: %v\n", err)
			return
		}
		pterm.Success.Printf("Generated %d files into %s\n", len(files), cfg.Output)
	}
	regenerate()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	defer signal.Stop(interrupt)

	// the timer only fires on this goroutine, so regeneration never overlaps
	timer := time.NewTimer(debounce)
	timer.Stop()

	pterm.Info.Println("Watching for changes, press Ctrl+C to stop")
	for {
		select {
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			abs, err := filepath.Abs(ev.Name)
			if err != nil || !targets[abs] {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			log.Debug("input changed", zap.String("path", ev.Name), zap.String("op", ev.Op.String()))
			timer.Reset(debounce)
		case <-timer.C:
			regenerate()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn("watcher error", zap.Error(err))
		case <-interrupt:
			return nil
		case <-cmd.Context().Done():
			return nil
		}
	}
}
