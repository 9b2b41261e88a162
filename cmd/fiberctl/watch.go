package main

import (
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/brenohof/fiberspace/fiber"
)

// newWatchCommand runs a scheduler whose Config is reloaded from disk
// whenever the backing YAML file changes, grounded on vango's devServer
// watcher (cmd/vango/dev.go's setupWatcher/watchFiles): an fsnotify.Watcher
// plus a short debounce timer, since editors commonly emit several events per
// save.
//
// fiberctl's scheduler has no live "change the slice of a running ticker"
// knob - Config only takes effect at Start - so a reload here means:
// Stop the current scheduler, build a fresh one from the new Config, Start
// it, and carry forward the demo fiber workload. This is the same
// stop/rebuild/start shape vango's dev server uses for a WASM rebuild
// instead of an in-place patch.
func newWatchCommand() *cobra.Command {
	var configPath string
	var workers int

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Hot-reload scheduler config from a YAML file while running demo fibers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(configPath, workers)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "fiberctl.yaml", "scheduler config file to watch")
	cmd.Flags().IntVar(&workers, "workers", 3, "number of perpetual demo fibers to run per (re)start")
	return cmd
}

func runWatch(configPath string, workers int) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(configPath); err != nil {
		logger.Warn("watch: cannot watch config file; changes to it will not trigger a reload", "path", configPath, "err", err)
	}

	sched := startWatchedScheduler(configPath, workers)
	defer sched.Stop()

	debounce := time.NewTimer(0)
	<-debounce.C

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			debounce.Reset(150 * time.Millisecond)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch: watcher error", "err", err)

		case <-debounce.C:
			logger.Info("watch: config changed, restarting scheduler", "path", configPath)
			sched.Stop()
			sched = startWatchedScheduler(configPath, workers)
		}
	}
}

func startWatchedScheduler(configPath string, workers int) *fiber.Scheduler {
	cfg, err := fiber.LoadConfig(configPath)
	if err != nil {
		logger.Warn("watch: failed to load config, using defaults", "path", configPath, "err", err)
		cfg = fiber.DefaultConfig()
	}

	sched := fiber.NewScheduler(cfg)
	sched.Start()
	logger.Info("watch: scheduler started", "slice", cfg.Slice, "stackSize", cfg.StackSize)

	for i := 0; i < workers; i++ {
		sched.Create(func(fiber.Val) {
			for {
				time.Sleep(20 * time.Millisecond)
				sched.Checkpoint()
			}
		}, nil)
	}

	return sched
}
