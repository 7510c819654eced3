package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"navview/app"
	"navview/config"
	"navview/hal"
	"navview/internal/buildinfo"
)

func main() {
	var (
		configPath string
		headless   bool
		hz         int
		ticks      uint64
		width      int
		height     int
		verbose    bool
		watch      bool
	)
	flag.StringVar(&configPath, "config", "", "TOML or YAML config file (defaults are built in).")
	flag.BoolVar(&headless, "headless", false, "Run without a window.")
	flag.IntVar(&hz, "hz", 0, "Frame rate in headless mode (0 = config value).")
	flag.Uint64Var(&ticks, "ticks", 0, "Stop after N frames in headless mode (0 = config value).")
	flag.IntVar(&width, "width", 0, "Initial surface width (0 = config value).")
	flag.IntVar(&height, "height", 0, "Initial surface height (0 = config value).")
	flag.BoolVar(&verbose, "v", false, "Log debug messages.")
	flag.BoolVar(&watch, "watch", false, "Reload markers and frames when the config file changes.")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if width > 0 {
		cfg.Window.Width = width
	}
	if height > 0 {
		cfg.Window.Height = height
	}
	if hz > 0 {
		cfg.Headless.Hz = hz
	}
	if ticks > 0 {
		cfg.Headless.Ticks = ticks
	}
	if watch {
		cfg.Watch = true
	}
	if verbose {
		cfg.LogLevel = "debug"
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	newApp := app.Start(ctx, cfg, nil)

	if headless {
		err = hal.RunHeadless(ctx, newApp, hal.HeadlessConfig{
			Width:  cfg.Window.Width,
			Height: cfg.Window.Height,
			Hz:     cfg.Headless.Hz,
			Ticks:  cfg.Headless.Ticks,
		})
		if errors.Is(err, context.Canceled) {
			return
		}
	} else {
		err = hal.RunWindow(hal.WindowConfig{
			Title:  cfg.Window.Title + " (" + buildinfo.Short() + ")",
			Width:  cfg.Window.Width,
			Height: cfg.Window.Height,
		}, newApp)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
