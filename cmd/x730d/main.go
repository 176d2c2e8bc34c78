// Copyright 2026 The x730 Authors
// SPDX-License-Identifier: Apache-2.0

// X730d is the control daemon for the Geekworm X730 power HAT. It is
// the single owner of the board's GPIO lines: a singleton lock makes
// a second instance fail fast before touching any hardware.
//
// Two request paths converge on the board:
//
//   - the control socket, where the x730 CLI submits reboot and
//     power-off calls;
//   - the physical button, whose press reaches the daemon as a pulse
//     on the shutdown-status line and is classified by width.
//
// On startup the daemon raises the boot-status line, telling the
// board firmware the OS is up. On shutdown it lowers the line and
// releases all pins.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/x730-project/x730/lib/config"
	"github.com/x730-project/x730/lib/daemon"
	"github.com/x730-project/x730/lib/version"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath  string
		logLevel    string
		showVersion bool
	)

	flag.StringVar(&configPath, "config", "", "path to x730.yaml (default: $X730_CONFIG if set, else built-in stock configuration)")
	flag.StringVar(&logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	flag.BoolVar(&showVersion, "version", false, "print version information and exit")
	flag.Parse()

	if showVersion {
		fmt.Printf("x730d %s\n", version.Info())
		return nil
	}

	var (
		cfg *config.Config
		err error
	)
	switch {
	case configPath != "":
		cfg, err = config.LoadFile(configPath)
	case os.Getenv("X730_CONFIG") != "":
		cfg, err = config.Load()
	default:
		cfg = config.Default()
	}
	if err != nil {
		return err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}

	level, err := cfg.SlogLevel()
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	instance, err := daemon.New(daemon.Options{
		Config: cfg,
		Logger: logger,
	})
	if err != nil {
		return err
	}
	if err := instance.Open(); err != nil {
		return err
	}

	logger.Info("x730d starting",
		"version", version.Info(),
		"socket", cfg.Paths.SocketPath)

	runErr := instance.Run(ctx)
	closeErr := instance.Close()
	return errors.Join(runErr, closeErr)
}
