// Copyright 2026 The x730 Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/x730-project/x730/lib/ipc"
)

func runShutdown(args []string) error {
	flags := pflag.NewFlagSet("shutdown", pflag.ContinueOnError)
	reboot := flags.BoolP("reboot", "r", false, "request a system reboot")
	powerOff := flags.BoolP("poweroff", "p", false, "request a clean power-off")
	force := flags.Bool("force", false, "with -p: cut power abruptly instead of shutting down cleanly")
	viaSignal := flags.Bool("via-signal", false, "deliver the request as a signal instead of a socket call")
	configPath := flags.String("config", "", "path to x730.yaml")
	timeout := flags.Duration("timeout", 30*time.Second, "how long to wait for the daemon's response")
	flags.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: x730 shutdown (-r | -p) [--force] [--via-signal]\n\n%s", flags.FlagUsages())
	}
	if err := flags.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}

	if *reboot == *powerOff {
		return fmt.Errorf("exactly one of -r or -p is required")
	}
	if *force && !*powerOff {
		return fmt.Errorf("--force only applies to -p")
	}

	call := ipc.CallReboot
	if *powerOff {
		call = ipc.CallPowerOff
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}

	if *viaSignal {
		// The signal transport carries no arguments.
		if *force {
			return fmt.Errorf("--force is not supported with --via-signal")
		}
		if err := ipc.SendSignal(cfg.Paths.LockPath, call); err != nil {
			return callError(err)
		}
		fmt.Printf("%s requested (signal)\n", call)
		return nil
	}

	client := ipc.NewClient(ipc.ClientOptions{
		SocketPath:  cfg.Paths.SocketPath,
		LockPath:    cfg.Paths.LockPath,
		CallTimeout: *timeout,
	})

	var kwargs map[string]any
	if *powerOff {
		kwargs = map[string]any{"force": *force}
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	if err := client.Call(ctx, call, nil, kwargs, nil); err != nil {
		return callError(err)
	}
	fmt.Printf("%s requested\n", call)
	return nil
}
