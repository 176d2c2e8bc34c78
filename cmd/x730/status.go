// Copyright 2026 The x730 Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/x730-project/x730/lib/ipc"
	"github.com/x730-project/x730/lib/lockfile"
)

func runStatus(args []string) error {
	flags := pflag.NewFlagSet("status", pflag.ContinueOnError)
	configPath := flags.String("config", "", "path to x730.yaml")
	flags.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: x730 status\n\n%s", flags.FlagUsages())
	}
	if err := flags.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}

	if !lockfile.Probe(cfg.Paths.LockPath) {
		return &exitError{code: exitNotRunning, err: ipc.ErrDaemonNotRunning}
	}

	pid, err := lockfile.ReadPID(cfg.Paths.LockPath)
	if err != nil {
		fmt.Println("x730d is running")
		return nil
	}
	fmt.Printf("x730d is running (pid %d)\n", pid)
	return nil
}
