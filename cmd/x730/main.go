// Copyright 2026 The x730 Authors
// SPDX-License-Identifier: Apache-2.0

// X730 is the operator CLI for the x730 daemon. It submits reboot and
// power-off requests over the daemon's control socket and reports
// daemon liveness.
//
// Exit codes are stable for scripting:
//
//	0  success
//	1  usage or local error
//	2  daemon not running
//	3  the daemon rejected or failed the request
//	4  transport failure (daemon alive but unreachable or misbehaving)
package main

import (
	"fmt"
	"os"

	"github.com/x730-project/x730/lib/config"
	"github.com/x730-project/x730/lib/version"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		code := 1
		if coder, ok := err.(interface{ ExitCode() int }); ok {
			code = coder.ExitCode()
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(code)
	}
}

func run(args []string) error {
	if len(args) == 0 {
		printUsage(os.Stderr)
		return fmt.Errorf("subcommand required")
	}

	switch args[0] {
	case "shutdown":
		return runShutdown(args[1:])
	case "status":
		return runStatus(args[1:])
	case "version":
		fmt.Printf("x730 %s\n", version.Full())
		return nil
	case "-h", "--help", "help":
		printUsage(os.Stdout)
		return nil
	default:
		printUsage(os.Stderr)
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func printUsage(out *os.File) {
	fmt.Fprintf(out, `usage: x730 <command> [flags]

Commands:
  shutdown   request a reboot (-r) or power-off (-p)
  status     report whether the daemon is running
  version    print version information

Run 'x730 <command> --help' for command flags.
`)
}

// loadConfig resolves the client configuration: an explicit --config
// path wins, then $X730_CONFIG, then the built-in stock values.
func loadConfig(path string) (*config.Config, error) {
	switch {
	case path != "":
		return config.LoadFile(path)
	case os.Getenv("X730_CONFIG") != "":
		return config.Load()
	default:
		return config.Default(), nil
	}
}
