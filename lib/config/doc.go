// Copyright 2026 The x730 Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides YAML configuration loading for the x730
// daemon and client.
//
// Configuration is loaded from a single file specified by either the
// X730_CONFIG environment variable (via [Load]) or a --config flag
// (via [LoadFile]). There are no fallbacks, no ~/.config discovery,
// and no automatic file search. Every field has a working default, so
// running without a config file at all (via [Default]) is also
// supported; the file only overrides.
//
// Durations are written as Go duration strings ("200ms", "5s") and
// parsed during [Config.Validate]. Variable expansion (${HOME} and
// similar) is performed on path fields after loading; no other
// environment variables override config values.
//
// Key exports:
//
//   - [Config] -- master struct with Paths, Pins, Pulse, Server, Log
//   - [Default] -- returns a Config with the stock X730 values
//   - [Load] and [LoadFile] -- the two entry points for loading
//
// This package depends only on lib/board for the pin and timing types.
package config
