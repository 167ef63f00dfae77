// Reelfeed - Continuous Media Feed Playback Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelfeed

// Package main is the entry point for the Reelfeed server.
//
// Reelfeed drives continuous, scroll-driven media feeds: it decides which
// item plays as the user scrolls, preloads what comes next and keeps one
// set of reaction counts per media asset however many feeds show it.
//
// # Commands
//
//	reelfeed serve      run the HTTP and websocket server
//	reelfeed simulate   scroll a demo feed and print what the engine emits
//	reelfeed version    print the build version
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest priority wins):
//   - Environment variables (optionally seeded from a .env file, see --env-file)
//   - Config file (config.yaml, or CONFIG_PATH)
//   - Built-in defaults
//
// With CONTENT_URL and ENGAGEMENT_URL unset the server runs against the
// built-in demo catalog and an in-memory engagement service.
//
// # Signal Handling
//
// The server handles graceful shutdown on SIGINT and SIGTERM:
//   - Stops accepting new connections
//   - Closes every feed session and websocket client
//   - Flushes the event bus and closes the actor registry
package main

import (
	"errors"
	"io/fs"
	"os"
	"runtime/debug"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// resolveVersion prefers the ldflags version and falls back to the module
// version recorded by go install.
func resolveVersion(ldflags string, info *debug.BuildInfo) string {
	if ldflags != "dev" {
		return ldflags
	}
	if info == nil || info.Main.Version == "" || info.Main.Version == "(devel)" {
		return "dev"
	}
	return info.Main.Version
}

func buildVersion() string {
	info, _ := debug.ReadBuildInfo()
	return resolveVersion(version, info)
}

// newRootCmd creates the root command.
func newRootCmd() *cobra.Command {
	var envFile string

	rootCmd := &cobra.Command{
		Use:           "reelfeed",
		Short:         "Continuous media feed playback engine",
		Long:          "Reelfeed serves scroll-driven media feeds with single-active playback, bounded preloading and shared engagement counts.",
		Version:       buildVersion(),
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadEnvFile(envFile)
		},
	}

	rootCmd.SetVersionTemplate("reelfeed version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before configuration (missing file is ignored)")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newSimulateCmd())
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

// loadEnvFile seeds the process environment from a dotenv file. Variables
// already set win; a missing file is not an error.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := cmd.OutOrStdout().Write([]byte("reelfeed version " + buildVersion() + "\n"))
			return err
		},
	}
}
