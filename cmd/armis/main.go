// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Command armis runs the context store as an HTTP service or MCP stdio
// server and offers offline export, import, ingestion and history
// commands.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tejzpr/armis/internal/app"
	"github.com/tejzpr/armis/internal/config"
	"github.com/tejzpr/armis/internal/logger"
)

// Version is set at build time via ldflags (e.g. goreleaser -X main.Version={{.Version}}).
var Version string

func main() {
	if err := newRootCommand().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func version() string {
	if Version == "" {
		return "dev"
	}
	return Version
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "armis",
		Short: "Armis context store",
		Long: `Armis keeps a curated collection of rules, documentation, snippets,
notes and references for AI assistants, served over HTTP or MCP stdio.`,
		Version:       version(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringP("config", "c", "", "Path to config file (default ~/.armis/configs/config.json)")
	flags.String("backend", "", "Storage backend (json, sql or badger)")
	flags.String("data-dir", "", "Data directory")
	flags.String("log-level", "", "Log level (debug, info, warn, error)")
	flags.String("log-mode", "", "Log mode (development or production)")

	root.AddCommand(
		newServeCommand(),
		newMCPCommand(),
		newExportCommand(),
		newImportCommand(),
		newIngestCommand(),
		newHistoryCommand(),
	)
	return root
}

// loadConfig reads the config file named by --config and applies the
// environment and any flags set on cmd
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadWithFlags(path, cmd.Flags())
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// openApp loads configuration and wires the application. The caller
// must Close the returned app and Sync the logger.
func openApp(cmd *cobra.Command) (*app.App, *logger.Logger, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}

	log, err := logger.New(cfg.Log.Mode, cfg.Log.Level)
	if err != nil {
		return nil, nil, err
	}

	a, err := app.New(cfg, log)
	if err != nil {
		log.Sync()
		return nil, nil, err
	}
	return a, log, nil
}

func closeApp(a *app.App, log *logger.Logger) {
	if err := a.Close(); err != nil {
		log.Error("failed to close application", "error", err)
	}
	log.Sync()
}
