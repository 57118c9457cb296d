// Package cli implements the qbridge command-line interface.
//
// This package provides commands for converting quantum programs between
// formats, inspecting and rendering the conversion graph, serving the HTTP
// API, and managing the local cache. The CLI is built using cobra and
// supports verbose logging via the charmbracelet/log library.
//
// # Commands
//
// The main commands are:
//   - convert: Convert a program file to a target format
//   - graph: List conversions, check reachability, browse interactively, render
//   - serve: Run the HTTP conversion API
//   - cache: Manage the local path/render cache
//
// All commands support --verbose (-v) for debug-level logging.
package cli

import (
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/qbridge/qbridge/pkg/buildinfo"
	"github.com/qbridge/qbridge/pkg/cache"
	"github.com/qbridge/qbridge/pkg/graph"
	"github.com/qbridge/qbridge/pkg/transpile"
)

// appName is the application name used for directories and display.
const appName = "qbridge"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
	Config Config
}

// New creates a new CLI instance with a default logger and the on-disk
// configuration (defaults when no config file exists).
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: log.NewWithOptions(w, log.Options{
			ReportTimestamp: true,
			TimeFormat:      "15:04:05.00",
			Level:           level,
		}),
		Config: LoadConfigOrDefault(),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "qbridge converts quantum programs between circuit formats",
		Long:         `qbridge routes quantum programs through a conversion graph, finding and executing multi-step paths between circuit formats (OpenQASM dialects and vendor representations) with automatic fallback when a step fails.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())

	root.AddCommand(c.convertCommand())
	root.AddCommand(c.graphCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// newTranspiler builds a Transpiler from the default graph, the configured
// cache backend, and CLI settings.
func (c *CLI) newTranspiler(noCache bool) (*transpile.Transpiler, *graph.ConversionGraph, error) {
	g, err := transpile.DefaultGraph()
	if err != nil {
		return nil, nil, err
	}

	backend, err := c.newCache(noCache)
	if err != nil {
		return nil, nil, err
	}

	t := transpile.New(g,
		transpile.WithLogger(c.Logger),
		transpile.WithMaxPaths(c.Config.MaxPaths),
		transpile.WithCache(backend, nil),
	)
	return t, g, nil
}

// newCache selects the cache backend from configuration.
func (c *CLI) newCache(noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	return c.Config.OpenCache()
}

// cacheDir returns the cache directory using XDG standard (~/.cache/qbridge/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}
