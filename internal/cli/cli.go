// Package cli implements the cadastral command-line interface.
//
// The main commands are:
//   - generate: derive parcel boundaries from road centerlines and building points
//   - blocks: derive road-enclosed block outlines only
//   - serve: expose the pipeline as an HTTP job API
//
// All commands support --verbose (-v) for debug-level logging and read
// defaults from an optional TOML config file.
package cli

import (
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/CESMikef/cadastral-automation/pkg/buildinfo"
)

const (
	// appName is the application name used for directories and display.
	appName = "cadastral"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// configPath overrides the default config file location.
	configPath string
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
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
		Short:        "Cadastral generates land-parcel boundaries from road and building data",
		Long: `Cadastral derives land-parcel boundaries from a road centerline network and
building locations. Roads are buffered into road reserves, building points are
tessellated into candidate parcels, and the results are clamped to road blocks
and filtered by area. Inputs and outputs are GeoJSON.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default: ~/.config/cadastral/config.toml)")

	root.AddCommand(c.generateCommand())
	root.AddCommand(c.blocksCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.completionCommand())

	return root
}
