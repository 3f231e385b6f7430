// Package cli implements the fiberscene command-line interface.
//
// # Commands
//
//   - run: play a scene script headless and print the committed tree
//   - view: play a scene script in a window
//   - serve: play a scene script headless behind the HTTP inspector
//
// All commands accept --config for a TOML defaults file and --verbose for
// debug logging.
package cli

import (
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	fiber "github.com/pmndrs/react-three-fiber-sub004"
	"github.com/pmndrs/react-three-fiber-sub004/objects"
	"github.com/pmndrs/react-three-fiber-sub004/script"
)

const appName = "fiberscene"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	configPath string
	config     Config
}

// New creates a CLI logging to w at level.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: log.NewWithOptions(w, log.Options{
			ReportTimestamp: true,
			TimeFormat:      "15:04:05.00",
			Level:           level,
		}),
		config: DefaultConfig(),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands
// registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "fiberscene plays declarative scene scripts",
		Long:         `fiberscene mounts a TOML scene script into a scene graph runtime, drives its frame loop and pointer input, and reports the committed tree.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadConfig(c.configPath, cmd.Flags().Changed("config"))
			if err != nil {
				return err
			}
			c.config = cfg
			return nil
		},
	}
	root.PersistentFlags().StringVar(&c.configPath, "config", appName+".toml", "TOML defaults file")

	root.AddCommand(c.runCommand())
	root.AddCommand(c.viewCommand())
	root.AddCommand(c.serveCommand())
	return root
}

// newRuntime builds a runtime with the object types registered.
func (c *CLI) newRuntime() (*fiber.Runtime, error) {
	types := fiber.NewTypeRegistry()
	if err := objects.Register(types); err != nil {
		return nil, err
	}
	return fiber.NewRuntime(
		fiber.WithLogger(c.Logger.WithPrefix("fiber")),
		fiber.WithTypes(types),
		fiber.WithDebug(c.config.Debug),
	), nil
}

// session is one loaded script ready to play.
type session struct {
	rt     *fiber.Runtime
	runner *script.Runner
}

func (c *CLI) load(path string) (*session, error) {
	s, err := script.Load(path)
	if err != nil {
		return nil, err
	}
	rt, err := c.newRuntime()
	if err != nil {
		return nil, err
	}
	r, err := script.NewRunner(rt, s)
	if err != nil {
		return nil, err
	}
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("mount %s: %w", path, err)
	}
	c.Logger.Debug("script loaded", "path", path, "nodes", len(s.Nodes), "steps", len(s.Steps))
	return &session{rt: rt, runner: r}, nil
}

func (c *CLI) dt() float64 { return 1 / float64(c.config.Run.TPS) }
