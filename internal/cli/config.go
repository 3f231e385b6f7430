package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Config holds CLI defaults. Command-line flags override it.
type Config struct {
	Debug bool `toml:"debug"`

	Run struct {
		MaxFrames int `toml:"max_frames"`
		// TPS is the tick rate; each tick advances the clock by 1/TPS.
		TPS int `toml:"tps"`
	} `toml:"run"`

	Window struct {
		Title   string `toml:"title"`
		Width   int    `toml:"width"`
		Height  int    `toml:"height"`
		ShowFPS bool   `toml:"show_fps"`
	} `toml:"window"`

	Inspect struct {
		Addr string `toml:"addr"`
	} `toml:"inspect"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	var c Config
	c.Run.MaxFrames = 600
	c.Run.TPS = 60
	c.Window.Title = appName
	c.Window.Width, c.Window.Height = 800, 600
	c.Inspect.Addr = "127.0.0.1:7070"
	return c
}

// LoadConfig reads path over the defaults. A missing file is not an error
// unless required is set.
func LoadConfig(path string, required bool) (Config, error) {
	c := DefaultConfig()
	if path == "" {
		return c, nil
	}
	md, err := toml.DecodeFile(path, &c)
	if err != nil {
		if !required && errors.Is(err, os.ErrNotExist) {
			return DefaultConfig(), nil
		}
		return c, fmt.Errorf("load config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return c, fmt.Errorf("load config %s: unknown key %s", path, undecoded[0])
	}
	return c, c.validate()
}

func (c Config) validate() error {
	switch {
	case c.Run.MaxFrames <= 0:
		return fmt.Errorf("config: run.max_frames must be positive, got %d", c.Run.MaxFrames)
	case c.Run.TPS <= 0:
		return fmt.Errorf("config: run.tps must be positive, got %d", c.Run.TPS)
	case c.Window.Width <= 0 || c.Window.Height <= 0:
		return fmt.Errorf("config: window size must be positive, got %dx%d", c.Window.Width, c.Window.Height)
	}
	return nil
}
