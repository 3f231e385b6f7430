package cli

import (
	"github.com/spf13/cobra"

	"github.com/pmndrs/react-three-fiber-sub004/ebitenhost"
)

func (c *CLI) viewCommand() *cobra.Command {
	var showFPS bool
	cmd := &cobra.Command{
		Use:   "view <script.toml>",
		Short: "Play a scene script in a window",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("fps") {
				c.config.Window.ShowFPS = showFPS
			}
			s, err := c.load(args[0])
			if err != nil {
				return err
			}
			w := c.config.Window
			err = ebitenhost.Run(cmd.Context(), s.rt, s.runner.Root(), ebitenhost.Config{
				Title:    w.Title,
				Width:    w.Width,
				Height:   w.Height,
				TPS:      c.config.Run.TPS,
				ShowFPS:  w.ShowFPS,
				OnUpdate: s.runner.Step,
			})
			if err != nil {
				return err
			}
			return s.runner.Err()
		},
	}
	cmd.Flags().BoolVar(&showFPS, "fps", false, "show the FPS overlay")
	return cmd
}
