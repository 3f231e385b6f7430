package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (c *CLI) runCommand() *cobra.Command {
	var (
		maxFrames int
		quiet     bool
	)
	cmd := &cobra.Command{
		Use:   "run <script.toml>",
		Short: "Play a scene script headless and print the committed tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("max-frames") {
				c.config.Run.MaxFrames = maxFrames
			}
			s, err := c.load(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			runErr := s.runner.Run(c.config.Run.MaxFrames, c.dt())
			snap := s.rt.Capture()
			if !quiet {
				fmt.Fprint(out, renderTree(snap))
				fmt.Fprint(out, renderRecords(s.runner.Records()))
			}
			if runErr != nil {
				printError(out, "%s failed after %d ticks", args[0], snap.Tick)
				return runErr
			}
			printSuccess(out, "%s passed in %d ticks", args[0], snap.Tick)
			return nil
		},
	}
	cmd.Flags().IntVar(&maxFrames, "max-frames", 600, "give up after this many ticks")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "print only the result line")
	return cmd
}
