package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/pmndrs/react-three-fiber-sub004/inspect"
)

const shutdownTimeout = 5 * time.Second

func (c *CLI) serveCommand() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve <script.toml>",
		Short: "Play a scene script headless behind the HTTP inspector",
		Long:  `serve ticks the script in real time and keeps ticking after it finishes, so the inspector can be queried until the process is interrupted.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("addr") {
				c.config.Inspect.Addr = addr
			}
			s, err := c.load(args[0])
			if err != nil {
				return err
			}
			ins := inspect.New(s.rt, inspect.WithLogger(c.Logger.WithPrefix("inspect")))
			ins.Attach(s.rt)
			srv := &http.Server{
				Addr:              c.config.Inspect.Addr,
				Handler:           ins,
				ReadHeaderTimeout: 5 * time.Second,
			}

			g, ctx := errgroup.WithContext(cmd.Context())
			g.Go(func() error {
				c.Logger.Info("inspector listening", "addr", srv.Addr)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
			g.Go(func() error {
				<-ctx.Done()
				sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				return srv.Shutdown(sctx)
			})
			g.Go(func() error {
				ticker := time.NewTicker(time.Second / time.Duration(c.config.Run.TPS))
				defer ticker.Stop()
				return c.play(ctx, s, ticker.C)
			})
			return g.Wait()
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:7070", "inspector listen address")
	return cmd
}

// play steps and ticks the session on every tick until ctx is done. It
// reports the script result once, then keeps the frame loop running.
func (c *CLI) play(ctx context.Context, s *session, ticks <-chan time.Time) error {
	reported := false
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticks:
		}
		s.runner.Step()
		s.rt.Scheduler.Tick(c.dt())
		if s.runner.Done() && !reported {
			reported = true
			if err := s.runner.Err(); err != nil {
				c.Logger.Error("script failed", "err", err)
			} else {
				c.Logger.Info("script finished", "tick", s.rt.Snapshot().Tick)
			}
		}
	}
}
