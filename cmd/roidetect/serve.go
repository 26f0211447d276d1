package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/nvr-ai/roi-detect/notify"
	"github.com/nvr-ai/roi-detect/server"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
)

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "run the HTTP server",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "report-interval",
				Usage: "interval of stage timing reports in the log, 0 disables them",
				Value: time.Minute,
			},
		},
		Action: func(c *cli.Context) error {
			rt, err := setup(c)
			if err != nil {
				return err
			}
			defer rt.Close()

			ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			hub := notify.NewHub(rt.logger.Named("notify"))
			defer hub.Close()

			store, err := openStore(ctx, rt.cfg.Store, hub, rt.logger)
			if err != nil {
				return err
			}
			if store != nil {
				defer store.Close()
			} else {
				rt.logger.Infow("records store disabled")
			}

			srv := server.New(server.Args{
				Config:   rt.cfg.Server,
				Detector: rt.detector,
				Store:    store,
				Hub:      hub,
				Metrics:  rt.metrics,
				Logger:   rt.logger.Named("server"),
			})

			g, ctx := errgroup.WithContext(ctx)
			g.Go(func() error { return srv.Run(ctx) })
			if interval := c.Duration("report-interval"); interval > 0 {
				g.Go(func() error { return rt.profiler.Run(ctx, interval, rt.logger.Named("profiler")) })
			}
			if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
}
