package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/vango-dev/formkit/internal/devserver"
)

func serveCmd(configPath *string) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the development form backend",
		Long: `Run an in-memory form backend that validates submissions against
the rules under server.forms in formkit.yaml.

Routes:
  POST        /forms/{name}
  GET         /forms/{name}/{id}
  PUT, PATCH  /forms/{name}/{id}
  DELETE      /forms/{name}/{id}
  GET         /healthz, /metrics, /ws

Examples:
  formkit serve
  formkit serve --addr :9000 --config formkit.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			logger, err := newLogger(cfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			reg := prometheus.NewRegistry()
			reg.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)
			srv := devserver.New(cfg.Server,
				devserver.WithLogger(logger),
				devserver.WithRegistry(reg),
			)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			g, ctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				return srv.ListenAndServe(ctx)
			})
			g.Go(func() error {
				<-ctx.Done()
				logger.Debug("signal received", "cause", context.Cause(ctx))
				return nil
			})
			return g.Wait()
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "Listen address (default from config, :8090)")

	return cmd
}
