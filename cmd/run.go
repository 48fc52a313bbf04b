package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/trackq/internal/server"
)

// Run starts the queue manager and the operator HTTP API, blocking until SIGINT or SIGTERM.
func (r *Runner) Run(ctx context.Context, cmd *cli.Command) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := r.openQueue(nil)
	if err != nil {
		return err
	}
	defer app.Close()

	return r.serve(ctx, app, cmd.String("addr"), cmd.Bool("no-http"))
}

// serve runs the manager until ctx is done, serving the API on addr unless noHTTP is set.
func (r *Runner) serve(ctx context.Context, app *queueApp, addr string, noHTTP bool) error {
	if err := app.manager.Start(ctx); err != nil {
		return fmt.Errorf("failed to start queue manager: %w", err)
	}
	r.logger.Info("processing queue", "database", r.config.Database.Path, "concurrency", app.manager.Limit())

	if noHTTP {
		<-ctx.Done()
		r.logger.Info("shutting down")
		return nil
	}

	if addr == "" {
		addr = r.config.Server.Addr()
	}

	router := server.NewBasicRouter()
	router.Use(server.Recover(r.logger), server.Logging(r.logger))
	router.Handler(server.NewQueueHandler(app.ops))

	return server.Run(ctx, server.NewHTTPServer(addr, router), r.logger)
}
