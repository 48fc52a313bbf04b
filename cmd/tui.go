package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/trackq/internal/shared"
	"github.com/desertthunder/trackq/internal/tasks"
	"github.com/desertthunder/trackq/internal/ui"
)

// eventBuffer is how many manager events may queue up while the monitor is rendering.
const eventBuffer = 64

// TUI launches the live queue monitor. Unless --watch-only is set, the manager runs in-process so the monitor
// receives its events.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger("./tmp/trackq-tui.log")
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	fileLogger.SetLevel(r.logger.GetLevel())
	r.SetLogger(fileLogger)

	var events chan tasks.Event
	if !cmd.Bool("watch-only") {
		events = make(chan tasks.Event, eventBuffer)
	}

	app, err := r.openQueue(events)
	if err != nil {
		return err
	}
	defer app.Close()

	if events != nil {
		if err := app.manager.Start(ctx); err != nil {
			return fmt.Errorf("failed to start queue manager: %w", err)
		}
	}

	if err := ui.Run(ctx, app.ops, events); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}
