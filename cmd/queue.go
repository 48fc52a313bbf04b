package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/trackq/internal/formatter"
	"github.com/desertthunder/trackq/internal/models"
	"github.com/desertthunder/trackq/internal/shared"
	"github.com/desertthunder/trackq/internal/tasks"
)

// EnqueueMissing queues the missing tracks listed for a sync task.
func (r *Runner) EnqueueMissing(ctx context.Context, cmd *cli.Command) error {
	return r.withQueue(func(app *queueApp) error {
		return r.writeResult(app.ops.EnqueueMissing(ctx, cmd.Int64("task")))
	})
}

// EnqueueSong queues a single song.
func (r *Runner) EnqueueSong(ctx context.Context, cmd *cli.Command) error {
	track := models.WantedTrack{
		Title:    cmd.String("title"),
		Artist:   cmd.String("artist"),
		Album:    cmd.String("album"),
		SongID:   cmd.String("song-id"),
		Platform: cmd.String("platform"),
		Quality:  cmd.String("quality"),
	}
	if track.Quality != "" && !models.ValidQuality(track.Quality) {
		return fmt.Errorf("%w: quality must be one of lossless, high, standard", shared.ErrInvalidFlag)
	}

	return r.withQueue(func(app *queueApp) error {
		return r.writeResult(app.ops.EnqueueSingle(ctx, cmd.Int64("task"), track))
	})
}

// Status prints or exports the full queue.
func (r *Runner) Status(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	return r.withQueue(func(app *queueApp) error {
		snapshot, err := app.ops.Status(ctx)
		if err != nil {
			return err
		}

		if output := cmd.String("output"); output != "" {
			path, err := formatter.WriteExport(snapshot, output, format)
			if err != nil {
				return err
			}
			return r.writePlain("✓ Queue report written to %s\n", path)
		}
		return formatter.WriteQueue(r.output, snapshot, format)
	})
}

// sessionAction runs op against the session named by the first argument.
func (r *Runner) sessionAction(cmd *cli.Command, op func(app *queueApp, sessionID string) tasks.Result) error {
	sessionID, err := requireArg(cmd, "session")
	if err != nil {
		return err
	}
	return r.withQueue(func(app *queueApp) error {
		return r.writeResult(op(app, sessionID))
	})
}

// Pause pauses a session.
func (r *Runner) Pause(ctx context.Context, cmd *cli.Command) error {
	return r.sessionAction(cmd, func(app *queueApp, id string) tasks.Result {
		return app.ops.Pause(ctx, id)
	})
}

// Resume resumes a session.
func (r *Runner) Resume(ctx context.Context, cmd *cli.Command) error {
	return r.sessionAction(cmd, func(app *queueApp, id string) tasks.Result {
		return app.ops.Resume(ctx, id)
	})
}

// Delete deletes a session.
func (r *Runner) Delete(ctx context.Context, cmd *cli.Command) error {
	return r.sessionAction(cmd, func(app *queueApp, id string) tasks.Result {
		return app.ops.Delete(ctx, id)
	})
}

// Retry requeues a session's failed items, or one item with --item.
func (r *Runner) Retry(ctx context.Context, cmd *cli.Command) error {
	if itemID := cmd.String("item"); itemID != "" {
		return r.withQueue(func(app *queueApp) error {
			return r.writeResult(app.ops.RetryItem(ctx, itemID))
		})
	}
	return r.sessionAction(cmd, func(app *queueApp, id string) tasks.Result {
		return app.ops.RetrySession(ctx, id)
	})
}

// Cancel withdraws a pending or paused item.
func (r *Runner) Cancel(ctx context.Context, cmd *cli.Command) error {
	itemID, err := requireArg(cmd, "item")
	if err != nil {
		return err
	}
	return r.withQueue(func(app *queueApp) error {
		return r.writeResult(app.ops.CancelItem(ctx, itemID))
	})
}

// Clear deletes every completed session.
func (r *Runner) Clear(ctx context.Context, cmd *cli.Command) error {
	return r.withQueue(func(app *queueApp) error {
		return r.writeResult(app.ops.ClearCompleted(ctx))
	})
}

// Log prints a session's log.
func (r *Runner) Log(ctx context.Context, cmd *cli.Command) error {
	sessionID, err := requireArg(cmd, "session")
	if err != nil {
		return err
	}
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	return r.withQueue(func(app *queueApp) error {
		if _, err := app.manager.Session(ctx, sessionID); err != nil {
			return err
		}
		entries, err := app.logs.List(ctx, sessionID, cmd.Int("limit"))
		if err != nil {
			return err
		}
		return formatter.WriteLog(r.output, entries, format)
	})
}
