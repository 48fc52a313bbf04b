// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func formatFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Output format (text, json, csv, markdown)",
		Value:   "text",
	}
}

// setupCommand handles database initialization and migrations.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "database",
				Usage:  "Create the config file if missing, initialize the database and run migrations",
				Action: r.SetupDatabase,
			},
			{
				Name:   "rollback",
				Usage:  "Roll back the most recently applied migration",
				Action: r.SetupRollback,
			},
			{
				Name:   "migrations",
				Usage:  "List applied migrations",
				Action: r.SetupMigrations,
			},
		},
	}
}

// enqueueCommand adds tracks to the queue.
func enqueueCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "enqueue",
		Usage: "Add tracks to the download queue",
		Commands: []*cli.Command{
			{
				Name:  "missing",
				Usage: "Queue every missing track of a sync task",
				Flags: []cli.Flag{
					&cli.Int64Flag{
						Name:     "task",
						Aliases:  []string{"t"},
						Usage:    "Sync task id",
						Required: true,
					},
				},
				Action: r.EnqueueMissing,
			},
			{
				Name:  "song",
				Usage: "Queue a single song",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "title", Usage: "Track title", Required: true},
					&cli.StringFlag{Name: "artist", Usage: "Track artist"},
					&cli.StringFlag{Name: "album", Usage: "Album name"},
					&cli.StringFlag{Name: "song-id", Usage: "Platform song id from an earlier match"},
					&cli.StringFlag{Name: "platform", Usage: "Platform hint (qq, netease, ...)"},
					&cli.StringFlag{Name: "quality", Usage: "Quality override (lossless, high, standard)"},
					&cli.Int64Flag{Name: "task", Aliases: []string{"t"}, Usage: "Sync task id; 0 for an ad-hoc download"},
				},
				Action: r.EnqueueSong,
			},
		},
	}
}

// statusCommand prints the full queue.
func statusCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "status",
		Aliases: []string{"ls"},
		Usage:   "Show every session and its items",
		Flags: []cli.Flag{
			formatFlag(),
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write the report to a file instead of stdout",
			},
		},
		Action: r.Status,
	}
}

func sessionArg() []cli.Argument {
	return []cli.Argument{&cli.StringArg{Name: "session"}}
}

// pauseCommand pauses a session.
func pauseCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "pause",
		Usage:     "Pause a session, cancelling its in-flight downloads",
		ArgsUsage: "<session-id>",
		Arguments: sessionArg(),
		Action:    r.Pause,
	}
}

// resumeCommand resumes a paused session.
func resumeCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "resume",
		Usage:     "Resume a paused session",
		ArgsUsage: "<session-id>",
		Arguments: sessionArg(),
		Action:    r.Resume,
	}
}

// retryCommand requeues failed items.
func retryCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "retry",
		Usage:     "Retry every failed item of a session, or a single item with --item",
		ArgsUsage: "[session-id]",
		Arguments: sessionArg(),
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "item", Usage: "Retry only this item"},
		},
		Action: r.Retry,
	}
}

// cancelCommand cancels a single item.
func cancelCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "cancel",
		Usage:     "Cancel a pending or paused item",
		ArgsUsage: "<item-id>",
		Arguments: []cli.Argument{&cli.StringArg{Name: "item"}},
		Action:    r.Cancel,
	}
}

// deleteCommand removes a session.
func deleteCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Aliases:   []string{"rm"},
		Usage:     "Delete a session and its items",
		ArgsUsage: "<session-id>",
		Arguments: sessionArg(),
		Action:    r.Delete,
	}
}

// clearCommand removes completed sessions.
func clearCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "clear",
		Usage:  "Delete every completed session",
		Action: r.Clear,
	}
}

// logCommand prints a session's log.
func logCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "log",
		Usage:     "Show a session's log",
		ArgsUsage: "<session-id>",
		Arguments: sessionArg(),
		Flags: []cli.Flag{
			formatFlag(),
			&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Usage: "Show only the last n lines (0 for all)"},
		},
		Action: r.Log,
	}
}

// settingsCommand manages download settings stored in the database.
func settingsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "settings",
		Usage: "Show and change download settings",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "Show the effective download settings",
				Flags:  []cli.Flag{&cli.BoolFlag{Name: "json", Usage: "Output raw JSON"}},
				Action: r.SettingsList,
			},
			{
				Name:      "set",
				Usage:     "Store a setting",
				ArgsUsage: "<key> <value>",
				Arguments: []cli.Argument{&cli.StringArg{Name: "key"}, &cli.StringArg{Name: "value"}},
				Action:    r.SettingsSet,
			},
			{
				Name:      "unset",
				Usage:     "Remove a stored setting so the config default applies",
				ArgsUsage: "<key>",
				Arguments: []cli.Argument{&cli.StringArg{Name: "key"}},
				Action:    r.SettingsUnset,
			},
		},
	}
}

// runCommand starts the queue manager and the operator HTTP API.
func runCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Process the queue and serve the operator API until interrupted",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "addr", Usage: "Listen address (default from [server] config)"},
			&cli.BoolFlag{Name: "no-http", Usage: "Process the queue without serving the API"},
		},
		Action: r.Run,
	}
}

// tuiCommand returns the top-level TUI command for the live queue monitor.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"monitor", "ui"},
		Usage:   "Launch the live queue monitor",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "watch-only",
				Usage: "Only monitor; leave downloading to a running `trackq run`",
			},
		},
		Action: r.TUI,
	}
}
