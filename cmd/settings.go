package main

import (
	"context"
	"fmt"
	"slices"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/trackq/internal/models"
	"github.com/desertthunder/trackq/internal/repositories"
	"github.com/desertthunder/trackq/internal/shared"
)

// withSettings opens the settings store for the duration of fn.
func (r *Runner) withSettings(fn func(settings *repositories.SettingsRepository) error) error {
	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(repositories.NewSettingsRepository(db, r.downloadDefaults()))
}

// SettingsList prints the effective download settings, marking values stored in the database.
func (r *Runner) SettingsList(ctx context.Context, cmd *cli.Command) error {
	return r.withSettings(func(settings *repositories.SettingsRepository) error {
		effective, err := settings.GetDownloadSettings(ctx)
		if err != nil {
			return err
		}
		if cmd.Bool("json") {
			return r.writeJSON(effective, true)
		}

		stored, err := settings.All(ctx)
		if err != nil {
			return err
		}

		values := map[string]string{
			models.SettingConcurrency:      fmt.Sprint(effective.ConcurrencyLimit),
			models.SettingPreferredQuality: effective.PreferredQuality,
			models.SettingDownloadLyrics:   fmt.Sprint(effective.DownloadLyrics),
			models.SettingStorageRoot:      effective.StorageRoot,
		}

		r.writePlainHeader("Download settings")
		for _, key := range models.SettingKeys {
			source := "config"
			if _, ok := stored[key]; ok {
				source = "stored"
			}
			r.writePlain("%-28s %-20s (%s)\n", key, values[key], source)
		}
		return nil
	})
}

// SettingsSet stores a setting.
func (r *Runner) SettingsSet(ctx context.Context, cmd *cli.Command) error {
	key, err := requireArg(cmd, "key")
	if err != nil {
		return err
	}
	value, err := requireArg(cmd, "value")
	if err != nil {
		return err
	}

	return r.withSettings(func(settings *repositories.SettingsRepository) error {
		if err := settings.Set(ctx, key, value); err != nil {
			return err
		}
		return r.writePlain("✓ %s = %s\n", key, value)
	})
}

// SettingsUnset removes a stored setting.
func (r *Runner) SettingsUnset(ctx context.Context, cmd *cli.Command) error {
	key, err := requireArg(cmd, "key")
	if err != nil {
		return err
	}
	if !slices.Contains(models.SettingKeys, key) {
		return fmt.Errorf("%w: unknown setting %q", shared.ErrInvalidArgument, key)
	}

	return r.withSettings(func(settings *repositories.SettingsRepository) error {
		if err := settings.Unset(ctx, key); err != nil {
			return err
		}
		return r.writePlain("✓ %s reset to the config default\n", key)
	})
}
