package repositories

import (
	"context"
	"errors"
	"testing"

	"github.com/desertthunder/trackq/internal/models"
	"github.com/desertthunder/trackq/internal/shared"
)

func TestSettingsRepository(t *testing.T) {
	ctx := context.Background()
	defaults := models.DownloadSettings{
		ConcurrencyLimit: 3,
		PreferredQuality: models.QualityLossless,
		StorageRoot:      "/downloads",
	}

	t.Run("Defaults", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()
		repo := NewSettingsRepository(db, defaults)

		got, err := repo.GetDownloadSettings(ctx)
		if err != nil {
			t.Fatalf("failed to get settings: %v", err)
		}
		if got != defaults {
			t.Errorf("expected %+v, got %+v", defaults, got)
		}
	})

	t.Run("ZeroDefaults", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()
		repo := NewSettingsRepository(db, models.DownloadSettings{})

		got, _ := repo.GetDownloadSettings(ctx)
		if got.ConcurrencyLimit != 3 || got.PreferredQuality != models.QualityLossless {
			t.Errorf("expected concurrency 3 and lossless, got %+v", got)
		}
	})

	t.Run("SetOverrides", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()
		repo := NewSettingsRepository(db, defaults)

		for key, value := range map[string]string{
			models.SettingConcurrency:      "5",
			models.SettingPreferredQuality: "standard",
			models.SettingDownloadLyrics:   "true",
		} {
			if err := repo.Set(ctx, key, value); err != nil {
				t.Fatalf("failed to set %s: %v", key, err)
			}
		}
		if err := repo.Set(ctx, models.SettingConcurrency, "6"); err != nil {
			t.Fatalf("failed to overwrite: %v", err)
		}

		got, _ := repo.GetDownloadSettings(ctx)
		want := models.DownloadSettings{ConcurrencyLimit: 6, PreferredQuality: "standard", DownloadLyrics: true, StorageRoot: "/downloads"}
		if got != want {
			t.Errorf("expected %+v, got %+v", want, got)
		}

		if err := repo.Unset(ctx, models.SettingConcurrency); err != nil {
			t.Fatalf("failed to unset: %v", err)
		}
		got, _ = repo.GetDownloadSettings(ctx)
		if got.ConcurrencyLimit != 3 {
			t.Errorf("expected default concurrency after unset, got %d", got.ConcurrencyLimit)
		}
	})

	t.Run("SetInvalid", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()
		repo := NewSettingsRepository(db, defaults)

		if err := repo.Set(ctx, models.SettingConcurrency, "0"); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
		if err := repo.Set(ctx, "download.color", "red"); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}

		values, _ := repo.All(ctx)
		if len(values) != 0 {
			t.Errorf("expected nothing stored, got %v", values)
		}
	})
}
