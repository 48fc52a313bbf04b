package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/desertthunder/trackq/internal/models"
)

// SettingsRepository stores operator-tunable download settings.
//
// Keys that were never written fall back to the defaults given at construction.
type SettingsRepository struct {
	db       *sql.DB
	defaults models.DownloadSettings
}

// NewSettingsRepository creates a new SettingsRepository with the given database connection and defaults
func NewSettingsRepository(db *sql.DB, defaults models.DownloadSettings) *SettingsRepository {
	if defaults.ConcurrencyLimit < 1 {
		defaults.ConcurrencyLimit = 3
	}
	if defaults.PreferredQuality == "" {
		defaults.PreferredQuality = models.QualityLossless
	}
	return &SettingsRepository{db: db, defaults: defaults}
}

// GetDownloadSettings returns the defaults overlaid with every stored value.
func (r *SettingsRepository) GetDownloadSettings(ctx context.Context) (models.DownloadSettings, error) {
	settings := r.defaults

	values, err := r.All(ctx)
	if err != nil {
		return settings, err
	}

	for key, value := range values {
		if models.ValidateSetting(key, value) == nil {
			settings.Apply(key, value)
		}
	}
	return settings, nil
}

// All returns every stored key and value.
func (r *SettingsRepository) All(ctx context.Context) (map[string]string, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT key, value FROM settings")
	if err != nil {
		return nil, fmt.Errorf("failed to query settings: %w", err)
	}
	defer rows.Close()

	values := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan setting: %w", err)
		}
		values[key] = value
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return values, nil
}

// Set validates and stores value under key.
func (r *SettingsRepository) Set(ctx context.Context, key, value string) error {
	if err := models.ValidateSetting(key, value); err != nil {
		return err
	}

	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
		`, key, value, now())
		if err != nil {
			return fmt.Errorf("failed to store setting: %w", err)
		}
		return nil
	})
}

// Unset removes a stored value so the default applies again.
func (r *SettingsRepository) Unset(ctx context.Context, key string) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM settings WHERE key = ?", key); err != nil {
			return fmt.Errorf("failed to delete setting: %w", err)
		}
		return nil
	})
}
