package models

import (
	"fmt"
	"strconv"

	"github.com/desertthunder/trackq/internal/shared"
)

// Setting keys stored in the settings table.
const (
	SettingConcurrency      = "download.concurrency"
	SettingPreferredQuality = "download.preferred_quality"
	SettingDownloadLyrics   = "download.download_lyrics"
	SettingStorageRoot      = "download.storage_root"
)

// Preferred download qualities, best first.
const (
	QualityLossless = "lossless"
	QualityHigh     = "high"
	QualityStandard = "standard"
)

// SettingKeys lists every key accepted by the settings store.
var SettingKeys = []string{SettingConcurrency, SettingPreferredQuality, SettingDownloadLyrics, SettingStorageRoot}

// DownloadSettings are the operator-tunable settings read by the queue manager.
type DownloadSettings struct {
	ConcurrencyLimit int    `json:"concurrency_limit"`
	PreferredQuality string `json:"preferred_quality"`
	DownloadLyrics   bool   `json:"download_lyrics"`
	StorageRoot      string `json:"storage_root"`
}

// ValidQuality reports whether q is one of the supported qualities.
func ValidQuality(q string) bool {
	return q == QualityLossless || q == QualityHigh || q == QualityStandard
}

// ValidateSetting checks that value is acceptable for key.
func ValidateSetting(key, value string) error {
	switch key {
	case SettingConcurrency:
		n, err := strconv.Atoi(value)
		if err != nil || n < 1 || n > 32 {
			return fmt.Errorf("%w: %s must be an integer between 1 and 32", shared.ErrInvalidInput, key)
		}
	case SettingPreferredQuality:
		if !ValidQuality(value) {
			return fmt.Errorf("%w: %s must be one of lossless, high, standard", shared.ErrInvalidInput, key)
		}
	case SettingDownloadLyrics:
		if _, err := strconv.ParseBool(value); err != nil {
			return fmt.Errorf("%w: %s must be true or false", shared.ErrInvalidInput, key)
		}
	case SettingStorageRoot:
		if value == "" {
			return fmt.Errorf("%w: %s must not be empty", shared.ErrInvalidInput, key)
		}
	default:
		return fmt.Errorf("%w: unknown setting %q", shared.ErrInvalidInput, key)
	}
	return nil
}

// Apply overwrites the field named by key with value. The value must already be valid.
func (s *DownloadSettings) Apply(key, value string) {
	switch key {
	case SettingConcurrency:
		if n, err := strconv.Atoi(value); err == nil {
			s.ConcurrencyLimit = n
		}
	case SettingPreferredQuality:
		s.PreferredQuality = value
	case SettingDownloadLyrics:
		if b, err := strconv.ParseBool(value); err == nil {
			s.DownloadLyrics = b
		}
	case SettingStorageRoot:
		s.StorageRoot = value
	}
}
