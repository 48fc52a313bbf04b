package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/trackq/internal/shared"
)

// ItemStatus is the lifecycle state of a [QueueItem].
type ItemStatus string

const (
	ItemPending     ItemStatus = "pending"
	ItemDownloading ItemStatus = "downloading"
	ItemPaused      ItemStatus = "paused"
	ItemSuccess     ItemStatus = "success"
	ItemFailed      ItemStatus = "failed"
	ItemCancelled   ItemStatus = "cancelled"
)

// Valid reports whether s is a known status.
func (s ItemStatus) Valid() bool {
	switch s {
	case ItemPending, ItemDownloading, ItemPaused, ItemSuccess, ItemFailed, ItemCancelled:
		return true
	}
	return false
}

// Terminal reports whether s counts toward a session's success or failed counter.
func (s ItemStatus) Terminal() bool {
	return s == ItemSuccess || s == ItemFailed
}

// WantedTrack describes a track requested for download.
//
// SongID and Platform are optional hints from an earlier matching step.
type WantedTrack struct {
	Title    string `json:"title"`
	Artist   string `json:"artist"`
	Album    string `json:"album,omitempty"`
	SongID   string `json:"song_id,omitempty"`
	Platform string `json:"platform,omitempty"`
	Quality  string `json:"quality,omitempty"`
}

// Validate requires a title.
func (w WantedTrack) Validate() error {
	if strings.TrimSpace(w.Title) == "" {
		return fmt.Errorf("%w: track title is required", shared.ErrInvalidInput)
	}
	return nil
}

// QueueItem is one track acquisition unit owned by a [Session].
type QueueItem struct {
	id           string
	sequence     int
	sessionID    string
	track        WantedTrack
	status       ItemStatus
	retryCount   int
	claim        int
	errorMessage string
	filePath     string
	createdAt    time.Time
	updatedAt    time.Time
}

// NewQueueItem creates a pending item for track in sessionID.
func NewQueueItem(sessionID string, track WantedTrack) *QueueItem {
	now := time.Now().UTC()
	return &QueueItem{
		id:        shared.GenerateID(),
		sessionID: sessionID,
		track:     track,
		status:    ItemPending,
		createdAt: now,
		updatedAt: now,
	}
}

func (i *QueueItem) ID() string { return i.id }
func (i *QueueItem) Sequence() int { return i.sequence }
func (i *QueueItem) SessionID() string { return i.sessionID }
func (i *QueueItem) Track() WantedTrack { return i.track }
func (i *QueueItem) Title() string { return i.track.Title }
func (i *QueueItem) Artist() string { return i.track.Artist }
func (i *QueueItem) Album() string { return i.track.Album }
func (i *QueueItem) SongID() string { return i.track.SongID }
func (i *QueueItem) Platform() string { return i.track.Platform }
func (i *QueueItem) Quality() string { return i.track.Quality }
func (i *QueueItem) Status() ItemStatus { return i.status }
func (i *QueueItem) RetryCount() int { return i.retryCount }
func (i *QueueItem) Claim() int { return i.claim }
func (i *QueueItem) ErrorMessage() string { return i.errorMessage }
func (i *QueueItem) FilePath() string { return i.filePath }
func (i *QueueItem) CreatedAt() time.Time { return i.createdAt }
func (i *QueueItem) UpdatedAt() time.Time { return i.updatedAt }
func (i *QueueItem) SetID(id string) { i.id = id }
func (i *QueueItem) SetSequence(seq int) { i.sequence = seq }
func (i *QueueItem) SetStatus(st ItemStatus) { i.status = st }
func (i *QueueItem) SetRetryCount(n int) { i.retryCount = n }
func (i *QueueItem) SetClaim(n int) { i.claim = n }
func (i *QueueItem) SetErrorMessage(msg string) { i.errorMessage = msg }
func (i *QueueItem) SetFilePath(p string) { i.filePath = p }

// SetTimestamps overwrites the creation and update timestamps.
func (i *QueueItem) SetTimestamps(created, updated time.Time) {
	i.createdAt, i.updatedAt = created, updated
}

// Label returns "artist - title" for log lines.
func (i *QueueItem) Label() string {
	if i.track.Artist == "" {
		return i.track.Title
	}
	return i.track.Artist + " - " + i.track.Title
}

// Validate checks the owning session, title, and status.
func (i *QueueItem) Validate() error {
	if i.sessionID == "" {
		return fmt.Errorf("%w: item session id is required", shared.ErrInvalidInput)
	}
	if err := i.track.Validate(); err != nil {
		return err
	}
	if !i.status.Valid() {
		return fmt.Errorf("%w: unknown item status %q", shared.ErrInvalidInput, i.status)
	}
	return nil
}

// MarshalJSON renders the item for the HTTP API and JSON output.
func (i *QueueItem) MarshalJSON() ([]byte, error) {
	return marshalView(struct {
		ID           string     `json:"id"`
		SessionID    string     `json:"session_id"`
		Title        string     `json:"title"`
		Artist       string     `json:"artist"`
		Album        string     `json:"album,omitempty"`
		SongID       string     `json:"song_id,omitempty"`
		Platform     string     `json:"platform,omitempty"`
		Quality      string     `json:"quality,omitempty"`
		Status       ItemStatus `json:"status"`
		RetryCount   int        `json:"retry_count"`
		ErrorMessage string     `json:"error_message,omitempty"`
		FilePath     string     `json:"file_path,omitempty"`
		UpdatedAt    time.Time  `json:"updated_at"`
	}{
		ID:           i.id,
		SessionID:    i.sessionID,
		Title:        i.track.Title,
		Artist:       i.track.Artist,
		Album:        i.track.Album,
		SongID:       i.track.SongID,
		Platform:     i.track.Platform,
		Quality:      i.track.Quality,
		Status:       i.status,
		RetryCount:   i.retryCount,
		ErrorMessage: i.errorMessage,
		FilePath:     i.filePath,
		UpdatedAt:    i.updatedAt,
	})
}
