package models

import (
	"fmt"
	"time"

	"github.com/desertthunder/trackq/internal/shared"
)

// SessionKind distinguishes single-song sessions from task batches.
type SessionKind string

const (
	SessionIndividual SessionKind = "individual"
	SessionBatch      SessionKind = "batch"
)

// Valid reports whether k is a known kind.
func (k SessionKind) Valid() bool {
	return k == SessionIndividual || k == SessionBatch
}

// SessionStatus is the lifecycle state of a [Session].
type SessionStatus string

const (
	SessionActive    SessionStatus = "active"
	SessionPaused    SessionStatus = "paused"
	SessionCompleted SessionStatus = "completed"
)

// Valid reports whether s is a known status.
func (s SessionStatus) Valid() bool {
	switch s {
	case SessionActive, SessionPaused, SessionCompleted:
		return true
	}
	return false
}

// Session groups the items enqueued for one origin key.
//
// successCount + failedCount never exceeds totalCount, and the session is completed exactly when they are equal.
type Session struct {
	id             string
	sequence       int
	originKey      int64
	kind           SessionKind
	status         SessionStatus
	totalCount     int
	successCount   int
	failedCount    int
	downloadLyrics *bool
	createdAt      time.Time
	updatedAt      time.Time
	completedAt    *time.Time
}

// NewSession creates an active session for originKey with no items.
func NewSession(originKey int64, kind SessionKind) *Session {
	now := time.Now().UTC()
	return &Session{
		id:        shared.GenerateID(),
		originKey: originKey,
		kind:      kind,
		status:    SessionActive,
		createdAt: now,
		updatedAt: now,
	}
}

func (s *Session) ID() string { return s.id }
func (s *Session) Sequence() int { return s.sequence }
func (s *Session) OriginKey() int64 { return s.originKey }
func (s *Session) Kind() SessionKind { return s.kind }
func (s *Session) Status() SessionStatus { return s.status }
func (s *Session) TotalCount() int { return s.totalCount }
func (s *Session) SuccessCount() int { return s.successCount }
func (s *Session) FailedCount() int { return s.failedCount }
func (s *Session) DownloadLyrics() *bool { return s.downloadLyrics }
func (s *Session) CreatedAt() time.Time { return s.createdAt }
func (s *Session) UpdatedAt() time.Time { return s.updatedAt }
func (s *Session) CompletedAt() *time.Time { return s.completedAt }
func (s *Session) IsAdHoc() bool { return s.originKey == AdHocOrigin }
func (s *Session) Remaining() int { return s.totalCount - s.successCount - s.failedCount }
func (s *Session) SetID(id string) { s.id = id }
func (s *Session) SetSequence(seq int) { s.sequence = seq }
func (s *Session) SetStatus(st SessionStatus) { s.status = st }
func (s *Session) SetUpdatedAt(t time.Time) { s.updatedAt = t }
func (s *Session) SetCompletedAt(t *time.Time) { s.completedAt = t }
func (s *Session) SetDownloadLyrics(v *bool) { s.downloadLyrics = v }

// SetCounts overwrites the three counters.
func (s *Session) SetCounts(total, success, failed int) {
	s.totalCount, s.successCount, s.failedCount = total, success, failed
}

// SetTimestamps overwrites the creation and update timestamps.
func (s *Session) SetTimestamps(created, updated time.Time) {
	s.createdAt, s.updatedAt = created, updated
}

// Validate checks the kind, status, and counter invariants.
func (s *Session) Validate() error {
	if s.id == "" {
		return fmt.Errorf("%w: session id is required", shared.ErrInvalidInput)
	}
	if !s.kind.Valid() {
		return fmt.Errorf("%w: unknown session kind %q", shared.ErrInvalidInput, s.kind)
	}
	if !s.status.Valid() {
		return fmt.Errorf("%w: unknown session status %q", shared.ErrInvalidInput, s.status)
	}
	if s.successCount < 0 || s.failedCount < 0 || s.successCount+s.failedCount > s.totalCount {
		return fmt.Errorf("%w: counters %d+%d exceed total %d", shared.ErrInvalidInput, s.successCount, s.failedCount, s.totalCount)
	}
	return nil
}

// MarshalJSON renders the session for the HTTP API and JSON output.
func (s *Session) MarshalJSON() ([]byte, error) {
	return marshalView(struct {
		ID             string        `json:"id"`
		OriginKey      int64         `json:"origin_key"`
		Kind           SessionKind   `json:"kind"`
		Status         SessionStatus `json:"status"`
		TotalCount     int           `json:"total_count"`
		SuccessCount   int           `json:"success_count"`
		FailedCount    int           `json:"failed_count"`
		DownloadLyrics *bool         `json:"download_lyrics,omitempty"`
		CreatedAt      time.Time     `json:"created_at"`
		CompletedAt    *time.Time    `json:"completed_at,omitempty"`
	}{
		ID:             s.id,
		OriginKey:      s.originKey,
		Kind:           s.kind,
		Status:         s.status,
		TotalCount:     s.totalCount,
		SuccessCount:   s.successCount,
		FailedCount:    s.failedCount,
		DownloadLyrics: s.downloadLyrics,
		CreatedAt:      s.createdAt,
		CompletedAt:    s.completedAt,
	})
}
