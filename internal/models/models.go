// package models defines the data model for the track download queue
package models

import (
	"encoding/json"
	"time"
)

// Model defines the base interface for all persistent models in the download queue.
// Implementations include Session and QueueItem.
type Model interface {
	ID() string           // ID returns the unique identifier for this model
	CreatedAt() time.Time // CreatedAt returns when this model was created
	UpdatedAt() time.Time // UpdatedAt returns when this model was last updated
	Validate() error      // Validate checks if the model's data is valid and returns an error if not
}

var (
	_ Model = (*Session)(nil)
	_ Model = (*QueueItem)(nil)
)

// AdHocOrigin is the origin key of sessions created from one-off searches rather than a sync task.
const AdHocOrigin int64 = 0

// SessionSnapshot is a session together with its items.
type SessionSnapshot struct {
	Session *Session     `json:"session"`
	Items   []*QueueItem `json:"items"`
}

// QueueSnapshot holds every session with its items as of TakenAt.
type QueueSnapshot struct {
	Sessions []SessionSnapshot `json:"sessions"`
	TakenAt  time.Time         `json:"taken_at"`
}

// Counts sums item statuses across every session in the snapshot.
func (s *QueueSnapshot) Counts() map[ItemStatus]int {
	counts := make(map[ItemStatus]int)
	for _, ss := range s.Sessions {
		for _, item := range ss.Items {
			counts[item.Status()]++
		}
	}
	return counts
}

// Find returns the snapshot of the session with the given id.
func (s *QueueSnapshot) Find(sessionID string) (SessionSnapshot, bool) {
	for _, ss := range s.Sessions {
		if ss.Session.ID() == sessionID {
			return ss, true
		}
	}
	return SessionSnapshot{}, false
}

func marshalView(v any) ([]byte, error) {
	return json.Marshal(v)
}
