package tasks

import (
	"fmt"
	"time"

	"github.com/desertthunder/trackq/internal/models"
)

// Event is a notification from the [Manager] about a claimed or finished item.
//
// Events are sent without blocking; a slow consumer misses events rather than stalling workers.
type Event struct {
	Kind      EventKind
	SessionID string
	ItemID    string
	Message   string
	Time      time.Time
}

// EventKind enumerates manager events.
type EventKind int

const (
	EventClaimed EventKind = iota
	EventSucceeded
	EventFailed
	EventDiscarded
	EventSessionCompleted
)

func (k EventKind) String() string {
	switch k {
	case EventClaimed:
		return "claimed"
	case EventSucceeded:
		return "succeeded"
	case EventFailed:
		return "failed"
	case EventDiscarded:
		return "discarded"
	case EventSessionCompleted:
		return "session_completed"
	default:
		return ""
	}
}

func claimedEvent(item *models.QueueItem) Event {
	return Event{
		Kind:      EventClaimed,
		SessionID: item.SessionID(),
		ItemID:    item.ID(),
		Message:   fmt.Sprintf("Downloading %s", item.Label()),
		Time:      time.Now(),
	}
}

func succeededEvent(item *models.QueueItem, path string) Event {
	return Event{
		Kind:      EventSucceeded,
		SessionID: item.SessionID(),
		ItemID:    item.ID(),
		Message:   fmt.Sprintf("✓ %s -> %s", item.Label(), path),
		Time:      time.Now(),
	}
}

func failedEvent(item *models.QueueItem, reason string) Event {
	return Event{
		Kind:      EventFailed,
		SessionID: item.SessionID(),
		ItemID:    item.ID(),
		Message:   fmt.Sprintf("✗ %s: %s", item.Label(), reason),
		Time:      time.Now(),
	}
}

func discardedEvent(item *models.QueueItem, reason string) Event {
	return Event{
		Kind:      EventDiscarded,
		SessionID: item.SessionID(),
		ItemID:    item.ID(),
		Message:   fmt.Sprintf("%s result discarded: %s", item.Label(), reason),
		Time:      time.Now(),
	}
}

func sessionCompletedEvent(sessionID string) Event {
	return Event{
		Kind:      EventSessionCompleted,
		SessionID: sessionID,
		Message:   fmt.Sprintf("Session %s completed", sessionID),
		Time:      time.Now(),
	}
}
