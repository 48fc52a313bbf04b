package tasks

import (
	"context"
	"fmt"

	"github.com/desertthunder/trackq/internal/models"
	"github.com/desertthunder/trackq/internal/shared"
)

// DefaultAdHocPlatform is the platform hint for single-song downloads with no origin task.
const DefaultAdHocPlatform = "qq"

// Result is what every operator action returns.
type Result struct {
	Success   bool   `json:"success"`
	SessionID string `json:"session_id,omitempty"`
	ItemID    string `json:"item_id,omitempty"`
	Count     int    `json:"count,omitempty"`
	Message   string `json:"message"`
	Log       string `json:"log,omitempty"`

	// Err is the underlying failure, if any.
	Err error `json:"-"`
}

func failure(err error, format string, args ...any) Result {
	return Result{Message: fmt.Sprintf(format+": %v", append(args, err)...), Err: err}
}

// LogText renders a session's log.
type LogText interface {
	Text(ctx context.Context, sessionID string) (string, error)
}

// Operations is the operator-facing facade over the [Manager] shared by the CLI, HTTP and TUI surfaces.
type Operations struct {
	manager *Manager
	logs    LogText
	missing MissingTracksSource
}

// NewOperations wires the facade. missing may be nil, in which case enqueue-missing fails.
func NewOperations(manager *Manager, logs LogText, missing MissingTracksSource) *Operations {
	return &Operations{manager: manager, logs: logs, missing: missing}
}

// Manager returns the underlying manager.
func (o *Operations) Manager() *Manager {
	return o.manager
}

// EnqueueMissing queues every track the sync task could not match as one batch session.
func (o *Operations) EnqueueMissing(ctx context.Context, taskID int64) Result {
	if o.missing == nil {
		return failure(shared.ErrNotImplemented, "task %d", taskID)
	}
	tracks, err := o.missing.MissingTracks(ctx, taskID)
	if err != nil {
		return failure(err, "failed to load missing tracks for task %d", taskID)
	}
	if len(tracks) == 0 {
		return Result{Message: fmt.Sprintf("task %d has no tracks to download", taskID)}
	}

	sessionID, err := o.manager.Enqueue(ctx, taskID, models.SessionBatch, tracks)
	if err != nil {
		return failure(err, "failed to queue task %d", taskID)
	}
	return Result{
		Success:   true,
		SessionID: sessionID,
		Count:     len(tracks),
		Message:   fmt.Sprintf("queued %d track(s) for task %d", len(tracks), taskID),
	}
}

// EnqueueSingle queues one song. Task 0 is an ad-hoc download and defaults to the QQ platform.
func (o *Operations) EnqueueSingle(ctx context.Context, taskID int64, track models.WantedTrack) Result {
	if taskID < 0 {
		return failure(shared.ErrInvalidArgument, "task %d", taskID)
	}
	if err := track.Validate(); err != nil {
		return failure(err, "invalid track")
	}
	if taskID == models.AdHocOrigin && track.Platform == "" {
		track.Platform = DefaultAdHocPlatform
	}

	sessionID, err := o.manager.Enqueue(ctx, taskID, models.SessionIndividual, []models.WantedTrack{track})
	if err != nil {
		return failure(err, "failed to queue %q", track.Title)
	}
	return Result{
		Success:   true,
		SessionID: sessionID,
		Count:     1,
		Message:   fmt.Sprintf("%q added to the download queue", track.Title),
	}
}

// Pause pauses a session.
func (o *Operations) Pause(ctx context.Context, sessionID string) Result {
	changed, err := o.manager.Pause(ctx, sessionID)
	if err != nil {
		return failure(err, "failed to pause session %s", sessionID)
	}
	if !changed {
		return Result{Success: true, SessionID: sessionID, Message: "session is not active; nothing to pause"}
	}
	return Result{Success: true, SessionID: sessionID, Message: "session paused"}
}

// Resume resumes a paused session.
func (o *Operations) Resume(ctx context.Context, sessionID string) Result {
	changed, err := o.manager.Resume(ctx, sessionID)
	if err != nil {
		return failure(err, "failed to resume session %s", sessionID)
	}
	if !changed {
		return Result{Success: true, SessionID: sessionID, Message: "session is not paused; nothing to resume"}
	}
	return Result{Success: true, SessionID: sessionID, Message: "session resumed"}
}

// Delete removes a session and its items.
func (o *Operations) Delete(ctx context.Context, sessionID string) Result {
	n, err := o.manager.Delete(ctx, sessionID)
	if err != nil {
		return failure(err, "failed to delete session %s", sessionID)
	}
	return Result{Success: true, SessionID: sessionID, Count: n, Message: "session deleted"}
}

// RetrySession requeues the failed items of a session.
func (o *Operations) RetrySession(ctx context.Context, sessionID string) Result {
	n, err := o.manager.Retry(ctx, sessionID)
	if err != nil {
		return failure(err, "failed to retry session %s", sessionID)
	}
	if n == 0 {
		return Result{SessionID: sessionID, Message: "no failed items to retry"}
	}
	return Result{Success: true, SessionID: sessionID, Count: n, Message: fmt.Sprintf("retrying %d item(s)", n)}
}

// RetryItem requeues one failed item.
func (o *Operations) RetryItem(ctx context.Context, itemID string) Result {
	n, err := o.manager.RetryItem(ctx, itemID)
	if err != nil {
		return failure(err, "failed to retry item %s", itemID)
	}
	if n == 0 {
		return Result{ItemID: itemID, Message: "item has not failed; nothing to retry"}
	}
	return Result{Success: true, ItemID: itemID, Count: n, Message: "item requeued"}
}

// CancelItem withdraws a pending or paused item.
func (o *Operations) CancelItem(ctx context.Context, itemID string) Result {
	if err := o.manager.CancelItem(ctx, itemID); err != nil {
		return failure(err, "failed to cancel item %s", itemID)
	}
	return Result{Success: true, ItemID: itemID, Message: "item cancelled"}
}

// ClearCompleted deletes every completed session.
func (o *Operations) ClearCompleted(ctx context.Context) Result {
	n, err := o.manager.ClearCompleted(ctx)
	if err != nil {
		return failure(err, "failed to clear completed sessions")
	}
	return Result{Success: true, Count: n, Message: fmt.Sprintf("cleared %d completed session(s)", n)}
}

// SessionLog returns the session's log text.
func (o *Operations) SessionLog(ctx context.Context, sessionID string) Result {
	if _, err := o.manager.Session(ctx, sessionID); err != nil {
		return failure(err, "failed to load session %s", sessionID)
	}
	text, err := o.logs.Text(ctx, sessionID)
	if err != nil {
		return failure(err, "failed to read log for session %s", sessionID)
	}
	return Result{Success: true, SessionID: sessionID, Message: "ok", Log: text}
}

// Status returns the full queue snapshot.
func (o *Operations) Status(ctx context.Context) (*models.QueueSnapshot, error) {
	return o.manager.Status(ctx)
}
