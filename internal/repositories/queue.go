package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/trackq/internal/models"
	"github.com/desertthunder/trackq/internal/shared"
)

const sessionColumns = `id, sequence, origin_key, kind, status, total_count, success_count, failed_count,
	download_lyrics, created_at, updated_at, completed_at`

const itemColumns = `id, sequence, session_id, external_song_id, title, artist, album, platform, quality,
	status, retry_count, claim, error_message, file_path, created_at, updated_at`

// ItemResult is the terminal outcome a worker reports for an item.
//
// Claim is the token from the claim the worker was started for. When set, the result is only
// recorded if the item has not been claimed again since.
type ItemResult struct {
	Claim        int
	Success      bool
	FilePath     string
	ErrorMessage string
}

// Completion describes what [QueueRepository.CompleteItem] did to the owning session.
type Completion struct {
	SessionID        string
	OriginKey        int64
	SessionCompleted bool // true only for the call that moved the session to completed
}

// SessionFilter narrows [QueueRepository.ListSessions].
type SessionFilter struct {
	Status    models.SessionStatus
	OriginKey *int64
	Limit     int
}

// QueueRepository is the durable queue store.
//
// It owns every session and item state transition. Counters on sessions are denormalized and
// kept in step with item statuses by the transactions below; [QueueRepository.RepairCounters]
// reconciles them when they drift.
type QueueRepository struct {
	db *sql.DB
}

// NewQueueRepository creates a new QueueRepository with the given database connection
func NewQueueRepository(db *sql.DB) *QueueRepository {
	return &QueueRepository{db: db}
}

// EnqueueItems appends tracks to the latest session for originKey, creating one if none exists.
//
// A reused session has its total incremented and, if it was completed, is reactivated.
// Counter and item changes commit together.
func (r *QueueRepository) EnqueueItems(ctx context.Context, originKey int64, kind models.SessionKind, tracks []models.WantedTrack) (string, error) {
	if len(tracks) == 0 {
		return "", fmt.Errorf("%w: no tracks to enqueue", shared.ErrInvalidInput)
	}
	if !kind.Valid() {
		return "", fmt.Errorf("%w: unknown session kind %q", shared.ErrInvalidInput, kind)
	}
	for _, track := range tracks {
		if err := track.Validate(); err != nil {
			return "", err
		}
	}

	var sessionID string
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		ts := now()

		err := tx.QueryRowContext(ctx,
			"SELECT id FROM sessions WHERE origin_key = ? ORDER BY sequence DESC LIMIT 1", originKey,
		).Scan(&sessionID)

		switch {
		case errors.Is(err, sql.ErrNoRows):
			session := models.NewSession(originKey, kind)
			sequence, err := nextSequence(ctx, tx, "sessions")
			if err != nil {
				return fmt.Errorf("failed to generate sequence: %w", err)
			}
			session.SetSequence(sequence)
			session.SetCounts(len(tracks), 0, 0)

			if err := session.Validate(); err != nil {
				return fmt.Errorf("validation failed: %w", err)
			}

			_, err = tx.ExecContext(ctx, `
				INSERT INTO sessions (id, sequence, origin_key, kind, status, total_count, success_count, failed_count, created_at, updated_at)
				VALUES (?, ?, ?, ?, ?, ?, 0, 0, ?, ?)
			`, session.ID(), sequence, originKey, string(kind), string(models.SessionActive), len(tracks), ts, ts)
			if err != nil {
				return fmt.Errorf("failed to insert session: %w", err)
			}
			sessionID = session.ID()
		case err != nil:
			return fmt.Errorf("failed to look up session: %w", err)
		default:
			_, err := tx.ExecContext(ctx, `
				UPDATE sessions
				SET total_count = total_count + ?,
					status = CASE WHEN status = 'completed' THEN 'active' ELSE status END,
					completed_at = CASE WHEN status = 'completed' THEN NULL ELSE completed_at END,
					updated_at = ?
				WHERE id = ?
			`, len(tracks), ts, sessionID)
			if err != nil {
				return fmt.Errorf("failed to update session: %w", err)
			}
		}

		for _, track := range tracks {
			item := models.NewQueueItem(sessionID, track)
			sequence, err := nextSequence(ctx, tx, "queue_items")
			if err != nil {
				return fmt.Errorf("failed to generate sequence: %w", err)
			}

			_, err = tx.ExecContext(ctx, `
				INSERT INTO queue_items (id, sequence, session_id, external_song_id, title, artist, album, platform, quality, status, created_at, updated_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			`,
				item.ID(),
				sequence,
				sessionID,
				nullString(track.SongID),
				strings.TrimSpace(track.Title),
				strings.TrimSpace(track.Artist),
				nullString(track.Album),
				nullString(track.Platform),
				track.Quality,
				string(models.ItemPending),
				ts,
				ts,
			)
			if err != nil {
				return fmt.Errorf("failed to insert item: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return sessionID, nil
}

// ClaimNextPending flips the oldest pending item of an active session to downloading and returns it.
//
// Returns nil and no error when nothing is claimable.
func (r *QueueRepository) ClaimNextPending(ctx context.Context) (*models.QueueItem, error) {
	var item *models.QueueItem
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		item = nil

		var id string
		err := tx.QueryRowContext(ctx, `
			UPDATE queue_items
			SET status = 'downloading', claim = claim + 1, updated_at = ?
			WHERE id = (
				SELECT q.id FROM queue_items q
				JOIN sessions s ON s.id = q.session_id
				WHERE q.status = 'pending' AND s.status = 'active'
				ORDER BY q.sequence ASC
				LIMIT 1
			) AND status = 'pending'
			RETURNING id
		`, now()).Scan(&id)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to claim item: %w", err)
		}

		item, err = scanItem(tx.QueryRowContext(ctx, "SELECT "+itemColumns+" FROM queue_items WHERE id = ?", id))
		return err
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// CompleteItem writes a terminal status for itemID, bumps the owning session's counter, and completes
// the session when every item is accounted for.
//
// A success is recorded for items that are downloading or paused. A failure is only recorded for items
// still downloading. A result whose claim is stale is never recorded. Otherwise
// [shared.ErrItemNotInFlight] is returned and nothing changes.
func (r *QueueRepository) CompleteItem(ctx context.Context, itemID string, result ItemResult) (Completion, error) {
	var completion Completion
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		completion = Completion{}

		var (
			status string
			claim  int
		)
		err := tx.QueryRowContext(ctx, "SELECT session_id, status, claim FROM queue_items WHERE id = ?", itemID).
			Scan(&completion.SessionID, &status, &claim)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: %s", shared.ErrItemNotFound, itemID)
		}
		if err != nil {
			return fmt.Errorf("failed to get item: %w", err)
		}
		if result.Claim != 0 && result.Claim != claim {
			return fmt.Errorf("%w: %s was claimed again (claim %d, result for %d)", shared.ErrItemNotInFlight, itemID, claim, result.Claim)
		}

		current := models.ItemStatus(status)
		inFlight := current == models.ItemDownloading || (result.Success && current == models.ItemPaused)
		if !inFlight {
			return fmt.Errorf("%w: %s is %s", shared.ErrItemNotInFlight, itemID, current)
		}

		ts := now()
		counter := "failed_count"
		if result.Success {
			counter = "success_count"
			_, err = tx.ExecContext(ctx, `
				UPDATE queue_items SET status = 'success', file_path = ?, error_message = NULL, updated_at = ?
				WHERE id = ?
			`, nullString(result.FilePath), ts, itemID)
		} else {
			_, err = tx.ExecContext(ctx, `
				UPDATE queue_items SET status = 'failed', error_message = ?, retry_count = retry_count + 1, updated_at = ?
				WHERE id = ?
			`, nullString(result.ErrorMessage), ts, itemID)
		}
		if err != nil {
			return fmt.Errorf("failed to update item: %w", err)
		}

		// The guard keeps success+failed <= total even if the counters have drifted.
		_, err = tx.ExecContext(ctx, fmt.Sprintf(`
			UPDATE sessions SET %[1]s = %[1]s + 1, updated_at = ?
			WHERE id = ? AND success_count + failed_count < total_count
		`, counter), ts, completion.SessionID)
		if err != nil {
			return fmt.Errorf("failed to update session counters: %w", err)
		}

		res, err := tx.ExecContext(ctx, `
			UPDATE sessions SET status = 'completed', completed_at = ?, updated_at = ?
			WHERE id = ? AND status != 'completed' AND success_count + failed_count >= total_count
		`, ts, ts, completion.SessionID)
		if err != nil {
			return fmt.Errorf("failed to complete session: %w", err)
		}
		rows, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get affected rows: %w", err)
		}
		completion.SessionCompleted = rows == 1

		if err := tx.QueryRowContext(ctx, "SELECT origin_key FROM sessions WHERE id = ?", completion.SessionID).
			Scan(&completion.OriginKey); err != nil {
			return fmt.Errorf("failed to get session origin: %w", err)
		}
		return nil
	})
	if err != nil {
		return Completion{}, err
	}
	return completion, nil
}

// CancelItem withdraws a pending or paused item from its session.
//
// The item becomes cancelled and stops counting toward the session total, which may complete the session.
func (r *QueueRepository) CancelItem(ctx context.Context, itemID string) (Completion, error) {
	var completion Completion
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		completion = Completion{}

		var status string
		err := tx.QueryRowContext(ctx, "SELECT session_id, status FROM queue_items WHERE id = ?", itemID).
			Scan(&completion.SessionID, &status)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: %s", shared.ErrItemNotFound, itemID)
		}
		if err != nil {
			return fmt.Errorf("failed to get item: %w", err)
		}

		current := models.ItemStatus(status)
		if current != models.ItemPending && current != models.ItemPaused {
			return fmt.Errorf("%w: only pending or paused items can be cancelled, %s is %s", shared.ErrInvalidInput, itemID, current)
		}

		ts := now()
		if _, err := tx.ExecContext(ctx,
			"UPDATE queue_items SET status = 'cancelled', updated_at = ? WHERE id = ?", ts, itemID,
		); err != nil {
			return fmt.Errorf("failed to cancel item: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE sessions SET total_count = total_count - 1, updated_at = ?
			WHERE id = ? AND total_count > success_count + failed_count
		`, ts, completion.SessionID); err != nil {
			return fmt.Errorf("failed to update session total: %w", err)
		}

		res, err := tx.ExecContext(ctx, `
			UPDATE sessions SET status = 'completed', completed_at = ?, updated_at = ?
			WHERE id = ? AND status != 'completed' AND success_count + failed_count >= total_count
		`, ts, ts, completion.SessionID)
		if err != nil {
			return fmt.Errorf("failed to complete session: %w", err)
		}
		rows, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get affected rows: %w", err)
		}
		completion.SessionCompleted = rows == 1

		return tx.QueryRowContext(ctx, "SELECT origin_key FROM sessions WHERE id = ?", completion.SessionID).
			Scan(&completion.OriginKey)
	})
	if err != nil {
		return Completion{}, err
	}
	return completion, nil
}

// PauseSession moves an active session to paused along with its pending and downloading items.
//
// Reports whether anything changed; pausing a session that is not active is a no-op.
func (r *QueueRepository) PauseSession(ctx context.Context, sessionID string) (bool, error) {
	return r.transitionSession(ctx, sessionID, models.SessionActive, models.SessionPaused,
		"UPDATE queue_items SET status = 'paused', updated_at = ? WHERE session_id = ? AND status IN ('pending', 'downloading')")
}

// ResumeSession moves a paused session back to active and its paused items back to pending.
//
// Reports whether anything changed; resuming a session that is not paused is a no-op.
func (r *QueueRepository) ResumeSession(ctx context.Context, sessionID string) (bool, error) {
	return r.transitionSession(ctx, sessionID, models.SessionPaused, models.SessionActive,
		"UPDATE queue_items SET status = 'pending', updated_at = ? WHERE session_id = ? AND status = 'paused'")
}

func (r *QueueRepository) transitionSession(ctx context.Context, sessionID string, from, to models.SessionStatus, itemQuery string) (bool, error) {
	var changed bool
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		ts := now()
		res, err := tx.ExecContext(ctx,
			"UPDATE sessions SET status = ?, updated_at = ? WHERE id = ? AND status = ?",
			string(to), ts, sessionID, string(from),
		)
		if err != nil {
			return fmt.Errorf("failed to update session status: %w", err)
		}

		rows, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get affected rows: %w", err)
		}
		if rows == 0 {
			changed = false
			return sessionExists(ctx, tx, sessionID)
		}

		if _, err := tx.ExecContext(ctx, itemQuery, ts, sessionID); err != nil {
			return fmt.Errorf("failed to update item statuses: %w", err)
		}
		changed = true
		return nil
	})
	return changed, err
}

// RetryItem resets a failed item to pending. Items in any other status are left alone and 0 is returned.
func (r *QueueRepository) RetryItem(ctx context.Context, itemID string) (int, error) {
	var retried int
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		retried = 0

		var sessionID, status string
		err := tx.QueryRowContext(ctx, "SELECT session_id, status FROM queue_items WHERE id = ?", itemID).
			Scan(&sessionID, &status)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: %s", shared.ErrItemNotFound, itemID)
		}
		if err != nil {
			return fmt.Errorf("failed to get item: %w", err)
		}
		if models.ItemStatus(status) != models.ItemFailed {
			return nil
		}

		retried, err = retryFailed(ctx, tx, sessionID, "id = ?", itemID)
		return err
	})
	return retried, err
}

// RetryAllFailed resets every failed item of a session to pending and returns how many were reset.
func (r *QueueRepository) RetryAllFailed(ctx context.Context, sessionID string) (int, error) {
	var retried int
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		retried = 0
		if err := sessionExists(ctx, tx, sessionID); err != nil {
			return err
		}

		var err error
		retried, err = retryFailed(ctx, tx, sessionID, "session_id = ?", sessionID)
		return err
	})
	return retried, err
}

// retryFailed resets the failed items matched by where, decrements the session's failed counter,
// and reactivates a completed session.
func retryFailed(ctx context.Context, tx *sql.Tx, sessionID, where string, arg any) (int, error) {
	ts := now()
	res, err := tx.ExecContext(ctx, `
		UPDATE queue_items
		SET status = 'pending', error_message = NULL, retry_count = 0, file_path = NULL, updated_at = ?
		WHERE status = 'failed' AND `+where, ts, arg)
	if err != nil {
		return 0, fmt.Errorf("failed to reset items: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}
	if n == 0 {
		return 0, nil
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE sessions
		SET failed_count = MAX(failed_count - ?, 0),
			status = CASE WHEN status = 'completed' THEN 'active' ELSE status END,
			completed_at = CASE WHEN status = 'completed' THEN NULL ELSE completed_at END,
			updated_at = ?
		WHERE id = ?
	`, n, ts, sessionID)
	if err != nil {
		return 0, fmt.Errorf("failed to update session: %w", err)
	}
	return int(n), nil
}

// RepairCounters recounts success and failed items for a session and overwrites its counters.
//
// The total is raised if fewer than the number of non-cancelled items. Status is left unchanged.
func (r *QueueRepository) RepairCounters(ctx context.Context, sessionID string) (*models.Session, error) {
	var session *models.Session
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		if err := sessionExists(ctx, tx, sessionID); err != nil {
			return err
		}

		_, err := tx.ExecContext(ctx, `
			UPDATE sessions
			SET success_count = (SELECT COUNT(*) FROM queue_items WHERE session_id = sessions.id AND status = 'success'),
				failed_count = (SELECT COUNT(*) FROM queue_items WHERE session_id = sessions.id AND status = 'failed'),
				total_count = MAX(total_count, (SELECT COUNT(*) FROM queue_items WHERE session_id = sessions.id AND status != 'cancelled')),
				updated_at = ?
			WHERE id = ?
		`, now(), sessionID)
		if err != nil {
			return fmt.Errorf("failed to repair counters: %w", err)
		}

		session, err = scanSession(tx.QueryRowContext(ctx, "SELECT "+sessionColumns+" FROM sessions WHERE id = ?", sessionID))
		return err
	})
	if err != nil {
		return nil, err
	}
	return session, nil
}

// DeleteSession removes a session, its items, and its log lines. Returns the number of sessions deleted.
func (r *QueueRepository) DeleteSession(ctx context.Context, sessionID string) (int, error) {
	var deleted int
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		if err := sessionExists(ctx, tx, sessionID); err != nil {
			return err
		}

		n, err := deleteSessions(ctx, tx, "id = ?", sessionID)
		deleted = n
		return err
	})
	return deleted, err
}

// DeleteAllCompletedSessions removes every completed session with its items and log lines.
func (r *QueueRepository) DeleteAllCompletedSessions(ctx context.Context) (int, error) {
	var deleted int
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		n, err := deleteSessions(ctx, tx, "status = ?", string(models.SessionCompleted))
		deleted = n
		return err
	})
	return deleted, err
}

func deleteSessions(ctx context.Context, tx *sql.Tx, where string, arg any) (int, error) {
	sub := "SELECT id FROM sessions WHERE " + where

	if _, err := tx.ExecContext(ctx, "DELETE FROM queue_items WHERE session_id IN ("+sub+")", arg); err != nil {
		return 0, fmt.Errorf("failed to delete items: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM session_logs WHERE session_id IN ("+sub+")", arg); err != nil {
		return 0, fmt.Errorf("failed to delete session logs: %w", err)
	}

	res, err := tx.ExecContext(ctx, "DELETE FROM sessions WHERE "+where, arg)
	if err != nil {
		return 0, fmt.Errorf("failed to delete sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return int(n), nil
}

// ResetStuckDownloading returns items left downloading by a previous process to pending.
func (r *QueueRepository) ResetStuckDownloading(ctx context.Context) (int, error) {
	var reset int
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			"UPDATE queue_items SET status = 'pending', updated_at = ? WHERE status = 'downloading'", now(),
		)
		if err != nil {
			return fmt.Errorf("failed to reset downloading items: %w", err)
		}
		n, err := res.RowsAffected()
		reset = int(n)
		return err
	})
	return reset, err
}

// FullStatus reads every session with its items in one transaction.
func (r *QueueRepository) FullStatus(ctx context.Context) (*models.QueueSnapshot, error) {
	var snapshot *models.QueueSnapshot
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		snapshot = &models.QueueSnapshot{TakenAt: now()}

		sessions, err := querySessions(ctx, tx, "SELECT "+sessionColumns+" FROM sessions ORDER BY sequence ASC")
		if err != nil {
			return err
		}

		items, err := queryItems(ctx, tx, "SELECT "+itemColumns+" FROM queue_items ORDER BY sequence ASC")
		if err != nil {
			return err
		}

		bySession := make(map[string][]*models.QueueItem, len(sessions))
		for _, item := range items {
			bySession[item.SessionID()] = append(bySession[item.SessionID()], item)
		}

		for _, session := range sessions {
			snapshot.Sessions = append(snapshot.Sessions, models.SessionSnapshot{
				Session: session,
				Items:   bySession[session.ID()],
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snapshot, nil
}

// GetSession retrieves a session by ID
func (r *QueueRepository) GetSession(ctx context.Context, sessionID string) (*models.Session, error) {
	return scanSession(r.db.QueryRowContext(ctx, "SELECT "+sessionColumns+" FROM sessions WHERE id = ?", sessionID))
}

// GetItem retrieves an item by ID
func (r *QueueRepository) GetItem(ctx context.Context, itemID string) (*models.QueueItem, error) {
	return scanItem(r.db.QueryRowContext(ctx, "SELECT "+itemColumns+" FROM queue_items WHERE id = ?", itemID))
}

// ListItems retrieves the items of a session in creation order
func (r *QueueRepository) ListItems(ctx context.Context, sessionID string) ([]*models.QueueItem, error) {
	return queryItems(ctx, r.db,
		"SELECT "+itemColumns+" FROM queue_items WHERE session_id = ? ORDER BY sequence ASC", sessionID)
}

// ListSessions retrieves sessions matching filter, newest first
func (r *QueueRepository) ListSessions(ctx context.Context, filter SessionFilter) ([]*models.Session, error) {
	query := "SELECT " + sessionColumns + " FROM sessions WHERE 1 = 1"
	args := []any{}

	if filter.Status != "" {
		query += " AND status = ?"
		args = append(args, string(filter.Status))
	}

	if filter.OriginKey != nil {
		query += " AND origin_key = ?"
		args = append(args, *filter.OriginKey)
	}

	query += " ORDER BY sequence DESC"

	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	return querySessions(ctx, r.db, query, args...)
}

// SetSessionLyrics overrides the download-lyrics setting for one session. A nil value clears the override.
func (r *QueueRepository) SetSessionLyrics(ctx context.Context, sessionID string, lyrics *bool) error {
	var value any
	if lyrics != nil {
		value = *lyrics
	}

	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			"UPDATE sessions SET download_lyrics = ?, updated_at = ? WHERE id = ?", value, now(), sessionID)
		if err != nil {
			return fmt.Errorf("failed to update session: %w", err)
		}
		rows, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get affected rows: %w", err)
		}
		if rows == 0 {
			return fmt.Errorf("%w: %s", shared.ErrSessionNotFound, sessionID)
		}
		return nil
	})
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func sessionExists(ctx context.Context, tx *sql.Tx, sessionID string) error {
	var exists bool
	if err := tx.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM sessions WHERE id = ?)", sessionID).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check session: %w", err)
	}
	if !exists {
		return fmt.Errorf("%w: %s", shared.ErrSessionNotFound, sessionID)
	}
	return nil
}

func querySessions(ctx context.Context, q querier, query string, args ...any) ([]*models.Session, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*models.Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return sessions, nil
}

func queryItems(ctx context.Context, q querier, query string, args ...any) ([]*models.QueueItem, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query items: %w", err)
	}
	defer rows.Close()

	var items []*models.QueueItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return items, nil
}

// scanSession scans a single row into a [models.Session]
func scanSession(row scanner) (*models.Session, error) {
	var (
		id          string
		sequence    int
		originKey   int64
		kind        string
		status      string
		total       int
		success     int
		failed      int
		lyrics      sql.NullBool
		createdAt   time.Time
		updatedAt   time.Time
		completedAt sql.NullTime
	)

	err := row.Scan(&id, &sequence, &originKey, &kind, &status, &total, &success, &failed, &lyrics, &createdAt, &updatedAt, &completedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan session: %w", err)
	}

	session := models.NewSession(originKey, models.SessionKind(kind))
	session.SetID(id)
	session.SetSequence(sequence)
	session.SetStatus(models.SessionStatus(status))
	session.SetCounts(total, success, failed)
	session.SetTimestamps(createdAt, updatedAt)
	if lyrics.Valid {
		v := lyrics.Bool
		session.SetDownloadLyrics(&v)
	}
	if completedAt.Valid {
		t := completedAt.Time
		session.SetCompletedAt(&t)
	}

	return session, nil
}

// scanItem scans a single row into a [models.QueueItem]
func scanItem(row scanner) (*models.QueueItem, error) {
	var (
		id           string
		sequence     int
		sessionID    string
		songID       sql.NullString
		title        string
		artist       string
		album        sql.NullString
		platform     sql.NullString
		quality      string
		status       string
		retryCount   int
		claim        int
		errorMessage sql.NullString
		filePath     sql.NullString
		createdAt    time.Time
		updatedAt    time.Time
	)

	err := row.Scan(&id, &sequence, &sessionID, &songID, &title, &artist, &album, &platform, &quality,
		&status, &retryCount, &claim, &errorMessage, &filePath, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.ErrItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan item: %w", err)
	}

	item := models.NewQueueItem(sessionID, models.WantedTrack{
		Title:    title,
		Artist:   artist,
		Album:    album.String,
		SongID:   songID.String,
		Platform: platform.String,
		Quality:  quality,
	})
	item.SetID(id)
	item.SetSequence(sequence)
	item.SetStatus(models.ItemStatus(status))
	item.SetRetryCount(retryCount)
	item.SetClaim(claim)
	item.SetErrorMessage(errorMessage.String)
	item.SetFilePath(filePath.String)
	item.SetTimestamps(createdAt, updatedAt)

	return item, nil
}
