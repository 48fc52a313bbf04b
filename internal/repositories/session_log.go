package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/trackq/internal/models"
	"github.com/desertthunder/trackq/internal/shared"
)

// SessionLogRepository is the append-only per-session log sink.
//
// Every line is also written to the process logger. Failing to persist a line is logged and never returned,
// so narration cannot fail a download.
type SessionLogRepository struct {
	db     *sql.DB
	logger *log.Logger
}

// NewSessionLogRepository creates a new SessionLogRepository. A nil logger uses [log.Default].
func NewSessionLogRepository(db *sql.DB, logger *log.Logger) *SessionLogRepository {
	if logger == nil {
		logger = log.Default()
	}
	return &SessionLogRepository{db: db, logger: logger}
}

// Log appends a line to the session's log.
func (r *SessionLogRepository) Log(ctx context.Context, sessionID string, level models.LogLevel, message string) {
	r.logger.Log(shared.LogLevel(string(level)), message, "session", sessionID)

	err := retryOnBusy(ctx, func() error {
		_, err := r.db.ExecContext(ctx,
			"INSERT INTO session_logs (session_id, level, message, created_at) VALUES (?, ?, ?, ?)",
			sessionID, string(level), message, now(),
		)
		return err
	})
	if err != nil {
		r.logger.Warn("failed to persist session log line", "session", sessionID, "error", err)
	}
}

// Logf formats and appends a line to the session's log.
func (r *SessionLogRepository) Logf(ctx context.Context, sessionID string, level models.LogLevel, format string, args ...any) {
	r.Log(ctx, sessionID, level, fmt.Sprintf(format, args...))
}

// List returns the most recent limit lines of a session in chronological order. A limit of 0 returns all lines.
func (r *SessionLogRepository) List(ctx context.Context, sessionID string, limit int) ([]models.LogEntry, error) {
	query := "SELECT id, session_id, level, message, created_at FROM session_logs WHERE session_id = ? ORDER BY id DESC"
	args := []any{sessionID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query session logs: %w", err)
	}
	defer rows.Close()

	var entries []models.LogEntry
	for rows.Next() {
		var (
			entry models.LogEntry
			level string
		)
		if err := rows.Scan(&entry.ID, &entry.SessionID, &level, &entry.Message, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan session log: %w", err)
		}
		entry.Level = models.LogLevel(level)
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries, nil
}

// Text renders a session's log as "timestamp LEVEL message" lines.
func (r *SessionLogRepository) Text(ctx context.Context, sessionID string) (string, error) {
	entries, err := r.List(ctx, sessionID, 0)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&b, "%s %-5s %s\n", e.CreatedAt.Local().Format(time.DateTime), strings.ToUpper(string(e.Level)), e.Message)
	}
	return b.String(), nil
}
