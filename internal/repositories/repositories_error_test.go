package repositories

import (
	"context"
	"errors"
	"testing"

	"github.com/desertthunder/trackq/internal/models"
	"github.com/desertthunder/trackq/internal/shared"
)

func TestQueueRepositoryErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("Enqueue", func(t *testing.T) {
		tests := []struct {
			name   string
			kind   models.SessionKind
			tracks []models.WantedTrack
		}{
			{name: "NoTracks", kind: models.SessionBatch, tracks: nil},
			{name: "BlankTitle", kind: models.SessionBatch, tracks: []models.WantedTrack{{Title: " ", Artist: "A"}}},
			{name: "UnknownKind", kind: "playlist", tracks: tracks("a")},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				db := setupTestDB(t)
				defer db.Close()
				repo := NewQueueRepository(db)

				_, err := repo.EnqueueItems(ctx, 1, tt.kind, tt.tracks)
				if !errors.Is(err, shared.ErrInvalidInput) {
					t.Fatalf("expected ErrInvalidInput, got %v", err)
				}

				sessions, _ := repo.ListSessions(ctx, SessionFilter{})
				if len(sessions) != 0 {
					t.Errorf("expected no session to be created, got %d", len(sessions))
				}
			})
		}
	})

	t.Run("SessionNotFound", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()
		repo := NewQueueRepository(db)

		ops := map[string]func() error{
			"GetSession": func() error { _, err := repo.GetSession(ctx, "missing"); return err },
			"Pause":      func() error { _, err := repo.PauseSession(ctx, "missing"); return err },
			"Resume":     func() error { _, err := repo.ResumeSession(ctx, "missing"); return err },
			"RetryAll":   func() error { _, err := repo.RetryAllFailed(ctx, "missing"); return err },
			"Repair":     func() error { _, err := repo.RepairCounters(ctx, "missing"); return err },
			"Delete":     func() error { _, err := repo.DeleteSession(ctx, "missing"); return err },
			"Lyrics":     func() error { return repo.SetSessionLyrics(ctx, "missing", nil) },
		}

		for name, op := range ops {
			t.Run(name, func(t *testing.T) {
				if err := op(); !errors.Is(err, shared.ErrSessionNotFound) {
					t.Errorf("expected ErrSessionNotFound, got %v", err)
				}
			})
		}
	})

	t.Run("ItemNotFound", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()
		repo := NewQueueRepository(db)

		ops := map[string]func() error{
			"GetItem":  func() error { _, err := repo.GetItem(ctx, "missing"); return err },
			"Complete": func() error { _, err := repo.CompleteItem(ctx, "missing", ItemResult{Success: true}); return err },
			"Cancel":   func() error { _, err := repo.CancelItem(ctx, "missing"); return err },
			"Retry":    func() error { _, err := repo.RetryItem(ctx, "missing"); return err },
		}

		for name, op := range ops {
			t.Run(name, func(t *testing.T) {
				if err := op(); !errors.Is(err, shared.ErrItemNotFound) {
					t.Errorf("expected ErrItemNotFound, got %v", err)
				}
			})
		}
	})

	t.Run("CompleteTwice", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()
		repo := NewQueueRepository(db)

		sessionID, _ := repo.EnqueueItems(ctx, 1, models.SessionBatch, tracks("a", "b"))
		item, _ := repo.ClaimNextPending(ctx)

		if _, err := repo.CompleteItem(ctx, item.ID(), ItemResult{Success: true}); err != nil {
			t.Fatalf("failed to complete: %v", err)
		}
		if _, err := repo.CompleteItem(ctx, item.ID(), ItemResult{Success: true}); !errors.Is(err, shared.ErrItemNotInFlight) {
			t.Errorf("expected ErrItemNotInFlight, got %v", err)
		}

		session := mustSession(t, repo, sessionID)
		if session.SuccessCount() != 1 {
			t.Errorf("expected success count 1, got %d", session.SuccessCount())
		}
	})

	t.Run("CompletePending", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()
		repo := NewQueueRepository(db)

		sessionID, _ := repo.EnqueueItems(ctx, 1, models.SessionBatch, tracks("a"))
		items, _ := repo.ListItems(ctx, sessionID)

		if _, err := repo.CompleteItem(ctx, items[0].ID(), ItemResult{Success: true}); !errors.Is(err, shared.ErrItemNotInFlight) {
			t.Errorf("expected ErrItemNotInFlight for unclaimed item, got %v", err)
		}
	})

	t.Run("CompleteStaleClaim", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()
		repo := NewQueueRepository(db)

		sessionID, _ := repo.EnqueueItems(ctx, 1, models.SessionBatch, tracks("a"))
		first, _ := repo.ClaimNextPending(ctx)
		if _, err := repo.PauseSession(ctx, sessionID); err != nil {
			t.Fatalf("failed to pause: %v", err)
		}
		if _, err := repo.ResumeSession(ctx, sessionID); err != nil {
			t.Fatalf("failed to resume: %v", err)
		}
		second, _ := repo.ClaimNextPending(ctx)
		if second == nil || second.ID() != first.ID() || second.Claim() != first.Claim()+1 {
			t.Fatalf("expected the item to be claimed again with a new claim, got %+v", second)
		}

		stale := ItemResult{Claim: first.Claim(), ErrorMessage: "cancelled: session paused"}
		if _, err := repo.CompleteItem(ctx, first.ID(), stale); !errors.Is(err, shared.ErrItemNotInFlight) {
			t.Fatalf("expected ErrItemNotInFlight for a stale claim, got %v", err)
		}
		session := mustSession(t, repo, sessionID)
		if session.FailedCount() != 0 || session.Status() != models.SessionActive {
			t.Errorf("expected an active session with no failures, got %s with %d", session.Status(), session.FailedCount())
		}

		completion, err := repo.CompleteItem(ctx, second.ID(), ItemResult{Claim: second.Claim(), Success: true})
		if err != nil {
			t.Fatalf("failed to complete current claim: %v", err)
		}
		if !completion.SessionCompleted {
			t.Error("expected the current claim to complete the session")
		}
	})
}
