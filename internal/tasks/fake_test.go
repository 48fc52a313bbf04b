package tasks

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/trackq/internal/audio"
	"github.com/desertthunder/trackq/internal/models"
	"github.com/desertthunder/trackq/internal/repositories"
	"github.com/desertthunder/trackq/internal/services"
	"github.com/desertthunder/trackq/internal/shared"
	tu "github.com/desertthunder/trackq/internal/testing"
)

const (
	goodFrames = 200 // about 5.2s and 83 KB
	badFrames  = 20
)

// testGate accepts the goodFrames fixture and rejects the badFrames one.
var testGate = &audio.Gate{MinSize: 100 * tu.MP3FrameSize, MinDuration: 2 * time.Second}

// fakePlatform is an in-memory [services.Platform].
type fakePlatform struct {
	name string

	mu          sync.Mutex
	candidates  []services.Candidate
	sources     map[string]*services.Source
	frames      map[string]int // by source URL
	searchErr   error
	fetchErr    error
	downloadErr error
	searches    []string
	fetches     []string
	downloads   int
}

func newFakePlatform(name string) *fakePlatform {
	return &fakePlatform{name: name, sources: map[string]*services.Source{}, frames: map[string]int{}}
}

// song registers a source and a matching search candidate.
func (f *fakePlatform) song(id, title, artist string, frames int) *fakePlatform {
	f.mu.Lock()
	defer f.mu.Unlock()

	url := fmt.Sprintf("https://%s.example/%s.mp3", f.name, id)
	f.sources[id] = &services.Source{ID: id, URL: url, Title: title, Artist: artist, Format: "mp3"}
	f.frames[url] = frames
	f.candidates = append(f.candidates, services.Candidate{ID: id, Title: title, Artist: artist, Platform: f.name})
	return f
}

func (f *fakePlatform) Name() string { return f.name }

func (f *fakePlatform) Search(_ context.Context, query string, page, size int) ([]services.Candidate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searches = append(f.searches, query)
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return append([]services.Candidate(nil), f.candidates...), nil
}

func (f *fakePlatform) Fetch(_ context.Context, sourceID, quality string) (*services.Source, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches = append(f.fetches, sourceID)
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	src, ok := f.sources[sourceID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", shared.ErrTrackNotFound, sourceID)
	}
	copied := *src
	copied.Quality = quality
	return &copied, nil
}

func (f *fakePlatform) Download(ctx context.Context, url, dest string) (int64, error) {
	f.mu.Lock()
	f.downloads++
	frames, err := f.frames[url], f.downloadErr
	f.mu.Unlock()

	if err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return 0, err
	}
	data := tu.MP3Bytes(frames)
	return int64(len(data)), os.WriteFile(dest, data, 0644)
}

func (f *fakePlatform) counts() (searches, fetches, downloads int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.searches), len(f.fetches), f.downloads
}

// recordingSink collects session log lines.
type recordingSink struct {
	mu    sync.Mutex
	lines []string
}

func (s *recordingSink) Log(_ context.Context, sessionID string, level models.LogLevel, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = append(s.lines, fmt.Sprintf("%s %s %s", sessionID, level, message))
}

func (s *recordingSink) Lines() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.lines...)
}

// resolverFunc adapts a function to [TrackResolver].
type resolverFunc func(ctx context.Context, req Request) (string, error)

func (f resolverFunc) Resolve(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

// setupTestDB creates a WAL database in a temp dir shared by the manager's loop and workers.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(filepath.Join(t.TempDir(), "queue.db"))
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	shared.ConfigureDatabase(db, 4, 4)

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func newSettings(db *sql.DB, concurrency int, root string) *repositories.SettingsRepository {
	return repositories.NewSettingsRepository(db, models.DownloadSettings{
		ConcurrencyLimit: concurrency,
		PreferredQuality: models.QualityLossless,
		StorageRoot:      root,
	})
}

func wanted(titles ...string) []models.WantedTrack {
	out := make([]models.WantedTrack, len(titles))
	for i, title := range titles {
		out[i] = models.WantedTrack{Title: title, Artist: "Artist"}
	}
	return out
}

// waitFor polls cond until it holds or the timeout passes.
func waitFor(t *testing.T, timeout time.Duration, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
