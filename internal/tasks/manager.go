package tasks

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/semaphore"

	"github.com/desertthunder/trackq/internal/models"
	"github.com/desertthunder/trackq/internal/repositories"
	"github.com/desertthunder/trackq/internal/shared"
)

const (
	DefaultPollInterval  = 5 * time.Second
	DefaultWorkerTimeout = 300 * time.Second
	DefaultHookTimeout   = 30 * time.Second
	DefaultConcurrency   = 3
	storeWriteTimeout    = 30 * time.Second
)

var (
	errPaused        = fmt.Errorf("%w: session paused", shared.ErrCancelled)
	errDeleted       = fmt.Errorf("%w: session deleted", shared.ErrCancelled)
	errStopped       = fmt.Errorf("%w: manager stopped", shared.ErrCancelled)
	errItemCancelled = fmt.Errorf("%w: item cancelled", shared.ErrCancelled)
	errWorkerTimeout = fmt.Errorf("%w: download exceeded the worker timeout", shared.ErrTimeout)
)

// Store is the part of [repositories.QueueRepository] the manager drives.
type Store interface {
	EnqueueItems(ctx context.Context, originKey int64, kind models.SessionKind, tracks []models.WantedTrack) (string, error)
	ClaimNextPending(ctx context.Context) (*models.QueueItem, error)
	CompleteItem(ctx context.Context, itemID string, result repositories.ItemResult) (repositories.Completion, error)
	CancelItem(ctx context.Context, itemID string) (repositories.Completion, error)
	PauseSession(ctx context.Context, sessionID string) (bool, error)
	ResumeSession(ctx context.Context, sessionID string) (bool, error)
	RetryItem(ctx context.Context, itemID string) (int, error)
	RetryAllFailed(ctx context.Context, sessionID string) (int, error)
	RepairCounters(ctx context.Context, sessionID string) (*models.Session, error)
	DeleteSession(ctx context.Context, sessionID string) (int, error)
	DeleteAllCompletedSessions(ctx context.Context) (int, error)
	ResetStuckDownloading(ctx context.Context) (int, error)
	FullStatus(ctx context.Context) (*models.QueueSnapshot, error)
	GetSession(ctx context.Context, sessionID string) (*models.Session, error)
	GetItem(ctx context.Context, itemID string) (*models.QueueItem, error)
}

// SettingsProvider supplies the operator-tunable download settings.
type SettingsProvider interface {
	GetDownloadSettings(ctx context.Context) (models.DownloadSettings, error)
}

// TrackResolver turns a request into a local file path.
type TrackResolver interface {
	Resolve(ctx context.Context, req Request) (string, error)
}

// ManagerOptions tunes a [Manager]. Zero values take the defaults.
type ManagerOptions struct {
	PollInterval  time.Duration
	WorkerTimeout time.Duration
	HookTimeout   time.Duration
	Hook          Hook
	Sink          SessionLogger
	Events        chan<- Event
	Logger        *log.Logger
}

// Manager bridges the durable queue to live downloads.
//
// One loop claims pending items while a counting semaphore bounds how many are downloading at
// once. A permit is taken before each claim, so an item is only downloading while a permit is held.
//
// Only the process hosting the queue calls [Manager.Start]. Operations on a manager that was never
// started change the store and leave the work pending for the hosting process's loop.
type Manager struct {
	store    Store
	settings SettingsProvider
	resolver TrackResolver
	registry *JobRegistry
	opts     ManagerOptions
	logger   *log.Logger
	wake     chan struct{}

	mu      sync.Mutex
	running bool
	stopped bool
	cancel  context.CancelCauseFunc
	done    chan struct{}
	workers sync.WaitGroup
	hooks   sync.WaitGroup
	limit   int64
}

// NewManager creates a stopped manager.
func NewManager(store Store, settings SettingsProvider, resolver TrackResolver, opts ManagerOptions) *Manager {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.WorkerTimeout <= 0 {
		opts.WorkerTimeout = DefaultWorkerTimeout
	}
	if opts.HookTimeout <= 0 {
		opts.HookTimeout = DefaultHookTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	return &Manager{
		store:    store,
		settings: settings,
		resolver: resolver,
		registry: NewJobRegistry(),
		opts:     opts,
		logger:   logger,
		wake:     make(chan struct{}, 1),
	}
}

// Start resets items a previous process left downloading and starts the claim loop.
//
// The concurrency limit is read from the settings once, here. Starting a running manager is a no-op.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return nil
	}
	if m.stopped {
		return fmt.Errorf("%w: manager was stopped", shared.ErrServiceUnavailable)
	}

	n, err := m.store.ResetStuckDownloading(ctx)
	if err != nil {
		return fmt.Errorf("failed to reset stuck items: %w", err)
	}
	if n > 0 {
		m.logger.Info("reset interrupted downloads", "count", n)
	}

	limit := int64(DefaultConcurrency)
	if settings, err := m.settings.GetDownloadSettings(ctx); err != nil {
		m.logger.Warn("using default concurrency", "error", err)
	} else if settings.ConcurrencyLimit > 0 {
		limit = int64(settings.ConcurrencyLimit)
	}

	loopCtx, cancel := context.WithCancelCause(context.WithoutCancel(ctx))
	m.cancel = cancel
	m.done = make(chan struct{})
	m.limit = limit
	m.running = true

	go m.loop(loopCtx, semaphore.NewWeighted(limit), m.done)
	m.logger.Info("queue manager started", "concurrency", limit)
	return nil
}

// Stop cancels the loop and in-flight workers and waits for them and any running hooks.
//
// Items whose workers were cut short stay downloading, so the next [Manager.Start] puts them back
// to pending. Results that finished anyway are recorded.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.stopped = true
		m.mu.Unlock()
		return
	}
	m.running = false
	m.stopped = true
	cancel, done := m.cancel, m.done
	m.mu.Unlock()

	m.registry.CancelAll(errStopped)
	cancel(errStopped)
	<-done
	m.workers.Wait()
	m.hooks.Wait()
	m.logger.Info("queue manager stopped")
}

// Running reports whether the loop is running.
func (m *Manager) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// Limit returns the concurrency limit the loop was started with.
func (m *Manager) Limit() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int(m.limit)
}

// Active returns the number of in-flight workers.
func (m *Manager) Active() int {
	return m.registry.Len()
}

// Wake makes the loop check for work now instead of after its backoff.
func (m *Manager) Wake() {
	select {
	case m.wake <- struct{}{}:
	default:
	}
}

func (m *Manager) loop(ctx context.Context, sem *semaphore.Weighted, done chan struct{}) {
	defer close(done)

	for {
		if err := sem.Acquire(ctx, 1); err != nil {
			return
		}

		item, err := m.store.ClaimNextPending(ctx)
		if err != nil || item == nil {
			sem.Release(1)
			if err != nil && ctx.Err() == nil {
				m.logger.Error("failed to claim next item", "error", err)
			}
			if !m.backoff(ctx) {
				return
			}
			continue
		}

		m.startWorker(ctx, sem, item)
	}
}

// backoff waits for the poll interval or a wake-up. It returns false once ctx is done.
func (m *Manager) backoff(ctx context.Context) bool {
	timer := time.NewTimer(m.opts.PollInterval)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-m.wake:
		return true
	case <-timer.C:
		return true
	}
}

func (m *Manager) startWorker(ctx context.Context, sem *semaphore.Weighted, item *models.QueueItem) {
	workerCtx, cancel := context.WithCancelCause(ctx)
	m.registry.Add(item.ID(), item.SessionID(), item.Claim(), cancel)
	m.workers.Add(1)

	go func() {
		defer m.workers.Done()
		defer sem.Release(1)
		defer m.registry.Remove(item.ID(), item.Claim())
		defer cancel(nil)

		m.runItem(workerCtx, item)
	}()
}

// runItem resolves one claimed item and records its terminal status. Per-item errors end here.
func (m *Manager) runItem(ctx context.Context, item *models.QueueItem) {
	logger := shared.WithLogger(m.logger, "item", item.ID(), "session", item.SessionID())
	m.sendEvent(claimedEvent(item))
	m.sessionLog(ctx, item.SessionID(), models.LevelInfo, fmt.Sprintf("Started %s", item.Label()))

	req := m.request(ctx, item)

	resolveCtx, cancel := context.WithTimeoutCause(ctx, m.opts.WorkerTimeout, errWorkerTimeout)
	path, err := m.resolve(resolveCtx, req)
	result := repositories.ItemResult{Claim: item.Claim(), Success: err == nil, FilePath: path}
	if err != nil {
		result.ErrorMessage = failureMessage(resolveCtx, err)
	}
	cancel()

	if !result.Success && errors.Is(context.Cause(ctx), errStopped) {
		logger.Info("leaving item for restart", "reason", result.ErrorMessage)
		m.sendEvent(discardedEvent(item, result.ErrorMessage))
		return
	}

	// Terminal writes must land even when the worker was cancelled.
	storeCtx, storeCancel := context.WithTimeout(context.WithoutCancel(ctx), storeWriteTimeout)
	defer storeCancel()

	completion, err := m.store.CompleteItem(storeCtx, item.ID(), result)
	switch {
	case errors.Is(err, shared.ErrItemNotInFlight), errors.Is(err, shared.ErrItemNotFound):
		logger.Info("discarding result", "reason", err, "success", result.Success)
		m.sendEvent(discardedEvent(item, err.Error()))
		return
	case err != nil:
		logger.Error("failed to record item result", "error", err)
		return
	}

	if result.Success {
		m.sendEvent(succeededEvent(item, path))
	} else {
		logger.Warn("item failed", "error", result.ErrorMessage)
		m.sessionLog(storeCtx, item.SessionID(), models.LevelError, fmt.Sprintf("Failed %s: %s", item.Label(), result.ErrorMessage))
		m.sendEvent(failedEvent(item, result.ErrorMessage))
	}

	if completion.SessionCompleted {
		m.completed(completion)
	}
}

// request assembles the resolver input from the current settings and the session's lyrics override.
func (m *Manager) request(ctx context.Context, item *models.QueueItem) Request {
	settings, err := m.settings.GetDownloadSettings(ctx)
	if err != nil {
		m.logger.Warn("failed to load download settings", "error", err)
	}

	track := item.Track()
	quality := track.Quality
	if quality == "" {
		quality = settings.PreferredQuality
	}

	lyrics := settings.DownloadLyrics
	if session, err := m.store.GetSession(ctx, item.SessionID()); err == nil && session.DownloadLyrics() != nil {
		lyrics = *session.DownloadLyrics()
	}

	return Request{
		SessionID:   item.SessionID(),
		Track:       track,
		Quality:     quality,
		Lyrics:      lyrics,
		StorageRoot: settings.StorageRoot,
	}
}

// resolve calls the resolver, converting a panic into an error.
func (m *Manager) resolve(ctx context.Context, req Request) (path string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("unexpected fault: %v", r)
		}
	}()
	return m.resolver.Resolve(ctx, req)
}

// failureMessage distinguishes timeouts and cancellations from resolution failures.
func failureMessage(ctx context.Context, err error) string {
	if ctx.Err() != nil {
		cause := context.Cause(ctx)
		if errors.Is(cause, shared.ErrTimeout) || errors.Is(cause, context.DeadlineExceeded) {
			return fmt.Sprintf("timeout: %v", cause)
		}
		return fmt.Sprintf("cancelled: %v", cause)
	}
	return err.Error()
}

// completed runs the hook for a session this process just completed, once, in its own goroutine.
func (m *Manager) completed(c repositories.Completion) {
	m.sendEvent(sessionCompletedEvent(c.SessionID))
	m.sessionLog(context.Background(), c.SessionID, models.LevelInfo, "Session completed")

	if m.opts.Hook == nil {
		return
	}
	m.hooks.Add(1)
	go func() {
		defer m.hooks.Done()
		ctx, cancel := context.WithTimeout(context.Background(), m.opts.HookTimeout)
		defer cancel()

		if err := m.opts.Hook.OnSessionCompleted(ctx, c.SessionID, c.OriginKey); err != nil {
			m.logger.Error("post-completion hook failed", "session", c.SessionID, "error", err)
		}
	}()
}

func (m *Manager) sendEvent(e Event) {
	if m.opts.Events == nil {
		return
	}
	select {
	case m.opts.Events <- e:
	default:
	}
}

func (m *Manager) sessionLog(ctx context.Context, sessionID string, level models.LogLevel, msg string) {
	if m.opts.Sink != nil {
		m.opts.Sink.Log(context.WithoutCancel(ctx), sessionID, level, msg)
	}
}

// Enqueue adds tracks to the session for originKey and wakes the loop.
func (m *Manager) Enqueue(ctx context.Context, originKey int64, kind models.SessionKind, tracks []models.WantedTrack) (string, error) {
	sessionID, err := m.store.EnqueueItems(ctx, originKey, kind, tracks)
	if err != nil {
		return "", err
	}
	m.sessionLog(ctx, sessionID, models.LevelInfo, fmt.Sprintf("Queued %d track(s)", len(tracks)))
	m.Wake()
	return sessionID, nil
}

// Pause pauses the session, then signals its in-flight workers.
//
// A worker that finishes successfully anyway keeps its result; a failure caused by the signal is discarded
// and the item resumes as pending.
func (m *Manager) Pause(ctx context.Context, sessionID string) (bool, error) {
	changed, err := m.store.PauseSession(ctx, sessionID)
	if err != nil {
		return false, err
	}
	if n := m.registry.CancelSession(sessionID, errPaused); n > 0 {
		m.logger.Info("signalled workers of paused session", "session", sessionID, "workers", n)
	}
	if changed {
		m.sessionLog(ctx, sessionID, models.LevelInfo, "Session paused")
	}
	return changed, nil
}

// Resume reactivates the session and wakes the loop if this process runs it.
func (m *Manager) Resume(ctx context.Context, sessionID string) (bool, error) {
	changed, err := m.store.ResumeSession(ctx, sessionID)
	if err != nil {
		return false, err
	}
	if changed {
		m.sessionLog(ctx, sessionID, models.LevelInfo, "Session resumed")
	}
	m.Wake()
	return changed, nil
}

// Retry requeues every failed item of the session.
//
// When nothing was retried the session's counters are repaired and the retry is attempted once more.
// The requeued items are picked up by the running loop, which is woken here if it is in this process.
func (m *Manager) Retry(ctx context.Context, sessionID string) (int, error) {
	n, err := m.store.RetryAllFailed(ctx, sessionID)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		if _, err := m.store.RepairCounters(ctx, sessionID); err != nil {
			return 0, err
		}
		if n, err = m.store.RetryAllFailed(ctx, sessionID); err != nil {
			return 0, err
		}
	}
	if n > 0 {
		m.sessionLog(ctx, sessionID, models.LevelInfo, fmt.Sprintf("Retrying %d failed item(s)", n))
		m.Wake()
	}
	return n, nil
}

// RetryItem requeues one failed item, repairing its session's counters once if nothing was retried.
func (m *Manager) RetryItem(ctx context.Context, itemID string) (int, error) {
	n, err := m.store.RetryItem(ctx, itemID)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		item, err := m.store.GetItem(ctx, itemID)
		if err != nil {
			return 0, err
		}
		if _, err := m.store.RepairCounters(ctx, item.SessionID()); err != nil {
			return 0, err
		}
		if n, err = m.store.RetryItem(ctx, itemID); err != nil {
			return 0, err
		}
	}
	if n > 0 {
		m.Wake()
	}
	return n, nil
}

// CancelItem withdraws a pending or paused item. If that completes the session the hook runs.
func (m *Manager) CancelItem(ctx context.Context, itemID string) error {
	completion, err := m.store.CancelItem(ctx, itemID)
	if err != nil {
		return err
	}
	m.registry.CancelItem(itemID, errItemCancelled)
	if completion.SessionCompleted {
		m.completed(completion)
	}
	return nil
}

// Delete signals the session's in-flight workers, then deletes the session and its items.
func (m *Manager) Delete(ctx context.Context, sessionID string) (int, error) {
	m.registry.CancelSession(sessionID, errDeleted)
	return m.store.DeleteSession(ctx, sessionID)
}

// ClearCompleted deletes every completed session. Running workers are unaffected.
func (m *Manager) ClearCompleted(ctx context.Context) (int, error) {
	return m.store.DeleteAllCompletedSessions(ctx)
}

// Status returns a snapshot of every session with its items.
func (m *Manager) Status(ctx context.Context) (*models.QueueSnapshot, error) {
	return m.store.FullStatus(ctx)
}

// Session returns one session.
func (m *Manager) Session(ctx context.Context, sessionID string) (*models.Session, error) {
	return m.store.GetSession(ctx, sessionID)
}
