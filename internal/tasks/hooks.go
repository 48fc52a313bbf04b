package tasks

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/trackq/internal/shared"
)

// Hook is notified once when a session completes.
//
// Hooks run outside the store transaction; an error never reverts the completion.
type Hook interface {
	OnSessionCompleted(ctx context.Context, sessionID string, originKey int64) error
}

// HookFunc adapts a function to [Hook].
type HookFunc func(ctx context.Context, sessionID string, originKey int64) error

func (f HookFunc) OnSessionCompleted(ctx context.Context, sessionID string, originKey int64) error {
	return f(ctx, sessionID, originKey)
}

// Hooks fans a completion out to every hook and joins their errors.
type Hooks []Hook

func (h Hooks) OnSessionCompleted(ctx context.Context, sessionID string, originKey int64) error {
	var errs []error
	for _, hook := range h {
		if hook == nil {
			continue
		}
		if err := hook.OnSessionCompleted(ctx, sessionID, originKey); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogHook logs completions.
type LogHook struct {
	Logger *log.Logger
}

func (h LogHook) OnSessionCompleted(_ context.Context, sessionID string, originKey int64) error {
	logger := h.Logger
	if logger == nil {
		logger = log.Default()
	}
	logger.Info("session completed", "session", sessionID, "origin", originKey)
	return nil
}

// PlexHook asks a Plex server to rescan a library section so new downloads show up.
type PlexHook struct {
	baseURL string
	token   string
	section string
	client  *http.Client
}

// NewPlexHook returns nil when cfg has no URL, which [Hooks] skips.
func NewPlexHook(cfg shared.PlexConfig, client *http.Client) *PlexHook {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil
	}
	if client == nil {
		client = http.DefaultClient
	}
	section := cfg.Section
	if section == "" {
		section = "1"
	}
	return &PlexHook{
		baseURL: strings.TrimRight(cfg.URL, "/"),
		token:   cfg.Token,
		section: section,
		client:  client,
	}
}

// OnSessionCompleted requests GET {url}/library/sections/{section}/refresh.
func (h *PlexHook) OnSessionCompleted(ctx context.Context, sessionID string, _ int64) error {
	endpoint := fmt.Sprintf("%s/library/sections/%s/refresh", h.baseURL, url.PathEscape(h.section))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create plex request: %w", err)
	}
	if h.token != "" {
		req.Header.Set("X-Plex-Token", h.token)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: plex refresh for session %s: %v", shared.ErrAPIRequest, sessionID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: plex refresh returned status %d", shared.ErrAPIRequest, resp.StatusCode)
	}
	return nil
}

// NewHooks assembles the hooks enabled by cfg. Completions are always logged.
func NewHooks(cfg shared.HooksConfig, client *http.Client, logger *log.Logger) Hooks {
	hooks := Hooks{LogHook{Logger: logger}}
	if plex := NewPlexHook(cfg.Plex, client); plex != nil {
		hooks = append(hooks, plex)
	}
	return hooks
}
