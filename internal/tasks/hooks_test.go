package tasks

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/desertthunder/trackq/internal/shared"
)

func TestPlexHook(t *testing.T) {
	ctx := context.Background()

	t.Run("Refreshes Section", func(t *testing.T) {
		var gotPath, gotToken string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			gotToken = r.Header.Get("X-Plex-Token")
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		hook := NewPlexHook(shared.PlexConfig{URL: server.URL + "/", Token: "secret", Section: "3"}, server.Client())
		if err := hook.OnSessionCompleted(ctx, "s1", 1); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if gotPath != "/library/sections/3/refresh" {
			t.Errorf("unexpected path %s", gotPath)
		}
		if gotToken != "secret" {
			t.Errorf("expected token secret, got %q", gotToken)
		}
	})

	t.Run("Default Section", func(t *testing.T) {
		var gotPath string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
		}))
		defer server.Close()

		if err := NewPlexHook(shared.PlexConfig{URL: server.URL}, nil).OnSessionCompleted(ctx, "s1", 1); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if gotPath != "/library/sections/1/refresh" {
			t.Errorf("unexpected path %s", gotPath)
		}
	})

	t.Run("Error Status", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer server.Close()

		err := NewPlexHook(shared.PlexConfig{URL: server.URL}, nil).OnSessionCompleted(ctx, "s1", 1)
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
	})

	t.Run("Disabled Without URL", func(t *testing.T) {
		if hook := NewPlexHook(shared.PlexConfig{Token: "x"}, nil); hook != nil {
			t.Error("expected nil hook")
		}
	})
}

func TestHooks(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")

	var calls []string
	hooks := Hooks{
		HookFunc(func(_ context.Context, sessionID string, _ int64) error {
			calls = append(calls, "first "+sessionID)
			return boom
		}),
		nil,
		HookFunc(func(_ context.Context, sessionID string, _ int64) error {
			calls = append(calls, "second "+sessionID)
			return nil
		}),
	}

	err := hooks.OnSessionCompleted(ctx, "s1", 9)
	if !errors.Is(err, boom) {
		t.Errorf("expected joined error to wrap boom, got %v", err)
	}
	if strings.Join(calls, ",") != "first s1,second s1" {
		t.Errorf("expected every hook to run, got %v", calls)
	}

	t.Run("New Hooks", func(t *testing.T) {
		var buf bytes.Buffer
		logger := shared.NewLogger(&buf)

		if got := NewHooks(shared.HooksConfig{}, nil, logger); len(got) != 1 {
			t.Errorf("expected only the log hook, got %d", len(got))
		}
		got := NewHooks(shared.HooksConfig{Plex: shared.PlexConfig{URL: "http://plex.local:32400"}}, nil, logger)
		if len(got) != 2 {
			t.Errorf("expected log and plex hooks, got %d", len(got))
		}

		if err := got[0].OnSessionCompleted(ctx, "s2", 4); err != nil {
			t.Fatalf("expected log hook to succeed, got %v", err)
		}
		if !strings.Contains(buf.String(), "session completed") {
			t.Errorf("expected completion to be logged, got %q", buf.String())
		}
	})
}
