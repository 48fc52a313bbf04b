package models

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/desertthunder/trackq/internal/shared"
)

func TestSession(t *testing.T) {
	t.Run("NewSession", func(t *testing.T) {
		s := NewSession(42, SessionBatch)
		if s.ID() == "" {
			t.Error("expected generated id")
		}
		if s.Status() != SessionActive {
			t.Errorf("expected status active, got %s", s.Status())
		}
		if s.IsAdHoc() {
			t.Error("origin 42 should not be ad hoc")
		}
		if err := s.Validate(); err != nil {
			t.Errorf("expected valid session, got %v", err)
		}
	})

	t.Run("AdHoc", func(t *testing.T) {
		if !NewSession(AdHocOrigin, SessionIndividual).IsAdHoc() {
			t.Error("expected ad hoc session")
		}
	})

	t.Run("Validate", func(t *testing.T) {
		tests := []struct {
			name   string
			mutate func(*Session)
		}{
			{name: "counters exceed total", mutate: func(s *Session) { s.SetCounts(2, 2, 1) }},
			{name: "negative counter", mutate: func(s *Session) { s.SetCounts(2, -1, 0) }},
			{name: "unknown status", mutate: func(s *Session) { s.SetStatus("stopped") }},
			{name: "empty id", mutate: func(s *Session) { s.SetID("") }},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				s := NewSession(1, SessionBatch)
				tt.mutate(s)
				if err := s.Validate(); !errors.Is(err, shared.ErrInvalidInput) {
					t.Errorf("expected ErrInvalidInput, got %v", err)
				}
			})
		}
	})

	t.Run("MarshalJSON", func(t *testing.T) {
		s := NewSession(7, SessionBatch)
		s.SetCounts(5, 3, 1)
		data, err := json.Marshal(s)
		if err != nil {
			t.Fatalf("failed to marshal session: %v", err)
		}
		for _, want := range []string{`"origin_key":7`, `"total_count":5`, `"success_count":3`, `"status":"active"`} {
			if !strings.Contains(string(data), want) {
				t.Errorf("expected %s in %s", want, data)
			}
		}
		if strings.Contains(string(data), "completed_at") {
			t.Errorf("expected completed_at to be omitted, got %s", data)
		}
	})
}

func TestQueueItem(t *testing.T) {
	item := NewQueueItem("session-1", WantedTrack{Title: "Sunny Day", Artist: "Jay Chou"})
	if item.Status() != ItemPending {
		t.Errorf("expected pending, got %s", item.Status())
	}
	if item.Label() != "Jay Chou - Sunny Day" {
		t.Errorf("unexpected label %q", item.Label())
	}
	if err := item.Validate(); err != nil {
		t.Errorf("expected valid item, got %v", err)
	}

	blank := NewQueueItem("session-1", WantedTrack{Title: "  "})
	if err := blank.Validate(); !errors.Is(err, shared.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for blank title, got %v", err)
	}

	if !ItemSuccess.Terminal() || !ItemFailed.Terminal() || ItemPaused.Terminal() {
		t.Error("only success and failed should be terminal")
	}
}

func TestSettings(t *testing.T) {
	tests := []struct {
		key, value string
		valid      bool
	}{
		{SettingConcurrency, "4", true},
		{SettingConcurrency, "0", false},
		{SettingConcurrency, "many", false},
		{SettingPreferredQuality, "high", true},
		{SettingPreferredQuality, "ultra", false},
		{SettingDownloadLyrics, "true", true},
		{SettingDownloadLyrics, "sometimes", false},
		{SettingStorageRoot, "/music", true},
		{SettingStorageRoot, "", false},
		{"download.color", "blue", false},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			err := ValidateSetting(tt.key, tt.value)
			if tt.valid && err != nil {
				t.Errorf("expected valid, got %v", err)
			}
			if !tt.valid && err == nil {
				t.Error("expected error, got nil")
			}
		})
	}

	s := DownloadSettings{ConcurrencyLimit: 3}
	s.Apply(SettingConcurrency, "5")
	s.Apply(SettingDownloadLyrics, "true")
	if s.ConcurrencyLimit != 5 || !s.DownloadLyrics {
		t.Errorf("unexpected settings after apply: %+v", s)
	}
}
