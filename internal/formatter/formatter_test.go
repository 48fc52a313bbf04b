package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/trackq/internal/models"
	"github.com/desertthunder/trackq/internal/shared"
	th "github.com/desertthunder/trackq/internal/testing"
)

func testSnapshot() *models.QueueSnapshot {
	session := models.NewSession(42, models.SessionBatch)
	session.SetSequence(3)
	session.SetCounts(3, 1, 1)

	done := models.NewQueueItem(session.ID(), models.WantedTrack{Title: "晴天", Artist: "周杰伦", Album: "叶惠美", Platform: "qq"})
	done.SetSequence(1)
	done.SetStatus(models.ItemSuccess)
	done.SetFilePath("/music/周杰伦 - 晴天.mp3")

	failed := models.NewQueueItem(session.ID(), models.WantedTrack{Title: "Song | Two", Artist: "Artist"})
	failed.SetSequence(2)
	failed.SetStatus(models.ItemFailed)
	failed.SetRetryCount(1)
	failed.SetErrorMessage("no acceptable source found")

	pending := models.NewQueueItem(session.ID(), models.WantedTrack{Title: "Three"})
	pending.SetSequence(3)
	pending.SetStatus(models.ItemPending)

	adhoc := models.NewSession(models.AdHocOrigin, models.SessionIndividual)
	adhoc.SetSequence(4)
	adhoc.SetStatus(models.SessionPaused)
	adhoc.SetCounts(0, 0, 0)

	return &models.QueueSnapshot{
		Sessions: []models.SessionSnapshot{
			{Session: session, Items: []*models.QueueItem{done, failed, pending}},
			{Session: adhoc},
		},
		TakenAt: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want Format
	}{
		{"", FormatText},
		{"TXT", FormatText},
		{"json", FormatJSON},
		{"csv", FormatCSV},
		{"md", FormatMarkdown},
		{" markdown ", FormatMarkdown},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if err != nil || got != tt.want {
				t.Errorf("expected %s, got %s (%v)", tt.want, got, err)
			}
		})
	}

	t.Run("Unknown", func(t *testing.T) {
		if _, err := ParseFormat("yaml"); !errors.Is(err, shared.ErrInvalidFlag) {
			t.Errorf("expected ErrInvalidFlag, got %v", err)
		}
	})
}

func TestExporters(t *testing.T) {
	snapshot := testSnapshot()

	t.Run("ExportToText", func(t *testing.T) {
		data, err := ExportToText(snapshot)
		if err != nil {
			t.Fatalf("ExportToText failed: %v", err)
		}
		output := string(data)

		for _, want := range []string{
			"1 pending, 0 downloading, 0 paused, 1 succeeded, 1 failed",
			"#3 task 42 (batch)",
			"2/3 done, 1 failed",
			"周杰伦 - 晴天",
			"/music/周杰伦 - 晴天.mp3",
			"no acceptable source found",
			"#4 ad-hoc (individual)",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("text output missing %q, got:\n%s", want, output)
			}
		}
	})

	t.Run("ExportToText Empty", func(t *testing.T) {
		data, _ := ExportToText(&models.QueueSnapshot{})
		if string(data) != "Queue is empty\n" {
			t.Errorf("unexpected output %q", data)
		}
	})

	t.Run("ExportToMarkdown", func(t *testing.T) {
		data, err := ExportToMarkdown(snapshot)
		if err != nil {
			t.Fatalf("ExportToMarkdown failed: %v", err)
		}
		output := string(data)

		if !strings.Contains(output, "# Download Queue") || !strings.Contains(output, "**Sessions**: 2") {
			t.Errorf("markdown missing header, got:\n%s", output)
		}
		if !strings.Contains(output, `| 2 | Artist - Song \| Two | failed | no acceptable source found |`) {
			t.Errorf("markdown missing escaped failed row, got:\n%s", output)
		}
		if strings.Count(output, "| # | Track |") != 1 {
			t.Error("expected a table only for the session with items")
		}
	})

	t.Run("ExportToCSV", func(t *testing.T) {
		data, err := ExportToCSV(snapshot)
		if err != nil {
			t.Fatalf("ExportToCSV failed: %v", err)
		}

		records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
		if err != nil {
			t.Fatalf("failed to parse CSV: %v", err)
		}
		if len(records) != 4 {
			t.Fatalf("expected header and 3 rows, got %d", len(records))
		}
		if records[0][0] != "Session" || records[0][9] != "Status" {
			t.Errorf("unexpected headers %v", records[0])
		}
		if records[1][5] != "晴天" || records[1][7] != "叶惠美" || records[1][9] != "success" {
			t.Errorf("unexpected first row %v", records[1])
		}
		if records[2][10] != "1" || records[2][11] != "no acceptable source found" {
			t.Errorf("unexpected failed row %v", records[2])
		}
	})

	t.Run("ExportToJSON", func(t *testing.T) {
		data, err := ExportToJSON(snapshot)
		if err != nil {
			t.Fatalf("ExportToJSON failed: %v", err)
		}

		var decoded struct {
			Sessions []struct {
				Session struct {
					OriginKey int64  `json:"origin_key"`
					Status    string `json:"status"`
				} `json:"session"`
				Items []struct {
					Title  string `json:"title"`
					Status string `json:"status"`
				} `json:"items"`
			} `json:"sessions"`
		}
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("failed to decode JSON: %v", err)
		}
		if len(decoded.Sessions) != 2 || decoded.Sessions[0].Session.OriginKey != 42 {
			t.Fatalf("unexpected sessions %+v", decoded.Sessions)
		}
		if len(decoded.Sessions[0].Items) != 3 || decoded.Sessions[0].Items[1].Status != "failed" {
			t.Errorf("unexpected items %+v", decoded.Sessions[0].Items)
		}
	})
}

func TestWriteQueue(t *testing.T) {
	snapshot := testSnapshot()

	t.Run("Writes", func(t *testing.T) {
		var buf bytes.Buffer
		if err := WriteQueue(&buf, snapshot, FormatCSV); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.HasPrefix(buf.String(), "Session,Origin") {
			t.Errorf("unexpected output %q", buf.String())
		}
	})

	t.Run("Writer Error", func(t *testing.T) {
		if err := WriteQueue(&th.FWriter{}, snapshot, FormatText); err == nil {
			t.Error("expected an error from the failing writer")
		}
	})

	t.Run("Unknown Format", func(t *testing.T) {
		var buf bytes.Buffer
		if err := WriteQueue(&buf, snapshot, Format("xml")); !errors.Is(err, shared.ErrInvalidFlag) {
			t.Errorf("expected ErrInvalidFlag, got %v", err)
		}
	})
}

func TestWriteExport(t *testing.T) {
	snapshot := testSnapshot()
	dir := t.TempDir()

	path, err := WriteExport(snapshot, filepath.Join(dir, "reports", "queue.md"), FormatMarkdown)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if content := th.MustReadFile(t, path); !strings.Contains(content, "# Download Queue") {
		t.Errorf("unexpected file content:\n%s", content)
	}

	if FormatJSON.Extension() != "json" || FormatText.Extension() != "txt" || FormatMarkdown.Extension() != "md" {
		t.Error("unexpected format extensions")
	}
}

func TestWriteLog(t *testing.T) {
	entries := []models.LogEntry{
		{ID: 1, SessionID: "s1", Level: models.LevelInfo, Message: "Queued 2 track(s)", CreatedAt: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)},
		{ID: 2, SessionID: "s1", Level: models.LevelError, Message: "Failed a: boom", CreatedAt: time.Date(2025, 3, 1, 12, 0, 5, 0, time.UTC)},
	}

	t.Run("Text", func(t *testing.T) {
		var buf bytes.Buffer
		if err := WriteLog(&buf, entries, FormatText); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		if len(lines) != 2 {
			t.Fatalf("expected 2 lines, got %d", len(lines))
		}
		if !strings.Contains(lines[0], "INFO") || !strings.HasSuffix(lines[0], "Queued 2 track(s)") {
			t.Errorf("unexpected line %q", lines[0])
		}
		if !strings.Contains(lines[1], "ERROR") {
			t.Errorf("unexpected line %q", lines[1])
		}
	})

	t.Run("JSON", func(t *testing.T) {
		var buf bytes.Buffer
		if err := WriteLog(&buf, nil, FormatJSON); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if strings.TrimSpace(buf.String()) != "[]" {
			t.Errorf("expected empty array, got %q", buf.String())
		}
	})

	t.Run("CSV", func(t *testing.T) {
		var buf bytes.Buffer
		if err := WriteLog(&buf, entries, FormatCSV); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(buf.String(), "2025-03-01T12:00:05Z,error,Failed a: boom") {
			t.Errorf("unexpected CSV %q", buf.String())
		}
	})

	t.Run("Writer Error", func(t *testing.T) {
		w := th.NewLimitedWriter(0, 0, &bytes.Buffer{})
		if err := WriteLog(&w, entries, FormatText); err == nil {
			t.Error("expected an error from the limited writer")
		}
	})
}
