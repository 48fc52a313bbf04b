// package formatter renders queue snapshots and session logs as text, Markdown, CSV and JSON
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/desertthunder/trackq/internal/models"
	"github.com/desertthunder/trackq/internal/shared"
)

// Format names an output format.
type Format string

const (
	FormatText     Format = "text"
	FormatJSON     Format = "json"
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
)

// ParseFormat accepts a format name or a common alias such as "md" or "txt".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text", "txt":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	case "csv":
		return FormatCSV, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q", shared.ErrInvalidFlag, s)
	}
}

// Extension returns the file extension for f, without the dot.
func (f Format) Extension() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatCSV:
		return "csv"
	case FormatMarkdown:
		return "md"
	default:
		return "txt"
	}
}

var (
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575")).Bold(true)
	errStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000")).Bold(true)
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFA500"))
	activeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#7D56F4"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#626262"))
	headingStyle = lipgloss.NewStyle().Bold(true)
)

// ItemStyle colours an item status.
func ItemStyle(s models.ItemStatus) lipgloss.Style {
	switch s {
	case models.ItemSuccess:
		return okStyle
	case models.ItemFailed:
		return errStyle
	case models.ItemPaused:
		return warnStyle
	case models.ItemDownloading:
		return activeStyle
	default:
		return mutedStyle
	}
}

// SessionStyle colours a session status.
func SessionStyle(s models.SessionStatus) lipgloss.Style {
	switch s {
	case models.SessionCompleted:
		return okStyle
	case models.SessionPaused:
		return warnStyle
	default:
		return activeStyle
	}
}

// SessionTitle is the one-line heading used for a session in every human format.
func SessionTitle(s *models.Session) string {
	origin := "ad-hoc"
	if !s.IsAdHoc() {
		origin = fmt.Sprintf("task %d", s.OriginKey())
	}
	return fmt.Sprintf("#%d %s (%s)", s.Sequence(), origin, s.Kind())
}

// Progress summarises a session's counters, e.g. "3/5 done, 1 failed".
func Progress(s *models.Session) string {
	done := s.SuccessCount() + s.FailedCount()
	out := fmt.Sprintf("%d/%d done", done, s.TotalCount())
	if s.FailedCount() > 0 {
		out += fmt.Sprintf(", %d failed", s.FailedCount())
	}
	return out
}

// ExportToText renders a snapshot for the terminal with coloured statuses.
func ExportToText(snapshot *models.QueueSnapshot) ([]byte, error) {
	var buf bytes.Buffer

	if len(snapshot.Sessions) == 0 {
		buf.WriteString("Queue is empty\n")
		return buf.Bytes(), nil
	}

	counts := snapshot.Counts()
	fmt.Fprintf(&buf, "%s %d pending, %d downloading, %d paused, %d succeeded, %d failed\n\n",
		headingStyle.Render("Queue:"),
		counts[models.ItemPending], counts[models.ItemDownloading], counts[models.ItemPaused],
		counts[models.ItemSuccess], counts[models.ItemFailed])

	for _, ss := range snapshot.Sessions {
		s := ss.Session
		fmt.Fprintf(&buf, "%s  %s  %s  %s\n",
			headingStyle.Render(SessionTitle(s)),
			SessionStyle(s.Status()).Render(string(s.Status())),
			Progress(s),
			mutedStyle.Render(s.ID()))

		for _, item := range ss.Items {
			fmt.Fprintf(&buf, "  %3d. %-12s %s", item.Sequence(), ItemStyle(item.Status()).Render(string(item.Status())), item.Label())
			switch {
			case item.Status() == models.ItemFailed && item.ErrorMessage() != "":
				fmt.Fprintf(&buf, "  %s", errStyle.Render(item.ErrorMessage()))
			case item.FilePath() != "":
				fmt.Fprintf(&buf, "  %s", mutedStyle.Render(item.FilePath()))
			}
			buf.WriteByte('\n')
		}
		buf.WriteByte('\n')
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown renders a snapshot as a Markdown report with one table per session.
func ExportToMarkdown(snapshot *models.QueueSnapshot) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString("# Download Queue\n\n")
	fmt.Fprintf(&buf, "**Taken**: %s\n", snapshot.TakenAt.Local().Format(time.DateTime))
	fmt.Fprintf(&buf, "**Sessions**: %d\n\n", len(snapshot.Sessions))

	for _, ss := range snapshot.Sessions {
		s := ss.Session
		fmt.Fprintf(&buf, "## %s\n\n", SessionTitle(s))
		fmt.Fprintf(&buf, "**Status**: %s, %s\n\n", s.Status(), Progress(s))
		if len(ss.Items) == 0 {
			continue
		}

		buf.WriteString("| # | Track | Status | Detail |\n|---|---|---|---|\n")
		for _, item := range ss.Items {
			detail := item.FilePath()
			if item.Status() == models.ItemFailed {
				detail = item.ErrorMessage()
			}
			fmt.Fprintf(&buf, "| %d | %s | %s | %s |\n",
				item.Sequence(), escapeCell(item.Label()), item.Status(), escapeCell(detail))
		}
		buf.WriteByte('\n')
	}

	return buf.Bytes(), nil
}

func escapeCell(s string) string {
	return strings.NewReplacer("|", `\|`, "\n", " ").Replace(s)
}

// ExportToCSV flattens a snapshot to one row per item.
func ExportToCSV(snapshot *models.QueueSnapshot) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Session", "Origin", "SessionStatus", "Item", "Sequence", "Title", "Artist", "Album", "Platform", "Status", "Retries", "Error", "File"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, ss := range snapshot.Sessions {
		s := ss.Session
		for _, item := range ss.Items {
			record := []string{
				s.ID(),
				strconv.FormatInt(s.OriginKey(), 10),
				string(s.Status()),
				item.ID(),
				strconv.Itoa(item.Sequence()),
				item.Title(),
				item.Artist(),
				item.Album(),
				item.Platform(),
				string(item.Status()),
				strconv.Itoa(item.RetryCount()),
				item.ErrorMessage(),
				item.FilePath(),
			}
			if err := writer.Write(record); err != nil {
				return nil, fmt.Errorf("failed to write CSV record: %w", err)
			}
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToJSON renders a snapshot as indented JSON.
func ExportToJSON(snapshot *models.QueueSnapshot) ([]byte, error) {
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	return append(data, '\n'), nil
}

// Render renders a snapshot in format.
func Render(snapshot *models.QueueSnapshot, format Format) ([]byte, error) {
	switch format {
	case FormatText:
		return ExportToText(snapshot)
	case FormatJSON:
		return ExportToJSON(snapshot)
	case FormatCSV:
		return ExportToCSV(snapshot)
	case FormatMarkdown:
		return ExportToMarkdown(snapshot)
	default:
		return nil, fmt.Errorf("%w: unknown format %q", shared.ErrInvalidFlag, format)
	}
}

// WriteQueue renders a snapshot to w.
func WriteQueue(w io.Writer, snapshot *models.QueueSnapshot, format Format) error {
	data, err := Render(snapshot, format)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// WriteExport renders a snapshot to a file.
//
// An empty path defaults to queue_{unix}.{ext} in the working directory. Returns the path written.
func WriteExport(snapshot *models.QueueSnapshot, path string, format Format) (string, error) {
	if path == "" {
		path = fmt.Sprintf("queue_%d.%s", snapshot.TakenAt.Unix(), format.Extension())
	}

	data, err := Render(snapshot, format)
	if err != nil {
		return "", err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("failed to create directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write export file: %w", err)
	}
	return path, nil
}

// LogToText renders log entries as "timestamp LEVEL message" lines with coloured levels.
func LogToText(entries []models.LogEntry) []byte {
	var buf bytes.Buffer
	for _, e := range entries {
		level := strings.ToUpper(string(e.Level))
		switch e.Level {
		case models.LevelError:
			level = errStyle.Render(level)
		case models.LevelWarn:
			level = warnStyle.Render(level)
		case models.LevelDebug:
			level = mutedStyle.Render(level)
		}
		fmt.Fprintf(&buf, "%s %-5s %s\n", e.CreatedAt.Local().Format(time.DateTime), level, e.Message)
	}
	return buf.Bytes()
}

// WriteLog renders log entries to w as text, JSON or CSV.
func WriteLog(w io.Writer, entries []models.LogEntry, format Format) error {
	var (
		data []byte
		err  error
	)
	switch format {
	case FormatText, FormatMarkdown:
		data = LogToText(entries)
	case FormatJSON:
		if entries == nil {
			entries = []models.LogEntry{}
		}
		data, err = json.MarshalIndent(entries, "", "  ")
		data = append(data, '\n')
	case FormatCSV:
		data, err = logToCSV(entries)
	default:
		err = fmt.Errorf("%w: unknown format %q", shared.ErrInvalidFlag, format)
	}
	if err != nil {
		return err
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func logToCSV(entries []models.LogEntry) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write([]string{"Time", "Level", "Message"}); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}
	for _, e := range entries {
		if err := writer.Write([]string{e.CreatedAt.UTC().Format(time.RFC3339), string(e.Level), e.Message}); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}
	return buf.Bytes(), nil
}
