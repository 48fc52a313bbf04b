package audio

import (
	"bufio"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// LyricLine is one timed line of lyrics.
type LyricLine struct {
	Time  float64 `json:"time"`
	Words string  `json:"words"`
}

// UnmarshalJSON accepts time as a number or a numeric string.
func (l *LyricLine) UnmarshalJSON(data []byte) error {
	var raw struct {
		Time  json.RawMessage `json:"time"`
		Words string          `json:"words"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	l.Words = raw.Words

	s := strings.Trim(string(raw.Time), `"`)
	if s == "" || s == "null" {
		l.Time = 0
		return nil
	}
	t, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid lyric time %q: %w", s, err)
	}
	l.Time = t
	return nil
}

// FormatLRCTime formats seconds as an LRC time tag, [mm:ss.ff]. Negative values clamp to zero.
func FormatLRCTime(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}
	hundredths := int64(math.Round(seconds * 100))
	minutes := hundredths / 6000
	secs := (hundredths / 100) % 60
	return fmt.Sprintf("[%02d:%02d.%02d]", minutes, secs, hundredths%100)
}

// ParseLyrics turns a platform lyric payload into lines.
//
// A JSON array of {time, words} objects is decoded; anything else is treated as LRC text
// and kept line by line with a zero time.
func ParseLyrics(raw string) ([]LyricLine, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, false
	}

	if strings.HasPrefix(raw, "[{") {
		var lines []LyricLine
		if err := json.Unmarshal([]byte(raw), &lines); err == nil {
			return lines, true
		}
	}

	var lines []LyricLine
	scanner := bufio.NewScanner(strings.NewReader(raw))
	for scanner.Scan() {
		if line := strings.TrimRight(scanner.Text(), "\r"); strings.TrimSpace(line) != "" {
			lines = append(lines, LyricLine{Words: line})
		}
	}
	return lines, false
}

// WriteLRC writes raw lyrics to path as an LRC file and reports whether anything was written.
//
// Timed lines become "[mm:ss.ff] words"; untimed text is written as-is.
func WriteLRC(path, raw string) (bool, error) {
	lines, timed := ParseLyrics(raw)
	if len(lines) == 0 {
		return false, nil
	}

	var b strings.Builder
	for _, line := range lines {
		if timed {
			words := strings.NewReplacer(`\n`, " ", `\r`, "", "\n", " ", "\r", "").Replace(line.Words)
			fmt.Fprintf(&b, "%s %s\n", FormatLRCTime(line.Time), words)
		} else {
			b.WriteString(line.Words)
			b.WriteByte('\n')
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return false, fmt.Errorf("failed to create lyrics directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return false, fmt.Errorf("failed to write lyrics file: %w", err)
	}
	return true, nil
}

// LRCPath returns the sidecar path for an audio file: the same name with a .lrc extension.
func LRCPath(audioPath string) string {
	return strings.TrimSuffix(audioPath, filepath.Ext(audioPath)) + ".lrc"
}

// PlainLyrics renders lines without time tags for embedding in the audio file.
func PlainLyrics(raw string) string {
	lines, timed := ParseLyrics(raw)
	if !timed {
		return strings.TrimSpace(raw)
	}
	words := make([]string, 0, len(lines))
	for _, l := range lines {
		words = append(words, l.Words)
	}
	return strings.Join(words, "\n")
}
