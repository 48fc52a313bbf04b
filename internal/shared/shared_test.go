package shared

import (
	"errors"
	"testing"
)

func TestNormalizeTrackKey(t *testing.T) {
	tc := []struct {
		name   string
		title  string
		artist string
		want   string
	}{
		{
			name:   "basic normalization",
			title:  "Song Title",
			artist: "Artist Name",
			want:   "song title|artist name",
		},
		{
			name:   "extra whitespace",
			title:  "  Song   Title  ",
			artist: "  Artist   Name  ",
			want:   "song title|artist name",
		},
		{
			name:   "mixed case",
			title:  "SoNg TiTlE",
			artist: "ArTiSt NaMe",
			want:   "song title|artist name",
		},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeTrackKey(tt.title, tt.artist)
			if got != tt.want {
				t.Errorf("normalizeTrackKey() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRatio(t *testing.T) {
	tc := []struct {
		name string
		a, b string
		want int
	}{
		{name: "identical", a: "hello", b: "hello", want: 100},
		{name: "disjoint", a: "abc", b: "xyz", want: 0},
		{name: "one substitution", a: "abcd", b: "abce", want: 75},
		{name: "empty left", a: "", b: "abc", want: 0},
		{name: "empty right", a: "abc", b: "", want: 0},
		{name: "multibyte", a: "晴天", b: "晴天", want: 100},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			if got := Ratio(tt.a, tt.b); got != tt.want {
				t.Errorf("expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestTrackFilename(t *testing.T) {
	tc := []struct {
		name               string
		artist, title, ext string
		want               string
	}{
		{name: "plain", artist: "Jay Chou", title: "Sunny Day", ext: "mp3", want: "Jay Chou - Sunny Day.mp3"},
		{name: "dotted ext", artist: "A", title: "B", ext: ".flac", want: "A - B.flac"},
		{name: "unsafe chars", artist: "AC/DC", title: "What? <Live>", ext: "m4a", want: "ACDC - What Live.m4a"},
		{name: "default ext", artist: "A", title: "B", ext: "", want: "A - B.mp3"},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			if got := TrackFilename(tt.artist, tt.title, tt.ext); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestDSN(t *testing.T) {
	mem := DSN(":memory:", 0)
	if mem != ":memory:?_busy_timeout=5000&_foreign_keys=on&_txlock=immediate" {
		t.Errorf("unexpected memory DSN %q", mem)
	}

	file := DSN("/tmp/q.db", 1000)
	want := "/tmp/q.db?_busy_timeout=1000&_foreign_keys=on&_txlock=immediate&_journal_mode=WAL&_synchronous=NORMAL"
	if file != want {
		t.Errorf("expected %q, got %q", want, file)
	}
}

func TestIsBusy(t *testing.T) {
	if IsBusy(nil) {
		t.Error("nil should not be busy")
	}
	if !IsBusy(errors.New("database is locked")) {
		t.Error("expected locked message to be busy")
	}
	if IsBusy(ErrSessionNotFound) {
		t.Error("not found should not be busy")
	}
}
