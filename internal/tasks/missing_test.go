package tasks

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/desertthunder/trackq/internal/shared"
	tu "github.com/desertthunder/trackq/internal/testing"
)

func TestJSONMissingTracks(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	tu.WriteFile(t, filepath.Join(dir, "12.json"), []byte(`{
		"task_id": 12,
		"platform": "netease",
		"tracks": [
			{"title": "晴天", "artist": "周杰伦"},
			{"title": "稻香", "artist": "周杰伦", "platform": "qq", "song_id": "1-abc"}
		]
	}`))
	tu.WriteFile(t, filepath.Join(dir, "13.json"), []byte(`{"tracks": [{"artist": "nobody"}]}`))
	tu.WriteFile(t, filepath.Join(dir, "14.json"), []byte(`{not json`))

	source := JSONMissingTracks{Dir: dir}

	t.Run("Loads Tracks", func(t *testing.T) {
		tracks, err := source.MissingTracks(ctx, 12)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(tracks) != 2 {
			t.Fatalf("expected 2 tracks, got %d", len(tracks))
		}
		if tracks[0].Platform != "netease" {
			t.Errorf("expected inherited platform netease, got %s", tracks[0].Platform)
		}
		if tracks[1].Platform != "qq" || tracks[1].SongID != "1-abc" {
			t.Errorf("expected track hints to be kept, got %+v", tracks[1])
		}
	})

	tests := []struct {
		name   string
		taskID int64
		want   error
	}{
		{"Missing Title", 13, shared.ErrInvalidInput},
		{"Malformed", 14, shared.ErrInvalidInput},
		{"No File", 99, shared.ErrInvalidArgument},
		{"Non Positive", 0, shared.ErrInvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := source.MissingTracks(ctx, tt.taskID); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}
