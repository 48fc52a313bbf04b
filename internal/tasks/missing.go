package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/desertthunder/trackq/internal/models"
	"github.com/desertthunder/trackq/internal/shared"
)

// MissingTracksSource lists the tracks a sync task could not match in the media library.
type MissingTracksSource interface {
	MissingTracks(ctx context.Context, taskID int64) ([]models.WantedTrack, error)
}

// MissingTracksFile is the document an external matcher writes per task.
type MissingTracksFile struct {
	TaskID   int64                `json:"task_id"`
	Platform string               `json:"platform"`
	Tracks   []models.WantedTrack `json:"tracks"`
}

// JSONMissingTracks reads {Dir}/{taskID}.json files.
type JSONMissingTracks struct {
	Dir string
}

// MissingTracks loads the task's file. Tracks without a platform inherit the file's platform.
func (s JSONMissingTracks) MissingTracks(_ context.Context, taskID int64) ([]models.WantedTrack, error) {
	if taskID <= 0 {
		return nil, fmt.Errorf("%w: task id must be positive", shared.ErrInvalidArgument)
	}

	path := filepath.Join(s.Dir, strconv.FormatInt(taskID, 10)+".json")
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: no missing-tracks file for task %d", shared.ErrInvalidArgument, taskID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read missing tracks: %w", err)
	}

	var doc MissingTracksFile
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", shared.ErrInvalidInput, path, err)
	}

	tracks := make([]models.WantedTrack, 0, len(doc.Tracks))
	for _, t := range doc.Tracks {
		if t.Platform == "" {
			t.Platform = doc.Platform
		}
		if err := t.Validate(); err != nil {
			return nil, err
		}
		tracks = append(tracks, t)
	}
	return tracks, nil
}
