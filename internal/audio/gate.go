package audio

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/abema/go-mp4"
	"github.com/mewkiz/flac"
	"github.com/tcolgate/mp3"

	"github.com/desertthunder/trackq/internal/shared"
)

const (
	DefaultMinSize     int64         = 2 * 1024 * 1024
	DefaultMinDuration time.Duration = 90 * time.Second
)

// Gate rejects downloads that are too small or too short to be the real track.
//
// Third-party mirrors sometimes serve truncated files, silence or advertisement placeholders.
type Gate struct {
	MinSize     int64
	MinDuration time.Duration
}

// Verdict is the result of [Gate.Check].
type Verdict struct {
	Accepted bool
	Reason   string
	Size     int64
	Duration time.Duration

	cause error
}

// Err returns nil for accepted files, otherwise an error wrapping [shared.ErrLowQuality]
// or [shared.ErrUnreadableAudio].
func (v Verdict) Err() error {
	if v.Accepted {
		return nil
	}
	cause := v.cause
	if cause == nil {
		cause = shared.ErrLowQuality
	}
	return fmt.Errorf("%w: %s", cause, v.Reason)
}

// NewGate builds a gate from the [quality] config section, falling back to the defaults for unset values.
func NewGate(cfg shared.QualityConfig) *Gate {
	g := &Gate{MinSize: cfg.MinSizeBytes, MinDuration: cfg.MinDuration.Duration}
	if g.MinSize <= 0 {
		g.MinSize = DefaultMinSize
	}
	if g.MinDuration <= 0 {
		g.MinDuration = DefaultMinDuration
	}
	return g
}

// Check inspects the file at path. It has no side effects.
func (g *Gate) Check(path string) Verdict {
	info, err := os.Stat(path)
	if err != nil {
		return Verdict{Reason: fmt.Sprintf("unreadable file: %v", err), cause: shared.ErrUnreadableAudio}
	}

	v := Verdict{Size: info.Size()}
	if v.Size < g.MinSize {
		v.Reason = fmt.Sprintf("file too small (%d bytes < %d bytes)", v.Size, g.MinSize)
		v.cause = shared.ErrLowQuality
		return v
	}

	d, err := Duration(path)
	if err != nil {
		v.Reason = fmt.Sprintf("duration unreadable: %v", err)
		v.cause = shared.ErrUnreadableAudio
		return v
	}
	v.Duration = d
	if d < g.MinDuration {
		v.Reason = fmt.Sprintf("duration too short (%s < %s)", d.Round(time.Millisecond), g.MinDuration)
		v.cause = shared.ErrLowQuality
		return v
	}

	v.Accepted = true
	return v
}

// Duration reads the playing time of the audio file at path, choosing the reader by extension.
func Duration(path string) (time.Duration, error) {
	var (
		d   time.Duration
		err error
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".mp3":
		d, err = mp3Duration(path)
	case ".flac":
		d, err = flacDuration(path)
	case ".m4a", ".mp4", ".aac":
		d, err = mp4Duration(path)
	default:
		return 0, fmt.Errorf("%w: unsupported format %q", shared.ErrUnreadableAudio, ext)
	}
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("%w: no audio frames", shared.ErrUnreadableAudio)
	}
	return d, nil
}

// mp3Duration sums the duration of every frame, which also covers VBR files.
func mp3Duration(path string) (time.Duration, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	var (
		total   time.Duration
		frame   mp3.Frame
		skipped int
	)
	dec := mp3.NewDecoder(f)
	for {
		if err := dec.Decode(&frame, &skipped); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				break
			}
			if total > 0 {
				break
			}
			return 0, fmt.Errorf("%w: mp3: %v", shared.ErrUnreadableAudio, err)
		}
		total += frame.Duration()
	}
	return total, nil
}

func flacDuration(path string) (time.Duration, error) {
	stream, err := flac.Open(path)
	if err != nil {
		return 0, fmt.Errorf("%w: flac: %v", shared.ErrUnreadableAudio, err)
	}
	defer stream.Close()

	info := stream.Info
	if info == nil || info.SampleRate == 0 {
		return 0, fmt.Errorf("%w: flac: missing stream info", shared.ErrUnreadableAudio)
	}
	seconds := float64(info.NSamples) / float64(info.SampleRate)
	return time.Duration(seconds * float64(time.Second)), nil
}

func mp4Duration(path string) (time.Duration, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	info, err := mp4.Probe(f)
	if err != nil {
		return 0, fmt.Errorf("%w: mp4: %v", shared.ErrUnreadableAudio, err)
	}
	if info.Timescale == 0 {
		return 0, fmt.Errorf("%w: mp4: zero timescale", shared.ErrUnreadableAudio)
	}
	seconds := float64(info.Duration) / float64(info.Timescale)
	return time.Duration(seconds * float64(time.Second)), nil
}
