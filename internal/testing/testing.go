// package testing contains shared testing utilities
package testing

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/abema/go-mp4"
)

// MP3 frame constants for [MP3Bytes]: MPEG-1 Layer III, 128 kbps, 44.1 kHz, no CRC, no padding.
const (
	MP3FrameSize     = 417
	MP3FrameDuration = 1152.0 / 44100.0 // seconds
)

var mp3FrameHeader = []byte{0xFF, 0xFB, 0x90, 0x00}

// MP3Bytes returns a stream of silent MP3 frames.
//
// 5100 frames is about 2.13 MB and 133 seconds.
func MP3Bytes(frames int) []byte {
	frame := make([]byte, MP3FrameSize)
	copy(frame, mp3FrameHeader)
	return bytes.Repeat(frame, frames)
}

// WriteMP3 writes [MP3Bytes] to path, creating parent directories.
func WriteMP3(t *testing.T, path string, frames int) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("Failed to create directory for %s: %v", path, err)
	}
	if err := os.WriteFile(path, MP3Bytes(frames), 0644); err != nil {
		t.Fatalf("Failed to write mp3 fixture %s: %v", path, err)
	}
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
	Calls    int
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	m.Calls++
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func AssertNoFile(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); err == nil {
		t.Errorf("File should not exist: %s", path)
	}
}

// AssertDirEmpty fails if dir contains any entries.
func AssertDirEmpty(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil && !os.IsNotExist(err) {
		t.Fatalf("Failed to read directory %s: %v", dir, err)
	}
	if len(entries) != 0 {
		names := make([]string, len(entries))
		for i, e := range entries {
			names[i] = e.Name()
		}
		t.Errorf("Directory %s should be empty, has %v", dir, names)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}

// FLACBytes returns a FLAC stream with only a STREAMINFO block declaring 16-bit stereo audio
// of the given length. It has no frames, which is enough for metadata readers.
func FLACBytes(sampleRate uint32, seconds int) []byte {
	info := make([]byte, 34)
	binary.BigEndian.PutUint16(info[0:], 4096)
	binary.BigEndian.PutUint16(info[2:], 4096)
	samples := uint64(sampleRate) * uint64(seconds)
	packed := uint64(sampleRate)<<44 | uint64(2-1)<<41 | uint64(16-1)<<36 | samples&(1<<36-1)
	binary.BigEndian.PutUint64(info[10:], packed)

	var buf bytes.Buffer
	buf.WriteString("fLaC")
	buf.Write([]byte{0x80, 0x00, 0x00, byte(len(info))})
	buf.Write(info)
	return buf.Bytes()
}

// WriteFile writes data to path, creating parent directories.
func WriteFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("Failed to create directory for %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
}

// WriteM4A writes an MP4 container with an ftyp box and a movie header declaring the given
// length. It has no tracks or media data, which is enough for duration probes.
func WriteM4A(t *testing.T, path string, timescale uint32, seconds int) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("Failed to create directory for %s: %v", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Failed to create m4a fixture %s: %v", path, err)
	}
	defer f.Close()

	w := mp4.NewWriter(f)
	box := func(typ mp4.BoxType, payload mp4.IImmutableBox) {
		if _, err := w.StartBox(&mp4.BoxInfo{Type: typ}); err != nil {
			t.Fatalf("Failed to start %s box: %v", typ, err)
		}
		if payload != nil {
			if _, err := mp4.Marshal(w, payload, mp4.Context{}); err != nil {
				t.Fatalf("Failed to write %s box: %v", typ, err)
			}
		}
	}
	end := func() {
		if _, err := w.EndBox(); err != nil {
			t.Fatalf("Failed to end box: %v", err)
		}
	}

	box(mp4.BoxTypeFtyp(), &mp4.Ftyp{
		MajorBrand:       [4]byte{'M', '4', 'A', ' '},
		CompatibleBrands: []mp4.CompatibleBrandElem{{CompatibleBrand: [4]byte{'i', 's', 'o', 'm'}}},
	})
	end()
	box(mp4.BoxTypeMoov(), nil)
	box(mp4.BoxTypeMvhd(), &mp4.Mvhd{
		Timescale:   timescale,
		DurationV0:  timescale * uint32(seconds),
		Rate:        0x00010000,
		Volume:      0x0100,
		Matrix:      [9]int32{0x00010000, 0, 0, 0, 0x00010000, 0, 0, 0, 0x40000000},
		NextTrackID: 1,
	})
	end()
	end()
}
