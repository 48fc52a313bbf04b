package audio

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/bogem/id3v2/v2"
	flac "github.com/go-flac/go-flac"
	"github.com/go-flac/flacvorbis"

	tu "github.com/desertthunder/trackq/internal/testing"
)

func pngCover(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("Failed to encode cover: %v", err)
	}
	return buf.Bytes()
}

func newCoverServer(t *testing.T) *httptest.Server {
	t.Helper()
	cover := pngCover(t)
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/cover.png" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write(cover)
	}))
}

func TestTaggerMP3(t *testing.T) {
	server := newCoverServer(t)
	defer server.Close()

	tagger := NewTagger(server.Client(), nil)
	ctx := context.Background()

	t.Run("Embeds Text Cover And Lyrics", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "a.mp3")
		tu.WriteMP3(t, path, 10)

		err := tagger.Embed(ctx, path, Metadata{
			Title:    "晴天",
			Artist:   "周杰伦",
			Album:    "叶惠美",
			CoverURL: server.URL + "/cover.png",
			Lyrics:   `[{"time":1,"words":"故事的小黄花"}]`,
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
		if err != nil {
			t.Fatalf("Failed to reopen tag: %v", err)
		}
		defer tag.Close()

		if tag.Title() != "晴天" || tag.Artist() != "周杰伦" || tag.Album() != "叶惠美" {
			t.Errorf("unexpected tags %q %q %q", tag.Title(), tag.Artist(), tag.Album())
		}
		if pics := tag.GetFrames(tag.CommonID("Attached picture")); len(pics) != 1 {
			t.Errorf("expected 1 picture, got %d", len(pics))
		}
		lyrics := tag.GetFrames(tag.CommonID("Unsynchronised lyrics/text transcription"))
		if len(lyrics) != 1 {
			t.Fatalf("expected 1 lyrics frame, got %d", len(lyrics))
		}
		if uslt, ok := lyrics[0].(id3v2.UnsynchronisedLyricsFrame); !ok || uslt.Lyrics != "故事的小黄花" {
			t.Errorf("unexpected lyrics frame %+v", lyrics[0])
		}
	})

	t.Run("Missing Cover Is Not Fatal", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "b.mp3")
		tu.WriteMP3(t, path, 10)

		err := tagger.Embed(ctx, path, Metadata{Title: "t", Artist: "a", CoverURL: server.URL + "/missing.jpg"})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
		if err != nil {
			t.Fatalf("Failed to reopen tag: %v", err)
		}
		defer tag.Close()
		if tag.Album() != UnknownAlbum {
			t.Errorf("expected album %q, got %q", UnknownAlbum, tag.Album())
		}
		if pics := tag.GetFrames(tag.CommonID("Attached picture")); len(pics) != 0 {
			t.Errorf("expected no picture, got %d", len(pics))
		}
	})
}

func TestTaggerFLAC(t *testing.T) {
	server := newCoverServer(t)
	defer server.Close()

	path := filepath.Join(t.TempDir(), "a.flac")
	tu.WriteFile(t, path, tu.FLACBytes(44100, 120))

	tagger := NewTagger(server.Client(), nil)
	err := tagger.Embed(context.Background(), path, Metadata{
		Title:    "Title",
		Artist:   "Artist",
		CoverURL: server.URL + "/cover.png",
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	f, err := flac.ParseFile(path)
	if err != nil {
		t.Fatalf("Failed to parse tagged flac: %v", err)
	}

	var comments *flacvorbis.MetaDataBlockVorbisComment
	pictures := 0
	for _, m := range f.Meta {
		switch m.Type {
		case flac.VorbisComment:
			comments, err = flacvorbis.ParseFromMetaDataBlock(*m)
			if err != nil {
				t.Fatalf("Failed to parse vorbis comment: %v", err)
			}
		case flac.Picture:
			pictures++
		}
	}
	if comments == nil {
		t.Fatal("expected a vorbis comment block")
	}

	for key, want := range map[string]string{
		flacvorbis.FIELD_TITLE:  "Title",
		flacvorbis.FIELD_ARTIST: "Artist",
		flacvorbis.FIELD_ALBUM:  UnknownAlbum,
	} {
		got, err := comments.Get(key)
		if err != nil || len(got) != 1 || got[0] != want {
			t.Errorf("expected %s=%q, got %v (%v)", key, want, got, err)
		}
	}
	if pictures != 1 {
		t.Errorf("expected 1 picture block, got %d", pictures)
	}

	if d, err := Duration(path); err != nil || d.Seconds() != 120 {
		t.Errorf("expected tagged flac to keep its 120s duration, got %s (%v)", d, err)
	}
}

func TestTaggerUnsupported(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.ogg")
	tu.WriteFile(t, path, []byte("OggS"))

	if err := NewTagger(nil, nil).Embed(context.Background(), path, Metadata{Title: "x"}); err != nil {
		t.Errorf("expected unsupported formats to be skipped, got %v", err)
	}
	if got := tu.MustReadFile(t, path); got != "OggS" {
		t.Errorf("expected file untouched, got %q", got)
	}
}
