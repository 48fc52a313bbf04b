package audio

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/bogem/id3v2/v2"
	"github.com/charmbracelet/log"
	flac "github.com/go-flac/go-flac"
	"github.com/go-flac/flacpicture"
	"github.com/go-flac/flacvorbis"
	"github.com/zhaarey/go-mp4tag"

	"github.com/desertthunder/trackq/internal/shared"
)

const (
	UnknownAlbum        = "Unknown Album"
	defaultCoverTimeout = 15 * time.Second
	maxCoverBytes       = 10 << 20
)

// Metadata is what gets embedded into a downloaded file.
type Metadata struct {
	Title    string
	Artist   string
	Album    string
	CoverURL string
	Lyrics   string
}

// Tagger writes [Metadata] into MP3 (ID3v2), FLAC (Vorbis comments) and M4A (iTunes atoms) files.
type Tagger struct {
	client       *http.Client
	coverTimeout time.Duration
	logger       *log.Logger
}

// NewTagger creates a tagger. client fetches cover art and defaults to [http.DefaultClient].
func NewTagger(client *http.Client, logger *log.Logger) *Tagger {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Tagger{client: client, coverTimeout: defaultCoverTimeout, logger: logger}
}

// Embed writes md into the file at path.
//
// A cover that cannot be fetched is logged and skipped. Unsupported formats are left untouched.
func (t *Tagger) Embed(ctx context.Context, path string, md Metadata) error {
	if md.Album == "" {
		md.Album = UnknownAlbum
	}

	var cover *coverArt
	if md.CoverURL != "" {
		c, err := t.fetchCover(ctx, md.CoverURL)
		if err != nil {
			t.logger.Warn("cover art unavailable", "url", md.CoverURL, "error", err)
		} else {
			cover = c
		}
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".mp3":
		return embedID3(path, md, cover)
	case ".flac":
		return embedFLAC(path, md, cover)
	case ".m4a", ".mp4":
		return embedMP4(path, md, cover)
	default:
		t.logger.Debug("skipping tags for unsupported format", "path", path, "ext", ext)
		return nil
	}
}

type coverArt struct {
	data     []byte
	mimeType string
}

func (t *Tagger) fetchCover(ctx context.Context, rawURL string) (*coverArt, error) {
	ctx, cancel := context.WithTimeout(ctx, t.coverTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cover request: %w", err)
	}
	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch cover: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: cover returned status %d", shared.ErrAPIRequest, resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxCoverBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read cover: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty cover", shared.ErrAPIRequest)
	}

	mimeType := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(mimeType, "image/") {
		mimeType = http.DetectContentType(data)
	}
	if i := strings.Index(mimeType, ";"); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}
	return &coverArt{data: data, mimeType: mimeType}, nil
}

func embedID3(path string, md Metadata, cover *coverArt) error {
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return fmt.Errorf("failed to open id3 tag: %w", err)
	}
	defer tag.Close()

	tag.SetDefaultEncoding(id3v2.EncodingUTF8)
	tag.SetTitle(md.Title)
	tag.SetArtist(md.Artist)
	tag.SetAlbum(md.Album)

	if cover != nil {
		tag.DeleteFrames(tag.CommonID("Attached picture"))
		tag.AddAttachedPicture(id3v2.PictureFrame{
			Encoding:    id3v2.EncodingUTF8,
			MimeType:    cover.mimeType,
			PictureType: id3v2.PTFrontCover,
			Description: "Front cover",
			Picture:     cover.data,
		})
	}
	if lyrics := PlainLyrics(md.Lyrics); lyrics != "" {
		tag.AddUnsynchronisedLyricsFrame(id3v2.UnsynchronisedLyricsFrame{
			Encoding:          id3v2.EncodingUTF8,
			Language:          "eng",
			ContentDescriptor: "",
			Lyrics:            lyrics,
		})
	}

	if err := tag.Save(); err != nil {
		return fmt.Errorf("failed to save id3 tag: %w", err)
	}
	return nil
}

func embedFLAC(path string, md Metadata, cover *coverArt) error {
	f, err := flac.ParseFile(path)
	if err != nil {
		return fmt.Errorf("failed to parse flac: %w", err)
	}

	comments := flacvorbis.New()
	for _, field := range []struct{ key, value string }{
		{flacvorbis.FIELD_TITLE, md.Title},
		{flacvorbis.FIELD_ARTIST, md.Artist},
		{flacvorbis.FIELD_ALBUM, md.Album},
		{"LYRICS", PlainLyrics(md.Lyrics)},
	} {
		if field.value == "" {
			continue
		}
		if err := comments.Add(field.key, field.value); err != nil {
			return fmt.Errorf("failed to add vorbis comment %s: %w", field.key, err)
		}
	}
	block := comments.Marshal()

	meta := make([]*flac.MetaDataBlock, 0, len(f.Meta)+2)
	for _, m := range f.Meta {
		switch m.Type {
		case flac.VorbisComment:
			continue
		case flac.Picture:
			if cover != nil {
				continue
			}
		}
		meta = append(meta, m)
	}
	meta = append(meta, &block)

	if cover != nil {
		// NewFromImageData decodes the image; a cover it cannot read is dropped.
		if pic, err := flacpicture.NewFromImageData(flacpicture.PictureTypeFrontCover, "Front cover", cover.data, cover.mimeType); err == nil {
			picBlock := pic.Marshal()
			meta = append(meta, &picBlock)
		}
	}
	f.Meta = meta

	if err := f.Save(path); err != nil {
		return fmt.Errorf("failed to save flac: %w", err)
	}
	return nil
}

func embedMP4(path string, md Metadata, cover *coverArt) error {
	tags := &mp4tag.MP4Tags{
		Title:  md.Title,
		Artist: md.Artist,
		Album:  md.Album,
		Lyrics: PlainLyrics(md.Lyrics),
	}
	if cover != nil {
		format := mp4tag.ImageTypeJPEG
		if cover.mimeType == "image/png" {
			format = mp4tag.ImageTypePNG
		}
		tags.Pictures = []*mp4tag.MP4Picture{{Format: format, Data: cover.data}}
	}

	m, err := mp4tag.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open mp4: %w", err)
	}
	defer m.Close()

	if err := m.Write(tags, []string{}); err != nil {
		return fmt.Errorf("failed to write mp4 tags: %w", err)
	}
	return nil
}
