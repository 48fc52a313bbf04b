// QQ Music song detail lookup with a bounded TTL cache
package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/desertthunder/trackq/internal/shared"
)

const (
	defaultQQDetailURL = "https://c.y.qq.com/v8/fcg-bin/fcg_play_single_song.fcg"
	defaultQQCacheSize = 512
	defaultQQCacheTTL  = time.Hour
)

// SongDetail is the subset of a QQ Music song record the resolver uses.
type SongDetail struct {
	SongMID  string
	Title    string
	Artists  []string
	Album    string
	AlbumMID string
}

// Artist joins the artist names with " / ".
func (d *SongDetail) Artist() string {
	return strings.Join(d.Artists, " / ")
}

type qqDetailResponse struct {
	Code int `json:"code"`
	Data []struct {
		Mid    string `json:"mid"`
		Name   string `json:"name"`
		Title  string `json:"title"`
		Singer []struct {
			Name string `json:"name"`
		} `json:"singer"`
		Album struct {
			Mid  string `json:"mid"`
			Name string `json:"name"`
		} `json:"album"`
	} `json:"data"`
}

// QQMusicClient looks up QQ Music song details and caches them per songmid.
type QQMusicClient struct {
	api   *APIClient
	cache *expirable.LRU[string, *SongDetail]
}

// NewQQMusicClient creates a client from the [qqmusic] config section.
func NewQQMusicClient(cfg shared.QQMusicConfig, opts APIOptions) *QQMusicClient {
	detailURL := cfg.DetailURL
	if detailURL == "" {
		detailURL = defaultQQDetailURL
	}
	size := cfg.CacheSize
	if size <= 0 {
		size = defaultQQCacheSize
	}
	ttl := cfg.CacheTTL.Duration
	if ttl <= 0 {
		ttl = defaultQQCacheTTL
	}

	if opts.Headers == nil {
		opts.Headers = http.Header{}
	}
	opts.Headers.Set("Referer", "https://y.qq.com/")

	return &QQMusicClient{
		api:   NewAPIClient(detailURL, opts),
		cache: expirable.NewLRU[string, *SongDetail](size, nil, ttl),
	}
}

// SongDetail returns the detail record for songMID, from cache when present.
func (q *QQMusicClient) SongDetail(ctx context.Context, songMID string) (*SongDetail, error) {
	if songMID == "" {
		return nil, fmt.Errorf("%w: empty songmid", shared.ErrInvalidInput)
	}
	if detail, ok := q.cache.Get(songMID); ok {
		return detail, nil
	}

	params := url.Values{}
	params.Set("songmid", songMID)
	params.Set("tpl", "yqq_song_detail")
	params.Set("format", "json")

	var resp qqDetailResponse
	if err := q.api.GetJSON(ctx, "", params, &resp); err != nil {
		return nil, err
	}
	if resp.Code != 0 {
		return nil, fmt.Errorf("%w: qq detail returned code %d", shared.ErrPlatform, resp.Code)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("%w: qq song %s", shared.ErrTrackNotFound, songMID)
	}

	song := resp.Data[0]
	detail := &SongDetail{
		SongMID:  songMID,
		Title:    song.Name,
		Album:    song.Album.Name,
		AlbumMID: song.Album.Mid,
	}
	if detail.Title == "" {
		detail.Title = song.Title
	}
	for _, s := range song.Singer {
		detail.Artists = append(detail.Artists, s.Name)
	}

	q.cache.Add(songMID, detail)
	return detail, nil
}

// CacheLen reports how many details are cached.
func (q *QQMusicClient) CacheLen() int {
	return q.cache.Len()
}

// SplitQQSongID splits a "songid-songmid" external id. ok is false when id has no mid part.
func SplitQQSongID(id string) (songID, songMID string, ok bool) {
	songID, songMID, found := strings.Cut(id, "-")
	if !found || songMID == "" {
		return "", "", false
	}
	return songID, songMID, true
}
