// vkeys aggregation API [Platform] implementation
//
// GET {base}/v2/music/{platform}?word=&page=&num= searches, ?id=[&quality=] fetches.
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"path"
	"strconv"
	"strings"

	"github.com/desertthunder/trackq/internal/shared"
)

const (
	defaultVKeysBaseURL = "https://api.vkeys.cn"
	vkeysOK             = 200
)

// vkeysEnvelope is the wrapper around every vkeys response.
type vkeysEnvelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// flexString decodes a JSON string or number into a string.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

// VKeysSong is one search result.
type VKeysSong struct {
	ID     flexString `json:"id"`
	MID    string     `json:"mid"`
	Song   string     `json:"song"`
	Singer string     `json:"singer"`
	Album  string     `json:"album"`
	Cover  string     `json:"cover"`
}

// VKeysTrack is the fetch payload.
type VKeysTrack struct {
	ID      flexString `json:"id"`
	URL     string     `json:"url"`
	Song    string     `json:"song"`
	Singer  string     `json:"singer"`
	Album   string     `json:"album"`
	Cover   string     `json:"cover"`
	Quality string     `json:"quality"`
	Lyric   string     `json:"lyric"`
}

// VKeysClient implements [Platform] for one vkeys-backed platform.
type VKeysClient struct {
	api          *APIClient
	platform     string
	qualityCodes map[string]string
}

// NewVKeysClient creates a client for platform ("tencent" or "netease") on top of api.
//
// qualityCodes maps a preferred quality (lossless, high, standard) to the platform's quality parameter;
// qualities without a code are not sent.
func NewVKeysClient(api *APIClient, platform string, qualityCodes map[string]string) *VKeysClient {
	return &VKeysClient{api: api, platform: platform, qualityCodes: qualityCodes}
}

// Name returns the platform name.
func (v *VKeysClient) Name() string {
	return v.platform
}

// Search queries the platform and maps results to [Candidate] values.
func (v *VKeysClient) Search(ctx context.Context, query string, page, size int) ([]Candidate, error) {
	params := url.Values{}
	params.Set("word", query)
	params.Set("page", strconv.Itoa(page))
	params.Set("num", strconv.Itoa(size))

	var songs []VKeysSong
	if err := v.call(ctx, params, &songs); err != nil {
		return nil, err
	}

	candidates := make([]Candidate, 0, len(songs))
	for _, s := range songs {
		id := string(s.ID)
		if id == "" {
			id = s.MID
		}
		if id == "" {
			continue
		}
		candidates = append(candidates, Candidate{
			ID:       id,
			Title:    s.Song,
			Artist:   s.Singer,
			Album:    s.Album,
			CoverURL: s.Cover,
			Platform: v.platform,
		})
	}
	return candidates, nil
}

// Fetch resolves sourceID to a download URL at the requested quality.
func (v *VKeysClient) Fetch(ctx context.Context, sourceID, quality string) (*Source, error) {
	params := url.Values{}
	params.Set("id", sourceID)
	if code, ok := v.qualityCodes[quality]; ok && code != "" {
		params.Set("quality", code)
	}

	var track VKeysTrack
	if err := v.call(ctx, params, &track); err != nil {
		return nil, err
	}
	if track.URL == "" {
		return nil, fmt.Errorf("%w: %s has no playable url for %s", shared.ErrTrackNotFound, v.platform, sourceID)
	}

	return &Source{
		ID:       sourceID,
		URL:      track.URL,
		Title:    track.Song,
		Artist:   track.Singer,
		Album:    track.Album,
		CoverURL: track.Cover,
		Quality:  track.Quality,
		Lyrics:   track.Lyric,
		Format:   FormatFromURL(track.URL),
	}, nil
}

// Download streams the resolved URL to dest.
func (v *VKeysClient) Download(ctx context.Context, rawURL, dest string) (int64, error) {
	return v.api.Download(ctx, rawURL, dest)
}

// call performs the request and unwraps the envelope into out.
func (v *VKeysClient) call(ctx context.Context, params url.Values, out any) error {
	var env vkeysEnvelope
	if err := v.api.GetJSON(ctx, "/v2/music/"+v.platform, params, &env); err != nil {
		return err
	}
	if env.Code != vkeysOK {
		return fmt.Errorf("%w: %s returned code %d: %s", shared.ErrPlatform, v.platform, env.Code, env.Message)
	}
	if len(env.Data) == 0 || bytes.Equal(env.Data, []byte("null")) {
		return fmt.Errorf("%w: %s returned no data", shared.ErrTrackNotFound, v.platform)
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("%w: %s data: %v", shared.ErrMalformedResponse, v.platform, err)
	}
	return nil
}

// FormatFromURL returns the lowercase file extension of rawURL's path, defaulting to "mp3".
func FormatFromURL(rawURL string) string {
	p := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		p = u.Path
	}
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(p), "."))
	switch ext {
	case "mp3", "flac", "m4a", "mp4", "ogg", "wav", "aac":
		return ext
	}
	return "mp3"
}

// NewVKeysPlatforms builds one client per platform in cfg.SearchOrder sharing a single rate-limited transport per platform.
func NewVKeysPlatforms(cfg shared.PlatformsConfig, retry RetryPolicy) map[string]Platform {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultVKeysBaseURL
	}

	platforms := make(map[string]Platform, len(cfg.SearchOrder))
	for _, name := range cfg.SearchOrder {
		name = NormalizePlatform(name, cfg.Mapping)
		api := NewAPIClient(strings.TrimRight(baseURL, "/"), APIOptions{
			RequestTimeout:    cfg.RequestTimeout.Duration,
			StreamTimeout:     cfg.StreamTimeout.Duration,
			MaxRedirects:      cfg.MaxRedirects,
			RequestsPerSecond: cfg.RequestsPerSecond,
			Retry:             retry,
		})
		platforms[name] = NewVKeysClient(api, name, cfg.QualityCodes)
	}
	return platforms
}
