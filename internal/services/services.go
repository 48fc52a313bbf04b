// package services defines the [Platform] interface for music source backends
//
// vkeys mirrors (tencent, netease), QQ Music song detail
package services

import (
	"context"
	"strings"
)

// Platform is one external music-source backend capable of search and fetch.
type Platform interface {
	// Name returns the canonical platform name (e.g., "tencent", "netease").
	Name() string

	// Search returns the candidates for query on the given 1-based page.
	Search(ctx context.Context, query string, page, size int) ([]Candidate, error)

	// Fetch resolves a source id to a downloadable URL and the platform's declared metadata.
	Fetch(ctx context.Context, sourceID, quality string) (*Source, error)

	// Download streams url to dest and returns the number of bytes written.
	Download(ctx context.Context, url, dest string) (int64, error)
}

// Candidate is one search result.
type Candidate struct {
	ID       string
	Title    string
	Artist   string
	Album    string
	CoverURL string
	Platform string
}

// Source is a resolved, downloadable track.
type Source struct {
	ID       string
	URL      string
	Title    string
	Artist   string
	Album    string
	CoverURL string
	Quality  string
	Lyrics   string
	Format   string // file extension without the dot
}

// NormalizePlatform maps a user-facing platform name (qq, wy, ...) to its canonical name.
//
// Names missing from mapping are returned lowercased.
func NormalizePlatform(name string, mapping map[string]string) string {
	key := strings.ToLower(strings.TrimSpace(name))
	if canonical, ok := mapping[key]; ok {
		return canonical
	}
	return key
}
