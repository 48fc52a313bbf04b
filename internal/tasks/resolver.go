package tasks

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/trackq/internal/audio"
	"github.com/desertthunder/trackq/internal/models"
	"github.com/desertthunder/trackq/internal/services"
	"github.com/desertthunder/trackq/internal/shared"
)

const (
	directMatchThreshold = 75
	searchMatchThreshold = 70.0
	titleWeight          = 0.6
	artistWeight         = 0.4
	searchPage           = 1
	searchPageSize       = 10
	tencent              = "tencent"
)

// OutcomeKind is the variant of an [Outcome].
type OutcomeKind int

const (
	OutcomeSuccess OutcomeKind = iota
	OutcomeRejected
	OutcomePlatformError
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeRejected:
		return "rejected"
	case OutcomePlatformError:
		return "platform_error"
	default:
		return ""
	}
}

// Outcome is the result of one resolution attempt on one platform.
//
// Rejected means the platform answered but the source was wrong or failed the quality gate.
// PlatformError means the platform could not answer. Neither is terminal for the item.
type Outcome struct {
	Kind     OutcomeKind
	Path     string
	Platform string
	Reason   string

	// excluded is set when the platform produced a file the gate rejected.
	excluded bool
	source   *services.Source
}

func success(platform, path string, src *services.Source) Outcome {
	return Outcome{Kind: OutcomeSuccess, Platform: platform, Path: path, source: src}
}

func rejected(platform, format string, args ...any) Outcome {
	return Outcome{Kind: OutcomeRejected, Platform: platform, Reason: fmt.Sprintf(format, args...)}
}

func platformError(platform string, err error) Outcome {
	return Outcome{Kind: OutcomePlatformError, Platform: platform, Reason: err.Error()}
}

// Gate is the post-download acceptance check.
type Gate interface {
	Check(path string) audio.Verdict
}

// Tagger embeds metadata into an accepted file.
type Tagger interface {
	Embed(ctx context.Context, path string, md audio.Metadata) error
}

// AlbumLookup finds QQ Music song details by songmid.
type AlbumLookup interface {
	SongDetail(ctx context.Context, songMID string) (*services.SongDetail, error)
}

// SessionLogger is the per-session log sink. It never fails the caller.
type SessionLogger interface {
	Log(ctx context.Context, sessionID string, level models.LogLevel, message string)
}

// Request is one track to resolve.
type Request struct {
	SessionID   string
	Track       models.WantedTrack
	Quality     string
	Lyrics      bool
	StorageRoot string
}

// ResolverConfig wires a [Resolver].
type ResolverConfig struct {
	Platforms map[string]services.Platform
	Order     []string          // search order of canonical platform names
	Mapping   map[string]string // user-facing platform names to canonical ones
	Gate      Gate
	Tagger    Tagger            // optional
	Albums    AlbumLookup       // optional
	Sink      SessionLogger     // optional
	Logger    *log.Logger
}

// Resolver finds, downloads and validates a source for a wanted track, falling back across platforms.
type Resolver struct {
	platforms map[string]services.Platform
	order     []string
	mapping   map[string]string
	gate      Gate
	tagger    Tagger
	albums    AlbumLookup
	sink      SessionLogger
	logger    *log.Logger
}

// NewResolver creates a resolver. Platforms missing from cfg.Platforms are dropped from the order.
func NewResolver(cfg ResolverConfig) *Resolver {
	logger := cfg.Logger
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	order := make([]string, 0, len(cfg.Order))
	seen := make(map[string]bool)
	for _, name := range cfg.Order {
		name = services.NormalizePlatform(name, cfg.Mapping)
		if _, ok := cfg.Platforms[name]; ok && !seen[name] {
			order = append(order, name)
			seen[name] = true
		}
	}

	return &Resolver{
		platforms: cfg.Platforms,
		order:     order,
		mapping:   cfg.Mapping,
		gate:      cfg.Gate,
		tagger:    cfg.Tagger,
		albums:    cfg.Albums,
		sink:      cfg.Sink,
		logger:    logger,
	}
}

// Order returns the effective platform search order.
func (r *Resolver) Order() []string {
	return append([]string(nil), r.order...)
}

// Resolve returns the path of an accepted, tagged file for req.
//
// The direct path is tried first when the request carries a song id and platform. Otherwise, or when
// it does not match, each platform is searched in order (hint first) and the first good-enough
// candidate is downloaded. A platform whose file fails the quality gate is excluded for the rest of
// this call. When every platform is exhausted the error wraps [shared.ErrNoAcceptableSource].
func (r *Resolver) Resolve(ctx context.Context, req Request) (string, error) {
	track := r.enrichAlbum(ctx, req)
	hint := services.NormalizePlatform(track.Platform, r.mapping)
	excluded := make(map[string]bool)
	var reasons []string

	record := func(o Outcome) {
		reasons = append(reasons, fmt.Sprintf("%s: %s", o.Platform, o.Reason))
		if o.excluded {
			excluded[o.Platform] = true
		}
	}

	if p, ok := r.platforms[hint]; ok && track.SongID != "" {
		r.logf(ctx, req.SessionID, models.LevelInfo, "Trying %s song %s directly for %q", hint, track.SongID, track.Title)
		o := r.attemptDirect(ctx, p, track, req)
		if o.Kind == OutcomeSuccess {
			return r.finish(ctx, req, track, o)
		}
		r.logf(ctx, req.SessionID, models.LevelWarn, "Direct %s attempt %s: %s", hint, o.Kind, o.Reason)
		record(o)
	}

	for _, name := range r.searchOrder(hint) {
		if err := ctx.Err(); err != nil {
			return "", fmt.Errorf("%w: %v", shared.ErrCancelled, context.Cause(ctx))
		}
		if excluded[name] {
			continue
		}

		r.logf(ctx, req.SessionID, models.LevelInfo, "Searching %s for %q by %q", name, track.Title, track.Artist)
		o := r.attemptSearch(ctx, r.platforms[name], track, req)
		if o.Kind == OutcomeSuccess {
			return r.finish(ctx, req, track, o)
		}
		r.logf(ctx, req.SessionID, models.LevelWarn, "%s %s: %s", name, o.Kind, o.Reason)
		record(o)
	}

	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrCancelled, context.Cause(ctx))
	}
	return "", fmt.Errorf("%w for %q: %s", shared.ErrNoAcceptableSource, track.Title, strings.Join(reasons, "; "))
}

// searchOrder puts hint first, followed by the configured order.
func (r *Resolver) searchOrder(hint string) []string {
	order := make([]string, 0, len(r.order)+1)
	if _, ok := r.platforms[hint]; ok {
		order = append(order, hint)
	}
	for _, name := range r.order {
		if name != hint {
			order = append(order, name)
		}
	}
	return order
}

// attemptDirect fetches the known song id and accepts it when both title and artist match.
func (r *Resolver) attemptDirect(ctx context.Context, p services.Platform, track models.WantedTrack, req Request) Outcome {
	src, err := p.Fetch(ctx, track.SongID, req.Quality)
	if err != nil {
		return platformError(p.Name(), err)
	}

	titleScore := similarity(track.Title, src.Title)
	artistScore := similarity(track.Artist, src.Artist)
	if titleScore < directMatchThreshold || artistScore < directMatchThreshold {
		return rejected(p.Name(), "%v: %q by %q scored title %d, artist %d",
			shared.ErrMismatch, src.Title, src.Artist, titleScore, artistScore)
	}
	return r.download(ctx, p, track, req, src)
}

// attemptSearch searches p and downloads its best candidate scoring above the threshold.
func (r *Resolver) attemptSearch(ctx context.Context, p services.Platform, track models.WantedTrack, req Request) Outcome {
	query := strings.TrimSpace(track.Artist + " " + track.Title)
	candidates, err := p.Search(ctx, query, searchPage, searchPageSize)
	if err != nil {
		return platformError(p.Name(), err)
	}

	best, score, ok := BestCandidate(track, candidates)
	if !ok {
		return rejected(p.Name(), "%v: no candidate above %.0f among %d results", shared.ErrMismatch, searchMatchThreshold, len(candidates))
	}
	r.logf(ctx, req.SessionID, models.LevelInfo, "Best %s match %q by %q (score %.1f)", p.Name(), best.Title, best.Artist, score)

	src, err := p.Fetch(ctx, best.ID, req.Quality)
	if err != nil {
		return platformError(p.Name(), err)
	}
	if src.CoverURL == "" {
		src.CoverURL = best.CoverURL
	}
	if src.Album == "" {
		src.Album = best.Album
	}
	return r.download(ctx, p, track, req, src)
}

// download streams src under the storage root and runs the quality gate, deleting rejected files.
func (r *Resolver) download(ctx context.Context, p services.Platform, track models.WantedTrack, req Request, src *services.Source) Outcome {
	dest := filepath.Join(req.StorageRoot, shared.TrackFilename(track.Artist, track.Title, src.Format))

	n, err := p.Download(ctx, src.URL, dest)
	if err != nil {
		removeFile(dest)
		return platformError(p.Name(), err)
	}
	r.logf(ctx, req.SessionID, models.LevelDebug, "Downloaded %d bytes from %s", n, p.Name())

	if r.gate != nil {
		if v := r.gate.Check(dest); !v.Accepted {
			removeFile(dest)
			o := rejected(p.Name(), "%v", v.Err())
			o.excluded = true
			return o
		}
	}
	return success(p.Name(), dest, src)
}

// finish embeds metadata and writes the lyrics sidecar. Neither failure fails the item.
func (r *Resolver) finish(ctx context.Context, req Request, track models.WantedTrack, o Outcome) (string, error) {
	src := o.source
	album := track.Album
	if album == "" {
		album = src.Album
	}

	if r.tagger != nil {
		md := audio.Metadata{
			Title:    track.Title,
			Artist:   track.Artist,
			Album:    album,
			CoverURL: src.CoverURL,
		}
		if req.Lyrics {
			md.Lyrics = src.Lyrics
		}
		if err := r.tagger.Embed(ctx, o.Path, md); err != nil {
			r.logf(ctx, req.SessionID, models.LevelWarn, "Tagging %s failed: %v", filepath.Base(o.Path), err)
		}
	}

	if req.Lyrics {
		if src.Lyrics == "" {
			r.logf(ctx, req.SessionID, models.LevelInfo, "No lyrics available from %s", o.Platform)
		} else if _, err := audio.WriteLRC(audio.LRCPath(o.Path), src.Lyrics); err != nil {
			r.logf(ctx, req.SessionID, models.LevelWarn, "Writing lyrics failed: %v", err)
		}
	}

	r.logf(ctx, req.SessionID, models.LevelInfo, "Saved %q from %s to %s", track.Title, o.Platform, o.Path)
	return o.Path, nil
}

// enrichAlbum fills a missing album for QQ items whose song id is "songid-songmid".
func (r *Resolver) enrichAlbum(ctx context.Context, req Request) models.WantedTrack {
	track := req.Track
	if track.Album != "" || r.albums == nil || services.NormalizePlatform(track.Platform, r.mapping) != tencent {
		return track
	}
	songID, songMID, ok := services.SplitQQSongID(track.SongID)
	if !ok {
		return track
	}

	detail, err := r.albums.SongDetail(ctx, songMID)
	if err != nil {
		r.logf(ctx, req.SessionID, models.LevelWarn, "Album lookup for %s failed: %v", songMID, err)
		return track
	}
	track.Album = detail.Album
	track.SongID = songID
	r.logf(ctx, req.SessionID, models.LevelInfo, "Filled album %q for %q", detail.Album, track.Title)
	return track
}

func (r *Resolver) logf(ctx context.Context, sessionID string, level models.LogLevel, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if r.sink != nil && sessionID != "" {
		r.sink.Log(context.WithoutCancel(ctx), sessionID, level, msg)
		return
	}
	r.logger.Log(shared.LogLevel(string(level)), msg)
}

// BestCandidate scores candidates as 0.6*title + 0.4*artist similarity and returns the highest one
// scoring above 70. Ties keep the earlier candidate.
func BestCandidate(track models.WantedTrack, candidates []services.Candidate) (services.Candidate, float64, bool) {
	var (
		best      services.Candidate
		bestScore float64
		found     bool
	)
	for _, c := range candidates {
		score := titleWeight*float64(similarity(track.Title, c.Title)) + artistWeight*float64(similarity(track.Artist, c.Artist))
		if score > searchMatchThreshold && (!found || score > bestScore) {
			best, bestScore, found = c, score, true
		}
	}
	return best, bestScore, found
}

// similarity compares normalized strings from 0 to 100. An empty wanted value matches anything.
func similarity(want, got string) int {
	want = shared.NormalizeText(want)
	if want == "" {
		return 100
	}
	return shared.Ratio(want, shared.NormalizeText(got))
}

func removeFile(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn("failed to remove rejected file", "path", path, "error", err)
	}
}
