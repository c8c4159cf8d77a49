// Package engine implements the public track and playlist API of the
// storage core. It is the only sanctioned mutation entry point: every
// operation loads the library document, runs the one-time legacy
// migration when pending, mutates the normalized state, saves it, and
// keeps the blob store and media handle cache in step.
//
// A single mutex owns the library value, so mutations are linearized
// regardless of caller discipline.
package engine

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/polyplayapp/polyplay/internal/artwork"
	"github.com/polyplayapp/polyplay/internal/blobstore"
	"github.com/polyplayapp/polyplay/internal/capacity"
	"github.com/polyplayapp/polyplay/internal/mediacache"
	"github.com/polyplayapp/polyplay/internal/metastore"
	"github.com/polyplayapp/polyplay/internal/models"
)

// Options configures an Engine.
type Options struct {
	Meta       *metastore.Store
	Blobs      blobstore.BlobStore
	Probe      capacity.Probe
	Poster     artwork.Generator
	LegacyPath string // path to the v1 sqlite database, empty to skip
	CapBytes   int64  // optional cap override, 0 = profile default
	Logger     *zap.Logger
}

// Engine is the sole owner of the mutable library state.
type Engine struct {
	mu     sync.Mutex
	meta   *metastore.Store
	blobs  blobstore.BlobStore
	guard  *capacity.Guard
	media  *mediacache.Cache
	probe  capacity.Probe
	poster artwork.Generator
	legacy string
	logger *zap.Logger
}

// New creates an engine over the given stores.
func New(opts Options) (*Engine, error) {
	probe := opts.Probe
	if probe == nil {
		probe = capacity.DefaultProbe()
	}
	poster := opts.Poster
	if poster == nil {
		poster = artwork.Noop{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	media, err := mediacache.New(opts.Blobs)
	if err != nil {
		return nil, err
	}

	return &Engine{
		meta:   opts.Meta,
		blobs:  opts.Blobs,
		guard:  capacity.NewGuard(opts.Blobs, probe, opts.CapBytes),
		media:  media,
		probe:  probe,
		poster: poster,
		legacy: opts.LegacyPath,
		logger: logger,
	}, nil
}

// Close releases the media handle cache. The metadata store is owned by
// the caller.
func (e *Engine) Close() error {
	return e.media.Close()
}

// load reads and normalizes the library, running the legacy migration
// first when it is still pending. Migration failures are logged and
// retried on the next load rather than failing the operation.
func (e *Engine) load(ctx context.Context) (*models.Library, error) {
	lib, err := e.meta.LoadLibrary()
	if err != nil {
		return nil, err
	}

	migrated, err := e.migrateLegacyOnce(ctx, lib)
	if err != nil {
		e.logger.Warn("legacy migration incomplete, will retry on next load",
			zap.Error(err))
	}
	if migrated != nil {
		lib = migrated
	}
	return lib, nil
}

// save persists the library and returns its normalized form.
func (e *Engine) save(lib *models.Library) (*models.Library, error) {
	return e.meta.SaveLibrary(lib)
}

// GetTrack returns one track with its missing-payload flags computed.
func (e *Engine) GetTrack(ctx context.Context, id string) (*models.Track, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	lib, err := e.load(ctx)
	if err != nil {
		return nil, err
	}
	t, ok := lib.TracksByID[id]
	if !ok {
		return nil, trackNotFound(id)
	}
	e.flagMissing(ctx, t)
	return t, nil
}

// ListTracks returns all tracks, most recently created first, with
// missing-payload flags computed.
func (e *Engine) ListTracks(ctx context.Context) ([]*models.Track, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	lib, err := e.load(ctx)
	if err != nil {
		return nil, err
	}

	tracks := make([]*models.Track, 0, len(lib.TracksByID))
	for _, t := range lib.TracksByID {
		e.flagMissing(ctx, t)
		tracks = append(tracks, t)
	}
	sort.Slice(tracks, func(i, j int) bool {
		if tracks[i].CreatedAt != tracks[j].CreatedAt {
			return tracks[i].CreatedAt > tracks[j].CreatedAt
		}
		return tracks[i].ID < tracks[j].ID
	})
	return tracks, nil
}

// ListPlaylists returns all playlists in creation order.
func (e *Engine) ListPlaylists(ctx context.Context) ([]*models.Playlist, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	lib, err := e.load(ctx)
	if err != nil {
		return nil, err
	}

	playlists := make([]*models.Playlist, 0, len(lib.PlaylistsByID))
	for _, p := range lib.PlaylistsByID {
		playlists = append(playlists, p)
	}
	sort.Slice(playlists, func(i, j int) bool {
		if playlists[i].CreatedAt != playlists[j].CreatedAt {
			return playlists[i].CreatedAt < playlists[j].CreatedAt
		}
		return playlists[i].ID < playlists[j].ID
	})
	return playlists, nil
}

// ActivePlaylist returns the current active playlist, or nil when the
// library holds none.
func (e *Engine) ActivePlaylist(ctx context.Context) (*models.Playlist, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	lib, err := e.load(ctx)
	if err != nil {
		return nil, err
	}
	return lib.Active(), nil
}

// AudioPath returns a playable media handle for a track's audio payload.
// Returns blobstore.ErrBlobNotFound when the payload is absent.
func (e *Engine) AudioPath(ctx context.Context, trackID string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	lib, err := e.load(ctx)
	if err != nil {
		return "", err
	}
	t, ok := lib.TracksByID[trackID]
	if !ok {
		return "", trackNotFound(trackID)
	}
	if t.AudioKey == "" {
		return "", blobstore.ErrBlobNotFound
	}
	return e.media.MediaPath(ctx, t.AudioKey)
}

// ArtworkPath returns a media handle for a track's still artwork.
func (e *Engine) ArtworkPath(ctx context.Context, trackID string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	lib, err := e.load(ctx)
	if err != nil {
		return "", err
	}
	t, ok := lib.TracksByID[trackID]
	if !ok {
		return "", trackNotFound(trackID)
	}
	if t.ArtKey == "" {
		return "", blobstore.ErrBlobNotFound
	}
	return e.media.MediaPath(ctx, t.ArtKey)
}

// flagMissing lazily detects missing blob payloads for a track. A read
// miss is surfaced as a flag on the record, never as an error.
func (e *Engine) flagMissing(ctx context.Context, t *models.Track) {
	t.MissingAudio = e.keyMissing(ctx, t.AudioKey)
	t.MissingArtwork = e.keyMissing(ctx, t.ArtKey)
	t.MissingArtVideo = e.keyMissing(ctx, t.ArtVideoKey)
}

func (e *Engine) keyMissing(ctx context.Context, key string) bool {
	if key == "" {
		return false
	}
	ok, err := e.blobs.Has(ctx, key)
	if err != nil {
		e.logger.Warn("blob probe failed", zap.String("key", key), zap.Error(err))
		return true
	}
	return !ok
}

// deleteTrackBlobs removes every payload a track references and revokes
// the matching media handles.
func (e *Engine) deleteTrackBlobs(ctx context.Context, t *models.Track) {
	for _, key := range []string{t.AudioKey, t.ArtKey, t.ArtVideoKey} {
		if key == "" {
			continue
		}
		e.media.Revoke(key)
		if err := e.blobs.Delete(ctx, key); err != nil {
			e.logger.Warn("delete blob failed", zap.String("key", key), zap.Error(err))
		}
	}
}
