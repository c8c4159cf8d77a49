package engine

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/polyplayapp/polyplay/internal/artwork"
	"github.com/polyplayapp/polyplay/internal/library"
	"github.com/polyplayapp/polyplay/internal/models"
)

// AddTrackParams carries the payloads and metadata for a new track.
type AddTrackParams struct {
	Title       string
	Sub         string
	Artist      string
	Duration    float64
	Audio       []byte
	Artwork     []byte // optional still image or video clip
	ArtworkMime string
	DemoID      string
	IsDemo      bool
}

// AddTrack stores the audio (and optional artwork) payloads, creates a
// track record, and appends it to the active playlist. The capacity
// guard must pass before any payload is written.
func (e *Engine) AddTrack(ctx context.Context, p AddTrackParams) (*models.Track, error) {
	if len(p.Audio) == 0 {
		return nil, &ValidationError{Field: "audio", Reason: "empty payload"}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	lib, err := e.load(ctx)
	if err != nil {
		return nil, err
	}

	if err := e.guard.EnsureCapacity(ctx, int64(len(p.Audio)+len(p.Artwork))); err != nil {
		return nil, err
	}

	now := models.NowMillis()
	t := &models.Track{
		ID:        library.NewID(),
		DemoID:    p.DemoID,
		IsDemo:    p.IsDemo,
		Title:     p.Title,
		Sub:       p.Sub,
		Artist:    p.Artist,
		Duration:  p.Duration,
		ArtSource: models.ArtworkAuto,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if t.Sub == "" {
		t.Sub = models.DefaultSub
	}

	t.AudioKey = library.NewID()
	if err := e.blobs.Put(ctx, t.AudioKey, p.Audio, models.BlobAudio); err != nil {
		return nil, err
	}
	t.AudioBytes = int64(len(p.Audio))

	if len(p.Artwork) > 0 {
		if err := e.storeArtwork(ctx, t, p.Artwork, p.ArtworkMime); err != nil {
			return nil, err
		}
	} else {
		// No user artwork: best-effort waveform poster from the audio.
		e.generatePoster(ctx, t, p.Audio, "audio")
	}

	lib.TracksByID[t.ID] = t
	if active := lib.Active(); active != nil {
		active.TrackIDs = append(active.TrackIDs, t.ID)
		active.UpdatedAt = now
	}

	saved, err := e.save(lib)
	if err != nil {
		return nil, err
	}
	return saved.TracksByID[t.ID], nil
}

// UpdateArtwork replaces a track's artwork with the given payload. An
// image payload becomes the still artwork; a video payload becomes the
// artwork clip, with a best-effort poster still derived from it. The
// previous artwork blobs are deleted and their handles revoked.
func (e *Engine) UpdateArtwork(ctx context.Context, trackID string, payload []byte, mime string) (*models.Track, error) {
	if len(payload) == 0 {
		return nil, &ValidationError{Field: "artwork", Reason: "empty payload"}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	lib, err := e.load(ctx)
	if err != nil {
		return nil, err
	}
	t, ok := lib.TracksByID[trackID]
	if !ok {
		return nil, trackNotFound(trackID)
	}

	if err := e.guard.EnsureCapacity(ctx, int64(len(payload))); err != nil {
		return nil, err
	}

	oldArt, oldVideo := t.ArtKey, t.ArtVideoKey
	oldArtBytes, oldPosterBytes := t.ArtBytes, t.PosterBytes
	t.ArtKey, t.ArtVideoKey = "", ""
	t.ArtBytes, t.PosterBytes = 0, 0

	if err := e.storeArtwork(ctx, t, payload, mime); err != nil {
		t.ArtKey, t.ArtVideoKey = oldArt, oldVideo
		t.ArtBytes, t.PosterBytes = oldArtBytes, oldPosterBytes
		return nil, err
	}
	t.UpdatedAt = models.NowMillis()

	saved, err := e.save(lib)
	if err != nil {
		return nil, err
	}

	for _, key := range []string{oldArt, oldVideo} {
		if key == "" {
			continue
		}
		e.media.Revoke(key)
		if err := e.blobs.Delete(ctx, key); err != nil {
			e.logger.Warn("delete replaced artwork failed", zap.String("key", key), zap.Error(err))
		}
	}
	return saved.TracksByID[trackID], nil
}

// ReplaceAudio swaps a track's audio payload. The old blob is deleted
// and its handle revoked only after the metadata save succeeds.
func (e *Engine) ReplaceAudio(ctx context.Context, trackID string, audio []byte, duration float64) (*models.Track, error) {
	if len(audio) == 0 {
		return nil, &ValidationError{Field: "audio", Reason: "empty payload"}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	lib, err := e.load(ctx)
	if err != nil {
		return nil, err
	}
	t, ok := lib.TracksByID[trackID]
	if !ok {
		return nil, trackNotFound(trackID)
	}

	if err := e.guard.EnsureCapacity(ctx, int64(len(audio))); err != nil {
		return nil, err
	}

	oldKey := t.AudioKey
	t.AudioKey = library.NewID()
	if err := e.blobs.Put(ctx, t.AudioKey, audio, models.BlobAudio); err != nil {
		t.AudioKey = oldKey
		return nil, err
	}
	t.AudioBytes = int64(len(audio))
	if duration > 0 {
		t.Duration = duration
	}
	t.UpdatedAt = models.NowMillis()

	saved, err := e.save(lib)
	if err != nil {
		return nil, err
	}

	if oldKey != "" {
		e.media.Revoke(oldKey)
		if err := e.blobs.Delete(ctx, oldKey); err != nil {
			e.logger.Warn("delete replaced audio failed", zap.String("key", oldKey), zap.Error(err))
		}
	}
	return saved.TracksByID[trackID], nil
}

// RemoveTrack deletes a track, its blobs, and every playlist reference
// to it. An unknown id is a no-op, not an error.
func (e *Engine) RemoveTrack(ctx context.Context, trackID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	lib, err := e.load(ctx)
	if err != nil {
		return err
	}
	t, ok := lib.TracksByID[trackID]
	if !ok {
		return nil
	}

	e.deleteTrackBlobs(ctx, t)
	delete(lib.TracksByID, trackID)
	for _, p := range lib.PlaylistsByID {
		if p.Contains(trackID) {
			p.UpdatedAt = models.NowMillis()
		}
	}
	library.EnsureActivePlaylist(lib, "")

	_, err = e.save(lib)
	return err
}

// RenameTrack sets a track's title. A blank title is rejected.
func (e *Engine) RenameTrack(ctx context.Context, trackID, title string) (*models.Track, error) {
	if strings.TrimSpace(title) == "" {
		return nil, &ValidationError{Field: "title", Reason: "must not be blank"}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	lib, err := e.load(ctx)
	if err != nil {
		return nil, err
	}
	t, ok := lib.TracksByID[trackID]
	if !ok {
		return nil, trackNotFound(trackID)
	}

	t.Title = title
	t.UpdatedAt = models.NowMillis()

	saved, err := e.save(lib)
	if err != nil {
		return nil, err
	}
	return saved.TracksByID[trackID], nil
}

// SetAura stores a track's aura rating, clamped to the valid range.
func (e *Engine) SetAura(ctx context.Context, trackID string, aura int) (*models.Track, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	lib, err := e.load(ctx)
	if err != nil {
		return nil, err
	}
	t, ok := lib.TracksByID[trackID]
	if !ok {
		return nil, trackNotFound(trackID)
	}

	t.Aura = models.ClampAura(float64(aura))
	t.UpdatedAt = models.NowMillis()

	saved, err := e.save(lib)
	if err != nil {
		return nil, err
	}
	return saved.TracksByID[trackID], nil
}

// ResetAura clears a track's aura back to zero.
func (e *Engine) ResetAura(ctx context.Context, trackID string) (*models.Track, error) {
	return e.SetAura(ctx, trackID, models.AuraMin)
}

// ClearTracks removes every track and its blobs. Playlists survive with
// emptied track lists; all media handles are revoked.
func (e *Engine) ClearTracks(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	lib, err := e.load(ctx)
	if err != nil {
		return err
	}

	for _, t := range lib.TracksByID {
		e.deleteTrackBlobs(ctx, t)
	}
	lib.TracksByID = make(map[string]*models.Track)
	now := models.NowMillis()
	for _, p := range lib.PlaylistsByID {
		if len(p.TrackIDs) > 0 {
			p.TrackIDs = []string{}
			p.UpdatedAt = now
		}
	}
	e.media.RevokeAll()

	_, err = e.save(lib)
	return err
}

// storeArtwork writes an artwork payload under a fresh key. Video
// payloads land under the art-video key with a best-effort poster still
// derived from them; anything else is stored as the still image.
func (e *Engine) storeArtwork(ctx context.Context, t *models.Track, payload []byte, mime string) error {
	if strings.HasPrefix(mime, "video/") {
		t.ArtVideoKey = library.NewID()
		if err := e.blobs.Put(ctx, t.ArtVideoKey, payload, models.BlobVideo); err != nil {
			return err
		}
		t.ArtBytes = int64(len(payload))
		t.ArtSource = models.ArtworkUser
		e.generatePoster(ctx, t, payload, mime)
		return nil
	}

	t.ArtKey = library.NewID()
	if err := e.blobs.Put(ctx, t.ArtKey, payload, models.BlobImage); err != nil {
		return err
	}
	t.ArtBytes = int64(len(payload))
	t.ArtSource = models.ArtworkUser
	return nil
}

// generatePoster asks the poster generator for a still derived from the
// payload and stores it as the track's artwork. Best effort: failures,
// oversize posters, and capacity misses all leave the track without a
// still rather than failing the operation.
func (e *Engine) generatePoster(ctx context.Context, t *models.Track, payload []byte, mime string) {
	poster, err := e.poster.Poster(payload, mime)
	if err != nil {
		if !errors.Is(err, artwork.ErrUnavailable) {
			e.logger.Debug("poster generation failed", zap.String("track", t.ID), zap.Error(err))
		}
		return
	}

	limit := int64(artwork.UnconstrainedPosterLimit)
	if e.probe.IsConstrained() {
		limit = artwork.ConstrainedPosterLimit
	}
	if int64(len(poster)) > limit {
		return
	}
	if err := e.guard.EnsureCapacity(ctx, int64(len(poster))); err != nil {
		return
	}

	key := library.NewID()
	if err := e.blobs.Put(ctx, key, poster, models.BlobImage); err != nil {
		e.logger.Warn("store poster failed", zap.String("track", t.ID), zap.Error(err))
		return
	}
	t.ArtKey = key
	t.PosterBytes = int64(len(poster))
	if t.ArtSource != models.ArtworkUser {
		t.ArtSource = models.ArtworkAuto
	}
}
