package engine

import (
	"context"
	"strings"

	"github.com/polyplayapp/polyplay/internal/library"
	"github.com/polyplayapp/polyplay/internal/models"
)

// DeletePlaylistResult reports what a cascading playlist deletion removed.
type DeletePlaylistResult struct {
	DeletedTracks int
}

// CreatePlaylist creates an empty playlist and makes it active.
func (e *Engine) CreatePlaylist(ctx context.Context, name string) (*models.Playlist, error) {
	if strings.TrimSpace(name) == "" {
		return nil, &ValidationError{Field: "name", Reason: "must not be blank"}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	lib, err := e.load(ctx)
	if err != nil {
		return nil, err
	}

	now := models.NowMillis()
	p := &models.Playlist{
		ID:        library.NewID(),
		Name:      name,
		TrackIDs:  []string{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	lib.PlaylistsByID[p.ID] = p
	lib.ActivePlaylistID = p.ID

	saved, err := e.save(lib)
	if err != nil {
		return nil, err
	}
	return saved.PlaylistsByID[p.ID], nil
}

// SetActivePlaylist switches the active-playlist pointer.
func (e *Engine) SetActivePlaylist(ctx context.Context, playlistID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	lib, err := e.load(ctx)
	if err != nil {
		return err
	}
	if _, ok := lib.PlaylistsByID[playlistID]; !ok {
		return playlistNotFound(playlistID)
	}

	lib.ActivePlaylistID = playlistID
	_, err = e.save(lib)
	return err
}

// RenamePlaylist sets a playlist's name. A blank name is rejected.
func (e *Engine) RenamePlaylist(ctx context.Context, playlistID, name string) (*models.Playlist, error) {
	if strings.TrimSpace(name) == "" {
		return nil, &ValidationError{Field: "name", Reason: "must not be blank"}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	lib, err := e.load(ctx)
	if err != nil {
		return nil, err
	}
	p, ok := lib.PlaylistsByID[playlistID]
	if !ok {
		return nil, playlistNotFound(playlistID)
	}

	p.Name = name
	p.UpdatedAt = models.NowMillis()

	saved, err := e.save(lib)
	if err != nil {
		return nil, err
	}
	return saved.PlaylistsByID[playlistID], nil
}

// AddTrackToPlaylist appends an existing track to a playlist, ignoring
// duplicates.
func (e *Engine) AddTrackToPlaylist(ctx context.Context, playlistID, trackID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	lib, err := e.load(ctx)
	if err != nil {
		return err
	}
	p, ok := lib.PlaylistsByID[playlistID]
	if !ok {
		return playlistNotFound(playlistID)
	}
	if _, ok := lib.TracksByID[trackID]; !ok {
		return trackNotFound(trackID)
	}
	if p.Contains(trackID) {
		return nil
	}

	p.TrackIDs = append(p.TrackIDs, trackID)
	p.UpdatedAt = models.NowMillis()
	_, err = e.save(lib)
	return err
}

// RemoveTrackFromPlaylist drops a track reference from one playlist.
// The track record itself survives.
func (e *Engine) RemoveTrackFromPlaylist(ctx context.Context, playlistID, trackID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	lib, err := e.load(ctx)
	if err != nil {
		return err
	}
	p, ok := lib.PlaylistsByID[playlistID]
	if !ok {
		return playlistNotFound(playlistID)
	}

	kept := p.TrackIDs[:0]
	for _, id := range p.TrackIDs {
		if id != trackID {
			kept = append(kept, id)
		}
	}
	if len(kept) == len(p.TrackIDs) {
		return nil
	}
	p.TrackIDs = kept
	p.UpdatedAt = models.NowMillis()

	_, err = e.save(lib)
	return err
}

// DeletePlaylist removes a playlist and cascades: any of its tracks no
// longer referenced by a remaining playlist loses its blobs and record.
// Tracks still referenced elsewhere are preserved.
func (e *Engine) DeletePlaylist(ctx context.Context, playlistID string) (*DeletePlaylistResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	lib, err := e.load(ctx)
	if err != nil {
		return nil, err
	}
	p, ok := lib.PlaylistsByID[playlistID]
	if !ok {
		return nil, playlistNotFound(playlistID)
	}

	delete(lib.PlaylistsByID, playlistID)

	result := &DeletePlaylistResult{}
	for _, trackID := range p.TrackIDs {
		t, ok := lib.TracksByID[trackID]
		if !ok {
			continue
		}
		if len(lib.ReferencedBy(trackID)) > 0 {
			continue
		}
		e.deleteTrackBlobs(ctx, t)
		delete(lib.TracksByID, trackID)
		result.DeletedTracks++
	}

	library.EnsureActivePlaylist(lib, "")

	if _, err := e.save(lib); err != nil {
		return nil, err
	}
	return result, nil
}
