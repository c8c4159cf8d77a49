package library

import (
	"sort"

	"github.com/google/uuid"

	"github.com/polyplayapp/polyplay/internal/models"
)

// newID mints a fresh opaque identifier. Ids are random and never
// reused after deletion.
func newID() string {
	return uuid.NewString()
}

// NewID mints a fresh opaque identifier for tracks, playlists, and blob keys.
func NewID() string {
	return newID()
}

// EnsureActivePlaylist normalizes playlist-track references and the
// active-playlist pointer in place:
//
//   - every playlist's track list is deduplicated and pruned of ids that
//     name no existing track;
//   - when no playlists remain and orphaned tracks exist, a "Recovered
//     Playlist" holding all orphans (most recently created first) is
//     synthesized and activated; with no tracks either, the active
//     pointer is cleared;
//   - when playlists exist, a valid current active id is preserved;
//     preferredID is adopted only when the current id is missing or
//     invalid; the earliest-created playlist is the fallback.
//
// The returned flag reports whether anything changed, so callers can
// skip redundant persistence.
func EnsureActivePlaylist(lib *models.Library, preferredID string) bool {
	changed := false

	for _, p := range lib.PlaylistsByID {
		pruned := dedupeAndPrune(p.TrackIDs, lib.TracksByID)
		if !equalIDs(p.TrackIDs, pruned) {
			p.TrackIDs = pruned
			changed = true
		}
	}

	if len(lib.PlaylistsByID) == 0 {
		if len(lib.TracksByID) > 0 {
			recovered := synthesizeRecovered(lib)
			lib.PlaylistsByID[recovered.ID] = recovered
			lib.ActivePlaylistID = recovered.ID
			return true
		}
		if lib.ActivePlaylistID != "" {
			lib.ActivePlaylistID = ""
			changed = true
		}
		return changed
	}

	if _, ok := lib.PlaylistsByID[lib.ActivePlaylistID]; ok && lib.ActivePlaylistID != "" {
		return changed
	}
	if _, ok := lib.PlaylistsByID[preferredID]; ok && preferredID != "" {
		lib.ActivePlaylistID = preferredID
		return true
	}
	lib.ActivePlaylistID = firstPlaylistID(lib)
	return true
}

// dedupeAndPrune drops duplicate ids and ids absent from tracks,
// preserving first-occurrence order.
func dedupeAndPrune(ids []string, tracks map[string]*models.Track) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		if _, ok := tracks[id]; !ok {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// synthesizeRecovered builds the playlist that adopts all orphaned
// tracks, ordered most recently created first.
func synthesizeRecovered(lib *models.Library) *models.Playlist {
	ids := make([]string, 0, len(lib.TracksByID))
	for id := range lib.TracksByID {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, b := lib.TracksByID[ids[i]], lib.TracksByID[ids[j]]
		if a.CreatedAt != b.CreatedAt {
			return a.CreatedAt > b.CreatedAt
		}
		return ids[i] < ids[j]
	})

	now := models.NowMillis()
	return &models.Playlist{
		ID:        newID(),
		Name:      models.RecoveredPlaylistName,
		TrackIDs:  ids,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// firstPlaylistID picks the earliest-created playlist deterministically,
// breaking creation-time ties by id.
func firstPlaylistID(lib *models.Library) string {
	var first string
	for id, p := range lib.PlaylistsByID {
		if first == "" {
			first = id
			continue
		}
		cur := lib.PlaylistsByID[first]
		if p.CreatedAt < cur.CreatedAt || (p.CreatedAt == cur.CreatedAt && id < first) {
			first = id
		}
	}
	return first
}

func equalIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
