// Package library implements the defensive normalizer and consistency
// maintainer for the persisted media-library document.
package library

import (
	"encoding/json"

	"github.com/polyplayapp/polyplay/internal/models"
)

// Normalize is a total decode-and-repair pass over an untyped library
// document. It never fails: every field is validated independently and
// repaired to a default when invalid, at least one playlist is
// guaranteed to exist, and the active-playlist pointer always resolves
// to a real playlist. Applying Normalize to its own output is a no-op.
func Normalize(raw map[string]any) *models.Library {
	lib := models.NewLibrary()
	if raw == nil {
		raw = map[string]any{}
	}

	lib.Version = models.CurrentLibraryVersion

	if tracks, ok := raw["tracksById"].(map[string]any); ok {
		for id, entry := range tracks {
			if id == "" {
				continue
			}
			fields, ok := entry.(map[string]any)
			if !ok {
				continue
			}
			lib.TracksByID[id] = repairTrack(id, fields)
		}
	}

	if playlists, ok := raw["playlistsById"].(map[string]any); ok {
		for id, entry := range playlists {
			if id == "" {
				continue
			}
			fields, ok := entry.(map[string]any)
			if !ok {
				continue
			}
			lib.PlaylistsByID[id] = repairPlaylist(id, fields)
		}
	}

	if active, ok := raw["activePlaylistId"].(string); ok {
		lib.ActivePlaylistID = active
	}

	EnsureActivePlaylist(lib, "")
	ensureDefaultPlaylist(lib)
	return lib
}

// NormalizeState re-runs the document normalizer on a typed library by
// round-tripping it through its JSON form, so saved documents always
// take the same repair path as loaded ones.
func NormalizeState(lib *models.Library) *models.Library {
	if lib == nil {
		return Normalize(nil)
	}
	data, err := json.Marshal(lib)
	if err != nil {
		return Normalize(nil)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return Normalize(nil)
	}
	return Normalize(raw)
}

// ensureDefaultPlaylist guarantees at least one playlist exists by
// synthesizing an empty default. Only reachable when the library holds
// no tracks; otherwise the maintainer has already recovered orphans
// into a playlist.
func ensureDefaultPlaylist(lib *models.Library) {
	if len(lib.PlaylistsByID) > 0 {
		return
	}
	now := models.NowMillis()
	p := &models.Playlist{
		ID:        newID(),
		Name:      models.DefaultPlaylistName,
		TrackIDs:  []string{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	lib.PlaylistsByID[p.ID] = p
	lib.ActivePlaylistID = p.ID
}

// repairTrack rebuilds a track record field by field, substituting
// defaults for anything missing or mistyped.
func repairTrack(id string, fields map[string]any) *models.Track {
	now := models.NowMillis()
	t := &models.Track{
		ID:        id,
		DemoID:    stringField(fields, "demoId", ""),
		IsDemo:    boolField(fields, "isDemo"),
		Title:     stringField(fields, "title", ""),
		Sub:       stringField(fields, "sub", models.DefaultSub),
		Artist:    stringField(fields, "artist", ""),
		AudioKey:  stringField(fields, "audioKey", ""),
		ArtKey:    stringField(fields, "artKey", ""),
		CreatedAt: timeField(fields, "createdAt", now),
	}
	t.ArtVideoKey = stringField(fields, "artVideoKey", "")
	t.UpdatedAt = timeField(fields, "updatedAt", t.CreatedAt)
	t.AudioBytes = sizeField(fields, "audioBytes")
	t.ArtBytes = sizeField(fields, "artworkBytes")
	t.PosterBytes = sizeField(fields, "posterBytes")
	t.Aura = models.ClampAura(numberField(fields, "aura", 0))
	if d := numberField(fields, "duration", 0); d > 0 {
		t.Duration = d
	}
	if t.Sub == "" {
		t.Sub = models.DefaultSub
	}
	if stringField(fields, "artworkSource", "") == string(models.ArtworkUser) {
		t.ArtSource = models.ArtworkUser
	} else {
		t.ArtSource = models.ArtworkAuto
	}
	return t
}

// repairPlaylist rebuilds a playlist record, dropping non-string track
// id entries. Duplicate and dangling ids are pruned afterwards by the
// consistency maintainer.
func repairPlaylist(id string, fields map[string]any) *models.Playlist {
	now := models.NowMillis()
	p := &models.Playlist{
		ID:        id,
		Name:      stringField(fields, "name", models.DefaultPlaylistName),
		TrackIDs:  []string{},
		CreatedAt: timeField(fields, "createdAt", now),
	}
	p.UpdatedAt = timeField(fields, "updatedAt", p.CreatedAt)
	if p.Name == "" {
		p.Name = models.DefaultPlaylistName
	}
	if ids, ok := fields["trackIds"].([]any); ok {
		for _, v := range ids {
			if s, ok := v.(string); ok && s != "" {
				p.TrackIDs = append(p.TrackIDs, s)
			}
		}
	}
	return p
}

func stringField(fields map[string]any, key, def string) string {
	if s, ok := fields[key].(string); ok {
		return s
	}
	return def
}

func boolField(fields map[string]any, key string) bool {
	b, _ := fields[key].(bool)
	return b
}

// numberField accepts float64 (the JSON decoder's numeric type) and
// json.Number, returning def for anything else.
func numberField(fields map[string]any, key string, def float64) float64 {
	switch v := fields[key].(type) {
	case float64:
		return v
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return def
		}
		return f
	default:
		return def
	}
}

func sizeField(fields map[string]any, key string) int64 {
	n := numberField(fields, key, 0)
	if n < 0 {
		return 0
	}
	return int64(n)
}

func timeField(fields map[string]any, key string, def int64) int64 {
	n := numberField(fields, key, 0)
	if n <= 0 {
		return def
	}
	return int64(n)
}
