package models

import "time"

// CurrentLibraryVersion is the schema version written by this build.
const CurrentLibraryVersion = 2

// Library is the full persisted metadata document: all tracks, all
// playlists, and the active-playlist pointer. ActivePlaylistID is empty
// exactly when PlaylistsByID is empty; otherwise it names an existing
// playlist. Both hold after every consistency pass.
type Library struct {
	Version          int                  `json:"version"`
	TracksByID       map[string]*Track    `json:"tracksById"`
	PlaylistsByID    map[string]*Playlist `json:"playlistsById"`
	ActivePlaylistID string               `json:"activePlaylistId,omitempty"`
}

// NewLibrary returns a structurally valid empty library.
func NewLibrary() *Library {
	return &Library{
		Version:       CurrentLibraryVersion,
		TracksByID:    make(map[string]*Track),
		PlaylistsByID: make(map[string]*Playlist),
	}
}

// Active returns the active playlist, or nil when none is set.
func (l *Library) Active() *Playlist {
	if l.ActivePlaylistID == "" {
		return nil
	}
	return l.PlaylistsByID[l.ActivePlaylistID]
}

// ReferencedBy returns the ids of playlists whose track list contains trackID.
func (l *Library) ReferencedBy(trackID string) []string {
	var owners []string
	for id, p := range l.PlaylistsByID {
		if p.Contains(trackID) {
			owners = append(owners, id)
		}
	}
	return owners
}

// NowMillis returns the current time as epoch milliseconds, the unit all
// library timestamps use.
func NowMillis() int64 {
	return time.Now().UnixMilli()
}
