package models

// DefaultPlaylistName is the playlist synthesized on first run and by the
// legacy migration when no playlist exists yet.
const DefaultPlaylistName = "polyplaylist1"

// RecoveredPlaylistName is the playlist synthesized by the consistency
// maintainer to hold tracks that no remaining playlist references.
const RecoveredPlaylistName = "Recovered Playlist"

// Playlist is a named ordered collection of track ids.
// After normalization TrackIDs holds no duplicates and no dangling ids.
type Playlist struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	TrackIDs  []string `json:"trackIds"`
	CreatedAt int64    `json:"createdAt"` // epoch milliseconds
	UpdatedAt int64    `json:"updatedAt"`
}

// Contains reports whether the playlist references the given track id.
func (p *Playlist) Contains(trackID string) bool {
	for _, id := range p.TrackIDs {
		if id == trackID {
			return true
		}
	}
	return false
}
