package models

// LegacyTrack is one row of the v1 single-table schema: auto-increment
// integer ids and binary payloads stored inline rather than referenced
// by key. Read-only, consumed exactly once by the migration adapter.
type LegacyTrack struct {
	ID        int64
	Title     string
	Sub       string
	Aura      int
	Audio     []byte
	Art       []byte
	ArtMime   string
	ArtVideo  []byte
	CreatedAt int64 // epoch milliseconds
}
