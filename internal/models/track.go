package models

// ArtworkSource records where a track's still artwork came from.
type ArtworkSource string

const (
	// ArtworkAuto marks artwork derived by the poster generator.
	ArtworkAuto ArtworkSource = "auto"
	// ArtworkUser marks artwork supplied explicitly by the user.
	ArtworkUser ArtworkSource = "user"
)

// Aura bounds. Aura is the user's 0-5 mood rating for a track.
const (
	AuraMin = 0
	AuraMax = 5
)

// DefaultSub is the subtitle used when a track has none.
const DefaultSub = "Single"

// Track represents one playable media item and its metadata.
// Blob keys are best-effort references into the blob store; a non-empty
// key whose payload is gone is reported through the Missing* flags, not
// an error.
type Track struct {
	ID          string        `json:"id"`
	DemoID      string        `json:"demoId,omitempty"`
	IsDemo      bool          `json:"isDemo"`
	Title       string        `json:"title"`
	Sub         string        `json:"sub"`
	Artist      string        `json:"artist,omitempty"`
	Duration    float64       `json:"duration,omitempty"` // seconds, 0 = unknown
	Aura        int           `json:"aura"`
	AudioKey    string        `json:"audioKey,omitempty"`
	ArtKey      string        `json:"artKey,omitempty"`
	ArtVideoKey string        `json:"artVideoKey,omitempty"`
	AudioBytes  int64         `json:"audioBytes"`
	ArtBytes    int64         `json:"artworkBytes"`
	PosterBytes int64         `json:"posterBytes"`
	ArtSource   ArtworkSource `json:"artworkSource"`
	CreatedAt   int64         `json:"createdAt"` // epoch milliseconds
	UpdatedAt   int64         `json:"updatedAt"`

	// Lazily detected at read time, never persisted.
	MissingAudio    bool `json:"-"`
	MissingArtwork  bool `json:"-"`
	MissingArtVideo bool `json:"-"`
}

// ClampAura rounds and clamps an arbitrary numeric aura into [AuraMin, AuraMax].
func ClampAura(v float64) int {
	n := int(v + 0.5)
	if v < 0 {
		n = int(v - 0.5)
	}
	if n < AuraMin {
		return AuraMin
	}
	if n > AuraMax {
		return AuraMax
	}
	return n
}
