// Package artwork defines the poster-generator collaborator consumed by
// the engine. Poster generation itself (waveform rendering, video frame
// extraction) lives outside this module and is treated as a black box.
package artwork

import "errors"

// ErrUnavailable is returned by generators that cannot produce a poster
// for the given payload. The engine tolerates it: the track simply keeps
// no still artwork.
var ErrUnavailable = errors.New("poster unavailable")

// Poster size limits per device profile. Generated stills larger than
// the limit are discarded rather than stored.
const (
	ConstrainedPosterLimit   = 2 << 20 // 2 MiB
	UnconstrainedPosterLimit = 8 << 20 // 8 MiB
)

// Generator derives a still image payload from an audio or video
// payload. Best effort: any error is treated as "no poster".
type Generator interface {
	Poster(payload []byte, mediaType string) ([]byte, error)
}

// GeneratorFunc adapts a function to the Generator interface.
type GeneratorFunc func(payload []byte, mediaType string) ([]byte, error)

func (f GeneratorFunc) Poster(payload []byte, mediaType string) ([]byte, error) {
	return f(payload, mediaType)
}

// Noop is a generator that never produces a poster.
type Noop struct{}

func (Noop) Poster([]byte, string) ([]byte, error) {
	return nil, ErrUnavailable
}
