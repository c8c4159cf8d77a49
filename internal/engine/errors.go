package engine

import "fmt"

// NotFoundError reports an operation that targeted an id absent from
// the normalized library.
type NotFoundError struct {
	Kind string // "track" or "playlist"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

// ValidationError rejects a single call without touching any state.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func trackNotFound(id string) error {
	return &NotFoundError{Kind: "track", ID: id}
}

func playlistNotFound(id string) error {
	return &NotFoundError{Kind: "playlist", ID: id}
}
