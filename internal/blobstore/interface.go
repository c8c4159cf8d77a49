// Package blobstore provides key-addressed storage for binary media
// payloads: audio, artwork images, and artwork video clips.
package blobstore

import (
	"context"
	"errors"

	"github.com/polyplayapp/polyplay/internal/models"
)

// ErrBlobNotFound is returned when a requested blob does not exist.
var ErrBlobNotFound = errors.New("blob not found")

// BlobStore defines the contract for key-addressed binary storage.
// Keys are opaque; the store never interprets payloads. No operation
// spans more than one key.
type BlobStore interface {
	// Has checks whether a blob with the given key exists.
	Has(ctx context.Context, key string) (bool, error)

	// Get returns the blob payload and its metadata.
	// Returns ErrBlobNotFound if the blob does not exist.
	Get(ctx context.Context, key string) ([]byte, *models.BlobMeta, error)

	// Put stores a blob under the given key. Last write wins.
	Put(ctx context.Context, key string, payload []byte, typ models.BlobType) error

	// Delete removes a blob. No error if it doesn't exist.
	Delete(ctx context.Context, key string) error

	// ListStats returns type and size for every stored blob, without
	// payloads. Used for capacity accounting.
	ListStats(ctx context.Context) ([]models.BlobStat, error)
}
