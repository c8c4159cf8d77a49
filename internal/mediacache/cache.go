// Package mediacache maps blob keys to transient playable file handles.
//
// Handles are minted lazily from blob payloads and live for the process
// lifetime unless revoked. They are not reference counted: callers must
// revoke a handle before dropping the metadata that referenced its key,
// or the backing file leaks until the process exits.
package mediacache

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/polyplayapp/polyplay/internal/blobstore"
	"github.com/polyplayapp/polyplay/internal/models"
)

// Cache is a process-lifetime cache of blob key to media handle.
type Cache struct {
	mu      sync.Mutex
	blobs   blobstore.BlobStore
	dir     string
	handles map[string]string
}

// New creates a handle cache backed by a private temp directory.
func New(blobs blobstore.BlobStore) (*Cache, error) {
	dir, err := os.MkdirTemp("", "polyplay-media-*")
	if err != nil {
		return nil, fmt.Errorf("create media handle dir: %w", err)
	}
	return &Cache{
		blobs:   blobs,
		dir:     dir,
		handles: make(map[string]string),
	}, nil
}

// MediaPath returns a playable file path for the given blob key,
// minting and caching a handle on first use.
// Returns blobstore.ErrBlobNotFound when the payload is absent.
func (c *Cache) MediaPath(ctx context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if path, ok := c.handles[key]; ok {
		return path, nil
	}

	payload, meta, err := c.blobs.Get(ctx, key)
	if err != nil {
		return "", err
	}

	path := filepath.Join(c.dir, key+handleExt(meta.Type))
	if err := os.WriteFile(path, payload, 0600); err != nil {
		return "", fmt.Errorf("mint media handle for %s: %w", key, err)
	}

	c.handles[key] = path
	return path, nil
}

// Revoke releases the handle for a key, if one exists.
func (c *Cache) Revoke(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.revokeLocked(key)
}

// RevokeAll releases every cached handle.
func (c *Cache) RevokeAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.handles {
		c.revokeLocked(key)
	}
}

// Close revokes all handles and removes the handle directory.
func (c *Cache) Close() error {
	c.RevokeAll()
	return os.RemoveAll(c.dir)
}

func (c *Cache) revokeLocked(key string) {
	path, ok := c.handles[key]
	if !ok {
		return
	}
	os.Remove(path)
	delete(c.handles, key)
}

func handleExt(typ models.BlobType) string {
	switch typ {
	case models.BlobAudio:
		return ".audio"
	case models.BlobVideo:
		return ".video"
	case models.BlobImage:
		return ".image"
	default:
		return ".bin"
	}
}
