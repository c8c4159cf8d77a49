package blobstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/polyplayapp/polyplay/internal/models"
)

// validKey matches the opaque keys minted by the engine: lowercase hex
// and dashes, as produced by uuid generation.
var validKey = regexp.MustCompile(`^[0-9a-f-]{8,64}$`)

// FSStore implements BlobStore using the local filesystem.
// Payloads are stored in a two-level directory structure using the first
// two characters of the key as a prefix directory, with a .meta JSON
// sidecar holding type and size bookkeeping.
type FSStore struct {
	root string
}

// NewFSStore creates a filesystem-backed blob store rooted at the given directory.
func NewFSStore(root string) (*FSStore, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("create blob root: %w", err)
	}
	return &FSStore{root: root}, nil
}

// Has checks whether a blob exists.
func (s *FSStore) Has(_ context.Context, key string) (bool, error) {
	if !validKey.MatchString(key) {
		return false, nil
	}
	_, err := os.Stat(s.blobPath(key))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat blob %s: %w", key, err)
	}
	return true, nil
}

// Get reads a blob payload and its metadata.
// Returns ErrBlobNotFound if the blob does not exist.
func (s *FSStore) Get(_ context.Context, key string) ([]byte, *models.BlobMeta, error) {
	if !validKey.MatchString(key) {
		return nil, nil, ErrBlobNotFound
	}
	meta, err := s.readMeta(s.metaPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, ErrBlobNotFound
		}
		return nil, nil, fmt.Errorf("read blob meta %s: %w", key, err)
	}

	payload, err := os.ReadFile(s.blobPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, ErrBlobNotFound
		}
		return nil, nil, fmt.Errorf("read blob %s: %w", key, err)
	}

	return payload, meta, nil
}

// Put stores a blob under key. Existing payloads are overwritten
// (last write wins). The payload is written to a temp file and renamed
// into place so readers never observe a partial blob.
func (s *FSStore) Put(_ context.Context, key string, payload []byte, typ models.BlobType) error {
	if !validKey.MatchString(key) {
		return fmt.Errorf("invalid blob key: %q", key)
	}
	blobPath := s.blobPath(key)

	dir := filepath.Dir(blobPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create blob dir: %w", err)
	}

	tmpFile, err := os.CreateTemp(dir, ".blob-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	if _, err := io.Copy(tmpFile, bytes.NewReader(payload)); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write blob data: %w", err)
	}

	if err := tmpFile.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, blobPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename blob: %w", err)
	}

	meta := models.BlobMeta{
		Type:      typ,
		Bytes:     int64(len(payload)),
		CreatedAt: models.NowMillis(),
	}
	metaData, err := json.Marshal(&meta)
	if err != nil {
		return fmt.Errorf("marshal blob meta: %w", err)
	}
	if err := os.WriteFile(s.metaPath(key), metaData, 0644); err != nil {
		return fmt.Errorf("write blob meta: %w", err)
	}

	return nil
}

// Delete removes a blob and its metadata file.
func (s *FSStore) Delete(_ context.Context, key string) error {
	if !validKey.MatchString(key) {
		return nil
	}
	os.Remove(s.blobPath(key))
	os.Remove(s.metaPath(key))
	return nil
}

// ListStats returns type and size for every stored blob by scanning the
// directory tree. Payloads are never read.
func (s *FSStore) ListStats(_ context.Context) ([]models.BlobStat, error) {
	var stats []models.BlobStat

	err := filepath.Walk(s.root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || strings.HasSuffix(path, ".meta") || strings.HasPrefix(info.Name(), ".") {
			return nil
		}
		// Reconstruct key from path: root/ab/cdef... -> abcdef...
		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return nil
		}
		parts := strings.Split(rel, string(filepath.Separator))
		if len(parts) != 2 {
			return nil
		}
		key := parts[0] + parts[1]

		meta, err := s.readMeta(path + ".meta")
		if err != nil {
			// Sidecar lost: fall back to the payload size on disk.
			stats = append(stats, models.BlobStat{Key: key, Bytes: info.Size()})
			return nil
		}
		stats = append(stats, models.BlobStat{Key: key, Type: meta.Type, Bytes: meta.Bytes})
		return nil
	})

	return stats, err
}

// blobPath returns the filesystem path for a blob.
func (s *FSStore) blobPath(key string) string {
	if len(key) < 2 {
		return filepath.Join(s.root, key)
	}
	return filepath.Join(s.root, key[:2], key[2:])
}

// metaPath returns the filesystem path for a blob's metadata sidecar.
func (s *FSStore) metaPath(key string) string {
	return s.blobPath(key) + ".meta"
}

// readMeta reads and decodes a metadata sidecar file.
func (s *FSStore) readMeta(path string) (*models.BlobMeta, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var meta models.BlobMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}
