package engine

import (
	"context"

	"go.uber.org/zap"
)

// SweepResult contains the outcome of an orphan sweep.
type SweepResult struct {
	BlobsScanned    int
	BlobsDeleted    int
	ReferencedBlobs int
	BytesReclaimed  int64
}

// SweepOrphans deletes blobs referenced by no track record. Orphans
// appear when a blob write lands but the metadata save that would have
// referenced it fails; nothing reclaims them automatically, so this
// pass is exposed as an explicit maintenance operation.
func (e *Engine) SweepOrphans(ctx context.Context) (*SweepResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	lib, err := e.load(ctx)
	if err != nil {
		return nil, err
	}

	referenced := make(map[string]bool)
	for _, t := range lib.TracksByID {
		for _, key := range []string{t.AudioKey, t.ArtKey, t.ArtVideoKey} {
			if key != "" {
				referenced[key] = true
			}
		}
	}

	stats, err := e.blobs.ListStats(ctx)
	if err != nil {
		return nil, err
	}

	result := &SweepResult{
		BlobsScanned:    len(stats),
		ReferencedBlobs: len(referenced),
	}
	for _, st := range stats {
		if referenced[st.Key] {
			continue
		}
		e.media.Revoke(st.Key)
		if err := e.blobs.Delete(ctx, st.Key); err != nil {
			e.logger.Warn("sweep: delete blob failed", zap.String("key", st.Key), zap.Error(err))
			continue
		}
		result.BlobsDeleted++
		result.BytesReclaimed += st.Bytes
	}

	e.logger.Info("orphan sweep complete",
		zap.Int("scanned", result.BlobsScanned),
		zap.Int("referenced", result.ReferencedBlobs),
		zap.Int("deleted", result.BlobsDeleted),
		zap.Int64("bytes_reclaimed", result.BytesReclaimed),
	)
	return result, nil
}
