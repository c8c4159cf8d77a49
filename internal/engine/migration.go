package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/polyplayapp/polyplay/internal/capacity"
	"github.com/polyplayapp/polyplay/internal/legacy"
	"github.com/polyplayapp/polyplay/internal/library"
	"github.com/polyplayapp/polyplay/internal/metastore"
	"github.com/polyplayapp/polyplay/internal/models"
)

// migrateLegacyOnce transfers the v1 single-table schema into the split
// metadata/blob model. It runs at most once, gated by a persisted flag:
//
//   - a library that already held tracks before any migration attempt
//     marks the migration done without touching the legacy store;
//   - rows are consumed in ascending creation order, each inline payload
//     copied into the blob store under a fresh key;
//   - every consumed row id is recorded, so a partial run resumes with
//     only the missing rows;
//   - an oversize payload is skippable and recorded as consumed; any
//     other row failure leaves the flag unset so the row retries on the
//     next load.
//
// The returned library reflects whatever was migrated, even on partial
// failure.
func (e *Engine) migrateLegacyOnce(ctx context.Context, lib *models.Library) (*models.Library, error) {
	if e.legacy == "" {
		return nil, nil
	}

	done, err := e.meta.GetFlag(metastore.FlagLegacyMigrationDone)
	if err != nil {
		return nil, err
	}
	if done {
		return nil, nil
	}

	consumed, err := e.consumedLegacyIDs()
	if err != nil {
		return nil, err
	}

	// Tracks with no recorded migration attempt predate the legacy
	// store; a non-empty record means an earlier partial run to resume.
	if len(lib.TracksByID) > 0 && len(consumed) == 0 {
		return nil, e.meta.SetFlag(metastore.FlagLegacyMigrationDone, true)
	}

	if !legacy.Exists(e.legacy) {
		return nil, e.meta.SetFlag(metastore.FlagLegacyMigrationDone, true)
	}

	src, err := legacy.Open(e.legacy)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	rows, err := src.Tracks()
	if err != nil {
		return nil, err
	}

	active := lib.Active()
	if active == nil {
		// Normalized libraries always carry a playlist, but guard anyway.
		now := models.NowMillis()
		active = &models.Playlist{
			ID:        library.NewID(),
			Name:      models.DefaultPlaylistName,
			TrackIDs:  []string{},
			CreatedAt: now,
			UpdatedAt: now,
		}
		lib.PlaylistsByID[active.ID] = active
		lib.ActivePlaylistID = active.ID
	}

	var failed, migrated, skipped int
	for _, row := range rows {
		if consumed[row.ID] {
			continue
		}
		t, err := e.migrateRow(ctx, row)
		if err != nil {
			var capErr *capacity.StorageCapError
			if errors.As(err, &capErr) {
				skipped++
				consumed[row.ID] = true
				e.logger.Warn("legacy row skipped: payload exceeds storage cap",
					zap.Int64("legacy_id", row.ID), zap.Int64("projected", capErr.Projected))
				continue
			}
			failed++
			e.logger.Error("legacy row migration failed",
				zap.Int64("legacy_id", row.ID), zap.Error(err))
			continue
		}
		lib.TracksByID[t.ID] = t
		active.TrackIDs = append(active.TrackIDs, t.ID)
		consumed[row.ID] = true
		migrated++
	}

	saved, err := e.save(lib)
	if err != nil {
		return nil, err
	}
	if err := e.saveConsumedLegacyIDs(consumed); err != nil {
		return saved, err
	}

	if failed > 0 {
		return saved, fmt.Errorf("legacy migration: %d row(s) failed", failed)
	}

	if err := e.meta.SetFlag(metastore.FlagLegacyMigrationDone, true); err != nil {
		return saved, err
	}
	e.logger.Info("legacy migration complete",
		zap.Int("migrated", migrated), zap.Int("skipped", skipped))
	return saved, nil
}

// consumedLegacyIDs reads the set of legacy row ids already consumed by
// earlier migration attempts.
func (e *Engine) consumedLegacyIDs() (map[int64]bool, error) {
	raw, err := e.meta.GetValue(metastore.KeyLegacyMigratedIDs)
	if err != nil {
		return nil, err
	}
	ids := make(map[int64]bool)
	if raw == "" {
		return ids, nil
	}
	var list []int64
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		// Malformed record: treat as empty and retry every row.
		return ids, nil
	}
	for _, id := range list {
		ids[id] = true
	}
	return ids, nil
}

func (e *Engine) saveConsumedLegacyIDs(ids map[int64]bool) error {
	list := make([]int64, 0, len(ids))
	for id := range ids {
		list = append(list, id)
	}
	sort.Slice(list, func(i, j int) bool { return list[i] < list[j] })
	data, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("marshal migrated legacy ids: %w", err)
	}
	return e.meta.SetValue(metastore.KeyLegacyMigratedIDs, string(data))
}

// migrateRow converts one legacy row: fresh opaque ids, inline payloads
// copied into the blob store. Artwork declared with a video media type
// becomes the artwork clip; anything else is stored as a still image.
func (e *Engine) migrateRow(ctx context.Context, row *models.LegacyTrack) (*models.Track, error) {
	needed := int64(len(row.Audio) + len(row.Art) + len(row.ArtVideo))
	if err := e.guard.EnsureCapacity(ctx, needed); err != nil {
		return nil, err
	}

	now := models.NowMillis()
	t := &models.Track{
		ID:        library.NewID(),
		Title:     row.Title,
		Sub:       row.Sub,
		Aura:      models.ClampAura(float64(row.Aura)),
		ArtSource: models.ArtworkAuto,
		CreatedAt: row.CreatedAt,
		UpdatedAt: now,
	}
	if t.Sub == "" {
		t.Sub = models.DefaultSub
	}
	if t.CreatedAt <= 0 {
		t.CreatedAt = now
	}

	if len(row.Audio) > 0 {
		t.AudioKey = library.NewID()
		if err := e.blobs.Put(ctx, t.AudioKey, row.Audio, models.BlobAudio); err != nil {
			return nil, fmt.Errorf("copy legacy audio: %w", err)
		}
		t.AudioBytes = int64(len(row.Audio))
	}

	if len(row.Art) > 0 {
		key := library.NewID()
		if strings.HasPrefix(row.ArtMime, "video/") {
			if err := e.blobs.Put(ctx, key, row.Art, models.BlobVideo); err != nil {
				return nil, fmt.Errorf("copy legacy artwork: %w", err)
			}
			t.ArtVideoKey = key
		} else {
			if err := e.blobs.Put(ctx, key, row.Art, models.BlobImage); err != nil {
				return nil, fmt.Errorf("copy legacy artwork: %w", err)
			}
			t.ArtKey = key
		}
		t.ArtBytes = int64(len(row.Art))
	}

	if len(row.ArtVideo) > 0 && t.ArtVideoKey == "" {
		t.ArtVideoKey = library.NewID()
		if err := e.blobs.Put(ctx, t.ArtVideoKey, row.ArtVideo, models.BlobVideo); err != nil {
			return nil, fmt.Errorf("copy legacy artwork video: %w", err)
		}
	}

	return t, nil
}
