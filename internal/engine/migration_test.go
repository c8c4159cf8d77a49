package engine

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polyplayapp/polyplay/internal/blobstore"
	"github.com/polyplayapp/polyplay/internal/legacy"
	"github.com/polyplayapp/polyplay/internal/metastore"
	"github.com/polyplayapp/polyplay/internal/models"
)

// flakyBlobStore fails the first failPuts writes, then heals.
type flakyBlobStore struct {
	blobstore.BlobStore
	failPuts int
}

func (f *flakyBlobStore) Put(ctx context.Context, key string, payload []byte, typ models.BlobType) error {
	if f.failPuts > 0 {
		f.failPuts--
		return errors.New("disk hiccup")
	}
	return f.BlobStore.Put(ctx, key, payload, typ)
}

// writeLegacyFixture builds a v1 database with the given rows and
// returns its path.
func writeLegacyFixture(t *testing.T, rows []*models.LegacyTrack) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "polyplay-v1.db")

	src, err := legacy.Open(path)
	require.NoError(t, err)
	require.NoError(t, src.Initialize())
	for _, row := range rows {
		require.NoError(t, src.InsertTrack(row))
	}
	require.NoError(t, src.Close())
	return path
}

func TestMigration_RunsOnce(t *testing.T) {
	path := writeLegacyFixture(t, []*models.LegacyTrack{
		{Title: "Alpha", Audio: []byte("audio-a"), CreatedAt: 1000},
		{Title: "Beta", Sub: "EP", Audio: []byte("audio-b"), Art: []byte("art-b"), ArtMime: "image/jpeg", CreatedAt: 2000},
		{Title: "Gamma", Aura: 9, Audio: []byte("audio-c"), CreatedAt: 3000},
	})

	env := newTestEnv(t, func(o *Options) { o.LegacyPath = path })
	ctx := context.Background()

	tracks, err := env.eng.ListTracks(ctx)
	require.NoError(t, err)
	require.Len(t, tracks, 3)

	// Every migrated track lands in the single default playlist, in
	// legacy creation order.
	playlists, err := env.eng.ListPlaylists(ctx)
	require.NoError(t, err)
	require.Len(t, playlists, 1)
	assert.Equal(t, models.DefaultPlaylistName, playlists[0].Name)
	assert.Len(t, playlists[0].TrackIDs, 3)

	byTitle := make(map[string]*models.Track, len(tracks))
	for _, tr := range tracks {
		byTitle[tr.Title] = tr
	}
	require.Contains(t, byTitle, "Beta")
	assert.Equal(t, "EP", byTitle["Beta"].Sub)
	assert.NotEmpty(t, byTitle["Beta"].ArtKey)
	assert.Equal(t, models.DefaultSub, byTitle["Alpha"].Sub)
	assert.Equal(t, models.AuraMax, byTitle["Gamma"].Aura)
	assert.Equal(t, int64(1000), byTitle["Alpha"].CreatedAt)

	done, err := env.meta.GetFlag(metastore.FlagLegacyMigrationDone)
	require.NoError(t, err)
	assert.True(t, done)

	// A second load copies nothing: same tracks, same blob count.
	stats, err := env.blobs.ListStats(ctx)
	require.NoError(t, err)
	blobCount := len(stats)

	tracks, err = env.eng.ListTracks(ctx)
	require.NoError(t, err)
	assert.Len(t, tracks, 3)

	stats, err = env.blobs.ListStats(ctx)
	require.NoError(t, err)
	assert.Len(t, stats, blobCount)
}

func TestMigration_VideoArtwork(t *testing.T) {
	path := writeLegacyFixture(t, []*models.LegacyTrack{
		{Title: "Clip", Audio: []byte("audio"), Art: []byte("clip-bytes"), ArtMime: "video/mp4", CreatedAt: 1000},
	})

	env := newTestEnv(t, func(o *Options) { o.LegacyPath = path })

	tracks, err := env.eng.ListTracks(context.Background())
	require.NoError(t, err)
	require.Len(t, tracks, 1)
	assert.NotEmpty(t, tracks[0].ArtVideoKey)
	assert.Empty(t, tracks[0].ArtKey)
}

func TestMigration_OversizeRowSkipped(t *testing.T) {
	path := writeLegacyFixture(t, []*models.LegacyTrack{
		{Title: "Fits", Audio: []byte("small"), CreatedAt: 1000},
		{Title: "TooBig", Audio: make([]byte, 200), CreatedAt: 2000},
	})

	env := newTestEnv(t, func(o *Options) {
		o.LegacyPath = path
		o.CapBytes = 100
	})
	ctx := context.Background()

	// The oversize row is skipped, the rest migrate, and the flag is
	// set so the skipped row is never retried.
	tracks, err := env.eng.ListTracks(ctx)
	require.NoError(t, err)
	require.Len(t, tracks, 1)
	assert.Equal(t, "Fits", tracks[0].Title)

	done, err := env.meta.GetFlag(metastore.FlagLegacyMigrationDone)
	require.NoError(t, err)
	assert.True(t, done)
}

func TestMigration_RetriesFailedRows(t *testing.T) {
	path := writeLegacyFixture(t, []*models.LegacyTrack{
		{Title: "Alpha", Audio: []byte("audio-a"), CreatedAt: 1000},
		{Title: "Beta", Audio: []byte("audio-b"), CreatedAt: 2000},
	})

	// The first write fails, so row Alpha does not land on the first
	// attempt.
	env := newTestEnv(t, func(o *Options) {
		o.LegacyPath = path
		o.Blobs = &flakyBlobStore{BlobStore: o.Blobs, failPuts: 1}
	})
	ctx := context.Background()

	tracks, err := env.eng.ListTracks(ctx)
	require.NoError(t, err)
	require.Len(t, tracks, 1)
	assert.Equal(t, "Beta", tracks[0].Title)

	done, err := env.meta.GetFlag(metastore.FlagLegacyMigrationDone)
	require.NoError(t, err)
	assert.False(t, done)

	// The store has healed: the next load migrates only the failed row.
	tracks, err = env.eng.ListTracks(ctx)
	require.NoError(t, err)
	require.Len(t, tracks, 2)

	done, err = env.meta.GetFlag(metastore.FlagLegacyMigrationDone)
	require.NoError(t, err)
	assert.True(t, done)

	// The row that succeeded the first time was not copied again.
	stats, err := env.blobs.ListStats(ctx)
	require.NoError(t, err)
	assert.Len(t, stats, 2)

	playlists, err := env.eng.ListPlaylists(ctx)
	require.NoError(t, err)
	require.Len(t, playlists, 1)
	assert.Len(t, playlists[0].TrackIDs, 2)
}

func TestExport_RunsPendingMigration(t *testing.T) {
	path := writeLegacyFixture(t, []*models.LegacyTrack{
		{Title: "Alpha", Audio: []byte("audio-a"), CreatedAt: 1000},
	})

	env := newTestEnv(t, func(o *Options) { o.LegacyPath = path })

	// Export as the very first operation on an upgraded install.
	var buf bytes.Buffer
	require.NoError(t, env.eng.Export(context.Background(), &buf))
	assert.Contains(t, buf.String(), "Alpha")
}

func TestMigration_SkippedWhenTracksExist(t *testing.T) {
	dir := t.TempDir()

	env := newTestEnv(t)
	env.addTrack(t, "Existing", []byte("audio"))

	path := filepath.Join(dir, "polyplay-v1.db")
	src, err := legacy.Open(path)
	require.NoError(t, err)
	require.NoError(t, src.Initialize())
	require.NoError(t, src.InsertTrack(&models.LegacyTrack{Title: "Old", Audio: []byte("x"), CreatedAt: 1}))
	require.NoError(t, src.Close())

	// Reopen the same stores with a legacy path configured: the
	// populated library marks the migration done without importing.
	withLegacy, err := New(Options{
		Meta:       env.meta,
		Blobs:      env.blobs,
		Probe:      env.eng.probe,
		LegacyPath: path,
	})
	require.NoError(t, err)
	t.Cleanup(func() { withLegacy.Close() })

	tracks, err := withLegacy.ListTracks(context.Background())
	require.NoError(t, err)
	require.Len(t, tracks, 1)
	assert.Equal(t, "Existing", tracks[0].Title)

	done, err := env.meta.GetFlag(metastore.FlagLegacyMigrationDone)
	require.NoError(t, err)
	assert.True(t, done)
}

func TestMigration_NoLegacyFile(t *testing.T) {
	env := newTestEnv(t, func(o *Options) {
		o.LegacyPath = filepath.Join(t.TempDir(), "absent.db")
	})

	tracks, err := env.eng.ListTracks(context.Background())
	require.NoError(t, err)
	assert.Empty(t, tracks)

	done, err := env.meta.GetFlag(metastore.FlagLegacyMigrationDone)
	require.NoError(t, err)
	assert.True(t, done)
}
