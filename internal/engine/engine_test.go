package engine

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polyplayapp/polyplay/internal/artwork"
	"github.com/polyplayapp/polyplay/internal/blobstore"
	"github.com/polyplayapp/polyplay/internal/capacity"
	"github.com/polyplayapp/polyplay/internal/metastore"
	"github.com/polyplayapp/polyplay/internal/models"
)

type testEnv struct {
	eng   *Engine
	meta  *metastore.Store
	blobs *blobstore.FSStore
}

func newTestEnv(t *testing.T, mutate ...func(*Options)) *testEnv {
	t.Helper()
	dir := t.TempDir()

	meta, err := metastore.New(filepath.Join(dir, "library.db"))
	require.NoError(t, err)

	blobs, err := blobstore.NewFSStore(filepath.Join(dir, "blobs"))
	require.NoError(t, err)

	opts := Options{
		Meta:  meta,
		Blobs: blobs,
		Probe: capacity.ProbeFunc(func() bool { return true }),
	}
	for _, m := range mutate {
		m(&opts)
	}

	eng, err := New(opts)
	require.NoError(t, err)

	t.Cleanup(func() {
		eng.Close()
		meta.Close()
	})
	return &testEnv{eng: eng, meta: meta, blobs: blobs}
}

func (env *testEnv) addTrack(t *testing.T, title string, audio []byte) *models.Track {
	t.Helper()
	track, err := env.eng.AddTrack(context.Background(), AddTrackParams{Title: title, Audio: audio})
	require.NoError(t, err)
	return track
}

func TestCreatePlaylist_ActivatesNew(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	p, err := env.eng.CreatePlaylist(ctx, "Road Trip")
	require.NoError(t, err)
	assert.Empty(t, p.TrackIDs)

	active, err := env.eng.ActivePlaylist(ctx)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, p.ID, active.ID)
}

func TestCreatePlaylist_BlankName(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.eng.CreatePlaylist(context.Background(), "   ")
	var vErr *ValidationError
	assert.ErrorAs(t, err, &vErr)
}

func TestAddTrack_CapacityEnforced(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// 250 MiB constrained cap, 0 used: a 5 MiB track fits.
	env.addTrack(t, "Small", make([]byte, 5<<20))

	// A 260 MiB track projects past the cap.
	_, err := env.eng.AddTrack(ctx, AddTrackParams{Title: "Huge", Audio: make([]byte, 260<<20)})
	var capErr *capacity.StorageCapError
	require.ErrorAs(t, err, &capErr)
	assert.Equal(t, int64(250<<20), capErr.Cap)
	assert.Equal(t, int64(5<<20), capErr.Used)
	assert.Equal(t, int64(265<<20), capErr.Projected)

	// The failed add wrote nothing.
	tracks, err := env.eng.ListTracks(ctx)
	require.NoError(t, err)
	assert.Len(t, tracks, 1)
}

func TestAddTrack_AppendsToActivePlaylist(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	track := env.addTrack(t, "One", []byte("audio"))

	active, err := env.eng.ActivePlaylist(ctx)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, []string{track.ID}, active.TrackIDs)
	assert.Equal(t, models.DefaultSub, track.Sub)
	assert.Positive(t, track.AudioBytes)

	ok, err := env.blobs.Has(ctx, track.AudioKey)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRemoveTrack_UnknownIsNoop(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	track := env.addTrack(t, "Keep", []byte("audio"))

	require.NoError(t, env.eng.RemoveTrack(ctx, "does-not-exist"))

	tracks, err := env.eng.ListTracks(ctx)
	require.NoError(t, err)
	require.Len(t, tracks, 1)
	assert.Equal(t, track.ID, tracks[0].ID)

	active, err := env.eng.ActivePlaylist(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{track.ID}, active.TrackIDs)
}

func TestRemoveTrack_DeletesBlobsAndReferences(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	track := env.addTrack(t, "Gone", []byte("audio"))
	require.NoError(t, env.eng.RemoveTrack(ctx, track.ID))

	tracks, err := env.eng.ListTracks(ctx)
	require.NoError(t, err)
	assert.Empty(t, tracks)

	ok, err := env.blobs.Has(ctx, track.AudioKey)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDeletePlaylist_CascadePreservesSharedTracks(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first, err := env.eng.CreatePlaylist(ctx, "First")
	require.NoError(t, err)
	track := env.addTrack(t, "Shared", []byte("audio"))

	second, err := env.eng.CreatePlaylist(ctx, "Second")
	require.NoError(t, err)
	require.NoError(t, env.eng.AddTrackToPlaylist(ctx, second.ID, track.ID))

	// Track is in both playlists: deleting the first preserves it.
	result, err := env.eng.DeletePlaylist(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, result.DeletedTracks)

	ok, err := env.blobs.Has(ctx, track.AudioKey)
	require.NoError(t, err)
	assert.True(t, ok)

	// Deleting the second removes the now-unreferenced track and its blobs.
	result, err = env.eng.DeletePlaylist(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, result.DeletedTracks)

	ok, err = env.blobs.Has(ctx, track.AudioKey)
	require.NoError(t, err)
	assert.False(t, ok)

	tracks, err := env.eng.ListTracks(ctx)
	require.NoError(t, err)
	assert.Empty(t, tracks)
}

func TestRenameTrack(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	track := env.addTrack(t, "Old", []byte("audio"))

	renamed, err := env.eng.RenameTrack(ctx, track.ID, "New")
	require.NoError(t, err)
	assert.Equal(t, "New", renamed.Title)

	_, err = env.eng.RenameTrack(ctx, track.ID, "  ")
	var vErr *ValidationError
	assert.ErrorAs(t, err, &vErr)

	_, err = env.eng.RenameTrack(ctx, "missing", "X")
	var nfErr *NotFoundError
	require.ErrorAs(t, err, &nfErr)
	assert.Equal(t, "track", nfErr.Kind)
}

func TestAura_SetAndReset(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	track := env.addTrack(t, "Moody", []byte("audio"))

	updated, err := env.eng.SetAura(ctx, track.ID, 9)
	require.NoError(t, err)
	assert.Equal(t, models.AuraMax, updated.Aura)

	updated, err = env.eng.ResetAura(ctx, track.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AuraMin, updated.Aura)
}

func TestUpdateArtwork_Image(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	track := env.addTrack(t, "Art", []byte("audio"))

	updated, err := env.eng.UpdateArtwork(ctx, track.ID, []byte("image"), "image/jpeg")
	require.NoError(t, err)
	assert.NotEmpty(t, updated.ArtKey)
	assert.Empty(t, updated.ArtVideoKey)
	assert.Equal(t, models.ArtworkUser, updated.ArtSource)

	// Replacing again deletes the previous artwork blob.
	firstKey := updated.ArtKey
	updated, err = env.eng.UpdateArtwork(ctx, track.ID, []byte("fresh"), "image/png")
	require.NoError(t, err)
	assert.NotEqual(t, firstKey, updated.ArtKey)

	ok, err := env.blobs.Has(ctx, firstKey)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUpdateArtwork_VideoWithPoster(t *testing.T) {
	env := newTestEnv(t, func(o *Options) {
		o.Poster = artwork.GeneratorFunc(func(payload []byte, mime string) ([]byte, error) {
			return []byte("poster-still"), nil
		})
	})
	ctx := context.Background()

	track := env.addTrack(t, "Clip", []byte("audio"))

	updated, err := env.eng.UpdateArtwork(ctx, track.ID, []byte("video-bytes"), "video/mp4")
	require.NoError(t, err)
	assert.NotEmpty(t, updated.ArtVideoKey)
	assert.NotEmpty(t, updated.ArtKey)
	assert.Equal(t, int64(len("poster-still")), updated.PosterBytes)

	_, meta, err := env.blobs.Get(ctx, updated.ArtVideoKey)
	require.NoError(t, err)
	assert.Equal(t, models.BlobVideo, meta.Type)
}

func TestUpdateArtwork_FailureKeepsPreviousArtwork(t *testing.T) {
	var flaky *flakyBlobStore
	env := newTestEnv(t, func(o *Options) {
		flaky = &flakyBlobStore{BlobStore: o.Blobs}
		o.Blobs = flaky
	})
	ctx := context.Background()

	track, err := env.eng.AddTrack(ctx, AddTrackParams{
		Title:       "Art",
		Audio:       []byte("audio"),
		Artwork:     []byte("cover"),
		ArtworkMime: "image/png",
	})
	require.NoError(t, err)
	require.NotEmpty(t, track.ArtKey)
	origKey, origBytes := track.ArtKey, track.ArtBytes

	flaky.failPuts = 1
	_, err = env.eng.UpdateArtwork(ctx, track.ID, []byte("fresh"), "image/png")
	require.Error(t, err)

	got, err := env.eng.GetTrack(ctx, track.ID)
	require.NoError(t, err)
	assert.Equal(t, origKey, got.ArtKey)
	assert.Equal(t, origBytes, got.ArtBytes)
	assert.False(t, got.MissingArtwork)
}

func TestReplaceAudio(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	track := env.addTrack(t, "Song", []byte("old audio"))
	oldKey := track.AudioKey

	updated, err := env.eng.ReplaceAudio(ctx, track.ID, []byte("new audio payload"), 123.5)
	require.NoError(t, err)
	assert.NotEqual(t, oldKey, updated.AudioKey)
	assert.Equal(t, int64(len("new audio payload")), updated.AudioBytes)
	assert.Equal(t, 123.5, updated.Duration)

	ok, err := env.blobs.Has(ctx, oldKey)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGetTrack_MissingBlobFlag(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	track := env.addTrack(t, "Fragile", []byte("audio"))

	// Evict the payload behind the library's back.
	require.NoError(t, env.blobs.Delete(ctx, track.AudioKey))

	got, err := env.eng.GetTrack(ctx, track.ID)
	require.NoError(t, err)
	assert.True(t, got.MissingAudio)
	assert.False(t, got.MissingArtwork)

	// The record itself survives; only the flag is raised.
	assert.Equal(t, track.ID, got.ID)
}

func TestClearTracks(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.addTrack(t, "One", []byte("a"))
	env.addTrack(t, "Two", []byte("b"))

	require.NoError(t, env.eng.ClearTracks(ctx))

	tracks, err := env.eng.ListTracks(ctx)
	require.NoError(t, err)
	assert.Empty(t, tracks)

	stats, err := env.blobs.ListStats(ctx)
	require.NoError(t, err)
	assert.Empty(t, stats)

	// Playlists survive, emptied.
	active, err := env.eng.ActivePlaylist(ctx)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Empty(t, active.TrackIDs)
}

func TestSetActivePlaylist_Unknown(t *testing.T) {
	env := newTestEnv(t)

	err := env.eng.SetActivePlaylist(context.Background(), "nope")
	var nfErr *NotFoundError
	require.ErrorAs(t, err, &nfErr)
	assert.Equal(t, "playlist", nfErr.Kind)
}

func TestSweepOrphans(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	track := env.addTrack(t, "Kept", []byte("kept audio"))

	// A blob written without a referencing record, as a failed
	// metadata save would leave behind.
	require.NoError(t, env.blobs.Put(ctx, "deadbeef-0000", []byte("orphan"), models.BlobAudio))

	result, err := env.eng.SweepOrphans(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, result.BlobsScanned)
	assert.Equal(t, 1, result.BlobsDeleted)
	assert.Equal(t, int64(len("orphan")), result.BytesReclaimed)

	ok, err := env.blobs.Has(ctx, track.AudioKey)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = env.blobs.Has(ctx, "deadbeef-0000")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestListTracks_MostRecentFirst(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first := env.addTrack(t, "First", []byte("a"))
	second := env.addTrack(t, "Second", []byte("b"))

	tracks, err := env.eng.ListTracks(ctx)
	require.NoError(t, err)
	require.Len(t, tracks, 2)
	if tracks[0].CreatedAt != tracks[1].CreatedAt {
		assert.Equal(t, second.ID, tracks[0].ID)
		assert.Equal(t, first.ID, tracks[1].ID)
	}
}
