package demo

import (
	"context"
	"path"
	"strings"

	"go.uber.org/zap"

	"github.com/polyplayapp/polyplay/internal/engine"
)

// Asset describes one bundled demo track.
type Asset struct {
	ID          string // stable external-origin tag, becomes the track's demoId
	Title       string
	Artist      string
	AudioURL    string
	ArtworkURL  string // optional
	ArtworkMime string
}

// DefaultPack lists the demo tracks shipped with the player.
var DefaultPack = []Asset{
	{
		ID:       "demo-aurora",
		Title:    "Aurora Drift",
		Artist:   "Polyplay",
		AudioURL: "https://assets.polyplay.app/demo/aurora-drift.mp3",
	},
	{
		ID:       "demo-midnight",
		Title:    "Midnight Arcade",
		Artist:   "Polyplay",
		AudioURL: "https://assets.polyplay.app/demo/midnight-arcade.mp3",
	},
	{
		ID:       "demo-tidepool",
		Title:    "Tidepool",
		Artist:   "Polyplay",
		AudioURL: "https://assets.polyplay.app/demo/tidepool.mp3",
	},
}

// PackWithBase returns the default pack with every asset URL rehosted
// under an alternate base URL, keeping the file names.
func PackWithBase(base string) []Asset {
	base = strings.TrimSuffix(base, "/")
	pack := make([]Asset, len(DefaultPack))
	for i, asset := range DefaultPack {
		asset.AudioURL = base + "/" + path.Base(asset.AudioURL)
		if asset.ArtworkURL != "" {
			asset.ArtworkURL = base + "/" + path.Base(asset.ArtworkURL)
		}
		pack[i] = asset
	}
	return pack
}

// InstallResult reports what an install run did.
type InstallResult struct {
	Installed int
	Skipped   int
	Failed    int
}

// Installer adds demo tracks through the public track API.
type Installer struct {
	engine  *engine.Engine
	fetcher Fetcher
	logger  *zap.Logger
}

// NewInstaller creates an installer.
func NewInstaller(eng *engine.Engine, fetcher Fetcher, logger *zap.Logger) *Installer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Installer{engine: eng, fetcher: fetcher, logger: logger}
}

// Install fetches and adds every asset not already present, keyed by
// demo id. Individual asset failures are logged and counted, not fatal.
func (i *Installer) Install(ctx context.Context, assets []Asset) (*InstallResult, error) {
	existing, err := i.engine.ListTracks(ctx)
	if err != nil {
		return nil, err
	}
	installed := make(map[string]bool)
	for _, t := range existing {
		if t.DemoID != "" {
			installed[t.DemoID] = true
		}
	}

	result := &InstallResult{}
	for _, asset := range assets {
		if installed[asset.ID] {
			result.Skipped++
			continue
		}

		audio, err := i.fetcher.Fetch(ctx, asset.AudioURL)
		if err != nil {
			result.Failed++
			i.logger.Warn("demo asset fetch failed",
				zap.String("demo_id", asset.ID), zap.Error(err))
			continue
		}

		var art []byte
		if asset.ArtworkURL != "" {
			art, err = i.fetcher.Fetch(ctx, asset.ArtworkURL)
			if err != nil {
				i.logger.Warn("demo artwork fetch failed, continuing without",
					zap.String("demo_id", asset.ID), zap.Error(err))
				art = nil
			}
		}

		_, err = i.engine.AddTrack(ctx, engine.AddTrackParams{
			Title:       asset.Title,
			Artist:      asset.Artist,
			Audio:       audio,
			Artwork:     art,
			ArtworkMime: asset.ArtworkMime,
			DemoID:      asset.ID,
			IsDemo:      true,
		})
		if err != nil {
			result.Failed++
			i.logger.Warn("demo track add failed",
				zap.String("demo_id", asset.ID), zap.Error(err))
			continue
		}
		result.Installed++
	}

	return result, nil
}
