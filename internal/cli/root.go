// Package cli implements the polyplay command-line interface.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/polyplayapp/polyplay/internal/blobstore"
	"github.com/polyplayapp/polyplay/internal/capacity"
	"github.com/polyplayapp/polyplay/internal/config"
	"github.com/polyplayapp/polyplay/internal/engine"
	"github.com/polyplayapp/polyplay/internal/logger"
	"github.com/polyplayapp/polyplay/internal/metastore"
)

// cmdContext holds common resources for CLI commands.
type cmdContext struct {
	Config *config.Config
	Meta   *metastore.Store
	Engine *engine.Engine
	Logger *zap.Logger
}

// Close releases resources held by cmdContext.
func (c *cmdContext) Close() {
	if c.Engine != nil {
		c.Engine.Close()
	}
	if c.Meta != nil {
		c.Meta.Close()
	}
}

var dataDir string

// initContext initializes config, stores, and the engine.
func initContext() *cmdContext {
	dir := dataDir
	if dir == "" {
		var err error
		dir, err = config.DefaultDir()
		if err != nil {
			exitError("%v", err)
		}
	}

	cfg, err := config.Load(dir)
	if err != nil {
		exitError("%v", err)
	}

	log := logger.Init(logger.Config{
		Level:      cfg.LogLevel,
		OutputPath: cfg.LogPath(),
	})

	meta, err := metastore.New(cfg.DatabasePath())
	if err != nil {
		exitError("failed to open metadata store: %v", err)
	}

	blobs, err := blobstore.NewFSStore(cfg.BlobsPath())
	if err != nil {
		meta.Close()
		exitError("failed to open blob store: %v", err)
	}

	var probe capacity.Probe
	if cfg.Constrained != nil {
		forced := *cfg.Constrained
		probe = capacity.ProbeFunc(func() bool { return forced })
	}

	eng, err := engine.New(engine.Options{
		Meta:       meta,
		Blobs:      blobs,
		Probe:      probe,
		LegacyPath: cfg.LegacyPath(),
		CapBytes:   cfg.CapBytes,
		Logger:     log,
	})
	if err != nil {
		meta.Close()
		exitError("failed to create engine: %v", err)
	}

	return &cmdContext{Config: cfg, Meta: meta, Engine: eng, Logger: log}
}

var rootCmd = &cobra.Command{
	Use:   "polyplay",
	Short: "Polyplay media library",
	Long: `Polyplay manages a local audio library: tracks, playlists, and the
binary payloads (audio, artwork, artwork video) they reference.`,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "data directory (default: user config dir)")

	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(tracksCmd)
	rootCmd.AddCommand(removeCmd)
	rootCmd.AddCommand(renameCmd)
	rootCmd.AddCommand(auraCmd)
	rootCmd.AddCommand(clearCmd)
	rootCmd.AddCommand(playlistCmd)
	rootCmd.AddCommand(gcCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(demoCmd)
}

// exitError prints an error and exits.
func exitError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	os.Exit(1)
}

// shortID returns the first 8 characters of an id.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
