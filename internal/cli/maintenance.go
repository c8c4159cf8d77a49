package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/polyplayapp/polyplay/internal/capacity"
	"github.com/polyplayapp/polyplay/internal/demo"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show library and storage status",
	Run: func(cmd *cobra.Command, args []string) {
		c := initContext()
		defer c.Close()

		ctx := context.Background()
		tracks, err := c.Engine.ListTracks(ctx)
		if err != nil {
			exitError("%v", err)
		}
		playlists, err := c.Engine.ListPlaylists(ctx)
		if err != nil {
			exitError("%v", err)
		}
		active, err := c.Engine.ActivePlaylist(ctx)
		if err != nil {
			exitError("%v", err)
		}

		fmt.Printf("Data directory: %s\n", c.Config.Dir())
		fmt.Printf("Tracks:    %d\n", len(tracks))
		fmt.Printf("Playlists: %d\n", len(playlists))
		if active != nil {
			fmt.Printf("Active:    %s (%s)\n", active.Name, shortID(active.ID))
		}

		missing := 0
		for _, t := range tracks {
			if t.MissingAudio || t.MissingArtwork || t.MissingArtVideo {
				missing++
			}
		}
		if missing > 0 {
			color.Red("Tracks with missing media: %d", missing)
		}
	},
}

var gcCmd = &cobra.Command{
	Use:   "gc",
	Short: "Delete blobs no track references",
	Run: func(cmd *cobra.Command, args []string) {
		c := initContext()
		defer c.Close()

		result, err := c.Engine.SweepOrphans(context.Background())
		if err != nil {
			exitError("%v", err)
		}
		fmt.Printf("Scanned %d blob(s), %d referenced\n", result.BlobsScanned, result.ReferencedBlobs)
		if result.BlobsDeleted > 0 {
			color.Yellow("Deleted %d orphaned blob(s), reclaimed %d bytes",
				result.BlobsDeleted, result.BytesReclaimed)
		} else {
			fmt.Println("No orphaned blobs.")
		}
	},
}

var exportCmd = &cobra.Command{
	Use:   "export <file>",
	Short: "Export the library document as JSON",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		c := initContext()
		defer c.Close()

		f, err := os.Create(args[0])
		if err != nil {
			exitError("create export file: %v", err)
		}
		defer f.Close()

		if err := c.Engine.Export(context.Background(), f); err != nil {
			exitError("%v", err)
		}
		color.Green("Exported library to %s", args[0])
	},
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Replace the library document from a JSON export",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		c := initContext()
		defer c.Close()

		f, err := os.Open(args[0])
		if err != nil {
			exitError("open import file: %v", err)
		}
		defer f.Close()

		if err := c.Engine.Import(context.Background(), f); err != nil {
			exitError("%v", err)
		}
		color.Green("Imported library from %s", args[0])
	},
}

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Install the bundled demo tracks",
	Run: func(cmd *cobra.Command, args []string) {
		c := initContext()
		defer c.Close()

		limit := int64(demo.UnconstrainedAssetLimit)
		if c.Config.Constrained != nil && *c.Config.Constrained {
			limit = demo.ConstrainedAssetLimit
		} else if capacity.DefaultProbe().IsConstrained() {
			limit = demo.ConstrainedAssetLimit
		}

		pack := demo.DefaultPack
		if c.Config.DemoBaseURL != "" {
			pack = demo.PackWithBase(c.Config.DemoBaseURL)
		}

		installer := demo.NewInstaller(c.Engine, demo.NewHTTPFetcher(limit, nil), c.Logger)
		result, err := installer.Install(context.Background(), pack)
		if err != nil {
			exitError("%v", err)
		}
		fmt.Printf("Installed %d, skipped %d, failed %d\n",
			result.Installed, result.Skipped, result.Failed)
	},
}
