package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dhowden/tag"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/polyplayapp/polyplay/internal/engine"
)

var (
	addTitle   string
	addArtist  string
	addSub     string
	addArtwork string
)

var addCmd = &cobra.Command{
	Use:   "add <audio-file>",
	Short: "Add a track to the library",
	Long: `Add an audio file to the library. Title and artist default to the
file's embedded tags when present.

Examples:
  polyplay add song.mp3
  polyplay add song.mp3 --title "Tidepool" --artwork cover.jpg`,
	Args: cobra.ExactArgs(1),
	Run:  runAdd,
}

func init() {
	addCmd.Flags().StringVar(&addTitle, "title", "", "Track title (default: embedded tag or file name)")
	addCmd.Flags().StringVar(&addArtist, "artist", "", "Track artist (default: embedded tag)")
	addCmd.Flags().StringVar(&addSub, "sub", "", "Track subtitle/category")
	addCmd.Flags().StringVar(&addArtwork, "artwork", "", "Artwork file (image or video clip)")
}

func runAdd(cmd *cobra.Command, args []string) {
	c := initContext()
	defer c.Close()

	audioPath := args[0]
	audio, err := os.ReadFile(audioPath)
	if err != nil {
		exitError("read audio file: %v", err)
	}

	title, artist := addTitle, addArtist
	if title == "" || artist == "" {
		if f, err := os.Open(audioPath); err == nil {
			if m, err := tag.ReadFrom(f); err == nil {
				if title == "" {
					title = m.Title()
				}
				if artist == "" {
					artist = m.Artist()
				}
			}
			f.Close()
		}
	}
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
	}

	var artwork []byte
	var artworkMime string
	if addArtwork != "" {
		artwork, err = os.ReadFile(addArtwork)
		if err != nil {
			exitError("read artwork file: %v", err)
		}
		artworkMime = http.DetectContentType(artwork)
	}

	t, err := c.Engine.AddTrack(context.Background(), engine.AddTrackParams{
		Title:       title,
		Artist:      artist,
		Sub:         addSub,
		Audio:       audio,
		Artwork:     artwork,
		ArtworkMime: artworkMime,
	})
	if err != nil {
		exitError("%v", err)
	}

	color.Green("Added track '%s' (%s)", t.Title, shortID(t.ID))
}

var tracksCmd = &cobra.Command{
	Use:   "tracks",
	Short: "List all tracks",
	Run: func(cmd *cobra.Command, args []string) {
		c := initContext()
		defer c.Close()

		tracks, err := c.Engine.ListTracks(context.Background())
		if err != nil {
			exitError("%v", err)
		}
		if len(tracks) == 0 {
			fmt.Println("No tracks in library.")
			return
		}

		for _, t := range tracks {
			line := fmt.Sprintf("%s  %-30s  %-20s  aura %d", shortID(t.ID), t.Title, t.Artist, t.Aura)
			if t.MissingAudio {
				color.Red("%s  [missing audio]", line)
				continue
			}
			fmt.Println(line)
		}
	},
}

var removeCmd = &cobra.Command{
	Use:   "remove <track-id>",
	Short: "Remove a track and its media",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		c := initContext()
		defer c.Close()

		if err := c.Engine.RemoveTrack(context.Background(), args[0]); err != nil {
			exitError("%v", err)
		}
		fmt.Printf("Removed track %s\n", shortID(args[0]))
	},
}

var renameCmd = &cobra.Command{
	Use:   "rename <track-id> <title>",
	Short: "Rename a track",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		c := initContext()
		defer c.Close()

		t, err := c.Engine.RenameTrack(context.Background(), args[0], args[1])
		if err != nil {
			exitError("%v", err)
		}
		fmt.Printf("Renamed track %s to '%s'\n", shortID(t.ID), t.Title)
	},
}

var auraCmd = &cobra.Command{
	Use:   "aura <track-id> [value]",
	Short: "Set or reset a track's aura rating (0-5)",
	Args:  cobra.RangeArgs(1, 2),
	Run: func(cmd *cobra.Command, args []string) {
		c := initContext()
		defer c.Close()

		ctx := context.Background()
		if len(args) == 1 {
			if _, err := c.Engine.ResetAura(ctx, args[0]); err != nil {
				exitError("%v", err)
			}
			fmt.Printf("Reset aura for track %s\n", shortID(args[0]))
			return
		}

		value, err := strconv.Atoi(args[1])
		if err != nil {
			exitError("invalid aura value: %s", args[1])
		}
		t, err := c.Engine.SetAura(ctx, args[0], value)
		if err != nil {
			exitError("%v", err)
		}
		fmt.Printf("Set aura for track %s to %d\n", shortID(t.ID), t.Aura)
	},
}

var clearForce bool

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every track and its media",
	Run: func(cmd *cobra.Command, args []string) {
		if !clearForce {
			exitError("refusing to clear the library without --force")
		}
		c := initContext()
		defer c.Close()

		if err := c.Engine.ClearTracks(context.Background()); err != nil {
			exitError("%v", err)
		}
		color.Yellow("Library cleared.")
	},
}

func init() {
	clearCmd.Flags().BoolVar(&clearForce, "force", false, "Confirm clearing the whole library")
}
