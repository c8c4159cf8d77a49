package cli

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var playlistCmd = &cobra.Command{
	Use:   "playlist",
	Short: "Manage playlists",
}

var playlistListCmd = &cobra.Command{
	Use:   "list",
	Short: "List playlists",
	Run: func(cmd *cobra.Command, args []string) {
		c := initContext()
		defer c.Close()

		ctx := context.Background()
		playlists, err := c.Engine.ListPlaylists(ctx)
		if err != nil {
			exitError("%v", err)
		}
		active, err := c.Engine.ActivePlaylist(ctx)
		if err != nil {
			exitError("%v", err)
		}

		for _, p := range playlists {
			marker := " "
			if active != nil && p.ID == active.ID {
				marker = "*"
			}
			line := fmt.Sprintf("%s %s  %-30s  %d track(s)", marker, shortID(p.ID), p.Name, len(p.TrackIDs))
			if marker == "*" {
				color.Green("%s", line)
			} else {
				fmt.Println(line)
			}
		}
	},
}

var playlistCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a playlist and make it active",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		c := initContext()
		defer c.Close()

		p, err := c.Engine.CreatePlaylist(context.Background(), args[0])
		if err != nil {
			exitError("%v", err)
		}
		color.Green("Created playlist '%s' (%s), now active", p.Name, shortID(p.ID))
	},
}

var playlistUseCmd = &cobra.Command{
	Use:   "use <playlist-id>",
	Short: "Make a playlist active",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		c := initContext()
		defer c.Close()

		if err := c.Engine.SetActivePlaylist(context.Background(), args[0]); err != nil {
			exitError("%v", err)
		}
		fmt.Printf("Active playlist is now %s\n", shortID(args[0]))
	},
}

var playlistRenameCmd = &cobra.Command{
	Use:   "rename <playlist-id> <name>",
	Short: "Rename a playlist",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		c := initContext()
		defer c.Close()

		p, err := c.Engine.RenamePlaylist(context.Background(), args[0], args[1])
		if err != nil {
			exitError("%v", err)
		}
		fmt.Printf("Renamed playlist %s to '%s'\n", shortID(p.ID), p.Name)
	},
}

var playlistDeleteCmd = &cobra.Command{
	Use:   "delete <playlist-id>",
	Short: "Delete a playlist, removing tracks no other playlist references",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		c := initContext()
		defer c.Close()

		result, err := c.Engine.DeletePlaylist(context.Background(), args[0])
		if err != nil {
			exitError("%v", err)
		}
		fmt.Printf("Deleted playlist %s", shortID(args[0]))
		if result.DeletedTracks > 0 {
			fmt.Printf(" and %d orphaned track(s)", result.DeletedTracks)
		}
		fmt.Println()
	},
}

var playlistAddCmd = &cobra.Command{
	Use:   "add-track <playlist-id> <track-id>",
	Short: "Append a track to a playlist",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		c := initContext()
		defer c.Close()

		if err := c.Engine.AddTrackToPlaylist(context.Background(), args[0], args[1]); err != nil {
			exitError("%v", err)
		}
		fmt.Printf("Added track %s to playlist %s\n", shortID(args[1]), shortID(args[0]))
	},
}

var playlistRemoveCmd = &cobra.Command{
	Use:   "remove-track <playlist-id> <track-id>",
	Short: "Remove a track reference from a playlist",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		c := initContext()
		defer c.Close()

		if err := c.Engine.RemoveTrackFromPlaylist(context.Background(), args[0], args[1]); err != nil {
			exitError("%v", err)
		}
		fmt.Printf("Removed track %s from playlist %s\n", shortID(args[1]), shortID(args[0]))
	},
}

func init() {
	playlistCmd.AddCommand(playlistListCmd)
	playlistCmd.AddCommand(playlistCreateCmd)
	playlistCmd.AddCommand(playlistUseCmd)
	playlistCmd.AddCommand(playlistRenameCmd)
	playlistCmd.AddCommand(playlistDeleteCmd)
	playlistCmd.AddCommand(playlistAddCmd)
	playlistCmd.AddCommand(playlistRemoveCmd)
}
