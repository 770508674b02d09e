package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nexelor/media-collector/internal/api"
)

func newEnqueueCommand(ctx *commandContext) *cobra.Command {
	enqueueCmd := &cobra.Command{
		Use:   "enqueue",
		Short: "Submit work to the running daemon",
	}

	enqueueCmd.AddCommand(newEnqueueMALFetchCommand(ctx))
	enqueueCmd.AddCommand(newEnqueueAniListFetchCommand(ctx))
	enqueueCmd.AddCommand(newEnqueuePictureCommand(ctx))

	return enqueueCmd
}

func parseAnimeID(arg string) (int, error) {
	id, err := strconv.Atoi(strings.TrimSpace(arg))
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid anime id %q", arg)
	}
	return id, nil
}

// postEnqueue sends body to path and prints the daemon's acknowledgement.
func postEnqueue(cmd *cobra.Command, ctx *commandContext, path string, body any) error {
	client, err := ctx.apiClient()
	if err != nil {
		return err
	}
	resp, err := client.Enqueue(cmd.Context(), path, body)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, resp.Message)
	if resp.TaskID != "" {
		fmt.Fprintf(out, "Task: %s (%s)\n", resp.TaskID, resp.TaskType)
	}
	return nil
}

func newEnqueueMALFetchCommand(ctx *commandContext) *cobra.Command {
	var req api.AnimeFetchRequest

	cmd := &cobra.Command{
		Use:   "mal-fetch <anime-id>",
		Short: "Fetch one anime from MyAnimeList",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseAnimeID(args[0])
			if err != nil {
				return err
			}
			req.AnimeID = id
			return postEnqueue(cmd, ctx, "/api/anime/fetch", req)
		},
	}

	cmd.Flags().BoolVar(&req.WithJikan, "jikan", false, "Merge Jikan data into the record")
	cmd.Flags().BoolVar(&req.WithPictures, "pictures", false, "Queue the anime's pictures")
	cmd.Flags().BoolVar(&req.FullFetch, "full", false, "Request every MAL field")
	return cmd
}

func newEnqueueAniListFetchCommand(ctx *commandContext) *cobra.Command {
	var byMAL bool
	var withPictures bool

	cmd := &cobra.Command{
		Use:   "anilist-fetch <id>",
		Short: "Fetch one anime from AniList",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseAnimeID(args[0])
			if err != nil {
				return err
			}
			req := api.AniListFetchRequest{WithPictures: withPictures}
			if byMAL {
				req.MALID = id
			} else {
				req.AniListID = id
			}
			return postEnqueue(cmd, ctx, "/api/anime/anilist/fetch", req)
		},
	}

	cmd.Flags().BoolVar(&byMAL, "mal", false, "Treat the id as a MyAnimeList id")
	cmd.Flags().BoolVar(&withPictures, "pictures", false, "Queue the anime's pictures")
	return cmd
}

func newEnqueuePictureCommand(ctx *commandContext) *cobra.Command {
	var filename string

	cmd := &cobra.Command{
		Use:   "picture <url>",
		Short: "Download one picture",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return postEnqueue(cmd, ctx, "/api/picture/fetch", api.PictureFetchRequest{
				URL:      strings.TrimSpace(args[0]),
				Filename: strings.TrimSpace(filename),
			})
		},
	}

	cmd.Flags().StringVar(&filename, "filename", "", "Override the stored file name")
	return cmd
}
