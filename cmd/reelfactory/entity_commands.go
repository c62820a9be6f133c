package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"reelfactory/internal/ipc"
	"reelfactory/internal/jobs"
)

func newPostCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "post <id>",
		Short: "Show one post",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.GetPost(args[0])
				if err != nil {
					return err
				}
				return render(ctx, cmd, resp.Post, func() error {
					out := cmd.OutOrStdout()
					printPost(out, resp.Post, shouldColorize(out))
					return nil
				})
			})
		},
	}
}

func newVideoCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "video <id>",
		Short: "Show one video and its scenes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.GetVideo(args[0])
				if err != nil {
					return err
				}
				return render(ctx, cmd, resp.Video, func() error {
					out := cmd.OutOrStdout()
					printVideo(out, "Video "+resp.Video.ID, resp.Video, shouldColorize(out))
					return nil
				})
			})
		},
	}
}

func printPost(out io.Writer, post *jobs.Post, colorize bool) {
	writeSection(out, "Post "+post.ID, colorize)
	status := statusOK
	if post.Status == jobs.PostFailed {
		status = statusError
	}
	fmt.Fprintln(out, renderStatusLine("Status", status, string(post.Status), colorize))
	fmt.Fprintln(out, renderStatusLine("Job", statusInfo, fmt.Sprintf("%s (iteration %d)", post.JobID, post.Iteration), colorize))
	if post.Niche != "" {
		fmt.Fprintln(out, renderStatusLine("Niche", statusInfo, post.Niche, colorize))
	}
	if len(post.Keywords) > 0 {
		fmt.Fprintln(out, renderStatusLine("Keywords", statusInfo, strings.Join(post.Keywords, ", "), colorize))
	}
	if post.Caption != "" {
		fmt.Fprintln(out, renderStatusLine("Caption", statusInfo, post.Caption, colorize))
	}
	if post.MediaURL != "" {
		fmt.Fprintln(out, renderStatusLine("Media", statusInfo, post.MediaURL, colorize))
	}
	if post.ExternalPostID != "" {
		fmt.Fprintln(out, renderStatusLine("Published", statusOK, fmt.Sprintf("%s at %s", post.ExternalPostID, formatTime(post.PublishedAt)), colorize))
	}
	if post.ErrorMessage != "" {
		fmt.Fprintln(out, renderStatusLine("Error", statusError, post.ErrorMessage, colorize))
	}
}

func printVideo(out io.Writer, title string, v *jobs.Video, colorize bool) {
	writeSection(out, title, colorize)
	if v.Title != "" {
		fmt.Fprintln(out, renderStatusLine("Title", statusInfo, v.Title, colorize))
	}
	fmt.Fprintln(out, renderStatusLine("Status", videoStatusKind(v.Status), string(v.Status), colorize))
	fmt.Fprintln(out, renderStatusLine("Prompt", statusInfo, v.Prompt, colorize))
	if v.Niche != "" {
		fmt.Fprintln(out, renderStatusLine("Niche", statusInfo, v.Niche, colorize))
	}
	if v.DurationSeconds > 0 {
		fmt.Fprintln(out, renderStatusLine("Duration", statusInfo, strconv.Itoa(v.DurationSeconds)+"s", colorize))
	}
	if v.VideoURL != "" {
		fmt.Fprintln(out, renderStatusLine("URL", statusOK, v.VideoURL, colorize))
	}
	if v.ErrorMessage != "" {
		fmt.Fprintln(out, renderStatusLine("Error", statusError, v.ErrorMessage, colorize))
	}
	if len(v.Scenes) > 0 {
		fmt.Fprint(out, scenesTable(v.Scenes))
	}
}

func videoStatusKind(status jobs.VideoStatus) statusKind {
	switch status {
	case jobs.VideoCompleted:
		return statusOK
	case jobs.VideoFailed:
		return statusError
	default:
		return statusInfo
	}
}
