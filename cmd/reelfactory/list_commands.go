package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"reelfactory/internal/ipc"
	"reelfactory/internal/jobs"
)

type pageFlags struct {
	limit  int
	offset int
}

func (p *pageFlags) bind(cmd *cobra.Command) {
	cmd.Flags().IntVar(&p.limit, "limit", 20, "Maximum rows to return (1-100)")
	cmd.Flags().IntVar(&p.offset, "offset", 0, "Rows to skip")
}

func newPostsCommand(ctx *commandContext) *cobra.Command {
	var page pageFlags
	cmd := &cobra.Command{
		Use:   "posts",
		Short: "List generated posts, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.ListPosts(page.limit, page.offset)
				if err != nil {
					return err
				}
				return render(ctx, cmd, resp, func() error {
					out := cmd.OutOrStdout()
					if len(resp.Posts) == 0 {
						fmt.Fprintln(out, "No posts")
						return nil
					}
					fmt.Fprint(out, postsTable(resp.Posts, withFooter(pageCaption(resp.Offset, len(resp.Posts), resp.Total))))
					return nil
				})
			})
		},
	}
	page.bind(cmd)
	return cmd
}

func newVideosCommand(ctx *commandContext) *cobra.Command {
	var page pageFlags
	cmd := &cobra.Command{
		Use:   "videos",
		Short: "List generated videos, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.ListVideos(page.limit, page.offset)
				if err != nil {
					return err
				}
				return render(ctx, cmd, resp, func() error {
					out := cmd.OutOrStdout()
					if len(resp.Videos) == 0 {
						fmt.Fprintln(out, "No videos")
						return nil
					}
					fmt.Fprint(out, videosTable(resp.Videos, withFooter(pageCaption(resp.Offset, len(resp.Videos), resp.Total))))
					return nil
				})
			})
		},
	}
	page.bind(cmd)
	return cmd
}

func newJobsCommand(ctx *commandContext) *cobra.Command {
	var page pageFlags
	var kind string
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "List recent jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Jobs(kind, page.limit, page.offset)
				if err != nil {
					return err
				}
				return render(ctx, cmd, resp, func() error {
					out := cmd.OutOrStdout()
					if len(resp.Jobs) == 0 {
						fmt.Fprintln(out, "No jobs")
						return nil
					}
					fmt.Fprint(out, jobsTable(resp.Jobs))
					return nil
				})
			})
		},
	}
	cmd.Flags().StringVarP(&kind, "kind", "k", "", "Only jobs of this kind (content or video)")
	page.bind(cmd)
	return cmd
}

func newAgentsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "agents",
		Short: "Show pipeline agents and their activity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Agents()
				if err != nil {
					return err
				}
				return render(ctx, cmd, resp, func() error {
					out := cmd.OutOrStdout()
					if len(resp.Agents) == 0 {
						fmt.Fprintln(out, "No agents registered")
						return nil
					}
					fmt.Fprint(out, agentsTable(resp.Agents))
					return nil
				})
			})
		},
	}
}

func pageCaption(offset, shown, total int) string {
	return fmt.Sprintf("Showing %d-%d of %d", offset+1, offset+shown, total)
}

func jobsTable(list []jobs.Job) string {
	rows := make([][]string, 0, len(list))
	for _, job := range list {
		rows = append(rows, []string{
			shortID(job.ID),
			string(job.Kind),
			string(job.State),
			formatProgress(job.Progress),
			fmt.Sprintf("%d/%d", job.CompletedUnits, job.TotalUnits),
			formatTime(job.StartedAt),
			truncate(job.ErrorMessage, 40),
		})
	}
	return renderTable(
		[]string{"ID", "Kind", "State", "Progress", "Units", "Started", "Error"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight},
	)
}

func postsTable(list []jobs.Post, opts ...tableOption) string {
	rows := make([][]string, 0, len(list))
	for _, post := range list {
		detail := post.Caption
		if post.Status == jobs.PostFailed {
			detail = post.ErrorMessage
		}
		rows = append(rows, []string{
			shortID(post.ID),
			shortID(post.JobID),
			strconv.Itoa(post.Iteration),
			post.Niche,
			string(post.Status),
			truncate(detail, 50),
		})
	}
	return renderTable(
		[]string{"ID", "Job", "#", "Niche", "Status", "Caption / Error"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight},
		opts...,
	)
}

func videosTable(list []jobs.Video, opts ...tableOption) string {
	rows := make([][]string, 0, len(list))
	for _, video := range list {
		title := video.Title
		if title == "" {
			title = video.Prompt
		}
		rows = append(rows, []string{
			shortID(video.ID),
			shortID(video.JobID),
			truncate(title, 40),
			string(video.Status),
			strconv.Itoa(len(video.Scenes)),
			fmt.Sprintf("%ds", video.DurationSeconds),
			video.VideoURL,
		})
	}
	return renderTable(
		[]string{"ID", "Job", "Title", "Status", "Scenes", "Duration", "URL"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight},
		opts...,
	)
}

func scenesTable(scenes []jobs.Scene) string {
	rows := make([][]string, 0, len(scenes))
	for _, scene := range scenes {
		media := "pending"
		if strings.TrimSpace(scene.MediaURL) != "" {
			media = scene.MediaURL
		}
		rows = append(rows, []string{
			strconv.Itoa(scene.Number),
			string(scene.CameraAngle),
			fmt.Sprintf("%ds", scene.Duration),
			truncate(scene.Description, 40),
			media,
		})
	}
	return renderTable(
		[]string{"#", "Angle", "Duration", "Description", "Media"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignRight},
	)
}

func agentsTable(list []jobs.Agent) string {
	rows := make([][]string, 0, len(list))
	for _, agent := range list {
		rows = append(rows, []string{
			agent.Name,
			agent.Role,
			string(agent.Status),
			strconv.Itoa(agent.TasksCompleted),
			formatTime(agent.LastActiveAt),
		})
	}
	return renderTable(
		[]string{"Agent", "Role", "Status", "Tasks", "Last Active"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight},
	)
}
