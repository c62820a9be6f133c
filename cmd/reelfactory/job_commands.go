package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"reelfactory/internal/daemonctl"
	"reelfactory/internal/ipc"
	"reelfactory/internal/jobs"
	"reelfactory/internal/workflow"
)

func newStartCommand(ctx *commandContext) *cobra.Command {
	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start a content or video job",
	}

	var count int
	contentCmd := &cobra.Command{
		Use:   "content",
		Short: "Generate and publish a batch of image posts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return startJob(ctx, cmd, ipc.StartRequest{Kind: string(jobs.KindContent), Count: count})
		},
	}
	contentCmd.Flags().IntVarP(&count, "count", "n", 0, "Number of posts to generate (default from config)")

	var (
		prompt   string
		niche    string
		scenes   int
		duration int
	)
	videoCmd := &cobra.Command{
		Use:   "video",
		Short: "Generate a multi-scene video",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(prompt) == "" {
				return fmt.Errorf("--prompt is required")
			}
			return startJob(ctx, cmd, ipc.StartRequest{
				Kind:          string(jobs.KindVideo),
				Prompt:        prompt,
				Niche:         niche,
				SceneCount:    scenes,
				TotalDuration: duration,
			})
		},
	}
	videoCmd.Flags().StringVarP(&prompt, "prompt", "p", "", "Video concept")
	videoCmd.Flags().StringVar(&niche, "niche", "", "Audience niche")
	videoCmd.Flags().IntVar(&scenes, "scenes", 0, "Scene count (default from config)")
	videoCmd.Flags().IntVar(&duration, "duration", 0, "Total duration in seconds (default from config)")

	startCmd.AddCommand(contentCmd, videoCmd)
	return startCmd
}

func startJob(ctx *commandContext, cmd *cobra.Command, req ipc.StartRequest) error {
	return ctx.withClient(func(client *ipc.Client) error {
		resp, err := client.Start(req)
		if err != nil {
			return err
		}
		return render(ctx, cmd, resp, func() error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Started %s job %s\n", resp.Kind, resp.JobID)
			fmt.Fprintf(out, "Units: %d, estimated %ds\n", resp.TotalUnits, resp.EstimatedSeconds)
			return nil
		})
	})
}

func newStopCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stop <job-id>",
		Short: "Cancel a running job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jobID := strings.TrimSpace(args[0])
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Stop(jobID)
				if err != nil {
					return err
				}
				return render(ctx, cmd, resp, func() error {
					if resp.Stopped {
						fmt.Fprintf(cmd.OutOrStdout(), "Job %s stopping\n", jobID)
					} else {
						fmt.Fprintf(cmd.OutOrStdout(), "Job %s was not running\n", jobID)
					}
					return nil
				})
			})
		},
	}
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var kind string
	var recent int
	var health bool
	cmd := &cobra.Command{
		Use:   "status [job-id]",
		Short: "Show a job, or daemon status when no job is given",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if health || (len(args) == 0 && strings.TrimSpace(kind) == "") {
				return showDaemonStatus(ctx, cmd, recent)
			}
			jobID := ""
			if len(args) == 1 {
				jobID = strings.TrimSpace(args[0])
			}
			return ctx.withClient(func(client *ipc.Client) error {
				view, err := client.Status(jobID, kind)
				if err != nil {
					return err
				}
				return render(ctx, cmd, view, func() error {
					printJobView(cmd.OutOrStdout(), view, shouldColorize(cmd.OutOrStdout()))
					return nil
				})
			})
		},
	}
	cmd.Flags().StringVarP(&kind, "kind", "k", "", "Show the latest running job of this kind")
	cmd.Flags().IntVar(&recent, "recent", 10, "Recent jobs listed in daemon status")
	cmd.Flags().BoolVar(&health, "health", false, "Show daemon and pipeline stage health")
	return cmd
}

func showDaemonStatus(ctx *commandContext, cmd *cobra.Command, recent int) error {
	snapshot, err := daemonctl.BuildStatusSnapshot(cmd.Context(), ctx.socketPath(), ctx.configValue(), recent)
	if err != nil {
		return err
	}
	return render(ctx, cmd, snapshot, func() error {
		out := cmd.OutOrStdout()
		colorize := shouldColorize(out)

		writeSection(out, "Daemon", colorize)
		if snapshot.Running && snapshot.Daemon != nil {
			d := snapshot.Daemon
			fmt.Fprintln(out, renderStatusLine("Daemon", statusOK, fmt.Sprintf("running (pid %d)", d.PID), colorize))
			fmt.Fprintln(out, renderStatusLine("Active jobs", statusInfo, strconv.Itoa(len(d.ActiveJobs)), colorize))
			fmt.Fprintln(out, renderStatusLine("Subscribers", statusInfo, strconv.Itoa(d.Subscribers), colorize))
			if d.DroppedEvents > 0 {
				fmt.Fprintln(out, renderStatusLine("Dropped events", statusWarn, strconv.FormatUint(d.DroppedEvents, 10), colorize))
			}
			if d.EventsAddr != "" {
				fmt.Fprintln(out, renderStatusLine("Events", statusInfo, "ws://"+d.EventsAddr+"/events", colorize))
			}
			if d.MetricsAddr != "" {
				fmt.Fprintln(out, renderStatusLine("Metrics", statusInfo, "http://"+d.MetricsAddr+"/metrics", colorize))
			}
			if d.LastError != "" {
				fmt.Fprintln(out, renderStatusLine("Last error", statusError, d.LastError, colorize))
			}
		} else {
			fmt.Fprintln(out, renderStatusLine("Daemon", statusWarn, "not running", colorize))
		}
		fmt.Fprintln(out)

		writeSection(out, "Preflight", colorize)
		for _, result := range snapshot.Preflight {
			fmt.Fprintln(out, renderStatusLine(result.Name, passFail(result.Passed), result.Detail, colorize))
		}

		if snapshot.Daemon != nil && len(snapshot.Daemon.Pipelines) > 0 {
			fmt.Fprintln(out)
			writeSection(out, "Pipelines", colorize)
			for _, p := range snapshot.Daemon.Pipelines {
				for _, st := range p.Stages {
					label := fmt.Sprintf("%s/%s", p.Kind, st.Name)
					detail := st.Detail
					if st.Ready && detail == "" {
						detail = "ready"
					}
					fmt.Fprintln(out, renderStatusLine(label, passFail(st.Ready), detail, colorize))
				}
			}
		}

		fmt.Fprintln(out)
		writeSection(out, "Recent Jobs", colorize)
		if len(snapshot.RecentJobs) == 0 {
			fmt.Fprintln(out, "No jobs yet")
			return nil
		}
		fmt.Fprint(out, jobsTable(snapshot.RecentJobs))
		return nil
	})
}

func printJobView(out io.Writer, view *workflow.StatusView, colorize bool) {
	if view == nil || view.Job == nil {
		fmt.Fprintln(out, "No running job")
		return
	}
	job := view.Job
	writeSection(out, fmt.Sprintf("%s job %s", job.Kind, job.ID), colorize)
	fmt.Fprintln(out, renderStatusLine("State", jobStateKind(job.State), string(job.State), colorize))
	fmt.Fprintln(out, renderStatusLine("Progress", statusInfo,
		fmt.Sprintf("%s (%d/%d)", formatProgress(job.Progress), job.CompletedUnits, job.TotalUnits), colorize))
	if job.CurrentStage != "" {
		fmt.Fprintln(out, renderStatusLine("Stage", statusInfo, job.CurrentStage, colorize))
	}
	if job.ErrorMessage != "" {
		fmt.Fprintln(out, renderStatusLine("Error", statusError, job.ErrorMessage, colorize))
	}
	fmt.Fprintln(out, renderStatusLine("Started", statusInfo, formatTime(job.StartedAt), colorize))
	if job.CompletedAt != nil {
		fmt.Fprintln(out, renderStatusLine("Finished", statusInfo, formatTime(job.CompletedAt), colorize))
	}

	if v := view.Video; v != nil {
		fmt.Fprintln(out)
		printVideo(out, "Video", v, colorize)
	}
	if len(view.Posts) > 0 {
		fmt.Fprintln(out)
		writeSection(out, "Posts", colorize)
		fmt.Fprint(out, postsTable(view.Posts))
	}
}
