package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"reelfactory/internal/ipc"
	"reelfactory/internal/workflow"
)

type promptFlags struct {
	niche    string
	topic    string
	mood     string
	style    string
	keywords []string
}

func (p *promptFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&p.niche, "niche", "n", "", "Content niche (see prompt niches)")
	cmd.Flags().StringVarP(&p.topic, "topic", "t", "", "Optional topic for the video")
	cmd.Flags().StringVarP(&p.mood, "mood", "m", "", "energetic, calm, dramatic, playful, professional or casual")
	cmd.Flags().StringVar(&p.style, "style", "", "Visual style; defaults to the niche's first style")
	cmd.Flags().StringSliceVarP(&p.keywords, "keyword", "w", nil, "Keyword to work in (repeatable)")
	_ = cmd.MarkFlagRequired("niche")
}

func (p *promptFlags) options() workflow.PromptOptions {
	return workflow.PromptOptions{
		Niche:       p.niche,
		Topic:       p.topic,
		Mood:        p.mood,
		VisualStyle: p.style,
		Keywords:    p.keywords,
	}
}

func newPromptCommand(ctx *commandContext) *cobra.Command {
	promptCmd := &cobra.Command{
		Use:   "prompt",
		Short: "Draft video prompts with the Video Prompter agent",
	}

	var generate promptFlags
	generateCmd := &cobra.Command{
		Use:   "generate",
		Short: "Draft one video prompt",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Prompt(generate.options())
				if err != nil {
					return err
				}
				return render(ctx, cmd, resp, func() error {
					out := cmd.OutOrStdout()
					printPromptIdea(out, "Video prompt", *resp, shouldColorize(out))
					return nil
				})
			})
		},
	}
	generate.bind(generateCmd)

	var suggest promptFlags
	var count int
	suggestCmd := &cobra.Command{
		Use:   "suggest",
		Short: "Draft several video prompts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.PromptSuggestions(suggest.options(), count)
				if err != nil {
					return err
				}
				return render(ctx, cmd, resp, func() error {
					out := cmd.OutOrStdout()
					if len(resp.Suggestions) == 0 {
						fmt.Fprintln(out, "No suggestions")
						return nil
					}
					colorize := shouldColorize(out)
					for i, idea := range resp.Suggestions {
						if i > 0 {
							fmt.Fprintln(out)
						}
						printPromptIdea(out, fmt.Sprintf("Suggestion %d", i+1), idea, colorize)
					}
					return nil
				})
			})
		},
	}
	suggest.bind(suggestCmd)
	suggestCmd.Flags().IntVarP(&count, "count", "c", workflow.DefaultSuggestions, "Number of suggestions (1-5)")

	nichesCmd := &cobra.Command{
		Use:   "niches [niche]",
		Short: "List prompt niches, or show one niche template",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				if len(args) == 1 {
					info, err := client.NicheInfo(args[0])
					if err != nil {
						return err
					}
					return render(ctx, cmd, info, func() error {
						printNicheTemplate(cmd.OutOrStdout(), args[0], *info)
						return nil
					})
				}
				resp, err := client.Niches()
				if err != nil {
					return err
				}
				return render(ctx, cmd, resp, func() error {
					out := cmd.OutOrStdout()
					for _, niche := range resp.Niches {
						fmt.Fprintln(out, niche)
					}
					return nil
				})
			})
		},
	}

	promptCmd.AddCommand(generateCmd, suggestCmd, nichesCmd)
	return promptCmd
}

func printPromptIdea(out io.Writer, title string, idea workflow.PromptIdea, colorize bool) {
	writeSection(out, title, colorize)
	if idea.Concept != "" {
		fmt.Fprintln(out, renderStatusLine("Concept", statusInfo, idea.Concept, colorize))
	}
	fmt.Fprintln(out, renderStatusLine("Style", statusInfo, idea.VisualStyle, colorize))
	fmt.Fprintln(out, renderStatusLine("Mood", statusInfo, idea.Mood, colorize))
	fmt.Fprintln(out, renderStatusLine("Scenes", statusInfo,
		fmt.Sprintf("%d (%ds)", idea.SuggestedScenes, idea.SuggestedDuration), colorize))
	fmt.Fprintln(out, idea.Prompt)
	fmt.Fprintf(out, "Start it with: reelfactory start video --prompt %s --scenes %d --duration %d\n",
		strconv.Quote(idea.Prompt), idea.SuggestedScenes, idea.SuggestedDuration)
}

func printNicheTemplate(out io.Writer, niche string, t workflow.NicheTemplate) {
	colorize := shouldColorize(out)
	writeSection(out, niche, colorize)
	fmt.Fprintln(out, renderStatusLine("Content", statusInfo, strings.Join(t.ContentTypes, ", "), colorize))
	fmt.Fprintln(out, renderStatusLine("Styles", statusInfo, strings.Join(t.VisualStyles, ", "), colorize))
	fmt.Fprintln(out, renderStatusLine("Visuals", statusInfo, strings.Join(t.CommonElements, ", "), colorize))
	fmt.Fprintln(out, renderStatusLine("Audio", statusInfo, strings.Join(t.AudioElements, ", "), colorize))
}
