package main

import (
	"errors"
	"fmt"
	"insightai/internal/view"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

func (c *cli) insightsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "insights",
		Short: "Survey statistics and AI insight reports",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "show <surveyId>",
			Short: "Show statistics and the latest report",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				state := c.insights(cmd).Load(cmd.Context(), args[0])
				if state.Error != "" {
					return errors.New(state.Error)
				}
				printInsights(cmd.OutOrStdout(), state)
				return nil
			},
		},
		&cobra.Command{
			Use:   "generate <surveyId>",
			Short: "Synthesize a new insight report",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				v := c.insights(cmd)
				state := v.Load(cmd.Context(), args[0])
				if state.Error != "" {
					return errors.New(state.Error)
				}
				state, err := v.Generate(cmd.Context(), args[0], state)
				if err != nil {
					return err
				}
				printInsights(cmd.OutOrStdout(), state)
				return nil
			},
		},
	)
	return cmd
}

func (c *cli) insights(cmd *cobra.Command) *view.Insights {
	return view.NewInsights(c.api, stdoutClipboard{out: cmd.OutOrStdout()}, c.cfg.PublicURL)
}

func printInsights(out io.Writer, s *view.InsightsState) {
	if s.Survey != nil {
		fmt.Fprintf(out, "%s\n", s.Survey.Title)
	}
	fmt.Fprintf(out, "Share: %s\n", s.ShareLink)
	if s.Stats != nil {
		fmt.Fprintf(out, "Responses: %d (%d completed, %.0f%%)   Answers: %d\n",
			s.Stats.Total, s.Stats.Completed, s.Stats.CompletionRate, s.Stats.AnswerCount)
	}
	if len(s.Sentiment) > 0 {
		parts := make([]string, 0, len(s.Sentiment))
		for _, slice := range s.Sentiment {
			parts = append(parts, fmt.Sprintf("%s %d", slice.Name, slice.Value))
		}
		fmt.Fprintf(out, "Sentiment: %s\n", strings.Join(parts, ", "))
	}

	r := s.Insights
	if r == nil {
		fmt.Fprintf(out, "\n%s\n", s.EmptyHint)
		return
	}
	fmt.Fprintf(out, "\nExecutive summary\n  %s\n", r.ExecutiveSummary)
	printList(out, "Themes", r.Themes)
	printList(out, "Key pain points", r.KeyPainPoints)
	printList(out, "Patterns", r.Patterns)
	printList(out, "Recommendations", r.Recommendations)
	if len(s.ActionPlan) > 0 {
		fmt.Fprintln(out, "\nAction plan")
		for _, tier := range s.ActionPlan {
			fmt.Fprintf(out, "  [%s]\n", tier.Priority)
			for _, item := range tier.Items {
				fmt.Fprintf(out, "    - %s (%s)\n", item.Action, item.Rationale)
			}
		}
	}
}

func printList(out io.Writer, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(out, "\n%s\n", title)
	for _, item := range items {
		fmt.Fprintf(out, "  - %s\n", item)
	}
}
