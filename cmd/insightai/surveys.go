package main

import (
	"errors"
	"fmt"
	"insightai/internal/model"
	"insightai/internal/view"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func (c *cli) dashboard(cmd *cobra.Command, yes bool) *view.Dashboard {
	out := cmd.OutOrStdout()
	return view.NewDashboard(c.api,
		stdoutClipboard{out: out},
		newConfirmer(cmd.InOrStdin(), out, yes),
		terminalNavigator{out: out, publicURL: c.cfg.PublicURL},
		c.cfg.PublicURL)
}

func (c *cli) surveysCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "surveys",
		Short: "List, create, share and delete surveys",
	}
	cmd.AddCommand(c.surveysListCmd(), c.surveysCreateCmd(), c.surveysDeleteCmd(), c.surveysShareCmd())
	return cmd
}

func (c *cli) surveysListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show the dashboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			state := c.dashboard(cmd, false).Load(cmd.Context())
			if state.Error != "" {
				return errors.New(state.Error)
			}
			printDashboard(cmd.OutOrStdout(), state)
			return nil
		},
	}
}

func printDashboard(out io.Writer, state *view.DashboardState) {
	fmt.Fprintf(out, "Surveys: %d   Responses: %d   Active: %d\n\n",
		state.Totals.Surveys, state.Totals.Responses, state.Totals.Active)
	if state.Empty() {
		fmt.Fprintln(out, "No surveys yet. Create one with `insightai surveys create`.")
		return
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tSTATUS\tQUESTIONS\tRESPONSES")
	for i := range state.Surveys {
		s := &state.Surveys[i]
		status := string(s.Status)
		if status == "" {
			status = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\n", s.Key(), s.Title, status, len(s.Questions), s.ResponseCount)
	}
	w.Flush()
}

func (c *cli) surveysCreateCmd() *cobra.Command {
	form := view.NewDesignerForm()
	var save bool
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Generate a survey from a research goal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			designer := view.NewDesigner(c.api, terminalNavigator{out: out, publicURL: c.cfg.PublicURL})
			preview, err := designer.Generate(cmd.Context(), form)
			if err != nil {
				return err
			}
			printPreview(out, preview)
			if save {
				designer.Save(preview)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&form.ResearchGoal, "goal", "g", "", "research goal")
	cmd.Flags().StringVarP(&form.TargetAudience, "audience", "a", "", "target audience")
	cmd.Flags().IntVarP(&form.NumQuestions, "questions", "n", form.NumQuestions,
		fmt.Sprintf("number of questions (%d-%d)", model.MinQuestions, model.MaxQuestions))
	cmd.Flags().BoolVar(&save, "open", false, "print the insights link once generated")
	return cmd
}

func printPreview(out io.Writer, s *model.Survey) {
	fmt.Fprintf(out, "%s\n", s.Title)
	if s.ResearchGoal != "" {
		fmt.Fprintf(out, "Goal: %s\n", s.ResearchGoal)
	}
	fmt.Fprintln(out)
	for i, q := range s.Questions {
		fmt.Fprintf(out, "%2d. %s\n", i+1, q.Text)
	}
}

func (c *cli) surveysDeleteCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <surveyId>",
		Short: "Delete a survey and all its data",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			state, err := c.dashboard(cmd, yes).Delete(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if state == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
				return nil
			}
			printDashboard(cmd.OutOrStdout(), state)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

func (c *cli) surveysShareCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "share <surveyId>",
		Short: "Print the respondent link",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if _, err := view.NewInsights(c.api, stdoutClipboard{out: out}, c.cfg.PublicURL).CopyLink(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(out, "WhatsApp preview: %s%s\n", c.cfg.PublicURL, view.WhatsAppRoute(args[0]))
			return nil
		},
	}
}
