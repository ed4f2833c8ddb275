package view

import (
	"context"
	"errors"
	"fmt"
	"insightai/internal/model"
	"log"

	"golang.org/x/sync/errgroup"
)

const (
	insightsLoadError = "Failed to load survey data."
	insightsFailed    = "Failed to generate insights."
)

// ErrNoResponses blocks insight generation before any answer exists
var ErrNoResponses = &Error{
	Message: "No responses yet! Share the survey link first to collect responses.",
	Err:     errors.New("no answers collected"),
}

// SentimentSlice is one non-empty sentiment bucket
type SentimentSlice struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

// ActionTier groups the action plan by priority
type ActionTier struct {
	Priority string             `json:"priority"`
	Items    []model.ActionItem `json:"items"`
}

// InsightsState is one rendering of the insights view
type InsightsState struct {
	Survey      *model.Survey        `json:"survey,omitempty"`
	Insights    *model.InsightReport `json:"insights"`
	Stats       *model.SurveyStats   `json:"stats,omitempty"`
	ShareLink   string               `json:"shareLink"`
	Sentiment   []SentimentSlice     `json:"sentiment"`
	ActionPlan  []ActionTier         `json:"actionPlan"`
	EmptyHint   string               `json:"emptyHint,omitempty"`
	CanGenerate bool                 `json:"canGenerate"`
	Error       string               `json:"error,omitempty"`
}

// Insights shows survey statistics and the AI insight report
type Insights struct {
	api       SurveyAPI
	clipboard Clipboard
	publicURL string
}

// NewInsights creates an insights view
func NewInsights(api SurveyAPI, clipboard Clipboard, publicURL string) *Insights {
	return &Insights{api: api, clipboard: clipboard, publicURL: publicURL}
}

// Load fetches survey, report and stats in parallel. Any failure fails the whole page.
func (v *Insights) Load(ctx context.Context, surveyID string) *InsightsState {
	var (
		survey *model.Survey
		report *model.InsightReport
		stats  *model.SurveyStats
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		survey, err = v.api.GetSurvey(gctx, surveyID)
		return err
	})
	g.Go(func() (err error) {
		report, err = v.api.GetInsights(gctx, surveyID)
		return err
	})
	g.Go(func() (err error) {
		stats, err = v.api.GetSurveyStats(gctx, surveyID)
		return err
	})
	if err := g.Wait(); err != nil {
		log.Printf("[Insights] failed to load survey %s: %v", surveyID, err)
		return &InsightsState{ShareLink: ShareLink(v.publicURL, surveyID), Error: insightsLoadError}
	}
	return v.state(surveyID, survey, report, stats)
}

// Generate runs insight synthesis. It refuses while the survey has no answers.
func (v *Insights) Generate(ctx context.Context, surveyID string, state *InsightsState) (*InsightsState, error) {
	if state == nil {
		state = &InsightsState{ShareLink: ShareLink(v.publicURL, surveyID)}
	}
	if state.Stats != nil && state.Stats.AnswerCount == 0 {
		return state, ErrNoResponses
	}
	report, err := v.api.GenerateInsights(ctx, surveyID)
	if err != nil {
		log.Printf("[Insights] generation failed for %s: %v", surveyID, err)
		uerr := userError(err, insightsFailed)
		next := *state
		next.Error = uerr.Message
		return &next, uerr
	}
	return v.state(surveyID, state.Survey, report, state.Stats), nil
}

// CopyLink puts the share link on the clipboard
func (v *Insights) CopyLink(surveyID string) (string, error) {
	link := ShareLink(v.publicURL, surveyID)
	if err := v.clipboard.Copy(link); err != nil {
		return "", err
	}
	return link, nil
}

func (v *Insights) state(surveyID string, survey *model.Survey, report *model.InsightReport, stats *model.SurveyStats) *InsightsState {
	s := &InsightsState{
		Survey:     survey,
		Insights:   report,
		Stats:      stats,
		ShareLink:  ShareLink(v.publicURL, surveyID),
		Sentiment:  []SentimentSlice{},
		ActionPlan: []ActionTier{},
	}
	if stats != nil {
		s.Sentiment = SentimentBreakdown(stats.SentimentCounts)
		s.CanGenerate = stats.AnswerCount > 0
	}
	if report != nil {
		s.ActionPlan = ActionPlanByPriority(report.ActionPlan)
	} else {
		s.EmptyHint = EmptyHint(stats)
	}
	return s
}

// SentimentBreakdown lists the non-zero sentiment buckets in positive, neutral, negative order
func SentimentBreakdown(c model.SentimentCounts) []SentimentSlice {
	out := []SentimentSlice{}
	for _, s := range []SentimentSlice{
		{Name: "Positive", Value: c.Positive},
		{Name: "Neutral", Value: c.Neutral},
		{Name: "Negative", Value: c.Negative},
	} {
		if s.Value > 0 {
			out = append(out, s)
		}
	}
	return out
}

// ActionPlanByPriority groups items into High, Medium and Low tiers. Items with an
// unrecognised priority land in Low. Empty tiers are omitted.
func ActionPlanByPriority(items []model.ActionItem) []ActionTier {
	order := []string{model.PriorityHigh, model.PriorityMedium, model.PriorityLow}
	byPriority := make(map[string][]model.ActionItem, len(order))
	for _, item := range items {
		p := item.Priority
		if p != model.PriorityHigh && p != model.PriorityMedium {
			p = model.PriorityLow
		}
		byPriority[p] = append(byPriority[p], item)
	}
	tiers := []ActionTier{}
	for _, p := range order {
		if len(byPriority[p]) > 0 {
			tiers = append(tiers, ActionTier{Priority: p, Items: byPriority[p]})
		}
	}
	return tiers
}

// EmptyHint is the copy shown before any report exists
func EmptyHint(stats *model.SurveyStats) string {
	if stats != nil && stats.AnswerCount > 0 {
		return fmt.Sprintf("You have %d answers. Click \"Generate Insights\" to run the AI analysis.", stats.AnswerCount)
	}
	return "Share the survey link above to collect responses, then generate insights."
}
