package view

import (
	"context"
	"insightai/internal/model"
	"log"
)

const (
	dashboardLoadError = "Failed to load surveys. Is the backend running?"
	deleteFailed       = "Failed to delete survey."
	deletePrompt       = "Delete this survey and all its data?"
	linkCopiedNotice   = "Survey link copied to clipboard!\n\n"
)

// DashboardTotals are the headline numbers above the survey list
type DashboardTotals struct {
	Surveys   int `json:"totalSurveys"`
	Responses int `json:"totalResponses"`
	Active    int `json:"activeSurveys"`
}

// DashboardState is one rendering of the dashboard
type DashboardState struct {
	Surveys []model.Survey  `json:"surveys"`
	Totals  DashboardTotals `json:"totals"`
	Error   string          `json:"error,omitempty"`
}

// Empty reports whether the "no surveys yet" state applies
func (s *DashboardState) Empty() bool {
	return s.Error == "" && len(s.Surveys) == 0
}

// Dashboard lists surveys with share, insights and delete actions
type Dashboard struct {
	api       SurveyAPI
	clipboard Clipboard
	confirmer Confirmer
	navigator Navigator
	publicURL string
}

// NewDashboard creates a dashboard view
func NewDashboard(api SurveyAPI, clipboard Clipboard, confirmer Confirmer, navigator Navigator, publicURL string) *Dashboard {
	if navigator == nil {
		navigator = noopNavigator{}
	}
	return &Dashboard{
		api:       api,
		clipboard: clipboard,
		confirmer: confirmer,
		navigator: navigator,
		publicURL: publicURL,
	}
}

// Load fetches the survey list. A failure becomes a page-level error, not a Go error.
func (d *Dashboard) Load(ctx context.Context) *DashboardState {
	surveys, err := d.api.ListSurveys(ctx)
	if err != nil {
		log.Printf("[Dashboard] failed to list surveys: %v", err)
		return &DashboardState{Surveys: []model.Survey{}, Error: dashboardLoadError}
	}
	if surveys == nil {
		surveys = []model.Survey{}
	}
	return &DashboardState{Surveys: surveys, Totals: Totals(surveys)}
}

// Totals computes the dashboard counters
func Totals(surveys []model.Survey) DashboardTotals {
	t := DashboardTotals{Surveys: len(surveys)}
	for i := range surveys {
		t.Responses += surveys[i].ResponseCount
		if surveys[i].IsActive() {
			t.Active++
		}
	}
	return t
}

// CopyLink puts the survey's share link on the clipboard and returns the notice to show
func (d *Dashboard) CopyLink(surveyID string) (string, error) {
	link := ShareLink(d.publicURL, surveyID)
	if err := d.clipboard.Copy(link); err != nil {
		return "", err
	}
	return linkCopiedNotice + link, nil
}

// Delete removes a survey after confirmation and reloads. It returns nil when the user
// declined.
func (d *Dashboard) Delete(ctx context.Context, surveyID string) (*DashboardState, error) {
	if d.confirmer == nil || !d.confirmer.Confirm(deletePrompt) {
		return nil, nil
	}
	if err := d.api.DeleteSurvey(ctx, surveyID); err != nil {
		log.Printf("[Dashboard] failed to delete survey %s: %v", surveyID, err)
		return nil, userError(err, deleteFailed)
	}
	return d.Load(ctx), nil
}

// Open navigates to a survey's insights
func (d *Dashboard) Open(surveyID string) {
	d.navigator.Navigate(InsightsRoute(surveyID))
}

// Create navigates to the survey designer
func (d *Dashboard) Create() {
	d.navigator.Navigate(RouteCreate)
}
