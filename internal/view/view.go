// Package view holds the researcher-facing views: dashboard, survey designer and insights.
// Views keep no state between loads; each Load fetches fresh data from the backend.
// Clipboard, confirmation prompts and navigation are injected so views run anywhere.
package view

import (
	"context"
	"fmt"
	"insightai/internal/model"
	"insightai/internal/service"
	"net/url"
)

// Clipboard receives copied text
type Clipboard interface {
	Copy(text string) error
}

// Confirmer asks the user a yes/no question
type Confirmer interface {
	Confirm(prompt string) bool
}

// Navigator moves to another view
type Navigator interface {
	Navigate(route string)
}

// SurveyAPI is the backend surface the views use
type SurveyAPI interface {
	ListSurveys(ctx context.Context) ([]model.Survey, error)
	GetSurvey(ctx context.Context, surveyID string) (*model.Survey, error)
	DeleteSurvey(ctx context.Context, surveyID string) error
	GenerateSurvey(ctx context.Context, req model.GenerateSurveyRequest) (*model.Survey, error)
	GenerateInsights(ctx context.Context, surveyID string) (*model.InsightReport, error)
	GetInsights(ctx context.Context, surveyID string) (*model.InsightReport, error)
	GetSurveyStats(ctx context.Context, surveyID string) (*model.SurveyStats, error)
}

var _ SurveyAPI = (*service.APIClient)(nil)

// Routes
const (
	RouteDashboard = "/"
	RouteCreate    = "/create"
)

func InsightsRoute(surveyID string) string {
	return fmt.Sprintf("/survey/%s/insights", url.PathEscape(surveyID))
}

func TakeRoute(surveyID string) string {
	return fmt.Sprintf("/survey/%s/take", url.PathEscape(surveyID))
}

func WhatsAppRoute(surveyID string) string {
	return fmt.Sprintf("/survey/%s/whatsapp", url.PathEscape(surveyID))
}

// ShareLink is the respondent link for a survey
func ShareLink(publicURL, surveyID string) string {
	return publicURL + TakeRoute(surveyID)
}

// Error is a failure with the text to show the user
type Error struct {
	Message string
	Err     error
}

func (e *Error) Error() string { return e.Message }
func (e *Error) Unwrap() error { return e.Err }

func userError(err error, fallback string) *Error {
	return &Error{Message: service.UserMessage(err, fallback), Err: err}
}

type noopNavigator struct{}

func (noopNavigator) Navigate(string) {}
