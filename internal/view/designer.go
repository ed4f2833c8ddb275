package view

import (
	"context"
	"errors"
	"insightai/internal/model"
	"log"
	"strings"
)

const generateFailed = "Failed to generate survey. Check your API key and backend."

// ErrEmptyGoal is returned when the research goal is blank
var ErrEmptyGoal = &Error{Message: "Please enter a research goal", Err: errors.New("empty research goal")}

// AudienceOptions are the target audience presets
var AudienceOptions = []string{
	"Startup founders",
	"Product managers",
	"Research students",
	"SMEs / Small businesses",
	"University students",
	"NGOs",
	"Customers / End users",
	"Healthcare professionals",
	"Teachers / Educators",
	"General public",
}

// ExampleGoals seed the research goal field
var ExampleGoals = []string{
	"Understand why users abandon their shopping cart before checkout",
	"Discover pain points for remote team collaboration tools",
	"Validate product-market fit for a B2B SaaS analytics dashboard",
	"Explore challenges faced by small business owners managing finances",
}

// DesignerForm is the survey designer input
type DesignerForm struct {
	ResearchGoal   string `json:"researchGoal"`
	TargetAudience string `json:"targetAudience,omitempty"`
	NumQuestions   int    `json:"numQuestions"`
}

// NewDesignerForm returns the form defaults
func NewDesignerForm() DesignerForm {
	return DesignerForm{NumQuestions: model.DefaultQuestions}
}

// ClampQuestions keeps n within what the generator accepts
func ClampQuestions(n int) int {
	return max(model.MinQuestions, min(model.MaxQuestions, n))
}

// Designer turns a research goal into a generated survey preview
type Designer struct {
	api       SurveyAPI
	navigator Navigator
}

// NewDesigner creates a survey designer view
func NewDesigner(api SurveyAPI, navigator Navigator) *Designer {
	if navigator == nil {
		navigator = noopNavigator{}
	}
	return &Designer{api: api, navigator: navigator}
}

// Generate validates the form and asks the backend for a survey preview
func (d *Designer) Generate(ctx context.Context, form DesignerForm) (*model.Survey, error) {
	goal := strings.TrimSpace(form.ResearchGoal)
	if goal == "" {
		return nil, ErrEmptyGoal
	}
	req := model.GenerateSurveyRequest{
		ResearchGoal:   goal,
		TargetAudience: strings.TrimSpace(form.TargetAudience),
		NumQuestions:   ClampQuestions(form.NumQuestions),
	}
	preview, err := d.api.GenerateSurvey(ctx, req)
	if err != nil {
		log.Printf("[Designer] generation failed: %v", err)
		return nil, userError(err, generateFailed)
	}
	return preview, nil
}

// Save confirms a preview by opening its insights view. The backend stored it on generation.
func (d *Designer) Save(preview *model.Survey) {
	d.navigator.Navigate(InsightsRoute(preview.Key()))
}
