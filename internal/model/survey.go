package model

import "time"

// SurveyStatus is the lifecycle state reported by the backend
type SurveyStatus string

const (
	SurveyActive SurveyStatus = "active"
	SurveyClosed SurveyStatus = "closed"
)

// Survey is the backend's survey document. The client only ever holds a read-only copy.
type Survey struct {
	ID             string       `json:"id"`
	SurveyID       string       `json:"surveyId,omitempty"` // generator previews carry this instead of id
	Title          string       `json:"title"`
	ResearchGoal   string       `json:"research_goal"`
	TargetAudience string       `json:"target_audience,omitempty"`
	Status         SurveyStatus `json:"status,omitempty"`
	Questions      []Question   `json:"questions"`
	CreatedAt      time.Time    `json:"created_at"`
	ResponseCount  int          `json:"response_count"`
}

// Key returns the survey identifier whichever field carried it
func (s *Survey) Key() string {
	if s.ID != "" {
		return s.ID
	}
	return s.SurveyID
}

// IsActive reports whether the survey still collects responses
func (s *Survey) IsActive() bool {
	return s.Status == SurveyActive
}

// QuestionAt returns the question at position i, or nil when out of range
func (s *Survey) QuestionAt(i int) *Question {
	if i < 0 || i >= len(s.Questions) {
		return nil
	}
	return &s.Questions[i]
}

// GenerateSurveyRequest is the body of POST /api/surveys/generate
type GenerateSurveyRequest struct {
	ResearchGoal   string `json:"researchGoal"`
	TargetAudience string `json:"targetAudience,omitempty"`
	NumQuestions   int    `json:"numQuestions"`
}

// Question counts accepted by the generator
const (
	MinQuestions     = 3
	MaxQuestions     = 12
	DefaultQuestions = 6
)
