package model

import "time"

// Priority tiers used by the action plan
const (
	PriorityHigh   = "High"
	PriorityMedium = "Medium"
	PriorityLow    = "Low"
)

// SentimentCounts buckets answers by sentiment
type SentimentCounts struct {
	Positive int `json:"positive"`
	Neutral  int `json:"neutral"`
	Negative int `json:"negative"`
}

// Total is the number of classified answers
func (s SentimentCounts) Total() int {
	return s.Positive + s.Neutral + s.Negative
}

// ActionItem is one prioritised recommendation
type ActionItem struct {
	Priority  string `json:"priority"`
	Action    string `json:"action"`
	Rationale string `json:"rationale"`
}

// InsightReport is generated lazily per survey. Each generation replaces the previous one.
type InsightReport struct {
	SurveyID         string          `json:"survey_id,omitempty"`
	ExecutiveSummary string          `json:"executive_summary"`
	Themes           []string        `json:"themes"`
	KeyPainPoints    []string        `json:"key_pain_points"`
	Patterns         []string        `json:"patterns"`
	Recommendations  []string        `json:"recommendations"`
	ActionPlan       []ActionItem    `json:"action_plan"`
	SentimentCounts  SentimentCounts `json:"sentiment_counts"`
	GeneratedAt      time.Time       `json:"generated_at"`
}

// SurveyStats is the aggregate snapshot from GET /api/surveys/:id/stats
type SurveyStats struct {
	Total           int             `json:"total"`
	Completed       int             `json:"completed"`
	CompletionRate  float64         `json:"completion_rate"`
	AnswerCount     int             `json:"answer_count"`
	SentimentCounts SentimentCounts `json:"sentimentCounts"`
}
