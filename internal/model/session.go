package model

import "time"

// Role identifies who authored a transcript message
type Role string

const (
	RoleBot        Role = "bot"
	RoleRespondent Role = "respondent"
)

// Message is one entry of the conversational transcript
type Message struct {
	ID            string    `json:"id" bson:"id"`
	Role          Role      `json:"role" bson:"role"`
	Text          string    `json:"text" bson:"text"`
	QuestionLabel string    `json:"questionLabel,omitempty" bson:"questionLabel,omitempty"`
	FollowUp      bool      `json:"isFollowUp,omitempty" bson:"isFollowUp,omitempty"`
	Final         bool      `json:"isFinal,omitempty" bson:"isFinal,omitempty"`
	Error         bool      `json:"isError,omitempty" bson:"isError,omitempty"`
	SentAt        time.Time `json:"sentAt" bson:"sentAt"`
}

// SessionState is everything needed to rebuild a conversation controller
type SessionState struct {
	SessionID          string    `json:"sessionId"`
	SurveyID           string    `json:"surveyId"`
	ResponseID         string    `json:"responseId"`
	Skin               string    `json:"skin"`
	QuestionIndex      int       `json:"questionIndex"`
	WaitingForFollowUp bool      `json:"waitingForFollowUp"`
	PendingFollowUp    string    `json:"pendingFollowUp,omitempty"`
	Completing         bool      `json:"completing,omitempty"`
	Done               bool      `json:"done"`
	Transcript         []Message `json:"transcript"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

// FollowUpReply is a respondent's answer to a server follow-up prompt. The backend has no
// structured slot for it, so it is archived locally.
type FollowUpReply struct {
	SessionID  string    `json:"sessionId" bson:"sessionId"`
	SurveyID   string    `json:"surveyId" bson:"surveyId"`
	ResponseID string    `json:"responseId" bson:"responseId"`
	QuestionID string    `json:"questionId" bson:"questionId"`
	Prompt     string    `json:"prompt" bson:"prompt"`
	Answer     string    `json:"answer" bson:"answer"`
	AnsweredAt time.Time `json:"answeredAt" bson:"answeredAt"`
}

// TranscriptRecord is the archived transcript of one respondent session
type TranscriptRecord struct {
	SessionID   string          `json:"sessionId" bson:"sessionId"`
	SurveyID    string          `json:"surveyId" bson:"surveyId"`
	ResponseID  string          `json:"responseId" bson:"responseId"`
	Skin        string          `json:"skin" bson:"skin"`
	Completed   bool            `json:"completed" bson:"completed"`
	Messages    []Message       `json:"messages" bson:"messages"`
	FollowUps   []FollowUpReply `json:"followUps,omitempty" bson:"followUps,omitempty"`
	StartedAt   time.Time       `json:"startedAt" bson:"startedAt"`
	CompletedAt *time.Time      `json:"completedAt,omitempty" bson:"completedAt,omitempty"`
	UpdatedAt   time.Time       `json:"updatedAt" bson:"updatedAt"`
}

// SessionView is returned when a respondent session is started or fetched
type SessionView struct {
	SessionID string    `json:"sessionId"`
	Token     string    `json:"token,omitempty"`
	Snapshot  *Snapshot `json:"snapshot"`
}

// Snapshot is the read-only state a renderer draws from
type Snapshot struct {
	SessionID          string    `json:"sessionId,omitempty"`
	SurveyID           string    `json:"surveyId"`
	SurveyTitle        string    `json:"surveyTitle"`
	ResponseID         string    `json:"responseId"`
	Skin               string    `json:"skin"`
	QuestionIndex      int       `json:"questionIndex"`
	TotalQuestions     int       `json:"totalQuestions"`
	WaitingForFollowUp bool      `json:"waitingForFollowUp"`
	Completing         bool      `json:"completing,omitempty"`
	Submitting         bool      `json:"submitting"`
	Done               bool      `json:"done"`
	Progress           int       `json:"progress"`
	Status             string    `json:"status"`
	Transcript         []Message `json:"transcript"`
}
