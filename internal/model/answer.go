package model

// ResponseStatus is the lifecycle state of one respondent's response
type ResponseStatus string

const (
	ResponseInProgress ResponseStatus = "in_progress"
	ResponseCompleted  ResponseStatus = "completed"
)

// Channel tags sent when a response is started
const (
	ChannelWeb      = "web"
	ChannelWhatsApp = "whatsapp"
	ChannelTerminal = "terminal"
)

// StartResponseRequest is the body of POST /api/surveys/:id/responses/start
type StartResponseRequest struct {
	Channel string `json:"channel"`
}

// StartResponseResult carries the id of the freshly started response
type StartResponseResult struct {
	ResponseID string `json:"responseId"`
}

// AnswerRequest is the body of POST /api/responses/:id/answer
type AnswerRequest struct {
	QuestionID string `json:"questionId"`
	AnswerText string `json:"answerText"`
}

// AnswerAck acknowledges a submitted answer. FollowUp is empty when no follow-up applies.
type AnswerAck struct {
	FollowUp string `json:"followUp,omitempty"`
}

// HasFollowUp reports whether the server asked a follow-up question
func (a *AnswerAck) HasFollowUp() bool {
	return a != nil && a.FollowUp != ""
}
