package model

// QuestionType is the categorical kind of a question
type QuestionType string

const (
	QuestionTypeOpenEnded      QuestionType = "open_ended"
	QuestionTypeRating         QuestionType = "rating"
	QuestionTypeMultipleChoice QuestionType = "multiple_choice"
	QuestionTypeYesNo          QuestionType = "yes_no"
)

// Question is immutable once fetched; its position in Survey.Questions is its order
type Question struct {
	ID            string       `json:"id"`
	Text          string       `json:"text"`
	Type          QuestionType `json:"type"`
	AllowFollowUp bool         `json:"allow_followup"` // server-side follow-up logic may trigger
	FollowUpLogic string       `json:"follow_up_logic,omitempty"`
}
