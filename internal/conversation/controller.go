// Package conversation drives a respondent through a survey as a chat: one question at a
// time, with server-suggested follow-up questions interleaved. Every chat skin and renderer
// shares this controller.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"insightai/internal/model"
	"log"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNoQuestions  = errors.New("survey has no questions")
	ErrNoResponse   = errors.New("response id is required")
	ErrEmptyInput   = errors.New("answer is empty")
	ErrBusy         = errors.New("a submission is already in flight")
	ErrDone         = errors.New("conversation is complete")
	ErrSubmitFailed = errors.New("submission failed")
	ErrInvalidState = errors.New("session state does not match survey")
)

// Backend is the slice of the survey API the controller needs
type Backend interface {
	SubmitAnswer(ctx context.Context, responseID string, req model.AnswerRequest) (*model.AnswerAck, error)
	CompleteResponse(ctx context.Context, responseID string) error
}

// FollowUpRecorder receives follow-up replies, which the backend has no structured slot for
type FollowUpRecorder interface {
	RecordFollowUp(ctx context.Context, reply model.FollowUpReply) error
}

// Option configures a Controller
type Option func(*Controller)

// WithPacing overrides the skin's delay before each bot message
func WithPacing(d time.Duration) Option {
	return func(c *Controller) { c.pacing = d }
}

// WithRecorder archives follow-up replies
func WithRecorder(r FollowUpRecorder) Option {
	return func(c *Controller) { c.recorder = r }
}

// WithSessionID tags snapshots and archived replies with a session id
func WithSessionID(id string) Option {
	return func(c *Controller) { c.sessionID = id }
}

// WithObserver is called with a fresh snapshot after every state change
func WithObserver(fn func(*model.Snapshot)) Option {
	return func(c *Controller) { c.observer = fn }
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// Controller is the conversational response state machine for one respondent.
// It is safe for concurrent use; submissions are strictly serialized.
type Controller struct {
	survey     *model.Survey
	responseID string
	sessionID  string
	skin       Skin
	backend    Backend
	recorder   FollowUpRecorder
	pacing     time.Duration
	observer   func(*model.Snapshot)
	now        func() time.Time

	mu                 sync.Mutex
	index              int
	waitingForFollowUp bool
	pendingFollowUp    string
	completing         bool // answers are in, only CompleteResponse is outstanding
	done               bool
	submitting         bool
	transcript         []model.Message
	createdAt          time.Time
	updatedAt          time.Time
}

// New creates a controller for a freshly started response and seeds the greeting
func New(survey *model.Survey, responseID string, backend Backend, skin Skin, opts ...Option) (*Controller, error) {
	c, err := newController(survey, responseID, backend, skin, opts)
	if err != nil {
		return nil, err
	}
	c.createdAt = c.now()
	c.append(model.Message{
		Role: model.RoleBot,
		Text: skin.Greeting(survey.Title, survey.Questions[0].Text),
	})
	return c, nil
}

// Restore rebuilds a controller from persisted state
func Restore(state *model.SessionState, survey *model.Survey, backend Backend, skin Skin, opts ...Option) (*Controller, error) {
	if state == nil || state.SurveyID != survey.ID {
		return nil, ErrInvalidState
	}
	c, err := newController(survey, state.ResponseID, backend, skin, opts)
	if err != nil {
		return nil, err
	}
	if state.QuestionIndex < 0 || state.QuestionIndex > len(survey.Questions) ||
		(!state.Done && state.QuestionIndex == len(survey.Questions)) ||
		(state.Completing && (state.Done || state.QuestionIndex != len(survey.Questions)-1)) {
		return nil, ErrInvalidState
	}
	if c.sessionID == "" {
		c.sessionID = state.SessionID
	}
	c.index = state.QuestionIndex
	c.waitingForFollowUp = state.WaitingForFollowUp
	c.pendingFollowUp = state.PendingFollowUp
	c.completing = state.Completing
	c.done = state.Done
	c.transcript = append([]model.Message(nil), state.Transcript...)
	c.createdAt = state.CreatedAt
	c.updatedAt = state.UpdatedAt
	return c, nil
}

func newController(survey *model.Survey, responseID string, backend Backend, skin Skin, opts []Option) (*Controller, error) {
	if survey == nil || len(survey.Questions) == 0 {
		return nil, ErrNoQuestions
	}
	if responseID == "" {
		return nil, ErrNoResponse
	}
	c := &Controller{
		survey:     survey,
		responseID: responseID,
		skin:       skin,
		backend:    backend,
		pacing:     skin.Pacing(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Submit handles one respondent input. Transport failures are reported in the transcript
// and returned wrapped in ErrSubmitFailed; the state is left as it was so the respondent
// can simply try again.
func (c *Controller) Submit(ctx context.Context, text string) error {
	answer := strings.TrimSpace(text)
	if answer == "" {
		return ErrEmptyInput
	}

	c.mu.Lock()
	if c.done {
		c.mu.Unlock()
		return ErrDone
	}
	if c.submitting {
		c.mu.Unlock()
		return ErrBusy
	}
	c.submitting = true
	index := c.index
	completing := c.completing
	waiting := c.waitingForFollowUp
	prompt := c.pendingFollowUp
	c.appendLocked(model.Message{Role: model.RoleRespondent, Text: answer})
	c.mu.Unlock()
	c.notify()

	defer func() {
		c.mu.Lock()
		c.submitting = false
		c.mu.Unlock()
		c.notify()
	}()

	if completing {
		// every answer was accepted; a retry only finishes the response
		return c.complete(ctx)
	}

	question := c.survey.Questions[index]

	if waiting {
		// The follow-up reply is not sent as a structured answer.
		c.recordFollowUp(ctx, question.ID, prompt, answer)
		return c.advance(ctx, index)
	}

	ack, err := c.backend.SubmitAnswer(ctx, c.responseID, model.AnswerRequest{
		QuestionID: question.ID,
		AnswerText: answer,
	})
	if err != nil {
		log.Printf("[Conversation] submit failed for response %s question %s: %v", c.responseID, question.ID, err)
		c.fail(ctx)
		return fmt.Errorf("%w: %v", ErrSubmitFailed, err)
	}

	if ack.HasFollowUp() {
		c.pause(ctx)
		c.mu.Lock()
		c.appendLocked(model.Message{Role: model.RoleBot, Text: ack.FollowUp, FollowUp: true})
		c.waitingForFollowUp = true
		c.pendingFollowUp = ack.FollowUp
		c.mu.Unlock()
		c.notify()
		return nil
	}

	return c.advance(ctx, index)
}

// advance moves past the question at index: either asks the next one or completes
func (c *Controller) advance(ctx context.Context, index int) error {
	next := index + 1
	total := len(c.survey.Questions)

	if next < total {
		c.pause(ctx)
		c.mu.Lock()
		c.appendLocked(model.Message{
			Role:          model.RoleBot,
			Text:          c.survey.Questions[next].Text,
			QuestionLabel: c.skin.QuestionLabel(next, total),
		})
		c.index = next
		c.waitingForFollowUp = false
		c.pendingFollowUp = ""
		c.mu.Unlock()
		c.notify()
		return nil
	}

	return c.complete(ctx)
}

// complete closes the response after the last question. On failure the controller waits
// in the completing state so the next input retries only the completion.
func (c *Controller) complete(ctx context.Context) error {
	if err := c.backend.CompleteResponse(ctx, c.responseID); err != nil {
		log.Printf("[Conversation] complete failed for response %s: %v", c.responseID, err)
		c.mu.Lock()
		c.completing = true
		c.waitingForFollowUp = false
		c.pendingFollowUp = ""
		c.mu.Unlock()
		c.fail(ctx)
		return fmt.Errorf("%w: %v", ErrSubmitFailed, err)
	}

	c.pause(ctx)
	c.mu.Lock()
	c.appendLocked(model.Message{Role: model.RoleBot, Text: c.skin.Closing(), Final: true})
	c.index = len(c.survey.Questions)
	c.waitingForFollowUp = false
	c.pendingFollowUp = ""
	c.completing = false
	c.done = true
	c.mu.Unlock()
	c.notify()
	return nil
}

func (c *Controller) fail(ctx context.Context) {
	c.pause(ctx)
	c.append(model.Message{Role: model.RoleBot, Text: c.skin.ErrorText(), Error: true})
}

func (c *Controller) recordFollowUp(ctx context.Context, questionID, prompt, answer string) {
	if c.recorder == nil {
		return
	}
	reply := model.FollowUpReply{
		SessionID:  c.sessionID,
		SurveyID:   c.survey.ID,
		ResponseID: c.responseID,
		QuestionID: questionID,
		Prompt:     prompt,
		Answer:     answer,
		AnsweredAt: c.now(),
	}
	if err := c.recorder.RecordFollowUp(ctx, reply); err != nil {
		log.Printf("[Conversation] failed to record follow-up reply for response %s: %v", c.responseID, err)
	}
}

// pause waits out the pacing delay. Cancellation only cuts the delay short.
func (c *Controller) pause(ctx context.Context) {
	if c.pacing <= 0 {
		return
	}
	t := time.NewTimer(c.pacing)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}

func (c *Controller) append(msg model.Message) {
	c.mu.Lock()
	c.appendLocked(msg)
	c.mu.Unlock()
	c.notify()
}

func (c *Controller) appendLocked(msg model.Message) {
	msg.ID = uuid.NewString()
	msg.SentAt = c.now()
	c.transcript = append(c.transcript, msg)
	c.updatedAt = msg.SentAt
}

func (c *Controller) notify() {
	if c.observer == nil {
		return
	}
	c.observer(c.Snapshot())
}

// Progress is round(100 * index / total) until completion, then 100
func (c *Controller) Progress() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.progressLocked()
}

func (c *Controller) progressLocked() int {
	if c.done {
		return 100
	}
	return int(math.Round(100 * float64(c.index) / float64(len(c.survey.Questions))))
}

// Done reports whether the conversation has completed
func (c *Controller) Done() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.done
}

// Submitting reports whether a submission is in flight
func (c *Controller) Submitting() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.submitting
}

func (c *Controller) Survey() *model.Survey { return c.survey }
func (c *Controller) ResponseID() string    { return c.responseID }
func (c *Controller) SessionID() string     { return c.sessionID }
func (c *Controller) Skin() Skin            { return c.skin }

// Snapshot returns a copy of the renderable state
func (c *Controller) Snapshot() *model.Snapshot {
	c.mu.Lock()
	snap := &model.Snapshot{
		SessionID:          c.sessionID,
		SurveyID:           c.survey.ID,
		SurveyTitle:        c.survey.Title,
		ResponseID:         c.responseID,
		Skin:               c.skin.Name(),
		QuestionIndex:      c.index,
		TotalQuestions:     len(c.survey.Questions),
		WaitingForFollowUp: c.waitingForFollowUp,
		Completing:         c.completing,
		Submitting:         c.submitting,
		Done:               c.done,
		Progress:           c.progressLocked(),
		Transcript:         append([]model.Message(nil), c.transcript...),
	}
	c.mu.Unlock()
	snap.Status = c.skin.Status(snap)
	return snap
}

// State returns the persistable state. An in-flight submission is not part of it.
func (c *Controller) State() *model.SessionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return &model.SessionState{
		SessionID:          c.sessionID,
		SurveyID:           c.survey.ID,
		ResponseID:         c.responseID,
		Skin:               c.skin.Name(),
		QuestionIndex:      c.index,
		WaitingForFollowUp: c.waitingForFollowUp,
		PendingFollowUp:    c.pendingFollowUp,
		Completing:         c.completing,
		Done:               c.done,
		Transcript:         append([]model.Message(nil), c.transcript...),
		CreatedAt:          c.createdAt,
		UpdatedAt:          c.updatedAt,
	}
}
