package conversation

import (
	"context"
	"errors"
	"insightai/internal/model"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubBackend struct {
	mu          sync.Mutex
	answers     []model.AnswerRequest
	followUps   map[string]string
	submitErr   error
	completeErr error
	completed   int
	block       chan struct{}
	entered     chan struct{}
}

func (b *stubBackend) SubmitAnswer(ctx context.Context, responseID string, req model.AnswerRequest) (*model.AnswerAck, error) {
	if b.entered != nil {
		b.entered <- struct{}{}
	}
	if b.block != nil {
		<-b.block
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.submitErr != nil {
		return nil, b.submitErr
	}
	b.answers = append(b.answers, req)
	return &model.AnswerAck{FollowUp: b.followUps[req.QuestionID]}, nil
}

func (b *stubBackend) CompleteResponse(ctx context.Context, responseID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.completeErr != nil {
		return b.completeErr
	}
	b.completed++
	return nil
}

type stubRecorder struct {
	replies []model.FollowUpReply
}

func (r *stubRecorder) RecordFollowUp(ctx context.Context, reply model.FollowUpReply) error {
	r.replies = append(r.replies, reply)
	return nil
}

func testSurvey(n int) *model.Survey {
	texts := []string{"How do you shop?", "What frustrates you?", "What would help?", "Anything else?"}
	s := &model.Survey{ID: "s1", Title: "Checkout research", Status: model.SurveyActive}
	for i := 0; i < n; i++ {
		s.Questions = append(s.Questions, model.Question{
			ID:   string(rune('a' + i)),
			Text: texts[i%len(texts)],
			Type: model.QuestionTypeOpenEnded,
		})
	}
	return s
}

func newTestController(t *testing.T, survey *model.Survey, backend Backend, opts ...Option) *Controller {
	t.Helper()
	opts = append([]Option{WithPacing(0), WithSessionID("sess-1")}, opts...)
	c, err := New(survey, "r1", backend, ChatSkin{}, opts...)
	require.NoError(t, err)
	return c
}

func TestNewSeedsGreeting(t *testing.T) {
	c := newTestController(t, testSurvey(3), &stubBackend{})

	snap := c.Snapshot()
	require.Len(t, snap.Transcript, 1)
	assert.Equal(t, model.RoleBot, snap.Transcript[0].Role)
	assert.Contains(t, snap.Transcript[0].Text, "Checkout research")
	assert.Contains(t, snap.Transcript[0].Text, "How do you shop?")
	assert.Equal(t, 0, snap.QuestionIndex)
	assert.Equal(t, 0, snap.Progress)
	assert.Equal(t, "Question 1 of 3", snap.Status)
	assert.False(t, snap.Done)
}

func TestNewRejectsEmptySurvey(t *testing.T) {
	_, err := New(testSurvey(0), "r1", &stubBackend{}, ChatSkin{})
	assert.ErrorIs(t, err, ErrNoQuestions)

	_, err = New(testSurvey(2), "", &stubBackend{}, ChatSkin{})
	assert.ErrorIs(t, err, ErrNoResponse)
}

func TestSubmitWalksThroughSurvey(t *testing.T) {
	backend := &stubBackend{}
	c := newTestController(t, testSurvey(3), backend)
	ctx := context.Background()

	require.NoError(t, c.Submit(ctx, "  online mostly "))
	assert.Equal(t, 1, c.Snapshot().QuestionIndex)
	assert.Equal(t, 33, c.Progress())

	require.NoError(t, c.Submit(ctx, "slow shipping"))
	assert.Equal(t, 67, c.Progress())

	require.NoError(t, c.Submit(ctx, "free returns"))

	snap := c.Snapshot()
	assert.True(t, snap.Done)
	assert.Equal(t, 100, snap.Progress)
	assert.Equal(t, 3, snap.QuestionIndex)
	assert.Equal(t, "Survey complete", snap.Status)
	assert.Equal(t, 1, backend.completed)

	require.Len(t, backend.answers, 3)
	assert.Equal(t, "online mostly", backend.answers[0].AnswerText)
	assert.Equal(t, "a", backend.answers[0].QuestionID)
	assert.Equal(t, "c", backend.answers[2].QuestionID)

	// greeting, then answer/question pairs, then the closing message
	require.Len(t, snap.Transcript, 7)
	assert.Equal(t, "Question 2 of 3", snap.Transcript[2].QuestionLabel)
	assert.Equal(t, "What frustrates you?", snap.Transcript[2].Text)
	last := snap.Transcript[6]
	assert.True(t, last.Final)
	assert.Equal(t, ChatSkin{}.Closing(), last.Text)

	assert.ErrorIs(t, c.Submit(ctx, "more"), ErrDone)
	assert.Len(t, c.Snapshot().Transcript, 7)
}

func TestSubmitFollowUp(t *testing.T) {
	backend := &stubBackend{followUps: map[string]string{"a": "Which store do you use most?"}}
	recorder := &stubRecorder{}
	c := newTestController(t, testSurvey(2), backend, WithRecorder(recorder))
	ctx := context.Background()

	require.NoError(t, c.Submit(ctx, "online"))
	snap := c.Snapshot()
	assert.True(t, snap.WaitingForFollowUp)
	assert.Equal(t, 0, snap.QuestionIndex)
	assert.Equal(t, "Follow-up • Q1/2", snap.Status)
	followUp := snap.Transcript[len(snap.Transcript)-1]
	assert.True(t, followUp.FollowUp)
	assert.Equal(t, "Which store do you use most?", followUp.Text)

	require.NoError(t, c.Submit(ctx, "the big one"))
	snap = c.Snapshot()
	assert.False(t, snap.WaitingForFollowUp)
	assert.Equal(t, 1, snap.QuestionIndex)

	// The follow-up reply goes to the recorder, not the answer endpoint.
	require.Len(t, backend.answers, 1)
	require.Len(t, recorder.replies, 1)
	assert.Equal(t, "a", recorder.replies[0].QuestionID)
	assert.Equal(t, "Which store do you use most?", recorder.replies[0].Prompt)
	assert.Equal(t, "the big one", recorder.replies[0].Answer)
	assert.Equal(t, "sess-1", recorder.replies[0].SessionID)
}

func TestSubmitFailureLeavesStateForRetry(t *testing.T) {
	backend := &stubBackend{submitErr: errors.New("connection refused")}
	c := newTestController(t, testSurvey(2), backend)
	ctx := context.Background()

	err := c.Submit(ctx, "online")
	assert.ErrorIs(t, err, ErrSubmitFailed)

	snap := c.Snapshot()
	assert.Equal(t, 0, snap.QuestionIndex)
	assert.False(t, snap.Submitting)
	last := snap.Transcript[len(snap.Transcript)-1]
	assert.True(t, last.Error)
	assert.Equal(t, ChatSkin{}.ErrorText(), last.Text)

	backend.submitErr = nil
	require.NoError(t, c.Submit(ctx, "online"))
	assert.Equal(t, 1, c.Snapshot().QuestionIndex)
}

func TestCompleteFailureKeepsConversationOpen(t *testing.T) {
	backend := &stubBackend{completeErr: errors.New("timeout")}
	c := newTestController(t, testSurvey(2), backend)
	ctx := context.Background()

	require.NoError(t, c.Submit(ctx, "first"))
	assert.ErrorIs(t, c.Submit(ctx, "last answer"), ErrSubmitFailed)
	assert.False(t, c.Done())
	assert.Equal(t, 50, c.Progress())
	assert.True(t, c.Snapshot().Completing)
	require.Len(t, backend.answers, 2)

	// still failing: the retry does not resend the last answer
	assert.ErrorIs(t, c.Submit(ctx, "hello?"), ErrSubmitFailed)
	require.Len(t, backend.answers, 2)

	backend.completeErr = nil
	require.NoError(t, c.Submit(ctx, "retry please"))
	snap := c.Snapshot()
	assert.True(t, snap.Done)
	assert.False(t, snap.Completing)
	assert.Equal(t, 100, snap.Progress)
	assert.Equal(t, 1, backend.completed)
	require.Len(t, backend.answers, 2)
	assert.Equal(t, "last answer", backend.answers[1].AnswerText)
	assert.True(t, snap.Transcript[len(snap.Transcript)-1].Final)
}

func TestRestoreKeepsPendingCompletion(t *testing.T) {
	backend := &stubBackend{completeErr: errors.New("timeout")}
	survey := testSurvey(1)
	c := newTestController(t, survey, backend)
	assert.ErrorIs(t, c.Submit(context.Background(), "fine"), ErrSubmitFailed)

	state := c.State()
	assert.True(t, state.Completing)

	backend.completeErr = nil
	restored, err := Restore(state, survey, backend, ChatSkin{}, WithPacing(0))
	require.NoError(t, err)
	require.NoError(t, restored.Submit(context.Background(), "again"))
	assert.True(t, restored.Done())
	assert.Equal(t, 1, backend.completed)
	assert.Len(t, backend.answers, 1)

	state.QuestionIndex = 0
	state.Done = true
	_, err = Restore(state, survey, backend, ChatSkin{})
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestFollowUpOnLastQuestionCompletes(t *testing.T) {
	backend := &stubBackend{followUps: map[string]string{"b": "What made checkout slow?"}}
	recorder := &stubRecorder{}
	c := newTestController(t, testSurvey(2), backend, WithRecorder(recorder))
	ctx := context.Background()

	require.NoError(t, c.Submit(ctx, "online"))
	require.NoError(t, c.Submit(ctx, "checkout was slow"))
	snap := c.Snapshot()
	assert.True(t, snap.WaitingForFollowUp)
	assert.False(t, snap.Done)
	assert.Equal(t, 0, backend.completed)

	require.NoError(t, c.Submit(ctx, "the payment page"))
	snap = c.Snapshot()
	assert.True(t, snap.Done)
	assert.False(t, snap.WaitingForFollowUp)
	assert.Equal(t, 100, snap.Progress)
	assert.Equal(t, 2, snap.QuestionIndex)
	assert.Equal(t, 1, backend.completed)

	// greeting, a1, q2, a2, follow-up, reply, closing
	require.Len(t, snap.Transcript, 7)
	assert.True(t, snap.Transcript[4].FollowUp)
	assert.True(t, snap.Transcript[6].Final)

	require.Len(t, backend.answers, 2)
	require.Len(t, recorder.replies, 1)
	assert.Equal(t, "b", recorder.replies[0].QuestionID)
	assert.Equal(t, "What made checkout slow?", recorder.replies[0].Prompt)
	assert.Equal(t, "the payment page", recorder.replies[0].Answer)

	assert.ErrorIs(t, c.Submit(ctx, "more"), ErrDone)
}

func TestSubmitRejectsEmptyInput(t *testing.T) {
	c := newTestController(t, testSurvey(2), &stubBackend{})

	assert.ErrorIs(t, c.Submit(context.Background(), "   \n"), ErrEmptyInput)
	assert.Len(t, c.Snapshot().Transcript, 1)
}

func TestSubmitRejectsConcurrentSubmission(t *testing.T) {
	backend := &stubBackend{block: make(chan struct{}), entered: make(chan struct{}, 1)}
	c := newTestController(t, testSurvey(2), backend)
	ctx := context.Background()

	errc := make(chan error, 1)
	go func() { errc <- c.Submit(ctx, "first") }()
	<-backend.entered

	assert.True(t, c.Submitting())
	assert.ErrorIs(t, c.Submit(ctx, "second"), ErrBusy)

	close(backend.block)
	require.NoError(t, <-errc)
	assert.False(t, c.Submitting())
	require.Len(t, backend.answers, 1)
	assert.Equal(t, "first", backend.answers[0].AnswerText)
}

func TestObserverSeesEveryChange(t *testing.T) {
	var mu sync.Mutex
	var seen []*model.Snapshot
	c := newTestController(t, testSurvey(2), &stubBackend{}, WithObserver(func(s *model.Snapshot) {
		mu.Lock()
		seen = append(seen, s)
		mu.Unlock()
	}))

	require.NoError(t, c.Submit(context.Background(), "hello"))

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, seen)
	assert.True(t, seen[1].Submitting)
	assert.False(t, seen[len(seen)-1].Submitting)
	assert.Equal(t, 1, seen[len(seen)-1].QuestionIndex)
}

func TestRestoreResumesConversation(t *testing.T) {
	backend := &stubBackend{followUps: map[string]string{"a": "Why?"}}
	survey := testSurvey(2)
	c := newTestController(t, survey, backend)
	require.NoError(t, c.Submit(context.Background(), "online"))

	state := c.State()
	assert.True(t, state.WaitingForFollowUp)
	assert.Equal(t, "Why?", state.PendingFollowUp)

	restored, err := Restore(state, survey, backend, ChatSkin{}, WithPacing(0))
	require.NoError(t, err)
	assert.Equal(t, "sess-1", restored.SessionID())
	assert.Equal(t, c.Snapshot().Transcript, restored.Snapshot().Transcript)

	require.NoError(t, restored.Submit(context.Background(), "because"))
	assert.Equal(t, 1, restored.Snapshot().QuestionIndex)
}

func TestRestoreRejectsMismatchedState(t *testing.T) {
	survey := testSurvey(2)

	_, err := Restore(&model.SessionState{SurveyID: "other", ResponseID: "r1"}, survey, &stubBackend{}, ChatSkin{})
	assert.ErrorIs(t, err, ErrInvalidState)

	_, err = Restore(&model.SessionState{SurveyID: "s1", ResponseID: "r1", QuestionIndex: 2}, survey, &stubBackend{}, ChatSkin{})
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestWhatsAppSkinStatus(t *testing.T) {
	c, err := New(testSurvey(1), "r1", &stubBackend{}, WhatsAppSkin{})
	require.NoError(t, err)
	assert.Equal(t, "online", c.Snapshot().Status)
	assert.Contains(t, c.Snapshot().Transcript[0].Text, "*Checkout research*")

	c.pacing = 0
	require.NoError(t, c.Submit(context.Background(), "yes"))
	assert.Equal(t, "Survey complete ✓", c.Snapshot().Status)
}

func TestNewSkin(t *testing.T) {
	skin, err := NewSkin("")
	require.NoError(t, err)
	assert.Equal(t, SkinChat, skin.Name())
	assert.Equal(t, model.ChannelWeb, skin.Channel())

	skin, err = NewSkin(SkinWhatsApp)
	require.NoError(t, err)
	assert.Equal(t, model.ChannelWhatsApp, skin.Channel())
	assert.Equal(t, "Question 2/5", skin.QuestionLabel(1, 5))

	_, err = NewSkin("telegram")
	assert.Error(t, err)
}
