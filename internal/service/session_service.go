package service

import (
	"context"
	"errors"
	"fmt"
	"insightai/internal/cache"
	"insightai/internal/config"
	"insightai/internal/conversation"
	"insightai/internal/metrics"
	"insightai/internal/model"
	"insightai/internal/repository"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

var (
	ErrSessionNotFound   = errors.New("session not found")
	ErrSurveyUnavailable = errors.New("survey not found or server error")
	ErrUnknownSkin       = errors.New("unknown chat skin")
)

// SurveyBackend is the part of the backend API a respondent session needs
type SurveyBackend interface {
	conversation.Backend
	GetSurvey(ctx context.Context, surveyID string) (*model.Survey, error)
	StartResponse(ctx context.Context, surveyID, channel string) (string, error)
}

// SessionService owns the live respondent conversations
type SessionService struct {
	api            SurveyBackend
	authSvc        *AuthService
	sessionCache   cache.SessionCache
	surveyCache    cache.SurveyCache
	transcriptRepo repository.TranscriptRepo
	chat           *config.ChatConfig
	timeout        time.Duration

	broadcaster Broadcaster
	metrics     *metrics.Collector
	channel     string

	mu   sync.Mutex
	live map[string]*conversation.Controller
}

// NewSessionService creates a new session service. The caches and the repository are
// optional; without them sessions live only in this process.
func NewSessionService(
	api SurveyBackend,
	authSvc *AuthService,
	sessionCache cache.SessionCache,
	surveyCache cache.SurveyCache,
	transcriptRepo repository.TranscriptRepo,
	chat *config.ChatConfig,
	timeout time.Duration,
) *SessionService {
	if chat == nil {
		chat = config.DefaultChatConfig()
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &SessionService{
		api:            api,
		authSvc:        authSvc,
		sessionCache:   sessionCache,
		surveyCache:    surveyCache,
		transcriptRepo: transcriptRepo,
		chat:           chat,
		timeout:        timeout,
		live:           make(map[string]*conversation.Controller),
	}
}

// SetBroadcaster sets the WebSocket broadcaster
func (s *SessionService) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// SetChannel tags every response this service starts with channel instead of the skin's own
func (s *SessionService) SetChannel(channel string) {
	s.channel = channel
}

// SetMetrics sets the metrics collector
func (s *SessionService) SetMetrics(m *metrics.Collector) {
	s.metrics = m
}

// Start opens a new response for the survey and a conversation to collect it.
// Any failure here is fatal for the session.
func (s *SessionService) Start(ctx context.Context, surveyID, skinName string) (*model.SessionView, error) {
	skin, err := conversation.NewSkin(skinName)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSkin, skinName)
	}

	var (
		survey     *model.Survey
		responseID string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		survey, err = s.loadSurvey(gctx, surveyID)
		return err
	})
	g.Go(func() error {
		var err error
		channel := skin.Channel()
		if s.channel != "" {
			channel = s.channel
		}
		responseID, err = s.api.StartResponse(gctx, surveyID, channel)
		return err
	})
	if err := g.Wait(); err != nil {
		log.Printf("[Session] failed to start survey %s: %v", surveyID, err)
		return nil, fmt.Errorf("%w: %v", ErrSurveyUnavailable, err)
	}

	sessionID := uuid.NewString()
	ctrl, err := conversation.New(survey, responseID, s.api, skin, s.options(sessionID, skin)...)
	if err != nil {
		log.Printf("[Session] cannot open conversation for survey %s: %v", surveyID, err)
		return nil, fmt.Errorf("%w: %v", ErrSurveyUnavailable, err)
	}

	token := ""
	if s.authSvc != nil {
		token, err = s.authSvc.GenerateSessionToken(surveyID, sessionID)
		if err != nil {
			return nil, fmt.Errorf("failed to issue session token: %w", err)
		}
	}

	s.mu.Lock()
	s.live[sessionID] = ctrl
	s.mu.Unlock()
	s.metrics.SessionOpened(skin.Name())
	s.persist(ctx, ctrl)

	log.Printf("[Session] started %s for survey %s (response %s, skin %s)", sessionID, surveyID, responseID, skin.Name())

	return &model.SessionView{
		SessionID: sessionID,
		Token:     token,
		Snapshot:  ctrl.Snapshot(),
	}, nil
}

// Get returns the current snapshot of a session
func (s *SessionService) Get(ctx context.Context, sessionID string) (*model.Snapshot, error) {
	ctrl, err := s.controller(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return ctrl.Snapshot(), nil
}

// Submit feeds one respondent input into the session. A backend failure is reported both
// in the transcript and as an error wrapping conversation.ErrSubmitFailed; the returned
// snapshot is valid in that case.
func (s *SessionService) Submit(ctx context.Context, sessionID, text string) (*model.Snapshot, error) {
	ctrl, err := s.controller(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if s.sessionCache != nil {
		release, err := s.sessionCache.Lock(ctx, sessionID)
		if errors.Is(err, cache.ErrLocked) {
			return nil, conversation.ErrBusy
		}
		if err != nil {
			return nil, fmt.Errorf("failed to lock session: %w", err)
		}
		defer release()

		// another instance may have advanced the conversation
		if ctrl, err = s.refresh(ctx, ctrl); err != nil {
			return nil, err
		}
	}

	// A submission runs to completion even if the caller goes away.
	submitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.stepBudget(ctrl.Skin().Name()))
	defer cancel()

	before := ctrl.Snapshot()
	submitErr := ctrl.Submit(submitCtx, text)
	after := ctrl.Snapshot()

	switch {
	case submitErr == nil:
		s.record(before, after)
	case errors.Is(submitErr, conversation.ErrSubmitFailed):
		s.metrics.RecordSubmitFailure(after.Skin)
	default:
		return nil, submitErr
	}

	s.persist(submitCtx, ctrl)
	if after.Done && s.sessionCache != nil {
		// the finished state stays readable from the cache
		s.evict(sessionID)
	}
	return after, submitErr
}

// stepBudget bounds one submission. A step may call the answer and completion endpoints,
// each under the client's own timeout, and pause twice.
func (s *SessionService) stepBudget(skin string) time.Duration {
	return 2*s.timeout + 2*s.chat.PacingFor(skin)
}

// RecordFollowUp archives a follow-up reply
func (s *SessionService) RecordFollowUp(ctx context.Context, reply model.FollowUpReply) error {
	return s.transcriptRepo.AppendFollowUp(ctx, reply)
}

// Transcripts lists the archived transcripts of a survey
func (s *SessionService) Transcripts(ctx context.Context, surveyID string) ([]model.TranscriptRecord, error) {
	if s.transcriptRepo == nil {
		return []model.TranscriptRecord{}, nil
	}
	return s.transcriptRepo.ListBySurvey(ctx, surveyID)
}

// Run evicts idle in-memory conversations until ctx is done
func (s *SessionService) Run(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.evictIdle(time.Now().Add(-s.chat.SessionTTL))
		}
	}
}

func (s *SessionService) evictIdle(cutoff time.Time) {
	s.mu.Lock()
	var idle []string
	for id, ctrl := range s.live {
		if !ctrl.Submitting() && ctrl.State().UpdatedAt.Before(cutoff) {
			idle = append(idle, id)
		}
	}
	s.mu.Unlock()
	for _, id := range idle {
		s.evict(id)
		if s.broadcaster != nil {
			s.broadcaster.DisconnectSession(id)
		}
	}
	if len(idle) > 0 {
		log.Printf("[Session] evicted %d idle sessions", len(idle))
	}
}

func (s *SessionService) evict(sessionID string) {
	s.mu.Lock()
	ctrl, ok := s.live[sessionID]
	delete(s.live, sessionID)
	s.mu.Unlock()
	if ok && !ctrl.Done() {
		s.metrics.SessionClosed(ctrl.Skin().Name())
	}
}

func (s *SessionService) record(before, after *model.Snapshot) {
	if !before.WaitingForFollowUp && !before.Completing {
		s.metrics.RecordAnswer(after.Skin)
	}
	if after.WaitingForFollowUp {
		s.metrics.RecordFollowUp(after.Skin)
	}
	if after.Done {
		s.metrics.RecordCompletion(after.Skin)
		s.metrics.SessionClosed(after.Skin)
	}
}

// controller finds a live conversation or rebuilds it from the cache
func (s *SessionService) controller(ctx context.Context, sessionID string) (*conversation.Controller, error) {
	s.mu.Lock()
	ctrl, ok := s.live[sessionID]
	s.mu.Unlock()
	if ok {
		return ctrl, nil
	}
	if s.sessionCache == nil {
		return nil, ErrSessionNotFound
	}

	state, err := s.sessionCache.Get(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if state == nil {
		return nil, ErrSessionNotFound
	}
	ctrl, err = s.restore(ctx, state)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if existing, ok := s.live[sessionID]; ok {
		ctrl = existing
	} else {
		s.live[sessionID] = ctrl
		if !ctrl.Done() {
			s.metrics.SessionOpened(ctrl.Skin().Name())
		}
	}
	s.mu.Unlock()
	return ctrl, nil
}

// refresh replaces ctrl when the cached state is newer than what this process holds
func (s *SessionService) refresh(ctx context.Context, ctrl *conversation.Controller) (*conversation.Controller, error) {
	state, err := s.sessionCache.Get(ctx, ctrl.SessionID())
	if err != nil || state == nil || !state.UpdatedAt.After(ctrl.State().UpdatedAt) {
		return ctrl, nil
	}
	fresh, err := s.restore(ctx, state)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.live[ctrl.SessionID()] = fresh
	s.mu.Unlock()
	return fresh, nil
}

func (s *SessionService) restore(ctx context.Context, state *model.SessionState) (*conversation.Controller, error) {
	survey, err := s.loadSurvey(ctx, state.SurveyID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSurveyUnavailable, err)
	}
	skin, err := conversation.NewSkin(state.Skin)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSkin, state.Skin)
	}
	return conversation.Restore(state, survey, s.api, skin, s.options(state.SessionID, skin)...)
}

func (s *SessionService) options(sessionID string, skin conversation.Skin) []conversation.Option {
	opts := []conversation.Option{
		conversation.WithSessionID(sessionID),
		conversation.WithPacing(s.chat.PacingFor(skin.Name())),
		conversation.WithObserver(func(snap *model.Snapshot) {
			s.publish(sessionID, snap)
		}),
	}
	if s.transcriptRepo != nil {
		opts = append(opts, conversation.WithRecorder(s))
	}
	return opts
}

func (s *SessionService) publish(sessionID string, snap *model.Snapshot) {
	if s.broadcaster == nil {
		return
	}
	s.broadcaster.BroadcastToSession(sessionID, "transcript_update", snap)
	if snap.Done && !snap.Submitting {
		s.broadcaster.BroadcastToSession(sessionID, "session_complete", map[string]interface{}{
			"sessionId":  sessionID,
			"responseId": snap.ResponseID,
		})
	}
}

// loadSurvey reads through the survey cache
func (s *SessionService) loadSurvey(ctx context.Context, surveyID string) (*model.Survey, error) {
	if s.surveyCache != nil {
		survey, err := s.surveyCache.Get(ctx, surveyID)
		if err != nil {
			log.Printf("[Session] survey cache read failed for %s: %v", surveyID, err)
		} else if survey != nil {
			return survey, nil
		}
	}

	survey, err := s.api.GetSurvey(ctx, surveyID)
	if err != nil {
		return nil, err
	}
	if s.surveyCache != nil {
		if err := s.surveyCache.Set(ctx, survey); err != nil {
			log.Printf("[Session] survey cache write failed for %s: %v", surveyID, err)
		}
	}
	return survey, nil
}

// persist writes the state to the cache and archives finished transcripts. Failures are
// logged; the conversation itself already moved on.
func (s *SessionService) persist(ctx context.Context, ctrl *conversation.Controller) {
	state := ctrl.State()
	if s.sessionCache != nil {
		if err := s.sessionCache.Set(ctx, state); err != nil {
			log.Printf("[Session] failed to cache session %s: %v", state.SessionID, err)
		}
	}
	if s.transcriptRepo == nil || !state.Done {
		return
	}
	completedAt := state.UpdatedAt
	record := &model.TranscriptRecord{
		SessionID:   state.SessionID,
		SurveyID:    state.SurveyID,
		ResponseID:  state.ResponseID,
		Skin:        state.Skin,
		Completed:   true,
		Messages:    state.Transcript,
		StartedAt:   state.CreatedAt,
		CompletedAt: &completedAt,
		UpdatedAt:   state.UpdatedAt,
	}
	if err := s.transcriptRepo.Save(ctx, record); err != nil {
		log.Printf("[Session] failed to archive transcript %s: %v", state.SessionID, err)
	}
}
