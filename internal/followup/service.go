// Package followup generates AI follow-up questions for daily work updates
// and manages the sessions that collect the answers.
package followup

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"checkin/internal/id"
	"checkin/internal/llm"
	"checkin/internal/logging"
	"checkin/internal/metrics"
	"checkin/internal/store"
)

const (
	historyWindow = 7 * 24 * time.Hour
	historyLimit  = 10
)

var (
	// ErrAnswerCountMismatch is returned when a completion request does not
	// carry exactly three answers.
	ErrAnswerCountMismatch = errors.New("all 3 questions must be answered")
	// ErrEmptyAnswer is returned when any submitted answer is blank.
	ErrEmptyAnswer = errors.New("all questions must have non-empty answers")
)

// Service orchestrates question generation and the follow-up session
// lifecycle on top of a Store and an llm.Client.
type Service struct {
	store    store.Store
	client   llm.Client
	observer metrics.Observer
	logger   logging.Logger

	// now is injectable for tests.
	now func() time.Time
}

// Option customizes a Service.
type Option func(*Service)

// WithObserver attaches a metrics observer.
func WithObserver(observer metrics.Observer) Option {
	return func(s *Service) {
		if observer != nil {
			s.observer = observer
		}
	}
}

// WithLogger overrides the component logger.
func WithLogger(logger logging.Logger) Option {
	return func(s *Service) {
		s.logger = logging.OrNop(logger)
	}
}

// WithNow overrides the clock.
func WithNow(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func NewService(st store.Store, client llm.Client, opts ...Option) *Service {
	s := &Service{
		store:    st,
		client:   client,
		observer: metrics.Nop(),
		logger:   logging.NewComponentLogger("FollowupService"),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GenerateQuestions produces exactly three follow-up questions for the user,
// grounded in the given work data and the user's recent update history. It
// never fails: any storage, model, or parsing problem degrades to the
// default question set.
func (s *Service) GenerateQuestions(ctx context.Context, userID string, data *WorkData) []string {
	start := s.now()
	s.logger.Info("Starting question generation for user: %s", userID)

	recent := s.recentHistory(ctx, userID)

	currentContext := ""
	if data != nil {
		currentContext = BuildCurrentContext(*data)
	}
	historyContext := ""
	if len(recent) > 0 {
		historyContext = BuildHistoryContext(recent, s.logger)
	}

	prompt := BuildPrompt(currentContext, historyContext, recent, s.now(), s.logger)

	response, err := s.client.Complete(ctx, prompt)
	if err != nil || strings.TrimSpace(response) == "" {
		if err != nil {
			s.logger.Error("Question generation failed for %s: %v", userID, err)
		} else {
			s.logger.Error("Model response was empty for %s, using default questions", userID)
		}
		s.observer.RecordGeneration(metrics.SourceDefaults, s.now().Sub(start))
		return DefaultQuestions()
	}

	questions, tier := ParseQuestions(response)
	s.observer.RecordParseTier(tier)

	source := metrics.SourceModel
	if tier == TierDefaults {
		source = metrics.SourceDefaults
		s.logger.Warn("No questions parsed from model response for %s, using defaults", userID)
	} else {
		s.logger.Info("Generated %d questions for %s via %s parsing", len(questions), userID, tier)
	}
	s.observer.RecordGeneration(source, s.now().Sub(start))
	return questions
}

// recentHistory loads the user's updates from both storage areas, keeps the
// last seven days, and returns them newest first, capped at ten entries.
// Errors degrade to an empty history.
func (s *Service) recentHistory(ctx context.Context, userID string) []store.Document {
	docs, err := s.store.RecentDocuments(ctx, userID)
	if err != nil {
		s.logger.Error("Failed to load work update history for %s: %v", userID, err)
		return nil
	}

	weekAgo := s.now().Add(-historyWindow)

	type dated struct {
		doc store.Document
		ts  time.Time
	}
	var filtered []dated
	for _, doc := range docs {
		ts, ok := ExtractTimestamp(doc, s.logger)
		if ok && ts.After(weekAgo) {
			filtered = append(filtered, dated{doc: doc, ts: ts})
		}
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].ts.After(filtered[j].ts)
	})
	if len(filtered) > historyLimit {
		filtered = filtered[:historyLimit]
	}

	s.logger.Info("Found %d work updates in last 7 days (out of %d total) for %s", len(filtered), len(docs), userID)

	result := make([]store.Document, len(filtered))
	for i, d := range filtered {
		result[i] = d.doc
	}
	return result
}

// StartSession generates questions from the referenced temporary update and
// creates (or replaces) the user's session for today. The session id is
// deterministic per user and day, so a restart of the flow reuses it.
func (s *Service) StartSession(ctx context.Context, userID, tempUpdateID string) (*store.FollowupSession, error) {
	temp, err := s.store.TempUpdate(ctx, tempUpdateID)
	if err != nil {
		return nil, err
	}

	questions := s.GenerateQuestions(ctx, userID, &WorkData{
		Description: temp.Description,
		Challenges:  temp.Challenges,
		Plans:       temp.Plans,
	})

	today := s.now().Format("2006-01-02")
	session := &store.FollowupSession{
		ID:               id.SessionID(userID, today),
		UserID:           userID,
		TempWorkUpdateID: tempUpdateID,
		SessionDate:      today,
		Questions:        questions,
		Answers:          make([]string, len(questions)),
		Status:           store.SessionStatusPending,
		CreatedAt:        s.now(),
	}
	if err := s.store.SaveSession(ctx, session); err != nil {
		return nil, err
	}

	s.logger.Info("Follow-up session %s started from temp update %s", session.ID, tempUpdateID)
	return session, nil
}

// CompleteSession stores the answers, marks the session completed, and
// promotes the linked temporary update to permanent storage. Validation and
// existence checks all happen before anything is written.
func (s *Service) CompleteSession(ctx context.Context, sessionID string, answers []string) (*store.FollowupSession, error) {
	if len(answers) != 3 {
		return nil, ErrAnswerCountMismatch
	}
	for _, answer := range answers {
		if strings.TrimSpace(answer) == "" {
			return nil, ErrEmptyAnswer
		}
	}

	session, err := s.store.Session(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.TempUpdate(ctx, session.TempWorkUpdateID); err != nil {
		return nil, err
	}

	now := s.now()
	session.Answers = answers
	session.Status = store.SessionStatusCompleted
	session.CompletedAt = &now
	if err := s.store.SaveSession(ctx, session); err != nil {
		return nil, err
	}

	workUpdateID, err := s.store.PromoteTempUpdate(ctx, session.TempWorkUpdateID, now)
	if err != nil {
		return nil, err
	}

	session.WorkUpdateID = workUpdateID
	if err := s.store.SaveSession(ctx, session); err != nil {
		return nil, err
	}

	s.logger.Info("Follow-up session %s completed, work update finalized: %s", sessionID, workUpdateID)
	return session, nil
}

// PendingSession returns the user's newest pending session.
func (s *Service) PendingSession(ctx context.Context, userID string) (*store.FollowupSession, error) {
	return s.store.PendingSession(ctx, userID)
}
