package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"checkin/internal/id"
)

// MemoryStore keeps all records in process memory. It backs unit tests and
// local development; semantics mirror the Postgres store, including
// upsert-by-(user, date) replacement.
type MemoryStore struct {
	mu          sync.Mutex
	tempUpdates map[string]*WorkUpdate
	updates     map[string]*WorkUpdate
	sessions    map[string]*FollowupSession
}

// NewMemoryStore constructs an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tempUpdates: make(map[string]*WorkUpdate),
		updates:     make(map[string]*WorkUpdate),
		sessions:    make(map[string]*FollowupSession),
	}
}

var _ Store = (*MemoryStore)(nil)

func (s *MemoryStore) CreateTempUpdate(ctx context.Context, update *WorkUpdate) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := *update
	if existing := findByUserDate(s.tempUpdates, update.UserID, update.UpdateDate); existing != "" {
		clone.ID = existing
	} else if clone.ID == "" {
		clone.ID = id.NewTempUpdateID()
	}
	s.tempUpdates[clone.ID] = &clone
	return clone.ID, nil
}

func (s *MemoryStore) TempUpdate(ctx context.Context, tempID string) (*WorkUpdate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	update, ok := s.tempUpdates[tempID]
	if !ok {
		return nil, ErrTempUpdateNotFound
	}
	clone := *update
	return &clone, nil
}

func (s *MemoryStore) DeleteTempUpdate(ctx context.Context, tempID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tempUpdates, tempID)
	return nil
}

func (s *MemoryStore) CreatePermanentUpdate(ctx context.Context, update *WorkUpdate) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := *update
	if existing := findByUserDate(s.updates, update.UserID, update.UpdateDate); existing != "" {
		clone.ID = existing
	} else if clone.ID == "" {
		clone.ID = id.NewUpdateID()
	}
	s.updates[clone.ID] = &clone
	return clone.ID, nil
}

func (s *MemoryStore) PromoteTempUpdate(ctx context.Context, tempID string, completedAt time.Time) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	temp, ok := s.tempUpdates[tempID]
	if !ok {
		return "", ErrTempUpdateNotFound
	}

	promoted := *temp
	promoted.Status = UpdateStatusCompleted
	promoted.FollowupCompleted = true
	promoted.CompletedAt = &completedAt

	if existing := findByUserDate(s.updates, promoted.UserID, promoted.UpdateDate); existing != "" {
		promoted.ID = existing
	} else {
		promoted.ID = id.NewUpdateID()
	}
	s.updates[promoted.ID] = &promoted
	delete(s.tempUpdates, tempID)
	return promoted.ID, nil
}

func (s *MemoryStore) RecentDocuments(ctx context.Context, userID string) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var docs []Document
	for _, update := range s.updates {
		if update.UserID == userID {
			docs = append(docs, update.Document())
		}
	}
	for _, update := range s.tempUpdates {
		if update.UserID == userID {
			docs = append(docs, update.Document())
		}
	}
	return docs, nil
}

func (s *MemoryStore) SaveSession(ctx context.Context, session *FollowupSession) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := cloneSession(session)
	s.sessions[clone.ID] = clone
	return nil
}

func (s *MemoryStore) Session(ctx context.Context, sessionID string) (*FollowupSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return cloneSession(session), nil
}

func (s *MemoryStore) PendingSession(ctx context.Context, userID string) (*FollowupSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var latest *FollowupSession
	for _, session := range s.sessions {
		if session.UserID != userID || session.Status != SessionStatusPending {
			continue
		}
		if latest == nil || session.CreatedAt.After(latest.CreatedAt) {
			latest = session
		}
	}
	if latest == nil {
		return nil, ErrSessionNotFound
	}
	return cloneSession(latest), nil
}

func (s *MemoryStore) SessionsByUser(ctx context.Context, userID string, limit, offset int) ([]*FollowupSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var sessions []*FollowupSession
	for _, session := range s.sessions {
		if session.UserID == userID {
			sessions = append(sessions, cloneSession(session))
		}
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].CreatedAt.After(sessions[j].CreatedAt)
	})

	if offset >= len(sessions) {
		return nil, nil
	}
	sessions = sessions[offset:]
	if limit > 0 && limit < len(sessions) {
		sessions = sessions[:limit]
	}
	return sessions, nil
}

func (s *MemoryStore) SweepAbandoned(ctx context.Context, cutoff time.Time) (SweepResult, error) {
	if err := ctx.Err(); err != nil {
		return SweepResult{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var result SweepResult
	for tempID, update := range s.tempUpdates {
		if update.Status != UpdateStatusPendingFollowup || !update.SubmittedAt.Before(cutoff) {
			continue
		}
		for sessionID, session := range s.sessions {
			if session.TempWorkUpdateID == tempID {
				delete(s.sessions, sessionID)
				result.Sessions++
			}
		}
		delete(s.tempUpdates, tempID)
		result.TempUpdates++
	}
	return result, nil
}

func (s *MemoryStore) Stats(ctx context.Context) (*Stats, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := &Stats{
		TotalUpdates:     len(s.updates),
		TotalTempUpdates: len(s.tempUpdates),
		TotalSessions:    len(s.sessions),
	}
	for _, update := range s.updates {
		if update.FollowupCompleted {
			stats.CompletedFollowups++
		} else {
			stats.IncompleteFollowups++
		}
	}
	for _, update := range s.tempUpdates {
		if update.Status == UpdateStatusPendingFollowup {
			stats.PendingTempUpdates++
		}
	}
	for _, session := range s.sessions {
		switch session.Status {
		case SessionStatusPending:
			stats.PendingSessions++
		case SessionStatusCompleted:
			stats.CompletedSessions++
		}
	}
	return stats, nil
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

func findByUserDate(updates map[string]*WorkUpdate, userID, date string) string {
	for recordID, update := range updates {
		if update.UserID == userID && update.UpdateDate == date {
			return recordID
		}
	}
	return ""
}

func cloneSession(session *FollowupSession) *FollowupSession {
	clone := *session
	clone.Questions = append([]string(nil), session.Questions...)
	clone.Answers = append([]string(nil), session.Answers...)
	return &clone
}
