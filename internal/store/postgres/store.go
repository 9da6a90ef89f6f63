// Package postgres implements the store interfaces on a pgx connection pool.
// Work updates are persisted as JSONB documents alongside the columns the
// queries need, so older document shapes survive round trips unchanged.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"checkin/internal/id"
	"checkin/internal/logging"
	"checkin/internal/store"
)

const (
	updatesTable     = "work_updates"
	tempUpdatesTable = "temp_work_updates"
	sessionsTable    = "followup_sessions"
)

// Store is a Postgres-backed persistence layer for work updates and sessions.
type Store struct {
	pool   *pgxpool.Pool
	logger logging.Logger
}

// New constructs a Postgres-backed store.
func New(pool *pgxpool.Pool) *Store {
	return &Store{
		pool:   pool,
		logger: logging.NewComponentLogger("PostgresStore"),
	}
}

var _ store.Store = (*Store)(nil)

// EnsureSchema creates the tables and indexes if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("store not initialized")
	}

	query := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %[1]s (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    update_date TEXT NOT NULL,
    doc JSONB NOT NULL DEFAULT '{}'::jsonb,
    submitted_at TIMESTAMPTZ NOT NULL,
    status TEXT NOT NULL,
    followup_completed BOOLEAN NOT NULL DEFAULT FALSE,
    completed_at TIMESTAMPTZ,
    UNIQUE (user_id, update_date)
);
CREATE INDEX IF NOT EXISTS idx_work_updates_user_submitted ON %[1]s (user_id, submitted_at DESC);

CREATE TABLE IF NOT EXISTS %[2]s (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    update_date TEXT NOT NULL,
    doc JSONB NOT NULL DEFAULT '{}'::jsonb,
    submitted_at TIMESTAMPTZ NOT NULL,
    status TEXT NOT NULL,
    UNIQUE (user_id, update_date)
);
CREATE INDEX IF NOT EXISTS idx_temp_work_updates_submitted ON %[2]s (submitted_at, status);

CREATE TABLE IF NOT EXISTS %[3]s (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    temp_work_update_id TEXT,
    work_update_id TEXT,
    session_date TEXT,
    questions JSONB NOT NULL DEFAULT '[]'::jsonb,
    answers JSONB NOT NULL DEFAULT '[]'::jsonb,
    status TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL,
    completed_at TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS idx_followup_sessions_pending ON %[3]s (user_id, status, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_followup_sessions_temp_ref ON %[3]s (temp_work_update_id);
`, updatesTable, tempUpdatesTable, sessionsTable)

	_, err := s.pool.Exec(ctx, query)
	return err
}

func (s *Store) CreateTempUpdate(ctx context.Context, update *store.WorkUpdate) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s == nil || s.pool == nil {
		return "", fmt.Errorf("store not initialized")
	}

	recordID := update.ID
	if recordID == "" {
		recordID = id.NewTempUpdateID()
	}
	doc, err := toJSONBytes(update.Document())
	if err != nil {
		return "", fmt.Errorf("encode work update: %w", err)
	}

	query := fmt.Sprintf(`
INSERT INTO %s (id, user_id, update_date, doc, submitted_at, status)
VALUES ($1, $2, $3, $4::jsonb, $5, $6)
ON CONFLICT (user_id, update_date) DO UPDATE
SET doc = EXCLUDED.doc, submitted_at = EXCLUDED.submitted_at, status = EXCLUDED.status
RETURNING id
`, tempUpdatesTable)

	var storedID string
	err = s.pool.QueryRow(ctx, query,
		recordID, update.UserID, update.UpdateDate, doc, update.SubmittedAt, string(update.Status),
	).Scan(&storedID)
	if err != nil {
		s.logger.Error("Failed to upsert temp update for %s/%s: %v", update.UserID, update.UpdateDate, err)
		return "", err
	}
	return storedID, nil
}

func (s *Store) TempUpdate(ctx context.Context, tempID string) (*store.WorkUpdate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.pool == nil {
		return nil, fmt.Errorf("store not initialized")
	}

	query := fmt.Sprintf(`
SELECT id, user_id, update_date, doc, submitted_at, status
FROM %s
WHERE id = $1
`, tempUpdatesTable)

	return scanTempUpdate(s.pool.QueryRow(ctx, query, tempID))
}

func (s *Store) DeleteTempUpdate(ctx context.Context, tempID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.pool == nil {
		return fmt.Errorf("store not initialized")
	}

	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, tempUpdatesTable)
	_, err := s.pool.Exec(ctx, query, tempID)
	return err
}

func (s *Store) CreatePermanentUpdate(ctx context.Context, update *store.WorkUpdate) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s == nil || s.pool == nil {
		return "", fmt.Errorf("store not initialized")
	}

	recordID := update.ID
	if recordID == "" {
		recordID = id.NewUpdateID()
	}
	doc, err := toJSONBytes(update.Document())
	if err != nil {
		return "", fmt.Errorf("encode work update: %w", err)
	}

	query := fmt.Sprintf(`
INSERT INTO %s (id, user_id, update_date, doc, submitted_at, status, followup_completed, completed_at)
VALUES ($1, $2, $3, $4::jsonb, $5, $6, $7, $8)
ON CONFLICT (user_id, update_date) DO UPDATE
SET doc = EXCLUDED.doc, submitted_at = EXCLUDED.submitted_at, status = EXCLUDED.status,
    followup_completed = EXCLUDED.followup_completed, completed_at = EXCLUDED.completed_at
RETURNING id
`, updatesTable)

	var storedID string
	err = s.pool.QueryRow(ctx, query,
		recordID, update.UserID, update.UpdateDate, doc, update.SubmittedAt,
		string(update.Status), update.FollowupCompleted, update.CompletedAt,
	).Scan(&storedID)
	if err != nil {
		s.logger.Error("Failed to upsert permanent update for %s/%s: %v", update.UserID, update.UpdateDate, err)
		return "", err
	}
	return storedID, nil
}

// PromoteTempUpdate runs the read, permanent upsert, and temp delete inside
// one transaction so a crash cannot leave both copies behind.
func (s *Store) PromoteTempUpdate(ctx context.Context, tempID string, completedAt time.Time) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s == nil || s.pool == nil {
		return "", fmt.Errorf("store not initialized")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	selectQuery := fmt.Sprintf(`
SELECT id, user_id, update_date, doc, submitted_at, status
FROM %s
WHERE id = $1
FOR UPDATE
`, tempUpdatesTable)

	temp, err := scanTempUpdate(tx.QueryRow(ctx, selectQuery, tempID))
	if err != nil {
		return "", err
	}

	temp.Status = store.UpdateStatusCompleted
	temp.FollowupCompleted = true
	temp.CompletedAt = &completedAt
	doc, err := toJSONBytes(temp.Document())
	if err != nil {
		return "", fmt.Errorf("encode promoted update: %w", err)
	}

	upsertQuery := fmt.Sprintf(`
INSERT INTO %s (id, user_id, update_date, doc, submitted_at, status, followup_completed, completed_at)
VALUES ($1, $2, $3, $4::jsonb, $5, $6, $7, $8)
ON CONFLICT (user_id, update_date) DO UPDATE
SET doc = EXCLUDED.doc, submitted_at = EXCLUDED.submitted_at, status = EXCLUDED.status,
    followup_completed = EXCLUDED.followup_completed, completed_at = EXCLUDED.completed_at
RETURNING id
`, updatesTable)

	var permanentID string
	err = tx.QueryRow(ctx, upsertQuery,
		id.NewUpdateID(), temp.UserID, temp.UpdateDate, doc, temp.SubmittedAt,
		string(temp.Status), temp.FollowupCompleted, completedAt,
	).Scan(&permanentID)
	if err != nil {
		return "", err
	}

	deleteQuery := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, tempUpdatesTable)
	if _, err := tx.Exec(ctx, deleteQuery, tempID); err != nil {
		return "", err
	}

	if err := tx.Commit(ctx); err != nil {
		return "", err
	}
	s.logger.Info("Promoted temp update %s to permanent %s", tempID, permanentID)
	return permanentID, nil
}

func (s *Store) RecentDocuments(ctx context.Context, userID string) ([]store.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.pool == nil {
		return nil, fmt.Errorf("store not initialized")
	}

	query := fmt.Sprintf(`
SELECT doc FROM %s WHERE user_id = $1
UNION ALL
SELECT doc FROM %s WHERE user_id = $1
`, updatesTable, tempUpdatesTable)

	rows, err := s.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []store.Document
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var doc store.Document
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("decode work update document: %w", err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func (s *Store) SaveSession(ctx context.Context, session *store.FollowupSession) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if session == nil {
		return fmt.Errorf("session cannot be nil")
	}
	if s == nil || s.pool == nil {
		return fmt.Errorf("store not initialized")
	}

	questions, err := toJSONBytes(session.Questions)
	if err != nil {
		return fmt.Errorf("encode questions: %w", err)
	}
	answers, err := toJSONBytes(session.Answers)
	if err != nil {
		return fmt.Errorf("encode answers: %w", err)
	}

	query := fmt.Sprintf(`
INSERT INTO %s (id, user_id, temp_work_update_id, work_update_id, session_date, questions, answers, status, created_at, completed_at)
VALUES ($1, $2, $3, $4, $5, $6::jsonb, $7::jsonb, $8, $9, $10)
ON CONFLICT (id) DO UPDATE
SET temp_work_update_id = EXCLUDED.temp_work_update_id, work_update_id = EXCLUDED.work_update_id,
    session_date = EXCLUDED.session_date, questions = EXCLUDED.questions, answers = EXCLUDED.answers,
    status = EXCLUDED.status, created_at = EXCLUDED.created_at, completed_at = EXCLUDED.completed_at
`, sessionsTable)

	_, err = s.pool.Exec(ctx, query,
		session.ID, session.UserID, nullable(session.TempWorkUpdateID), nullable(session.WorkUpdateID),
		nullable(session.SessionDate), questions, answers, string(session.Status),
		session.CreatedAt, session.CompletedAt,
	)
	if err != nil {
		s.logger.Error("Failed to persist session %s: %v", session.ID, err)
	}
	return err
}

func (s *Store) Session(ctx context.Context, sessionID string) (*store.FollowupSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.pool == nil {
		return nil, fmt.Errorf("store not initialized")
	}

	query := fmt.Sprintf(`
SELECT id, user_id, temp_work_update_id, work_update_id, session_date, questions, answers, status, created_at, completed_at
FROM %s
WHERE id = $1
`, sessionsTable)

	return scanSession(s.pool.QueryRow(ctx, query, sessionID))
}

func (s *Store) PendingSession(ctx context.Context, userID string) (*store.FollowupSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.pool == nil {
		return nil, fmt.Errorf("store not initialized")
	}

	query := fmt.Sprintf(`
SELECT id, user_id, temp_work_update_id, work_update_id, session_date, questions, answers, status, created_at, completed_at
FROM %s
WHERE user_id = $1 AND status = $2
ORDER BY created_at DESC
LIMIT 1
`, sessionsTable)

	return scanSession(s.pool.QueryRow(ctx, query, userID, string(store.SessionStatusPending)))
}

func (s *Store) SessionsByUser(ctx context.Context, userID string, limit, offset int) ([]*store.FollowupSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.pool == nil {
		return nil, fmt.Errorf("store not initialized")
	}
	if limit <= 0 {
		limit = 150
	}
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`
SELECT id, user_id, temp_work_update_id, work_update_id, session_date, questions, answers, status, created_at, completed_at
FROM %s
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3
`, sessionsTable)

	rows, err := s.pool.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*store.FollowupSession
	for rows.Next() {
		session, err := scanSessionRow(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

func (s *Store) SweepAbandoned(ctx context.Context, cutoff time.Time) (store.SweepResult, error) {
	if err := ctx.Err(); err != nil {
		return store.SweepResult{}, err
	}
	if s == nil || s.pool == nil {
		return store.SweepResult{}, fmt.Errorf("store not initialized")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return store.SweepResult{}, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	deleteTemps := fmt.Sprintf(`
DELETE FROM %s
WHERE submitted_at < $1 AND status = $2
RETURNING id
`, tempUpdatesTable)

	rows, err := tx.Query(ctx, deleteTemps, cutoff, string(store.UpdateStatusPendingFollowup))
	if err != nil {
		return store.SweepResult{}, err
	}
	var tempIDs []string
	for rows.Next() {
		var tempID string
		if err := rows.Scan(&tempID); err != nil {
			rows.Close()
			return store.SweepResult{}, err
		}
		tempIDs = append(tempIDs, tempID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return store.SweepResult{}, err
	}

	result := store.SweepResult{TempUpdates: len(tempIDs)}
	if len(tempIDs) > 0 {
		deleteSessions := fmt.Sprintf(`DELETE FROM %s WHERE temp_work_update_id = ANY($1)`, sessionsTable)
		tag, err := tx.Exec(ctx, deleteSessions, tempIDs)
		if err != nil {
			return store.SweepResult{}, err
		}
		result.Sessions = int(tag.RowsAffected())
	}

	if err := tx.Commit(ctx); err != nil {
		return store.SweepResult{}, err
	}
	return result, nil
}

func (s *Store) Stats(ctx context.Context) (*store.Stats, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.pool == nil {
		return nil, fmt.Errorf("store not initialized")
	}

	query := fmt.Sprintf(`
SELECT
    (SELECT COUNT(*) FROM %[1]s),
    (SELECT COUNT(*) FROM %[1]s WHERE followup_completed),
    (SELECT COUNT(*) FROM %[1]s WHERE NOT followup_completed),
    (SELECT COUNT(*) FROM %[2]s),
    (SELECT COUNT(*) FROM %[2]s WHERE status = $1),
    (SELECT COUNT(*) FROM %[3]s),
    (SELECT COUNT(*) FROM %[3]s WHERE status = $2),
    (SELECT COUNT(*) FROM %[3]s WHERE status = $3)
`, updatesTable, tempUpdatesTable, sessionsTable)

	var stats store.Stats
	err := s.pool.QueryRow(ctx, query,
		string(store.UpdateStatusPendingFollowup),
		string(store.SessionStatusPending),
		string(store.SessionStatusCompleted),
	).Scan(
		&stats.TotalUpdates, &stats.CompletedFollowups, &stats.IncompleteFollowups,
		&stats.TotalTempUpdates, &stats.PendingTempUpdates,
		&stats.TotalSessions, &stats.PendingSessions, &stats.CompletedSessions,
	)
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("store not initialized")
	}
	return s.pool.Ping(ctx)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTempUpdate(row rowScanner) (*store.WorkUpdate, error) {
	var (
		update store.WorkUpdate
		raw    []byte
		status string
	)
	err := row.Scan(&update.ID, &update.UserID, &update.UpdateDate, &raw, &update.SubmittedAt, &status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrTempUpdateNotFound
		}
		return nil, err
	}
	update.Status = store.UpdateStatus(status)

	var doc store.Document
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("decode work update document: %w", err)
		}
	}
	if v, ok := doc[store.FieldDescription].(string); ok {
		update.Description = v
	}
	if v, ok := doc[store.FieldChallenges].(string); ok {
		update.Challenges = v
	}
	if v, ok := doc[store.FieldPlans].(string); ok {
		update.Plans = v
	}
	return &update, nil
}

func scanSession(row rowScanner) (*store.FollowupSession, error) {
	session, err := scanSessionRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrSessionNotFound
		}
		return nil, err
	}
	return session, nil
}

func scanSessionRow(row rowScanner) (*store.FollowupSession, error) {
	var (
		session       store.FollowupSession
		tempRef       *string
		updateRef     *string
		sessionDate   *string
		questionsJSON []byte
		answersJSON   []byte
		status        string
	)
	err := row.Scan(
		&session.ID, &session.UserID, &tempRef, &updateRef, &sessionDate,
		&questionsJSON, &answersJSON, &status, &session.CreatedAt, &session.CompletedAt,
	)
	if err != nil {
		return nil, err
	}

	if tempRef != nil {
		session.TempWorkUpdateID = *tempRef
	}
	if updateRef != nil {
		session.WorkUpdateID = *updateRef
	}
	if sessionDate != nil {
		session.SessionDate = *sessionDate
	}
	session.Status = store.SessionStatus(status)
	if err := json.Unmarshal(questionsJSON, &session.Questions); err != nil {
		return nil, fmt.Errorf("decode questions: %w", err)
	}
	if err := json.Unmarshal(answersJSON, &session.Answers); err != nil {
		return nil, fmt.Errorf("decode answers: %w", err)
	}
	return &session, nil
}

func toJSONBytes(value any) ([]byte, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	return data, nil
}

func nullable(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
