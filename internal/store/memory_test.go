package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTempUpdate(userID, date string) *WorkUpdate {
	return &WorkUpdate{
		UserID:      userID,
		UpdateDate:  date,
		WorkStatus:  WorkStatusWorking,
		Description: "wired up the ingestion job",
		Plans:       "finish the parser",
		SubmittedAt: time.Now(),
		Status:      UpdateStatusPendingFollowup,
	}
}

func TestCreateTempUpdateIsIdempotentPerUserDate(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	first, err := s.CreateTempUpdate(ctx, newTempUpdate("u1", "2024-01-10"))
	require.NoError(t, err)

	resubmission := newTempUpdate("u1", "2024-01-10")
	resubmission.Description = "rewrote the ingestion job"
	second, err := s.CreateTempUpdate(ctx, resubmission)
	require.NoError(t, err)
	assert.Equal(t, first, second, "same-day resubmission must reuse the record id")

	docs, err := s.RecentDocuments(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "rewrote the ingestion job", docs[0][FieldDescription])
}

func TestCreatePermanentUpdateIsIdempotentPerUserDate(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	update := newTempUpdate("u1", "2024-01-10")
	update.Status = UpdateStatusCompleted
	update.FollowupCompleted = true

	first, err := s.CreatePermanentUpdate(ctx, update)
	require.NoError(t, err)
	second, err := s.CreatePermanentUpdate(ctx, update)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalUpdates)
}

func TestPromoteTempUpdate(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	tempID, err := s.CreateTempUpdate(ctx, newTempUpdate("u1", "2024-01-10"))
	require.NoError(t, err)

	completedAt := time.Now()
	permID, err := s.PromoteTempUpdate(ctx, tempID, completedAt)
	require.NoError(t, err)
	require.NotEmpty(t, permID)

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalTempUpdates, "promotion must delete the temporary copy")
	assert.Equal(t, 1, stats.TotalUpdates)
	assert.Equal(t, 1, stats.CompletedFollowups)

	// The temporary record is gone, so a second promotion is a not-found.
	_, err = s.PromoteTempUpdate(ctx, tempID, completedAt)
	assert.ErrorIs(t, err, ErrTempUpdateNotFound)
}

func TestPromoteOverwritesSameDayPermanentRecord(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	leave := newTempUpdate("u1", "2024-01-10")
	leave.WorkStatus = WorkStatusOnLeave
	leave.Status = UpdateStatusCompleted
	existingID, err := s.CreatePermanentUpdate(ctx, leave)
	require.NoError(t, err)

	tempID, err := s.CreateTempUpdate(ctx, newTempUpdate("u1", "2024-01-10"))
	require.NoError(t, err)

	permID, err := s.PromoteTempUpdate(ctx, tempID, time.Now())
	require.NoError(t, err)
	assert.Equal(t, existingID, permID, "same-day promotion replaces the permanent record")

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalUpdates)
}

func TestTempUpdateNotFound(t *testing.T) {
	s := NewMemoryStore()
	_, err := s.TempUpdate(context.Background(), "temp-missing")
	assert.ErrorIs(t, err, ErrTempUpdateNotFound)
}

func TestDeleteTempUpdateMissingIsNoop(t *testing.T) {
	s := NewMemoryStore()
	assert.NoError(t, s.DeleteTempUpdate(context.Background(), "temp-missing"))
}

func TestPendingSessionReturnsNewest(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	base := time.Now()

	older := &FollowupSession{
		ID: "u1_session_2024-01-09", UserID: "u1", SessionDate: "2024-01-09",
		Questions: []string{"a?", "b?", "c?"}, Answers: []string{"", "", ""},
		Status: SessionStatusPending, CreatedAt: base.Add(-24 * time.Hour),
	}
	newer := &FollowupSession{
		ID: "u1_session_2024-01-10", UserID: "u1", SessionDate: "2024-01-10",
		Questions: []string{"a?", "b?", "c?"}, Answers: []string{"", "", ""},
		Status: SessionStatusPending, CreatedAt: base,
	}
	require.NoError(t, s.SaveSession(ctx, older))
	require.NoError(t, s.SaveSession(ctx, newer))

	pending, err := s.PendingSession(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, newer.ID, pending.ID)

	_, err = s.PendingSession(ctx, "u2")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionsByUserPagination(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	base := time.Now()

	for i := 0; i < 5; i++ {
		session := &FollowupSession{
			ID:        "u1_session_2024-01-1" + string(rune('0'+i)),
			UserID:    "u1",
			Questions: []string{"a?", "b?", "c?"},
			Answers:   []string{"", "", ""},
			Status:    SessionStatusCompleted,
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}
		require.NoError(t, s.SaveSession(ctx, session))
	}

	page, err := s.SessionsByUser(ctx, "u1", 2, 1)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "u1_session_2024-01-13", page[0].ID)
	assert.Equal(t, "u1_session_2024-01-12", page[1].ID)

	empty, err := s.SessionsByUser(ctx, "u1", 10, 10)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestSweepAbandonedRemovesOldPendingAndLinkedSessions(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	now := time.Now()

	stale := newTempUpdate("u1", "2024-01-08")
	stale.SubmittedAt = now.Add(-25 * time.Hour)
	staleID, err := s.CreateTempUpdate(ctx, stale)
	require.NoError(t, err)

	fresh := newTempUpdate("u1", "2024-01-10")
	fresh.SubmittedAt = now.Add(-1 * time.Hour)
	_, err = s.CreateTempUpdate(ctx, fresh)
	require.NoError(t, err)

	linked := &FollowupSession{
		ID: "u1_session_2024-01-08", UserID: "u1", TempWorkUpdateID: staleID,
		Questions: []string{"a?", "b?", "c?"}, Answers: []string{"", "", ""},
		Status: SessionStatusPending, CreatedAt: now.Add(-25 * time.Hour),
	}
	require.NoError(t, s.SaveSession(ctx, linked))

	result, err := s.SweepAbandoned(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, result.TempUpdates)
	assert.Equal(t, 1, result.Sessions)

	_, err = s.TempUpdate(ctx, staleID)
	assert.ErrorIs(t, err, ErrTempUpdateNotFound)

	// Sweeping again finds nothing; already-gone records are not an error.
	result, err = s.SweepAbandoned(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Zero(t, result.TempUpdates)
	assert.Zero(t, result.Sessions)
}

func TestRecentDocumentsCombinesBothAreas(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	_, err := s.CreateTempUpdate(ctx, newTempUpdate("u1", "2024-01-10"))
	require.NoError(t, err)

	perm := newTempUpdate("u1", "2024-01-09")
	perm.Status = UpdateStatusCompleted
	perm.FollowupCompleted = true
	_, err = s.CreatePermanentUpdate(ctx, perm)
	require.NoError(t, err)

	_, err = s.CreateTempUpdate(ctx, newTempUpdate("u2", "2024-01-10"))
	require.NoError(t, err)

	docs, err := s.RecentDocuments(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, docs, 2)
	for _, doc := range docs {
		assert.Equal(t, "u1", doc[FieldUserID])
	}
}
