package cleanup

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"checkin/internal/store"
)

func seedTemp(t *testing.T, memory *store.MemoryStore, userID, date string, submittedAt time.Time) string {
	t.Helper()
	tempID, err := memory.CreateTempUpdate(context.Background(), &store.WorkUpdate{
		UserID:      userID,
		UpdateDate:  date,
		Description: "work",
		SubmittedAt: submittedAt,
		Status:      store.UpdateStatusPendingFollowup,
	})
	require.NoError(t, err)
	return tempID
}

func TestJanitorSweepRemovesStaleRecords(t *testing.T) {
	memory := store.NewMemoryStore()
	now := time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)

	staleID := seedTemp(t, memory, "u1", "2024-01-09", now.Add(-30*time.Hour))
	freshID := seedTemp(t, memory, "u2", "2024-01-10", now.Add(-2*time.Hour))

	require.NoError(t, memory.SaveSession(context.Background(), &store.FollowupSession{
		ID:               "u1_session_2024-01-09",
		UserID:           "u1",
		TempWorkUpdateID: staleID,
		Questions:        []string{"q"},
		Status:           store.SessionStatusPending,
		CreatedAt:        now.Add(-30 * time.Hour),
	}))

	janitor := &Janitor{
		Store: memory,
		Now:   func() time.Time { return now },
	}

	result, err := janitor.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.TempUpdates)
	assert.Equal(t, 1, result.Sessions)

	_, err = memory.TempUpdate(context.Background(), staleID)
	assert.ErrorIs(t, err, store.ErrTempUpdateNotFound)
	_, err = memory.TempUpdate(context.Background(), freshID)
	assert.NoError(t, err)

	// Nothing left to remove on the next pass.
	result, err = janitor.Sweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, result.TempUpdates)
	assert.Zero(t, result.Sessions)
}

func TestJanitorCustomRetention(t *testing.T) {
	memory := store.NewMemoryStore()
	now := time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)

	tempID := seedTemp(t, memory, "u1", "2024-01-10", now.Add(-3*time.Hour))

	janitor := &Janitor{
		Store:     memory,
		Retention: 2 * time.Hour,
		Now:       func() time.Time { return now },
	}

	result, err := janitor.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.TempUpdates)

	_, err = memory.TempUpdate(context.Background(), tempID)
	assert.ErrorIs(t, err, store.ErrTempUpdateNotFound)
}

func TestJanitorRequiresStore(t *testing.T) {
	var janitor *Janitor
	_, err := janitor.Sweep(context.Background())
	assert.Error(t, err)

	_, err = (&Janitor{}).Sweep(context.Background())
	assert.Error(t, err)
}

func TestRunnerStopsOnCancel(t *testing.T) {
	memory := store.NewMemoryStore()
	runner := &Runner{
		Janitor:  &Janitor{Store: memory},
		Interval: 10 * time.Millisecond,
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- runner.Run(ctx)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("runner did not stop after cancel")
	}
}
