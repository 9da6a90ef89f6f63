package followup

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"checkin/internal/llm"
	"checkin/internal/store"
)

var fixedNow = time.Date(2024, 1, 10, 18, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, client llm.Client) (*Service, *store.MemoryStore) {
	t.Helper()
	memory := store.NewMemoryStore()
	service := NewService(memory, client, WithNow(func() time.Time { return fixedNow }))
	return service, memory
}

func seedTempUpdate(t *testing.T, memory *store.MemoryStore, userID string) string {
	t.Helper()
	tempID, err := memory.CreateTempUpdate(context.Background(), &store.WorkUpdate{
		UserID:      userID,
		UpdateDate:  fixedNow.Format("2006-01-02"),
		WorkStatus:  store.WorkStatusWorking,
		Description: "Deployed the service to staging",
		Challenges:  "Load balancer config drift",
		Plans:       "Promote to production",
		SubmittedAt: fixedNow,
		Status:      store.UpdateStatusPendingFollowup,
	})
	require.NoError(t, err)
	return tempID
}

func TestGenerateQuestionsFromModel(t *testing.T) {
	client := llm.NewMockClient("1. How did the staging deploy go?\n2. Is the config drift resolved?\n3. Anything blocking production?")
	service, memory := newTestService(t, client)
	seedTempUpdate(t, memory, "u1")

	questions := service.GenerateQuestions(context.Background(), "u1", &WorkData{
		Description: "Deployed the service to staging",
	})
	assert.Equal(t, []string{
		"How did the staging deploy go?",
		"Is the config drift resolved?",
		"Anything blocking production?",
	}, questions)
}

func TestGenerateQuestionsDefaultsOnModelFailure(t *testing.T) {
	client := llm.NewMockClient().FailWith(errors.New("model unavailable"))
	service, _ := newTestService(t, client)

	questions := service.GenerateQuestions(context.Background(), "u1", &WorkData{Description: "d"})
	assert.Equal(t, DefaultQuestions(), questions)
}

func TestGenerateQuestionsDefaultsOnBlankResponse(t *testing.T) {
	client := llm.NewMockClient("   \n\t")
	service, _ := newTestService(t, client)

	questions := service.GenerateQuestions(context.Background(), "u1", nil)
	assert.Equal(t, DefaultQuestions(), questions)
}

func TestGenerateQuestionsPromptCarriesHistory(t *testing.T) {
	client := llm.NewMockClient("1. Did the deploy service plan happen today?\n2. Any surprises?\n3. All monitors green?")
	service, memory := newTestService(t, client)

	// Yesterday's update carries plans; an old one is outside the window.
	yesterday := fixedNow.AddDate(0, 0, -1)
	_, err := memory.CreatePermanentUpdate(context.Background(), &store.WorkUpdate{
		UserID:      "u1",
		UpdateDate:  yesterday.Format("2006-01-02"),
		Description: "Prepared the release",
		Plans:       "deploy service",
		SubmittedAt: yesterday,
		Status:      store.UpdateStatusCompleted,
	})
	require.NoError(t, err)

	ancient := fixedNow.AddDate(0, 0, -20)
	_, err = memory.CreatePermanentUpdate(context.Background(), &store.WorkUpdate{
		UserID:      "u1",
		UpdateDate:  ancient.Format("2006-01-02"),
		Description: "Ancient work",
		Plans:       "should not appear",
		SubmittedAt: ancient,
		Status:      store.UpdateStatusCompleted,
	})
	require.NoError(t, err)

	service.GenerateQuestions(context.Background(), "u1", &WorkData{Description: "Deployed the service"})

	prompt := client.LastPrompt()
	assert.Contains(t, prompt, "**What They Planned (from yesterday):** deploy service")
	assert.Contains(t, prompt, "Prepared the release")
	assert.NotContains(t, prompt, "Ancient work")
}

func TestStartSession(t *testing.T) {
	client := llm.NewMockClient("1. How did the staging deploy go?\n2. Is the config drift resolved?\n3. Anything blocking production?")
	service, memory := newTestService(t, client)
	tempID := seedTempUpdate(t, memory, "u1")

	session, err := service.StartSession(context.Background(), "u1", tempID)
	require.NoError(t, err)
	assert.Equal(t, "u1_session_2024-01-10", session.ID)
	assert.Equal(t, tempID, session.TempWorkUpdateID)
	assert.Len(t, session.Questions, 3)
	assert.Equal(t, []string{"", "", ""}, session.Answers)
	assert.Equal(t, store.SessionStatusPending, session.Status)

	// The prompt is built from the temp update's content.
	assert.Contains(t, client.LastPrompt(), "Deployed the service to staging")

	pending, err := service.PendingSession(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, session.ID, pending.ID)
}

func TestStartSessionReplacesSameDaySession(t *testing.T) {
	client := llm.NewMockClient("1. First round question here?\n2. Second round question here?\n3. Third round question here?")
	service, memory := newTestService(t, client)
	tempID := seedTempUpdate(t, memory, "u1")

	first, err := service.StartSession(context.Background(), "u1", tempID)
	require.NoError(t, err)
	second, err := service.StartSession(context.Background(), "u1", tempID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	sessions, err := memory.SessionsByUser(context.Background(), "u1", 10, 0)
	require.NoError(t, err)
	assert.Len(t, sessions, 1)
}

func TestStartSessionMissingTempUpdate(t *testing.T) {
	service, _ := newTestService(t, llm.NewMockClient("x"))

	_, err := service.StartSession(context.Background(), "u1", "temp-missing")
	assert.ErrorIs(t, err, store.ErrTempUpdateNotFound)
}

func TestCompleteSession(t *testing.T) {
	client := llm.NewMockClient("1. How did the staging deploy go?\n2. Is the config drift resolved?\n3. Anything blocking production?")
	service, memory := newTestService(t, client)
	tempID := seedTempUpdate(t, memory, "u1")

	session, err := service.StartSession(context.Background(), "u1", tempID)
	require.NoError(t, err)

	completed, err := service.CompleteSession(context.Background(), session.ID, []string{"Fine", "Yes", "No"})
	require.NoError(t, err)
	assert.Equal(t, store.SessionStatusCompleted, completed.Status)
	assert.NotEmpty(t, completed.WorkUpdateID)
	require.NotNil(t, completed.CompletedAt)

	// Temp update is gone, the permanent record exists.
	_, err = memory.TempUpdate(context.Background(), tempID)
	assert.ErrorIs(t, err, store.ErrTempUpdateNotFound)

	docs, err := memory.RecentDocuments(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "completed", docs[0][store.FieldStatus])
}

func TestCompleteSessionValidation(t *testing.T) {
	client := llm.NewMockClient("1. First question, yeah ok?\n2. Second question, yeah ok?\n3. Third question, yeah ok?")
	service, memory := newTestService(t, client)
	tempID := seedTempUpdate(t, memory, "u1")

	session, err := service.StartSession(context.Background(), "u1", tempID)
	require.NoError(t, err)

	_, err = service.CompleteSession(context.Background(), session.ID, []string{"only", "two"})
	assert.ErrorIs(t, err, ErrAnswerCountMismatch)

	_, err = service.CompleteSession(context.Background(), session.ID, []string{"", "ok", "ok"})
	assert.ErrorIs(t, err, ErrEmptyAnswer)

	// No mutation happened: the session is still pending and the temp
	// update still exists.
	got, err := memory.Session(context.Background(), session.ID)
	require.NoError(t, err)
	assert.Equal(t, store.SessionStatusPending, got.Status)
	_, err = memory.TempUpdate(context.Background(), tempID)
	assert.NoError(t, err)
}

func TestCompleteSessionMissingSession(t *testing.T) {
	service, _ := newTestService(t, llm.NewMockClient("x"))

	_, err := service.CompleteSession(context.Background(), "nope", []string{"a", "b", "c"})
	assert.ErrorIs(t, err, store.ErrSessionNotFound)
}

func TestCompleteSessionMissingTempUpdate(t *testing.T) {
	client := llm.NewMockClient("1. First question, yeah ok?\n2. Second question, yeah ok?\n3. Third question, yeah ok?")
	service, memory := newTestService(t, client)
	tempID := seedTempUpdate(t, memory, "u1")

	session, err := service.StartSession(context.Background(), "u1", tempID)
	require.NoError(t, err)

	// The temp update expires before the answers arrive.
	require.NoError(t, memory.DeleteTempUpdate(context.Background(), tempID))

	_, err = service.CompleteSession(context.Background(), session.ID, []string{"a", "b", "c"})
	assert.ErrorIs(t, err, store.ErrTempUpdateNotFound)

	got, err := memory.Session(context.Background(), session.ID)
	require.NoError(t, err)
	assert.Equal(t, store.SessionStatusPending, got.Status)
}
