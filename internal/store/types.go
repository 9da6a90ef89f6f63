// Package store defines the persistence contracts for work updates and
// follow-up sessions: typed records, the loosely-typed document surface older
// records flow through, and the store interfaces implemented by the Postgres
// and in-memory backends.
package store

import "time"

// WorkStatus is what the intern reported for the day.
type WorkStatus string

const (
	WorkStatusWorking WorkStatus = "working"
	WorkStatusOnLeave WorkStatus = "on_leave"
)

// UpdateStatus tracks a work update through the two-stage lifecycle.
type UpdateStatus string

const (
	UpdateStatusPendingFollowup UpdateStatus = "pending_followup"
	UpdateStatusCompleted       UpdateStatus = "completed"
)

// SessionStatus tracks a follow-up session.
type SessionStatus string

const (
	SessionStatusPending   SessionStatus = "pending"
	SessionStatusCompleted SessionStatus = "completed"
)

// Document field names. These are the persisted contract surface; any storage
// backend must read and write exactly these keys.
const (
	FieldUserID            = "userId"
	FieldUpdateDate        = "update_date"
	FieldDescription       = "description"
	FieldChallenges        = "challenges"
	FieldPlans             = "plans"
	FieldSubmittedAt       = "submittedAt"
	FieldStatus            = "status"
	FieldFollowupCompleted = "followupCompleted"
	FieldQuestions         = "questions"
	FieldAnswers           = "answers"
	FieldCreatedAt         = "createdAt"
	FieldCompletedAt       = "completedAt"
	FieldWorkUpdateID      = "workUpdateId"
	FieldTempWorkUpdateID  = "tempWorkUpdateId"
)

// Document is the open-ended key/value shape records take on the read path.
// Older records may carry alternative timestamp fields; the followup package
// normalizes that messiness at one boundary instead of spreading it here.
type Document map[string]any

// WorkUpdate is a daily report. The same struct serves the temporary and the
// permanent area; only the store it lives in differs.
type WorkUpdate struct {
	ID                string
	UserID            string
	UpdateDate        string // YYYY-MM-DD, local day granularity
	WorkStatus        WorkStatus
	Description       string
	Challenges        string
	Plans             string
	SubmittedAt       time.Time
	Status            UpdateStatus
	FollowupCompleted bool
	CompletedAt       *time.Time
}

// Document renders the update into the persisted contract shape.
func (u *WorkUpdate) Document() Document {
	doc := Document{
		FieldUserID:            u.UserID,
		FieldUpdateDate:        u.UpdateDate,
		FieldDescription:       u.Description,
		FieldSubmittedAt:       u.SubmittedAt,
		FieldStatus:            string(u.Status),
		FieldFollowupCompleted: u.FollowupCompleted,
	}
	if u.Challenges != "" {
		doc[FieldChallenges] = u.Challenges
	}
	if u.Plans != "" {
		doc[FieldPlans] = u.Plans
	}
	if u.CompletedAt != nil {
		doc[FieldCompletedAt] = *u.CompletedAt
	}
	return doc
}

// FollowupSession holds the generated questions and collected answers for one
// work update. Questions and answers always have exactly three entries once
// the session exists; answers start blank.
type FollowupSession struct {
	ID               string
	UserID           string
	TempWorkUpdateID string
	WorkUpdateID     string // set when the linked update is promoted
	SessionDate      string // YYYY-MM-DD
	Questions        []string
	Answers          []string
	Status           SessionStatus
	CreatedAt        time.Time
	CompletedAt      *time.Time
}

// SweepResult reports what one cleanup pass removed.
type SweepResult struct {
	TempUpdates int
	Sessions    int
}

// Stats summarizes record counts for the monitoring surface.
type Stats struct {
	TotalUpdates        int
	CompletedFollowups  int
	IncompleteFollowups int
	TotalTempUpdates    int
	PendingTempUpdates  int
	TotalSessions       int
	PendingSessions     int
	CompletedSessions   int
}
