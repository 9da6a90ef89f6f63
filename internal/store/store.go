package store

import (
	"context"
	"errors"
	"time"
)

// Not-found conditions are surfaced as sentinel errors so callers can
// distinguish them from persistence failures with errors.Is.
var (
	// ErrTempUpdateNotFound reports a missing temporary work update, typically
	// one that already expired or was promoted.
	ErrTempUpdateNotFound = errors.New("temporary work update not found")
	// ErrSessionNotFound reports a missing follow-up session.
	ErrSessionNotFound = errors.New("follow-up session not found")
)

// UpdateStore owns every WorkUpdate transition across the temporary and
// permanent areas.
type UpdateStore interface {
	// CreateTempUpdate upserts into the temporary area keyed by (user, date).
	// A same-day resubmission replaces the existing record and returns its id.
	CreateTempUpdate(ctx context.Context, update *WorkUpdate) (string, error)

	// TempUpdate returns a temporary update by id, or ErrTempUpdateNotFound.
	TempUpdate(ctx context.Context, tempID string) (*WorkUpdate, error)

	// DeleteTempUpdate removes a temporary update. Deleting an id that is
	// already gone is a no-op, not an error.
	DeleteTempUpdate(ctx context.Context, tempID string) error

	// CreatePermanentUpdate upserts into the permanent area keyed by
	// (user, date). Used directly for leave days, which need no follow-up.
	CreatePermanentUpdate(ctx context.Context, update *WorkUpdate) (string, error)

	// PromoteTempUpdate moves a temporary update into the permanent area:
	// reads it, stamps completion metadata, upserts permanent by (user, date)
	// overwriting any same-day record, and deletes the temporary copy.
	// Returns ErrTempUpdateNotFound when the temporary record is gone.
	PromoteTempUpdate(ctx context.Context, tempID string, completedAt time.Time) (string, error)

	// RecentDocuments returns the user's updates from BOTH areas combined, in
	// the persisted document shape, unfiltered. Time filtering and ordering
	// happen in memory on the caller's side because older documents disagree
	// about which field holds the timestamp.
	RecentDocuments(ctx context.Context, userID string) ([]Document, error)
}

// SessionStore persists follow-up sessions. Mutation policy lives in the
// followup service; this interface only moves records.
type SessionStore interface {
	// SaveSession upserts a session by id.
	SaveSession(ctx context.Context, session *FollowupSession) error

	// Session returns a session by id, or ErrSessionNotFound.
	Session(ctx context.Context, sessionID string) (*FollowupSession, error)

	// PendingSession returns the most recently created pending session for a
	// user, or ErrSessionNotFound when there is none.
	PendingSession(ctx context.Context, userID string) (*FollowupSession, error)

	// SessionsByUser lists a user's sessions newest-first.
	SessionsByUser(ctx context.Context, userID string, limit, offset int) ([]*FollowupSession, error)
}

// Store is the full persistence surface handed to the service layer. It is
// constructed once at startup and passed explicitly; there is no package-level
// connection state.
type Store interface {
	UpdateStore
	SessionStore

	// SweepAbandoned deletes temporary updates submitted before the cutoff
	// whose status is still pending_followup, along with any sessions
	// referencing them. Records deleted by a concurrent sweep are skipped
	// silently.
	SweepAbandoned(ctx context.Context, cutoff time.Time) (SweepResult, error)

	// Stats returns record counts for the monitoring endpoints.
	Stats(ctx context.Context) (*Stats, error)

	// Ping verifies the backing store is reachable.
	Ping(ctx context.Context) error
}
