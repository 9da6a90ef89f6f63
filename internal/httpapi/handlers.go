package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"checkin/internal/cleanup"
	"checkin/internal/followup"
	"checkin/internal/store"
)

type createWorkUpdateRequest struct {
	UserID      string `json:"userId" binding:"required"`
	WorkStatus  string `json:"work_status"`
	Description string `json:"description"`
	Challenges  string `json:"challenges"`
	Plans       string `json:"plans"`
}

type startFollowupRequest struct {
	UserID           string `json:"userId" binding:"required"`
	TempWorkUpdateID string `json:"tempWorkUpdateId" binding:"required"`
}

type completeFollowupRequest struct {
	Answers []string `json:"answers"`
}

func (s *Server) handleRoot(c *gin.Context) {
	cleanupStatus := "disabled"
	if s.janitor != nil {
		cleanupStatus = "scheduled"
	}
	c.JSON(http.StatusOK, gin.H{
		"message": serviceName,
		"version": serviceVersion,
		"status":  "running",
		"cleanup": cleanupStatus,
	})
}

func (s *Server) handleHealth(c *gin.Context) {
	if err := s.store.Ping(c.Request.Context()); err != nil {
		s.logger.Error("Health check failed: %v", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":    "unhealthy",
			"error":     err.Error(),
			"timestamp": s.now().Format(time.RFC3339),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"database":  "connected",
		"timestamp": s.now().Format(time.RFC3339),
	})
}

func (s *Server) handleStats(c *gin.Context) {
	stats, err := s.store.Stats(c.Request.Context())
	if err != nil {
		s.logger.Error("Failed to get stats: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get statistics"})
		return
	}

	response := gin.H{
		"work_updates": gin.H{
			"total":                stats.TotalUpdates,
			"completed_followups":  stats.CompletedFollowups,
			"incomplete_followups": stats.IncompleteFollowups,
		},
		"temp_work_updates": gin.H{
			"total":   stats.TotalTempUpdates,
			"pending": stats.PendingTempUpdates,
		},
		"followup_sessions": gin.H{
			"total":     stats.TotalSessions,
			"pending":   stats.PendingSessions,
			"completed": stats.CompletedSessions,
		},
	}
	if s.janitor != nil {
		retention := s.janitor.Retention
		if retention <= 0 {
			retention = cleanup.DefaultRetention
		}
		response["cleanup_system"] = gin.H{
			"running":       true,
			"age_threshold": retention.String(),
		}
	}
	c.JSON(http.StatusOK, response)
}

// handleCreateWorkUpdate stores the day's submission. An on-leave update is
// finalized immediately; a working update lands in temporary storage and the
// caller is redirected into the follow-up flow.
func (s *Server) handleCreateWorkUpdate(c *gin.Context) {
	var req createWorkUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	workStatus := store.WorkStatus(req.WorkStatus)
	if workStatus == "" {
		workStatus = store.WorkStatusWorking
	}
	if workStatus != store.WorkStatusWorking && workStatus != store.WorkStatusOnLeave {
		c.JSON(http.StatusBadRequest, gin.H{"error": "work_status must be 'working' or 'on_leave'"})
		return
	}
	if workStatus == store.WorkStatusWorking && strings.TrimSpace(req.Description) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "work update description is required when status is 'working'"})
		return
	}

	now := s.now()
	today := now.Format("2006-01-02")
	update := &store.WorkUpdate{
		UserID:      req.UserID,
		UpdateDate:  today,
		WorkStatus:  workStatus,
		Description: req.Description,
		Challenges:  req.Challenges,
		Plans:       req.Plans,
		SubmittedAt: now,
	}

	if workStatus == store.WorkStatusOnLeave {
		update.Status = store.UpdateStatusCompleted
		update.FollowupCompleted = true

		isOverride := s.hasUpdateForDate(c, req.UserID, today)
		workUpdateID, err := s.store.CreatePermanentUpdate(c.Request.Context(), update)
		if err != nil {
			s.logger.Error("Failed to save leave update for %s: %v", req.UserID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create work update"})
			return
		}
		s.logger.Info("On-leave work update saved permanently: %s", workUpdateID)
		c.JSON(http.StatusOK, gin.H{
			"message":            "Leave status saved successfully",
			"workUpdateId":       workUpdateID,
			"isOverride":         isOverride,
			"redirectToFollowup": false,
			"isOnLeave":          true,
		})
		return
	}

	update.Status = store.UpdateStatusPendingFollowup
	tempID, err := s.store.CreateTempUpdate(c.Request.Context(), update)
	if err != nil {
		s.logger.Error("Failed to save temp update for %s: %v", req.UserID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create work update"})
		return
	}
	s.logger.Info("Working update saved to temporary storage: %s", tempID)
	c.JSON(http.StatusOK, gin.H{
		"message":            "Work update saved temporarily. Complete follow-up within 24 hours to finalize.",
		"tempWorkUpdateId":   tempID,
		"redirectToFollowup": true,
		"isOnLeave":          false,
	})
}

func (s *Server) hasUpdateForDate(c *gin.Context, userID, date string) bool {
	docs, err := s.store.RecentDocuments(c.Request.Context(), userID)
	if err != nil {
		return false
	}
	for _, doc := range docs {
		if d, _ := doc[store.FieldUpdateDate].(string); d == date {
			return true
		}
	}
	return false
}

func (s *Server) handleStartFollowup(c *gin.Context) {
	var req startFollowupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	session, err := s.service.StartSession(c.Request.Context(), req.UserID, req.TempWorkUpdateID)
	if err != nil {
		if errors.Is(err, store.ErrTempUpdateNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "temporary work update not found (it may have expired)"})
			return
		}
		s.logger.Error("Failed to start follow-up session: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to start follow-up session"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":   "Follow-up session started",
		"sessionId": session.ID,
		"questions": session.Questions,
	})
}

func (s *Server) handleCompleteFollowup(c *gin.Context) {
	var req completeFollowupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	session, err := s.service.CompleteSession(c.Request.Context(), c.Param("sessionID"), req.Answers)
	if err != nil {
		switch {
		case errors.Is(err, followup.ErrAnswerCountMismatch), errors.Is(err, followup.ErrEmptyAnswer):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, store.ErrSessionNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		case errors.Is(err, store.ErrTempUpdateNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "temporary work update not found (it may have expired)"})
		default:
			s.logger.Error("Failed to complete follow-up: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to complete follow-up"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":             "Follow-up questions completed successfully. Work update finalized.",
		"sessionId":           session.ID,
		"workUpdateId":        session.WorkUpdateID,
		"workUpdateCompleted": true,
	})
}

func (s *Server) handleGetSession(c *gin.Context) {
	session, err := s.store.Session(c.Request.Context(), c.Param("sessionID"))
	if err != nil {
		if errors.Is(err, store.ErrSessionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		s.logger.Error("Failed to get session: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get session"})
		return
	}
	c.JSON(http.StatusOK, sessionJSON(session))
}

func (s *Server) handlePendingSession(c *gin.Context) {
	session, err := s.service.PendingSession(c.Request.Context(), c.Param("userID"))
	if err != nil {
		if errors.Is(err, store.ErrSessionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no pending session"})
			return
		}
		s.logger.Error("Failed to get pending session: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get pending session"})
		return
	}
	c.JSON(http.StatusOK, sessionJSON(session))
}

func (s *Server) handleListSessions(c *gin.Context) {
	limit := intQuery(c, "limit", 150)
	skip := intQuery(c, "skip", 0)

	sessions, err := s.store.SessionsByUser(c.Request.Context(), c.Param("userID"), limit, skip)
	if err != nil {
		s.logger.Error("Failed to list sessions: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get followup sessions"})
		return
	}

	rendered := make([]gin.H, 0, len(sessions))
	for _, session := range sessions {
		rendered = append(rendered, sessionJSON(session))
	}
	c.JSON(http.StatusOK, gin.H{
		"sessions": rendered,
		"count":    len(rendered),
	})
}

func (s *Server) handleManualCleanup(c *gin.Context) {
	if s.janitor == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "cleanup is not configured"})
		return
	}
	result, err := s.janitor.Sweep(c.Request.Context())
	if err != nil {
		s.logger.Error("Manual cleanup failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to cleanup"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":              "Manual cleanup completed",
		"deleted_temp_updates": result.TempUpdates,
		"deleted_sessions":     result.Sessions,
	})
}

func (s *Server) handleCleanupStatus(c *gin.Context) {
	if s.janitor == nil {
		c.JSON(http.StatusOK, gin.H{"cleanup_task_running": false})
		return
	}
	retention := s.janitor.Retention
	if retention <= 0 {
		retention = cleanup.DefaultRetention
	}
	c.JSON(http.StatusOK, gin.H{
		"cleanup_task_running": true,
		"age_threshold":        retention.String(),
	})
}

func sessionJSON(session *store.FollowupSession) gin.H {
	out := gin.H{
		"sessionId":        session.ID,
		"userId":           session.UserID,
		"tempWorkUpdateId": session.TempWorkUpdateID,
		"session_date":     session.SessionDate,
		"questions":        session.Questions,
		"answers":          session.Answers,
		"status":           string(session.Status),
		"createdAt":        session.CreatedAt,
	}
	if session.WorkUpdateID != "" {
		out["workUpdateId"] = session.WorkUpdateID
	}
	if session.CompletedAt != nil {
		out["completedAt"] = session.CompletedAt
	}
	return out
}

func intQuery(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return fallback
	}
	return value
}
